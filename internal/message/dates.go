package message

import (
	"strconv"
	"strings"
	"time"
)

// excelEpoch1900 is the base for 1900-system Excel serial dates. Excel counts
// from 1900-01-01 but carries the fictional 1900-02-29, so day 1 maps from
// 1899-12-30.
var excelEpoch1900 = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

var excelEpoch1904 = time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC)

var dateLayouts = []string{"2006-01-02", "02-01-2006", "02012006", "2006/01/02", "02/01/2006"}

// FormatDateYYYYMMDD coerces the date spellings seen in source datasets into
// the compact yyyymmdd form the message schema wants. Inputs already in that
// form pass through; Excel serials and common dashed/slashed layouts are
// converted; anything unrecognized is returned as-is so the operator sees the
// offending value in the output.
func FormatDateYYYYMMDD(value string) string {
	s := strings.TrimSpace(value)
	if s == "" {
		return ""
	}
	if isDigits(s) {
		if len(s) == 8 {
			return s
		}
		if d, ok := ExcelSerialDate(s, false); ok {
			return d
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("20060102")
		}
	}
	if digits := onlyDigits(s); len(digits) == 8 {
		return digits
	}
	return s
}

// ExcelSerialDate converts an Excel serial day number to yyyymmdd. date1904
// selects the 1904-based system used by workbooks saved on old Macs.
func ExcelSerialDate(serial string, date1904 bool) (string, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(serial), 64)
	if err != nil || f <= 0 || f > 60000 {
		return "", false
	}
	base := excelEpoch1900
	if date1904 {
		base = excelEpoch1904
	}
	return base.Add(time.Duration(f*24) * time.Hour).Format("20060102"), true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
