package message

import "testing"

func TestFormatDateYYYYMMDD(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2020-01-01", "20200101"},
		{"01-01-2020", "20200101"},
		{"2020/01/02", "20200102"},
		{"20200101", "20200101"},
		{"43831", "20200101"}, // Excel serial for 2020-01-01
		{"", ""},
		{"not a date", "not a date"},
	}
	for _, c := range cases {
		if got := FormatDateYYYYMMDD(c.in); got != c.want {
			t.Fatalf("FormatDateYYYYMMDD(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestExcelSerialDate1904(t *testing.T) {
	// 2020-01-01 is day 42369 in the 1904-based system (serial 0 is the
	// epoch itself).
	got, ok := ExcelSerialDate("42369", true)
	if !ok || got != "20200101" {
		t.Fatalf("ExcelSerialDate 1904 = %q, %v", got, ok)
	}
}

func TestExcelSerialDateRejectsOutOfRange(t *testing.T) {
	for _, in := range []string{"0", "-5", "70000", "abc"} {
		if _, ok := ExcelSerialDate(in, false); ok {
			t.Fatalf("expected rejection for %q", in)
		}
	}
}
