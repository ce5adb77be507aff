// Package dataset loads candidate test-data records and serves type-filtered
// selection for the generation pipeline.
package dataset

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/uzsteam/xmlator/internal/model"
)

// Source supplies candidate records. The registry depends only on this
// sequence-of-mappings contract, so tests and alternative providers can plug
// in without touching selection logic.
type Source interface {
	Load() ([]model.Record, error)
}

// FileSource picks a concrete provider based on the file extension.
func FileSource(path string) (Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSONSource{Path: path}, nil
	case ".csv":
		return CSVSource{Path: path}, nil
	}
	return nil, fmt.Errorf("unsupported dataset format %q (want .json or .csv)", filepath.Ext(path))
}

// JSONSource reads a pre-generated structured cache: a JSON array of records
// with optional type tags, as produced by the offline tagging step.
type JSONSource struct {
	Path string
}

// Load implements Source.
func (s JSONSource) Load() ([]model.Record, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	var records []model.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	for i := range records {
		if records[i].Fields == nil {
			records[i].Fields = map[string]string{}
		}
		if records[i].ID == 0 {
			records[i].ID = i
		}
	}
	return records, nil
}

// CSVSource reads a tabular source: header row with field names, one record
// per following row. CSV records carry no type tags and are therefore
// eligible for every message type.
type CSVSource struct {
	Path string
}

// Load implements Source.
func (s CSVSource) Load() ([]model.Record, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	headers := rows[0]
	records := make([]model.Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		fields := make(map[string]string, len(headers))
		for j, h := range headers {
			if h == "" {
				continue
			}
			if j < len(row) {
				fields[h] = row[j]
			} else {
				fields[h] = ""
			}
		}
		records = append(records, model.Record{ID: i, Fields: fields})
	}
	return records, nil
}
