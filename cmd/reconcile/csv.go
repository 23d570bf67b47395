package main

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/gmhafiz/reconcile/internal/domain/scalar"
)

// loadCSV reads a header + data CSV into rows, stamping __line with the
// 1-based source line number (header is line 1, so the first data row is
// line 2).
func loadCSV(path string) ([]scalar.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	rows := make([]scalar.Row, 0, len(records)-1)
	for i, record := range records[1:] {
		row := make(scalar.Row, len(header)+1)
		for c, col := range header {
			if c < len(record) {
				row[col] = scalar.String(record[c])
			}
		}
		row[scalar.LineKey] = scalar.Number(float64(i + 2))
		rows = append(rows, row)
	}
	return rows, nil
}
