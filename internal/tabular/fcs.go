// Package tabular reads final conservation score tables and writes the
// pipeline's output tables and run manifests. Score tables arrive as CSV
// or as Excel workbooks, the common interchange format for conservation
// scorecards.
package tabular

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/croptrust/gapanalysis-cli/internal/model"
)

// ReadFCS reads a per-species score table from a CSV or XLSX file. The
// table must carry a "species" column and the named score column; column
// matching is case-insensitive. Blank and NA cells become missing scores.
func ReadFCS(path, scoreColumn string) ([]model.FCSRow, error) {
	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err = readXLSXRows(path)
	default:
		rows, err = readCSVRows(path)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, eris.Errorf("tabular: %s: empty score table", path)
	}

	speciesIdx, scoreIdx := -1, -1
	for i, name := range rows[0] {
		switch {
		case strings.EqualFold(strings.TrimSpace(name), "species"):
			speciesIdx = i
		case strings.EqualFold(strings.TrimSpace(name), scoreColumn):
			scoreIdx = i
		}
	}
	if speciesIdx < 0 || scoreIdx < 0 {
		return nil, eris.Errorf("tabular: %s: required columns (species, %s) not found in header %v",
			path, scoreColumn, rows[0])
	}

	var out []model.FCSRow
	for n, row := range rows[1:] {
		if len(row) <= speciesIdx || len(row) <= scoreIdx {
			return nil, eris.Errorf("tabular: %s: row %d has %d columns, need at least %d",
				path, n+2, len(row), max(speciesIdx, scoreIdx)+1)
		}
		species := strings.TrimSpace(row[speciesIdx])
		if species == "" {
			continue
		}
		score, err := parseScore(row[scoreIdx])
		if err != nil {
			return nil, eris.Wrapf(err, "tabular: %s: row %d", path, n+2)
		}
		out = append(out, model.FCSRow{Species: species, Score: score})
	}
	return out, nil
}

// parseScore returns nil for blank and NA cells.
func parseScore(cell string) (*float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" || strings.EqualFold(cell, "na") || strings.EqualFold(cell, "nan") {
		return nil, nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "parse score %q", cell)
	}
	return &v, nil
}

func readCSVRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "tabular: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "tabular: read %s", path)
	}
	return rows, nil
}

func readXLSXRows(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "tabular: open %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("tabular: %s: workbook has no sheets", path)
	}

	sheet := f.Sheets[0]
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}
