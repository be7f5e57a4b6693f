// Package importer loads client lists from spreadsheets into a project.
package importer

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// ReadFile reads all rows of a .xlsx or .csv file, header included.
func ReadFile(path string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return ReadXLSX(path, "")
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "importer: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		return ReadCSV(f)
	default:
		return nil, eris.Errorf("importer: unsupported file type %q", filepath.Ext(path))
	}
}

// ReadCSV reads comma or semicolon separated rows. The separator is taken
// from the header line.
func ReadCSV(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "importer: read csv")
	}
	text := strings.TrimPrefix(string(data), "\ufeff")

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	if header, _, _ := strings.Cut(text, "\n"); strings.Count(header, ";") > strings.Count(header, ",") {
		reader.Comma = ';'
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "importer: parse csv")
	}
	return rows, nil
}

// ReadXLSX reads the named sheet, or the first one when sheet is empty.
func ReadXLSX(path, sheet string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "importer: open xlsx %s", path)
	}

	var s *xlsx.Sheet
	if sheet != "" {
		var ok bool
		if s, ok = f.Sheet[sheet]; !ok {
			return nil, eris.Errorf("importer: sheet %q not found", sheet)
		}
	} else {
		if len(f.Sheets) == 0 {
			return nil, eris.New("importer: workbook has no sheets")
		}
		s = f.Sheets[0]
	}

	rows := make([][]string, 0, len(s.Rows))
	for _, row := range s.Rows {
		cells := make([]string, len(row.Cells))
		for i, cell := range row.Cells {
			cells[i] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}
