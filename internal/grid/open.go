package grid

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

const utf8BOM = "\uFEFF"

// Open reads every sheet of the workbook at path into memory. The format is
// chosen by extension: .xlsx/.xlsm/.xltx/.xltm go through excelize, .csv is
// treated as a single-sheet export named after the file stem ("2024.csv").
func Open(ctx context.Context, path string) (*Workbook, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	adviseSequential(f)

	var sheets []*Sheet
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		sheets, err = readXLSX(f)
	case ".csv":
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		var s *Sheet
		s, err = readCSV(f, stem)
		if s != nil {
			sheets = []*Sheet{s}
		}
	default:
		return nil, fmt.Errorf("grid: unsupported workbook extension %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoSheets)
	}
	return &Workbook{Path: path, Sheets: sheets}, nil
}

// readXLSX loads all sheets with raw cell values so that numbers and dates
// keep their stored representation instead of the display format.
func readXLSX(r io.Reader) ([]*Sheet, error) {
	xf, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("excelize: %w", err)
	}
	defer func() {
		if cerr := xf.Close(); cerr != nil {
			log.Printf("grid: close workbook: %v", cerr)
		}
	}()

	var out []*Sheet
	for _, name := range xf.GetSheetList() {
		rows, err := xf.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", name, err)
		}
		out = append(out, NewSheet(name, rows))
	}
	return out, nil
}

func readCSV(r io.Reader, name string) (*Sheet, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], utf8BOM)
	}
	return NewSheet(name, rows), nil
}
