// Package grid exposes a workbook sheet as a random-access 2-D array of cell
// text. It is a thin wrapper over the spreadsheet readers: every read happens
// once in Open, after which scanning is pure in-memory work.
package grid

import (
	"errors"
	"strconv"
	"strings"

	"bpmastats/internal/textnorm"
)

// ErrNoSheets is returned by Open when the file holds no readable sheet.
var ErrNoSheets = errors.New("grid: workbook has no sheets")

// Grid is the read-only view the layout scanner works against.
type Grid interface {
	Name() string
	NumRows() int
	NumCols() int
	// Cell returns the trimmed raw text at (r, c), or "" outside the grid.
	Cell(r, c int) string
	// Label returns the cell in textnorm.Fold form, or "" outside the grid.
	Label(r, c int) string
}

// Sheet is an in-memory Grid. Rows may be ragged; missing cells read as "".
type Sheet struct {
	name   string
	rows   [][]string
	ncols  int
	folded [][]string
}

var _ Grid = (*Sheet)(nil)

// NewSheet copies rows into a Sheet named name.
func NewSheet(name string, rows [][]string) *Sheet {
	s := &Sheet{name: name, rows: make([][]string, len(rows))}
	for i, r := range rows {
		cp := make([]string, len(r))
		for j, v := range r {
			cp[j] = strings.TrimSpace(v)
		}
		s.rows[i] = cp
		if len(cp) > s.ncols {
			s.ncols = len(cp)
		}
	}
	s.folded = make([][]string, len(s.rows))
	return s
}

func (s *Sheet) Name() string { return s.name }
func (s *Sheet) NumRows() int { return len(s.rows) }
func (s *Sheet) NumCols() int { return s.ncols }

func (s *Sheet) Cell(r, c int) string {
	if r < 0 || r >= len(s.rows) || c < 0 || c >= len(s.rows[r]) {
		return ""
	}
	return s.rows[r][c]
}

func (s *Sheet) Label(r, c int) string {
	if r < 0 || r >= len(s.rows) || c < 0 || c >= len(s.rows[r]) {
		return ""
	}
	if s.folded[r] == nil {
		f := make([]string, len(s.rows[r]))
		for j, v := range s.rows[r] {
			f[j] = textnorm.Fold(v)
		}
		s.folded[r] = f
	}
	return s.folded[r][c]
}

// Year reports the reporting year encoded in the sheet name ("2024").
func (s *Sheet) Year() (int, bool) { return SheetYear(s.name) }

// SheetYear parses a four-digit year sheet name.
func SheetYear(name string) (int, bool) {
	name = strings.TrimSpace(name)
	if len(name) != 4 {
		return 0, false
	}
	y, err := strconv.Atoi(name)
	if err != nil || y < 1900 || y > 2999 {
		return 0, false
	}
	return y, true
}

// HasToken reports whether the folded cell contains token (already folded).
func HasToken(g Grid, r, c int, token string) bool {
	l := g.Label(r, c)
	return l != "" && strings.Contains(l, token)
}

// NonEmpty returns the column indices of the non-blank cells in row r.
func NonEmpty(g Grid, r int) []int {
	var cols []int
	for c := 0; c < g.NumCols(); c++ {
		if g.Cell(r, c) != "" {
			cols = append(cols, c)
		}
	}
	return cols
}

// RowLabel joins the folded cells of row r with single spaces.
func RowLabel(g Grid, r int) string {
	var parts []string
	for c := 0; c < g.NumCols(); c++ {
		if l := g.Label(r, c); l != "" {
			parts = append(parts, l)
		}
	}
	return strings.Join(parts, " ")
}

// Workbook is the set of sheets loaded from one file, in file order.
type Workbook struct {
	Path   string
	Sheets []*Sheet
}

// Sheet looks a sheet up by exact name.
func (w *Workbook) Sheet(name string) (*Sheet, bool) {
	for _, s := range w.Sheets {
		if s.name == name {
			return s, true
		}
	}
	return nil, false
}
