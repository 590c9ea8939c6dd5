package layout

import (
	"sort"
	"strconv"
	"strings"

	"bpmastats/internal/grid"
	"bpmastats/internal/textnorm"
)

// Field names a semantic column.
type Field string

const (
	FieldLabel          Field = "label"
	FieldCommonName     Field = "common_name"
	FieldScientificName Field = "scientific_name"
	FieldOrder          Field = "order"
	FieldRegistration   Field = "registration"
	FieldYear           Field = "year"
	FieldProcess        Field = "process"
)

// MonthColumn binds a column to a calendar month.
type MonthColumn struct {
	Col   int
	Month int
}

// SpanColumns is the start/end column pair of one parcel.
type SpanColumns struct {
	Parcel int
	Start  int
	End    int
}

// ColumnMap resolves semantic fields to column indices for one section. It is
// built once by a mapper and never mutated afterwards; accessors return copies.
type ColumnMap struct {
	fields map[Field][]int
	months []MonthColumn
	spans  []SpanColumns
}

// Column returns the first column bound to f.
func (m ColumnMap) Column(f Field) (int, bool) {
	cols := m.fields[f]
	if len(cols) == 0 {
		return -1, false
	}
	return cols[0], true
}

// Columns returns every column bound to f.
func (m ColumnMap) Columns(f Field) []int {
	return append([]int(nil), m.fields[f]...)
}

// Months returns the month columns in ascending column order.
func (m ColumnMap) Months() []MonthColumn {
	return append([]MonthColumn(nil), m.months...)
}

// Spans returns the parcel date pairs in ascending parcel order.
func (m ColumnMap) Spans() []SpanColumns {
	return append([]SpanColumns(nil), m.spans...)
}

// KeyColumn is the column whose blank value ends a data block.
func (m ColumnMap) KeyColumn() int {
	for _, f := range []Field{FieldCommonName, FieldLabel, FieldRegistration} {
		if c, ok := m.Column(f); ok {
			return c
		}
	}
	return 0
}

type mapBuilder struct{ m ColumnMap }

func newMapBuilder() *mapBuilder {
	return &mapBuilder{m: ColumnMap{fields: map[Field][]int{}}}
}

func (b *mapBuilder) bind(f Field, col int) {
	if col >= 0 {
		b.m.fields[f] = append(b.m.fields[f], col)
	}
}

func (b *mapBuilder) build() ColumnMap {
	sort.Slice(b.m.months, func(i, j int) bool { return b.m.months[i].Col < b.m.months[j].Col })
	sort.Slice(b.m.spans, func(i, j int) bool { return b.m.spans[i].Parcel < b.m.spans[j].Parcel })
	return b.m
}

// monthColumns returns the month-labelled cells of row r within [lo, hi].
func monthColumns(g grid.Grid, r, lo, hi int) []MonthColumn {
	if lo < 0 {
		lo = 0
	}
	var out []MonthColumn
	for c := lo; c <= hi && c < g.NumCols(); c++ {
		if m, ok := textnorm.Month(g.Cell(r, c)); ok {
			out = append(out, MonthColumn{Col: c, Month: m})
		}
	}
	return out
}

// spanTokenColumns returns the first start-token and end-token columns in
// [lo, hi], or -1 when absent. A cell is tested for "start" first.
func spanTokenColumns(g grid.Grid, r, lo, hi int) (start, end int) {
	start, end = -1, -1
	for c := lo; c <= hi && c < g.NumCols(); c++ {
		l := g.Label(r, c)
		if l == "" {
			continue
		}
		switch {
		case isSpanStart(l):
			if start < 0 {
				start = c
			}
		case isSpanEnd(l):
			if end < 0 {
				end = c
			}
		}
	}
	return start, end
}

func findColumn(g grid.Grid, r int, match func(label string) bool) int {
	for c := 0; c < g.NumCols(); c++ {
		if l := g.Label(r, c); l != "" && match(l) {
			return c
		}
	}
	return -1
}

// MapIndicatorColumns maps an indicator header row. The label column is the
// "NATUREZA" cell (or the first filled cell). Month labels are taken from the
// header row itself or, failing that, from the nearest row within window rows
// below, then above. The returned row is the one that carried the months.
func MapIndicatorColumns(g grid.Grid, header, window int) (ColumnMap, int, error) {
	b := newMapBuilder()
	labelCol := findColumn(g, header, func(l string) bool { return strings.Contains(l, "NATUREZA") })
	if labelCol < 0 {
		if cols := grid.NonEmpty(g, header); len(cols) > 0 {
			labelCol = cols[0]
		}
	}
	b.bind(FieldLabel, labelCol)

	sub := -1
	for _, r := range windowRows(header, window, g.NumRows()) {
		if ms := monthColumns(g, r, labelCol+1, g.NumCols()-1); len(ms) > 0 {
			b.m.months = ms
			sub = r
			break
		}
	}
	if sub < 0 {
		return ColumnMap{}, -1, &MappingFailure{Sheet: g.Name(), Row: header, Kind: SectionIndicator, Reason: "no month columns"}
	}
	return b.build(), sub, nil
}

// MapRescueColumns maps a rescue header row. The first two filled cells are
// the common and scientific name. Months are read from the row right above the
// header within [colFrom, colTo], falling back to the header row itself.
func MapRescueColumns(g grid.Grid, header, colFrom, colTo int) (ColumnMap, int, error) {
	cols := grid.NonEmpty(g, header)
	if len(cols) < 2 {
		return ColumnMap{}, -1, &MappingFailure{Sheet: g.Name(), Row: header, Kind: SectionRescue, Reason: "header has fewer than two labels"}
	}
	b := newMapBuilder()
	b.bind(FieldCommonName, cols[0])
	b.bind(FieldScientificName, cols[1])
	b.bind(FieldOrder, findColumn(g, header, func(l string) bool { return l == "ORDEM" }))

	sub := -1
	for _, r := range []int{header - 1, header} {
		if r < 0 {
			continue
		}
		if ms := monthColumns(g, r, colFrom, colTo); len(ms) > 0 {
			b.m.months = ms
			sub = r
			break
		}
	}
	if sub < 0 {
		return ColumnMap{}, -1, &MappingFailure{Sheet: g.Name(), Row: header, Kind: SectionRescue, Reason: "no month columns above or on the header"}
	}
	return b.build(), sub, nil
}

// FindSpanSubHeader looks below a roster header, within window rows, for the
// row carrying INI/TER labels. It returns -1 when there is none.
func FindSpanSubHeader(g grid.Grid, header, window int) int {
	for r := header + 1; r <= header+window && r < g.NumRows(); r++ {
		if s, e := spanTokenColumns(g, r, 0, g.NumCols()-1); s >= 0 || e >= 0 {
			return r
		}
	}
	return -1
}

// MapSpanColumns maps a roster header and its date sub-header (sub may be -1).
// Date pairs are searched between successive PARCELA label columns; without
// parcel labels a single pair is taken from the sub-header (or header) row.
func MapSpanColumns(g grid.Grid, header, sub int) (ColumnMap, error) {
	b := newMapBuilder()
	b.bind(FieldRegistration, registrationColumn(g, header, grid.NonEmpty(g, header)))
	b.bind(FieldYear, findColumn(g, header, func(l string) bool { return l == "ANO" }))
	b.bind(FieldProcess, findColumn(g, header, func(l string) bool { return strings.Contains(l, "SEI") }))

	type parcelLabel struct{ num, col int }
	var parcels []parcelLabel
	for c := 0; c < g.NumCols(); c++ {
		l := g.Label(header, c)
		if !strings.Contains(l, "PARCELA") {
			continue
		}
		parcels = append(parcels, parcelLabel{num: parcelNumber(l, len(parcels)+1), col: c})
	}

	if sub >= 0 {
		for i, p := range parcels {
			hi := g.NumCols() - 1
			if i+1 < len(parcels) {
				hi = parcels[i+1].col - 1
			}
			if s, e := spanTokenColumns(g, sub, p.col, hi); s >= 0 && e >= 0 {
				b.m.spans = append(b.m.spans, SpanColumns{Parcel: p.num, Start: s, End: e})
			}
		}
	}
	if len(b.m.spans) == 0 {
		row := sub
		if row < 0 {
			row = header
		}
		if s, e := spanTokenColumns(g, row, 0, g.NumCols()-1); s >= 0 && e >= 0 {
			b.m.spans = append(b.m.spans, SpanColumns{Parcel: 1, Start: s, End: e})
		}
	}
	if len(b.m.spans) == 0 {
		return ColumnMap{}, &MappingFailure{Sheet: g.Name(), Row: header, Kind: SectionRoster, Reason: "no start/end date columns"}
	}
	return b.build(), nil
}

// parcelNumber extracts the ordinal of a "1ª PARCELA" style label, falling
// back to the label's position.
func parcelNumber(label string, fallback int) int {
	for _, tok := range strings.Fields(label) {
		digits := strings.TrimFunc(tok, func(r rune) bool { return r < '0' || r > '9' })
		if digits == "" {
			continue
		}
		if n, err := strconv.Atoi(digits); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

// windowRows lists the header row, then up to window rows below, then up to
// window rows above, clipped to the grid.
func windowRows(header, window, nrows int) []int {
	rows := []int{header}
	for r := header + 1; r <= header+window && r < nrows; r++ {
		rows = append(rows, r)
	}
	for r := header - 1; r >= header-window && r >= 0; r-- {
		rows = append(rows, r)
	}
	return rows
}
