package extract

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"bpmastats/internal/grid"
	"bpmastats/internal/layout"
	"bpmastats/internal/textnorm"
)

// ZeroPolicy decides what happens to cells that coerce to zero.
type ZeroPolicy string

const (
	// ZeroOmit drops zero counts; absence already means zero downstream.
	ZeroOmit ZeroPolicy = "omit"
	// ZeroKeep keeps explicit zeros. Negative values are dropped either way.
	ZeroKeep ZeroPolicy = "keep"
)

// ParseZeroPolicy accepts "", "omit" and "keep".
func ParseZeroPolicy(s string) (ZeroPolicy, error) {
	switch ZeroPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", ZeroOmit:
		return ZeroOmit, nil
	case ZeroKeep:
		return ZeroKeep, nil
	}
	return "", fmt.Errorf("extract: unknown zero policy %q (want omit|keep)", s)
}

func (p ZeroPolicy) keep(q int) bool {
	if p == ZeroKeep {
		return q >= 0
	}
	return q > 0
}

// Options configures an Extractor.
type Options struct {
	Layout layout.Options
	Zero   ZeroPolicy
	// Year is used for sheets whose name carries no year.
	Year    int
	Verbose bool
}

// Result is everything one sheet produced. Issues holds the non-fatal
// problems (skipped sections, ambiguous rows, unreadable cells) in row order.
type Result struct {
	Sheet      string
	Year       int
	Sections   int
	Indicators []IndicatorRecord
	Rescues    []RescueRecord
	Spans      []SpanRecord
	Issues     []error
}

// Records is the number of records of every kind.
func (r *Result) Records() int { return len(r.Indicators) + len(r.Rescues) + len(r.Spans) }

// Extractor walks sheets with a layout.Scanner and collects records.
type Extractor struct {
	opts Options
}

// New returns an Extractor. An empty zero policy means ZeroOmit.
func New(opts Options) *Extractor {
	if opts.Zero == "" {
		opts.Zero = ZeroOmit
	}
	return &Extractor{opts: opts}
}

// Sheet extracts one grid. It fails with ErrNoSections when the scanner finds
// nothing to map; everything else is reported through Result.Issues.
func (e *Extractor) Sheet(g grid.Grid) (*Result, error) {
	res := &Result{Sheet: g.Name(), Year: SheetYear(g.Name(), e.opts.Year)}
	sc := layout.NewScanner(g, e.opts.Layout)

	for {
		ev, ok := sc.Next()
		if !ok {
			break
		}
		switch ev.Kind {
		case layout.EventSection:
			res.Sections++
			if e.opts.Verbose {
				log.Printf("scanner: %s: %s section at row %d (taxon=%s months=%d spans=%d)",
					g.Name(), ev.Section.Kind, ev.Row+1, ev.Section.Taxon,
					len(ev.Section.Columns.Months()), len(ev.Section.Columns.Spans()))
			}
			if ev.Section.Kind != layout.SectionRoster && res.Year == 0 {
				res.Issues = append(res.Issues, &layout.LayoutError{
					Sheet: g.Name(), Row: ev.Row, Reason: "sheet name carries no year; section ignored",
				})
			}
		case layout.EventData:
			e.row(g, ev, res)
		case layout.EventSkipped:
			res.Issues = append(res.Issues, ev.Err)
			if e.opts.Verbose {
				log.Printf("scanner: %s: skipped: %v", g.Name(), ev.Err)
			}
		case layout.EventAmbiguous:
			res.Issues = append(res.Issues, &layout.LayoutError{
				Sheet: g.Name(), Row: ev.Row, Reason: "ambiguous row: " + ev.Class.Reason,
			})
		}
	}

	if res.Sections == 0 {
		return res, fmt.Errorf("sheet %q: %w", g.Name(), ErrNoSections)
	}
	return res, nil
}

func (e *Extractor) row(g grid.Grid, ev layout.Event, res *Result) {
	sec := ev.Section
	switch sec.Kind {
	case layout.SectionIndicator:
		if res.Year > 0 {
			e.indicatorRow(g, ev.Row, sec, res)
		}
	case layout.SectionRescue:
		if res.Year > 0 {
			e.rescueRow(g, ev.Row, sec, res)
		}
	case layout.SectionRoster:
		e.spanRow(g, ev.Row, sec, res)
	}
}

// quantities yields the kept (period, quantity) pairs of a row's month cells.
func (e *Extractor) quantities(g grid.Grid, r int, sec *layout.Section, res *Result, fn func(Period, int)) {
	for _, mc := range sec.Columns.Months() {
		raw := g.Cell(r, mc.Col)
		if raw == "" {
			continue
		}
		q, err := CoerceQuantity(raw)
		if err != nil {
			res.Issues = append(res.Issues, &ValueCoercionError{
				Sheet: g.Name(), Row: r, Col: mc.Col, Value: raw, Reason: err.Error(),
			})
			continue
		}
		if !e.opts.Zero.keep(q) {
			continue
		}
		p, err := NewPeriod(res.Year, mc.Month)
		if err != nil {
			continue
		}
		fn(p, q)
	}
}

func (e *Extractor) indicatorRow(g grid.Grid, r int, sec *layout.Section, res *Result) {
	col, _ := sec.Columns.Column(layout.FieldLabel)
	label := textnorm.Clean(g.Cell(r, col))
	if label == "" || textnorm.Slug(label) == "" {
		return
	}
	e.quantities(g, r, sec, res, func(p Period, q int) {
		res.Indicators = append(res.Indicators, IndicatorRecord{
			Period: p, Label: label, Quantity: q, Origin: Origin{Sheet: g.Name(), Row: r},
		})
	})
}

func (e *Extractor) rescueRow(g grid.Grid, r int, sec *layout.Section, res *Result) {
	common := cellField(g, r, sec, layout.FieldCommonName)
	sci := cellField(g, r, sec, layout.FieldScientificName)
	if common == "" && sci == "" {
		return
	}
	order := cellField(g, r, sec, layout.FieldOrder)
	e.quantities(g, r, sec, res, func(p Period, q int) {
		res.Rescues = append(res.Rescues, RescueRecord{
			Period:         p,
			Taxon:          sec.Taxon,
			CommonName:     common,
			ScientificName: sci,
			Order:          order,
			Quantity:       q,
			Origin:         Origin{Sheet: g.Name(), Row: r},
		})
	})
}

func (e *Extractor) spanRow(g grid.Grid, r int, sec *layout.Section, res *Result) {
	reg := cellField(g, r, sec, layout.FieldRegistration)
	if reg == "" {
		return
	}
	year := res.Year
	if raw := cellField(g, r, sec, layout.FieldYear); raw != "" {
		if y, err := CoerceQuantity(raw); err == nil && y > 0 {
			year = y
		}
	}
	process := cellField(g, r, sec, layout.FieldProcess)

	for _, sp := range sec.Columns.Spans() {
		rawStart, rawEnd := g.Cell(r, sp.Start), g.Cell(r, sp.End)
		if rawStart == "" || rawEnd == "" {
			// Partial spans are not partial facts.
			continue
		}
		start, err := ParseDate(rawStart, year)
		if err != nil {
			res.Issues = append(res.Issues, &ValueCoercionError{Sheet: g.Name(), Row: r, Col: sp.Start, Value: rawStart, Reason: err.Error()})
			continue
		}
		end, err := ParseDate(rawEnd, year)
		if err != nil {
			res.Issues = append(res.Issues, &ValueCoercionError{Sheet: g.Name(), Row: r, Col: sp.End, Value: rawEnd, Reason: err.Error()})
			continue
		}
		if end.Before(start) {
			res.Issues = append(res.Issues, &ValueCoercionError{Sheet: g.Name(), Row: r, Col: sp.End, Value: rawEnd, Reason: "end date before start date"})
			continue
		}
		y := year
		if y == 0 {
			y = start.Year()
		}
		res.Spans = append(res.Spans, SpanRecord{
			Year:         y,
			Registration: reg,
			Parcel:       sp.Parcel,
			Start:        start,
			End:          end,
			Days:         SpanDays(start, end),
			Process:      process,
			Origin:       Origin{Sheet: g.Name(), Row: r},
		})
	}
}

func cellField(g grid.Grid, r int, sec *layout.Section, f layout.Field) string {
	c, ok := sec.Columns.Column(f)
	if !ok {
		return ""
	}
	return textnorm.Clean(g.Cell(r, c))
}

// SheetYear reads the year from a sheet name: the whole name ("2024") or any
// four-digit token in it ("Resumo 2024"). fallback is returned otherwise.
func SheetYear(name string, fallback int) int {
	if y, ok := grid.SheetYear(name); ok {
		return y
	}
	for _, tok := range strings.Fields(textnorm.Fold(name)) {
		if len(tok) != 4 {
			continue
		}
		if y, err := strconv.Atoi(tok); err == nil {
			if _, ok := grid.SheetYear(tok); ok {
				return y
			}
		}
	}
	return fallback
}
