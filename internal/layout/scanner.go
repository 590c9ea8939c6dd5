package layout

import (
	"fmt"

	"bpmastats/internal/grid"
)

// Scanner is a lazy, forward-only walk over one grid. Call Next until it
// reports false.
//
//	SEEKING_SECTION -> SEEKING_HEADER -> MAPPING_COLUMNS -> EMITTING_DATA -> SEEKING_SECTION | DONE
type Scanner struct {
	g    grid.Grid
	opts Options

	state State
	row   int

	// Set while SEEKING_HEADER.
	taxon     Taxon
	markerRow int
	deadline  int

	// Set while MAPPING_COLUMNS / EMITTING_DATA.
	header     int
	headerKind SectionKind
	cur        *Section
}

// NewScanner starts a scan of g at row 0.
func NewScanner(g grid.Grid, opts Options) *Scanner {
	return &Scanner{g: g, opts: opts.withDefaults(), state: SeekingSection, markerRow: -1}
}

// State returns the current state.
func (s *Scanner) State() State { return s.state }

// Next advances to the next event. It returns false once the scanner is DONE.
func (s *Scanner) Next() (Event, bool) {
	for {
		switch s.state {
		case Done:
			return Event{}, false

		case SeekingSection:
			if s.row >= s.g.NumRows() {
				s.state = Done
				continue
			}
			r := s.row
			s.row++
			c := Classify(s.g, r)
			switch c.Kind {
			case RowHeader:
				s.beginMapping(r, c.Section, TaxonUnknown, -1)
			case RowSectionMarker:
				s.beginHeaderSearch(r, c.Taxon)
			case RowSubHeader:
				if c.Taxon != TaxonUnknown {
					s.beginHeaderSearch(r, c.Taxon)
				}
			case RowAmbiguous:
				return Event{Kind: EventAmbiguous, Row: r, Class: c}, true
			}

		case SeekingHeader:
			if s.row > s.deadline || s.row >= s.g.NumRows() {
				marker := s.markerRow
				s.state = SeekingSection
				s.row = marker + 1
				s.markerRow = -1
				return Event{
					Kind: EventSkipped,
					Row:  marker,
					Err: &LayoutError{
						Sheet:  s.g.Name(),
						Row:    marker,
						Reason: fmt.Sprintf("no header within %d rows of %s marker", s.opts.Window, s.taxon),
					},
				}, true
			}
			r := s.row
			s.row++
			c := Classify(s.g, r)
			switch c.Kind {
			case RowHeader:
				s.beginMapping(r, c.Section, s.taxon, s.markerRow)
			case RowSectionMarker:
				s.beginHeaderSearch(r, c.Taxon)
			case RowSubHeader:
				// A month row naming another taxon starts that group's search.
				if c.Taxon != TaxonUnknown && c.Taxon != s.taxon {
					s.beginHeaderSearch(r, c.Taxon)
				}
			}

		case MappingColumns:
			sec, dataStart, err := s.mapSection()
			if err != nil {
				s.state = SeekingSection
				s.row = s.header + 1
				return Event{Kind: EventSkipped, Row: s.header, Err: err}, true
			}
			s.cur = sec
			s.state = EmittingData
			s.row = dataStart
			return Event{Kind: EventSection, Row: sec.HeaderRow, Section: sec}, true

		case EmittingData:
			if ev, ok := s.dataStep(); ok {
				return ev, true
			}
		}
	}
}

func (s *Scanner) beginHeaderSearch(marker int, t Taxon) {
	s.state = SeekingHeader
	s.taxon = t
	s.markerRow = marker
	s.deadline = marker + s.opts.Window
}

func (s *Scanner) beginMapping(header int, kind SectionKind, t Taxon, marker int) {
	s.state = MappingColumns
	s.header = header
	s.headerKind = kind
	s.taxon = t
	s.markerRow = marker
}

// mapSection runs the column mapper for the pending header and returns the
// section plus the first data row.
func (s *Scanner) mapSection() (*Section, int, error) {
	sec := &Section{
		Kind:         s.headerKind,
		Taxon:        s.taxon,
		MarkerRow:    s.markerRow,
		HeaderRow:    s.header,
		SubHeaderRow: -1,
	}
	s.markerRow = -1
	s.taxon = TaxonUnknown

	var (
		cm  ColumnMap
		sub int
		err error
	)
	switch s.headerKind {
	case SectionIndicator:
		cm, sub, err = MapIndicatorColumns(s.g, s.header, s.opts.Window)
	case SectionRescue:
		cm, sub, err = MapRescueColumns(s.g, s.header, s.opts.MonthColFrom, s.opts.MonthColTo)
		if err == nil && sec.Taxon == TaxonUnknown && sub >= 0 && sub != s.header {
			if c := Classify(s.g, sub); c.Taxon != TaxonUnknown {
				sec.Taxon = c.Taxon
			}
		}
	case SectionRoster:
		sub = FindSpanSubHeader(s.g, s.header, s.opts.Window)
		cm, err = MapSpanColumns(s.g, s.header, sub)
	default:
		err = &MappingFailure{Sheet: s.g.Name(), Row: s.header, Kind: s.headerKind, Reason: "unknown header kind"}
	}
	if err != nil {
		return nil, 0, err
	}
	sec.Columns = cm
	if sub != s.header {
		sec.SubHeaderRow = sub
	}

	dataStart := s.header + 1
	if sub > s.header {
		dataStart = sub + 1
	}
	return sec, dataStart, nil
}

// dataStep handles one row in EMITTING_DATA. It returns false when the row
// produced no event and scanning should continue.
func (s *Scanner) dataStep() (Event, bool) {
	r := s.row
	end := func(resume int) (Event, bool) {
		sec := s.cur
		s.cur = nil
		s.state = SeekingSection
		s.row = resume
		return Event{Kind: EventSectionEnd, Row: r, Section: sec}, true
	}

	if r >= s.g.NumRows() {
		sec := s.cur
		s.cur = nil
		s.state = Done
		return Event{Kind: EventSectionEnd, Row: r, Section: sec}, true
	}

	c := Classify(s.g, r)
	key := s.g.Label(r, s.cur.Columns.KeyColumn())
	switch {
	case c.Kind == RowHeader && c.Section == s.cur.Kind && isHeaderLabel(key):
		// Repeated header of the section being emitted.
		s.row++
		return Event{}, false
	case c.Kind == RowHeader, c.Kind == RowSectionMarker:
		return end(r)
	case c.Kind == RowSubHeader && c.Taxon != TaxonUnknown:
		return end(r)
	}

	if key == "" {
		if c.Kind == RowNoise && s.opts.SkipBlankRows {
			s.row++
			return Event{}, false
		}
		if hasContinuationKeyword(s.g, r) {
			// Let SEEKING_SECTION look at this row again.
			return end(r)
		}
		return end(r + 1)
	}

	s.row++
	if isHeaderLabel(key) {
		return Event{}, false
	}
	// A filled key cell makes the row data even when a taxon word shows up
	// in it ("Outras aves", "Aves sp."); only SEEKING_SECTION reports
	// ambiguous rows.
	return Event{Kind: EventData, Row: r, Section: s.cur}, true
}
