// Package layout infers structure inside loosely formatted statistics sheets.
//
// A Scanner walks a grid top to bottom and classifies rows as section markers,
// header rows, sub-header rows, data rows, noise or ambiguous rows. When a
// header is found the Column Mapper resolves which columns carry months,
// names or date pairs, and the scanner then emits the section's data rows.
//
// Every decision looks at the current row plus a bounded window (Options.Window,
// 12 rows by default); the scanner never backtracks over the whole grid.
package layout

import "fmt"

// SectionKind identifies the table shape a header row introduces.
type SectionKind int

const (
	SectionUnknown SectionKind = iota
	// SectionIndicator is the monthly indicator table ("NATUREZA" / "MESES").
	SectionIndicator
	// SectionRescue is a per-species rescue table ("NOME POPULAR" / "NOME CIENTÍFICO").
	SectionRescue
	// SectionRoster is a leave roster with INI/TER date pairs per parcel.
	SectionRoster
)

func (k SectionKind) String() string {
	switch k {
	case SectionIndicator:
		return "indicator"
	case SectionRescue:
		return "rescue"
	case SectionRoster:
		return "roster"
	default:
		return "unknown"
	}
}

// Taxon is the taxonomic group announced by a section marker.
type Taxon int

const (
	TaxonUnknown Taxon = iota
	TaxonBird
	TaxonMammal
	TaxonReptile
)

func (t Taxon) String() string {
	switch t {
	case TaxonBird:
		return "AVES"
	case TaxonMammal:
		return "MAMIFEROS"
	case TaxonReptile:
		return "REPTEIS"
	default:
		return "unknown"
	}
}

// RowKind is the tagged classification of one row.
type RowKind int

const (
	RowNoise RowKind = iota
	RowSectionMarker
	RowHeader
	RowSubHeader
	RowData
	// RowAmbiguous carries a structural keyword but fails the guards that
	// would make it a marker or header. It is reported, never guessed.
	RowAmbiguous
)

func (k RowKind) String() string {
	switch k {
	case RowSectionMarker:
		return "section-marker"
	case RowHeader:
		return "header"
	case RowSubHeader:
		return "sub-header"
	case RowData:
		return "data"
	case RowAmbiguous:
		return "ambiguous"
	default:
		return "noise"
	}
}

// Classification is the context-free verdict for a single row.
type Classification struct {
	Kind    RowKind
	Taxon   Taxon       // markers, taxon-bearing sub-headers and ambiguous rows
	Section SectionKind // headers
	Reason  string      // ambiguous rows
}

// State is the scanner's position in its state machine.
type State int

const (
	SeekingSection State = iota
	SeekingHeader
	MappingColumns
	EmittingData
	Done
)

func (s State) String() string {
	switch s {
	case SeekingSection:
		return "SEEKING_SECTION"
	case SeekingHeader:
		return "SEEKING_HEADER"
	case MappingColumns:
		return "MAPPING_COLUMNS"
	case EmittingData:
		return "EMITTING_DATA"
	case Done:
		return "DONE"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Section describes one detected table. Row indices are zero-based; -1 means
// the row does not exist for this section.
type Section struct {
	Kind         SectionKind
	Taxon        Taxon
	MarkerRow    int
	HeaderRow    int
	SubHeaderRow int
	Columns      ColumnMap
}

// EventKind tags scanner output.
type EventKind int

const (
	// EventSection opens a section; Event.Section is set.
	EventSection EventKind = iota + 1
	// EventData is one data row of the open section.
	EventData
	// EventSectionEnd closes the open section at Event.Row.
	EventSectionEnd
	// EventSkipped reports a section that could not be used; Event.Err holds a
	// *LayoutError or *MappingFailure.
	EventSkipped
	// EventAmbiguous surfaces a row that matched a keyword but no pattern.
	EventAmbiguous
)

// Event is one unit of scanner output.
type Event struct {
	Kind    EventKind
	Row     int
	Section *Section
	Class   Classification
	Err     error
}

// Options tunes the scanner. Zero values select the defaults.
type Options struct {
	// Window bounds every look-ahead/look-back, default 12 rows.
	Window int
	// MonthColFrom/MonthColTo bound the columns searched for month labels in
	// rescue sections (inclusive). Defaults 3 and 15.
	MonthColFrom int
	MonthColTo   int
	// SkipBlankRows keeps a section open across completely empty rows instead
	// of ending it.
	SkipBlankRows bool
}

const (
	DefaultWindow       = 12
	defaultMonthColFrom = 3
	defaultMonthColTo   = 15
)

func (o Options) withDefaults() Options {
	if o.Window <= 0 {
		o.Window = DefaultWindow
	}
	if o.MonthColFrom <= 0 && o.MonthColTo <= 0 {
		o.MonthColFrom, o.MonthColTo = defaultMonthColFrom, defaultMonthColTo
	}
	if o.MonthColTo < o.MonthColFrom {
		o.MonthColTo = o.MonthColFrom
	}
	return o
}
