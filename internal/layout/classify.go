package layout

import (
	"fmt"
	"strings"

	"bpmastats/internal/grid"
	"bpmastats/internal/textnorm"
)

var taxonKeywords = map[string]Taxon{
	"AVES":      TaxonBird,
	"MAMIFEROS": TaxonMammal,
	"MAMIFERO":  TaxonMammal,
	"REPTEIS":   TaxonReptile,
	"REPTIL":    TaxonReptile,
}

// continuationKeywords end a data block when they show up in a row whose key
// cell is blank.
var continuationKeywords = []string{"AVES", "MAMIFEROS", "REPTEIS", "NOME POPULAR", "RESGATE"}

// headerLabels are key-cell values that re-announce a header inside data.
var headerLabels = map[string]struct{}{
	"NOME POPULAR":    {},
	"NOME CIENTIFICO": {},
	"ORDEM":           {},
	"NATUREZA":        {},
	"MAT":             {},
	"MATRICULA":       {},
}

const maxMarkerCells = 2

// Classify inspects row r in isolation. Rows with content that match no
// structural pattern come back as RowData; the scanner decides whether that
// means data or noise from its state.
func Classify(g grid.Grid, r int) Classification {
	cols := grid.NonEmpty(g, r)
	if len(cols) == 0 {
		return Classification{Kind: RowNoise}
	}
	if kind, ok := headerKind(g, r, cols); ok {
		return Classification{Kind: RowHeader, Section: kind}
	}

	taxon := taxonOf(g, r, cols)
	months := len(monthColumns(g, r, 0, g.NumCols()-1))
	if taxon != TaxonUnknown {
		switch {
		case len(cols) <= maxMarkerCells:
			return Classification{Kind: RowSectionMarker, Taxon: taxon}
		case months > 0:
			return Classification{Kind: RowSubHeader, Taxon: taxon}
		default:
			return Classification{
				Kind:   RowAmbiguous,
				Taxon:  taxon,
				Reason: fmt.Sprintf("taxon keyword %s in a row with %d filled cells", taxon, len(cols)),
			}
		}
	}
	if months >= 2 {
		return Classification{Kind: RowSubHeader}
	}
	if start, end := spanTokenColumns(g, r, 0, g.NumCols()-1); start >= 0 && end >= 0 {
		return Classification{Kind: RowSubHeader}
	}
	return Classification{Kind: RowData}
}

func headerKind(g grid.Grid, r int, cols []int) (SectionKind, bool) {
	if len(cols) >= 2 &&
		strings.Contains(g.Label(r, cols[0]), "NOME POPULAR") &&
		strings.Contains(g.Label(r, cols[1]), "CIENT") {
		return SectionRescue, true
	}
	row := grid.RowLabel(g, r)
	if strings.Contains(row, "NATUREZA") && strings.Contains(row, "MESES") {
		return SectionIndicator, true
	}
	if isRosterHeader(g, r, cols) {
		return SectionRoster, true
	}
	return SectionUnknown, false
}

// isRosterHeader requires the registration label in the first filled cell
// and date columns to go with it: PARCELA labels on the row, or an INI/TER
// pair on the row or within DefaultWindow rows below. Indicator labels such
// as "Mat. apreendido" fail the second test.
func isRosterHeader(g grid.Grid, r int, cols []int) bool {
	if !isRegistrationLabel(g.Label(r, cols[0])) {
		return false
	}
	for _, c := range cols {
		if strings.Contains(g.Label(r, c), "PARCELA") {
			return true
		}
	}
	for sub := r; sub <= r+DefaultWindow && sub < g.NumRows(); sub++ {
		if s, e := spanTokenColumns(g, sub, 0, g.NumCols()-1); s >= 0 && e >= 0 {
			return true
		}
	}
	return false
}

func isRegistrationLabel(l string) bool {
	first, _, _ := strings.Cut(l, " ")
	return first == "MAT" || strings.HasPrefix(first, "MATRIC")
}

// registrationColumn finds the "MAT" / "MATRÍCULA" header cell of a roster.
func registrationColumn(g grid.Grid, r int, cols []int) int {
	for _, c := range cols {
		if isRegistrationLabel(g.Label(r, c)) {
			return c
		}
	}
	return -1
}

func taxonOf(g grid.Grid, r int, cols []int) Taxon {
	for _, c := range cols {
		for _, tok := range strings.Fields(g.Label(r, c)) {
			if t, ok := taxonKeywords[tok]; ok {
				return t
			}
		}
	}
	return TaxonUnknown
}

func hasContinuationKeyword(g grid.Grid, r int) bool {
	row := grid.RowLabel(g, r)
	for _, kw := range continuationKeywords {
		if strings.Contains(row, kw) {
			return true
		}
	}
	return false
}

func isHeaderLabel(label string) bool {
	_, ok := headerLabels[label]
	return ok
}

// isSpanStart / isSpanEnd recognize INI*/START* and TER*/END* sub-header cells.
func isSpanStart(label string) bool {
	return strings.Contains(label, "INICIO") ||
		textnorm.HasPrefixToken(label, "INI") ||
		textnorm.HasPrefixToken(label, "START")
}

func isSpanEnd(label string) bool {
	return strings.Contains(label, "TERMINO") ||
		textnorm.HasPrefixToken(label, "TER") ||
		textnorm.HasPrefixToken(label, "END")
}
