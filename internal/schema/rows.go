package schema

import (
	"sort"

	"bpmastats/internal/extract"
	"bpmastats/internal/merge"
	"bpmastats/internal/sqlgen"
	"bpmastats/internal/textnorm"
)

// SpeciesRef supplies the id_especie_fauna value of a rescue row: a resolved
// id, nil when unmatched, or an sqlgen.Raw expression the store evaluates.
type SpeciesRef func(extract.RescueRecord) any

// Periods lists every month referenced by indicator or rescue facts, in
// ascending order.
func Periods(recs *merge.Records) []extract.Period {
	seen := make(map[int]extract.Period)
	for _, r := range recs.Indicators.Items() {
		seen[r.Period.Key()] = r.Period
	}
	for _, r := range recs.Rescues.Items() {
		seen[r.Period.Key()] = r.Period
	}
	out := make([]extract.Period, 0, len(seen))
	for _, p := range seen {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// TempoRows matches Model.Tempo.
func TempoRows(periods []extract.Period) []sqlgen.Row {
	rows := make([]sqlgen.Row, 0, len(periods))
	for _, p := range periods {
		rows = append(rows, sqlgen.Row{p.Key(), p.Year, p.Month, textnorm.MonthAbbrev(p.Month), p.Start()})
	}
	return rows
}

// IndicadorRows matches Model.Indicador: one row per slug, named after the
// latest label seen for it.
func IndicadorRows(recs *merge.Records) []sqlgen.Row {
	names := merge.New[string, string]()
	for _, r := range recs.Indicators.Items() {
		if slug := textnorm.Slug(r.Label); slug != "" {
			names.Put(slug, r.Label)
		}
	}
	rows := make([]sqlgen.Row, 0, names.Len())
	for _, slug := range names.Keys() {
		label, _ := names.Get(slug)
		rows = append(rows, sqlgen.Row{slug, label, Category(label)})
	}
	return rows
}

// IndicadorFactRows matches Model.IndicadorFact.
func IndicadorFactRows(recs *merge.Records) []sqlgen.Row {
	items := recs.Indicators.Items()
	rows := make([]sqlgen.Row, 0, len(items))
	for _, r := range items {
		rows = append(rows, sqlgen.Row{r.Period.Key(), textnorm.Slug(r.Label), r.Quantity})
	}
	return rows
}

// ResgateFactRows matches Model.ResgateFact. A record without a scientific
// name is stored under its common name.
func ResgateFactRows(recs *merge.Records, species SpeciesRef) []sqlgen.Row {
	items := recs.Rescues.Items()
	rows := make([]sqlgen.Row, 0, len(items))
	for _, r := range items {
		sci := textnorm.Clean(r.ScientificName)
		if sci == "" {
			// nome_cientifico then holds the common name: it is part of the
			// conflict key and must not be NULL.
			sci = textnorm.Clean(r.CommonName)
		}
		var ref any
		if species != nil {
			ref = species(r)
		}
		rows = append(rows, sqlgen.Row{r.Period.Key(), ref, sci, nullable(r.CommonName), r.Quantity})
	}
	return rows
}

// FeriasFactRows matches Model.FeriasFact.
func FeriasFactRows(recs *merge.Records) []sqlgen.Row {
	items := recs.Spans.Items()
	rows := make([]sqlgen.Row, 0, len(items))
	for _, s := range items {
		rows = append(rows, sqlgen.Row{
			textnorm.Clean(s.Registration), s.Year, s.Parcel, s.Start, s.End, s.Days, nullable(s.Process),
		})
	}
	return rows
}

func nullable(s string) any {
	if s = textnorm.Clean(s); s == "" {
		return nil
	}
	return s
}
