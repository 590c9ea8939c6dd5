package merge

import (
	"bpmastats/internal/extract"
	"bpmastats/internal/textnorm"
)

// IndicatorKey is (period, indicator slug).
type IndicatorKey struct {
	Period int
	Slug   string
}

// RescueKey is (period, normalized scientific name), or the normalized common
// name when the scientific name is missing.
type RescueKey struct {
	Period int
	Name   string
}

// SpanKey is (registration, year, parcel).
type SpanKey struct {
	Registration string
	Year         int
	Parcel       int
}

func IndicatorKeyOf(r extract.IndicatorRecord) (IndicatorKey, bool) {
	slug := textnorm.Slug(r.Label)
	if slug == "" {
		return IndicatorKey{}, false
	}
	return IndicatorKey{Period: r.Period.Key(), Slug: slug}, true
}

func RescueKeyOf(r extract.RescueRecord) (RescueKey, bool) {
	name := textnorm.NameKey(r.ScientificName)
	if name == "" {
		name = textnorm.NameKey(r.CommonName)
	}
	if name == "" {
		return RescueKey{}, false
	}
	return RescueKey{Period: r.Period.Key(), Name: name}, true
}

func SpanKeyOf(r extract.SpanRecord) (SpanKey, bool) {
	reg := textnorm.NameKey(r.Registration)
	if reg == "" || r.Year == 0 {
		return SpanKey{}, false
	}
	return SpanKey{Registration: reg, Year: r.Year, Parcel: r.Parcel}, true
}

// Records is the merged record set of a run, the single input of every
// writer.
type Records struct {
	Indicators *Set[IndicatorKey, extract.IndicatorRecord]
	Rescues    *Set[RescueKey, extract.RescueRecord]
	Spans      *Set[SpanKey, extract.SpanRecord]
	// Dropped counts records with no usable key.
	Dropped int

	sheetOverwrites int
}

func NewRecords() *Records {
	return &Records{
		Indicators: New[IndicatorKey, extract.IndicatorRecord](),
		Rescues:    New[RescueKey, extract.RescueRecord](),
		Spans:      New[SpanKey, extract.SpanRecord](),
	}
}

// Add folds one sheet's records in, in extraction order.
func (m *Records) Add(res *extract.Result) {
	ind, d1 := Collapse(res.Indicators, IndicatorKeyOf)
	resc, d2 := Collapse(res.Rescues, RescueKeyOf)
	spans, d3 := Collapse(res.Spans, SpanKeyOf)
	m.Indicators.Merge(ind)
	m.Rescues.Merge(resc)
	m.Spans.Merge(spans)
	m.Dropped += d1 + d2 + d3
	m.sheetOverwrites += ind.Overwrites() + resc.Overwrites() + spans.Overwrites()
}

// Len is the number of distinct keys across all kinds.
func (m *Records) Len() int {
	return m.Indicators.Len() + m.Rescues.Len() + m.Spans.Len()
}

// Overwrites is the number of records replaced by a later duplicate.
func (m *Records) Overwrites() int {
	return m.sheetOverwrites + m.Indicators.Overwrites() + m.Rescues.Overwrites() + m.Spans.Overwrites()
}
