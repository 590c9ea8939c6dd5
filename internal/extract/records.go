// Package extract turns scanner events into typed records: monthly indicator
// counts, per-species rescue counts and leave-roster spans.
package extract

import (
	"fmt"
	"time"

	"bpmastats/internal/layout"
)

// Period is a calendar month.
type Period struct {
	Year  int
	Month int
}

// NewPeriod validates month in [1,12] and a positive year.
func NewPeriod(year, month int) (Period, error) {
	if month < 1 || month > 12 {
		return Period{}, fmt.Errorf("extract: month %d out of range", month)
	}
	if year <= 0 {
		return Period{}, fmt.Errorf("extract: year %d out of range", year)
	}
	return Period{Year: year, Month: month}, nil
}

// Key is the time-dimension id, AAAAMM.
func (p Period) Key() int { return p.Year*100 + p.Month }

// Start is the first day of the month, UTC.
func (p Period) Start() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
}

func (p Period) String() string { return fmt.Sprintf("%04d-%02d", p.Year, p.Month) }

// Origin points back at the cell row a record came from.
type Origin struct {
	Sheet string
	Row   int
}

// IndicatorRecord is one monthly count of an administrative indicator.
type IndicatorRecord struct {
	Period   Period
	Label    string
	Quantity int
	Origin   Origin
}

// RescueRecord is one monthly rescue count for a species.
type RescueRecord struct {
	Period         Period
	Taxon          layout.Taxon
	CommonName     string
	ScientificName string
	Order          string
	Quantity       int
	Origin         Origin
}

// SpanRecord is one leave parcel of a roster row.
type SpanRecord struct {
	Year         int
	Registration string
	Parcel       int
	Start        time.Time
	End          time.Time
	Days         int
	Process      string
	Origin       Origin
}
