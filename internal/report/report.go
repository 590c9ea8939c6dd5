// Package report summarizes a run: record totals, monthly statistics per
// year and the most rescued species. It is logged at the end of a run and
// stored as report.json.
package report

import (
	"encoding/json"
	"log"
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"bpmastats/internal/extract"
	"bpmastats/internal/merge"
	"bpmastats/internal/textnorm"
)

// FileName is the artifact name of the report.
const FileName = "report.json"

// DefaultTop is the number of species listed when none is configured.
const DefaultTop = 10

// Totals counts records and run outcomes. The record counts are filled by
// Summarize; the caller fills the rest.
type Totals struct {
	Indicators  int `json:"indicators"`
	Rescues     int `json:"rescues"`
	Spans       int `json:"spans"`
	Overwrites  int `json:"overwrites"`
	Dropped     int `json:"dropped"`
	Sheets      int `json:"sheets"`
	Sections    int `json:"sections"`
	Issues      int `json:"issues"`
	Statements  int `json:"statements"`
	Unmatched   int `json:"unmatched_species"`
	WriteErrors int `json:"write_errors"`
}

// YearStats describes the monthly totals of one year: the sum over all
// months with data, and the mean, median and max of a month.
type YearStats struct {
	Year   int     `json:"year"`
	Months int     `json:"months"`
	Sum    float64 `json:"sum"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
}

// SpeciesCount is a species' rescued quantity across every period.
type SpeciesCount struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Months   int    `json:"months"`
}

// Report is the run summary.
type Report struct {
	RunID      string         `json:"run_id"`
	Source     string         `json:"source"`
	Generated  time.Time      `json:"generated"`
	Totals     Totals         `json:"totals"`
	Indicators []YearStats    `json:"indicators_by_year"`
	Rescues    []YearStats    `json:"rescues_by_year"`
	TopSpecies []SpeciesCount `json:"top_species"`
}

// Summarize computes the record-derived parts of a Report. top <= 0 means
// DefaultTop.
func Summarize(recs *merge.Records, top int) (Report, error) {
	if top <= 0 {
		top = DefaultTop
	}
	rep := Report{Totals: Totals{
		Indicators: recs.Indicators.Len(),
		Rescues:    recs.Rescues.Len(),
		Spans:      recs.Spans.Len(),
		Overwrites: recs.Overwrites(),
		Dropped:    recs.Dropped,
	}}

	ind := newMonthly()
	for _, r := range recs.Indicators.Items() {
		ind.add(r.Period, r.Quantity)
	}
	resc := newMonthly()
	species := map[string]*SpeciesCount{}
	var order []string
	for _, r := range recs.Rescues.Items() {
		resc.add(r.Period, r.Quantity)

		name := textnorm.Clean(r.ScientificName)
		if name == "" {
			name = textnorm.Clean(r.CommonName)
		}
		key := textnorm.NameKey(name)
		sc, ok := species[key]
		if !ok {
			sc = &SpeciesCount{Name: name}
			species[key] = sc
			order = append(order, key)
		}
		sc.Quantity += r.Quantity
		sc.Months++
	}

	var err error
	if rep.Indicators, err = ind.years(); err != nil {
		return rep, err
	}
	if rep.Rescues, err = resc.years(); err != nil {
		return rep, err
	}

	counts := make([]SpeciesCount, 0, len(order))
	for _, k := range order {
		counts = append(counts, *species[k])
	}
	sort.SliceStable(counts, func(i, j int) bool {
		if counts[i].Quantity != counts[j].Quantity {
			return counts[i].Quantity > counts[j].Quantity
		}
		return counts[i].Name < counts[j].Name
	})
	if len(counts) > top {
		counts = counts[:top]
	}
	rep.TopSpecies = counts
	return rep, nil
}

// JSON renders the report indented, with a trailing newline.
func (r Report) JSON() ([]byte, error) {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// Log prints the summary.
func (r Report) Log() {
	t := r.Totals
	log.Printf("report: sheets=%d sections=%d indicators=%d rescues=%d spans=%d overwrites=%d dropped=%d issues=%d",
		t.Sheets, t.Sections, t.Indicators, t.Rescues, t.Spans, t.Overwrites, t.Dropped, t.Issues)
	log.Printf("report: statements=%d unmatched_species=%d write_errors=%d", t.Statements, t.Unmatched, t.WriteErrors)
	for _, y := range r.Indicators {
		log.Printf("report: indicators %d months=%d sum=%.0f mean=%.1f median=%.1f max=%.0f",
			y.Year, y.Months, y.Sum, y.Mean, y.Median, y.Max)
	}
	for _, y := range r.Rescues {
		log.Printf("report: rescues %d months=%d sum=%.0f mean=%.1f median=%.1f max=%.0f",
			y.Year, y.Months, y.Sum, y.Mean, y.Median, y.Max)
	}
	for i, s := range r.TopSpecies {
		log.Printf("report: top species #%d %s quantity=%d months=%d", i+1, s.Name, s.Quantity, s.Months)
	}
}

// monthly accumulates quantities per year and month.
type monthly map[int]map[int]float64

func newMonthly() monthly { return monthly{} }

func (m monthly) add(p extract.Period, q int) {
	if m[p.Year] == nil {
		m[p.Year] = map[int]float64{}
	}
	m[p.Year][p.Month] += float64(q)
}

func (m monthly) years() ([]YearStats, error) {
	years := make([]int, 0, len(m))
	for y := range m {
		years = append(years, y)
	}
	sort.Ints(years)

	out := make([]YearStats, 0, len(years))
	for _, y := range years {
		data := make(stats.Float64Data, 0, len(m[y]))
		for month := 1; month <= 12; month++ {
			if v, ok := m[y][month]; ok {
				data = append(data, v)
			}
		}
		sum, err := stats.Sum(data)
		if err != nil {
			return nil, err
		}
		mean, err := stats.Mean(data)
		if err != nil {
			return nil, err
		}
		median, err := stats.Median(data)
		if err != nil {
			return nil, err
		}
		max, err := stats.Max(data)
		if err != nil {
			return nil, err
		}
		out = append(out, YearStats{Year: y, Months: len(data), Sum: sum, Mean: mean, Median: median, Max: max})
	}
	return out, nil
}
