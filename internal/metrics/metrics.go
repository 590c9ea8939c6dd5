// Package metrics records run metrics through a pluggable global Backend.
// The default backend is a no-op, so every helper is safe to call when no
// metrics system is configured. Concrete systems live in subpackages
// (prompush, datadog).
package metrics

import "time"

// Metric names emitted by the helpers below.
const (
	StepTotal       = "bpma_step_total"
	StepDuration    = "bpma_step_duration_seconds"
	RecordsTotal    = "bpma_records_total"
	BatchesTotal    = "bpma_batches_total"
	WriteErrorTotal = "bpma_write_errors_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a duration-style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep counts one execution of a run step (open, extract, merge,
// resolve, render, files, storage, rest) and observes its duration.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRecords counts records of one kind: "indicator", "rescue", "span",
// "dropped", "overwritten", "issue" or "unmatched_species".
func RecordRecords(job, kind string, n int) {
	if n <= 0 {
		return
	}
	backend.IncCounter(RecordsTotal, float64(n), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordBatches counts rendered upsert statements.
func RecordBatches(job string, n int) {
	if n <= 0 {
		return
	}
	backend.IncCounter(BatchesTotal, float64(n), Labels{
		"job": job,
	})
}

// RecordWriteErrors counts natural keys that failed to load into table.
func RecordWriteErrors(job, table string, n int) {
	if n <= 0 {
		return
	}
	backend.IncCounter(WriteErrorTotal, float64(n), Labels{
		"job":   job,
		"table": table,
	})
}
