// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package. A batch run has no scrape endpoint, so the registry is
// pushed once at the end of the run under the job grouping key.
package prompush

import (
	"fmt"

	"bpmastats/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	stepCounter   *prometheus.CounterVec // bpma_step_total{step,status}
	stepDuration  *prometheus.SummaryVec // bpma_step_duration_seconds{step,status}
	recordCounter *prometheus.CounterVec // bpma_records_total{kind}
	batchCounter  prometheus.Counter     // bpma_batches_total
	writeErrors   *prometheus.CounterVec // bpma_write_errors_total{table}
}

// NewBackend constructs a Pushgateway backend. jobName defaults to "bpma".
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "bpma"
	}

	// job is the Pushgateway grouping key, so it is not a metric label.
	b := &Backend{
		gatewayURL: gatewayURL,
		jobName:    jobName,
		reg:        prometheus.NewRegistry(),
		stepCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metrics.StepTotal,
				Help: "Run step executions by step and status.",
			},
			[]string{"step", "status"},
		),
		stepDuration: prometheus.NewSummaryVec(
			prometheus.SummaryOpts{
				Name:       metrics.StepDuration,
				Help:       "Run step duration in seconds by step and status.",
				Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
			},
			[]string{"step", "status"},
		),
		recordCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metrics.RecordsTotal,
				Help: "Records by kind (indicator, rescue, span, dropped, issue, ...).",
			},
			[]string{"kind"},
		),
		batchCounter: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metrics.BatchesTotal,
				Help: "Upsert statements rendered for this job.",
			},
		),
		writeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metrics.WriteErrorTotal,
				Help: "Natural keys that failed to load, by table.",
			},
			[]string{"table"},
		),
	}

	for name, c := range map[string]prometheus.Collector{
		"step counter":        b.stepCounter,
		"step summary":        b.stepDuration,
		"record counter":      b.recordCounter,
		"batch counter":       b.batchCounter,
		"write error counter": b.writeErrors,
	} {
		if err := b.reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
	}
	return b, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StepTotal:
		if b.stepCounter != nil {
			b.stepCounter.WithLabelValues(labels["step"], labels["status"]).Add(delta)
		}
	case metrics.RecordsTotal:
		if b.recordCounter != nil {
			b.recordCounter.WithLabelValues(labels["kind"]).Add(delta)
		}
	case metrics.BatchesTotal:
		if b.batchCounter != nil {
			b.batchCounter.Add(delta)
		}
	case metrics.WriteErrorTotal:
		if b.writeErrors != nil {
			b.writeErrors.WithLabelValues(labels["table"]).Add(delta)
		}
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StepDuration || b.stepDuration == nil {
		return
	}
	b.stepDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
