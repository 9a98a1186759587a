// Package metrics provides Prometheus metrics for report generation and ingestion.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the custom prometheus registry for the backend.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

func init() {
	Registry.MustRegister(collectors.NewGoCollector())
}

// ReportsTotal counts report runs by report name and outcome ("ok", "invalid", "upstream", "error").
var ReportsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "report",
	Name:      "runs_total",
	Help:      "Report runs by report name and outcome",
}, []string{"report", "outcome"})

// ReportDurationSeconds tracks time to generate a report.
var ReportDurationSeconds = factory.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "report",
	Name:      "duration_seconds",
	Help:      "Time taken to generate a report",
	Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
}, []string{"report"})

// ReportRows tracks the number of rows per generated report.
var ReportRows = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "report",
	Name:      "rows",
	Help:      "Rows per generated report",
	Buckets:   []float64{1, 10, 50, 100, 500, 1000, 5000, 10000},
})

// SamplesScanned counts samples consumed from report streams.
var SamplesScanned = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "report",
	Name:      "samples_scanned_total",
	Help:      "Samples read from the sample store while building reports",
})

// IngestedSamples counts samples written by the ingest service.
var IngestedSamples = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "ingest",
	Name:      "samples_total",
	Help:      "Samples stored by the ingest service",
})

// IngestErrors counts failed ingest cycles by stage.
var IngestErrors = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ingest",
	Name:      "errors_total",
	Help:      "Ingest failures by stage",
}, []string{"stage"})
