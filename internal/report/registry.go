package report

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"facility-usage-backend/internal/errs"
	"facility-usage-backend/internal/metrics"
)

// Generator produces one type of report.
type Generator interface {
	Name() string
	Generate(ctx context.Context, params Params) (*Table, error)
}

// Registry selects a Generator by report name.
type Registry struct {
	generators map[string]Generator
}

// NewRegistry registers the given generators.
func NewRegistry(generators ...Generator) *Registry {
	r := &Registry{generators: make(map[string]Generator, len(generators))}
	for _, g := range generators {
		r.generators[g.Name()] = g
	}
	return r
}

// NewDefaultRegistry registers every report type the backend offers.
func NewDefaultRegistry(deps Deps) *Registry {
	return NewRegistry(NewFacilityUsage(deps), NewMaxUtilization(deps))
}

// Names lists the registered report names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.generators))
	for name := range r.generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run is one report generation.
type Run struct {
	ID    string
	Table *Table
}

// Generate runs the named report, logging and recording metrics for the run.
func (r *Registry) Generate(ctx context.Context, name string, params Params) (*Run, error) {
	g, ok := r.generators[name]
	if !ok {
		return nil, errs.NewNotFound("unknown report %q", name)
	}

	runID := uuid.NewString()
	logger := log.WithFields(log.Fields{"run_id": runID, "report": name})
	logger.WithFields(log.Fields{
		"start":    params.StartDate.String(),
		"end":      params.EndDate.String(),
		"interval": params.IntervalMinutes,
	}).Info("generating report")

	start := time.Now()
	table, err := g.Generate(ctx, params)
	elapsed := time.Since(start)
	metrics.ReportDurationSeconds.WithLabelValues(name).Observe(elapsed.Seconds())

	if err != nil {
		metrics.ReportsTotal.WithLabelValues(name, outcome(err)).Inc()
		logger.WithError(err).WithField("elapsed", elapsed).Error("failed to generate report")
		return nil, err
	}

	metrics.ReportsTotal.WithLabelValues(name, "ok").Inc()
	metrics.ReportRows.Observe(float64(len(table.Rows)))
	logger.WithFields(log.Fields{"rows": len(table.Rows), "elapsed": elapsed}).Info("report generated")
	return &Run{ID: runID, Table: table}, nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, errs.ErrInvalidParameter):
		return "invalid"
	case errors.Is(err, errs.ErrUpstreamUnavailable):
		return "upstream"
	default:
		return "error"
	}
}
