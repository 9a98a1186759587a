package report

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"facility-usage-backend/internal/clock"
	"facility-usage-backend/internal/errs"
	"facility-usage-backend/internal/facility"
	"facility-usage-backend/internal/metrics"
	"facility-usage-backend/internal/utilization"
)

// Deps are the collaborators a report run reads from.
type Deps struct {
	Samples    utilization.Stream
	Facilities facility.Provider
	History    facility.HistoryProvider
	Clock      clock.Clock
	Location   *time.Location
	// MaxRangeDays limits the requested date range; 0 means unlimited.
	MaxRangeDays int
}

// Result is the outcome of the usage aggregation pass.
type Result struct {
	Rows            []*Row
	Facilities      map[int64]facility.Facility
	IntervalSeconds int
}

// scan feeds every sample of the report window to fn. The cursor is released
// on every exit path, before any error is returned.
func scan(ctx context.Context, deps Deps, params Params, fn func(utilization.Sample)) (err error) {
	it, err := deps.Samples.FindUtilizations(ctx, params.Search(deps.Location))
	if err != nil {
		return errs.NewUpstream("open sample stream", err)
	}
	defer func() {
		if cerr := it.Close(); cerr != nil {
			log.WithError(cerr).Warn("failed to close sample stream")
		}
	}()

	var n int
	for it.Next() {
		fn(it.Sample())
		n++
		if n%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return errs.NewUpstream("scan sample stream", err)
			}
		}
	}
	metrics.SamplesScanned.Add(float64(n))
	if err := it.Err(); err != nil {
		return errs.NewUpstream("read sample stream", err)
	}
	return nil
}

// Build runs the usage aggregation for params: one row per (key, date) seen in
// the stream, statuses overlaid, rows ordered. On any error no rows are returned.
func Build(ctx context.Context, deps Deps, params Params) (*Result, error) {
	if err := params.Validate(deps.MaxRangeDays); err != nil {
		return nil, err
	}

	agg := NewAggregator(params.IntervalSeconds(), deps.Location)
	if err := scan(ctx, deps, params, agg.Add); err != nil {
		return nil, err
	}
	rows := agg.Rows()

	keys := make([]Key, len(rows))
	for i, r := range rows {
		keys[i] = r.Key
	}
	facilities, err := decorate(ctx, deps, params, keys)
	if err != nil {
		return nil, err
	}
	facilities.overlay.Apply(rows)
	SortRows(rows, facilities.byID)

	return &Result{Rows: rows, Facilities: facilities.byID, IntervalSeconds: params.IntervalSeconds()}, nil
}

type decoration struct {
	byID    map[int64]facility.Facility
	overlay *StatusOverlay
}

// decorate loads facility metadata and the status overlay for the facilities of keys.
func decorate(ctx context.Context, deps Deps, params Params, keys []Key) (*decoration, error) {
	ids := facilityIDs(keys)
	byID := map[int64]facility.Facility{}
	if len(ids) > 0 {
		var err error
		byID, err = deps.Facilities.Facilities(ctx, ids)
		if err != nil {
			return nil, errs.NewUpstream("facilities", fmt.Errorf("%v: %w", ids, err))
		}
	}
	overlay, err := LoadStatusOverlay(ctx, deps.History, byID, ids, params.StartDate, params.EndDate)
	if err != nil {
		return nil, err
	}
	return &decoration{byID: byID, overlay: overlay}, nil
}
