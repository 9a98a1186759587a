package utilization

import (
	"context"
	"fmt"
	"time"

	"facility-usage-backend/internal/errs"
)

// Resample returns one sample per grid instant start, start+resolution, ...
// up to end, plus end itself when it is off the grid. Each carries the value
// of the latest sample at or before its instant and is stamped with that
// instant. Instants before the first known sample are omitted.
func Resample(ctx context.Context, series Series, key Key, start, end time.Time, resolution time.Duration) ([]Sample, error) {
	if resolution <= 0 {
		return nil, errs.NewInvalidParameter("resolution must be positive, got %s", resolution)
	}
	if end.Before(start) {
		return nil, errs.NewInvalidParameter("start %s is after end %s", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	carry, known, err := series.LatestBeforeOrAt(ctx, key, start)
	if err != nil {
		return nil, errs.NewUpstream("latest before start", fmt.Errorf("%s: %w", key, err))
	}
	window, err := series.Between(ctx, key, start, end)
	if err != nil {
		return nil, errs.NewUpstream("window", fmt.Errorf("%s: %w", key, err))
	}
	if !known && len(window) == 0 {
		return nil, nil
	}

	var out []Sample
	next := 0
	emit := func(t time.Time) {
		for next < len(window) && !window[next].Timestamp.After(t) {
			carry, known = window[next], true
			next++
		}
		if known {
			out = append(out, carry.At(t))
		}
	}

	last := start
	for t := start; !t.After(end); t = t.Add(resolution) {
		emit(t)
		last = t
	}
	if !last.Equal(end) {
		emit(end)
	}
	return out, nil
}
