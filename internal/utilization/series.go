package utilization

import (
	"context"
	"time"
)

// Series gives ordered access to per-key sample histories.
type Series interface {
	// LatestBeforeOrAt returns the most recent sample for key with a timestamp <= t.
	LatestBeforeOrAt(ctx context.Context, key Key, t time.Time) (Sample, bool, error)
	// Between returns the stored samples for key in [start, end], ascending.
	// It never synthesizes boundary samples.
	Between(ctx context.Context, key Key, start, end time.Time) ([]Sample, error)
	// LatestPerKey returns the newest sample of every key that has pricing
	// configured. A nil facilityID means all facilities.
	LatestPerKey(ctx context.Context, facilityID *int64) ([]Sample, error)
}

// Search selects the samples of a report window.
// Start is inclusive, End is exclusive. Empty filters match everything.
type Search struct {
	Start         time.Time
	End           time.Time
	FacilityIDs   []int64
	CapacityTypes []CapacityType
	Usages        []Usage
}

// Matches reports whether s falls inside the search.
func (q Search) Matches(s Sample) bool {
	if s.Timestamp.Before(q.Start) || !s.Timestamp.Before(q.End) {
		return false
	}
	if len(q.FacilityIDs) > 0 && !contains(q.FacilityIDs, s.FacilityID) {
		return false
	}
	if len(q.CapacityTypes) > 0 && !contains(q.CapacityTypes, s.CapacityType) {
		return false
	}
	if len(q.Usages) > 0 && !contains(q.Usages, s.Usage) {
		return false
	}
	return true
}

func contains[T comparable](list []T, v T) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// Iterator is a forward-only cursor over samples ordered by timestamp.
// Close must be called on every exit path.
type Iterator interface {
	Next() bool
	Sample() Sample
	Err() error
	Close() error
}

// Stream opens a time-ordered cursor over the samples matching a search.
type Stream interface {
	FindUtilizations(ctx context.Context, search Search) (Iterator, error)
}

type sliceIterator struct {
	samples []Sample
	pos     int
	closed  bool
}

// NewSliceIterator iterates over samples as given.
func NewSliceIterator(samples []Sample) Iterator {
	return &sliceIterator{samples: samples, pos: -1}
}

func (it *sliceIterator) Next() bool {
	if it.closed || it.pos+1 >= len(it.samples) {
		return false
	}
	it.pos++
	return true
}

func (it *sliceIterator) Sample() Sample {
	return it.samples[it.pos]
}

func (it *sliceIterator) Err() error {
	return nil
}

func (it *sliceIterator) Close() error {
	it.closed = true
	return nil
}

// LatestOnly keeps exactly one sample per key: the newest one. Of samples
// sharing the newest timestamp, the one appearing last in the input wins.
// The result is ordered by first appearance of each key.
func LatestOnly(samples []Sample) []Sample {
	index := make(map[Key]int, len(samples))
	var out []Sample
	for _, s := range samples {
		i, ok := index[s.Key]
		if !ok {
			index[s.Key] = len(out)
			out = append(out, s)
			continue
		}
		if !s.Timestamp.Before(out[i].Timestamp) {
			out[i] = s
		}
	}
	return out
}

// AtInstant returns the state of key at t: the latest sample at or before t,
// re-stamped to t.
func AtInstant(ctx context.Context, series Series, key Key, t time.Time) (Sample, bool, error) {
	s, ok, err := series.LatestBeforeOrAt(ctx, key, t)
	if err != nil || !ok {
		return Sample{}, false, err
	}
	return s.At(t), true, nil
}
