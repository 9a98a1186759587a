package utilization

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemorySeries is an in-memory Series and Stream. Samples of one key are kept
// sorted by timestamp; equal timestamps keep insertion order.
type MemorySeries struct {
	mu      sync.RWMutex
	byKey   map[Key][]Sample
	priced  func(Key) bool
	ordered []Sample
}

// NewMemorySeries creates an empty series. priced filters LatestPerKey;
// nil accepts every key.
func NewMemorySeries(priced func(Key) bool) *MemorySeries {
	return &MemorySeries{byKey: make(map[Key][]Sample), priced: priced}
}

// Add records samples.
func (m *MemorySeries) Add(samples ...Sample) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range samples {
		list := m.byKey[s.Key]
		// Insert after every sample with timestamp <= s.Timestamp.
		i := sort.Search(len(list), func(i int) bool {
			return list[i].Timestamp.After(s.Timestamp)
		})
		list = append(list, Sample{})
		copy(list[i+1:], list[i:])
		list[i] = s
		m.byKey[s.Key] = list

		j := sort.Search(len(m.ordered), func(i int) bool {
			return m.ordered[i].Timestamp.After(s.Timestamp)
		})
		m.ordered = append(m.ordered, Sample{})
		copy(m.ordered[j+1:], m.ordered[j:])
		m.ordered[j] = s
	}
}

func (m *MemorySeries) LatestBeforeOrAt(_ context.Context, key Key, t time.Time) (Sample, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.byKey[key]
	i := sort.Search(len(list), func(i int) bool {
		return list[i].Timestamp.After(t)
	})
	if i == 0 {
		return Sample{}, false, nil
	}
	return list[i-1], true, nil
}

func (m *MemorySeries) Between(_ context.Context, key Key, start, end time.Time) ([]Sample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.byKey[key]
	lo := sort.Search(len(list), func(i int) bool {
		return !list[i].Timestamp.Before(start)
	})
	hi := sort.Search(len(list), func(i int) bool {
		return list[i].Timestamp.After(end)
	})
	if lo >= hi {
		return nil, nil
	}
	out := make([]Sample, hi-lo)
	copy(out, list[lo:hi])
	return out, nil
}

func (m *MemorySeries) LatestPerKey(_ context.Context, facilityID *int64) ([]Sample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var candidates []Sample
	for key, list := range m.byKey {
		if len(list) == 0 || (facilityID != nil && key.FacilityID != *facilityID) {
			continue
		}
		if m.priced != nil && !m.priced(key) {
			continue
		}
		candidates = append(candidates, list[len(list)-1])
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Key.String() < candidates[j].Key.String()
	})
	return LatestOnly(candidates), nil
}

func (m *MemorySeries) FindUtilizations(_ context.Context, search Search) (Iterator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []Sample
	for _, s := range m.ordered {
		if search.Matches(s) {
			matched = append(matched, s)
		}
	}
	return NewSliceIterator(matched), nil
}
