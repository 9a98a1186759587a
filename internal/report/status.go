package report

import (
	"context"
	"fmt"
	"sort"

	"facility-usage-backend/internal/errs"
	"facility-usage-backend/internal/facility"
	"facility-usage-backend/internal/utilization"
)

// StatusOverlay resolves the effective status of a facility on a date.
type StatusOverlay struct {
	history    map[int64]map[utilization.Date]facility.Status
	facilities map[int64]facility.Facility
}

// LoadStatusOverlay fetches the status history of every facility in ids once.
func LoadStatusOverlay(ctx context.Context, provider facility.HistoryProvider, facilities map[int64]facility.Facility, ids []int64, from, to utilization.Date) (*StatusOverlay, error) {
	overlay := &StatusOverlay{
		history:    make(map[int64]map[utilization.Date]facility.Status, len(ids)),
		facilities: facilities,
	}
	for _, id := range ids {
		if _, done := overlay.history[id]; done {
			continue
		}
		byDay, err := provider.StatusHistory(ctx, id, from, to)
		if err != nil {
			return nil, errs.NewUpstream("status history", fmt.Errorf("facility %d: %w", id, err))
		}
		overlay.history[id] = byDay
	}
	return overlay, nil
}

// EffectiveStatus is the history entry for the date if there is one, else the
// facility's static status. Unknown facilities without history resolve to "".
func (o *StatusOverlay) EffectiveStatus(facilityID int64, date utilization.Date) facility.Status {
	if status, ok := o.history[facilityID][date]; ok {
		return status
	}
	return o.facilities[facilityID].Status
}

// Apply sets the effective status of every row.
func (o *StatusOverlay) Apply(rows []*Row) {
	for _, r := range rows {
		r.EffectiveStatus = o.EffectiveStatus(r.Key.FacilityID, r.Key.Date)
	}
}

// facilityIDs returns the distinct facility ids of keys in ascending order.
func facilityIDs(keys []Key) []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	for _, k := range keys {
		if !seen[k.FacilityID] {
			seen[k.FacilityID] = true
			ids = append(ids, k.FacilityID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
