package facility

import (
	"context"

	"facility-usage-backend/internal/utilization"
)

// Static serves fixed facility metadata. It has no status history, so every
// date resolves to the facility's static status.
type Static map[int64]Facility

func (s Static) Facilities(_ context.Context, ids []int64) (map[int64]Facility, error) {
	out := make(map[int64]Facility, len(ids))
	for _, id := range ids {
		if f, ok := s[id]; ok {
			out[id] = f
		}
	}
	return out, nil
}

func (s Static) StatusHistory(context.Context, int64, utilization.Date, utilization.Date) (map[utilization.Date]Status, error) {
	return nil, nil
}

// Priced reports whether the key's facility offers the key's combination.
func (s Static) Priced(k utilization.Key) bool {
	f, ok := s[k.FacilityID]
	return ok && f.Offers(k.CapacityType, k.Usage)
}
