package report

import (
	"sort"
	"strings"

	"facility-usage-backend/internal/facility"
)

// keyLess orders keys by date, facility name (case-insensitive), capacity
// type and usage. Facility id breaks remaining ties between equally named
// facilities.
func keyLess(a, b Key, facilities map[int64]facility.Facility) bool {
	if a.Date != b.Date {
		return a.Date.Before(b.Date)
	}
	an := strings.ToLower(facilities[a.FacilityID].Name)
	bn := strings.ToLower(facilities[b.FacilityID].Name)
	if an != bn {
		return an < bn
	}
	if a.FacilityID != b.FacilityID {
		return a.FacilityID < b.FacilityID
	}
	if a.CapacityType != b.CapacityType {
		return a.CapacityType.Ordinal() < b.CapacityType.Ordinal()
	}
	return a.Usage.Ordinal() < b.Usage.Ordinal()
}

// SortRows orders rows for output independent of stream arrival order.
func SortRows(rows []*Row, facilities map[int64]facility.Facility) {
	sort.SliceStable(rows, func(i, j int) bool {
		return keyLess(rows[i].Key, rows[j].Key, facilities)
	})
}
