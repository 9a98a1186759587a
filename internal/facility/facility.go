// Package facility holds the facility metadata the report engine consults.
package facility

import (
	"context"

	"facility-usage-backend/internal/errs"
	"facility-usage-backend/internal/utilization"
)

// Status is the operating status of a facility.
type Status string

const (
	StatusInOperation          Status = "IN_OPERATION"
	StatusExceptionalSituation Status = "EXCEPTIONAL_SITUATION"
	StatusTemporarilyClosed    Status = "TEMPORARILY_CLOSED"
	StatusInactive             Status = "INACTIVE"
)

var statuses = []Status{StatusInOperation, StatusExceptionalSituation, StatusTemporarilyClosed, StatusInactive}

func ParseStatus(s string) (Status, error) {
	for _, st := range statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", errs.NewInvalidParameter("unknown facility status %q", s)
}

// Pricing marks a (capacity type, usage) combination as offered by a facility.
type Pricing struct {
	CapacityType utilization.CapacityType
	Usage        utilization.Usage
}

// Facility is the read model of a facility.
type Facility struct {
	ID            int64
	Name          string
	Status        Status
	BuiltCapacity map[utilization.CapacityType]int
	Pricing       []Pricing
}

// Offers reports whether the facility has pricing for the key's combination.
func (f Facility) Offers(ct utilization.CapacityType, u utilization.Usage) bool {
	for _, p := range f.Pricing {
		if p.CapacityType == ct && p.Usage == u {
			return true
		}
	}
	return false
}

// Provider resolves facility metadata. Unknown ids are left out of the result.
type Provider interface {
	Facilities(ctx context.Context, ids []int64) (map[int64]Facility, error)
}

// HistoryProvider supplies per-day status history, possibly sparse.
type HistoryProvider interface {
	StatusHistory(ctx context.Context, facilityID int64, from, to utilization.Date) (map[utilization.Date]Status, error)
}
