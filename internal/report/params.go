package report

import (
	"time"

	"facility-usage-backend/internal/errs"
	"facility-usage-backend/internal/utilization"
)

// Params are the request parameters shared by all report types.
type Params struct {
	StartDate       utilization.Date           `json:"startDate"`
	EndDate         utilization.Date           `json:"endDate"`
	IntervalMinutes int                        `json:"interval"`
	FacilityIDs     []int64                    `json:"facilities"`
	CapacityTypes   []utilization.CapacityType `json:"capacityTypes"`
	Usages          []utilization.Usage        `json:"usages"`
}

// maxIntervalMinutes is one day: a longer interval leaves no bucket in a day.
const maxIntervalMinutes = utilization.SecondsPerDay / 60

// IntervalSeconds is the bucket width in seconds.
func (p Params) IntervalSeconds() int {
	return p.IntervalMinutes * 60
}

// Validate rejects parameters before any stream is opened. maxDays <= 0
// disables the range limit.
func (p Params) Validate(maxDays int) error {
	if p.IntervalMinutes <= 0 {
		return errs.NewInvalidParameter("interval must be positive, got %d", p.IntervalMinutes)
	}
	if p.IntervalMinutes > maxIntervalMinutes {
		return errs.NewInvalidParameter("interval must be at most %d minutes, got %d", maxIntervalMinutes, p.IntervalMinutes)
	}
	if p.StartDate.IsZero() || p.EndDate.IsZero() {
		return errs.NewInvalidParameter("startDate and endDate are required")
	}
	if p.StartDate.After(p.EndDate) {
		return errs.NewInvalidParameter("startDate %s is after endDate %s", p.StartDate, p.EndDate)
	}
	if maxDays > 0 && p.StartDate.DaysUntil(p.EndDate)+1 > maxDays {
		return errs.NewInvalidParameter("date range exceeds %d days", maxDays)
	}
	for _, c := range p.CapacityTypes {
		if _, err := utilization.ParseCapacityType(string(c)); err != nil {
			return err
		}
	}
	for _, u := range p.Usages {
		if _, err := utilization.ParseUsage(string(u)); err != nil {
			return err
		}
	}
	return nil
}

// Search is the sample window covering every local date of the report.
func (p Params) Search(loc *time.Location) utilization.Search {
	return utilization.Search{
		Start:         p.StartDate.Midnight(loc),
		End:           p.EndDate.AddDays(1).Midnight(loc),
		FacilityIDs:   p.FacilityIDs,
		CapacityTypes: p.CapacityTypes,
		Usages:        p.Usages,
	}
}
