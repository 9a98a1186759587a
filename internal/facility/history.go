package facility

import (
	"time"

	"facility-usage-backend/internal/utilization"
)

// StatusChange is one entry of a facility's status history. A nil End means
// the status is still in effect.
type StatusChange struct {
	Status Status
	Start  time.Time
	End    *time.Time
}

// StatusByDay expands a status history into one status per date in [from, to].
// When several entries overlap a day, the one that started last wins. Days no
// entry touches are absent from the result.
func StatusByDay(changes []StatusChange, from, to utilization.Date, loc *time.Location) map[utilization.Date]Status {
	out := make(map[utilization.Date]Status)
	for d := from; !d.After(to); d = d.AddDays(1) {
		dayStart := d.Midnight(loc)
		dayEnd := d.AddDays(1).Midnight(loc)

		var best *StatusChange
		for i := range changes {
			c := &changes[i]
			if !c.Start.Before(dayEnd) || (c.End != nil && !c.End.After(dayStart)) {
				continue
			}
			if best == nil || !c.Start.Before(best.Start) {
				best = c
			}
		}
		if best != nil {
			out[d] = best.Status
		}
	}
	return out
}
