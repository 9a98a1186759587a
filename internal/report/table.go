package report

import (
	"fmt"
	"strconv"
	"time"

	"facility-usage-backend/internal/facility"
)

var keyColumns = []string{"Facility", "Usage", "CapacityType", "Status", "BuiltCapacity", "Date"}

// Table is the tabular output handed to a renderer.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// BucketHeaders returns one "HH:MM" column title per bucket of the day.
func BucketHeaders(intervalSeconds int) []string {
	n := BucketCount(intervalSeconds)
	headers := make([]string, n)
	for i := range headers {
		s := i * intervalSeconds
		if s%60 == 0 {
			headers[i] = fmt.Sprintf("%02d:%02d", s/3600, s/60%60)
		} else {
			headers[i] = fmt.Sprintf("%02d:%02d:%02d", s/3600, s/60%60, s%60)
		}
	}
	return headers
}

// BucketCells renders the values of r. A bucket whose instant is strictly
// after now is blank; the row itself keeps the carried value.
func BucketCells(r *Row, intervalSeconds int, loc *time.Location, now time.Time) []string {
	cells := make([]string, len(r.Values))
	for i, v := range r.Values {
		if r.Key.Date.At(i*intervalSeconds, loc).After(now) {
			continue
		}
		cells[i] = strconv.Itoa(v)
	}
	return cells
}

// keyCells describes the row's key. Unknown facilities are shown by id.
func keyCells(r *Row, f facility.Facility) []string {
	built := ""
	if c, ok := f.BuiltCapacity[r.Key.CapacityType]; ok {
		built = strconv.Itoa(c)
	}
	name := f.Name
	if name == "" {
		name = strconv.FormatInt(r.Key.FacilityID, 10)
	}
	return []string{
		name,
		string(r.Key.Usage),
		string(r.Key.CapacityType),
		string(r.EffectiveStatus),
		built,
		r.Key.Date.String(),
	}
}
