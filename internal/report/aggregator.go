// Package report builds day-partitioned utilization reports from an ordered
// sample stream.
package report

import (
	"time"

	"facility-usage-backend/internal/facility"
	"facility-usage-backend/internal/utilization"
)

// Key identifies one report row: a utilization key on one local date.
type Key struct {
	utilization.Key
	Date utilization.Date
}

// PrevDay returns the same key one day earlier.
func (k Key) PrevDay() Key {
	k.Date = k.Date.AddDays(-1)
	return k
}

// Row is one day of one key at fixed resolution. Values[i] holds the spaces
// available at offset i*interval seconds into the day.
type Row struct {
	Key             Key
	Values          []int
	EffectiveStatus facility.Status
}

// BucketCount is the number of buckets in a day; a trailing partial bucket is dropped.
func BucketCount(intervalSeconds int) int {
	return utilization.SecondsPerDay / intervalSeconds
}

func newRow(key Key, buckets, initial int) *Row {
	values := make([]int, buckets)
	for i := range values {
		values[i] = initial
	}
	return &Row{Key: key, Values: values}
}

// fill sets every bucket from idx to the end of the day.
func (r *Row) fill(idx, value int) {
	if idx < 0 {
		idx = 0
	}
	for i := idx; i < len(r.Values); i++ {
		r.Values[i] = value
	}
}

func (r *Row) last() int {
	if len(r.Values) == 0 {
		return 0
	}
	return r.Values[len(r.Values)-1]
}

// Aggregator accumulates samples into rows. It is built for one report
// request and never shared.
type Aggregator struct {
	interval int
	loc      *time.Location
	rows     map[Key]*Row
	order    []*Row
}

// NewAggregator creates an aggregator for buckets of intervalSeconds in loc.
func NewAggregator(intervalSeconds int, loc *time.Location) *Aggregator {
	return &Aggregator{
		interval: intervalSeconds,
		loc:      loc,
		rows:     make(map[Key]*Row),
	}
}

// Add applies one sample. Samples must arrive in time order; keys may interleave.
func (a *Aggregator) Add(s utilization.Sample) {
	key := Key{Key: s.Key, Date: utilization.DateOf(s.Timestamp, a.loc)}
	row, ok := a.rows[key]
	if !ok {
		initial := 0
		if prev, ok := a.rows[key.PrevDay()]; ok {
			initial = prev.last()
		}
		row = newRow(key, BucketCount(a.interval), initial)
		a.rows[key] = row
		a.order = append(a.order, row)
	}
	row.fill(utilization.SecondOfDay(s.Timestamp, a.loc)/a.interval, s.SpacesAvailable)
}

// Rows returns the rows in creation order.
func (a *Aggregator) Rows() []*Row {
	return a.order
}

// Row looks up the row of key.
func (a *Aggregator) Row(key Key) (*Row, bool) {
	r, ok := a.rows[key]
	return r, ok
}
