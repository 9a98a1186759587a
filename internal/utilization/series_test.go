package utilization

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySeries_LatestBeforeOrAt(t *testing.T) {
	ctx := context.Background()
	series := NewMemorySeries(nil)

	_, ok, err := series.LatestBeforeOrAt(ctx, testKey, at(12, 0))
	require.NoError(t, err)
	assert.False(t, ok, "nothing to find")

	series.Add(sample(at(13, 0), 100), sample(at(14, 0), 200))

	_, ok, _ = series.LatestBeforeOrAt(ctx, testKey, at(12, 0))
	assert.False(t, ok, "instant before every sample")

	got, ok, _ := series.LatestBeforeOrAt(ctx, testKey, at(13, 0))
	assert.True(t, ok)
	assert.Equal(t, 100, got.SpacesAvailable, "exact match")

	got, ok, _ = series.LatestBeforeOrAt(ctx, testKey, at(15, 0))
	assert.True(t, ok)
	assert.Equal(t, 200, got.SpacesAvailable, "latest before instant")

	other := testKey
	other.Usage = UsageCommercial
	_, ok, _ = series.LatestBeforeOrAt(ctx, other, at(15, 0))
	assert.False(t, ok, "usage specific")
}

func TestAtInstant_RestampsToTheInstant(t *testing.T) {
	series := NewMemorySeries(nil)
	series.Add(sample(at(12, 0), 100))

	got, ok, err := AtInstant(context.Background(), series, testKey, at(13, 0))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sample(at(13, 0), 100), got)

	_, ok, err = AtInstant(context.Background(), series, testKey, at(11, 0))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemorySeries_Between(t *testing.T) {
	base := at(12, 0)
	var stored []Sample
	for i := 1; i <= 5; i++ {
		stored = append(stored, sample(base.Add(time.Duration(i)*time.Millisecond), i*100))
	}
	series := NewMemorySeries(nil)
	// Insert out of order; the series keeps them sorted.
	series.Add(stored[4], stored[0], stored[2], stored[1], stored[3])

	got, err := series.Between(context.Background(), testKey, stored[1].Timestamp, stored[3].Timestamp)
	require.NoError(t, err)
	assert.Equal(t, stored[1:4], got, "inclusive both ends, ascending")

	otherFacility := testKey
	otherFacility.FacilityID = 2
	got, err = series.Between(context.Background(), otherFacility, base, base.Add(time.Second))
	require.NoError(t, err)
	assert.Empty(t, got, "facility specific")

	got, err = series.Between(context.Background(), testKey, base.Add(time.Hour), base.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, got, "no synthetic boundary samples")
}

func TestMemorySeries_LatestPerKey(t *testing.T) {
	ctx := context.Background()
	carTravelCard := Key{FacilityID: 1, CapacityType: CapacityCar, Usage: UsageHSLTravelCard}
	carCommercial := Key{FacilityID: 1, CapacityType: CapacityCar, Usage: UsageCommercial}
	motorcycle := Key{FacilityID: 1, CapacityType: CapacityMotorcycle, Usage: UsageHSLTravelCard}
	otherFacility := Key{FacilityID: 2, CapacityType: CapacityCar, Usage: UsageHSLTravelCard}

	u1 := Sample{Key: carTravelCard, Timestamp: at(12, 0), SpacesAvailable: 100}
	u2 := Sample{Key: carCommercial, Timestamp: at(13, 0), SpacesAvailable: 200}
	u3 := Sample{Key: motorcycle, Timestamp: at(14, 0), SpacesAvailable: 300}
	older := Sample{Key: carTravelCard, Timestamp: at(11, 0), SpacesAvailable: 50}
	u4 := Sample{Key: otherFacility, Timestamp: at(13, 0), SpacesAvailable: 400}

	t.Run("one per key, newest only", func(t *testing.T) {
		series := NewMemorySeries(nil)
		series.Add(u1, u2, u3, older)
		facility := int64(1)

		got, err := series.LatestPerKey(ctx, &facility)
		require.NoError(t, err)
		assert.ElementsMatch(t, []Sample{u1, u2, u3}, got)
	})

	t.Run("hides keys without pricing", func(t *testing.T) {
		series := NewMemorySeries(func(k Key) bool { return k.Usage != UsageHSLTravelCard })
		series.Add(u1, u2, u3)
		facility := int64(1)

		got, err := series.LatestPerKey(ctx, &facility)
		require.NoError(t, err)
		assert.Equal(t, []Sample{u2}, got)
	})

	t.Run("all facilities", func(t *testing.T) {
		series := NewMemorySeries(nil)
		series.Add(u1, u4)

		got, err := series.LatestPerKey(ctx, nil)
		require.NoError(t, err)
		assert.ElementsMatch(t, []Sample{u1, u4}, got)
	})

	t.Run("nothing to find", func(t *testing.T) {
		got, err := NewMemorySeries(nil).LatestPerKey(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestLatestOnly(t *testing.T) {
	a := sample(at(12, 0), 1)
	b := sample(at(13, 0), 2)
	tie := sample(at(13, 0), 3)
	other := Sample{Key: Key{FacilityID: 9, CapacityType: CapacityBicycle, Usage: UsageCommercial}, Timestamp: at(1, 0)}

	assert.Equal(t, []Sample{tie, other}, LatestOnly([]Sample{b, other, a, tie}))
	assert.Empty(t, LatestOnly(nil))
}

func TestMemorySeries_FindUtilizations(t *testing.T) {
	k2 := Key{FacilityID: 2, CapacityType: CapacityBicycle, Usage: UsageParkAndRide}
	series := NewMemorySeries(nil)
	series.Add(
		sample(at(10, 0), 1),
		Sample{Key: k2, Timestamp: at(9, 0), SpacesAvailable: 2},
		sample(at(8, 0), 3),
		Sample{Key: k2, Timestamp: at(11, 0), SpacesAvailable: 4},
	)

	it, err := series.FindUtilizations(context.Background(), Search{Start: at(9, 0), End: at(11, 0)})
	require.NoError(t, err)
	defer it.Close()

	var got []int
	for it.Next() {
		got = append(got, it.Sample().SpacesAvailable)
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []int{2, 1}, got, "time ordered, end exclusive")

	it, err = series.FindUtilizations(context.Background(), Search{Start: at(0, 0), End: at(23, 0), FacilityIDs: []int64{2}})
	require.NoError(t, err)
	got = nil
	for it.Next() {
		got = append(got, it.Sample().SpacesAvailable)
	}
	assert.NoError(t, it.Close())
	assert.Equal(t, []int{2, 4}, got)
}

func TestParseEnums(t *testing.T) {
	c, err := ParseCapacityType("ELECTRIC_CAR")
	require.NoError(t, err)
	assert.Equal(t, CapacityElectricCar, c)

	_, err = ParseCapacityType("TRUCK")
	assert.Error(t, err)

	u, err := ParseUsage("COMMERCIAL")
	require.NoError(t, err)
	assert.Equal(t, UsageCommercial, u)

	_, err = ParseUsage("")
	assert.Error(t, err)
}

func TestDate(t *testing.T) {
	helsinki, err := time.LoadLocation("Europe/Helsinki")
	require.NoError(t, err)

	// 23:30 UTC is already the next day in Helsinki.
	instant := time.Date(2016, 3, 31, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, Date{2016, time.April, 1}, DateOf(instant, helsinki))
	assert.Equal(t, 2*3600+30*60, SecondOfDay(instant, helsinki))

	d, err := ParseDate("2016-02-28")
	require.NoError(t, err)
	assert.Equal(t, "2016-02-29", d.AddDays(1).String())
	assert.Equal(t, "2016-03-01", d.AddDays(2).String())
	assert.Equal(t, "2016-02-27", d.AddDays(-1).String())
	assert.True(t, d.Before(d.AddDays(1)))
	assert.True(t, d.AddDays(1).After(d))
	assert.Equal(t, 2, d.DaysUntil(d.AddDays(2)))
	assert.Equal(t, time.Date(2016, 2, 28, 1, 30, 0, 0, time.UTC), d.At(5400, time.UTC))

	_, err = ParseDate("28.2.2016")
	assert.Error(t, err)

	var parsed Date
	require.NoError(t, parsed.UnmarshalText([]byte("2016-12-31")))
	text, _ := parsed.MarshalText()
	assert.Equal(t, "2016-12-31", string(text))
}
