package tripbench

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tripAt(pickup time.Time, distance, total float64, pax int) Trip {
	return Trip{
		PickupTime:       pickup,
		DropoffTime:      pickup.Add(20 * time.Minute),
		PickupLongitude:  -73.98,
		PickupLatitude:   40.75,
		DropoffLongitude: -73.97,
		DropoffLatitude:  40.76,
		TripDistance:     distance,
		PassengerCount:   pax,
		TotalAmount:      total,
		FareAmount:       total * 0.8,
		DurationMinutes:  20,
	}
}

func spreadTrips(n int) []Trip {
	trips := make([]Trip, 0, n)
	base := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		pickup := base.Add(time.Duration(i) * 7 * time.Hour)
		trips = append(trips, tripAt(pickup, float64(i%15)+0.5, float64(i%60)+5, i%6+1))
	}
	return trips
}

func TestGroupingsPartitionCleanedSet(t *testing.T) {
	trips := spreadTrips(200)
	aggs := newAggregates()
	for _, trip := range trips {
		aggs.Add(trip)
	}

	var dailyTotal, hourlyTotal, weekdayTotal, distanceTotal, passengerTotal int64
	for _, g := range aggs.Daily {
		dailyTotal += g.Count
	}
	for i := range aggs.Hourly {
		hourlyTotal += aggs.Hourly[i].Count
	}
	for i := range aggs.Weekday {
		weekdayTotal += aggs.Weekday[i].Count
	}
	for i := range aggs.Distance {
		distanceTotal += aggs.Distance[i].Count
	}
	for _, trips := range aggs.Passengers {
		passengerTotal += trips
	}

	// Each grouping partitions the cleaned set independently
	assert.Equal(t, int64(len(trips)), dailyTotal)
	assert.Equal(t, int64(len(trips)), hourlyTotal)
	assert.Equal(t, int64(len(trips)), weekdayTotal)
	assert.Equal(t, int64(len(trips)), distanceTotal)
	assert.Equal(t, int64(len(trips)), passengerTotal)
	assert.Equal(t, int64(len(trips)), aggs.Global.Count)
}

func TestDistanceBinBoundaries(t *testing.T) {
	var binTests = []struct {
		distance float64
		bin      int
	}{
		{0.1, 0},
		{1.0, 0},
		{1.01, 1},
		{3.0, 1},
		{3.5, 2},
		{5.0, 2},
		{5.01, 3},
		{10.0, 3},
		{10.01, 4},
		{99.9, 4},
	}

	for _, test := range binTests {
		assert.Equal(t, test.bin, distanceBin(test.distance), fmt.Sprintf("%.2f mi", test.distance))
	}
}

func TestPassengerDistribution(t *testing.T) {
	aggs := newAggregates()
	base := time.Date(2015, 1, 5, 10, 0, 0, 0, time.UTC)
	for _, pax := range []int{1, 1, 1, 2, 4, 6} {
		aggs.Add(tripAt(base, 2, 10, pax))
	}

	assert.Equal(t, [7]int64{0, 3, 1, 0, 1, 0, 1}, aggs.Passengers)
}

func TestGroupStatsMeans(t *testing.T) {
	g := &groupStats{}
	base := time.Date(2015, 1, 5, 10, 0, 0, 0, time.UTC)
	for _, distance := range []float64{1, 2, 3, 4} {
		g.add(tripAt(base, distance, distance*10, 2))
	}

	assert.Equal(t, int64(4), g.Count)
	assert.InDelta(t, 2.5, g.DistanceMean(), 1e-9)
	assert.InDelta(t, 25.0, g.FareMean(), 1e-9)
	assert.InDelta(t, 2.0, g.PassengerMean(), 1e-9)
}

func TestSampleStd(t *testing.T) {
	g := &groupStats{}
	base := time.Date(2015, 1, 5, 10, 0, 0, 0, time.UTC)
	for _, distance := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		g.add(tripAt(base, distance, 10, 1))
	}

	// Sample variance of the classic 2,4,4,4,5,5,7,9 set is 32/7
	assert.InDelta(t, 2.138, g.DistanceStd(), 0.001)

	single := &groupStats{}
	single.add(tripAt(base, 3, 10, 1))
	assert.Zero(t, single.DistanceStd())
}

func TestAggregatesMergeMatchesSinglePass(t *testing.T) {
	trips := spreadTrips(101)

	single := newAggregates()
	for _, trip := range trips {
		single.Add(trip)
	}

	merged := newAggregates()
	for _, segment := range segmentTrips(trips, 4) {
		partial := newAggregates()
		for _, trip := range segment {
			partial.Add(trip)
		}
		merged.Merge(partial)
	}

	assert.Equal(t, single.Global.Count, merged.Global.Count)
	assert.InDelta(t, single.Global.DistanceSum, merged.Global.DistanceSum, 1e-9)
	assert.InDelta(t, single.Global.FareSum, merged.Global.FareSum, 1e-9)
	assert.Equal(t, single.FirstPickup, merged.FirstPickup)
	assert.Equal(t, single.LastPickup, merged.LastPickup)
	assert.Equal(t, single.Passengers, merged.Passengers)
	for i := range single.Distance {
		assert.Equal(t, single.Distance[i].Count, merged.Distance[i].Count, distanceBins[i].label)
	}
	require.Equal(t, len(single.Daily), len(merged.Daily))
	for day, g := range single.Daily {
		assert.Equal(t, g.Count, merged.Daily[day].Count, day)
		assert.InDelta(t, g.distanceSumSq, merged.Daily[day].distanceSumSq, 1e-9, day)
	}
}

func TestTopDaysTieBreak(t *testing.T) {
	aggs := newAggregates()
	counts := map[string]int{
		"2015-01-03": 2,
		"2015-01-01": 2,
		"2015-01-02": 3,
		"2015-01-04": 1,
	}
	for day, n := range counts {
		pickup, err := time.Parse("2006-01-02", day)
		require.Nil(t, err)
		for i := 0; i < n; i++ {
			aggs.Add(tripAt(pickup.Add(10*time.Hour), 1, 10, 1))
		}
	}

	top := aggs.TopDays(3)
	require.Len(t, top, 3)
	assert.Equal(t, "2015-01-02", top[0].Date)
	// Equal counts fall back to chronological order
	assert.Equal(t, "2015-01-01", top[1].Date)
	assert.Equal(t, "2015-01-03", top[2].Date)
}

func TestDerivedCounts(t *testing.T) {
	weekday := time.Date(2015, 1, 14, 12, 0, 0, 0, time.UTC)  // Wednesday, off-peak
	saturday := time.Date(2015, 1, 17, 8, 0, 0, 0, time.UTC)  // weekend + rush hour
	rushHour := time.Date(2015, 1, 14, 18, 0, 0, 0, time.UTC) // Wednesday evening peak

	trips := []Trip{
		tripAt(weekday, 12, 20, 1),   // long only
		tripAt(weekday, 1, 60, 1),    // expensive only
		tripAt(saturday, 1, 10, 1),   // weekend + rush hour
		tripAt(rushHour, 1, 10, 1),   // rush hour only
		tripAt(weekday, 6, 35, 2),    // premium
		tripAt(weekday, 6, 35, 1),    // premium fails on passengers
		tripAt(weekday, 4.9, 35, 3),  // premium fails on distance
		tripAt(weekday, 6, 29.9, 4),  // premium fails on fare
		tripAt(weekday, 0.5, 5.5, 1), // nothing
	}

	counts := countDerived(trips)
	assert.Equal(t, int64(1), counts.LongTrips)
	assert.Equal(t, int64(1), counts.ExpensiveTrips)
	assert.Equal(t, int64(2), counts.RushHourTrips)
	assert.Equal(t, int64(1), counts.WeekendTrips)
	assert.Equal(t, int64(1), counts.PremiumTrips)

	total := int64(len(trips))
	for _, count := range []int64{counts.LongTrips, counts.ExpensiveTrips, counts.RushHourTrips, counts.WeekendTrips, counts.PremiumTrips} {
		assert.LessOrEqual(t, count, total)
	}
}

func TestDerivedCountsMergeMatchesSinglePass(t *testing.T) {
	trips := spreadTrips(97)

	single := countDerived(trips)

	var merged DerivedCounts
	for _, segment := range segmentTrips(trips, 5) {
		merged.merge(countDerived(segment))
	}

	assert.Equal(t, single, merged)
}

func TestSegmentTrips(t *testing.T) {
	var segmentTests = []struct {
		trips    int
		n        int
		segments int
	}{
		{0, 4, 0},
		{3, 4, 3},
		{10, 4, 4},
		{10, 1, 1},
		{10, 0, 1},
	}

	for _, test := range segmentTests {
		trips := spreadTrips(test.trips)
		segments := segmentTrips(trips, test.n)
		assert.Len(t, segments, test.segments, fmt.Sprintf("%d trips over %d workers", test.trips, test.n))

		seen := 0
		for _, segment := range segments {
			seen += len(segment)
		}
		assert.Equal(t, test.trips, seen)
	}
}
