package tripbench

import (
	"math"
	"sort"
	"time"
)

// groupStats accumulates the per-group summaries for one grouping key.
// Counts are int64 and sums are float64 so that accumulating tens of
// millions of rows neither overflows nor loses precision.
type groupStats struct {
	Count         int64
	DistanceSum   float64
	DurationSum   float64
	PassengerSum  float64
	FareSum       float64
	distanceSumSq float64
	fareSumSq     float64
}

func (g *groupStats) add(t Trip) {
	g.Count++
	g.DistanceSum += t.TripDistance
	g.DurationSum += t.DurationMinutes
	g.PassengerSum += float64(t.PassengerCount)
	g.FareSum += t.TotalAmount
	g.distanceSumSq += t.TripDistance * t.TripDistance
	g.fareSumSq += t.TotalAmount * t.TotalAmount
}

func (g *groupStats) merge(o *groupStats) {
	g.Count += o.Count
	g.DistanceSum += o.DistanceSum
	g.DurationSum += o.DurationSum
	g.PassengerSum += o.PassengerSum
	g.FareSum += o.FareSum
	g.distanceSumSq += o.distanceSumSq
	g.fareSumSq += o.fareSumSq
}

func (g *groupStats) DistanceMean() float64  { return mean(g.DistanceSum, g.Count) }
func (g *groupStats) DurationMean() float64  { return mean(g.DurationSum, g.Count) }
func (g *groupStats) PassengerMean() float64 { return mean(g.PassengerSum, g.Count) }
func (g *groupStats) FareMean() float64      { return mean(g.FareSum, g.Count) }

// DistanceStd and FareStd are sample standard deviations (n-1 denominator).
func (g *groupStats) DistanceStd() float64 { return sampleStd(g.DistanceSum, g.distanceSumSq, g.Count) }
func (g *groupStats) FareStd() float64     { return sampleStd(g.FareSum, g.fareSumSq, g.Count) }

func mean(sum float64, count int64) float64 {
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func sampleStd(sum, sumSq float64, count int64) float64 {
	if count < 2 {
		return 0
	}
	n := float64(count)
	variance := (sumSq - sum*sum/n) / (n - 1)
	if variance < 0 {
		// Cancellation can push the computed variance slightly negative.
		variance = 0
	}
	return math.Sqrt(variance)
}

// distanceBins are the trip-distance buckets of the distance analysis. Each
// bin covers (lower, upper]; the last bin's upper bound coincides with the
// clean predicate's exclusive distance ceiling, so every cleaned trip lands
// in exactly one bin.
var distanceBins = []struct {
	upper float64
	label string
}{
	{1, "Short (0-1mi)"},
	{3, "Medium (1-3mi)"},
	{5, "Long (3-5mi)"},
	{10, "Very Long (5-10mi)"},
	{100, "Extreme (10+mi)"},
}

func distanceBin(distance float64) int {
	for i := 0; i < len(distanceBins)-1; i++ {
		if distance <= distanceBins[i].upper {
			return i
		}
	}
	return len(distanceBins) - 1
}

// maxPassengers is the clean predicate's inclusive passenger ceiling.
const maxPassengers = 6

// Aggregates holds the groupings computed by the Aggregate stage. Each
// grouping partitions the cleaned trip set: every cleaned trip lands in
// exactly one day, one hour, one weekday, one distance bin, and one
// passenger-count bucket.
type Aggregates struct {
	Daily    map[string]*groupStats
	Hourly   [24]groupStats
	Weekday  [7]groupStats
	Distance [5]groupStats

	// Passengers is the passenger-count distribution, indexed by count.
	// Index 0 is always zero for cleaned trips.
	Passengers [maxPassengers + 1]int64

	Global      groupStats
	FirstPickup time.Time
	LastPickup  time.Time
}

func newAggregates() *Aggregates {
	return &Aggregates{Daily: make(map[string]*groupStats)}
}

func (a *Aggregates) Add(t Trip) {
	day := t.PickupTime.Format("2006-01-02")
	g, ok := a.Daily[day]
	if !ok {
		g = &groupStats{}
		a.Daily[day] = g
	}
	g.add(t)

	a.Hourly[t.PickupTime.Hour()].add(t)
	a.Weekday[int(t.PickupTime.Weekday())].add(t)
	a.Distance[distanceBin(t.TripDistance)].add(t)
	if t.PassengerCount >= 0 && t.PassengerCount <= maxPassengers {
		a.Passengers[t.PassengerCount]++
	}
	a.Global.add(t)

	if a.FirstPickup.IsZero() || t.PickupTime.Before(a.FirstPickup) {
		a.FirstPickup = t.PickupTime
	}
	if t.PickupTime.After(a.LastPickup) {
		a.LastPickup = t.PickupTime
	}
}

// Merge folds another set of aggregates into a. Used by the lazy engine to
// combine per-worker partial aggregates.
func (a *Aggregates) Merge(o *Aggregates) {
	for day, g := range o.Daily {
		existing, ok := a.Daily[day]
		if !ok {
			existing = &groupStats{}
			a.Daily[day] = existing
		}
		existing.merge(g)
	}
	for i := range o.Hourly {
		a.Hourly[i].merge(&o.Hourly[i])
	}
	for i := range o.Weekday {
		a.Weekday[i].merge(&o.Weekday[i])
	}
	for i := range o.Distance {
		a.Distance[i].merge(&o.Distance[i])
	}
	for i := range o.Passengers {
		a.Passengers[i] += o.Passengers[i]
	}
	a.Global.merge(&o.Global)

	if !o.FirstPickup.IsZero() && (a.FirstPickup.IsZero() || o.FirstPickup.Before(a.FirstPickup)) {
		a.FirstPickup = o.FirstPickup
	}
	if o.LastPickup.After(a.LastPickup) {
		a.LastPickup = o.LastPickup
	}
}

// Days returns the daily grouping keys in chronological order.
func (a *Aggregates) Days() []string {
	days := make([]string, 0, len(a.Daily))
	for day := range a.Daily {
		days = append(days, day)
	}
	sort.Strings(days)
	return days
}

// DayBreakdown is one row of the top-days breakdown surfaced by the
// Sort & Filter stage.
type DayBreakdown struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// TopDays returns the n busiest days sorted by trip count, descending.
// The sort is stable with ties broken chronologically.
func (a *Aggregates) TopDays(n int) []DayBreakdown {
	rows := make([]DayBreakdown, 0, len(a.Daily))
	for _, day := range a.Days() {
		rows = append(rows, DayBreakdown{Date: day, Count: a.Daily[day].Count})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Count > rows[j].Count
	})
	if n < len(rows) {
		rows = rows[:n]
	}
	return rows
}

const (
	longTripDistance  = 10.0
	expensiveTripFare = 50.0
	premiumDistance   = 5.0
	premiumFare       = 30.0
	premiumPassengers = 2
)

// rushHours are the pickup hours counted as rush-hour traffic.
var rushHours = map[int]bool{7: true, 8: true, 9: true, 17: true, 18: true, 19: true}

// DerivedCounts are scalar counters computed by evaluating boolean
// predicates over the cleaned trips. The predicates overlap, so the counts
// need not sum to the cleaned row total, but each is bounded by it.
type DerivedCounts struct {
	LongTrips      int64 `json:"long_trips_count"`
	ExpensiveTrips int64 `json:"expensive_trips_count"`
	RushHourTrips  int64 `json:"rush_hour_trips_count"`
	WeekendTrips   int64 `json:"weekend_trips_count"`
	PremiumTrips   int64 `json:"premium_trips_count"`
}

func (c *DerivedCounts) add(t Trip) {
	if t.TripDistance > longTripDistance {
		c.LongTrips++
	}
	if t.TotalAmount > expensiveTripFare {
		c.ExpensiveTrips++
	}
	if rushHours[t.PickupTime.Hour()] {
		c.RushHourTrips++
	}
	if wd := t.PickupTime.Weekday(); wd == time.Saturday || wd == time.Sunday {
		c.WeekendTrips++
	}
	if t.TripDistance > premiumDistance && t.TotalAmount > premiumFare && t.PassengerCount >= premiumPassengers {
		c.PremiumTrips++
	}
}

func (c *DerivedCounts) merge(o DerivedCounts) {
	c.LongTrips += o.LongTrips
	c.ExpensiveTrips += o.ExpensiveTrips
	c.RushHourTrips += o.RushHourTrips
	c.WeekendTrips += o.WeekendTrips
	c.PremiumTrips += o.PremiumTrips
}

func countDerived(trips []Trip) DerivedCounts {
	var counts DerivedCounts
	for _, t := range trips {
		counts.add(t)
	}
	return counts
}
