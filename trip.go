package tripbench

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// pickupTimeLayout is the timestamp format used by the yellow taxi exports.
const pickupTimeLayout = "2006-01-02 15:04:05"

// Trip is one taxi trip record, projected down to the columns the pipeline
// consumes. DurationMinutes is derived during the Clean stage; it is zero on
// a freshly loaded trip.
type Trip struct {
	PickupTime       time.Time
	DropoffTime      time.Time
	PickupLongitude  float64
	PickupLatitude   float64
	DropoffLongitude float64
	DropoffLatitude  float64
	TripDistance     float64
	PassengerCount   int
	FareAmount       float64
	TipAmount        float64
	TotalAmount      float64
	DurationMinutes  float64
}

// projection maps the projected column names to their indices in the input
// header. The dataset carries more columns than the pipeline needs; anything
// not listed here is ignored.
type projection struct {
	pickupTime  int
	dropoffTime int
	pickupLon   int
	pickupLat   int
	dropoffLon  int
	dropoffLat  int
	distance    int
	passengers  int
	fare        int
	tip         int
	total       int
}

func resolveProjection(header []string) (projection, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	proj := projection{}
	missing := []string{}
	for _, col := range []struct {
		name string
		dst  *int
	}{
		{"tpep_pickup_datetime", &proj.pickupTime},
		{"tpep_dropoff_datetime", &proj.dropoffTime},
		{"pickup_longitude", &proj.pickupLon},
		{"pickup_latitude", &proj.pickupLat},
		{"dropoff_longitude", &proj.dropoffLon},
		{"dropoff_latitude", &proj.dropoffLat},
		{"trip_distance", &proj.distance},
		{"passenger_count", &proj.passengers},
		{"fare_amount", &proj.fare},
		{"tip_amount", &proj.tip},
		{"total_amount", &proj.total},
	} {
		i, ok := index[col.name]
		if !ok {
			missing = append(missing, col.name)
			continue
		}
		*col.dst = i
	}

	if len(missing) > 0 {
		return projection{}, fmt.Errorf("dataset header is missing columns: %s", strings.Join(missing, ", "))
	}
	return proj, nil
}

func (p projection) maxIndex() int {
	max := p.pickupTime
	for _, i := range []int{
		p.dropoffTime, p.pickupLon, p.pickupLat, p.dropoffLon, p.dropoffLat,
		p.distance, p.passengers, p.fare, p.tip, p.total,
	} {
		if i > max {
			max = i
		}
	}
	return max
}

// parseTrip decodes one data record. A record that cannot be decoded is a
// parse failure of the dataset, not a data-quality case, so the error is
// propagated and aborts the run.
func parseTrip(fields []string, proj projection) (Trip, error) {
	var t Trip
	var err error

	if len(fields) <= proj.maxIndex() {
		return Trip{}, fmt.Errorf("record has %d fields, expected at least %d", len(fields), proj.maxIndex()+1)
	}

	if t.PickupTime, err = time.Parse(pickupTimeLayout, fields[proj.pickupTime]); err != nil {
		return Trip{}, fmt.Errorf("bad pickup timestamp %q: %w", fields[proj.pickupTime], err)
	}
	if t.DropoffTime, err = time.Parse(pickupTimeLayout, fields[proj.dropoffTime]); err != nil {
		return Trip{}, fmt.Errorf("bad dropoff timestamp %q: %w", fields[proj.dropoffTime], err)
	}

	for _, f := range []struct {
		idx int
		dst *float64
	}{
		{proj.pickupLon, &t.PickupLongitude},
		{proj.pickupLat, &t.PickupLatitude},
		{proj.dropoffLon, &t.DropoffLongitude},
		{proj.dropoffLat, &t.DropoffLatitude},
		{proj.distance, &t.TripDistance},
		{proj.fare, &t.FareAmount},
		{proj.tip, &t.TipAmount},
		{proj.total, &t.TotalAmount},
	} {
		if *f.dst, err = strconv.ParseFloat(fields[f.idx], 64); err != nil {
			return Trip{}, fmt.Errorf("bad numeric field %q: %w", fields[f.idx], err)
		}
	}

	if t.PassengerCount, err = strconv.Atoi(fields[proj.passengers]); err != nil {
		return Trip{}, fmt.Errorf("bad passenger count %q: %w", fields[proj.passengers], err)
	}

	return t, nil
}

// cleanTrip applies the retention predicate and derives the trip duration.
// It is a pure filter: retained fields are never mutated, only
// DurationMinutes is added. A trip is retained iff its coordinates are
// non-zero, 0 < distance < 100, 0 < passengers <= 6, and the derived
// duration is in (0, 480) minutes.
func cleanTrip(t Trip) (Trip, bool) {
	if t.PickupLongitude == 0 || t.PickupLatitude == 0 ||
		t.DropoffLongitude == 0 || t.DropoffLatitude == 0 {
		return Trip{}, false
	}
	if t.TripDistance <= 0 || t.TripDistance >= 100 {
		return Trip{}, false
	}
	if t.PassengerCount <= 0 || t.PassengerCount > 6 {
		return Trip{}, false
	}

	duration := t.DropoffTime.Sub(t.PickupTime).Minutes()
	if duration <= 0 || duration >= 480 {
		return Trip{}, false
	}

	t.DurationMinutes = duration
	return t, true
}
