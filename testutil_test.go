package tripbench

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// testHeader mirrors the full 19-column yellow taxi export header. The
// pipeline only projects a subset; the rest exercise the "unexpected
// columns are ignored" contract.
const testHeader = "VendorID,tpep_pickup_datetime,tpep_dropoff_datetime,passenger_count," +
	"trip_distance,pickup_longitude,pickup_latitude,RateCodeID,store_and_fwd_flag," +
	"dropoff_longitude,dropoff_latitude,payment_type,fare_amount,extra,mta_tax," +
	"tip_amount,tolls_amount,improvement_surcharge,total_amount"

type testTrip struct {
	pickup   string
	dropoff  string
	pax      int
	distance float64
	plon     float64
	plat     float64
	dlon     float64
	dlat     float64
	fare     float64
	tip      float64
	total    float64
}

func validTestTrip() testTrip {
	return testTrip{
		pickup:   "2015-01-15 08:30:00",
		dropoff:  "2015-01-15 09:00:00",
		pax:      1,
		distance: 2.5,
		plon:     -73.98,
		plat:     40.75,
		dlon:     -73.97,
		dlat:     40.76,
		fare:     14.5,
		tip:      2.0,
		total:    17.0,
	}
}

func (tt testTrip) record() string {
	return fmt.Sprintf("2,%s,%s,%d,%g,%g,%g,1,N,%g,%g,1,%g,0,0.5,%g,0,0.3,%g",
		tt.pickup, tt.dropoff, tt.pax, tt.distance,
		tt.plon, tt.plat, tt.dlon, tt.dlat,
		tt.fare, tt.tip, tt.total)
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
}

// writeDataset writes a synthetic dataset and returns its path.
func writeDataset(t *testing.T, trips []testTrip) string {
	t.Helper()

	lines := make([]string, 0, len(trips)+1)
	lines = append(lines, testHeader)
	for _, trip := range trips {
		lines = append(lines, trip.record())
	}

	path := filepath.Join(t.TempDir(), "tripdata.csv")
	writeFile(t, path, strings.Join(lines, "\n")+"\n")
	return path
}

// mixedDataset is the canonical 10-row scenario: 5 valid rows, 3 rows
// failing the distance predicate, 2 failing the duration predicate.
func mixedDataset(t *testing.T) string {
	t.Helper()

	trips := make([]testTrip, 0, 10)
	for i := 0; i < 5; i++ {
		valid := validTestTrip()
		valid.pickup = fmt.Sprintf("2015-01-%02d 08:30:00", 10+i)
		valid.dropoff = fmt.Sprintf("2015-01-%02d 09:00:00", 10+i)
		trips = append(trips, valid)
	}

	for _, distance := range []float64{0, 100, 150} {
		bad := validTestTrip()
		bad.distance = distance
		trips = append(trips, bad)
	}

	zeroDuration := validTestTrip()
	zeroDuration.dropoff = zeroDuration.pickup
	trips = append(trips, zeroDuration)

	tooLong := validTestTrip()
	tooLong.pickup = "2015-01-15 08:30:00"
	tooLong.dropoff = "2015-01-15 16:30:00" // exactly 480 minutes
	trips = append(trips, tooLong)

	return writeDataset(t, trips)
}
