package tripbench

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/mattetti/filebuffer"

	"github.com/tripbench/tripbench/internal/pkg/benchfs"
)

// runSummary is the per-strategy summary document persisted by the Save
// stage, mirroring the aggregate artifacts with a handful of headline
// figures and the derived predicate counts.
type runSummary struct {
	TotalRows       int64            `json:"total_rows"`
	TotalDistance   float64          `json:"total_distance"`
	AvgTripDistance float64          `json:"avg_trip_distance"`
	TotalRevenue    float64          `json:"total_revenue"`
	AvgFare         float64          `json:"avg_fare"`
	DateRange       dateRange        `json:"date_range"`
	DerivedCounts   DerivedCounts    `json:"derived_counts"`
	PassengerDist   map[string]int64 `json:"passenger_distribution"`
	TopDays         []DayBreakdown   `json:"top_days"`
}

type dateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// saveArtifacts persists the aggregate tables and the summary document for
// one strategy's run. Each artifact write is atomic; a failure here fails
// the run's Save stage.
func saveArtifacts(cfg RunConfig, name string, aggs *Aggregates, counts DerivedCounts, topDays []DayBreakdown) error {
	fs := cfg.OutFS

	dailyRows := make([][]string, 0, len(aggs.Daily))
	for _, day := range aggs.Days() {
		g := aggs.Daily[day]
		dailyRows = append(dailyRows, []string{
			day,
			formatInt(g.Count),
			formatFloat(g.DistanceSum),
			formatFloat(g.DistanceMean()),
			formatFloat(g.DistanceStd()),
			formatFloat(g.DurationSum),
			formatFloat(g.DurationMean()),
			formatFloat(g.PassengerSum),
			formatFloat(g.PassengerMean()),
			formatFloat(g.FareSum),
			formatFloat(g.FareMean()),
			formatFloat(g.FareStd()),
		})
	}
	err := writeTable(fs, fs.Join(cfg.ResultsDir, name+"_daily_stats.csv"),
		[]string{
			"date", "trip_count",
			"distance_sum", "distance_mean", "distance_std",
			"duration_sum", "duration_mean",
			"passenger_sum", "passenger_mean",
			"fare_sum", "fare_mean", "fare_std",
		}, dailyRows)
	if err != nil {
		return err
	}

	hourlyRows := make([][]string, 0, len(aggs.Hourly))
	for hour := range aggs.Hourly {
		g := &aggs.Hourly[hour]
		if g.Count == 0 {
			continue
		}
		hourlyRows = append(hourlyRows, []string{
			strconv.Itoa(hour),
			formatInt(g.Count),
			formatFloat(g.DistanceMean()),
			formatFloat(g.DurationMean()),
			formatFloat(g.FareMean()),
			formatFloat(g.PassengerMean()),
		})
	}
	err = writeTable(fs, fs.Join(cfg.ResultsDir, name+"_hourly_stats.csv"),
		[]string{"hour", "trip_count", "distance_mean", "duration_mean", "fare_mean", "passenger_mean"},
		hourlyRows)
	if err != nil {
		return err
	}

	weekdayRows := make([][]string, 0, len(aggs.Weekday))
	for weekday := range aggs.Weekday {
		g := &aggs.Weekday[weekday]
		if g.Count == 0 {
			continue
		}
		weekdayRows = append(weekdayRows, []string{
			weekdayName(weekday),
			formatInt(g.Count),
			formatFloat(g.DistanceMean()),
			formatFloat(g.FareMean()),
		})
	}
	err = writeTable(fs, fs.Join(cfg.ResultsDir, name+"_weekday_stats.csv"),
		[]string{"weekday", "trip_count", "distance_mean", "fare_mean"},
		weekdayRows)
	if err != nil {
		return err
	}

	// The distance analysis lists every bin, occupied or not.
	distanceRows := make([][]string, 0, len(aggs.Distance))
	for i := range aggs.Distance {
		g := &aggs.Distance[i]
		distanceRows = append(distanceRows, []string{
			distanceBins[i].label,
			formatInt(g.Count),
			formatFloat(g.FareMean()),
			formatFloat(g.DurationMean()),
		})
	}
	err = writeTable(fs, fs.Join(cfg.ResultsDir, name+"_distance_analysis.csv"),
		[]string{"distance_bin", "trip_count", "fare_mean", "duration_mean"},
		distanceRows)
	if err != nil {
		return err
	}

	passengerDist := make(map[string]int64)
	for count, trips := range aggs.Passengers {
		if trips > 0 {
			passengerDist[strconv.Itoa(count)] = trips
		}
	}

	summary := runSummary{
		TotalRows:       aggs.Global.Count,
		TotalDistance:   aggs.Global.DistanceSum,
		AvgTripDistance: aggs.Global.DistanceMean(),
		TotalRevenue:    aggs.Global.FareSum,
		AvgFare:         aggs.Global.FareMean(),
		DerivedCounts:   counts,
		PassengerDist:   passengerDist,
		TopDays:         topDays,
	}
	if !aggs.FirstPickup.IsZero() {
		summary.DateRange = dateRange{
			Start: aggs.FirstPickup.Format(pickupTimeLayout),
			End:   aggs.LastPickup.Format(pickupTimeLayout),
		}
	}
	return writeJSONArtifact(fs, fs.Join(cfg.ResultsDir, name+"_summary.json"), summary)
}

// writeTable persists a tabular artifact as CSV through an atomic writer.
func writeTable(fs benchfs.FileSystem, path string, header []string, rows [][]string) error {
	writer, err := fs.OpenWriter(path)
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	table := csv.NewWriter(writer)
	table.Write(header)
	for _, row := range rows {
		table.Write(row)
	}
	table.Flush()
	if err := table.Error(); err != nil {
		writer.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return writer.Close()
}

// writeJSONArtifact renders v into an in-memory buffer and writes it out in
// one pass, so a marshalling failure never produces a partial document.
func writeJSONArtifact(fs benchfs.FileSystem, path string, v interface{}) error {
	buf := filebuffer.New(nil)
	encoder := json.NewEncoder(buf)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if _, err := buf.Seek(0, io.SeekStart); err != nil {
		return err
	}

	writer, err := fs.OpenWriter(path)
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if _, err := io.Copy(writer, buf); err != nil {
		writer.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return writer.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

var weekdayNames = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

func weekdayName(weekday int) string {
	return weekdayNames[weekday]
}
