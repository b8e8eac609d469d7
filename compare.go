package tripbench

import (
	"fmt"
	"io"
	"strings"

	humanize "github.com/dustin/go-humanize"

	"github.com/tripbench/tripbench/internal/pkg/benchfs"
)

// comparisonOperations maps report labels onto stage keys, in the fixed
// order every report uses.
var comparisonOperations = []struct {
	label string
	stage string
}{
	{"Load", StageLoad},
	{"Clean", StageClean},
	{"Aggregate", StageAggregate},
	{"Sort & Filter", StageSortFilter},
	{"Save", StageSave},
}

// StageComparison is one row of the comparison table.
type StageComparison struct {
	Operation string
	TimeA     float64
	TimeB     float64
	Speedup   float64
	TimeSaved float64
	Winner    string
}

// Comparison relates two named metrics records. It only ever reads the
// records; the runs that produced them own them.
type Comparison struct {
	NameA string
	NameB string
	A     *MetricsRecord
	B     *MetricsRecord
}

func NewComparison(nameA string, a *MetricsRecord, nameB string, b *MetricsRecord) *Comparison {
	return &Comparison{NameA: nameA, A: a, NameB: nameB, B: b}
}

// speedup is timeA/timeB, reported as 0 when the denominator is exactly 0
// rather than raising or producing an infinity.
func speedup(timeA, timeB float64) float64 {
	if timeB == 0 {
		return 0
	}
	return timeA / timeB
}

func (c *Comparison) compare(label string, timeA, timeB float64) StageComparison {
	// Ties go to the first-named strategy, deterministically.
	winner := c.NameA
	if timeB < timeA {
		winner = c.NameB
	}
	return StageComparison{
		Operation: label,
		TimeA:     timeA,
		TimeB:     timeB,
		Speedup:   speedup(timeA, timeB),
		TimeSaved: timeA - timeB,
		Winner:    winner,
	}
}

// Stages returns the per-stage comparison rows in fixed stage order.
func (c *Comparison) Stages() []StageComparison {
	rows := make([]StageComparison, 0, len(comparisonOperations))
	for _, op := range comparisonOperations {
		rows = append(rows, c.compare(op.label, c.A.StageTime(op.stage), c.B.StageTime(op.stage)))
	}
	return rows
}

// Total returns the comparison row for the whole-run wall-clock times.
func (c *Comparison) Total() StageComparison {
	return c.compare("Total", c.A.TotalTime, c.B.TotalTime)
}

// TotalSpeedup is the overall speedup of strategy B over strategy A.
func (c *Comparison) TotalSpeedup() float64 {
	return speedup(c.A.TotalTime, c.B.TotalTime)
}

// TimeSaved is the absolute total time difference, A minus B.
func (c *Comparison) TimeSaved() float64 {
	return c.A.TotalTime - c.B.TotalTime
}

// EfficiencyGain is the time saved as a percentage of strategy A's total.
func (c *Comparison) EfficiencyGain() float64 {
	if c.A.TotalTime == 0 {
		return 0
	}
	return c.TimeSaved() / c.A.TotalTime * 100
}

func formatSpeedup(s float64) string {
	if s == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.2fx", s)
}

// WriteReport renders the console comparison table and summary.
func (c *Comparison) WriteReport(w io.Writer) {
	rule := strings.Repeat("=", 72)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, " BENCHMARK RESULTS: %s vs %s\n", c.NameA, c.NameB)
	fmt.Fprintln(w, rule)

	fmt.Fprintf(w, "%-16s %12s %12s %10s %10s\n",
		"Operation", c.NameA+" (s)", c.NameB+" (s)", "Speedup", "Winner")
	fmt.Fprintln(w, strings.Repeat("-", 72))
	for _, row := range append(c.Stages(), c.Total()) {
		fmt.Fprintf(w, "%-16s %12.3f %12.3f %10s %10s\n",
			row.Operation, row.TimeA, row.TimeB, formatSpeedup(row.Speedup), row.Winner)
	}
	fmt.Fprintln(w, strings.Repeat("-", 72))

	fmt.Fprintf(w, "Overall speedup:  %s\n", formatSpeedup(c.TotalSpeedup()))
	fmt.Fprintf(w, "Time saved:       %.2fs\n", c.TimeSaved())
	fmt.Fprintf(w, "Efficiency gain:  %.1f%%\n", c.EfficiencyGain())

	for _, side := range []struct {
		name   string
		record *MetricsRecord
	}{
		{c.NameA, c.A},
		{c.NameB, c.B},
	} {
		if side.record.RowsLoaded > 0 && side.record.TotalTime > 0 {
			fmt.Fprintf(w, "Throughput (%s): %s rows (%s rows/s)\n",
				side.name,
				humanize.Comma(side.record.RowsLoaded),
				humanize.Comma(int64(side.record.Throughput())))
		}
	}
	fmt.Fprintln(w, rule)
}

// WriteCSV persists the comparison table, one row per stage plus a TOTAL
// row, mirroring the console report.
func (c *Comparison) WriteCSV(fs benchfs.FileSystem, path string) error {
	header := []string{
		"Operation",
		c.NameA + "_Time_s",
		c.NameB + "_Time_s",
		"Speedup",
		"Time_Saved_s",
	}

	rows := make([][]string, 0, len(comparisonOperations)+1)
	for _, row := range c.Stages() {
		rows = append(rows, []string{
			row.Operation,
			formatFloat(row.TimeA),
			formatFloat(row.TimeB),
			formatFloat(row.Speedup),
			formatFloat(row.TimeSaved),
		})
	}
	total := c.Total()
	rows = append(rows, []string{
		"TOTAL",
		formatFloat(total.TimeA),
		formatFloat(total.TimeB),
		formatFloat(total.Speedup),
		formatFloat(total.TimeSaved),
	})

	return writeTable(fs, path, header, rows)
}

// CompareStrategies loads both strategies' persisted metrics, writes the
// console report to out, and persists the comparison table. If either record
// is missing the comparison fails before anything is written.
func CompareStrategies(store *MetricsStore, fs benchfs.FileSystem, resultsDir, nameA, nameB string, out io.Writer) (*Comparison, error) {
	recordA, err := store.Get(nameA)
	if err != nil {
		return nil, fmt.Errorf("missing metrics: %w", err)
	}
	recordB, err := store.Get(nameB)
	if err != nil {
		return nil, fmt.Errorf("missing metrics: %w", err)
	}

	comparison := NewComparison(nameA, recordA, nameB, recordB)
	comparison.WriteReport(out)

	if err := comparison.WriteCSV(fs, fs.Join(resultsDir, "comparison.csv")); err != nil {
		return nil, err
	}
	return comparison, nil
}

// CompareStored compares the two default strategies' persisted metrics from
// the configured results directory, without running anything.
func CompareStored(out io.Writer) (*Comparison, error) {
	store := NewDefaultStore()
	return CompareStrategies(store, store.fs, store.dir, StrategyEager, StrategyLazy, out)
}
