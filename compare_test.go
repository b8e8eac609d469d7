package tripbench

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripbench/tripbench/internal/pkg/benchfs"
)

func TestSpeedup(t *testing.T) {
	assert.Equal(t, 1.0, speedup(5, 5))
	assert.Equal(t, 2.0, speedup(10, 5))
	assert.Equal(t, 0.5, speedup(5, 10))
	// A zero denominator yields 0, never an infinity
	assert.Equal(t, 0.0, speedup(5, 0))
	assert.Equal(t, 0.0, speedup(0, 0))
}

func TestComparisonTiesGoToFirstNamed(t *testing.T) {
	c := NewComparison(StrategyEager, &MetricsRecord{LoadTime: 3, TotalTime: 3},
		StrategyLazy, &MetricsRecord{LoadTime: 3, TotalTime: 3})

	row := c.Total()
	assert.Equal(t, 1.0, row.Speedup)
	assert.Equal(t, StrategyEager, row.Winner)
	assert.Equal(t, StrategyEager, c.Stages()[0].Winner)
}

func TestComparisonStageOrderAndWinners(t *testing.T) {
	a := &MetricsRecord{LoadTime: 10, CleanTime: 1, AggregateTime: 4, SortFilterTime: 2, SaveTime: 5, TotalTime: 22}
	b := &MetricsRecord{LoadTime: 1, CleanTime: 8, AggregateTime: 2, SortFilterTime: 1, SaveTime: 5, TotalTime: 17}
	c := NewComparison(StrategyEager, a, StrategyLazy, b)

	rows := c.Stages()
	require.Len(t, rows, 5)
	labels := []string{"Load", "Clean", "Aggregate", "Sort & Filter", "Save"}
	for i, row := range rows {
		assert.Equal(t, labels[i], row.Operation)
	}

	assert.Equal(t, StrategyLazy, rows[0].Winner)
	assert.Equal(t, StrategyEager, rows[1].Winner) // lazy pays the deferred I/O in Clean
	assert.Equal(t, StrategyEager, rows[4].Winner) // equal times tie to the first-named
}

func TestComparisonHeadlineNumbers(t *testing.T) {
	a := &MetricsRecord{TotalTime: 63.0, RowsLoaded: 12748986}
	b := &MetricsRecord{TotalTime: 19.1, RowsLoaded: 12748986}
	c := NewComparison(StrategyEager, a, StrategyLazy, b)

	assert.InDelta(t, 3.2984, c.TotalSpeedup(), 0.0001)
	assert.InDelta(t, 43.9, c.TimeSaved(), 0.0001)
	assert.InDelta(t, 69.68, c.EfficiencyGain(), 0.01)
}

func TestComparisonZeroTotals(t *testing.T) {
	c := NewComparison(StrategyEager, &MetricsRecord{}, StrategyLazy, &MetricsRecord{})

	assert.Zero(t, c.TotalSpeedup())
	assert.Zero(t, c.TimeSaved())
	assert.Zero(t, c.EfficiencyGain())

	var report bytes.Buffer
	c.WriteReport(&report)
	assert.Contains(t, report.String(), "N/A")
}

func TestWriteReport(t *testing.T) {
	a := &MetricsRecord{LoadTime: 12.4, CleanTime: 8.3, AggregateTime: 15.2, SortFilterTime: 9.8, SaveTime: 17.3, TotalTime: 63.0, RowsLoaded: 12748986}
	b := &MetricsRecord{LoadTime: 0.001, CleanTime: 14.2, AggregateTime: 2.1, SortFilterTime: 1.4, SaveTime: 1.399, TotalTime: 19.1, RowsLoaded: 12748986}
	c := NewComparison(StrategyEager, a, StrategyLazy, b)

	var report bytes.Buffer
	c.WriteReport(&report)
	out := report.String()

	assert.Contains(t, out, "BENCHMARK RESULTS: eager vs lazy")
	assert.Contains(t, out, "Sort & Filter")
	assert.Contains(t, out, "Overall speedup:  3.30x")
	assert.Contains(t, out, "Time saved:       43.90s")
	assert.Contains(t, out, "Efficiency gain:  69.7%")
	assert.Contains(t, out, "12,748,986")
}

func TestCompareStrategies(t *testing.T) {
	fs := &benchfs.LocalFileSystem{}
	dir := t.TempDir()
	store := NewMetricsStore(fs, dir)

	require.Nil(t, store.Put(StrategyEager, &MetricsRecord{LoadTime: 10, TotalTime: 63.0, RowsLoaded: 100}))
	require.Nil(t, store.Put(StrategyLazy, &MetricsRecord{LoadTime: 1, TotalTime: 19.1, RowsLoaded: 100}))

	var report bytes.Buffer
	comparison, err := CompareStrategies(store, fs, dir, StrategyEager, StrategyLazy, &report)
	require.Nil(t, err)
	assert.InDelta(t, 3.2984, comparison.TotalSpeedup(), 0.0001)
	assert.NotEmpty(t, report.String())

	contents, err := os.ReadFile(filepath.Join(dir, "comparison.csv"))
	require.Nil(t, err)

	lines := strings.Split(strings.TrimSpace(string(contents)), "\n")
	require.Len(t, lines, 7) // header, five stages, TOTAL
	assert.Equal(t, "Operation,eager_Time_s,lazy_Time_s,Speedup,Time_Saved_s", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "Load,"))
	assert.True(t, strings.HasPrefix(lines[6], "TOTAL,"))
}

func TestCompareStrategiesMissingRecord(t *testing.T) {
	fs := &benchfs.LocalFileSystem{}
	dir := t.TempDir()
	store := NewMetricsStore(fs, dir)

	require.Nil(t, store.Put(StrategyEager, &MetricsRecord{TotalTime: 63.0}))

	var report bytes.Buffer
	_, err := CompareStrategies(store, fs, dir, StrategyEager, StrategyLazy, &report)
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "missing metrics")

	// A failed comparison writes nothing
	assert.Empty(t, report.String())
	_, statErr := os.Stat(filepath.Join(dir, "comparison.csv"))
	assert.True(t, os.IsNotExist(statErr))
}
