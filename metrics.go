package tripbench

// Stage names, in fixed execution order. These double as the lowercase
// snake-case key prefixes of the persisted metrics document.
const (
	StageLoad       = "load"
	StageClean      = "clean"
	StageAggregate  = "aggregate"
	StageSortFilter = "sort_filter"
	StageSave       = "save"
)

// stageOrder is the strict order in which the pipeline executes its stages,
// and the order in which every report lists them.
var stageOrder = []string{StageLoad, StageClean, StageAggregate, StageSortFilter, StageSave}

// MetricsRecord is the structured output of one complete pipeline run under
// one strategy. All durations are in seconds. A record is created fresh per
// run, written once to the metrics store when the run's clock stops, and
// immutable thereafter.
type MetricsRecord struct {
	LoadTime       float64 `json:"load_time"`
	CleanTime      float64 `json:"clean_time"`
	AggregateTime  float64 `json:"aggregate_time"`
	SortFilterTime float64 `json:"sort_filter_time"`
	SaveTime       float64 `json:"save_time"`
	TotalTime      float64 `json:"total_time"`
	RowsLoaded     int64   `json:"rows_loaded"`
	PeakMemoryMB   float64 `json:"peak_memory_mb,omitempty"`
}

func (m *MetricsRecord) setStageTime(stage string, seconds float64) {
	switch stage {
	case StageLoad:
		m.LoadTime = seconds
	case StageClean:
		m.CleanTime = seconds
	case StageAggregate:
		m.AggregateTime = seconds
	case StageSortFilter:
		m.SortFilterTime = seconds
	case StageSave:
		m.SaveTime = seconds
	}
}

// StageTime returns the recorded duration for a named stage.
func (m *MetricsRecord) StageTime(stage string) float64 {
	switch stage {
	case StageLoad:
		return m.LoadTime
	case StageClean:
		return m.CleanTime
	case StageAggregate:
		return m.AggregateTime
	case StageSortFilter:
		return m.SortFilterTime
	case StageSave:
		return m.SaveTime
	}
	return 0
}

// stageSum is the sum of the five stage durations. TotalTime is a measured
// wall-clock span, so stageSum is a sanity check against it, never asserted
// equal to it.
func (m *MetricsRecord) stageSum() float64 {
	sum := 0.0
	for _, stage := range stageOrder {
		sum += m.StageTime(stage)
	}
	return sum
}

// Throughput returns rows processed per second over the whole run, or 0 when
// the total time is zero.
func (m *MetricsRecord) Throughput() float64 {
	if m.TotalTime <= 0 {
		return 0
	}
	return float64(m.RowsLoaded) / m.TotalTime
}
