package tripbench

import (
	"context"
	"fmt"
	"runtime"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tripbench/tripbench/internal/pkg/benchfs"
)

// RunConfig is the explicit configuration handed to a pipeline engine.
// Parallelism caps live here, not in ambient process-wide state, so two runs
// in the same process (as in tests) cannot leak settings into each other.
type RunConfig struct {
	DataPath    string
	ResultsDir  string
	Parallelism int
	ChunkSize   int64
	TopDays     int

	// DataFS reads the dataset; OutFS receives artifacts. They differ when
	// results are shipped to remote storage.
	DataFS benchfs.FileSystem
	OutFS  benchfs.FileSystem
}

// engine is one execution strategy's implementation of the five pipeline
// stages. The harness only observes stage boundaries: whatever parallelism
// an engine uses internally is opaque to the timing instrumentation.
type engine interface {
	Name() string
	Load(ctx context.Context) error
	Clean(ctx context.Context) error
	Aggregate(ctx context.Context) error
	SortFilter(ctx context.Context) error
	Save(ctx context.Context) error

	// RowsLoaded is the dataset row count before cleaning. The lazy engine
	// back-fills it when the plan materializes during Clean.
	RowsLoaded() int64
}

// runPipeline executes the five stages in strict order, timing each one, and
// assembles the run's metrics record. No metrics are returned for a failed
// run: the first stage error aborts the pipeline.
func runPipeline(ctx context.Context, eng engine) (*MetricsRecord, error) {
	stages := []struct {
		name string
		run  func(context.Context) error
	}{
		{StageLoad, eng.Load},
		{StageClean, eng.Clean},
		{StageAggregate, eng.Aggregate},
		{StageSortFilter, eng.SortFilter},
		{StageSave, eng.Save},
	}

	record := &MetricsRecord{}
	sampler := &memSampler{}
	sampler.sample()

	start := time.Now()
	for _, stage := range stages {
		stageStart := time.Now()
		if err := stage.run(ctx); err != nil {
			return nil, fmt.Errorf("%s: %s stage: %w", eng.Name(), stage.name, err)
		}
		elapsed := time.Since(stageStart).Seconds()
		record.setStageTime(stage.name, elapsed)
		sampler.sample()
		log.Infof("%s: %s finished in %.2fs", eng.Name(), stage.name, elapsed)
	}

	// TotalTime is the measured wall-clock span of the run. The stage sum is
	// only a sanity check: stage boundaries exclude harness bookkeeping.
	record.TotalTime = time.Since(start).Seconds()
	record.RowsLoaded = eng.RowsLoaded()
	record.PeakMemoryMB = sampler.peakMB()

	log.Debugf("%s: stage sum %.3fs, wall clock %.3fs", eng.Name(), record.stageSum(), record.TotalTime)
	return record, nil
}

// memSampler tracks the high-water mark of memory obtained from the OS.
// Sampled at stage boundaries only; it is a coarse analog of the original
// harness's RSS probe, not a profiler.
type memSampler struct {
	peak uint64
}

func (m *memSampler) sample() {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	if stats.Sys > m.peak {
		m.peak = stats.Sys
	}
}

func (m *memSampler) peakMB() float64 {
	return float64(m.peak) / (1024 * 1024)
}
