package tripbench

import (
	"context"
	"sync"
)

// lazyEngine is the optimizing strategy. Load only constructs a deferred
// scan plan; the plan materializes when Clean forces it, with parse and
// filter fused into a parallel chunked scan. Aggregation and the derived
// counts also fan out across the configured worker cap.
type lazyEngine struct {
	cfg RunConfig

	plan        *Plan
	cleaned     []Trip
	rowsScanned int64
	aggregates  *Aggregates
	counts      DerivedCounts
	topDays     []DayBreakdown
}

func newLazyEngine(cfg RunConfig) engine {
	return &lazyEngine{cfg: cfg}
}

func (e *lazyEngine) Name() string {
	return StrategyLazy
}

// Load builds the scan plan without touching the dataset. Its measured time
// covers query construction only; the real I/O cost is attributed to Clean,
// which forces materialization. That asymmetry against the eager strategy is
// intentional and mirrors how deferred-evaluation engines report load time.
func (e *lazyEngine) Load(ctx context.Context) error {
	e.plan = NewPlan(e.cfg.DataPath).
		WithFilesystem(e.cfg.DataFS).
		WithChunkSize(e.cfg.ChunkSize).
		WithParallelism(e.cfg.Parallelism).
		Build()
	return nil
}

// Clean executes the plan. Scan, parse, filter and the duration derivation
// all happen here, so this stage carries the cost that Load deferred.
func (e *lazyEngine) Clean(ctx context.Context) error {
	result, err := e.plan.Execute(ctx)
	if err != nil {
		return err
	}
	e.cleaned = result.Trips
	e.rowsScanned = result.RowsScanned
	return nil
}

// Aggregate builds per-worker partial aggregates over segments of the
// cleaned set and merges them. Merging is order-independent for every
// accumulator, so the result is identical to a single-pass aggregation.
func (e *lazyEngine) Aggregate(ctx context.Context) error {
	segments := segmentTrips(e.cleaned, e.cfg.Parallelism)
	partials := make([]*Aggregates, len(segments))

	var wg sync.WaitGroup
	for i, segment := range segments {
		wg.Add(1)
		go func(i int, segment []Trip) {
			defer wg.Done()
			partial := newAggregates()
			for _, trip := range segment {
				partial.Add(trip)
			}
			partials[i] = partial
		}(i, segment)
	}
	wg.Wait()

	e.aggregates = newAggregates()
	for _, partial := range partials {
		e.aggregates.Merge(partial)
	}
	return nil
}

func (e *lazyEngine) SortFilter(ctx context.Context) error {
	segments := segmentTrips(e.cleaned, e.cfg.Parallelism)
	partials := make([]DerivedCounts, len(segments))

	var wg sync.WaitGroup
	for i, segment := range segments {
		wg.Add(1)
		go func(i int, segment []Trip) {
			defer wg.Done()
			partials[i] = countDerived(segment)
		}(i, segment)
	}
	wg.Wait()

	e.counts = DerivedCounts{}
	for _, partial := range partials {
		e.counts.merge(partial)
	}
	e.topDays = e.aggregates.TopDays(e.cfg.TopDays)
	return nil
}

func (e *lazyEngine) Save(ctx context.Context) error {
	return saveArtifacts(e.cfg, e.Name(), e.aggregates, e.counts, e.topDays)
}

func (e *lazyEngine) RowsLoaded() int64 {
	return e.rowsScanned
}

// segmentTrips splits trips into at most n contiguous, near-equal segments.
func segmentTrips(trips []Trip, n int) [][]Trip {
	if n < 1 {
		n = 1
	}
	if len(trips) < n {
		n = len(trips)
	}
	if n == 0 {
		return nil
	}

	segments := make([][]Trip, 0, n)
	segmentSize := (len(trips) + n - 1) / n
	for start := 0; start < len(trips); start += segmentSize {
		end := start + segmentSize
		if end > len(trips) {
			end = len(trips)
		}
		segments = append(segments, trips[start:end])
	}
	return segments
}
