package tripbench

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
)

// eagerEngine materializes the whole dataset up front and processes it in a
// single goroutine, stage by stage. It is the baseline strategy: every
// stage's cost lands in that stage's own measurement.
type eagerEngine struct {
	cfg RunConfig

	trips      []Trip
	cleaned    []Trip
	aggregates *Aggregates
	counts     DerivedCounts
	topDays    []DayBreakdown
	rowsLoaded int64
}

func newEagerEngine(cfg RunConfig) engine {
	return &eagerEngine{cfg: cfg}
}

func (e *eagerEngine) Name() string {
	return StrategyEager
}

// Load reads and decodes every row of the dataset.
func (e *eagerEngine) Load(ctx context.Context) error {
	reader, err := e.cfg.DataFS.OpenReader(e.cfg.DataPath, 0)
	if err != nil {
		return fmt.Errorf("dataset not found at %s: %w", e.cfg.DataPath, err)
	}
	defer reader.Close()

	records := csv.NewReader(bufio.NewReaderSize(reader, 1024*1024))
	records.ReuseRecord = true

	header, err := records.Read()
	if err != nil {
		return fmt.Errorf("reading dataset header: %w", err)
	}
	proj, err := resolveProjection(header)
	if err != nil {
		return err
	}

	for {
		fields, err := records.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading dataset: %w", err)
		}
		trip, err := parseTrip(fields, proj)
		if err != nil {
			return fmt.Errorf("row %d: %w", e.rowsLoaded+1, err)
		}
		e.trips = append(e.trips, trip)
		e.rowsLoaded++
	}
	return nil
}

// Clean applies the retention predicate row by row. The raw trips are
// released afterwards; only the cleaned set flows downstream.
func (e *eagerEngine) Clean(ctx context.Context) error {
	e.cleaned = make([]Trip, 0, len(e.trips))
	for _, trip := range e.trips {
		if cleaned, ok := cleanTrip(trip); ok {
			e.cleaned = append(e.cleaned, cleaned)
		}
	}
	e.trips = nil
	return nil
}

func (e *eagerEngine) Aggregate(ctx context.Context) error {
	e.aggregates = newAggregates()
	for _, trip := range e.cleaned {
		e.aggregates.Add(trip)
	}
	return nil
}

func (e *eagerEngine) SortFilter(ctx context.Context) error {
	e.counts = countDerived(e.cleaned)
	e.topDays = e.aggregates.TopDays(e.cfg.TopDays)
	return nil
}

func (e *eagerEngine) Save(ctx context.Context) error {
	return saveArtifacts(e.cfg, e.Name(), e.aggregates, e.counts, e.topDays)
}

func (e *eagerEngine) RowsLoaded() int64 {
	return e.rowsLoaded
}
