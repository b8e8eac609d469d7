package tripbench

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	pb "gopkg.in/cheggaaa/pb.v1"

	"github.com/tripbench/tripbench/internal/pkg/benchfs"
)

// RunState is the driver's position in the benchmark sequence. The sequence
// is linear; the only shortcut is skipping the cooldown when its duration is
// zero.
type RunState int

const (
	StateIdle RunState = iota
	StateRunningA
	StateCoolingDown
	StateRunningB
	StateComparing
	StateDone
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunningA:
		return "running_a"
	case StateCoolingDown:
		return "cooling_down"
	case StateRunningB:
		return "running_b"
	case StateComparing:
		return "comparing"
	case StateDone:
		return "done"
	}
	return "unknown"
}

// driverConfig configures a Driver's execution of the benchmark
type driverConfig struct {
	DataPath    string
	ResultsDir  string
	Cooldown    time.Duration
	Parallelism int
	ChunkSize   int64
	TopDays     int
}

func newDriverConfig() *driverConfig {
	loadConfig() // Load viper config from settings file(s) and environment
	return &driverConfig{
		DataPath:    viper.GetString("data_path"),
		ResultsDir:  viper.GetString("results_dir"),
		Cooldown:    cooldownDuration(),
		Parallelism: viper.GetInt("parallelism"),
		ChunkSize:   viper.GetInt64("chunk_size"),
		TopDays:     viper.GetInt("top_days"),
	}
}

// Option allows configuration of a Driver
type Option func(*driverConfig)

// WithDataPath sets the dataset location.
func WithDataPath(path string) Option {
	return func(c *driverConfig) {
		c.DataPath = path
	}
}

// WithResultsDir sets the directory receiving metrics and report artifacts.
func WithResultsDir(dir string) Option {
	return func(c *driverConfig) {
		c.ResultsDir = dir
	}
}

// WithCooldown sets the delay between the two strategy runs. A zero
// duration skips the cooldown entirely.
func WithCooldown(d time.Duration) Option {
	return func(c *driverConfig) {
		c.Cooldown = d
	}
}

// WithParallelism caps the lazy strategy's internal worker count.
func WithParallelism(n int) Option {
	return func(c *driverConfig) {
		c.Parallelism = n
	}
}

// WithChunkSize sets the lazy strategy's scan chunk size in bytes.
func WithChunkSize(size int64) Option {
	return func(c *driverConfig) {
		c.ChunkSize = size
	}
}

// WithTopDays sets how many busiest days the Sort & Filter stage surfaces.
func WithTopDays(n int) Option {
	return func(c *driverConfig) {
		c.TopDays = n
	}
}

// Driver sequences the benchmark: run the eager strategy, cool down, run
// the lazy strategy, compare. The two runs never overlap; running them
// concurrently would contend for CPU and invalidate the timings.
type Driver struct {
	config  *driverConfig
	dataFS  benchfs.FileSystem
	outFS   benchfs.FileSystem
	store   *MetricsStore
	state   RunState
	history []RunState
	out     io.Writer
}

// NewDriver creates a new Driver with the provided optional configuration
func NewDriver(options ...Option) *Driver {
	c := newDriverConfig()
	for _, f := range options {
		f(c)
	}

	if viper.GetBool("verbose") {
		log.SetLevel(log.DebugLevel)
	}
	if c.Parallelism < 1 {
		log.Warn("Configured parallelism is not positive, falling back to 1")
		c.Parallelism = 1
	}
	log.Debugf("Loaded config: %#v", c)

	outFS := benchfs.InferFilesystem(c.ResultsDir)
	return &Driver{
		config: c,
		dataFS: benchfs.InferFilesystem(c.DataPath),
		outFS:  outFS,
		store:  NewMetricsStore(outFS, c.ResultsDir),
		state:  StateIdle,
		out:    os.Stdout,
	}
}

// State reports where the driver is in the benchmark sequence.
func (d *Driver) State() RunState {
	return d.state
}

// Store exposes the metrics store backing this driver's runs.
func (d *Driver) Store() *MetricsStore {
	return d.store
}

func (d *Driver) transition(next RunState) {
	log.Debugf("driver: %s -> %s", d.state, next)
	d.state = next
	d.history = append(d.history, next)
}

// Run executes the full benchmark and returns the comparison. A failed
// strategy run aborts the sequence; metrics already persisted by an earlier
// run are left untouched.
func (d *Driver) Run(ctx context.Context) (*Comparison, error) {
	// The dataset's absence is a precondition failure: checked before any
	// stage runs, so a doomed run never writes partial metrics.
	if _, err := d.dataFS.Stat(d.config.DataPath); err != nil {
		return nil, fmt.Errorf("dataset not found at %s: %w", d.config.DataPath, err)
	}

	runID := uuid.NewString()
	log.Infof("Benchmark run %s: %s vs %s over %s (parallelism=%d)",
		runID, StrategyEager, StrategyLazy, d.config.DataPath, d.config.Parallelism)

	d.transition(StateRunningA)
	if err := d.runStrategy(ctx, StrategyEager); err != nil {
		return nil, err
	}

	// A disabled cooldown skips the state entirely rather than passing
	// through it with a zero delay.
	if d.config.Cooldown > 0 {
		d.transition(StateCoolingDown)
		d.coolDown()
	}

	d.transition(StateRunningB)
	if err := d.runStrategy(ctx, StrategyLazy); err != nil {
		return nil, err
	}

	d.transition(StateComparing)
	comparison, err := CompareStrategies(d.store, d.outFS, d.config.ResultsDir, StrategyEager, StrategyLazy, d.out)
	if err != nil {
		return nil, err
	}

	d.transition(StateDone)
	return comparison, nil
}

// runStrategy executes one full pipeline run and durably stores its metrics
// record before the driver moves on.
func (d *Driver) runStrategy(ctx context.Context, name string) error {
	factory, ok := strategies[name]
	if !ok {
		return fmt.Errorf("unknown strategy: %s", name)
	}

	cfg := RunConfig{
		DataPath:    d.config.DataPath,
		ResultsDir:  d.config.ResultsDir,
		Parallelism: d.config.Parallelism,
		ChunkSize:   d.config.ChunkSize,
		TopDays:     d.config.TopDays,
		DataFS:      d.dataFS,
		OutFS:       d.outFS,
	}

	record, err := runPipeline(ctx, factory(cfg))
	if err != nil {
		return err
	}
	if err := d.store.Put(name, record); err != nil {
		return err
	}

	log.Infof("%s: total %.2fs over %s rows", name, record.TotalTime, humanize.Comma(record.RowsLoaded))
	return nil
}

// coolDown pauses between the two runs to let the CPU shed heat, so the
// second run is not measured on a thermally throttled machine. It is a pure
// delay, cancellable only by process termination. Run does not enter the
// cooldown state when the configured duration is zero.
func (d *Driver) coolDown() {
	seconds := int(d.config.Cooldown / time.Second)
	if seconds > 0 {
		bar := pb.New(seconds).Prefix("Cooldown").Start()
		for i := 0; i < seconds; i++ {
			time.Sleep(time.Second)
			bar.Increment()
		}
		bar.Finish()
	}
	time.Sleep(d.config.Cooldown % time.Second)
}
