package tripbench

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/viper"

	"github.com/tripbench/tripbench/internal/pkg/benchfs"
)

// ErrMetricsNotFound is returned by MetricsStore.Get when no metrics have
// been persisted for the requested strategy.
var ErrMetricsNotFound = errors.New("metrics not found")

// MetricsStore persists one metrics record per strategy as a JSON document
// under the results directory. Each strategy's record is independent; the
// store never requires both to exist.
type MetricsStore struct {
	fs  benchfs.FileSystem
	dir string
}

func NewMetricsStore(fs benchfs.FileSystem, dir string) *MetricsStore {
	return &MetricsStore{fs: fs, dir: dir}
}

// NewDefaultStore builds a store over the configured results directory.
func NewDefaultStore() *MetricsStore {
	loadConfig()
	dir := viper.GetString("results_dir")
	return NewMetricsStore(benchfs.InferFilesystem(dir), dir)
}

// Path returns the artifact path for a strategy's metrics document.
func (s *MetricsStore) Path(strategy string) string {
	return s.fs.Join(s.dir, strategy+"_metrics.json")
}

// Put writes the record for a strategy. The document is rendered into an
// in-memory buffer first and then written through an atomic writer, so a
// failed write never leaves partial JSON behind.
func (s *MetricsStore) Put(strategy string, record *MetricsRecord) error {
	if err := writeJSONArtifact(s.fs, s.Path(strategy), record); err != nil {
		return fmt.Errorf("persisting metrics for %s: %w", strategy, err)
	}
	return nil
}

// Get reads the record persisted for a strategy. A missing document is
// reported as ErrMetricsNotFound.
func (s *MetricsStore) Get(strategy string) (*MetricsRecord, error) {
	reader, err := s.fs.OpenReader(s.Path(strategy), 0)
	if err != nil {
		return nil, fmt.Errorf("%s (%s): %w", strategy, s.Path(strategy), ErrMetricsNotFound)
	}
	defer reader.Close()

	record := &MetricsRecord{}
	if err := json.NewDecoder(reader).Decode(record); err != nil {
		return nil, fmt.Errorf("decoding metrics for %s: %w", strategy, err)
	}
	return record, nil
}
