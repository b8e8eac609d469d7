package tripbench

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/tripbench/tripbench/internal/pkg/benchfs"
)

// PlanBuilder accumulates the description of a deferred dataset scan:
// which file to read, how to chunk it, and how many workers may
// materialize it concurrently. Building a plan performs no I/O; all cost is
// deferred to Execute. This is what makes the lazy strategy's Load stage
// nearly free on the clock.
type PlanBuilder struct {
	path        string
	fs          benchfs.FileSystem
	chunkSize   int64
	parallelism int
}

// NewPlan starts a plan over the dataset at path.
func NewPlan(path string) *PlanBuilder {
	return &PlanBuilder{
		path:        path,
		fs:          benchfs.InferFilesystem(path),
		chunkSize:   64 * 1024 * 1024,
		parallelism: 1,
	}
}

// WithFilesystem overrides the filesystem inferred from the dataset path.
func (b *PlanBuilder) WithFilesystem(fs benchfs.FileSystem) *PlanBuilder {
	b.fs = fs
	return b
}

// WithChunkSize sets the byte size of the scan chunks handed to workers.
func (b *PlanBuilder) WithChunkSize(size int64) *PlanBuilder {
	if size > 0 {
		b.chunkSize = size
	}
	return b
}

// WithParallelism caps the number of workers materializing chunks.
func (b *PlanBuilder) WithParallelism(n int) *PlanBuilder {
	if n > 0 {
		b.parallelism = n
	}
	return b
}

// Build finalizes the plan. Like the builder, this touches nothing on disk.
func (b *PlanBuilder) Build() *Plan {
	return &Plan{
		path:        b.path,
		fs:          b.fs,
		chunkSize:   b.chunkSize,
		parallelism: b.parallelism,
	}
}

// Plan is a finalized deferred scan.
type Plan struct {
	path        string
	fs          benchfs.FileSystem
	chunkSize   int64
	parallelism int
}

// ScanResult is the materialized output of a plan: the cleaned trips and the
// number of raw rows scanned before the clean predicate was applied.
type ScanResult struct {
	Trips       []Trip
	RowsScanned int64
}

// scanChunk is a contiguous byte range of the data section of the input
// file. Offsets are inclusive.
type scanChunk struct {
	start int64
	end   int64
}

func (c scanChunk) size() int64 {
	return c.end - c.start + 1
}

// splitScanRange carves [start, end] into chunks of at most chunkSize bytes.
func splitScanRange(start, end, chunkSize int64) []scanChunk {
	chunks := make([]scanChunk, 0)
	for offset := start; offset <= end; offset += chunkSize {
		last := offset + chunkSize - 1
		if last > end {
			last = end
		}
		chunks = append(chunks, scanChunk{start: offset, end: last})
	}
	return chunks
}

type chunkResult struct {
	trips []Trip
	rows  int64
}

// Execute materializes the plan: it resolves the projection from the header,
// fans chunk scans out across at most parallelism workers, and merges the
// per-chunk results in chunk order. Parsing, filtering and the duration
// derivation are fused into the scan, so the entire load+clean cost of the
// lazy strategy is paid here.
func (p *Plan) Execute(ctx context.Context) (*ScanResult, error) {
	fInfo, err := p.fs.Stat(p.path)
	if err != nil {
		return nil, fmt.Errorf("dataset not found at %s: %w", p.path, err)
	}

	proj, dataStart, err := p.readHeader()
	if err != nil {
		return nil, err
	}
	if dataStart >= fInfo.Size {
		return &ScanResult{}, nil
	}

	chunks := splitScanRange(dataStart, fInfo.Size-1, p.chunkSize)
	log.Debugf("Scanning %s in %d chunks with %d workers", p.path, len(chunks), p.parallelism)

	results := make([]chunkResult, len(chunks))
	errs := make([]error, len(chunks))

	var wg sync.WaitGroup
	sem := semaphore.NewWeighted(int64(p.parallelism))
	for i, chunk := range chunks {
		if err := sem.Acquire(ctx, 1); err != nil {
			errs[i] = err
			break
		}
		wg.Add(1)
		go func(i int, chunk scanChunk) {
			defer wg.Done()
			defer sem.Release(1)
			results[i], errs[i] = p.scanChunk(chunk, dataStart, proj)
		}(i, chunk)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	result := &ScanResult{}
	total := 0
	for _, r := range results {
		total += len(r.trips)
	}
	result.Trips = make([]Trip, 0, total)
	for _, r := range results {
		result.Trips = append(result.Trips, r.trips...)
		result.RowsScanned += r.rows
	}
	return result, nil
}

// readHeader resolves the projected column indices and the byte offset at
// which the data section begins.
func (p *Plan) readHeader() (projection, int64, error) {
	reader, err := p.fs.OpenReader(p.path, 0)
	if err != nil {
		return projection{}, 0, fmt.Errorf("opening dataset %s: %w", p.path, err)
	}
	defer reader.Close()

	line, err := bufio.NewReader(reader).ReadString('\n')
	if err != nil && err != io.EOF {
		return projection{}, 0, fmt.Errorf("reading dataset header: %w", err)
	}
	if strings.TrimSpace(line) == "" {
		return projection{}, 0, fmt.Errorf("dataset %s has no header row", p.path)
	}

	if strings.ContainsRune(line, '"') {
		return projection{}, 0, fmt.Errorf("dataset %s uses quoted CSV fields, which the chunked scanner does not support", p.path)
	}

	proj, err := resolveProjection(splitRecordLine(line))
	if err != nil {
		return projection{}, 0, err
	}
	return proj, int64(len(line)), nil
}

// scanChunk reads the lines that begin inside the chunk, plus the one that
// begins at or straddles the chunk's end boundary. Every chunk after the
// first discards everything up to its first newline, which the previous
// chunk's overread already consumed, so each line is scanned exactly once
// even when a boundary falls on a line break.
func (p *Plan) scanChunk(chunk scanChunk, dataStart int64, proj projection) (chunkResult, error) {
	reader, err := p.fs.OpenReader(p.path, chunk.start)
	if err != nil {
		return chunkResult{}, err
	}
	defer reader.Close()

	br := bufio.NewReaderSize(reader, 256*1024)
	var consumed int64

	if chunk.start > dataStart {
		line, err := br.ReadString('\n')
		consumed += int64(len(line))
		if err == io.EOF {
			return chunkResult{}, nil
		}
		if err != nil {
			return chunkResult{}, err
		}
	}

	result := chunkResult{}
	for consumed <= chunk.size() {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			consumed += int64(len(line))
			if record := strings.TrimRight(line, "\r\n"); record != "" {
				if strings.IndexByte(record, '"') >= 0 {
					return chunkResult{}, fmt.Errorf("quoted CSV field in record %q: chunked scanning requires unquoted records", record)
				}
				result.rows++
				trip, perr := parseTrip(splitRecordLine(record), proj)
				if perr != nil {
					return chunkResult{}, perr
				}
				if cleaned, ok := cleanTrip(trip); ok {
					result.trips = append(result.trips, cleaned)
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return chunkResult{}, err
		}
	}
	return result, nil
}

// splitRecordLine splits an unquoted CSV record. The taxi exports never
// quote fields, which is what lets chunk workers split records without a
// stateful CSV parser. Records carrying a quote character are rejected
// before they reach this function.
func splitRecordLine(line string) []string {
	fields := strings.Split(strings.TrimRight(line, "\r\n"), ",")
	return fields
}
