package tripbench

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru"
)

// Version of the demo API surface.
const Version = "1.0.0"

// Server is the demo HTTP surface. It only serves static info and
// already-persisted metrics; the benchmark itself never requires it, and it
// never triggers a live run.
type Server struct {
	store *MetricsStore
	cache *lru.Cache
}

func NewServer(store *MetricsStore) (*Server, error) {
	// Metrics records are immutable once written, so cached reads never go
	// stale within a process lifetime.
	cache, err := lru.New(16)
	if err != nil {
		return nil, err
	}
	return &Server{store: store, cache: cache}, nil
}

// Router builds the demo endpoint routes.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/", s.handleHealth)
	router.GET("/health", s.handleHealth)
	router.GET("/info", s.handleInfo)
	router.GET("/benchmark", s.handleBenchmark)
	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "tripbench demo API",
		"version": Version,
		"endpoints": []string{
			"GET /health",
			"GET /info",
			"GET /benchmark",
			"GET /benchmark?strategy=eager",
		},
	})
}

func (s *Server) handleInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"dataset": datasetInfo(),
		"strategies": gin.H{
			StrategyEager: "single-threaded, fully materialized pipeline",
			StrategyLazy:  "deferred scan plan, parallel chunked execution",
		},
		"operations": []string{
			"CSV loading and parsing",
			"Data cleaning and validation",
			"Daily, hourly and weekday aggregation",
			"Sorting and multi-condition filtering",
			"Result persistence",
		},
	})
}

// handleBenchmark serves the persisted metrics for a strategy, or a canned
// representative payload when no run has been stored yet.
func (s *Server) handleBenchmark(c *gin.Context) {
	strategy := c.DefaultQuery("strategy", StrategyLazy)
	if _, ok := strategies[strategy]; !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown strategy: " + strategy})
		return
	}

	if cached, ok := s.cache.Get(strategy); ok {
		c.JSON(http.StatusOK, benchmarkPayload(strategy, cached.(*MetricsRecord), true))
		return
	}

	record, err := s.store.Get(strategy)
	if err != nil {
		if errors.Is(err, ErrMetricsNotFound) {
			c.JSON(http.StatusOK, benchmarkPayload(strategy, representativeMetrics(), false))
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.cache.Add(strategy, record)
	c.JSON(http.StatusOK, benchmarkPayload(strategy, record, true))
}

func benchmarkPayload(strategy string, record *MetricsRecord, live bool) gin.H {
	return gin.H{
		"strategy": strategy,
		"live":     live,
		"metrics":  record,
		"dataset":  datasetInfo(),
	}
}

func datasetInfo() gin.H {
	return gin.H{
		"name":    "NYC Yellow Taxi Data (January 2015)",
		"rows":    12748986,
		"size_mb": "~2.1 GB",
		"columns": 19,
	}
}

// representativeMetrics is the non-live payload served before any benchmark
// has been persisted.
func representativeMetrics() *MetricsRecord {
	return &MetricsRecord{
		LoadTime:       1.2,
		CleanTime:      0.8,
		AggregateTime:  0.4,
		SortFilterTime: 0.3,
		SaveTime:       0.1,
		TotalTime:      2.8,
		RowsLoaded:     12748986,
	}
}
