package tripbench

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T) (*Server, *MetricsStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := testStore(t)
	server, err := NewServer(store)
	require.Nil(t, err)
	return server, store
}

func serveRequest(t *testing.T, server *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp := httptest.NewRecorder()
	server.Router().ServeHTTP(resp, req)
	return resp
}

func TestServerHealth(t *testing.T) {
	server, _ := testServer(t)

	for _, path := range []string{"/", "/health"} {
		resp := serveRequest(t, server, path)
		assert.Equal(t, http.StatusOK, resp.Code, path)
		assert.Contains(t, resp.Body.String(), "healthy", path)
		assert.Contains(t, resp.Body.String(), Version, path)
	}
}

func TestServerInfo(t *testing.T) {
	server, _ := testServer(t)

	resp := serveRequest(t, server, "/info")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), StrategyEager)
	assert.Contains(t, resp.Body.String(), StrategyLazy)
}

func TestServerBenchmarkBeforeAnyRun(t *testing.T) {
	server, _ := testServer(t)

	resp := serveRequest(t, server, "/benchmark")
	require.Equal(t, http.StatusOK, resp.Code)

	var payload struct {
		Strategy string        `json:"strategy"`
		Live     bool          `json:"live"`
		Metrics  MetricsRecord `json:"metrics"`
	}
	require.Nil(t, json.Unmarshal(resp.Body.Bytes(), &payload))

	// With no persisted metrics the representative payload is served
	assert.Equal(t, StrategyLazy, payload.Strategy)
	assert.False(t, payload.Live)
	assert.Equal(t, int64(12748986), payload.Metrics.RowsLoaded)
}

func TestServerBenchmarkServesPersistedMetrics(t *testing.T) {
	server, store := testServer(t)
	require.Nil(t, store.Put(StrategyEager, &MetricsRecord{TotalTime: 63.0, RowsLoaded: 10}))

	var payload struct {
		Live    bool          `json:"live"`
		Metrics MetricsRecord `json:"metrics"`
	}

	// Served from the store first, then from the cache
	for i := 0; i < 2; i++ {
		resp := serveRequest(t, server, "/benchmark?strategy=eager")
		require.Equal(t, http.StatusOK, resp.Code)
		require.Nil(t, json.Unmarshal(resp.Body.Bytes(), &payload))
		assert.True(t, payload.Live)
		assert.Equal(t, 63.0, payload.Metrics.TotalTime)
		assert.Equal(t, int64(10), payload.Metrics.RowsLoaded)
	}
	assert.Equal(t, 1, server.cache.Len())
}

func TestServerBenchmarkUnknownStrategy(t *testing.T) {
	server, _ := testServer(t)

	resp := serveRequest(t, server, "/benchmark?strategy=turbo")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "turbo")
}
