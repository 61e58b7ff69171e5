package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceSnapshot(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/listings/search", 200, 20*time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.ObserveDBQuery("search_fetch", 5*time.Millisecond)
	m.ObserveSearch(SearchOutcomeOK, 200, 12, true)
	m.ObserveSearch(SearchOutcomeDegraded, 0, 0, false)

	snap := m.Snapshot()
	assert.EqualValues(t, 1, snap.RequestsTotal)
	assert.InDelta(t, 0.5, snap.CacheHitRatio, 0.0001)
	assert.EqualValues(t, 2, snap.SearchesTotal)
	assert.EqualValues(t, 1, snap.SearchesDegraded)
	assert.EqualValues(t, 1, snap.SearchesCapped)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `listing_search_total{outcome="degraded"} 1`)
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveSearch(SearchOutcomeOK, 1, 1, false)
	m.ObserveDBQuery("x", time.Millisecond)
	assert.Equal(t, 0, m.Snapshot().Goroutines)
}
