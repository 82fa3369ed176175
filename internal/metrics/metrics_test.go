package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveFetch(t *testing.T) {
	before := testutil.ToFloat64(fetchesTotal.WithLabelValues("test-chart", "200"))
	beforeBytes := testutil.ToFloat64(fetchBytesTotal.WithLabelValues("test-chart"))

	ObserveFetch("test-chart", "200", 512, 150*time.Millisecond)
	ObserveFetch("test-chart", "network", 0, time.Second)

	assert.InDelta(t, before+1, testutil.ToFloat64(fetchesTotal.WithLabelValues("test-chart", "200")), 0.001)
	assert.InDelta(t, beforeBytes+512, testutil.ToFloat64(fetchBytesTotal.WithLabelValues("test-chart")), 0.001)
	assert.GreaterOrEqual(t, testutil.ToFloat64(fetchesTotal.WithLabelValues("test-chart", "network")), 1.0)
}

func TestObserveExtractionAndStore(t *testing.T) {
	beforeEntries := testutil.ToFloat64(entriesExtractedTotal.WithLabelValues("extract-chart"))
	beforeSkipped := testutil.ToFloat64(rowsSkippedTotal.WithLabelValues("extract-chart"))

	ObserveExtraction("extract-chart", 100, 2)
	ObserveExtraction("extract-chart", 0, 0)
	SetStoreEntries("extract-chart", 4200)

	assert.InDelta(t, beforeEntries+100, testutil.ToFloat64(entriesExtractedTotal.WithLabelValues("extract-chart")), 0.001)
	assert.InDelta(t, beforeSkipped+2, testutil.ToFloat64(rowsSkippedTotal.WithLabelValues("extract-chart")), 0.001)
	assert.InDelta(t, 4200, testutil.ToFloat64(storeEntries.WithLabelValues("extract-chart")), 0.001)
}

func TestRouterServesMetricsAndHealth(t *testing.T) {
	srv := httptest.NewServer(NewRouter())
	t.Cleanup(srv.Close)

	SetStoreEntries("router-chart", 3)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `billboard_store_entries{chart="router-chart"} 3`)

	assert.GreaterOrEqual(t, testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "200")), 1.0)
}

func TestMiddlewareRecordsStatus(t *testing.T) {
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodPost, "418"))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/brew", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.InDelta(t, before+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodPost, "418")), 0.001)
}

func TestStartAndShutdown(t *testing.T) {
	s, err := Start("127.0.0.1:0", nil)
	require.NoError(t, err)

	resp, err := http.Get("http://" + s.Addr() + "/healthz")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
}
