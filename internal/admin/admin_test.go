package admin

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dreamerlzl/ignitekv/internal/boltengine"
	"github.com/dreamerlzl/ignitekv/internal/kvs"
	"github.com/dreamerlzl/ignitekv/internal/metrics"
	"github.com/dreamerlzl/ignitekv/pkg/options"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRouterServer(t *testing.T, eng interface {
	Set(string, string) error
	Get(string) (string, error)
	Remove(string) error
	Close() error
}, reg *prometheus.Registry) *httptest.Server {
	t.Helper()
	srv := New("127.0.0.1:0", eng, reg)
	return httptest.NewServer(srv.http.Handler)
}

func TestHealthzReportsOK(t *testing.T) {
	opts := options.NewDefaultOptions()
	opts.DataDir = t.TempDir()
	opts.CompactInterval = time.Hour
	opts.SegmentOptions.RotationThreshold = options.MinRotationThreshold

	eng, err := kvs.Open(&opts, zap.NewNop().Sugar())
	require.NoError(t, err)
	defer eng.Close()

	ts := newRouterServer(t, eng, prometheus.NewRegistry())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStatsReportsSegmentInfoForLogEngine(t *testing.T) {
	opts := options.NewDefaultOptions()
	opts.DataDir = t.TempDir()
	opts.CompactInterval = time.Hour
	opts.SegmentOptions.RotationThreshold = options.MinRotationThreshold

	eng, err := kvs.Open(&opts, zap.NewNop().Sugar())
	require.NoError(t, err)
	defer eng.Close()
	require.NoError(t, eng.Set("a", "1"))

	ts := newRouterServer(t, eng, prometheus.NewRegistry())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body statsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotNil(t, body.Keys)
	require.Equal(t, 1, *body.Keys)
}

func TestStatsDegradesGracefullyForBoltEngine(t *testing.T) {
	eng, err := boltengine.Open(t.TempDir(), zap.NewNop().Sugar())
	require.NoError(t, err)
	defer eng.Close()

	ts := newRouterServer(t, eng, prometheus.NewRegistry())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body statsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Nil(t, body.Keys)
}

func TestMetricsEndpointServesCollectorsRegisteredOnTheSameRegistry(t *testing.T) {
	eng, err := boltengine.Open(t.TempDir(), zap.NewNop().Sugar())
	require.NoError(t, err)
	defer eng.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.ObserveRequest("set", nil)

	ts := newRouterServer(t, eng, reg)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(body), `ignitekv_requests_total{op="set"} 1`),
		"expected /metrics to serve the counter registered on reg, got:\n%s", body)
}
