package metrics

import (
	"testing"
	stdErrors "errors"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestObserveRequestCountsSuccessAndError(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRequest("set", nil)
	m.ObserveRequest("set", stdErrors.New("boom"))

	require.Equal(t, float64(2), counterValue(t, m.RequestsTotal.WithLabelValues("set")))
	require.Equal(t, float64(1), counterValue(t, m.RequestErrors.WithLabelValues("set")))
}

func TestObserveCompaction(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveCompaction(1024)

	require.Equal(t, float64(1), counterValue(t, m.CompactionsTotal))
	require.Equal(t, float64(1024), counterValue(t, m.BytesReclaimed))
}
