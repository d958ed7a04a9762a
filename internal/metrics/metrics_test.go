package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordersUpdateCollectors(t *testing.T) {
	m := New("test")
	m.RecordSwap("player", "fresa", 10)
	m.RecordSwap("npc", "uva", 2)
	m.RecordSwap("npc", "uva", 3)
	m.SetReserves("fresa-uva", "fresa", "uva", 110, 91)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Swaps.WithLabelValues("player")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Swaps.WithLabelValues("npc")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.SwapVolume.WithLabelValues("uva")))
	assert.Equal(t, 91.0, testutil.ToFloat64(m.PoolReserve.WithLabelValues("fresa-uva", "uva")))
}

func TestHandlerServesPrivateRegistry(t *testing.T) {
	m := New("test")
	m.RecordSaveFailure()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "test_persistence_save_failures_total 1"))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordSwap("player", "fresa", 1)
	m.RecordLevel(3, 1)
	m.RecordSaveFailure()
	assert.Nil(t, m.Registry())
}
