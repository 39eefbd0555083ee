package rohcmetrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveCompressorStats(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg, "test_comp")

	ObserveCompressorStats(r, 1, 2, 10, 0, 13, 40, 100)

	assert.Equal(t, float64(1), counterValue(t, r.IRSent))
	assert.Equal(t, float64(2), counterValue(t, r.IRDynSent))
	assert.Equal(t, float64(10), counterValue(t, r.UOSent))
	assert.Equal(t, float64(60), counterValue(t, r.BytesSaved))
}

func TestObserveDecompressorStats(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg, "test_decomp")

	ObserveDecompressorStats(r, 3, 1, 5)

	assert.Equal(t, float64(3), counterValue(t, r.CRCFailures))
	assert.Equal(t, float64(1), counterValue(t, r.Repairs))
	assert.Equal(t, float64(5), counterValue(t, r.Lost))
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}
