package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collectSums(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	totals := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					totals[m.Name] += dp.Value
				}
			}
		}
	}
	return totals
}

func TestGenerationMetrics_Records(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	m := NewGenerationMetrics(mp)
	ctx := context.Background()
	m.RecordAttempt(ctx, "gemini-2.5-flash", "failed")
	m.RecordAttempt(ctx, "gemini-2.0-flash", "succeeded")
	m.RecordGeneration(ctx, "succeeded", true, 1500*time.Millisecond)

	totals := collectSums(t, reader)
	assert.Equal(t, int64(2), totals["lesson_plan.attempts"])
	assert.Equal(t, int64(1), totals["lesson_plan.generations"])
	assert.Equal(t, int64(1), totals["lesson_plan.degraded_documents"])
}

func TestGenerationMetrics_NilSafe(t *testing.T) {
	var m *GenerationMetrics
	assert.NotPanics(t, func() {
		m.RecordAttempt(context.Background(), "x", "failed")
		m.RecordGeneration(context.Background(), "failed", false, time.Second)
	})
	assert.NotNil(t, NewGenerationMetrics(nil))
}
