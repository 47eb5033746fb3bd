package observability

import (
	"context"
	"testing"
	"time"

	"crptapi/internal/models"
	"crptapi/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// useManualReader installs a meter provider backed by a manual reader for
// the duration of the test.
func useManualReader(t *testing.T) *sdkmetric.ManualReader {
	t.Helper()
	previous := otel.GetMeterProvider()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(mp)
	t.Cleanup(func() {
		_ = mp.Shutdown(context.Background())
		otel.SetMeterProvider(previous)
	})
	return reader
}

func setupMemoryStorage(t *testing.T) storage.Storage {
	t.Helper()
	s, err := storage.NewMemoryStorage(storage.Config{Type: models.StorageTypeMemory})
	require.NoError(t, err)
	return s
}

func TestInstrumentedStorage_PassesThrough(t *testing.T) {
	_ = useManualReader(t)
	instrumented, err := NewInstrumentedStorage(setupMemoryStorage(t))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, instrumented.Ping(ctx))

	rec := &models.DocumentRecord{ID: "doc-1", ProductGroup: models.ProductGroupMilk, CreatedAt: time.Now()}
	require.NoError(t, instrumented.SaveDocument(ctx, rec))

	got, err := instrumented.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, models.ProductGroupMilk, got.ProductGroup)

	docs, err := instrumented.Documents(ctx, storage.Filter{ProductGroup: models.ProductGroupMilk})
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	assert.NoError(t, instrumented.Close())
}

func TestInstrumentedStorage_ErrorRecording(t *testing.T) {
	reader := useManualReader(t)
	instrumented, err := NewInstrumentedStorage(setupMemoryStorage(t))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = instrumented.GetDocument(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Error(t, instrumented.SaveDocument(ctx, nil))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	errs := findMetric(t, rm, "storage.operation.errors")
	sum, ok := errs.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	byOp := make(map[string]int64)
	for _, dp := range sum.DataPoints {
		op, _ := dp.Attributes.Value("operation")
		byOp[op.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"GetDocument": 1, "SaveDocument": 1}, byOp)

	hist, ok := findMetric(t, rm, "storage.operation.duration").Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.Len(t, hist.DataPoints, 2)
}

func TestInstrumentedStorage_ImplementsInterface(t *testing.T) {
	var _ storage.Storage = (*InstrumentedStorage)(nil)
}
