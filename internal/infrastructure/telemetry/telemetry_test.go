package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/newsdesk/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

// setupTestTracer installs an in-memory span recorder as the global provider.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)

	ctx, span := telemetry.StartServiceSpan(context.Background(), "category", "create",
		telemetry.SpanAttrCategoryID, int64(7),
	)
	assert.NotEmpty(t, telemetry.GetTraceID(ctx))
	telemetry.RecordError(span, errors.New("boom"))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "category.create", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)

	found := false
	for _, attr := range spans[0].Attributes() {
		if string(attr.Key) == telemetry.SpanAttrCategoryID {
			found = true
			assert.Equal(t, int64(7), attr.Value.AsInt64())
		}
	}
	assert.True(t, found)
}

func TestGetTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, telemetry.GetTraceID(context.Background()))
}

func TestSetup_Disabled(t *testing.T) {
	p, err := telemetry.Setup(context.Background(), telemetry.Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, p.Enabled())
	assert.NotNil(t, p.Meter("test"))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewTaxonomyMetrics_NilMeter(t *testing.T) {
	m, err := telemetry.NewTaxonomyMetrics(nil)
	assert.ErrorIs(t, err, telemetry.ErrMeterNil)
	assert.Nil(t, m)
}

func TestTaxonomyMetrics_Counters(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(ctx) })

	m, err := telemetry.NewTaxonomyMetrics(mp.Meter("test"))
	require.NoError(t, err)

	m.TraversalTruncated(ctx, "level", 3)
	m.TraversalTruncated(ctx, "level", 4)
	m.IDsDropped(ctx, "news", 2)
	m.IDsDropped(ctx, "news", 0)
	m.CycleRejected(ctx)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	totals := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if sum, ok := md.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					totals[md.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(2), totals["taxonomy_traversal_truncated_total"])
	assert.Equal(t, int64(2), totals["taxonomy_association_dropped_ids_total"])
	assert.Equal(t, int64(1), totals["taxonomy_cycle_rejections_total"])
}

func TestProviders_BridgeLoggerDisabled(t *testing.T) {
	base := zap.NewNop()

	providers, err := telemetry.Setup(context.Background(), telemetry.Config{LogsEnabled: true}, base)
	require.NoError(t, err)
	assert.False(t, providers.Enabled())
	assert.Same(t, base, providers.BridgeLogger(base, zap.String("run_id", "r1")))

	var nilProviders *telemetry.Providers
	assert.Same(t, base, nilProviders.BridgeLogger(base))
}
