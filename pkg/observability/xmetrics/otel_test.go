package xmetrics

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// ============================================================================
// 测试辅助函数
// ============================================================================

func newTestTracerProvider(t *testing.T) (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp, recorder
}

func newTestMeterProvider(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return mp, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

// sumInt64 汇总 name 指标中满足 match 的数据点。
func sumInt64(t *testing.T, rm metricdata.ResourceMetrics, name string, match map[string]string) int64 {
	t.Helper()
	m, ok := findMetric(rm, name)
	require.True(t, ok, "metric %s not found", name)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is %T", name, m.Data)

	var total int64
	for _, dp := range sum.DataPoints {
		if attrsMatch(dp.Attributes, match) {
			total += dp.Value
		}
	}
	return total
}

func histogramCount(t *testing.T, rm metricdata.ResourceMetrics, name string) uint64 {
	t.Helper()
	m, ok := findMetric(rm, name)
	require.True(t, ok, "metric %s not found", name)
	h, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok, "metric %s is %T", name, m.Data)

	var count uint64
	for _, dp := range h.DataPoints {
		count += dp.Count
	}
	return count
}

func attrsMatch(set attribute.Set, match map[string]string) bool {
	for k, want := range match {
		v, ok := set.Value(attribute.Key(k))
		if !ok || v.AsString() != want {
			return false
		}
	}
	return true
}

// ============================================================================
// NewOTelObserver
// ============================================================================

func TestNewOTelObserver_Default(t *testing.T) {
	obs, err := NewOTelObserver()
	require.NoError(t, err)
	require.NotNil(t, obs)
}

func TestNewOTelObserver_NilOptionsIgnored(t *testing.T) {
	obs, err := NewOTelObserver(nil, WithInstrumentationName(""), WithTracerProvider(nil), WithMeterProvider(nil))
	require.NoError(t, err)
	require.NotNil(t, obs)
}

func TestOTelObserver_SpanAndMetrics(t *testing.T) {
	tp, recorder := newTestTracerProvider(t)
	mp, reader := newTestMeterProvider(t)

	obs, err := NewOTelObserver(WithTracerProvider(tp), WithMeterProvider(mp))
	require.NoError(t, err)

	ctx, span := Start(context.Background(), obs, SpanOptions{
		Component: "xwebd.server",
		Operation: "serve_conn",
		Kind:      KindServer,
		Attrs:     []Attr{String("remote_addr", "127.0.0.1:50000"), Uint64("conn_id", 42)},
	})
	assert.True(t, trace.SpanFromContext(ctx).SpanContext().IsValid())
	span.End(Result{Attrs: []Attr{Int("status", 200)}})

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "serve_conn", ended[0].Name())
	assert.Equal(t, trace.SpanKindServer, ended[0].SpanKind())
	assert.Equal(t, codes.Ok, ended[0].Status().Code)
	assert.Contains(t, ended[0].Attributes(), attribute.Int64("conn_id", 42))
	assert.Contains(t, ended[0].Attributes(), attribute.Int("status", 200))

	rm := collect(t, reader)
	assert.Equal(t, int64(1), sumInt64(t, rm, metricOperationTotal, map[string]string{
		"component": "xwebd.server",
		"operation": "serve_conn",
		"status":    "ok",
	}))
	assert.Equal(t, uint64(1), histogramCount(t, rm, metricOperationDuration))
}

func TestOTelObserver_ErrorResult(t *testing.T) {
	tp, recorder := newTestTracerProvider(t)
	mp, reader := newTestMeterProvider(t)
	obs, err := NewOTelObserver(WithTracerProvider(tp), WithMeterProvider(mp))
	require.NoError(t, err)

	_, span := obs.Start(context.Background(), SpanOptions{})
	span.End(Result{Err: errors.New("read failed")})
	// 幂等
	span.End(Result{})

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, unknownOperation, ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "read failed", ended[0].Status().Description)

	rm := collect(t, reader)
	assert.Equal(t, int64(1), sumInt64(t, rm, metricOperationTotal, map[string]string{
		"component": unknownComponent,
		"status":    "error",
	}))
}

func TestOTelObserver_ExplicitErrorStatusWithoutErr(t *testing.T) {
	tp, recorder := newTestTracerProvider(t)
	obs, err := NewOTelObserver(WithTracerProvider(tp))
	require.NoError(t, err)

	//nolint:staticcheck // 验证 nil ctx 归一化
	_, span := obs.Start(nil, SpanOptions{Operation: "op"})
	span.End(Result{Status: StatusError})

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "operation failed", ended[0].Status().Description)
}

func TestToKeyValue(t *testing.T) {
	tests := []struct {
		name string
		attr Attr
		want attribute.KeyValue
	}{
		{"string", String("k", "v"), attribute.String("k", "v")},
		{"bool", Bool("k", true), attribute.Bool("k", true)},
		{"int", Int("k", 3), attribute.Int("k", 3)},
		{"int64", Any("k", int64(4)), attribute.Int64("k", 4)},
		{"uint64 small", Uint64("k", 5), attribute.Int64("k", 5)},
		{"uint64 overflow", Uint64("k", math.MaxUint64), attribute.String("k", "18446744073709551615")},
		{"float64", Any("k", 1.5), attribute.Float64("k", 1.5)},
		{"duration", Duration("k", time.Millisecond), attribute.Int64("k", int64(time.Millisecond))},
		{"other", Any("k", []int{1}), attribute.String("k", "[1]")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, toKeyValue(tt.attr))
		})
	}
}

func TestAttrsToOTel_SkipsInvalid(t *testing.T) {
	assert.Nil(t, attrsToOTel(nil))
	got := attrsToOTel([]Attr{{Key: "", Value: "x"}, {Key: "k", Value: nil}, String("ok", "1")})
	assert.Equal(t, []attribute.KeyValue{attribute.String("ok", "1")}, got)
}
