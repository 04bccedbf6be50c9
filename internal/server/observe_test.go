package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/xwebd/pkg/observability/xmetrics"
)

func TestServer_Observability(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	obs, err := xmetrics.NewOTelObserver(xmetrics.WithTracerProvider(tp), xmetrics.WithMeterProvider(mp))
	require.NoError(t, err)
	poolObs, err := xmetrics.NewPoolObserver(xmetrics.WithMeterProvider(mp))
	require.NoError(t, err)

	rs := startServer(t, testConfig(t), WithObserver(obs), WithPoolObserver(poolObs))
	roundTrip(t, rs.addr, "GET / HTTP/1.1\r\n\r\n")
	roundTrip(t, rs.addr, "GET /missing HTTP/1.1\r\n\r\n")
	rs.stop(t)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	routes := map[string]int64{}
	for _, s := range spans {
		assert.Equal(t, opServeConn, s.Name())
		assert.Equal(t, trace.SpanKindServer, s.SpanKind())
		attrs := attribute.NewSet(s.Attributes()...)
		route, ok := attrs.Value("route")
		require.True(t, ok)
		status, ok := attrs.Value("status")
		require.True(t, ok)
		routes[route.AsString()] = status.AsInt64()
	}
	assert.Equal(t, map[string]int64{"index": 200, "not_found": 404}, routes)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	assert.Equal(t, int64(2), poolTasks(rm, xmetrics.ResultCompleted))
}

// poolTasks 汇总 xwebd.pool.tasks 中指定 result 的计数。
func poolTasks(rm metricdata.ResourceMetrics, result string) int64 {
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "xwebd.pool.tasks" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				if v, ok := dp.Attributes.Value("result"); ok && v.AsString() == result {
					total += dp.Value
				}
			}
		}
	}
	return total
}
