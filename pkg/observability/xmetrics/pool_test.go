package xmetrics

import (
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xwebd/pkg/util/xpool"
)

func TestPoolObserver_RecordsLifecycle(t *testing.T) {
	mp, reader := newTestMeterProvider(t)
	obs, err := NewPoolObserver(WithMeterProvider(mp))
	require.NoError(t, err)

	pool, err := xpool.New(2,
		xpool.WithName("conn"),
		xpool.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		xpool.WithObserver(obs),
	)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(5)
	for i := range 5 {
		require.NoError(t, pool.Submit(func() {
			defer wg.Done()
			if i == 0 {
				panic("boom")
			}
			if i == 1 {
				runtime.Goexit()
			}
			time.Sleep(time.Millisecond)
		}))
	}
	wg.Wait()
	require.NoError(t, pool.Close())
	assert.ErrorIs(t, pool.Submit(func() {}), xpool.ErrPoolClosed)

	rm := collect(t, reader)
	byResult := func(result string) int64 {
		return sumInt64(t, rm, metricPoolTasks, map[string]string{"pool": "conn", "result": result})
	}
	assert.Equal(t, int64(5), byResult(ResultSubmitted))
	assert.Equal(t, int64(5), byResult(ResultCompleted))
	assert.Equal(t, int64(1), byResult(ResultPanicked))
	assert.Equal(t, int64(1), sumInt64(t, rm, metricPoolTasks, map[string]string{
		"result": ResultRejected,
		"reason": "closed",
	}))
	assert.Equal(t, uint64(5), histogramCount(t, rm, metricPoolTaskDuration))
	assert.Equal(t, int64(0), sumInt64(t, rm, metricPoolBusy, nil))
	assert.Equal(t, int64(0), sumInt64(t, rm, metricPoolWorkers, nil))
	assert.Equal(t, int64(1), sumInt64(t, rm, metricPoolRespawns, nil))
}

func TestPoolObserver_WorkersGauge(t *testing.T) {
	mp, reader := newTestMeterProvider(t)
	obs, err := NewPoolObserver(WithMeterProvider(mp))
	require.NoError(t, err)

	pool, err := xpool.New(3, xpool.WithObserver(obs), xpool.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })

	rm := collect(t, reader)
	assert.Equal(t, int64(3), sumInt64(t, rm, metricPoolWorkers, nil))
}

func TestRejectReason(t *testing.T) {
	assert.Equal(t, "closed", rejectReason(xpool.ErrPoolClosed))
	assert.Equal(t, "queue_full", rejectReason(fmt.Errorf("wrap: %w", xpool.ErrQueueFull)))
	assert.Equal(t, "unknown", rejectReason(nil))
}
