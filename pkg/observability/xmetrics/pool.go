package xmetrics

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/omeyang/xwebd/pkg/util/xpool"
)

const (
	metricPoolTasks        = "xwebd.pool.tasks"
	metricPoolTaskDuration = "xwebd.pool.task.duration"
	metricPoolBusy         = "xwebd.pool.busy"
	metricPoolWorkers      = "xwebd.pool.workers"
	metricPoolRespawns     = "xwebd.pool.respawns"
)

// 任务计数的 result 属性取值。
const (
	ResultSubmitted = "submitted"
	ResultCompleted = "completed"
	ResultPanicked  = "panicked"
	ResultRejected  = "rejected"
)

type poolObserver struct {
	tasks    metric.Int64Counter
	duration metric.Float64Histogram
	busy     metric.Int64UpDownCounter
	workers  metric.Int64UpDownCounter
	respawns metric.Int64Counter
}

// NewPoolObserver 创建把 xpool 事件记录为 OTel 指标的 xpool.Observer。
//
// 记录的指标：
//   - xwebd.pool.tasks：按 result 区分的任务计数（submitted/completed/panicked/rejected）
//   - xwebd.pool.task.duration：任务执行耗时（秒）
//   - xwebd.pool.busy：正在执行任务的 worker 数
//   - xwebd.pool.workers：存活的 worker 数
//   - xwebd.pool.respawns：因 runtime.Goexit 补位的次数
//
// 只使用 Option 中的 MeterProvider 与 instrumentation 名称。
func NewPoolObserver(opts ...Option) (xpool.Observer, error) {
	cfg := newOTelConfig(opts)
	meter := cfg.meterProvider.Meter(cfg.instrumentationName)

	var (
		o    poolObserver
		errs []error
	)
	var err error
	o.tasks, err = meter.Int64Counter(metricPoolTasks,
		metric.WithDescription("pool tasks by result"), metric.WithUnit("1"))
	errs = append(errs, wrapInstrumentErr(metricPoolTasks, err))
	o.duration, err = meter.Float64Histogram(metricPoolTaskDuration,
		metric.WithDescription("task execution duration"), metric.WithUnit("s"))
	errs = append(errs, wrapInstrumentErr(metricPoolTaskDuration, err))
	o.busy, err = meter.Int64UpDownCounter(metricPoolBusy,
		metric.WithDescription("workers executing a task"), metric.WithUnit("1"))
	errs = append(errs, wrapInstrumentErr(metricPoolBusy, err))
	o.workers, err = meter.Int64UpDownCounter(metricPoolWorkers,
		metric.WithDescription("live workers"), metric.WithUnit("1"))
	errs = append(errs, wrapInstrumentErr(metricPoolWorkers, err))
	o.respawns, err = meter.Int64Counter(metricPoolRespawns,
		metric.WithDescription("workers respawned after runtime.Goexit"), metric.WithUnit("1"))
	errs = append(errs, wrapInstrumentErr(metricPoolRespawns, err))

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &o, nil
}

func wrapInstrumentErr(name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrCreateInstrument, name, err)
}

// Observe 实现 xpool.Observer，在 worker 或提交方 goroutine 上同步调用。
func (o *poolObserver) Observe(e xpool.Event) {
	ctx := context.Background()
	pool := attribute.String("pool", e.Pool)

	switch e.Kind {
	case xpool.EventTaskSubmitted:
		o.tasks.Add(ctx, 1, metric.WithAttributes(pool, attribute.String("result", ResultSubmitted)))
	case xpool.EventTaskRejected:
		o.tasks.Add(ctx, 1, metric.WithAttributes(pool,
			attribute.String("result", ResultRejected),
			attribute.String("reason", rejectReason(e.Err)),
		))
	case xpool.EventTaskStarted:
		o.busy.Add(ctx, 1, metric.WithAttributes(pool))
	case xpool.EventTaskDone:
		o.busy.Add(ctx, -1, metric.WithAttributes(pool))
		o.duration.Record(ctx, e.Duration.Seconds(), metric.WithAttributes(pool))
		o.tasks.Add(ctx, 1, metric.WithAttributes(pool, attribute.String("result", ResultCompleted)))
	case xpool.EventTaskPanicked:
		o.tasks.Add(ctx, 1, metric.WithAttributes(pool, attribute.String("result", ResultPanicked)))
	case xpool.EventWorkerStarted:
		o.workers.Add(ctx, 1, metric.WithAttributes(pool))
	case xpool.EventWorkerStopped:
		o.workers.Add(ctx, -1, metric.WithAttributes(pool))
	case xpool.EventWorkerRespawned:
		o.respawns.Add(ctx, 1, metric.WithAttributes(pool))
	default:
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, xpool.ErrPoolClosed):
		return "closed"
	case errors.Is(err, xpool.ErrQueueFull):
		return "queue_full"
	default:
		return "unknown"
	}
}
