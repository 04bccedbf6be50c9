package xpool

import (
	"context"
	"log/slog"
	"strconv"
	"time"
)

// EventKind 标识 pool 生命周期事件类型。
type EventKind int

const (
	// EventWorkerStarted worker goroutine 已启动并开始等待消息。
	EventWorkerStarted EventKind = iota
	// EventWorkerStopped worker 取到关闭消息并退出。
	EventWorkerStopped
	// EventWorkerRespawned 任务调用了 runtime.Goexit，worker 以相同 id 补位。
	EventWorkerRespawned
	// EventTaskSubmitted 任务已入队。
	EventTaskSubmitted
	// EventTaskRejected 任务被拒绝（Event.Err 为 ErrPoolClosed 或 ErrQueueFull）。
	EventTaskRejected
	// EventTaskStarted worker 开始执行任务。
	EventTaskStarted
	// EventTaskDone 任务执行结束（含 panic），Event.Duration 为执行耗时。
	EventTaskDone
	// EventTaskPanicked 任务 panic 已被恢复，Event.Err 为 *TaskFault。
	EventTaskPanicked
	// EventShutdownStarted 关闭协议开始。
	EventShutdownStarted
	// EventWorkerJoined 关闭过程中某个 worker 已被 join。
	EventWorkerJoined
	// EventShutdownDone 所有 worker 已 join，pool 进入 Stopped。
	EventShutdownDone
)

// String 返回事件类型的可读名称。
func (k EventKind) String() string {
	switch k {
	case EventWorkerStarted:
		return "worker_started"
	case EventWorkerStopped:
		return "worker_stopped"
	case EventWorkerRespawned:
		return "worker_respawned"
	case EventTaskSubmitted:
		return "task_submitted"
	case EventTaskRejected:
		return "task_rejected"
	case EventTaskStarted:
		return "task_started"
	case EventTaskDone:
		return "task_done"
	case EventTaskPanicked:
		return "task_panicked"
	case EventShutdownStarted:
		return "shutdown_started"
	case EventWorkerJoined:
		return "worker_joined"
	case EventShutdownDone:
		return "shutdown_done"
	default:
		return "EventKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Event 是 pool 上报给 Observer 的结构化事件。
type Event struct {
	Kind EventKind
	// Pool 名称（WithName），未设置时为空。
	Pool string
	// WorkerID 相关 worker，与 worker 无关的事件为 -1。
	WorkerID int
	// Duration 仅 EventTaskDone 有效。
	Duration time.Duration
	// Err 仅 EventTaskRejected / EventTaskPanicked 有效。
	Err error
}

// Observer 接收 pool 事件。
//
// Observe 会在 worker goroutine 或 Submit 调用方 goroutine 上同步调用，
// 必须并发安全且保持轻量。Observe 的 panic 会被 pool 吞掉。
type Observer interface {
	Observe(e Event)
}

// ObserverFunc 将函数适配为 Observer。
type ObserverFunc func(e Event)

// Observe 实现 Observer 接口。
func (f ObserverFunc) Observe(e Event) {
	f(e)
}

// Observers 将多个 Observer 组合为一个，按顺序分发事件，nil 会被跳过。
func Observers(obs ...Observer) Observer {
	list := make(multiObserver, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			list = append(list, o)
		}
	}
	return list
}

type multiObserver []Observer

func (m multiObserver) Observe(e Event) {
	for _, o := range m {
		o.Observe(e)
	}
}

// logObserver 把事件写入 slog。
// 常规事件使用 Debug 级别，panic 使用 Error 级别并附带堆栈，拒绝使用 Warn 级别。
type logObserver struct {
	logger *slog.Logger
}

// NewLogObserver 创建基于 slog 的 Observer。logger 为 nil 时使用 slog.Default()。
func NewLogObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &logObserver{logger: logger}
}

func (o *logObserver) Observe(e Event) {
	ctx := context.Background()
	attrs := make([]slog.Attr, 0, 4)
	if e.Pool != "" {
		attrs = append(attrs, slog.String("pool", e.Pool))
	}
	if e.WorkerID >= 0 {
		attrs = append(attrs, slog.Int("worker_id", e.WorkerID))
	}

	switch e.Kind {
	case EventTaskPanicked:
		attrs = append(attrs, slog.Any("error", e.Err))
		if f, ok := e.Err.(*TaskFault); ok {
			attrs = append(attrs, slog.String("stack", string(f.Stack)))
		}
		o.logger.LogAttrs(ctx, slog.LevelError, "xpool: worker panic recovered", attrs...)
	case EventTaskRejected:
		attrs = append(attrs, slog.Any("error", e.Err))
		o.logger.LogAttrs(ctx, slog.LevelWarn, "xpool: task rejected", attrs...)
	case EventWorkerRespawned:
		o.logger.LogAttrs(ctx, slog.LevelWarn, "xpool: worker goroutine exited inside task, respawned", attrs...)
	case EventWorkerStarted, EventWorkerStopped, EventWorkerJoined, EventShutdownStarted, EventShutdownDone:
		o.logger.LogAttrs(ctx, slog.LevelDebug, "xpool: "+e.Kind.String(), attrs...)
	default:
		// 每个任务都会产生的事件不写日志，避免热路径开销
	}
}
