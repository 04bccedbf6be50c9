package xpool

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
)

const (
	// maxWorkers worker 数量上限。
	maxWorkers = 1 << 16
	// maxQueueSize 有界队列容量上限。
	maxQueueSize = 1 << 24
)

// 编译期断言：Pool 满足 io.Closer 关闭契约。
var _ io.Closer = (*Pool)(nil)

// Task 是提交给 pool 的一个工作单元。
// 任务捕获的状态归任务自身所有，由取到它的 worker 恰好执行一次。
type Task func()

// State 表示 pool 的生命周期状态。
type State int32

const (
	// StateRunning 接受任务提交。
	StateRunning State = iota
	// StateShuttingDown 已开始关闭，拒绝新任务，worker 正在退出。
	StateShuttingDown
	// StateStopped 所有 worker 已 join。
	StateStopped
)

// String 返回状态的可读名称。
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Stats 是 pool 运行统计的快照。
type Stats struct {
	// Workers worker 数量，创建后固定。
	Workers int
	// Pending 已入队但尚未开始执行的任务数。
	Pending int
	// Busy 正在执行任务的 worker 数。
	Busy int
	// Submitted 累计入队的任务数。
	Submitted uint64
	// Completed 累计执行结束的任务数（含 panic）。
	Completed uint64
	// Panicked 累计 panic 的任务数。
	Panicked uint64
	// Rejected 累计被拒绝的提交次数。
	Rejected uint64
}

// Pool 是固定容量的 worker pool。
// 必须通过 [New] 创建，零值不可用。所有方法并发安全。
type Pool struct {
	c *core
}

// core 持有 worker 实际引用的状态。
//
// 设计决策: worker 只引用 core 而不引用 Pool，
// 这样 Pool 句柄不可达时 GC 能够回收它并触发隐式关闭。
type core struct {
	name     string
	queue    queue
	workers  []*worker
	observer Observer

	// mu 保证状态检查与入队的原子性：Submit 持读锁，状态迁移持写锁。
	mu    sync.RWMutex
	state atomic.Int32
	done  chan struct{}

	busy      atomic.Int64
	submitted atomic.Uint64
	completed atomic.Uint64
	panicked  atomic.Uint64
	rejected  atomic.Uint64
}

// New 创建 pool 并立即启动 workers 个 worker goroutine。
//
// 参数：
//   - workers: worker 数量，有效范围 [1, 65536]
//   - opts: 可选配置（WithLogger、WithObserver、WithName、WithQueueSize）
//
// workers 或队列大小超出有效范围时返回错误（errors.Is(err, ErrInvalidConfig) 为 true），
// 此时不会启动任何 goroutine。
func New(workers int, opts ...Option) (*Pool, error) {
	if workers < 1 || workers > maxWorkers {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWorkers, workers)
	}

	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.queueSize < 0 || o.queueSize > maxQueueSize {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidQueueSize, o.queueSize)
	}

	var q queue
	if o.queueSize > 0 {
		q = newChanQueue(o.queueSize)
	} else {
		q = newListQueue()
	}

	c := &core{
		name:     o.name,
		queue:    q,
		workers:  make([]*worker, workers),
		observer: Observers(NewLogObserver(o.logger), o.observer),
		done:     make(chan struct{}),
	}
	for id := range workers {
		w := newWorker(id)
		c.workers[id] = w
		w.start(c)
		c.emit(Event{Kind: EventWorkerStarted, WorkerID: id})
	}

	p := &Pool{c: c}
	// 句柄不可达且未显式关闭时，由 GC cleanup 启动关闭协议。
	runtime.AddCleanup(p, func(c *core) { c.initiateShutdown() }, c)
	return p, nil
}

// Submit 提交任务，不等待任务执行。
//
// 返回值：
//   - nil: 任务已入队，之后会被恰好一个 worker 执行
//   - ErrNilTask: task 为 nil
//   - ErrPoolClosed: pool 已开始关闭
//   - ErrQueueFull: 有界队列已满（仅 WithQueueSize > 0）
func (p *Pool) Submit(task Task) error {
	if task == nil {
		return ErrNilTask
	}
	c := p.c
	if err := c.enqueue(task); err != nil {
		c.rejected.Add(1)
		c.emit(Event{Kind: EventTaskRejected, WorkerID: -1, Err: err})
		return err
	}
	c.emit(Event{Kind: EventTaskSubmitted, WorkerID: -1})
	// 提交过程中句柄必须保持可达，避免 cleanup 与本次提交并发
	runtime.KeepAlive(p)
	return nil
}

// Close 关闭 pool，等待所有已接受的任务执行完毕、所有 worker 退出后返回。
// Close 是幂等的，并发或重复调用只会等待同一次关闭完成，始终返回 nil。
func (p *Pool) Close() error {
	_ = p.Shutdown(context.Background())
	return nil
}

// Shutdown 启动关闭协议并等待其完成或 ctx 结束。
//
// ctx 到期时返回 ctx.Err()，关闭协议在后台继续执行，可通过 Done() 等待最终完成。
// ctx 为 nil 时返回 ErrNilContext 且不启动关闭。
func (p *Pool) Shutdown(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	c := p.c
	c.initiateShutdown()
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done 返回在 pool 进入 Stopped 时关闭的 channel。
func (p *Pool) Done() <-chan struct{} {
	return p.c.done
}

// State 返回当前生命周期状态。
func (p *Pool) State() State {
	return State(p.c.state.Load())
}

// Workers 返回 worker 数量。
func (p *Pool) Workers() int {
	return len(p.c.workers)
}

// Name 返回 pool 名称。
func (p *Pool) Name() string {
	return p.c.name
}

// Stats 返回运行统计快照。各字段分别原子读取，彼此之间不保证严格一致。
func (p *Pool) Stats() Stats {
	c := p.c
	submitted := c.submitted.Load()
	completed := c.completed.Load()
	busy := c.busy.Load()
	pending := int64(submitted) - int64(completed) - busy
	return Stats{
		Workers:   len(c.workers),
		Pending:   int(max(pending, 0)),
		Busy:      int(busy),
		Submitted: submitted,
		Completed: completed,
		Panicked:  c.panicked.Load(),
		Rejected:  c.rejected.Load(),
	}
}

// enqueue 在读锁保护下检查状态并入队。
// 关闭协议持写锁迁移状态，因此任何成功入队的任务都排在关闭消息之前。
func (c *core) enqueue(task Task) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if State(c.state.Load()) != StateRunning {
		return ErrPoolClosed
	}
	if err := c.queue.push(message{kind: msgTask, task: task}); err != nil {
		return err
	}
	c.submitted.Add(1)
	return nil
}

// initiateShutdown 执行 Running → ShuttingDown 迁移，只有第一次调用生效。
func (c *core) initiateShutdown() {
	c.mu.Lock()
	if State(c.state.Load()) != StateRunning {
		c.mu.Unlock()
		return
	}
	c.state.Store(int32(StateShuttingDown))
	c.mu.Unlock()

	c.emit(Event{Kind: EventShutdownStarted, WorkerID: -1})
	go c.retire()
}

// retire 发送 N 条关闭消息并 join 全部 worker。
func (c *core) retire() {
	for range c.workers {
		c.queue.pushShutdown()
	}
	for _, w := range c.workers {
		w.join()
		c.emit(Event{Kind: EventWorkerJoined, WorkerID: w.id})
	}
	c.state.Store(int32(StateStopped))
	c.emit(Event{Kind: EventShutdownDone, WorkerID: -1})
	close(c.done)
}

// emit 向 Observer 分发事件，Observer 的 panic 被隔离。
func (c *core) emit(e Event) {
	e.Pool = c.name
	defer func() {
		_ = recover()
	}()
	c.observer.Observe(e)
}
