package xpool

import (
	"runtime/debug"
	"time"
)

// worker 是绑定到固定 id 的常驻执行循环。
type worker struct {
	id int
	// handle 在 worker 退出时关闭，由 core.retire 独占使用；join 后置为 nil。
	handle chan struct{}
}

func newWorker(id int) *worker {
	return &worker{id: id, handle: make(chan struct{})}
}

func (w *worker) start(c *core) {
	go w.loop(c, w.handle)
}

// loop 循环取消息：任务则执行，关闭消息则退出。
//
// 任务调用 runtime.Goexit 会终止当前 goroutine，recover 无法拦截。
// 这种情况下 defer 以相同 id 和 handle 重新启动循环，保证 pool 容量不变。
func (w *worker) loop(c *core, exited chan<- struct{}) {
	retired := false
	defer func() {
		if retired {
			close(exited)
			return
		}
		c.emit(Event{Kind: EventWorkerRespawned, WorkerID: w.id})
		go w.loop(c, exited)
	}()

	for {
		m := c.queue.pop()
		if m.kind == msgShutdown {
			retired = true
			c.emit(Event{Kind: EventWorkerStopped, WorkerID: w.id})
			return
		}
		c.execute(w.id, m.task)
	}
}

// join 等待 worker 退出。重复 join 是空操作。
func (w *worker) join() {
	if w.handle == nil {
		return
	}
	<-w.handle
	w.handle = nil
}

// execute 在故障边界内执行任务并记录统计。
func (c *core) execute(id int, task Task) {
	c.busy.Add(1)
	start := time.Now()
	c.emit(Event{Kind: EventTaskStarted, WorkerID: id})
	// defer 保证 runtime.Goexit 场景下计数同样被修正
	defer func() {
		c.busy.Add(-1)
		c.completed.Add(1)
		c.emit(Event{Kind: EventTaskDone, WorkerID: id, Duration: time.Since(start)})
	}()

	if fault := runTask(id, task); fault != nil {
		c.panicked.Add(1)
		c.emit(Event{Kind: EventTaskPanicked, WorkerID: id, Err: fault})
	}
}

// runTask 执行任务，把 panic 转换为 *TaskFault。
func runTask(id int, task Task) (fault *TaskFault) {
	defer func() {
		if r := recover(); r != nil {
			fault = &TaskFault{WorkerID: id, Value: r, Stack: debug.Stack()}
		}
	}()
	task()
	return nil
}
