package xpool

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig 表示 pool 配置无效，pool 不会被创建。
	ErrInvalidConfig = errors.New("xpool: invalid config")

	// ErrInvalidWorkers 表示 worker 数量无效。
	ErrInvalidWorkers = fmt.Errorf("%w: worker count must be in [1, %d]", ErrInvalidConfig, maxWorkers)

	// ErrInvalidQueueSize 表示队列大小无效。
	ErrInvalidQueueSize = fmt.Errorf("%w: queue size must be in [0, %d]", ErrInvalidConfig, maxQueueSize)

	// ErrPoolClosed 表示 pool 已开始关闭，无法提交任务。
	ErrPoolClosed = errors.New("xpool: pool is closed")

	// ErrQueueFull 表示有界队列已满。
	ErrQueueFull = errors.New("xpool: queue is full")

	// ErrNilTask 表示提交的任务为 nil。
	ErrNilTask = errors.New("xpool: task cannot be nil")

	// ErrNilContext 表示 context 参数为 nil。
	ErrNilContext = errors.New("xpool: nil context")
)

// TaskFault 描述任务执行过程中被恢复的 panic。
//
// TaskFault 只通过 Observer 上报（Event.Err），不会传播给 Submit 的调用方或其他 worker。
type TaskFault struct {
	// WorkerID 执行该任务的 worker。
	WorkerID int
	// Value recover() 得到的原始值。
	Value any
	// Stack panic 发生时的 goroutine 堆栈。
	Stack []byte
}

// Error 实现 error 接口。
func (f *TaskFault) Error() string {
	return fmt.Sprintf("xpool: task panicked on worker %d: %v", f.WorkerID, f.Value)
}

// Unwrap 当 panic 值本身是 error 时返回它，便于 errors.Is/As 判断。
func (f *TaskFault) Unwrap() error {
	if err, ok := f.Value.(error); ok {
		return err
	}
	return nil
}
