package xpool

import "sync"

// messageKind 区分队列消息类型。
type messageKind uint8

const (
	msgTask messageKind = iota
	msgShutdown
)

// message 是队列中传递的消息：要么是任务，要么是关闭信号。
type message struct {
	kind messageKind
	task Task
}

// queue 是所有 worker 共享的单一逻辑队列。
//
// 每条消息只会被一个 pop 调用取走。生产端可被多个 goroutine 并发使用，
// 无需外部加锁。
type queue interface {
	// push 投递任务消息。有界实现在队列满时返回 ErrQueueFull，永不阻塞。
	push(m message) error
	// pushShutdown 投递一条关闭消息，必要时阻塞直到投递成功。
	pushShutdown()
	// pop 阻塞直到有消息可用，并原子地取走该消息。
	pop() message
	// len 返回当前排队的消息数。
	len() int
}

// compactThreshold 触发 listQueue 前移压缩的最小已消费消息数。
const compactThreshold = 64

// listQueue 是无界 FIFO 队列。
//
// 消费端由 mu 串行化：任意时刻只有一个 worker 在"取下一条消息"，
// 空队列时 worker 在 cond 上等待。
type listQueue struct {
	mu    sync.Mutex
	cond  *sync.Cond
	items []message
	head  int
}

func newListQueue() *listQueue {
	q := &listQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *listQueue) push(m message) error {
	q.mu.Lock()
	q.items = append(q.items, m)
	q.mu.Unlock()
	q.cond.Signal()
	return nil
}

func (q *listQueue) pushShutdown() {
	_ = q.push(message{kind: msgShutdown})
}

func (q *listQueue) pop() message {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.head == len(q.items) {
		q.cond.Wait()
	}
	m := q.items[q.head]
	q.items[q.head] = message{} // 释放任务闭包引用
	q.head++
	switch {
	case q.head == len(q.items):
		// 队列清空时复用底层数组
		q.items = q.items[:0]
		q.head = 0
	case q.head >= compactThreshold && q.head*2 >= len(q.items):
		// 已消费部分过半时前移剩余消息，避免持续积压下底层数组只增不减
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return m
}

func (q *listQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// chanQueue 是基于 buffered channel 的有界队列。
// channel 原生支持多消费者并发接收，无需额外加锁。
type chanQueue struct {
	ch chan message
}

func newChanQueue(size int) *chanQueue {
	return &chanQueue{ch: make(chan message, size)}
}

func (q *chanQueue) push(m message) error {
	select {
	case q.ch <- m:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *chanQueue) pushShutdown() {
	q.ch <- message{kind: msgShutdown}
}

func (q *chanQueue) pop() message {
	return <-q.ch
}

func (q *chanQueue) len() int {
	return len(q.ch)
}
