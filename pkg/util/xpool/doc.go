// Package xpool 提供固定容量的 worker pool。
//
// Pool 在创建时启动 N 个常驻 worker goroutine，所有 worker 共享同一个任务队列，
// 调用方通过 Submit 提交无参数、无返回值的任务（[Task]），任务由恰好一个 worker 执行。
// 支持以下特性：
//   - worker 数量固定（[1, 65536]），生命周期内不扩缩容
//   - 默认无界队列：Submit 永不阻塞，也不会因容量拒绝任务
//   - 可选有界队列（WithQueueSize）：队列满时返回 ErrQueueFull
//   - 优雅关闭：每个 worker 收到一条关闭消息，关闭前已入队的任务全部执行完毕
//   - 幂等关闭：重复 Close/Shutdown 不会重复发送关闭消息，也不会重复 join
//   - 超时关闭：Shutdown(ctx) 支持 context 超时/取消，Done() 可等待最终完成
//   - panic 恢复：单个任务 panic 只影响该任务，worker 继续处理后续消息
//   - runtime.Goexit 防护：任务终止 goroutine 时自动补位，容量不会缩水
//   - 可注入观测接口（WithObserver / WithLogger），观测回调 panic 不影响 pool
//
// # 关闭协议
//
//  1. 状态 Running → ShuttingDown，此后 Submit 返回 ErrPoolClosed
//  2. 向队列发送 N 条关闭消息（N = worker 数量，与调用 Close 的次数无关）
//  3. 逐个 join worker，按各自 id 记录日志
//  4. 全部 join 后状态变为 Stopped，Done() 关闭
//
// 队列保持 FIFO，关闭消息排在所有已接受的任务之后，
// 因此 Close 返回时每个被接受的任务都已执行完毕。
//
// # 隐式关闭
//
// Go 没有析构语义。推荐 defer pool.Close()。
// 若 *Pool 在未关闭的情况下变为不可达，GC 触发的 cleanup 会启动同样的关闭协议，
// 保证 worker goroutine 不会比它们的所有者活得更久。
//
// # 注意事项
//
//   - 只有 Workers() == 1 的 pool 保证按提交顺序执行；N > 1 时不保证跨 worker 顺序
//   - 任务没有取消与超时语义，如需截止时间请在任务内部自行处理
//   - Close/Shutdown 不可在任务内部调用，否则会死锁
//   - 同一个 Pool 的 Submit/Close/Shutdown 可以从任意 goroutine 并发调用
//
// # 设计选择说明
//
// 设计决策: 采用"每个 worker 一条关闭消息"而非广播标志：
// 每条关闭消息恰好唤醒一个阻塞中的 worker，正确性只依赖消息数量等于 worker 数量，
// 与哪个 worker 取到哪条消息无关。
//
// 设计决策: New 返回 *Pool 而非接口，编译期通过 io.Closer 断言确保关闭契约。
package xpool
