// Package xretry 在 [avast/retry-go/v5] 之上提供带错误分类的重试与退避策略。
//
// # 使用方式
//
//	err := xretry.Do(ctx, func() error {
//	    return accept()
//	}, xretry.Attempts(5), xretry.DelayType(xretry.ToDelayType(xretry.NewExponentialBackoff())))
//
// # 错误分类
//
//   - NewPermanentError(err)：标记为永久性错误（不应重试）
//   - NewTemporaryError(err)：标记为临时性错误（应该重试）
//   - Unrecoverable(err)：retry-go 风格的不可恢复错误
//
// 未分类的错误默认视为可重试。
//
// # 退避策略
//
//   - ExponentialBackoff：指数退避（带抖动），WithJitter(0) 且 initial 等于 max 时即为固定延迟
//   - ToDelayType(nil)：零延迟
//
// 抖动使用 crypto/rand，无需加锁即可并发使用。
//
// [avast/retry-go/v5]: https://github.com/avast/retry-go
package xretry
