// Package xsampling 提供日志与观测使用的采样策略。
//
// Sampler 是统一接口，ShouldSample(ctx) 返回是否保留本次事件：
//
//   - Always / Never：全采样与不采样
//   - NewRateSampler(rate)：按比率随机采样
//   - NewCountSampler(n)：每 n 个事件保留 1 个，适合高频告警日志
//   - NewKeyBasedSampler(rate, keyFunc)：同一 key 的决策恒定（xxhash），
//     适合按客户端采样访问日志，被选中的客户端日志完整
//
// ContextWithKey 把采样 key 放进 ctx，KeyFromContext 是默认的 KeyFunc。
//
// 所有采样器并发安全。
package xsampling
