package xbreaker

import "github.com/sony/gobreaker/v2"

type (
	// Counts 统计计数，用于熔断判定
	Counts = gobreaker.Counts

	// State 熔断器状态
	State = gobreaker.State
)

// 熔断器状态常量
const (
	StateClosed   = gobreaker.StateClosed
	StateHalfOpen = gobreaker.StateHalfOpen
	StateOpen     = gobreaker.StateOpen
)

// TripPolicy 熔断判定策略，ReadyToTrip 返回 true 时 Closed 转为 Open。
type TripPolicy interface {
	ReadyToTrip(counts Counts) bool
}

// SuccessPolicy 成功判定策略，默认 err == nil 即为成功。
type SuccessPolicy interface {
	IsSuccessful(err error) bool
}

// SuccessPolicyFunc 将函数适配为 SuccessPolicy。
type SuccessPolicyFunc func(err error) bool

// IsSuccessful 实现 SuccessPolicy 接口。
func (f SuccessPolicyFunc) IsSuccessful(err error) bool {
	return f(err)
}

// ConsecutiveFailuresPolicy 连续失败熔断策略
type ConsecutiveFailuresPolicy struct {
	threshold uint32
}

// NewConsecutiveFailures 创建连续失败 threshold 次后熔断的策略。
func NewConsecutiveFailures(threshold uint32) *ConsecutiveFailuresPolicy {
	return &ConsecutiveFailuresPolicy{threshold: threshold}
}

func (p *ConsecutiveFailuresPolicy) ReadyToTrip(counts Counts) bool {
	return counts.ConsecutiveFailures >= p.threshold
}

// FailureRatioPolicy 失败率熔断策略
//
// 请求数达到 minRequests 后才计算失败率。
type FailureRatioPolicy struct {
	ratio       float64
	minRequests uint32
}

// NewFailureRatio 创建失败率熔断策略，ratio 截断到 [0, 1]。
func NewFailureRatio(ratio float64, minRequests uint32) *FailureRatioPolicy {
	return &FailureRatioPolicy{
		ratio:       min(max(ratio, 0), 1),
		minRequests: minRequests,
	}
}

func (p *FailureRatioPolicy) ReadyToTrip(counts Counts) bool {
	// 避免除零
	if counts.Requests == 0 || counts.Requests < p.minRequests {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= p.ratio
}

var (
	_ TripPolicy    = (*ConsecutiveFailuresPolicy)(nil)
	_ TripPolicy    = (*FailureRatioPolicy)(nil)
	_ SuccessPolicy = SuccessPolicyFunc(nil)
)
