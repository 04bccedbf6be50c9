package xsampling

import (
	"context"
	"math"
	"math/rand/v2"
)

// Sampler 决定是否保留一个事件。
type Sampler interface {
	ShouldSample(ctx context.Context) bool
}

// SamplerFunc 把函数适配为 Sampler。
type SamplerFunc func(ctx context.Context) bool

// ShouldSample 调用 f(ctx)。
func (f SamplerFunc) ShouldSample(ctx context.Context) bool {
	return f(ctx)
}

var (
	always Sampler = SamplerFunc(func(context.Context) bool { return true })
	never  Sampler = SamplerFunc(func(context.Context) bool { return false })
)

// Always 返回全采样策略。
func Always() Sampler { return always }

// Never 返回不采样策略。
func Never() Sampler { return never }

func validateRate(rate float64) error {
	if math.IsNaN(rate) || rate < 0 || rate > 1 {
		return ErrInvalidRate
	}
	return nil
}

// RateSampler 按固定比率随机采样。
type RateSampler struct {
	rate float64
}

// NewRateSampler 创建比率采样器，rate 须在 [0.0, 1.0] 内。
func NewRateSampler(rate float64) (*RateSampler, error) {
	if err := validateRate(rate); err != nil {
		return nil, err
	}
	return &RateSampler{rate: rate}, nil
}

// ShouldSample 实现 Sampler。
func (s *RateSampler) ShouldSample(context.Context) bool {
	switch {
	case s.rate <= 0:
		return false
	case s.rate >= 1:
		return true
	}
	// 采样只需要统计随机性，math/rand/v2 的全局源足够且无锁
	return rand.Float64() < s.rate
}

// Rate 返回采样比率。
func (s *RateSampler) Rate() float64 {
	return s.rate
}
