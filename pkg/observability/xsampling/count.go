package xsampling

import (
	"context"
	"sync/atomic"
)

// CountSampler 每 n 个事件保留 1 个：第 1、n+1、2n+1... 个被采样。
type CountSampler struct {
	n       uint64
	counter atomic.Uint64
}

// NewCountSampler 创建计数采样器，n < 1 时返回 ErrInvalidCount。
func NewCountSampler(n int) (*CountSampler, error) {
	if n < 1 {
		return nil, ErrInvalidCount
	}
	return &CountSampler{n: uint64(n)}, nil
}

// ShouldSample 实现 Sampler。
func (s *CountSampler) ShouldSample(context.Context) bool {
	if s.n <= 1 {
		return true
	}
	return (s.counter.Add(1)-1)%s.n == 0
}

// Reset 把计数器归零，下一个事件会被采样。
func (s *CountSampler) Reset() {
	s.counter.Store(0)
}

// N 返回采样间隔。
func (s *CountSampler) N() int {
	return int(s.n)
}
