package xsampling

import (
	"context"
	"math"
	"math/rand/v2"

	"github.com/cespare/xxhash/v2"
)

type keyCtxKey struct{}

// ContextWithKey 返回携带采样 key 的 ctx。
func ContextWithKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, keyCtxKey{}, key)
}

// KeyFromContext 取出 ContextWithKey 设置的 key，没有时返回空串。
func KeyFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	key, _ := ctx.Value(keyCtxKey{}).(string)
	return key
}

// KeyFunc 从 ctx 提取采样 key。
type KeyFunc func(ctx context.Context) string

// KeyBasedSampler 按 key 的 xxhash 值做一致性采样：同一 key 在同一 rate 下
// 的决策恒定。key 为空时退化为随机采样。
type KeyBasedSampler struct {
	rate    float64
	keyFunc KeyFunc
}

// NewKeyBasedSampler 创建一致性采样器。keyFunc 为 nil 时使用 KeyFromContext。
func NewKeyBasedSampler(rate float64, keyFunc KeyFunc) (*KeyBasedSampler, error) {
	if err := validateRate(rate); err != nil {
		return nil, err
	}
	if keyFunc == nil {
		keyFunc = KeyFromContext
	}
	return &KeyBasedSampler{rate: rate, keyFunc: keyFunc}, nil
}

// ShouldSample 实现 Sampler。
func (s *KeyBasedSampler) ShouldSample(ctx context.Context) bool {
	switch {
	case s.rate <= 0:
		return false
	case s.rate >= 1:
		return true
	}

	var key string
	if ctx != nil {
		key = s.keyFunc(ctx)
	}
	if key == "" {
		return rand.Float64() < s.rate
	}
	return keyFraction(key) < s.rate
}

// Rate 返回采样比率。
func (s *KeyBasedSampler) Rate() float64 {
	return s.rate
}

// keyFraction 把 key 映射到 [0, 1]。
func keyFraction(key string) float64 {
	return float64(xxhash.Sum64String(key)) / float64(math.MaxUint64)
}

var (
	_ Sampler = SamplerFunc(nil)
	_ Sampler = (*RateSampler)(nil)
	_ Sampler = (*CountSampler)(nil)
	_ Sampler = (*KeyBasedSampler)(nil)
)
