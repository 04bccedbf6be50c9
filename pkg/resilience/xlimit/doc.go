// Package xlimit 提供按 key 的进程内令牌桶限流。
//
// 每个 key（通常是客户端 IP）拥有独立的令牌桶：容量为 Burst，
// 每个 Window 补充 Limit 个令牌。桶由 golang.org/x/time/rate 实现，
// 存放在有上限的 xlru 缓存里，空闲到桶被补满后自动淘汰。
//
//	l, err := xlimit.New(xlimit.Config{Limit: 100, Window: time.Second})
//	if err != nil {
//	    return err
//	}
//	defer l.Close()
//
//	if res := l.Allow(clientIP); !res.Allowed {
//	    // 拒绝，res.RetryAfter 后再试
//	}
//
// 设计决策: key 数量超过 MaxKeys 时按 LRU 淘汰，被淘汰的 key 下次获得满桶。
// 这在极端情况下放宽了限流，但保证内存有界。
package xlimit
