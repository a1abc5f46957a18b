// Package limiter token bucket rate limiting keyed by request
// Package limiter 基于令牌桶的限流
package limiter

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/juju/ratelimit"
)

// Face 限流器接口
type Face interface {
	Key(c *gin.Context) string
	GetBucket(key string) (*ratelimit.Bucket, bool)
	AddBuckets(rules ...BucketRule) Face
}

// BucketRule 令牌桶规则
type BucketRule struct {
	Key          string
	FillInterval time.Duration
	Capacity     int64
	Quantum      int64
}

// Limiter 令牌桶集合
type Limiter struct {
	mu      sync.RWMutex
	buckets map[string]*ratelimit.Bucket
}

// ClientLimiter 按客户端 IP 限流，每个 IP 一个桶
type ClientLimiter struct {
	*Limiter
	rule BucketRule
}

// NewClientLimiter 创建按客户端限流器
// rule.Key 被忽略，桶按 IP 懒加载
func NewClientLimiter(rule BucketRule) *ClientLimiter {
	return &ClientLimiter{
		Limiter: &Limiter{buckets: make(map[string]*ratelimit.Bucket)},
		rule:    rule,
	}
}

// Key 以客户端 IP 作为键
func (l *ClientLimiter) Key(c *gin.Context) string {
	return c.ClientIP()
}

// GetBucket 获取桶，不存在则按规则创建
func (l *ClientLimiter) GetBucket(key string) (*ratelimit.Bucket, bool) {
	l.mu.RLock()
	bucket, ok := l.buckets[key]
	l.mu.RUnlock()
	if ok {
		return bucket, true
	}
	if l.rule.Capacity <= 0 || l.rule.FillInterval <= 0 {
		return nil, false
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if bucket, ok = l.buckets[key]; ok {
		return bucket, true
	}
	bucket = newBucket(l.rule)
	l.buckets[key] = bucket
	return bucket, true
}

// AddBuckets 预置指定键的桶
func (l *ClientLimiter) AddBuckets(rules ...BucketRule) Face {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, rule := range rules {
		if _, ok := l.buckets[rule.Key]; !ok {
			l.buckets[rule.Key] = newBucket(rule)
		}
	}
	return l
}

func newBucket(rule BucketRule) *ratelimit.Bucket {
	quantum := rule.Quantum
	if quantum <= 0 {
		quantum = 1
	}
	return ratelimit.NewBucketWithQuantum(rule.FillInterval, rule.Capacity, quantum)
}
