// Package ratelimit provides keyed token bucket rate limiting for the MCP
// tools and the HTTP API.
package ratelimit

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// sweepInterval is the minimum time between evictions of idle buckets.
const sweepInterval = time.Minute

// ErrRateLimited is wrapped by every LimitError.
var ErrRateLimited = errors.New("rate limit exceeded")

// LimitError reports a rejected request and when to retry.
type LimitError struct {
	Key        string
	RetryAfter time.Duration
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry in %s", e.Key, e.RetryAfter.Round(time.Second))
}

func (e *LimitError) Unwrap() error { return ErrRateLimited }

// Limiter is a per-key token bucket. Each key starts with burst tokens and
// refills at rate tokens per second. It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64
	burst   int
	nowFunc func() time.Time

	lastSweep time.Time
}

type bucket struct {
	tokens    float64
	lastCheck time.Time
}

// NewLimiter creates a limiter with rate tokens/sec and the given burst.
func NewLimiter(rate float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   burst,
		nowFunc: time.Now,
	}
}

// PerMinute creates a limiter allowing n requests per minute.
func PerMinute(n float64, burst int) *Limiter {
	return NewLimiter(n/60.0, burst)
}

// Take consumes one token for key. When none is available it returns false
// and the time until the next token; with a zero rate that is math.MaxInt64.
func (l *Limiter) Take(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	l.sweep(now)
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(l.burst), lastCheck: now}
		l.buckets[key] = b
	}

	if elapsed := now.Sub(b.lastCheck).Seconds(); elapsed > 0 {
		b.tokens = math.Min(b.tokens+l.rate*elapsed, float64(l.burst))
		b.lastCheck = now
	}

	if b.tokens >= 1.0 {
		b.tokens--
		return true, 0
	}
	if l.rate <= 0 {
		return false, time.Duration(math.MaxInt64)
	}
	wait := (1.0 - b.tokens) / l.rate
	return false, time.Duration(wait * float64(time.Second))
}

// sweep drops buckets that have refilled to burst. A fresh bucket for the same
// key is identical, so eviction never changes a decision.
func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < sweepInterval {
		return
	}
	l.lastSweep = now
	for key, b := range l.buckets {
		if b.tokens+l.rate*now.Sub(b.lastCheck).Seconds() >= float64(l.burst) {
			delete(l.buckets, key)
		}
	}
}

// Allow reports whether a request for key may proceed.
func (l *Limiter) Allow(key string) bool {
	ok, _ := l.Take(key)
	return ok
}

// Check returns a *LimitError when key is limited.
func (l *Limiter) Check(key string) error {
	if ok, wait := l.Take(key); !ok {
		return &LimitError{Key: key, RetryAfter: wait}
	}
	return nil
}

// ToolLimiters maps tool names to their limiters.
type ToolLimiters map[string]*Limiter

// Tool names with default limits.
const (
	ToolSimulate  = "phsim_simulate"
	ToolCompare   = "phsim_compare"
	ToolScenarios = "phsim_scenarios"
	ToolHistory   = "phsim_history"
)

// NewToolLimiters returns the default per-tool limits. Batch tools are
// limited more tightly than read-only ones.
func NewToolLimiters() ToolLimiters {
	return ToolLimiters{
		ToolSimulate:  PerMinute(30, 5),
		ToolCompare:   PerMinute(10, 2),
		ToolScenarios: PerMinute(60, 10),
		ToolHistory:   PerMinute(60, 10),
	}
}

// CheckLimit checks the limit for toolName. Tools without a limiter are
// always allowed.
func CheckLimit(limiters ToolLimiters, toolName string) error {
	limiter, ok := limiters[toolName]
	if !ok {
		return nil
	}
	return limiter.Check(toolName)
}
