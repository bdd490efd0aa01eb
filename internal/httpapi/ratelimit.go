package httpapi

import (
	"sync"
	"time"

	"github.com/gideonheart/voicegateway/internal/domain"
)

const (
	rateWindow      = 60 * time.Second
	rateBucketCap   = 10000
	ratePruneTick   = 60 * time.Second
)

// RateLimiter is a per-source fixed-window counter: the token-bucket
// shape of the example pack's lookatitude-beluga-ai rate limiter
// (pkg/voice/backend/internal/rate_limiter.go) adapted from a
// continuously-refilling bucket to the count/resetAt window spec §4.5
// names, since the spec's boundary tests (window reset → admit,
// 10,001st bucket → eager prune) are stated in those terms.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*domain.RateBucket
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{buckets: make(map[string]*domain.RateBucket)}
}

// Allow increments the bucket for key and reports whether the request
// is admitted under limit. limit is read by the caller from the
// config store on every call, per spec §4.5.
func (l *RateLimiter) Allow(key string, limit int) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.buckets) >= rateBucketCap {
		l.pruneLocked(now)
	}

	b, ok := l.buckets[key]
	if !ok || now.After(b.ResetAt) || now.Equal(b.ResetAt) {
		b = &domain.RateBucket{Count: 0, ResetAt: now.Add(rateWindow)}
		l.buckets[key] = b
	}
	b.Count++
	return b.Count <= limit
}

// Prune removes every bucket whose window has already expired. Called
// by the background tick and opportunistically when the bucket cap is
// reached.
func (l *RateLimiter) Prune(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked(now)
}

func (l *RateLimiter) pruneLocked(now time.Time) {
	for k, b := range l.buckets {
		if !now.Before(b.ResetAt) {
			delete(l.buckets, k)
		}
	}
}

func (l *RateLimiter) BucketCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// RunPruneLoop ticks every 60s until stop is closed, pruning expired
// buckets in the background as spec §4.5 requires.
func (l *RateLimiter) RunPruneLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(ratePruneTick)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			l.Prune(now)
		}
	}
}
