package redis

import (
	"context"
	"sync"
	"time"
)

// LocalRateLimiter keeps the same fixed windows in process memory. It backs
// single-instance deployments that run without redis.
type LocalRateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
	sweepAt time.Time
}

type window struct {
	count   int
	resetAt time.Time
}

func NewLocalRateLimiter() *LocalRateLimiter {
	return &LocalRateLimiter{windows: make(map[string]*window), now: time.Now}
}

func (l *LocalRateLimiter) Allow(_ context.Context, key string, limit int, win time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.After(l.sweepAt) {
		for k, w := range l.windows {
			if !now.Before(w.resetAt) {
				delete(l.windows, k)
			}
		}
		l.sweepAt = now.Add(win)
	}

	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(win)}
		l.windows[key] = w
	}
	w.count++
	return w.count <= limit, nil
}
