package worker

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter implements per-directory rate limiting
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a new rate limiter
func NewLimiter(eventsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}

	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  rate.Limit(eventsPerSecond),
		defaultBurst: burst,
	}
}

// Wait waits for rate limit clearance for the directory holding path
func (l *Limiter) Wait(ctx context.Context, path string) error {
	return l.getLimiter(directoryOf(path)).Wait(ctx)
}

// Allow checks if an event for path is allowed without waiting
func (l *Limiter) Allow(path string) bool {
	return l.getLimiter(directoryOf(path)).Allow()
}

// getLimiter returns the rate limiter for a directory
func (l *Limiter) getLimiter(dir string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[dir]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := l.limiters[dir]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[dir] = limiter

	return limiter
}

// SetDirectoryRate sets a custom rate limit for a specific directory
func (l *Limiter) SetDirectoryRate(dir string, eventsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}

	l.limiters[filepath.Clean(dir)] = rate.NewLimiter(rate.Limit(eventsPerSecond), burst)
}

// directoryOf returns the cleaned parent directory of path
func directoryOf(path string) string {
	return filepath.Dir(filepath.Clean(path))
}

// WaitWithDelay waits for rate limit and adds an additional delay, letting
// writers finish before the file is read
func (l *Limiter) WaitWithDelay(ctx context.Context, path string, additionalDelay time.Duration) error {
	if err := l.Wait(ctx, path); err != nil {
		return err
	}

	if additionalDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(additionalDelay):
		}
	}

	return nil
}
