// Package ratelimit implements a fixed-window request counter keyed by an
// arbitrary string. It is a process-local, best-effort guard against casual
// abuse of write-heavy endpoints; it makes no cross-instance guarantees.
package ratelimit

import (
	"sync"
	"time"
)

// Decision is the outcome of a single Allow call
type Decision struct {
	Allowed   bool      `json:"allowed"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

type record struct {
	count   int
	resetAt time.Time
}

// Limiter counts requests per key in fixed windows. A background sweeper
// removes expired records so the map stays bounded.
type Limiter struct {
	mu      sync.Mutex
	records map[string]*record

	now    func() time.Time
	sweep  *time.Ticker
	stopCh chan struct{}
	once   sync.Once
}

// Option configures a Limiter
type Option func(*Limiter)

// WithClock overrides the time source, for deterministic window tests
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// NewLimiter creates a limiter and starts its cleanup sweeper.
// sweepInterval <= 0 disables the sweeper (tests clean up manually).
func NewLimiter(sweepInterval time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		records: make(map[string]*record),
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}

	if sweepInterval > 0 {
		l.sweep = time.NewTicker(sweepInterval)
		go l.sweepLoop()
	}

	return l
}

// Allow checks and consumes one request slot for key. limit and window must
// be positive; the guard below is the only concession to invalid input.
func (l *Limiter) Allow(key string, limit int, window time.Duration) Decision {
	if limit <= 0 || window <= 0 {
		panic("ratelimit: limit and window must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	rec, ok := l.records[key]
	if !ok || !now.Before(rec.resetAt) {
		// First request for this key, or the previous window has elapsed
		rec = &record{count: 1, resetAt: now.Add(window)}
		l.records[key] = rec
		return Decision{Allowed: true, Remaining: limit - 1, ResetAt: rec.resetAt}
	}

	if rec.count < limit {
		rec.count++
		return Decision{Allowed: true, Remaining: limit - rec.count, ResetAt: rec.resetAt}
	}

	return Decision{Allowed: false, Remaining: 0, ResetAt: rec.resetAt}
}

// RetryAfter returns the seconds until the key's window resets, at least 1
func (l *Limiter) RetryAfter(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[key]
	if !ok {
		return 1
	}
	secs := int(rec.resetAt.Sub(l.now()).Seconds()) + 1
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Sweep removes all records whose window has elapsed and reports how many
// were removed. The background sweeper calls this on its interval.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, rec := range l.records {
		if !now.Before(rec.resetAt) {
			delete(l.records, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of live records, expired or not
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Stop halts the background sweeper. Safe to call more than once.
func (l *Limiter) Stop() {
	l.once.Do(func() {
		if l.sweep != nil {
			l.sweep.Stop()
		}
		close(l.stopCh)
	})
}

func (l *Limiter) sweepLoop() {
	for {
		select {
		case <-l.sweep.C:
			l.Sweep()
		case <-l.stopCh:
			return
		}
	}
}
