package ratelimit

import (
	"context"
	"slices"
	"sync"
	"time"
)

type window struct {
	count int
	start time.Time
}

// IntervalLimiter is a process-local fixed-window limiter.
//
// A token's first request opens a window of length interval; every request
// inside it counts against the same limit. The first request after the window
// has elapsed opens a new one with the count reset, so a burst straddling a
// boundary can see up to 2*limit admissions.
//
// State lives only in this process and is lost on restart.
type IntervalLimiter struct {
	mu        sync.Mutex
	windows   map[string]*window
	interval  time.Duration
	maxTokens int
	now       func() time.Time
	stopCh    chan struct{}
	stopOnce  sync.Once
}

type Option func(*IntervalLimiter)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *IntervalLimiter) { l.now = now }
}

// WithoutSweeper disables the background sweep; callers run Sweep themselves.
func WithoutSweeper() Option {
	return func(l *IntervalLimiter) { l.stopCh = nil }
}

// NewInterval creates a limiter with the given window length that tracks at
// most maxTokens distinct tokens after each sweep. A sweep runs every interval
// until Close is called.
func NewInterval(interval time.Duration, maxTokens int, opts ...Option) *IntervalLimiter {
	l := &IntervalLimiter{
		windows:   make(map[string]*window),
		interval:  interval,
		maxTokens: maxTokens,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.stopCh != nil {
		go l.sweeper()
	}

	return l
}

func (l *IntervalLimiter) Check(_ context.Context, limit int, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	w, ok := l.windows[token]
	if !ok || now.Sub(w.start) >= l.interval {
		if limit < 1 {
			return &RateLimitExceededError{Token: token, Limit: limit, ResetAt: now.Add(l.interval)}
		}
		l.windows[token] = &window{count: 1, start: now}
		return nil
	}

	if w.count >= limit {
		return &RateLimitExceededError{
			Token:   token,
			Limit:   limit,
			ResetAt: w.start.Add(l.interval),
		}
	}

	w.count++
	return nil
}

// Sweep drops windows that have expired, then evicts the oldest windows
// until no more than maxTokens remain.
func (l *IntervalLimiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for token, w := range l.windows {
		if now.Sub(w.start) >= l.interval {
			delete(l.windows, token)
		}
	}

	excess := len(l.windows) - l.maxTokens
	if excess <= 0 {
		return
	}

	type tracked struct {
		token string
		start time.Time
	}

	oldest := make([]tracked, 0, len(l.windows))
	for token, w := range l.windows {
		oldest = append(oldest, tracked{token: token, start: w.start})
	}
	slices.SortFunc(oldest, func(a, b tracked) int {
		return a.start.Compare(b.start)
	})

	for _, t := range oldest[:excess] {
		delete(l.windows, t.token)
	}
}

// Len is the number of tokens currently tracked.
func (l *IntervalLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Reset forgets all tracked windows.
func (l *IntervalLimiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.windows = make(map[string]*window)
}

func (l *IntervalLimiter) Close() error {
	l.stopOnce.Do(func() {
		if l.stopCh != nil {
			close(l.stopCh)
		}
	})
	return nil
}

func (l *IntervalLimiter) sweeper() {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Sweep()
		case <-l.stopCh:
			return
		}
	}
}

var _ Limiter = (*IntervalLimiter)(nil)
