package ratelimit

import (
	"time"
)

// Class is one independent admission-control bucket. A route can be gated
// by several classes; the request must pass all of them.
type Class struct {
	Name   string
	Window time.Duration
	Max    int
}

// Decision is the outcome of one admission check, carrying everything the
// HTTP layer needs for the X-RateLimit-* response headers.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int // seconds, set only when denied
}

// Limiter applies window-by-reset admission control per identity. This is
// an approximate sliding window: a fixed-size counter opens on the first
// request and resets after the window elapses, so bursts up to Max are
// possible across a window boundary. The trade-off buys O(1) memory per
// identity and is intentional; do not replace it with a sliding log.
type Limiter struct {
	class Class
	store Store
	now   func() time.Time
}

// New creates a limiter for one class over the given store.
func New(class Class, store Store) *Limiter {
	return &Limiter{class: class, store: store, now: time.Now}
}

// Admit decides whether the request identified by identity may proceed.
// An entry whose window has expired is treated as if it never existed,
// regardless of whether a sweeper reclaimed it yet.
func (l *Limiter) Admit(identity string) (Decision, error) {
	key := l.class.Name + ":" + identity

	// Optimistic CAS loop; contention on a single identity is rare enough
	// that a handful of retries always suffices.
	for attempt := 0; attempt < 16; attempt++ {
		now := l.now()
		cur, found, err := l.store.Get(key)
		if err != nil {
			return Decision{}, err
		}

		if !found || !now.Before(cur.ResetAt) {
			fresh := Window{Count: 1, ResetAt: now.Add(l.class.Window)}
			old := Window{}
			if found {
				old = cur
			}
			ok, err := l.store.CompareAndSwap(key, old, fresh)
			if err != nil {
				return Decision{}, err
			}
			if !ok {
				continue
			}
			return l.decide(fresh, now), nil
		}

		if cur.Count >= l.class.Max {
			d := l.decide(cur, now)
			d.Allowed = false
			d.RetryAfter = retryAfterSeconds(cur.ResetAt, now)
			return d, nil
		}

		next := Window{Count: cur.Count + 1, ResetAt: cur.ResetAt}
		ok, err := l.store.CompareAndSwap(key, cur, next)
		if err != nil {
			return Decision{}, err
		}
		if !ok {
			continue
		}
		return l.decide(next, now), nil
	}

	// CAS starvation; admit rather than spuriously reject.
	return Decision{Allowed: true, Limit: l.class.Max, ResetAt: l.now().Add(l.class.Window)}, nil
}

func (l *Limiter) decide(w Window, now time.Time) Decision {
	remaining := l.class.Max - w.Count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   true,
		Limit:     l.class.Max,
		Remaining: remaining,
		ResetAt:   w.ResetAt,
	}
}

func retryAfterSeconds(resetAt, now time.Time) int {
	ms := resetAt.Sub(now).Milliseconds()
	if ms <= 0 {
		return 1
	}
	secs := int((ms + 999) / 1000)
	if secs < 1 {
		secs = 1
	}
	return secs
}
