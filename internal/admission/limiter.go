// Package admission implements the per-user sliding-window request gate.
//
// Each limiter instance guards one resource class (text or image). Text and
// image quotas never share state: exhausting one class leaves the other
// untouched for the same user.
package admission

import (
	"sync"
	"time"
)

// Decision is the outcome of a single admission check.
//
// RetryAfter is only meaningful when Allowed is false. It may come out zero
// or negative under clock skew; callers clamp before showing it to a user.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter admits at most limit requests per user within a trailing window.
//
// It keeps the raw request timestamps per user (a sliding log, not a token
// bucket) and prunes stale entries on every check, so memory stays bounded
// to O(limit) per active user. A user whose log decays to empty keeps its
// map entry: the map holds one (possibly empty) slice per ever-seen user
// for the lifetime of the process.
//
// Limiter is safe for concurrent use from multiple goroutines.
type Limiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	now    func() time.Time
	logs   map[int64][]time.Time
}

// New returns a Limiter allowing at most limit requests per user within
// window. Non-positive inputs fall back to 1 request per minute.
func New(limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		limit:  limit,
		window: window,
		now:    time.Now,
		logs:   make(map[int64][]time.Time),
	}
}

// Check decides whether userID may issue another request and records it on
// admit. On reject the pruned log is persisted unchanged, so repeated
// rejected calls neither grow nor leak state.
//
// The read-prune-append sequence runs under the limiter lock; callers must
// not invoke Check while holding locks of their own that external calls
// depend on.
func (l *Limiter) Check(userID int64) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	existing := l.logs[userID]
	valid := existing[:0] // reuse backing array
	for _, t := range existing {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}

	if len(valid) >= l.limit {
		l.logs[userID] = valid
		return Decision{
			Allowed:    false,
			RetryAfter: valid[0].Add(l.window).Sub(now),
		}
	}

	l.logs[userID] = append(valid, now)
	return Decision{Allowed: true}
}

// Remaining returns how many requests userID can still make within the
// current window without mutating the log.
func (l *Limiter) Remaining(userID int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	count := 0
	for _, t := range l.logs[userID] {
		if t.After(cutoff) {
			count++
		}
	}
	rem := l.limit - count
	if rem < 0 {
		return 0
	}
	return rem
}

// Limit reports the configured per-window request cap.
func (l *Limiter) Limit() int { return l.limit }

// Window reports the configured trailing window duration.
func (l *Limiter) Window() time.Duration { return l.window }

// TrackedUsers reports how many users currently hold a log entry, including
// users whose log has decayed to empty.
func (l *Limiter) TrackedUsers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.logs)
}

// SetNowFunc overrides the limiter clock. Tests only.
func (l *Limiter) SetNowFunc(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if now != nil {
		l.now = now
	}
}
