package auth

import (
	"strings"
	"sync"
	"time"
)

// LoginLimiter is a per-email sliding-window rate limiter for login
// attempts. It is per-process and advisory, not a security boundary.
type LoginLimiter struct {
	mu       sync.Mutex
	window   time.Duration
	max      int
	attempts map[string][]time.Time
}

// NewLoginLimiter creates a limiter allowing max attempts per window.
func NewLoginLimiter(max int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{
		window:   window,
		max:      max,
		attempts: make(map[string][]time.Time),
	}
}

// Allow records an attempt for the email and reports whether it is within
// the window budget.
func (l *LoginLimiter) Allow(email string, now time.Time) bool {
	key := strings.ToLower(email)
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.attempts[key][:0]
	for _, t := range l.attempts[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= l.max {
		l.attempts[key] = kept
		return false
	}
	l.attempts[key] = append(kept, now)
	return true
}

// Reset clears the window for an email after a successful login.
func (l *LoginLimiter) Reset(email string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, strings.ToLower(email))
}
