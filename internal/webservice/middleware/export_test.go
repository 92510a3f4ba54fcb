package middleware

import "time"

// SetClock sets the clock of the limiter.
func (l *Limiter) SetClock(now func() time.Time) {
	l.now = now
}

// Tracked returns the number of clients currently tracked.
func (l *Limiter) Tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
