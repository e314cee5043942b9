package engine

import "time"

// TimeProvider is the real-time source behind PausableClock
type TimeProvider interface {
	Now() time.Time
}

// MonotonicTimeProvider returns time.Now, which carries a monotonic reading
type MonotonicTimeProvider struct{}

// NewMonotonicTimeProvider creates a wall clock provider
func NewMonotonicTimeProvider() *MonotonicTimeProvider {
	return &MonotonicTimeProvider{}
}

// Now returns the current time
func (MonotonicTimeProvider) Now() time.Time {
	return time.Now()
}
