package engine

import (
	"sync"
	"sync/atomic"
	"time"
)

// PausableClock is game time that freezes while paused
// Game elapsed = real elapsed - total paused time
type PausableClock struct {
	mu sync.RWMutex

	provider  TimeProvider
	realStart time.Time

	paused      atomic.Bool
	pauseStart  time.Time
	totalPaused time.Duration
}

// NewPausableClock creates a clock over the wall clock
func NewPausableClock() *PausableClock {
	return NewPausableClockWith(NewMonotonicTimeProvider())
}

// NewPausableClockWith creates a clock over provider
func NewPausableClockWith(provider TimeProvider) *PausableClock {
	return &PausableClock{
		provider:  provider,
		realStart: provider.Now(),
	}
}

// Now returns current game time
func (pc *PausableClock) Now() time.Time {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	if pc.paused.Load() {
		return pc.realStart.Add(pc.pauseStart.Sub(pc.realStart) - pc.totalPaused)
	}
	return pc.realStart.Add(pc.provider.Now().Sub(pc.realStart) - pc.totalPaused)
}

// Elapsed returns game time since the clock was created
func (pc *PausableClock) Elapsed() time.Duration {
	return pc.Now().Sub(pc.realStart)
}

// RealTime returns provider time, unaffected by pause
func (pc *PausableClock) RealTime() time.Time {
	return pc.provider.Now()
}

// Pause freezes game time, no-op when already paused
func (pc *PausableClock) Pause() {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.paused.CompareAndSwap(false, true) {
		pc.pauseStart = pc.provider.Now()
	}
}

// Resume continues game time, no-op when running
func (pc *PausableClock) Resume() {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.paused.CompareAndSwap(true, false) {
		pc.totalPaused += pc.provider.Now().Sub(pc.pauseStart)
		pc.pauseStart = time.Time{}
	}
}

// IsPaused returns current pause state
func (pc *PausableClock) IsPaused() bool {
	return pc.paused.Load()
}

// TotalPauseDuration returns cumulative pause time including a pause in progress
func (pc *PausableClock) TotalPauseDuration() time.Duration {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	total := pc.totalPaused
	if pc.paused.Load() {
		total += pc.provider.Now().Sub(pc.pauseStart)
	}
	return total
}
