package engine

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/lixenwraith/audiosync/constant"
	"github.com/lixenwraith/audiosync/core"
)

// ErrInvalidTickRate is returned for a zero tick rate
var ErrInvalidTickRate = errors.New("tick rate must be positive")

// Metric keys published by the scheduler
const (
	MetricTicks    = "engine.ticks"
	MetricOverruns = "engine.overruns"
	MetricPaused   = "engine.paused"
)

// ClockScheduler runs world updates on a fixed tick against a pausable clock
// The tick counter is the authoritative game tick
type ClockScheduler struct {
	world *World
	clock *PausableClock
	log   zerolog.Logger

	hz           uint32
	tickInterval time.Duration
	maxBehind    time.Duration

	mu               sync.Mutex
	nextTickDeadline time.Time

	tickCount atomic.Uint64

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	running  atomic.Bool

	statTicks    *atomic.Int64
	statOverruns *atomic.Int64
	statPaused   *atomic.Bool
}

// NewClockScheduler creates a scheduler ticking world at hz
// A nil clock uses a fresh wall clock
func NewClockScheduler(world *World, clock *PausableClock, hz uint32) (*ClockScheduler, error) {
	if hz == 0 {
		return nil, ErrInvalidTickRate
	}
	if clock == nil {
		clock = NewPausableClock()
	}

	interval := time.Second / time.Duration(hz)
	return &ClockScheduler{
		world:        world,
		clock:        clock,
		log:          world.Logger(),
		hz:           hz,
		tickInterval: interval,
		maxBehind:    interval * constant.SchedulerMaxBehind,
		stopChan:     make(chan struct{}),
		statTicks:    world.Status.Ints.Get(MetricTicks),
		statOverruns: world.Status.Ints.Get(MetricOverruns),
		statPaused:   world.Status.Bools.Get(MetricPaused),
	}, nil
}

// Hz returns the tick rate
func (cs *ClockScheduler) Hz() uint32 {
	return cs.hz
}

// TickInterval returns the fixed step duration
func (cs *ClockScheduler) TickInterval() time.Duration {
	return cs.tickInterval
}

// TickCount returns the number of ticks processed
func (cs *ClockScheduler) TickCount() uint64 {
	return cs.tickCount.Load()
}

// Clock returns the game clock
func (cs *ClockScheduler) Clock() *PausableClock {
	return cs.clock
}

// Step processes one tick synchronously and returns its number
// Safe alongside a running loop; both serialize on the world update lock
func (cs *ClockScheduler) Step() uint64 {
	var n uint64
	cs.world.RunSafe(func() {
		n = cs.tickCount.Add(1)
		cs.world.UpdateLocked(Tick{Number: n, Hz: cs.hz, Delta: cs.tickInterval})
	})
	cs.statTicks.Store(int64(n))
	return n
}

// Pause freezes game time; the loop idles until Resume
func (cs *ClockScheduler) Pause() {
	cs.clock.Pause()
	cs.statPaused.Store(true)
}

// Resume continues game time from where it was paused
func (cs *ClockScheduler) Resume() {
	cs.clock.Resume()
	cs.statPaused.Store(false)
}

// IsPaused reports the clock pause state
func (cs *ClockScheduler) IsPaused() bool {
	return cs.clock.IsPaused()
}

// Start begins the scheduler loop, no-op if already running or stopped
func (cs *ClockScheduler) Start() {
	select {
	case <-cs.stopChan:
		return
	default:
	}
	if cs.running.CompareAndSwap(false, true) {
		cs.wg.Add(1)
		core.Go(cs.schedulerLoop)
		cs.log.Debug().Uint32("hz", cs.hz).Msg("scheduler started")
	}
}

// Stop halts the loop and waits for the in-flight tick, idempotent
func (cs *ClockScheduler) Stop() {
	cs.stopOnce.Do(func() {
		close(cs.stopChan)
		if cs.running.CompareAndSwap(true, false) {
			cs.wg.Wait()
			cs.log.Debug().Uint64("ticks", cs.tickCount.Load()).Msg("scheduler stopped")
		}
	})
}

// Running reports whether the loop goroutine is active
func (cs *ClockScheduler) Running() bool {
	return cs.running.Load()
}

func (cs *ClockScheduler) schedulerLoop() {
	defer cs.wg.Done()

	cs.mu.Lock()
	cs.nextTickDeadline = cs.clock.Now().Add(cs.tickInterval)
	cs.mu.Unlock()

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-cs.stopChan:
			return
		default:
		}

		sleep := cs.advance()
		if sleep <= 0 {
			continue
		}

		timer.Reset(sleep)
		select {
		case <-timer.C:
		case <-cs.stopChan:
			return
		}
	}
}

// advance runs a tick when the deadline has passed and returns the time to sleep
func (cs *ClockScheduler) advance() time.Duration {
	if cs.clock.IsPaused() {
		return cs.tickInterval * 2
	}

	now := cs.clock.Now()
	cs.mu.Lock()
	deadline := cs.nextTickDeadline
	cs.mu.Unlock()

	if now.Before(deadline) {
		return deadline.Sub(now)
	}

	cs.Step()

	cs.mu.Lock()
	cs.nextTickDeadline = cs.nextTickDeadline.Add(cs.tickInterval)
	if now.Sub(cs.nextTickDeadline) > cs.maxBehind {
		// Too far behind to catch up; drop the backlog
		cs.nextTickDeadline = now.Add(cs.tickInterval)
		cs.statOverruns.Add(1)
	}
	deadline = cs.nextTickDeadline
	cs.mu.Unlock()

	return deadline.Sub(cs.clock.Now())
}
