package delay

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lixenwraith/audiosync/constant"
)

// Clock is the sample clock view the manager reads and corrects
// Implemented by audio.Controller; SampleCount and ResetSampleCounter must be atomic
type Clock interface {
	SampleCount() uint64
	SampleRate() uint32
	HasPlaying() bool
	ResetSampleCounter(v int64)
}

// Result reports the outcome of one correction step
type Result struct {
	GameTick  uint64
	AudioTick uint64
	Drift     int64 // GameTick - AudioTick

	RangeMin uint64
	RangeMax uint64

	Tightened bool
	Widened   bool
	Resynced  bool

	// ResyncSample is the stored sample count when Resynced is set
	ResyncSample uint64
}

// Manager runs the fast-widen / slow-tighten drift control loop
// Stateless apart from configuration; per-listener data lives in State
type Manager struct {
	hysteresisTicks  uint32
	initialTolerance uint64
	log              zerolog.Logger
}

// Option configures a Manager
type Option func(*Manager)

// WithHysteresisTicks sets the low-drift streak length required before tightening
func WithHysteresisTicks(n uint32) Option {
	return func(m *Manager) {
		if n > 0 {
			m.hysteresisTicks = n
		}
	}
}

// WithInitialTolerance sets the tolerance assigned to a fresh State
func WithInitialTolerance(tol uint64) Option {
	return func(m *Manager) {
		m.initialTolerance = tol
	}
}

// WithLogger attaches a logger for resync diagnostics
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) {
		m.log = l
	}
}

// NewManager creates a manager with default window parameters
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		hysteresisTicks:  constant.HysteresisTicks,
		initialTolerance: constant.InitialTolerance,
		log:              zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// HysteresisTicks returns the configured tightening streak
func (m *Manager) HysteresisTicks() uint32 {
	return m.hysteresisTicks
}

// InitialTolerance returns the tolerance a fresh State starts with
func (m *Manager) InitialTolerance() uint64 {
	return m.initialTolerance
}

// SamplesPerTick returns the integer number of sample frames per game tick
// Panics on hz == 0 or sampleRate < hz, both caller preconditions
func SamplesPerTick(sampleRate, hz uint32) uint64 {
	if hz == 0 {
		panic("delay: tick rate must be positive")
	}
	if sampleRate < hz {
		panic(fmt.Sprintf("delay: sample rate %d below tick rate %d", sampleRate, hz))
	}
	return uint64(sampleRate / hz)
}

// AudioTick converts a sample count into the game-tick-equivalent position
func AudioTick(sampleCount uint64, sampleRate, hz uint32) uint64 {
	return sampleCount / SamplesPerTick(sampleRate, hz)
}

// Update runs one correction step for game tick gt at tick rate hz
// A zero-value State is initialized from the current clocks before the step runs
func (m *Manager) Update(st *State, clk Clock, gt uint64, hz uint32) Result {
	spt := SamplesPerTick(clk.SampleRate(), hz)
	at := clk.SampleCount() / spt

	if !st.initialized {
		st.reset(gt, at, m.initialTolerance)
	}

	res := Result{GameTick: gt, AudioTick: at}

	gtStep := satSub(gt, st.LastGameTick)
	atStep := max(at, st.LastAudioTick) - st.LastAudioTick

	switch {
	case gtStep > st.TargetTolerance || atStep > st.TargetTolerance:
		st.HysteresisCounter = 0
		st.TargetTolerance++
		res.Widened = true

	case gtStep < st.TargetTolerance && atStep < st.TargetTolerance:
		st.HysteresisCounter++
		if st.HysteresisCounter >= m.hysteresisTicks {
			st.TargetTolerance--
			st.HysteresisCounter = 0
			res.Tightened = true
		}
	}

	st.LastGameTick = gt
	st.LastAudioTick = at

	res.RangeMin = satSub(gt, 2*st.TargetTolerance)
	res.RangeMax = gt

	if (at < res.RangeMin || at > res.RangeMax) && !clk.HasPlaying() {
		// HasPlaying then reset is not atomic: a voice starting in between sees one shifted tick
		target := satSub(gt, st.TargetTolerance)
		sample := target * spt
		clk.ResetSampleCounter(int64(sample))

		// The jump is a correction, not drift; next step measures from the new position
		st.LastAudioTick = target
		st.Resyncs++

		res.Resynced = true
		res.ResyncSample = sample
		m.log.Debug().
			Uint64("game_tick", gt).
			Uint64("audio_tick", at).
			Uint64("target_tick", target).
			Uint64("tolerance", st.TargetTolerance).
			Msg("audio clock resynced")
		at = target
	}

	res.Drift = int64(gt) - int64(at)
	st.LastDrift = res.Drift
	return res
}

// satSub returns a-b clamped at zero
func satSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}
