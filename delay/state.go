package delay

// State is the per-listener drift tracking data
// Created on the first Update of its audio-control entity, mutated every tick afterwards
type State struct {
	HysteresisCounter uint32
	LastGameTick      uint64
	LastAudioTick     uint64
	TargetTolerance   uint64

	// Diagnostics
	LastDrift int64
	Resyncs   uint64

	initialized bool
}

// NewState returns a State seeded at the given clocks with tolerance tol
func NewState(gt, at, tol uint64) State {
	var st State
	st.reset(gt, at, tol)
	return st
}

// Initialized reports whether the state has been seeded
func (s *State) Initialized() bool {
	return s.initialized
}

func (s *State) reset(gt, at, tol uint64) {
	s.HysteresisCounter = 0
	s.LastGameTick = gt
	s.LastAudioTick = at
	s.TargetTolerance = tol
	s.LastDrift = int64(gt) - int64(at)
	s.initialized = true
}
