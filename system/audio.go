package system

import (
	"sync/atomic"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
	"github.com/yohamta/donburi/filter"
	"github.com/yohamta/donburi/query"

	"github.com/lixenwraith/audiosync/component"
	"github.com/lixenwraith/audiosync/constant"
	"github.com/lixenwraith/audiosync/delay"
	"github.com/lixenwraith/audiosync/engine"
)

// Metric keys published by the sync system, taken from the last processed entity
const (
	MetricGameTick   = "sync.game_tick"
	MetricAudioTick  = "sync.audio_tick"
	MetricDrift      = "sync.drift"
	MetricTolerance  = "sync.tolerance"
	MetricHysteresis = "sync.hysteresis"
	MetricResyncs    = "sync.resyncs"
	MetricWidened    = "sync.widened"
	MetricTightened  = "sync.tightened"
	MetricListeners  = "sync.listeners"
)

// ResyncEvent is published for every hard resync, delivered after the tick's systems ran
type ResyncEvent struct {
	Entity donburi.Entity
	Result delay.Result
}

// ResyncEvents carries ResyncEvent through the world's donburi event queue
var ResyncEvents = events.NewEventType[ResyncEvent]()

// AudioSyncSystem runs the delay manager for every audio-control entity each tick
type AudioSyncSystem struct {
	manager *delay.Manager
	label   string
	query   *query.Query

	// Reused across ticks
	entries []*donburi.Entry

	statGameTick   *atomic.Int64
	statAudioTick  *atomic.Int64
	statDrift      *atomic.Int64
	statTolerance  *atomic.Int64
	statHysteresis *atomic.Int64
	statResyncs    *atomic.Int64
	statWidened    *atomic.Int64
	statTightened  *atomic.Int64
	statListeners  *atomic.Int64
}

// SyncOption configures an AudioSyncSystem
type SyncOption func(*AudioSyncSystem)

// WithLabel restricts the system to entities tagged with l
func WithLabel(l string) SyncOption {
	return func(s *AudioSyncSystem) {
		s.label = l
	}
}

// NewAudioSyncSystem creates the sync system publishing into the world's registry
func NewAudioSyncSystem(world *engine.World, manager *delay.Manager, opts ...SyncOption) *AudioSyncSystem {
	reg := world.Status
	s := &AudioSyncSystem{
		manager:        manager,
		query:          query.NewQuery(filter.Contains(component.AudioControl)),
		statGameTick:   reg.Ints.Get(MetricGameTick),
		statAudioTick:  reg.Ints.Get(MetricAudioTick),
		statDrift:      reg.Ints.Get(MetricDrift),
		statTolerance:  reg.Ints.Get(MetricTolerance),
		statHysteresis: reg.Ints.Get(MetricHysteresis),
		statResyncs:    reg.Ints.Get(MetricResyncs),
		statWidened:    reg.Ints.Get(MetricWidened),
		statTightened:  reg.Ints.Get(MetricTightened),
		statListeners:  reg.Ints.Get(MetricListeners),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Priority returns the system's priority
func (s *AudioSyncSystem) Priority() int {
	return constant.PriorityAudioSync
}

// Update corrects each listener's sample clock against tick.Number
// No audio-control entity makes the tick a no-op
func (s *AudioSyncSystem) Update(w *engine.World, tick engine.Tick) {
	s.collect(w)
	s.statListeners.Store(int64(len(s.entries)))
	if len(s.entries) == 0 {
		return
	}

	for _, entry := range s.entries {
		ctrl := component.AudioControl.Get(entry)
		if ctrl.Clock == nil {
			continue
		}
		hz := ctrl.Hz
		if hz == 0 {
			hz = tick.Hz
		}

		// Structural change, kept outside query iteration
		if !entry.HasComponent(component.Delay) {
			donburi.Add(entry, component.Delay, &component.DelayComponent{})
		}
		st := component.Delay.Get(entry)

		res := s.manager.Update(&st.State, ctrl.Clock, tick.Number, hz)
		s.publish(&st.State, res)

		if res.Resynced {
			ResyncEvents.Publish(w.ECS, ResyncEvent{Entity: entry.Entity(), Result: res})
		}
	}
	clear(s.entries)
}

// collect gathers target entries before any structural change
func (s *AudioSyncSystem) collect(w *engine.World) {
	s.entries = s.entries[:0]
	if s.label != "" {
		for _, entry := range w.Tagged(s.label) {
			if entry.HasComponent(component.AudioControl) {
				s.entries = append(s.entries, entry)
			}
		}
		return
	}
	s.query.Each(w.ECS, func(entry *donburi.Entry) {
		s.entries = append(s.entries, entry)
	})
}

func (s *AudioSyncSystem) publish(st *delay.State, res delay.Result) {
	s.statGameTick.Store(int64(res.GameTick))
	s.statAudioTick.Store(int64(res.AudioTick))
	s.statDrift.Store(res.Drift)
	s.statTolerance.Store(int64(st.TargetTolerance))
	s.statHysteresis.Store(int64(st.HysteresisCounter))
	s.statResyncs.Store(int64(st.Resyncs))
	if res.Widened {
		s.statWidened.Add(1)
	}
	if res.Tightened {
		s.statTightened.Add(1)
	}
}
