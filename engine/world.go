package engine

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/yohamta/donburi"
	dcomponent "github.com/yohamta/donburi/component"
	"github.com/yohamta/donburi/features/events"

	"github.com/lixenwraith/audiosync/label"
	"github.com/lixenwraith/audiosync/status"
)

// World wraps a donburi world with ordered systems, a label index and a metrics registry
// All ECS mutation happens under the update lock, held by Update and RunSafe
type World struct {
	ECS    donburi.World
	Labels *label.Registry[donburi.Entity, string]
	Status *status.Registry

	log zerolog.Logger

	mu      sync.RWMutex
	systems []System

	updateMutex sync.Mutex
	lastTick    atomic.Uint64
}

// WorldOption configures a World
type WorldOption func(*World)

// WithWorldLogger attaches a logger
func WithWorldLogger(l zerolog.Logger) WorldOption {
	return func(w *World) {
		w.log = l
	}
}

// WithWorldStatus shares an existing metrics registry
func WithWorldStatus(reg *status.Registry) WorldOption {
	return func(w *World) {
		if reg != nil {
			w.Status = reg
		}
	}
}

// NewWorld creates an empty world
func NewWorld(opts ...WorldOption) *World {
	w := &World{
		ECS:    donburi.NewWorld(),
		Labels: label.NewRegistry[donburi.Entity, string](),
		Status: status.NewRegistry(),
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Logger returns the world logger for systems
func (w *World) Logger() zerolog.Logger {
	return w.log
}

// Spawn creates an entity with comps and attaches labels
func (w *World) Spawn(labels []string, comps ...dcomponent.IComponentType) *donburi.Entry {
	e := w.ECS.Create(comps...)
	for _, l := range labels {
		w.Labels.Add(e, l)
	}
	return w.ECS.Entry(e)
}

// Destroy removes an entity and its labels
func (w *World) Destroy(e donburi.Entity) {
	w.Labels.RemoveEntity(e)
	if w.ECS.Valid(e) {
		w.ECS.Remove(e)
	}
}

// Tagged returns the valid entries carrying label l
func (w *World) Tagged(l string) []*donburi.Entry {
	ents := w.Labels.Entities(l)
	out := make([]*donburi.Entry, 0, len(ents))
	for _, e := range ents {
		if w.ECS.Valid(e) {
			out = append(out, w.ECS.Entry(e))
		}
	}
	return out
}

// AddSystem registers a system, keeping systems ordered by priority
// Systems with equal priority keep registration order
func (w *World) AddSystem(s System) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.systems = append(w.systems, s)
	slices.SortStableFunc(w.systems, func(a, b System) int {
		return a.Priority() - b.Priority()
	})
}

// Systems returns a copy of the registered systems in run order
func (w *World) Systems() []System {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Clone(w.systems)
}

// RunSafe executes fn while holding the update lock
func (w *World) RunSafe(fn func()) {
	w.updateMutex.Lock()
	defer w.updateMutex.Unlock()
	fn()
}

// Lock acquires the update lock
func (w *World) Lock() {
	w.updateMutex.Lock()
}

// TryLock attempts the update lock without blocking
func (w *World) TryLock() bool {
	return w.updateMutex.TryLock()
}

// Unlock releases the update lock
func (w *World) Unlock() {
	w.updateMutex.Unlock()
}

// Update runs all systems for tick under the update lock
func (w *World) Update(tick Tick) {
	w.RunSafe(func() {
		w.UpdateLocked(tick)
	})
}

// UpdateLocked runs all systems then delivers queued donburi events
// Caller must hold the update lock
func (w *World) UpdateLocked(tick Tick) {
	for _, s := range w.Systems() {
		s.Update(w, tick)
	}
	events.ProcessAllEvents(w.ECS)
	w.lastTick.Store(tick.Number)
}

// LastTick returns the number of the most recent completed tick
func (w *World) LastTick() uint64 {
	return w.lastTick.Load()
}
