package service

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"
)

var (
	ErrDuplicate         = errors.New("service already registered")
	ErrMissingDependency = errors.New("service depends on unregistered service")
	ErrCircular          = errors.New("circular service dependency")
	ErrNotFound          = errors.New("service not found")
)

// Hub owns service instances and drives their lifecycle in dependency order
type Hub struct {
	mu          sync.RWMutex
	services    map[string]Service
	sorted      []string // Topological order, computed on InitAll
	initialized []string
	started     []string
	log         zerolog.Logger
}

// NewHub creates an empty hub
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		services: make(map[string]Service),
		log:      log,
	}
}

// Register adds a service instance
func (h *Hub) Register(svc Service) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	name := svc.Name()
	if _, exists := h.services[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	h.services[name] = svc
	h.sorted = nil
	return nil
}

// Get retrieves a service by name
func (h *Hub) Get(name string) (Service, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	svc, ok := h.services[name]
	return svc, ok
}

// Lookup retrieves a service by name and asserts it to T
func Lookup[T any](h *Hub, name string) (T, error) {
	var zero T
	svc, ok := h.Get(name)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	typed, ok := svc.(T)
	if !ok {
		return zero, fmt.Errorf("service %s: type mismatch, got %T", name, svc)
	}
	return typed, nil
}

// MustGet retrieves a service and asserts it to T, panics on failure
func MustGet[T any](h *Hub, name string) T {
	typed, err := Lookup[T](h, name)
	if err != nil {
		panic(err)
	}
	return typed
}

// InitAll calls Init on every service in dependency order
// On failure, already-initialized services are stopped in reverse order
func (h *Hub) InitAll() error {
	h.mu.Lock()
	if h.sorted == nil {
		order, err := h.topologicalSort()
		if err != nil {
			h.mu.Unlock()
			return err
		}
		h.sorted = order
	}
	order := slices.Clone(h.sorted)
	h.mu.Unlock()

	// Init runs unlocked so services can resolve their dependencies through the hub
	var initialized []string
	for _, name := range order {
		svc, _ := h.Get(name)
		if err := svc.Init(h); err != nil {
			h.rollback(initialized)
			return fmt.Errorf("service %s init failed: %w", name, err)
		}
		h.log.Debug().Str("service", name).Msg("service initialized")
		initialized = append(initialized, name)
	}

	h.mu.Lock()
	h.initialized = initialized
	h.mu.Unlock()
	return nil
}

// StartAll calls Start on every service in dependency order
// On failure, every initialized service is stopped in reverse order
func (h *Hub) StartAll() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.started = nil
	for _, name := range h.sorted {
		if err := h.services[name].Start(); err != nil {
			h.stopLocked(h.initialized)
			h.initialized = nil
			return fmt.Errorf("service %s start failed: %w", name, err)
		}
		h.log.Debug().Str("service", name).Msg("service started")
		h.started = append(h.started, name)
	}
	return nil
}

// StopAll stops every initialized service in reverse dependency order
// All services get Stop called; errors are joined
func (h *Hub) StopAll() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	err := h.stopLocked(h.initialized)
	h.initialized = nil
	h.started = nil
	return err
}

func (h *Hub) rollback(names []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.stopLocked(names); err != nil {
		h.log.Warn().Err(err).Msg("service rollback")
	}
}

func (h *Hub) stopLocked(names []string) error {
	var errs []error
	for i := len(names) - 1; i >= 0; i-- {
		if err := h.services[names[i]].Stop(); err != nil {
			errs = append(errs, fmt.Errorf("service %s stop: %w", names[i], err))
			continue
		}
		h.log.Debug().Str("service", names[i]).Msg("service stopped")
	}
	return errors.Join(errs...)
}

// topologicalSort computes initialization order using Kahn's algorithm
// Ties resolve by name so the order is deterministic
func (h *Hub) topologicalSort() ([]string, error) {
	inDegree := make(map[string]int, len(h.services))
	dependents := make(map[string][]string)

	for name := range h.services {
		inDegree[name] = 0
	}
	for name, svc := range h.services {
		for _, dep := range svc.Dependencies() {
			if _, exists := h.services[dep]; !exists {
				return nil, fmt.Errorf("%w: %s -> %s", ErrMissingDependency, name, dep)
			}
			inDegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var queue []string
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	slices.Sort(queue)

	result := make([]string, 0, len(h.services))
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		result = append(result, name)

		next := dependents[name]
		slices.Sort(next)
		for _, dependent := range next {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(result) != len(h.services) {
		return nil, ErrCircular
	}
	return result, nil
}

// Order returns the computed initialization order, nil before InitAll
func (h *Hub) Order() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(h.sorted)
}

// Names returns all registered service names in sorted order
func (h *Hub) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.services))
	for name := range h.services {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
