package engine

import "time"

// Tick describes one fixed scheduler step
type Tick struct {
	Number uint64        // Game tick, 1 on the first step
	Hz     uint32        // Ticks per second
	Delta  time.Duration // Fixed step duration
}

// System is one per-tick update stage
type System interface {
	Update(w *World, tick Tick)
	Priority() int // Lower values run first
}

// SystemFunc adapts a function into a System with the given priority
type SystemFunc struct {
	Fn    func(w *World, tick Tick)
	Order int
}

// Update calls Fn
func (s SystemFunc) Update(w *World, tick Tick) {
	s.Fn(w, tick)
}

// Priority returns Order
func (s SystemFunc) Priority() int {
	return s.Order
}
