package status

import (
	"sync/atomic"
	"unicode/utf8"
)

// MaxStringLen caps string metrics in bytes so monitor rows stay one line
const MaxStringLen = 32

// AtomicString is a lock-free string metric, zero value reads as ""
type AtomicString struct {
	v atomic.Pointer[string]
}

// Store publishes val, cut back to MaxStringLen on a rune boundary
func (s *AtomicString) Store(val string) {
	val = truncate(val)
	s.v.Store(&val)
}

// Load returns the last stored value
func (s *AtomicString) Load() string {
	if p := s.v.Load(); p != nil {
		return *p
	}
	return ""
}

func truncate(val string) string {
	if len(val) <= MaxStringLen {
		return val
	}
	cut := MaxStringLen
	for cut > 0 && !utf8.RuneStart(val[cut]) {
		cut--
	}
	return val[:cut]
}
