package output

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Backend names
const (
	BackendAuto    = "auto"
	BackendOto     = "oto"
	BackendSpeaker = "speaker"
	BackendEbiten  = "ebiten"
	BackendPipe    = "pipe"
	BackendNull    = "null"
)

// AutoOrder is the preference order tried by the auto backend
var AutoOrder = []string{BackendOto, BackendSpeaker, BackendPipe, BackendNull}

// Factory creates an unstarted backend
type Factory func(cfg Config) (Backend, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]Factory{
		BackendOto:     newOtoBackend,
		BackendSpeaker: newSpeakerBackend,
		BackendEbiten:  newEbitenBackend,
		BackendPipe:    func(cfg Config) (Backend, error) { return NewPipeBackend(cfg, nil), nil },
		BackendNull:    func(cfg Config) (Backend, error) { return NewNullBackend(cfg), nil },
	}
)

// Register adds or replaces a backend factory by name
func Register(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// Lookup retrieves a backend factory by name
func Lookup(name string) (Factory, bool) {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	f, ok := factories[name]
	return f, ok
}

// Names returns registered backend names in sorted order
func Names() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Open creates and starts the configured backend against src
// Device failures fall back to the null backend so the sample clock keeps running
// Only an unknown backend name is an error
func Open(cfg Config, src Source) (Backend, error) {
	log := cfg.Log

	candidates := []string{cfg.Name}
	switch cfg.Name {
	case BackendAuto, "":
		candidates = AutoOrder
	case BackendNull:
	default:
		if _, ok := Lookup(cfg.Name); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Name)
		}
		candidates = append(candidates, BackendNull)
	}

	var errs []error
	for _, name := range candidates {
		b, err := start(name, cfg, src)
		if err == nil {
			if len(errs) > 0 {
				log.Warn().Err(errors.Join(errs...)).Str("backend", name).Msg("audio backend fallback")
			} else {
				log.Info().Str("backend", name).Msg("audio backend started")
			}
			return b, nil
		}
		log.Debug().Err(err).Str("backend", name).Msg("audio backend unavailable")
		errs = append(errs, fmt.Errorf("%s: %w", name, err))
	}
	return nil, fmt.Errorf("%w: %w", ErrNoAudioBackend, errors.Join(errs...))
}

func start(name string, cfg Config, src Source) (Backend, error) {
	f, ok := Lookup(name)
	if !ok {
		return nil, ErrUnknownBackend
	}
	b, err := f(cfg)
	if err != nil {
		return nil, err
	}
	if err := b.Start(src); err != nil {
		return nil, err
	}
	return b, nil
}
