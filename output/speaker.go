//go:build !headless

package output

import (
	"sync"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

// SpeakerBackend plays the mixer as a beep.Streamer through the beep speaker
type SpeakerBackend struct {
	cfg     Config
	mu      sync.Mutex
	started bool
}

func newSpeakerBackend(cfg Config) (Backend, error) {
	return &SpeakerBackend{cfg: cfg}, nil
}

// Name returns the backend name
func (b *SpeakerBackend) Name() string {
	return BackendSpeaker
}

// Start initializes the speaker at the source rate and begins playback
func (b *SpeakerBackend) Start(src Source) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return ErrAlreadyStarted
	}
	sr := beep.SampleRate(src.SampleRate())
	if err := speaker.Init(sr, sr.N(b.cfg.buffer())); err != nil {
		return err
	}
	speaker.Play(src)
	b.started = true
	return nil
}

// Stop clears and closes the speaker, idempotent
func (b *SpeakerBackend) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.started {
		return nil
	}
	speaker.Clear()
	speaker.Close()
	b.started = false
	return nil
}
