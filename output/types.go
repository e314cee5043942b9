// Package output drives the mixer from an audio device or a pacing loop
// Every backend pulls frames from a Source, which makes it the render callback
package output

import (
	"errors"
	"io"
	"time"

	"github.com/gopxl/beep"
	"github.com/rs/zerolog"

	"github.com/lixenwraith/audiosync/constant"
)

// Sentinel errors
var (
	ErrNoAudioBackend     = errors.New("no compatible audio backend found")
	ErrPipeClosed         = errors.New("audio pipe closed")
	ErrBackendUnavailable = errors.New("audio backend not available in this build")
	ErrUnknownBackend     = errors.New("unknown audio backend")
	ErrAlreadyStarted     = errors.New("audio backend already started")
)

// Source is the render side of the mixer; implemented by audio.Controller
type Source interface {
	beep.Streamer
	io.Reader
	ReadS16(p []byte) (int, error)
	SampleRate() uint32
	Channels() int
}

// Backend delivers rendered audio somewhere, pulling from its Source
type Backend interface {
	Name() string
	Start(src Source) error
	Stop() error
}

// Config selects and tunes a backend
type Config struct {
	Name   string        // auto, oto, speaker, ebiten, pipe, null
	Buffer time.Duration // Device buffer or pacing cadence
	Log    zerolog.Logger
}

// DefaultConfig returns automatic selection with the default buffer
func DefaultConfig() Config {
	return Config{
		Name:   BackendAuto,
		Buffer: constant.AudioBufferDuration,
		Log:    zerolog.Nop(),
	}
}

func (c Config) buffer() time.Duration {
	if c.Buffer <= 0 {
		return constant.AudioBufferDuration
	}
	return c.Buffer
}
