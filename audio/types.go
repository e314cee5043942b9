package audio

import (
	"errors"

	"github.com/lixenwraith/audiosync/constant"
)

// Sentinel errors
var (
	ErrClosed          = errors.New("audio controller closed")
	ErrQueueFull       = errors.New("audio play queue full")
	ErrNilSource       = errors.New("audio source is nil")
	ErrNotSeekable     = errors.New("looping requires a seekable source")
	ErrUnknownCue      = errors.New("unknown sound cue")
	ErrUnknownSound    = errors.New("unknown sound asset")
	ErrInvalidChannels = errors.New("channel count must be 1 or 2")
	ErrInvalidRate     = errors.New("sample rate must be positive")
)

// Config describes the controller output format and queue sizing
type Config struct {
	SampleRate   uint32
	Channels     int
	QueueSize    int
	MasterVolume float64
}

// DefaultConfig returns stereo 48kHz output at full volume
func DefaultConfig() Config {
	return Config{
		SampleRate:   constant.AudioSampleRate,
		Channels:     constant.AudioChannels,
		QueueSize:    constant.AudioQueueSize,
		MasterVolume: 1.0,
	}
}

// SoundCue identifies a synthesized built-in sound
type SoundCue int

const (
	CueTick  SoundCue = iota // Metronome click
	CueBell                  // Two-partial bell
	CueError                 // Low buzz
	CueCoin                  // Two-note pickup
	cueCount
)

var cueNames = [cueCount]string{"tick", "bell", "error", "coin"}

// String returns the cue name
func (c SoundCue) String() string {
	if c < 0 || c >= cueCount {
		return "unknown"
	}
	return cueNames[c]
}

// ParseCue resolves a cue by name
func ParseCue(name string) (SoundCue, error) {
	for i, n := range cueNames {
		if n == name {
			return SoundCue(i), nil
		}
	}
	return 0, ErrUnknownCue
}
