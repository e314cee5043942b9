// Package config loads runtime settings from YAML, environment and flags
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lixenwraith/audiosync/constant"
)

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid config")

// Config is the full runtime configuration
type Config struct {
	Audio   AudioConfig   `yaml:"audio"`
	Sync    SyncConfig    `yaml:"sync"`
	Log     LogConfig     `yaml:"log"`
	Monitor MonitorConfig `yaml:"monitor"`
}

// AudioConfig configures the mixer and its output
type AudioConfig struct {
	SampleRate   uint32        `yaml:"sample_rate"`
	Channels     int           `yaml:"channels"`
	Backend      string        `yaml:"backend"`
	Buffer       time.Duration `yaml:"buffer"`
	QueueSize    int           `yaml:"queue_size"`
	MasterVolume float64       `yaml:"master_volume"`
	Sounds       string        `yaml:"sounds"` // Directory of WAV assets, empty for none
}

// SyncConfig configures the tick loop and drift control
type SyncConfig struct {
	TickRate         uint32  `yaml:"tick_rate"`
	InitialTolerance uint64  `yaml:"initial_tolerance"`
	HysteresisTicks  uint32  `yaml:"hysteresis_ticks"`
	CueEvery         uint64  `yaml:"cue_every"` // Play a cue every N ticks, 0 disables
	Cue              string  `yaml:"cue"`
	CueVolume        float64 `yaml:"cue_volume"` // Base-2 steps, -1 halves amplitude
	CuePan           float64 `yaml:"cue_pan"`    // -1 left to +1 right
}

// LogConfig configures logging
type LogConfig struct {
	Level string `yaml:"level"`
}

// MonitorConfig configures the terminal monitor
type MonitorConfig struct {
	Enabled bool          `yaml:"enabled"`
	Refresh time.Duration `yaml:"refresh"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate:   constant.AudioSampleRate,
			Channels:     constant.AudioChannels,
			Backend:      "auto",
			Buffer:       constant.AudioBufferDuration,
			QueueSize:    constant.AudioQueueSize,
			MasterVolume: 1.0,
		},
		Sync: SyncConfig{
			TickRate:         constant.TickRate,
			InitialTolerance: constant.InitialTolerance,
			HysteresisTicks:  constant.HysteresisTicks,
			Cue:              "tick",
		},
		Log: LogConfig{
			Level: "info",
		},
		Monitor: MonitorConfig{
			Refresh: constant.MonitorRefresh,
		},
	}
}

var backends = map[string]bool{
	"auto": true, "oto": true, "speaker": true, "ebiten": true, "pipe": true, "null": true,
}

// Validate checks ranges and cross-field constraints
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Sync.TickRate == 0 {
		fail("sync.tick_rate must be positive")
	}
	if c.Audio.SampleRate < c.Sync.TickRate {
		fail("audio.sample_rate %d below sync.tick_rate %d", c.Audio.SampleRate, c.Sync.TickRate)
	}
	if c.Audio.Channels != 1 && c.Audio.Channels != 2 {
		fail("audio.channels must be 1 or 2, got %d", c.Audio.Channels)
	}
	if c.Audio.MasterVolume < 0 || c.Audio.MasterVolume > 1 {
		fail("audio.master_volume %.2f outside [0,1]", c.Audio.MasterVolume)
	}
	if c.Audio.QueueSize <= 0 {
		fail("audio.queue_size must be positive")
	}
	if c.Audio.Buffer <= 0 {
		fail("audio.buffer must be positive")
	}
	if !backends[c.Audio.Backend] {
		fail("audio.backend %q unknown", c.Audio.Backend)
	}
	if c.Sync.CuePan < -1 || c.Sync.CuePan > 1 {
		fail("sync.cue_pan %.2f outside [-1,1]", c.Sync.CuePan)
	}
	if c.Sync.HysteresisTicks == 0 {
		fail("sync.hysteresis_ticks must be positive")
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		fail("log.level %q: %v", c.Log.Level, err)
	}
	if c.Monitor.Enabled && c.Monitor.Refresh <= 0 {
		fail("monitor.refresh must be positive")
	}
	return errors.Join(errs...)
}
