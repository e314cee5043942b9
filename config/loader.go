package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Loader reads YAML configuration through an fs.FS
type Loader struct {
	fsys fs.FS
}

// NewLoader creates a loader rooted at a filesystem directory
func NewLoader(basePath string) *Loader {
	return &Loader{fsys: os.DirFS(basePath)}
}

// NewFSLoader creates a loader over fsys
func NewFSLoader(fsys fs.FS) *Loader {
	return &Loader{fsys: fsys}
}

// Load reads name over the defaults; unknown keys are rejected
func (l *Loader) Load(name string) (*Config, error) {
	cfg := Default()

	data, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return cfg, nil
}

// LoadFile reads a config file by OS path
func LoadFile(p string) (*Config, error) {
	return NewLoader(filepath.Dir(p)).Load(filepath.Base(p))
}

// Env variable names
const (
	EnvSampleRate   = "AUDIOSYNC_SAMPLE_RATE"
	EnvChannels     = "AUDIOSYNC_CHANNELS"
	EnvBackend      = "AUDIOSYNC_BACKEND"
	EnvTickRate     = "AUDIOSYNC_TICK_RATE"
	EnvMasterVolume = "AUDIOSYNC_MASTER_VOLUME" // 0-100
	EnvLogLevel     = "AUDIOSYNC_LOG_LEVEL"
)

// ApplyEnv overrides fields from the process environment
func (c *Config) ApplyEnv() error {
	return c.ApplyLookup(os.LookupEnv)
}

// ApplyLookup overrides fields from lookup; malformed values are reported, not ignored
func (c *Config) ApplyLookup(lookup func(string) (string, bool)) error {
	var errs []error
	parseUint := func(key string, bits int, set func(uint64)) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.ParseUint(v, 10, bits)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s=%q", ErrInvalid, key, v))
				return
			}
			set(n)
		}
	}

	parseUint(EnvSampleRate, 32, func(n uint64) { c.Audio.SampleRate = uint32(n) })
	parseUint(EnvChannels, 8, func(n uint64) { c.Audio.Channels = int(n) })
	parseUint(EnvTickRate, 32, func(n uint64) { c.Sync.TickRate = uint32(n) })
	parseUint(EnvMasterVolume, 8, func(n uint64) { c.Audio.MasterVolume = min(float64(n), 100) / 100.0 })

	if v, ok := lookup(EnvBackend); ok && v != "" {
		c.Audio.Backend = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	return errors.Join(errs...)
}
