package audio

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
)

// soundBank holds named pre-decoded sounds in their native format
type soundBank struct {
	mu     sync.RWMutex
	sounds map[string]*beep.Buffer
}

func newSoundBank() *soundBank {
	return &soundBank{sounds: make(map[string]*beep.Buffer)}
}

func (b *soundBank) put(name string, buf *beep.Buffer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sounds[name] = buf
}

func (b *soundBank) get(name string) (*beep.Buffer, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	buf, ok := b.sounds[name]
	return buf, ok
}

func (b *soundBank) names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.sounds))
	for n := range b.sounds {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// DecodeWAV reads a WAV file from fsys into a buffer in its native format
func DecodeWAV(fsys fs.FS, name string) (*beep.Buffer, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	stream, format, err := wav.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", name, err)
	}
	defer stream.Close()

	buf := beep.NewBuffer(format)
	buf.Append(stream)
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return buf, nil
}

// RegisterSound stores buf under name, replacing any previous sound
func (c *Controller) RegisterSound(name string, buf *beep.Buffer) {
	c.sounds.put(name, buf)
}

// LoadSounds decodes every .wav under dir in fsys, keyed by base name without extension
// Returns the number of sounds loaded
func (c *Controller) LoadSounds(fsys fs.FS, dir string) (int, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read sound dir %s: %w", dir, err)
	}

	loaded := 0
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || !strings.EqualFold(path.Ext(e.Name()), ".wav") {
			continue
		}
		buf, err := DecodeWAV(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return loaded, err
		}
		c.RegisterSound(strings.TrimSuffix(e.Name(), path.Ext(e.Name())), buf)
		loaded++
	}

	c.log.Debug().Int("count", loaded).Str("dir", dir).Msg("sounds loaded")
	return loaded, nil
}

// Sounds returns registered sound names in sorted order
func (c *Controller) Sounds() []string {
	return c.sounds.names()
}

// PlaySound plays a registered sound, resampling when its rate differs from the output
func (c *Controller) PlaySound(name string, opts ...PlayOption) (*Voice, error) {
	buf, ok := c.sounds.get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSound, name)
	}
	opts = append([]PlayOption{WithFormat(buf.Format())}, opts...)
	return c.Play(buf.Streamer(0, buf.Len()), opts...)
}

// PreloadCues renders all built-in cues ahead of first use
func (c *Controller) PreloadCues() error {
	return c.cues.preload()
}
