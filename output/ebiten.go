//go:build !headless

package output

import (
	"fmt"
	"sync"

	"github.com/hajimehoshi/ebiten/v2/audio"
)

// EbitenBackend plays the mixer through an ebiten audio player in float32 stereo
type EbitenBackend struct {
	cfg    Config
	mu     sync.Mutex
	player *audio.Player
}

func newEbitenBackend(cfg Config) (Backend, error) {
	return &EbitenBackend{cfg: cfg}, nil
}

// Name returns the backend name
func (b *EbitenBackend) Name() string {
	return BackendEbiten
}

// Start reuses or creates the process-wide ebiten audio context and begins playback
func (b *EbitenBackend) Start(src Source) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.player != nil {
		return ErrAlreadyStarted
	}
	if src.Channels() != 2 {
		return fmt.Errorf("ebiten output requires stereo, got %d channels", src.Channels())
	}

	ctx := audio.CurrentContext()
	if ctx == nil {
		ctx = audio.NewContext(int(src.SampleRate()))
	} else if ctx.SampleRate() != int(src.SampleRate()) {
		return fmt.Errorf("ebiten audio context already open at %dHz", ctx.SampleRate())
	}

	player, err := ctx.NewPlayerF32(src)
	if err != nil {
		return err
	}
	player.SetBufferSize(b.cfg.buffer())
	player.Play()
	b.player = player
	return nil
}

// Stop closes the player, idempotent
func (b *EbitenBackend) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.player == nil {
		return nil
	}
	err := b.player.Close()
	b.player = nil
	return err
}
