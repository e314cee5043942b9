//go:build !headless

package output

import (
	"fmt"
	"sync"

	"github.com/ebitengine/oto/v3"
)

// oto allows a single context per process
var (
	otoMu      sync.Mutex
	otoCtx     *oto.Context
	otoRate    int
	otoChannel int
)

func otoContext(rate, channels int, cfg Config) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		if otoRate != rate || otoChannel != channels {
			return nil, fmt.Errorf("oto context already open at %dHz/%dch", otoRate, otoChannel)
		}
		return otoCtx, nil
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   rate,
		ChannelCount: channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   cfg.buffer(),
	})
	if err != nil {
		return nil, err
	}
	<-ready

	otoCtx, otoRate, otoChannel = ctx, rate, channels
	return ctx, nil
}

// OtoBackend plays the mixer through an oto player reading float32 frames
type OtoBackend struct {
	cfg    Config
	mu     sync.Mutex
	player *oto.Player
}

func newOtoBackend(cfg Config) (Backend, error) {
	return &OtoBackend{cfg: cfg}, nil
}

// Name returns the backend name
func (b *OtoBackend) Name() string {
	return BackendOto
}

// Start opens the device and begins playback
func (b *OtoBackend) Start(src Source) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.player != nil {
		return ErrAlreadyStarted
	}
	ctx, err := otoContext(int(src.SampleRate()), src.Channels(), b.cfg)
	if err != nil {
		return err
	}
	b.player = ctx.NewPlayer(src)
	b.player.Play()
	return nil
}

// Stop closes the player, idempotent
func (b *OtoBackend) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.player == nil {
		return nil
	}
	err := b.player.Close()
	b.player = nil
	return err
}
