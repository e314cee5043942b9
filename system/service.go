package system

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/yohamta/donburi"

	"github.com/lixenwraith/audiosync/audio"
	"github.com/lixenwraith/audiosync/component"
	"github.com/lixenwraith/audiosync/constant"
	"github.com/lixenwraith/audiosync/delay"
	"github.com/lixenwraith/audiosync/engine"
	"github.com/lixenwraith/audiosync/service"
	"github.com/lixenwraith/audiosync/status"
)

// EngineServiceName is the hub name of the engine service
const EngineServiceName = "engine"

// ControllerProvider exposes the mixer owned by the audio service
type ControllerProvider interface {
	Controller() *audio.Controller
}

// EngineConfig wires the engine service
type EngineConfig struct {
	Hz               uint32
	InitialTolerance uint64
	HysteresisTicks  uint32
	Cue              audio.SoundCue
	CueEvery         uint64  // 0 disables the cue system
	CueVolume        float64 // effects.Volume steps, 0 leaves the cue untouched
	CuePan           float64
	AudioService     string  // Hub name of the ControllerProvider, defaults to "audio"
	Status           *status.Registry
	Log              zerolog.Logger
}

// EngineService runs the world on a fixed tick with the listener entity bound to the mixer
type EngineService struct {
	cfg EngineConfig
	log zerolog.Logger

	mu        sync.Mutex
	world     *engine.World
	scheduler *engine.ClockScheduler
	listener  donburi.Entity
}

// NewEngineService creates the service; the world is built on Init
func NewEngineService(cfg EngineConfig) *EngineService {
	if cfg.AudioService == "" {
		cfg.AudioService = "audio"
	}
	if cfg.Status == nil {
		cfg.Status = status.NewRegistry()
	}
	return &EngineService{cfg: cfg, log: cfg.Log.With().Str("service", EngineServiceName).Logger()}
}

// Name implements service.Service
func (s *EngineService) Name() string {
	return EngineServiceName
}

// Dependencies implements service.Service
func (s *EngineService) Dependencies() []string {
	return []string{s.cfg.AudioService}
}

// Init builds the world, spawns the listener and registers the systems
func (s *EngineService) Init(hub *service.Hub) error {
	provider, err := service.Lookup[ControllerProvider](hub, s.cfg.AudioService)
	if err != nil {
		return err
	}
	ctrl := provider.Controller()
	if ctrl == nil {
		return fmt.Errorf("%s: %s has no controller", EngineServiceName, s.cfg.AudioService)
	}

	world := engine.NewWorld(
		engine.WithWorldLogger(s.log),
		engine.WithWorldStatus(s.cfg.Status),
	)

	var opts []delay.Option
	if s.cfg.InitialTolerance > 0 {
		opts = append(opts, delay.WithInitialTolerance(s.cfg.InitialTolerance))
	}
	if s.cfg.HysteresisTicks > 0 {
		opts = append(opts, delay.WithHysteresisTicks(s.cfg.HysteresisTicks))
	}
	opts = append(opts, delay.WithLogger(s.log))

	var listener donburi.Entity
	world.RunSafe(func() {
		entry := world.Spawn([]string{constant.LabelListener}, component.AudioControl)
		component.AudioControl.SetValue(entry, component.AudioControlComponent{Clock: ctrl, Hz: s.cfg.Hz})
		listener = entry.Entity()
	})

	world.AddSystem(NewAudioSyncSystem(world, delay.NewManager(opts...), WithLabel(constant.LabelListener)))
	if s.cfg.CueEvery > 0 {
		var cueOpts []audio.PlayOption
		if s.cfg.CueVolume != 0 {
			cueOpts = append(cueOpts, audio.WithVolume(s.cfg.CueVolume))
		}
		if s.cfg.CuePan != 0 {
			cueOpts = append(cueOpts, audio.WithPan(s.cfg.CuePan))
		}
		world.AddSystem(NewCueSystem(world, ctrl, s.cfg.Cue, s.cfg.CueEvery, cueOpts...))
	}

	ResyncEvents.Subscribe(world.ECS, func(_ donburi.World, ev ResyncEvent) {
		s.log.Debug().
			Uint64("game_tick", ev.Result.GameTick).
			Uint64("audio_tick", ev.Result.AudioTick).
			Int64("drift", ev.Result.Drift).
			Uint64("sample", ev.Result.ResyncSample).
			Msg("audio resync")
	})

	scheduler, err := engine.NewClockScheduler(world, nil, s.cfg.Hz)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.world = world
	s.scheduler = scheduler
	s.listener = listener
	return nil
}

// Start launches the tick loop
func (s *EngineService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scheduler == nil {
		return fmt.Errorf("%s: not initialized", EngineServiceName)
	}
	s.scheduler.Start()
	return nil
}

// Stop halts the tick loop, idempotent
func (s *EngineService) Stop() error {
	s.mu.Lock()
	scheduler := s.scheduler
	s.mu.Unlock()
	if scheduler != nil {
		scheduler.Stop()
	}
	return nil
}

// World returns the engine world, nil before Init
func (s *EngineService) World() *engine.World {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.world
}

// Scheduler returns the tick scheduler, nil before Init
func (s *EngineService) Scheduler() *engine.ClockScheduler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduler
}

// Listener returns the entity bound to the mixer
func (s *EngineService) Listener() donburi.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener
}
