package output

import (
	"fmt"
	"io/fs"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lixenwraith/audiosync/audio"
	"github.com/lixenwraith/audiosync/service"
	"github.com/lixenwraith/audiosync/status"
)

// ServiceName is the hub name of the audio service
const ServiceName = "audio"

// MetricBackend reports the active backend name
const MetricBackend = "audio.backend"

// ServiceConfig wires the audio service
type ServiceConfig struct {
	Audio    audio.Config
	Output   Config
	Sounds   fs.FS // Optional WAV assets
	SoundDir string
	Status   *status.Registry
	Log      zerolog.Logger
}

// AudioService owns the mixer and its output backend
type AudioService struct {
	cfg ServiceConfig
	log zerolog.Logger

	mu      sync.Mutex
	ctrl    *audio.Controller
	backend Backend
}

// NewAudioService creates the service; the controller is built on Init
func NewAudioService(cfg ServiceConfig) *AudioService {
	if cfg.Status == nil {
		cfg.Status = status.NewRegistry()
	}
	return &AudioService{cfg: cfg, log: cfg.Log.With().Str("service", ServiceName).Logger()}
}

// Name implements service.Service
func (s *AudioService) Name() string {
	return ServiceName
}

// Dependencies implements service.Service
func (s *AudioService) Dependencies() []string {
	return nil
}

// Init builds the controller, renders cues and loads sound assets
func (s *AudioService) Init(*service.Hub) error {
	ctrl, err := audio.NewController(s.cfg.Audio,
		audio.WithLogger(s.log),
		audio.WithStatus(s.cfg.Status),
	)
	if err != nil {
		return err
	}
	if err := ctrl.PreloadCues(); err != nil {
		return fmt.Errorf("preload cues: %w", err)
	}
	if s.cfg.Sounds != nil {
		dir := s.cfg.SoundDir
		if dir == "" {
			dir = "."
		}
		if _, err := ctrl.LoadSounds(s.cfg.Sounds, dir); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.ctrl = ctrl
	s.mu.Unlock()
	return nil
}

// Start opens the output backend
func (s *AudioService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctrl == nil {
		return fmt.Errorf("audio service not initialized")
	}
	out := s.cfg.Output
	out.Log = s.log
	b, err := Open(out, s.ctrl)
	if err != nil {
		return err
	}
	s.backend = b
	s.cfg.Status.Strings.Get(MetricBackend).Store(b.Name())
	return nil
}

// Stop halts the backend and closes the controller, idempotent
func (s *AudioService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.backend != nil {
		err = s.backend.Stop()
		s.backend = nil
	}
	if s.ctrl != nil {
		s.ctrl.Close()
	}
	return err
}

// Controller returns the mixer, nil before Init
func (s *AudioService) Controller() *audio.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl
}

// Backend returns the running backend, nil when stopped
func (s *AudioService) Backend() Backend {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend
}
