package monitor

import (
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"

	"github.com/lixenwraith/audiosync/core"
	"github.com/lixenwraith/audiosync/service"
	"github.com/lixenwraith/audiosync/status"
)

// ServiceName is the hub name of the monitor service
const ServiceName = "monitor"

const defaultRefresh = 250 * time.Millisecond

// ServiceConfig wires the monitor service
type ServiceConfig struct {
	Screen  tcell.Screen // nil creates the default terminal screen on Init
	Status  *status.Registry
	Refresh time.Duration
	Title   string
	After   []string // Services that must start before the monitor
	Log     zerolog.Logger
}

// Service owns the terminal screen for the lifetime of the monitor
type Service struct {
	cfg ServiceConfig
	log zerolog.Logger

	mu        sync.Mutex
	mon       *Monitor
	screen    tcell.Screen
	unCleanup func()
	finiOnce  sync.Once
}

// NewService creates the monitor service
func NewService(cfg ServiceConfig) *Service {
	if cfg.Refresh <= 0 {
		cfg.Refresh = defaultRefresh
	}
	if cfg.Status == nil {
		cfg.Status = status.NewRegistry()
	}
	return &Service{cfg: cfg, log: cfg.Log.With().Str("service", ServiceName).Logger()}
}

// Name implements service.Service
func (s *Service) Name() string {
	return ServiceName
}

// Dependencies implements service.Service
func (s *Service) Dependencies() []string {
	return s.cfg.After
}

// Init creates and initializes the screen
// A crash restores the terminal through the registered cleanup
func (s *Service) Init(*service.Hub) error {
	screen := s.cfg.Screen
	if screen == nil {
		var err error
		if screen, err = tcell.NewScreen(); err != nil {
			return fmt.Errorf("create screen: %w", err)
		}
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	screen.HideCursor()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.screen = screen
	s.mon = New(screen, s.cfg.Status, s.cfg.Refresh, s.cfg.Title)
	s.unCleanup = core.RegisterCleanup(s.fini)
	return nil
}

// Start launches the draw loop
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mon == nil {
		return fmt.Errorf("%s: not initialized", ServiceName)
	}
	s.mon.Start()
	s.log.Debug().Dur("refresh", s.cfg.Refresh).Msg("monitor started")
	return nil
}

// Stop halts the loops and restores the terminal
func (s *Service) Stop() error {
	s.mu.Lock()
	mon, unCleanup := s.mon, s.unCleanup
	s.unCleanup = nil
	s.mu.Unlock()

	if mon != nil {
		mon.Stop()
	}
	if unCleanup != nil {
		unCleanup()
	}
	s.fini()
	return nil
}

func (s *Service) fini() {
	s.finiOnce.Do(func() {
		if s.screen != nil {
			s.screen.Fini()
		}
	})
}

// Quit is closed when the user quits from the monitor, nil before Init
func (s *Service) Quit() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mon == nil {
		return nil
	}
	return s.mon.Quit()
}
