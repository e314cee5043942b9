package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/lixenwraith/audiosync/audio"
	"github.com/lixenwraith/audiosync/config"
	"github.com/lixenwraith/audiosync/core"
	"github.com/lixenwraith/audiosync/engine"
	"github.com/lixenwraith/audiosync/monitor"
	"github.com/lixenwraith/audiosync/output"
	"github.com/lixenwraith/audiosync/service"
	"github.com/lixenwraith/audiosync/status"
	"github.com/lixenwraith/audiosync/system"
)

const (
	logDir      = "logs"
	logFileName = "audiosync.log"
)

type flags struct {
	configPath string
	backend    string
	rate       uint
	hz         uint
	monitor    bool
	logLevel   string
	duration   time.Duration
	cueEvery   uint64
}

func parseFlags(fs *flag.FlagSet, args []string) (flags, error) {
	var f flags
	fs.StringVar(&f.configPath, "config", "", "YAML config file")
	fs.StringVar(&f.backend, "backend", "", "Audio backend: auto, oto, speaker, ebiten, pipe, null")
	fs.UintVar(&f.rate, "rate", 0, "Output sample rate in Hz")
	fs.UintVar(&f.hz, "hz", 0, "Game tick rate in Hz")
	fs.BoolVar(&f.monitor, "monitor", false, "Show the terminal metrics monitor")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	fs.DurationVar(&f.duration, "duration", 0, "Exit after this long, 0 runs until interrupted")
	fs.Uint64Var(&f.cueEvery, "beep", 0, "Play the cue every N ticks, 0 keeps the config value")
	return f, fs.Parse(args)
}

// loadConfig layers defaults, file, environment then flags
func loadConfig(f flags, lookup func(string) (string, bool)) (*config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		loaded, err := config.LoadFile(f.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyLookup(lookup); err != nil {
		return nil, err
	}

	if f.backend != "" {
		cfg.Audio.Backend = f.backend
	}
	if f.rate != 0 {
		cfg.Audio.SampleRate = uint32(f.rate)
	}
	if f.hz != 0 {
		cfg.Sync.TickRate = uint32(f.hz)
	}
	if f.monitor {
		cfg.Monitor.Enabled = true
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if f.cueEvery != 0 {
		cfg.Sync.CueEvery = f.cueEvery
	}
	return cfg, cfg.Validate()
}

// setupLogging writes to stderr, or to logs/audiosync.log while the monitor owns the terminal
func setupLogging(level string, toFile bool) (zerolog.Logger, *os.File, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), nil, err
	}

	if !toFile {
		w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
		return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil, nil
	}

	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(logDir, logFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
	}
	return zerolog.New(f).Level(lvl).With().Timestamp().Logger(), f, nil
}

// buildHub registers the services for cfg; the monitor is added only when enabled
func buildHub(cfg *config.Config, reg *status.Registry, log zerolog.Logger) (*service.Hub, *monitor.Service, error) {
	cue, err := audio.ParseCue(cfg.Sync.Cue)
	if err != nil {
		return nil, nil, fmt.Errorf("sync.cue %q: %w", cfg.Sync.Cue, err)
	}

	svcCfg := output.ServiceConfig{
		Audio: audio.Config{
			SampleRate:   cfg.Audio.SampleRate,
			Channels:     cfg.Audio.Channels,
			QueueSize:    cfg.Audio.QueueSize,
			MasterVolume: cfg.Audio.MasterVolume,
		},
		Output: output.Config{Name: cfg.Audio.Backend, Buffer: cfg.Audio.Buffer, Log: log},
		Status: reg,
		Log:    log,
	}
	if cfg.Audio.Sounds != "" {
		svcCfg.Sounds = os.DirFS(cfg.Audio.Sounds)
	}

	hub := service.NewHub(log)
	if err := hub.Register(output.NewAudioService(svcCfg)); err != nil {
		return nil, nil, err
	}
	if err := hub.Register(system.NewEngineService(system.EngineConfig{
		Hz:               cfg.Sync.TickRate,
		InitialTolerance: cfg.Sync.InitialTolerance,
		HysteresisTicks:  cfg.Sync.HysteresisTicks,
		Cue:              cue,
		CueEvery:         cfg.Sync.CueEvery,
		CueVolume:        cfg.Sync.CueVolume,
		CuePan:           cfg.Sync.CuePan,
		AudioService:     output.ServiceName,
		Status:           reg,
		Log:              log,
	})); err != nil {
		return nil, nil, err
	}

	var mon *monitor.Service
	if cfg.Monitor.Enabled {
		mon = monitor.NewService(monitor.ServiceConfig{
			Status:  reg,
			Refresh: cfg.Monitor.Refresh,
			Title:   monitor.Title("audiosync", cfg.Sync.TickRate, cfg.Audio.SampleRate),
			After:   []string{system.EngineServiceName},
			Log:     log,
		})
		if err := hub.Register(mon); err != nil {
			return nil, nil, err
		}
	}
	return hub, mon, nil
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger, duration time.Duration) error {
	reg := status.NewRegistry()
	hub, mon, err := buildHub(cfg, reg, log)
	if err != nil {
		return err
	}

	if err := hub.InitAll(); err != nil {
		return err
	}
	if err := hub.StartAll(); err != nil {
		return err
	}
	log.Info().
		Uint32("hz", cfg.Sync.TickRate).
		Uint32("rate", cfg.Audio.SampleRate).
		Str("backend", service.MustGet[*output.AudioService](hub, output.ServiceName).Backend().Name()).
		Msg("running")

	var timeout <-chan time.Time
	if duration > 0 {
		timer := time.NewTimer(duration)
		defer timer.Stop()
		timeout = timer.C
	}
	var quit <-chan struct{}
	if mon != nil {
		quit = mon.Quit()
	}

	select {
	case <-ctx.Done():
		log.Info().Msg("interrupted")
	case <-timeout:
		log.Info().Dur("duration", duration).Msg("duration elapsed")
	case <-quit:
		log.Info().Msg("quit from monitor")
	}

	err = hub.StopAll()
	log.Info().
		Int64("ticks", reg.Ints.Get(engine.MetricTicks).Load()).
		Int64("resyncs", reg.Ints.Get(system.MetricResyncs).Load()).
		Msg("stopped")
	return err
}

func main() {
	os.Exit(realMain(flag.CommandLine, os.Args[1:], os.LookupEnv))
}

// realMain runs the program and returns the process exit code so deferred cleanup always runs
func realMain(fs *flag.FlagSet, args []string, lookup func(string) (string, bool)) int {
	f, err := parseFlags(fs, args)
	if err != nil {
		return 2
	}

	cfg, err := loadConfig(f, lookup)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 2
	}
	if cfg.Monitor.Enabled && !monitor.IsTerminal() {
		fmt.Fprintln(os.Stderr, "monitor disabled: stdout is not a terminal")
		cfg.Monitor.Enabled = false
	}

	log, logFile, err := setupLogging(cfg.Log.Level, cfg.Monitor.Enabled)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		return 1
	}
	if logFile != nil {
		defer logFile.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Crash path: cleanups (terminal restore) run first, then the report goes to the log too
	defer core.SetCrashHandler(func(r any, stack []byte) {
		log.Error().Interface("panic", r).Bytes("stack", stack).Msg("crashed")
		fmt.Fprintf(os.Stderr, "\r\naudiosync crashed: %v\r\n%s\r\n", r, stack)
		os.Exit(1)
	})()
	defer func() {
		if r := recover(); r != nil {
			core.HandleCrash(r)
		}
	}()

	if err := run(ctx, cfg, log, f.duration); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("run failed")
		if logFile != nil {
			fmt.Fprintf(os.Stderr, "audiosync: %v\n", err)
		}
		return 1
	}
	return 0
}
