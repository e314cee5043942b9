package output

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/lixenwraith/audiosync/constant"
	"github.com/lixenwraith/audiosync/core"
)

// PipeCommand describes a CLI player fed raw s16le on stdin, or an OSS device written directly
type PipeCommand struct {
	Name string
	Path string
	Args []string
	OSS  bool
}

// DetectPipe searches for an installed CLI player
// Priority: pacat > pw-cat > aplay > play (sox) > ffplay > OSS
func DetectPipe(rate uint32, channels int, latency time.Duration) (*PipeCommand, error) {
	r := strconv.FormatUint(uint64(rate), 10)
	c := strconv.Itoa(channels)
	ms := strconv.FormatInt(latency.Milliseconds(), 10)

	candidates := []PipeCommand{
		{Name: "pacat", Args: []string{"--raw", "--format=s16le", "--rate=" + r, "--channels=" + c, "--latency-msec=" + ms, "--playback"}},
		{Name: "pw-cat", Args: []string{"--playback", "--format=s16", "--rate=" + r, "--channels=" + c, "--latency=" + ms + "ms", "-"}},
		{Name: "aplay", Args: []string{"-t", "raw", "-f", "S16_LE", "-r", r, "-c", c, "-q"}},
		{Name: "play", Args: []string{"-t", "raw", "-e", "signed", "-b", "16", "-c", c, "-r", r, "-", "-d", "-q"}},
		{Name: "ffplay", Args: []string{"-nodisp", "-autoexit", "-f", "s16le", "-ac", c, "-ar", r,
			"-probesize", "32", "-analyzeduration", "0", "-i", "pipe:0", "-loglevel", "quiet"}},
	}
	for _, cand := range candidates {
		if path, err := exec.LookPath(cand.Name); err == nil {
			cand.Path = path
			return &cand, nil
		}
	}

	if runtime.GOOS == "freebsd" {
		if _, err := os.Stat("/dev/dsp"); err == nil {
			return &PipeCommand{Name: "oss", Path: "/dev/dsp", OSS: true}, nil
		}
	}
	return nil, ErrNoAudioBackend
}

// PipeBackend streams s16le frames into a subprocess; the device's consumption paces rendering
// When the pipe breaks it switches to silent mode and keeps the sample clock running
type PipeBackend struct {
	cfg Config
	cmd *PipeCommand
	log zerolog.Logger

	proc   *exec.Cmd
	writer io.WriteCloser

	running  atomic.Bool
	silent   atomic.Bool
	stopChan chan struct{}
	wg       sync.WaitGroup

	mu       sync.Mutex
	fallback *NullBackend
	err      error
}

// NewPipeBackend creates a pipe backend; a nil cmd is detected on Start
func NewPipeBackend(cfg Config, cmd *PipeCommand) *PipeBackend {
	return &PipeBackend{cfg: cfg, cmd: cmd, log: cfg.Log}
}

// Name returns the backend name with the player in use
func (p *PipeBackend) Name() string {
	if p.cmd != nil {
		return BackendPipe + ":" + p.cmd.Name
	}
	return BackendPipe
}

// Start launches the player and the writer loop
func (p *PipeBackend) Start(src Source) error {
	if p.running.Load() {
		return ErrAlreadyStarted
	}

	if p.cmd == nil {
		cmd, err := DetectPipe(src.SampleRate(), src.Channels(), p.cfg.buffer())
		if err != nil {
			return err
		}
		p.cmd = cmd
	}

	if p.cmd.OSS {
		f, err := os.OpenFile(p.cmd.Path, os.O_WRONLY, 0)
		if err != nil {
			return fmt.Errorf("open %s: %w", p.cmd.Path, err)
		}
		p.writer = f
	} else {
		proc := exec.Command(p.cmd.Path, p.cmd.Args...)
		stdin, err := proc.StdinPipe()
		if err != nil {
			return fmt.Errorf("%s stdin: %w", p.cmd.Name, err)
		}
		if err := proc.Start(); err != nil {
			stdin.Close()
			return fmt.Errorf("start %s: %w", p.cmd.Name, err)
		}
		p.proc = proc
		p.writer = stdin
	}

	p.stopChan = make(chan struct{})
	p.running.Store(true)
	p.wg.Add(1)
	core.Go(func() { p.writeLoop(src) })
	return nil
}

func (p *PipeBackend) writeLoop(src Source) {
	defer p.wg.Done()

	frames := int(float64(src.SampleRate()) * p.cfg.buffer().Seconds())
	buf := make([]byte, max(frames, 1)*constant.AudioBytesPerS16*src.Channels())

	for {
		select {
		case <-p.stopChan:
			return
		default:
		}

		// The clock advances on render; a failed write leaves one buffer of lead for the delay manager to absorb
		n, _ := src.ReadS16(buf)
		if _, err := p.writer.Write(buf[:n]); err != nil {
			select {
			case <-p.stopChan:
				return
			default:
			}
			p.goSilent(src, err)
			return
		}
	}
}

// goSilent replaces the broken pipe with a null pacer
func (p *PipeBackend) goSilent(src Source, cause error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.err = fmt.Errorf("%w: %w", ErrPipeClosed, cause)
	p.silent.Store(true)
	p.log.Warn().Err(cause).Str("player", p.cmd.Name).Msg("audio pipe closed, continuing silent")

	p.fallback = NewNullBackend(p.cfg)
	if err := p.fallback.Start(src); err != nil {
		p.log.Error().Err(err).Msg("silent fallback failed")
	}
}

// Silent reports whether the pipe broke and output is discarded
func (p *PipeBackend) Silent() bool {
	return p.silent.Load()
}

// Err returns the error that switched the backend to silent mode
func (p *PipeBackend) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Stop closes the pipe and terminates the player, idempotent
func (p *PipeBackend) Stop() error {
	if !p.running.CompareAndSwap(true, false) {
		return nil
	}
	close(p.stopChan)

	if p.writer != nil {
		p.writer.Close()
	}
	if p.proc != nil && p.proc.Process != nil {
		p.proc.Process.Kill()
		_ = p.proc.Wait()
	}
	p.wg.Wait()

	p.mu.Lock()
	fb := p.fallback
	p.mu.Unlock()
	if fb != nil {
		fb.Stop()
	}
	return nil
}
