package output

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/audiosync/core"
)

// NullBackend renders and discards audio at real-time pace
// Frames are derived from elapsed wall time so the sample clock does not drift with ticker jitter
type NullBackend struct {
	buffer time.Duration
	now    func() time.Time

	running  atomic.Bool
	stopChan chan struct{}
	wg       sync.WaitGroup
	rendered atomic.Uint64
}

// NewNullBackend creates a silent pacing backend
func NewNullBackend(cfg Config) *NullBackend {
	return &NullBackend{
		buffer: cfg.buffer(),
		now:    time.Now,
	}
}

// Name returns the backend name
func (n *NullBackend) Name() string {
	return BackendNull
}

// Start begins pulling from src
func (n *NullBackend) Start(src Source) error {
	if !n.running.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	n.stopChan = make(chan struct{})
	n.wg.Add(1)
	core.Go(func() { n.loop(src) })
	return nil
}

// Stop halts the pacing loop, idempotent
func (n *NullBackend) Stop() error {
	if n.running.CompareAndSwap(true, false) {
		close(n.stopChan)
		n.wg.Wait()
	}
	return nil
}

// Rendered returns the frames pulled since Start
func (n *NullBackend) Rendered() uint64 {
	return n.rendered.Load()
}

func (n *NullBackend) loop(src Source) {
	defer n.wg.Done()

	rate := float64(src.SampleRate())
	buf := make([][2]float64, int(rate*n.buffer.Seconds())+1)
	start := n.now()
	var done uint64

	ticker := time.NewTicker(n.buffer)
	defer ticker.Stop()

	for {
		select {
		case <-n.stopChan:
			return
		case <-ticker.C:
		}

		due := uint64(n.now().Sub(start).Seconds() * rate)
		for done < due {
			chunk := min(due-done, uint64(len(buf)))
			src.Stream(buf[:chunk])
			done += chunk
		}
		n.rendered.Store(done)
	}
}
