package audio

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/rs/zerolog"

	"github.com/lixenwraith/audiosync/constant"
	"github.com/lixenwraith/audiosync/status"
)

// Controller is the precision mixer shared by the render callback and game logic
// The render side (Stream/Read) advances the sample counter by exactly the frames it renders
// Game logic reads the counter, queues voices and may reset the counter when nothing plays
// Only one render callback may be active at a time
type Controller struct {
	sampleCount atomic.Uint64
	sampleRate  uint32
	channels    int

	master  status.AtomicFloat
	queue   chan *Voice
	closed  atomic.Bool
	stopAll atomic.Bool
	playing atomic.Int64 // Accepted voices not yet finished
	nextID  atomic.Uint64

	// Accessed only by the render callback
	active  []*Voice
	readBuf [][2]float64

	cues    *cueCache
	sounds  *soundBank
	metrics *metrics
	log     zerolog.Logger

	played  atomic.Uint64
	dropped atomic.Uint64
}

// NewController creates a controller for cfg
func NewController(cfg Config, opts ...Option) (*Controller, error) {
	if cfg.SampleRate == 0 {
		return nil, ErrInvalidRate
	}
	if cfg.Channels != 1 && cfg.Channels != 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidChannels, cfg.Channels)
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = constant.AudioQueueSize
	}

	c := &Controller{
		sampleRate: cfg.SampleRate,
		channels:   cfg.Channels,
		queue:      make(chan *Voice, cfg.QueueSize),
		active:     make([]*Voice, 0, 16),
		sounds:     newSoundBank(),
		log:        zerolog.Nop(),
	}
	c.master.Set(clampUnit(cfg.MasterVolume))
	c.cues = newCueCache(beep.SampleRate(cfg.SampleRate))

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SampleCount returns frames rendered since start or the last reset
func (c *Controller) SampleCount() uint64 {
	return c.sampleCount.Load()
}

// SampleRate returns the output sample rate
func (c *Controller) SampleRate() uint32 {
	return c.sampleRate
}

// Channels returns the output channel count
func (c *Controller) Channels() int {
	return c.channels
}

// Format returns the beep format of the mix
func (c *Controller) Format() beep.Format {
	return beep.Format{
		SampleRate:  beep.SampleRate(c.sampleRate),
		NumChannels: c.channels,
		Precision:   constant.AudioBytesPerS16,
	}
}

// HasPlaying reports whether any accepted voice is queued or mixing
func (c *Controller) HasPlaying() bool {
	return c.playing.Load() > 0
}

// ActiveVoices returns the number of queued or mixing voices
func (c *Controller) ActiveVoices() int {
	return int(c.playing.Load())
}

// ResetSampleCounter stores v as the new sample count, negative values clamp to zero
// Safe to call while the render callback runs; a concurrent callback adds its frames on top
func (c *Controller) ResetSampleCounter(v int64) {
	if v < 0 {
		v = 0
	}
	c.sampleCount.Store(uint64(v))
	if c.metrics != nil {
		c.metrics.resets.Add(1)
		c.metrics.samples.Store(v)
	}
}

// SetMasterVolume sets the master gain (0.0-1.0)
func (c *Controller) SetMasterVolume(vol float64) {
	c.master.Set(clampUnit(vol))
}

// MasterVolume returns the master gain
func (c *Controller) MasterVolume() float64 {
	return c.master.Get()
}

// Play queues src for mixing without blocking
func (c *Controller) Play(src beep.Streamer, opts ...PlayOption) (*Voice, error) {
	if src == nil {
		return nil, ErrNilSource
	}
	if c.closed.Load() {
		return nil, ErrClosed
	}

	o := playOptions{gain: 1}
	for _, opt := range opts {
		opt(&o)
	}

	s := src
	if o.loops != 0 {
		seeker, ok := src.(beep.StreamSeeker)
		if !ok {
			return nil, ErrNotSeekable
		}
		s = beep.Loop(o.loops, seeker)
	}
	if o.format.SampleRate != 0 && o.format.SampleRate != beep.SampleRate(c.sampleRate) {
		s = beep.Resample(constant.AudioResampleQuality, o.format.SampleRate, beep.SampleRate(c.sampleRate), s)
	}
	if o.volume != 0 {
		s = &effects.Volume{Streamer: s, Base: constant.AudioVolumeBase, Volume: o.volume}
	}
	if o.pan != 0 {
		s = &effects.Pan{Streamer: s, Pan: o.pan}
	}

	v := newVoice(c.nextID.Add(1), s, o.gain)
	if o.fadeIn > 0 {
		v.envelope = 0
		v.FadeTo(1, o.fadeIn, o.fadeEase)
	}

	// Count before enqueue so HasPlaying never misses an accepted voice
	c.playing.Add(1)
	select {
	case c.queue <- v:
		// Close may have drained the queue between the closed check and the send
		if c.closed.Load() {
			c.drainClosed()
			return nil, ErrClosed
		}
		c.played.Add(1)
		if c.metrics != nil {
			c.metrics.played.Add(1)
		}
		return v, nil
	default:
		c.playing.Add(-1)
		c.dropped.Add(1)
		if c.metrics != nil {
			c.metrics.dropped.Add(1)
		}
		c.log.Warn().Uint64("dropped", c.dropped.Load()).Msg("audio play queue full")
		return nil, ErrQueueFull
	}
}

// PlayCue plays a built-in synthesized cue
func (c *Controller) PlayCue(cue SoundCue, opts ...PlayOption) (*Voice, error) {
	buf, err := c.cues.get(cue)
	if err != nil {
		return nil, err
	}
	return c.Play(buf.Streamer(0, buf.Len()), opts...)
}

// StopAll ends every queued and mixing voice at the next render callback
func (c *Controller) StopAll() {
	c.stopAll.Store(true)
}

// Close stops accepting voices and silences the mix, idempotent
func (c *Controller) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.stopAll.Store(true)
	c.drainClosed()
}

// drainClosed finishes queued voices that will never reach the mix
func (c *Controller) drainClosed() {
	for {
		select {
		case v := <-c.queue:
			c.finish(v)
		default:
			return
		}
	}
}

// Closed reports whether Close has been called
func (c *Controller) Closed() bool {
	return c.closed.Load()
}

// Stats returns accepted and dropped play request counts
func (c *Controller) Stats() (played, dropped uint64) {
	return c.played.Load(), c.dropped.Load()
}

// Stream renders len(samples) stereo frames, implements beep.Streamer
// Never drains: silence is rendered when nothing plays
func (c *Controller) Stream(samples [][2]float64) (n int, ok bool) {
	c.render(samples)
	return len(samples), true
}

// Err implements beep.Streamer
func (c *Controller) Err() error {
	return nil
}

// render is the single mixing routine behind Stream and Read
func (c *Controller) render(out [][2]float64) {
	for i := range out {
		out[i] = [2]float64{}
	}

	if c.stopAll.Swap(false) || c.closed.Load() {
		c.drainQueue(len(c.queue))
		for _, v := range c.active {
			c.finish(v)
		}
		clear(c.active)
		c.active = c.active[:0]
		c.advance(len(out), 0)
		return
	}

	c.drainQueue(constant.AudioQueueDrainMax)

	if len(c.active) > 0 {
		dt := float32(len(out)) / float32(c.sampleRate)
		master := c.master.Get()

		remaining := c.active[:0]
		for _, v := range c.active {
			if v.mixInto(out, master, dt) {
				remaining = append(remaining, v)
			} else {
				c.finish(v)
			}
		}
		clear(c.active[len(remaining):])
		c.active = remaining
	}

	peak := 0.0
	if c.metrics != nil {
		for _, s := range out {
			peak = math.Max(peak, math.Max(math.Abs(s[0]), math.Abs(s[1])))
		}
	}
	c.advance(len(out), peak)
}

// drainQueue moves up to n queued voices into the active list
func (c *Controller) drainQueue(n int) {
	for i := 0; i < n; i++ {
		select {
		case v := <-c.queue:
			if v.stopped.Load() || c.closed.Load() {
				c.finish(v)
				continue
			}
			c.active = append(c.active, v)
		default:
			return
		}
	}
}

func (c *Controller) advance(frames int, peak float64) {
	total := c.sampleCount.Add(uint64(frames))
	if c.metrics != nil {
		c.metrics.samples.Store(int64(total))
		c.metrics.callbacks.Add(1)
		c.metrics.voices.Store(c.playing.Load())
		c.metrics.playing.Store(c.playing.Load() > 0)
		c.metrics.peak.Set(peak)
		c.metrics.peakHold.StoreMax(peak)
	}
}

func (c *Controller) finish(v *Voice) {
	if v.done.CompareAndSwap(false, true) {
		close(v.doneCh)
		c.playing.Add(-1)
	}
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
