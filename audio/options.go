package audio

import (
	"time"

	"github.com/gopxl/beep"
	"github.com/rs/zerolog"
	"github.com/tanema/gween/ease"

	"github.com/lixenwraith/audiosync/status"
)

// Option configures a Controller
type Option func(*Controller)

// WithLogger attaches a logger
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) {
		c.log = l
	}
}

// WithStatus publishes controller metrics into reg
func WithStatus(reg *status.Registry) Option {
	return func(c *Controller) {
		if reg != nil {
			c.metrics = newMetrics(reg)
		}
	}
}

// PlayOption configures a single Play call
type PlayOption func(*playOptions)

type playOptions struct {
	format   beep.Format
	gain     float64
	volume   float64
	pan      float64
	loops    int
	fadeIn   time.Duration
	fadeEase ease.TweenFunc
}

// WithFormat declares the source format so foreign sample rates get resampled
func WithFormat(f beep.Format) PlayOption {
	return func(o *playOptions) {
		o.format = f
	}
}

// WithGain sets the linear voice gain, adjustable later through Voice.SetGain
func WithGain(g float64) PlayOption {
	return func(o *playOptions) {
		o.gain = g
	}
}

// WithVolume applies a fixed effects.Volume stage in base-2 steps (-1 halves amplitude)
func WithVolume(v float64) PlayOption {
	return func(o *playOptions) {
		o.volume = v
	}
}

// WithPan places the voice in the stereo field, -1 left to +1 right
func WithPan(p float64) PlayOption {
	return func(o *playOptions) {
		if p < -1 {
			p = -1
		} else if p > 1 {
			p = 1
		}
		o.pan = p
	}
}

// WithLoop repeats a seekable source count times, -1 loops until stopped
func WithLoop(count int) PlayOption {
	return func(o *playOptions) {
		o.loops = count
	}
}

// WithFadeIn ramps the voice from silence over d
func WithFadeIn(d time.Duration, fn ease.TweenFunc) PlayOption {
	return func(o *playOptions) {
		o.fadeIn = d
		o.fadeEase = fn
	}
}
