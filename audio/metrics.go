package audio

import (
	"sync/atomic"

	"github.com/lixenwraith/audiosync/status"
)

// Metric keys published by the controller
const (
	MetricSamples   = "audio.samples"
	MetricVoices    = "audio.voices"
	MetricPlayed    = "audio.played"
	MetricDropped   = "audio.dropped"
	MetricCallbacks = "audio.callbacks"
	MetricResets    = "audio.resets"
	MetricPlaying   = "audio.playing"
	MetricPeak      = "audio.peak"
	MetricPeakHold  = "audio.peak_hold" // Highest callback peak since start
)

// metrics caches registry pointers so the render path writes atomics directly
type metrics struct {
	samples   *atomic.Int64
	voices    *atomic.Int64
	played    *atomic.Int64
	dropped   *atomic.Int64
	callbacks *atomic.Int64
	resets    *atomic.Int64
	playing   *atomic.Bool
	peak      *status.AtomicFloat
	peakHold  *status.AtomicFloat
}

func newMetrics(reg *status.Registry) *metrics {
	return &metrics{
		samples:   reg.Ints.Get(MetricSamples),
		voices:    reg.Ints.Get(MetricVoices),
		played:    reg.Ints.Get(MetricPlayed),
		dropped:   reg.Ints.Get(MetricDropped),
		callbacks: reg.Ints.Get(MetricCallbacks),
		resets:    reg.Ints.Get(MetricResets),
		playing:   reg.Bools.Get(MetricPlaying),
		peak:      reg.Floats.Get(MetricPeak),
		peakHold:  reg.Floats.Get(MetricPeakHold),
	}
}
