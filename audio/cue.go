package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"

	"github.com/lixenwraith/audiosync/constant"
)

// cueCache stores pre-rendered cue buffers at the controller rate
type cueCache struct {
	rate  beep.SampleRate
	mu    sync.RWMutex
	store [cueCount]*beep.Buffer
}

func newCueCache(rate beep.SampleRate) *cueCache {
	return &cueCache{rate: rate}
}

// get returns the cached buffer, rendering it on first use
func (c *cueCache) get(cue SoundCue) (*beep.Buffer, error) {
	if cue < 0 || cue >= cueCount {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCue, cue)
	}

	c.mu.RLock()
	if buf := c.store[cue]; buf != nil {
		c.mu.RUnlock()
		return buf, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock
	if buf := c.store[cue]; buf != nil {
		return buf, nil
	}

	buf, err := c.render(cue)
	if err != nil {
		return nil, err
	}
	c.store[cue] = buf
	return buf, nil
}

// preload renders every cue so the first play does not pay for synthesis
func (c *cueCache) preload() error {
	for cue := SoundCue(0); cue < cueCount; cue++ {
		if _, err := c.get(cue); err != nil {
			return err
		}
	}
	return nil
}

func (c *cueCache) render(cue SoundCue) (*beep.Buffer, error) {
	var s beep.Streamer
	var err error

	switch cue {
	case CueTick:
		s, err = c.note(sineTone, constant.CueTickFreq, constant.CueTickDuration, 0.6)
	case CueBell:
		var fund, over beep.Streamer
		if fund, err = c.note(sineTone, constant.CueBellFreq, constant.CueBellDuration, 0.5); err != nil {
			break
		}
		if over, err = c.note(sineTone, constant.CueBellFreq*2.76, constant.CueBellDuration/3, 0.2); err != nil {
			break
		}
		s = beep.Mix(fund, over)
	case CueError:
		s, err = c.note(squareTone, constant.CueErrorFreq, constant.CueErrorDuration, 0.25)
	case CueCoin:
		var n1, n2 beep.Streamer
		if n1, err = c.note(squareTone, constant.CueCoinFreq1, constant.CueCoinNote1, 0.2); err != nil {
			break
		}
		if n2, err = c.note(squareTone, constant.CueCoinFreq2, constant.CueCoinNote2, 0.2); err != nil {
			break
		}
		s = beep.Seq(n1, n2)
	}
	if err != nil {
		return nil, fmt.Errorf("render cue %s: %w", cue, err)
	}

	buf := beep.NewBuffer(beep.Format{SampleRate: c.rate, NumChannels: 2, Precision: constant.AudioBytesPerS16})
	buf.Append(s)
	return buf, nil
}

type toneFunc func(sr beep.SampleRate, freq float64) (beep.Streamer, error)

func sineTone(sr beep.SampleRate, freq float64) (beep.Streamer, error) {
	return generators.SineTone(sr, freq)
}

func squareTone(sr beep.SampleRate, freq float64) (beep.Streamer, error) {
	return generators.SquareTone(sr, freq)
}

// note returns a bounded, enveloped tone
func (c *cueCache) note(tone toneFunc, freq float64, d time.Duration, amp float64) (beep.Streamer, error) {
	osc, err := tone(c.rate, freq)
	if err != nil {
		return nil, err
	}
	total := c.rate.N(d)
	return &envelope{
		src:     beep.Take(total, osc),
		amp:     amp,
		total:   total,
		attack:  c.rate.N(constant.CueAttack),
		release: c.rate.N(constant.CueRelease),
	}, nil
}

// envelope applies a linear attack/release ramp over a fixed-length source
type envelope struct {
	src     beep.Streamer
	amp     float64
	total   int
	attack  int
	release int
	pos     int
}

func (e *envelope) Stream(samples [][2]float64) (int, bool) {
	n, ok := e.src.Stream(samples)
	releaseStart := max(e.total-e.release, e.attack)
	for i := 0; i < n; i++ {
		g := e.amp
		switch {
		case e.pos < e.attack:
			g *= float64(e.pos) / float64(e.attack)
		case e.pos >= releaseStart && e.release > 0:
			g *= float64(e.total-e.pos) / float64(e.release)
		}
		samples[i][0] *= g
		samples[i][1] *= g
		e.pos++
	}
	return n, ok
}

func (e *envelope) Err() error {
	return e.src.Err()
}
