package audio

import (
	"sync/atomic"
	"time"

	"github.com/gopxl/beep"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"

	"github.com/lixenwraith/audiosync/status"
)

// Voice is the handle of one playing source
// Control methods are safe from any goroutine; mixing state is owned by the render callback
type Voice struct {
	id   uint64
	src  beep.Streamer
	gain status.AtomicFloat

	stopped atomic.Bool
	done    atomic.Bool
	doneCh  chan struct{}
	fade    atomic.Pointer[fadeRequest]

	// Render callback only
	buf       [][2]float64
	envelope  float64
	tween     *gween.Tween
	stopAtEnd bool
}

type fadeRequest struct {
	target  float32
	seconds float32
	ease    ease.TweenFunc
	stop    bool
}

func newVoice(id uint64, src beep.Streamer, gain float64) *Voice {
	v := &Voice{
		id:       id,
		src:      src,
		doneCh:   make(chan struct{}),
		envelope: 1,
	}
	v.gain.Set(gain)
	return v
}

// ID returns the controller-unique voice id
func (v *Voice) ID() uint64 {
	return v.id
}

// Stop ends playback at the next render callback
func (v *Voice) Stop() {
	v.stopped.Store(true)
}

// Playing reports whether the voice is queued or mixing
func (v *Voice) Playing() bool {
	return !v.done.Load()
}

// Done is closed once the voice leaves the mix
func (v *Voice) Done() <-chan struct{} {
	return v.doneCh
}

// SetGain sets the linear voice gain
func (v *Voice) SetGain(g float64) {
	if g < 0 {
		g = 0
	}
	v.gain.Set(g)
}

// Gain returns the linear voice gain
func (v *Voice) Gain() float64 {
	return v.gain.Get()
}

// FadeTo tweens the voice envelope to target over d
func (v *Voice) FadeTo(target float64, d time.Duration, fn ease.TweenFunc) {
	v.requestFade(target, d, fn, false)
}

// FadeOut tweens the voice to silence over d, then stops it
func (v *Voice) FadeOut(d time.Duration, fn ease.TweenFunc) {
	v.requestFade(0, d, fn, true)
}

func (v *Voice) requestFade(target float64, d time.Duration, fn ease.TweenFunc, stop bool) {
	if fn == nil {
		fn = ease.Linear
	}
	v.fade.Store(&fadeRequest{
		target:  float32(target),
		seconds: float32(d.Seconds()),
		ease:    fn,
		stop:    stop,
	})
}

// mixInto adds up to len(out) frames into out, returns false once the voice is finished
// dt is the buffer duration in seconds, used to advance fades
func (v *Voice) mixInto(out [][2]float64, master float64, dt float32) bool {
	if v.stopped.Load() {
		return false
	}

	if req := v.fade.Swap(nil); req != nil {
		if req.seconds <= 0 {
			v.envelope = float64(req.target)
			v.tween = nil
			if req.stop {
				return false
			}
		} else {
			v.tween = gween.New(float32(v.envelope), req.target, req.seconds, req.ease)
			v.stopAtEnd = req.stop
		}
	}

	if cap(v.buf) < len(out) {
		v.buf = make([][2]float64, len(out))
	}
	buf := v.buf[:len(out)]

	filled, drained := 0, false
	for filled < len(buf) {
		n, ok := v.src.Stream(buf[filled:])
		filled += n
		if !ok {
			drained = true
			break
		}
		if n == 0 {
			break
		}
	}

	start := v.envelope
	end := start
	fadeDone := false
	if v.tween != nil {
		val, finished := v.tween.Update(dt)
		end = float64(val)
		if finished {
			v.tween = nil
			fadeDone = v.stopAtEnd
		}
	}

	gain := v.gain.Get() * master
	step := (end - start) / float64(len(out))
	for i := 0; i < filled; i++ {
		g := gain * (start + step*float64(i))
		out[i][0] += buf[i][0] * g
		out[i][1] += buf[i][1] * g
	}
	v.envelope = end

	return !drained && !fadeDone
}
