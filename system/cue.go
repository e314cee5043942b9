package system

import (
	"errors"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/lixenwraith/audiosync/audio"
	"github.com/lixenwraith/audiosync/constant"
	"github.com/lixenwraith/audiosync/engine"
)

// MetricCueDropped counts cue requests rejected by a full play queue
const MetricCueDropped = "cue.dropped"

// CuePlayer plays built-in cues; implemented by audio.Controller
type CuePlayer interface {
	PlayCue(cue audio.SoundCue, opts ...audio.PlayOption) (*audio.Voice, error)
}

// CueSystem plays a cue every N ticks, keeping the mixer busy so resyncs are gated
type CueSystem struct {
	player CuePlayer
	cue    audio.SoundCue
	every  uint64
	opts   []audio.PlayOption
	log    zerolog.Logger

	statDropped *atomic.Int64
}

// NewCueSystem creates a cue system; every == 0 disables it
// opts are applied to every cue played
func NewCueSystem(world *engine.World, player CuePlayer, cue audio.SoundCue, every uint64, opts ...audio.PlayOption) *CueSystem {
	return &CueSystem{
		player:      player,
		cue:         cue,
		every:       every,
		opts:        opts,
		log:         world.Logger(),
		statDropped: world.Status.Ints.Get(MetricCueDropped),
	}
}

// Priority returns the system's priority
func (s *CueSystem) Priority() int {
	return constant.PriorityCue
}

// Update plays the cue on ticks divisible by the interval
func (s *CueSystem) Update(_ *engine.World, tick engine.Tick) {
	if s.every == 0 || s.player == nil || tick.Number%s.every != 0 {
		return
	}

	if _, err := s.player.PlayCue(s.cue, s.opts...); err != nil {
		if errors.Is(err, audio.ErrQueueFull) {
			s.statDropped.Add(1)
			return
		}
		s.log.Warn().Err(err).Str("cue", s.cue.String()).Msg("cue playback failed")
	}
}
