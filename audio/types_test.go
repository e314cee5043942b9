package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSoundCueNames(t *testing.T) {
	for cue := SoundCue(0); cue < cueCount; cue++ {
		parsed, err := ParseCue(cue.String())
		require.NoError(t, err)
		assert.Equal(t, cue, parsed)
	}

	_, err := ParseCue("whoosh")
	assert.ErrorIs(t, err, ErrUnknownCue)
	assert.Equal(t, "unknown", SoundCue(42).String())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, uint32(48000), cfg.SampleRate)
	assert.Equal(t, 2, cfg.Channels)
	assert.Positive(t, cfg.QueueSize)
	assert.Equal(t, 1.0, cfg.MasterVolume)
}
