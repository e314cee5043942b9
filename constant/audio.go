package constant

import "time"

// Audio Output Settings
const (
	AudioSampleRate    = 48000
	AudioChannels      = 2
	AudioBytesPerFloat = 4
	AudioBytesPerS16   = 2

	// AudioBufferDuration is the backend buffer length and null-backend pull cadence
	AudioBufferDuration = 50 * time.Millisecond

	// AudioQueueSize is the play request capacity between game logic and render callback
	AudioQueueSize = 32

	// AudioQueueDrainMax bounds play requests accepted per render callback
	AudioQueueDrainMax = 8

	// AudioResampleQuality is the beep.Resample interpolation quality for foreign sample rates
	AudioResampleQuality = 4

	// AudioVolumeBase is the exponent base for effects.Volume
	AudioVolumeBase = 2.0
)

// Soft limiter knee applied when converting the mix to integer PCM
const (
	LimiterKnee     = 0.8
	LimiterHeadroom = 0.2
	LimiterSlope    = 5.0
)

// Cue Timing
const (
	CueTickDuration  = 30 * time.Millisecond
	CueBellDuration  = 600 * time.Millisecond
	CueErrorDuration = 80 * time.Millisecond
	CueCoinNote1     = 80 * time.Millisecond
	CueCoinNote2     = 280 * time.Millisecond
	CueAttack        = 5 * time.Millisecond
	CueRelease       = 20 * time.Millisecond
)

// Cue Pitch (Hz)
const (
	CueTickFreq  = 1760.0
	CueBellFreq  = 880.0
	CueErrorFreq = 120.0
	CueCoinFreq1 = 987.77
	CueCoinFreq2 = 1318.51
)
