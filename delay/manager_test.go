package delay

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a single-threaded Clock for deterministic control loop tests
type fakeClock struct {
	samples uint64
	rate    uint32
	playing bool
	resets  int
}

func (c *fakeClock) SampleCount() uint64 { return c.samples }
func (c *fakeClock) SampleRate() uint32  { return c.rate }
func (c *fakeClock) HasPlaying() bool    { return c.playing }
func (c *fakeClock) ResetSampleCounter(v int64) {
	if v < 0 {
		v = 0
	}
	c.samples = uint64(v)
	c.resets++
}

const (
	testHz   = 60
	testRate = 48000
	testSPT  = 800
)

func TestSamplesPerTick(t *testing.T) {
	assert.Equal(t, uint64(800), SamplesPerTick(48000, 60))
	assert.Equal(t, uint64(735), SamplesPerTick(44100, 60))
	assert.Equal(t, uint64(1), SamplesPerTick(60, 60))

	assert.Panics(t, func() { SamplesPerTick(48000, 0) })
	assert.Panics(t, func() { SamplesPerTick(30, 60) })
}

func TestAudioTick(t *testing.T) {
	assert.Equal(t, uint64(100), AudioTick(80_000, testRate, testHz))
	assert.Equal(t, uint64(50), AudioTick(40_000, testRate, testHz))
	assert.Equal(t, uint64(99), AudioTick(79_999, testRate, testHz))
}

func TestUpdateInSyncNoAction(t *testing.T) {
	m := NewManager()
	clk := &fakeClock{samples: 80_000, rate: testRate}
	st := NewState(99, 99, 2)

	res := m.Update(&st, clk, 100, testHz)

	assert.Equal(t, uint64(100), res.AudioTick)
	assert.False(t, res.Resynced)
	assert.Equal(t, uint64(80_000), clk.samples)
	assert.Equal(t, 0, clk.resets)
	assert.Equal(t, int64(0), res.Drift)
	assert.Equal(t, uint64(96), res.RangeMin)
	assert.Equal(t, uint64(100), res.RangeMax)
}

func TestUpdateResyncWhenSilent(t *testing.T) {
	m := NewManager()
	clk := &fakeClock{samples: 40_000, rate: testRate}
	st := NewState(99, 49, 2)

	res := m.Update(&st, clk, 100, testHz)

	require.True(t, res.Resynced)
	assert.Equal(t, uint64(78_400), clk.samples)
	assert.Equal(t, uint64(78_400), res.ResyncSample)
	assert.Equal(t, uint64(98), AudioTick(clk.samples, testRate, testHz))
	assert.Equal(t, uint64(2), st.TargetTolerance)
	assert.Equal(t, uint64(98), st.LastAudioTick)
	assert.Equal(t, uint64(1), st.Resyncs)
	assert.Equal(t, int64(2), res.Drift)
}

func TestUpdateNeverResyncsWhilePlaying(t *testing.T) {
	m := NewManager()
	clk := &fakeClock{samples: 40_000, rate: testRate, playing: true}
	st := NewState(99, 49, 2)

	res := m.Update(&st, clk, 100, testHz)

	assert.False(t, res.Resynced)
	assert.Equal(t, uint64(40_000), clk.samples)
	assert.Equal(t, 0, clk.resets)
	assert.Equal(t, int64(50), res.Drift)
}

func TestUpdateResyncWhenAudioAhead(t *testing.T) {
	m := NewManager()
	clk := &fakeClock{samples: 150 * testSPT, rate: testRate}
	st := NewState(99, 149, 3)

	res := m.Update(&st, clk, 100, testHz)

	require.True(t, res.Resynced)
	assert.Equal(t, uint64(97), AudioTick(clk.samples, testRate, testHz))

	// Backward jump must not register as drift on the next tick
	clk.samples += testSPT
	res = m.Update(&st, clk, 101, testHz)
	assert.False(t, res.Widened)
	assert.False(t, res.Resynced)
}

func TestTightenAfterSustainedLowDrift(t *testing.T) {
	m := NewManager()
	clk := &fakeClock{rate: testRate}
	st := NewState(0, 0, 4)

	for gt := uint64(1); gt <= 15; gt++ {
		clk.samples = gt * testSPT
		res := m.Update(&st, clk, gt, testHz)
		require.False(t, res.Tightened, "tick %d", gt)
	}
	assert.Equal(t, uint64(4), st.TargetTolerance)
	assert.Equal(t, uint32(15), st.HysteresisCounter)

	clk.samples = 16 * testSPT
	res := m.Update(&st, clk, 16, testHz)

	assert.True(t, res.Tightened)
	assert.Equal(t, uint64(3), st.TargetTolerance)
	assert.Equal(t, uint32(0), st.HysteresisCounter)
}

func TestTightenRespectsConfiguredHysteresis(t *testing.T) {
	m := NewManager(WithHysteresisTicks(4))
	clk := &fakeClock{rate: testRate}
	st := NewState(0, 0, 3)

	for gt := uint64(1); gt <= 4; gt++ {
		clk.samples = gt * testSPT
		m.Update(&st, clk, gt, testHz)
	}

	assert.Equal(t, uint64(2), st.TargetTolerance)
	assert.Equal(t, uint32(0), st.HysteresisCounter)
}

func TestWidenResetsStreak(t *testing.T) {
	tests := []struct {
		name      string
		gtJump    uint64
		audioJump uint64
	}{
		{"game_step_exceeds", 10, 1},
		{"audio_step_exceeds", 1, 10},
		{"both_exceed", 10, 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := NewManager()
			clk := &fakeClock{rate: testRate, playing: true}
			st := NewState(0, 0, 4)

			for gt := uint64(1); gt <= 10; gt++ {
				clk.samples = gt * testSPT
				m.Update(&st, clk, gt, testHz)
			}
			require.Equal(t, uint32(10), st.HysteresisCounter)

			clk.samples = (10 + tc.audioJump) * testSPT
			res := m.Update(&st, clk, 10+tc.gtJump, testHz)

			assert.True(t, res.Widened)
			assert.Equal(t, uint64(5), st.TargetTolerance)
			assert.Equal(t, uint32(0), st.HysteresisCounter)
		})
	}
}

func TestStepEqualToToleranceHolds(t *testing.T) {
	m := NewManager()
	clk := &fakeClock{samples: 11 * testSPT, rate: testRate}
	st := NewState(10, 10, 1)
	st.HysteresisCounter = 5

	res := m.Update(&st, clk, 11, testHz)

	assert.False(t, res.Widened)
	assert.False(t, res.Tightened)
	assert.Equal(t, uint64(1), st.TargetTolerance)
	assert.Equal(t, uint32(5), st.HysteresisCounter)
}

func TestAudioGoingBackwardIsZeroStep(t *testing.T) {
	m := NewManager()
	clk := &fakeClock{samples: 5 * testSPT, rate: testRate, playing: true}
	st := NewState(10, 10, 2)

	res := m.Update(&st, clk, 11, testHz)

	assert.False(t, res.Widened)
	assert.Equal(t, uint32(1), st.HysteresisCounter)
	assert.Equal(t, uint64(5), st.LastAudioTick)
}

func TestFirstUpdateSeedsState(t *testing.T) {
	m := NewManager(WithInitialTolerance(6))
	clk := &fakeClock{samples: 500 * testSPT, rate: testRate}
	var st State
	require.False(t, st.Initialized())

	res := m.Update(&st, clk, 500, testHz)

	assert.True(t, st.Initialized())
	assert.Equal(t, uint64(6), st.TargetTolerance)
	assert.Equal(t, uint32(1), st.HysteresisCounter)
	assert.False(t, res.Widened)
	assert.False(t, res.Resynced)
}

func TestRangeSaturatesAtZero(t *testing.T) {
	m := NewManager()
	clk := &fakeClock{samples: 0, rate: testRate}
	st := NewState(0, 0, 4)

	res := m.Update(&st, clk, 1, testHz)

	assert.Equal(t, uint64(0), res.RangeMin)
	assert.False(t, res.Resynced)
}

func TestResyncTargetSaturatesAtZero(t *testing.T) {
	m := NewManager()
	clk := &fakeClock{samples: 50 * testSPT, rate: testRate}
	st := NewState(2, 49, 4)

	res := m.Update(&st, clk, 3, testHz)

	require.True(t, res.Resynced)
	assert.Equal(t, uint64(0), clk.samples)
}

func TestResyncOnlyWhenSilentAndOutOfRange(t *testing.T) {
	m := NewManager()
	rng := rand.New(rand.NewSource(7))
	clk := &fakeClock{rate: testRate}
	var st State

	gt := uint64(1000)
	for i := 0; i < 5000; i++ {
		gt += uint64(rng.Intn(3))
		clk.samples = uint64(rng.Int63n(int64(2000 * testSPT)))
		clk.playing = rng.Intn(2) == 0

		before := clk.samples
		at := before / testSPT
		res := m.Update(&st, clk, gt, testHz)

		inRange := at >= res.RangeMin && at <= res.RangeMax
		if clk.playing || inRange {
			require.False(t, res.Resynced, "iteration %d", i)
			require.Equal(t, before, clk.samples, "iteration %d", i)
			continue
		}
		require.True(t, res.Resynced, "iteration %d", i)
		require.Equal(t, gt-min(gt, st.TargetTolerance), clk.samples/testSPT, "iteration %d", i)
	}
}
