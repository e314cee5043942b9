package system

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yohamta/donburi"

	"github.com/lixenwraith/audiosync/audio"
	"github.com/lixenwraith/audiosync/component"
	"github.com/lixenwraith/audiosync/constant"
	"github.com/lixenwraith/audiosync/delay"
	"github.com/lixenwraith/audiosync/engine"
)

type fakeClock struct {
	samples uint64
	rate    uint32
	playing bool
	resets  []int64
}

func (c *fakeClock) SampleCount() uint64 { return c.samples }
func (c *fakeClock) SampleRate() uint32  { return c.rate }
func (c *fakeClock) HasPlaying() bool    { return c.playing }
func (c *fakeClock) ResetSampleCounter(v int64) {
	c.resets = append(c.resets, v)
	c.samples = uint64(v)
}

func spawnListener(w *engine.World, clk delay.Clock, hz uint32, labels ...string) *donburi.Entry {
	entry := w.Spawn(labels, component.AudioControl)
	component.AudioControl.SetValue(entry, component.AudioControlComponent{Clock: clk, Hz: hz})
	return entry
}

func TestNoListenerIsNoop(t *testing.T) {
	w := engine.NewWorld()
	w.AddSystem(NewAudioSyncSystem(w, delay.NewManager()))

	assert.NotPanics(t, func() { w.Update(engine.Tick{Number: 1, Hz: 60}) })
	assert.Zero(t, w.Status.Ints.Get(MetricListeners).Load())
	assert.Zero(t, w.Status.Ints.Get(MetricGameTick).Load())
}

func TestDelayStateAddedOnFirstTick(t *testing.T) {
	w := engine.NewWorld()
	w.AddSystem(NewAudioSyncSystem(w, delay.NewManager()))
	clk := &fakeClock{samples: 80_000, rate: 48000}
	entry := spawnListener(w, clk, 0)

	assert.False(t, entry.HasComponent(component.Delay))
	w.Update(engine.Tick{Number: 100, Hz: 60})
	require.True(t, entry.HasComponent(component.Delay))

	st := component.Delay.Get(entry)
	assert.True(t, st.Initialized())
	assert.Equal(t, uint64(100), st.LastGameTick)
	assert.Equal(t, uint64(100), st.LastAudioTick)
	assert.Equal(t, uint64(constant.InitialTolerance), st.TargetTolerance)
	assert.Empty(t, clk.resets)
	assert.Equal(t, int64(1), w.Status.Ints.Get(MetricListeners).Load())
}

func TestResyncInsideWorld(t *testing.T) {
	w := engine.NewWorld()
	w.AddSystem(NewAudioSyncSystem(w, delay.NewManager(delay.WithInitialTolerance(2))))
	clk := &fakeClock{samples: 40_000, rate: 48000}
	entry := spawnListener(w, clk, 60)

	var events []ResyncEvent
	ResyncEvents.Subscribe(w.ECS, func(_ donburi.World, ev ResyncEvent) {
		events = append(events, ev)
	})

	w.Update(engine.Tick{Number: 100, Hz: 60})

	require.Equal(t, []int64{78_400}, clk.resets)
	assert.Equal(t, uint64(98), delay.AudioTick(clk.samples, 48000, 60))

	require.Len(t, events, 1)
	assert.Equal(t, entry.Entity(), events[0].Entity)
	assert.Equal(t, uint64(78_400), events[0].Result.ResyncSample)

	assert.Equal(t, int64(1), w.Status.Ints.Get(MetricResyncs).Load())
	assert.Equal(t, int64(2), w.Status.Ints.Get(MetricDrift).Load())
	assert.Equal(t, int64(2), w.Status.Ints.Get(MetricTolerance).Load())
}

func TestPlayingBlocksResyncInsideWorld(t *testing.T) {
	w := engine.NewWorld()
	w.AddSystem(NewAudioSyncSystem(w, delay.NewManager()))
	clk := &fakeClock{samples: 0, rate: 48000, playing: true}
	spawnListener(w, clk, 60)

	for gt := uint64(1); gt <= 50; gt++ {
		w.Update(engine.Tick{Number: gt * 10, Hz: 60})
	}
	assert.Empty(t, clk.resets)
	assert.Equal(t, int64(500), w.Status.Ints.Get(MetricDrift).Load())
	assert.Positive(t, w.Status.Ints.Get(MetricWidened).Load())
}

func TestLabelFilter(t *testing.T) {
	w := engine.NewWorld()
	w.AddSystem(NewAudioSyncSystem(w, delay.NewManager(), WithLabel(constant.LabelListener)))

	tagged := &fakeClock{samples: 0, rate: 48000}
	untagged := &fakeClock{samples: 0, rate: 48000}
	spawnListener(w, tagged, 60, constant.LabelListener)
	other := spawnListener(w, untagged, 60)

	w.Update(engine.Tick{Number: 100, Hz: 60})
	assert.Len(t, tagged.resets, 1)
	assert.Empty(t, untagged.resets)
	assert.False(t, other.HasComponent(component.Delay))
}

func TestSchedulerDrivesControllerClock(t *testing.T) {
	ctrl, err := audio.NewController(audio.DefaultConfig())
	require.NoError(t, err)

	w := engine.NewWorld()
	w.AddSystem(NewAudioSyncSystem(w, delay.NewManager()))
	spawnListener(w, ctrl, 0, constant.LabelListener)

	cs, err := engine.NewClockScheduler(w, nil, 60)
	require.NoError(t, err)

	// Render exactly one tick of audio per game tick: stays inside the window, never resyncs
	buf := make([][2]float64, 800)
	for i := 0; i < 200; i++ {
		cs.Step()
		ctrl.Stream(buf)
	}
	assert.Zero(t, w.Status.Ints.Get(MetricResyncs).Load())
	assert.Equal(t, uint64(200*800), ctrl.SampleCount())

	// Audio device stalls for a while: the silent mixer is pulled back into the window
	for i := 0; i < 20; i++ {
		cs.Step()
	}
	assert.Positive(t, w.Status.Ints.Get(MetricResyncs).Load())
	at := delay.AudioTick(ctrl.SampleCount(), 48000, 60)
	assert.LessOrEqual(t, at, cs.TickCount())
}
