package system

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/audiosync/audio"
	"github.com/lixenwraith/audiosync/component"
	"github.com/lixenwraith/audiosync/constant"
	"github.com/lixenwraith/audiosync/delay"
	"github.com/lixenwraith/audiosync/service"
	"github.com/lixenwraith/audiosync/status"
)

// stubAudio stands in for the output service; no backend renders
type stubAudio struct {
	ctrl *audio.Controller
}

func (s *stubAudio) Name() string                  { return "audio" }
func (s *stubAudio) Dependencies() []string        { return nil }
func (s *stubAudio) Init(*service.Hub) error       { return nil }
func (s *stubAudio) Start() error                  { return nil }
func (s *stubAudio) Stop() error                   { return nil }
func (s *stubAudio) Controller() *audio.Controller { return s.ctrl }

func newEngineHub(t *testing.T, cfg EngineConfig) (*service.Hub, *EngineService, *audio.Controller) {
	t.Helper()
	ctrl, err := audio.NewController(audio.DefaultConfig())
	require.NoError(t, err)

	hub := service.NewHub(zerolog.Nop())
	require.NoError(t, hub.Register(&stubAudio{ctrl: ctrl}))
	svc := NewEngineService(cfg)
	require.NoError(t, hub.Register(svc))
	return hub, svc, ctrl
}

func TestEngineServiceWiresListener(t *testing.T) {
	reg := status.NewRegistry()
	hub, svc, ctrl := newEngineHub(t, EngineConfig{Hz: 60, Status: reg, CueEvery: 30})
	require.NoError(t, hub.InitAll())

	assert.Equal(t, []string{"audio", EngineServiceName}, hub.Order())

	w := svc.World()
	require.NotNil(t, w)
	assert.Same(t, reg, w.Status)
	assert.Len(t, w.Systems(), 2)

	tagged := w.Tagged(constant.LabelListener)
	require.Len(t, tagged, 1)
	assert.Equal(t, svc.Listener(), tagged[0].Entity())
	assert.Same(t, ctrl, component.AudioControl.Get(tagged[0]).Clock)
}

func TestEngineServiceStepResyncsStalledMixer(t *testing.T) {
	hub, svc, ctrl := newEngineHub(t, EngineConfig{Hz: 60})
	require.NoError(t, hub.InitAll())

	sched := svc.Scheduler()
	for i := 0; i < 10; i++ {
		sched.Step()
	}

	// Nothing rendered: tick 9 is the first where audio tick 0 leaves [gt-8, gt]
	// and the clock jumps to 9-4; tick 10 is back in range
	spt := delay.SamplesPerTick(ctrl.SampleRate(), 60)
	assert.Equal(t, 5*spt, ctrl.SampleCount())
	assert.Equal(t, int64(1), svc.World().Status.Ints.Get(MetricResyncs).Load())
}

func TestEngineServiceCueDisabledByDefault(t *testing.T) {
	hub, svc, _ := newEngineHub(t, EngineConfig{Hz: 60})
	require.NoError(t, hub.InitAll())
	assert.Len(t, svc.World().Systems(), 1)
}

func TestEngineServiceStartStop(t *testing.T) {
	hub, svc, _ := newEngineHub(t, EngineConfig{Hz: 120})
	require.NoError(t, hub.InitAll())
	require.NoError(t, hub.StartAll())
	assert.True(t, svc.Scheduler().Running())

	require.NoError(t, hub.StopAll())
	assert.False(t, svc.Scheduler().Running())
	require.NoError(t, svc.Stop())
}

func TestEngineServiceRequiresProvider(t *testing.T) {
	hub := service.NewHub(zerolog.Nop())
	require.NoError(t, hub.Register(NewEngineService(EngineConfig{Hz: 60})))
	assert.Error(t, hub.InitAll())
}

func TestEngineServiceStartBeforeInit(t *testing.T) {
	svc := NewEngineService(EngineConfig{Hz: 60})
	assert.Error(t, svc.Start())
	assert.NoError(t, svc.Stop())
}
