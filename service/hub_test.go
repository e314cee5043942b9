package service

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	name     string
	deps     []string
	journal  *[]string
	initErr  error
	startErr error
	stopErr  error
}

func (s *fakeService) Name() string           { return s.name }
func (s *fakeService) Dependencies() []string { return s.deps }
func (s *fakeService) Init(*Hub) error {
	*s.journal = append(*s.journal, "init:"+s.name)
	return s.initErr
}
func (s *fakeService) Start() error {
	*s.journal = append(*s.journal, "start:"+s.name)
	return s.startErr
}
func (s *fakeService) Stop() error {
	*s.journal = append(*s.journal, "stop:"+s.name)
	return s.stopErr
}

func newHub(t *testing.T, journal *[]string, svcs ...*fakeService) *Hub {
	t.Helper()
	h := NewHub(zerolog.Nop())
	for _, s := range svcs {
		s.journal = journal
		require.NoError(t, h.Register(s))
	}
	return h
}

func TestLifecycleOrder(t *testing.T) {
	var j []string
	h := newHub(t, &j,
		&fakeService{name: "monitor", deps: []string{"engine"}},
		&fakeService{name: "engine", deps: []string{"audio"}},
		&fakeService{name: "audio"},
	)

	require.NoError(t, h.InitAll())
	require.NoError(t, h.StartAll())
	require.NoError(t, h.StopAll())

	assert.Equal(t, []string{
		"init:audio", "init:engine", "init:monitor",
		"start:audio", "start:engine", "start:monitor",
		"stop:monitor", "stop:engine", "stop:audio",
	}, j)
	assert.Equal(t, []string{"audio", "engine", "monitor"}, h.Order())

	// Second StopAll has nothing left to stop
	j = nil
	require.NoError(t, h.StopAll())
	assert.Empty(t, j)
}

func TestDeterministicTieBreak(t *testing.T) {
	var j []string
	h := newHub(t, &j,
		&fakeService{name: "c"},
		&fakeService{name: "a"},
		&fakeService{name: "b"},
	)
	require.NoError(t, h.InitAll())
	assert.Equal(t, []string{"a", "b", "c"}, h.Order())
	assert.Equal(t, []string{"a", "b", "c"}, h.Names())
}

func TestRegistrationErrors(t *testing.T) {
	var j []string
	h := newHub(t, &j, &fakeService{name: "a"})
	err := h.Register(&fakeService{name: "a", journal: &j})
	assert.ErrorIs(t, err, ErrDuplicate)

	missing := newHub(t, &j, &fakeService{name: "a", deps: []string{"ghost"}})
	assert.ErrorIs(t, missing.InitAll(), ErrMissingDependency)

	cyclic := newHub(t, &j,
		&fakeService{name: "a", deps: []string{"b"}},
		&fakeService{name: "b", deps: []string{"a"}},
	)
	assert.ErrorIs(t, cyclic.InitAll(), ErrCircular)
}

func TestInitFailureRollsBack(t *testing.T) {
	var j []string
	boom := errors.New("boom")
	h := newHub(t, &j,
		&fakeService{name: "audio"},
		&fakeService{name: "engine", deps: []string{"audio"}, initErr: boom},
	)

	err := h.InitAll()
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"init:audio", "init:engine", "stop:audio"}, j)
}

func TestStartFailureStopsInitialized(t *testing.T) {
	var j []string
	boom := errors.New("no device")
	h := newHub(t, &j,
		&fakeService{name: "audio"},
		&fakeService{name: "engine", deps: []string{"audio"}, startErr: boom},
	)
	require.NoError(t, h.InitAll())

	err := h.StartAll()
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{
		"init:audio", "init:engine",
		"start:audio", "start:engine",
		"stop:engine", "stop:audio",
	}, j)
}

func TestStopErrorsJoined(t *testing.T) {
	var j []string
	e1, e2 := errors.New("e1"), errors.New("e2")
	h := newHub(t, &j,
		&fakeService{name: "a", stopErr: e1},
		&fakeService{name: "b", stopErr: e2},
	)
	require.NoError(t, h.InitAll())
	require.NoError(t, h.StartAll())

	err := h.StopAll()
	assert.ErrorIs(t, err, e1)
	assert.ErrorIs(t, err, e2)
	assert.Equal(t, []string{"stop:b", "stop:a"}, j[len(j)-2:])
}

func TestLookup(t *testing.T) {
	var j []string
	h := newHub(t, &j, &fakeService{name: "a"})

	svc, err := Lookup[*fakeService](h, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", svc.Name())

	_, err = Lookup[*fakeService](h, "b")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = Lookup[interface{ Extra() }](h, "a")
	assert.Error(t, err)

	assert.Panics(t, func() { MustGet[*fakeService](h, "b") })
}
