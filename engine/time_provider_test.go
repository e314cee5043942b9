package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMonotonicTimeProvider(t *testing.T) {
	p := NewMonotonicTimeProvider()
	t1 := p.Now()
	time.Sleep(5 * time.Millisecond)
	assert.GreaterOrEqual(t, p.Now().Sub(t1), 5*time.Millisecond)
}

func TestMockTimeProvider(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMockTimeProvider(start)
	assert.True(t, m.Now().Equal(start))

	m.Advance(time.Hour)
	assert.True(t, m.Now().Equal(start.Add(time.Hour)))

	next := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	m.SetTime(next)
	assert.True(t, m.Now().Equal(next))
}

func TestPausableClockFreezesWhilePaused(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMockTimeProvider(start)
	pc := NewPausableClockWith(m)

	m.Advance(100 * time.Millisecond)
	assert.Equal(t, 100*time.Millisecond, pc.Elapsed())

	pc.Pause()
	pc.Pause()
	assert.True(t, pc.IsPaused())
	m.Advance(time.Second)
	assert.Equal(t, 100*time.Millisecond, pc.Elapsed(), "game time frozen")
	assert.Equal(t, time.Second, pc.TotalPauseDuration())
	assert.True(t, pc.RealTime().Equal(start.Add(1100*time.Millisecond)))

	pc.Resume()
	pc.Resume()
	m.Advance(50 * time.Millisecond)
	assert.False(t, pc.IsPaused())
	assert.Equal(t, 150*time.Millisecond, pc.Elapsed())
	assert.Equal(t, time.Second, pc.TotalPauseDuration())
}
