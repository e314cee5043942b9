package audio

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFloat32Stereo(t *testing.T) {
	c := newTestController(t, 48000, 2)
	_, err := c.Play(constSource(0.5, -0.25, 100))
	require.NoError(t, err)

	p := make([]byte, 4*8+3)
	n, err := c.Read(p)
	require.NoError(t, err)
	assert.Equal(t, 32, n, "partial trailing frame is not rendered")
	assert.Equal(t, uint64(4), c.SampleCount())

	l := math.Float32frombits(binary.LittleEndian.Uint32(p[0:]))
	r := math.Float32frombits(binary.LittleEndian.Uint32(p[4:]))
	assert.InDelta(t, 0.5, l, 1e-6)
	assert.InDelta(t, -0.25, r, 1e-6)
}

func TestReadFloat32Mono(t *testing.T) {
	c := newTestController(t, 48000, 1)
	_, err := c.Play(constSource(0.5, 0.25, 100))
	require.NoError(t, err)

	p := make([]byte, 4*3)
	n, err := c.Read(p)
	require.NoError(t, err)
	assert.Equal(t, 12, n)
	assert.Equal(t, uint64(3), c.SampleCount())
	assert.InDelta(t, 0.375, math.Float32frombits(binary.LittleEndian.Uint32(p[8:])), 1e-6)
}

func TestReadS16(t *testing.T) {
	c := newTestController(t, 48000, 2)
	_, err := c.Play(constSource(0.5, -0.5, 100))
	require.NoError(t, err)

	p := make([]byte, 4*2)
	n, err := c.ReadS16(p)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, int16(16383), int16(binary.LittleEndian.Uint16(p[0:])))
	assert.Equal(t, int16(-16383), int16(binary.LittleEndian.Uint16(p[2:])))
}

func TestReadEmptyBuffer(t *testing.T) {
	c := newTestController(t, 48000, 2)
	n, err := c.Read(make([]byte, 3))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, c.SampleCount())
}

func TestLimit(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"below knee passes", 0.5, 0.5},
		{"negative below knee passes", -0.7, -0.7},
		{"at unity compresses", 1.0, 0.9},
		{"negative unity compresses", -1.0, -0.9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Limit(tt.in), 1e-9)
		})
	}

	assert.LessOrEqual(t, Limit(100), 1.0)
	assert.Greater(t, Limit(100), 0.8)
	assert.Equal(t, -Limit(3), Limit(-3))
}
