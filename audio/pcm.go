package audio

import (
	"encoding/binary"
	"math"

	"github.com/lixenwraith/audiosync/constant"
)

// Read renders float32 little-endian interleaved frames, implements io.Reader for device players
// Partial frames at the tail of p are left untouched and not counted
func (c *Controller) Read(p []byte) (int, error) {
	frameBytes := constant.AudioBytesPerFloat * c.channels
	buf := c.renderFrames(len(p) / frameBytes)

	for i, s := range buf {
		l, r := float32(Limit(s[0])), float32(Limit(s[1]))
		if c.channels == 1 {
			binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits((l+r)/2))
			continue
		}
		binary.LittleEndian.PutUint32(p[i*8:], math.Float32bits(l))
		binary.LittleEndian.PutUint32(p[i*8+4:], math.Float32bits(r))
	}
	return len(buf) * frameBytes, nil
}

// ReadS16 renders signed 16-bit little-endian interleaved frames for pipe backends
func (c *Controller) ReadS16(p []byte) (int, error) {
	frameBytes := constant.AudioBytesPerS16 * c.channels
	buf := c.renderFrames(len(p) / frameBytes)

	for i, s := range buf {
		l, r := toS16(s[0]), toS16(s[1])
		if c.channels == 1 {
			binary.LittleEndian.PutUint16(p[i*2:], uint16(toS16((s[0]+s[1])/2)))
			continue
		}
		binary.LittleEndian.PutUint16(p[i*4:], uint16(l))
		binary.LittleEndian.PutUint16(p[i*4+2:], uint16(r))
	}
	return len(buf) * frameBytes, nil
}

// renderFrames mixes n frames into the reusable read buffer
func (c *Controller) renderFrames(n int) [][2]float64 {
	if n <= 0 {
		return nil
	}
	if cap(c.readBuf) < n {
		c.readBuf = make([][2]float64, n)
	}
	buf := c.readBuf[:n]
	c.render(buf)
	return buf
}

// Limit applies a soft knee above LimiterKnee then hard clips to [-1, 1]
func Limit(v float64) float64 {
	if v > constant.LimiterKnee {
		v = constant.LimiterKnee + constant.LimiterHeadroom*(1.0-1.0/(1.0+(v-constant.LimiterKnee)*constant.LimiterSlope))
	} else if v < -constant.LimiterKnee {
		v = -constant.LimiterKnee - constant.LimiterHeadroom*(1.0-1.0/(1.0+(-v-constant.LimiterKnee)*constant.LimiterSlope))
	}

	if v > 1.0 {
		v = 1.0
	} else if v < -1.0 {
		v = -1.0
	}
	return v
}

func toS16(v float64) int16 {
	return int16(Limit(v) * 32767)
}
