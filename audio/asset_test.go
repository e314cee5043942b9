package audio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWAV(t *testing.T, path string, format beep.Format, frames int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, wav.Encode(f, constSource(0.25, 0.25, frames), format))
}

func TestLoadSoundsAndPlay(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sfx"), 0o755))
	writeWAV(t, filepath.Join(dir, "sfx", "blip.wav"), beep.Format{SampleRate: 22050, NumChannels: 2, Precision: 2}, 2205)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sfx", "notes.txt"), []byte("ignored"), 0o644))

	c := newTestController(t, 48000, 2)
	n, err := c.LoadSounds(os.DirFS(dir), "sfx")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"blip"}, c.Sounds())

	v, err := c.PlaySound("blip")
	require.NoError(t, err)

	// 100ms at 22050 resampled to 48000 is about 4800 frames
	for i := 0; i < 20 && v.Playing(); i++ {
		stream(c, 512)
	}
	assert.False(t, v.Playing())

	_, err = c.PlaySound("missing")
	assert.ErrorIs(t, err, ErrUnknownSound)
}

func TestDecodeWAVErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.wav"), []byte("not a riff"), 0o644))

	_, err := DecodeWAV(os.DirFS(dir), "bad.wav")
	assert.Error(t, err)

	_, err = DecodeWAV(os.DirFS(dir), "absent.wav")
	assert.Error(t, err)

	c := newTestController(t, 48000, 2)
	_, err = c.LoadSounds(os.DirFS(dir), "nodir")
	assert.Error(t, err)
}
