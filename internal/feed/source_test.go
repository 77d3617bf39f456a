package feed

import (
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToneSource(t *testing.T) {
	tone := NewToneSource(1000, 0.5, 48000)
	assert.Equal(t, 48000, tone.SampleRate())
	assert.Equal(t, "Test Tone 1000 Hz", tone.Title())

	samples := make([]float32, 48)
	n, err := tone.Read(samples)
	require.NoError(t, err)
	assert.Equal(t, 48, n)

	assert.Zero(t, samples[0])
	// 1 kHz at 48 kHz peaks on sample 12
	assert.InDelta(t, 0.5, samples[12], 1e-6)
	assert.InDelta(t, -0.5, samples[36], 1e-6)

	for _, s := range samples {
		assert.LessOrEqual(t, math.Abs(float64(s)), 0.5+1e-6)
	}

	// phase continues across reads
	n, err = tone.Read(samples[:12])
	require.NoError(t, err)
	assert.Equal(t, 12, n)
	assert.InDelta(t, 0, samples[0], 1e-6)
}

func TestToneAmplitudeClamped(t *testing.T) {
	assert.Equal(t, 1.0, NewToneSource(440, 3, 48000).amplitude)
	assert.Equal(t, 0.0, NewToneSource(440, -1, 48000).amplitude)
}

func TestDownmix(t *testing.T) {
	dst := make([]float32, 4)
	n := downmix(dst, []float32{1, 0, 0.5, 0.5, -1, 1}, 2)
	assert.Equal(t, 3, n)
	assert.Equal(t, []float32{0.5, 0.5, 0, 0}, dst)

	// dst shorter than the input
	n = downmix(dst[:1], []float32{0.25, 0.25, 1, 1}, 2)
	assert.Equal(t, 1, n)
	assert.Equal(t, float32(0.25), dst[0])
}

func TestOpenErrors(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.mp3"), false)
	assert.ErrorContains(t, err, "not found")

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))
	_, err = Open(path, false)
	assert.ErrorContains(t, err, "unsupported audio format")
}

// writeWAV writes frames of interleaved 16-bit stereo PCM
func writeWAV(t *testing.T, frames int, left, right int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fixture.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	data := make([]int, 0, frames*2)
	for i := 0; i < frames; i++ {
		data = append(data, left, right)
	}

	enc := wav.NewEncoder(f, 48000, 16, 2, 1)
	require.NoError(t, enc.Write(&goaudio.IntBuffer{
		Data:           data,
		Format:         &goaudio.Format{SampleRate: 48000, NumChannels: 2},
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	return path
}

func TestWAVSourceDownmixes(t *testing.T) {
	src, err := Open(writeWAV(t, 100, 16384, 0), false)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, 48000, src.SampleRate())
	assert.Equal(t, "fixture", src.Title())

	samples := make([]float32, 64)
	n, err := src.Read(samples)
	require.NoError(t, err)
	assert.Equal(t, 64, n)
	for _, s := range samples {
		assert.Equal(t, float32(0.25), s)
	}

	n, err = src.Read(samples)
	require.NoError(t, err)
	assert.Equal(t, 36, n)

	_, err = src.Read(samples)
	assert.ErrorIs(t, err, io.EOF)
}

func TestWAVSourceLoops(t *testing.T) {
	src, err := NewWAVSource(writeWAV(t, 10, -32768, -32768), true)
	require.NoError(t, err)
	defer src.Close()

	samples := make([]float32, 8)
	total := 0
	for i := 0; i < 10; i++ {
		n, err := src.Read(samples)
		require.NoError(t, err)
		for _, s := range samples[:n] {
			assert.Equal(t, float32(-1), s)
		}
		total += n
	}
	assert.Greater(t, total, 10)
}

func TestWAVSourceRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	require.NoError(t, os.WriteFile(path, []byte("definitely not RIFF data"), 0o644))

	_, err := NewWAVSource(path, false)
	assert.Error(t, err)
}

func TestMP3AndFLACRejectGarbage(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"bad.mp3", "bad.flac"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("not audio"), 0o644))

		_, err := Open(path, false)
		assert.Error(t, err, name)
	}
}
