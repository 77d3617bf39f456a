// ABOUTME: Upstream sample sources for exercising the bridge without a radio
// ABOUTME: Opens tone generators and audio files as mono float32 streams
package feed

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Source produces mono float32 samples in [-1, 1]
type Source interface {
	// Read fills samples and returns how many were written.
	// io.EOF is returned once a non-looping source is exhausted.
	Read(samples []float32) (int, error)
	SampleRate() int
	Title() string
	Close() error
}

// Open opens an audio file by extension. When loop is set the file
// restarts from the beginning instead of returning io.EOF.
func Open(path string, loop bool) (Source, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("audio file not found: %s", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".mp3":
		return NewMP3Source(path, loop)
	case ".flac":
		return NewFLACSource(path, loop)
	case ".wav":
		return NewWAVSource(path, loop)
	default:
		return nil, fmt.Errorf("unsupported audio format: %s (supported: .mp3, .flac, .wav)", ext)
	}
}

func titleFromPath(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// downmix averages interleaved frames into mono
func downmix(dst []float32, interleaved []float32, channels int) int {
	frames := len(interleaved) / channels
	if frames > len(dst) {
		frames = len(dst)
	}
	for i := 0; i < frames; i++ {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += interleaved[i*channels+ch]
		}
		dst[i] = sum / float32(channels)
	}
	return frames
}
