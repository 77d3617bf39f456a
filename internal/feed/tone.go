// ABOUTME: Sine tone generator source
// ABOUTME: Produces an endless test tone at a fixed amplitude
package feed

import (
	"fmt"
	"math"
	"sync"
)

// DefaultToneFrequency is A4
const DefaultToneFrequency = 440.0

// ToneSource generates a sine wave
type ToneSource struct {
	sampleIndex uint64
	sampleMu    sync.Mutex
	frequency   float64
	amplitude   float64
	sampleRate  int
}

// NewToneSource creates a tone generator. amplitude is clamped to [0, 1].
func NewToneSource(frequency, amplitude float64, sampleRate int) *ToneSource {
	return &ToneSource{
		frequency:  frequency,
		amplitude:  math.Max(0, math.Min(1, amplitude)),
		sampleRate: sampleRate,
	}
}

func (s *ToneSource) Read(samples []float32) (int, error) {
	s.sampleMu.Lock()
	defer s.sampleMu.Unlock()

	for i := range samples {
		t := float64(s.sampleIndex+uint64(i)) / float64(s.sampleRate)
		samples[i] = float32(s.amplitude * math.Sin(2*math.Pi*s.frequency*t))
	}
	s.sampleIndex += uint64(len(samples))

	return len(samples), nil
}

func (s *ToneSource) SampleRate() int { return s.sampleRate }
func (s *ToneSource) Title() string   { return fmt.Sprintf("Test Tone %.0f Hz", s.frequency) }
func (s *ToneSource) Close() error    { return nil }
