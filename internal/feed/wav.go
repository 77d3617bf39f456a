// ABOUTME: WAV file source using go-audio/wav
// ABOUTME: Reads integer PCM of any supported depth and downmixes to mono
package feed

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVSource reads from a WAV file
type WAVSource struct {
	file    *os.File
	decoder *wav.Decoder
	loop    bool
	title   string

	sampleRate int
	channels   int
	divisor    float32

	buf    *goaudio.IntBuffer
	frames []float32
}

// NewWAVSource opens a WAV file
func NewWAVSource(path string, loop bool) (*WAVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}

	decoder, err := openWAV(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	s := &WAVSource{
		file:       f,
		decoder:    decoder,
		loop:       loop,
		title:      titleFromPath(path),
		sampleRate: int(decoder.SampleRate),
		channels:   int(decoder.NumChans),
		divisor:    float32(int64(1) << (decoder.BitDepth - 1)),
	}

	log.Printf("Loaded WAV: %s (sample rate: %d Hz, channels: %d, bit depth: %d)",
		s.title, s.sampleRate, s.channels, decoder.BitDepth)
	return s, nil
}

func openWAV(f *os.File) (*wav.Decoder, error) {
	decoder := wav.NewDecoder(f)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return nil, errors.New("input is not a valid WAV audio file")
	}
	if decoder.BitDepth != 16 && decoder.BitDepth != 24 && decoder.BitDepth != 32 {
		return nil, fmt.Errorf("unsupported bit depth: %d", decoder.BitDepth)
	}
	if decoder.NumChans == 0 {
		return nil, errors.New("WAV file declares no channels")
	}
	return decoder, nil
}

func (s *WAVSource) Read(samples []float32) (int, error) {
	want := len(samples) * s.channels
	if s.buf == nil || len(s.buf.Data) < want {
		s.buf = &goaudio.IntBuffer{
			Data:   make([]int, want),
			Format: &goaudio.Format{SampleRate: s.sampleRate, NumChannels: s.channels},
		}
		s.frames = make([]float32, want)
	}
	s.buf.Data = s.buf.Data[:want]

	n, err := s.decoder.PCMBuffer(s.buf)
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("failed to read WAV: %w", err)
	}

	if n == 0 {
		if !s.loop {
			return 0, io.EOF
		}
		return 0, s.rewind()
	}

	interleaved := s.frames[:n-n%s.channels]
	for i := range interleaved {
		interleaved[i] = float32(s.buf.Data[i]) / s.divisor
	}
	return downmix(samples, interleaved, s.channels), nil
}

func (s *WAVSource) rewind() error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to start: %w", err)
	}
	decoder, err := openWAV(s.file)
	if err != nil {
		return err
	}
	s.decoder = decoder
	return nil
}

func (s *WAVSource) SampleRate() int { return s.sampleRate }
func (s *WAVSource) Title() string   { return s.title }
func (s *WAVSource) Close() error    { return s.file.Close() }
