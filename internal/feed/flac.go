// ABOUTME: FLAC file source using mewkiz/flac
// ABOUTME: Parses frames one at a time and downmixes them to mono
package feed

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/mewkiz/flac"
)

// FLACSource reads from a FLAC file
type FLACSource struct {
	file   *os.File
	stream *flac.Stream
	loop   bool
	title  string

	sampleRate int
	channels   int
	scale      float32

	// pending holds decoded mono samples not yet returned
	pending []float32
}

// NewFLACSource opens a FLAC file
func NewFLACSource(path string, loop bool) (*FLACSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open FLAC file: %w", err)
	}

	stream, err := flac.New(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	s := &FLACSource{
		file:       f,
		stream:     stream,
		loop:       loop,
		title:      titleFromPath(path),
		sampleRate: int(info.SampleRate),
		channels:   int(info.NChannels),
		scale:      float32(int64(1) << (info.BitsPerSample - 1)),
	}

	log.Printf("Loaded FLAC: %s (sample rate: %d Hz, channels: %d, bit depth: %d)",
		s.title, s.sampleRate, s.channels, info.BitsPerSample)
	return s, nil
}

func (s *FLACSource) Read(samples []float32) (int, error) {
	for len(s.pending) < len(samples) {
		if err := s.decodeFrame(); err != nil {
			if errors.Is(err, io.EOF) {
				if len(s.pending) == 0 {
					return 0, io.EOF
				}
				break
			}
			return 0, err
		}
	}

	n := copy(samples, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

// decodeFrame appends one frame to pending, rewinding at the end when looping
func (s *FLACSource) decodeFrame() error {
	frame, err := s.stream.ParseNext()
	if err == io.EOF && s.loop {
		if err := s.rewind(); err != nil {
			return err
		}
		frame, err = s.stream.ParseNext()
	}
	if err != nil {
		if err == io.EOF {
			return io.EOF
		}
		return fmt.Errorf("failed to parse FLAC frame: %w", err)
	}

	for i := 0; i < int(frame.BlockSize); i++ {
		var sum float32
		for ch := 0; ch < s.channels; ch++ {
			sum += float32(frame.Subframes[ch].Samples[i]) / s.scale
		}
		s.pending = append(s.pending, sum/float32(s.channels))
	}
	return nil
}

func (s *FLACSource) rewind() error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to start: %w", err)
	}
	stream, err := flac.New(s.file)
	if err != nil {
		return fmt.Errorf("failed to create new stream: %w", err)
	}
	s.stream = stream
	return nil
}

func (s *FLACSource) SampleRate() int { return s.sampleRate }
func (s *FLACSource) Title() string   { return s.title }
func (s *FLACSource) Close() error    { return s.file.Close() }
