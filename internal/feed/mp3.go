// ABOUTME: MP3 file source using go-mp3
// ABOUTME: Decodes stereo 16-bit output and downmixes it to mono
package feed

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/hajimehoshi/go-mp3"

	"github.com/Resonate-Protocol/resonate-radio/pkg/audio"
)

// MP3 decoder output is always interleaved stereo int16
const mp3FrameBytes = 4

// MP3Source reads from an MP3 file
type MP3Source struct {
	file    *os.File
	decoder *mp3.Decoder
	loop    bool
	title   string

	raw    []byte
	frames []float32
}

// NewMP3Source opens an MP3 file
func NewMP3Source(path string, loop bool) (*MP3Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file: %w", err)
	}

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	s := &MP3Source{
		file:    f,
		decoder: decoder,
		loop:    loop,
		title:   titleFromPath(path),
	}
	log.Printf("Loaded MP3: %s (sample rate: %d Hz)", s.title, decoder.SampleRate())
	return s, nil
}

func (s *MP3Source) Read(samples []float32) (int, error) {
	need := len(samples) * mp3FrameBytes
	if cap(s.raw) < need {
		s.raw = make([]byte, need)
		s.frames = make([]float32, len(samples)*2)
	}
	raw := s.raw[:need]

	n, err := io.ReadFull(s.decoder, raw)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		if !s.loop {
			if n == 0 {
				return 0, io.EOF
			}
		} else if rerr := s.rewind(); rerr != nil {
			return 0, rerr
		}
	} else if err != nil {
		return 0, fmt.Errorf("failed to read MP3: %w", err)
	}

	n -= n % mp3FrameBytes
	interleaved := s.frames[:n/2]
	for i := range interleaved {
		interleaved[i] = audio.Int16ToFloat(int16(binary.LittleEndian.Uint16(raw[i*2:])))
	}

	return downmix(samples, interleaved, 2), nil
}

func (s *MP3Source) rewind() error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to start: %w", err)
	}
	decoder, err := mp3.NewDecoder(s.file)
	if err != nil {
		return fmt.Errorf("failed to create new decoder: %w", err)
	}
	s.decoder = decoder
	return nil
}

func (s *MP3Source) SampleRate() int { return s.decoder.SampleRate() }
func (s *MP3Source) Title() string   { return s.title }
func (s *MP3Source) Close() error    { return s.file.Close() }
