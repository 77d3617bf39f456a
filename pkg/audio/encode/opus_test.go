// ABOUTME: Unit tests for Opus encoder
// ABOUTME: Tests Opus encoding of one 20ms chunk
package encode

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/Resonate-Protocol/resonate-radio/pkg/audio"
)

func opusFormat(channels int) audio.Format {
	return audio.Format{Codec: "opus", SampleRate: 48000, Channels: channels, BitDepth: 16}
}

func TestNewOpus(t *testing.T) {
	tests := []struct {
		name    string
		format  audio.Format
		wantErr bool
	}{
		{"valid Opus 48kHz stereo", opusFormat(2), false},
		{"valid Opus 48kHz mono", opusFormat(1), false},
		{"invalid codec", audio.DefaultFormat(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoder, err := NewOpus(tt.format)
			if tt.wantErr {
				if err == nil {
					t.Errorf("NewOpus() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewOpus() unexpected error = %v", err)
			}
			encoder.Close()
		})
	}
}

func TestOpusEncoder_Encode(t *testing.T) {
	encoder, err := NewOpus(opusFormat(2))
	if err != nil {
		t.Fatalf("NewOpus() failed: %v", err)
	}
	defer encoder.Close()

	// 20ms at 48kHz stereo
	frames := 960
	pcm := make([]byte, 0, frames*4)
	for i := 0; i < frames; i++ {
		v := int16(8000 * math.Sin(2*math.Pi*440*float64(i)/48000))
		pcm = binary.LittleEndian.AppendUint16(pcm, uint16(v))
		pcm = binary.LittleEndian.AppendUint16(pcm, uint16(v))
	}

	output, err := encoder.Encode(pcm)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	if len(output) == 0 || len(output) > maxOpusPacket {
		t.Errorf("Encode() output size %d out of range", len(output))
	}

	if _, err := encoder.Encode(pcm[:3]); err == nil {
		t.Errorf("Encode() accepted an odd-length chunk")
	}
}

func TestValidFrameDuration(t *testing.T) {
	if !ValidFrameDuration(20 * time.Millisecond) {
		t.Errorf("20ms should be valid")
	}
	if ValidFrameDuration(25 * time.Millisecond) {
		t.Errorf("25ms should be invalid")
	}
}
