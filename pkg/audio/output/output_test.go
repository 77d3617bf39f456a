// ABOUTME: Audio output tests
// ABOUTME: Verifies the Output implementation and volume scaling
package output

import (
	"encoding/binary"
	"testing"
)

func TestOtoImplementsOutput(t *testing.T) {
	var _ Output = (*Oto)(nil)
}

func TestWriteBeforeOpen(t *testing.T) {
	out := NewOto()
	if err := out.Write([]int16{1, 2}); err == nil {
		t.Fatal("expected error writing to unopened output")
	}
}

func TestVolumeClamp(t *testing.T) {
	out := NewOto()

	out.SetVolume(150)
	if got := out.Volume(); got != 100 {
		t.Errorf("expected volume 100, got %d", got)
	}

	out.SetVolume(-3)
	if got := out.Volume(); got != 0 {
		t.Errorf("expected volume 0, got %d", got)
	}
}

func TestEncodeWithVolume(t *testing.T) {
	tests := []struct {
		name   string
		sample int16
		volume int
		muted  bool
		want   int16
	}{
		{"full volume", 16384, 100, false, 16384},
		{"half volume", 16384, 50, false, 8192},
		{"muted", 16384, 100, true, 0},
		{"negative extreme", -32768, 100, false, -32768},
		{"zero volume", 1000, 0, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := encodeWithVolume([]int16{tt.sample}, tt.volume, tt.muted)
			if len(data) != 2 {
				t.Fatalf("expected 2 bytes, got %d", len(data))
			}
			got := int16(binary.LittleEndian.Uint16(data))
			if got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}
