// ABOUTME: Tests for audio types
// ABOUTME: Tests format byte math and sample conversion functions
package audio

import (
	"math"
	"testing"
	"time"
)

func TestFloatToInt16(t *testing.T) {
	tests := []struct {
		name     string
		input    float32
		expected int16
	}{
		{"zero", 0, 0},
		{"half", 0.5, 16384},
		{"negative half", -0.5, -16384},
		{"truncates toward zero", 0.00002, 0},
		{"one saturates", 1.0, 32767},
		{"minus one", -1.0, -32768},
		{"above range", 3.5, 32767},
		{"below range", -7, -32768},
		{"positive infinity", float32(math.Inf(1)), 32767},
		{"negative infinity", float32(math.Inf(-1)), -32768},
		{"nan", float32(math.NaN()), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FloatToInt16(tt.input)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestInt16ToFloat(t *testing.T) {
	if got := Int16ToFloat(16384); got != 0.5 {
		t.Errorf("expected 0.5, got %f", got)
	}
	if got := Int16ToFloat(-32768); got != -1 {
		t.Errorf("expected -1, got %f", got)
	}
}

func TestFormatBytesFor(t *testing.T) {
	format := DefaultFormat()

	tests := []struct {
		name     string
		duration time.Duration
		expected int
	}{
		{"20ms chunk", 20 * time.Millisecond, 3840},
		{"60ms preroll", 60 * time.Millisecond, 11520},
		{"one second", time.Second, 192000},
		{"sub-frame rounds down", 10 * time.Microsecond, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := format.BytesFor(tt.duration); got != tt.expected {
				t.Errorf("expected %d bytes, got %d", tt.expected, got)
			}
		})
	}
}

func TestFormatDurationOf(t *testing.T) {
	format := DefaultFormat()

	if got := format.DurationOf(3840); got != 20*time.Millisecond {
		t.Errorf("expected 20ms, got %v", got)
	}
	if got := (Format{}).DurationOf(3840); got != 0 {
		t.Errorf("expected 0 for empty format, got %v", got)
	}
}

func TestFormatValidate(t *testing.T) {
	if err := DefaultFormat().Validate(); err != nil {
		t.Errorf("default format should be valid: %v", err)
	}

	bad := DefaultFormat()
	bad.BitDepth = 24
	if err := bad.Validate(); err == nil {
		t.Error("expected error for 24-bit format")
	}

	bad = DefaultFormat()
	bad.Channels = 6
	if err := bad.Validate(); err == nil {
		t.Error("expected error for 6 channels")
	}
}
