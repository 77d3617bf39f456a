// ABOUTME: Binary codec for key/value control messages
// ABOUTME: Numeric values are sent as float64, everything else as a string
package control

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Wire tags
const (
	TagPair   = 0x07
	TagSymbol = 0x02
	TagDouble = 0x04

	// MaxFieldLength is the longest key or string value a length prefix can describe
	MaxFieldLength = math.MaxUint16
)

var (
	// ErrKeyTooLong is returned when the key does not fit its length prefix
	ErrKeyTooLong = errors.New("control key too long")

	// ErrValueTooLong is returned when a string value does not fit its length prefix
	ErrValueTooLong = errors.New("control value too long")

	// ErrMalformed is returned by Decode for bytes that are not a control message
	ErrMalformed = errors.New("malformed control message")
)

// Message is one key/value command
type Message struct {
	Key string

	// Numeric is set when the value is carried as a float64
	Numeric bool
	Number  float64

	// Text holds the value when it is carried as a string
	Text string
}

// Parse builds a message from a raw value string.
// Values that parse as a float64 become numeric; all others stay strings.
func Parse(key, value string) Message {
	if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
		return Message{Key: key, Numeric: true, Number: f}
	}
	return Message{Key: key, Text: value}
}

// Value returns the value in its textual form
func (m Message) Value() string {
	if m.Numeric {
		return strconv.FormatFloat(m.Number, 'g', -1, 64)
	}
	return m.Text
}

func (m Message) String() string {
	return fmt.Sprintf("%s=%s", m.Key, m.Value())
}

// MarshalBinary encodes the message
func (m Message) MarshalBinary() ([]byte, error) {
	if len(m.Key) > MaxFieldLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrKeyTooLong, len(m.Key))
	}
	if !m.Numeric && len(m.Text) > MaxFieldLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrValueTooLong, len(m.Text))
	}

	size := 4 + len(m.Key) + 9
	if !m.Numeric {
		size = 4 + len(m.Key) + 3 + len(m.Text)
	}

	buf := make([]byte, 0, size)
	buf = append(buf, TagPair, TagSymbol)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(m.Key)))
	buf = append(buf, m.Key...)

	if m.Numeric {
		buf = append(buf, TagDouble)
		buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(m.Number))
	} else {
		buf = append(buf, TagSymbol)
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(m.Text)))
		buf = append(buf, m.Text...)
	}

	return buf, nil
}

// Encode serializes a key and raw value string in one step
func Encode(key, value string) ([]byte, error) {
	return Parse(key, value).MarshalBinary()
}

// Decode parses an encoded message. Trailing bytes are rejected.
func Decode(data []byte) (Message, error) {
	if len(data) < 4 {
		return Message{}, fmt.Errorf("%w: header too short: %d bytes", ErrMalformed, len(data))
	}
	if data[0] != TagPair || data[1] != TagSymbol {
		return Message{}, fmt.Errorf("%w: unexpected header 0x%02x 0x%02x", ErrMalformed, data[0], data[1])
	}

	keyLen := int(binary.BigEndian.Uint16(data[2:4]))
	rest := data[4:]
	if len(rest) < keyLen+1 {
		return Message{}, fmt.Errorf("%w: key truncated", ErrMalformed)
	}

	msg := Message{Key: string(rest[:keyLen])}
	rest = rest[keyLen:]

	switch rest[0] {
	case TagDouble:
		if len(rest) != 9 {
			return Message{}, fmt.Errorf("%w: numeric value has %d bytes", ErrMalformed, len(rest)-1)
		}
		msg.Numeric = true
		msg.Number = math.Float64frombits(binary.BigEndian.Uint64(rest[1:]))

	case TagSymbol:
		if len(rest) < 3 {
			return Message{}, fmt.Errorf("%w: string length truncated", ErrMalformed)
		}
		valueLen := int(binary.BigEndian.Uint16(rest[1:3]))
		if len(rest)-3 != valueLen {
			return Message{}, fmt.Errorf("%w: string value is %d bytes, header says %d",
				ErrMalformed, len(rest)-3, valueLen)
		}
		msg.Text = string(rest[3:])

	default:
		return Message{}, fmt.Errorf("%w: unknown value tag 0x%02x", ErrMalformed, rest[0])
	}

	return msg, nil
}
