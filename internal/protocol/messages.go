// ABOUTME: Radio stream protocol message type definitions
// ABOUTME: Defines structs for all JSON messages and the binary audio frame
package protocol

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
)

const (
	// Version is the protocol version exchanged in the hello messages
	Version = 1

	// AudioChunkMessageType tags binary audio frames
	AudioChunkMessageType = 4

	// AudioChunkHeaderSize is the type byte plus the int64 timestamp
	AudioChunkHeaderSize = 9
)

// Message types
const (
	TypeClientHello    = "client/hello"
	TypeClientGoodbye  = "client/goodbye"
	TypeServerHello    = "server/hello"
	TypeServerState    = "server/state"
	TypeServerError    = "server/error"
	TypeStreamStart    = "stream/start"
	TypeStreamEnd      = "stream/end"
	TypeStreamMetadata = "stream/metadata"
)

// Message is the top-level wrapper for all protocol messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// DecodePayload re-decodes a generic payload into v
func (m Message) DecodePayload(v interface{}) error {
	data, err := json.Marshal(m.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", m.Type, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s payload: %w", m.Type, err)
	}
	return nil
}

// ClientHello is sent by listeners to initiate the handshake
type ClientHello struct {
	ClientID        string      `json:"client_id"`
	Name            string      `json:"name"`
	Version         int         `json:"version"`
	SupportedCodecs []string    `json:"supported_codecs,omitempty"`
	DeviceInfo      *DeviceInfo `json:"device_info,omitempty"`
}

// DeviceInfo contains device identification
type DeviceInfo struct {
	ProductName     string `json:"product_name"`
	Manufacturer    string `json:"manufacturer"`
	SoftwareVersion string `json:"software_version"`
}

// ServerHello is the server's response to client/hello
type ServerHello struct {
	ServerID string `json:"server_id"`
	Name     string `json:"name"`
	Version  int    `json:"version"`
}

// ServerError rejects a connection
type ServerError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ServerState reports the streaming session
type ServerState struct {
	Playing    bool  `json:"playing"`
	Started    bool  `json:"started"`
	BufferedMs int64 `json:"buffered_ms"`
	Listeners  int   `json:"listeners"`
}

// StreamStart notifies the listener of the stream format
type StreamStart struct {
	Codec      string `json:"codec"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	BitDepth   int    `json:"bit_depth"`
	ChunkMs    int    `json:"chunk_ms"`
}

// StreamEnd tells the listener no more audio follows
type StreamEnd struct {
	Reason string `json:"reason,omitempty"`
}

// StreamMetadata describes what is on air
type StreamMetadata struct {
	Title   string `json:"title,omitempty"`
	Station string `json:"station,omitempty"`
}

// ClientGoodbye is sent by a listener before disconnecting
type ClientGoodbye struct {
	Reason string `json:"reason,omitempty"`
}

// CreateAudioChunk creates a binary audio chunk message
func CreateAudioChunk(timestamp int64, audioData []byte) []byte {
	// Binary format: [message_type:1][timestamp:8][audio_data:N]
	chunk := make([]byte, AudioChunkHeaderSize+len(audioData))
	chunk[0] = AudioChunkMessageType
	binary.BigEndian.PutUint64(chunk[1:9], uint64(timestamp))
	copy(chunk[AudioChunkHeaderSize:], audioData)
	return chunk
}

// ParseAudioChunk splits a binary audio chunk into timestamp and payload
func ParseAudioChunk(data []byte) (int64, []byte, error) {
	if len(data) < AudioChunkHeaderSize {
		return 0, nil, fmt.Errorf("audio chunk too short: %d bytes", len(data))
	}
	if data[0] != AudioChunkMessageType {
		return 0, nil, fmt.Errorf("unexpected binary message type: %d", data[0])
	}
	return int64(binary.BigEndian.Uint64(data[1:9])), data[AudioChunkHeaderSize:], nil
}
