// ABOUTME: YAML configuration for the radio bridge
// ABOUTME: Load merges a file over Default and validates the result
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Resonate-Protocol/resonate-radio/pkg/audio"
	"github.com/Resonate-Protocol/resonate-radio/pkg/bridge"
)

// Config represents the complete bridge configuration
type Config struct {
	Audio   AudioConfig   `yaml:"audio"`
	Ingest  IngestConfig  `yaml:"ingest"`
	Control ControlConfig `yaml:"control"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// AudioConfig sets the output format and buffer timing
type AudioConfig struct {
	SampleRate  int `yaml:"sample_rate"`
	PrerollMs   int `yaml:"preroll_ms"`
	ChunkMs     int `yaml:"chunk_ms"`
	MaxBufferMs int `yaml:"max_buffer_ms"` // 0 = unbounded
}

// IngestConfig sets the UDP sample listener
type IngestConfig struct {
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`
	ReadBuffer  int    `yaml:"read_buffer"`
}

// ControlConfig sets the control message destination
type ControlConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// ServerConfig sets the listener-facing server
type ServerConfig struct {
	Port       int    `yaml:"port"`
	Name       string `yaml:"name"`
	EnableMDNS bool   `yaml:"enable_mdns"`
	Codec      string `yaml:"codec"` // "pcm" or "opus"
	Debug      bool   `yaml:"debug"`
}

// LoggingConfig sets where logs go
type LoggingConfig struct {
	File string `yaml:"file"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate:  audio.DefaultSampleRate,
			PrerollMs:   60,
			ChunkMs:     20,
			MaxBufferMs: 5000,
		},
		Ingest: IngestConfig{
			BindAddress: "0.0.0.0",
			Port:        1234,
			ReadBuffer:  1 << 20,
		},
		Control: ControlConfig{
			Address: "127.0.0.1",
			Port:    1235,
		},
		Server: ServerConfig{
			Port:       8927,
			Name:       "FM Radio Bridge",
			EnableMDNS: true,
			Codec:      "pcm",
		},
		Logging: LoggingConfig{
			File: "radio-bridge.log",
		},
	}
}

// Load reads path and merges it over Default. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks every section
func (c *Config) Validate() error {
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}
	if err := c.Ingest.Validate(); err != nil {
		return fmt.Errorf("ingest config: %w", err)
	}
	if err := c.Control.Validate(); err != nil {
		return fmt.Errorf("control config: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate < 8000 || a.SampleRate > 192000 {
		return fmt.Errorf("sample_rate must be between 8000 and 192000, got %d", a.SampleRate)
	}
	if a.ChunkMs < 1 || a.ChunkMs > 1000 {
		return fmt.Errorf("chunk_ms must be between 1 and 1000, got %d", a.ChunkMs)
	}
	if a.PrerollMs < 0 {
		return fmt.Errorf("preroll_ms must not be negative, got %d", a.PrerollMs)
	}
	if a.MaxBufferMs < 0 {
		return fmt.Errorf("max_buffer_ms must not be negative, got %d", a.MaxBufferMs)
	}
	if a.MaxBufferMs > 0 && a.MaxBufferMs < a.PrerollMs+a.ChunkMs {
		return fmt.Errorf("max_buffer_ms %d must cover preroll_ms plus chunk_ms (%d)",
			a.MaxBufferMs, a.PrerollMs+a.ChunkMs)
	}
	return nil
}

// Validate validates ingest configuration
func (i *IngestConfig) Validate() error {
	if i.Port < 0 || i.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", i.Port)
	}
	if i.BindAddress == "" {
		return fmt.Errorf("bind_address cannot be empty")
	}
	if i.ReadBuffer < 0 {
		return fmt.Errorf("read_buffer must not be negative, got %d", i.ReadBuffer)
	}
	return nil
}

// Validate validates control configuration
func (c *ControlConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.Address == "" {
		return fmt.Errorf("address cannot be empty")
	}
	return nil
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}
	if s.Name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if s.Codec != "pcm" && s.Codec != "opus" {
		return fmt.Errorf("codec must be pcm or opus, got %q", s.Codec)
	}
	return nil
}

// Format returns the output stream format
func (c *Config) Format() audio.Format {
	format := audio.DefaultFormat()
	format.SampleRate = c.Audio.SampleRate
	return format
}

// ChunkDuration returns the playback tick period
func (c *Config) ChunkDuration() time.Duration {
	return time.Duration(c.Audio.ChunkMs) * time.Millisecond
}

// BufferOptions derives playback buffer options
func (c *Config) BufferOptions() bridge.Options {
	format := c.Format()
	opts := bridge.OptionsFor(format, time.Duration(c.Audio.PrerollMs)*time.Millisecond, c.ChunkDuration())
	opts.MaxBufferedBytes = format.BytesFor(time.Duration(c.Audio.MaxBufferMs) * time.Millisecond)
	return opts
}

// ControlAddress returns host:port of the control destination
func (c *Config) ControlAddress() string {
	return net.JoinHostPort(c.Control.Address, strconv.Itoa(c.Control.Port))
}
