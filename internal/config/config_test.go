package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	opts := cfg.BufferOptions()
	assert.Equal(t, 11520, opts.PrerollBytes)
	assert.Equal(t, 3840, opts.ChunkBytes)
	assert.Equal(t, 960000, opts.MaxBufferedBytes)
	assert.NoError(t, opts.Validate())

	assert.Equal(t, "127.0.0.1:1235", cfg.ControlAddress())
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
audio:
  preroll_ms: 100
server:
  codec: opus
  name: Kitchen Radio
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Audio.PrerollMs)
	assert.Equal(t, 20, cfg.Audio.ChunkMs)
	assert.Equal(t, "opus", cfg.Server.Codec)
	assert.Equal(t, "Kitchen Radio", cfg.Server.Name)
	assert.Equal(t, 1234, cfg.Ingest.Port)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "audio: [not, a, map]"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "server:\n  codec: mp3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "codec")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"low sample rate", func(c *Config) { c.Audio.SampleRate = 100 }},
		{"zero chunk", func(c *Config) { c.Audio.ChunkMs = 0 }},
		{"negative preroll", func(c *Config) { c.Audio.PrerollMs = -1 }},
		{"cap below preroll", func(c *Config) { c.Audio.MaxBufferMs = 50 }},
		{"empty bind address", func(c *Config) { c.Ingest.BindAddress = "" }},
		{"bad ingest port", func(c *Config) { c.Ingest.Port = 70000 }},
		{"bad control port", func(c *Config) { c.Control.Port = 0 }},
		{"empty control address", func(c *Config) { c.Control.Address = "" }},
		{"bad server port", func(c *Config) { c.Server.Port = -5 }},
		{"empty name", func(c *Config) { c.Server.Name = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestUnboundedBuffer(t *testing.T) {
	cfg := Default()
	cfg.Audio.MaxBufferMs = 0
	require.NoError(t, cfg.Validate())
	assert.Zero(t, cfg.BufferOptions().MaxBufferedBytes)
}
