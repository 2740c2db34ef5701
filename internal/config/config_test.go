package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerCreatesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	m, err := NewManager(path)
	require.NoError(t, err)
	assert.Equal(t, path, m.GetConfigPath())

	cfg := m.Get()
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "captures", cfg.CaptureDir)
	assert.Equal(t, 85, cfg.Stream.Quality)
	assert.Equal(t, "recording.mkv", cfg.Record.Path)
	assert.Equal(t, 30, cfg.Record.FPS)

	// The default file was persisted.
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestManagerLoadsExistingConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("server_port: 9000\nlog_level: debug\ndispatcher: native\nstream:\n  width: 640\n  height: 480\n")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	m, err := NewManager(path)
	require.NoError(t, err)

	cfg := m.Get()
	assert.Equal(t, 9000, cfg.ServerPort)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "native", cfg.Dispatcher)
	assert.Equal(t, 640, cfg.Stream.Width)
	assert.Equal(t, 480, cfg.Stream.Height)
	// Keys absent from the file keep their defaults.
	assert.Equal(t, 85, cfg.Stream.Quality)
	assert.Equal(t, "captures", cfg.CaptureDir)
}

func TestManagerRejectsMalformedConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server_port: [nope"), 0o644))

	_, err := NewManager(path)
	assert.Error(t, err)
}

func TestManagerSaveRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	m, err := NewManager(path)
	require.NoError(t, err)

	m.SetPort(9999)
	m.SetLogLevel("trace")
	m.SetDispatcher("glib")
	require.NoError(t, m.Save())

	reloaded, err := NewManager(path)
	require.NoError(t, err)
	cfg := reloaded.Get()
	assert.Equal(t, 9999, cfg.ServerPort)
	assert.Equal(t, "trace", cfg.LogLevel)
	assert.Equal(t, "glib", cfg.Dispatcher)
}

func TestGetReturnsCopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	m, err := NewManager(path)
	require.NoError(t, err)

	cfg := m.Get()
	cfg.ServerPort = 1
	assert.Equal(t, 8080, m.Get().ServerPort)
}
