package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/acuvio/camlink/internal/logger"
)

// StreamConfig configures the MJPEG preview stream.
type StreamConfig struct {
	Width   int `json:"width" yaml:"width"`
	Height  int `json:"height" yaml:"height"`
	Quality int `json:"quality" yaml:"quality"`
}

// RecordConfig configures the file recorder.
type RecordConfig struct {
	Path string `json:"path" yaml:"path"`
	FPS  int    `json:"fps" yaml:"fps"`
}

// Config is the application configuration.
type Config struct {
	ServerPort int    `json:"server_port" yaml:"server_port"`
	LogLevel   string `json:"log_level" yaml:"log_level"`

	// Dispatcher selects the owner-loop binding ("glib", "native"); empty
	// auto-detects. The CAMLINK_DISPATCHER environment variable takes
	// precedence.
	Dispatcher string `json:"dispatcher" yaml:"dispatcher"`

	CaptureDir string       `json:"capture_dir" yaml:"capture_dir"`
	Stream     StreamConfig `json:"stream" yaml:"stream"`
	Record     RecordConfig `json:"record" yaml:"record"`
}

// Manager handles configuration load, defaults, and persistence.
type Manager struct {
	configPath string
	config     *Config
	mu         sync.RWMutex
}

// NewManager loads the configuration from configFile, or from the default
// location when empty; a missing file is created with defaults.
func NewManager(configFile string) (*Manager, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	configDir := filepath.Join(homeDir, ".config", "camlink")

	actualConfigPath := filepath.Join(configDir, "config.yaml")
	if configFile != "" {
		actualConfigPath = configFile
		configDir = filepath.Dir(configFile)
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	m := &Manager{configPath: actualConfigPath}
	if err := m.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		logger.WithComponent("config").Info().
			Str("path", m.configPath).
			Msg("config file not found, creating new config")
		m.config = Defaults()
		if err := m.Save(); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}
	return m, nil
}

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		ServerPort: 8080,
		LogLevel:   "info",
		CaptureDir: "captures",
		Stream: StreamConfig{
			Quality: 85,
		},
		Record: RecordConfig{
			Path: "recording.mkv",
			FPS:  30,
		},
	}
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}
	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return *m.config
}

// GetConfigPath returns the backing file path.
func (m *Manager) GetConfigPath() string { return m.configPath }

// Save writes the configuration to disk.
func (m *Manager) Save() error {
	m.mu.RLock()
	data, err := yaml.Marshal(m.config)
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(m.configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// SetPort overrides the server port.
func (m *Manager) SetPort(port int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.ServerPort = port
}

// SetLogLevel overrides the log level.
func (m *Manager) SetLogLevel(level string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.LogLevel = level
}

// SetDispatcher overrides the owner-loop binding.
func (m *Manager) SetDispatcher(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.Dispatcher = name
}
