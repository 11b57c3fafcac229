// Package config provides hierarchical configuration management.
// Priority: defaults < system < user < project < env < flags
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config holds all arrowrows configuration.
type Config struct {
	Version int `yaml:"version"`

	Decode DecodeConfig `yaml:"decode"`
	Output OutputConfig `yaml:"output"`
	Log    LogConfig    `yaml:"log"`
}

// DecodeConfig controls decoder selection and iteration.
type DecodeConfig struct {
	Mode      string `yaml:"mode"`       // standard | array
	Shape     string `yaml:"shape"`      // tuple | dict
	Workers   int    `yaml:"workers"`    // 0 = one per CPU
	Format    string `yaml:"format"`     // ipc | stream | parquet, empty = detect
	BatchSize int64  `yaml:"batch_size"` // parquet re-batching
}

// OutputConfig controls CLI output.
type OutputConfig struct {
	Progress bool `yaml:"progress"`
}

// LogConfig controls diagnostics.
type LogConfig struct {
	Level  string `yaml:"level"` // trace | debug | info | warn | error
	Pretty bool   `yaml:"pretty"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version: 1,
		Decode: DecodeConfig{
			Mode:      "standard",
			Shape:     "dict",
			Workers:   1,
			BatchSize: 64 * 1024,
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Decode.Mode {
	case "standard", "array":
	default:
		return fmt.Errorf("decode.mode %q: want standard or array", c.Decode.Mode)
	}
	switch c.Decode.Shape {
	case "tuple", "dict":
	default:
		return fmt.Errorf("decode.shape %q: want tuple or dict", c.Decode.Shape)
	}
	switch c.Decode.Format {
	case "", "ipc", "stream", "parquet":
	default:
		return fmt.Errorf("decode.format %q: want ipc, stream or parquet", c.Decode.Format)
	}
	if c.Decode.Workers < 0 {
		return fmt.Errorf("decode.workers %d must not be negative", c.Decode.Workers)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// Manager handles configuration loading and merging.
type Manager struct {
	mu     sync.RWMutex
	config *Config
	search []string
	paths  []string // Paths that were loaded
}

// NewManager creates a manager that searches the standard locations.
func NewManager() *Manager {
	return &Manager{
		config: Default(),
		search: defaultConfigPaths(),
	}
}

// NewManagerWithPaths creates a manager that searches only paths, in
// priority order.
func NewManagerWithPaths(paths ...string) *Manager {
	return &Manager{
		config: Default(),
		search: paths,
	}
}

// Load loads configuration from all sources in priority order.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.config = Default()
	m.paths = nil

	for _, path := range m.search {
		if err := m.loadFile(path); err != nil {
			// Ignore missing files, fail on broken ones
			if !os.IsNotExist(err) {
				return err
			}
		} else {
			m.paths = append(m.paths, path)
		}
	}

	m.loadEnv()
	return m.config.Validate()
}

// LoadFile merges one explicit file over the current configuration.
func (m *Manager) LoadFile(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.loadFile(path); err != nil {
		return err
	}
	m.paths = append(m.paths, path)
	return m.config.Validate()
}

// defaultConfigPaths returns config file paths in priority order.
func defaultConfigPaths() []string {
	var paths []string

	// System config
	if runtime.GOOS != "windows" {
		paths = append(paths, "/etc/arrowrows/config.yaml")
	}

	// User config
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".arrowrows", "config.yaml"))
	}

	// Project config (current directory)
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".arrowrows.yaml"))
	}

	return paths
}

// loadFile loads a single config file and merges it.
func (m *Manager) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var partial Config
	if err := yaml.Unmarshal(data, &partial); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	m.merge(&partial)
	return nil
}

// merge merges non-zero values from src into config.
func (m *Manager) merge(src *Config) {
	if src.Version != 0 {
		m.config.Version = src.Version
	}

	// Decode
	if src.Decode.Mode != "" {
		m.config.Decode.Mode = src.Decode.Mode
	}
	if src.Decode.Shape != "" {
		m.config.Decode.Shape = src.Decode.Shape
	}
	if src.Decode.Workers != 0 {
		m.config.Decode.Workers = src.Decode.Workers
	}
	if src.Decode.Format != "" {
		m.config.Decode.Format = src.Decode.Format
	}
	if src.Decode.BatchSize != 0 {
		m.config.Decode.BatchSize = src.Decode.BatchSize
	}

	// Output
	if src.Output.Progress {
		m.config.Output.Progress = true
	}

	// Log
	if src.Log.Level != "" {
		m.config.Log.Level = src.Log.Level
	}
	if src.Log.Pretty {
		m.config.Log.Pretty = true
	}
}

// loadEnv loads configuration from environment variables.
func (m *Manager) loadEnv() {
	// ARROWROWS_MODE
	if v := os.Getenv("ARROWROWS_MODE"); v != "" {
		m.config.Decode.Mode = strings.ToLower(v)
	}

	// ARROWROWS_SHAPE
	if v := os.Getenv("ARROWROWS_SHAPE"); v != "" {
		m.config.Decode.Shape = strings.ToLower(v)
	}

	// ARROWROWS_WORKERS
	if v := os.Getenv("ARROWROWS_WORKERS"); v != "" {
		var workers int
		if _, err := fmt.Sscanf(v, "%d", &workers); err == nil {
			m.config.Decode.Workers = workers
		}
	}

	// ARROWROWS_LOG_LEVEL
	if v := os.Getenv("ARROWROWS_LOG_LEVEL"); v != "" {
		m.config.Log.Level = strings.ToLower(v)
	}
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// GetPaths returns the paths that were loaded.
func (m *Manager) GetPaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paths
}

// Save writes the current config to path, creating its directory.
func (m *Manager) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(m.config)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
