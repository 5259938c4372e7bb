package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile returns the YAML file consulted when PT_CONFIG is not set
func DefaultConfigFile() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".pt", "config.yaml")
}

// Loader handles loading configuration from multiple sources
type Loader struct {
	config *Config
	file   string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	file := os.Getenv("PT_CONFIG")
	if file == "" {
		file = DefaultConfigFile()
	}
	return &Loader{
		config: NewConfig(),
		file:   file,
	}
}

// WithFile makes the loader read path instead of the default config file
func (l *Loader) WithFile(path string) *Loader {
	l.file = path
	return l
}

// Load loads configuration using the cascading strategy:
// 1. Start with defaults
// 2. Override with the YAML config file, when present
// 3. Override with environment variables
// 4. Override with command line flags (see LoadWithOverrides)
func (l *Loader) Load() (*Config, error) {
	if err := l.loadFile(); err != nil {
		return nil, err
	}

	if err := l.config.LoadFromEnvironment(); err != nil {
		return nil, err
	}

	if err := l.config.Validate(); err != nil {
		return nil, err
	}

	return l.config, nil
}

// loadFile decodes the YAML file over the current values. A missing file is not an error.
func (l *Loader) loadFile() error {
	if l.file == "" {
		return nil
	}
	data, err := os.ReadFile(l.file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, l.config); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", l.file, err)
	}
	return nil
}

// LoadWithOverrides loads configuration and applies command line overrides
func (l *Loader) LoadWithOverrides(overrides *ConfigOverrides) (*Config, error) {
	config, err := l.Load()
	if err != nil {
		return nil, err
	}

	config.ApplyOverrides(overrides)

	// Re-validate after applying overrides
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Save writes the configuration as YAML, creating the parent directory
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigOverrides holds command line flag overrides
type ConfigOverrides struct {
	APIURL      *string
	SessionFile *string

	LookupTimeout       *time.Duration
	LookupMaxConcurrent *int
	PageSize            *int
	UploadConcurrency   *int

	DBDir      *string
	DBFilename *string

	ServerAddr  *string
	BackendAddr *string
	JWTSecret   *string

	NATSURL        *string
	MetricsEnabled *bool

	Timeout *time.Duration
	Verbose *bool
}

// ApplyOverrides copies every set override onto the configuration. A nil
// overrides value changes nothing.
func (c *Config) ApplyOverrides(overrides *ConfigOverrides) {
	if overrides == nil {
		return
	}
	if overrides.APIURL != nil {
		c.API.BaseURL = *overrides.APIURL
	}
	if overrides.SessionFile != nil {
		c.Session.File = *overrides.SessionFile
	}

	if overrides.LookupTimeout != nil {
		c.Lookup.Timeout = *overrides.LookupTimeout
	}
	if overrides.LookupMaxConcurrent != nil {
		c.Lookup.MaxConcurrent = *overrides.LookupMaxConcurrent
	}
	if overrides.PageSize != nil {
		c.Pagination.PageSize = *overrides.PageSize
	}
	if overrides.UploadConcurrency != nil {
		c.Upload.Concurrency = *overrides.UploadConcurrency
	}

	if overrides.DBDir != nil {
		c.Database.Dir = *overrides.DBDir
	}
	if overrides.DBFilename != nil {
		c.Database.Filename = *overrides.DBFilename
	}

	if overrides.ServerAddr != nil {
		c.Server.Addr = *overrides.ServerAddr
	}
	if overrides.BackendAddr != nil {
		c.Backend.Addr = *overrides.BackendAddr
	}
	if overrides.JWTSecret != nil {
		c.Backend.JWTSecret = *overrides.JWTSecret
	}

	if overrides.NATSURL != nil {
		c.Events.NATSURL = *overrides.NATSURL
	}
	if overrides.MetricsEnabled != nil {
		c.Metrics.Enabled = *overrides.MetricsEnabled
	}

	if overrides.Timeout != nil {
		c.Application.Timeout = *overrides.Timeout
	}
	if overrides.Verbose != nil {
		c.Application.Verbose = *overrides.Verbose
	}
}

// ParseDurationWithFallback parses a duration string with a fallback value
func ParseDurationWithFallback(s string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return fallback
}

// ParseIntWithFallback parses an integer string with a fallback value
func ParseIntWithFallback(s string, fallback int) int {
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	return fallback
}

// ParseBoolWithFallback parses a boolean string with a fallback value
func ParseBoolWithFallback(s string, fallback bool) bool {
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return fallback
}

// ParseUint32WithFallback parses a uint32 string with a fallback value
func ParseUint32WithFallback(s string, base int, fallback uint32) uint32 {
	if u, err := strconv.ParseUint(s, base, 32); err == nil {
		return uint32(u)
	}
	return fallback
}
