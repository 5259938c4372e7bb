package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all configuration options for the project tracker
type Config struct {
	API         APIConfig         `yaml:"api"`
	Session     SessionConfig     `yaml:"session"`
	Lookup      LookupConfig      `yaml:"lookup"`
	Pagination  PaginationConfig  `yaml:"pagination"`
	Upload      UploadConfig      `yaml:"upload"`
	Database    DatabaseConfig    `yaml:"database"`
	Server      ServerConfig      `yaml:"server"`
	Backend     BackendConfig     `yaml:"backend"`
	Events      EventsConfig      `yaml:"events"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Application ApplicationConfig `yaml:"application"`
}

// APIConfig points the client at the REST API
type APIConfig struct {
	BaseURL string        `yaml:"base_url" env:"PT_API_URL"`
	Timeout time.Duration `yaml:"timeout" env:"PT_API_TIMEOUT"`
}

// SessionConfig holds where the login session is kept between invocations
type SessionConfig struct {
	File string `yaml:"file" env:"PT_SESSION_FILE"`
}

// LookupConfig bounds the project-manager lookups issued while composing a board.
// MaxConcurrent of 0 puts every lookup in flight at once.
type LookupConfig struct {
	Timeout       time.Duration `yaml:"timeout" env:"PT_LOOKUP_TIMEOUT"`
	MaxConcurrent int           `yaml:"max_concurrent" env:"PT_LOOKUP_MAX_CONCURRENT"`
}

// PaginationConfig holds list paging defaults
type PaginationConfig struct {
	PageSize int `yaml:"page_size" env:"PT_PAGE_SIZE"`
}

// UploadConfig holds attachment upload settings
type UploadConfig struct {
	Concurrency int `yaml:"concurrency" env:"PT_UPLOAD_CONCURRENCY"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Dir            string        `yaml:"dir" env:"PT_DB_DIR"`
	Filename       string        `yaml:"filename" env:"PT_DB_FILENAME"`
	QueryTimeout   time.Duration `yaml:"query_timeout" env:"PT_DB_QUERY_TIMEOUT"`
	WriteTimeout   time.Duration `yaml:"write_timeout" env:"PT_DB_WRITE_TIMEOUT"`
	DirPermissions uint32        `yaml:"dir_permissions" env:"PT_DB_DIR_PERMISSIONS"`
}

// ServerConfig configures the board server used by the browser UI
type ServerConfig struct {
	Addr string `yaml:"addr" env:"PT_SERVER_ADDR"`
}

// BackendConfig configures the development REST backend
type BackendConfig struct {
	Addr           string        `yaml:"addr" env:"PT_BACKEND_ADDR"`
	JWTSecret      string        `yaml:"jwt_secret" env:"PT_JWT_SECRET"`
	TokenTTL       time.Duration `yaml:"token_ttl" env:"PT_TOKEN_TTL"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes" env:"PT_MAX_UPLOAD_BYTES"`
	AdminUsername  string        `yaml:"admin_username" env:"PT_ADMIN_USERNAME"`
	AdminPassword  string        `yaml:"admin_password" env:"PT_ADMIN_PASSWORD"`
}

// EventsConfig configures status-change publishing. An empty URL disables it.
type EventsConfig struct {
	NATSURL string `yaml:"nats_url" env:"PT_NATS_URL"`
	Subject string `yaml:"subject" env:"PT_EVENTS_SUBJECT"`
}

// MetricsConfig toggles the prometheus collectors
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" env:"PT_METRICS_ENABLED"`
}

// ApplicationConfig holds application-level configuration
type ApplicationConfig struct {
	Timeout time.Duration `yaml:"timeout" env:"PT_APP_TIMEOUT"`
	Verbose bool          `yaml:"verbose" env:"PT_APP_VERBOSE"`
	Env     string        `yaml:"env" env:"PT_ENV"`
}

// NewConfig creates a new configuration with sensible defaults
func NewConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	baseDir := filepath.Join(homeDir, ".pt")

	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8080",
			Timeout: 15 * time.Second,
		},
		Session: SessionConfig{
			File: filepath.Join(baseDir, "session.json"),
		},
		Lookup: LookupConfig{
			Timeout:       5 * time.Second,
			MaxConcurrent: 0,
		},
		Pagination: PaginationConfig{
			PageSize: 10,
		},
		Upload: UploadConfig{
			Concurrency: 3,
		},
		Database: DatabaseConfig{
			Dir:            baseDir,
			Filename:       "pt.db",
			QueryTimeout:   10 * time.Second,
			WriteTimeout:   5 * time.Second,
			DirPermissions: 0755,
		},
		Server: ServerConfig{
			Addr: ":8081",
		},
		Backend: BackendConfig{
			Addr:           ":8080",
			JWTSecret:      "",
			TokenTTL:       24 * time.Hour,
			MaxUploadBytes: 10 << 20,
			AdminUsername:  "admin",
			AdminPassword:  "admin",
		},
		Events: EventsConfig{
			NATSURL: "",
			Subject: "tracker.task.status",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Application: ApplicationConfig{
			Timeout: 60 * time.Second,
			Verbose: false,
			Env:     "production",
		},
	}
}

// GetDatabasePath returns the full path to the database file
func (c *Config) GetDatabasePath() string {
	return filepath.Join(c.Database.Dir, c.Database.Filename)
}

// LoadFromEnvironment loads configuration from environment variables
func (c *Config) LoadFromEnvironment() error {
	// API and session
	if url := os.Getenv("PT_API_URL"); url != "" {
		c.API.BaseURL = url
	}
	if timeout := os.Getenv("PT_API_TIMEOUT"); timeout != "" {
		c.API.Timeout = ParseDurationWithFallback(timeout, c.API.Timeout)
	}
	if file := os.Getenv("PT_SESSION_FILE"); file != "" {
		c.Session.File = file
	}

	// Composition and paging
	if timeout := os.Getenv("PT_LOOKUP_TIMEOUT"); timeout != "" {
		c.Lookup.Timeout = ParseDurationWithFallback(timeout, c.Lookup.Timeout)
	}
	if n := os.Getenv("PT_LOOKUP_MAX_CONCURRENT"); n != "" {
		c.Lookup.MaxConcurrent = ParseIntWithFallback(n, c.Lookup.MaxConcurrent)
	}
	if size := os.Getenv("PT_PAGE_SIZE"); size != "" {
		c.Pagination.PageSize = ParseIntWithFallback(size, c.Pagination.PageSize)
	}
	if n := os.Getenv("PT_UPLOAD_CONCURRENCY"); n != "" {
		c.Upload.Concurrency = ParseIntWithFallback(n, c.Upload.Concurrency)
	}

	// Database configuration
	if dir := os.Getenv("PT_DB_DIR"); dir != "" {
		c.Database.Dir = dir
	}
	if filename := os.Getenv("PT_DB_FILENAME"); filename != "" {
		c.Database.Filename = filename
	}
	if timeout := os.Getenv("PT_DB_QUERY_TIMEOUT"); timeout != "" {
		c.Database.QueryTimeout = ParseDurationWithFallback(timeout, c.Database.QueryTimeout)
	}
	if timeout := os.Getenv("PT_DB_WRITE_TIMEOUT"); timeout != "" {
		c.Database.WriteTimeout = ParseDurationWithFallback(timeout, c.Database.WriteTimeout)
	}
	if perms := os.Getenv("PT_DB_DIR_PERMISSIONS"); perms != "" {
		c.Database.DirPermissions = ParseUint32WithFallback(perms, 8, c.Database.DirPermissions)
	}

	// Servers
	if addr := os.Getenv("PT_SERVER_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if addr := os.Getenv("PT_BACKEND_ADDR"); addr != "" {
		c.Backend.Addr = addr
	}
	if secret := os.Getenv("PT_JWT_SECRET"); secret != "" {
		c.Backend.JWTSecret = secret
	}
	if ttl := os.Getenv("PT_TOKEN_TTL"); ttl != "" {
		c.Backend.TokenTTL = ParseDurationWithFallback(ttl, c.Backend.TokenTTL)
	}
	if limit := os.Getenv("PT_MAX_UPLOAD_BYTES"); limit != "" {
		if n, err := strconv.ParseInt(limit, 10, 64); err == nil {
			c.Backend.MaxUploadBytes = n
		}
	}

	if username := os.Getenv("PT_ADMIN_USERNAME"); username != "" {
		c.Backend.AdminUsername = username
	}
	if password := os.Getenv("PT_ADMIN_PASSWORD"); password != "" {
		c.Backend.AdminPassword = password
	}

	// Events and metrics
	if url := os.Getenv("PT_NATS_URL"); url != "" {
		c.Events.NATSURL = url
	}
	if subject := os.Getenv("PT_EVENTS_SUBJECT"); subject != "" {
		c.Events.Subject = subject
	}
	if enabled := os.Getenv("PT_METRICS_ENABLED"); enabled != "" {
		c.Metrics.Enabled = ParseBoolWithFallback(enabled, c.Metrics.Enabled)
	}

	// Application configuration
	if timeout := os.Getenv("PT_APP_TIMEOUT"); timeout != "" {
		c.Application.Timeout = ParseDurationWithFallback(timeout, c.Application.Timeout)
	}
	if verbose := os.Getenv("PT_APP_VERBOSE"); verbose != "" {
		c.Application.Verbose = ParseBoolWithFallback(verbose, c.Application.Verbose)
	}
	if env := os.Getenv("PT_ENV"); env != "" {
		c.Application.Env = env
	}

	return nil
}

// Validate validates the configuration and returns any errors
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return &ConfigError{Field: "api.base_url", Message: "API base URL cannot be empty"}
	}
	if c.API.Timeout <= 0 {
		return &ConfigError{Field: "api.timeout", Message: "API timeout must be positive"}
	}
	if c.Session.File == "" {
		return &ConfigError{Field: "session.file", Message: "session file cannot be empty"}
	}

	if c.Lookup.Timeout < 0 {
		return &ConfigError{Field: "lookup.timeout", Message: "lookup timeout cannot be negative"}
	}
	if c.Lookup.MaxConcurrent < 0 {
		return &ConfigError{Field: "lookup.max_concurrent", Message: "lookup concurrency cannot be negative"}
	}
	if c.Pagination.PageSize < 1 {
		return &ConfigError{Field: "pagination.page_size", Message: "page size must be at least 1"}
	}
	if c.Upload.Concurrency < 1 {
		return &ConfigError{Field: "upload.concurrency", Message: "upload concurrency must be at least 1"}
	}

	if c.Database.Dir == "" {
		return &ConfigError{Field: "database.dir", Message: "database directory cannot be empty"}
	}
	if c.Database.Filename == "" {
		return &ConfigError{Field: "database.filename", Message: "database filename cannot be empty"}
	}
	if c.Database.QueryTimeout <= 0 {
		return &ConfigError{Field: "database.query_timeout", Message: "query timeout must be positive"}
	}
	if c.Database.WriteTimeout <= 0 {
		return &ConfigError{Field: "database.write_timeout", Message: "write timeout must be positive"}
	}

	if c.Backend.TokenTTL <= 0 {
		return &ConfigError{Field: "backend.token_ttl", Message: "token TTL must be positive"}
	}
	if c.Backend.MaxUploadBytes <= 0 {
		return &ConfigError{Field: "backend.max_upload_bytes", Message: "upload limit must be positive"}
	}
	if c.Backend.AdminUsername == "" || c.Backend.AdminPassword == "" {
		return &ConfigError{Field: "backend.admin_username", Message: "initial administrator credentials cannot be empty"}
	}
	if c.Events.NATSURL != "" && c.Events.Subject == "" {
		return &ConfigError{Field: "events.subject", Message: "subject is required when NATS is configured"}
	}

	if c.Application.Timeout <= 0 {
		return &ConfigError{Field: "application.timeout", Message: "application timeout must be positive"}
	}

	return nil
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
