package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Media    MediaConfig       `yaml:"media"`
	SQLite   SQLiteConfig      `yaml:"sqlite"`
	Workflow WorkflowConfig    `yaml:"workflow"`
	Archive  ArchiveConfig     `yaml:"archive"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Media.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Workflow.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// MediaConfig holds the scope root directories: the writable input root,
// the generated-output root, and optional named custom roots.
type MediaConfig struct {
	InputPath   string            `yaml:"input_path"`
	OutputPath  string            `yaml:"output_path"`
	CustomRoots map[string]string `yaml:"custom_roots"`
}

// Validate validates the media configuration.
func (c *MediaConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.InputPath, validation.Required),
		validation.Field(&c.OutputPath, validation.Required),
	); err != nil {
		return err
	}
	for id, path := range c.CustomRoots {
		if id == "" || path == "" {
			return fmt.Errorf("media: custom root %q has empty id or path", id)
		}
	}
	return nil
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// WorkflowConfig tunes the workflow-recovery cache.
type WorkflowConfig struct {
	CacheTTLSeconds int `yaml:"cache_ttl_seconds"`
	CacheCapacity   int `yaml:"cache_capacity"`
}

// CacheTTL returns the configured TTL as a duration.
func (c *WorkflowConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Validate validates the workflow configuration.
func (c *WorkflowConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.CacheTTLSeconds, validation.Min(0)),
		validation.Field(&c.CacheCapacity, validation.Min(0)),
	)
}

// ArchiveConfig holds the batch-export archive directory.
type ArchiveConfig struct {
	Dir string `yaml:"dir"`
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Media: MediaConfig{
			InputPath:  "./media/input",
			OutputPath: "./media/output",
		},
		SQLite: SQLiteConfig{
			Path: "./ehwaz.db",
		},
		Workflow: WorkflowConfig{
			CacheTTLSeconds: 60,
			CacheCapacity:   100,
		},
		Archive: ArchiveConfig{
			Dir: "./media/archives",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
