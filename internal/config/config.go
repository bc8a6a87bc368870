// internal/config/config.go
//
// This package handles configuration and the .secretsanta directory structure.
// The directory is created next to wherever the organizer runs secretsanta.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	// AppDir is the name of the directory we create in the working directory
	AppDir = ".secretsanta"

	// EnvPrefix is prepended to every environment override.
	EnvPrefix = "SECRETSANTA_"

	DefaultBaseURL        = "http://localhost:8080"
	DefaultRequestTimeout = 15 * time.Second
	DefaultDrawTimeout    = 60 * time.Second
	DefaultLogLevel       = "info"
)

const defaultConfigYAML = `# secretsanta configuration
version: 1

# Where the draw, import and validation services live.
server:
  base_url: http://localhost:8080
  request_timeout: 15s
  draw_timeout: 60s

# Optional audit copy of every draw. Leave empty to skip.
draw:
  archive_email: ""

# Results, templates and roster exports land here. Relative to the working directory.
export:
  dir: .secretsanta/exports

logging:
  level: info
`

var validate = validator.New()

// ServerSettings describes the backend service.
type ServerSettings struct {
	BaseURL        string        `yaml:"base_url" env:"BASE_URL" validate:"required,http_url"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT" validate:"gt=0"`
	DrawTimeout    time.Duration `yaml:"draw_timeout" env:"DRAW_TIMEOUT" validate:"gt=0"`
}

// DrawSettings holds draw defaults.
type DrawSettings struct {
	ArchiveEmail string `yaml:"archive_email" env:"ARCHIVE_EMAIL" validate:"omitempty,email"`
}

// ExportSettings holds where exported files are written.
type ExportSettings struct {
	Dir string `yaml:"dir" env:"EXPORT_DIR"`
}

// LogSettings controls the diagnostics log.
type LogSettings struct {
	Level string `yaml:"level" env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
}

// Settings models .secretsanta/config.yaml.
type Settings struct {
	Version int            `yaml:"version" validate:"gte=1"`
	Server  ServerSettings `yaml:"server"`
	Draw    DrawSettings   `yaml:"draw"`
	Export  ExportSettings `yaml:"export"`
	Logging LogSettings    `yaml:"logging"`
}

// Config holds the runtime configuration for secretsanta.
type Config struct {
	// WorkDir is the directory where the user ran `secretsanta` from
	WorkDir string

	// AppDir is WorkDir/.secretsanta
	AppDir string

	Settings Settings
}

// InitDir creates the .secretsanta directory structure in workDir.
//
// Structure created:
// .secretsanta/
// ├── config.yaml
// ├── logs/         <- diagnostics log and the operator journal
// └── exports/      <- results, templates, roster exports
func InitDir(workDir string) error {
	appDir := filepath.Join(workDir, AppDir)
	dirs := []string{
		filepath.Join(appDir, "logs"),
		filepath.Join(appDir, "exports"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return ensureConfigFile(filepath.Join(appDir, "config.yaml"))
}

// Load reads .secretsanta/config.yaml (defaults when missing), applies
// SECRETSANTA_* environment overrides and validates the result.
func Load(workDir string) (*Config, error) {
	cfg := &Config{
		WorkDir:  workDir,
		AppDir:   filepath.Join(workDir, AppDir),
		Settings: DefaultSettings(),
	}
	if err := cfg.loadFile(); err != nil {
		return nil, err
	}
	if err := env.ParseWithOptions(&cfg.Settings, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}
	cfg.Settings.normalize()
	if err := validate.Struct(cfg.Settings); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// DefaultSettings mirrors the generated config.yaml.
func DefaultSettings() Settings {
	return Settings{
		Version: 1,
		Server: ServerSettings{
			BaseURL:        DefaultBaseURL,
			RequestTimeout: DefaultRequestTimeout,
			DrawTimeout:    DefaultDrawTimeout,
		},
		Logging: LogSettings{Level: DefaultLogLevel},
	}
}

// ConfigPath returns the on-disk location for the config file.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.AppDir, "config.yaml")
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.AppDir, "logs")
}

// LogPath is the zap diagnostics log.
func (c *Config) LogPath() string {
	return filepath.Join(c.LogsDir(), "secretsanta.log")
}

// JournalPath is the operator activity journal.
func (c *Config) JournalPath() string {
	return filepath.Join(c.LogsDir(), "journal.log")
}

// ExportDir returns where exports are written, resolved against WorkDir.
func (c *Config) ExportDir() string {
	if dir := resolvePath(c.WorkDir, c.Settings.Export.Dir); dir != "" {
		return dir
	}
	return filepath.Join(c.AppDir, "exports")
}

func (c *Config) loadFile() error {
	path := c.ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	parsed := DefaultSettings()
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	c.Settings = parsed
	return nil
}

func (s *Settings) normalize() {
	if s.Version == 0 {
		s.Version = 1
	}
	s.Server.BaseURL = strings.TrimRight(strings.TrimSpace(s.Server.BaseURL), "/")
	if s.Server.BaseURL == "" {
		s.Server.BaseURL = DefaultBaseURL
	}
	s.Draw.ArchiveEmail = strings.TrimSpace(s.Draw.ArchiveEmail)
	s.Export.Dir = strings.TrimSpace(s.Export.Dir)
	s.Logging.Level = strings.ToLower(strings.TrimSpace(s.Logging.Level))
	if s.Logging.Level == "" {
		s.Logging.Level = DefaultLogLevel
	}
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0644)
}
