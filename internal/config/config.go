// internal/config/config.go
//
// This package handles configuration and the .quotedesk directory structure.
// Every directory the client runs from gets a .quotedesk/ folder holding the
// config file, the local record cache, exported documents, and logs.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// AppDir is the name of the directory created next to the user's data.
	AppDir = ".quotedesk"

	defaultTimeoutSeconds    = 30
	defaultRetryAttempts     = 3
	defaultRetryDelaySeconds = 1
)

const defaultConfigYAML = `# quotedesk configuration
version: 1

# Remote tabular store reached over the action/password protocol.
remote:
  # Endpoint URL of the deployed store script.
  endpoint: ""
  # Shared secret sent with every call. Note: the protocol transmits this
  # in clear text as a query parameter.
  password: ""
  timeout_seconds: 30
  retry:
    attempts: 3
    delay_seconds: 1
`

// RetryConfig captures the read-path retry knobs.
type RetryConfig struct {
	Attempts     int `yaml:"attempts"`
	DelaySeconds int `yaml:"delay_seconds"`
}

// RemoteConfig models the remote store section of config.yaml.
type RemoteConfig struct {
	Endpoint       string      `yaml:"endpoint"`
	Password       string      `yaml:"password"`
	TimeoutSeconds int         `yaml:"timeout_seconds"`
	Retry          RetryConfig `yaml:"retry"`
}

// FileConfig models .quotedesk/config.yaml.
type FileConfig struct {
	Version int          `yaml:"version"`
	Remote  RemoteConfig `yaml:"remote"`
}

// Config holds the runtime configuration for the client.
type Config struct {
	// WorkDir is the directory the user ran quotedesk from.
	WorkDir string

	// AppDirPath is WorkDir/.quotedesk.
	AppDirPath string

	File FileConfig
}

// InitDir creates the .quotedesk directory structure and seeds a default
// config file when none exists.
//
// Structure created:
// .quotedesk/
// ├── cache/     <- local mirror of the record set
// ├── exports/   <- txt / xlsx / print artifacts
// └── logs/      <- session logbook
func InitDir(workDir string) error {
	appDir := filepath.Join(workDir, AppDir)
	for _, dir := range []string{
		filepath.Join(appDir, "cache"),
		filepath.Join(appDir, "exports"),
		filepath.Join(appDir, "logs"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return ensureConfigFile(filepath.Join(appDir, "config.yaml"))
}

// New loads configuration for the given working directory, applying file
// values, environment overrides, and defaults in that order of precedence
// (environment wins).
func New(workDir string) (*Config, error) {
	cfg := &Config{
		WorkDir:    workDir,
		AppDirPath: filepath.Join(workDir, AppDir),
		File:       defaultFileConfig(),
	}
	if err := cfg.loadFile(); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	cfg.File.normalize()
	return cfg, nil
}

// CacheDir returns the local record cache directory.
func (c *Config) CacheDir() string {
	return filepath.Join(c.AppDirPath, "cache")
}

// ExportsDir returns the directory export artifacts are written into.
func (c *Config) ExportsDir() string {
	return filepath.Join(c.AppDirPath, "exports")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.AppDirPath, "logs")
}

// ConfigPath returns the on-disk location of the config file.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.AppDirPath, "config.yaml")
}

// Endpoint returns the remote store URL, empty when unconfigured.
func (c *Config) Endpoint() string {
	return c.File.Remote.Endpoint
}

// Password returns the shared secret for the remote store.
func (c *Config) Password() string {
	return c.File.Remote.Password
}

// Timeout returns the per-call HTTP timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.File.Remote.TimeoutSeconds) * time.Second
}

// RetryAttempts returns the read-path retry budget.
func (c *Config) RetryAttempts() int {
	return c.File.Remote.Retry.Attempts
}

// RetryDelay returns the fixed pause between read retries.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.File.Remote.Retry.DelaySeconds) * time.Second
}

// HasRemote reports whether an endpoint is configured. Without one the
// client still runs for drafting and export, from the local cache alone.
func (c *Config) HasRemote() bool {
	return strings.TrimSpace(c.File.Remote.Endpoint) != ""
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
	var parsed FileConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c.File = parsed
	return nil
}

func (c *Config) applyEnvOverrides() {
	if endpoint := strings.TrimSpace(os.Getenv("QUOTEDESK_ENDPOINT")); endpoint != "" {
		c.File.Remote.Endpoint = endpoint
	}
	if password := os.Getenv("QUOTEDESK_PASSWORD"); password != "" {
		c.File.Remote.Password = password
	}
	if timeout := strings.TrimSpace(os.Getenv("QUOTEDESK_TIMEOUT")); timeout != "" {
		if parsed, err := strconv.Atoi(timeout); err == nil && parsed > 0 {
			c.File.Remote.TimeoutSeconds = parsed
		}
	}
}

func defaultFileConfig() FileConfig {
	return FileConfig{
		Version: 1,
		Remote: RemoteConfig{
			TimeoutSeconds: defaultTimeoutSeconds,
			Retry: RetryConfig{
				Attempts:     defaultRetryAttempts,
				DelaySeconds: defaultRetryDelaySeconds,
			},
		},
	}
}

func (fc *FileConfig) normalize() {
	if fc.Version == 0 {
		fc.Version = 1
	}
	fc.Remote.Endpoint = strings.TrimSpace(fc.Remote.Endpoint)
	if fc.Remote.TimeoutSeconds <= 0 {
		fc.Remote.TimeoutSeconds = defaultTimeoutSeconds
	}
	if fc.Remote.Retry.Attempts <= 0 {
		fc.Remote.Retry.Attempts = defaultRetryAttempts
	}
	if fc.Remote.Retry.DelaySeconds < 0 {
		fc.Remote.Retry.DelaySeconds = defaultRetryDelaySeconds
	}
}

func (fc FileConfig) validate() error {
	if fc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	return nil
}

func ensureConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
