package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultLogLevel = "info"
)

// Config is the top-level configuration.
type Config struct {
	Log     LogConfig               `toml:"log"`
	Servers map[string]ServerConfig `toml:"servers" validate:"required,min=1,dive"`
}

// LogConfig controls where diagnostics are written. The TUI owns the
// terminal, so logs go to a file unless none is configured.
type LogConfig struct {
	File  string `toml:"file"`
	Level string `toml:"level" validate:"omitempty,oneof=trace debug info warn error"`
}

// ServerConfig holds connection details for one PostgreSQL server profile.
// URL points at the dashboard API base; DSN, when set, makes the tool query
// PostgreSQL directly instead.
type ServerConfig struct {
	URL                string     `toml:"url" validate:"omitempty,url"`
	ServerID           int        `toml:"server_id" validate:"gt=0"`
	Username           string     `toml:"username"`
	APIKey             string     `toml:"api_key"`
	SessionCookie      string     `toml:"session_cookie"`
	InsecureSkipVerify bool       `toml:"insecure_skip_verify"`
	Timeout            Duration   `toml:"timeout"`
	DSN                string     `toml:"dsn" validate:"required_without=URL"`
	SSH                *SSHConfig `toml:"ssh"`
}

// SSHConfig holds optional SSH tunnel details for direct database access.
type SSHConfig struct {
	Host               string `toml:"host"`
	Port               int    `toml:"port"`
	Username           string `toml:"username"`
	PrivateKeyPath     string `toml:"private_key_path" validate:"required"`
	HostKeyFingerprint string `toml:"host_key_fingerprint"`
}

// Duration is a time.Duration that decodes from TOML strings like "10s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

var validate = validator.New()

// DefaultPath returns the default config file path using XDG conventions.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, "pgrepl-tui", "config.toml")
}

// LoadFrom reads and parses the config file at the given path.
// It applies defaults after parsing and validates the result.
func LoadFrom(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}
	if len(cfg.Servers) == 0 {
		return nil, fmt.Errorf("config has no servers defined")
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaultLogLevel
	}
	cfg.Log.File = expandPath(cfg.Log.File)
	for name, server := range cfg.Servers {
		server.URL = strings.TrimRight(server.URL, "/")
		if server.Timeout.Duration == 0 {
			server.Timeout.Duration = defaultTimeout
		}
		if server.SSH != nil {
			if server.SSH.Port == 0 {
				server.SSH.Port = 22
			}
			if server.SSH.Username == "" {
				server.SSH.Username = server.Username
			}
			server.SSH.PrivateKeyPath = expandPath(server.SSH.PrivateKeyPath)
		}
		cfg.Servers[name] = server
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// expandPath expands ~ to $HOME and then expands all environment variables.
func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		path = "$HOME" + path[1:]
	}
	return os.ExpandEnv(path)
}

// ServerNames returns the sorted list of server profile names.
func (c *Config) ServerNames() []string {
	names := make([]string, 0, len(c.Servers))
	for name := range c.Servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Direct reports whether the profile queries PostgreSQL directly.
func (s ServerConfig) Direct() bool {
	return s.DSN != ""
}
