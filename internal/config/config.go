// Package config provides YAML-based configuration loading for showrunner.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when none is given.
const DefaultPath = "showrunner.yaml"

// Config is the top-level showrunner configuration, loaded from showrunner.yaml.
type Config struct {
	DataDir    string           `yaml:"data_dir"`
	Database   DatabaseConfig   `yaml:"database"`
	Autosave   AutosaveConfig   `yaml:"autosave"`
	Generation GenerationConfig `yaml:"generation"`
	Integrity  IntegrityConfig  `yaml:"integrity"`
	Server     ServerConfig     `yaml:"server"`
	Publish    PublishConfig    `yaml:"publish"`
}

// DatabaseConfig selects the durable local store. SQLite is the default;
// MySQL (or a Dolt server) can be used when several machines share a project.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	User   string `yaml:"user"`
	Name   string `yaml:"name"`
}

// AutosaveConfig controls the trailing-edge debounce of project writes.
type AutosaveConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// GenerationConfig points at the external generation service.
type GenerationConfig struct {
	Provider   string        `yaml:"provider"`
	BaseURL    string        `yaml:"base_url"`
	TextModel  string        `yaml:"text_model"`
	ImageModel string        `yaml:"image_model"`
	Timeout    time.Duration `yaml:"timeout"`
	APIKeyEnv  string        `yaml:"api_key_env"`
}

// IntegrityConfig schedules the background reference sweep. Orphaned blobs
// are only reported unless CollectOrphans is set.
type IntegrityConfig struct {
	SweepSchedule  string `yaml:"sweep_schedule"`
	CollectOrphans bool   `yaml:"collect_orphans"`
}

// ServerConfig holds settings for the local HTTP API.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// PublishConfig describes an S3-compatible bucket that exported bundles can be
// uploaded to. Publishing is disabled when Endpoint is empty.
type PublishConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// LoadOrDefault behaves like Load but falls back to the defaults when the
// file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Default returns a Config with every default applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SQLitePath returns the database file path, resolved against DataDir.
func (c *Config) SQLitePath() string {
	if c.Database.Path == ":memory:" || filepath.IsAbs(c.Database.Path) {
		return c.Database.Path
	}
	return filepath.Join(c.DataDir, c.Database.Path)
}

// APIKey returns the generation API key from the configured environment variable.
func (c *Config) APIKey() string {
	return os.Getenv(c.Generation.APIKeyEnv)
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = ".showrunner"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "showrunner.db"
	}
	if c.Database.Driver == "mysql" {
		if c.Database.Host == "" {
			c.Database.Host = "127.0.0.1"
		}
		if c.Database.Port == 0 {
			c.Database.Port = 3306
		}
		if c.Database.User == "" {
			c.Database.User = "root"
		}
	}
	if c.Autosave.Interval == 0 {
		c.Autosave.Interval = 2 * time.Second
	}
	if c.Generation.Provider == "" {
		c.Generation.Provider = "gemini"
	}
	if c.Generation.BaseURL == "" {
		c.Generation.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if c.Generation.TextModel == "" {
		c.Generation.TextModel = "gemini-2.5-flash"
	}
	if c.Generation.ImageModel == "" {
		c.Generation.ImageModel = "gemini-2.5-flash-image"
	}
	if c.Generation.Timeout == 0 {
		c.Generation.Timeout = 2 * time.Minute
	}
	if c.Generation.APIKeyEnv == "" {
		c.Generation.APIKeyEnv = "GEMINI_API_KEY"
	}
	if c.Integrity.SweepSchedule == "" {
		c.Integrity.SweepSchedule = "*/30 * * * *"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Publish.Region == "" {
		c.Publish.Region = "us-east-1"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case "sqlite":
	case "mysql":
		if c.Database.Name == "" {
			errs = append(errs, "database.name is required for mysql")
		}
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported (sqlite, mysql)", c.Database.Driver))
	}
	if c.Autosave.Interval < 0 {
		errs = append(errs, "autosave.interval must be positive")
	}
	if c.Generation.Provider != "gemini" {
		errs = append(errs, fmt.Sprintf("generation.provider %q is not supported", c.Generation.Provider))
	}
	if c.Generation.Timeout < 0 {
		errs = append(errs, "generation.timeout must be positive")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}
	if c.Publish.Endpoint != "" && c.Publish.Bucket == "" {
		errs = append(errs, "publish.bucket is required when publish.endpoint is set")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
