package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/resources"
)

const (
	EnvProjectDir = "ANIMA_PROJECT_DIR"
	EnvLogLevel   = "ANIMA_LOG_LEVEL"
	EnvLogFile    = "ANIMA_LOG_FILE"
	EnvWorkers    = "ANIMA_WORKERS"
)

type Config struct {
	Log       LogConfig       `toml:"log"`
	Resources ResourcesConfig `toml:"resources"`
	Assets    AssetsConfig    `toml:"assets"`
	Jobs      JobsConfig      `toml:"jobs"`
	Metrics   MetricsConfig   `toml:"metrics"`
}

type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

type ResourcesConfig struct {
	ProjectDirectory string `toml:"project_directory"`
	// keyed by resource type name, e.g. texture = "assets/textures"
	StandardDirectories map[string]string `toml:"standard_directories"`
}

type AssetsConfig struct {
	Watch          bool    `toml:"watch"`
	FileCacheLife  string  `toml:"file_cache_life"`
	FileCacheMaxMB int     `toml:"file_cache_max_mb"`
	FlipY          bool    `toml:"flip_y"`
	GenerateMips   bool    `toml:"generate_mips"`
	FontSize       float64 `toml:"font_size"`
}

type JobsConfig struct {
	Workers   int `toml:"workers"`
	QueueSize int `toml:"queue_size"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
}

func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		Resources: ResourcesConfig{
			ProjectDirectory: ".",
			StandardDirectories: map[string]string{
				"texture": "assets/textures",
				"cubemap": "assets/textures",
				"model":   "assets/models",
				"font":    "assets/fonts",
				"shader":  "assets/shaders",
			},
		},
		Assets: AssetsConfig{
			FileCacheLife:  "10m",
			FileCacheMaxMB: 256,
			FontSize:       16,
		},
		Jobs: JobsConfig{
			Workers:   4,
			QueueSize: 64,
		},
		Metrics: MetricsConfig{
			Address: ":9090",
		},
	}
}

// Load builds the configuration from defaults, the TOML file at path (if
// any), then .env files and finally the process environment.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := toml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("config %q: %w", path, err)
		}
	}

	dotenv, err := readEnvFiles(envFiles)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readEnvFiles reads the given .env files, skipping missing ones.
func readEnvFiles(files []string) (map[string]string, error) {
	out := map[string]string{}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		vars, err := godotenv.Read(f)
		if err != nil {
			return nil, fmt.Errorf("env file %q: %w", f, err)
		}
		for k, v := range vars {
			if _, set := out[k]; !set {
				out[k] = v
			}
		}
	}
	return out, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvProjectDir); ok && v != "" {
		c.Resources.ProjectDirectory = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvLogFile); ok {
		c.Log.File = v
	}
	if v, ok := lookup(EnvWorkers); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a number", core.ErrInvalidParameter, EnvWorkers, v)
		}
		c.Jobs.Workers = n
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Jobs.Workers < 0 {
		return fmt.Errorf("%w: jobs.workers must not be negative", core.ErrInvalidParameter)
	}
	if c.Jobs.QueueSize < 0 {
		return fmt.Errorf("%w: jobs.queue_size must not be negative", core.ErrInvalidParameter)
	}
	if strings.TrimSpace(c.Resources.ProjectDirectory) == "" {
		return fmt.Errorf("%w: resources.project_directory is empty", core.ErrInvalidParameter)
	}
	if _, err := c.StandardDirectories(); err != nil {
		return err
	}
	if _, err := c.FileCacheLife(); err != nil {
		return err
	}
	return nil
}

// StandardDirectories returns the configured directories keyed by type.
func (c *Config) StandardDirectories() (map[resources.ResourceType]string, error) {
	out := make(map[resources.ResourceType]string, len(c.Resources.StandardDirectories))
	for name, dir := range c.Resources.StandardDirectories {
		t, ok := resources.ParseResourceType(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown resource type %q in resources.standard_directories", core.ErrInvalidParameter, name)
		}
		out[t] = dir
	}
	return out, nil
}

// FileCacheLife parses assets.file_cache_life. An empty value disables the cache.
func (c *Config) FileCacheLife() (time.Duration, error) {
	if c.Assets.FileCacheLife == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Assets.FileCacheLife)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: assets.file_cache_life %q", core.ErrInvalidParameter, c.Assets.FileCacheLife)
	}
	return d, nil
}
