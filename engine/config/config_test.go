package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/resources"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{EnvProjectDir, EnvLogLevel, EnvLogFile, EnvWorkers} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestDefault(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	dirs, err := cfg.StandardDirectories()
	require.NoError(t, err)
	assert.Equal(t, "assets/models", dirs[resources.ResourceTypeModel])

	life, err := cfg.FileCacheLife()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, life)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "anima.toml", `
[log]
level = "warn"

[resources]
project_directory = "game"

[resources.standard_directories]
shader = "src/shaders"

[assets]
watch = true
file_cache_life = "30s"

[jobs]
workers = 8

[metrics]
enabled = true
address = "127.0.0.1:9100"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "game", cfg.Resources.ProjectDirectory)
	assert.Equal(t, "src/shaders", cfg.Resources.StandardDirectories["shader"])
	assert.True(t, cfg.Assets.Watch)
	assert.Equal(t, 8, cfg.Jobs.Workers)
	// untouched keys keep their defaults
	assert.Equal(t, 64, cfg.Jobs.QueueSize)
	assert.Equal(t, "127.0.0.1:9100", cfg.Metrics.Address)

	life, err := cfg.FileCacheLife()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, life)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := writeFile(t, dir, ".env", "ANIMA_WORKERS=2\nANIMA_LOG_LEVEL=error\n")

	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvProjectDir, "/srv/game")

	cfg, err := Load("", envFile, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Jobs.Workers)
	// the process environment wins over .env files
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/srv/game", cfg.Resources.ProjectDirectory)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		env     string
		invalid bool
	}{
		{name: "bad toml", content: "[log\nlevel = 1"},
		{name: "negative workers", content: "[jobs]\nworkers = -1", invalid: true},
		{name: "unknown type", content: "[resources.standard_directories]\nsound = \"sfx\"", invalid: true},
		{name: "bad duration", content: "[assets]\nfile_cache_life = \"soon\"", invalid: true},
		{name: "empty project", content: "[resources]\nproject_directory = \" \"", invalid: true},
		{name: "bad worker env", content: "", env: "many", invalid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			if tt.env != "" {
				t.Setenv(EnvWorkers, tt.env)
			}
			path := writeFile(t, dir, "cfg.toml", tt.content)

			_, err := Load(path)
			require.Error(t, err)
			if tt.invalid {
				assert.ErrorIs(t, err, core.ErrInvalidParameter)
			}
		})
	}

	_, err := Load(filepath.Join(dir, "nope.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
