package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-assets/engine/config"
	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/resources"
	"github.com/spaghettifunk/anima-assets/engine/systems"
)

const triangleOBJ = `
o tri
v 0 0 0
v 1 0 0
v 0 1 0
f 1 2 3
`

func newProject(t *testing.T) string {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets", "models"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "models", "tri.obj"), []byte(triangleOBJ), 0o644))
	return dir
}

func newTestConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Log.Level = "error"
	cfg.Resources.ProjectDirectory = newProject(t)
	cfg.Jobs.Workers = 2
	return cfg
}

func newTestEngine(t *testing.T, g *Game) *Engine {
	if g.ApplicationConfig == nil {
		g.ApplicationConfig = &ApplicationConfig{Name: "test"}
	}
	if g.ApplicationConfig.Config == nil {
		g.ApplicationConfig.Config = newTestConfig(t)
	}
	e, err := New(g)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Shutdown() })
	return e
}

func TestEngineLifecycle(t *testing.T) {
	initialized, updates, shutdowns := 0, 0, 0
	e := newTestEngine(t, &Game{
		FnInitialize: func(e *Engine) error {
			initialized++
			return nil
		},
		FnUpdate: func(e *Engine, deltaTime float64) error {
			updates++
			assert.GreaterOrEqual(t, deltaTime, 0.0)
			return nil
		},
		FnShutdown: func(e *Engine) error {
			shutdowns++
			return nil
		},
	})

	assert.Equal(t, EngineStageInitialized, e.Stage())
	assert.Equal(t, 1, initialized)
	assert.True(t, e.IsUpdating())
	assert.NotNil(t, e.Device())
	assert.Len(t, e.Assets().Assets(), 1)

	require.NoError(t, e.Update())
	assert.Equal(t, 1, updates)

	e.SetEngineUpdate(false)
	require.NoError(t, e.Update())
	assert.Equal(t, 1, updates)
	e.SetEngineUpdate(true)

	require.NoError(t, e.Shutdown())
	assert.Equal(t, EngineStageShutdown, e.Stage())
	require.NoError(t, e.Shutdown())
	assert.Equal(t, 1, shutdowns)

	assert.ErrorIs(t, e.Update(), ErrEngineStage)
	assert.ErrorIs(t, e.Run(context.Background()), ErrEngineStage)
}

func TestEngineLoadsThroughStandardDirectory(t *testing.T) {
	e := newTestEngine(t, &Game{})

	ref, err := systems.Load[*resources.Model](e.Resources(), "tri.obj")
	require.NoError(t, err)

	m, ok := ref.Get()
	require.True(t, ok)
	assert.Equal(t, "assets/models/tri.obj", m.Path())
	assert.Equal(t, 1, e.Resources().GetResourceCountByType(resources.ResourceTypeModel))

	fallback, ok := systems.LoadOrDefault(e.Resources(), "missing.png", e.DefaultTextures().Default)
	assert.False(t, ok)
	tex, resolves := fallback.Get()
	require.True(t, resolves)
	assert.Equal(t, systems.DefaultTextureName, tex.Name())
}

func TestEngineMetrics(t *testing.T) {
	e := newTestEngine(t, &Game{})

	_, err := systems.Load[*resources.Model](e.Resources(), "assets/models/tri.obj")
	require.NoError(t, err)
	e.RefreshStats()

	families, err := e.Registry().Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, f := range families {
		for _, m := range f.GetMetric() {
			label := ""
			for _, l := range m.GetLabel() {
				if l.GetName() == "type" {
					label = l.GetValue()
				}
			}
			key := f.GetName() + "/" + label
			switch {
			case m.GetGauge() != nil:
				values[key] = m.GetGauge().GetValue()
			case m.GetCounter() != nil:
				values[key] = m.GetCounter().GetValue()
			}
		}
	}

	assert.Equal(t, 1.0, values["anima_resource_cache_entries/model"])
	// the generated fallback textures
	assert.Equal(t, 4.0, values["anima_resource_cache_entries/texture"])
	assert.Equal(t, 1.0, values["anima_resource_loads_total/model"])
	assert.Contains(t, values, "anima_asset_file_cache_misses_total/")
}

func TestEngineRunFinishesAsyncLoads(t *testing.T) {
	e := newTestEngine(t, &Game{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var loaded resources.Handle
	var loadErr error
	_, err := e.Resources().LoadAsync("assets/models/tri.obj", func(h resources.Handle, err error) {
		loaded, loadErr = h, err
		cancel()
	})
	require.NoError(t, err)

	require.NoError(t, e.Run(ctx))
	require.NoError(t, loadErr)
	assert.True(t, loaded.IsValid())
	assert.Equal(t, EngineStageInitialized, e.Stage())
}

func TestEngineRunStopsOnUpdateError(t *testing.T) {
	errBoom := errors.New("boom")
	e := newTestEngine(t, &Game{
		FnUpdate: func(e *Engine, deltaTime float64) error {
			return errBoom
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.ErrorIs(t, e.Run(ctx), errBoom)
}

func TestEngineEvents(t *testing.T) {
	e := newTestEngine(t, &Game{})

	var got []core.ResourceEvent
	require.NoError(t, e.Events().Subscribe(core.EventResourceLoaded, func(ev core.ResourceEvent) {
		got = append(got, ev)
	}))

	_, err := systems.Load[*resources.Model](e.Resources(), "assets/models/tri.obj")
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "model", got[0].Type)
	assert.Equal(t, "assets/models/tri.obj", got[0].Path)
}

func TestEngineNewErrors(t *testing.T) {
	t.Run("invalid config", func(t *testing.T) {
		cfg := config.Default()
		cfg.Jobs.Workers = -1
		_, err := New(&Game{ApplicationConfig: &ApplicationConfig{Config: cfg}})
		assert.ErrorIs(t, err, core.ErrInvalidParameter)
	})

	t.Run("bad log level", func(t *testing.T) {
		cfg := newTestConfig(t)
		cfg.Log.Level = "loud"
		_, err := New(&Game{ApplicationConfig: &ApplicationConfig{Config: cfg}})
		assert.ErrorIs(t, err, core.ErrInvalidParameter)
	})

	t.Run("initialize hook", func(t *testing.T) {
		errInit := errors.New("no game today")
		shutdowns := 0
		_, err := New(&Game{
			ApplicationConfig: &ApplicationConfig{Config: newTestConfig(t)},
			FnInitialize:      func(e *Engine) error { return errInit },
			FnShutdown: func(e *Engine) error {
				shutdowns++
				return nil
			},
		})
		assert.ErrorIs(t, err, errInit)
		assert.Zero(t, shutdowns)
	})
}
