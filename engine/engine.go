package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/spaghettifunk/anima-assets/engine/assets"
	"github.com/spaghettifunk/anima-assets/engine/assets/loaders"
	"github.com/spaghettifunk/anima-assets/engine/config"
	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/renderer"
	"github.com/spaghettifunk/anima-assets/engine/renderer/headless"
	"github.com/spaghettifunk/anima-assets/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Engine released everything it owned
	EngineStageShutdown
)

func (s Stage) String() string {
	switch s {
	case EngineStageUninitialized:
		return "uninitialized"
	case EngineStageInitializing:
		return "initializing"
	case EngineStageInitialized:
		return "initialized"
	case EngineStageRunning:
		return "running"
	case EngineStageShuttingDown:
		return "shutting down"
	case EngineStageShutdown:
		return "shutdown"
	}
	return fmt.Sprintf("Stage(%d)", uint8(s))
}

var ErrEngineStage = errors.New("engine is not in the right stage")

// Engine owns every subsystem and hands them out explicitly.
type Engine struct {
	currentStage Stage
	gameInstance *Game
	config       *config.Config
	name         string

	device         renderer.Device
	assetManager   *assets.AssetManager
	events         *core.EventBus
	registry       *prometheus.Registry
	metrics        *core.Metrics
	jobs           *systems.JobSystem
	resourceSystem *systems.ResourceSystem
	defaults       *systems.DefaultTextures

	updating   atomic.Bool
	updateRate int
	clock      *core.Clock
	lastTime   time.Duration

	// the cache is owned by the update goroutine; scrapes read this copy
	statsMu sync.RWMutex
	stats   []core.ResourceStat
}

func New(g *Game) (*Engine, error) {
	if g == nil {
		g = &Game{}
	}
	app := g.ApplicationConfig
	if app == nil {
		app = &ApplicationConfig{}
	}

	cfg := app.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		config:       cfg,
		name:         app.Name,
		device:       app.Device,
		registry:     app.Registry,
		updateRate:   app.UpdateRate,
		clock:        core.NewClock(),
	}
	if e.name == "" {
		e.name = "anima"
	}
	if e.device == nil {
		e.device = headless.New()
	}
	if e.registry == nil {
		e.registry = prometheus.NewRegistry()
	}
	if e.updateRate <= 0 {
		e.updateRate = 60
	}
	e.updating.Store(true)

	if err := e.initialize(app.Progress); err != nil {
		e.currentStage = EngineStageInitializing
		// release whatever got created before the failure
		if serr := e.Shutdown(); serr != nil {
			err = multierr.Append(err, serr)
		}
		return nil, err
	}
	return e, nil
}

func (e *Engine) initialize(progress systems.ProgressReporter) error {
	e.currentStage = EngineStageInitializing
	cfg := e.config

	if err := core.LogConfigure(core.LogOptions{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	}); err != nil {
		return fmt.Errorf("%w: log: %w", core.ErrInvalidParameter, err)
	}

	life, err := cfg.FileCacheLife()
	if err != nil {
		return err
	}
	standardDirs, err := cfg.StandardDirectories()
	if err != nil {
		return err
	}

	e.assetManager, err = assets.NewAssetManager(context.Background(), assets.Options{
		Watch:          cfg.Assets.Watch,
		FileCacheLife:  life,
		FileCacheMaxMB: cfg.Assets.FileCacheMaxMB,
		Image: loaders.ImageParams{
			FlipY:        cfg.Assets.FlipY,
			GenerateMips: cfg.Assets.GenerateMips,
		},
		Font: loaders.FontParams{Size: cfg.Assets.FontSize},
	})
	if err != nil {
		return err
	}
	if err := e.assetManager.Initialize(cfg.Resources.ProjectDirectory); err != nil {
		return err
	}

	e.events = core.NewEventBus()

	e.metrics, err = core.NewMetrics(e.registry, e.cacheStats)
	if err != nil {
		return err
	}
	if err := e.registerFileCacheMetrics(); err != nil {
		return err
	}

	if cfg.Jobs.Workers > 0 {
		e.jobs, err = systems.NewJobSystem(cfg.Jobs.Workers, cfg.Jobs.QueueSize)
		if err != nil {
			return err
		}
	}

	e.resourceSystem, err = systems.NewResourceSystem(&systems.ResourceSystemConfig{
		ProjectDirectory:    e.assetManager.Root(),
		StandardDirectories: standardDirs,
		Device:              e.device,
		Importer:            e.assetManager,
		Jobs:                e.jobs,
		Changes:             e.assetManager,
		Events:              e.events,
		Metrics:             e.metrics,
		Progress:            progress,
		Toggle:              e,
	})
	if err != nil {
		return err
	}
	if e.defaults, err = systems.CreateDefaultTextures(e.resourceSystem, e.device); err != nil {
		return err
	}
	e.refreshStats()

	if g := e.gameInstance; g.FnInitialize != nil {
		if err := g.FnInitialize(e); err != nil {
			return err
		}
	}

	e.currentStage = EngineStageInitialized
	core.LogInfo("%s initialized, %d source files indexed under '%s'.", e.name, len(e.assetManager.Assets()), e.assetManager.Root())
	return nil
}

func (e *Engine) registerFileCacheMetrics() error {
	hits := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "anima_asset_file_cache_hits_total",
		Help: "Source file reads served from memory",
	}, func() float64 {
		h, _ := e.assetManager.FileCacheStats()
		return float64(h)
	})
	misses := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "anima_asset_file_cache_misses_total",
		Help: "Source file reads that went to disk",
	}, func() float64 {
		_, m := e.assetManager.FileCacheStats()
		return float64(m)
	})
	for _, c := range []prometheus.Collector{hits, misses} {
		if err := e.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Update runs one engine tick on the calling goroutine: finished async
// loads are uploaded, changed files evicted and the game hook called.
// It does nothing while updates are disabled.
func (e *Engine) Update() error {
	switch e.currentStage {
	case EngineStageInitialized, EngineStageRunning:
	default:
		return fmt.Errorf("%w: update while %s", ErrEngineStage, e.currentStage)
	}
	if !e.IsUpdating() {
		return nil
	}

	e.clock.Update()
	current := e.clock.Elapsed()
	delta := (current - e.lastTime).Seconds()
	e.lastTime = current

	e.resourceSystem.Update()
	e.refreshStats()

	if g := e.gameInstance; g.FnUpdate != nil {
		if err := g.FnUpdate(e, delta); err != nil {
			return err
		}
	}
	return nil
}

// Run calls Update at the configured rate until ctx is done or an update
// fails.
func (e *Engine) Run(ctx context.Context) error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("%w: run while %s", ErrEngineStage, e.currentStage)
	}
	e.currentStage = EngineStageRunning
	defer func() {
		e.clock.Stop()
		if e.currentStage == EngineStageRunning {
			e.currentStage = EngineStageInitialized
		}
	}()

	e.clock.Start()
	e.lastTime = 0

	ticker := time.NewTicker(time.Second / time.Duration(e.updateRate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := e.Update(); err != nil {
				core.LogError("Update failed, stopping the engine: %s", err)
				return err
			}
		}
	}
}

// Shutdown releases every subsystem in reverse creation order. Calling it
// twice is a no-op.
func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShutdown || e.currentStage == EngineStageUninitialized {
		return nil
	}
	initialized := e.currentStage == EngineStageInitialized || e.currentStage == EngineStageRunning
	e.currentStage = EngineStageShuttingDown

	var err error
	if g := e.gameInstance; initialized && g.FnShutdown != nil {
		err = multierr.Append(err, g.FnShutdown(e))
	}
	if e.resourceSystem != nil {
		err = multierr.Append(err, e.resourceSystem.Shutdown())
	}
	if e.jobs != nil {
		err = multierr.Append(err, e.jobs.Shutdown())
	}
	if e.events != nil {
		e.events.WaitAsync()
	}
	if e.assetManager != nil {
		err = multierr.Append(err, e.assetManager.Shutdown())
	}

	e.currentStage = EngineStageShutdown
	core.LogInfo("%s shut down.", e.name)
	return err
}

// SetEngineUpdate pauses or resumes Update. The resource system turns
// updates off while a batch load holds the owner goroutine.
func (e *Engine) SetEngineUpdate(enabled bool) {
	e.updating.Store(enabled)
}

func (e *Engine) IsUpdating() bool {
	return e.updating.Load()
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

func (e *Engine) Config() *config.Config {
	return e.config
}

func (e *Engine) Device() renderer.Device {
	return e.device
}

func (e *Engine) Assets() *assets.AssetManager {
	return e.assetManager
}

func (e *Engine) Resources() *systems.ResourceSystem {
	return e.resourceSystem
}

// DefaultTextures are the fallbacks for textures that failed to load.
func (e *Engine) DefaultTextures() *systems.DefaultTextures {
	return e.defaults
}

func (e *Engine) Events() *core.EventBus {
	return e.events
}

func (e *Engine) Registry() *prometheus.Registry {
	return e.registry
}

// RefreshStats copies the cache occupancy for metric scrapes. Update does
// this every tick; call it after loading outside of Update.
func (e *Engine) RefreshStats() {
	e.refreshStats()
}

func (e *Engine) refreshStats() {
	if e.resourceSystem == nil {
		return
	}
	stats := e.resourceSystem.Cache().Stats()
	e.statsMu.Lock()
	e.stats = stats
	e.statsMu.Unlock()
}

func (e *Engine) cacheStats() []core.ResourceStat {
	e.statsMu.RLock()
	defer e.statsMu.RUnlock()
	out := make([]core.ResourceStat, len(e.stats))
	copy(out, e.stats)
	return out
}
