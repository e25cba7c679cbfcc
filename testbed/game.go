package testbed

import (
	"time"

	"github.com/spaghettifunk/anima-assets/engine"
	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/resources"
)

// TestGame preloads every source file of the project and reloads files
// evicted after a change on disk.
type TestGame struct {
	*engine.Game
}

type gameState struct {
	// paths evicted since the last update, reloaded on the next one
	reload []string

	loaded  int
	failed  int
	evicted int

	reportEvery time.Duration
	sinceReport time.Duration

	onLoaded  func(core.ResourceEvent)
	onFailed  func(core.ResourceEvent)
	onEvicted func(core.ResourceEvent)
}

// Counters is a snapshot of what the testbed observed on the event bus.
type Counters struct {
	Loaded  int
	Failed  int
	Evicted int
}

func NewTestGame(app *engine.ApplicationConfig) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: app,
			State: &gameState{
				reportEvery: 10 * time.Second,
			},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnShutdown = tg.Shutdown

	return tg
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

func (g *TestGame) Counters() Counters {
	s := g.state()
	return Counters{Loaded: s.loaded, Failed: s.failed, Evicted: s.evicted}
}

func (g *TestGame) Initialize(e *engine.Engine) error {
	core.LogDebug("TestGame Initialize fn....")
	state := g.state()

	state.onLoaded = func(ev core.ResourceEvent) {
		state.loaded++
		core.LogInfo("%s '%s' ready", ev.Type, ev.Path)
	}
	state.onFailed = func(ev core.ResourceEvent) {
		state.failed++
	}
	state.onEvicted = func(ev core.ResourceEvent) {
		state.evicted++
		state.reload = append(state.reload, ev.Path)
	}
	events := e.Events()
	if err := events.Subscribe(core.EventResourceLoaded, state.onLoaded); err != nil {
		return err
	}
	if err := events.Subscribe(core.EventResourceFailed, state.onFailed); err != nil {
		return err
	}
	if err := events.Subscribe(core.EventResourceEvicted, state.onEvicted); err != nil {
		return err
	}

	for _, a := range e.Assets().Assets() {
		g.request(e, a.Path)
	}
	return nil
}

func (g *TestGame) Update(e *engine.Engine, deltaTime float64) error {
	state := g.state()

	if len(state.reload) > 0 {
		pending := state.reload
		state.reload = nil
		for _, p := range pending {
			// deleted files are not reloaded
			if _, ok := e.Assets().Lookup(p); ok {
				g.request(e, p)
			}
		}
	}

	state.sinceReport += time.Duration(deltaTime * float64(time.Second))
	if state.sinceReport >= state.reportEvery {
		state.sinceReport = 0
		rs := e.Resources()
		core.LogInfo("%d resources cached (%d KB), %d loads pending",
			rs.GetResourceCountByType(resources.ResourceTypeAll),
			rs.GetMemoryUsageKB(resources.ResourceTypeAll),
			rs.Pending())
	}
	return nil
}

func (g *TestGame) Shutdown(e *engine.Engine) error {
	state := g.state()
	core.LogInfo("testbed saw %d loads, %d failures and %d evictions", state.loaded, state.failed, state.evicted)

	events := e.Events()
	_ = events.Unsubscribe(core.EventResourceLoaded, state.onLoaded)
	_ = events.Unsubscribe(core.EventResourceFailed, state.onFailed)
	_ = events.Unsubscribe(core.EventResourceEvicted, state.onEvicted)
	return nil
}

func (g *TestGame) request(e *engine.Engine, path string) {
	if _, err := e.Resources().LoadAsync(path, nil); err != nil {
		core.LogWarn("could not queue '%s': %s", path, err)
	}
}
