package systems

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/spaghettifunk/anima-assets/engine/assets"
	"github.com/spaghettifunk/anima-assets/engine/containers"
	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/renderer"
	"github.com/spaghettifunk/anima-assets/engine/resources"
)

// ResourceFactory creates an empty resource of one type.
type ResourceFactory func() resources.Resource

// ChangeSource reports project-relative paths that changed on disk.
type ChangeSource interface {
	DrainChanged() []string
}

// LoadCallback receives the outcome of LoadAsync on the owner goroutine.
type LoadCallback func(h resources.Handle, err error)

/** @brief The configuration for the resource system */
type ResourceSystemConfig struct {
	/** @brief The root every resource path is relative to. Defaults to the working directory. */
	ProjectDirectory string
	/** @brief Per type search roots, relative to the project directory. */
	StandardDirectories map[resources.ResourceType]string

	Device   renderer.Device
	Importer resources.Importer

	/** @brief Optional. Enables LoadAsync and LoadBatch off the owner goroutine. */
	Jobs *JobSystem
	/** @brief Optional. Changed files are evicted on Update. */
	Changes  ChangeSource
	Events   *core.EventBus
	Metrics  *core.Metrics
	Progress ProgressReporter
	Toggle   UpdateToggle
}

type pendingLoad struct {
	ticket    uuid.UUID
	path      string
	resource  resources.Resource
	err       error
	callbacks []LoadCallback
	// closed once the worker queued the load for finishing
	decoded chan struct{}

	finished bool
	handle   resources.Handle
	result   error
}

// ResourceSystem loads resources by path, deduplicating through its cache.
// It is owned by one goroutine: only the decoding half of LoadAsync runs
// elsewhere.
type ResourceSystem struct {
	cache        *resources.Cache
	projectDir   string
	standardDirs map[resources.ResourceType]string
	factories    map[resources.ResourceType]ResourceFactory

	jobs     *JobSystem
	changes  ChangeSource
	events   *core.EventBus
	metrics  *core.Metrics
	progress ProgressReporter
	toggle   UpdateToggle

	inflight map[string]*pendingLoad

	mu        sync.Mutex
	completed *containers.RingQueue[*pendingLoad]
	ready     chan struct{}
}

func NewResourceSystem(config *ResourceSystemConfig) (*ResourceSystem, error) {
	if config == nil || config.Importer == nil {
		err := fmt.Errorf("%w: NewResourceSystem needs an importer", core.ErrInvalidParameter)
		core.LogError("%s", err.Error())
		return nil, err
	}

	rs := &ResourceSystem{
		cache:        resources.NewCache(),
		standardDirs: make(map[resources.ResourceType]string),
		factories:    make(map[resources.ResourceType]ResourceFactory),
		jobs:         config.Jobs,
		changes:      config.Changes,
		events:       config.Events,
		metrics:      config.Metrics,
		progress:     config.Progress,
		toggle:       config.Toggle,
		inflight:     make(map[string]*pendingLoad),
		completed:    containers.NewGrowableRingQueue[*pendingLoad](16),
		ready:        make(chan struct{}, 1),
	}

	project := config.ProjectDirectory
	if project == "" {
		project = "."
	}
	if err := rs.SetProjectDirectory(project); err != nil {
		return nil, err
	}
	for t, dir := range config.StandardDirectories {
		if err := rs.AddStandardResourceDirectory(t, dir); err != nil {
			return nil, err
		}
	}

	deps := resources.Deps{Device: config.Device, Importer: config.Importer}
	for _, t := range resources.ResourceTypes() {
		rs.factories[t] = func() resources.Resource {
			r, _ := resources.NewResource(t, deps)
			return r
		}
	}

	core.LogInfo("Resource system initialized with project directory '%s'.", rs.projectDir)
	return rs, nil
}

// Shutdown releases every cached resource.
func (rs *ResourceSystem) Shutdown() error {
	rs.Clear()
	return nil
}

// RegisterFactory replaces how resources of type t are created.
func (rs *ResourceSystem) RegisterFactory(t resources.ResourceType, f ResourceFactory) {
	rs.factories[t] = f
}

func (rs *ResourceSystem) Cache() *resources.Cache {
	return rs.cache
}

func (rs *ResourceSystem) Resolve(h resources.Handle) (resources.Resource, bool) {
	return rs.cache.Resolve(h)
}

// Load returns the resource at path as a T, importing it on first use.
// A failed import yields an empty ref and an error wrapping
// core.ErrImportFailed; the caller is expected to fall back.
func Load[T resources.Resource](rs *ResourceSystem, path string) (resources.Ref[T], error) {
	h, err := rs.load(path, func(r resources.Resource) error {
		return checkType[T](r)
	})
	if err != nil {
		return resources.Ref[T]{}, err
	}
	return resources.NewRef[T](rs.cache, h), nil
}

// Add caches a resource built in memory. When its path is already cached
// the cached resource is returned and r is left to the caller.
func Add[T resources.Resource](rs *ResourceSystem, r T) (resources.Ref[T], error) {
	h, err := rs.add(r, func(cached resources.Resource) error {
		return checkType[T](cached)
	})
	if err != nil {
		return resources.Ref[T]{}, err
	}
	return resources.NewRef[T](rs.cache, h), nil
}

func checkType[T resources.Resource](r resources.Resource) error {
	if _, ok := r.(T); !ok {
		var want T
		return fmt.Errorf("%w: %q is a %T, not a %T", core.ErrTypeMismatch, r.Path(), r, want)
	}
	return nil
}

// LoadResource is Load without the type check.
func (rs *ResourceSystem) LoadResource(path string) (resources.Handle, error) {
	return rs.load(path, nil)
}

func (rs *ResourceSystem) load(path string, check func(resources.Resource) error) (resources.Handle, error) {
	rel, abs, err := rs.locate(path)
	if err != nil {
		return resources.Handle{}, err
	}

	if h := rs.cache.GetByPath(rel); h.IsValid() {
		r, _ := rs.cache.Resolve(h)
		if check != nil {
			if err := check(r); err != nil {
				return resources.Handle{}, err
			}
		}
		rs.metrics.Hit(r.Type().String())
		return h, nil
	}
	if p, ok := rs.inflight[rel]; ok {
		return rs.await(p, check)
	}

	r, err := rs.create(rel)
	if err != nil {
		return resources.Handle{}, err
	}
	if check != nil {
		if err := check(r); err != nil {
			return resources.Handle{}, err
		}
	}
	loader, ok := r.(resources.Loader)
	if !ok {
		return resources.Handle{}, fmt.Errorf("%w: %s resources cannot be loaded from files", core.ErrImportFailed, r.Type())
	}

	r.SetPath(rel)
	if err := r.SetLoadState(resources.LoadStateLoading); err != nil {
		return resources.Handle{}, err
	}

	clock := core.NewClock()
	clock.Start()
	if err := loader.LoadFromFile(abs); err != nil {
		return resources.Handle{}, rs.fail(r, err)
	}
	clock.Update()
	core.LogDebug("loaded %s %q in %s", r.Type(), rel, clock.Elapsed())

	return rs.complete(r)
}

// await finishes a pending async load on the owner goroutine instead of
// importing its file a second time. The load's callbacks run as usual.
func (rs *ResourceSystem) await(p *pendingLoad, check func(resources.Resource) error) (resources.Handle, error) {
	if check != nil {
		if err := check(p.resource); err != nil {
			return resources.Handle{}, err
		}
	}
	<-p.decoded
	rs.finishCompleted()
	// a callback of an outer finishCompleted may be the caller
	rs.finishPending(p)
	return p.handle, p.result
}

// create builds an empty resource for rel's extension.
func (rs *ResourceSystem) create(rel string) (resources.Resource, error) {
	t := assets.DetermineResourceType(rel)
	f, ok := rs.factories[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q: %w", core.ErrImportFailed, rel, core.ErrUnknownResourceType)
	}
	r := f()
	if r == nil {
		return nil, fmt.Errorf("%w: no %s factory for %q", core.ErrImportFailed, t, rel)
	}
	return r, nil
}

func (rs *ResourceSystem) fail(r resources.Resource, cause error) error {
	if err := r.SetLoadState(resources.LoadStateFailed); err != nil {
		core.LogError("%s", err)
	}
	if rel, ok := r.(resources.Releaser); ok {
		rel.Release()
	}
	err := fmt.Errorf("%w: %s %q: %w", core.ErrImportFailed, r.Type(), r.Path(), cause)
	core.LogWarn("failed to load %s %q, using a fallback is up to the caller: %s", r.Type(), r.Path(), cause)
	rs.metrics.Failed(r.Type().String())
	rs.events.Publish(core.EventResourceFailed, core.ResourceEvent{
		ID: r.ID(), Type: r.Type().String(), Path: r.Path(), Err: err,
	})
	return err
}

// complete marks r loaded and caches it. A resource cached under the same
// path in the meantime wins and r is released.
func (rs *ResourceSystem) complete(r resources.Resource) (resources.Handle, error) {
	if err := r.SetLoadState(resources.LoadStateCompleted); err != nil {
		return resources.Handle{}, err
	}
	h, added, err := rs.cache.Add(r)
	if err != nil {
		return resources.Handle{}, err
	}
	if !added {
		if rel, ok := r.(resources.Releaser); ok {
			rel.Release()
		}
		return h, nil
	}
	rs.metrics.Loaded(r.Type().String())
	rs.events.Publish(core.EventResourceLoaded, core.ResourceEvent{
		ID: r.ID(), Type: r.Type().String(), Path: r.Path(),
	})
	return h, nil
}

func (rs *ResourceSystem) add(r resources.Resource, check func(resources.Resource) error) (resources.Handle, error) {
	if r == nil || r.Path() == "" {
		return resources.Handle{}, fmt.Errorf("%w: resource has no path", core.ErrInvalidParameter)
	}
	rel := rs.relative(rs.absolute(r.Path()))
	if h := rs.cache.GetByPath(rel); h.IsValid() {
		cached, _ := rs.cache.Resolve(h)
		if err := check(cached); err != nil {
			return resources.Handle{}, err
		}
		core.LogDebug("%q is already cached, keeping the cached %s", rel, cached.Type())
		return h, nil
	}
	if rel != r.Path() {
		name := r.Name()
		r.SetPath(rel)
		r.SetName(name)
	}

	if r.LoadState() == resources.LoadStateIdle {
		if err := r.SetLoadState(resources.LoadStateLoading); err != nil {
			return resources.Handle{}, err
		}
	}
	if r.LoadState() == resources.LoadStateLoading {
		if err := r.SetLoadState(resources.LoadStateCompleted); err != nil {
			return resources.Handle{}, err
		}
	}

	h, _, err := rs.cache.Add(r)
	if err != nil {
		return resources.Handle{}, err
	}
	rs.events.Publish(core.EventResourceAdded, core.ResourceEvent{
		ID: r.ID(), Type: r.Type().String(), Path: r.Path(),
	})
	return h, nil
}

// LoadAsync decodes path on a worker and finishes it in the next Update.
// onDone runs on the owner goroutine, right away when path is cached.
// Concurrent requests for one path share a single decode.
func (rs *ResourceSystem) LoadAsync(path string, onDone LoadCallback) (uuid.UUID, error) {
	rel, abs, err := rs.locate(path)
	if err != nil {
		return uuid.Nil, err
	}
	if onDone == nil {
		onDone = func(resources.Handle, error) {}
	}

	if h := rs.cache.GetByPath(rel); h.IsValid() {
		if r, ok := rs.cache.Resolve(h); ok {
			rs.metrics.Hit(r.Type().String())
		}
		onDone(h, nil)
		return uuid.New(), nil
	}
	if p, ok := rs.inflight[rel]; ok {
		p.callbacks = append(p.callbacks, onDone)
		return p.ticket, nil
	}

	r, err := rs.create(rel)
	if err != nil {
		return uuid.Nil, err
	}
	dec, ok := r.(resources.Decoder)
	if rs.jobs == nil || !ok {
		h, err := rs.LoadResource(rel)
		onDone(h, err)
		return uuid.New(), nil
	}

	r.SetPath(rel)
	if err := r.SetLoadState(resources.LoadStateLoading); err != nil {
		return uuid.Nil, err
	}
	p := &pendingLoad{
		ticket:    uuid.New(),
		path:      rel,
		resource:  r,
		callbacks: []LoadCallback{onDone},
		decoded:   make(chan struct{}),
	}
	rs.inflight[rel] = p

	err = rs.jobs.Submit(JobTask{
		Name:    "decode " + rel,
		OnStart: func() error { return dec.Decode(abs) },
		OnFailure: func(err error) {
			p.err = err
		},
		OnCompletionCallback: func() {
			rs.pushCompleted(p)
			close(p.decoded)
		},
	})
	if err != nil {
		delete(rs.inflight, rel)
		return uuid.Nil, err
	}
	return p.ticket, nil
}

func (rs *ResourceSystem) pushCompleted(p *pendingLoad) {
	rs.mu.Lock()
	rs.completed.Enqueue(p)
	rs.mu.Unlock()
	select {
	case rs.ready <- struct{}{}:
	default:
	}
}

// Pending returns how many async loads have not been finished yet.
func (rs *ResourceSystem) Pending() int {
	return len(rs.inflight)
}

// Update finishes decoded async loads and evicts resources whose files
// changed. It returns how many async loads were finished.
func (rs *ResourceSystem) Update() int {
	n := rs.finishCompleted()
	rs.evictChanged()
	return n
}

func (rs *ResourceSystem) finishCompleted() int {
	rs.mu.Lock()
	done := make([]*pendingLoad, 0, rs.completed.Len())
	for !rs.completed.IsEmpty() {
		p, _ := rs.completed.Dequeue()
		done = append(done, p)
	}
	rs.mu.Unlock()

	n := 0
	for _, p := range done {
		if rs.finishPending(p) {
			n++
		}
	}
	return n
}

// finishPending finishes p once and runs its callbacks. It reports whether
// this call did the work.
func (rs *ResourceSystem) finishPending(p *pendingLoad) bool {
	if p.finished {
		return false
	}
	p.finished = true
	delete(rs.inflight, p.path)
	p.handle, p.result = rs.finish(p)
	for _, cb := range p.callbacks {
		cb(p.handle, p.result)
	}
	return true
}

func (rs *ResourceSystem) finish(p *pendingLoad) (resources.Handle, error) {
	r := p.resource
	err := p.err
	if err == nil {
		if up, ok := r.(resources.Uploader); ok {
			err = up.Upload()
		}
	}
	if err != nil {
		return resources.Handle{}, rs.fail(r, err)
	}
	return rs.complete(r)
}

func (rs *ResourceSystem) evictChanged() {
	if rs.changes == nil {
		return
	}
	for _, path := range rs.changes.DrainChanged() {
		if rs.Remove(path) {
			core.LogInfo("%q changed on disk, evicted it from the cache", path)
		}
	}
}

// LoadBatch loads paths on the job system, reporting progress and pausing
// the engine update loop while it runs. Handles line up with paths; failed
// entries are zero and their errors are returned together. Cancelling ctx
// stops waiting; loads already submitted finish in a later Update.
func (rs *ResourceSystem) LoadBatch(ctx context.Context, paths []string) ([]resources.Handle, error) {
	if rs.toggle != nil {
		rs.toggle.SetEngineUpdate(false)
		defer rs.toggle.SetEngineUpdate(true)
	}

	total := len(paths)
	handles := make([]resources.Handle, total)
	var errs error
	remaining, done := 0, 0

	rs.reportStatus(fmt.Sprintf("Loading %d resources", total))
	rs.reportProgress(0, total)

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return handles, multierr.Append(errs, err)
		}
		remaining++
		_, err := rs.LoadAsync(path, func(h resources.Handle, err error) {
			handles[i] = h
			if err != nil {
				errs = multierr.Append(errs, err)
			}
			remaining--
			done++
			rs.reportStatus(fmt.Sprintf("Loaded %s", path))
			rs.reportProgress(done, total)
		})
		if err != nil {
			remaining--
			done++
			errs = multierr.Append(errs, err)
			rs.reportProgress(done, total)
		}
	}

	for remaining > 0 {
		select {
		case <-ctx.Done():
			return handles, multierr.Append(errs, ctx.Err())
		case <-rs.ready:
			rs.finishCompleted()
		}
	}
	rs.reportStatus("Done")
	return handles, errs
}

func (rs *ResourceSystem) reportProgress(done, total int) {
	if rs.progress == nil {
		return
	}
	if total == 0 {
		rs.progress.SetProgress(1)
		return
	}
	rs.progress.SetProgress(float32(done) / float32(total))
}

func (rs *ResourceSystem) reportStatus(status string) {
	if rs.progress != nil {
		rs.progress.SetStatus(status)
	}
}

// SaveResource moves the resource behind h to path and saves it there.
func (rs *ResourceSystem) SaveResource(h resources.Handle, path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty path", core.ErrInvalidParameter)
	}
	rel := rs.relative(rs.absolute(path))
	if err := rs.cache.Repath(h, rel); err != nil {
		return err
	}
	return rs.cache.Save(h, rel)
}

// SaveAll saves every savable resource in its native format.
func (rs *ResourceSystem) SaveAll() error {
	return rs.cache.SaveResourcesToFiles()
}

// Remove evicts the resource cached under path.
func (rs *ResourceSystem) Remove(path string) bool {
	rel := rs.relative(rs.absolute(path))
	h := rs.cache.GetByPath(rel)
	r, ok := rs.cache.Resolve(h)
	if !ok {
		return false
	}
	ev := core.ResourceEvent{ID: r.ID(), Type: r.Type().String(), Path: rel}
	rs.cache.Remove(rel)
	rs.events.Publish(core.EventResourceEvicted, ev)
	return true
}

// Clear releases every cached resource. Outstanding refs stop resolving.
func (rs *ResourceSystem) Clear() {
	n := rs.cache.Clear()
	core.LogDebug("cleared %d resources", n)
	rs.events.Publish(core.EventResourceCleared, core.ResourceEvent{Count: n})
}

func (rs *ResourceSystem) IsCached(path string) bool {
	return rs.cache.IsCached(rs.relative(rs.absolute(path)))
}

func (rs *ResourceSystem) GetResourcesByType(t resources.ResourceType) []resources.Handle {
	return rs.cache.GetByType(t)
}

func (rs *ResourceSystem) GetResourceCountByType(t resources.ResourceType) int {
	return rs.cache.Count(t)
}

func (rs *ResourceSystem) GetResourceFilePaths() []string {
	return rs.cache.FilePaths()
}

func (rs *ResourceSystem) GetMemoryUsageKB(t resources.ResourceType) uint64 {
	return rs.cache.GetMemoryUsageKB(t)
}

// AddStandardResourceDirectory sets the directory searched for relative
// paths of type t that do not exist under the project directory.
func (rs *ResourceSystem) AddStandardResourceDirectory(t resources.ResourceType, dir string) error {
	if !isResourceType(t) {
		return fmt.Errorf("%w: %s", core.ErrUnknownResourceType, t)
	}
	rs.standardDirs[t] = filepath.ToSlash(filepath.Clean(dir))
	return nil
}

func (rs *ResourceSystem) GetStandardResourceDirectory(t resources.ResourceType) string {
	return rs.standardDirs[t]
}

func (rs *ResourceSystem) SetProjectDirectory(dir string) error {
	if dir == "" {
		return fmt.Errorf("%w: empty project directory", core.ErrInvalidParameter)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if rs.projectDir != "" && rs.cache.Len() > 0 && abs != rs.projectDir {
		core.LogWarn("project directory changed to %q with %d resources cached", abs, rs.cache.Len())
	}
	rs.projectDir = abs
	rs.cache.SetRoot(abs)
	return nil
}

func (rs *ResourceSystem) GetProjectDirectory() string {
	return rs.projectDir
}

func isResourceType(t resources.ResourceType) bool {
	for _, known := range resources.ResourceTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// locate turns path into the project-relative cache key and the absolute
// file to read, falling back to the standard directory of its type.
func (rs *ResourceSystem) locate(path string) (rel, abs string, err error) {
	if strings.TrimSpace(path) == "" {
		return "", "", fmt.Errorf("%w: empty path", core.ErrInvalidParameter)
	}
	abs = rs.absolute(path)
	if !filepath.IsAbs(rs.clean(path)) {
		if _, statErr := os.Stat(abs); errors.Is(statErr, os.ErrNotExist) {
			if dir, ok := rs.standardDirs[assets.DetermineResourceType(path)]; ok {
				candidate := filepath.Join(rs.projectDir, filepath.FromSlash(dir), rs.clean(path))
				if _, err := os.Stat(candidate); err == nil {
					abs = candidate
				}
			}
		}
	}
	return rs.relative(abs), abs, nil
}

func (rs *ResourceSystem) clean(path string) string {
	return filepath.Clean(filepath.FromSlash(strings.ReplaceAll(path, "\\", "/")))
}

func (rs *ResourceSystem) absolute(path string) string {
	p := rs.clean(path)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(rs.projectDir, p)
}

// relative returns abs relative to the project directory with forward
// slashes. Files outside the project keep their absolute path.
func (rs *ResourceSystem) relative(abs string) string {
	rel, err := filepath.Rel(rs.projectDir, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(rel)
}
