package assets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/multierr"

	"github.com/spaghettifunk/anima-assets/engine/assets/loaders"
	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/resources"
)

var ErrClosed = errors.New("asset manager already closed")

type AssetInfo struct {
	/** @brief Slash separated path relative to the asset root. */
	Path     string
	Type     resources.ResourceType
	Modified time.Time
}

type Options struct {
	/** @brief Watch the root for changes. */
	Watch bool
	/** @brief How long raw file bytes stay in memory. Zero disables the file cache. */
	FileCacheLife time.Duration
	/** @brief Upper bound of the file cache in megabytes, 0 for unbounded. */
	FileCacheMaxMB int
	Image          loaders.ImageParams
	Font           loaders.FontParams
}

// AssetManager indexes the source files under a root directory, imports
// them through per-type loaders and reports files that changed on disk.
type AssetManager struct {
	root    string
	assets  map[string]AssetInfo
	loaders map[resources.ResourceType]Loader
	files   *FileCache
	changed map[string]struct{}

	mutex sync.RWMutex

	done     chan struct{}
	wg       sync.WaitGroup
	fsnotify *fsnotify.Watcher
	isClosed bool
}

func NewAssetManager(ctx context.Context, opts Options) (*AssetManager, error) {
	am := &AssetManager{
		assets:  make(map[string]AssetInfo),
		loaders: make(map[resources.ResourceType]Loader),
		changed: make(map[string]struct{}),
		done:    make(chan struct{}),
	}

	var read loaders.ReadFunc
	if opts.FileCacheLife > 0 {
		fc, err := NewFileCache(ctx, opts.FileCacheLife, opts.FileCacheMaxMB)
		if err != nil {
			return nil, err
		}
		am.files = fc
		read = fc.Read
	}

	if opts.Watch {
		fsWatch, err := fsnotify.NewWatcher()
		if err != nil {
			if am.files != nil {
				am.files.Close()
			}
			return nil, err
		}
		am.fsnotify = fsWatch
	}

	images := &loaders.ImageLoader{Read: read, Defaults: opts.Image}
	am.registerLoader(resources.ResourceTypeTexture, images)
	am.registerLoader(resources.ResourceTypeCubemap, &loaders.CubemapLoader{Read: read, Images: images})
	am.registerLoader(resources.ResourceTypeModel, &loaders.ModelLoader{Read: read})
	am.registerLoader(resources.ResourceTypeFont, &loaders.FontLoader{
		System: loaders.SystemFontLoader{Read: read, Defaults: opts.Font},
	})
	am.registerLoader(resources.ResourceTypeShader, &loaders.ShaderLoader{Read: read})

	return am, nil
}

// Initialize indexes every known file under root and, when watching,
// starts following changes.
func (am *AssetManager) Initialize(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	am.root = abs

	if am.fsnotify != nil {
		am.wg.Add(1)
		go am.start()
	}
	return am.addRecursive(abs)
}

func (am *AssetManager) Root() string {
	return am.root
}

// FileCacheStats reports file cache hits and misses. Both are zero when
// the file cache is disabled.
func (am *AssetManager) FileCacheStats() (hits, misses uint64) {
	if am.files == nil {
		return 0, 0
	}
	return am.files.Stats()
}

// Shutdown stops the watcher and drops cached file bytes.
func (am *AssetManager) Shutdown() error {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return nil
	}
	am.isClosed = true
	am.mutex.Unlock()

	close(am.done)
	am.wg.Wait()

	var err error
	if am.fsnotify != nil {
		err = multierr.Append(err, am.fsnotify.Close())
	}
	if am.files != nil {
		err = multierr.Append(err, am.files.Close())
	}
	return err
}

// AddRecursive starts watching the named directory and all sub-directories.
func (am *AssetManager) addRecursive(name string) error {
	if am.closed() {
		return ErrClosed
	}
	return am.watchRecursive(name)
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType resources.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// LoadAsset imports path with the loader registered for its extension.
// Relative paths resolve against the root.
func (am *AssetManager) LoadAsset(path string, params interface{}) (*loaders.Asset, error) {
	assetType := DetermineResourceType(path)
	loader, ok := am.loaders[assetType]
	if !ok {
		return nil, fmt.Errorf("%w: no loader for %q", core.ErrUnknownResourceType, path)
	}
	if !filepath.IsAbs(path) && am.root != "" {
		path = filepath.Join(am.root, filepath.FromSlash(path))
	}
	return loader.Load(path, params)
}

func (am *AssetManager) ImportImage(path string, params loaders.ImageParams) (*loaders.ImageData, error) {
	return importAs[*loaders.ImageData](am, path, params)
}

func (am *AssetManager) ImportCubemap(path string) (*loaders.CubemapData, error) {
	return importAs[*loaders.CubemapData](am, path, nil)
}

func (am *AssetManager) ImportModel(path string) (*loaders.ModelData, error) {
	return importAs[*loaders.ModelData](am, path, nil)
}

func (am *AssetManager) ImportFont(path string) (*loaders.FontData, error) {
	return importAs[*loaders.FontData](am, path, nil)
}

func (am *AssetManager) ImportShader(path string) (*loaders.ShaderData, error) {
	return importAs[*loaders.ShaderData](am, path, nil)
}

func importAs[T any](am *AssetManager, path string, params interface{}) (T, error) {
	var zero T
	a, err := am.LoadAsset(path, params)
	if err != nil {
		return zero, err
	}
	data, ok := a.Data.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %q decoded to %T", core.ErrTypeMismatch, path, a.Data)
	}
	return data, nil
}

// Assets returns the index sorted by path.
func (am *AssetManager) Assets() []AssetInfo {
	am.mutex.RLock()
	out := make([]AssetInfo, 0, len(am.assets))
	for _, a := range am.assets {
		out = append(out, a)
	}
	am.mutex.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func (am *AssetManager) Lookup(path string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	a, ok := am.assets[path]
	return a, ok
}

// DrainChanged returns the root-relative paths modified or removed since
// the previous call.
func (am *AssetManager) DrainChanged() []string {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	if len(am.changed) == 0 {
		return nil
	}
	out := make([]string, 0, len(am.changed))
	for p := range am.changed {
		out = append(out, p)
	}
	clear(am.changed)
	sort.Strings(out)
	return out
}

func (am *AssetManager) closed() bool {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return am.isClosed
}

func (am *AssetManager) start() {
	defer am.wg.Done()
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			am.handleWatchEvent(e)

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err)

		case <-am.done:
			return
		}
	}
}

func (am *AssetManager) handleWatchEvent(e fsnotify.Event) {
	s, err := os.Stat(e.Name)
	if err == nil && s.IsDir() {
		if e.Op&fsnotify.Create != 0 {
			if err := am.watchRecursive(e.Name); err != nil {
				core.LogWarn("failed to watch %q: %s", e.Name, err)
			}
		}
		return
	}

	if am.files != nil {
		am.files.Invalidate(e.Name)
	}
	// Create also covers editors that save by rename
	if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
		am.handleFileEvent(e.Name, true)
	}
	// A removed directory cannot be told apart from a file any more, so try
	// both.
	if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		am.removeAsset(e.Name)
		if am.fsnotify != nil {
			_ = am.fsnotify.Remove(e.Name)
		}
	}
}

// watchRecursive indexes every file under path and adds its directories to
// the watch list. A file landing in a new directory before its watch is
// added is picked up by the walk.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if am.fsnotify == nil {
				return nil
			}
			return am.fsnotify.Add(walkPath)
		}
		am.handleFileEvent(walkPath, false)
		return nil
	})
}

func (am *AssetManager) relative(path string) (string, bool) {
	rel, err := filepath.Rel(am.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(path string, modified bool) {
	assetType := DetermineResourceType(path)
	if assetType == resources.ResourceTypeUnknown {
		return
	}
	rel, ok := am.relative(path)
	if !ok {
		return
	}
	info := AssetInfo{Path: rel, Type: assetType}
	if s, err := os.Stat(path); err == nil {
		info.Modified = s.ModTime()
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.assets[rel] = info
	if modified {
		am.changed[rel] = struct{}{}
	}
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	rel, ok := am.relative(path)
	if !ok {
		return
	}
	am.mutex.Lock()
	defer am.mutex.Unlock()
	if _, known := am.assets[rel]; known {
		delete(am.assets, rel)
		am.changed[rel] = struct{}{}
	}
}

var extensionTypes = map[string]resources.ResourceType{
	".png": resources.ResourceTypeTexture, ".jpg": resources.ResourceTypeTexture,
	".jpeg": resources.ResourceTypeTexture, ".gif": resources.ResourceTypeTexture,
	".bmp": resources.ResourceTypeTexture, ".tif": resources.ResourceTypeTexture,
	".tiff": resources.ResourceTypeTexture, ".webp": resources.ResourceTypeTexture,
	".atex": resources.ResourceTypeTexture,

	".cubemap": resources.ResourceTypeCubemap, ".acube": resources.ResourceTypeCubemap,

	".obj": resources.ResourceTypeModel, ".gltf": resources.ResourceTypeModel,
	".glb": resources.ResourceTypeModel, ".amodel": resources.ResourceTypeModel,

	".fnt": resources.ResourceTypeFont, ".ttf": resources.ResourceTypeFont,
	".otf": resources.ResourceTypeFont, ".ttc": resources.ResourceTypeFont,
	".otc": resources.ResourceTypeFont, ".afont": resources.ResourceTypeFont,

	".vert": resources.ResourceTypeShader, ".frag": resources.ResourceTypeShader,
	".comp": resources.ResourceTypeShader, ".geom": resources.ResourceTypeShader,
	".glsl": resources.ResourceTypeShader, ".hlsl": resources.ResourceTypeShader,
	".wgsl": resources.ResourceTypeShader, ".spv": resources.ResourceTypeShader,
	".ashader": resources.ResourceTypeShader,
}

// DetermineResourceType maps a file extension, source or native, to the
// resource type that loads it.
func DetermineResourceType(path string) resources.ResourceType {
	if t, ok := extensionTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return t
	}
	return resources.ResourceTypeUnknown
}

// Extensions returns the sorted file extensions that load as t.
func Extensions(t resources.ResourceType) []string {
	var out []string
	for ext, et := range extensionTypes {
		if et == t {
			out = append(out, ext)
		}
	}
	sort.Strings(out)
	return out
}
