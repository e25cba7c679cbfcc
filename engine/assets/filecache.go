package assets

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"time"

	"github.com/allegro/bigcache/v3"

	"github.com/spaghettifunk/anima-assets/engine/core"
)

// FileCache keeps raw file bytes in memory so re-imports skip the disk.
// Entries are keyed by absolute path and dropped by the watcher on change.
type FileCache struct {
	cache  *bigcache.BigCache
	hits   atomic.Uint64
	misses atomic.Uint64
}

func NewFileCache(ctx context.Context, life time.Duration, maxMB int) (*FileCache, error) {
	cfg := bigcache.DefaultConfig(life)
	cfg.Shards = 64
	cfg.MaxEntriesInWindow = 1024
	cfg.MaxEntrySize = 4096
	cfg.HardMaxCacheSize = maxMB
	cfg.CleanWindow = life / 2
	cfg.Verbose = false

	cache, err := bigcache.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &FileCache{cache: cache}, nil
}

// Read returns the content of path, from memory when possible.
func (fc *FileCache) Read(path string) ([]byte, error) {
	data, err := fc.cache.Get(path)
	if err == nil {
		fc.hits.Add(1)
		return data, nil
	}
	if !errors.Is(err, bigcache.ErrEntryNotFound) {
		core.LogWarn("file cache lookup of %q failed: %s", path, err)
	}
	fc.misses.Add(1)

	data, err = os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := fc.cache.Set(path, data); err != nil {
		// too big for a shard, serve it uncached
		core.LogDebug("not caching %q: %s", path, err)
	}
	return data, nil
}

func (fc *FileCache) Invalidate(path string) {
	if err := fc.cache.Delete(path); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		core.LogWarn("file cache invalidate of %q failed: %s", path, err)
	}
}

func (fc *FileCache) Len() int {
	return fc.cache.Len()
}

// Stats returns the hit and miss counts since creation.
func (fc *FileCache) Stats() (hits, misses uint64) {
	return fc.hits.Load(), fc.misses.Load()
}

func (fc *FileCache) Close() error {
	return fc.cache.Close()
}
