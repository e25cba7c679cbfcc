package resources

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"go.uber.org/multierr"

	"github.com/spaghettifunk/anima-assets/engine/core"
)

type slot struct {
	generation uint32
	resource   Resource
}

// Cache owns every loaded resource. Resources are indexed by id, name, path
// and type; the path is the dedup key. Everything else holds Handles.
//
// Cache is not safe for concurrent use: all mutations belong to the
// goroutine that owns the device.
type Cache struct {
	root string

	slots []slot
	free  []uint32

	byID   map[uint64]uint32
	byName map[string]uint32
	byPath map[string]uint32
	byType [resourceTypeCount][]uint32
}

func NewCache() *Cache {
	return &Cache{
		byID:   make(map[uint64]uint32),
		byName: make(map[string]uint32),
		byPath: make(map[string]uint32),
	}
}

// SetRoot sets the directory resource paths are relative to when saving.
func (c *Cache) SetRoot(dir string) {
	c.root = dir
}

func (c *Cache) IsCached(path string) bool {
	_, ok := c.byPath[path]
	return ok
}

// Add inserts r. When its path is already cached the existing entry wins:
// its handle is returned with added set to false and r is left untouched.
func (c *Cache) Add(r Resource) (h Handle, added bool, err error) {
	if r == nil || r.Path() == "" {
		return Handle{}, false, fmt.Errorf("%w: resource has no path", core.ErrInvalidParameter)
	}
	if !r.Type().valid() {
		return Handle{}, false, fmt.Errorf("%w: %s has type %s", core.ErrUnknownResourceType, r.Path(), r.Type())
	}
	if idx, ok := c.byPath[r.Path()]; ok {
		return c.handle(idx), false, nil
	}
	if idx, ok := c.byID[r.ID()]; ok {
		return Handle{}, false, fmt.Errorf("%w: resource %d is already cached as %s",
			core.ErrInvalidParameter, r.ID(), c.slots[idx].resource.Path())
	}

	var idx uint32
	if n := len(c.free); n > 0 {
		idx = c.free[n-1]
		c.free = c.free[:n-1]
	} else {
		c.slots = append(c.slots, slot{})
		idx = uint32(len(c.slots) - 1)
	}
	s := &c.slots[idx]
	s.generation++
	s.resource = r

	c.byID[r.ID()] = idx
	c.byPath[r.Path()] = idx
	c.indexName(r.Name(), idx)
	c.byType[r.Type()] = append(c.byType[r.Type()], idx)

	return c.handle(idx), true, nil
}

// Resolve returns the resource behind h, or false when it left the cache.
func (c *Cache) Resolve(h Handle) (Resource, bool) {
	if !h.IsValid() || int(h.index) >= len(c.slots) {
		return nil, false
	}
	s := c.slots[h.index]
	if s.generation != h.generation || s.resource == nil {
		return nil, false
	}
	return s.resource, true
}

func (c *Cache) GetByID(id uint64) Handle {
	idx, ok := c.byID[id]
	if !ok {
		return Handle{}
	}
	return c.handle(idx)
}

func (c *Cache) GetByName(name string) Handle {
	idx, ok := c.byName[name]
	if !ok {
		return Handle{}
	}
	return c.handle(idx)
}

func (c *Cache) GetByPath(path string) Handle {
	idx, ok := c.byPath[path]
	if !ok {
		return Handle{}
	}
	return c.handle(idx)
}

// GetByType returns handles of every resource of type t, in insertion order.
// ResourceTypeAll returns every cached resource.
func (c *Cache) GetByType(t ResourceType) []Handle {
	if t == ResourceTypeAll {
		out := make([]Handle, 0, len(c.byPath))
		for _, rt := range ResourceTypes() {
			out = append(out, c.GetByType(rt)...)
		}
		return out
	}
	if !t.valid() {
		return nil
	}
	out := make([]Handle, len(c.byType[t]))
	for i, idx := range c.byType[t] {
		out[i] = c.handle(idx)
	}
	return out
}

func (c *Cache) Count(t ResourceType) int {
	if t == ResourceTypeAll {
		return len(c.byPath)
	}
	if !t.valid() {
		return 0
	}
	return len(c.byType[t])
}

func (c *Cache) Len() int {
	return len(c.byPath)
}

// GetMemoryUsageKB sums the self-reported size of every resource of type t.
func (c *Cache) GetMemoryUsageKB(t ResourceType) uint64 {
	if t == ResourceTypeAll {
		var total uint64
		for _, rt := range ResourceTypes() {
			total += c.memoryBytes(rt)
		}
		return total / 1024
	}
	if !t.valid() {
		return 0
	}
	return c.memoryBytes(t) / 1024
}

func (c *Cache) memoryBytes(t ResourceType) uint64 {
	var total uint64
	for _, idx := range c.byType[t] {
		if s, ok := c.slots[idx].resource.(Sizer); ok {
			total += s.MemoryUsage()
		}
	}
	return total
}

// FilePaths returns the path of every cached resource.
func (c *Cache) FilePaths() []string {
	out := make([]string, 0, len(c.byPath))
	for _, rt := range ResourceTypes() {
		for _, idx := range c.byType[rt] {
			out = append(out, c.slots[idx].resource.Path())
		}
	}
	return out
}

// Stats returns one row per resource type.
func (c *Cache) Stats() []core.ResourceStat {
	out := make([]core.ResourceStat, 0, resourceTypeCount-1)
	for _, rt := range ResourceTypes() {
		out = append(out, core.ResourceStat{
			Type:     rt.String(),
			Count:    c.Count(rt),
			MemoryKB: c.GetMemoryUsageKB(rt),
		})
	}
	return out
}

// SaveResourcesToFiles saves every savable resource next to its source, in
// its native format. A failing resource does not stop the sweep; all
// failures are returned together. Resources reporting core.ErrNotSavable,
// such as procedural ones without a source, are skipped.
func (c *Cache) SaveResourcesToFiles() error {
	var errs error
	for _, rt := range ResourceTypes() {
		for _, idx := range c.byType[rt] {
			r := c.slots[idx].resource
			s, ok := r.(Saver)
			if !ok {
				core.LogDebug("%s %q has no native format, not saving it", rt, r.Path())
				continue
			}
			err := c.save(r, s, NativePath(r, s))
			if errors.Is(err, core.ErrNotSavable) {
				core.LogDebug("%s %q cannot be saved right now: %s", rt, r.Path(), err)
				continue
			}
			if err != nil {
				core.LogError("failed to save %s %q: %s", rt, r.Path(), err)
				errs = multierr.Append(errs, fmt.Errorf("save %q: %w", r.Path(), err))
			}
		}
	}
	return errs
}

// Save writes the resource behind h to path, relative to the cache root.
func (c *Cache) Save(h Handle, path string) error {
	r, ok := c.Resolve(h)
	if !ok {
		return fmt.Errorf("%w: %s does not resolve", core.ErrInvalidParameter, h)
	}
	s, ok := r.(Saver)
	if !ok {
		return fmt.Errorf("%w: %s %q", core.ErrNotSavable, r.Type(), r.Path())
	}
	return c.save(r, s, path)
}

func (c *Cache) save(r Resource, s Saver, path string) error {
	if sc, ok := s.(SaveChecker); ok {
		if err := sc.CanSave(); err != nil {
			return err
		}
	}
	full := path
	if c.root != "" && !filepath.IsAbs(path) {
		full = filepath.Join(c.root, filepath.FromSlash(path))
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return s.SaveToFile(full)
}

// Repath moves the resource behind h to a new path, keeping its identity.
func (c *Cache) Repath(h Handle, path string) error {
	r, ok := c.Resolve(h)
	if !ok {
		return fmt.Errorf("%w: %s does not resolve", core.ErrInvalidParameter, h)
	}
	if path == "" {
		return fmt.Errorf("%w: empty path", core.ErrInvalidParameter)
	}
	if path == r.Path() {
		return nil
	}
	if _, taken := c.byPath[path]; taken {
		return fmt.Errorf("%w: %q is already cached", core.ErrInvalidParameter, path)
	}

	name := r.Name()
	delete(c.byPath, r.Path())
	r.SetPath(path)
	c.byPath[path] = h.index
	if r.Name() != name {
		c.unindexName(name, h.index)
		c.indexName(r.Name(), h.index)
	}
	return nil
}

// Remove drops the resource cached under path and releases it.
func (c *Cache) Remove(path string) bool {
	idx, ok := c.byPath[path]
	if !ok {
		return false
	}
	rt := c.slots[idx].resource.Type()
	c.evict(idx)
	c.byType[rt] = slices.DeleteFunc(c.byType[rt], func(i uint32) bool {
		return i == idx
	})
	c.free = append(c.free, idx)
	c.slots[idx].resource = nil
	return true
}

// Clear drops every resource, releasing device objects right away. Handles
// taken before Clear never resolve again. It returns how many resources
// were dropped.
func (c *Cache) Clear() int {
	n := 0
	for idx := range c.slots {
		if c.slots[idx].resource == nil {
			continue
		}
		c.evict(uint32(idx))
		c.slots[idx].resource = nil
		c.free = append(c.free, uint32(idx))
		n++
	}
	for t := range c.byType {
		c.byType[t] = nil
	}
	clear(c.byID)
	clear(c.byName)
	clear(c.byPath)
	return n
}

// evict unindexes and releases a slot's resource. The caller frees the slot.
func (c *Cache) evict(idx uint32) {
	s := &c.slots[idx]
	r := s.resource
	delete(c.byID, r.ID())
	delete(c.byPath, r.Path())
	c.unindexName(r.Name(), idx)
	if rel, ok := r.(Releaser); ok {
		rel.Release()
	}
	// outstanding handles must stop resolving
	s.generation++
}

func (c *Cache) handle(idx uint32) Handle {
	return Handle{index: idx, generation: c.slots[idx].generation}
}

// indexName keeps the first resource registered under a name. Paths stay
// authoritative for files sharing a stem in different directories.
func (c *Cache) indexName(name string, idx uint32) {
	if name == "" {
		return
	}
	if _, taken := c.byName[name]; !taken {
		c.byName[name] = idx
	}
}

// unindexName drops idx from the name index. The name passes to the oldest
// other resource still cached under it.
func (c *Cache) unindexName(name string, idx uint32) {
	if cur, ok := c.byName[name]; !ok || cur != idx {
		return
	}
	delete(c.byName, name)

	var next Resource
	for i := range c.slots {
		r := c.slots[i].resource
		if uint32(i) == idx || r == nil || r.Name() != name {
			continue
		}
		if next == nil || r.ID() < next.ID() {
			next = r
			c.byName[name] = uint32(i)
		}
	}
}
