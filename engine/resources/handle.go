package resources

import "fmt"

// Handle is a non-owning reference to a cache slot. It stops resolving once
// the resource it pointed at leaves the cache, even if the slot is reused.
// The zero Handle never resolves.
type Handle struct {
	index      uint32
	generation uint32
}

func (h Handle) IsValid() bool {
	return h.generation != 0
}

func (h Handle) String() string {
	if !h.IsValid() {
		return "handle(invalid)"
	}
	return fmt.Sprintf("handle(%d:%d)", h.index, h.generation)
}

// Ref is a typed Handle.
type Ref[T Resource] struct {
	cache  *Cache
	handle Handle
}

func NewRef[T Resource](c *Cache, h Handle) Ref[T] {
	return Ref[T]{cache: c, handle: h}
}

func (r Ref[T]) Handle() Handle {
	return r.handle
}

// IsEmpty reports whether the ref was never bound, e.g. after a failed load.
func (r Ref[T]) IsEmpty() bool {
	return r.cache == nil || !r.handle.IsValid()
}

// Get resolves the reference. It fails when the resource left the cache or
// is not a T.
func (r Ref[T]) Get() (T, bool) {
	var zero T
	if r.IsEmpty() {
		return zero, false
	}
	res, ok := r.cache.Resolve(r.handle)
	if !ok {
		return zero, false
	}
	typed, ok := res.(T)
	return typed, ok
}
