package resources

import (
	"fmt"
	"path"
	"strings"

	"github.com/spaghettifunk/anima-assets/engine/core"
)

// Resource is any engine asset the cache can own. Concrete types embed Base
// and opt into behaviour through the capability interfaces below.
type Resource interface {
	ID() uint64
	Type() ResourceType
	Path() string
	Name() string
	SetPath(path string)
	SetName(name string)
	LoadState() LoadState
	SetLoadState(state LoadState) error
}

// Loader reads and fully materializes a resource from a file.
type Loader interface {
	LoadFromFile(path string) error
}

// Decoder is the part of loading that only touches the CPU and may run on
// a worker goroutine.
type Decoder interface {
	Decode(path string) error
}

// Uploader finishes a Decode on the goroutine that owns the device.
type Uploader interface {
	Upload() error
}

// Saver persists a resource in its native format.
type Saver interface {
	SaveToFile(path string) error
	NativeExtension() string
}

// SaveChecker is implemented by savers that can only be saved in some
// states. CanSave returns an error wrapping core.ErrNotSavable otherwise.
type SaveChecker interface {
	CanSave() error
}

// Sizer reports the bytes a resource keeps alive.
type Sizer interface {
	MemoryUsage() uint64
}

// Releaser frees device objects. Called once when the cache drops a resource.
type Releaser interface {
	Release()
}

/**
 * @brief Identity, location and load state shared by every resource.
 */
type Base struct {
	id           uint64
	resourceType ResourceType
	path         string
	name         string
	state        LoadState
}

func NewBase(resourceType ResourceType) Base {
	return Base{
		id:           core.IdentifierAquireNewID(),
		resourceType: resourceType,
		state:        LoadStateIdle,
	}
}

func (b *Base) ID() uint64 {
	return b.id
}

func (b *Base) Type() ResourceType {
	return b.resourceType
}

func (b *Base) Path() string {
	return b.path
}

func (b *Base) Name() string {
	return b.name
}

// SetPath moves the resource and re-derives its name from the new path.
func (b *Base) SetPath(p string) {
	b.path = p
	b.name = NameFromPath(p)
}

// SetName renames the resource without touching its path.
func (b *Base) SetName(name string) {
	b.name = name
}

func (b *Base) LoadState() LoadState {
	return b.state
}

func (b *Base) SetLoadState(state LoadState) error {
	if !b.state.canMoveTo(state) {
		return fmt.Errorf("%w: %s -> %s", core.ErrInvalidStateTransition, b.state, state)
	}
	b.state = state
	return nil
}

// NameFromPath returns the file name of p without directory or extension.
func NameFromPath(p string) string {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

// NativePath returns where a Saver persists r: its own path with the
// extension swapped for the native one.
func NativePath(r Resource, s Saver) string {
	p := r.Path()
	ext := path.Ext(p)
	if ext == s.NativeExtension() {
		return p
	}
	return strings.TrimSuffix(p, ext) + s.NativeExtension()
}
