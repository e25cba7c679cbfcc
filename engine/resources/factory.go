package resources

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/renderer"
)

// Deps are what the built-in resource types are created with.
type Deps struct {
	Device   renderer.Device
	Importer Importer
}

// NewResource creates an empty resource of type t.
func NewResource(t ResourceType, d Deps) (Resource, error) {
	switch t {
	case ResourceTypeTexture:
		return NewTexture(d.Device, d.Importer), nil
	case ResourceTypeCubemap:
		return NewCubemap(d.Device, d.Importer), nil
	case ResourceTypeModel:
		return NewModel(d.Importer), nil
	case ResourceTypeFont:
		return NewFont(d.Importer), nil
	case ResourceTypeShader:
		return NewShader(d.Importer), nil
	}
	return nil, fmt.Errorf("%w: %s", core.ErrUnknownResourceType, t)
}

func isNative(path, ext string) bool {
	return strings.EqualFold(filepath.Ext(path), ext)
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// relativeSource returns source relative to the directory of the file at
// path, slash separated, or source itself when no relative path exists.
func relativeSource(path, source string) string {
	rel, err := filepath.Rel(filepath.Dir(absPath(path)), source)
	if err != nil {
		return filepath.ToSlash(source)
	}
	return filepath.ToSlash(rel)
}

func resolveSource(path, source string) string {
	src := filepath.FromSlash(source)
	if filepath.IsAbs(src) {
		return src
	}
	return filepath.Join(filepath.Dir(path), src)
}
