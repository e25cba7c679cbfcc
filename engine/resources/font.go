package resources

import (
	"fmt"

	"github.com/spaghettifunk/anima-assets/engine/assets/loaders"
	"github.com/spaghettifunk/anima-assets/engine/core"
)

const FontExtension = ".afont"

// Font holds glyph metrics of a bitmap font, or the raw file of an outline font.
type Font struct {
	Base

	importer FontImporter
	data     *loaders.FontData
}

func NewFont(importer FontImporter) *Font {
	return &Font{
		Base:     NewBase(ResourceTypeFont),
		importer: importer,
	}
}

func (f *Font) LoadFromFile(path string) error {
	return f.Decode(path)
}

func (f *Font) Decode(path string) error {
	if isNative(path, FontExtension) {
		data := &loaders.FontData{}
		if err := ReadResourceFile(path, ResourceTypeFont, data); err != nil {
			return err
		}
		f.data = data
		return nil
	}
	if f.importer == nil {
		return fmt.Errorf("%w: font %q has no importer", core.ErrInvalidParameter, f.Name())
	}
	data, err := f.importer.ImportFont(path)
	if err != nil {
		return err
	}
	f.data = data
	return nil
}

func (f *Font) Data() *loaders.FontData {
	return f.data
}

// Glyph returns the metrics of codepoint, false when the font lacks it or
// is an outline font.
func (f *Font) Glyph(codepoint rune) (loaders.Glyph, bool) {
	if f.data == nil {
		return loaders.Glyph{}, false
	}
	for _, g := range f.data.Glyphs {
		if g.Codepoint == codepoint {
			return g, true
		}
	}
	return loaders.Glyph{}, false
}

func (f *Font) MemoryUsage() uint64 {
	if f.data == nil {
		return 0
	}
	return f.data.MemoryUsage()
}

func (f *Font) Release() {
	f.data = nil
}

func (f *Font) NativeExtension() string {
	return FontExtension
}

func (f *Font) SaveToFile(path string) error {
	if f.data == nil {
		return fmt.Errorf("%w: font %q is not loaded", core.ErrNotSavable, f.Name())
	}
	return WriteResourceFile(path, ResourceTypeFont, f.data)
}
