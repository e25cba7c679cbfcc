package loaders

import (
	"fmt"
	"path/filepath"
	"strings"
	"unsafe"
)

type FontKind int

const (
	FontKindBitmap FontKind = iota
	FontKindOutline
)

func (k FontKind) String() string {
	if k == FontKindOutline {
		return "outline"
	}
	return "bitmap"
}

type Glyph struct {
	Codepoint rune
	X         uint16
	Y         uint16
	Width     uint16
	Height    uint16
	XOffset   int16
	YOffset   int16
	XAdvance  int16
	PageID    uint8
}

type Kerning struct {
	Codepoint0 rune
	Codepoint1 rune
	Amount     int16
}

type FontData struct {
	Kind       FontKind
	Face       string
	Size       uint32
	LineHeight int32
	Baseline   int32
	AtlasSizeX int32
	AtlasSizeY int32
	Glyphs     []Glyph
	Kernings   []Kerning
	/** @brief Atlas page image files of a bitmap font. */
	Pages []string
	/** @brief Face names of an outline font collection. */
	Faces []string
	/** @brief The raw font file of an outline font. */
	Binary []byte
}

func (d *FontData) MemoryUsage() uint64 {
	return uint64(len(d.Binary)) +
		uint64(len(d.Glyphs))*uint64(unsafe.Sizeof(Glyph{})) +
		uint64(len(d.Kernings))*uint64(unsafe.Sizeof(Kerning{}))
}

// FontLoader picks the bitmap or outline loader by extension.
type FontLoader struct {
	Bitmap BitmapFontLoader
	System SystemFontLoader
}

func (fl *FontLoader) Load(path string, params interface{}) (*Asset, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".fnt":
		return fl.Bitmap.Load(path, params)
	case ".ttf", ".otf", ".ttc", ".otc":
		return fl.System.Load(path, params)
	}
	return nil, fmt.Errorf("unsupported font format %q", filepath.Ext(path))
}
