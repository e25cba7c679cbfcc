package loaders

import (
	"sort"

	"github.com/fzipp/bmfont"
)

// BitmapFontLoader imports AngelCode .fnt descriptors. The page images are
// loaded by bmfont to validate them but only their file names are kept.
type BitmapFontLoader struct{}

func (fl *BitmapFontLoader) Load(path string, params interface{}) (*Asset, error) {
	rd, err := fl.importFNTFile(path)
	if err != nil {
		return nil, err
	}
	return &Asset{
		Name:     rd.Face,
		FullPath: path,
		DataSize: rd.MemoryUsage(),
		Data:     rd,
	}, nil
}

func (fl *BitmapFontLoader) importFNTFile(fntFileName string) (*FontData, error) {
	font, err := bmfont.Load(fntFileName)
	if err != nil {
		return nil, err
	}
	desc := font.Descriptor

	outData := &FontData{
		Kind:       FontKindBitmap,
		Face:       desc.Info.Face,
		Size:       uint32(desc.Info.Size),
		LineHeight: int32(desc.Common.LineHeight),
		Baseline:   int32(desc.Common.Base),
		AtlasSizeX: int32(desc.Common.ScaleW),
		AtlasSizeY: int32(desc.Common.ScaleH),
		Glyphs:     make([]Glyph, 0, len(desc.Chars)),
		Kernings:   make([]Kerning, 0, len(desc.Kerning)),
		Pages:      make([]string, len(desc.Pages)),
	}
	if outData.Face == "" {
		outData.Face = nameOf(fntFileName)
	}

	for _, p := range desc.Pages {
		if int(p.ID) < len(outData.Pages) {
			outData.Pages[p.ID] = p.File
		}
	}

	for _, g := range desc.Chars {
		outData.Glyphs = append(outData.Glyphs, Glyph{
			Codepoint: rune(g.ID),
			X:         uint16(g.X),
			Y:         uint16(g.Y),
			Width:     uint16(g.Width),
			Height:    uint16(g.Height),
			XOffset:   int16(g.XOffset),
			YOffset:   int16(g.YOffset),
			XAdvance:  int16(g.XAdvance),
			PageID:    uint8(g.Page),
		})
	}
	// map iteration order is random, keep the table stable for saving
	sort.Slice(outData.Glyphs, func(i, j int) bool {
		return outData.Glyphs[i].Codepoint < outData.Glyphs[j].Codepoint
	})

	for p, k := range desc.Kerning {
		outData.Kernings = append(outData.Kernings, Kerning{
			Codepoint0: rune(p.First),
			Codepoint1: rune(p.Second),
			Amount:     int16(k.Amount),
		})
	}
	sort.Slice(outData.Kernings, func(i, j int) bool {
		a, b := outData.Kernings[i], outData.Kernings[j]
		if a.Codepoint0 != b.Codepoint0 {
			return a.Codepoint0 < b.Codepoint0
		}
		return a.Codepoint1 < b.Codepoint1
	})

	return outData, nil
}
