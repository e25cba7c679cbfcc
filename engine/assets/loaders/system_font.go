package loaders

import (
	"fmt"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// FontParams selects the rasterization size used for metrics.
type FontParams struct {
	Size float64
	DPI  float64
}

// SystemFontLoader imports TrueType and OpenType fonts and collections.
type SystemFontLoader struct {
	Read     ReadFunc
	Defaults FontParams
}

func (fl *SystemFontLoader) Load(path string, params interface{}) (*Asset, error) {
	p := fl.Defaults
	if override, ok := params.(FontParams); ok {
		p = override
	}
	if p.Size <= 0 {
		p.Size = 16
	}
	if p.DPI <= 0 {
		p.DPI = 72
	}

	fontBytes, err := readWith(fl.Read, path)
	if err != nil {
		return nil, err
	}
	rd, err := parseOutlineFont(fontBytes, p)
	if err != nil {
		return nil, fmt.Errorf("parse font %q: %w", path, err)
	}
	if rd.Face == "" {
		rd.Face = nameOf(path)
	}
	return &Asset{
		Name:     rd.Face,
		FullPath: path,
		DataSize: rd.MemoryUsage(),
		Data:     rd,
	}, nil
}

func parseOutlineFont(fontBytes []byte, p FontParams) (*FontData, error) {
	collection, err := opentype.ParseCollection(fontBytes)
	if err != nil {
		return nil, err
	}
	if collection.NumFonts() == 0 {
		return nil, fmt.Errorf("font collection is empty")
	}

	rd := &FontData{
		Kind:   FontKindOutline,
		Size:   uint32(p.Size),
		Binary: fontBytes,
	}
	var buf sfnt.Buffer
	for i := 0; i < collection.NumFonts(); i++ {
		f, err := collection.Font(i)
		if err != nil {
			return nil, err
		}
		name, err := f.Name(&buf, sfnt.NameIDFull)
		if err != nil {
			name = fmt.Sprintf("face_%d", i)
		}
		rd.Faces = append(rd.Faces, name)

		if i != 0 {
			continue
		}
		rd.Face = name
		face, err := opentype.NewFace(f, &opentype.FaceOptions{
			Size:    p.Size,
			DPI:     p.DPI,
			Hinting: font.HintingNone,
		})
		if err != nil {
			return nil, err
		}
		m := face.Metrics()
		rd.LineHeight = int32(m.Height.Ceil())
		rd.Baseline = int32(m.Ascent.Ceil())
		face.Close()
	}
	return rd, nil
}
