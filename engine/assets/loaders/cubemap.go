package loaders

import (
	"fmt"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// cubemapSuffixes name the faces in +X, -X, +Y, -Y, +Z, -Z order when a
// descriptor does not list them.
var cubemapSuffixes = [6]string{"_r", "_l", "_u", "_d", "_f", "_b"}

// CubemapDescriptor is the TOML content of a .cubemap file.
//
//	faces = ["sky_r.png", "sky_l.png", "sky_u.png", "sky_d.png", "sky_f.png", "sky_b.png"]
//	flip_y = false
//
// Without faces, the faces are <stem>_r<extension> ... <stem>_b<extension>
// next to the descriptor.
type CubemapDescriptor struct {
	Faces     []string `toml:"faces"`
	Extension string   `toml:"extension"`
	FlipY     bool     `toml:"flip_y"`
}

type CubemapData struct {
	Width    uint32
	Height   uint32
	Channels uint32
	/** @brief Faces in +X, -X, +Y, -Y, +Z, -Z order. */
	Faces     []*ImageData
	FacePaths []string
}

func (d *CubemapData) MemoryUsage() uint64 {
	var n uint64
	for _, f := range d.Faces {
		n += f.Size()
	}
	return n
}

// ParseCubemapDescriptor decodes a descriptor and resolves its face paths
// against the directory of path.
func ParseCubemapDescriptor(path string, raw []byte) (*CubemapDescriptor, error) {
	desc := &CubemapDescriptor{}
	if err := toml.Unmarshal(raw, desc); err != nil {
		return nil, fmt.Errorf("cubemap descriptor %q: %w", path, err)
	}
	dir := filepath.Dir(path)
	if len(desc.Faces) == 0 {
		ext := desc.Extension
		if ext == "" {
			ext = ".png"
		}
		stem := nameOf(path)
		for _, s := range cubemapSuffixes {
			desc.Faces = append(desc.Faces, stem+s+ext)
		}
	}
	if len(desc.Faces) != len(cubemapSuffixes) {
		return nil, fmt.Errorf("cubemap descriptor %q lists %d faces, want 6", path, len(desc.Faces))
	}
	for i, f := range desc.Faces {
		if !filepath.IsAbs(f) {
			desc.Faces[i] = filepath.Join(dir, filepath.FromSlash(f))
		}
	}
	return desc, nil
}

// CubemapLoader reads a .cubemap descriptor and its six face images.
type CubemapLoader struct {
	Read   ReadFunc
	Images *ImageLoader
}

func (cl *CubemapLoader) Load(path string, params interface{}) (*Asset, error) {
	raw, err := readWith(cl.Read, path)
	if err != nil {
		return nil, err
	}
	desc, err := ParseCubemapDescriptor(path, raw)
	if err != nil {
		return nil, err
	}

	images := cl.Images
	if images == nil {
		images = &ImageLoader{Read: cl.Read}
	}
	imgParams := ImageParams{FlipY: desc.FlipY}
	if p, ok := params.(ImageParams); ok {
		imgParams = p
	}

	data := &CubemapData{FacePaths: desc.Faces}
	for i, facePath := range desc.Faces {
		a, err := images.Load(facePath, imgParams)
		if err != nil {
			return nil, fmt.Errorf("cubemap %q face %d: %w", path, i, err)
		}
		img := a.Data.(*ImageData)
		if i == 0 {
			data.Width, data.Height, data.Channels = img.Width, img.Height, img.Channels
		} else if img.Width != data.Width || img.Height != data.Height || img.Channels != data.Channels {
			return nil, fmt.Errorf("cubemap %q face %d is %dx%dx%d, face 0 is %dx%dx%d", path, i,
				img.Width, img.Height, img.Channels, data.Width, data.Height, data.Channels)
		}
		data.Faces = append(data.Faces, img)
	}
	if data.Width != data.Height {
		return nil, fmt.Errorf("cubemap %q faces are not square (%dx%d)", path, data.Width, data.Height)
	}

	return &Asset{
		Name:     nameOf(path),
		FullPath: path,
		DataSize: data.MemoryUsage(),
		Data:     data,
	}, nil
}
