package systems

import (
	"fmt"

	"github.com/spaghettifunk/anima-assets/engine/assets/loaders"
	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/renderer"
	"github.com/spaghettifunk/anima-assets/engine/resources"
)

/** @brief The default texture name. */
const DefaultTextureName string = "default"

/** @brief The default diffuse texture name. */
const DefaultDiffuseTextureName string = "default_diffuse"

/** @brief The default specular texture name. */
const DefaultSpecularTextureName string = "default_specular"

/** @brief The default normal texture name. */
const DefaultNormalTextureName string = "default_normal"

// BuiltinTextureDir prefixes the cache path of every generated texture.
const BuiltinTextureDir = "@builtin/textures/"

// DefaultTextures are generated in code so a failed load always has
// something to fall back to.
type DefaultTextures struct {
	Default  resources.Ref[*resources.Texture]
	Diffuse  resources.Ref[*resources.Texture]
	Specular resources.Ref[*resources.Texture]
	Normal   resources.Ref[*resources.Texture]
}

// CreateDefaultTextures uploads the default textures to device and caches
// them under BuiltinTextureDir.
func CreateDefaultTextures(rs *ResourceSystem, device renderer.Device) (*DefaultTextures, error) {
	var dt DefaultTextures
	var err error

	// 256x256 blue/white checkerboard
	if dt.Default, err = createSkeletonTexture(rs, device, DefaultTextureName, 256, func(row, col uint32, px []byte) {
		px[0], px[1], px[2], px[3] = 255, 255, 255, 255
		if row%2 == col%2 {
			px[0], px[1] = 0, 0
		}
	}); err != nil {
		return nil, err
	}
	if dt.Diffuse, err = createSkeletonTexture(rs, device, DefaultDiffuseTextureName, 16, func(_, _ uint32, px []byte) {
		px[0], px[1], px[2], px[3] = 255, 255, 255, 255
	}); err != nil {
		return nil, err
	}
	// no specular
	if dt.Specular, err = createSkeletonTexture(rs, device, DefaultSpecularTextureName, 16, func(_, _ uint32, px []byte) {
		px[3] = 255
	}); err != nil {
		return nil, err
	}
	// every normal points straight up, z
	if dt.Normal, err = createSkeletonTexture(rs, device, DefaultNormalTextureName, 16, func(_, _ uint32, px []byte) {
		px[0], px[1], px[2], px[3] = 128, 128, 255, 255
	}); err != nil {
		return nil, err
	}

	core.LogDebug("Default textures created.")
	return &dt, nil
}

func createSkeletonTexture(rs *ResourceSystem, device renderer.Device, name string, dim uint32, fill func(row, col uint32, px []byte)) (resources.Ref[*resources.Texture], error) {
	const channels = 4
	pixels := make([]byte, dim*dim*channels)
	for row := uint32(0); row < dim; row++ {
		for col := uint32(0); col < dim; col++ {
			i := (row*dim + col) * channels
			fill(row, col, pixels[i:i+channels])
		}
	}

	tex := resources.NewTexture(device, nil)
	tex.SetPath(BuiltinTextureDir + name)
	tex.SetImage(&loaders.ImageData{
		Width:    dim,
		Height:   dim,
		Channels: channels,
		Format:   renderer.FormatRGBA8Unorm,
		Mips:     [][]byte{pixels},
	})
	if err := tex.Upload(); err != nil {
		return resources.Ref[*resources.Texture]{}, fmt.Errorf("default texture %q: %w", name, err)
	}
	return Add(rs, tex)
}

// LoadOrDefault loads path as a T and falls back to fallback when the
// import fails. The second result reports whether path itself loaded.
func LoadOrDefault[T resources.Resource](rs *ResourceSystem, path string, fallback resources.Ref[T]) (resources.Ref[T], bool) {
	ref, err := Load[T](rs, path)
	if err != nil {
		core.LogWarn("using the fallback for %q: %s", path, err)
		return fallback, false
	}
	return ref, true
}
