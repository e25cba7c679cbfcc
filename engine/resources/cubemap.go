package resources

import (
	"fmt"

	"github.com/spaghettifunk/anima-assets/engine/assets/loaders"
	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/renderer"
)

const CubemapExtension = ".acube"

type cubemapRecord struct {
	Source string
	Size   uint32
}

// Cubemap is six square faces uploaded as one cube texture.
type Cubemap struct {
	Base

	device   renderer.Device
	importer CubemapImporter
	texture  *renderer.Texture
	pending  *loaders.CubemapData
	source   string
}

func NewCubemap(device renderer.Device, importer CubemapImporter) *Cubemap {
	return &Cubemap{
		Base:     NewBase(ResourceTypeCubemap),
		device:   device,
		importer: importer,
	}
}

func (c *Cubemap) LoadFromFile(path string) error {
	if err := c.Decode(path); err != nil {
		return err
	}
	return c.Upload()
}

// Decode imports a .cubemap descriptor and its faces, or the descriptor a
// .acube file points at.
func (c *Cubemap) Decode(path string) error {
	if c.importer == nil {
		return fmt.Errorf("%w: cubemap %q has no importer", core.ErrInvalidParameter, c.Name())
	}
	src := path
	if isNative(path, CubemapExtension) {
		var rec cubemapRecord
		if err := ReadResourceFile(path, ResourceTypeCubemap, &rec); err != nil {
			return err
		}
		src = resolveSource(path, rec.Source)
	}
	data, err := c.importer.ImportCubemap(src)
	if err != nil {
		return err
	}
	c.pending = data
	c.source = absPath(src)
	return nil
}

func (c *Cubemap) Upload() error {
	data := c.pending
	if data == nil || len(data.Faces) == 0 {
		return fmt.Errorf("%w: cubemap %q has nothing to upload", core.ErrInvalidParameter, c.Name())
	}
	faces := make([][][]byte, len(data.Faces))
	for i, f := range data.Faces {
		faces[i] = f.Mips
	}
	tex := renderer.NewTexture(c.device)
	tex.Name = c.Name()
	if err := tex.BuildTextureCubemap(data.Width, data.Height, data.Channels, data.Faces[0].Format, faces); err != nil {
		return err
	}
	if c.texture != nil {
		c.texture.Release()
	}
	c.texture = tex
	c.pending = nil
	return nil
}

func (c *Cubemap) Texture() *renderer.Texture {
	return c.texture
}

func (c *Cubemap) MemoryUsage() uint64 {
	if c.texture == nil {
		return 0
	}
	return c.texture.Size()
}

func (c *Cubemap) Release() {
	if c.texture != nil {
		c.texture.Release()
	}
	c.pending = nil
}

func (c *Cubemap) NativeExtension() string {
	return CubemapExtension
}

// CanSave fails for cubemaps that were not imported from a file.
func (c *Cubemap) CanSave() error {
	if c.source == "" {
		return fmt.Errorf("%w: cubemap %q was not imported from a file", core.ErrNotSavable, c.Name())
	}
	return nil
}

func (c *Cubemap) SaveToFile(path string) error {
	if err := c.CanSave(); err != nil {
		return err
	}
	rec := cubemapRecord{Source: relativeSource(path, c.source)}
	if c.texture != nil {
		rec.Size = c.texture.Width
	}
	return WriteResourceFile(path, ResourceTypeCubemap, &rec)
}
