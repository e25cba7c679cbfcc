package resources

import (
	"fmt"

	"github.com/spaghettifunk/anima-assets/engine/assets/loaders"
	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/renderer"
)

const TextureExtension = ".atex"

// textureRecord is what a .atex file holds: import settings plus the source
// image, relative to the .atex file.
type textureRecord struct {
	Source   string
	Params   loaders.ImageParams
	Width    uint32
	Height   uint32
	Channels uint32
	Format   uint8
}

// Texture is an image uploaded to the device as a 2D texture.
type Texture struct {
	Base
	/** @brief Import settings used by the next Decode of a source image. */
	Params loaders.ImageParams

	device   renderer.Device
	importer ImageImporter
	texture  *renderer.Texture
	pending  *loaders.ImageData
	source   string
}

func NewTexture(device renderer.Device, importer ImageImporter) *Texture {
	return &Texture{
		Base:     NewBase(ResourceTypeTexture),
		device:   device,
		importer: importer,
	}
}

func (t *Texture) LoadFromFile(path string) error {
	if err := t.Decode(path); err != nil {
		return err
	}
	return t.Upload()
}

// Decode imports the image at path, or the image a .atex file points at.
func (t *Texture) Decode(path string) error {
	if t.importer == nil {
		return fmt.Errorf("%w: texture %q has no importer", core.ErrInvalidParameter, t.Name())
	}
	src := path
	if isNative(path, TextureExtension) {
		var rec textureRecord
		if err := ReadResourceFile(path, ResourceTypeTexture, &rec); err != nil {
			return err
		}
		src = resolveSource(path, rec.Source)
		t.Params = rec.Params
	}
	img, err := t.importer.ImportImage(src, t.Params)
	if err != nil {
		return err
	}
	t.pending = img
	t.source = absPath(src)
	return nil
}

// SetImage stages CPU pixels for the next Upload, for textures built in code.
func (t *Texture) SetImage(img *loaders.ImageData) {
	t.pending = img
}

// Upload builds the device texture from the decoded image and drops the CPU copy.
func (t *Texture) Upload() error {
	img := t.pending
	if img == nil {
		return fmt.Errorf("%w: texture %q has nothing to upload", core.ErrInvalidParameter, t.Name())
	}
	tex := renderer.NewTexture(t.device)
	tex.Name = t.Name()
	if err := tex.BuildTexture2D(img.Width, img.Height, img.Channels, img.Format, img.Mips); err != nil {
		return err
	}
	if t.texture != nil {
		t.texture.Release()
	}
	t.texture = tex
	t.pending = nil
	return nil
}

// Texture returns the device texture, nil until uploaded.
func (t *Texture) Texture() *renderer.Texture {
	return t.texture
}

// Source returns the absolute path of the image the texture was imported from.
func (t *Texture) Source() string {
	return t.source
}

func (t *Texture) MemoryUsage() uint64 {
	if t.texture == nil {
		return 0
	}
	return t.texture.Size()
}

func (t *Texture) Release() {
	if t.texture != nil {
		t.texture.Release()
	}
	t.pending = nil
}

func (t *Texture) NativeExtension() string {
	return TextureExtension
}

// CanSave fails for textures that were not imported from a file.
func (t *Texture) CanSave() error {
	if t.source == "" {
		return fmt.Errorf("%w: texture %q was not imported from a file", core.ErrNotSavable, t.Name())
	}
	return nil
}

func (t *Texture) SaveToFile(path string) error {
	if err := t.CanSave(); err != nil {
		return err
	}
	rec := textureRecord{
		Source: relativeSource(path, t.source),
		Params: t.Params,
	}
	if t.texture != nil {
		rec.Width, rec.Height = t.texture.Width, t.texture.Height
		rec.Channels = t.texture.Channels
		rec.Format = uint8(t.texture.Format)
	}
	return WriteResourceFile(path, ResourceTypeTexture, &rec)
}
