package renderer

import (
	"fmt"

	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/math"
)

const (
	// MaxGeneratedMipLevels bounds the chain the device generates from a single level.
	MaxGeneratedMipLevels uint32 = 7
	// MinGeneratedMipDimension is the smallest width or height mips are generated for.
	MinGeneratedMipDimension uint32 = 4
	// CubemapFaceCount is the array size of every cubemap.
	CubemapFaceCount = 6
)

/**
 * @brief A device-resident texture built from a CPU mip chain. The mip
 * chain itself is never retained: once the device has the data the
 * texture only keeps the view.
 */
type Texture struct {
	/** @brief Used to give log lines some context. */
	Name           string
	Width          uint32
	Height         uint32
	Channels       uint32
	BitsPerChannel uint32
	Format         Format
	/** @brief The mip count the device texture was created with. */
	MipLevels uint32
	/** @brief 1 for 2D textures, 6 for cubemaps. */
	ArraySize uint32
	/** @brief When false a single supplied level is never expanded by the device. */
	MipGenerationSupported bool

	autoMips bool
	size     uint64
	device   Device
	view     ShaderResourceView
}

func NewTexture(device Device) *Texture {
	return &Texture{
		device:                 device,
		MipGenerationSupported: true,
	}
}

// BuildTexture2D uploads mipLevels (largest first) and creates a shader
// resource view for them. When a single level is given the device
// generates the rest of the chain.
func (t *Texture) BuildTexture2D(width, height, channels uint32, format Format, mipLevels [][]byte) error {
	if err := t.validate(width, height, channels, format); err != nil {
		return err
	}
	if len(mipLevels) == 0 {
		return fmt.Errorf("%w: texture %q has no mip levels", core.ErrInvalidParameter, t.Name)
	}

	generate := len(mipLevels) == 1 && t.MipGenerationSupported
	if generate && (width < MinGeneratedMipDimension || height < MinGeneratedMipDimension) {
		core.LogWarn("texture %q is %dx%d, mip generation needs at least %dx%d texels, skipping it",
			t.Name, width, height, MinGeneratedMipDimension, MinGeneratedMipDimension)
		generate = false
	}

	texelStride := channels * format.BytesPerChannel()
	initial := make([]Subresource, len(mipLevels))
	size, valid, err := t.collectLevels(initial, 0, 0, width, height, texelStride, mipLevels)
	if err != nil {
		return err
	}
	if valid == 0 {
		return fmt.Errorf("%w: texture %q has no mip level with data", core.ErrInvalidParameter, t.Name)
	}

	desc := &TextureDesc{
		Width:        width,
		Height:       height,
		MipLevels:    uint32(len(mipLevels)),
		ArraySize:    1,
		Format:       format,
		DeviceFormat: format.DeviceFormat(),
		Usage:        UsageImmutable,
		Bind:         BindShaderResource,
	}
	if generate {
		desc.MipLevels = math.Min(MaxGeneratedMipLevels, uint32(math.MipChainLength(width, height)))
		desc.Usage = UsageDefault
		desc.Bind |= BindRenderTarget
		desc.Misc = MiscGenerateMips
		initial = nil
	}

	tex, view, err := t.createResources(desc, initial, ViewDimension2D)
	if err != nil {
		return err
	}
	if generate {
		t.device.UpdateSubresource(tex, 0, mipLevels[0], width*texelStride)
		t.device.GenerateMips(view)
	}
	tex.Release()

	t.commit(desc, channels, view, size, generate)
	return nil
}

// BuildTextureCubemap uploads six faces, each with its own mip chain. Faces
// are ordered +X, -X, +Y, -Y, +Z, -Z. The mip count is taken from face 0 and
// every other non-empty face must match it.
func (t *Texture) BuildTextureCubemap(width, height, channels uint32, format Format, faces [][][]byte) error {
	if err := t.validate(width, height, channels, format); err != nil {
		return err
	}
	if len(faces) == 0 || len(faces) > CubemapFaceCount {
		return fmt.Errorf("%w: cubemap %q has %d faces", core.ErrInvalidParameter, t.Name, len(faces))
	}

	mipCount := len(faces[0])
	if mipCount == 0 {
		return fmt.Errorf("%w: cubemap %q face 0 has no mip levels", core.ErrInvalidParameter, t.Name)
	}
	for face := 1; face < len(faces); face++ {
		if n := len(faces[face]); n != 0 && n != mipCount {
			return fmt.Errorf("%w: cubemap %q face %d has %d mip levels, face 0 has %d",
				core.ErrInvalidParameter, t.Name, face, n, mipCount)
		}
	}

	texelStride := channels * format.BytesPerChannel()
	initial := make([]Subresource, CubemapFaceCount*mipCount)
	var size uint64
	var valid int
	for face := 0; face < CubemapFaceCount; face++ {
		if face >= len(faces) || len(faces[face]) == 0 {
			core.LogWarn("%v: cubemap %q face %d is empty, skipping it", core.ErrPerLevelDataMissing, t.Name, face)
			continue
		}
		s, v, err := t.collectLevels(initial, uint32(face), uint32(mipCount), width, height, texelStride, faces[face])
		if err != nil {
			return err
		}
		size += s
		valid += v
	}
	if valid == 0 {
		return fmt.Errorf("%w: cubemap %q has no mip level with data", core.ErrInvalidParameter, t.Name)
	}

	desc := &TextureDesc{
		Width:        width,
		Height:       height,
		MipLevels:    uint32(mipCount),
		ArraySize:    CubemapFaceCount,
		Format:       format,
		DeviceFormat: format.DeviceFormat(),
		Usage:        UsageImmutable,
		Bind:         BindShaderResource,
		Misc:         MiscTextureCube,
	}

	tex, view, err := t.createResources(desc, initial, ViewDimensionCube)
	if err != nil {
		return err
	}
	tex.Release()

	t.commit(desc, channels, view, size, false)
	return nil
}

// Release frees the device view. Calling it more than once is harmless.
func (t *Texture) Release() {
	if t.view == nil {
		return
	}
	t.view.Release()
	t.view = nil
	t.size = 0
}

// View returns the shader resource view, nil until a build succeeded.
func (t *Texture) View() ShaderResourceView {
	return t.view
}

// Size returns the number of bytes consumed from the supplied mip data.
func (t *Texture) Size() uint64 {
	return t.size
}

func (t *Texture) IsCubemap() bool {
	return t.ArraySize == CubemapFaceCount
}

// AutoMipsRequested reports whether the last build asked the device to generate mips.
func (t *Texture) AutoMipsRequested() bool {
	return t.autoMips
}

func (t *Texture) validate(width, height, channels uint32, format Format) error {
	if t.device == nil || !t.device.IsAlive() {
		return fmt.Errorf("%w: texture %q has no live device", core.ErrInvalidParameter, t.Name)
	}
	if width == 0 || height == 0 || channels == 0 {
		return fmt.Errorf("%w: texture %q is %dx%d with %d channels", core.ErrInvalidParameter, t.Name, width, height, channels)
	}
	if !format.IsValid() {
		return fmt.Errorf("%w: texture %q has format %s", core.ErrInvalidParameter, t.Name, format)
	}
	return nil
}

// collectLevels fills the initial data of one array layer. Every level keeps
// the extent of its position in the chain, even when an earlier one is skipped.
// An empty level is skipped, a level shorter than its extent fails the build.
func (t *Texture) collectLevels(initial []Subresource, layer, mipCount, width, height, texelStride uint32, levels [][]byte) (size uint64, valid int, err error) {
	for i, data := range levels {
		w := math.MipExtent(width, i)
		h := math.MipExtent(height, i)
		if len(data) == 0 {
			core.LogError("%v: texture %q layer %d level %d (%dx%d), skipping it",
				core.ErrPerLevelDataMissing, t.Name, layer, i, w, h)
			continue
		}
		rowPitch := w * texelStride
		if want := uint64(rowPitch) * uint64(h); uint64(len(data)) < want {
			return 0, 0, fmt.Errorf("%w: texture %q layer %d level %d (%dx%d) has %d bytes, needs %d",
				core.ErrInvalidParameter, t.Name, layer, i, w, h, len(data), want)
		}
		initial[SubresourceIndex(layer, uint32(i), mipCount)] = Subresource{
			Data:     data,
			RowPitch: rowPitch,
		}
		size += uint64(len(data))
		valid++
	}
	return size, valid, nil
}

func (t *Texture) createResources(desc *TextureDesc, initial []Subresource, dim ViewDimension) (DeviceTexture, ShaderResourceView, error) {
	tex, err := t.device.CreateTexture2D(desc, initial)
	if err != nil {
		core.LogError("failed to create texture %q (%dx%d, %s, %d mips)", t.Name, desc.Width, desc.Height, desc.Format, desc.MipLevels)
		return nil, nil, fmt.Errorf("%w: texture %q: %w", core.ErrDeviceResourceCreationFailed, t.Name, err)
	}

	view, err := t.device.CreateShaderResourceView(tex, &ViewDesc{
		Format:          desc.Format,
		Dimension:       dim,
		MostDetailedMip: 0,
		MipLevels:       desc.MipLevels,
		ArraySize:       desc.ArraySize,
	})
	if err != nil {
		tex.Release()
		core.LogError("failed to create shader resource view for texture %q (%dx%d, %s)", t.Name, desc.Width, desc.Height, desc.Format)
		return nil, nil, fmt.Errorf("%w: texture %q: %w", core.ErrDeviceViewCreationFailed, t.Name, err)
	}
	return tex, view, nil
}

func (t *Texture) commit(desc *TextureDesc, channels uint32, view ShaderResourceView, size uint64, autoMips bool) {
	// a rebuild replaces the previous view
	t.Release()

	t.Width = desc.Width
	t.Height = desc.Height
	t.Channels = channels
	t.Format = desc.Format
	t.BitsPerChannel = desc.Format.BitsPerChannel()
	t.MipLevels = desc.MipLevels
	t.ArraySize = desc.ArraySize
	t.view = view
	t.size = size
	t.autoMips = autoMips
}
