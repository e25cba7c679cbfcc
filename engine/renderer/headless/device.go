// Package headless implements renderer.Device on the CPU. It keeps real
// texel storage so uploads, mip generation and releases can be observed
// without a GPU.
package headless

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"golang.org/x/image/draw"

	"github.com/spaghettifunk/anima-assets/engine/math"
	"github.com/spaghettifunk/anima-assets/engine/renderer"
)

var (
	ErrDeviceLost         = errors.New("headless: device lost")
	ErrInvalidDescriptor  = errors.New("headless: invalid texture descriptor")
	ErrInjectedFailure    = errors.New("headless: injected failure")
	ErrForeignTexture     = errors.New("headless: texture was not created by this device")
	ErrInitialDataMissing = errors.New("headless: immutable texture needs initial data")
)

type Device struct {
	// FailTextureCreation makes every CreateTexture2D call fail.
	FailTextureCreation bool
	// FailViewCreation makes every CreateShaderResourceView call fail.
	FailViewCreation bool

	mu           sync.Mutex
	lost         bool
	liveTextures int
	liveViews    int
	created      int
	mipPasses    int
	updates      int
}

func New() *Device {
	return &Device{}
}

type texture struct {
	dev  *Device
	desc renderer.TextureDesc
	// one buffer per subresource, layer-major
	levels [][]byte
	refs   int
}

func (t *texture) Release() {
	t.dev.unref(t)
}

type view struct {
	dev      *Device
	tex      *texture
	desc     renderer.ViewDesc
	released bool
}

func (v *view) Release() {
	v.dev.mu.Lock()
	if v.released {
		v.dev.mu.Unlock()
		return
	}
	v.released = true
	v.dev.liveViews--
	v.dev.mu.Unlock()
	v.tex.Release()
}

func (d *Device) IsAlive() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.lost
}

// Lose simulates a device removal. Every later call fails.
func (d *Device) Lose() {
	d.mu.Lock()
	d.lost = true
	d.mu.Unlock()
}

func (d *Device) CreateTexture2D(desc *renderer.TextureDesc, initial []renderer.Subresource) (renderer.DeviceTexture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.lost {
		return nil, ErrDeviceLost
	}
	if d.FailTextureCreation {
		return nil, ErrInjectedFailure
	}
	if err := validateDesc(desc); err != nil {
		return nil, err
	}
	count := int(desc.MipLevels * desc.ArraySize)
	if desc.Usage == renderer.UsageImmutable && len(initial) != count {
		return nil, fmt.Errorf("%w: got %d subresources, want %d", ErrInitialDataMissing, len(initial), count)
	}

	tex := &texture{
		dev:    d,
		desc:   *desc,
		levels: make([][]byte, count),
		refs:   1,
	}
	texel := int(desc.Format.BytesPerTexel())
	for layer := uint32(0); layer < desc.ArraySize; layer++ {
		for level := uint32(0); level < desc.MipLevels; level++ {
			idx := renderer.SubresourceIndex(layer, level, desc.MipLevels)
			w := int(math.MipExtent(desc.Width, int(level)))
			h := int(math.MipExtent(desc.Height, int(level)))
			tex.levels[idx] = make([]byte, w*h*texel)
			if int(idx) < len(initial) && initial[idx].Data != nil {
				copyRows(tex.levels[idx], w*texel, h, initial[idx].Data, int(initial[idx].RowPitch))
			}
		}
	}

	d.liveTextures++
	d.created++
	return tex, nil
}

func (d *Device) CreateShaderResourceView(tex renderer.DeviceTexture, desc *renderer.ViewDesc) (renderer.ShaderResourceView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.lost {
		return nil, ErrDeviceLost
	}
	if d.FailViewCreation {
		return nil, ErrInjectedFailure
	}
	t, ok := tex.(*texture)
	if !ok || t.dev != d || t.refs == 0 {
		return nil, ErrForeignTexture
	}
	if t.desc.Bind&renderer.BindShaderResource == 0 {
		return nil, fmt.Errorf("%w: texture is not bindable as a shader resource", ErrInvalidDescriptor)
	}
	if desc.Dimension == renderer.ViewDimensionCube && t.desc.Misc&renderer.MiscTextureCube == 0 {
		return nil, fmt.Errorf("%w: cube view of a non-cube texture", ErrInvalidDescriptor)
	}

	t.refs++
	d.liveViews++
	return &view{dev: d, tex: t, desc: *desc}, nil
}

func (d *Device) UpdateSubresource(tex renderer.DeviceTexture, subresource uint32, data []byte, rowPitch uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := tex.(*texture)
	if d.lost || !ok || t.refs == 0 || int(subresource) >= len(t.levels) {
		return
	}
	level := subresource % t.desc.MipLevels
	w := int(math.MipExtent(t.desc.Width, int(level)))
	h := int(math.MipExtent(t.desc.Height, int(level)))
	copyRows(t.levels[subresource], w*int(t.desc.Format.BytesPerTexel()), h, data, int(rowPitch))
	d.updates++
}

// GenerateMips fills every level below the most detailed one from the level
// above it.
func (d *Device) GenerateMips(srv renderer.ShaderResourceView) {
	d.mu.Lock()
	defer d.mu.Unlock()

	v, ok := srv.(*view)
	if d.lost || !ok || v.released || v.tex.desc.Misc&renderer.MiscGenerateMips == 0 {
		return
	}
	t := v.tex
	for layer := uint32(0); layer < t.desc.ArraySize; layer++ {
		for level := uint32(1); level < t.desc.MipLevels; level++ {
			src := renderer.SubresourceIndex(layer, level-1, t.desc.MipLevels)
			dst := renderer.SubresourceIndex(layer, level, t.desc.MipLevels)
			downsample(t.desc, level, t.levels[src], t.levels[dst])
		}
	}
	d.mipPasses++
}

// LiveTextures returns how many texture objects still hold storage.
func (d *Device) LiveTextures() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.liveTextures
}

// LiveViews returns how many views have not been released.
func (d *Device) LiveViews() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.liveViews
}

// Created returns how many texture objects were ever created.
func (d *Device) Created() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.created
}

// MipPasses returns how many GenerateMips calls did work.
func (d *Device) MipPasses() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mipPasses
}

// ReadLevel returns a copy of one subresource of the texture behind a view.
func (d *Device) ReadLevel(srv renderer.ShaderResourceView, layer, level uint32) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	v, ok := srv.(*view)
	if !ok || v.released || layer >= v.tex.desc.ArraySize || level >= v.tex.desc.MipLevels {
		return nil, false
	}
	src := v.tex.levels[renderer.SubresourceIndex(layer, level, v.tex.desc.MipLevels)]
	out := make([]byte, len(src))
	copy(out, src)
	return out, true
}

// Describe returns the descriptor the texture behind a view was created with.
func (d *Device) Describe(srv renderer.ShaderResourceView) (renderer.TextureDesc, bool) {
	v, ok := srv.(*view)
	if !ok {
		return renderer.TextureDesc{}, false
	}
	return v.tex.desc, true
}

func (d *Device) unref(t *texture) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t.refs == 0 {
		return
	}
	t.refs--
	if t.refs == 0 {
		t.levels = nil
		d.liveTextures--
	}
}

func validateDesc(desc *renderer.TextureDesc) error {
	switch {
	case desc == nil:
		return fmt.Errorf("%w: nil", ErrInvalidDescriptor)
	case desc.Width == 0 || desc.Height == 0:
		return fmt.Errorf("%w: %dx%d", ErrInvalidDescriptor, desc.Width, desc.Height)
	case !desc.Format.IsValid():
		return fmt.Errorf("%w: format %s", ErrInvalidDescriptor, desc.Format)
	case desc.MipLevels == 0 || int(desc.MipLevels) > math.MipChainLength(desc.Width, desc.Height):
		return fmt.Errorf("%w: %d mip levels for %dx%d", ErrInvalidDescriptor, desc.MipLevels, desc.Width, desc.Height)
	case desc.ArraySize != 1 && desc.ArraySize != renderer.CubemapFaceCount:
		return fmt.Errorf("%w: array size %d", ErrInvalidDescriptor, desc.ArraySize)
	}
	if desc.Misc&renderer.MiscGenerateMips != 0 {
		if desc.Usage != renderer.UsageDefault || desc.Bind&renderer.BindRenderTarget == 0 {
			return fmt.Errorf("%w: mip generation needs a default-usage render target", ErrInvalidDescriptor)
		}
	}
	if desc.Misc&renderer.MiscTextureCube != 0 {
		if desc.ArraySize != renderer.CubemapFaceCount || desc.Width != desc.Height {
			return fmt.Errorf("%w: cubemap must have 6 square faces", ErrInvalidDescriptor)
		}
	}
	return nil
}

func copyRows(dst []byte, dstPitch, rows int, src []byte, srcPitch int) {
	if srcPitch <= 0 {
		srcPitch = dstPitch
	}
	for y := 0; y < rows; y++ {
		so := y * srcPitch
		if so >= len(src) {
			return
		}
		n := math.Min(dstPitch, srcPitch)
		n = math.Min(n, len(src)-so)
		copy(dst[y*dstPitch:], src[so:so+n])
	}
}

func downsample(desc renderer.TextureDesc, level uint32, src, dst []byte) {
	sw := int(math.MipExtent(desc.Width, int(level-1)))
	sh := int(math.MipExtent(desc.Height, int(level-1)))
	dw := int(math.MipExtent(desc.Width, int(level)))
	dh := int(math.MipExtent(desc.Height, int(level)))
	texel := int(desc.Format.BytesPerTexel())

	if desc.Format.Channels() == 4 && desc.Format.BitsPerChannel() == 8 {
		s := &image.RGBA{Pix: src, Stride: sw * 4, Rect: image.Rect(0, 0, sw, sh)}
		d := &image.RGBA{Pix: dst, Stride: dw * 4, Rect: image.Rect(0, 0, dw, dh)}
		draw.BiLinear.Scale(d, d.Rect, s, s.Rect, draw.Src, nil)
		return
	}

	// point sampling for formats image.RGBA cannot describe
	for y := 0; y < dh; y++ {
		sy := math.Min(y*2, sh-1)
		for x := 0; x < dw; x++ {
			sx := math.Min(x*2, sw-1)
			copy(dst[(y*dw+x)*texel:(y*dw+x+1)*texel], src[(sy*sw+sx)*texel:])
		}
	}
}
