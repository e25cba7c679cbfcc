package renderer_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/renderer"
	"github.com/spaghettifunk/anima-assets/engine/renderer/headless"
)

func level(w, h, texel int, fill byte) []byte {
	return bytes.Repeat([]byte{fill}, w*h*texel)
}

func chain(w, h, texel, n int) [][]byte {
	out := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, level(w, h, texel, byte(i+1)))
		w = max(w/2, 1)
		h = max(h/2, 1)
	}
	return out
}

func TestBuildTexture2DGeneratesMips(t *testing.T) {
	dev := headless.New()
	tex := renderer.NewTexture(dev)

	err := tex.BuildTexture2D(256, 256, 4, renderer.FormatRGBA8Unorm, [][]byte{level(256, 256, 4, 0x80)})
	require.NoError(t, err)

	assert.True(t, tex.AutoMipsRequested())
	assert.Equal(t, uint32(7), tex.MipLevels)
	assert.Equal(t, uint64(256*256*4), tex.Size())
	require.NotNil(t, tex.View())
	assert.Equal(t, 1, dev.MipPasses())

	desc, ok := dev.Describe(tex.View())
	require.True(t, ok)
	assert.Equal(t, renderer.UsageDefault, desc.Usage)
	assert.Equal(t, renderer.BindShaderResource|renderer.BindRenderTarget, desc.Bind)
	assert.Equal(t, renderer.MiscGenerateMips, desc.Misc)

	// the generated levels carry the base colour down the chain
	smallest, ok := dev.ReadLevel(tex.View(), 0, 6)
	require.True(t, ok)
	assert.Len(t, smallest, 4*4*4)
	assert.Equal(t, byte(0x80), smallest[0])
}

func TestBuildTexture2DTooSmallForMipGeneration(t *testing.T) {
	dev := headless.New()
	tex := renderer.NewTexture(dev)

	err := tex.BuildTexture2D(2, 2, 4, renderer.FormatRGBA8Unorm, [][]byte{level(2, 2, 4, 1)})
	require.NoError(t, err)

	assert.False(t, tex.AutoMipsRequested())
	assert.Equal(t, uint32(1), tex.MipLevels)
	assert.Equal(t, 0, dev.MipPasses())

	desc, _ := dev.Describe(tex.View())
	assert.Equal(t, renderer.UsageImmutable, desc.Usage)
	assert.Equal(t, renderer.BindShaderResource, desc.Bind)
}

func TestBuildTexture2DSmallDimensionThreshold(t *testing.T) {
	for _, tc := range []struct {
		w, h     uint32
		autoMips bool
	}{
		{4, 4, true},
		{3, 64, false},
		{64, 3, false},
		{4, 64, true},
	} {
		dev := headless.New()
		tex := renderer.NewTexture(dev)
		err := tex.BuildTexture2D(tc.w, tc.h, 1, renderer.FormatR8Unorm, [][]byte{level(int(tc.w), int(tc.h), 1, 9)})
		require.NoError(t, err)
		assert.Equal(t, tc.autoMips, tex.AutoMipsRequested(), "%dx%d", tc.w, tc.h)
	}
}

func TestBuildTexture2DMipGenerationUnsupported(t *testing.T) {
	tex := renderer.NewTexture(headless.New())
	tex.MipGenerationSupported = false

	require.NoError(t, tex.BuildTexture2D(64, 64, 4, renderer.FormatRGBA8Unorm, [][]byte{level(64, 64, 4, 1)}))
	assert.False(t, tex.AutoMipsRequested())
	assert.Equal(t, uint32(1), tex.MipLevels)
}

func TestBuildTexture2DFullChain(t *testing.T) {
	dev := headless.New()
	tex := renderer.NewTexture(dev)
	mips := chain(16, 8, 4, 5)

	require.NoError(t, tex.BuildTexture2D(16, 8, 4, renderer.FormatRGBA8Unorm, mips))

	assert.False(t, tex.AutoMipsRequested())
	assert.Equal(t, uint32(5), tex.MipLevels)
	var want uint64
	for _, m := range mips {
		want += uint64(len(m))
	}
	assert.Equal(t, want, tex.Size())

	lvl3, ok := dev.ReadLevel(tex.View(), 0, 3)
	require.True(t, ok)
	assert.Equal(t, mips[3], lvl3)
}

func TestBuildTexture2DSkipsEmptyLevels(t *testing.T) {
	dev := headless.New()
	tex := renderer.NewTexture(dev)
	mips := chain(8, 8, 4, 4)
	skipped := len(mips[1])
	mips[1] = nil

	require.NoError(t, tex.BuildTexture2D(8, 8, 4, renderer.FormatRGBA8Unorm, mips))

	var want uint64
	for _, m := range mips {
		want += uint64(len(m))
	}
	assert.Equal(t, want, tex.Size())
	assert.NotZero(t, skipped)
	assert.Equal(t, uint32(4), tex.MipLevels)

	// later levels keep their own extent
	lvl2, _ := dev.ReadLevel(tex.View(), 0, 2)
	assert.Equal(t, mips[2], lvl2)
}

func TestBuildTexture2DInvalidInput(t *testing.T) {
	dev := headless.New()

	t.Run("no mips", func(t *testing.T) {
		err := renderer.NewTexture(dev).BuildTexture2D(4, 4, 4, renderer.FormatRGBA8Unorm, nil)
		assert.ErrorIs(t, err, core.ErrInvalidParameter)
	})

	t.Run("nil device", func(t *testing.T) {
		err := renderer.NewTexture(nil).BuildTexture2D(4, 4, 4, renderer.FormatRGBA8Unorm, [][]byte{level(4, 4, 4, 1)})
		assert.ErrorIs(t, err, core.ErrInvalidParameter)
	})

	t.Run("lost device", func(t *testing.T) {
		lost := headless.New()
		lost.Lose()
		err := renderer.NewTexture(lost).BuildTexture2D(4, 4, 4, renderer.FormatRGBA8Unorm, [][]byte{level(4, 4, 4, 1)})
		assert.ErrorIs(t, err, core.ErrInvalidParameter)
	})

	t.Run("every level empty", func(t *testing.T) {
		err := renderer.NewTexture(dev).BuildTexture2D(4, 4, 4, renderer.FormatRGBA8Unorm, [][]byte{nil, {}})
		assert.ErrorIs(t, err, core.ErrInvalidParameter)
	})

	t.Run("unknown format", func(t *testing.T) {
		err := renderer.NewTexture(dev).BuildTexture2D(4, 4, 4, renderer.FormatUnknown, [][]byte{level(4, 4, 4, 1)})
		assert.ErrorIs(t, err, core.ErrInvalidParameter)
	})

	t.Run("short base level", func(t *testing.T) {
		tex := renderer.NewTexture(dev)
		err := tex.BuildTexture2D(256, 256, 4, renderer.FormatRGBA8Unorm, [][]byte{make([]byte, 16)})
		assert.ErrorIs(t, err, core.ErrInvalidParameter)
		assert.Nil(t, tex.View())
		assert.Zero(t, tex.Size())
	})

	t.Run("short later level", func(t *testing.T) {
		mips := chain(8, 8, 4, 3)
		mips[2] = mips[2][:len(mips[2])-1]
		err := renderer.NewTexture(dev).BuildTexture2D(8, 8, 4, renderer.FormatRGBA8Unorm, mips)
		assert.ErrorIs(t, err, core.ErrInvalidParameter)
	})

	assert.Zero(t, dev.Created())
}

func TestBuildTexture2DDeviceFailures(t *testing.T) {
	t.Run("texture creation", func(t *testing.T) {
		dev := headless.New()
		dev.FailTextureCreation = true
		tex := renderer.NewTexture(dev)

		err := tex.BuildTexture2D(8, 8, 4, renderer.FormatRGBA8Unorm, chain(8, 8, 4, 2))
		assert.ErrorIs(t, err, core.ErrDeviceResourceCreationFailed)
		assert.True(t, errors.Is(err, headless.ErrInjectedFailure))
		assert.Nil(t, tex.View())
		assert.Zero(t, tex.Size())
	})

	t.Run("view creation releases the texture", func(t *testing.T) {
		dev := headless.New()
		dev.FailViewCreation = true
		tex := renderer.NewTexture(dev)

		err := tex.BuildTexture2D(8, 8, 4, renderer.FormatRGBA8Unorm, chain(8, 8, 4, 2))
		assert.ErrorIs(t, err, core.ErrDeviceViewCreationFailed)
		assert.Nil(t, tex.View())
		assert.Equal(t, 1, dev.Created())
		assert.Zero(t, dev.LiveTextures())
		assert.Zero(t, dev.LiveViews())
	})
}

func TestTextureReleaseOnce(t *testing.T) {
	dev := headless.New()
	tex := renderer.NewTexture(dev)
	require.NoError(t, tex.BuildTexture2D(32, 32, 4, renderer.FormatRGBA8Unorm, [][]byte{level(32, 32, 4, 1)}))

	// the view keeps the texture storage alive after the builder dropped its handle
	assert.Equal(t, 1, dev.LiveTextures())
	assert.Equal(t, 1, dev.LiveViews())

	tex.Release()
	tex.Release()
	assert.Zero(t, dev.LiveTextures())
	assert.Zero(t, dev.LiveViews())
	assert.Nil(t, tex.View())
}

func TestTextureRebuildReplacesView(t *testing.T) {
	dev := headless.New()
	tex := renderer.NewTexture(dev)
	require.NoError(t, tex.BuildTexture2D(8, 8, 4, renderer.FormatRGBA8Unorm, chain(8, 8, 4, 1)))
	require.NoError(t, tex.BuildTexture2D(16, 16, 4, renderer.FormatRGBA8Unorm, chain(16, 16, 4, 2)))

	assert.Equal(t, 1, dev.LiveViews())
	assert.Equal(t, uint32(16), tex.Width)
}

func cubeFaces(size, texel, mips int) [][][]byte {
	faces := make([][][]byte, renderer.CubemapFaceCount)
	for i := range faces {
		faces[i] = chain(size, size, texel, mips)
	}
	return faces
}

func TestBuildTextureCubemap(t *testing.T) {
	dev := headless.New()
	tex := renderer.NewTexture(dev)
	faces := cubeFaces(16, 4, 3)

	require.NoError(t, tex.BuildTextureCubemap(16, 16, 4, renderer.FormatRGBA8Unorm, faces))

	assert.True(t, tex.IsCubemap())
	assert.Equal(t, uint32(6), tex.ArraySize)
	assert.Equal(t, uint32(3), tex.MipLevels)
	assert.False(t, tex.AutoMipsRequested())
	assert.Equal(t, uint64(6*(16*16+8*8+4*4)*4), tex.Size())

	desc, _ := dev.Describe(tex.View())
	assert.Equal(t, renderer.UsageImmutable, desc.Usage)
	assert.Equal(t, renderer.MiscTextureCube, desc.Misc)

	face5, ok := dev.ReadLevel(tex.View(), 5, 1)
	require.True(t, ok)
	assert.Equal(t, faces[5][1], face5)
}

func TestBuildTextureCubemapSingleLevelNeverGenerates(t *testing.T) {
	dev := headless.New()
	tex := renderer.NewTexture(dev)
	require.NoError(t, tex.BuildTextureCubemap(64, 64, 4, renderer.FormatRGBA8Unorm, cubeFaces(64, 4, 1)))
	assert.False(t, tex.AutoMipsRequested())
	assert.Equal(t, uint32(1), tex.MipLevels)
	assert.Zero(t, dev.MipPasses())
}

func TestBuildTextureCubemapSkipsEmptyFaces(t *testing.T) {
	dev := headless.New()
	tex := renderer.NewTexture(dev)
	faces := cubeFaces(8, 4, 2)
	faces[2] = nil
	faces[4][1] = nil

	require.NoError(t, tex.BuildTextureCubemap(8, 8, 4, renderer.FormatRGBA8Unorm, faces))
	assert.Equal(t, uint64((5*(8*8+4*4)-4*4)*4), tex.Size())

	t.Run("fewer than six faces", func(t *testing.T) {
		tex := renderer.NewTexture(dev)
		require.NoError(t, tex.BuildTextureCubemap(8, 8, 4, renderer.FormatRGBA8Unorm, cubeFaces(8, 4, 2)[:4]))
		assert.Equal(t, uint32(6), tex.ArraySize)
	})
}

func TestBuildTextureCubemapRejects(t *testing.T) {
	dev := headless.New()

	t.Run("mismatched mip counts", func(t *testing.T) {
		faces := cubeFaces(8, 4, 3)
		faces[3] = faces[3][:2]
		err := renderer.NewTexture(dev).BuildTextureCubemap(8, 8, 4, renderer.FormatRGBA8Unorm, faces)
		assert.ErrorIs(t, err, core.ErrInvalidParameter)
	})

	t.Run("empty collection", func(t *testing.T) {
		err := renderer.NewTexture(dev).BuildTextureCubemap(8, 8, 4, renderer.FormatRGBA8Unorm, nil)
		assert.ErrorIs(t, err, core.ErrInvalidParameter)
	})

	t.Run("seven faces", func(t *testing.T) {
		faces := append(cubeFaces(8, 4, 1), chain(8, 8, 4, 1))
		err := renderer.NewTexture(dev).BuildTextureCubemap(8, 8, 4, renderer.FormatRGBA8Unorm, faces)
		assert.ErrorIs(t, err, core.ErrInvalidParameter)
	})

	t.Run("short face level", func(t *testing.T) {
		faces := cubeFaces(8, 4, 2)
		faces[5][1] = faces[5][1][:8]
		err := renderer.NewTexture(dev).BuildTextureCubemap(8, 8, 4, renderer.FormatRGBA8Unorm, faces)
		assert.ErrorIs(t, err, core.ErrInvalidParameter)
	})

	t.Run("face zero empty", func(t *testing.T) {
		faces := cubeFaces(8, 4, 1)
		faces[0] = nil
		err := renderer.NewTexture(dev).BuildTextureCubemap(8, 8, 4, renderer.FormatRGBA8Unorm, faces)
		assert.ErrorIs(t, err, core.ErrInvalidParameter)
	})

	t.Run("view failure", func(t *testing.T) {
		failing := headless.New()
		failing.FailViewCreation = true
		err := renderer.NewTexture(failing).BuildTextureCubemap(8, 8, 4, renderer.FormatRGBA8Unorm, cubeFaces(8, 4, 1))
		assert.ErrorIs(t, err, core.ErrDeviceViewCreationFailed)
		assert.Zero(t, failing.LiveTextures())
	})

	assert.Zero(t, dev.Created())
}

func TestRowPitchUsesBytesPerChannel(t *testing.T) {
	dev := headless.New()
	tex := renderer.NewTexture(dev)
	mips := chain(4, 4, 16, 3)

	require.NoError(t, tex.BuildTexture2D(4, 4, 4, renderer.FormatRGBA32Float, mips))
	assert.Equal(t, uint32(32), tex.BitsPerChannel)

	lvl1, _ := dev.ReadLevel(tex.View(), 0, 1)
	assert.Equal(t, mips[1], lvl1)
}
