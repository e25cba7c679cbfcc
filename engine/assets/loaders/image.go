package loaders

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/spaghettifunk/anima-assets/engine/renderer"
)

/**
 * @brief A structure to hold image resource data.
 */
type ImageData struct {
	Width    uint32
	Height   uint32
	Channels uint32
	Format   renderer.Format
	/** @brief Pixel data per mip level, largest first, tightly packed rows. */
	Mips [][]byte
}

// Size returns the bytes held by all levels.
func (d *ImageData) Size() uint64 {
	var n uint64
	for _, m := range d.Mips {
		n += uint64(len(m))
	}
	return n
}

/** @brief Parameters used when loading an image. */
type ImageParams struct {
	/** @brief Indicates if the image should be flipped on the y-axis when loaded. */
	FlipY bool
	/** @brief Build the whole mip chain on the CPU instead of leaving it to the device. */
	GenerateMips bool
}

// ImageLoader decodes png, jpeg, gif, bmp, tiff and webp files. Grayscale
// images stay single channel, everything else becomes 8-bit RGBA with
// straight alpha.
type ImageLoader struct {
	Read     ReadFunc
	Defaults ImageParams
}

func (il *ImageLoader) Load(path string, params interface{}) (*Asset, error) {
	p := il.Defaults
	if override, ok := params.(ImageParams); ok {
		p = override
	}

	raw, err := readWith(il.Read, path)
	if err != nil {
		return nil, err
	}
	data, err := DecodeImage(raw, p)
	if err != nil {
		return nil, fmt.Errorf("decode image %q: %w", path, err)
	}
	return &Asset{
		Name:     nameOf(path),
		FullPath: path,
		DataSize: data.Size(),
		Data:     data,
	}, nil
}

// DecodeImage turns encoded image bytes into ImageData.
func DecodeImage(raw []byte, p ImageParams) (*ImageData, error) {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	b := src.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("image has no pixels")
	}

	var base draw.Image
	var channels uint32
	switch src.(type) {
	case *image.Gray, *image.Gray16:
		base = image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		channels = 1
	default:
		base = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		channels = 4
	}
	draw.Draw(base, base.Bounds(), src, b.Min, draw.Src)

	if p.FlipY {
		flipRows(pixels(base), b.Dx()*int(channels), b.Dy())
	}

	levels := []draw.Image{base}
	if p.GenerateMips {
		levels = mipChain(base)
	}

	data := &ImageData{
		Width:    uint32(b.Dx()),
		Height:   uint32(b.Dy()),
		Channels: channels,
		Format:   renderer.FormatFromChannels(channels, 8),
		Mips:     make([][]byte, len(levels)),
	}
	for i, l := range levels {
		data.Mips[i] = pixels(l)
	}
	return data, nil
}

func mipChain(base draw.Image) []draw.Image {
	out := []draw.Image{base}
	prev := base
	for {
		pb := prev.Bounds()
		if pb.Dx() == 1 && pb.Dy() == 1 {
			return out
		}
		r := image.Rect(0, 0, max(pb.Dx()/2, 1), max(pb.Dy()/2, 1))
		var next draw.Image
		if _, gray := base.(*image.Gray); gray {
			next = image.NewGray(r)
		} else {
			next = image.NewNRGBA(r)
		}
		draw.BiLinear.Scale(next, r, prev, pb, draw.Src, nil)
		out = append(out, next)
		prev = next
	}
}

func pixels(img draw.Image) []byte {
	switch i := img.(type) {
	case *image.NRGBA:
		return i.Pix
	case *image.Gray:
		return i.Pix
	}
	return nil
}

func flipRows(pix []byte, stride, rows int) {
	tmp := make([]byte, stride)
	for top, bottom := 0, rows-1; top < bottom; top, bottom = top+1, bottom-1 {
		t := pix[top*stride : (top+1)*stride]
		b := pix[bottom*stride : (bottom+1)*stride]
		copy(tmp, t)
		copy(t, b)
		copy(b, tmp)
	}
}
