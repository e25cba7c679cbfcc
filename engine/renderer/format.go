package renderer

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Format is the abstract pixel format of a texture.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatR8Unorm
	FormatRG8Unorm
	FormatRGBA8Unorm
	FormatRGBA8UnormSrgb
	FormatBGRA8Unorm
	FormatR16Float
	FormatRGBA16Float
	FormatR32Float
	FormatRG32Float
	FormatRGBA32Float
	FormatDepth24PlusStencil8

	formatCount
)

type formatInfo struct {
	name           string
	channels       uint32
	bitsPerChannel uint32
	device         gputypes.TextureFormat
}

var formatTable = [formatCount]formatInfo{
	FormatUnknown:             {"Unknown", 0, 0, gputypes.TextureFormatUndefined},
	FormatR8Unorm:             {"R8Unorm", 1, 8, gputypes.TextureFormatR8Unorm},
	FormatRG8Unorm:            {"RG8Unorm", 2, 8, gputypes.TextureFormatRG8Unorm},
	FormatRGBA8Unorm:          {"RGBA8Unorm", 4, 8, gputypes.TextureFormatRGBA8Unorm},
	FormatRGBA8UnormSrgb:      {"RGBA8UnormSrgb", 4, 8, gputypes.TextureFormatRGBA8UnormSrgb},
	FormatBGRA8Unorm:          {"BGRA8Unorm", 4, 8, gputypes.TextureFormatBGRA8Unorm},
	FormatR16Float:            {"R16Float", 1, 16, gputypes.TextureFormatR16Float},
	FormatRGBA16Float:         {"RGBA16Float", 4, 16, gputypes.TextureFormatRGBA16Float},
	FormatR32Float:            {"R32Float", 1, 32, gputypes.TextureFormatR32Float},
	FormatRG32Float:           {"RG32Float", 2, 32, gputypes.TextureFormatRG32Float},
	FormatRGBA32Float:         {"RGBA32Float", 4, 32, gputypes.TextureFormatRGBA32Float},
	FormatDepth24PlusStencil8: {"Depth24PlusStencil8", 2, 16, gputypes.TextureFormatDepth24PlusStencil8},
}

func (f Format) info() formatInfo {
	if f >= formatCount {
		return formatTable[FormatUnknown]
	}
	return formatTable[f]
}

// IsValid reports whether f names a known format.
func (f Format) IsValid() bool {
	return f != FormatUnknown && f < formatCount
}

func (f Format) String() string {
	if f >= formatCount {
		return fmt.Sprintf("Unknown(%d)", uint8(f))
	}
	return formatTable[f].name
}

// Channels returns the number of channels of a texel.
func (f Format) Channels() uint32 {
	return f.info().channels
}

// BitsPerChannel returns the width of one channel in bits.
func (f Format) BitsPerChannel() uint32 {
	return f.info().bitsPerChannel
}

// BytesPerChannel returns BitsPerChannel / 8.
func (f Format) BytesPerChannel() uint32 {
	return f.info().bitsPerChannel / 8
}

// BytesPerTexel returns the size of a single texel in bytes.
func (f Format) BytesPerTexel() uint32 {
	i := f.info()
	return i.channels * i.bitsPerChannel / 8
}

// DeviceFormat returns the device-specific format code.
func (f Format) DeviceFormat() gputypes.TextureFormat {
	return f.info().device
}

// FormatFromChannels picks the linear format matching a decoded image layout.
// It returns FormatUnknown when no format matches.
func FormatFromChannels(channels, bitsPerChannel uint32) Format {
	for f := FormatR8Unorm; f < formatCount; f++ {
		if f == FormatRGBA8UnormSrgb || f == FormatBGRA8Unorm || f == FormatDepth24PlusStencil8 {
			continue
		}
		i := formatTable[f]
		if i.channels == channels && i.bitsPerChannel == bitsPerChannel {
			return f
		}
	}
	return FormatUnknown
}

// Formats returns every known format, in declaration order.
func Formats() []Format {
	out := make([]Format, 0, formatCount-1)
	for f := FormatR8Unorm; f < formatCount; f++ {
		out = append(out, f)
	}
	return out
}
