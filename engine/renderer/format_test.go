package renderer

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
)

func TestFormatTable(t *testing.T) {
	tests := []struct {
		format         Format
		bytesPerTexel  uint32
		channels       uint32
		bitsPerChannel uint32
		device         gputypes.TextureFormat
	}{
		{FormatR8Unorm, 1, 1, 8, gputypes.TextureFormatR8Unorm},
		{FormatRGBA8Unorm, 4, 4, 8, gputypes.TextureFormatRGBA8Unorm},
		{FormatBGRA8Unorm, 4, 4, 8, gputypes.TextureFormatBGRA8Unorm},
		{FormatRGBA16Float, 8, 4, 16, gputypes.TextureFormatRGBA16Float},
		{FormatRGBA32Float, 16, 4, 32, gputypes.TextureFormatRGBA32Float},
		{FormatDepth24PlusStencil8, 4, 2, 16, gputypes.TextureFormatDepth24PlusStencil8},
		{FormatUnknown, 0, 0, 0, gputypes.TextureFormatUndefined},
		{Format(200), 0, 0, 0, gputypes.TextureFormatUndefined},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			assert.Equal(t, tt.bytesPerTexel, tt.format.BytesPerTexel())
			assert.Equal(t, tt.channels, tt.format.Channels())
			assert.Equal(t, tt.bitsPerChannel, tt.format.BitsPerChannel())
			assert.Equal(t, tt.device, tt.format.DeviceFormat())
		})
	}
}

func TestFormatFromChannels(t *testing.T) {
	assert.Equal(t, FormatRGBA8Unorm, FormatFromChannels(4, 8))
	assert.Equal(t, FormatR8Unorm, FormatFromChannels(1, 8))
	assert.Equal(t, FormatRG32Float, FormatFromChannels(2, 32))
	assert.Equal(t, FormatUnknown, FormatFromChannels(3, 8))
}

func TestFormats(t *testing.T) {
	all := Formats()
	assert.Len(t, all, int(formatCount)-1)
	for _, f := range all {
		assert.True(t, f.IsValid(), f.String())
	}
	assert.False(t, FormatUnknown.IsValid())
	assert.Equal(t, "Unknown(200)", Format(200).String())
}
