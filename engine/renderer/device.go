package renderer

import "github.com/gogpu/gputypes"

/** @brief How the device may access a texture after creation. */
type Usage int

const (
	/** @brief Contents are fixed at creation and must be supplied as initial data. */
	UsageImmutable Usage = iota
	/** @brief Contents may be written by the device after creation. */
	UsageDefault
)

type BindFlags uint32

const (
	BindShaderResource BindFlags = 1 << iota
	BindRenderTarget
)

type MiscFlags uint32

const (
	MiscGenerateMips MiscFlags = 1 << iota
	MiscTextureCube
)

type ViewDimension int

const (
	ViewDimension2D ViewDimension = iota
	ViewDimensionCube
)

/**
 * @brief Describes a texture object to be created by the device.
 */
type TextureDesc struct {
	Width     uint32
	Height    uint32
	MipLevels uint32
	/** @brief 1 for plain 2D textures, 6 for cubemaps. */
	ArraySize uint32
	Format    Format
	/** @brief The device-specific code for Format. */
	DeviceFormat gputypes.TextureFormat
	Usage        Usage
	Bind         BindFlags
	Misc         MiscFlags
}

// Subresource is the initial data of one mip level of one array layer.
// A nil Data leaves that subresource's contents up to the device.
type Subresource struct {
	Data     []byte
	RowPitch uint32
}

// SubresourceIndex returns the flat index of (layer, level) in the initial
// data slice, layer-major like every common graphics API.
func SubresourceIndex(layer, level, mipLevels uint32) uint32 {
	return layer*mipLevels + level
}

type ViewDesc struct {
	Format          Format
	Dimension       ViewDimension
	MostDetailedMip uint32
	MipLevels       uint32
	ArraySize       uint32
}

// DeviceTexture is an opaque device texture object.
type DeviceTexture interface {
	Release()
}

// ShaderResourceView is an opaque device view a shader can sample from.
// A view keeps its texture alive inside the device.
type ShaderResourceView interface {
	Release()
}

// Device is the graphics device context. Every call must come from the
// goroutine that owns the device.
type Device interface {
	IsAlive() bool
	CreateTexture2D(desc *TextureDesc, initial []Subresource) (DeviceTexture, error)
	CreateShaderResourceView(tex DeviceTexture, desc *ViewDesc) (ShaderResourceView, error)
	UpdateSubresource(tex DeviceTexture, subresource uint32, data []byte, rowPitch uint32)
	GenerateMips(view ShaderResourceView)
}
