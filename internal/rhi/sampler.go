package rhi

// FilterMode selects texel filtering.
type FilterMode uint8

const (
	FilterNearest FilterMode = iota
	FilterLinear
)

// AddressMode selects wrapping outside [0,1].
type AddressMode uint8

const (
	AddressClampToEdge AddressMode = iota
	AddressRepeat
	AddressMirrorRepeat
)

// SamplerDesc describes a sampler.
type SamplerDesc struct {
	Label       string
	MinFilter   FilterMode
	MagFilter   FilterMode
	AddressMode AddressMode
}

// Sampler configures texture filtering and addressing.
type Sampler struct {
	Label       string
	MinFilter   FilterMode
	MagFilter   FilterMode
	AddressMode AddressMode

	dev *Device
	raw any
}
