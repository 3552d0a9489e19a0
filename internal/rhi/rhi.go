// Package rhi is the rendering hardware interface: a thin portable layer
// over the GPU with explicit resource states and recorded command buffers.
// Two backends exist, a WebGPU implementation and a headless one that only
// validates and tracks state for tests and CI.
package rhi

import "errors"

var (
	// ErrInvalidState is returned when a command buffer or resource is used
	// outside its legal state.
	ErrInvalidState = errors.New("rhi: invalid state")
	// ErrOutOfBounds is returned for writes past the end of a buffer.
	ErrOutOfBounds = errors.New("rhi: out of bounds")
	// ErrNoAdapter is returned when no usable GPU adapter exists.
	ErrNoAdapter = errors.New("rhi: no gpu adapter")
)

// ResourceState is the CPU-tracked usage state of a buffer or texture.
// Transitions are recorded explicitly; a resource used in a state it is not
// in fails validation at record time.
type ResourceState uint8

const (
	StateUndefined ResourceState = iota
	StateCommon
	StatePresent
	StateColorAttachment
	StateDepthWrite
	StateShaderRead
	StateCopySrc
	StateCopyDst
	StateGenericRead
)

func (s ResourceState) String() string {
	switch s {
	case StateUndefined:
		return "undefined"
	case StateCommon:
		return "common"
	case StatePresent:
		return "present"
	case StateColorAttachment:
		return "color-attachment"
	case StateDepthWrite:
		return "depth-write"
	case StateShaderRead:
		return "shader-read"
	case StateCopySrc:
		return "copy-src"
	case StateCopyDst:
		return "copy-dst"
	case StateGenericRead:
		return "generic-read"
	}
	return "unknown"
}

// Format enumerates the texture formats the engine uses.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatRGBA8Unorm
	FormatBGRA8Unorm
	FormatRGBA16Float
	FormatDepth24Plus
	FormatDepth32Float
)

func (f Format) String() string {
	switch f {
	case FormatRGBA8Unorm:
		return "rgba8-unorm"
	case FormatBGRA8Unorm:
		return "bgra8-unorm"
	case FormatRGBA16Float:
		return "rgba16-float"
	case FormatDepth24Plus:
		return "depth24-plus"
	case FormatDepth32Float:
		return "depth32-float"
	}
	return "unknown"
}

// IsDepth reports whether the format is a depth format.
func (f Format) IsDepth() bool {
	return f == FormatDepth24Plus || f == FormatDepth32Float
}

// BytesPerPixel returns the storage size of one texel.
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatRGBA8Unorm, FormatBGRA8Unorm, FormatDepth24Plus, FormatDepth32Float:
		return 4
	case FormatRGBA16Float:
		return 8
	}
	return 0
}

// BufferUsage is a bitmask of allowed buffer uses.
type BufferUsage uint16

const (
	BufferVertex BufferUsage = 1 << iota
	BufferIndex
	BufferUniform
	BufferStorage
	BufferCopySrc
	BufferCopyDst
	// BufferMapRead makes the buffer CPU-readable through Device.ReadBuffer
	// without a staging copy on the headless backend.
	BufferMapRead
)

// TextureUsage is a bitmask of allowed texture uses.
type TextureUsage uint8

const (
	TextureRenderAttachment TextureUsage = 1 << iota
	TextureSampled
	TextureStorage
	TextureCopySrc
	TextureCopyDst
)

// Color is a normalized RGBA clear color.
type Color struct {
	R, G, B, A float64
}

// LoadOp selects what happens to an attachment at render pass begin.
type LoadOp uint8

const (
	LoadOpClear LoadOp = iota
	LoadOpLoad
)

// StoreOp selects what happens to an attachment at render pass end.
type StoreOp uint8

const (
	StoreOpStore StoreOp = iota
	StoreOpDiscard
)

// AdapterInfo describes the GPU the device runs on.
type AdapterInfo struct {
	Name       string
	Vendor     string
	Backend    string
	DeviceType string
	Driver     string
}
