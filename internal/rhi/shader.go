package rhi

// Shader is a compiled WGSL module.
type Shader struct {
	Label string
	WGSL  string

	dev *Device
	raw any
}
