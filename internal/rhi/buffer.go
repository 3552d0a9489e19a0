package rhi

// BufferDesc describes a buffer allocation.
type BufferDesc struct {
	Label string
	Size  uint64
	Usage BufferUsage
	// CPUAccess keeps the contents host-visible so Map works. Host-visible
	// buffers start in the GenericRead state.
	CPUAccess bool
}

// Buffer is a linear GPU allocation. Its state is tracked on the CPU and
// changed only through recorded transitions.
type Buffer struct {
	Label     string
	Size      uint64
	Usage     BufferUsage
	CPUAccess bool

	state ResourceState
	dev   *Device

	// raw is the backend handle; data backs the headless implementation and
	// the host-visible shadow of CPUAccess buffers.
	raw  any
	data []byte
}

// State returns the tracked resource state.
func (b *Buffer) State() ResourceState { return b.state }

// Map returns the host-visible contents, or nil for buffers created without
// CPUAccess.
func (b *Buffer) Map() []byte {
	if !b.CPUAccess {
		return nil
	}
	return b.data
}

// Write uploads data at offset, bounds-checked.
func (b *Buffer) Write(offset uint64, data []byte) error {
	return b.dev.WriteBuffer(b, offset, data)
}

// Release frees the GPU allocation.
func (b *Buffer) Release() {
	b.dev.backend.destroyBuffer(b)
	b.raw = nil
	b.data = nil
}
