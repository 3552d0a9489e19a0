package rhi

// TextureDesc describes a 2D texture. MipLevels and SampleCount default to 1.
type TextureDesc struct {
	Label       string
	Width       uint32
	Height      uint32
	Format      Format
	Usage       TextureUsage
	MipLevels   uint32
	SampleCount uint32
}

// Texture is a 2D GPU image. New textures start in the Undefined state and
// must be transitioned before first use.
type Texture struct {
	Label       string
	Width       uint32
	Height      uint32
	Format      Format
	Usage       TextureUsage
	MipLevels   uint32
	SampleCount uint32

	state ResourceState
	dev   *Device

	// swapchain is set on textures acquired from a swapchain.
	swapchain *Swapchain

	raw     any
	rawView any
}

// State returns the tracked resource state.
func (t *Texture) State() ResourceState { return t.state }

// IsSwapchain reports whether the texture is a swapchain back buffer.
func (t *Texture) IsSwapchain() bool { return t.swapchain != nil }

// Release frees the GPU image. Swapchain textures are owned by their
// swapchain and ignore Release.
func (t *Texture) Release() {
	if t.swapchain != nil {
		return
	}
	t.dev.backend.destroyTexture(t)
	t.raw = nil
	t.rawView = nil
}
