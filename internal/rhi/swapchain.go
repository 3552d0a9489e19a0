package rhi

import "fmt"

// SwapchainDesc configures presentation. BufferCount defaults to 2 and
// Format to BGRA8Unorm.
type SwapchainDesc struct {
	Width       uint32
	Height      uint32
	Format      Format
	BufferCount int
	VSync       bool
}

// Swapchain hands out back buffers in round-robin order. The current index
// advances on Present; acquired textures are valid until then.
type Swapchain struct {
	desc SwapchainDesc
	dev  *Device

	current  int
	acquired *Texture

	raw any
}

// Width returns the current backbuffer width.
func (sc *Swapchain) Width() uint32 { return sc.desc.Width }

// Height returns the current backbuffer height.
func (sc *Swapchain) Height() uint32 { return sc.desc.Height }

// Format returns the backbuffer format.
func (sc *Swapchain) Format() Format { return sc.desc.Format }

// BufferCount returns the number of back buffers.
func (sc *Swapchain) BufferCount() int { return sc.desc.BufferCount }

// CurrentIndex returns the index of the buffer the next frame renders to,
// always in [0, BufferCount).
func (sc *Swapchain) CurrentIndex() int { return sc.current }

// Acquire returns the texture to render the current frame into. The texture
// starts in the Undefined state each frame.
func (sc *Swapchain) Acquire() (*Texture, error) {
	if sc.acquired != nil {
		return nil, fmt.Errorf("rhi: acquire with unpresented frame: %w", ErrInvalidState)
	}
	t, err := sc.dev.backend.acquireTexture(sc)
	if err != nil {
		return nil, err
	}
	t.swapchain = sc
	t.state = StateUndefined
	sc.acquired = t
	return t, nil
}

// Present shows the acquired buffer and advances the buffer index. The back
// buffer must have been transitioned to the Present state.
func (sc *Swapchain) Present() error {
	if sc.acquired == nil {
		return fmt.Errorf("rhi: present without acquire: %w", ErrInvalidState)
	}
	if sc.acquired.state != StatePresent {
		return fmt.Errorf("rhi: present back buffer in state %s, want %s: %w",
			sc.acquired.state, StatePresent, ErrInvalidState)
	}
	if err := sc.dev.backend.present(sc); err != nil {
		return err
	}
	sc.acquired = nil
	sc.current = (sc.current + 1) % sc.desc.BufferCount
	return nil
}

// Resize recreates the back buffers at the new extent. The current index
// resets to zero.
func (sc *Swapchain) Resize(width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("rhi: resize to zero extent: %w", ErrInvalidState)
	}
	if err := sc.dev.backend.resizeSwapchain(sc, width, height); err != nil {
		return err
	}
	sc.desc.Width = width
	sc.desc.Height = height
	sc.current = 0
	sc.acquired = nil
	return nil
}
