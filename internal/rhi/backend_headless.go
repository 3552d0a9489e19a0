package rhi

import "fmt"

// headlessBackend validates and tracks without touching a GPU. Buffers are
// plain byte slices, so copies and readbacks behave like the real thing;
// draws and dispatches execute nothing.
type headlessBackend struct{}

func newHeadlessBackend() *headlessBackend { return &headlessBackend{} }

func (h *headlessBackend) name() string { return "headless" }

func (h *headlessBackend) adapterInfo() AdapterInfo {
	return AdapterInfo{
		Name:       "headless",
		Vendor:     "none",
		Backend:    "cpu",
		DeviceType: "software",
	}
}

type headlessTexture struct {
	data []byte
	// clearCount tracks how many render passes cleared this texture.
	clearCount int
}

type headlessSwapchain struct {
	textures []*Texture
}

func (h *headlessBackend) createBuffer(b *Buffer, data []byte) error {
	b.data = make([]byte, b.Size)
	copy(b.data, data)
	return nil
}

func (h *headlessBackend) createTexture(t *Texture) error {
	size := int(t.Width) * int(t.Height) * t.Format.BytesPerPixel()
	t.raw = &headlessTexture{data: make([]byte, size)}
	return nil
}

func (h *headlessBackend) createSampler(s *Sampler) error { return nil }
func (h *headlessBackend) createShader(s *Shader) error   { return nil }

func (h *headlessBackend) createRenderPipeline(p *Pipeline, desc RenderPipelineDesc) error {
	return nil
}

func (h *headlessBackend) createComputePipeline(p *Pipeline, desc ComputePipelineDesc) error {
	return nil
}

func (h *headlessBackend) writeBuffer(b *Buffer, offset uint64, data []byte) error {
	copy(b.data[offset:], data)
	return nil
}

func (h *headlessBackend) readBuffer(b *Buffer, out []byte) error {
	copy(out, b.data)
	return nil
}

func (h *headlessBackend) createSwapchain(sc *Swapchain) error {
	hsc := &headlessSwapchain{}
	for i := 0; i < sc.desc.BufferCount; i++ {
		t := &Texture{
			Label:       fmt.Sprintf("backbuffer-%d", i),
			Width:       sc.desc.Width,
			Height:      sc.desc.Height,
			Format:      sc.desc.Format,
			Usage:       TextureRenderAttachment,
			MipLevels:   1,
			SampleCount: 1,
			state:       StateUndefined,
			dev:         sc.dev,
		}
		if err := h.createTexture(t); err != nil {
			return err
		}
		hsc.textures = append(hsc.textures, t)
	}
	sc.raw = hsc
	return nil
}

func (h *headlessBackend) resizeSwapchain(sc *Swapchain, width, height uint32) error {
	hsc := sc.raw.(*headlessSwapchain)
	for _, t := range hsc.textures {
		t.Width = width
		t.Height = height
		if err := h.createTexture(t); err != nil {
			return err
		}
		t.state = StateUndefined
	}
	return nil
}

func (h *headlessBackend) acquireTexture(sc *Swapchain) (*Texture, error) {
	hsc := sc.raw.(*headlessSwapchain)
	return hsc.textures[sc.current], nil
}

func (h *headlessBackend) present(sc *Swapchain) error { return nil }

// submit replays the command stream. Transitions already happened at record
// time; only data-moving commands have effects here.
func (h *headlessBackend) submit(cb *CommandBuffer) error {
	for _, c := range cb.commands {
		switch c.op {
		case opBeginRenderPass:
			for _, att := range c.pass.Color {
				if att.LoadOp == LoadOpClear {
					clearHeadless(att.Texture, att.ClearColor)
				}
			}
			if c.pass.Depth != nil && c.pass.Depth.LoadOp == LoadOpClear {
				clearHeadless(c.pass.Depth.Texture, Color{})
			}
		case opCopyBuffer:
			copy(c.dstBuffer.data[c.dstOffset:c.dstOffset+c.size],
				c.srcBuffer.data[c.srcOffset:c.srcOffset+c.size])
		}
	}
	return nil
}

func clearHeadless(t *Texture, c Color) {
	ht, ok := t.raw.(*headlessTexture)
	if !ok {
		return
	}
	ht.clearCount++
	bpp := t.Format.BytesPerPixel()
	if bpp != 4 || t.Format.IsDepth() {
		for i := range ht.data {
			ht.data[i] = 0
		}
		return
	}
	px := [4]byte{byte(c.R * 255), byte(c.G * 255), byte(c.B * 255), byte(c.A * 255)}
	if t.Format == FormatBGRA8Unorm {
		px[0], px[2] = px[2], px[0]
	}
	for i := 0; i+3 < len(ht.data); i += 4 {
		copy(ht.data[i:i+4], px[:])
	}
}

func (h *headlessBackend) waitIdle() {}

func (h *headlessBackend) destroyBuffer(b *Buffer)     {}
func (h *headlessBackend) destroyTexture(t *Texture)   {}
func (h *headlessBackend) destroyPipeline(p *Pipeline) {}
func (h *headlessBackend) release()                    {}
