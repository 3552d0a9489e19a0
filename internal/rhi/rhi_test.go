package rhi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHeadlessDevice(t *testing.T) *Device {
	t.Helper()
	dev, err := New(Options{Headless: true}, nil)
	require.NoError(t, err)
	return dev
}

func TestHeadlessDevice(t *testing.T) {
	dev := newHeadlessDevice(t)
	defer dev.Release()

	assert.True(t, dev.Headless())
	assert.Equal(t, "headless", dev.Adapter().Name)
	assert.Equal(t, uint64(1), dev.BeginFrame())
	assert.Equal(t, uint64(1), dev.Frame())
}

func TestCommandBufferLifecycle(t *testing.T) {
	dev := newHeadlessDevice(t)
	defer dev.Release()

	cb := dev.NewCommandBuffer("test")
	assert.Equal(t, "initial", cb.State())

	// recording before Begin is rejected
	assert.ErrorIs(t, cb.End(), ErrInvalidState)
	assert.ErrorIs(t, cb.EndRenderPass(), ErrInvalidState)
	assert.ErrorIs(t, dev.Submit(cb), ErrInvalidState)

	require.NoError(t, cb.Begin())
	assert.Equal(t, "recording", cb.State())
	assert.ErrorIs(t, cb.Begin(), ErrInvalidState, "double begin")
	assert.ErrorIs(t, cb.Reset(), ErrInvalidState, "reset while recording")

	buf, err := dev.CreateBuffer(BufferDesc{Label: "b", Size: 16, Usage: BufferStorage}, nil)
	require.NoError(t, err)
	require.NoError(t, cb.TransitionBuffer(buf, StateCopyDst))
	assert.Equal(t, StateCopyDst, buf.State(), "tracked state changes at record time")

	require.NoError(t, cb.End())
	assert.Equal(t, "recorded", cb.State())
	assert.Equal(t, 1, cb.Commands())
	assert.ErrorIs(t, cb.TransitionBuffer(buf, StateCommon), ErrInvalidState)

	require.NoError(t, dev.Submit(cb))
	assert.Equal(t, "submitted", cb.State())
	assert.ErrorIs(t, dev.Submit(cb), ErrInvalidState, "double submit")

	require.NoError(t, cb.Reset())
	assert.Equal(t, "initial", cb.State())
	assert.Equal(t, 0, cb.Commands())
	require.NoError(t, cb.Begin())
}

func TestRenderPassStateValidation(t *testing.T) {
	dev := newHeadlessDevice(t)
	defer dev.Release()

	color, err := dev.CreateTexture(TextureDesc{
		Label: "color", Width: 4, Height: 4,
		Format: FormatRGBA8Unorm, Usage: TextureRenderAttachment,
	})
	require.NoError(t, err)
	depth, err := dev.CreateTexture(TextureDesc{
		Label: "depth", Width: 4, Height: 4,
		Format: FormatDepth32Float, Usage: TextureRenderAttachment,
	})
	require.NoError(t, err)
	assert.Equal(t, StateUndefined, color.State())

	cb := dev.NewCommandBuffer("pass")
	require.NoError(t, cb.Begin())

	pass := RenderPassDesc{
		Label: "main",
		Color: []ColorAttachmentDesc{{Texture: color, LoadOp: LoadOpClear, StoreOp: StoreOpStore}},
		Depth: &DepthAttachmentDesc{Texture: depth, LoadOp: LoadOpClear, StoreOp: StoreOpStore, ClearDepth: 1},
	}
	assert.ErrorIs(t, cb.BeginRenderPass(pass), ErrInvalidState, "undefined color target")

	require.NoError(t, cb.TransitionTexture(color, StateColorAttachment))
	assert.ErrorIs(t, cb.BeginRenderPass(pass), ErrInvalidState, "undefined depth target")

	require.NoError(t, cb.TransitionTexture(depth, StateDepthWrite))
	require.NoError(t, cb.BeginRenderPass(pass))

	assert.ErrorIs(t, cb.BeginRenderPass(pass), ErrInvalidState, "nested pass")
	assert.ErrorIs(t, cb.End(), ErrInvalidState, "end with open pass")

	require.NoError(t, cb.EndRenderPass())
	assert.ErrorIs(t, cb.EndRenderPass(), ErrInvalidState, "no open pass")
	require.NoError(t, cb.End())

	// a pass needs at least one attachment
	cb2 := dev.NewCommandBuffer("empty")
	require.NoError(t, cb2.Begin())
	assert.ErrorIs(t, cb2.BeginRenderPass(RenderPassDesc{Label: "none"}), ErrInvalidState)
}

func TestDrawValidation(t *testing.T) {
	dev := newHeadlessDevice(t)
	defer dev.Release()

	shader, err := dev.CreateShader("tri", "@vertex fn vs() {} @fragment fn fs() {}")
	require.NoError(t, err)
	pipeline, err := dev.CreateRenderPipeline(RenderPipelineDesc{
		Label: "tri", Shader: shader, ColorFormat: FormatRGBA8Unorm,
	})
	require.NoError(t, err)

	color, err := dev.CreateTexture(TextureDesc{
		Label: "color", Width: 4, Height: 4,
		Format: FormatRGBA8Unorm, Usage: TextureRenderAttachment,
	})
	require.NoError(t, err)

	cb := dev.NewCommandBuffer("draw")
	require.NoError(t, cb.Begin())
	assert.ErrorIs(t, cb.SetPipeline(pipeline), ErrInvalidState, "render pipeline outside pass")
	assert.ErrorIs(t, cb.Draw(3, 1, 0), ErrInvalidState, "draw outside pass")

	require.NoError(t, cb.TransitionTexture(color, StateColorAttachment))
	require.NoError(t, cb.BeginRenderPass(RenderPassDesc{
		Label: "main",
		Color: []ColorAttachmentDesc{{Texture: color, LoadOp: LoadOpClear, StoreOp: StoreOpStore}},
	}))
	assert.ErrorIs(t, cb.Draw(3, 1, 0), ErrInvalidState, "draw without pipeline")

	require.NoError(t, cb.SetPipeline(pipeline))
	require.NoError(t, cb.Draw(3, 1, 0))
	require.NoError(t, cb.DrawIndexed(3, 1, 0))
	require.NoError(t, cb.EndRenderPass())
	require.NoError(t, cb.End())
}

func TestVertexIndexBufferUsage(t *testing.T) {
	dev := newHeadlessDevice(t)
	defer dev.Release()

	vtx, err := dev.CreateBuffer(BufferDesc{Label: "vtx", Size: 64, Usage: BufferVertex}, nil)
	require.NoError(t, err)
	idx, err := dev.CreateBuffer(BufferDesc{Label: "idx", Size: 64, Usage: BufferIndex}, nil)
	require.NoError(t, err)

	cb := dev.NewCommandBuffer("bind")
	require.NoError(t, cb.Begin())
	require.NoError(t, cb.SetVertexBuffer(0, vtx, 0))
	require.NoError(t, cb.SetIndexBuffer(idx, 0))
	assert.ErrorIs(t, cb.SetVertexBuffer(0, idx, 0), ErrInvalidState, "wrong usage")
	assert.ErrorIs(t, cb.SetIndexBuffer(vtx, 0), ErrInvalidState, "wrong usage")
}

func TestBindingStateValidation(t *testing.T) {
	dev := newHeadlessDevice(t)
	defer dev.Release()

	tex, err := dev.CreateTexture(TextureDesc{
		Label: "albedo", Width: 4, Height: 4,
		Format: FormatRGBA8Unorm, Usage: TextureSampled,
	})
	require.NoError(t, err)

	cb := dev.NewCommandBuffer("bind")
	require.NoError(t, cb.Begin())
	assert.ErrorIs(t, cb.SetBindings([]Binding{{Slot: 0, Texture: tex}}), ErrInvalidState)

	require.NoError(t, cb.TransitionTexture(tex, StateShaderRead))
	require.NoError(t, cb.SetBindings([]Binding{{Slot: 0, Texture: tex}}))
}

func TestBufferBounds(t *testing.T) {
	dev := newHeadlessDevice(t)
	defer dev.Release()

	_, err := dev.CreateBuffer(BufferDesc{Label: "zero", Size: 0}, nil)
	assert.Error(t, err)
	_, err = dev.CreateBuffer(BufferDesc{Label: "tiny", Size: 4}, make([]byte, 8))
	assert.ErrorIs(t, err, ErrOutOfBounds)

	buf, err := dev.CreateBuffer(BufferDesc{Label: "b", Size: 16, Usage: BufferCopyDst}, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, dev.WriteBuffer(buf, 12, make([]byte, 8)), ErrOutOfBounds)
	require.NoError(t, dev.WriteBuffer(buf, 8, make([]byte, 8)))
}

func TestCopyBufferAndReadback(t *testing.T) {
	dev := newHeadlessDevice(t)
	defer dev.Release()

	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	src, err := dev.CreateBuffer(BufferDesc{Label: "src", Size: 8, Usage: BufferCopySrc}, payload)
	require.NoError(t, err)
	dst, err := dev.CreateBuffer(BufferDesc{Label: "dst", Size: 8, Usage: BufferCopyDst | BufferCopySrc}, nil)
	require.NoError(t, err)

	cb := dev.NewCommandBuffer("copy")
	require.NoError(t, cb.Begin())
	assert.ErrorIs(t, cb.CopyBuffer(src, 4, dst, 0, 8), ErrOutOfBounds)
	require.NoError(t, cb.CopyBuffer(src, 0, dst, 0, 8))
	require.NoError(t, cb.End())
	require.NoError(t, dev.Submit(cb))

	got, err := dev.ReadBuffer(dst)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	// readback needs copy-src or map-read usage
	plain, err := dev.CreateBuffer(BufferDesc{Label: "plain", Size: 8, Usage: BufferStorage}, nil)
	require.NoError(t, err)
	_, err = dev.ReadBuffer(plain)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestBufferMapRules(t *testing.T) {
	dev := newHeadlessDevice(t)
	defer dev.Release()

	visible, err := dev.CreateBuffer(BufferDesc{
		Label:     "visible",
		Size:      16,
		Usage:     BufferStorage,
		CPUAccess: true,
	}, []byte{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, StateGenericRead, visible.State(), "host-visible buffers start readable")

	data := visible.Map()
	require.NotNil(t, data)
	assert.Len(t, data, 16)
	assert.Equal(t, []byte{1, 2, 3, 4}, data[:4])

	// writes show up through the mapping
	require.NoError(t, visible.Write(4, []byte{9, 9}))
	assert.Equal(t, []byte{9, 9}, visible.Map()[4:6])

	gpuOnly, err := dev.CreateBuffer(BufferDesc{Label: "gpu-only", Size: 16, Usage: BufferStorage}, nil)
	require.NoError(t, err)
	assert.Equal(t, StateCommon, gpuOnly.State())
	assert.Nil(t, gpuOnly.Map(), "device-local buffers never map")
}

func TestCopyBufferStateValidation(t *testing.T) {
	dev := newHeadlessDevice(t)
	defer dev.Release()

	src, err := dev.CreateBuffer(BufferDesc{Label: "src", Size: 8, Usage: BufferCopySrc}, nil)
	require.NoError(t, err)
	dst, err := dev.CreateBuffer(BufferDesc{Label: "dst", Size: 8, Usage: BufferCopyDst}, nil)
	require.NoError(t, err)

	cb := dev.NewCommandBuffer("copy")
	require.NoError(t, cb.Begin())

	// a source parked in copy-dst state is rejected
	require.NoError(t, cb.TransitionBuffer(src, StateCopyDst))
	assert.ErrorIs(t, cb.CopyBuffer(src, 0, dst, 0, 8), ErrInvalidState)

	require.NoError(t, cb.TransitionBuffer(src, StateCopySrc))
	require.NoError(t, cb.TransitionBuffer(dst, StateCopyDst))
	require.NoError(t, cb.CopyBuffer(src, 0, dst, 0, 8))
}

func TestSwapchainRoundRobin(t *testing.T) {
	dev := newHeadlessDevice(t)
	defer dev.Release()

	sc, err := dev.CreateSwapchain(SwapchainDesc{Width: 64, Height: 64})
	require.NoError(t, err)
	assert.Equal(t, 2, sc.BufferCount(), "default double buffering")
	assert.Equal(t, FormatBGRA8Unorm, sc.Format())

	presentFrame := func() {
		t.Helper()
		back, err := sc.Acquire()
		require.NoError(t, err)
		assert.True(t, back.IsSwapchain())
		assert.Equal(t, StateUndefined, back.State())

		// acquiring twice without presenting is an error
		_, err = sc.Acquire()
		assert.ErrorIs(t, err, ErrInvalidState)

		// presenting before the transition to Present is an error
		assert.ErrorIs(t, sc.Present(), ErrInvalidState)

		cb := dev.NewCommandBuffer("frame")
		require.NoError(t, cb.Begin())
		require.NoError(t, cb.TransitionTexture(back, StateColorAttachment))
		require.NoError(t, cb.TransitionTexture(back, StatePresent))
		require.NoError(t, cb.End())
		require.NoError(t, dev.Submit(cb))
		require.NoError(t, sc.Present())
	}

	assert.Equal(t, 0, sc.CurrentIndex())
	presentFrame()
	assert.Equal(t, 1, sc.CurrentIndex())
	presentFrame()
	assert.Equal(t, 0, sc.CurrentIndex(), "round robin wraps")

	require.NoError(t, sc.Resize(128, 32))
	assert.Equal(t, uint32(128), sc.Width())
	assert.Equal(t, uint32(32), sc.Height())
	assert.Equal(t, 0, sc.CurrentIndex(), "resize resets the index")
	presentFrame()

	assert.ErrorIs(t, sc.Resize(0, 32), ErrInvalidState)
}

func TestDispatchCompute(t *testing.T) {
	dev := newHeadlessDevice(t)
	defer dev.Release()

	shader, err := dev.CreateShader("noop", "@compute @workgroup_size(1) fn main() {}")
	require.NoError(t, err)
	pipeline, err := dev.CreateComputePipeline(ComputePipelineDesc{Label: "noop", Shader: shader})
	require.NoError(t, err)

	buf, err := dev.CreateBuffer(BufferDesc{Label: "data", Size: 64, Usage: BufferStorage}, nil)
	require.NoError(t, err)
	require.NoError(t, dev.DispatchCompute(pipeline, []*Buffer{buf}, 4, 0, 0))

	// render pipelines cannot dispatch
	vs, err := dev.CreateShader("tri", "@vertex fn vs() {}")
	require.NoError(t, err)
	render, err := dev.CreateRenderPipeline(RenderPipelineDesc{Label: "tri", Shader: vs, ColorFormat: FormatRGBA8Unorm})
	require.NoError(t, err)
	assert.ErrorIs(t, dev.DispatchCompute(render, nil, 1, 1, 1), ErrInvalidState)

	// nor inside a render pass
	color, err := dev.CreateTexture(TextureDesc{
		Label: "color", Width: 4, Height: 4,
		Format: FormatRGBA8Unorm, Usage: TextureRenderAttachment,
	})
	require.NoError(t, err)
	cb := dev.NewCommandBuffer("mixed")
	require.NoError(t, cb.Begin())
	require.NoError(t, cb.TransitionTexture(color, StateColorAttachment))
	require.NoError(t, cb.BeginRenderPass(RenderPassDesc{
		Label: "main",
		Color: []ColorAttachmentDesc{{Texture: color, LoadOp: LoadOpClear, StoreOp: StoreOpStore}},
	}))
	assert.ErrorIs(t, cb.Dispatch(pipeline, nil, 1, 1, 1), ErrInvalidState)
}

func TestHeadlessClearPixels(t *testing.T) {
	dev := newHeadlessDevice(t)
	defer dev.Release()

	tex, err := dev.CreateTexture(TextureDesc{
		Label: "target", Width: 2, Height: 2,
		Format: FormatBGRA8Unorm, Usage: TextureRenderAttachment,
	})
	require.NoError(t, err)

	cb := dev.NewCommandBuffer("clear")
	require.NoError(t, cb.Begin())
	require.NoError(t, cb.TransitionTexture(tex, StateColorAttachment))
	require.NoError(t, cb.BeginRenderPass(RenderPassDesc{
		Label: "clear",
		Color: []ColorAttachmentDesc{{
			Texture: tex, LoadOp: LoadOpClear, StoreOp: StoreOpStore,
			ClearColor: Color{R: 1, G: 0, B: 0, A: 1},
		}},
	}))
	require.NoError(t, cb.EndRenderPass())
	require.NoError(t, cb.End())
	require.NoError(t, dev.Submit(cb))

	ht := tex.raw.(*headlessTexture)
	assert.Equal(t, 1, ht.clearCount)
	// BGRA: red lands in the third byte
	assert.Equal(t, []byte{0, 0, 255, 255}, ht.data[:4])
	assert.Equal(t, []byte{0, 0, 255, 255}, ht.data[12:16])
}

func TestFormatProperties(t *testing.T) {
	assert.True(t, FormatDepth32Float.IsDepth())
	assert.True(t, FormatDepth24Plus.IsDepth())
	assert.False(t, FormatRGBA8Unorm.IsDepth())
	assert.Equal(t, 4, FormatRGBA8Unorm.BytesPerPixel())
	assert.Equal(t, 8, FormatRGBA16Float.BytesPerPixel())
}
