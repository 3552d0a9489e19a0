package rhi

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// wgpuBackend drives a real GPU through WebGPU. WebGPU performs its own
// hazard tracking, so recorded transitions are validation-only here.
type wgpuBackend struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface
}

func newWGPUBackend(opts Options) (*wgpuBackend, error) {
	instance := wgpu.CreateInstance(nil)

	var surface *wgpu.Surface
	if opts.Surface != nil {
		surface = instance.CreateSurface(opts.Surface)
	}

	power := wgpu.PowerPreferenceLowPower
	if opts.HighPerformance {
		power = wgpu.PowerPreferenceHighPerformance
	}
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference:   power,
		CompatibleSurface: surface,
	})
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("%w: %v", ErrNoAdapter, err)
	}

	device, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("rhi: request device: %w", err)
	}

	return &wgpuBackend{
		instance: instance,
		adapter:  adapter,
		device:   device,
		queue:    device.GetQueue(),
		surface:  surface,
	}, nil
}

func (w *wgpuBackend) name() string { return "wgpu" }

func (w *wgpuBackend) adapterInfo() AdapterInfo {
	info := w.adapter.GetInfo()
	return AdapterInfo{
		Name:       info.Name,
		Vendor:     info.VendorName,
		Backend:    info.BackendType.String(),
		DeviceType: info.AdapterType.String(),
		Driver:     info.DriverDescription,
	}
}

func bufferUsageToWGPU(u BufferUsage) wgpu.BufferUsage {
	var out wgpu.BufferUsage
	if u&BufferVertex != 0 {
		out |= wgpu.BufferUsageVertex
	}
	if u&BufferIndex != 0 {
		out |= wgpu.BufferUsageIndex
	}
	if u&BufferUniform != 0 {
		out |= wgpu.BufferUsageUniform
	}
	if u&BufferStorage != 0 {
		out |= wgpu.BufferUsageStorage
	}
	if u&BufferCopySrc != 0 {
		out |= wgpu.BufferUsageCopySrc
	}
	if u&BufferCopyDst != 0 {
		out |= wgpu.BufferUsageCopyDst
	}
	if u&BufferMapRead != 0 {
		out |= wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst
	}
	return out
}

func textureUsageToWGPU(u TextureUsage) wgpu.TextureUsage {
	var out wgpu.TextureUsage
	if u&TextureRenderAttachment != 0 {
		out |= wgpu.TextureUsageRenderAttachment
	}
	if u&TextureSampled != 0 {
		out |= wgpu.TextureUsageTextureBinding
	}
	if u&TextureStorage != 0 {
		out |= wgpu.TextureUsageStorageBinding
	}
	if u&TextureCopySrc != 0 {
		out |= wgpu.TextureUsageCopySrc
	}
	if u&TextureCopyDst != 0 {
		out |= wgpu.TextureUsageCopyDst
	}
	return out
}

func formatToWGPU(f Format) wgpu.TextureFormat {
	switch f {
	case FormatRGBA8Unorm:
		return wgpu.TextureFormatRGBA8Unorm
	case FormatBGRA8Unorm:
		return wgpu.TextureFormatBGRA8Unorm
	case FormatRGBA16Float:
		return wgpu.TextureFormatRGBA16Float
	case FormatDepth24Plus:
		return wgpu.TextureFormatDepth24Plus
	case FormatDepth32Float:
		return wgpu.TextureFormatDepth32Float
	}
	return wgpu.TextureFormatUndefined
}

func vertexFormatToWGPU(f VertexFormat) wgpu.VertexFormat {
	switch f {
	case VertexFloat32:
		return wgpu.VertexFormatFloat32
	case VertexFloat32x2:
		return wgpu.VertexFormatFloat32x2
	case VertexFloat32x3:
		return wgpu.VertexFormatFloat32x3
	case VertexFloat32x4:
		return wgpu.VertexFormatFloat32x4
	case VertexUint32:
		return wgpu.VertexFormatUint32
	}
	return wgpu.VertexFormatFloat32
}

func (w *wgpuBackend) createBuffer(b *Buffer, data []byte) error {
	usage := bufferUsageToWGPU(b.Usage)
	if b.CPUAccess {
		b.data = make([]byte, b.Size)
		copy(b.data, data)
	}
	if len(data) > 0 {
		padded := data
		if uint64(len(data)) < b.Size {
			padded = make([]byte, b.Size)
			copy(padded, data)
		}
		buf, err := w.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
			Label:    b.Label,
			Contents: padded,
			Usage:    usage,
		})
		if err != nil {
			return fmt.Errorf("rhi: create buffer %q: %w", b.Label, err)
		}
		b.raw = buf
		return nil
	}
	buf, err := w.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: b.Label,
		Size:  b.Size,
		Usage: usage,
	})
	if err != nil {
		return fmt.Errorf("rhi: create buffer %q: %w", b.Label, err)
	}
	b.raw = buf
	return nil
}

func (w *wgpuBackend) createTexture(t *Texture) error {
	tex, err := w.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: t.Label,
		Size: wgpu.Extent3D{
			Width:              t.Width,
			Height:             t.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: t.MipLevels,
		SampleCount:   t.SampleCount,
		Dimension:     wgpu.TextureDimension2D,
		Format:        formatToWGPU(t.Format),
		Usage:         textureUsageToWGPU(t.Usage),
	})
	if err != nil {
		return fmt.Errorf("rhi: create texture %q: %w", t.Label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return fmt.Errorf("rhi: create view %q: %w", t.Label, err)
	}
	t.raw = tex
	t.rawView = view
	return nil
}

func (w *wgpuBackend) createSampler(s *Sampler) error {
	filter := func(f FilterMode) wgpu.FilterMode {
		if f == FilterLinear {
			return wgpu.FilterModeLinear
		}
		return wgpu.FilterModeNearest
	}
	address := wgpu.AddressModeClampToEdge
	switch s.AddressMode {
	case AddressRepeat:
		address = wgpu.AddressModeRepeat
	case AddressMirrorRepeat:
		address = wgpu.AddressModeMirrorRepeat
	}
	smp, err := w.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         s.Label,
		AddressModeU:  address,
		AddressModeV:  address,
		AddressModeW:  address,
		MagFilter:     filter(s.MagFilter),
		MinFilter:     filter(s.MinFilter),
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("rhi: create sampler %q: %w", s.Label, err)
	}
	s.raw = smp
	return nil
}

func (w *wgpuBackend) createShader(s *Shader) error {
	mod, err := w.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: s.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.WGSL,
		},
	})
	if err != nil {
		return fmt.Errorf("rhi: compile shader %q: %w", s.Label, err)
	}
	s.raw = mod
	return nil
}

func (w *wgpuBackend) createRenderPipeline(p *Pipeline, desc RenderPipelineDesc) error {
	module := desc.Shader.raw.(*wgpu.ShaderModule)

	var buffers []wgpu.VertexBufferLayout
	if len(desc.VertexLayout) > 0 {
		attrs := make([]wgpu.VertexAttribute, len(desc.VertexLayout))
		for i, a := range desc.VertexLayout {
			attrs[i] = wgpu.VertexAttribute{
				Format:         vertexFormatToWGPU(a.Format),
				Offset:         a.Offset,
				ShaderLocation: a.Location,
			}
		}
		buffers = []wgpu.VertexBufferLayout{{
			ArrayStride: desc.VertexStride,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes:  attrs,
		}}
	}

	topology := wgpu.PrimitiveTopologyTriangleList
	switch desc.Topology {
	case TopologyLines:
		topology = wgpu.PrimitiveTopologyLineList
	case TopologyPoints:
		topology = wgpu.PrimitiveTopologyPointList
	}
	cull := wgpu.CullModeNone
	switch desc.CullMode {
	case CullBack:
		cull = wgpu.CullModeBack
	case CullFront:
		cull = wgpu.CullModeFront
	}

	var depthStencil *wgpu.DepthStencilState
	if desc.DepthFormat != FormatUnknown {
		compare := wgpu.CompareFunctionAlways
		if desc.DepthTest {
			compare = wgpu.CompareFunctionLess
		}
		depthStencil = &wgpu.DepthStencilState{
			Format:            formatToWGPU(desc.DepthFormat),
			DepthWriteEnabled: desc.DepthWrite,
			DepthCompare:      compare,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		}
	}

	var blend *wgpu.BlendState
	if desc.BlendAlpha {
		blend = &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				Operation: wgpu.BlendOperationAdd,
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			},
			Alpha: wgpu.BlendComponent{
				Operation: wgpu.BlendOperationAdd,
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorZero,
			},
		}
	}

	pipe, err := w.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: desc.Label,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: desc.VertexEntry,
			Buffers:    buffers,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  topology,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  cull,
		},
		DepthStencil: depthStencil,
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: desc.FragmentEntry,
			Targets: []wgpu.ColorTargetState{{
				Format:    formatToWGPU(desc.ColorFormat),
				Blend:     blend,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("rhi: create render pipeline %q: %w", desc.Label, err)
	}
	p.raw = pipe
	p.rawLayout = pipe.GetBindGroupLayout(0)
	return nil
}

func (w *wgpuBackend) createComputePipeline(p *Pipeline, desc ComputePipelineDesc) error {
	pipe, err := w.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label: desc.Label,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     desc.Shader.raw.(*wgpu.ShaderModule),
			EntryPoint: desc.Entry,
		},
	})
	if err != nil {
		return fmt.Errorf("rhi: create compute pipeline %q: %w", desc.Label, err)
	}
	p.raw = pipe
	p.rawLayout = pipe.GetBindGroupLayout(0)
	return nil
}

func (w *wgpuBackend) writeBuffer(b *Buffer, offset uint64, data []byte) error {
	w.queue.WriteBuffer(b.raw.(*wgpu.Buffer), offset, data)
	if b.CPUAccess {
		copy(b.data[offset:], data)
	}
	return nil
}

func (w *wgpuBackend) readBuffer(b *Buffer, out []byte) error {
	staging, err := w.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "staging:" + b.Label,
		Size:  b.Size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("rhi: staging buffer: %w", err)
	}
	defer staging.Release()

	encoder, err := w.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("rhi: command encoder: %w", err)
	}
	encoder.CopyBufferToBuffer(b.raw.(*wgpu.Buffer), 0, staging, 0, b.Size)
	commands, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("rhi: finish encoder: %w", err)
	}
	w.queue.Submit(commands)
	commands.Release()

	done := make(chan error, 1)
	err = staging.MapAsync(wgpu.MapModeRead, 0, b.Size, func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			done <- fmt.Errorf("rhi: map buffer: %v", status)
		} else {
			done <- nil
		}
	})
	if err != nil {
		return err
	}
	w.device.Poll(true, nil)
	if err := <-done; err != nil {
		return err
	}

	copy(out, staging.GetMappedRange(0, uint(b.Size)))
	staging.Unmap()
	return nil
}

func (w *wgpuBackend) createSwapchain(sc *Swapchain) error {
	if w.surface == nil {
		return fmt.Errorf("rhi: swapchain without surface: %w", ErrInvalidState)
	}
	return w.configureSurface(sc, sc.desc.Width, sc.desc.Height)
}

func (w *wgpuBackend) configureSurface(sc *Swapchain, width, height uint32) error {
	caps := w.surface.GetCapabilities(w.adapter)
	format := formatToWGPU(sc.desc.Format)
	supported := false
	for _, f := range caps.Formats {
		if f == format {
			supported = true
			break
		}
	}
	if !supported && len(caps.Formats) > 0 {
		format = caps.Formats[0]
	}
	presentMode := wgpu.PresentModeImmediate
	if sc.desc.VSync {
		presentMode = wgpu.PresentModeFifo
	}
	w.surface.Configure(w.adapter, w.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      format,
		Width:       width,
		Height:      height,
		PresentMode: presentMode,
		AlphaMode:   caps.AlphaModes[0],
	})
	return nil
}

func (w *wgpuBackend) resizeSwapchain(sc *Swapchain, width, height uint32) error {
	return w.configureSurface(sc, width, height)
}

func (w *wgpuBackend) acquireTexture(sc *Swapchain) (*Texture, error) {
	tex, err := w.surface.GetCurrentTexture()
	if err != nil {
		return nil, fmt.Errorf("rhi: acquire surface texture: %w", err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		return nil, fmt.Errorf("rhi: surface texture view: %w", err)
	}
	return &Texture{
		Label:       "backbuffer",
		Width:       sc.desc.Width,
		Height:      sc.desc.Height,
		Format:      sc.desc.Format,
		Usage:       TextureRenderAttachment,
		MipLevels:   1,
		SampleCount: 1,
		dev:         sc.dev,
		raw:         tex,
		rawView:     view,
	}, nil
}

func (w *wgpuBackend) present(sc *Swapchain) error {
	w.surface.Present()
	if view, ok := sc.acquired.rawView.(*wgpu.TextureView); ok {
		view.Release()
	}
	if tex, ok := sc.acquired.raw.(*wgpu.Texture); ok {
		tex.Release()
	}
	return nil
}

// submit replays the recorded command stream into a WebGPU encoder.
// Transition commands carry no GPU work; WebGPU synchronizes internally.
func (w *wgpuBackend) submit(cb *CommandBuffer) error {
	encoder, err := w.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("rhi: command encoder: %w", err)
	}

	var pass *wgpu.RenderPassEncoder
	var currentPipeline *Pipeline
	var pendingBindings []Binding

	flushBindings := func() error {
		if pendingBindings == nil || currentPipeline == nil {
			return nil
		}
		bg, err := w.makeBindGroup(currentPipeline, pendingBindings)
		if err != nil {
			return err
		}
		pass.SetBindGroup(0, bg, nil)
		bg.Release()
		pendingBindings = nil
		return nil
	}

	for _, c := range cb.commands {
		switch c.op {
		case opTransitionBuffer, opTransitionTexture:
			// tracked at record time

		case opBeginRenderPass:
			desc := wgpu.RenderPassDescriptor{Label: c.pass.Label}
			for _, att := range c.pass.Color {
				load := wgpu.LoadOpClear
				if att.LoadOp == LoadOpLoad {
					load = wgpu.LoadOpLoad
				}
				store := wgpu.StoreOpStore
				if att.StoreOp == StoreOpDiscard {
					store = wgpu.StoreOpDiscard
				}
				desc.ColorAttachments = append(desc.ColorAttachments, wgpu.RenderPassColorAttachment{
					View:    att.Texture.rawView.(*wgpu.TextureView),
					LoadOp:  load,
					StoreOp: store,
					ClearValue: wgpu.Color{
						R: att.ClearColor.R, G: att.ClearColor.G,
						B: att.ClearColor.B, A: att.ClearColor.A,
					},
				})
			}
			if c.pass.Depth != nil {
				load := wgpu.LoadOpClear
				if c.pass.Depth.LoadOp == LoadOpLoad {
					load = wgpu.LoadOpLoad
				}
				store := wgpu.StoreOpStore
				if c.pass.Depth.StoreOp == StoreOpDiscard {
					store = wgpu.StoreOpDiscard
				}
				desc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
					View:            c.pass.Depth.Texture.rawView.(*wgpu.TextureView),
					DepthLoadOp:     load,
					DepthStoreOp:    store,
					DepthClearValue: c.pass.Depth.ClearDepth,
				}
			}
			pass = encoder.BeginRenderPass(&desc)

		case opEndRenderPass:
			pass.End()
			pass.Release()
			pass = nil
			currentPipeline = nil

		case opSetPipeline:
			currentPipeline = c.pipeline
			if c.pipeline.Kind == PipelineRender {
				pass.SetPipeline(c.pipeline.raw.(*wgpu.RenderPipeline))
				if err := flushBindings(); err != nil {
					return err
				}
			}

		case opSetBindings:
			pendingBindings = c.bindings
			if pass != nil && currentPipeline != nil {
				if err := flushBindings(); err != nil {
					return err
				}
			}

		case opSetVertexBuffer:
			pass.SetVertexBuffer(c.slot, c.buffer.raw.(*wgpu.Buffer), c.offset, wgpu.WholeSize)

		case opSetIndexBuffer:
			pass.SetIndexBuffer(c.buffer.raw.(*wgpu.Buffer), wgpu.IndexFormatUint32, c.offset, wgpu.WholeSize)

		case opDraw:
			pass.Draw(c.vertexCount, c.instanceCount, c.firstVertex, 0)

		case opDrawIndexed:
			pass.DrawIndexed(c.indexCount, c.instanceCount, c.firstIndex, 0, 0)

		case opDispatch:
			bg, err := w.makeBindGroup(c.pipeline, c.bindings)
			if err != nil {
				return err
			}
			cp := encoder.BeginComputePass(nil)
			cp.SetPipeline(c.pipeline.raw.(*wgpu.ComputePipeline))
			cp.SetBindGroup(0, bg, nil)
			cp.DispatchWorkgroups(c.x, c.y, c.z)
			cp.End()
			cp.Release()
			bg.Release()

		case opCopyBuffer:
			encoder.CopyBufferToBuffer(
				c.srcBuffer.raw.(*wgpu.Buffer), c.srcOffset,
				c.dstBuffer.raw.(*wgpu.Buffer), c.dstOffset, c.size)
		}
	}

	commands, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("rhi: finish %q: %w", cb.Label, err)
	}
	defer commands.Release()
	w.queue.Submit(commands)
	return nil
}

func (w *wgpuBackend) makeBindGroup(p *Pipeline, bindings []Binding) (*wgpu.BindGroup, error) {
	entries := make([]wgpu.BindGroupEntry, len(bindings))
	for i, b := range bindings {
		entry := wgpu.BindGroupEntry{Binding: b.Slot}
		switch {
		case b.Buffer != nil:
			entry.Buffer = b.Buffer.raw.(*wgpu.Buffer)
			entry.Size = b.Buffer.Size
		case b.Texture != nil:
			entry.TextureView = b.Texture.rawView.(*wgpu.TextureView)
		case b.Sampler != nil:
			entry.Sampler = b.Sampler.raw.(*wgpu.Sampler)
		}
		entries[i] = entry
	}
	bg, err := w.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   p.Label + ":bindings",
		Layout:  p.rawLayout.(*wgpu.BindGroupLayout),
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("rhi: bind group for %q: %w", p.Label, err)
	}
	return bg, nil
}

func (w *wgpuBackend) waitIdle() {
	w.device.Poll(true, nil)
}

func (w *wgpuBackend) destroyBuffer(b *Buffer) {
	if buf, ok := b.raw.(*wgpu.Buffer); ok {
		buf.Release()
	}
}

func (w *wgpuBackend) destroyTexture(t *Texture) {
	if view, ok := t.rawView.(*wgpu.TextureView); ok {
		view.Release()
	}
	if tex, ok := t.raw.(*wgpu.Texture); ok {
		tex.Release()
	}
}

func (w *wgpuBackend) destroyPipeline(p *Pipeline) {
	if layout, ok := p.rawLayout.(*wgpu.BindGroupLayout); ok {
		layout.Release()
	}
	switch raw := p.raw.(type) {
	case *wgpu.RenderPipeline:
		raw.Release()
	case *wgpu.ComputePipeline:
		raw.Release()
	}
}

func (w *wgpuBackend) release() {
	if w.surface != nil {
		w.surface.Release()
	}
	w.queue.Release()
	w.device.Release()
	w.adapter.Release()
	w.instance.Release()
}
