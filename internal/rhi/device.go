package rhi

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// Options configures device creation.
type Options struct {
	// Headless selects the validation-only backend. No GPU is touched.
	Headless bool
	// Surface is the native surface the swapchain presents to. Required for
	// the WebGPU backend unless the device is compute-only.
	Surface *wgpu.SurfaceDescriptor
	// HighPerformance prefers the discrete adapter when several exist.
	HighPerformance bool
	// FallbackToHeadless degrades to the headless backend when no adapter
	// is available instead of failing.
	FallbackToHeadless bool
}

// backend is the driver-facing half of the device. Resources carry opaque
// backend handles in their raw fields; command buffers are recorded on the
// CPU and replayed by submit.
type backend interface {
	name() string
	adapterInfo() AdapterInfo

	createBuffer(b *Buffer, data []byte) error
	createTexture(t *Texture) error
	createSampler(s *Sampler) error
	createShader(s *Shader) error
	createRenderPipeline(p *Pipeline, desc RenderPipelineDesc) error
	createComputePipeline(p *Pipeline, desc ComputePipelineDesc) error

	writeBuffer(b *Buffer, offset uint64, data []byte) error
	readBuffer(b *Buffer, out []byte) error

	createSwapchain(sc *Swapchain) error
	resizeSwapchain(sc *Swapchain, width, height uint32) error
	acquireTexture(sc *Swapchain) (*Texture, error)
	present(sc *Swapchain) error

	submit(cb *CommandBuffer) error
	waitIdle()

	destroyBuffer(b *Buffer)
	destroyTexture(t *Texture)
	destroyPipeline(p *Pipeline)
	release()
}

// Device owns a backend and hands out GPU resources. All creation methods
// are safe to call from one goroutine; the device is not itself locked.
type Device struct {
	backend backend
	info    AdapterInfo
	log     *zap.Logger

	frame uint64
}

// New creates a device. A nil logger disables logging.
func New(opts Options, log *zap.Logger) (*Device, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var (
		b   backend
		err error
	)
	if opts.Headless {
		b = newHeadlessBackend()
	} else {
		b, err = newWGPUBackend(opts)
		if err != nil {
			if !opts.FallbackToHeadless {
				return nil, fmt.Errorf("rhi: backend init: %w", err)
			}
			log.Warn("gpu unavailable, falling back to headless backend", zap.Error(err))
			b = newHeadlessBackend()
		}
	}

	d := &Device{
		backend: b,
		info:    b.adapterInfo(),
		log:     log,
	}
	log.Info("rhi device created",
		zap.String("backend", b.name()),
		zap.String("adapter", d.info.Name),
		zap.String("driver", d.info.Driver))
	return d, nil
}

// Adapter returns information about the GPU in use.
func (d *Device) Adapter() AdapterInfo { return d.info }

// Headless reports whether the device runs the validation-only backend.
func (d *Device) Headless() bool { return d.backend.name() == "headless" }

// BeginFrame marks the start of a frame. Returns the frame counter.
func (d *Device) BeginFrame() uint64 {
	d.frame++
	return d.frame
}

// Frame returns the current frame counter.
func (d *Device) Frame() uint64 { return d.frame }

// CreateBuffer allocates a buffer. data, when non-nil, is the initial
// contents and must not exceed the descriptor size.
func (d *Device) CreateBuffer(desc BufferDesc, data []byte) (*Buffer, error) {
	if desc.Size == 0 {
		return nil, fmt.Errorf("rhi: buffer %q: zero size", desc.Label)
	}
	if uint64(len(data)) > desc.Size {
		return nil, fmt.Errorf("rhi: buffer %q: init data exceeds size: %w", desc.Label, ErrOutOfBounds)
	}
	state := StateCommon
	if desc.CPUAccess {
		state = StateGenericRead
	}
	b := &Buffer{
		Label:     desc.Label,
		Size:      desc.Size,
		Usage:     desc.Usage,
		CPUAccess: desc.CPUAccess,
		state:     state,
		dev:       d,
	}
	if err := d.backend.createBuffer(b, data); err != nil {
		return nil, err
	}
	return b, nil
}

// CreateTexture allocates a texture in the Undefined state.
func (d *Device) CreateTexture(desc TextureDesc) (*Texture, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("rhi: texture %q: zero extent", desc.Label)
	}
	if desc.MipLevels == 0 {
		desc.MipLevels = 1
	}
	if desc.SampleCount == 0 {
		desc.SampleCount = 1
	}
	t := &Texture{
		Label:       desc.Label,
		Width:       desc.Width,
		Height:      desc.Height,
		Format:      desc.Format,
		Usage:       desc.Usage,
		MipLevels:   desc.MipLevels,
		SampleCount: desc.SampleCount,
		state:       StateUndefined,
		dev:         d,
	}
	if err := d.backend.createTexture(t); err != nil {
		return nil, err
	}
	return t, nil
}

// CreateSampler creates a texture sampler.
func (d *Device) CreateSampler(desc SamplerDesc) (*Sampler, error) {
	s := &Sampler{
		Label:       desc.Label,
		MinFilter:   desc.MinFilter,
		MagFilter:   desc.MagFilter,
		AddressMode: desc.AddressMode,
		dev:         d,
	}
	if err := d.backend.createSampler(s); err != nil {
		return nil, err
	}
	return s, nil
}

// CreateShader compiles a WGSL module.
func (d *Device) CreateShader(label, wgsl string) (*Shader, error) {
	if wgsl == "" {
		return nil, fmt.Errorf("rhi: shader %q: empty source", label)
	}
	s := &Shader{Label: label, WGSL: wgsl, dev: d}
	if err := d.backend.createShader(s); err != nil {
		return nil, err
	}
	return s, nil
}

// CreateRenderPipeline builds a render pipeline from the descriptor.
func (d *Device) CreateRenderPipeline(desc RenderPipelineDesc) (*Pipeline, error) {
	if desc.Shader == nil {
		return nil, fmt.Errorf("rhi: pipeline %q: nil shader", desc.Label)
	}
	p := &Pipeline{Label: desc.Label, Kind: PipelineRender, dev: d}
	if err := d.backend.createRenderPipeline(p, desc); err != nil {
		return nil, err
	}
	return p, nil
}

// CreateComputePipeline builds a compute pipeline from the descriptor.
func (d *Device) CreateComputePipeline(desc ComputePipelineDesc) (*Pipeline, error) {
	if desc.Shader == nil {
		return nil, fmt.Errorf("rhi: pipeline %q: nil shader", desc.Label)
	}
	if desc.Entry == "" {
		desc.Entry = "main"
	}
	p := &Pipeline{Label: desc.Label, Kind: PipelineCompute, dev: d}
	if err := d.backend.createComputePipeline(p, desc); err != nil {
		return nil, err
	}
	return p, nil
}

// CreateSwapchain creates a swapchain for the device surface.
func (d *Device) CreateSwapchain(desc SwapchainDesc) (*Swapchain, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("rhi: swapchain: zero extent")
	}
	if desc.BufferCount == 0 {
		desc.BufferCount = 2
	}
	if desc.Format == FormatUnknown {
		desc.Format = FormatBGRA8Unorm
	}
	sc := &Swapchain{desc: desc, dev: d}
	if err := d.backend.createSwapchain(sc); err != nil {
		return nil, err
	}
	return sc, nil
}

// NewCommandBuffer returns a command buffer in the Initial state.
func (d *Device) NewCommandBuffer(label string) *CommandBuffer {
	return &CommandBuffer{Label: label, dev: d, state: cbInitial}
}

// Submit validates and executes a recorded command buffer. The buffer moves
// to the Submitted state and must be Reset before reuse.
func (d *Device) Submit(cb *CommandBuffer) error {
	if cb.state != cbRecorded {
		return fmt.Errorf("rhi: submit %q in state %s: %w", cb.Label, cb.state, ErrInvalidState)
	}
	if err := d.backend.submit(cb); err != nil {
		return err
	}
	cb.state = cbSubmitted
	return nil
}

// WriteBuffer uploads data at the given offset.
func (d *Device) WriteBuffer(b *Buffer, offset uint64, data []byte) error {
	if offset+uint64(len(data)) > b.Size {
		return fmt.Errorf("rhi: write to %q at %d+%d: %w", b.Label, offset, len(data), ErrOutOfBounds)
	}
	return d.backend.writeBuffer(b, offset, data)
}

// ReadBuffer blocks until the GPU is idle and copies the buffer contents
// back. The buffer needs BufferCopySrc or BufferMapRead usage.
func (d *Device) ReadBuffer(b *Buffer) ([]byte, error) {
	if b.Usage&(BufferCopySrc|BufferMapRead) == 0 {
		return nil, fmt.Errorf("rhi: read from %q without copy-src usage: %w", b.Label, ErrInvalidState)
	}
	out := make([]byte, b.Size)
	if err := d.backend.readBuffer(b, out); err != nil {
		return nil, err
	}
	return out, nil
}

// DispatchCompute records and submits a single compute dispatch in one call.
// Buffers bind in order starting at binding 0.
func (d *Device) DispatchCompute(p *Pipeline, buffers []*Buffer, x, y, z uint32) error {
	if p.Kind != PipelineCompute {
		return fmt.Errorf("rhi: dispatch with render pipeline %q: %w", p.Label, ErrInvalidState)
	}
	cb := d.NewCommandBuffer("dispatch:" + p.Label)
	if err := cb.Begin(); err != nil {
		return err
	}
	bindings := make([]Binding, len(buffers))
	for i, buf := range buffers {
		bindings[i] = Binding{Slot: uint32(i), Buffer: buf}
	}
	if err := cb.Dispatch(p, bindings, x, y, z); err != nil {
		return err
	}
	if err := cb.End(); err != nil {
		return err
	}
	return d.Submit(cb)
}

// WaitIdle blocks until all submitted work completes.
func (d *Device) WaitIdle() { d.backend.waitIdle() }

// Release frees the device and its backend. Resources created from the
// device must be released first.
func (d *Device) Release() {
	d.backend.release()
}
