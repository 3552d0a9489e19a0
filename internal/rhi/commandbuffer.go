package rhi

import "fmt"

type cbState uint8

const (
	cbInitial cbState = iota
	cbRecording
	cbRecorded
	cbSubmitted
)

func (s cbState) String() string {
	switch s {
	case cbInitial:
		return "initial"
	case cbRecording:
		return "recording"
	case cbRecorded:
		return "recorded"
	case cbSubmitted:
		return "submitted"
	}
	return "unknown"
}

type cmdOp uint8

const (
	opTransitionBuffer cmdOp = iota
	opTransitionTexture
	opBeginRenderPass
	opEndRenderPass
	opSetPipeline
	opSetBindings
	opSetVertexBuffer
	opSetIndexBuffer
	opDraw
	opDrawIndexed
	opDispatch
	opCopyBuffer
)

// Binding attaches one resource to a shader binding slot. Exactly one of
// Buffer, Texture or Sampler is set.
type Binding struct {
	Slot    uint32
	Buffer  *Buffer
	Texture *Texture
	Sampler *Sampler
}

// ColorAttachmentDesc configures one render target of a pass.
type ColorAttachmentDesc struct {
	Texture    *Texture
	LoadOp     LoadOp
	StoreOp    StoreOp
	ClearColor Color
}

// DepthAttachmentDesc configures the depth target of a pass.
type DepthAttachmentDesc struct {
	Texture    *Texture
	LoadOp     LoadOp
	StoreOp    StoreOp
	ClearDepth float32
}

// RenderPassDesc opens a render pass over the listed attachments.
type RenderPassDesc struct {
	Label string
	Color []ColorAttachmentDesc
	Depth *DepthAttachmentDesc
}

// command is one recorded operation; the backend replays these on submit.
type command struct {
	op cmdOp

	buffer   *Buffer
	texture  *Texture
	pipeline *Pipeline
	bindings []Binding
	newState ResourceState

	pass RenderPassDesc

	slot   uint32
	offset uint64

	// draw/dispatch arguments
	x, y, z       uint32
	vertexCount   uint32
	indexCount    uint32
	instanceCount uint32
	firstVertex   uint32
	firstIndex    uint32

	// copy arguments
	srcBuffer *Buffer
	dstBuffer *Buffer
	srcOffset uint64
	dstOffset uint64
	size      uint64
}

// CommandBuffer records GPU work on the CPU. Lifecycle:
// Initial → Begin → Recording → End → Recorded → Submit → Submitted → Reset.
// Any call outside that order returns ErrInvalidState. Resource transitions
// update tracked states at record time, so validation sees the state the
// resource will hold when the command executes.
type CommandBuffer struct {
	Label string

	dev      *Device
	state    cbState
	commands []command

	inRenderPass bool
	boundKind    PipelineKind
	hasPipeline  bool
}

// State exposes the lifecycle state name for diagnostics.
func (cb *CommandBuffer) State() string { return cb.state.String() }

// Begin moves the buffer to Recording.
func (cb *CommandBuffer) Begin() error {
	if cb.state != cbInitial {
		return fmt.Errorf("rhi: begin %q in state %s: %w", cb.Label, cb.state, ErrInvalidState)
	}
	cb.state = cbRecording
	return nil
}

// End closes recording. A render pass left open is an error.
func (cb *CommandBuffer) End() error {
	if cb.state != cbRecording {
		return fmt.Errorf("rhi: end %q in state %s: %w", cb.Label, cb.state, ErrInvalidState)
	}
	if cb.inRenderPass {
		return fmt.Errorf("rhi: end %q with open render pass: %w", cb.Label, ErrInvalidState)
	}
	cb.state = cbRecorded
	return nil
}

// Reset returns a submitted or recorded buffer to Initial, dropping commands.
func (cb *CommandBuffer) Reset() error {
	if cb.state == cbRecording {
		return fmt.Errorf("rhi: reset %q while recording: %w", cb.Label, ErrInvalidState)
	}
	cb.commands = cb.commands[:0]
	cb.state = cbInitial
	cb.inRenderPass = false
	cb.hasPipeline = false
	return nil
}

// Commands returns the number of recorded commands.
func (cb *CommandBuffer) Commands() int { return len(cb.commands) }

func (cb *CommandBuffer) recording() error {
	if cb.state != cbRecording {
		return fmt.Errorf("rhi: record into %q in state %s: %w", cb.Label, cb.state, ErrInvalidState)
	}
	return nil
}

// TransitionBuffer records a state transition. The tracked state changes
// immediately so later recorded commands validate against it.
func (cb *CommandBuffer) TransitionBuffer(b *Buffer, to ResourceState) error {
	if err := cb.recording(); err != nil {
		return err
	}
	cb.commands = append(cb.commands, command{op: opTransitionBuffer, buffer: b, newState: to})
	b.state = to
	return nil
}

// TransitionTexture records a state transition for a texture.
func (cb *CommandBuffer) TransitionTexture(t *Texture, to ResourceState) error {
	if err := cb.recording(); err != nil {
		return err
	}
	cb.commands = append(cb.commands, command{op: opTransitionTexture, texture: t, newState: to})
	t.state = to
	return nil
}

// BeginRenderPass opens a pass. Color attachments must be in the
// ColorAttachment state and the depth attachment in DepthWrite.
func (cb *CommandBuffer) BeginRenderPass(desc RenderPassDesc) error {
	if err := cb.recording(); err != nil {
		return err
	}
	if cb.inRenderPass {
		return fmt.Errorf("rhi: nested render pass %q: %w", desc.Label, ErrInvalidState)
	}
	if len(desc.Color) == 0 && desc.Depth == nil {
		return fmt.Errorf("rhi: render pass %q has no attachments: %w", desc.Label, ErrInvalidState)
	}
	for _, att := range desc.Color {
		if att.Texture.state != StateColorAttachment {
			return fmt.Errorf("rhi: pass %q: color target %q in state %s, want %s: %w",
				desc.Label, att.Texture.Label, att.Texture.state, StateColorAttachment, ErrInvalidState)
		}
	}
	if desc.Depth != nil && desc.Depth.Texture.state != StateDepthWrite {
		return fmt.Errorf("rhi: pass %q: depth target %q in state %s, want %s: %w",
			desc.Label, desc.Depth.Texture.Label, desc.Depth.Texture.state, StateDepthWrite, ErrInvalidState)
	}
	cb.commands = append(cb.commands, command{op: opBeginRenderPass, pass: desc})
	cb.inRenderPass = true
	cb.hasPipeline = false
	return nil
}

// EndRenderPass closes the open pass.
func (cb *CommandBuffer) EndRenderPass() error {
	if err := cb.recording(); err != nil {
		return err
	}
	if !cb.inRenderPass {
		return fmt.Errorf("rhi: end render pass without begin: %w", ErrInvalidState)
	}
	cb.commands = append(cb.commands, command{op: opEndRenderPass})
	cb.inRenderPass = false
	return nil
}

// SetPipeline binds a render pipeline inside a pass.
func (cb *CommandBuffer) SetPipeline(p *Pipeline) error {
	if err := cb.recording(); err != nil {
		return err
	}
	if p.Kind == PipelineRender && !cb.inRenderPass {
		return fmt.Errorf("rhi: render pipeline %q outside pass: %w", p.Label, ErrInvalidState)
	}
	cb.commands = append(cb.commands, command{op: opSetPipeline, pipeline: p})
	cb.boundKind = p.Kind
	cb.hasPipeline = true
	return nil
}

// SetBindings attaches resources for the bound pipeline. Sampled textures
// must be in ShaderRead or GenericRead.
func (cb *CommandBuffer) SetBindings(bindings []Binding) error {
	if err := cb.recording(); err != nil {
		return err
	}
	for _, b := range bindings {
		if b.Texture != nil && b.Texture.state != StateShaderRead && b.Texture.state != StateGenericRead {
			return fmt.Errorf("rhi: binding texture %q in state %s: %w",
				b.Texture.Label, b.Texture.state, ErrInvalidState)
		}
	}
	cb.commands = append(cb.commands, command{op: opSetBindings, bindings: bindings})
	return nil
}

// SetVertexBuffer binds a vertex buffer to the slot.
func (cb *CommandBuffer) SetVertexBuffer(slot uint32, b *Buffer, offset uint64) error {
	if err := cb.recording(); err != nil {
		return err
	}
	if b.Usage&BufferVertex == 0 {
		return fmt.Errorf("rhi: %q lacks vertex usage: %w", b.Label, ErrInvalidState)
	}
	cb.commands = append(cb.commands, command{op: opSetVertexBuffer, buffer: b, slot: slot, offset: offset})
	return nil
}

// SetIndexBuffer binds the 32-bit index buffer.
func (cb *CommandBuffer) SetIndexBuffer(b *Buffer, offset uint64) error {
	if err := cb.recording(); err != nil {
		return err
	}
	if b.Usage&BufferIndex == 0 {
		return fmt.Errorf("rhi: %q lacks index usage: %w", b.Label, ErrInvalidState)
	}
	cb.commands = append(cb.commands, command{op: opSetIndexBuffer, buffer: b, offset: offset})
	return nil
}

// Draw issues a non-indexed draw.
func (cb *CommandBuffer) Draw(vertexCount, instanceCount, firstVertex uint32) error {
	if err := cb.drawReady(); err != nil {
		return err
	}
	cb.commands = append(cb.commands, command{
		op: opDraw, vertexCount: vertexCount, instanceCount: instanceCount, firstVertex: firstVertex,
	})
	return nil
}

// DrawIndexed issues an indexed draw.
func (cb *CommandBuffer) DrawIndexed(indexCount, instanceCount, firstIndex uint32) error {
	if err := cb.drawReady(); err != nil {
		return err
	}
	cb.commands = append(cb.commands, command{
		op: opDrawIndexed, indexCount: indexCount, instanceCount: instanceCount, firstIndex: firstIndex,
	})
	return nil
}

func (cb *CommandBuffer) drawReady() error {
	if err := cb.recording(); err != nil {
		return err
	}
	if !cb.inRenderPass {
		return fmt.Errorf("rhi: draw outside render pass: %w", ErrInvalidState)
	}
	if !cb.hasPipeline || cb.boundKind != PipelineRender {
		return fmt.Errorf("rhi: draw without render pipeline: %w", ErrInvalidState)
	}
	return nil
}

// Dispatch records a compute dispatch. Not allowed inside a render pass.
func (cb *CommandBuffer) Dispatch(p *Pipeline, bindings []Binding, x, y, z uint32) error {
	if err := cb.recording(); err != nil {
		return err
	}
	if cb.inRenderPass {
		return fmt.Errorf("rhi: dispatch inside render pass: %w", ErrInvalidState)
	}
	if p.Kind != PipelineCompute {
		return fmt.Errorf("rhi: dispatch with pipeline %q of wrong kind: %w", p.Label, ErrInvalidState)
	}
	if y == 0 {
		y = 1
	}
	if z == 0 {
		z = 1
	}
	cb.commands = append(cb.commands, command{
		op: opDispatch, pipeline: p, bindings: bindings, x: x, y: y, z: z,
	})
	return nil
}

// CopyBuffer records a buffer-to-buffer copy. Source must be in CopySrc and
// destination in CopyDst.
func (cb *CommandBuffer) CopyBuffer(src *Buffer, srcOffset uint64, dst *Buffer, dstOffset, size uint64) error {
	if err := cb.recording(); err != nil {
		return err
	}
	if cb.inRenderPass {
		return fmt.Errorf("rhi: copy inside render pass: %w", ErrInvalidState)
	}
	if src.state != StateCopySrc && src.state != StateCommon && src.state != StateGenericRead {
		return fmt.Errorf("rhi: copy source %q in state %s: %w", src.Label, src.state, ErrInvalidState)
	}
	if dst.state != StateCopyDst && dst.state != StateCommon {
		return fmt.Errorf("rhi: copy destination %q in state %s: %w", dst.Label, dst.state, ErrInvalidState)
	}
	if srcOffset+size > src.Size || dstOffset+size > dst.Size {
		return fmt.Errorf("rhi: copy %d bytes %q→%q: %w", size, src.Label, dst.Label, ErrOutOfBounds)
	}
	cb.commands = append(cb.commands, command{
		op: opCopyBuffer, srcBuffer: src, dstBuffer: dst,
		srcOffset: srcOffset, dstOffset: dstOffset, size: size,
	})
	return nil
}
