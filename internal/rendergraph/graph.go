// Package rendergraph schedules render and compute passes over declared
// resources. Passes name what they read and write; the graph derives the
// resource transitions and leaves the back buffer ready to present.
package rendergraph

import (
	"fmt"

	"go.uber.org/zap"

	"helix3d/internal/rhi"
)

// Handle identifies a graph resource. Handles are only meaningful within the
// graph that created them.
type Handle int32

// InvalidHandle is the zero value no resource ever gets.
const InvalidHandle Handle = -1

type resourceKind uint8

const (
	resTexture resourceKind = iota
	resBuffer
)

type resource struct {
	name    string
	kind    resourceKind
	texture *rhi.Texture
	buffer  *rhi.Buffer
	// imported resources are owned by the caller, not the graph.
	imported bool
	// present marks the imported back buffer that Execute leaves in the
	// Present state.
	present bool
}

// Graph owns transient GPU resources and an ordered list of passes.
// Build once per frame or keep it alive and re-execute; passes run in the
// order they were added.
type Graph struct {
	dev *rhi.Device
	log *zap.Logger

	resources []resource
	passes    []pass

	// frame parameters, uploaded in insertion order into the param buffer
	paramOrder  []string
	paramData   map[string][]byte
	paramOffset map[string]uint64
	paramBuf    *rhi.Buffer
	paramDirty  bool
}

// New creates an empty graph on the device. A nil logger disables logging.
func New(dev *rhi.Device, log *zap.Logger) *Graph {
	if log == nil {
		log = zap.NewNop()
	}
	return &Graph{
		dev:         dev,
		log:         log,
		paramData:   make(map[string][]byte),
		paramOffset: make(map[string]uint64),
	}
}

// CreateTexture declares a transient texture owned by the graph.
func (g *Graph) CreateTexture(desc rhi.TextureDesc) (Handle, error) {
	t, err := g.dev.CreateTexture(desc)
	if err != nil {
		return InvalidHandle, err
	}
	g.resources = append(g.resources, resource{name: desc.Label, kind: resTexture, texture: t})
	return Handle(len(g.resources) - 1), nil
}

// CreateBuffer declares a transient buffer owned by the graph.
func (g *Graph) CreateBuffer(desc rhi.BufferDesc) (Handle, error) {
	b, err := g.dev.CreateBuffer(desc, nil)
	if err != nil {
		return InvalidHandle, err
	}
	g.resources = append(g.resources, resource{name: desc.Label, kind: resBuffer, buffer: b})
	return Handle(len(g.resources) - 1), nil
}

// ImportTexture registers an externally owned texture, such as a shadow map
// shared between graphs.
func (g *Graph) ImportTexture(name string, t *rhi.Texture) Handle {
	g.resources = append(g.resources, resource{name: name, kind: resTexture, texture: t, imported: true})
	return Handle(len(g.resources) - 1)
}

// ImportBackBuffer registers the swapchain texture for this frame. Execute
// transitions it to the Present state after the last pass. The handle is
// stable across frames; re-importing swaps the texture behind it.
func (g *Graph) ImportBackBuffer(t *rhi.Texture) Handle {
	for i := range g.resources {
		if g.resources[i].present {
			g.resources[i].texture = t
			return Handle(i)
		}
	}
	g.resources = append(g.resources, resource{
		name: "backbuffer", kind: resTexture, texture: t, imported: true, present: true,
	})
	return Handle(len(g.resources) - 1)
}

// Texture resolves a handle to its texture, or nil.
func (g *Graph) Texture(h Handle) *rhi.Texture {
	if r, ok := g.resourceAt(h); ok && r.kind == resTexture {
		return r.texture
	}
	return nil
}

// Buffer resolves a handle to its buffer, or nil.
func (g *Graph) Buffer(h Handle) *rhi.Buffer {
	if r, ok := g.resourceAt(h); ok && r.kind == resBuffer {
		return r.buffer
	}
	return nil
}

func (g *Graph) resourceAt(h Handle) (*resource, bool) {
	if h < 0 || int(h) >= len(g.resources) {
		return nil, false
	}
	return &g.resources[int(h)], true
}

// SetParam stores a named frame parameter. Parameters keep their insertion
// order and pack into one uniform buffer uploaded at Execute.
func (g *Graph) SetParam(name string, data []byte) {
	if _, ok := g.paramData[name]; !ok {
		g.paramOrder = append(g.paramOrder, name)
	}
	g.paramData[name] = data
	g.paramDirty = true
}

// ParamBuffer returns the packed parameter buffer, nil before first Execute.
func (g *Graph) ParamBuffer() *rhi.Buffer { return g.paramBuf }

// ParamOffset returns the byte offset of a parameter in the param buffer.
func (g *Graph) ParamOffset(name string) (uint64, bool) {
	off, ok := g.paramOffset[name]
	return off, ok
}

// uniformAlign pads each parameter to the minimum uniform offset alignment.
const uniformAlign = 256

func (g *Graph) uploadParams() error {
	if !g.paramDirty {
		return nil
	}
	var total uint64
	for _, name := range g.paramOrder {
		g.paramOffset[name] = total
		size := uint64(len(g.paramData[name]))
		total += (size + uniformAlign - 1) / uniformAlign * uniformAlign
	}
	if total == 0 {
		g.paramDirty = false
		return nil
	}

	// grow monotonically, never shrink
	if g.paramBuf == nil || g.paramBuf.Size < total {
		if g.paramBuf != nil {
			g.paramBuf.Release()
		}
		size := uint64(uniformAlign)
		for size < total {
			size *= 2
		}
		buf, err := g.dev.CreateBuffer(rhi.BufferDesc{
			Label: "rendergraph-params",
			Size:  size,
			Usage: rhi.BufferUniform | rhi.BufferCopyDst,
		}, nil)
		if err != nil {
			return fmt.Errorf("rendergraph: param buffer: %w", err)
		}
		g.paramBuf = buf
	}
	for _, name := range g.paramOrder {
		if err := g.paramBuf.Write(g.paramOffset[name], g.paramData[name]); err != nil {
			return err
		}
	}
	g.paramDirty = false
	return nil
}

// Execute records every pass into one command buffer, emitting the resource
// transitions each pass declared, submits it, and leaves any imported back
// buffer in the Present state.
func (g *Graph) Execute() error {
	if err := g.uploadParams(); err != nil {
		return err
	}

	cb := g.dev.NewCommandBuffer("rendergraph")
	if err := cb.Begin(); err != nil {
		return err
	}

	for i := range g.passes {
		p := &g.passes[i]
		if err := g.transitionFor(cb, p); err != nil {
			return fmt.Errorf("rendergraph: pass %q: %w", p.name, err)
		}
		if err := p.record(cb, g); err != nil {
			return fmt.Errorf("rendergraph: pass %q: %w", p.name, err)
		}
	}

	// the back buffer leaves the graph presentable
	for i := range g.resources {
		r := &g.resources[i]
		if r.present && r.texture.State() != rhi.StatePresent {
			if err := cb.TransitionTexture(r.texture, rhi.StatePresent); err != nil {
				return err
			}
		}
	}

	if err := cb.End(); err != nil {
		return err
	}
	return g.dev.Submit(cb)
}

// transitionFor moves a pass's reads and writes into the states the pass
// needs, skipping resources already there.
func (g *Graph) transitionFor(cb *rhi.CommandBuffer, p *pass) error {
	for _, h := range p.writes {
		r, ok := g.resourceAt(h)
		if !ok {
			return fmt.Errorf("invalid write handle %d", h)
		}
		switch r.kind {
		case resTexture:
			want := rhi.StateColorAttachment
			if r.texture.Format.IsDepth() {
				want = rhi.StateDepthWrite
			}
			if r.texture.State() != want {
				if err := cb.TransitionTexture(r.texture, want); err != nil {
					return err
				}
			}
		case resBuffer:
			if r.buffer.State() != rhi.StateCopyDst {
				if err := cb.TransitionBuffer(r.buffer, rhi.StateCopyDst); err != nil {
					return err
				}
			}
		}
	}
	for _, h := range p.reads {
		r, ok := g.resourceAt(h)
		if !ok {
			return fmt.Errorf("invalid read handle %d", h)
		}
		switch r.kind {
		case resTexture:
			if r.texture.State() != rhi.StateShaderRead {
				if err := cb.TransitionTexture(r.texture, rhi.StateShaderRead); err != nil {
					return err
				}
			}
		case resBuffer:
			if r.buffer.State() != rhi.StateGenericRead {
				if err := cb.TransitionBuffer(r.buffer, rhi.StateGenericRead); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Reset drops all passes but keeps resources and parameters, for graphs
// rebuilt every frame over persistent targets.
func (g *Graph) Reset() {
	g.passes = g.passes[:0]
}

// Release frees all graph-owned resources.
func (g *Graph) Release() {
	for _, r := range g.resources {
		if r.imported {
			continue
		}
		switch r.kind {
		case resTexture:
			r.texture.Release()
		case resBuffer:
			r.buffer.Release()
		}
	}
	g.resources = nil
	if g.paramBuf != nil {
		g.paramBuf.Release()
		g.paramBuf = nil
	}
}
