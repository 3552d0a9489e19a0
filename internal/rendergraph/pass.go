package rendergraph

import (
	"fmt"

	"helix3d/internal/rhi"
)

// PassFunc records the body of a pass. The graph has already transitioned
// the pass's declared reads and writes.
type PassFunc func(cb *rhi.CommandBuffer, g *Graph) error

type passKind uint8

const (
	passCallback passKind = iota
	passClear
	passBarrier
)

type pass struct {
	name   string
	kind   passKind
	reads  []Handle
	writes []Handle
	fn     PassFunc

	// clear pass
	clearTarget Handle
	clearColor  rhi.Color
	clearDepth  Handle

	// barrier pass
	barrierTarget Handle
	barrierState  rhi.ResourceState
}

// AddPass appends a pass that reads and writes the given resources. fn runs
// during Execute with the transitions already recorded.
func (g *Graph) AddPass(name string, reads, writes []Handle, fn PassFunc) {
	g.passes = append(g.passes, pass{
		name: name, kind: passCallback, reads: reads, writes: writes, fn: fn,
	})
}

// AddClearPass appends a pass that clears the color target, and optionally a
// depth target, to fixed values. Pass InvalidHandle for depth to skip it.
func (g *Graph) AddClearPass(name string, color Handle, clearColor rhi.Color, depth Handle) {
	g.passes = append(g.passes, pass{
		name:        name,
		kind:        passClear,
		writes:      clearWrites(color, depth),
		clearTarget: color,
		clearColor:  clearColor,
		clearDepth:  depth,
	})
}

func clearWrites(color, depth Handle) []Handle {
	writes := []Handle{color}
	if depth != InvalidHandle {
		writes = append(writes, depth)
	}
	return writes
}

// AddBarrier appends an explicit transition for cases the read/write
// derivation cannot express, such as preparing a copy source.
func (g *Graph) AddBarrier(name string, target Handle, state rhi.ResourceState) {
	g.passes = append(g.passes, pass{
		name:          name,
		kind:          passBarrier,
		barrierTarget: target,
		barrierState:  state,
	})
}

func (p *pass) record(cb *rhi.CommandBuffer, g *Graph) error {
	switch p.kind {
	case passCallback:
		if p.fn == nil {
			return nil
		}
		return p.fn(cb, g)

	case passClear:
		target := g.Texture(p.clearTarget)
		if target == nil {
			return fmt.Errorf("clear target %d is not a texture", p.clearTarget)
		}
		desc := rhi.RenderPassDesc{
			Label: p.name,
			Color: []rhi.ColorAttachmentDesc{{
				Texture:    target,
				LoadOp:     rhi.LoadOpClear,
				StoreOp:    rhi.StoreOpStore,
				ClearColor: p.clearColor,
			}},
		}
		if p.clearDepth != InvalidHandle {
			depth := g.Texture(p.clearDepth)
			if depth == nil {
				return fmt.Errorf("clear depth %d is not a texture", p.clearDepth)
			}
			desc.Depth = &rhi.DepthAttachmentDesc{
				Texture:    depth,
				LoadOp:     rhi.LoadOpClear,
				StoreOp:    rhi.StoreOpStore,
				ClearDepth: 1,
			}
		}
		if err := cb.BeginRenderPass(desc); err != nil {
			return err
		}
		return cb.EndRenderPass()

	case passBarrier:
		r, ok := g.resourceAt(p.barrierTarget)
		if !ok {
			return fmt.Errorf("barrier target %d does not exist", p.barrierTarget)
		}
		switch r.kind {
		case resTexture:
			if r.texture.State() == p.barrierState {
				return nil
			}
			return cb.TransitionTexture(r.texture, p.barrierState)
		case resBuffer:
			if r.buffer.State() == p.barrierState {
				return nil
			}
			return cb.TransitionBuffer(r.buffer, p.barrierState)
		}
	}
	return nil
}
