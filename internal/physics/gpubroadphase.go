package physics

import (
	"fmt"
	"sort"

	"helix3d/internal/rhi"
)

// boundingSphere is the packed GPU layout: xyz center, w radius.
type boundingSphere struct {
	X, Y, Z, R float32
}

// gpuPair matches the shader's output record.
type gpuPair struct {
	A, B uint32
}

const broadphaseWGSL = `
struct Sphere {
    pos: vec3<f32>,
    radius: f32,
}

struct Pair {
    a: u32,
    b: u32,
}

struct Params {
    count: u32,
}

@group(0) @binding(0) var<storage, read> spheres: array<Sphere>;
@group(0) @binding(1) var<storage, read_write> pairs: array<Pair>;
@group(0) @binding(2) var<storage, read_write> pairCount: atomic<u32>;
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    let i = gid.x;
    if (i >= params.count) {
        return;
    }
    let a = spheres[i];
    for (var j = i + 1u; j < params.count; j = j + 1u) {
        let b = spheres[j];
        let diff = a.pos - b.pos;
        let distSq = dot(diff, diff);
        let sum = a.radius + b.radius;
        if (distSq < sum * sum) {
            let idx = atomicAdd(&pairCount, 1u);
            if (idx < arrayLength(&pairs)) {
                pairs[idx] = Pair(i, j);
            }
        }
    }
}
`

// ComputeBroadPhase finds candidate pairs with an all-pairs bounding-sphere
// cull on the GPU. It satisfies GPUBroadPhase; the world falls back to the
// CPU sweep when a dispatch fails.
type ComputeBroadPhase struct {
	dev      *rhi.Device
	pipeline *rhi.Pipeline

	sphereBuf *rhi.Buffer
	pairBuf   *rhi.Buffer
	countBuf  *rhi.Buffer
	paramBuf  *rhi.Buffer

	maxBodies uint32
	maxPairs  uint32

	// scratch reused across frames
	spheres []boundingSphere
}

// NewComputeBroadPhase allocates the pipeline and buffers for up to maxBodies
// bodies. maxPairs caps the output; a generous value is maxBodies*8.
func NewComputeBroadPhase(dev *rhi.Device, maxBodies, maxPairs uint32) (*ComputeBroadPhase, error) {
	if maxPairs == 0 {
		maxPairs = maxBodies * 8
	}
	shader, err := dev.CreateShader("broadphase", broadphaseWGSL)
	if err != nil {
		return nil, fmt.Errorf("physics: broadphase shader: %w", err)
	}
	pipeline, err := dev.CreateComputePipeline(rhi.ComputePipelineDesc{
		Label:  "broadphase",
		Shader: shader,
		Entry:  "main",
	})
	if err != nil {
		return nil, fmt.Errorf("physics: broadphase pipeline: %w", err)
	}

	sphereBuf, err := dev.CreateBuffer(rhi.BufferDesc{
		Label: "broadphase-spheres",
		Size:  uint64(maxBodies) * 16,
		Usage: rhi.BufferStorage | rhi.BufferCopyDst,
	}, nil)
	if err != nil {
		return nil, err
	}
	pairBuf, err := dev.CreateBuffer(rhi.BufferDesc{
		Label: "broadphase-pairs",
		Size:  uint64(maxPairs) * 8,
		Usage: rhi.BufferStorage | rhi.BufferCopySrc,
	}, nil)
	if err != nil {
		return nil, err
	}
	countBuf, err := dev.CreateBuffer(rhi.BufferDesc{
		Label: "broadphase-count",
		Size:  4,
		Usage: rhi.BufferStorage | rhi.BufferCopySrc | rhi.BufferCopyDst,
	}, nil)
	if err != nil {
		return nil, err
	}
	paramBuf, err := dev.CreateBuffer(rhi.BufferDesc{
		Label: "broadphase-params",
		Size:  16,
		Usage: rhi.BufferUniform | rhi.BufferCopyDst,
	}, nil)
	if err != nil {
		return nil, err
	}

	return &ComputeBroadPhase{
		dev:       dev,
		pipeline:  pipeline,
		sphereBuf: sphereBuf,
		pairBuf:   pairBuf,
		countBuf:  countBuf,
		paramBuf:  paramBuf,
		maxBodies: maxBodies,
		maxPairs:  maxPairs,
	}, nil
}

// Pairs uploads bounding spheres for all bodies, dispatches the cull and
// reads back the overlapping index pairs.
func (bp *ComputeBroadPhase) Pairs(bodies []*RigidBody) ([][2]int, error) {
	n := uint32(len(bodies))
	if n > bp.maxBodies {
		return nil, fmt.Errorf("physics: %d bodies exceed broadphase capacity %d", n, bp.maxBodies)
	}
	if n < 2 {
		return nil, nil
	}

	bp.spheres = bp.spheres[:0]
	for _, b := range bodies {
		box := b.AABB()
		center := box.Center()
		radius := box.Extents().Length()
		bp.spheres = append(bp.spheres, boundingSphere{
			X: center.X, Y: center.Y, Z: center.Z, R: radius,
		})
	}

	if err := bp.sphereBuf.Write(0, rhi.ToBytes(bp.spheres)); err != nil {
		return nil, err
	}
	if err := bp.countBuf.Write(0, rhi.ToBytes([]uint32{0})); err != nil {
		return nil, err
	}
	if err := bp.paramBuf.Write(0, rhi.ToBytes([]uint32{n, 0, 0, 0})); err != nil {
		return nil, err
	}

	workgroups := (n + 255) / 256
	err := bp.dev.DispatchCompute(bp.pipeline,
		[]*rhi.Buffer{bp.sphereBuf, bp.pairBuf, bp.countBuf, bp.paramBuf},
		workgroups, 1, 1)
	if err != nil {
		return nil, err
	}

	countData, err := bp.dev.ReadBuffer(bp.countBuf)
	if err != nil {
		return nil, err
	}
	count := rhi.FromBytes[uint32](countData)[0]
	if count == 0 {
		return nil, nil
	}
	if count > bp.maxPairs {
		count = bp.maxPairs
	}

	pairData, err := bp.dev.ReadBuffer(bp.pairBuf)
	if err != nil {
		return nil, err
	}
	raw := rhi.FromBytes[gpuPair](pairData)[:count]

	out := make([][2]int, 0, count)
	for _, p := range raw {
		if p.A < n && p.B < n {
			out = append(out, [2]int{int(p.A), int(p.B)})
		}
	}
	// atomicAdd order varies between dispatches; restore the order the CPU
	// sweep would produce so event dispatch stays deterministic
	sortCandidatePairs(out)
	return out, nil
}

func sortCandidatePairs(pairs [][2]int) {
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})
}

// Release frees the GPU resources.
func (bp *ComputeBroadPhase) Release() {
	bp.pipeline.Release()
	bp.sphereBuf.Release()
	bp.pairBuf.Release()
	bp.countBuf.Release()
	bp.paramBuf.Release()
}
