package rhi

// PipelineKind tags a pipeline as render or compute.
type PipelineKind uint8

const (
	PipelineRender PipelineKind = iota
	PipelineCompute
)

// Topology selects primitive assembly.
type Topology uint8

const (
	TopologyTriangles Topology = iota
	TopologyLines
	TopologyPoints
)

// CullMode selects face culling.
type CullMode uint8

const (
	CullNone CullMode = iota
	CullBack
	CullFront
)

// VertexFormat enumerates supported vertex attribute formats.
type VertexFormat uint8

const (
	VertexFloat32 VertexFormat = iota
	VertexFloat32x2
	VertexFloat32x3
	VertexFloat32x4
	VertexUint32
)

// Size returns the attribute size in bytes.
func (f VertexFormat) Size() uint64 {
	switch f {
	case VertexFloat32, VertexUint32:
		return 4
	case VertexFloat32x2:
		return 8
	case VertexFloat32x3:
		return 12
	case VertexFloat32x4:
		return 16
	}
	return 0
}

// VertexAttribute is one entry of the vertex layout.
type VertexAttribute struct {
	Format   VertexFormat
	Offset   uint64
	Location uint32
}

// RenderPipelineDesc fully describes a render pipeline. Vertex and fragment
// stages come from the same shader module.
type RenderPipelineDesc struct {
	Label string

	Shader        *Shader
	VertexEntry   string
	FragmentEntry string
	VertexStride  uint64
	VertexLayout  []VertexAttribute
	ColorFormat   Format
	DepthFormat   Format
	DepthWrite    bool
	DepthTest     bool
	Topology      Topology
	CullMode      CullMode
	BlendAlpha    bool
}

// ComputePipelineDesc describes a compute pipeline. Entry defaults to "main".
type ComputePipelineDesc struct {
	Label  string
	Shader *Shader
	Entry  string
}

// Pipeline is a compiled render or compute pipeline.
type Pipeline struct {
	Label string
	Kind  PipelineKind

	dev *Device
	raw any
	// rawLayout caches bind group layout 0 for binding creation.
	rawLayout any
}

// Release frees the pipeline.
func (p *Pipeline) Release() {
	p.dev.backend.destroyPipeline(p)
	p.raw = nil
	p.rawLayout = nil
}
