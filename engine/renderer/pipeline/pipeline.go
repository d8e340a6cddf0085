package pipeline

import (
	"github.com/Carmen-Shannon/oxy-canvas/engine/gpu"
)

// pipeline is the implementation of the Pipeline interface.
// It holds the creation settings of a graphics pipeline and, once registered, the GPU object built from them.
type pipeline struct {
	// pipelineKey is the unique identifier for this pipeline, used for caching and lookups
	pipelineKey string

	// vertex and fragment shader code; the vertex shader is required before registration
	vertexShader, fragmentShader *gpu.ShaderModuleDescriptor
	vertexEntryPoint             string
	fragmentEntryPoint           string

	vertexLayouts []gpu.VertexBufferLayout
	pushConstants []gpu.PushConstantRange
	cullMode      gpu.CullMode
	topology      gpu.PrimitiveTopology

	// gpuPipeline is set by the renderer once the pipeline is registered
	gpuPipeline *gpu.Pipeline
}

// Pipeline defines the interface for a graphics pipeline description. It carries everything required
// to create the GPU pipeline for a canvas: shader code, vertex layouts, push constant ranges, cull mode
// and topology. The render pass requirements come from the canvas at registration time.
type Pipeline interface {
	// PipelineKey returns the unique key associated with this pipeline, used for caching and lookups.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// VertexShader returns the vertex shader code, or nil if none was set.
	//
	// Returns:
	//   - *gpu.ShaderModuleDescriptor: the vertex shader descriptor
	VertexShader() *gpu.ShaderModuleDescriptor

	// FragmentShader returns the fragment shader code, or nil for a depth only pipeline.
	//
	// Returns:
	//   - *gpu.ShaderModuleDescriptor: the fragment shader descriptor
	FragmentShader() *gpu.ShaderModuleDescriptor

	// EntryPoints returns the vertex and fragment entry point names.
	//
	// Returns:
	//   - string: the vertex entry point
	//   - string: the fragment entry point
	EntryPoints() (string, string)

	// VertexLayouts returns the layouts of the vertex buffers the pipeline reads.
	//
	// Returns:
	//   - []gpu.VertexBufferLayout: one layout per vertex buffer slot
	VertexLayouts() []gpu.VertexBufferLayout

	// PushConstants returns the push constant ranges declared by the pipeline layout.
	//
	// Returns:
	//   - []gpu.PushConstantRange: the declared ranges
	PushConstants() []gpu.PushConstantRange

	// CullMode returns the cull mode configured for this pipeline.
	//
	// Returns:
	//   - gpu.CullMode: the cull mode for this pipeline
	CullMode() gpu.CullMode

	// Topology returns the primitive topology configured for this pipeline.
	//
	// Returns:
	//   - gpu.PrimitiveTopology: the primitive topology for this pipeline
	Topology() gpu.PrimitiveTopology

	// Pipeline returns the GPU pipeline, or nil if the pipeline has not been registered yet.
	//
	// Returns:
	//   - *gpu.Pipeline: the GPU pipeline object
	Pipeline() *gpu.Pipeline

	// SetPipeline sets the GPU pipeline built from this description.
	//
	// Parameters:
	//   - p: the GPU pipeline to set
	SetPipeline(p *gpu.Pipeline)
}

var _ Pipeline = &pipeline{}

// NewPipeline is the entry point to create a new Pipeline interface.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new Pipeline instance with the specified configuration
func NewPipeline(pipelineKey string, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey:        pipelineKey,
		vertexEntryPoint:   "main",
		fragmentEntryPoint: "main",
		cullMode:           gpu.CullModeNone,
		topology:           gpu.PrimitiveTopologyTriangleList,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) VertexShader() *gpu.ShaderModuleDescriptor {
	return p.vertexShader
}

func (p *pipeline) FragmentShader() *gpu.ShaderModuleDescriptor {
	return p.fragmentShader
}

func (p *pipeline) EntryPoints() (string, string) {
	return p.vertexEntryPoint, p.fragmentEntryPoint
}

func (p *pipeline) VertexLayouts() []gpu.VertexBufferLayout {
	return p.vertexLayouts
}

func (p *pipeline) PushConstants() []gpu.PushConstantRange {
	return p.pushConstants
}

func (p *pipeline) CullMode() gpu.CullMode {
	return p.cullMode
}

func (p *pipeline) Topology() gpu.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) Pipeline() *gpu.Pipeline {
	return p.gpuPipeline
}

func (p *pipeline) SetPipeline(gp *gpu.Pipeline) {
	p.gpuPipeline = gp
}
