package pipeline

import (
	"github.com/Carmen-Shannon/oxy-canvas/engine/gpu"
)

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithVertexShader sets the vertex shader for this pipeline.
//
// Parameters:
//   - desc: the vertex shader code, SPIRV for Vulkan or WGSL for WebGPU
//
// Returns:
//   - PipelineBuilderOption: a function that sets the vertex shader for this pipeline
func WithVertexShader(desc gpu.ShaderModuleDescriptor) PipelineBuilderOption {
	return func(p *pipeline) {
		desc.Stage = gpu.ShaderStageVertex
		p.vertexShader = &desc
	}
}

// WithFragmentShader sets the fragment shader for this pipeline.
//
// Parameters:
//   - desc: the fragment shader code, SPIRV for Vulkan or WGSL for WebGPU
//
// Returns:
//   - PipelineBuilderOption: a function that sets the fragment shader for this pipeline
func WithFragmentShader(desc gpu.ShaderModuleDescriptor) PipelineBuilderOption {
	return func(p *pipeline) {
		desc.Stage = gpu.ShaderStageFragment
		p.fragmentShader = &desc
	}
}

// WithEntryPoints overrides the shader entry point names. Both default to "main".
//
// Parameters:
//   - vertex: the vertex entry point
//   - fragment: the fragment entry point
//
// Returns:
//   - PipelineBuilderOption: a function that sets the entry points for this pipeline
func WithEntryPoints(vertex, fragment string) PipelineBuilderOption {
	return func(p *pipeline) {
		if vertex != "" {
			p.vertexEntryPoint = vertex
		}
		if fragment != "" {
			p.fragmentEntryPoint = fragment
		}
	}
}

// WithVertexLayout appends a vertex buffer layout. Layouts are bound to consecutive slots in the order given.
//
// Parameters:
//   - layout: the vertex buffer layout
//
// Returns:
//   - PipelineBuilderOption: a function that adds the vertex layout to this pipeline
func WithVertexLayout(layout gpu.VertexBufferLayout) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertexLayouts = append(p.vertexLayouts, layout)
	}
}

// WithPushConstants declares a push constant range on the pipeline layout.
//
// Parameters:
//   - stages: the shader stages that read the range
//   - offset: the byte offset of the range, a multiple of 4
//   - size: the byte size of the range, a multiple of 4
//
// Returns:
//   - PipelineBuilderOption: a function that adds the push constant range to this pipeline
func WithPushConstants(stages gpu.ShaderStage, offset, size uint32) PipelineBuilderOption {
	return func(p *pipeline) {
		p.pushConstants = append(p.pushConstants, gpu.PushConstantRange{Stages: stages, Offset: offset, Size: size})
	}
}

// WithCullMode sets the face culling mode for this pipeline.
//
// Parameters:
//   - mode: the cull mode to use
//
// Returns:
//   - PipelineBuilderOption: a function that sets the cull mode for this pipeline
func WithCullMode(mode gpu.CullMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.cullMode = mode
	}
}

// WithTopology sets the primitive topology for this pipeline.
//
// Parameters:
//   - topology: the primitive topology to use
//
// Returns:
//   - PipelineBuilderOption: a function that sets the primitive topology for this pipeline
func WithTopology(topology gpu.PrimitiveTopology) PipelineBuilderOption {
	return func(p *pipeline) {
		p.topology = topology
	}
}
