package renderer

import (
	"github.com/Carmen-Shannon/oxy-canvas/engine/renderer/pipeline"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithPipeline registers a Pipeline when the renderer is created. NewRenderer fails if it cannot be built.
//
// Parameters:
//   - p: the Pipeline to register
//
// Returns:
//   - RendererBuilderOption: a function that applies the pipeline option to a renderer
func WithPipeline(p pipeline.Pipeline) RendererBuilderOption {
	return func(r *renderer) {
		r.pending = append(r.pending, p)
	}
}

// WithPipelines registers several Pipelines when the renderer is created.
//
// Parameters:
//   - pipelines: the Pipelines to register
//
// Returns:
//   - RendererBuilderOption: a function that applies the pipelines option to a renderer
func WithPipelines(pipelines ...pipeline.Pipeline) RendererBuilderOption {
	return func(r *renderer) {
		r.pending = append(r.pending, pipelines...)
	}
}
