package renderer

import (
	"log/slog"
	"maps"
	"sync"

	"github.com/Carmen-Shannon/oxy-canvas/common"
	"github.com/Carmen-Shannon/oxy-canvas/engine/canvas"
	"github.com/Carmen-Shannon/oxy-canvas/engine/gpu"
	"github.com/Carmen-Shannon/oxy-canvas/engine/renderer/mesh"
	"github.com/Carmen-Shannon/oxy-canvas/engine/renderer/pipeline"
	"github.com/pkg/errors"
)

var (
	// ErrPipelineNotFound is returned when a draw names a pipeline key that was never registered.
	ErrPipelineNotFound = errors.New("renderer: pipeline not found")
	// ErrMeshNotInitialized is returned when a draw uses a mesh without a vertex buffer.
	ErrMeshNotInitialized = errors.New("renderer: mesh buffers not initialized")
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	pipelineCache map[string]pipeline.Pipeline
	pending       []pipeline.Pipeline

	canvas       canvas.Canvas
	ctx          *gpu.Context
	requirements gpu.RenderPassRequirements
}

// DrawParams selects what part of a mesh a DrawCall draws and the push constants it sets.
type DrawParams struct {
	// Range is the vertex or index range to draw. A zero Range draws the whole mesh.
	Range common.Range
	// BaseVertex is added to every index of an indexed draw.
	BaseVertex int32
	// Instances is the instance count; 0 draws one instance.
	Instances uint32
	// PushConstants is written at PushOffset for PushStages before the draw, when non-empty.
	PushConstants []byte
	PushStages    gpu.ShaderStage
	PushOffset    uint32
}

// Renderer defines the interface for the pipeline and mesh layer above a Canvas.
//
// The Renderer manages a cache of pipelines built for the canvas' render pass requirements and records
// draw calls into frames opened by Canvas.BeginFrame. It never begins or ends frames itself.
type Renderer interface {
	// Pipeline retrieves the cached Pipeline associated with the given key.
	// If the Pipeline does not exist, this will return nil.
	//
	// Parameters:
	//   - key: the unique identifier for the Pipeline to retrieve
	//
	// Returns:
	//   - pipeline.Pipeline: the Pipeline associated with the key, or nil if not found
	Pipeline(key string) pipeline.Pipeline

	// Pipelines retrieves a copy of the pipeline cache.
	//
	// Returns:
	//   - map[string]pipeline.Pipeline: a map of pipeline keys to their corresponding Pipeline objects
	Pipelines() map[string]pipeline.Pipeline

	// RegisterPipelines registers one or more pipelines by creating the corresponding GPU pipeline objects,
	// then caching them by PipelineKey. Pipelines whose keys are already registered are skipped to avoid
	// duplicate GPU resource creation.
	//
	// Parameters:
	//   - pipelines: the Pipelines to register
	//
	// Returns:
	//   - error: an error if pipeline creation fails; pipelines registered before the failure stay cached
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// InitMeshBuffers creates GPU vertex and index buffers from raw byte data and stores them
	// on the given Mesh for later use in draw calls.
	//
	// Parameters:
	//   - m: the Mesh to store the created buffers on
	//   - vertexData: the raw vertex data bytes to upload to the GPU
	//   - vertexCount: the number of vertices in vertexData
	//   - indexData: the raw index data bytes, or nil for a non-indexed mesh
	//   - indexFormat: the element type of indexData
	//
	// Returns:
	//   - error: an error if buffer creation fails
	InitMeshBuffers(m mesh.Mesh, vertexData []byte, vertexCount uint32, indexData []byte, indexFormat gpu.IndexFormat) error

	// DrawCall records a single draw of a mesh into an open frame: it binds the pipeline and the mesh
	// buffers, pushes constants and issues an indexed or non-indexed draw.
	//
	// Parameters:
	//   - f: the frame returned by Canvas.BeginFrame
	//   - pipelineKey: the unique identifier for the cached Pipeline to use
	//   - m: the mesh to draw
	//   - params: the range, instance count and push constants
	//
	// Returns:
	//   - error: ErrPipelineNotFound, ErrMeshNotInitialized, or the recording error from the frame
	DrawCall(f *canvas.Frame, pipelineKey string, m mesh.Mesh, params DrawParams) error

	// Destroy synchronizes the canvas and then releases every cached GPU pipeline, so frames
	// still in flight finish with them first. It must not be called while a frame is open.
	Destroy()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer drawing into frames of the given canvas.
//
// Parameters:
//   - c: the canvas whose device and render pass requirements pipelines are built for
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the renderer
//   - error: an error if a pipeline passed through WithPipeline could not be created
func NewRenderer(c canvas.Canvas, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:            &sync.Mutex{},
		pipelineCache: make(map[string]pipeline.Pipeline),
		canvas:        c,
		ctx:           c.Context(),
		requirements:  c.RenderPassRequirements(),
	}
	for _, opt := range options {
		opt(r)
	}
	if err := r.RegisterPipelines(r.pending...); err != nil {
		r.Destroy()
		return nil, err
	}
	r.pending = nil
	return r, nil
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) Pipelines() map[string]pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.pipelineCache)
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pipelines {
		key := p.PipelineKey()
		if _, exists := r.pipelineCache[key]; exists {
			continue
		}
		gp, err := r.createPipeline(p)
		if err != nil {
			return errors.Wrapf(err, "pipeline %q", key)
		}
		p.SetPipeline(gp)
		r.pipelineCache[key] = p
		common.Logger().Debug("pipeline registered", slog.String("key", key))
	}
	return nil
}

func (r *renderer) createPipeline(p pipeline.Pipeline) (*gpu.Pipeline, error) {
	if p.VertexShader() == nil {
		return nil, errors.Wrap(gpu.ErrInvalidParameters, "no vertex shader")
	}
	vs, err := r.ctx.CreateShaderModule(*p.VertexShader())
	if err != nil {
		return nil, err
	}
	defer vs.Release()

	var fs *gpu.ShaderModule
	if desc := p.FragmentShader(); desc != nil {
		if fs, err = r.ctx.CreateShaderModule(*desc); err != nil {
			return nil, err
		}
		defer fs.Release()
	}

	layout, err := r.ctx.CreatePipelineLayout(gpu.PipelineLayoutDescriptor{
		Label:         p.PipelineKey() + " Layout",
		PushConstants: p.PushConstants(),
	})
	if err != nil {
		return nil, err
	}
	defer layout.Release()

	vertexEntry, fragmentEntry := p.EntryPoints()
	return r.ctx.CreateGraphicsPipeline(gpu.PipelineDescriptor{
		Label:              p.PipelineKey(),
		Layout:             layout,
		Vertex:             vs,
		VertexEntryPoint:   vertexEntry,
		Fragment:           fs,
		FragmentEntryPoint: fragmentEntry,
		VertexBuffers:      p.VertexLayouts(),
		Topology:           p.Topology(),
		CullMode:           p.CullMode(),
		Requirements:       r.requirements,
	})
}

func (r *renderer) InitMeshBuffers(m mesh.Mesh, vertexData []byte, vertexCount uint32, indexData []byte, indexFormat gpu.IndexFormat) error {
	vb, err := r.ctx.CreateBuffer(gpu.BufferDescriptor{
		Label: m.Label() + " Vertex Buffer",
		Usage: gpu.BufferUsageVertex,
	}, vertexData)
	if err != nil {
		return err
	}

	var ib *gpu.Buffer
	var indexCount uint32
	if len(indexData) > 0 {
		ib, err = r.ctx.CreateBuffer(gpu.BufferDescriptor{
			Label: m.Label() + " Index Buffer",
			Usage: gpu.BufferUsageIndex,
		}, indexData)
		if err != nil {
			vb.Release()
			return err
		}
		indexCount = uint32(uint64(len(indexData)) / indexFormat.Size())
	}

	m.SetVertexBuffer(vb, vertexCount)
	m.SetIndexBuffer(ib, indexFormat, indexCount)
	return nil
}

func (r *renderer) DrawCall(f *canvas.Frame, pipelineKey string, m mesh.Mesh, params DrawParams) error {
	r.mu.Lock()
	p, exists := r.pipelineCache[pipelineKey]
	r.mu.Unlock()

	if !exists {
		return errors.Wrapf(ErrPipelineNotFound, "%q", pipelineKey)
	}
	if m.VertexBuffer() == nil {
		return errors.Wrapf(ErrMeshNotInitialized, "%q", m.Label())
	}

	if err := f.BindPipeline(p.Pipeline()); err != nil {
		return err
	}
	if len(params.PushConstants) > 0 {
		if err := f.PushConstants(params.PushStages, params.PushOffset, params.PushConstants); err != nil {
			return err
		}
	}
	if err := f.BindVertexBuffer(0, m.VertexBuffer(), 0); err != nil {
		return err
	}

	rng := params.Range
	if rng == (common.Range{}) {
		rng = m.FullRange()
	}
	instances := max(params.Instances, 1)

	if !m.Indexed() {
		return f.Draw(rng, instances)
	}
	if err := f.BindIndexBuffer(m.IndexBuffer(), 0, m.IndexFormat()); err != nil {
		return err
	}
	return f.DrawIndexed(rng, params.BaseVertex, instances)
}

func (r *renderer) Destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()
	// A destroyed canvas has already drained its frames.
	if err := r.canvas.Synchronize(); err != nil && !errors.Is(err, canvas.ErrCanvasDestroyed) {
		common.Logger().Warn("renderer destroy: synchronize failed, releasing pipelines anyway", slog.Any("error", err))
	}
	for key, p := range r.pipelineCache {
		if gp := p.Pipeline(); gp != nil {
			gp.Release()
			p.SetPipeline(nil)
		}
		delete(r.pipelineCache, key)
	}
}
