package gpu

import (
	"github.com/pkg/errors"
)

// CreateFence creates a fence handle.
//
// Parameters:
//   - signaled: whether the fence starts signaled
//
// Returns:
//   - *Handle[NativeFence]: the fence
//   - error: a *CreationError on failure
func (c *Context) CreateFence(signaled bool) (*Handle[NativeFence], error) {
	return NewHandle(c, ResourceKindFence,
		func(b Backend) (NativeFence, error) { return b.CreateFence(signaled) },
		func(b Backend, f NativeFence) { b.DestroyFence(f) })
}

// CreateSemaphore creates a binary semaphore handle.
func (c *Context) CreateSemaphore() (*Handle[NativeSemaphore], error) {
	return NewHandle(c, ResourceKindSemaphore,
		func(b Backend) (NativeSemaphore, error) { return b.CreateSemaphore() },
		func(b Backend, s NativeSemaphore) { b.DestroySemaphore(s) })
}

// CreateCommandPool creates a command pool whose buffers can be reset individually.
func (c *Context) CreateCommandPool() (*Handle[NativeCommandPool], error) {
	return NewHandle(c, ResourceKindCommandPool,
		func(b Backend) (NativeCommandPool, error) { return b.CreateCommandPool() },
		func(b Backend, p NativeCommandPool) { b.DestroyCommandPool(p) })
}

// AllocateCommandBuffer allocates a primary command buffer from pool. The pool is kept alive
// until the buffer is freed.
func (c *Context) AllocateCommandBuffer(pool *Handle[NativeCommandPool]) (*Handle[CommandBuffer], error) {
	native := pool.Get()
	return NewHandle(c, ResourceKindCommandBuffer,
		func(b Backend) (CommandBuffer, error) { return b.AllocateCommandBuffer(native) },
		func(b Backend, cb CommandBuffer) { b.FreeCommandBuffer(native, cb) },
		pool)
}

// CreateRenderPass creates a render pass handle.
func (c *Context) CreateRenderPass(desc RenderPassDescriptor) (*Handle[NativeRenderPass], error) {
	if len(desc.ColorFormats) == 0 && desc.DepthStencilFormat == FormatUndefined {
		return nil, &CreationError{Kind: ResourceKindRenderPass, Err: errors.Wrap(ErrInvalidParameters, "render pass has no attachments")}
	}
	if uint32(len(desc.ColorFormats)) > c.limits.MaxColorAttachments {
		return nil, &CreationError{Kind: ResourceKindRenderPass, Err: errors.Wrapf(ErrInvalidParameters,
			"%d color attachments exceeds device limit %d", len(desc.ColorFormats), c.limits.MaxColorAttachments)}
	}
	return NewHandle(c, ResourceKindRenderPass,
		func(b Backend) (NativeRenderPass, error) { return b.CreateRenderPass(desc) },
		func(b Backend, rp NativeRenderPass) { b.DestroyRenderPass(rp) })
}

// CreateFramebuffer creates a framebuffer for a render pass. The framebuffer depends on the
// render pass handle and on every handle in deps, typically the swapchain and depth attachment
// whose views it references.
//
// It panics if the render pass needs more attachments than desc provides.
func (c *Context) CreateFramebuffer(rp *Handle[NativeRenderPass], rpDesc RenderPassDescriptor, desc FramebufferDescriptor, deps ...Dependency) (*Handle[NativeFramebuffer], error) {
	CheckAttachments(rpDesc, desc.Attachments)
	if desc.Extent.IsZero() {
		return nil, &CreationError{Kind: ResourceKindFramebuffer, Err: errors.Wrap(ErrInvalidParameters, "zero framebuffer extent")}
	}
	desc.RenderPass = rp.Get()
	parents := append([]Dependency{rp}, deps...)
	return NewHandle(c, ResourceKindFramebuffer,
		func(b Backend) (NativeFramebuffer, error) { return b.CreateFramebuffer(desc) },
		func(b Backend, fb NativeFramebuffer) { b.DestroyFramebuffer(fb) },
		parents...)
}

// CreateAttachment creates an offscreen attachment, such as a depth buffer, and its view.
func (c *Context) CreateAttachment(desc AttachmentDescriptor) (*Handle[NativeImageView], error) {
	if desc.Extent.IsZero() {
		return nil, &CreationError{Kind: ResourceKindAttachment, Err: errors.Wrap(ErrInvalidParameters, "zero attachment extent")}
	}
	return NewHandle(c, ResourceKindAttachment,
		func(b Backend) (NativeImageView, error) { return b.CreateAttachment(desc) },
		func(b Backend, v NativeImageView) { b.DestroyAttachment(v) })
}

// Buffer is a device buffer with its size and usage.
type Buffer struct {
	handle *Handle[NativeBuffer]
	size   uint64
	usage  BufferUsage
}

// CreateBuffer creates a buffer and uploads data into it. When desc.Size is zero the size of
// data is used.
//
// Parameters:
//   - desc: the buffer descriptor
//   - data: initial contents, may be nil
//
// Returns:
//   - *Buffer: the buffer
//   - error: a *CreationError on failure
func (c *Context) CreateBuffer(desc BufferDescriptor, data []byte) (*Buffer, error) {
	if desc.Size == 0 {
		desc.Size = uint64(len(data))
	}
	if desc.Size == 0 || uint64(len(data)) > desc.Size {
		return nil, &CreationError{Kind: ResourceKindBuffer, Err: errors.Wrapf(ErrInvalidParameters,
			"buffer %q size %d, data %d bytes", desc.Label, desc.Size, len(data))}
	}
	h, err := NewHandle(c, ResourceKindBuffer,
		func(b Backend) (NativeBuffer, error) { return b.CreateBuffer(desc, data) },
		func(b Backend, nb NativeBuffer) { b.DestroyBuffer(nb) })
	if err != nil {
		return nil, err
	}
	return &Buffer{handle: h, size: desc.Size, usage: desc.Usage}, nil
}

func (b *Buffer) Native() NativeBuffer { return b.handle.Get() }
func (b *Buffer) Size() uint64         { return b.size }
func (b *Buffer) Usage() BufferUsage   { return b.usage }

// Release releases the buffer. A nil buffer is ignored.
func (b *Buffer) Release() {
	if b != nil {
		b.handle.Release()
	}
}

// ShaderModule is a compiled shader for one stage.
type ShaderModule struct {
	handle *Handle[NativeShaderModule]
	stage  ShaderStage
}

// CreateShaderModule creates a shader module.
func (c *Context) CreateShaderModule(desc ShaderModuleDescriptor) (*ShaderModule, error) {
	if len(desc.SPIRV) == 0 && desc.WGSL == "" {
		return nil, &CreationError{Kind: ResourceKindShaderModule, Err: errors.Wrap(ErrInvalidParameters, "no shader code")}
	}
	h, err := NewHandle(c, ResourceKindShaderModule,
		func(b Backend) (NativeShaderModule, error) { return b.CreateShaderModule(desc) },
		func(b Backend, m NativeShaderModule) { b.DestroyShaderModule(m) })
	if err != nil {
		return nil, err
	}
	return &ShaderModule{handle: h, stage: desc.Stage}, nil
}

func (m *ShaderModule) Stage() ShaderStage { return m.stage }
func (m *ShaderModule) Release()           { m.handle.Release() }

// PipelineLayout declares the push constant ranges of a pipeline.
type PipelineLayout struct {
	handle        *Handle[NativePipelineLayout]
	pushConstants []PushConstantRange
}

// CreatePipelineLayout creates a pipeline layout. Push constant ranges must fit in the device limit.
func (c *Context) CreatePipelineLayout(desc PipelineLayoutDescriptor) (*PipelineLayout, error) {
	for _, r := range desc.PushConstants {
		if r.Offset+r.Size > c.limits.MaxPushConstantsSize {
			return nil, &CreationError{Kind: ResourceKindPipelineLayout, Err: errors.Wrapf(ErrInvalidParameters,
				"push constant range [%d, %d) exceeds device limit %d", r.Offset, r.Offset+r.Size, c.limits.MaxPushConstantsSize)}
		}
	}
	h, err := NewHandle(c, ResourceKindPipelineLayout,
		func(b Backend) (NativePipelineLayout, error) { return b.CreatePipelineLayout(desc) },
		func(b Backend, l NativePipelineLayout) { b.DestroyPipelineLayout(l) })
	if err != nil {
		return nil, err
	}
	return &PipelineLayout{handle: h, pushConstants: desc.PushConstants}, nil
}

// Native returns the native layout.
func (l *PipelineLayout) Native() NativePipelineLayout { return l.handle.Get() }

// PushConstantRanges returns the declared push constant ranges.
func (l *PipelineLayout) PushConstantRanges() []PushConstantRange { return l.pushConstants }

// PushConstantRange returns the end offset of the furthest range visible to every stage in
// stages, or 0 if no range covers them.
func (l *PipelineLayout) PushConstantRange(stages ShaderStage) uint32 {
	var end uint32
	for _, r := range l.pushConstants {
		if r.Stages&stages == stages {
			end = max(end, r.Offset+r.Size)
		}
	}
	return end
}

func (l *PipelineLayout) Release() { l.handle.Release() }

// PipelineDescriptor describes a graphics pipeline using wrapped resources.
type PipelineDescriptor struct {
	Label              string
	Layout             *PipelineLayout
	Vertex             *ShaderModule
	VertexEntryPoint   string
	Fragment           *ShaderModule
	FragmentEntryPoint string
	VertexBuffers      []VertexBufferLayout
	Topology           PrimitiveTopology
	CullMode           CullMode
	Requirements       RenderPassRequirements
}

// Pipeline is a graphics pipeline bound to one set of render pass requirements.
type Pipeline struct {
	handle       *Handle[NativePipeline]
	layout       *PipelineLayout
	layoutNative NativePipelineLayout
	requirements RenderPassRequirements
}

// CreateGraphicsPipeline creates a graphics pipeline. The pipeline keeps its layout alive.
// Shader modules may be released once this returns.
func (c *Context) CreateGraphicsPipeline(desc PipelineDescriptor) (*Pipeline, error) {
	if desc.Layout == nil || desc.Vertex == nil {
		return nil, &CreationError{Kind: ResourceKindPipeline, Err: errors.Wrap(ErrInvalidParameters, "pipeline needs a layout and a vertex shader")}
	}
	if uint32(desc.Requirements.ColorAttachmentCount()) > c.limits.MaxColorAttachments {
		return nil, &CreationError{Kind: ResourceKindPipeline, Err: errors.Wrapf(ErrInvalidParameters,
			"%d color attachments exceeds device limit %d", desc.Requirements.ColorAttachmentCount(), c.limits.MaxColorAttachments)}
	}
	native := GraphicsPipelineDescriptor{
		Label:              desc.Label,
		Layout:             desc.Layout.Native(),
		Vertex:             desc.Vertex.handle.Get(),
		VertexEntryPoint:   desc.VertexEntryPoint,
		FragmentEntryPoint: desc.FragmentEntryPoint,
		VertexBuffers:      desc.VertexBuffers,
		Topology:           desc.Topology,
		CullMode:           desc.CullMode,
		Requirements:       desc.Requirements,
	}
	if desc.Fragment != nil {
		native.Fragment = desc.Fragment.handle.Get()
	}
	h, err := NewHandle(c, ResourceKindPipeline,
		func(b Backend) (NativePipeline, error) { return b.CreateGraphicsPipeline(native) },
		func(b Backend, p NativePipeline) { b.DestroyPipeline(p) },
		desc.Layout.handle)
	if err != nil {
		return nil, err
	}
	return &Pipeline{handle: h, layout: desc.Layout, layoutNative: native.Layout, requirements: desc.Requirements}, nil
}

func (p *Pipeline) Native() NativePipeline { return p.handle.Get() }

// LayoutNative returns the native layout captured at creation. It stays valid while the
// pipeline is alive, even after the caller released its PipelineLayout.
func (p *Pipeline) LayoutNative() NativePipelineLayout { return p.layoutNative }

func (p *Pipeline) Layout() *PipelineLayout              { return p.layout }
func (p *Pipeline) Requirements() RenderPassRequirements { return p.requirements }
func (p *Pipeline) Release()                             { p.handle.Release() }
