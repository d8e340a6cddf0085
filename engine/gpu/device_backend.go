package gpu

import (
	"fmt"
	"time"

	"github.com/Carmen-Shannon/oxy-canvas/common"
)

// BackendType identifies the native graphics API behind a Context.
type BackendType int

const (
	// BackendTypeVulkan drives the device through Vulkan with explicit fences and semaphores.
	BackendTypeVulkan BackendType = iota

	// BackendTypeWGPU drives the device through WebGPU. Fences are emulated with submission
	// indices and semaphores are implicit in queue ordering.
	BackendTypeWGPU

	// BackendTypeHeadless simulates a device in process. Submissions complete on a background
	// worker after a configurable latency. Used by tests and offscreen tooling.
	BackendTypeHeadless
)

func (t BackendType) String() string {
	switch t {
	case BackendTypeVulkan:
		return "vulkan"
	case BackendTypeWGPU:
		return "wgpu"
	case BackendTypeHeadless:
		return "headless"
	default:
		return fmt.Sprintf("BackendType(%d)", int(t))
	}
}

// ResourceKind names the kind of native object a Handle owns.
type ResourceKind int

const (
	ResourceKindFence ResourceKind = iota
	ResourceKindSemaphore
	ResourceKindCommandPool
	ResourceKindCommandBuffer
	ResourceKindRenderPass
	ResourceKindFramebuffer
	ResourceKindAttachment
	ResourceKindSwapchain
	ResourceKindSurface
	ResourceKindBuffer
	ResourceKindShaderModule
	ResourceKindPipelineLayout
	ResourceKindPipeline
)

var resourceKindNames = [...]string{
	ResourceKindFence:          "fence",
	ResourceKindSemaphore:      "semaphore",
	ResourceKindCommandPool:    "command pool",
	ResourceKindCommandBuffer:  "command buffer",
	ResourceKindRenderPass:     "render pass",
	ResourceKindFramebuffer:    "framebuffer",
	ResourceKindAttachment:     "attachment",
	ResourceKindSwapchain:      "swapchain",
	ResourceKindSurface:        "surface",
	ResourceKindBuffer:         "buffer",
	ResourceKindShaderModule:   "shader module",
	ResourceKindPipelineLayout: "pipeline layout",
	ResourceKindPipeline:       "pipeline",
}

func (k ResourceKind) String() string {
	if k >= 0 && int(k) < len(resourceKindNames) {
		return resourceKindNames[k]
	}
	return fmt.Sprintf("ResourceKind(%d)", int(k))
}

// Native object types. Each backend stores its own concrete value behind these; callers only
// pass them back into the same backend.
type (
	NativeFence          any
	NativeSemaphore      any
	NativeCommandPool    any
	NativeRenderPass     any
	NativeFramebuffer    any
	NativeImageView      any
	NativeSwapchain      any
	NativeSurface        any
	NativeBuffer         any
	NativeShaderModule   any
	NativePipelineLayout any
	NativePipeline       any
)

// Format is a backend neutral pixel format for color and depth attachments.
type Format int

const (
	FormatUndefined Format = iota
	FormatBGRA8Unorm
	FormatBGRA8UnormSRGB
	FormatRGBA8Unorm
	FormatRGBA8UnormSRGB
	FormatDepth32Float
	FormatDepth24PlusStencil8
)

// IsDepth reports whether the format is a depth or depth-stencil format.
func (f Format) IsDepth() bool {
	return f == FormatDepth32Float || f == FormatDepth24PlusStencil8
}

func (f Format) String() string {
	switch f {
	case FormatUndefined:
		return "undefined"
	case FormatBGRA8Unorm:
		return "bgra8unorm"
	case FormatBGRA8UnormSRGB:
		return "bgra8unorm-srgb"
	case FormatRGBA8Unorm:
		return "rgba8unorm"
	case FormatRGBA8UnormSRGB:
		return "rgba8unorm-srgb"
	case FormatDepth32Float:
		return "depth32float"
	case FormatDepth24PlusStencil8:
		return "depth24plus-stencil8"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeMailbox replaces the queued image with the newest one without tearing.
	// Not every surface supports it.
	PresentModeMailbox

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// SampleCount is the number of samples per pixel of an attachment.
type SampleCount uint32

const (
	SampleCount1 SampleCount = 1
	SampleCount4 SampleCount = 4
)

// ShaderStage is a bit set of programmable pipeline stages.
type ShaderStage uint32

const (
	ShaderStageVertex ShaderStage = 1 << iota
	ShaderStageFragment
)

// IndexFormat is the element type of an index buffer.
type IndexFormat int

const (
	IndexFormatUint16 IndexFormat = iota
	IndexFormatUint32
)

// Size returns the byte size of one index.
func (f IndexFormat) Size() uint64 {
	if f == IndexFormatUint16 {
		return 2
	}
	return 4
}

// BufferUsage is a bit set describing how a buffer will be bound.
type BufferUsage uint32

const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageIndex
	BufferUsageUniform
)

// VertexFormat is the type of a single vertex attribute.
type VertexFormat int

const (
	VertexFormatFloat32x2 VertexFormat = iota
	VertexFormatFloat32x3
	VertexFormatFloat32x4
)

// PrimitiveTopology selects how vertices are assembled into primitives.
type PrimitiveTopology int

const (
	PrimitiveTopologyTriangleList PrimitiveTopology = iota
	PrimitiveTopologyTriangleStrip
)

// CullMode selects which triangle faces are discarded.
type CullMode int

const (
	CullModeNone CullMode = iota
	CullModeBack
)

// LoadOp controls what happens to an attachment at the start of a render pass.
type LoadOp int

const (
	LoadOpClear LoadOp = iota
	LoadOpLoad
)

// Limits are the device limits the frame pipeline checks before recording.
type Limits struct {
	MaxPushConstantsSize uint32
	MaxFramebufferWidth  uint32
	MaxFramebufferHeight uint32
	MaxColorAttachments  uint32
}

// SurfaceCapabilities describes what a surface accepts when configuring a swapchain.
type SurfaceCapabilities struct {
	Formats       []Format
	PresentModes  []PresentMode
	MinImageCount uint32
	// MaxImageCount of 0 means no upper bound.
	MaxImageCount uint32
	MaxExtent     common.Extent2D
}

// SupportsFormat reports whether f is one of the surface formats.
func (c SurfaceCapabilities) SupportsFormat(f Format) bool {
	for _, sf := range c.Formats {
		if sf == f {
			return true
		}
	}
	return false
}

// SupportsPresentMode reports whether m is one of the surface present modes.
func (c SurfaceCapabilities) SupportsPresentMode(m PresentMode) bool {
	for _, pm := range c.PresentModes {
		if pm == m {
			return true
		}
	}
	return false
}

// SwapchainDescriptor configures a swapchain for a surface.
type SwapchainDescriptor struct {
	Surface     NativeSurface
	Extent      common.Extent2D
	Format      Format
	PresentMode PresentMode
	ImageCount  uint32
	// OldSwapchain is handed to the driver so in-flight presents can complete. May be nil.
	OldSwapchain NativeSwapchain
}

// RenderPassDescriptor describes the attachments of a render pass.
type RenderPassDescriptor struct {
	Label              string
	ColorFormats       []Format
	DepthStencilFormat Format
	SampleCount        SampleCount
	ColorLoadOp        LoadOp
}

// FramebufferDescriptor binds image views to a render pass for one extent.
type FramebufferDescriptor struct {
	Label       string
	RenderPass  NativeRenderPass
	Attachments []NativeImageView
	Extent      common.Extent2D
}

// AttachmentDescriptor describes an offscreen attachment such as a depth buffer.
type AttachmentDescriptor struct {
	Label       string
	Format      Format
	Extent      common.Extent2D
	SampleCount SampleCount
}

// BufferDescriptor describes a device buffer.
type BufferDescriptor struct {
	Label string
	Size  uint64
	Usage BufferUsage
}

// ShaderModuleDescriptor carries shader code. Vulkan consumes SPIRV; WebGPU consumes WGSL.
type ShaderModuleDescriptor struct {
	Label string
	Stage ShaderStage
	SPIRV []byte
	WGSL  string
}

// PushConstantRange declares a region of push constant memory visible to some stages.
type PushConstantRange struct {
	Stages ShaderStage
	Offset uint32
	Size   uint32
}

// PipelineLayoutDescriptor describes the resource interface of a pipeline.
type PipelineLayoutDescriptor struct {
	Label         string
	PushConstants []PushConstantRange
}

// VertexAttribute is one attribute inside a vertex buffer layout.
type VertexAttribute struct {
	Location uint32
	Format   VertexFormat
	Offset   uint32
}

// VertexBufferLayout describes one bound vertex buffer.
type VertexBufferLayout struct {
	Stride     uint32
	Attributes []VertexAttribute
}

// GraphicsPipelineDescriptor describes a graphics pipeline using native objects.
type GraphicsPipelineDescriptor struct {
	Label              string
	Layout             NativePipelineLayout
	Vertex             NativeShaderModule
	VertexEntryPoint   string
	Fragment           NativeShaderModule
	FragmentEntryPoint string
	VertexBuffers      []VertexBufferLayout
	Topology           PrimitiveTopology
	CullMode           CullMode
	Requirements       RenderPassRequirements
}

// RenderPassBeginInfo starts a render pass on a command buffer.
type RenderPassBeginInfo struct {
	RenderPass  NativeRenderPass
	Framebuffer NativeFramebuffer
	Extent      common.Extent2D
	ClearColor  common.Color
	ClearDepth  float32
}

// SubmitInfo describes one queue submission.
// Wait and Signal may be nil; Fence is signaled when the command buffer completes.
type SubmitInfo struct {
	CommandBuffer CommandBuffer
	Wait          NativeSemaphore
	Signal        NativeSemaphore
	Fence         NativeFence
}

// PresentInfo describes one present request.
type PresentInfo struct {
	Swapchain  NativeSwapchain
	ImageIndex uint32
	Wait       NativeSemaphore
}

// CommandBuffer records GPU commands. Implementations are owned by one backend and are not
// safe for concurrent use.
type CommandBuffer interface {
	// Begin resets the buffer and starts recording.
	//
	// Returns:
	//   - error: ErrCommandBufferInFlight if the device still executes a previous recording
	Begin() error

	// End finishes recording so the buffer can be submitted.
	//
	// Returns:
	//   - error: an error if the recording is invalid
	End() error

	// BeginRenderPass starts a render pass and clears its attachments.
	//
	// Parameters:
	//   - info: the render pass, framebuffer and clear values
	BeginRenderPass(info RenderPassBeginInfo)

	// EndRenderPass ends the current render pass.
	EndRenderPass()

	// SetViewport sets the dynamic viewport state.
	//
	// Parameters:
	//   - v: the viewport in framebuffer pixels
	SetViewport(v common.Viewport)

	// SetScissor sets the dynamic scissor state.
	//
	// Parameters:
	//   - r: the scissor rectangle in framebuffer pixels
	SetScissor(r common.Rect)

	// BindPipeline binds a graphics pipeline for subsequent draws.
	//
	// Parameters:
	//   - p: the native pipeline
	BindPipeline(p NativePipeline)

	// BindVertexBuffer binds a vertex buffer to a binding slot.
	//
	// Parameters:
	//   - slot: the vertex buffer binding index
	//   - b: the native buffer
	//   - offset: byte offset into the buffer
	BindVertexBuffer(slot uint32, b NativeBuffer, offset uint64)

	// BindIndexBuffer binds the index buffer for indexed draws.
	//
	// Parameters:
	//   - b: the native buffer
	//   - offset: byte offset into the buffer
	//   - format: the index element type
	BindIndexBuffer(b NativeBuffer, offset uint64, format IndexFormat)

	// PushConstants writes push constant data for the bound pipeline layout.
	//
	// Parameters:
	//   - layout: the pipeline layout that declares the range
	//   - stages: the shader stages that read the data
	//   - offset: byte offset into push constant memory
	//   - data: the bytes to write
	PushConstants(layout NativePipelineLayout, stages ShaderStage, offset uint32, data []byte)

	// Draw records a non-indexed draw.
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)

	// DrawIndexed records an indexed draw.
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32)
}

// Backend is the native API surface a Context drives. All methods except Submit, Present and
// WaitIdle may be called concurrently; the Context serializes queue access.
type Backend interface {
	// Type returns the backend type.
	Type() BackendType

	// Limits returns the device limits.
	Limits() Limits

	// WaitIdle blocks until the device has finished all submitted work.
	//
	// Returns:
	//   - error: ErrDeviceLost if the device is gone
	WaitIdle() error

	// Destroy destroys the native device and instance. Called once, after every handle is gone.
	Destroy()

	CreateSurface(target Target) (NativeSurface, error)
	DestroySurface(s NativeSurface)
	SurfaceCapabilities(s NativeSurface) (SurfaceCapabilities, error)

	CreateSwapchain(desc SwapchainDescriptor) (NativeSwapchain, error)
	DestroySwapchain(sc NativeSwapchain)
	SwapchainImages(sc NativeSwapchain) []NativeImageView

	// SwapchainExtent returns the size the swapchain images were created with. Drivers may
	// substitute the surface's current size for the requested one.
	SwapchainExtent(sc NativeSwapchain) common.Extent2D

	// AcquireNextImage acquires a presentable image and arranges for signal to be signaled
	// once the image is ready for rendering.
	//
	// Parameters:
	//   - sc: the swapchain
	//   - timeout: the longest the call may block
	//   - signal: the semaphore to signal, may be nil
	//
	// Returns:
	//   - uint32: the index into SwapchainImages
	//   - error: ErrOutOfDate, ErrSurfaceLost, ErrTimeout or ErrDeviceLost on failure;
	//     ErrSuboptimal with a valid index when the image is usable but reconfiguration is advised
	AcquireNextImage(sc NativeSwapchain, timeout time.Duration, signal NativeSemaphore) (uint32, error)

	CreateFence(signaled bool) (NativeFence, error)
	DestroyFence(f NativeFence)

	// WaitFence blocks until the fence is signaled.
	//
	// Parameters:
	//   - f: the fence
	//   - timeout: the longest the call may block
	//
	// Returns:
	//   - error: ErrTimeout on timeout, ErrDeviceLost if the device is gone
	WaitFence(f NativeFence, timeout time.Duration) error
	ResetFence(f NativeFence) error
	FenceSignaled(f NativeFence) (bool, error)

	CreateSemaphore() (NativeSemaphore, error)
	DestroySemaphore(s NativeSemaphore)

	CreateCommandPool() (NativeCommandPool, error)
	DestroyCommandPool(p NativeCommandPool)
	AllocateCommandBuffer(p NativeCommandPool) (CommandBuffer, error)
	FreeCommandBuffer(p NativeCommandPool, cb CommandBuffer)

	CreateRenderPass(desc RenderPassDescriptor) (NativeRenderPass, error)
	DestroyRenderPass(rp NativeRenderPass)
	CreateFramebuffer(desc FramebufferDescriptor) (NativeFramebuffer, error)
	DestroyFramebuffer(fb NativeFramebuffer)
	CreateAttachment(desc AttachmentDescriptor) (NativeImageView, error)
	DestroyAttachment(v NativeImageView)

	CreateBuffer(desc BufferDescriptor, data []byte) (NativeBuffer, error)
	DestroyBuffer(b NativeBuffer)
	CreateShaderModule(desc ShaderModuleDescriptor) (NativeShaderModule, error)
	DestroyShaderModule(m NativeShaderModule)
	CreatePipelineLayout(desc PipelineLayoutDescriptor) (NativePipelineLayout, error)
	DestroyPipelineLayout(l NativePipelineLayout)
	CreateGraphicsPipeline(desc GraphicsPipelineDescriptor) (NativePipeline, error)
	DestroyPipeline(p NativePipeline)

	// Submit enqueues a recorded command buffer.
	//
	// Parameters:
	//   - info: the command buffer, semaphores and completion fence
	//
	// Returns:
	//   - error: an error if the queue rejected the submission; the fence is then left unsignaled
	Submit(info SubmitInfo) error

	// Present queues a swapchain image for display.
	//
	// Parameters:
	//   - info: the swapchain, image index and wait semaphore
	//
	// Returns:
	//   - error: ErrOutOfDate or ErrSuboptimal when the swapchain should be recreated
	Present(info PresentInfo) error
}
