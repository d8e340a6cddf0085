package gpu

import (
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-canvas/common"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/pkg/errors"
)

// wgpuBackend drives WebGPU through wgpu-native. WebGPU has no fences or semaphores: queue order
// replaces semaphores, and fences are emulated by polling the device for a submission index.
// There is no render pass or framebuffer object either; both are plain descriptors resolved when
// the pass is encoded.
type wgpuBackend struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	limits   Limits

	// compatible is the surface used to pick the adapter. The first CreateSurface for the same
	// target takes ownership of it.
	compatible       *wgpu.Surface
	compatibleTarget Target
}

func newWGPUBackend(target Target) (*wgpuBackend, error) {
	b := &wgpuBackend{instance: wgpu.CreateInstance(nil)}

	opts := &wgpu.RequestAdapterOptions{}
	if wt, ok := target.(WGPUTarget); ok {
		b.compatible = b.instance.CreateSurface(wt.SurfaceDescriptor())
		b.compatibleTarget = target
		opts.CompatibleSurface = b.compatible
	}

	a, err := b.instance.RequestAdapter(opts)
	if err != nil {
		b.Destroy()
		return nil, errors.Wrap(err, "request adapter")
	}
	b.adapter = a

	limits := wgpu.DefaultLimits()
	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		b.Destroy()
		return nil, errors.Wrap(err, "request device")
	}
	b.device = d
	b.queue = d.GetQueue()

	// Push constants are a native extension that is not requested, so the limit stays 0.
	b.limits = Limits{
		MaxPushConstantsSize: 0,
		MaxFramebufferWidth:  limits.MaxTextureDimension2D,
		MaxFramebufferHeight: limits.MaxTextureDimension2D,
		MaxColorAttachments:  limits.MaxColorAttachments,
	}
	return b, nil
}

func (b *wgpuBackend) Type() BackendType { return BackendTypeWGPU }
func (b *wgpuBackend) Limits() Limits    { return b.limits }

func (b *wgpuBackend) WaitIdle() error {
	if b.device == nil {
		return nil
	}
	b.device.Poll(true, nil)
	return nil
}

func (b *wgpuBackend) Destroy() {
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.compatible != nil && b.compatibleTarget != nil {
		b.compatible.Release()
		b.compatible = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

type wgpuSurface struct {
	surface *wgpu.Surface
}

func (b *wgpuBackend) CreateSurface(target Target) (NativeSurface, error) {
	if b.compatibleTarget != nil && target == b.compatibleTarget {
		b.compatibleTarget = nil
		return &wgpuSurface{surface: b.compatible}, nil
	}
	wt, ok := target.(WGPUTarget)
	if !ok {
		return nil, errors.Wrap(ErrUnsupportedTarget, "wgpu surface needs a WGPUTarget")
	}
	return &wgpuSurface{surface: b.instance.CreateSurface(wt.SurfaceDescriptor())}, nil
}

func (b *wgpuBackend) DestroySurface(s NativeSurface) {
	s.(*wgpuSurface).surface.Release()
}

func (b *wgpuBackend) SurfaceCapabilities(s NativeSurface) (SurfaceCapabilities, error) {
	caps := s.(*wgpuSurface).surface.GetCapabilities(b.adapter)
	out := SurfaceCapabilities{
		MinImageCount: 1,
		MaxExtent:     common.Extent2D{Width: b.limits.MaxFramebufferWidth, Height: b.limits.MaxFramebufferHeight},
	}
	for _, f := range caps.Formats {
		if gf, ok := formatFromWGPU(f); ok {
			out.Formats = append(out.Formats, gf)
		}
	}
	for _, m := range caps.PresentModes {
		switch m {
		case wgpu.PresentModeFifo:
			out.PresentModes = append(out.PresentModes, PresentModeVSync)
		case wgpu.PresentModeMailbox:
			out.PresentModes = append(out.PresentModes, PresentModeMailbox)
		case wgpu.PresentModeImmediate:
			out.PresentModes = append(out.PresentModes, PresentModeUncapped)
		}
	}
	return out, nil
}

// wgpuImageView is a color or depth view. Swapchain views are refreshed on every acquire.
type wgpuImageView struct {
	view    *wgpu.TextureView
	texture *wgpu.Texture
	extent  common.Extent2D
}

// wgpuSwapchain is a configured surface. WebGPU exposes one current texture at a time, so the
// swapchain reports a single image whose view is swapped in by AcquireNextImage.
type wgpuSwapchain struct {
	surface *wgpu.Surface
	extent  common.Extent2D
	current *wgpuImageView
}

func (b *wgpuBackend) CreateSwapchain(desc SwapchainDescriptor) (NativeSwapchain, error) {
	s := desc.Surface.(*wgpuSurface)
	caps := s.surface.GetCapabilities(b.adapter)
	if len(caps.AlphaModes) == 0 {
		return nil, errors.Wrap(ErrUnsupportedTarget, "surface reports no alpha modes")
	}
	s.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      wgpuFormat(desc.Format),
		Width:       desc.Extent.Width,
		Height:      desc.Extent.Height,
		PresentMode: wgpuPresentMode(desc.PresentMode),
		AlphaMode:   caps.AlphaModes[0],
	})
	return &wgpuSwapchain{
		surface: s.surface,
		extent:  desc.Extent,
		current: &wgpuImageView{extent: desc.Extent},
	}, nil
}

func (b *wgpuBackend) DestroySwapchain(sc NativeSwapchain) {
	sc.(*wgpuSwapchain).current.releaseFrame()
}

func (b *wgpuBackend) SwapchainImages(sc NativeSwapchain) []NativeImageView {
	return []NativeImageView{sc.(*wgpuSwapchain).current}
}

func (b *wgpuBackend) SwapchainExtent(sc NativeSwapchain) common.Extent2D {
	return sc.(*wgpuSwapchain).extent
}

func (v *wgpuImageView) releaseFrame() {
	if v.view != nil {
		v.view.Release()
		v.view = nil
	}
	if v.texture != nil {
		v.texture.Release()
		v.texture = nil
	}
}

// AcquireNextImage fetches the surface's current texture. wgpu-native reports outdated, lost and
// timed out surfaces as errors; all of them are resolved by reconfiguring, so they map to ErrOutOfDate.
func (b *wgpuBackend) AcquireNextImage(sc NativeSwapchain, _ time.Duration, _ NativeSemaphore) (uint32, error) {
	s := sc.(*wgpuSwapchain)
	s.current.releaseFrame()

	tex, err := s.surface.GetCurrentTexture()
	if err != nil {
		return 0, errors.Wrap(ErrOutOfDate, err.Error())
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return 0, errors.Wrap(err, "create surface view")
	}
	s.current.texture = tex
	s.current.view = view
	return 0, nil
}

// wgpuFence emulates a fence with the submission index of the last submit it guards.
type wgpuFence struct {
	mu        sync.Mutex
	signaled  bool
	submitted bool
	index     wgpu.SubmissionIndex
}

func (b *wgpuBackend) CreateFence(signaled bool) (NativeFence, error) {
	return &wgpuFence{signaled: signaled}, nil
}

func (b *wgpuBackend) DestroyFence(NativeFence) {}

func (b *wgpuBackend) WaitFence(f NativeFence, timeout time.Duration) error {
	wf := f.(*wgpuFence)
	wf.mu.Lock()
	if wf.signaled {
		wf.mu.Unlock()
		return nil
	}
	if !wf.submitted {
		// Nothing can ever signal it.
		wf.mu.Unlock()
		return ErrTimeout
	}
	index := wf.index
	wf.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.device.Poll(true, &wgpu.WrappedSubmissionIndex{Queue: b.queue, SubmissionIndex: index})
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		wf.mu.Lock()
		wf.signaled = true
		wf.mu.Unlock()
		return nil
	case <-timer.C:
		return ErrTimeout
	}
}

func (b *wgpuBackend) ResetFence(f NativeFence) error {
	wf := f.(*wgpuFence)
	wf.mu.Lock()
	defer wf.mu.Unlock()
	wf.signaled = false
	wf.submitted = false
	return nil
}

func (b *wgpuBackend) FenceSignaled(f NativeFence) (bool, error) {
	wf := f.(*wgpuFence)
	wf.mu.Lock()
	defer wf.mu.Unlock()
	if wf.signaled || !wf.submitted {
		return wf.signaled, nil
	}
	if b.device.Poll(false, &wgpu.WrappedSubmissionIndex{Queue: b.queue, SubmissionIndex: wf.index}) {
		wf.signaled = true
	}
	return wf.signaled, nil
}

type wgpuSemaphore struct{}

func (b *wgpuBackend) CreateSemaphore() (NativeSemaphore, error) { return &wgpuSemaphore{}, nil }
func (b *wgpuBackend) DestroySemaphore(NativeSemaphore)          {}

type wgpuCommandPool struct{}

func (b *wgpuBackend) CreateCommandPool() (NativeCommandPool, error) { return &wgpuCommandPool{}, nil }
func (b *wgpuBackend) DestroyCommandPool(NativeCommandPool)          {}

func (b *wgpuBackend) AllocateCommandBuffer(NativeCommandPool) (CommandBuffer, error) {
	return &wgpuCommandBuffer{device: b.device}, nil
}

func (b *wgpuBackend) FreeCommandBuffer(_ NativeCommandPool, cb CommandBuffer) {
	cb.(*wgpuCommandBuffer).release()
}

type wgpuRenderPass struct {
	desc RenderPassDescriptor
}

func (b *wgpuBackend) CreateRenderPass(desc RenderPassDescriptor) (NativeRenderPass, error) {
	return &wgpuRenderPass{desc: desc}, nil
}

func (b *wgpuBackend) DestroyRenderPass(NativeRenderPass) {}

type wgpuFramebuffer struct {
	renderPass *wgpuRenderPass
	color      []*wgpuImageView
	depth      *wgpuImageView
}

func (b *wgpuBackend) CreateFramebuffer(desc FramebufferDescriptor) (NativeFramebuffer, error) {
	rp := desc.RenderPass.(*wgpuRenderPass)
	fb := &wgpuFramebuffer{renderPass: rp}
	for i, a := range desc.Attachments {
		v := a.(*wgpuImageView)
		if i < len(rp.desc.ColorFormats) {
			fb.color = append(fb.color, v)
		} else {
			fb.depth = v
		}
	}
	return fb, nil
}

func (b *wgpuBackend) DestroyFramebuffer(NativeFramebuffer) {}

func (b *wgpuBackend) CreateAttachment(desc AttachmentDescriptor) (NativeImageView, error) {
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: desc.Label,
		Size: wgpu.Extent3D{
			Width:              desc.Extent.Width,
			Height:             desc.Extent.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   uint32(max(desc.SampleCount, SampleCount1)),
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpuFormat(desc.Format),
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create attachment texture")
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, errors.Wrap(err, "create attachment view")
	}
	return &wgpuImageView{view: view, texture: tex, extent: desc.Extent}, nil
}

func (b *wgpuBackend) DestroyAttachment(v NativeImageView) {
	v.(*wgpuImageView).releaseFrame()
}

func (b *wgpuBackend) CreateBuffer(desc BufferDescriptor, data []byte) (NativeBuffer, error) {
	usage := wgpu.BufferUsageCopyDst
	if desc.Usage&BufferUsageVertex != 0 {
		usage |= wgpu.BufferUsageVertex
	}
	if desc.Usage&BufferUsageIndex != 0 {
		usage |= wgpu.BufferUsageIndex
	}
	if desc.Usage&BufferUsageUniform != 0 {
		usage |= wgpu.BufferUsageUniform
	}
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            desc.Label,
		Size:             desc.Size,
		Usage:            usage,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create buffer")
	}
	if len(data) > 0 {
		b.queue.WriteBuffer(buf, 0, data)
	}
	return buf, nil
}

func (b *wgpuBackend) DestroyBuffer(nb NativeBuffer) {
	nb.(*wgpu.Buffer).Release()
}

func (b *wgpuBackend) CreateShaderModule(desc ShaderModuleDescriptor) (NativeShaderModule, error) {
	if desc.WGSL == "" {
		return nil, errors.Wrapf(ErrInvalidParameters, "shader %q: wgpu needs WGSL source", desc.Label)
	}
	m, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: desc.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: desc.WGSL,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "create shader module")
	}
	return m, nil
}

func (b *wgpuBackend) DestroyShaderModule(m NativeShaderModule) {
	m.(*wgpu.ShaderModule).Release()
}

func (b *wgpuBackend) CreatePipelineLayout(desc PipelineLayoutDescriptor) (NativePipelineLayout, error) {
	l, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label: desc.Label,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create pipeline layout")
	}
	return l, nil
}

func (b *wgpuBackend) DestroyPipelineLayout(l NativePipelineLayout) {
	l.(*wgpu.PipelineLayout).Release()
}

func (b *wgpuBackend) CreateGraphicsPipeline(desc GraphicsPipelineDescriptor) (NativePipeline, error) {
	layouts := make([]wgpu.VertexBufferLayout, len(desc.VertexBuffers))
	for i, l := range desc.VertexBuffers {
		attrs := make([]wgpu.VertexAttribute, len(l.Attributes))
		for j, a := range l.Attributes {
			attrs[j] = wgpu.VertexAttribute{
				Format:         wgpuVertexFormat(a.Format),
				Offset:         uint64(a.Offset),
				ShaderLocation: a.Location,
			}
		}
		layouts[i] = wgpu.VertexBufferLayout{
			ArrayStride: uint64(l.Stride),
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes:  attrs,
		}
	}

	rd := &wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: desc.Layout.(*wgpu.PipelineLayout),
		Vertex: wgpu.VertexState{
			Module:     desc.Vertex.(*wgpu.ShaderModule),
			EntryPoint: common.Coalesce(desc.VertexEntryPoint, "vs_main"),
			Buffers:    layouts,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: uint32(max(desc.Requirements.SampleCount, SampleCount1)),
			Mask:  0xFFFFFFFF,
		},
	}
	if desc.Topology == PrimitiveTopologyTriangleStrip {
		rd.Primitive.Topology = wgpu.PrimitiveTopologyTriangleStrip
	}
	if desc.CullMode == CullModeBack {
		rd.Primitive.CullMode = wgpu.CullModeBack
	}
	if desc.Fragment != nil {
		targets := make([]wgpu.ColorTargetState, len(desc.Requirements.ColorFormats))
		for i, f := range desc.Requirements.ColorFormats {
			targets[i] = wgpu.ColorTargetState{Format: wgpuFormat(f), WriteMask: wgpu.ColorWriteMaskAll}
		}
		rd.Fragment = &wgpu.FragmentState{
			Module:     desc.Fragment.(*wgpu.ShaderModule),
			EntryPoint: common.Coalesce(desc.FragmentEntryPoint, "fs_main"),
			Targets:    targets,
		}
	}
	if desc.Requirements.DepthStencilFormat != FormatUndefined {
		rd.DepthStencil = &wgpu.DepthStencilState{
			Format:            wgpuFormat(desc.Requirements.DepthStencilFormat),
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		}
	}

	p, err := b.device.CreateRenderPipeline(rd)
	if err != nil {
		return nil, errors.Wrap(err, "create render pipeline")
	}
	return p, nil
}

func (b *wgpuBackend) DestroyPipeline(p NativePipeline) {
	p.(*wgpu.RenderPipeline).Release()
}

func (b *wgpuBackend) Submit(info SubmitInfo) error {
	cb := info.CommandBuffer.(*wgpuCommandBuffer)
	if cb.finished == nil {
		return errors.Wrap(ErrInvalidParameters, "command buffer is not executable")
	}
	index := b.queue.Submit(cb.finished)
	cb.release()

	if f, ok := info.Fence.(*wgpuFence); ok {
		f.mu.Lock()
		f.index = index
		f.submitted = true
		f.mu.Unlock()
	}
	return nil
}

func (b *wgpuBackend) Present(info PresentInfo) error {
	s := info.Swapchain.(*wgpuSwapchain)
	if s.current.texture == nil {
		return errors.Wrap(ErrInvalidParameters, "no acquired surface texture")
	}
	s.surface.Present()
	s.current.releaseFrame()
	return nil
}

// wgpuCommandBuffer wraps one command encoder per recording.
type wgpuCommandBuffer struct {
	device   *wgpu.Device
	encoder  *wgpu.CommandEncoder
	pass     *wgpu.RenderPassEncoder
	finished *wgpu.CommandBuffer
}

func (c *wgpuCommandBuffer) release() {
	if c.finished != nil {
		c.finished.Release()
		c.finished = nil
	}
	if c.encoder != nil {
		c.encoder.Release()
		c.encoder = nil
	}
	c.pass = nil
}

func (c *wgpuCommandBuffer) Begin() error {
	c.release()
	encoder, err := c.device.CreateCommandEncoder(nil)
	if err != nil {
		return errors.Wrap(err, "create command encoder")
	}
	c.encoder = encoder
	return nil
}

func (c *wgpuCommandBuffer) End() error {
	if c.encoder == nil {
		return errors.Wrap(ErrInvalidParameters, "command buffer is not recording")
	}
	cmd, err := c.encoder.Finish(nil)
	if err != nil {
		c.release()
		return errors.Wrap(err, "finish command encoder")
	}
	c.finished = cmd
	return nil
}

func (c *wgpuCommandBuffer) BeginRenderPass(info RenderPassBeginInfo) {
	fb := info.Framebuffer.(*wgpuFramebuffer)
	load := wgpu.LoadOpClear
	if fb.renderPass.desc.ColorLoadOp == LoadOpLoad {
		load = wgpu.LoadOpLoad
	}
	desc := &wgpu.RenderPassDescriptor{}
	for _, v := range fb.color {
		desc.ColorAttachments = append(desc.ColorAttachments, wgpu.RenderPassColorAttachment{
			View:    v.view,
			LoadOp:  load,
			StoreOp: wgpu.StoreOpStore,
			ClearValue: wgpu.Color{
				R: float64(info.ClearColor.R),
				G: float64(info.ClearColor.G),
				B: float64(info.ClearColor.B),
				A: float64(info.ClearColor.A),
			},
		})
	}
	if fb.depth != nil {
		desc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            fb.depth.view,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: info.ClearDepth,
		}
	}
	c.pass = c.encoder.BeginRenderPass(desc)
}

func (c *wgpuCommandBuffer) EndRenderPass() {
	c.pass.End()
	c.pass = nil
}

func (c *wgpuCommandBuffer) SetViewport(v common.Viewport) {
	c.pass.SetViewport(v.X, v.Y, v.Width, v.Height, v.MinDepth, v.MaxDepth)
}

func (c *wgpuCommandBuffer) SetScissor(r common.Rect) {
	c.pass.SetScissorRect(uint32(max(r.X, 0)), uint32(max(r.Y, 0)), r.Width, r.Height)
}

func (c *wgpuCommandBuffer) BindPipeline(p NativePipeline) {
	c.pass.SetPipeline(p.(*wgpu.RenderPipeline))
}

func (c *wgpuCommandBuffer) BindVertexBuffer(slot uint32, b NativeBuffer, offset uint64) {
	c.pass.SetVertexBuffer(slot, b.(*wgpu.Buffer), offset, wgpu.WholeSize)
}

func (c *wgpuCommandBuffer) BindIndexBuffer(b NativeBuffer, offset uint64, format IndexFormat) {
	f := wgpu.IndexFormatUint32
	if format == IndexFormatUint16 {
		f = wgpu.IndexFormatUint16
	}
	c.pass.SetIndexBuffer(b.(*wgpu.Buffer), f, offset, wgpu.WholeSize)
}

// PushConstants is never reached: the backend reports a push constant limit of 0, so frames
// reject every push before recording it.
func (c *wgpuCommandBuffer) PushConstants(NativePipelineLayout, ShaderStage, uint32, []byte) {}

func (c *wgpuCommandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	c.pass.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

func (c *wgpuCommandBuffer) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	c.pass.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}

func wgpuFormat(f Format) wgpu.TextureFormat {
	switch f {
	case FormatBGRA8Unorm:
		return wgpu.TextureFormatBGRA8Unorm
	case FormatBGRA8UnormSRGB:
		return wgpu.TextureFormatBGRA8UnormSrgb
	case FormatRGBA8Unorm:
		return wgpu.TextureFormatRGBA8Unorm
	case FormatRGBA8UnormSRGB:
		return wgpu.TextureFormatRGBA8UnormSrgb
	case FormatDepth32Float:
		return wgpu.TextureFormatDepth32Float
	case FormatDepth24PlusStencil8:
		return wgpu.TextureFormatDepth24PlusStencil8
	default:
		return wgpu.TextureFormatUndefined
	}
}

func formatFromWGPU(f wgpu.TextureFormat) (Format, bool) {
	switch f {
	case wgpu.TextureFormatBGRA8Unorm:
		return FormatBGRA8Unorm, true
	case wgpu.TextureFormatBGRA8UnormSrgb:
		return FormatBGRA8UnormSRGB, true
	case wgpu.TextureFormatRGBA8Unorm:
		return FormatRGBA8Unorm, true
	case wgpu.TextureFormatRGBA8UnormSrgb:
		return FormatRGBA8UnormSRGB, true
	default:
		return FormatUndefined, false
	}
}

func wgpuPresentMode(m PresentMode) wgpu.PresentMode {
	switch m {
	case PresentModeMailbox:
		return wgpu.PresentModeMailbox
	case PresentModeUncapped:
		return wgpu.PresentModeImmediate
	default:
		return wgpu.PresentModeFifo
	}
}

func wgpuVertexFormat(f VertexFormat) wgpu.VertexFormat {
	switch f {
	case VertexFormatFloat32x2:
		return wgpu.VertexFormatFloat32x2
	case VertexFormatFloat32x4:
		return wgpu.VertexFormatFloat32x4
	default:
		return wgpu.VertexFormatFloat32x3
	}
}
