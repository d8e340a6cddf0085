package gpu

import (
	"math"
	"time"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-canvas/common"
	"github.com/pkg/errors"
	"github.com/vulkan-go/vulkan"
)

type vulkanSurface struct {
	handle vulkan.Surface
}

type vulkanImageView struct {
	view   vulkan.ImageView
	extent common.Extent2D

	// set for attachments the backend allocated itself
	image  vulkan.Image
	memory vulkan.DeviceMemory
}

type vulkanSwapchain struct {
	handle vulkan.Swapchain
	extent common.Extent2D
	views  []NativeImageView
}

type vulkanRenderPass struct {
	handle vulkan.RenderPass
	desc   RenderPassDescriptor
}

type vulkanBuffer struct {
	buffer vulkan.Buffer
	memory vulkan.DeviceMemory
	size   uint64
}

func (b *vulkanBackend) CreateSurface(target Target) (NativeSurface, error) {
	if b.bootstrapTarget != nil && target == b.bootstrapTarget {
		b.bootstrapTarget = nil
		return &vulkanSurface{handle: b.bootstrap}, nil
	}
	vt, ok := target.(VulkanTarget)
	if !ok {
		return nil, errors.Wrap(ErrUnsupportedTarget, "vulkan surface needs a VulkanTarget")
	}
	surface, err := b.createWindowSurface(vt)
	if err != nil {
		return nil, err
	}
	var supported vulkan.Bool32
	vulkan.GetPhysicalDeviceSurfaceSupport(b.physicalDevice, b.queues.presentFamily, surface, &supported)
	if supported != vulkan.True {
		vulkan.DestroySurface(b.instance, surface, nil)
		return nil, errors.Wrap(ErrUnsupportedTarget, "present queue cannot present to surface")
	}
	return &vulkanSurface{handle: surface}, nil
}

func (b *vulkanBackend) DestroySurface(s NativeSurface) {
	vulkan.DestroySurface(b.instance, s.(*vulkanSurface).handle, nil)
}

func (b *vulkanBackend) surfaceCaps(s vulkan.Surface) vulkan.SurfaceCapabilities {
	var caps vulkan.SurfaceCapabilities
	vulkan.GetPhysicalDeviceSurfaceCapabilities(b.physicalDevice, s, &caps)
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	return caps
}

func (b *vulkanBackend) SurfaceCapabilities(s NativeSurface) (SurfaceCapabilities, error) {
	surface := s.(*vulkanSurface).handle
	caps := b.surfaceCaps(surface)

	var formatCount uint32
	if res := vulkan.GetPhysicalDeviceSurfaceFormats(b.physicalDevice, surface, &formatCount, nil); res != vulkan.Success {
		return SurfaceCapabilities{}, vulkanResult(res, "surface formats")
	}
	formats := make([]vulkan.SurfaceFormat, formatCount)
	vulkan.GetPhysicalDeviceSurfaceFormats(b.physicalDevice, surface, &formatCount, formats)

	var presentCount uint32
	vulkan.GetPhysicalDeviceSurfacePresentModes(b.physicalDevice, surface, &presentCount, nil)
	modes := make([]vulkan.PresentMode, presentCount)
	vulkan.GetPhysicalDeviceSurfacePresentModes(b.physicalDevice, surface, &presentCount, modes)

	out := SurfaceCapabilities{
		MinImageCount: caps.MinImageCount,
		MaxImageCount: caps.MaxImageCount,
		MaxExtent:     common.Extent2D{Width: caps.MaxImageExtent.Width, Height: caps.MaxImageExtent.Height},
	}
	for i := range formats {
		formats[i].Deref()
		if formats[i].ColorSpace != vulkan.ColorSpaceSrgbNonlinear {
			continue
		}
		if f, ok := formatFromVulkan(formats[i].Format); ok {
			out.Formats = append(out.Formats, f)
		}
	}
	for _, m := range modes {
		switch m {
		case vulkan.PresentModeFifo:
			out.PresentModes = append(out.PresentModes, PresentModeVSync)
		case vulkan.PresentModeMailbox:
			out.PresentModes = append(out.PresentModes, PresentModeMailbox)
		case vulkan.PresentModeImmediate:
			out.PresentModes = append(out.PresentModes, PresentModeUncapped)
		}
	}
	return out, nil
}

func (b *vulkanBackend) CreateSwapchain(desc SwapchainDescriptor) (NativeSwapchain, error) {
	surface := desc.Surface.(*vulkanSurface).handle
	caps := b.surfaceCaps(surface)

	// A current extent of 0xFFFFFFFF lets the swapchain pick its size within the image extent limits.
	extent := vulkan.Extent2D{
		Width:  common.Clamp(desc.Extent.Width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: common.Clamp(desc.Extent.Height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
	if caps.CurrentExtent.Width != math.MaxUint32 {
		extent = caps.CurrentExtent
	}
	if extent.Width == 0 || extent.Height == 0 {
		return nil, errors.Wrap(ErrOutOfDate, "surface has zero extent")
	}

	old := vulkan.Swapchain(vulkan.NullHandle)
	if o, ok := desc.OldSwapchain.(*vulkanSwapchain); ok {
		old = o.handle
	}
	format := vulkanFormat(desc.Format)
	createInfo := vulkan.SwapchainCreateInfo{
		SType:            vulkan.StructureTypeSwapchainCreateInfo,
		Surface:          surface,
		MinImageCount:    desc.ImageCount,
		ImageFormat:      format,
		ImageColorSpace:  vulkan.ColorSpaceSrgbNonlinear,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vulkan.ImageUsageFlags(vulkan.ImageUsageColorAttachmentBit),
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vulkan.CompositeAlphaOpaqueBit,
		PresentMode:      vulkanPresentMode(desc.PresentMode),
		Clipped:          vulkan.True,
		OldSwapchain:     old,
	}
	if b.queues.graphicsFamily != b.queues.presentFamily {
		indices := []uint32{b.queues.graphicsFamily, b.queues.presentFamily}
		createInfo.ImageSharingMode = vulkan.SharingModeConcurrent
		createInfo.QueueFamilyIndexCount = uint32(len(indices))
		createInfo.PQueueFamilyIndices = indices
	} else {
		createInfo.ImageSharingMode = vulkan.SharingModeExclusive
	}

	var handle vulkan.Swapchain
	if res := vulkan.CreateSwapchain(b.device, &createInfo, nil, &handle); res != vulkan.Success {
		return nil, vulkanResult(res, "create swapchain")
	}

	var count uint32
	vulkan.GetSwapchainImages(b.device, handle, &count, nil)
	images := make([]vulkan.Image, count)
	vulkan.GetSwapchainImages(b.device, handle, &count, images)

	sc := &vulkanSwapchain{handle: handle, extent: common.Extent2D{Width: extent.Width, Height: extent.Height}}
	for _, img := range images {
		view, err := b.createImageView(img, format, vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit))
		if err != nil {
			b.DestroySwapchain(sc)
			return nil, err
		}
		sc.views = append(sc.views, &vulkanImageView{view: view, extent: sc.extent})
	}
	return sc, nil
}

func (b *vulkanBackend) DestroySwapchain(sc NativeSwapchain) {
	s := sc.(*vulkanSwapchain)
	for _, v := range s.views {
		vulkan.DestroyImageView(b.device, v.(*vulkanImageView).view, nil)
	}
	vulkan.DestroySwapchain(b.device, s.handle, nil)
}

func (b *vulkanBackend) SwapchainImages(sc NativeSwapchain) []NativeImageView {
	return sc.(*vulkanSwapchain).views
}

func (b *vulkanBackend) SwapchainExtent(sc NativeSwapchain) common.Extent2D {
	return sc.(*vulkanSwapchain).extent
}

func (b *vulkanBackend) AcquireNextImage(sc NativeSwapchain, timeout time.Duration, signal NativeSemaphore) (uint32, error) {
	sem := vulkan.Semaphore(vulkan.NullHandle)
	if signal != nil {
		sem = signal.(vulkan.Semaphore)
	}
	var idx uint32
	res := vulkan.AcquireNextImage(b.device, sc.(*vulkanSwapchain).handle, uint64(timeout.Nanoseconds()), sem, vulkan.Fence(vulkan.NullHandle), &idx)
	switch res {
	case vulkan.Success:
		return idx, nil
	case vulkan.Suboptimal:
		return idx, ErrSuboptimal
	default:
		return 0, vulkanResult(res, "acquire next image")
	}
}

func (b *vulkanBackend) createImageView(image vulkan.Image, format vulkan.Format, aspect vulkan.ImageAspectFlags) (vulkan.ImageView, error) {
	info := vulkan.ImageViewCreateInfo{
		SType:    vulkan.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vulkan.ImageViewType2d,
		Format:   format,
		Components: vulkan.ComponentMapping{
			R: vulkan.ComponentSwizzleIdentity,
			G: vulkan.ComponentSwizzleIdentity,
			B: vulkan.ComponentSwizzleIdentity,
			A: vulkan.ComponentSwizzleIdentity,
		},
		SubresourceRange: vulkan.ImageSubresourceRange{
			AspectMask: aspect,
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	var view vulkan.ImageView
	if res := vulkan.CreateImageView(b.device, &info, nil, &view); res != vulkan.Success {
		return vulkan.ImageView(vulkan.NullHandle), vulkanResult(res, "create image view")
	}
	return view, nil
}

func (b *vulkanBackend) createRenderPass(desc RenderPassDescriptor) (vulkan.RenderPass, error) {
	samples := vulkanSampleCount(desc.SampleCount)
	var (
		attachments []vulkan.AttachmentDescription
		colorRefs   []vulkan.AttachmentReference
	)
	for i, f := range desc.ColorFormats {
		a := vulkan.AttachmentDescription{
			Format:         vulkanFormat(f),
			Samples:        samples,
			LoadOp:         vulkan.AttachmentLoadOpClear,
			StoreOp:        vulkan.AttachmentStoreOpStore,
			StencilLoadOp:  vulkan.AttachmentLoadOpDontCare,
			StencilStoreOp: vulkan.AttachmentStoreOpDontCare,
			InitialLayout:  vulkan.ImageLayoutUndefined,
			FinalLayout:    vulkan.ImageLayoutPresentSrc,
		}
		if desc.ColorLoadOp == LoadOpLoad {
			a.LoadOp = vulkan.AttachmentLoadOpLoad
			a.InitialLayout = vulkan.ImageLayoutPresentSrc
		}
		attachments = append(attachments, a)
		colorRefs = append(colorRefs, vulkan.AttachmentReference{
			Attachment: uint32(i),
			Layout:     vulkan.ImageLayoutColorAttachmentOptimal,
		})
	}

	subpass := vulkan.SubpassDescription{
		PipelineBindPoint:    vulkan.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(len(colorRefs)),
		PColorAttachments:    colorRefs,
	}
	if desc.DepthStencilFormat != FormatUndefined {
		attachments = append(attachments, vulkan.AttachmentDescription{
			Format:         vulkanFormat(desc.DepthStencilFormat),
			Samples:        samples,
			LoadOp:         vulkan.AttachmentLoadOpClear,
			StoreOp:        vulkan.AttachmentStoreOpDontCare,
			StencilLoadOp:  vulkan.AttachmentLoadOpDontCare,
			StencilStoreOp: vulkan.AttachmentStoreOpDontCare,
			InitialLayout:  vulkan.ImageLayoutUndefined,
			FinalLayout:    vulkan.ImageLayoutDepthStencilAttachmentOptimal,
		})
		subpass.PDepthStencilAttachment = &vulkan.AttachmentReference{
			Attachment: uint32(len(attachments) - 1),
			Layout:     vulkan.ImageLayoutDepthStencilAttachmentOptimal,
		}
	}

	dependency := vulkan.SubpassDependency{
		SrcSubpass:    vulkan.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vulkan.PipelineStageFlags(vulkan.PipelineStageColorAttachmentOutputBit | vulkan.PipelineStageEarlyFragmentTestsBit),
		DstStageMask:  vulkan.PipelineStageFlags(vulkan.PipelineStageColorAttachmentOutputBit | vulkan.PipelineStageEarlyFragmentTestsBit),
		DstAccessMask: vulkan.AccessFlags(vulkan.AccessColorAttachmentWriteBit | vulkan.AccessDepthStencilAttachmentWriteBit),
	}

	info := vulkan.RenderPassCreateInfo{
		SType:           vulkan.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vulkan.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vulkan.SubpassDependency{dependency},
	}
	var rp vulkan.RenderPass
	if res := vulkan.CreateRenderPass(b.device, &info, nil, &rp); res != vulkan.Success {
		return vulkan.RenderPass(vulkan.NullHandle), vulkanResult(res, "create render pass")
	}
	return rp, nil
}

func (b *vulkanBackend) CreateRenderPass(desc RenderPassDescriptor) (NativeRenderPass, error) {
	rp, err := b.createRenderPass(desc)
	if err != nil {
		return nil, err
	}
	return &vulkanRenderPass{handle: rp, desc: desc}, nil
}

func (b *vulkanBackend) DestroyRenderPass(rp NativeRenderPass) {
	vulkan.DestroyRenderPass(b.device, rp.(*vulkanRenderPass).handle, nil)
}

func (b *vulkanBackend) CreateFramebuffer(desc FramebufferDescriptor) (NativeFramebuffer, error) {
	views := make([]vulkan.ImageView, len(desc.Attachments))
	for i, a := range desc.Attachments {
		views[i] = a.(*vulkanImageView).view
	}
	info := vulkan.FramebufferCreateInfo{
		SType:           vulkan.StructureTypeFramebufferCreateInfo,
		RenderPass:      desc.RenderPass.(*vulkanRenderPass).handle,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           desc.Extent.Width,
		Height:          desc.Extent.Height,
		Layers:          1,
	}
	var fb vulkan.Framebuffer
	if res := vulkan.CreateFramebuffer(b.device, &info, nil, &fb); res != vulkan.Success {
		return nil, vulkanResult(res, "create framebuffer")
	}
	return fb, nil
}

func (b *vulkanBackend) DestroyFramebuffer(fb NativeFramebuffer) {
	vulkan.DestroyFramebuffer(b.device, fb.(vulkan.Framebuffer), nil)
}

func (b *vulkanBackend) CreateAttachment(desc AttachmentDescriptor) (NativeImageView, error) {
	if !desc.Format.IsDepth() {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "attachment format %s", desc.Format)
	}
	format := vulkanFormat(desc.Format)
	imageInfo := vulkan.ImageCreateInfo{
		SType:         vulkan.StructureTypeImageCreateInfo,
		ImageType:     vulkan.ImageType2d,
		Extent:        vulkan.Extent3D{Width: desc.Extent.Width, Height: desc.Extent.Height, Depth: 1},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        format,
		Tiling:        vulkan.ImageTilingOptimal,
		InitialLayout: vulkan.ImageLayoutUndefined,
		Usage:         vulkan.ImageUsageFlags(vulkan.ImageUsageDepthStencilAttachmentBit),
		Samples:       vulkanSampleCount(desc.SampleCount),
		SharingMode:   vulkan.SharingModeExclusive,
	}
	var image vulkan.Image
	if res := vulkan.CreateImage(b.device, &imageInfo, nil, &image); res != vulkan.Success {
		return nil, vulkanResult(res, "create attachment image")
	}

	var req vulkan.MemoryRequirements
	vulkan.GetImageMemoryRequirements(b.device, image, &req)
	req.Deref()
	memory, err := b.allocate(req, vulkan.MemoryPropertyDeviceLocalBit)
	if err != nil {
		vulkan.DestroyImage(b.device, image, nil)
		return nil, err
	}
	if res := vulkan.BindImageMemory(b.device, image, memory, 0); res != vulkan.Success {
		vulkan.DestroyImage(b.device, image, nil)
		vulkan.FreeMemory(b.device, memory, nil)
		return nil, vulkanResult(res, "bind attachment memory")
	}

	aspect := vulkan.ImageAspectFlags(vulkan.ImageAspectDepthBit)
	if desc.Format == FormatDepth24PlusStencil8 {
		aspect |= vulkan.ImageAspectFlags(vulkan.ImageAspectStencilBit)
	}
	view, err := b.createImageView(image, format, aspect)
	if err != nil {
		vulkan.DestroyImage(b.device, image, nil)
		vulkan.FreeMemory(b.device, memory, nil)
		return nil, err
	}
	return &vulkanImageView{view: view, extent: desc.Extent, image: image, memory: memory}, nil
}

func (b *vulkanBackend) DestroyAttachment(v NativeImageView) {
	iv := v.(*vulkanImageView)
	vulkan.DestroyImageView(b.device, iv.view, nil)
	vulkan.DestroyImage(b.device, iv.image, nil)
	vulkan.FreeMemory(b.device, iv.memory, nil)
}

func (b *vulkanBackend) findMemoryType(typeFilter uint32, properties vulkan.MemoryPropertyFlagBits) (uint32, bool) {
	for i := uint32(0); i < b.memProps.MemoryTypeCount; i++ {
		memoryType := b.memProps.MemoryTypes[i]
		memoryType.Deref()
		if typeFilter&(1<<i) != 0 && memoryType.PropertyFlags&vulkan.MemoryPropertyFlags(properties) == vulkan.MemoryPropertyFlags(properties) {
			return i, true
		}
	}
	return 0, false
}

func (b *vulkanBackend) allocate(req vulkan.MemoryRequirements, properties vulkan.MemoryPropertyFlagBits) (vulkan.DeviceMemory, error) {
	typeIndex, ok := b.findMemoryType(req.MemoryTypeBits, properties)
	if !ok {
		return vulkan.DeviceMemory(vulkan.NullHandle), errors.Wrap(ErrOutOfMemory, "no compatible memory type")
	}
	info := vulkan.MemoryAllocateInfo{
		SType:           vulkan.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: typeIndex,
	}
	var memory vulkan.DeviceMemory
	if res := vulkan.AllocateMemory(b.device, &info, nil, &memory); res != vulkan.Success {
		return vulkan.DeviceMemory(vulkan.NullHandle), vulkanResult(res, "allocate memory")
	}
	return memory, nil
}

func (b *vulkanBackend) CreateBuffer(desc BufferDescriptor, data []byte) (NativeBuffer, error) {
	var usage vulkan.BufferUsageFlagBits
	if desc.Usage&BufferUsageVertex != 0 {
		usage |= vulkan.BufferUsageVertexBufferBit
	}
	if desc.Usage&BufferUsageIndex != 0 {
		usage |= vulkan.BufferUsageIndexBufferBit
	}
	if desc.Usage&BufferUsageUniform != 0 {
		usage |= vulkan.BufferUsageUniformBufferBit
	}
	info := vulkan.BufferCreateInfo{
		SType:       vulkan.StructureTypeBufferCreateInfo,
		Size:        vulkan.DeviceSize(desc.Size),
		Usage:       vulkan.BufferUsageFlags(usage),
		SharingMode: vulkan.SharingModeExclusive,
	}
	var buffer vulkan.Buffer
	if res := vulkan.CreateBuffer(b.device, &info, nil, &buffer); res != vulkan.Success {
		return nil, vulkanResult(res, "create buffer")
	}

	var req vulkan.MemoryRequirements
	vulkan.GetBufferMemoryRequirements(b.device, buffer, &req)
	req.Deref()
	memory, err := b.allocate(req, vulkan.MemoryPropertyHostVisibleBit|vulkan.MemoryPropertyHostCoherentBit)
	if err != nil {
		vulkan.DestroyBuffer(b.device, buffer, nil)
		return nil, err
	}
	vulkan.BindBufferMemory(b.device, buffer, memory, 0)

	if len(data) > 0 {
		var mapped unsafe.Pointer
		if res := vulkan.MapMemory(b.device, memory, 0, vulkan.DeviceSize(len(data)), 0, &mapped); res != vulkan.Success {
			vulkan.DestroyBuffer(b.device, buffer, nil)
			vulkan.FreeMemory(b.device, memory, nil)
			return nil, vulkanResult(res, "map buffer")
		}
		copy(unsafe.Slice((*byte)(mapped), len(data)), data)
		vulkan.UnmapMemory(b.device, memory)
	}
	return &vulkanBuffer{buffer: buffer, memory: memory, size: desc.Size}, nil
}

func (b *vulkanBackend) DestroyBuffer(nb NativeBuffer) {
	vb := nb.(*vulkanBuffer)
	vulkan.DestroyBuffer(b.device, vb.buffer, nil)
	vulkan.FreeMemory(b.device, vb.memory, nil)
}

func (b *vulkanBackend) CreateShaderModule(desc ShaderModuleDescriptor) (NativeShaderModule, error) {
	if len(desc.SPIRV) == 0 || len(desc.SPIRV)%4 != 0 {
		return nil, errors.Wrapf(ErrInvalidParameters, "shader %q: vulkan needs SPIR-V code with a length multiple of 4", desc.Label)
	}
	words := make([]uint32, len(desc.SPIRV)/4)
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), len(desc.SPIRV)), desc.SPIRV)
	info := vulkan.ShaderModuleCreateInfo{
		SType:    vulkan.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(desc.SPIRV)),
		PCode:    words,
	}
	var module vulkan.ShaderModule
	if res := vulkan.CreateShaderModule(b.device, &info, nil, &module); res != vulkan.Success {
		return nil, vulkanResult(res, "create shader module")
	}
	return module, nil
}

func (b *vulkanBackend) DestroyShaderModule(m NativeShaderModule) {
	vulkan.DestroyShaderModule(b.device, m.(vulkan.ShaderModule), nil)
}

func (b *vulkanBackend) CreatePipelineLayout(desc PipelineLayoutDescriptor) (NativePipelineLayout, error) {
	ranges := make([]vulkan.PushConstantRange, len(desc.PushConstants))
	for i, r := range desc.PushConstants {
		ranges[i] = vulkan.PushConstantRange{
			StageFlags: vulkanShaderStages(r.Stages),
			Offset:     r.Offset,
			Size:       r.Size,
		}
	}
	info := vulkan.PipelineLayoutCreateInfo{
		SType:                  vulkan.StructureTypePipelineLayoutCreateInfo,
		PushConstantRangeCount: uint32(len(ranges)),
		PPushConstantRanges:    ranges,
	}
	var layout vulkan.PipelineLayout
	if res := vulkan.CreatePipelineLayout(b.device, &info, nil, &layout); res != vulkan.Success {
		return nil, vulkanResult(res, "create pipeline layout")
	}
	return layout, nil
}

func (b *vulkanBackend) DestroyPipelineLayout(l NativePipelineLayout) {
	vulkan.DestroyPipelineLayout(b.device, l.(vulkan.PipelineLayout), nil)
}

// CreateGraphicsPipeline builds the pipeline against a throwaway render pass derived from the
// requirements. Render pass compatibility only depends on formats and sample counts, so the
// pipeline works with any render pass built from the same requirements.
func (b *vulkanBackend) CreateGraphicsPipeline(desc GraphicsPipelineDescriptor) (NativePipeline, error) {
	rp, err := b.createRenderPass(desc.Requirements.Descriptor(desc.Label, LoadOpClear))
	if err != nil {
		return nil, err
	}
	defer vulkan.DestroyRenderPass(b.device, rp, nil)

	stages := []vulkan.PipelineShaderStageCreateInfo{{
		SType:  vulkan.StructureTypePipelineShaderStageCreateInfo,
		Stage:  vulkan.ShaderStageVertexBit,
		Module: desc.Vertex.(vulkan.ShaderModule),
		PName:  safeString(common.Coalesce(desc.VertexEntryPoint, "main")),
	}}
	if desc.Fragment != nil {
		stages = append(stages, vulkan.PipelineShaderStageCreateInfo{
			SType:  vulkan.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vulkan.ShaderStageFragmentBit,
			Module: desc.Fragment.(vulkan.ShaderModule),
			PName:  safeString(common.Coalesce(desc.FragmentEntryPoint, "main")),
		})
	}

	var (
		bindings   []vulkan.VertexInputBindingDescription
		attributes []vulkan.VertexInputAttributeDescription
	)
	for i, l := range desc.VertexBuffers {
		bindings = append(bindings, vulkan.VertexInputBindingDescription{
			Binding:   uint32(i),
			Stride:    l.Stride,
			InputRate: vulkan.VertexInputRateVertex,
		})
		for _, a := range l.Attributes {
			attributes = append(attributes, vulkan.VertexInputAttributeDescription{
				Location: a.Location,
				Binding:  uint32(i),
				Format:   vulkanVertexFormat(a.Format),
				Offset:   a.Offset,
			})
		}
	}
	vertexInput := vulkan.PipelineVertexInputStateCreateInfo{
		SType:                           vulkan.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(bindings)),
		PVertexBindingDescriptions:      bindings,
		VertexAttributeDescriptionCount: uint32(len(attributes)),
		PVertexAttributeDescriptions:    attributes,
	}

	topology := vulkan.PrimitiveTopologyTriangleList
	if desc.Topology == PrimitiveTopologyTriangleStrip {
		topology = vulkan.PrimitiveTopologyTriangleStrip
	}
	inputAssembly := vulkan.PipelineInputAssemblyStateCreateInfo{
		SType:                  vulkan.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               topology,
		PrimitiveRestartEnable: vulkan.False,
	}

	viewportState := vulkan.PipelineViewportStateCreateInfo{
		SType:         vulkan.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}
	dynamicStates := []vulkan.DynamicState{vulkan.DynamicStateViewport, vulkan.DynamicStateScissor}
	dynamicState := vulkan.PipelineDynamicStateCreateInfo{
		SType:             vulkan.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	cull := vulkan.CullModeFlags(vulkan.CullModeNone)
	if desc.CullMode == CullModeBack {
		cull = vulkan.CullModeFlags(vulkan.CullModeBackBit)
	}
	rasterizer := vulkan.PipelineRasterizationStateCreateInfo{
		SType:                   vulkan.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vulkan.False,
		RasterizerDiscardEnable: vulkan.False,
		PolygonMode:             vulkan.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                cull,
		FrontFace:               vulkan.FrontFaceCounterClockwise,
		DepthBiasEnable:         vulkan.False,
	}
	multisampling := vulkan.PipelineMultisampleStateCreateInfo{
		SType:                vulkan.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vulkanSampleCount(desc.Requirements.SampleCount),
	}

	blendAttachments := make([]vulkan.PipelineColorBlendAttachmentState, desc.Requirements.ColorAttachmentCount())
	for i := range blendAttachments {
		blendAttachments[i] = vulkan.PipelineColorBlendAttachmentState{
			ColorWriteMask: vulkan.ColorComponentFlags(vulkan.ColorComponentRBit | vulkan.ColorComponentGBit | vulkan.ColorComponentBBit | vulkan.ColorComponentABit),
			BlendEnable:    vulkan.False,
		}
	}
	colorBlending := vulkan.PipelineColorBlendStateCreateInfo{
		SType:           vulkan.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: uint32(len(blendAttachments)),
		PAttachments:    blendAttachments,
	}

	info := vulkan.GraphicsPipelineCreateInfo{
		SType:               vulkan.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisampling,
		PColorBlendState:    &colorBlending,
		PDynamicState:       &dynamicState,
		Layout:              desc.Layout.(vulkan.PipelineLayout),
		RenderPass:          rp,
		Subpass:             0,
	}
	if desc.Requirements.DepthStencilFormat != FormatUndefined {
		info.PDepthStencilState = &vulkan.PipelineDepthStencilStateCreateInfo{
			SType:                 vulkan.StructureTypePipelineDepthStencilStateCreateInfo,
			DepthTestEnable:       vulkan.True,
			DepthWriteEnable:      vulkan.True,
			DepthCompareOp:        vulkan.CompareOpLess,
			DepthBoundsTestEnable: vulkan.False,
			StencilTestEnable:     vulkan.False,
		}
	}

	pipelines := make([]vulkan.Pipeline, 1)
	if res := vulkan.CreateGraphicsPipelines(b.device, vulkan.PipelineCache(vulkan.NullHandle), 1, []vulkan.GraphicsPipelineCreateInfo{info}, nil, pipelines); res != vulkan.Success {
		return nil, vulkanResult(res, "create graphics pipeline")
	}
	return pipelines[0], nil
}

func (b *vulkanBackend) DestroyPipeline(p NativePipeline) {
	vulkan.DestroyPipeline(b.device, p.(vulkan.Pipeline), nil)
}

func vulkanFormat(f Format) vulkan.Format {
	switch f {
	case FormatBGRA8Unorm:
		return vulkan.FormatB8g8r8a8Unorm
	case FormatBGRA8UnormSRGB:
		return vulkan.FormatB8g8r8a8Srgb
	case FormatRGBA8Unorm:
		return vulkan.FormatR8g8b8a8Unorm
	case FormatRGBA8UnormSRGB:
		return vulkan.FormatR8g8b8a8Srgb
	case FormatDepth32Float:
		return vulkan.FormatD32Sfloat
	case FormatDepth24PlusStencil8:
		return vulkan.FormatD24UnormS8Uint
	default:
		return vulkan.FormatUndefined
	}
}

func formatFromVulkan(f vulkan.Format) (Format, bool) {
	switch f {
	case vulkan.FormatB8g8r8a8Unorm:
		return FormatBGRA8Unorm, true
	case vulkan.FormatB8g8r8a8Srgb:
		return FormatBGRA8UnormSRGB, true
	case vulkan.FormatR8g8b8a8Unorm:
		return FormatRGBA8Unorm, true
	case vulkan.FormatR8g8b8a8Srgb:
		return FormatRGBA8UnormSRGB, true
	default:
		return FormatUndefined, false
	}
}

func vulkanPresentMode(m PresentMode) vulkan.PresentMode {
	switch m {
	case PresentModeMailbox:
		return vulkan.PresentModeMailbox
	case PresentModeUncapped:
		return vulkan.PresentModeImmediate
	default:
		return vulkan.PresentModeFifo
	}
}

func vulkanSampleCount(s SampleCount) vulkan.SampleCountFlagBits {
	if s == SampleCount4 {
		return vulkan.SampleCount4Bit
	}
	return vulkan.SampleCount1Bit
}

func vulkanVertexFormat(f VertexFormat) vulkan.Format {
	switch f {
	case VertexFormatFloat32x2:
		return vulkan.FormatR32g32Sfloat
	case VertexFormatFloat32x4:
		return vulkan.FormatR32g32b32a32Sfloat
	default:
		return vulkan.FormatR32g32b32Sfloat
	}
}
