package gpu

import (
	"context"
	"log/slog"
	"time"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-canvas/common"
	"github.com/pkg/errors"
	"github.com/vulkan-go/vulkan"
)

var (
	vulkanValidationLayers = []string{"VK_LAYER_KHRONOS_validation"}
	vulkanDeviceExtensions = []string{"VK_KHR_swapchain"}
)

type vulkanQueueFamilies struct {
	graphicsFamily uint32
	presentFamily  uint32
	hasGraphics    bool
	hasPresent     bool
}

// vulkanBackend drives a single graphics queue and a present queue on one logical device.
type vulkanBackend struct {
	instance       vulkan.Instance
	debugCallback  vulkan.DebugReportCallback
	physicalDevice vulkan.PhysicalDevice
	device         vulkan.Device
	graphicsQueue  vulkan.Queue
	presentQueue   vulkan.Queue
	queues         vulkanQueueFamilies
	memProps       vulkan.PhysicalDeviceMemoryProperties
	limits         Limits
	validation     bool

	hasInstance      bool
	hasDevice        bool
	hasDebugCallback bool

	// bootstrap is the surface created for device selection. The first CreateSurface for the
	// same target takes ownership of it.
	bootstrap       vulkan.Surface
	bootstrapTarget Target
}

func newVulkanBackend(appName string, target Target, validation bool) (*vulkanBackend, error) {
	vt, ok := target.(VulkanTarget)
	if !ok {
		return nil, errors.Wrap(ErrUnsupportedTarget, "vulkan backend needs a VulkanTarget")
	}

	vulkan.SetGetInstanceProcAddr(vt.InstanceProcAddr())
	if err := vulkan.Init(); err != nil {
		return nil, errors.Wrap(err, "vulkan init")
	}

	b := &vulkanBackend{validation: validation}
	if err := b.createInstance(appName, vt.RequiredInstanceExtensions()); err != nil {
		return nil, err
	}
	if err := vulkan.InitInstance(b.instance); err != nil {
		b.Destroy()
		return nil, errors.Wrap(err, "vkInitInstance")
	}
	if err := b.setupDebugCallback(); err != nil {
		b.Destroy()
		return nil, err
	}

	surface, err := b.createWindowSurface(vt)
	if err != nil {
		b.Destroy()
		return nil, err
	}
	b.bootstrap = surface
	b.bootstrapTarget = target

	if err := b.pickPhysicalDevice(surface); err != nil {
		b.Destroy()
		return nil, err
	}
	if err := b.createLogicalDevice(); err != nil {
		b.Destroy()
		return nil, err
	}
	return b, nil
}

func (b *vulkanBackend) createInstance(appName string, extensions []string) error {
	if b.validation && !vulkanLayersSupported(vulkanValidationLayers) {
		common.Logger().Warn("vulkan validation layers requested but not available")
		b.validation = false
	}

	appInfo := vulkan.ApplicationInfo{
		SType:              vulkan.StructureTypeApplicationInfo,
		PApplicationName:   safeString(appName),
		ApplicationVersion: vulkan.MakeVersion(0, 1, 0),
		PEngineName:        safeString("oxy-canvas"),
		EngineVersion:      vulkan.MakeVersion(0, 1, 0),
		ApiVersion:         vulkan.MakeVersion(1, 1, 0),
	}

	if b.validation {
		extensions = append(extensions, "VK_EXT_debug_report")
	}
	createInfo := vulkan.InstanceCreateInfo{
		SType:                   vulkan.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(extensions),
	}
	if b.validation {
		createInfo.EnabledLayerCount = uint32(len(vulkanValidationLayers))
		createInfo.PpEnabledLayerNames = safeStrings(vulkanValidationLayers)
	}

	if res := vulkan.CreateInstance(&createInfo, nil, &b.instance); res != vulkan.Success {
		return vulkanResult(res, "create instance")
	}
	b.hasInstance = true
	return nil
}

func vulkanLayersSupported(layers []string) bool {
	var count uint32
	if vulkan.EnumerateInstanceLayerProperties(&count, nil) != vulkan.Success {
		return false
	}
	props := make([]vulkan.LayerProperties, count)
	if vulkan.EnumerateInstanceLayerProperties(&count, props) != vulkan.Success {
		return false
	}
	supported := make(map[string]bool)
	for i := range props {
		props[i].Deref()
		supported[vulkan.ToString(props[i].LayerName[:])] = true
	}
	for _, l := range layers {
		if !supported[l] {
			return false
		}
	}
	return true
}

func (b *vulkanBackend) setupDebugCallback() error {
	if !b.validation {
		return nil
	}
	createInfo := vulkan.DebugReportCallbackCreateInfo{
		SType: vulkan.StructureTypeDebugReportCallbackCreateInfo,
		Flags: vulkan.DebugReportFlags(
			vulkan.DebugReportErrorBit |
				vulkan.DebugReportWarningBit |
				vulkan.DebugReportPerformanceWarningBit),
		PfnCallback: func(flags vulkan.DebugReportFlags, objectType vulkan.DebugReportObjectType, object uint64, location uint, messageCode int32, layerPrefix string, message string, userData unsafe.Pointer) vulkan.Bool32 {
			level := slog.LevelWarn
			if flags&vulkan.DebugReportFlags(vulkan.DebugReportErrorBit) != 0 {
				level = slog.LevelError
			}
			common.Logger().Log(context.Background(), level, "vulkan validation",
				slog.String("layer", layerPrefix),
				slog.Int("code", int(messageCode)),
				slog.String("message", message))
			return vulkan.False
		},
	}
	if res := vulkan.CreateDebugReportCallback(b.instance, &createInfo, nil, &b.debugCallback); res != vulkan.Success {
		return vulkanResult(res, "create debug callback")
	}
	b.hasDebugCallback = true
	return nil
}

func (b *vulkanBackend) createWindowSurface(vt VulkanTarget) (vulkan.Surface, error) {
	ptr, err := vt.CreateWindowSurface(b.instance, nil)
	if err != nil {
		return vulkan.Surface(vulkan.NullHandle), errors.Wrap(err, "create window surface")
	}
	return vulkan.SurfaceFromPointer(ptr), nil
}

func (b *vulkanBackend) pickPhysicalDevice(surface vulkan.Surface) error {
	var count uint32
	if res := vulkan.EnumeratePhysicalDevices(b.instance, &count, nil); res != vulkan.Success || count == 0 {
		return errors.Wrap(ErrUnsupportedTarget, "no vulkan physical devices")
	}
	devices := make([]vulkan.PhysicalDevice, count)
	if res := vulkan.EnumeratePhysicalDevices(b.instance, &count, devices); res != vulkan.Success {
		return vulkanResult(res, "enumerate physical devices")
	}

	var (
		selected       vulkan.PhysicalDevice
		selectedQueues vulkanQueueFamilies
		found          bool
	)
	bestScore := int32(-1)
	for _, dev := range devices {
		q := findQueueFamilies(dev, surface)
		if !q.hasGraphics || !q.hasPresent || !deviceExtensionsSupported(dev) {
			continue
		}
		if score := deviceScore(dev); score > bestScore {
			bestScore = score
			selected = dev
			selectedQueues = q
			found = true
		}
	}
	if !found {
		return errors.Wrap(ErrUnsupportedTarget, "no suitable GPU found")
	}

	b.physicalDevice = selected
	b.queues = selectedQueues

	var props vulkan.PhysicalDeviceProperties
	vulkan.GetPhysicalDeviceProperties(selected, &props)
	props.Deref()
	props.Limits.Deref()
	b.limits = Limits{
		MaxPushConstantsSize: props.Limits.MaxPushConstantsSize,
		MaxFramebufferWidth:  props.Limits.MaxFramebufferWidth,
		MaxFramebufferHeight: props.Limits.MaxFramebufferHeight,
		MaxColorAttachments:  props.Limits.MaxColorAttachments,
	}

	vulkan.GetPhysicalDeviceMemoryProperties(selected, &b.memProps)
	b.memProps.Deref()

	common.Logger().Info("vulkan device selected",
		slog.String("name", vulkan.ToString(props.DeviceName[:])),
		slog.Uint64("graphics_family", uint64(selectedQueues.graphicsFamily)),
		slog.Uint64("present_family", uint64(selectedQueues.presentFamily)))
	return nil
}

func deviceScore(device vulkan.PhysicalDevice) int32 {
	var props vulkan.PhysicalDeviceProperties
	vulkan.GetPhysicalDeviceProperties(device, &props)
	props.Deref()

	switch props.DeviceType {
	case vulkan.PhysicalDeviceTypeDiscreteGpu:
		return 1000
	case vulkan.PhysicalDeviceTypeIntegratedGpu:
		return 500
	default:
		return 100
	}
}

func deviceExtensionsSupported(device vulkan.PhysicalDevice) bool {
	var count uint32
	if res := vulkan.EnumerateDeviceExtensionProperties(device, "", &count, nil); res != vulkan.Success {
		return false
	}
	props := make([]vulkan.ExtensionProperties, count)
	if res := vulkan.EnumerateDeviceExtensionProperties(device, "", &count, props); res != vulkan.Success {
		return false
	}
	supported := make(map[string]bool)
	for i := range props {
		props[i].Deref()
		supported[vulkan.ToString(props[i].ExtensionName[:])] = true
	}
	for _, ext := range vulkanDeviceExtensions {
		if !supported[ext] {
			return false
		}
	}
	return true
}

func findQueueFamilies(device vulkan.PhysicalDevice, surface vulkan.Surface) vulkanQueueFamilies {
	var count uint32
	vulkan.GetPhysicalDeviceQueueFamilyProperties(device, &count, nil)
	props := make([]vulkan.QueueFamilyProperties, count)
	vulkan.GetPhysicalDeviceQueueFamilyProperties(device, &count, props)

	var indices vulkanQueueFamilies
	for i := range props {
		props[i].Deref()
		if props[i].QueueFlags&vulkan.QueueFlags(vulkan.QueueGraphicsBit) != 0 {
			indices.graphicsFamily = uint32(i)
			indices.hasGraphics = true
		}
		var present vulkan.Bool32
		vulkan.GetPhysicalDeviceSurfaceSupport(device, uint32(i), surface, &present)
		if present == vulkan.True {
			indices.presentFamily = uint32(i)
			indices.hasPresent = true
		}
		if indices.hasGraphics && indices.hasPresent {
			break
		}
	}
	return indices
}

func (b *vulkanBackend) createLogicalDevice() error {
	uniqueFamilies := map[uint32]bool{
		b.queues.graphicsFamily: true,
		b.queues.presentFamily:  true,
	}
	var queueInfos []vulkan.DeviceQueueCreateInfo
	for family := range uniqueFamilies {
		queueInfos = append(queueInfos, vulkan.DeviceQueueCreateInfo{
			SType:            vulkan.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		})
	}

	createInfo := vulkan.DeviceCreateInfo{
		SType:                   vulkan.StructureTypeDeviceCreateInfo,
		PQueueCreateInfos:       queueInfos,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PEnabledFeatures:        []vulkan.PhysicalDeviceFeatures{{}},
		PpEnabledExtensionNames: safeStrings(vulkanDeviceExtensions),
		EnabledExtensionCount:   uint32(len(vulkanDeviceExtensions)),
	}
	if b.validation {
		createInfo.EnabledLayerCount = uint32(len(vulkanValidationLayers))
		createInfo.PpEnabledLayerNames = safeStrings(vulkanValidationLayers)
	}

	if res := vulkan.CreateDevice(b.physicalDevice, &createInfo, nil, &b.device); res != vulkan.Success {
		return vulkanResult(res, "create logical device")
	}
	b.hasDevice = true
	vulkan.GetDeviceQueue(b.device, b.queues.graphicsFamily, 0, &b.graphicsQueue)
	vulkan.GetDeviceQueue(b.device, b.queues.presentFamily, 0, &b.presentQueue)
	return nil
}

func (b *vulkanBackend) Type() BackendType { return BackendTypeVulkan }
func (b *vulkanBackend) Limits() Limits    { return b.limits }

func (b *vulkanBackend) WaitIdle() error {
	if !b.hasDevice {
		return nil
	}
	if res := vulkan.DeviceWaitIdle(b.device); res != vulkan.Success {
		return vulkanResult(res, "device wait idle")
	}
	return nil
}

func (b *vulkanBackend) Destroy() {
	if b.hasDevice {
		vulkan.DestroyDevice(b.device, nil)
		b.hasDevice = false
	}
	if b.bootstrapTarget != nil {
		vulkan.DestroySurface(b.instance, b.bootstrap, nil)
		b.bootstrapTarget = nil
	}
	if b.hasDebugCallback {
		vulkan.DestroyDebugReportCallback(b.instance, b.debugCallback, nil)
		b.hasDebugCallback = false
	}
	if b.hasInstance {
		vulkan.DestroyInstance(b.instance, nil)
		b.hasInstance = false
	}
}

func (b *vulkanBackend) CreateFence(signaled bool) (NativeFence, error) {
	info := vulkan.FenceCreateInfo{SType: vulkan.StructureTypeFenceCreateInfo}
	if signaled {
		info.Flags = vulkan.FenceCreateFlags(vulkan.FenceCreateSignaledBit)
	}
	var fence vulkan.Fence
	if res := vulkan.CreateFence(b.device, &info, nil, &fence); res != vulkan.Success {
		return nil, vulkanResult(res, "create fence")
	}
	return fence, nil
}

func (b *vulkanBackend) DestroyFence(f NativeFence) {
	vulkan.DestroyFence(b.device, f.(vulkan.Fence), nil)
}

func (b *vulkanBackend) WaitFence(f NativeFence, timeout time.Duration) error {
	res := vulkan.WaitForFences(b.device, 1, []vulkan.Fence{f.(vulkan.Fence)}, vulkan.True, uint64(timeout.Nanoseconds()))
	if res != vulkan.Success {
		return vulkanResult(res, "wait for fence")
	}
	return nil
}

func (b *vulkanBackend) ResetFence(f NativeFence) error {
	if res := vulkan.ResetFences(b.device, 1, []vulkan.Fence{f.(vulkan.Fence)}); res != vulkan.Success {
		return vulkanResult(res, "reset fence")
	}
	return nil
}

func (b *vulkanBackend) FenceSignaled(f NativeFence) (bool, error) {
	switch res := vulkan.GetFenceStatus(b.device, f.(vulkan.Fence)); res {
	case vulkan.Success:
		return true, nil
	case vulkan.NotReady:
		return false, nil
	default:
		return false, vulkanResult(res, "fence status")
	}
}

func (b *vulkanBackend) CreateSemaphore() (NativeSemaphore, error) {
	info := vulkan.SemaphoreCreateInfo{SType: vulkan.StructureTypeSemaphoreCreateInfo}
	var sem vulkan.Semaphore
	if res := vulkan.CreateSemaphore(b.device, &info, nil, &sem); res != vulkan.Success {
		return nil, vulkanResult(res, "create semaphore")
	}
	return sem, nil
}

func (b *vulkanBackend) DestroySemaphore(s NativeSemaphore) {
	vulkan.DestroySemaphore(b.device, s.(vulkan.Semaphore), nil)
}

func (b *vulkanBackend) CreateCommandPool() (NativeCommandPool, error) {
	info := vulkan.CommandPoolCreateInfo{
		SType:            vulkan.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: b.queues.graphicsFamily,
		Flags:            vulkan.CommandPoolCreateFlags(vulkan.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vulkan.CommandPool
	if res := vulkan.CreateCommandPool(b.device, &info, nil, &pool); res != vulkan.Success {
		return nil, vulkanResult(res, "create command pool")
	}
	return pool, nil
}

func (b *vulkanBackend) DestroyCommandPool(p NativeCommandPool) {
	vulkan.DestroyCommandPool(b.device, p.(vulkan.CommandPool), nil)
}

func (b *vulkanBackend) AllocateCommandBuffer(p NativeCommandPool) (CommandBuffer, error) {
	info := vulkan.CommandBufferAllocateInfo{
		SType:              vulkan.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        p.(vulkan.CommandPool),
		Level:              vulkan.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	buffers := make([]vulkan.CommandBuffer, 1)
	if res := vulkan.AllocateCommandBuffers(b.device, &info, buffers); res != vulkan.Success {
		return nil, vulkanResult(res, "allocate command buffer")
	}
	return &vulkanCommandBuffer{cb: buffers[0]}, nil
}

func (b *vulkanBackend) FreeCommandBuffer(p NativeCommandPool, cb CommandBuffer) {
	vulkan.FreeCommandBuffers(b.device, p.(vulkan.CommandPool), 1, []vulkan.CommandBuffer{cb.(*vulkanCommandBuffer).cb})
}

func (b *vulkanBackend) Submit(info SubmitInfo) error {
	submit := vulkan.SubmitInfo{
		SType:              vulkan.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vulkan.CommandBuffer{info.CommandBuffer.(*vulkanCommandBuffer).cb},
	}
	if info.Wait != nil {
		submit.WaitSemaphoreCount = 1
		submit.PWaitSemaphores = []vulkan.Semaphore{info.Wait.(vulkan.Semaphore)}
		submit.PWaitDstStageMask = []vulkan.PipelineStageFlags{vulkan.PipelineStageFlags(vulkan.PipelineStageColorAttachmentOutputBit)}
	}
	if info.Signal != nil {
		submit.SignalSemaphoreCount = 1
		submit.PSignalSemaphores = []vulkan.Semaphore{info.Signal.(vulkan.Semaphore)}
	}
	fence := vulkan.Fence(vulkan.NullHandle)
	if info.Fence != nil {
		fence = info.Fence.(vulkan.Fence)
	}
	if res := vulkan.QueueSubmit(b.graphicsQueue, 1, []vulkan.SubmitInfo{submit}, fence); res != vulkan.Success {
		return vulkanResult(res, "queue submit")
	}
	return nil
}

func (b *vulkanBackend) Present(info PresentInfo) error {
	present := vulkan.PresentInfo{
		SType:          vulkan.StructureTypePresentInfo,
		SwapchainCount: 1,
		PSwapchains:    []vulkan.Swapchain{info.Swapchain.(*vulkanSwapchain).handle},
		PImageIndices:  []uint32{info.ImageIndex},
	}
	if info.Wait != nil {
		present.WaitSemaphoreCount = 1
		present.PWaitSemaphores = []vulkan.Semaphore{info.Wait.(vulkan.Semaphore)}
	}
	if res := vulkan.QueuePresent(b.presentQueue, &present); res != vulkan.Success {
		return vulkanResult(res, "queue present")
	}
	return nil
}

// vulkanCommandBuffer records into one primary command buffer.
type vulkanCommandBuffer struct {
	cb vulkan.CommandBuffer
}

func (c *vulkanCommandBuffer) Begin() error {
	if res := vulkan.ResetCommandBuffer(c.cb, 0); res != vulkan.Success {
		return vulkanResult(res, "reset command buffer")
	}
	info := vulkan.CommandBufferBeginInfo{
		SType: vulkan.StructureTypeCommandBufferBeginInfo,
		Flags: vulkan.CommandBufferUsageFlags(vulkan.CommandBufferUsageOneTimeSubmitBit),
	}
	if res := vulkan.BeginCommandBuffer(c.cb, &info); res != vulkan.Success {
		return vulkanResult(res, "begin command buffer")
	}
	return nil
}

func (c *vulkanCommandBuffer) End() error {
	if res := vulkan.EndCommandBuffer(c.cb); res != vulkan.Success {
		return vulkanResult(res, "end command buffer")
	}
	return nil
}

func (c *vulkanCommandBuffer) BeginRenderPass(info RenderPassBeginInfo) {
	rp := info.RenderPass.(*vulkanRenderPass)
	clearValues := make([]vulkan.ClearValue, 0, len(rp.desc.ColorFormats)+1)
	for range rp.desc.ColorFormats {
		clearValues = append(clearValues, vulkan.NewClearValue([]float32{info.ClearColor.R, info.ClearColor.G, info.ClearColor.B, info.ClearColor.A}))
	}
	if rp.desc.DepthStencilFormat != FormatUndefined {
		clearValues = append(clearValues, vulkan.NewClearDepthStencil(info.ClearDepth, 0))
	}

	begin := vulkan.RenderPassBeginInfo{
		SType:       vulkan.StructureTypeRenderPassBeginInfo,
		RenderPass:  rp.handle,
		Framebuffer: info.Framebuffer.(vulkan.Framebuffer),
		RenderArea: vulkan.Rect2D{
			Offset: vulkan.Offset2D{X: 0, Y: 0},
			Extent: vulkan.Extent2D{Width: info.Extent.Width, Height: info.Extent.Height},
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vulkan.CmdBeginRenderPass(c.cb, &begin, vulkan.SubpassContentsInline)
}

func (c *vulkanCommandBuffer) EndRenderPass() {
	vulkan.CmdEndRenderPass(c.cb)
}

func (c *vulkanCommandBuffer) SetViewport(v common.Viewport) {
	vulkan.CmdSetViewport(c.cb, 0, 1, []vulkan.Viewport{{
		X:        v.X,
		Y:        v.Y,
		Width:    v.Width,
		Height:   v.Height,
		MinDepth: v.MinDepth,
		MaxDepth: v.MaxDepth,
	}})
}

func (c *vulkanCommandBuffer) SetScissor(r common.Rect) {
	vulkan.CmdSetScissor(c.cb, 0, 1, []vulkan.Rect2D{{
		Offset: vulkan.Offset2D{X: r.X, Y: r.Y},
		Extent: vulkan.Extent2D{Width: r.Width, Height: r.Height},
	}})
}

func (c *vulkanCommandBuffer) BindPipeline(p NativePipeline) {
	vulkan.CmdBindPipeline(c.cb, vulkan.PipelineBindPointGraphics, p.(vulkan.Pipeline))
}

func (c *vulkanCommandBuffer) BindVertexBuffer(slot uint32, b NativeBuffer, offset uint64) {
	vulkan.CmdBindVertexBuffers(c.cb, slot, 1, []vulkan.Buffer{b.(*vulkanBuffer).buffer}, []vulkan.DeviceSize{vulkan.DeviceSize(offset)})
}

func (c *vulkanCommandBuffer) BindIndexBuffer(b NativeBuffer, offset uint64, format IndexFormat) {
	indexType := vulkan.IndexTypeUint32
	if format == IndexFormatUint16 {
		indexType = vulkan.IndexTypeUint16
	}
	vulkan.CmdBindIndexBuffer(c.cb, b.(*vulkanBuffer).buffer, vulkan.DeviceSize(offset), indexType)
}

func (c *vulkanCommandBuffer) PushConstants(layout NativePipelineLayout, stages ShaderStage, offset uint32, data []byte) {
	if len(data) == 0 {
		return
	}
	vulkan.CmdPushConstants(c.cb, layout.(vulkan.PipelineLayout), vulkanShaderStages(stages), offset, uint32(len(data)), unsafe.Pointer(&data[0]))
}

func (c *vulkanCommandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	vulkan.CmdDraw(c.cb, vertexCount, instanceCount, firstVertex, firstInstance)
}

func (c *vulkanCommandBuffer) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	vulkan.CmdDrawIndexed(c.cb, indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}

// vulkanResult maps a failed vulkan.Result onto the package's sentinel errors.
func vulkanResult(res vulkan.Result, op string) error {
	switch res {
	case vulkan.ErrorOutOfDate:
		return ErrOutOfDate
	case vulkan.Suboptimal:
		return ErrSuboptimal
	case vulkan.Timeout:
		return ErrTimeout
	case vulkan.ErrorDeviceLost:
		return ErrDeviceLost
	case vulkan.ErrorSurfaceLost:
		return ErrSurfaceLost
	case vulkan.ErrorOutOfHostMemory, vulkan.ErrorOutOfDeviceMemory:
		return errors.Wrap(ErrOutOfMemory, op)
	case vulkan.ErrorFormatNotSupported:
		return errors.Wrap(ErrUnsupportedFormat, op)
	default:
		return errors.Wrap(vulkan.Error(res), op)
	}
}

func vulkanShaderStages(s ShaderStage) vulkan.ShaderStageFlags {
	var flags vulkan.ShaderStageFlagBits
	if s&ShaderStageVertex != 0 {
		flags |= vulkan.ShaderStageVertexBit
	}
	if s&ShaderStageFragment != 0 {
		flags |= vulkan.ShaderStageFragmentBit
	}
	return vulkan.ShaderStageFlags(flags)
}

// safeString null terminates s for the C side.
func safeString(s string) string {
	if len(s) == 0 || s[len(s)-1] != 0 {
		return s + "\x00"
	}
	return s
}

func safeStrings(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = safeString(s)
	}
	return out
}
