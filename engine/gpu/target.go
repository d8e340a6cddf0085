package gpu

import (
	"sync/atomic"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-canvas/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// Target is the drawable a surface presents into, usually a window.
// Width and Height report the current framebuffer size and may be called from any goroutine.
type Target interface {
	Width() int
	Height() int
}

// VulkanTarget is a Target that can create a Vulkan window surface.
type VulkanTarget interface {
	Target

	// InstanceProcAddr returns the windowing system's vkGetInstanceProcAddr.
	InstanceProcAddr() unsafe.Pointer

	// RequiredInstanceExtensions lists the instance extensions surface creation needs.
	RequiredInstanceExtensions() []string

	// CreateWindowSurface creates a VkSurfaceKHR for the window.
	//
	// Parameters:
	//   - instance: the VkInstance
	//   - allocator: optional allocation callbacks, usually nil
	//
	// Returns:
	//   - uintptr: the surface handle
	//   - error: an error if creation failed
	CreateWindowSurface(instance any, allocator unsafe.Pointer) (uintptr, error)
}

// WGPUTarget is a Target that can describe a WebGPU surface.
type WGPUTarget interface {
	Target
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
}

// TargetExtent returns the current framebuffer extent of t.
func TargetExtent(t Target) common.Extent2D {
	return common.NewExtent2D(t.Width(), t.Height())
}

// HeadlessTarget is an in-memory Target for the headless backend. It is safe for concurrent use.
type HeadlessTarget struct {
	width  atomic.Int32
	height atomic.Int32
}

// NewHeadlessTarget creates a HeadlessTarget with the given size.
func NewHeadlessTarget(width, height int) *HeadlessTarget {
	t := &HeadlessTarget{}
	t.Resize(width, height)
	return t
}

// Resize changes the reported framebuffer size, as a window resize would.
func (t *HeadlessTarget) Resize(width, height int) {
	t.width.Store(int32(width))
	t.height.Store(int32(height))
}

func (t *HeadlessTarget) Width() int  { return int(t.width.Load()) }
func (t *HeadlessTarget) Height() int { return int(t.height.Load()) }
