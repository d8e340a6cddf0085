package window

import (
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-canvas/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// Window provides platform windowing and input event handling.
// A Window is a drawable target for both GPU backends: it can describe a WebGPU surface and create a Vulkan one.
// Width and Height may be read from any goroutine; everything else must be called on the thread that created the window.
type Window interface {
	gpu.VulkanTarget
	gpu.WGPUTarget

	// SetUpdateCallback sets the function called each message loop iteration.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the framebuffer is resized.
	// Minimizing reports a 0x0 size.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetCloseCallback sets the function called once when the user asks to close the window,
	// before the message loop returns.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetCloseCallback(callback func())

	// SetKeyDownCallback sets the callback for key press events.
	//
	// Parameters:
	//   - callback: function receiving the virtual key code
	SetKeyDownCallback(callback func(keyCode uint32))

	// SetKeyUpCallback sets the callback for key release events.
	//
	// Parameters:
	//   - callback: function receiving the virtual key code
	SetKeyUpCallback(callback func(keyCode uint32))

	// RequestClose asks the message loop to stop as if the user closed the window.
	// The close callback fires if it has not already. The window stays alive until Close.
	RequestClose()

	// IsRunning returns true if the window is still active.
	//
	// Returns:
	//   - bool: true if window is running, false if closed
	IsRunning() bool

	// Close closes the window and releases platform resources.
	//
	// Returns:
	//   - error: error if close operation fails
	Close() error

	// ProcessMessages runs the window message loop.
	// Blocks until the window is closed. Calls OnUpdate callback each iteration.
	ProcessMessages()
}

// engineWindow is the implementation of the Window interface.
// Holds window configuration, GLFW state, and event callbacks.
type engineWindow struct {
	// title is the window title displayed in the title bar.
	title string

	// maxWidth is the maximum allowed window width during resize.
	maxWidth int

	// maxHeight is the maximum allowed window height during resize.
	maxHeight int

	// minWidth is the minimum allowed window width during resize.
	minWidth int

	// minHeight is the minimum allowed window height during resize.
	minHeight int

	// requestedWidth and requestedHeight are the size the window is created with.
	requestedWidth, requestedHeight int

	// width and height are the current framebuffer size in pixels, read by the render goroutine.
	width, height atomic.Int32

	// internalWindow holds the platform-specific window data (glfwWindow).
	internalWindow any

	// onUpdate is called each iteration of the message loop (if set).
	onUpdate func()

	// onResize is called when the framebuffer is resized.
	onResize func(width, height int)

	// onClose is called when the user asks to close the window.
	onClose func()

	// onKeyDown is called when a key is pressed.
	onKeyDown func(keyCode uint32)

	// onKeyUp is called when a key is released.
	onKeyUp func(keyCode uint32)
}

var _ Window = &engineWindow{}

// NewWindow creates a new Window with the specified options.
// Applies default values first, then each option in order.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the spawned window
//   - error: error if the platform window could not be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := newEngineWindow(options...)
	if err := newPlatformWindow(w); err != nil {
		return nil, err
	}
	return w, nil
}

func newEngineWindow(options ...WindowBuilderOption) *engineWindow {
	w := &engineWindow{
		title:           "Default Window Title",
		maxWidth:        1600,
		maxHeight:       1200,
		minWidth:        600,
		minHeight:       200,
		requestedWidth:  1280,
		requestedHeight: 720,
	}
	for _, opt := range options {
		opt(w)
	}
	w.minWidth = min(w.minWidth, w.maxWidth)
	w.minHeight = min(w.minHeight, w.maxHeight)
	w.requestedWidth = max(w.minWidth, min(w.requestedWidth, w.maxWidth))
	w.requestedHeight = max(w.minHeight, min(w.requestedHeight, w.maxHeight))
	w.setSize(w.requestedWidth, w.requestedHeight)
	return w
}

func (w *engineWindow) setSize(width, height int) {
	w.width.Store(int32(width))
	w.height.Store(int32(height))
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetCloseCallback(callback func()) {
	w.onClose = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(keyCode uint32)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SetKeyUpCallback(callback func(keyCode uint32)) {
	w.onKeyUp = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) InstanceProcAddr() unsafe.Pointer {
	return platformInstanceProcAddr()
}

func (w *engineWindow) RequiredInstanceExtensions() []string {
	return platformRequiredInstanceExtensions(w)
}

func (w *engineWindow) CreateWindowSurface(instance any, allocator unsafe.Pointer) (uintptr, error) {
	return platformCreateWindowSurface(w, instance, allocator)
}

func (w *engineWindow) RequestClose() {
	platformRequestClose(w)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		if succ := platformProcessMessages(w); !succ {
			break
		}

		if w.onUpdate != nil {
			w.onUpdate()
		}

		runtime.Gosched()
	}
}

func (w *engineWindow) Width() int {
	return int(w.width.Load())
}

func (w *engineWindow) Height() int {
	return int(w.height.Load())
}
