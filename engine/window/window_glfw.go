package window

import (
	"runtime"
	"sync"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/pkg/errors"
)

// errWindowNotInitialized is returned by platform calls made before the GLFW window exists.
var errWindowNotInitialized = errors.New("window is not initialized")

// glfwWindow holds the GLFW-specific window state.
type glfwWindow struct {
	parent    *engineWindow
	window    *glfw.Window
	running   bool
	closeOnce sync.Once
}

// requestClose stops the message loop and reports the close exactly once.
func (gw *glfwWindow) requestClose() {
	gw.running = false
	gw.window.SetShouldClose(true)
	gw.closeOnce.Do(func() {
		if gw.parent.onClose != nil {
			gw.parent.onClose()
		}
	})
}

// newPlatformWindow creates the GLFW window with input callbacks and stores it as the internal window.
//
// GLFW reference: https://www.glfw.org/docs/latest/window_guide.html
// go-gl/glfw: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw
func newPlatformWindow(w *engineWindow) error {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return errors.Wrap(err, "failed to initialize GLFW")
	}

	// Both Vulkan and WebGPU bring their own graphics API, so disable OpenGL context creation.
	// Reference: https://www.glfw.org/docs/latest/window_guide.html#window_hints_ctx
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	win, err := glfw.CreateWindow(w.requestedWidth, w.requestedHeight, w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return errors.Wrap(err, "failed to create GLFW window")
	}
	win.SetSizeLimits(w.minWidth, w.minHeight, w.maxWidth, w.maxHeight)

	gw := &glfwWindow{
		parent:  w,
		window:  win,
		running: true,
	}
	w.internalWindow = gw

	// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Window.SetKeyCallback
	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			gw.requestClose()
			return
		}
		switch action {
		case glfw.Press, glfw.Repeat:
			if w.onKeyDown != nil {
				w.onKeyDown(uint32(key))
			}
		case glfw.Release:
			if w.onKeyUp != nil {
				w.onKeyUp(uint32(key))
			}
		}
	})

	// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Window.SetCloseCallback
	win.SetCloseCallback(func(_ *glfw.Window) {
		gw.requestClose()
	})

	// Use framebuffer size callback for pixel-accurate resize events.
	// On high-DPI displays (e.g., macOS Retina), framebuffer size differs from window size.
	// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Window.SetFramebufferSizeCallback
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.setSize(width, height)
		if w.onResize != nil {
			w.onResize(width, height)
		}
	})

	// Update stored dimensions to reflect actual framebuffer size (may differ from requested on high-DPI).
	w.setSize(win.GetFramebufferSize())

	return nil
}

// platformGetSurfaceDescriptor creates a platform-appropriate wgpu.SurfaceDescriptor from the GLFW window.
// Uses the wgpuglfw bridge package which has per-platform implementations (Windows, X11, Wayland, macOS).
//
// Reference: https://pkg.go.dev/github.com/cogentcore/webgpu/wgpuglfw#GetSurfaceDescriptor
func platformGetSurfaceDescriptor(w *engineWindow) *wgpu.SurfaceDescriptor {
	if w.internalWindow == nil {
		return nil
	}
	gw := w.internalWindow.(*glfwWindow)
	return wgpuglfw.GetSurfaceDescriptor(gw.window)
}

// platformInstanceProcAddr returns GLFW's vkGetInstanceProcAddr, used to load the Vulkan entry points.
//
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#GetVulkanGetInstanceProcAddress
func platformInstanceProcAddr() unsafe.Pointer {
	return glfw.GetVulkanGetInstanceProcAddress()
}

// platformRequiredInstanceExtensions lists the Vulkan instance extensions needed to create a surface for the window.
//
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Window.GetRequiredInstanceExtensions
func platformRequiredInstanceExtensions(w *engineWindow) []string {
	if w.internalWindow == nil {
		return nil
	}
	gw := w.internalWindow.(*glfwWindow)
	return gw.window.GetRequiredInstanceExtensions()
}

// platformCreateWindowSurface creates a VkSurfaceKHR for the GLFW window.
//
// Parameters:
//   - w: the engineWindow owning the GLFW window
//   - instance: the vulkan.Instance the surface belongs to
//   - allocator: optional allocation callbacks
//
// Returns:
//   - uintptr: the surface handle
//   - error: error if the window is not initialized or GLFW failed to create the surface
func platformCreateWindowSurface(w *engineWindow, instance any, allocator unsafe.Pointer) (uintptr, error) {
	if w.internalWindow == nil {
		return 0, errWindowNotInitialized
	}
	if !glfw.VulkanSupported() {
		return 0, errors.New("vulkan is not supported by the windowing system")
	}
	gw := w.internalWindow.(*glfwWindow)
	surface, err := gw.window.CreateWindowSurface(instance, allocator)
	if err != nil {
		return 0, errors.Wrap(err, "glfwCreateWindowSurface")
	}
	return surface, nil
}

// platformRequestClose marks the GLFW window as closing. It is a no-op before the window exists.
func platformRequestClose(w *engineWindow) {
	if w.internalWindow == nil {
		return
	}
	w.internalWindow.(*glfwWindow).requestClose()
}

// platformIsRunningCheck returns whether the GLFW window is still active.
// Returns false if the internal window is nil, the running flag is cleared, or GLFW reports ShouldClose.
//
// Parameters:
//   - w: the engineWindow to check
//
// Returns:
//   - bool: true if the window is still running
func platformIsRunningCheck(w *engineWindow) bool {
	if w.internalWindow == nil {
		return false
	}
	gw := w.internalWindow.(*glfwWindow)
	return gw.running && !gw.window.ShouldClose()
}

// platformCloseWindow destroys the GLFW window and terminates the GLFW library.
// Returns an error if the internal window has not been initialized.
//
// Parameters:
//   - w: the engineWindow to close
//
// Returns:
//   - error: error if the window is not initialized
func platformCloseWindow(w *engineWindow) error {
	if w.internalWindow == nil {
		return errWindowNotInitialized
	}
	gw := w.internalWindow.(*glfwWindow)
	gw.running = false
	gw.window.SetShouldClose(true)
	gw.window.Destroy()
	glfw.Terminate()
	w.internalWindow = nil
	return nil
}

// platformProcessMessages polls GLFW for pending events without blocking.
//
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#PollEvents
func platformProcessMessages(w *engineWindow) bool {
	glfw.PollEvents()
	return platformIsRunningCheck(w)
}
