package canvas

import (
	"time"

	"github.com/Carmen-Shannon/oxy-canvas/common"
	"github.com/Carmen-Shannon/oxy-canvas/engine/gpu"
)

// DefaultFramesInFlight is the number of frame slots used when WithFramesInFlight is not given.
const DefaultFramesInFlight = 3

// DefaultAcquireTimeout bounds the wait for a swapchain image.
const DefaultAcquireTimeout = time.Second

// CanvasBuilderOption is a functional option applied to a canvas during construction via NewCanvas.
type CanvasBuilderOption func(*canvas)

// WithFramesInFlight sets how many frames the CPU may record ahead of the GPU.
// Values below 2 are rejected by NewCanvas.
//
// Parameters:
//   - n: the number of frame slots
//
// Returns:
//   - CanvasBuilderOption: a function that applies the frames in flight option to a canvas
func WithFramesInFlight(n int) CanvasBuilderOption {
	return func(c *canvas) {
		c.framesInFlight = n
	}
}

// WithPresentMode sets the swapchain present mode. The default is gpu.PresentModeVSync.
//
// Parameters:
//   - mode: the present mode
//
// Returns:
//   - CanvasBuilderOption: a function that applies the present mode option to a canvas
func WithPresentMode(mode gpu.PresentMode) CanvasBuilderOption {
	return func(c *canvas) {
		c.surfaceConfig.PresentMode = mode
	}
}

// WithImageCount sets the requested number of swapchain images. The default is 3.
//
// Parameters:
//   - n: the image count, clamped to the surface's supported range
//
// Returns:
//   - CanvasBuilderOption: a function that applies the image count option to a canvas
func WithImageCount(n uint32) CanvasBuilderOption {
	return func(c *canvas) {
		c.surfaceConfig.ImageCount = n
	}
}

// WithColorFormat requires a specific swapchain color format. Without it the canvas prefers
// gpu.FormatBGRA8UnormSRGB and falls back to the surface's first supported format.
//
// Parameters:
//   - f: the color format
//
// Returns:
//   - CanvasBuilderOption: a function that applies the color format option to a canvas
func WithColorFormat(f gpu.Format) CanvasBuilderOption {
	return func(c *canvas) {
		c.surfaceConfig.Format = f
		c.explicitFormat = true
	}
}

// WithDepthFormat adds a depth attachment of format f to every frame.
//
// Parameters:
//   - f: a depth format
//
// Returns:
//   - CanvasBuilderOption: a function that applies the depth format option to a canvas
func WithDepthFormat(f gpu.Format) CanvasBuilderOption {
	return func(c *canvas) {
		c.depthFormat = f
	}
}

// WithClearColor sets the color attachment clear value.
//
// Parameters:
//   - color: the clear color
//
// Returns:
//   - CanvasBuilderOption: a function that applies the clear color option to a canvas
func WithClearColor(color common.Color) CanvasBuilderOption {
	return func(c *canvas) {
		c.clearColor = color
	}
}

// WithAcquireTimeout bounds the wait for a swapchain image. Non-positive values are ignored.
//
// Parameters:
//   - d: the acquire timeout
//
// Returns:
//   - CanvasBuilderOption: a function that applies the acquire timeout option to a canvas
func WithAcquireTimeout(d time.Duration) CanvasBuilderOption {
	return func(c *canvas) {
		if d > 0 {
			c.acquireTimeout = d
		}
	}
}

// WithObserver registers a FrameObserver notified of fence waits, skipped frames and
// out of date swapchains.
//
// Parameters:
//   - o: the observer
//
// Returns:
//   - CanvasBuilderOption: a function that applies the observer option to a canvas
func WithObserver(o FrameObserver) CanvasBuilderOption {
	return func(c *canvas) {
		c.observer = o
	}
}
