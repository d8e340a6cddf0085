package canvas

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyProcessingFrame is returned by BeginFrame while a frame is open, and by Resize
	// while the canvas is not idle.
	ErrAlreadyProcessingFrame = errors.New("canvas: already processing a frame")
	// ErrNotProcessingFrame is returned by EndFrame, and by Frame methods, when no frame is open.
	ErrNotProcessingFrame = errors.New("canvas: not processing a frame")
	// ErrImageAcquisitionFailed is returned by EndFrame when BeginFrame opened the frame but
	// could not acquire a swapchain image. Nothing is submitted.
	ErrImageAcquisitionFailed = errors.New("canvas: no swapchain image was acquired for this frame")
	// ErrSkipFrame is returned by BeginFrame when the target has no drawable area. No frame is
	// opened and no ring slot is consumed; render again on the next tick.
	ErrSkipFrame = errors.New("canvas: target has zero extent, frame skipped")
	// ErrCanvasFaulted is returned once a synchronization fault has made the canvas unusable.
	// The canvas must be destroyed.
	ErrCanvasFaulted = errors.New("canvas: faulted")
	// ErrCanvasDestroyed is returned by every operation after Destroy.
	ErrCanvasDestroyed = errors.New("canvas: destroyed")
	// ErrPushConstantsTooLarge is returned when push constant data exceeds the pipeline layout
	// or the device limit.
	ErrPushConstantsTooLarge = errors.New("canvas: push constants exceed the available range")
	// ErrInvalidRange is returned for inverted, empty or out of bounds draw ranges.
	ErrInvalidRange = errors.New("canvas: invalid range")
	// ErrNoPipelineBound is returned by draws and pushes recorded before BindPipeline.
	ErrNoPipelineBound = errors.New("canvas: no pipeline bound")
	// ErrNotConfigured is returned by surface operations before the first Configure.
	ErrNotConfigured = errors.New("canvas: surface not configured")
	// ErrFenceNotWaited is returned when a slot fence is reset without having been waited on.
	ErrFenceNotWaited = errors.New("canvas: fence reset before wait")
)

// ConfigError is returned when a surface or canvas option is rejected.
// It is recoverable: retry with a corrected value.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("canvas: invalid %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
