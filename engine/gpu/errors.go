package gpu

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfMemory is returned when the device or host runs out of memory for a native object.
	ErrOutOfMemory = errors.New("gpu: out of memory")
	// ErrInvalidParameters is returned when a descriptor is rejected before reaching the device.
	ErrInvalidParameters = errors.New("gpu: invalid parameters")
	// ErrUnsupportedFormat is returned when a surface or attachment format is not supported by the device.
	ErrUnsupportedFormat = errors.New("gpu: unsupported format")
	// ErrUnsupportedTarget is returned when the window target cannot provide what the backend needs.
	ErrUnsupportedTarget = errors.New("gpu: target does not support this backend")
	// ErrDeviceLost is returned once the device has become unusable. It is never recoverable.
	ErrDeviceLost = errors.New("gpu: device lost")
	// ErrTimeout is returned when a fence or acquire wait exceeds its timeout.
	ErrTimeout = errors.New("gpu: wait timed out")
	// ErrOutOfDate is returned by acquire or present when the swapchain no longer matches the surface.
	// It is transient: reconfigure the surface and try again.
	ErrOutOfDate = errors.New("gpu: swapchain out of date")
	// ErrSuboptimal accompanies a successful acquire or present when the swapchain still works
	// but should be recreated.
	ErrSuboptimal = errors.New("gpu: swapchain suboptimal")
	// ErrSurfaceLost is returned when the native surface has been destroyed underneath the swapchain.
	ErrSurfaceLost = errors.New("gpu: surface lost")
	// ErrContextClosed is returned when creating resources on a Context after Close.
	ErrContextClosed = errors.New("gpu: context closed")
	// ErrParentReleased is returned when a resource is created from a handle that has already been released.
	ErrParentReleased = errors.New("gpu: parent handle already released")
	// ErrCapacityMismatch is returned when a pipeline's render pass requirements do not match the frame it is bound to.
	ErrCapacityMismatch = errors.New("gpu: render pass requirements mismatch")
	// ErrCommandBufferInFlight is returned when recording into a command buffer the device is still executing.
	ErrCommandBufferInFlight = errors.New("gpu: command buffer still in flight")
	// ErrFenceInUse is returned when resetting a fence that guards a submission still executing.
	ErrFenceInUse = errors.New("gpu: fence reset while in use")
)

// CreationError is returned when a native object could not be created.
// Kind names the resource and Err carries the underlying cause.
type CreationError struct {
	Kind ResourceKind
	Err  error
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("gpu: create %s: %v", e.Kind, e.Err)
}

func (e *CreationError) Unwrap() error {
	return e.Err
}

// SyncError is returned when a fence wait fails or times out.
// A SyncError means the frame pipeline can no longer guarantee resource safety.
type SyncError struct {
	// Op is the synchronization operation that failed, such as "wait" or "reset".
	Op string
	// Slot is the frame ring slot guarded by the fence, or -1 when not slot bound.
	Slot int
	Err  error
}

func (e *SyncError) Error() string {
	if e.Slot < 0 {
		return fmt.Sprintf("gpu: fence %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("gpu: fence %s (slot %d): %v", e.Op, e.Slot, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err leaves the device unusable.
// Timeouts are treated as fatal because a hung submission never frees its slot.
func IsFatal(err error) bool {
	var syncErr *SyncError
	return errors.Is(err, ErrDeviceLost) || errors.As(err, &syncErr)
}
