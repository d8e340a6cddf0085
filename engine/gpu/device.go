package gpu

import (
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-canvas/common"
	"github.com/pkg/errors"
)

// Context owns the native device, its queue and the backend that drives them.
// It is shared by every Handle created on it: the native device is destroyed only after Close
// has been called and the last Handle has been released.
//
// Queue submission and presentation go through the Context, which serializes them.
type Context struct {
	backend     Backend
	backendType BackendType
	limits      Limits

	fenceTimeout time.Duration

	// builder state, consumed by NewContext
	validation      bool
	target          Target
	headlessLatency time.Duration
	appName         string

	queueMu sync.Mutex

	refs   atomic.Int64
	closed atomic.Bool

	liveMu sync.Mutex
	live   map[ResourceKind]int
}

// NewContext creates the device for the given backend.
//
// Parameters:
//   - backendType: the native API to use
//   - options: functional options applied before the device is created
//
// Returns:
//   - *Context: the device context, owned by the caller until Close
//   - error: an error if the instance, adapter or device could not be created
func NewContext(backendType BackendType, options ...ContextBuilderOption) (*Context, error) {
	c := &Context{
		backendType:  backendType,
		fenceTimeout: DefaultFenceTimeout,
		appName:      "oxy-canvas",
		validation:   validationFromEnv(),
		live:         make(map[ResourceKind]int),
	}
	for _, opt := range options {
		opt(c)
	}

	var (
		b   Backend
		err error
	)
	switch backendType {
	case BackendTypeVulkan:
		b, err = newVulkanBackend(c.appName, c.target, c.validation)
	case BackendTypeWGPU:
		b, err = newWGPUBackend(c.target)
	case BackendTypeHeadless:
		b, err = NewHeadlessBackend(c.headlessLatency), nil
	default:
		err = errors.Wrapf(ErrInvalidParameters, "unknown backend type %d", int(backendType))
	}
	if err != nil {
		return nil, errors.Wrapf(err, "create %s device", backendType)
	}

	c.backend = b
	c.limits = b.Limits()
	c.target = nil
	c.refs.Store(1)
	common.Logger().Info("gpu context created",
		slog.String("backend", backendType.String()),
		slog.Bool("validation", c.validation),
		slog.Uint64("max_push_constants", uint64(c.limits.MaxPushConstantsSize)))
	return c, nil
}

// Backend returns the backend driving the device.
func (c *Context) Backend() Backend {
	return c.backend
}

// Type returns the backend type.
func (c *Context) Type() BackendType {
	return c.backendType
}

// Limits returns the device limits.
func (c *Context) Limits() Limits {
	return c.limits
}

// FenceTimeout returns the timeout applied to frame fence waits.
func (c *Context) FenceTimeout() time.Duration {
	return c.fenceTimeout
}

// Validation reports whether API validation was requested.
func (c *Context) Validation() bool {
	return c.validation
}

// Closed reports whether Close has been called.
func (c *Context) Closed() bool {
	return c.closed.Load()
}

// Close releases the caller's ownership of the device. The native device is destroyed
// immediately if no handles remain, otherwise when the last one is released.
func (c *Context) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	if n := c.LiveResources(); n > 0 {
		common.Logger().Debug("gpu context closed with live resources, destruction deferred", slog.Int("live", n))
	}
	c.release()
}

// LiveResources returns the number of handles whose native objects have not been destroyed.
func (c *Context) LiveResources() int {
	c.liveMu.Lock()
	defer c.liveMu.Unlock()
	n := 0
	for _, v := range c.live {
		n += v
	}
	return n
}

// LiveResourcesByKind returns a snapshot of live handle counts per kind.
func (c *Context) LiveResourcesByKind() map[ResourceKind]int {
	c.liveMu.Lock()
	defer c.liveMu.Unlock()
	out := maps.Clone(c.live)
	maps.DeleteFunc(out, func(_ ResourceKind, v int) bool { return v == 0 })
	return out
}

// WaitIdle blocks until the device has finished all submitted work.
func (c *Context) WaitIdle() error {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()
	return c.backend.WaitIdle()
}

// Submit enqueues a recorded command buffer on the device queue.
func (c *Context) Submit(info SubmitInfo) error {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()
	return c.backend.Submit(info)
}

// Present queues a swapchain image for display.
func (c *Context) Present(info PresentInfo) error {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()
	return c.backend.Present(info)
}

// WaitFence waits for a fence using the context's fence timeout.
//
// Returns:
//   - error: ErrTimeout or ErrDeviceLost wrapped with context
func (c *Context) WaitFence(f *Handle[NativeFence]) error {
	return c.backend.WaitFence(f.Get(), c.fenceTimeout)
}

// ResetFence returns a fence to the unsignaled state.
func (c *Context) ResetFence(f *Handle[NativeFence]) error {
	return c.backend.ResetFence(f.Get())
}

func (c *Context) retain() bool {
	for {
		n := c.refs.Load()
		if n <= 0 || c.closed.Load() {
			return false
		}
		if c.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

func (c *Context) release() {
	if c.refs.Add(-1) != 0 {
		return
	}
	if err := c.backend.WaitIdle(); err != nil {
		common.Logger().Warn("wait idle before device destruction failed", slog.Any("error", err))
	}
	c.backend.Destroy()
	common.Logger().Info("gpu context destroyed", slog.String("backend", c.backendType.String()))
}

func (c *Context) track(kind ResourceKind, delta int) {
	c.liveMu.Lock()
	c.live[kind] += delta
	c.liveMu.Unlock()
}
