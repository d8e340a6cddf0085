package canvas

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-canvas/common"
	"github.com/Carmen-Shannon/oxy-canvas/engine/gpu"
	"github.com/pkg/errors"
)

// CanvasState is the position of a canvas in its frame cycle.
type CanvasState int

const (
	CanvasStateIdle CanvasState = iota
	CanvasStateAcquiring
	CanvasStateRecording
	CanvasStateSubmitting
	CanvasStatePresenting
)

var canvasStateNames = [...]string{"idle", "acquiring", "recording", "submitting", "presenting"}

func (s CanvasState) String() string {
	if int(s) < len(canvasStateNames) {
		return canvasStateNames[s]
	}
	return fmt.Sprintf("CanvasState(%d)", int(s))
}

// FrameObserver receives frame timing events from a canvas. Calls happen on the goroutine
// driving the canvas.
type FrameObserver interface {
	// ObserveFenceWait is called after BeginFrame waited for a frame slot.
	//
	// Parameters:
	//   - slot: the frame ring slot
	//   - d: how long the CPU blocked on the slot's fence
	ObserveFenceWait(slot int, d time.Duration)

	// ObserveSkip is called when BeginFrame skipped a frame because the target has no area.
	ObserveSkip()

	// ObserveOutOfDate is called when acquire or present reported an out of date swapchain.
	ObserveOutOfDate()
}

// Stats are cumulative frame counters of a canvas.
type Stats struct {
	FramesPresented  uint64
	FramesSkipped    uint64
	OutOfDate        uint64
	Reconfigurations uint64
	FenceWait        time.Duration
}

// Canvas drives the frame cycle of one window: it acquires a swapchain image, opens a Frame
// for recording, then submits and presents it, keeping at most FramesInFlight frames on the GPU.
//
// A Canvas is driven by one goroutine. Stats may be read from any goroutine.
type Canvas interface {
	// BeginFrame opens a frame. It waits until the next ring slot is free, acquires a swapchain
	// image and begins the render pass with viewport and scissor covering the surface.
	// The swapchain is rebuilt first if the window size changed or the driver flagged it.
	//
	// When acquire reports an out of date swapchain the frame stays open without an image:
	// BeginFrame returns gpu.ErrOutOfDate and the following EndFrame returns ErrImageAcquisitionFailed.
	// Any other acquire error, such as gpu.ErrTimeout or gpu.ErrSurfaceLost, leaves the canvas Idle.
	//
	// Returns:
	//   - *Frame: the recording handle, valid until EndFrame
	//   - error: ErrAlreadyProcessingFrame, ErrSkipFrame for a zero sized window, gpu.ErrOutOfDate,
	//     a *gpu.SyncError when the slot fence wait fails, or a *ConfigError from reconfiguration
	BeginFrame() (*Frame, error)

	// EndFrame ends the render pass, submits the frame and presents its image. The ring moves
	// to the next slot.
	//
	// Returns:
	//   - error: ErrNotProcessingFrame when no frame is open, ErrImageAcquisitionFailed when the
	//     frame has no image, or the submit or present error
	EndFrame() error

	// Synchronize blocks until the GPU has finished every frame submitted by this canvas.
	// It can be called in any state and must precede destroying anything the GPU may still use.
	//
	// Returns:
	//   - error: a *gpu.SyncError when a fence wait fails
	Synchronize() error

	// Resize rebuilds the swapchain for a new window size after synchronizing. A zero size is
	// accepted and makes BeginFrame skip until the window has area again.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	//
	// Returns:
	//   - error: ErrAlreadyProcessingFrame when a frame is open, or a synchronization or configuration error
	Resize(width, height int) error

	// SetClearColor sets the clear color used from the next frame on.
	//
	// Parameters:
	//   - color: the clear color
	SetClearColor(color common.Color)

	// SetObserver replaces the frame observer. nil removes it.
	//
	// Parameters:
	//   - o: the observer
	SetObserver(o FrameObserver)

	// State returns the current frame cycle state.
	State() CanvasState

	// RingIndex returns the frame ring slot the next frame will use.
	RingIndex() int

	// FramesInFlight returns the number of frame ring slots.
	FramesInFlight() int

	// Extent returns the extent of the current swapchain.
	Extent() common.Extent2D

	// RenderPassRequirements returns what pipelines must match to draw into this canvas.
	RenderPassRequirements() gpu.RenderPassRequirements

	// Stats returns a snapshot of the frame counters.
	Stats() Stats

	// Context returns the device context the canvas renders with.
	Context() *gpu.Context

	// Destroy synchronizes and then releases every resource of the canvas. It is idempotent.
	//
	// Returns:
	//   - error: the synchronization error, if any; resources are released regardless
	Destroy() error
}

// canvas is the implementation of the Canvas interface.
type canvas struct {
	mu sync.Mutex

	ctx     *gpu.Context
	target  gpu.Target
	surface *Surface
	pool    *gpu.Handle[gpu.NativeCommandPool]
	ring    *FrameRing
	rt      *renderTarget

	requirements   gpu.RenderPassRequirements
	framesInFlight int
	surfaceConfig  SurfaceConfig
	explicitFormat bool
	depthFormat    gpu.Format
	clearColor     common.Color
	acquireTimeout time.Duration
	observer       FrameObserver

	state     CanvasState
	frame     *Frame
	fault     error
	destroyed bool

	statsMu sync.Mutex
	stats   Stats
}

var _ Canvas = &canvas{}

// NewCanvas creates a canvas presenting to target. If the target already has area the swapchain
// is configured immediately, otherwise on the first BeginFrame after it gains area.
//
// Parameters:
//   - ctx: the device context; the canvas keeps it alive until Destroy
//   - target: the window to present to
//   - options: functional options
//
// Returns:
//   - Canvas: the canvas, idle at ring slot 0
//   - error: a *ConfigError for rejected options, or the creation error of a resource
func NewCanvas(ctx *gpu.Context, target gpu.Target, options ...CanvasBuilderOption) (Canvas, error) {
	c := &canvas{
		ctx:            ctx,
		target:         target,
		framesInFlight: DefaultFramesInFlight,
		surfaceConfig:  DefaultSurfaceConfig(),
		clearColor:     common.Color{A: 1},
		acquireTimeout: DefaultAcquireTimeout,
	}
	for _, opt := range options {
		opt(c)
	}
	if c.framesInFlight < 2 {
		return nil, &ConfigError{Field: "frames in flight", Err: errors.Wrapf(gpu.ErrInvalidParameters, "%d, need at least 2", c.framesInFlight)}
	}
	if c.depthFormat != gpu.FormatUndefined && !c.depthFormat.IsDepth() {
		return nil, &ConfigError{Field: "depth format", Err: errors.Wrap(gpu.ErrUnsupportedFormat, c.depthFormat.String())}
	}

	if err := c.init(); err != nil {
		c.release()
		return nil, err
	}
	common.Logger().Info("canvas created",
		slog.Int("frames_in_flight", c.framesInFlight),
		slog.String("format", c.surfaceConfig.Format.String()),
		slog.String("depth", c.depthFormat.String()))
	return c, nil
}

func (c *canvas) init() error {
	var err error
	if c.surface, err = NewSurface(c.ctx, c.target); err != nil {
		return err
	}

	caps := c.surface.Capabilities()
	if !caps.SupportsFormat(c.surfaceConfig.Format) {
		if c.explicitFormat || len(caps.Formats) == 0 {
			return &ConfigError{Field: "format", Err: errors.Wrap(gpu.ErrUnsupportedFormat, c.surfaceConfig.Format.String())}
		}
		c.surfaceConfig.Format = caps.Formats[0]
	}

	if c.rt, err = newRenderTarget(c.ctx, c.surfaceConfig.Format, c.depthFormat); err != nil {
		return err
	}
	c.requirements = c.rt.requirements
	if c.pool, err = c.ctx.CreateCommandPool(); err != nil {
		return err
	}
	if c.ring, err = NewFrameRing(c.ctx, c.pool, c.framesInFlight); err != nil {
		return err
	}
	if extent := gpu.TargetExtent(c.target); !extent.IsZero() {
		return c.configure(extent)
	}
	return nil
}

// configure rebuilds the swapchain and depth attachment. The GPU must be idle for this canvas.
func (c *canvas) configure(extent common.Extent2D) error {
	cfg := c.surfaceConfig
	cfg.Extent = extent
	if err := c.surface.Configure(cfg); err != nil {
		return err
	}
	if err := c.rt.resize(c.ctx, c.surface.Extent()); err != nil {
		c.surface.MarkStale()
		return err
	}
	c.updateStats(func(s *Stats) { s.Reconfigurations++ })
	return nil
}

func (c *canvas) BeginFrame() (*Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.usable(); err != nil {
		return nil, err
	}
	if c.state != CanvasStateIdle {
		return nil, ErrAlreadyProcessingFrame
	}

	extent := gpu.TargetExtent(c.target)
	if extent.IsZero() {
		c.skip()
		return nil, ErrSkipFrame
	}
	if c.surface.NeedsReconfigure() {
		if err := c.synchronize(); err != nil {
			return nil, err
		}
		if err := c.configure(extent); err != nil {
			return nil, err
		}
	}

	c.state = CanvasStateAcquiring
	slotIndex := c.ring.PeekSlot()
	slot := c.ring.Slot(slotIndex)

	start := time.Now()
	if err := c.ring.WaitForSlotReady(slotIndex); err != nil {
		c.state = CanvasStateIdle
		c.setFault(err)
		return nil, err
	}
	waited := time.Since(start)
	c.updateStats(func(s *Stats) { s.FenceWait += waited })
	if c.observer != nil {
		c.observer.ObserveFenceWait(slotIndex, waited)
	}

	frame := &Frame{
		c:            c,
		slot:         slotIndex,
		requirements: c.requirements,
		limits:       c.ctx.Limits(),
	}

	index, image, err := c.surface.AcquireNextImage(c.acquireTimeout, slot.ImageAvailable)
	switch {
	case errors.Is(err, ErrSkipFrame):
		c.state = CanvasStateIdle
		c.skip()
		return nil, err
	case errors.Is(err, gpu.ErrOutOfDate):
		c.outOfDate()
		// The frame stays open without an image until EndFrame.
		frame.acquireErr = err
		c.frame = frame
		return nil, err
	case err != nil:
		// No image was acquired and the semaphore was not signaled, so the slot is untouched.
		common.Logger().Warn("swapchain image acquisition failed", slog.Int("slot", slotIndex), slog.Any("error", err))
		c.state = CanvasStateIdle
		if gpu.IsFatal(err) {
			c.setFault(err)
		}
		return nil, errors.Wrap(err, "acquire swapchain image")
	}
	frame.imageIndex = index
	frame.extent = c.surface.Extent()
	frame.acquired = true

	fb, err := c.rt.framebuffer(c.ctx, c.surface, image)
	if err != nil {
		c.abandonAcquired(slotIndex)
		return nil, err
	}
	frame.framebuffer = fb
	frame.cb = slot.CommandBuffer.Get()

	if err := frame.cb.Begin(); err != nil {
		fb.Release()
		c.abandonAcquired(slotIndex)
		return nil, errors.Wrap(err, "begin command buffer")
	}
	frame.cb.BeginRenderPass(gpu.RenderPassBeginInfo{
		RenderPass:  c.rt.pass.Get(),
		Framebuffer: fb.Get(),
		Extent:      frame.extent,
		ClearColor:  c.clearColor,
		ClearDepth:  1,
	})
	frame.cb.SetViewport(common.FullViewport(frame.extent))
	frame.cb.SetScissor(common.FullRect(frame.extent))

	c.frame = frame
	c.state = CanvasStateRecording
	common.Logger().Debug("frame begun", slog.Int("slot", slotIndex), slog.Uint64("image", uint64(index)),
		slog.Duration("fence_wait", waited))
	return frame, nil
}

// abandonAcquired recovers from a failure after a successful acquire. The slot's acquire
// semaphore holds a signal nothing will wait on, so it is replaced once the device is idle,
// and the image is returned by rebuilding the swapchain.
func (c *canvas) abandonAcquired(slot int) {
	c.state = CanvasStateIdle
	if err := c.ctx.WaitIdle(); err != nil {
		c.setFault(&gpu.SyncError{Op: "wait idle", Slot: slot, Err: err})
		return
	}
	if err := c.ring.RecreateImageAvailable(slot); err != nil {
		common.Logger().Error("replacing acquire semaphore failed", slog.Int("slot", slot), slog.Any("error", err))
		c.setFault(err)
		return
	}
	c.surface.MarkStale()
}

func (c *canvas) EndFrame() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.destroyed {
		return ErrCanvasDestroyed
	}
	if c.state == CanvasStateIdle || c.frame == nil {
		return ErrNotProcessingFrame
	}

	f := c.frame
	c.frame = nil
	f.closed = true
	if !f.acquired {
		c.state = CanvasStateIdle
		return fmt.Errorf("%w: %w", ErrImageAcquisitionFailed, f.acquireErr)
	}

	slot := c.ring.Slot(f.slot)
	c.state = CanvasStateSubmitting
	f.cb.EndRenderPass()
	if err := f.cb.End(); err != nil {
		f.framebuffer.Release()
		c.abandonAcquired(f.slot)
		return errors.Wrap(err, "end command buffer")
	}

	if err := c.ring.ResetFence(f.slot); err != nil {
		f.framebuffer.Release()
		c.state = CanvasStateIdle
		c.setFault(err)
		return err
	}
	err := c.ctx.Submit(gpu.SubmitInfo{
		CommandBuffer: f.cb,
		Wait:          slot.ImageAvailable.Get(),
		Signal:        slot.RenderFinished.Get(),
		Fence:         slot.Fence.Get(),
	})
	if err != nil {
		common.Logger().Warn("frame submission failed", slog.Int("slot", f.slot), slog.Any("error", err))
		f.framebuffer.Release()
		if ferr := c.ring.RecreateFence(f.slot); ferr != nil {
			c.setFault(ferr)
		}
		if gpu.IsFatal(err) {
			c.state = CanvasStateIdle
			c.setFault(err)
		} else {
			c.abandonAcquired(f.slot)
		}
		return errors.Wrap(err, "submit frame")
	}
	slot.framebuffer = f.framebuffer

	c.state = CanvasStatePresenting
	err = c.surface.Present(f.imageIndex, slot.RenderFinished)
	c.ring.Advance()
	c.state = CanvasStateIdle

	switch {
	case errors.Is(err, gpu.ErrOutOfDate), errors.Is(err, gpu.ErrSuboptimal):
		c.outOfDate()
	case err != nil:
		if gpu.IsFatal(err) {
			c.setFault(err)
		}
		return errors.Wrap(err, "present frame")
	}
	c.updateStats(func(s *Stats) { s.FramesPresented++ })
	return nil
}

func (c *canvas) Synchronize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return ErrCanvasDestroyed
	}
	return c.synchronize()
}

func (c *canvas) synchronize() error {
	if err := c.ring.WaitAll(); err != nil {
		c.setFault(err)
		return err
	}
	return nil
}

func (c *canvas) Resize(width, height int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.usable(); err != nil {
		return err
	}
	if c.state != CanvasStateIdle {
		return ErrAlreadyProcessingFrame
	}
	extent := common.NewExtent2D(width, height)
	if extent.IsZero() || (extent == c.surface.RequestedExtent() && !c.surface.NeedsReconfigure()) {
		return nil
	}
	if err := c.synchronize(); err != nil {
		return err
	}
	return c.configure(extent)
}

func (c *canvas) SetClearColor(color common.Color) {
	c.mu.Lock()
	c.clearColor = color
	c.mu.Unlock()
}

func (c *canvas) SetObserver(o FrameObserver) {
	c.mu.Lock()
	c.observer = o
	c.mu.Unlock()
}

func (c *canvas) State() CanvasState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *canvas) RingIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ring == nil {
		return 0
	}
	return c.ring.Current()
}

func (c *canvas) FramesInFlight() int {
	return c.framesInFlight
}

func (c *canvas) Extent() common.Extent2D {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.surface == nil {
		return common.Extent2D{}
	}
	return c.surface.Extent()
}

func (c *canvas) RenderPassRequirements() gpu.RenderPassRequirements {
	return c.requirements
}

func (c *canvas) Stats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

func (c *canvas) Context() *gpu.Context {
	return c.ctx
}

func (c *canvas) Destroy() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return nil
	}

	err := c.synchronize()
	if err != nil {
		common.Logger().Error("destroying canvas without synchronization", slog.Any("error", err))
	}
	if c.frame != nil {
		c.frame.closed = true
		c.frame.framebuffer.Release()
		c.frame = nil
	}
	c.release()
	c.destroyed = true
	c.state = CanvasStateIdle
	common.Logger().Info("canvas destroyed", slog.Uint64("frames", c.Stats().FramesPresented))
	return err
}

// release frees whatever init created, newest first.
func (c *canvas) release() {
	if c.ring != nil {
		c.ring.Destroy()
		c.ring = nil
	}
	c.pool.Release()
	c.pool = nil
	if c.rt != nil {
		c.rt.destroy()
		c.rt = nil
	}
	if c.surface != nil {
		c.surface.Destroy()
		c.surface = nil
	}
}

func (c *canvas) usable() error {
	switch {
	case c.destroyed:
		return ErrCanvasDestroyed
	case c.fault != nil:
		return fmt.Errorf("%w: %w", ErrCanvasFaulted, c.fault)
	}
	return nil
}

func (c *canvas) setFault(err error) {
	if c.fault == nil {
		c.fault = err
		common.Logger().Error("canvas faulted", slog.Any("error", err))
	}
}

func (c *canvas) skip() {
	c.updateStats(func(s *Stats) { s.FramesSkipped++ })
	if c.observer != nil {
		c.observer.ObserveSkip()
	}
}

func (c *canvas) outOfDate() {
	common.Logger().Warn("swapchain out of date", slog.Uint64("width", uint64(c.surface.Extent().Width)),
		slog.Uint64("height", uint64(c.surface.Extent().Height)))
	c.updateStats(func(s *Stats) { s.OutOfDate++ })
	if c.observer != nil {
		c.observer.ObserveOutOfDate()
	}
}

func (c *canvas) updateStats(fn func(*Stats)) {
	c.statsMu.Lock()
	fn(&c.stats)
	c.statsMu.Unlock()
}
