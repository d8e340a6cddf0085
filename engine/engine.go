package engine

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-canvas/common"
	"github.com/Carmen-Shannon/oxy-canvas/engine/canvas"
	"github.com/Carmen-Shannon/oxy-canvas/engine/gpu"
	"github.com/Carmen-Shannon/oxy-canvas/engine/profiler"
	"github.com/Carmen-Shannon/oxy-canvas/engine/window"
)

// skipFrameDelay is how long the render loop sleeps after a skipped frame, so a minimized window does not spin.
const skipFrameDelay = 10 * time.Millisecond

// engine implements the Engine interface.
// Coordinates engine, render, and window threads.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates
	resizeChannel   chan common.Extent2D

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window window.Window
	canvas canvas.Canvas

	profiler         *profiler.Profiler
	profilingEnabled atomic.Bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(f *canvas.Frame, deltaTime float32) error

	renderFrameLimit atomic.Int64 // minimum frame duration in nanoseconds; 0 = uncapped

	errMu sync.Mutex
	err   error
}

// Engine is the main entry point for the engine.
// It orchestrates the engine loop, the render loop driving a Canvas, and window management.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Canvas returns the canvas frames are rendered into.
	//
	// Returns:
	//   - canvas.Canvas: the canvas instance
	Canvas() canvas.Canvas

	// Profiler returns the profiler fed by the render loop.
	//
	// Returns:
	//   - *profiler.Profiler: the profiler
	Profiler() *profiler.Profiler

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	// The tick callback will be called at this rate for game logic updates.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	// Use this for game logic, physics, input processing, and animation updates.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function that records draw commands into each frame.
	// It runs on the render goroutine between Canvas.BeginFrame and Canvas.EndFrame.
	// An error is logged and the frame is still ended.
	//
	// Parameters:
	//   - callback: function receiving the open frame and the delta time in seconds
	SetRenderCallback(callback func(f *canvas.Frame, deltaTime float32) error)

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Run starts the engine and render goroutines and runs the window message loop on the calling thread.
	// It blocks until the window closes or Quit is called, then waits for the GPU, destroys the canvas,
	// closes its device and finally closes the window.
	//
	// Returns:
	//   - error: the fault that stopped the render loop, or the error from synchronizing on shutdown
	Run() error

	// Quit signals all engine goroutines to stop and shuts down the engine.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
// Initializes message channels and profiler with sensible defaults.
// Options are applied directly to the engine struct via the option-builder pattern.
//
// Parameters:
//   - options: functional options for engine configuration (window, canvas, profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
//   - error: an error if the window or canvas option is missing
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		resizeChannel:   make(chan common.Extent2D, 1),
		quitChannel:     make(chan struct{}),
		profiler:        profiler.NewProfiler(),
		engineTickRate:  time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.window == nil {
		return nil, errors.New("engine: a window is required")
	}
	if e.canvas == nil {
		return nil, errors.New("engine: a canvas is required")
	}

	e.window.SetResizeCallback(e.queueResize)
	e.window.SetCloseCallback(e.signalQuit)
	e.window.SetUpdateCallback(func() {
		select {
		case <-e.quitChannel:
			e.window.RequestClose()
		default:
		}
	})
	if e.profilingEnabled.Load() {
		e.canvas.SetObserver(e.profiler)
	}

	return e, nil
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Canvas() canvas.Canvas {
	return e.canvas
}

func (e *engine) Profiler() *profiler.Profiler {
	return e.profiler
}

func (e *engine) Run() error {
	e.running.Store(true)
	e.handle()
	e.window.ProcessMessages()
	return e.shutdown()
}

// shutdown stops the goroutines and tears down in dependency order: GPU work, canvas, device, window.
func (e *engine) shutdown() error {
	e.signalQuit()
	e.wg.Wait()
	e.running.Store(false)

	err := e.canvas.Synchronize()
	if destroyErr := e.canvas.Destroy(); err == nil {
		err = destroyErr
	}
	e.canvas.Context().Close()
	if closeErr := e.window.Close(); closeErr != nil {
		common.Logger().Warn("window close failed", slog.Any("error", closeErr))
	}

	if fault := e.fault(); fault != nil {
		return fault
	}
	return err
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) setFault(err error) {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	if e.err == nil {
		e.err = err
	}
}

func (e *engine) fault() error {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	return e.err
}

// queueResize hands the newest framebuffer size to the render goroutine, replacing any size it has not picked up yet.
// Called on the window thread.
func (e *engine) queueResize(width, height int) {
	extent := common.NewExtent2D(width, height)
	for {
		select {
		case e.resizeChannel <- extent:
			return
		default:
			select {
			case <-e.resizeChannel:
			default:
			}
		}
	}
}

// handle launches the engine and render goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(2)
	go e.handleEngine()
	go e.handleRender()
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic rate changes
// via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// Each iteration applies a pending resize, then runs one canvas frame: BeginFrame, the render callback, EndFrame.
// A fatal canvas error stops the engine. Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			common.Logger().Error("render goroutine recovered from panic", slog.Any("panic", r))
			e.setFault(errors.New("engine: render goroutine panicked"))
			e.signalQuit()
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case extent := <-e.resizeChannel:
			if err := e.canvas.Resize(int(extent.Width), int(extent.Height)); err != nil {
				if e.stopOnFault(err) {
					return
				}
				common.Logger().Warn("canvas resize failed", slog.Any("error", err))
			}
			continue
		default:
		}

		frameStart := time.Now()
		dt := float32(frameStart.Sub(lastRender).Seconds())
		lastRender = frameStart

		if !e.renderFrame(dt) {
			return
		}

		if limit := time.Duration(e.renderFrameLimit.Load()); limit > 0 {
			if remaining := limit - time.Since(frameStart); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

// renderFrame runs one frame session. It returns false when the render loop must stop.
func (e *engine) renderFrame(dt float32) bool {
	f, err := e.canvas.BeginFrame()
	switch {
	case errors.Is(err, canvas.ErrSkipFrame):
		time.Sleep(skipFrameDelay)
		return true
	case errors.Is(err, gpu.ErrOutOfDate):
		// The session stays open without an image; ending it lets the next frame rebuild the swapchain.
		if err := e.canvas.EndFrame(); err != nil && !errors.Is(err, canvas.ErrImageAcquisitionFailed) {
			return !e.stopOnFault(err)
		}
		return true
	case err != nil:
		if e.stopOnFault(err) {
			return false
		}
		common.Logger().Warn("begin frame failed", slog.Any("error", err))
		return true
	}

	if e.renderCallback != nil {
		if err := e.renderCallback(f, dt); err != nil {
			common.Logger().Warn("render callback failed", slog.Any("error", err))
		}
	}

	if err := e.canvas.EndFrame(); err != nil {
		if e.stopOnFault(err) {
			return false
		}
		common.Logger().Warn("end frame failed", slog.Any("error", err))
		return true
	}

	if e.profilingEnabled.Load() {
		e.profiler.Tick()
	}
	return true
}

// stopOnFault records err and signals quit when it leaves the canvas unusable.
func (e *engine) stopOnFault(err error) bool {
	if !gpu.IsFatal(err) && !errors.Is(err, canvas.ErrCanvasFaulted) && !errors.Is(err, canvas.ErrCanvasDestroyed) {
		return false
	}
	common.Logger().Error("canvas fault, stopping engine", slog.Any("error", err))
	e.setFault(err)
	e.signalQuit()
	return true
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
	e.canvas.SetObserver(e.profiler)
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
	e.canvas.SetObserver(nil)
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	if e.running.Load() {
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		e.engineTickRate = newRate
	}
}

// SetTickCallback registers the function called each engine tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

// SetRenderCallback registers the function called each render frame.
func (e *engine) SetRenderCallback(callback func(f *canvas.Frame, deltaTime float32) error) {
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit.Store(0)
		return
	}
	e.renderFrameLimit.Store(int64(float64(time.Second) / fps))
}
