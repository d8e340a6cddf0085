package engine

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-canvas/common"
	"github.com/Carmen-Shannon/oxy-canvas/engine/canvas"
	"github.com/Carmen-Shannon/oxy-canvas/engine/gpu"
	"github.com/Carmen-Shannon/oxy-canvas/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
)

// fakeWindow is a window.Window whose message loop runs posted events on the calling goroutine.
type fakeWindow struct {
	width, height atomic.Int32
	running       atomic.Bool
	events        chan func()
	closeOnce     sync.Once

	onUpdate func()
	onResize func(width, height int)
	onClose  func()

	canvas        canvas.Canvas
	closed        bool
	canvasAtClose error
}

var _ window.Window = &fakeWindow{}

func newFakeWindow(width, height int) *fakeWindow {
	w := &fakeWindow{events: make(chan func(), 16)}
	w.width.Store(int32(width))
	w.height.Store(int32(height))
	w.running.Store(true)
	return w
}

// resize queues a framebuffer resize as the platform would deliver it.
func (w *fakeWindow) resize(width, height int) {
	w.events <- func() {
		w.width.Store(int32(width))
		w.height.Store(int32(height))
		if w.onResize != nil {
			w.onResize(width, height)
		}
	}
}

func (w *fakeWindow) Width() int                                 { return int(w.width.Load()) }
func (w *fakeWindow) Height() int                                { return int(w.height.Load()) }
func (w *fakeWindow) InstanceProcAddr() unsafe.Pointer           { return nil }
func (w *fakeWindow) RequiredInstanceExtensions() []string       { return nil }
func (w *fakeWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor { return nil }
func (w *fakeWindow) SetUpdateCallback(callback func())          { w.onUpdate = callback }
func (w *fakeWindow) SetResizeCallback(callback func(int, int))  { w.onResize = callback }
func (w *fakeWindow) SetCloseCallback(callback func())           { w.onClose = callback }
func (w *fakeWindow) SetKeyDownCallback(func(uint32))            {}
func (w *fakeWindow) SetKeyUpCallback(func(uint32))              {}
func (w *fakeWindow) IsRunning() bool                            { return w.running.Load() }

func (w *fakeWindow) CreateWindowSurface(any, unsafe.Pointer) (uintptr, error) {
	return 0, gpu.ErrUnsupportedTarget
}

func (w *fakeWindow) RequestClose() {
	w.running.Store(false)
	w.closeOnce.Do(func() {
		if w.onClose != nil {
			w.onClose()
		}
	})
}

func (w *fakeWindow) Close() error {
	w.closed = true
	if w.canvas != nil {
		_, w.canvasAtClose = w.canvas.BeginFrame()
	}
	return nil
}

func (w *fakeWindow) ProcessMessages() {
	for w.IsRunning() {
		select {
		case ev := <-w.events:
			ev()
		case <-time.After(time.Millisecond):
		}
		if w.onUpdate != nil {
			w.onUpdate()
		}
	}
}

type testEngine struct {
	Engine
	ctx     *gpu.Context
	backend *gpu.HeadlessBackend
	window  *fakeWindow
}

func newTestEngine(t *testing.T, opts ...EngineBuilderOption) *testEngine {
	t.Helper()
	ctx, err := gpu.NewContext(gpu.BackendTypeHeadless, gpu.WithValidation(false), gpu.WithHeadlessLatency(time.Millisecond))
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	w := newFakeWindow(320, 240)
	c, err := canvas.NewCanvas(ctx, w)
	if err != nil {
		ctx.Close()
		t.Fatalf("NewCanvas() error = %v", err)
	}
	w.canvas = c
	e, err := NewEngine(append([]EngineBuilderOption{WithWindow(w), WithCanvas(c)}, opts...)...)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	// Bound every test even if the render loop never reaches its quit condition.
	timer := time.AfterFunc(10*time.Second, e.Quit)
	t.Cleanup(func() { timer.Stop() })
	return &testEngine{Engine: e, ctx: ctx, backend: ctx.Backend().(*gpu.HeadlessBackend), window: w}
}

func TestNewEngineRequiresWindowAndCanvas(t *testing.T) {
	if _, err := NewEngine(); err == nil {
		t.Errorf("NewEngine() without options error = nil")
	}
	if _, err := NewEngine(WithWindow(newFakeWindow(1, 1))); err == nil {
		t.Errorf("NewEngine() without canvas error = nil")
	}
}

func TestEngineRunsFramesAndShutsDown(t *testing.T) {
	e := newTestEngine(t, WithProfiling(true), WithTickRate(200), WithRenderFrameLimit(500))

	var ticks atomic.Int32
	e.SetTickCallback(func(float32) { ticks.Add(1) })
	frames := 0
	e.SetRenderCallback(func(f *canvas.Frame, _ float32) error {
		frames++
		if f.Extent() != (common.Extent2D{Width: 320, Height: 240}) {
			t.Errorf("frame Extent() = %v, want 320x240", f.Extent())
		}
		if frames == 20 {
			e.Quit()
		}
		return nil
	})

	if err := e.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if frames < 20 {
		t.Errorf("rendered %d frames, want at least 20", frames)
	}
	if !e.window.closed {
		t.Errorf("window was not closed")
	}
	if !errors.Is(e.window.canvasAtClose, canvas.ErrCanvasDestroyed) {
		t.Errorf("canvas at window close: BeginFrame() error = %v, want %v", e.window.canvasAtClose, canvas.ErrCanvasDestroyed)
	}
	if !e.ctx.Closed() || !e.backend.Destroyed() {
		t.Errorf("context closed = %v, device destroyed = %v, want both", e.ctx.Closed(), e.backend.Destroyed())
	}
	if v := e.backend.Violations(); len(v) != 0 {
		t.Errorf("Violations() = %v, want none", v)
	}
	if got := e.backend.MaxInFlight(); got > canvas.DefaultFramesInFlight {
		t.Errorf("MaxInFlight() = %d, want at most %d", got, canvas.DefaultFramesInFlight)
	}
}

func TestEngineResize(t *testing.T) {
	e := newTestEngine(t)

	var once sync.Once
	var resized bool
	var stats canvas.Stats
	e.SetRenderCallback(func(f *canvas.Frame, _ float32) error {
		once.Do(func() {
			go func() {
				e.window.resize(0, 0)
				time.Sleep(50 * time.Millisecond)
				e.window.resize(200, 100)
			}()
		})
		if f.Extent() == (common.Extent2D{Width: 200, Height: 100}) {
			resized = true
			stats = e.Canvas().Stats()
			e.Quit()
		}
		return nil
	})

	if err := e.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !resized {
		t.Fatalf("no frame was rendered at the new size")
	}
	if stats.FramesSkipped == 0 {
		t.Errorf("FramesSkipped = 0, want frames skipped while minimized")
	}
	if stats.Reconfigurations < 2 {
		t.Errorf("Reconfigurations = %d, want at least 2", stats.Reconfigurations)
	}
	if v := e.backend.Violations(); len(v) != 0 {
		t.Errorf("Violations() = %v, want none", v)
	}
}

func TestEngineStopsOnDeviceLoss(t *testing.T) {
	e := newTestEngine(t)
	frames := 0
	e.SetRenderCallback(func(*canvas.Frame, float32) error {
		frames++
		if frames == 2 {
			e.backend.LoseDevice()
		}
		return nil
	})

	err := e.Run()
	if !errors.Is(err, gpu.ErrDeviceLost) {
		t.Fatalf("Run() error = %v, want %v", err, gpu.ErrDeviceLost)
	}
	if frames > 3 {
		t.Errorf("rendered %d frames after the device was lost", frames)
	}
	if !e.window.closed {
		t.Errorf("window was not closed")
	}
}

func TestEngineRecoversFromAcquireTimeout(t *testing.T) {
	e := newTestEngine(t)
	frames := 0
	e.SetRenderCallback(func(*canvas.Frame, float32) error {
		frames++
		switch frames {
		case 2:
			e.backend.FailNextAcquire(gpu.ErrTimeout)
		case 5:
			e.Quit()
		}
		return nil
	})

	if err := e.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if frames < 5 {
		t.Errorf("rendered %d frames, want rendering to continue after the failed acquire", frames)
	}
}
