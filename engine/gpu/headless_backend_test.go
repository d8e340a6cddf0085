package gpu

import (
	"errors"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-canvas/common"
)

type headlessRig struct {
	b      *HeadlessBackend
	target *HeadlessTarget
	sc     NativeSwapchain
	rp     NativeRenderPass
	pool   NativeCommandPool
}

func newHeadlessRig(t *testing.T, latency time.Duration) *headlessRig {
	t.Helper()
	r := &headlessRig{b: NewHeadlessBackend(latency), target: NewHeadlessTarget(64, 32)}
	s, err := r.b.CreateSurface(r.target)
	if err != nil {
		t.Fatalf("CreateSurface() error = %v", err)
	}
	r.sc, err = r.b.CreateSwapchain(SwapchainDescriptor{
		Surface:    s,
		Extent:     TargetExtent(r.target),
		Format:     FormatBGRA8Unorm,
		ImageCount: 3,
	})
	if err != nil {
		t.Fatalf("CreateSwapchain() error = %v", err)
	}
	r.rp, _ = r.b.CreateRenderPass(RenderPassDescriptor{ColorFormats: []Format{FormatBGRA8Unorm}})
	r.pool, _ = r.b.CreateCommandPool()
	return r
}

func (r *headlessRig) record(t *testing.T, image uint32) CommandBuffer {
	t.Helper()
	cb, err := r.b.AllocateCommandBuffer(r.pool)
	if err != nil {
		t.Fatalf("AllocateCommandBuffer() error = %v", err)
	}
	extent := TargetExtent(r.target)
	fb, err := r.b.CreateFramebuffer(FramebufferDescriptor{
		RenderPass:  r.rp,
		Attachments: []NativeImageView{r.b.SwapchainImages(r.sc)[image]},
		Extent:      extent,
	})
	if err != nil {
		t.Fatalf("CreateFramebuffer() error = %v", err)
	}
	if err := cb.Begin(); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	cb.BeginRenderPass(RenderPassBeginInfo{RenderPass: r.rp, Framebuffer: fb, Extent: extent})
	cb.Draw(3, 1, 0, 0)
	cb.EndRenderPass()
	if err := cb.End(); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	r.b.DestroyFramebuffer(fb)
	return cb
}

func TestHeadlessFrameHasNoViolations(t *testing.T) {
	r := newHeadlessRig(t, time.Millisecond)
	fence, _ := r.b.CreateFence(true)
	acquired, _ := r.b.CreateSemaphore()
	rendered, _ := r.b.CreateSemaphore()

	for range 4 {
		if err := r.b.WaitFence(fence, time.Second); err != nil {
			t.Fatalf("WaitFence() error = %v", err)
		}
		idx, err := r.b.AcquireNextImage(r.sc, time.Second, acquired)
		if err != nil {
			t.Fatalf("AcquireNextImage() error = %v", err)
		}
		cb := r.record(t, idx)
		if err := r.b.ResetFence(fence); err != nil {
			t.Fatalf("ResetFence() error = %v", err)
		}
		if err := r.b.Submit(SubmitInfo{CommandBuffer: cb, Wait: acquired, Signal: rendered, Fence: fence}); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if err := r.b.Present(PresentInfo{Swapchain: r.sc, ImageIndex: idx, Wait: rendered}); err != nil {
			t.Fatalf("Present() error = %v", err)
		}
	}
	if err := r.b.WaitIdle(); err != nil {
		t.Fatalf("WaitIdle() error = %v", err)
	}
	if v := r.b.Violations(); len(v) != 0 {
		t.Errorf("Violations() = %v, want none", v)
	}
	if got := r.b.Submissions(); got != 4 {
		t.Errorf("Submissions() = %d, want 4", got)
	}
	if got := r.b.Presents(); got != 4 {
		t.Errorf("Presents() = %d, want 4", got)
	}
}

func TestHeadlessFenceWait(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(b *HeadlessBackend)
		submit  bool
		wantErr error
	}{
		{name: "completes", submit: true},
		{name: "never submitted", wantErr: ErrTimeout},
		{name: "hung device", setup: func(b *HeadlessBackend) { b.SetHang(true) }, submit: true, wantErr: ErrTimeout},
		{name: "lost device", setup: func(b *HeadlessBackend) { b.SetHang(true); b.LoseDevice() }, wantErr: ErrDeviceLost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newHeadlessRig(t, 0)
			if tt.setup != nil {
				tt.setup(r.b)
			}
			fence, _ := r.b.CreateFence(false)
			if tt.submit {
				cb := r.record(t, 0)
				if err := r.b.Submit(SubmitInfo{CommandBuffer: cb, Fence: fence}); err != nil {
					t.Fatalf("Submit() error = %v", err)
				}
			}
			err := r.b.WaitFence(fence, 50*time.Millisecond)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("WaitFence() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestHeadlessMisuseIsRecorded(t *testing.T) {
	r := newHeadlessRig(t, 0)
	r.b.SetHang(true)

	fence, _ := r.b.CreateFence(false)
	cb := r.record(t, 0)
	if err := r.b.Submit(SubmitInfo{CommandBuffer: cb, Fence: fence}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if err := r.b.Submit(SubmitInfo{CommandBuffer: cb}); !errors.Is(err, ErrCommandBufferInFlight) {
		t.Errorf("second Submit() error = %v, want %v", err, ErrCommandBufferInFlight)
	}
	if err := cb.Begin(); !errors.Is(err, ErrCommandBufferInFlight) {
		t.Errorf("Begin() on in-flight buffer error = %v, want %v", err, ErrCommandBufferInFlight)
	}
	if err := r.b.ResetFence(fence); !errors.Is(err, ErrFenceInUse) {
		t.Errorf("ResetFence() on pending fence error = %v, want %v", err, ErrFenceInUse)
	}
	if got := len(r.b.Violations()); got != 3 {
		t.Errorf("len(Violations()) = %d, want 3: %v", got, r.b.Violations())
	}
}

func TestHeadlessAcquire(t *testing.T) {
	r := newHeadlessRig(t, 0)
	sem, _ := r.b.CreateSemaphore()
	wait := func() {
		t.Helper()
		if err := r.b.Submit(SubmitInfo{CommandBuffer: r.record(t, 0), Wait: sem}); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if err := r.b.WaitIdle(); err != nil {
			t.Fatalf("WaitIdle() error = %v", err)
		}
	}

	for want := range uint32(4) {
		idx, err := r.b.AcquireNextImage(r.sc, time.Second, sem)
		if err != nil {
			t.Fatalf("AcquireNextImage() error = %v", err)
		}
		if idx != want%3 {
			t.Errorf("AcquireNextImage() = %d, want %d", idx, want%3)
		}
		wait()
	}

	r.b.ForceSuboptimal(1)
	if _, err := r.b.AcquireNextImage(r.sc, time.Second, sem); !errors.Is(err, ErrSuboptimal) {
		t.Errorf("AcquireNextImage() error = %v, want %v", err, ErrSuboptimal)
	}
	wait()

	r.b.ForceOutOfDate(1)
	if _, err := r.b.AcquireNextImage(r.sc, time.Second, sem); !errors.Is(err, ErrOutOfDate) {
		t.Errorf("AcquireNextImage() error = %v, want %v", err, ErrOutOfDate)
	}

	r.target.Resize(128, 64)
	if _, err := r.b.AcquireNextImage(r.sc, time.Second, sem); !errors.Is(err, ErrOutOfDate) {
		t.Errorf("AcquireNextImage() after resize error = %v, want %v", err, ErrOutOfDate)
	}
	if got := TargetExtent(r.target); got != (common.Extent2D{Width: 128, Height: 64}) {
		t.Errorf("TargetExtent() = %v, want 128x64", got)
	}
	r.target.Resize(64, 32)

	if err := r.b.WaitIdle(); err != nil {
		t.Fatalf("WaitIdle() error = %v", err)
	}
	if v := r.b.Violations(); len(v) != 0 {
		t.Errorf("Violations() = %v, want none", v)
	}
}

func TestHeadlessRetiredSwapchain(t *testing.T) {
	r := newHeadlessRig(t, 0)
	s, _ := r.b.CreateSurface(r.target)
	next, err := r.b.CreateSwapchain(SwapchainDescriptor{
		Surface:      s,
		Extent:       TargetExtent(r.target),
		Format:       FormatBGRA8Unorm,
		ImageCount:   2,
		OldSwapchain: r.sc,
	})
	if err != nil {
		t.Fatalf("CreateSwapchain() error = %v", err)
	}
	if got := len(r.b.SwapchainImages(next)); got != 2 {
		t.Errorf("len(SwapchainImages()) = %d, want 2", got)
	}

	if _, err := r.b.AcquireNextImage(r.sc, time.Second, nil); !errors.Is(err, ErrOutOfDate) {
		t.Errorf("AcquireNextImage() on retired swapchain error = %v, want %v", err, ErrOutOfDate)
	}
	if got := len(r.b.Violations()); got != 1 {
		t.Errorf("len(Violations()) = %d, want 1", got)
	}
}
