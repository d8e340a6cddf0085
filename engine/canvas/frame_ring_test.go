package canvas

import (
	"errors"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-canvas/engine/gpu"
)

func newTestRing(t *testing.T, n int) (*gpu.Context, *FrameRing) {
	t.Helper()
	ctx, err := gpu.NewContext(gpu.BackendTypeHeadless, gpu.WithValidation(false))
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	pool, err := ctx.CreateCommandPool()
	if err != nil {
		t.Fatalf("CreateCommandPool() error = %v", err)
	}
	ring, err := NewFrameRing(ctx, pool, n)
	pool.Release()
	if err != nil {
		ctx.Close()
		t.Fatalf("NewFrameRing() error = %v", err)
	}
	t.Cleanup(func() {
		ring.Destroy()
		ctx.Close()
	})
	return ctx, ring
}

func TestFrameRingAdvance(t *testing.T) {
	_, ring := newTestRing(t, 3)
	want := []int{0, 1, 2, 0, 1}
	for i, w := range want {
		if got := ring.PeekSlot(); got != w {
			t.Errorf("step %d PeekSlot() = %d, want %d", i, got, w)
		}
		if got := ring.PeekSlot(); got != w {
			t.Errorf("step %d PeekSlot() moved the ring to %d", i, got)
		}
		ring.Advance()
	}
}

func TestFrameRingFenceOrder(t *testing.T) {
	_, ring := newTestRing(t, 2)

	err := ring.ResetFence(0)
	var syncErr *gpu.SyncError
	if !errors.As(err, &syncErr) || !errors.Is(err, ErrFenceNotWaited) {
		t.Fatalf("ResetFence() before wait error = %v, want SyncError wrapping %v", err, ErrFenceNotWaited)
	}
	if syncErr.Op != "reset" || syncErr.Slot != 0 {
		t.Errorf("SyncError = %+v, want reset on slot 0", syncErr)
	}

	if err := ring.WaitForSlotReady(0); err != nil {
		t.Fatalf("WaitForSlotReady() error = %v", err)
	}
	if err := ring.ResetFence(0); err != nil {
		t.Fatalf("ResetFence() error = %v", err)
	}
	if err := ring.ResetFence(0); !errors.Is(err, ErrFenceNotWaited) {
		t.Errorf("second ResetFence() error = %v, want %v", err, ErrFenceNotWaited)
	}
}

func TestFrameRingWaitTimesOut(t *testing.T) {
	ctx, err := gpu.NewContext(gpu.BackendTypeHeadless, gpu.WithValidation(false), gpu.WithFenceTimeout(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	defer ctx.Close()
	pool, _ := ctx.CreateCommandPool()
	defer pool.Release()
	ring, err := NewFrameRing(ctx, pool, 2)
	if err != nil {
		t.Fatalf("NewFrameRing() error = %v", err)
	}
	defer ring.Destroy()

	if err := ring.WaitForSlotReady(1); err != nil {
		t.Fatalf("WaitForSlotReady() error = %v", err)
	}
	if err := ring.ResetFence(1); err != nil {
		t.Fatalf("ResetFence() error = %v", err)
	}
	// Reset but never submitted: the wait can only time out.
	err = ring.WaitForSlotReady(1)
	if !errors.Is(err, gpu.ErrTimeout) || !gpu.IsFatal(err) {
		t.Fatalf("WaitForSlotReady() error = %v, want fatal %v", err, gpu.ErrTimeout)
	}

	if err := ring.RecreateFence(1); err != nil {
		t.Fatalf("RecreateFence() error = %v", err)
	}
	if err := ring.WaitForSlotReady(1); err != nil {
		t.Errorf("WaitForSlotReady() after RecreateFence error = %v", err)
	}
}

func TestNewFrameRingValidation(t *testing.T) {
	ctx, err := gpu.NewContext(gpu.BackendTypeHeadless, gpu.WithValidation(false))
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	defer ctx.Close()
	pool, _ := ctx.CreateCommandPool()
	defer pool.Release()

	var ce *ConfigError
	if _, err := NewFrameRing(ctx, pool, 1); !errors.As(err, &ce) {
		t.Errorf("NewFrameRing(1) error = %v, want *ConfigError", err)
	}

	ctx.Backend().(*gpu.HeadlessBackend).FailNextCreate(gpu.ResourceKindSemaphore, gpu.ErrOutOfMemory)
	if _, err := NewFrameRing(ctx, pool, 3); !errors.Is(err, gpu.ErrOutOfMemory) {
		t.Errorf("NewFrameRing() error = %v, want %v", err, gpu.ErrOutOfMemory)
	}
	if got := ctx.LiveResources(); got != 1 {
		t.Errorf("LiveResources() = %d (%v), want only the pool", got, ctx.LiveResourcesByKind())
	}
}
