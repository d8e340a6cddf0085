package canvas

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-canvas/common"
	"github.com/Carmen-Shannon/oxy-canvas/engine/gpu"
	"github.com/pkg/errors"
)

// FrameSlot holds the resources of one frame in flight.
type FrameSlot struct {
	// CommandBuffer is re-recorded every time the slot comes around.
	CommandBuffer *gpu.Handle[gpu.CommandBuffer]
	// Fence is signaled when the last submission from this slot has finished. It starts signaled.
	Fence *gpu.Handle[gpu.NativeFence]
	// ImageAvailable is signaled by acquire and waited on by submit.
	ImageAvailable *gpu.Handle[gpu.NativeSemaphore]
	// RenderFinished is signaled by submit and waited on by present.
	RenderFinished *gpu.Handle[gpu.NativeSemaphore]

	waited bool
	// framebuffer used by the last submission; freed once Fence has been waited on
	framebuffer *gpu.Handle[gpu.NativeFramebuffer]
}

func (s *FrameSlot) release() {
	s.releaseFramebuffer()
	s.CommandBuffer.Release()
	s.Fence.Release()
	s.ImageAvailable.Release()
	s.RenderFinished.Release()
}

func (s *FrameSlot) releaseFramebuffer() {
	if s.framebuffer != nil {
		s.framebuffer.Release()
		s.framebuffer = nil
	}
}

// FrameRing is a fixed set of N frame slots used in round-robin order. Waiting on a slot's fence
// before reusing it bounds the CPU to N frames ahead of the GPU.
type FrameRing struct {
	ctx     *gpu.Context
	slots   []*FrameSlot
	current int
}

// NewFrameRing creates n slots, allocating their command buffers from pool.
//
// Parameters:
//   - ctx: the device context
//   - pool: the command pool the slot command buffers are allocated from
//   - n: the number of slots, at least 2
//
// Returns:
//   - *FrameRing: the ring, positioned at slot 0
//   - error: a *ConfigError for n < 2, or the creation error of a slot resource
func NewFrameRing(ctx *gpu.Context, pool *gpu.Handle[gpu.NativeCommandPool], n int) (*FrameRing, error) {
	if n < 2 {
		return nil, &ConfigError{Field: "frames in flight", Err: errors.Wrapf(gpu.ErrInvalidParameters, "%d, need at least 2", n)}
	}
	r := &FrameRing{ctx: ctx, slots: make([]*FrameSlot, 0, n)}
	for range n {
		s, err := newFrameSlot(ctx, pool)
		if err != nil {
			r.Destroy()
			return nil, err
		}
		r.slots = append(r.slots, s)
	}
	return r, nil
}

func newFrameSlot(ctx *gpu.Context, pool *gpu.Handle[gpu.NativeCommandPool]) (*FrameSlot, error) {
	s := &FrameSlot{}
	fail := func(err error) (*FrameSlot, error) {
		s.release()
		return nil, err
	}

	var err error
	if s.CommandBuffer, err = ctx.AllocateCommandBuffer(pool); err != nil {
		return fail(err)
	}
	if s.Fence, err = ctx.CreateFence(true); err != nil {
		return fail(err)
	}
	if s.ImageAvailable, err = ctx.CreateSemaphore(); err != nil {
		return fail(err)
	}
	if s.RenderFinished, err = ctx.CreateSemaphore(); err != nil {
		return fail(err)
	}
	return s, nil
}

// Len returns the number of slots.
func (r *FrameRing) Len() int {
	return len(r.slots)
}

// Current returns the index of the slot the next frame will use.
func (r *FrameRing) Current() int {
	return r.current
}

// PeekSlot returns the slot the next frame uses. The selection never depends on GPU state;
// the ring only moves on Advance.
func (r *FrameRing) PeekSlot() int {
	return r.current
}

// Slot returns the slot at index i.
func (r *FrameRing) Slot(i int) *FrameSlot {
	return r.slots[i]
}

// Advance moves the ring to the following slot.
func (r *FrameRing) Advance() {
	r.current = (r.current + 1) % len(r.slots)
}

// WaitForSlotReady blocks until the previous submission from slot i has finished, then frees the
// framebuffer that submission used.
//
// Returns:
//   - error: a *gpu.SyncError if the wait timed out or the device was lost
func (r *FrameRing) WaitForSlotReady(i int) error {
	s := r.slots[i]
	if err := r.ctx.WaitFence(s.Fence); err != nil {
		common.Logger().Error("frame slot fence wait failed", slog.Int("slot", i), slog.Any("error", err))
		return &gpu.SyncError{Op: "wait", Slot: i, Err: err}
	}
	s.waited = true
	s.releaseFramebuffer()
	return nil
}

// ResetFence returns slot i's fence to unsignaled ahead of a submission. It must follow
// WaitForSlotReady for the same slot.
//
// Returns:
//   - error: a *gpu.SyncError if the fence was not waited on or could not be reset
func (r *FrameRing) ResetFence(i int) error {
	s := r.slots[i]
	if !s.waited {
		return &gpu.SyncError{Op: "reset", Slot: i, Err: ErrFenceNotWaited}
	}
	if err := r.ctx.ResetFence(s.Fence); err != nil {
		return &gpu.SyncError{Op: "reset", Slot: i, Err: err}
	}
	s.waited = false
	return nil
}

// RecreateFence replaces slot i's fence with a new signaled one. Used when a reset fence was
// never submitted and so would never signal.
func (r *FrameRing) RecreateFence(i int) error {
	f, err := r.ctx.CreateFence(true)
	if err != nil {
		return err
	}
	s := r.slots[i]
	s.Fence.Release()
	s.Fence = f
	s.waited = false
	return nil
}

// RecreateImageAvailable replaces slot i's acquire semaphore. Used when an acquire signaled it
// but no submission consumed the signal. The device must be idle.
func (r *FrameRing) RecreateImageAvailable(i int) error {
	sem, err := r.ctx.CreateSemaphore()
	if err != nil {
		return err
	}
	s := r.slots[i]
	s.ImageAvailable.Release()
	s.ImageAvailable = sem
	return nil
}

// WaitAll waits on every slot's fence, leaving the GPU with no work from this ring.
func (r *FrameRing) WaitAll() error {
	for i := range r.slots {
		if err := r.WaitForSlotReady(i); err != nil {
			return err
		}
	}
	return nil
}

// Destroy releases every slot resource. Call WaitAll first.
func (r *FrameRing) Destroy() {
	for _, s := range r.slots {
		s.release()
	}
	r.slots = nil
}
