package gpu

import (
	"fmt"
	"sync/atomic"
)

// Dependency is a handle another handle can depend on. A dependency stays alive for as long
// as any dependent handle is alive.
type Dependency interface {
	retainRef() bool
	releaseRef()
}

// Handle exclusively owns one native object of type T together with the function that destroys
// it. The native object is destroyed exactly once: when the owner has called Release and every
// dependent handle created from it has been destroyed. Each Handle also keeps its Context alive,
// so the device always outlives the objects created on it.
//
// A Handle is not meant to be copied. Release is idempotent; Get after Release panics.
type Handle[T any] struct {
	ctx      *Context
	kind     ResourceKind
	native   T
	destroy  func(Backend, T)
	parents  []Dependency
	refs     atomic.Int32
	released atomic.Bool
}

// NewHandle creates a native object through create and wraps it in a Handle.
// The handle retains ctx and every parent until it is destroyed. If create fails, nothing is
// retained and the error is wrapped in a CreationError.
//
// Parameters:
//   - ctx: the device context the object belongs to
//   - kind: the resource kind, used for leak accounting and errors
//   - create: builds the native object
//   - destroy: tears the native object down; must not be nil
//   - parents: handles the new object depends on
//
// Returns:
//   - *Handle[T]: the new handle
//   - error: a *CreationError on failure
func NewHandle[T any](ctx *Context, kind ResourceKind, create func(Backend) (T, error), destroy func(Backend, T), parents ...Dependency) (*Handle[T], error) {
	if !ctx.retain() {
		return nil, &CreationError{Kind: kind, Err: ErrContextClosed}
	}
	for i, p := range parents {
		if !p.retainRef() {
			for _, q := range parents[:i] {
				q.releaseRef()
			}
			ctx.release()
			return nil, &CreationError{Kind: kind, Err: ErrParentReleased}
		}
	}

	native, err := create(ctx.backend)
	if err != nil {
		for _, p := range parents {
			p.releaseRef()
		}
		ctx.release()
		return nil, &CreationError{Kind: kind, Err: err}
	}

	h := &Handle[T]{
		ctx:     ctx,
		kind:    kind,
		native:  native,
		destroy: destroy,
		parents: parents,
	}
	h.refs.Store(1)
	ctx.track(kind, 1)
	return h, nil
}

// Get returns the native object. It panics if the handle has been released.
func (h *Handle[T]) Get() T {
	if h.released.Load() {
		panic(fmt.Sprintf("gpu: use of released %s handle", h.kind))
	}
	return h.native
}

// Kind returns the resource kind.
func (h *Handle[T]) Kind() ResourceKind {
	return h.kind
}

// Released reports whether the owner has released the handle.
func (h *Handle[T]) Released() bool {
	return h.released.Load()
}

// Release gives up ownership. The native object is destroyed now, or when the last dependent
// handle is destroyed. Calling Release more than once has no effect.
func (h *Handle[T]) Release() {
	if h == nil || !h.released.CompareAndSwap(false, true) {
		return
	}
	h.releaseRef()
}

func (h *Handle[T]) retainRef() bool {
	for {
		n := h.refs.Load()
		if n <= 0 || h.released.Load() {
			return false
		}
		if h.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

func (h *Handle[T]) releaseRef() {
	if h.refs.Add(-1) != 0 {
		return
	}
	h.destroy(h.ctx.backend, h.native)
	var zero T
	h.native = zero
	h.ctx.track(h.kind, -1)
	for _, p := range h.parents {
		p.releaseRef()
	}
	h.parents = nil
	h.ctx.release()
}
