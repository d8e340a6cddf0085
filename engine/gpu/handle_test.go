package gpu

import (
	"errors"
	"testing"
)

func newTestContext(t *testing.T) (*Context, *HeadlessBackend) {
	t.Helper()
	ctx, err := NewContext(BackendTypeHeadless, WithValidation(false))
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	return ctx, ctx.Backend().(*HeadlessBackend)
}

type destroyLog struct {
	order []string
}

func (l *destroyLog) handle(t *testing.T, ctx *Context, name string, parents ...Dependency) *Handle[string] {
	t.Helper()
	h, err := NewHandle(ctx, ResourceKindBuffer,
		func(Backend) (string, error) { return name, nil },
		func(_ Backend, n string) { l.order = append(l.order, n) },
		parents...)
	if err != nil {
		t.Fatalf("NewHandle(%s) error = %v", name, err)
	}
	return h
}

func TestHandleDestroysAfterDependents(t *testing.T) {
	ctx, _ := newTestContext(t)
	defer ctx.Close()

	log := &destroyLog{}
	parent := log.handle(t, ctx, "parent")
	child := log.handle(t, ctx, "child", parent)

	parent.Release()
	if len(log.order) != 0 {
		t.Fatalf("parent destroyed while child alive: %v", log.order)
	}
	if !parent.Released() {
		t.Errorf("Released() = false, want true")
	}

	child.Release()
	want := []string{"child", "parent"}
	if len(log.order) != len(want) {
		t.Fatalf("destroy order = %v, want %v", log.order, want)
	}
	for i := range want {
		if log.order[i] != want[i] {
			t.Errorf("destroy order = %v, want %v", log.order, want)
			break
		}
	}
	if n := ctx.LiveResources(); n != 0 {
		t.Errorf("LiveResources() = %d, want 0", n)
	}
}

func TestHandleReleaseIsIdempotent(t *testing.T) {
	ctx, _ := newTestContext(t)
	defer ctx.Close()

	log := &destroyLog{}
	h := log.handle(t, ctx, "once")
	h.Release()
	h.Release()
	if len(log.order) != 1 {
		t.Errorf("destroyed %d times, want 1", len(log.order))
	}

	var nilHandle *Handle[string]
	nilHandle.Release()
}

func TestHandleGetAfterReleasePanics(t *testing.T) {
	ctx, _ := newTestContext(t)
	defer ctx.Close()

	h := (&destroyLog{}).handle(t, ctx, "gone")
	if got := h.Get(); got != "gone" {
		t.Errorf("Get() = %q, want %q", got, "gone")
	}
	h.Release()

	defer func() {
		if recover() == nil {
			t.Errorf("Get() after Release did not panic")
		}
	}()
	h.Get()
}

func TestHandleCreationFailure(t *testing.T) {
	ctx, _ := newTestContext(t)
	defer ctx.Close()

	cause := errors.New("boom")
	parent := (&destroyLog{}).handle(t, ctx, "parent")
	defer parent.Release()

	_, err := NewHandle(ctx, ResourceKindPipeline,
		func(Backend) (int, error) { return 0, cause },
		func(Backend, int) { t.Errorf("destroy called for failed creation") },
		parent)
	if !errors.Is(err, cause) {
		t.Fatalf("NewHandle() error = %v, want %v", err, cause)
	}
	var ce *CreationError
	if !errors.As(err, &ce) || ce.Kind != ResourceKindPipeline {
		t.Errorf("NewHandle() error = %#v, want CreationError for pipeline", err)
	}
	if n := ctx.LiveResources(); n != 1 {
		t.Errorf("LiveResources() = %d, want 1", n)
	}
}

func TestHandleFromReleasedParent(t *testing.T) {
	ctx, _ := newTestContext(t)
	defer ctx.Close()

	log := &destroyLog{}
	parent := log.handle(t, ctx, "parent")
	parent.Release()

	_, err := NewHandle(ctx, ResourceKindBuffer,
		func(Backend) (string, error) { return "child", nil },
		func(Backend, string) {},
		parent)
	if !errors.Is(err, ErrParentReleased) {
		t.Errorf("NewHandle() error = %v, want %v", err, ErrParentReleased)
	}
}

func TestContextCloseWaitsForHandles(t *testing.T) {
	ctx, backend := newTestContext(t)

	fence, err := ctx.CreateFence(true)
	if err != nil {
		t.Fatalf("CreateFence() error = %v", err)
	}

	ctx.Close()
	ctx.Close()
	if backend.Destroyed() {
		t.Fatalf("device destroyed while a fence is alive")
	}
	if !ctx.Closed() {
		t.Errorf("Closed() = false, want true")
	}
	if _, err := ctx.CreateSemaphore(); !errors.Is(err, ErrContextClosed) {
		t.Errorf("CreateSemaphore() after Close error = %v, want %v", err, ErrContextClosed)
	}

	fence.Release()
	if !backend.Destroyed() {
		t.Errorf("device not destroyed after last handle released")
	}
}

func TestLiveResourcesByKind(t *testing.T) {
	ctx, _ := newTestContext(t)
	defer ctx.Close()

	pool, err := ctx.CreateCommandPool()
	if err != nil {
		t.Fatalf("CreateCommandPool() error = %v", err)
	}
	cb, err := ctx.AllocateCommandBuffer(pool)
	if err != nil {
		t.Fatalf("AllocateCommandBuffer() error = %v", err)
	}
	sem, err := ctx.CreateSemaphore()
	if err != nil {
		t.Fatalf("CreateSemaphore() error = %v", err)
	}

	got := ctx.LiveResourcesByKind()
	want := map[ResourceKind]int{
		ResourceKindCommandPool:   1,
		ResourceKindCommandBuffer: 1,
		ResourceKindSemaphore:     1,
	}
	if len(got) != len(want) {
		t.Fatalf("LiveResourcesByKind() = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("LiveResourcesByKind()[%s] = %d, want %d", k, got[k], v)
		}
	}

	pool.Release()
	sem.Release()
	if n := ctx.LiveResources(); n != 2 {
		t.Errorf("LiveResources() = %d, want 2 (pool kept alive by its buffer)", n)
	}
	cb.Release()
	if n := ctx.LiveResources(); n != 0 {
		t.Errorf("LiveResources() = %d, want 0", n)
	}
}

func TestInjectedCreationFailure(t *testing.T) {
	ctx, backend := newTestContext(t)
	defer ctx.Close()

	backend.FailNextCreate(ResourceKindFence, ErrOutOfMemory)
	if _, err := ctx.CreateFence(false); !errors.Is(err, ErrOutOfMemory) {
		t.Fatalf("CreateFence() error = %v, want %v", err, ErrOutOfMemory)
	}
	f, err := ctx.CreateFence(false)
	if err != nil {
		t.Fatalf("CreateFence() retry error = %v", err)
	}
	f.Release()
}
