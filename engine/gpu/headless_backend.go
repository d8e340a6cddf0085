package gpu

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-canvas/common"
	"github.com/pkg/errors"
)

// HeadlessBackend simulates a device in process. Submissions and presents execute in order on a
// single background worker, each submission taking the configured latency. Misuse that a real
// driver would punish (recording into an in-flight command buffer, waiting on an unsignaled
// semaphore, drawing into a framebuffer built for a retired swapchain) is recorded as a violation.
//
// Faults can be injected to exercise error paths.
type HeadlessBackend struct {
	latency time.Duration
	queue   worker.DynamicWorkerPool
	taskID  atomic.Int64
	limits  Limits

	lost     chan struct{}
	lostOnce sync.Once

	mu             sync.Mutex
	hang           bool
	failCreate     map[ResourceKind]error
	failSubmit     error
	failAcquire    error
	pinMaxExtent   bool
	adoptExtent    func(requested common.Extent2D) common.Extent2D
	outOfDate      int
	suboptimal     int
	violations     []string
	submissions    int
	presents       int
	inFlight       int
	maxInFlight    int
	destroyed      bool
	surfaceFormats []Format
}

// NewHeadlessBackend creates a headless backend.
//
// Parameters:
//   - latency: simulated execution time of each submission
//
// Returns:
//   - *HeadlessBackend: the backend
func NewHeadlessBackend(latency time.Duration) *HeadlessBackend {
	return &HeadlessBackend{
		latency: latency,
		queue:   worker.NewDynamicWorkerPool(1, 256, 1*time.Second),
		limits: Limits{
			MaxPushConstantsSize: 128,
			MaxFramebufferWidth:  16384,
			MaxFramebufferHeight: 16384,
			MaxColorAttachments:  8,
		},
		lost:           make(chan struct{}),
		failCreate:     make(map[ResourceKind]error),
		surfaceFormats: []Format{FormatBGRA8Unorm, FormatBGRA8UnormSRGB, FormatRGBA8Unorm, FormatRGBA8UnormSRGB},
	}
}

// SetHang makes every later submission never complete, so fences guarding them never signal.
func (b *HeadlessBackend) SetHang(hang bool) {
	b.mu.Lock()
	b.hang = hang
	b.mu.Unlock()
}

// LoseDevice puts the device into the lost state. Every wait returns ErrDeviceLost afterwards.
func (b *HeadlessBackend) LoseDevice() {
	b.lostOnce.Do(func() { close(b.lost) })
}

// FailNextCreate makes the next creation of kind fail with err.
func (b *HeadlessBackend) FailNextCreate(kind ResourceKind, err error) {
	b.mu.Lock()
	b.failCreate[kind] = err
	b.mu.Unlock()
}

// FailNextSubmit makes the next Submit fail with err without executing anything.
func (b *HeadlessBackend) FailNextSubmit(err error) {
	b.mu.Lock()
	b.failSubmit = err
	b.mu.Unlock()
}

// FailNextAcquire makes the next acquire fail with err without signaling its semaphore.
func (b *HeadlessBackend) FailNextAcquire(err error) {
	b.mu.Lock()
	b.failAcquire = err
	b.mu.Unlock()
}

// PinMaxExtent makes surfaces report their target's current size as the largest swapchain
// extent, the way Win32 and X11 Vulkan drivers do.
func (b *HeadlessBackend) PinMaxExtent(pin bool) {
	b.mu.Lock()
	b.pinMaxExtent = pin
	b.mu.Unlock()
}

// AdoptSwapchainExtent makes swapchains use fn(requested) as their image size instead of the
// requested extent, like a driver substituting the surface's current size. nil restores the default.
func (b *HeadlessBackend) AdoptSwapchainExtent(fn func(requested common.Extent2D) common.Extent2D) {
	b.mu.Lock()
	b.adoptExtent = fn
	b.mu.Unlock()
}

// ForceOutOfDate makes the next n acquires report ErrOutOfDate.
func (b *HeadlessBackend) ForceOutOfDate(n int) {
	b.mu.Lock()
	b.outOfDate = n
	b.mu.Unlock()
}

// ForceSuboptimal makes the next n acquires succeed with ErrSuboptimal.
func (b *HeadlessBackend) ForceSuboptimal(n int) {
	b.mu.Lock()
	b.suboptimal = n
	b.mu.Unlock()
}

// SetSurfaceFormats replaces the formats surfaces report as supported.
func (b *HeadlessBackend) SetSurfaceFormats(formats ...Format) {
	b.mu.Lock()
	b.surfaceFormats = formats
	b.mu.Unlock()
}

// Violations returns the misuse recorded so far. Call WaitIdle first to include queued work.
func (b *HeadlessBackend) Violations() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.violations...)
}

// Submissions returns the number of accepted submissions.
func (b *HeadlessBackend) Submissions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.submissions
}

// Presents returns the number of accepted presents.
func (b *HeadlessBackend) Presents() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.presents
}

// MaxInFlight returns the largest number of submissions that were executing or queued at once.
func (b *HeadlessBackend) MaxInFlight() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxInFlight
}

// Destroyed reports whether Destroy has been called.
func (b *HeadlessBackend) Destroyed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.destroyed
}

func (b *HeadlessBackend) violation(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	common.Logger().Warn("headless device violation", slog.String("violation", msg))
	b.mu.Lock()
	b.violations = append(b.violations, msg)
	b.mu.Unlock()
}

func (b *HeadlessBackend) takeFailure(kind ResourceKind) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err, ok := b.failCreate[kind]; ok {
		delete(b.failCreate, kind)
		return err
	}
	return nil
}

func (b *HeadlessBackend) isLost() bool {
	select {
	case <-b.lost:
		return true
	default:
		return false
	}
}

func (b *HeadlessBackend) enqueue(do func()) {
	b.queue.SubmitTask(worker.Task{
		ID: int(b.taskID.Add(1)),
		Do: func() (any, error) {
			do()
			return nil, nil
		},
	})
}

func (b *HeadlessBackend) Type() BackendType { return BackendTypeHeadless }
func (b *HeadlessBackend) Limits() Limits    { return b.limits }

func (b *HeadlessBackend) WaitIdle() error {
	if b.isLost() {
		return ErrDeviceLost
	}
	done := make(chan struct{})
	b.enqueue(func() { close(done) })
	select {
	case <-done:
		return nil
	case <-b.lost:
		return ErrDeviceLost
	}
}

func (b *HeadlessBackend) Destroy() {
	b.mu.Lock()
	b.destroyed = true
	b.mu.Unlock()
}

type headlessSurface struct {
	target Target
}

func (b *HeadlessBackend) CreateSurface(target Target) (NativeSurface, error) {
	if err := b.takeFailure(ResourceKindSurface); err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrUnsupportedTarget
	}
	return &headlessSurface{target: target}, nil
}

func (b *HeadlessBackend) DestroySurface(NativeSurface) {}

func (b *HeadlessBackend) SurfaceCapabilities(s NativeSurface) (SurfaceCapabilities, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	caps := SurfaceCapabilities{
		Formats:       append([]Format(nil), b.surfaceFormats...),
		PresentModes:  []PresentMode{PresentModeVSync, PresentModeMailbox, PresentModeUncapped},
		MinImageCount: 2,
		MaxImageCount: 8,
		MaxExtent:     common.Extent2D{Width: b.limits.MaxFramebufferWidth, Height: b.limits.MaxFramebufferHeight},
	}
	if b.pinMaxExtent {
		caps.MaxExtent = TargetExtent(s.(*headlessSurface).target)
	}
	return caps, nil
}

type headlessImageView struct {
	swapchain *headlessSwapchain
	index     uint32
	extent    common.Extent2D
	format    Format
}

type headlessSwapchain struct {
	surface      *headlessSurface
	requested    common.Extent2D
	extent       common.Extent2D
	format       Format
	images       []NativeImageView
	next         uint32
	retired      atomic.Bool
	framebuffers atomic.Int32
}

func (b *HeadlessBackend) CreateSwapchain(desc SwapchainDescriptor) (NativeSwapchain, error) {
	if err := b.takeFailure(ResourceKindSwapchain); err != nil {
		return nil, err
	}
	s, ok := desc.Surface.(*headlessSurface)
	if !ok {
		return nil, errors.Wrap(ErrInvalidParameters, "not a headless surface")
	}
	b.mu.Lock()
	adopt := b.adoptExtent
	b.mu.Unlock()
	sc := &headlessSwapchain{surface: s, requested: desc.Extent, extent: desc.Extent, format: desc.Format}
	if adopt != nil {
		sc.extent = adopt(desc.Extent)
	}
	for i := range desc.ImageCount {
		sc.images = append(sc.images, &headlessImageView{swapchain: sc, index: i, extent: sc.extent, format: desc.Format})
	}
	if old, ok := desc.OldSwapchain.(*headlessSwapchain); ok {
		old.retired.Store(true)
	}
	return sc, nil
}

func (b *HeadlessBackend) DestroySwapchain(sc NativeSwapchain) {
	s := sc.(*headlessSwapchain)
	s.retired.Store(true)
	if n := s.framebuffers.Load(); n > 0 {
		b.violation("swapchain destroyed while %d framebuffers still reference it", n)
	}
}

func (b *HeadlessBackend) SwapchainImages(sc NativeSwapchain) []NativeImageView {
	return sc.(*headlessSwapchain).images
}

func (b *HeadlessBackend) SwapchainExtent(sc NativeSwapchain) common.Extent2D {
	return sc.(*headlessSwapchain).extent
}

func (b *HeadlessBackend) AcquireNextImage(sc NativeSwapchain, _ time.Duration, signal NativeSemaphore) (uint32, error) {
	if b.isLost() {
		return 0, ErrDeviceLost
	}
	s := sc.(*headlessSwapchain)
	if s.retired.Load() {
		b.violation("acquire from retired swapchain")
		return 0, ErrOutOfDate
	}

	b.mu.Lock()
	failure := b.failAcquire
	b.failAcquire = nil
	forced := b.outOfDate > 0
	if forced {
		b.outOfDate--
	}
	suboptimal := b.suboptimal > 0
	if suboptimal {
		b.suboptimal--
	}
	b.mu.Unlock()

	if failure != nil {
		return 0, failure
	}
	if forced || TargetExtent(s.surface.target) != s.requested {
		return 0, ErrOutOfDate
	}

	idx := s.next
	s.next = (s.next + 1) % uint32(len(s.images))
	if sem, ok := signal.(*headlessSemaphore); ok {
		sem.signal(b, "acquire")
	}
	if suboptimal {
		return idx, ErrSuboptimal
	}
	return idx, nil
}

type headlessFence struct {
	mu       sync.Mutex
	signaled bool
	done     chan struct{}
	pending  int
}

func (f *headlessFence) signal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending--
	if !f.signaled {
		f.signaled = true
		close(f.done)
	}
}

func (b *HeadlessBackend) CreateFence(signaled bool) (NativeFence, error) {
	if err := b.takeFailure(ResourceKindFence); err != nil {
		return nil, err
	}
	f := &headlessFence{done: make(chan struct{})}
	if signaled {
		f.signaled = true
		close(f.done)
	}
	return f, nil
}

func (b *HeadlessBackend) DestroyFence(f NativeFence) {
	hf := f.(*headlessFence)
	hf.mu.Lock()
	defer hf.mu.Unlock()
	if hf.pending > 0 {
		b.violation("fence destroyed while guarding %d submissions", hf.pending)
	}
}

func (b *HeadlessBackend) WaitFence(f NativeFence, timeout time.Duration) error {
	hf := f.(*headlessFence)
	hf.mu.Lock()
	done := hf.done
	hf.mu.Unlock()

	select {
	case <-done:
		return nil
	default:
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-b.lost:
		return ErrDeviceLost
	case <-timer.C:
		return ErrTimeout
	}
}

func (b *HeadlessBackend) ResetFence(f NativeFence) error {
	hf := f.(*headlessFence)
	hf.mu.Lock()
	defer hf.mu.Unlock()
	if hf.pending > 0 {
		b.violation("fence reset while guarding %d submissions", hf.pending)
		return ErrFenceInUse
	}
	if hf.signaled {
		hf.signaled = false
		hf.done = make(chan struct{})
	}
	return nil
}

func (b *HeadlessBackend) FenceSignaled(f NativeFence) (bool, error) {
	if b.isLost() {
		return false, ErrDeviceLost
	}
	hf := f.(*headlessFence)
	hf.mu.Lock()
	defer hf.mu.Unlock()
	return hf.signaled, nil
}

type headlessSemaphore struct {
	mu       sync.Mutex
	signaled bool
}

func (s *headlessSemaphore) signal(b *HeadlessBackend, by string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.signaled {
		b.violation("%s signaled a semaphore that was never waited on", by)
	}
	s.signaled = true
}

func (s *headlessSemaphore) wait(b *HeadlessBackend, by string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.signaled {
		b.violation("%s waited on a semaphore with no pending signal", by)
	}
	s.signaled = false
}

func (b *HeadlessBackend) CreateSemaphore() (NativeSemaphore, error) {
	if err := b.takeFailure(ResourceKindSemaphore); err != nil {
		return nil, err
	}
	return &headlessSemaphore{}, nil
}

func (b *HeadlessBackend) DestroySemaphore(NativeSemaphore) {}

type headlessCommandPool struct {
	buffers atomic.Int32
}

func (b *HeadlessBackend) CreateCommandPool() (NativeCommandPool, error) {
	if err := b.takeFailure(ResourceKindCommandPool); err != nil {
		return nil, err
	}
	return &headlessCommandPool{}, nil
}

func (b *HeadlessBackend) DestroyCommandPool(p NativeCommandPool) {
	if n := p.(*headlessCommandPool).buffers.Load(); n > 0 {
		b.violation("command pool destroyed with %d live command buffers", n)
	}
}

func (b *HeadlessBackend) AllocateCommandBuffer(p NativeCommandPool) (CommandBuffer, error) {
	if err := b.takeFailure(ResourceKindCommandBuffer); err != nil {
		return nil, err
	}
	p.(*headlessCommandPool).buffers.Add(1)
	return &HeadlessCommandBuffer{b: b}, nil
}

func (b *HeadlessBackend) FreeCommandBuffer(p NativeCommandPool, cb CommandBuffer) {
	hcb := cb.(*HeadlessCommandBuffer)
	if hcb.InFlight() {
		b.violation("command buffer freed while in flight")
	}
	p.(*headlessCommandPool).buffers.Add(-1)
}

type headlessRenderPass struct {
	desc RenderPassDescriptor
}

func (b *HeadlessBackend) CreateRenderPass(desc RenderPassDescriptor) (NativeRenderPass, error) {
	if err := b.takeFailure(ResourceKindRenderPass); err != nil {
		return nil, err
	}
	return &headlessRenderPass{desc: desc}, nil
}

func (b *HeadlessBackend) DestroyRenderPass(NativeRenderPass) {}

type headlessFramebuffer struct {
	renderPass *headlessRenderPass
	views      []NativeImageView
	extent     common.Extent2D
	swapchain  *headlessSwapchain
	destroyed  atomic.Bool
}

func (b *HeadlessBackend) CreateFramebuffer(desc FramebufferDescriptor) (NativeFramebuffer, error) {
	if err := b.takeFailure(ResourceKindFramebuffer); err != nil {
		return nil, err
	}
	fb := &headlessFramebuffer{renderPass: desc.RenderPass.(*headlessRenderPass), views: desc.Attachments, extent: desc.Extent}
	for _, v := range desc.Attachments {
		switch hv := v.(type) {
		case *headlessImageView:
			if hv.extent != desc.Extent {
				return nil, errors.Wrapf(ErrInvalidParameters, "attachment extent %v, framebuffer extent %v", hv.extent, desc.Extent)
			}
			if hv.swapchain != nil {
				fb.swapchain = hv.swapchain
				hv.swapchain.framebuffers.Add(1)
			}
		case *headlessAttachment:
			if hv.extent != desc.Extent {
				return nil, errors.Wrapf(ErrInvalidParameters, "attachment extent %v, framebuffer extent %v", hv.extent, desc.Extent)
			}
		}
	}
	return fb, nil
}

func (b *HeadlessBackend) DestroyFramebuffer(fb NativeFramebuffer) {
	hfb := fb.(*headlessFramebuffer)
	hfb.destroyed.Store(true)
	if hfb.swapchain != nil {
		hfb.swapchain.framebuffers.Add(-1)
	}
}

type headlessAttachment struct {
	format Format
	extent common.Extent2D
}

func (b *HeadlessBackend) CreateAttachment(desc AttachmentDescriptor) (NativeImageView, error) {
	if err := b.takeFailure(ResourceKindAttachment); err != nil {
		return nil, err
	}
	return &headlessAttachment{format: desc.Format, extent: desc.Extent}, nil
}

func (b *HeadlessBackend) DestroyAttachment(NativeImageView) {}

// HeadlessBuffer is the native buffer of the headless backend. Its contents can be inspected.
type HeadlessBuffer struct {
	Data  []byte
	Usage BufferUsage
}

func (b *HeadlessBackend) CreateBuffer(desc BufferDescriptor, data []byte) (NativeBuffer, error) {
	if err := b.takeFailure(ResourceKindBuffer); err != nil {
		return nil, err
	}
	buf := &HeadlessBuffer{Data: make([]byte, desc.Size), Usage: desc.Usage}
	copy(buf.Data, data)
	return buf, nil
}

func (b *HeadlessBackend) DestroyBuffer(NativeBuffer) {}

type headlessShaderModule struct {
	desc ShaderModuleDescriptor
}

func (b *HeadlessBackend) CreateShaderModule(desc ShaderModuleDescriptor) (NativeShaderModule, error) {
	if err := b.takeFailure(ResourceKindShaderModule); err != nil {
		return nil, err
	}
	return &headlessShaderModule{desc: desc}, nil
}

func (b *HeadlessBackend) DestroyShaderModule(NativeShaderModule) {}

type headlessPipelineLayout struct {
	desc PipelineLayoutDescriptor
}

func (b *HeadlessBackend) CreatePipelineLayout(desc PipelineLayoutDescriptor) (NativePipelineLayout, error) {
	if err := b.takeFailure(ResourceKindPipelineLayout); err != nil {
		return nil, err
	}
	return &headlessPipelineLayout{desc: desc}, nil
}

func (b *HeadlessBackend) DestroyPipelineLayout(NativePipelineLayout) {}

type headlessPipeline struct {
	desc     GraphicsPipelineDescriptor
	inFlight atomic.Int32
}

func (b *HeadlessBackend) CreateGraphicsPipeline(desc GraphicsPipelineDescriptor) (NativePipeline, error) {
	if err := b.takeFailure(ResourceKindPipeline); err != nil {
		return nil, err
	}
	return &headlessPipeline{desc: desc}, nil
}

func (b *HeadlessBackend) DestroyPipeline(p NativePipeline) {
	if n := p.(*headlessPipeline).inFlight.Load(); n > 0 {
		b.violation("pipeline destroyed while %d submissions still use it", n)
	}
}

func (b *HeadlessBackend) Submit(info SubmitInfo) error {
	if b.isLost() {
		return ErrDeviceLost
	}
	b.mu.Lock()
	if err := b.failSubmit; err != nil {
		b.failSubmit = nil
		b.mu.Unlock()
		return err
	}
	hang := b.hang
	b.submissions++
	b.inFlight++
	b.maxInFlight = max(b.maxInFlight, b.inFlight)
	b.mu.Unlock()

	cb := info.CommandBuffer.(*HeadlessCommandBuffer)
	if err := cb.markPending(); err != nil {
		b.mu.Lock()
		b.submissions--
		b.inFlight--
		b.mu.Unlock()
		return err
	}
	fence, _ := info.Fence.(*headlessFence)
	if fence != nil {
		fence.mu.Lock()
		fence.pending++
		fence.mu.Unlock()
	}
	var pipelines []*headlessPipeline
	for _, c := range cb.Commands() {
		if c.Op != "BindPipeline" {
			continue
		}
		if p, ok := c.Args[0].(*headlessPipeline); ok {
			p.inFlight.Add(1)
			pipelines = append(pipelines, p)
		}
	}

	b.enqueue(func() {
		if hang {
			return
		}
		if w, ok := info.Wait.(*headlessSemaphore); ok {
			w.wait(b, "submit")
		}
		if b.latency > 0 {
			time.Sleep(b.latency)
		}
		if s, ok := info.Signal.(*headlessSemaphore); ok {
			s.signal(b, "submit")
		}
		cb.complete()
		for _, p := range pipelines {
			p.inFlight.Add(-1)
		}
		b.mu.Lock()
		b.inFlight--
		b.mu.Unlock()
		if fence != nil {
			fence.signal()
		}
	})
	return nil
}

func (b *HeadlessBackend) Present(info PresentInfo) error {
	if b.isLost() {
		return ErrDeviceLost
	}
	sc := info.Swapchain.(*headlessSwapchain)
	if int(info.ImageIndex) >= len(sc.images) {
		return errors.Wrapf(ErrInvalidParameters, "image index %d of %d", info.ImageIndex, len(sc.images))
	}
	b.mu.Lock()
	b.presents++
	b.mu.Unlock()

	wait, _ := info.Wait.(*headlessSemaphore)
	b.enqueue(func() {
		if wait != nil {
			wait.wait(b, "present")
		}
	})
	if sc.retired.Load() || TargetExtent(sc.surface.target) != sc.requested {
		return ErrOutOfDate
	}
	return nil
}

// Command is one recorded command of a HeadlessCommandBuffer.
type Command struct {
	Op   string
	Args []any
}

// HeadlessCommandBuffer records commands in memory for inspection.
type HeadlessCommandBuffer struct {
	b         *HeadlessBackend
	mu        sync.Mutex
	recording bool
	ended     bool
	pending   bool
	inPass    bool
	commands  []Command
}

// Commands returns the commands of the most recent recording.
func (cb *HeadlessCommandBuffer) Commands() []Command {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return append([]Command(nil), cb.commands...)
}

// Ops returns the operation names of the most recent recording.
func (cb *HeadlessCommandBuffer) Ops() []string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	ops := make([]string, len(cb.commands))
	for i, c := range cb.commands {
		ops[i] = c.Op
	}
	return ops
}

// InFlight reports whether the buffer has been submitted and not yet completed.
func (cb *HeadlessCommandBuffer) InFlight() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.pending
}

func (cb *HeadlessCommandBuffer) markPending() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch {
	case cb.pending:
		cb.b.violation("command buffer submitted twice")
		return ErrCommandBufferInFlight
	case !cb.ended:
		return errors.Wrap(ErrInvalidParameters, "command buffer is not executable")
	}
	cb.pending = true
	return nil
}

func (cb *HeadlessCommandBuffer) complete() {
	cb.mu.Lock()
	cb.pending = false
	cb.mu.Unlock()
}

func (cb *HeadlessCommandBuffer) record(op string, args ...any) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if !cb.recording {
		cb.b.violation("%s recorded outside Begin/End", op)
	}
	cb.commands = append(cb.commands, Command{Op: op, Args: args})
}

func (cb *HeadlessCommandBuffer) recordInPass(op string, args ...any) {
	cb.mu.Lock()
	inPass := cb.inPass
	cb.mu.Unlock()
	if !inPass {
		cb.b.violation("%s recorded outside a render pass", op)
	}
	cb.record(op, args...)
}

func (cb *HeadlessCommandBuffer) Begin() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.pending {
		cb.b.violation("command buffer reset while in flight")
		return ErrCommandBufferInFlight
	}
	cb.recording = true
	cb.ended = false
	cb.inPass = false
	cb.commands = cb.commands[:0]
	return nil
}

func (cb *HeadlessCommandBuffer) End() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if !cb.recording {
		return errors.Wrap(ErrInvalidParameters, "command buffer is not recording")
	}
	if cb.inPass {
		return errors.Wrap(ErrInvalidParameters, "render pass still open")
	}
	cb.recording = false
	cb.ended = true
	return nil
}

func (cb *HeadlessCommandBuffer) BeginRenderPass(info RenderPassBeginInfo) {
	fb := info.Framebuffer.(*headlessFramebuffer)
	switch {
	case fb.destroyed.Load():
		cb.b.violation("render pass begun on destroyed framebuffer")
	case fb.swapchain != nil && fb.swapchain.retired.Load():
		cb.b.violation("render pass begun on framebuffer of retired swapchain")
	case fb.extent != info.Extent:
		cb.b.violation("render pass extent %v does not match framebuffer extent %v", info.Extent, fb.extent)
	}
	cb.record("BeginRenderPass", info.Extent, info.ClearColor)
	cb.mu.Lock()
	cb.inPass = true
	cb.mu.Unlock()
}

func (cb *HeadlessCommandBuffer) EndRenderPass() {
	cb.recordInPass("EndRenderPass")
	cb.mu.Lock()
	cb.inPass = false
	cb.mu.Unlock()
}

func (cb *HeadlessCommandBuffer) SetViewport(v common.Viewport) { cb.recordInPass("SetViewport", v) }
func (cb *HeadlessCommandBuffer) SetScissor(r common.Rect)      { cb.recordInPass("SetScissor", r) }
func (cb *HeadlessCommandBuffer) BindPipeline(p NativePipeline) { cb.recordInPass("BindPipeline", p) }

func (cb *HeadlessCommandBuffer) BindVertexBuffer(slot uint32, b NativeBuffer, offset uint64) {
	cb.recordInPass("BindVertexBuffer", slot, b, offset)
}

func (cb *HeadlessCommandBuffer) BindIndexBuffer(b NativeBuffer, offset uint64, format IndexFormat) {
	cb.recordInPass("BindIndexBuffer", b, offset, format)
}

func (cb *HeadlessCommandBuffer) PushConstants(layout NativePipelineLayout, stages ShaderStage, offset uint32, data []byte) {
	cb.recordInPass("PushConstants", stages, offset, append([]byte(nil), data...))
}

func (cb *HeadlessCommandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	cb.recordInPass("Draw", vertexCount, instanceCount, firstVertex, firstInstance)
}

func (cb *HeadlessCommandBuffer) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	cb.recordInPass("DrawIndexed", indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}
