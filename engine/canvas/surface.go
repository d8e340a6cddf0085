package canvas

import (
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-canvas/common"
	"github.com/Carmen-Shannon/oxy-canvas/engine/gpu"
	"github.com/pkg/errors"
)

// SurfaceConfig is the swapchain configuration of a Surface.
type SurfaceConfig struct {
	// Extent is the swapchain image size. It must match the window's client area.
	Extent common.Extent2D
	// Format is the color format of the swapchain images.
	Format gpu.Format
	// PresentMode defaults to PresentModeVSync, which every device supports.
	PresentMode gpu.PresentMode
	// ImageCount is the requested number of swapchain images, clamped to what the surface allows.
	ImageCount uint32
}

// DefaultSurfaceConfig returns the defaults: sRGB BGRA8 images, vsync and three images.
// The extent is left zero and must be filled in from the window.
func DefaultSurfaceConfig() SurfaceConfig {
	return SurfaceConfig{
		Format:      gpu.FormatBGRA8UnormSRGB,
		PresentMode: gpu.PresentModeVSync,
		ImageCount:  3,
	}
}

// Surface binds a window target to a swapchain and reconfigures it as the window changes.
type Surface struct {
	ctx       *gpu.Context
	target    gpu.Target
	surface   *gpu.Handle[gpu.NativeSurface]
	swapchain *gpu.Handle[gpu.NativeSwapchain]
	images    []gpu.NativeImageView
	caps      gpu.SurfaceCapabilities

	config     SurfaceConfig
	requested  common.Extent2D
	configured bool
	stale      bool
}

// NewSurface creates the native surface for target. The surface must be configured before
// its first acquire.
//
// Parameters:
//   - ctx: the device context
//   - target: the window to present to
//
// Returns:
//   - *Surface: the unconfigured surface
//   - error: a *gpu.CreationError if the native surface could not be created
func NewSurface(ctx *gpu.Context, target gpu.Target) (*Surface, error) {
	h, err := gpu.NewHandle(ctx, gpu.ResourceKindSurface,
		func(b gpu.Backend) (gpu.NativeSurface, error) { return b.CreateSurface(target) },
		func(b gpu.Backend, s gpu.NativeSurface) { b.DestroySurface(s) })
	if err != nil {
		return nil, err
	}
	caps, err := ctx.Backend().SurfaceCapabilities(h.Get())
	if err != nil {
		h.Release()
		return nil, errors.Wrap(err, "query surface capabilities")
	}
	return &Surface{ctx: ctx, target: target, surface: h, caps: caps}, nil
}

// Capabilities returns what the surface supported when it was last queried. They are queried
// again by every Configure, since drivers report limits that follow the window size.
func (s *Surface) Capabilities() gpu.SurfaceCapabilities {
	return s.caps
}

// Config returns the configuration of the current swapchain.
func (s *Surface) Config() SurfaceConfig {
	return s.config
}

// Extent returns the extent of the current swapchain images. It can differ from the extent
// passed to Configure when the driver sizes the swapchain to the surface itself.
func (s *Surface) Extent() common.Extent2D {
	return s.config.Extent
}

// RequestedExtent returns the window size the current swapchain was configured for.
func (s *Surface) RequestedExtent() common.Extent2D {
	return s.requested
}

// Images returns the views of the current swapchain images.
func (s *Surface) Images() []gpu.NativeImageView {
	return s.images
}

// Swapchain returns the swapchain handle, or nil before the first Configure.
// Framebuffers over swapchain images depend on it.
func (s *Surface) Swapchain() *gpu.Handle[gpu.NativeSwapchain] {
	return s.swapchain
}

// NeedsReconfigure reports whether the swapchain must be rebuilt before the next acquire:
// it was never configured, the driver reported it out of date or suboptimal, or the window
// size no longer matches.
func (s *Surface) NeedsReconfigure() bool {
	return !s.configured || s.stale || gpu.TargetExtent(s.target) != s.requested
}

// MarkStale forces a reconfigure before the next acquire.
func (s *Surface) MarkStale() {
	s.stale = true
}

// Configure builds a swapchain for cfg, replacing the current one. The GPU must no longer be
// using the old swapchain's images. Surface capabilities are queried again first, and the
// stored extent is the one the backend actually created the swapchain with.
//
// Parameters:
//   - cfg: the configuration; ImageCount is clamped and an unsupported PresentMode falls back to vsync
//
// Returns:
//   - error: a *ConfigError for a zero or oversized extent or an unsupported format,
//     or the creation error of the swapchain
func (s *Surface) Configure(cfg SurfaceConfig) error {
	if cfg.Extent.IsZero() {
		return &ConfigError{Field: "extent", Err: errors.Wrapf(gpu.ErrInvalidParameters, "%dx%d", cfg.Extent.Width, cfg.Extent.Height)}
	}
	caps, err := s.ctx.Backend().SurfaceCapabilities(s.surface.Get())
	if err != nil {
		return errors.Wrap(err, "query surface capabilities")
	}
	s.caps = caps
	if limit := s.caps.MaxExtent; !limit.IsZero() && (cfg.Extent.Width > limit.Width || cfg.Extent.Height > limit.Height) {
		return &ConfigError{Field: "extent", Err: errors.Wrapf(gpu.ErrInvalidParameters,
			"%dx%d exceeds %dx%d", cfg.Extent.Width, cfg.Extent.Height, limit.Width, limit.Height)}
	}
	if !s.caps.SupportsFormat(cfg.Format) {
		return &ConfigError{Field: "format", Err: errors.Wrap(gpu.ErrUnsupportedFormat, cfg.Format.String())}
	}
	if !s.caps.SupportsPresentMode(cfg.PresentMode) {
		common.Logger().Warn("present mode not supported, using vsync", slog.Int("mode", int(cfg.PresentMode)))
		cfg.PresentMode = gpu.PresentModeVSync
	}
	cfg.ImageCount = s.clampImageCount(cfg.ImageCount)

	desc := gpu.SwapchainDescriptor{
		Surface:     s.surface.Get(),
		Extent:      cfg.Extent,
		Format:      cfg.Format,
		PresentMode: cfg.PresentMode,
		ImageCount:  cfg.ImageCount,
	}
	if s.swapchain != nil {
		desc.OldSwapchain = s.swapchain.Get()
	}
	sc, err := gpu.NewHandle(s.ctx, gpu.ResourceKindSwapchain,
		func(b gpu.Backend) (gpu.NativeSwapchain, error) { return b.CreateSwapchain(desc) },
		func(b gpu.Backend, sc gpu.NativeSwapchain) { b.DestroySwapchain(sc) },
		s.surface)
	if err != nil {
		return err
	}

	s.swapchain.Release()
	s.swapchain = sc
	s.images = s.ctx.Backend().SwapchainImages(sc.Get())
	s.requested = cfg.Extent
	cfg.Extent = s.ctx.Backend().SwapchainExtent(sc.Get())
	s.config = cfg
	s.configured = true
	s.stale = false

	common.Logger().Info("surface configured",
		slog.Uint64("width", uint64(cfg.Extent.Width)),
		slog.Uint64("height", uint64(cfg.Extent.Height)),
		slog.Uint64("requested_width", uint64(s.requested.Width)),
		slog.Uint64("requested_height", uint64(s.requested.Height)),
		slog.String("format", cfg.Format.String()),
		slog.Int("images", len(s.images)))
	return nil
}

func (s *Surface) clampImageCount(n uint32) uint32 {
	n = max(n, s.caps.MinImageCount)
	if s.caps.MaxImageCount > 0 {
		n = min(n, s.caps.MaxImageCount)
	}
	return n
}

// AcquireNextImage acquires the next presentable image, signaling signal once it can be written.
// Acquire does not touch the frame ring.
//
// Parameters:
//   - timeout: how long to wait for an image
//   - signal: the semaphore to signal
//
// Returns:
//   - uint32: the image index
//   - gpu.NativeImageView: the view of the image
//   - error: ErrSkipFrame for a zero sized window, gpu.ErrOutOfDate when the swapchain must be
//     reconfigured, ErrNotConfigured before Configure, or a backend error
func (s *Surface) AcquireNextImage(timeout time.Duration, signal *gpu.Handle[gpu.NativeSemaphore]) (uint32, gpu.NativeImageView, error) {
	if !s.configured {
		return 0, nil, ErrNotConfigured
	}
	if gpu.TargetExtent(s.target).IsZero() {
		return 0, nil, ErrSkipFrame
	}

	idx, err := s.ctx.Backend().AcquireNextImage(s.swapchain.Get(), timeout, signal.Get())
	switch {
	case errors.Is(err, gpu.ErrSuboptimal):
		common.Logger().Debug("swapchain suboptimal, reconfiguring next frame")
		s.stale = true
	case errors.Is(err, gpu.ErrOutOfDate):
		s.stale = true
		return 0, nil, err
	case err != nil:
		return 0, nil, err
	}
	if int(idx) >= len(s.images) {
		return 0, nil, errors.Wrapf(gpu.ErrInvalidParameters, "acquired image %d of %d", idx, len(s.images))
	}
	return idx, s.images[idx], nil
}

// Present queues image index for display once wait is signaled. An out of date or suboptimal
// swapchain marks the surface stale and is returned so the caller can count it.
func (s *Surface) Present(index uint32, wait *gpu.Handle[gpu.NativeSemaphore]) error {
	err := s.ctx.Present(gpu.PresentInfo{
		Swapchain:  s.swapchain.Get(),
		ImageIndex: index,
		Wait:       wait.Get(),
	})
	if errors.Is(err, gpu.ErrOutOfDate) || errors.Is(err, gpu.ErrSuboptimal) {
		s.stale = true
	}
	return err
}

// Destroy releases the swapchain and the native surface. The swapchain is destroyed once the
// last framebuffer over its images is gone.
func (s *Surface) Destroy() {
	s.swapchain.Release()
	s.swapchain = nil
	s.images = nil
	s.surface.Release()
	s.configured = false
}
