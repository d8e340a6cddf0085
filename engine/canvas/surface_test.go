package canvas

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-canvas/common"
	"github.com/Carmen-Shannon/oxy-canvas/engine/gpu"
)

func TestSurfaceConfigure(t *testing.T) {
	ctx, err := gpu.NewContext(gpu.BackendTypeHeadless, gpu.WithValidation(false))
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	defer ctx.Close()
	target := gpu.NewHeadlessTarget(100, 50)
	s, err := NewSurface(ctx, target)
	if err != nil {
		t.Fatalf("NewSurface() error = %v", err)
	}
	defer s.Destroy()

	sem, _ := ctx.CreateSemaphore()
	defer sem.Release()
	if _, _, err := s.AcquireNextImage(0, sem); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("AcquireNextImage() before Configure error = %v, want %v", err, ErrNotConfigured)
	}
	if !s.NeedsReconfigure() {
		t.Errorf("NeedsReconfigure() before Configure = false")
	}

	extent := common.Extent2D{Width: 100, Height: 50}
	tests := []struct {
		name      string
		cfg       SurfaceConfig
		wantField string
		wantCount int
	}{
		{name: "zero extent", cfg: SurfaceConfig{Format: gpu.FormatBGRA8Unorm}, wantField: "extent"},
		{name: "oversized extent", cfg: SurfaceConfig{Extent: common.Extent2D{Width: 1 << 20, Height: 1}, Format: gpu.FormatBGRA8Unorm}, wantField: "extent"},
		{name: "unsupported format", cfg: SurfaceConfig{Extent: extent, Format: gpu.FormatDepth32Float}, wantField: "format"},
		{name: "image count raised to minimum", cfg: SurfaceConfig{Extent: extent, Format: gpu.FormatBGRA8Unorm, ImageCount: 1}, wantCount: 2},
		{name: "image count capped", cfg: SurfaceConfig{Extent: extent, Format: gpu.FormatBGRA8Unorm, ImageCount: 20}, wantCount: 8},
		{name: "defaults", cfg: func() SurfaceConfig { c := DefaultSurfaceConfig(); c.Extent = extent; return c }(), wantCount: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Configure(tt.cfg)
			if tt.wantField != "" {
				var ce *ConfigError
				if !errors.As(err, &ce) || ce.Field != tt.wantField {
					t.Errorf("Configure() error = %v, want ConfigError for %q", err, tt.wantField)
				}
				return
			}
			if err != nil {
				t.Fatalf("Configure() error = %v", err)
			}
			if got := len(s.Images()); got != tt.wantCount {
				t.Errorf("len(Images()) = %d, want %d", got, tt.wantCount)
			}
		})
	}

	if s.NeedsReconfigure() {
		t.Errorf("NeedsReconfigure() after Configure = true")
	}
	target.Resize(0, 0)
	if _, _, err := s.AcquireNextImage(0, sem); !errors.Is(err, ErrSkipFrame) {
		t.Errorf("AcquireNextImage() with zero extent error = %v, want %v", err, ErrSkipFrame)
	}
	target.Resize(100, 50)
	if got := ctx.LiveResourcesByKind()[gpu.ResourceKindSwapchain]; got != 1 {
		t.Errorf("live swapchains = %d, want 1", got)
	}
}

func TestSurfaceRequeriesCapabilities(t *testing.T) {
	ctx, err := gpu.NewContext(gpu.BackendTypeHeadless, gpu.WithValidation(false))
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	defer ctx.Close()
	ctx.Backend().(*gpu.HeadlessBackend).PinMaxExtent(true)
	target := gpu.NewHeadlessTarget(100, 50)
	s, err := NewSurface(ctx, target)
	if err != nil {
		t.Fatalf("NewSurface() error = %v", err)
	}
	defer s.Destroy()

	cfg := DefaultSurfaceConfig()
	cfg.Extent = common.Extent2D{Width: 100, Height: 50}
	if err := s.Configure(cfg); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}

	target.Resize(200, 100)
	cfg.Extent = common.Extent2D{Width: 200, Height: 100}
	if err := s.Configure(cfg); err != nil {
		t.Fatalf("Configure() after the window grew error = %v", err)
	}
	if got := s.Capabilities().MaxExtent; got != cfg.Extent {
		t.Errorf("Capabilities().MaxExtent = %v, want %v", got, cfg.Extent)
	}

	cfg.Extent = common.Extent2D{Width: 300, Height: 100}
	var ce *ConfigError
	if err := s.Configure(cfg); !errors.As(err, &ce) || ce.Field != "extent" {
		t.Errorf("Configure() beyond the window error = %v, want ConfigError for %q", err, "extent")
	}
}

func TestSurfaceExtentFromBackend(t *testing.T) {
	ctx, err := gpu.NewContext(gpu.BackendTypeHeadless, gpu.WithValidation(false))
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	defer ctx.Close()
	ctx.Backend().(*gpu.HeadlessBackend).AdoptSwapchainExtent(func(e common.Extent2D) common.Extent2D {
		return common.Extent2D{Width: e.Width / 2, Height: e.Height}
	})
	target := gpu.NewHeadlessTarget(100, 50)
	s, err := NewSurface(ctx, target)
	if err != nil {
		t.Fatalf("NewSurface() error = %v", err)
	}
	defer s.Destroy()

	cfg := DefaultSurfaceConfig()
	cfg.Extent = common.Extent2D{Width: 100, Height: 50}
	if err := s.Configure(cfg); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	if want := (common.Extent2D{Width: 50, Height: 50}); s.Extent() != want {
		t.Errorf("Extent() = %v, want %v", s.Extent(), want)
	}
	if s.RequestedExtent() != cfg.Extent {
		t.Errorf("RequestedExtent() = %v, want %v", s.RequestedExtent(), cfg.Extent)
	}
	if s.NeedsReconfigure() {
		t.Errorf("NeedsReconfigure() = true for an unchanged window")
	}
}
