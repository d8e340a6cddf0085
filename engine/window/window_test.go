package window

import (
	"errors"
	"testing"
)

func TestNewEngineWindowOptions(t *testing.T) {
	tests := []struct {
		name       string
		opts       []WindowBuilderOption
		wantWidth  int
		wantHeight int
	}{
		{name: "defaults", wantWidth: 1280, wantHeight: 720},
		{name: "explicit size", opts: []WindowBuilderOption{WithWidth(800), WithHeight(600)}, wantWidth: 800, wantHeight: 600},
		{name: "clamped to max", opts: []WindowBuilderOption{WithWidth(4000), WithMaxWidth(1920)}, wantWidth: 1920, wantHeight: 720},
		{name: "clamped to min", opts: []WindowBuilderOption{WithHeight(50), WithMinHeight(100)}, wantWidth: 1280, wantHeight: 100},
		{name: "min above max", opts: []WindowBuilderOption{WithMinWidth(900), WithMaxWidth(700), WithWidth(800)}, wantWidth: 700, wantHeight: 720},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newEngineWindow(tt.opts...)
			if w.Width() != tt.wantWidth || w.Height() != tt.wantHeight {
				t.Errorf("size = %dx%d, want %dx%d", w.Width(), w.Height(), tt.wantWidth, tt.wantHeight)
			}
		})
	}
}

func TestFramebufferSizeSeparateFromRequested(t *testing.T) {
	w := newEngineWindow(WithWidth(800), WithHeight(600))
	// A 2x content scale reports a framebuffer twice the window size.
	w.setSize(1600, 1200)
	if w.Width() != 1600 || w.Height() != 1200 {
		t.Errorf("size = %dx%d, want 1600x1200", w.Width(), w.Height())
	}
	if w.requestedWidth != 800 || w.requestedHeight != 600 {
		t.Errorf("requested = %dx%d, want 800x600", w.requestedWidth, w.requestedHeight)
	}
}

func TestWindowBeforeSpawn(t *testing.T) {
	w := newEngineWindow(WithTitle("test"))
	if w.title != "test" {
		t.Errorf("title = %q, want %q", w.title, "test")
	}
	w.RequestClose()
	if w.IsRunning() {
		t.Errorf("IsRunning() = true before the platform window exists")
	}
	if d := w.SurfaceDescriptor(); d != nil {
		t.Errorf("SurfaceDescriptor() = %v, want nil", d)
	}
	if ext := w.RequiredInstanceExtensions(); ext != nil {
		t.Errorf("RequiredInstanceExtensions() = %v, want nil", ext)
	}
	if _, err := w.CreateWindowSurface(nil, nil); !errors.Is(err, errWindowNotInitialized) {
		t.Errorf("CreateWindowSurface() error = %v, want %v", err, errWindowNotInitialized)
	}
	if err := w.Close(); !errors.Is(err, errWindowNotInitialized) {
		t.Errorf("Close() error = %v, want %v", err, errWindowNotInitialized)
	}
}
