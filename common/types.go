// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

// Extent2D is the pixel size of a drawable area such as a window framebuffer or a swapchain image.
type Extent2D struct {
	// Width is the horizontal size in pixels.
	Width uint32
	// Height is the vertical size in pixels.
	Height uint32
}

// NewExtent2D builds an Extent2D from signed window dimensions, treating negative values as zero.
//
// Parameters:
//   - width: the width reported by the windowing system
//   - height: the height reported by the windowing system
//
// Returns:
//   - Extent2D: the clamped extent
func NewExtent2D(width, height int) Extent2D {
	return Extent2D{Width: uint32(max(width, 0)), Height: uint32(max(height, 0))}
}

// IsZero reports whether the extent has no drawable area.
// A minimized window reports a zero extent on most platforms.
func (e Extent2D) IsZero() bool {
	return e.Width == 0 || e.Height == 0
}

// Color is a linear RGBA color used for clear values.
type Color struct {
	R, G, B, A float32
}

// Range is a half-open interval [Start, End) of vertices or indices.
type Range struct {
	Start uint32
	End   uint32
}

// Len returns the number of elements covered by the range, or 0 if the range is inverted.
func (r Range) Len() uint32 {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

// Valid reports whether End is not before Start.
func (r Range) Valid() bool {
	return r.End >= r.Start
}

// Viewport maps normalized device coordinates onto the framebuffer.
type Viewport struct {
	X, Y          float32
	Width, Height float32
	MinDepth      float32
	MaxDepth      float32
}

// FullViewport returns a viewport covering the whole extent with the standard [0, 1] depth range.
func FullViewport(e Extent2D) Viewport {
	return Viewport{Width: float32(e.Width), Height: float32(e.Height), MinDepth: 0, MaxDepth: 1}
}

// Rect is an integer rectangle in framebuffer space, used for scissor tests.
type Rect struct {
	X, Y          int32
	Width, Height uint32
}

// FullRect returns a rectangle covering the whole extent.
func FullRect(e Extent2D) Rect {
	return Rect{Width: e.Width, Height: e.Height}
}
