package window

// WindowBuilderOption is a functional option for configuring an engineWindow.
// Use the With* functions to create options.
//
// Sizes given here are window sizes in screen coordinates, which is what the platform resizes
// and limits. Window.Width and Window.Height report the framebuffer size in pixels instead,
// which is larger on high-DPI displays and is the size the canvas configures its swapchain for.
type WindowBuilderOption func(w *engineWindow)

// WithTitle sets the window title displayed in the title bar.
//
// Parameters:
//   - title: the window title text
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) {
		w.title = title
	}
}

// WithMaxWidth sets the largest width the user can resize the window to.
// It is applied as a platform size limit, so the framebuffer never exceeds it times the content scale.
//
// Parameters:
//   - maxWidth: maximum width in screen coordinates
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithMaxWidth(maxWidth int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.maxWidth = maxWidth
	}
}

// WithMaxHeight sets the largest height the user can resize the window to.
//
// Parameters:
//   - maxHeight: maximum height in screen coordinates
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithMaxHeight(maxHeight int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.maxHeight = maxHeight
	}
}

// WithMinWidth sets the smallest width the user can resize the window to.
// A minimum larger than the maximum is lowered to the maximum.
// Minimizing still reports a 0x0 framebuffer regardless of this limit.
//
// Parameters:
//   - minWidth: minimum width in screen coordinates
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithMinWidth(minWidth int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.minWidth = minWidth
	}
}

// WithMinHeight sets the smallest height the user can resize the window to.
//
// Parameters:
//   - minHeight: minimum height in screen coordinates
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithMinHeight(minHeight int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.minHeight = minHeight
	}
}

// WithWidth sets the width the window is created with, clamped to the size limits.
// Width reports the resulting framebuffer width once the platform window exists.
//
// Parameters:
//   - width: requested width in screen coordinates
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithWidth(width int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.requestedWidth = width
	}
}

// WithHeight sets the height the window is created with, clamped to the size limits.
// Height reports the resulting framebuffer height once the platform window exists.
//
// Parameters:
//   - height: requested height in screen coordinates
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithHeight(height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.requestedHeight = height
	}
}
