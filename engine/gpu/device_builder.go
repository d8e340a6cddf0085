package gpu

import (
	"os"
	"strconv"
	"time"
)

// DefaultFenceTimeout bounds every frame fence wait. It is large enough that only a hung
// device reaches it.
const DefaultFenceTimeout = 5 * time.Second

// ValidationEnv is the environment variable that enables API validation when set to a true value.
const ValidationEnv = "OXY_VALIDATION"

// ContextBuilderOption is a functional option applied to a context during construction via NewContext.
type ContextBuilderOption func(*Context)

// WithValidation enables or disables the native API validation layers.
// Overrides the OXY_VALIDATION environment variable.
//
// Parameters:
//   - enabled: whether validation layers are requested
//
// Returns:
//   - ContextBuilderOption: a function that applies the validation option to a context
func WithValidation(enabled bool) ContextBuilderOption {
	return func(c *Context) {
		c.validation = enabled
	}
}

// WithTarget sets the window the device must be able to present to. Vulkan uses it for
// instance extensions and queue selection, WebGPU for a compatible adapter.
//
// Parameters:
//   - t: the presentation target
//
// Returns:
//   - ContextBuilderOption: a function that applies the target option to a context
func WithTarget(t Target) ContextBuilderOption {
	return func(c *Context) {
		c.target = t
	}
}

// WithFenceTimeout overrides DefaultFenceTimeout. Non-positive values are ignored.
//
// Parameters:
//   - d: the fence wait timeout
//
// Returns:
//   - ContextBuilderOption: a function that applies the timeout option to a context
func WithFenceTimeout(d time.Duration) ContextBuilderOption {
	return func(c *Context) {
		if d > 0 {
			c.fenceTimeout = d
		}
	}
}

// WithHeadlessLatency sets how long the headless backend takes to execute each submission.
//
// Parameters:
//   - d: simulated execution time per submission
//
// Returns:
//   - ContextBuilderOption: a function that applies the latency option to a context
func WithHeadlessLatency(d time.Duration) ContextBuilderOption {
	return func(c *Context) {
		c.headlessLatency = d
	}
}

// WithApplicationName sets the application name reported to the driver.
//
// Parameters:
//   - name: the application name
//
// Returns:
//   - ContextBuilderOption: a function that applies the name option to a context
func WithApplicationName(name string) ContextBuilderOption {
	return func(c *Context) {
		if name != "" {
			c.appName = name
		}
	}
}

func validationFromEnv() bool {
	v, err := strconv.ParseBool(os.Getenv(ValidationEnv))
	return err == nil && v
}
