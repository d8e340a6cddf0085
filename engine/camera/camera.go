package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-canvas/common"
	"github.com/go-gl/mathgl/mgl32"
)

// clipCorrection maps OpenGL clip space depth [-1, 1] onto the [0, 1] range both GPU backends use.
var clipCorrection = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

type cameraImpl struct {
	mu sync.Mutex

	position mgl32.Vec3
	target   mgl32.Vec3
	up       mgl32.Vec3

	fov    float32
	aspect float32
	near   float32
	far    float32
	flipY  bool

	view       mgl32.Mat4
	projection mgl32.Mat4
}

// Camera holds a look-at transform and perspective settings and produces the matrices
// passed to shaders through push constants.
// Matrices are recomputed whenever a setting changes, so reads are cheap.
type Camera interface {
	// Position returns the camera's world-space position.
	//
	// Returns:
	//   - mgl32.Vec3: the position
	Position() mgl32.Vec3

	// Target returns the world-space point the camera looks at.
	//
	// Returns:
	//   - mgl32.Vec3: the look-at point
	Target() mgl32.Vec3

	// Up returns the camera's up vector.
	//
	// Returns:
	//   - mgl32.Vec3: the up vector
	Up() mgl32.Vec3

	// Fov returns the vertical field of view in radians.
	//
	// Returns:
	//   - float32: field of view in radians
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	//
	// Returns:
	//   - float32: the aspect ratio
	Aspect() float32

	// Near returns the near clipping plane distance.
	//
	// Returns:
	//   - float32: near plane distance
	Near() float32

	// Far returns the far clipping plane distance.
	//
	// Returns:
	//   - float32: far plane distance
	Far() float32

	// View returns the current view matrix.
	//
	// Returns:
	//   - mgl32.Mat4: the view matrix
	View() mgl32.Mat4

	// Projection returns the current projection matrix, producing depth in [0, 1].
	//
	// Returns:
	//   - mgl32.Mat4: the projection matrix
	Projection() mgl32.Mat4

	// ViewProjection returns Projection * View.
	//
	// Returns:
	//   - mgl32.Mat4: the combined matrix
	ViewProjection() mgl32.Mat4

	// SetPosition moves the camera.
	//
	// Parameters:
	//   - p: world-space position
	SetPosition(p mgl32.Vec3)

	// SetTarget sets the look-at point.
	//
	// Parameters:
	//   - t: world-space point
	SetTarget(t mgl32.Vec3)

	// SetUp sets the camera's up vector.
	//
	// Parameters:
	//   - up: the up vector
	SetUp(up mgl32.Vec3)

	// SetFov sets the vertical field of view in radians.
	//
	// Parameters:
	//   - fov: field of view in radians
	SetFov(fov float32)

	// SetAspect sets the aspect ratio (width / height).
	//
	// Parameters:
	//   - aspect: the aspect ratio
	SetAspect(aspect float32)

	// SetExtent sets the aspect ratio from a framebuffer size. A zero sized extent is ignored,
	// so a minimized window keeps the last usable projection.
	//
	// Parameters:
	//   - extent: the framebuffer size
	SetExtent(extent common.Extent2D)

	// SetNear sets the near clipping plane distance.
	//
	// Parameters:
	//   - near: near plane distance
	SetNear(near float32)

	// SetFar sets the far clipping plane distance.
	//
	// Parameters:
	//   - far: far plane distance
	SetFar(far float32)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a Camera at (0, 0, 3) looking at the origin with a 45 degree field of view.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		position: mgl32.Vec3{0, 0, 3},
		up:       mgl32.Vec3{0, 1, 0},
		fov:      mgl32.DegToRad(45),
		aspect:   1,
		near:     0.1,
		far:      100,
	}
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Position() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *cameraImpl) Target() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

func (c *cameraImpl) Up() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) View() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *cameraImpl) Projection() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projection
}

func (c *cameraImpl) ViewProjection() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projection.Mul4(c.view)
}

func (c *cameraImpl) SetPosition(p mgl32.Vec3) {
	c.update(func() { c.position = p })
}

func (c *cameraImpl) SetTarget(t mgl32.Vec3) {
	c.update(func() { c.target = t })
}

func (c *cameraImpl) SetUp(up mgl32.Vec3) {
	c.update(func() { c.up = up })
}

func (c *cameraImpl) SetFov(fov float32) {
	c.update(func() { c.fov = fov })
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.update(func() { c.aspect = aspect })
}

func (c *cameraImpl) SetExtent(extent common.Extent2D) {
	if extent.IsZero() {
		return
	}
	c.SetAspect(float32(extent.Width) / float32(extent.Height))
}

func (c *cameraImpl) SetNear(near float32) {
	c.update(func() { c.near = near })
}

func (c *cameraImpl) SetFar(far float32) {
	c.update(func() { c.far = far })
}

func (c *cameraImpl) update(set func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	set()
	c.updateMatrices()
}

// updateMatrices recalculates the view and projection matrices.
// Caller must hold the mutex or own the camera exclusively.
func (c *cameraImpl) updateMatrices() {
	c.view = mgl32.LookAtV(c.position, c.target, c.up)
	correction := clipCorrection
	if c.flipY {
		correction.Set(1, 1, -1)
	}
	c.projection = correction.Mul4(mgl32.Perspective(c.fov, c.aspect, c.near, c.far))
}
