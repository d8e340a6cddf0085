package camera

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-canvas/common"
	"github.com/go-gl/mathgl/mgl32"
)

// project returns the normalized device coordinates of a world-space point.
func project(c Camera, p mgl32.Vec3) mgl32.Vec3 {
	clip := c.ViewProjection().Mul4x1(p.Vec4(1))
	return clip.Vec3().Mul(1 / clip.W())
}

func TestProjectionDepthRange(t *testing.T) {
	c := NewCamera(WithNear(0.5), WithFar(50))

	tests := []struct {
		name  string
		point mgl32.Vec3
		wantZ float32
		eps   float32
	}{
		{name: "near plane", point: mgl32.Vec3{0, 0, 2.5}, wantZ: 0, eps: 1e-4},
		{name: "far plane", point: mgl32.Vec3{0, 0, -47}, wantZ: 1, eps: 1e-3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ndc := project(c, tt.point)
			if !mgl32.FloatEqualThreshold(ndc.Z(), tt.wantZ, tt.eps) {
				t.Errorf("depth = %v, want %v", ndc.Z(), tt.wantZ)
			}
			if !mgl32.FloatEqualThreshold(ndc.X(), 0, 1e-5) || !mgl32.FloatEqualThreshold(ndc.Y(), 0, 1e-5) {
				t.Errorf("ndc = %v, want centered", ndc)
			}
		})
	}
}

func TestFlipY(t *testing.T) {
	above := mgl32.Vec3{0, 0.5, 0}
	if y := project(NewCamera(), above).Y(); y <= 0 {
		t.Errorf("unflipped Y = %v, want > 0", y)
	}
	if y := project(NewCamera(WithFlipY(true)), above).Y(); y >= 0 {
		t.Errorf("flipped Y = %v, want < 0", y)
	}
}

func TestSetExtent(t *testing.T) {
	c := NewCamera()
	c.SetExtent(common.NewExtent2D(1600, 900))
	if got, want := c.Aspect(), float32(1600)/900; got != want {
		t.Errorf("Aspect() = %v, want %v", got, want)
	}
	before := c.Projection()
	c.SetExtent(common.Extent2D{})
	if got := c.Projection(); got != before {
		t.Errorf("Projection() changed after a zero extent")
	}
}

func TestSetPositionUpdatesView(t *testing.T) {
	c := NewCamera()
	c.SetPosition(mgl32.Vec3{0, 0, 10})
	got := c.View().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	if !mgl32.FloatEqualThreshold(got.Z(), -10, 1e-5) {
		t.Errorf("origin in view space z = %v, want -10", got.Z())
	}
}
