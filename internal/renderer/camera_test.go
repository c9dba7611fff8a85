package renderer

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func approx(a, b, eps float32) bool {
	return float32(math.Abs(float64(a-b))) <= eps
}

func vecApprox(a, b mgl32.Vec3, eps float32) bool {
	for i := range a {
		if !approx(a[i], b[i], eps) {
			return false
		}
	}
	return true
}

func testCamera() *Camera {
	return NewCamera(45, 0.1, 100, mgl32.Vec3{0, 0, 5}, mgl32.Vec3{}, 800, 600)
}

func TestNewCameraLooksAtTarget(t *testing.T) {
	cam := testCamera()

	if !vecApprox(cam.Front, mgl32.Vec3{0, 0, -1}, 1e-5) {
		t.Errorf("Front = %v, want (0,0,-1)", cam.Front)
	}
	if !approx(cam.AspectRatio, 800.0/600.0, 1e-6) {
		t.Errorf("AspectRatio = %f, want %f", cam.AspectRatio, 800.0/600.0)
	}
	if cam.Sensitivity <= 0 {
		t.Error("Camera sensitivity should be positive")
	}
}

func TestCameraGetViewMatrix(t *testing.T) {
	cam := testCamera()
	view := cam.GetViewMatrix()

	// The target sits on the -Z axis of view space.
	p := view.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	if !approx(p.Z(), -5, 1e-5) || !approx(p.X(), 0, 1e-5) {
		t.Errorf("origin in view space = %v, want (0,0,-5)", p)
	}
	if view.At(3, 3) != 1.0 {
		t.Error("View matrix should be valid (w component = 1)")
	}
}

func TestCameraProjectionIsPerspective(t *testing.T) {
	cam := testCamera()

	if cam.Projection.At(3, 3) != 0.0 {
		t.Error("Perspective projection should have w=0 at (3,3)")
	}
}

func TestCameraSetFovUpdatesProjection(t *testing.T) {
	cam := testCamera()
	cam.SetFov(90)

	want := mgl32.Perspective(mgl32.DegToRad(90), 800.0/600.0, 0.1, 100)
	for i := range want {
		if !approx(cam.Projection[i], want[i], 1e-6) {
			t.Errorf("Projection = %v, want %v", cam.Projection, want)
			break
		}
	}
}

func TestCameraSetAspectRatioUpdatesProjection(t *testing.T) {
	cam := testCamera()
	before := cam.Projection
	cam.SetAspectRatio(2)

	if cam.Projection == before {
		t.Error("Projection should change with the aspect ratio")
	}
	want := mgl32.Perspective(mgl32.DegToRad(45), 2, 0.1, 100)
	for i := range want {
		if !approx(cam.Projection[i], want[i], 1e-6) {
			t.Errorf("Projection = %v, want %v", cam.Projection, want)
			break
		}
	}
}

func TestCameraRotateClampsPitch(t *testing.T) {
	cam := testCamera()
	cam.Rotate(0, 10000)

	if cam.Pitch > 89 {
		t.Errorf("Pitch = %f, should be clamped to 89", cam.Pitch)
	}
}

func TestCameraOrbitKeepsDistance(t *testing.T) {
	cam := testCamera()
	target := mgl32.Vec3{}
	cam.Orbit(target, 300, 100)

	if d := cam.Position.Sub(target).Len(); !approx(d, 5, 1e-4) {
		t.Errorf("distance after orbit = %f, want 5", d)
	}
	dir := target.Sub(cam.Position).Normalize()
	if !vecApprox(cam.Front, dir, 1e-4) {
		t.Errorf("Front = %v, want %v", cam.Front, dir)
	}
}

func TestCameraVectorsOrthonormal(t *testing.T) {
	cam := testCamera()
	cam.Rotate(123, -45)

	if !approx(cam.Front.Dot(cam.Right), 0, 1e-5) || !approx(cam.Front.Dot(cam.Up), 0, 1e-5) {
		t.Error("Front, Right and Up should be orthogonal")
	}
	if !approx(cam.Up.Len(), 1, 1e-5) {
		t.Errorf("Up length = %f, want 1", cam.Up.Len())
	}
}

func TestFrustumCulling(t *testing.T) {
	cam := testCamera()
	frustum := cam.CalculateFrustum()

	if !frustum.IntersectsSphere(mgl32.Vec3{0, 0, 0}, 1) {
		t.Error("Sphere in front of the camera should be visible")
	}
	if frustum.IntersectsSphere(mgl32.Vec3{0, 0, 20}, 1) {
		t.Error("Sphere behind the camera should be culled")
	}
	if frustum.IntersectsSphere(mgl32.Vec3{0, 0, -500}, 1) {
		t.Error("Sphere past the far plane should be culled")
	}
}
