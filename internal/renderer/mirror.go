package renderer

import (
	"GlassView/internal/logger"
	"GlassView/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// textureBias maps clip space [-1,1] to texture space [0,1].
var textureBias = mgl32.Mat4{
	0.5, 0, 0, 0,
	0, 0.5, 0, 0,
	0, 0, 0.5, 0,
	0.5, 0.5, 0.5, 1,
}

// Reflector renders the scene mirrored across a ground plane node into a target
// that the plane's material samples.
type Reflector struct {
	// LocalNormal is the plane normal in the node's own space.
	LocalNormal mgl32.Vec3
	ClipBias    float32

	plane scene.NodeID
	name  string
}

// MirrorView is one frame's virtual camera.
type MirrorView struct {
	View       mgl32.Mat4
	Projection mgl32.Mat4
	Eye        mgl32.Vec3
	TexMatrix  mgl32.Mat4
}

// NewReflector returns a reflector for planes facing +Y.
func NewReflector(clipBias float32) *Reflector {
	return &Reflector{LocalNormal: mgl32.Vec3{0, 1, 0}, ClipBias: clipBias, plane: scene.InvalidNode}
}

// Attach binds the reflector to the named plane node.
func (r *Reflector) Attach(g *scene.Graph, planeName string) error {
	n, ok := g.Lookup(planeName)
	if !ok {
		err := &scene.AssetIntegrityError{Kind: "plane", Name: planeName}
		logger.Log.Error("Planar mirror disabled", zap.Error(err))
		return err
	}
	r.plane = n.ID
	r.name = planeName
	return nil
}

// Ready reports whether a plane is attached.
func (r *Reflector) Ready() bool { return r != nil && r.plane != scene.InvalidNode }

// PlaneNode is the attached node, or scene.InvalidNode.
func (r *Reflector) PlaneNode() scene.NodeID { return r.plane }

// WorldPlane returns the plane's world normal and a point on it.
func (r *Reflector) WorldPlane(g *scene.Graph) (normal, point mgl32.Vec3) {
	world := g.WorldMatrix(r.plane)
	point = world.Col(3).Vec3()
	normal = world.Mat3().Inv().Transpose().Mul3x1(r.LocalNormal).Normalize()
	return normal, point
}

// MirrorCamera builds the virtual camera for cam. ok is false when cam looks at
// the back of the plane, in which case nothing should be rendered.
func (r *Reflector) MirrorCamera(g *scene.Graph, cam *Camera) (MirrorView, bool) {
	normal, point := r.WorldPlane(g)

	view := point.Sub(cam.Position)
	if view.Dot(normal) > 0 {
		return MirrorView{}, false
	}
	eye := reflect(view, normal).Mul(-1).Add(point)

	lookAt := cam.Position.Add(cam.Front)
	target := reflect(point.Sub(lookAt), normal).Mul(-1).Add(point)
	up := reflect(cam.Up, normal)

	mv := MirrorView{
		View: mgl32.LookAtV(eye, target, up),
		Eye:  eye,
	}

	// Projection with its near plane replaced by the mirror plane (Lengyel's
	// oblique frustum) so nothing behind the mirror leaks in.
	proj := cam.Projection
	n := mv.View.Mat3().Inv().Transpose().Mul3x1(normal).Normalize()
	p := mv.View.Mul4x1(point.Vec4(1)).Vec3()
	clip := mgl32.Vec4{n.X(), n.Y(), n.Z(), -n.Dot(p)}

	q := mgl32.Vec4{
		(sign(clip.X()) + proj[8]) / proj[0],
		(sign(clip.Y()) + proj[9]) / proj[5],
		-1,
		(1 + proj[10]) / proj[14],
	}
	clip = clip.Mul(2 / clip.Dot(q))
	proj[2] = clip.X()
	proj[6] = clip.Y()
	proj[10] = clip.Z() + 1 - r.ClipBias
	proj[14] = clip.W()

	mv.Projection = proj
	mv.TexMatrix = textureBias.Mul4(proj).Mul4(mv.View)
	return mv, true
}

// reflect mirrors v across the plane with unit normal n.
func reflect(v, n mgl32.Vec3) mgl32.Vec3 {
	return v.Sub(n.Mul(2 * v.Dot(n)))
}

func sign(v float32) float32 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
