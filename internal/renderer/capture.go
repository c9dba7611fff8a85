package renderer

import (
	"fmt"

	"GlassView/internal/logger"
	"GlassView/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// CubeFace is one of the six capture directions.
type CubeFace struct {
	Name string
	Dir  mgl32.Vec3
	Up   mgl32.Vec3
}

// CubeFaces follows the GL cube map layout: +X, -X, +Y, -Y, +Z, -Z.
var CubeFaces = [6]CubeFace{
	{"+X", mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, -1, 0}},
	{"-X", mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, -1, 0}},
	{"+Y", mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 0, 1}},
	{"-Y", mgl32.Vec3{0, -1, 0}, mgl32.Vec3{0, 0, -1}},
	{"+Z", mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, -1, 0}},
	{"-Z", mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, -1, 0}},
}

// CubeCamera renders six 90 degree views from one point.
type CubeCamera struct {
	Position mgl32.Vec3
	Near     float32
	Far      float32
}

// FaceView is the view matrix for face i.
func (c CubeCamera) FaceView(i int) mgl32.Mat4 {
	f := CubeFaces[i]
	return mgl32.LookAtV(c.Position, c.Position.Add(f.Dir), f.Up)
}

// Projection is the shared square 90 degree projection.
func (c CubeCamera) Projection() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(90), 1, c.Near, c.Far)
}

// CaptureUnit keeps the local reflection cube map current.
type CaptureUnit struct {
	camera CubeCamera
	placed bool
	anchor string
}

// NewCaptureUnit returns an unplaced capture unit.
func NewCaptureUnit(near, far float32) *CaptureUnit {
	return &CaptureUnit{camera: CubeCamera{Near: near, Far: far}}
}

// Place moves the cube camera to the world position of the anchor node. It is
// called once the scene is bound; the camera stays there afterwards.
func (u *CaptureUnit) Place(g *scene.Graph, anchor string) error {
	n, ok := g.Lookup(anchor)
	if !ok {
		err := &scene.AssetIntegrityError{Kind: "anchor", Name: anchor}
		logger.Log.Error("Environment capture disabled", zap.Error(err))
		return err
	}
	u.camera.Position = g.WorldPosition(n.ID)
	u.placed = true
	u.anchor = anchor
	logger.Log.Info("Capture camera placed",
		zap.String("anchor", anchor),
		zap.Float32("x", u.camera.Position.X()),
		zap.Float32("y", u.camera.Position.Y()),
		zap.Float32("z", u.camera.Position.Z()))
	return nil
}

// Placed reports whether Place succeeded.
func (u *CaptureUnit) Placed() bool { return u.placed }

// Camera returns the cube camera.
func (u *CaptureUnit) Camera() CubeCamera { return u.camera }

// Capture renders the six faces into targets.Cube. The graph's environment is
// cleared for the duration so the capture never sees itself, and is put back
// exactly as it was even when a face fails. It reports false without rendering
// while the unit is unplaced.
func (u *CaptureUnit) Capture(dev Device, g *scene.Graph, targets *Targets, ambient Ambient) (bool, error) {
	if !u.placed || g == nil {
		return false, nil
	}

	saved := g.Environment()
	g.SetEnvironment(scene.Environment{})
	defer g.SetEnvironment(saved)

	items := g.DrawList()
	proj := u.camera.Projection()
	for i := range CubeFaces {
		err := dev.DrawScene(ScenePass{
			Label:       "capture",
			Target:      targets.Cube,
			NormalDepth: NoTarget,
			Face:        i,
			View:        u.camera.FaceView(i),
			Projection:  proj,
			Eye:         u.camera.Position,
			Items:       items,
			Env:         g.Environment(),
			Ambient:     ambient,
			CubeSource:  NoTarget,
		})
		if err != nil {
			return false, fmt.Errorf("capture face %s: %w", CubeFaces[i].Name, err)
		}
	}
	return true, nil
}
