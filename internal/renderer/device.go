package renderer

import (
	"fmt"

	"GlassView/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
)

// TargetID names a render target owned by a Device.
type TargetID int32

const (
	// Screen is the display surface.
	Screen TargetID = 0
	// NoTarget marks an unused target slot.
	NoTarget TargetID = -1
)

// TargetKind is the storage layout of a render target.
type TargetKind int

const (
	TargetColor       TargetKind = iota // RGBA16F colour + depth
	TargetNormalDepth                   // view-space normal in rgb, linear depth in a
	TargetCube                          // six square RGBA16F faces
)

func (k TargetKind) String() string {
	switch k {
	case TargetNormalDepth:
		return "normal_depth"
	case TargetCube:
		return "cube"
	default:
		return "color"
	}
}

// Size is a pixel resolution.
type Size struct {
	W, H int
}

func (s Size) String() string { return fmt.Sprintf("%dx%d", s.W, s.H) }

// Aspect is W/H.
func (s Size) Aspect() float32 {
	if s.H == 0 {
		return 1
	}
	return float32(s.W) / float32(s.H)
}

// Ambient is a uniform light added to every surface.
type Ambient struct {
	Color     mgl32.Vec3
	Intensity float32
}

// MirrorSample tells a scene pass which node shows the planar mirror and how to
// project world positions into the mirror target.
type MirrorSample struct {
	Target    TargetID
	Node      scene.NodeID
	TexMatrix mgl32.Mat4
}

// ScenePass draws a list of meshes from one viewpoint.
type ScenePass struct {
	Label       string
	Target      TargetID
	NormalDepth TargetID // also written when not NoTarget
	Face        int      // cube face for TargetCube, -1 otherwise
	View        mgl32.Mat4
	Projection  mgl32.Mat4
	Eye         mgl32.Vec3
	Items       []scene.DrawItem
	Env         scene.Environment
	Ambient     Ambient

	CubeSource    TargetID // sampled by materials whose EnvMap is EnvCapture
	Mirror        *MirrorSample
	ThicknessMaps bool
	Output        *OutputParams // tone map in the scene shader when set
}

// SSRPass marches the normal/depth buffer to add screen space reflections to Color.
type SSRPass struct {
	Color       TargetID
	NormalDepth TargetID
	Dst         TargetID
	Projection  mgl32.Mat4
	Params      SSRParams
}

// OutputPass tone maps and encodes Src into Dst.
type OutputPass struct {
	Src    TargetID
	Dst    TargetID
	Params OutputParams
}

// Device is the GPU seam. Every method is called from the frame thread only.
type Device interface {
	CreateTarget(kind TargetKind, size Size) (TargetID, error)
	ResizeTarget(id TargetID, size Size) error
	DeleteTarget(id TargetID)
	SetViewport(size Size)
	Clear(target TargetID)
	DrawScene(p ScenePass) error
	DrawSSR(p SSRPass) error
	DrawOutput(p OutputPass) error
	Present()
	Release()
}
