package renderer

import (
	"fmt"

	"GlassView/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
)

// Strategy is how a frame is composited. The planar mirror composes with either
// base strategy, so the four meaningful combinations are enumerated explicitly.
type Strategy int

const (
	Direct Strategy = iota
	ReflectionPass
	DirectMirror
	ReflectionPassMirror
)

// SelectStrategy is the only way to build a Strategy from flags.
func SelectStrategy(reflectionPass, mirror bool) Strategy {
	switch {
	case reflectionPass && mirror:
		return ReflectionPassMirror
	case reflectionPass:
		return ReflectionPass
	case mirror:
		return DirectMirror
	}
	return Direct
}

// Base drops the mirror component.
func (s Strategy) Base() Strategy {
	if s == ReflectionPass || s == ReflectionPassMirror {
		return ReflectionPass
	}
	return Direct
}

// HasMirror reports whether the planar mirror is rendered first.
func (s Strategy) HasMirror() bool {
	return s == DirectMirror || s == ReflectionPassMirror
}

func (s Strategy) String() string {
	switch s {
	case ReflectionPass:
		return "reflection_pass"
	case DirectMirror:
		return "direct+mirror"
	case ReflectionPassMirror:
		return "reflection_pass+mirror"
	}
	return "direct"
}

// FrameOptions are the per frame inputs besides the scene and camera.
type FrameOptions struct {
	Ambient       Ambient
	CubeReady     bool // the cube target holds a current capture
	ThicknessMaps bool
}

// Compositor renders a frame with a given strategy. It reads materials and never
// writes them.
type Compositor struct {
	dev       Device
	targets   *Targets
	config    PipelineConfig
	reflector *Reflector
}

// NewCompositor wires the compositor to its device and targets. reflector may be nil.
func NewCompositor(dev Device, targets *Targets, cfg PipelineConfig, reflector *Reflector) *Compositor {
	return &Compositor{dev: dev, targets: targets, config: cfg, reflector: reflector}
}

// Config returns the pipeline configuration.
func (c *Compositor) Config() PipelineConfig { return c.config }

// SetConfig replaces the pipeline configuration.
func (c *Compositor) SetConfig(cfg PipelineConfig) { c.config = cfg }

// MirrorReady reports whether a mirror plane is attached.
func (c *Compositor) MirrorReady() bool { return c.reflector.Ready() }

// Render draws one frame into the display surface. A nil or empty graph still
// produces a frame with just the cleared background.
func (c *Compositor) Render(s Strategy, g *scene.Graph, cam *Camera, opts FrameOptions) error {
	var mirror *MirrorSample
	if s.HasMirror() && c.reflector.Ready() && g != nil {
		m, err := c.renderMirror(g, cam, opts)
		if err != nil {
			return err
		}
		mirror = m
	}

	pass := ScenePass{
		Label:       "scene",
		NormalDepth: NoTarget,
		Face:        -1,
		View:        cam.GetViewMatrix(),
		Projection:  cam.Projection,
		Eye:         cam.Position,
		Ambient:     opts.Ambient,
		CubeSource:  NoTarget,
		Mirror:      mirror,

		ThicknessMaps: opts.ThicknessMaps,
	}
	if g != nil {
		pass.Items = c.visible(g.DrawList(), cam)
		pass.Env = g.Environment()
	}
	if opts.CubeReady {
		pass.CubeSource = c.targets.Cube
	}

	switch s.Base() {
	case ReflectionPass:
		return c.renderReflectionPass(pass)
	default:
		out := c.config.Output
		pass.Target = Screen
		pass.Output = &out
		c.dev.Clear(Screen)
		if err := c.dev.DrawScene(pass); err != nil {
			return fmt.Errorf("direct pass: %w", err)
		}
		return nil
	}
}

// renderReflectionPass draws linear colour plus normal/depth, adds screen space
// reflections, then tone maps to the screen.
func (c *Compositor) renderReflectionPass(pass ScenePass) error {
	t := c.targets
	pass.Target = t.ReflectionColor
	pass.NormalDepth = t.ReflectionNormalDepth
	c.dev.Clear(t.ReflectionColor)
	c.dev.Clear(t.ReflectionNormalDepth)
	if err := c.dev.DrawScene(pass); err != nil {
		return fmt.Errorf("reflection scene pass: %w", err)
	}
	if err := c.dev.DrawSSR(SSRPass{
		Color:       t.ReflectionColor,
		NormalDepth: t.ReflectionNormalDepth,
		Dst:         t.ReflectionResolve,
		Projection:  pass.Projection,
		Params:      c.config.SSR,
	}); err != nil {
		return fmt.Errorf("ssr pass: %w", err)
	}
	if err := c.dev.DrawOutput(OutputPass{Src: t.ReflectionResolve, Dst: Screen, Params: c.config.Output}); err != nil {
		return fmt.Errorf("output pass: %w", err)
	}
	return nil
}

func (c *Compositor) renderMirror(g *scene.Graph, cam *Camera, opts FrameOptions) (*MirrorSample, error) {
	mv, ok := c.reflector.MirrorCamera(g, cam)
	if !ok {
		return nil, nil
	}
	plane := c.reflector.PlaneNode()
	c.dev.Clear(c.targets.Mirror)
	err := c.dev.DrawScene(ScenePass{
		Label:       "mirror",
		Target:      c.targets.Mirror,
		NormalDepth: NoTarget,
		Face:        -1,
		View:        mv.View,
		Projection:  mv.Projection,
		Eye:         mv.Eye,
		Items:       g.DrawList(plane),
		Env:         g.Environment(),
		Ambient:     opts.Ambient,
		CubeSource:  NoTarget,
	})
	if err != nil {
		return nil, fmt.Errorf("mirror pass: %w", err)
	}
	return &MirrorSample{Target: c.targets.Mirror, Node: plane, TexMatrix: mv.TexMatrix}, nil
}

// visible applies frustum culling when enabled.
func (c *Compositor) visible(items []scene.DrawItem, cam *Camera) []scene.DrawItem {
	if !c.config.FrustumCulling || len(items) == 0 {
		return items
	}
	frustum := cam.CalculateFrustum()
	out := items[:0:0]
	for _, it := range items {
		center, radius := boundingSphere(it)
		if frustum.IntersectsSphere(center, radius) {
			out = append(out, it)
		}
	}
	return out
}

// boundingSphere is a conservative world space sphere around the item's bounds.
func boundingSphere(it scene.DrawItem) (mgl32.Vec3, float32) {
	geo := it.Node.Geometry
	localCenter := geo.BoundsMin.Add(geo.BoundsMax).Mul(0.5)
	localRadius := geo.BoundsMax.Sub(geo.BoundsMin).Len() * 0.5
	scale := max(it.World.Col(0).Vec3().Len(), it.World.Col(1).Vec3().Len(), it.World.Col(2).Vec3().Len())
	return it.World.Mul4x1(localCenter.Vec4(1)).Vec3(), localRadius * scale
}
