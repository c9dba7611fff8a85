package engine

import (
	"errors"
	"testing"

	"GlassView/internal/config"
	"GlassView/internal/loader"
	"GlassView/internal/logger"
	"GlassView/internal/material"
	"GlassView/internal/panel"
	"GlassView/internal/renderer"
	"GlassView/internal/scene"
	"GlassView/internal/texture"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func tri(name string) *scene.Geometry {
	return scene.NewGeometry(name, [][3]float32{{-1, 0, 0}, {1, 0, 0}, {0, 1, 0}}, nil, nil, []uint32{0, 1, 2})
}

// assetGraph mimics the exported asset: a light glass group, a backdrop that is
// never rebound, the capture anchor and the ground plane. dark_material is absent.
func assetGraph() *scene.Graph {
	g := scene.NewGraph()
	root := g.Add(scene.InvalidNode, scene.Node{Name: "Scene"})
	grp := g.Add(root, scene.Node{Name: "light_material"})
	g.Add(grp, scene.Node{Name: "Dragon", Kind: scene.KindMesh, Geometry: tri("dragon")})
	g.Add(grp, scene.Node{Name: "Teapot", Kind: scene.KindMesh, Geometry: tri("teapot")})
	g.Add(root, scene.Node{Name: "Cloth_Backdrop001", Kind: scene.KindMesh, Geometry: tri("cloth")})
	g.Add(root, scene.Node{Name: "reflection_anchor", Transform: scene.Transform{Position: mgl32.Vec3{0, 1, 0}}})
	g.Add(root, scene.Node{Name: "ground_plane", Kind: scene.KindMesh, Geometry: tri("ground")})
	return g
}

func testConfig() config.ViewerConfig {
	cfg := config.Default()
	cfg.Capture.Resolution = 64
	cfg.Camera.Position = [3]float32{0, 2, 5}
	return cfg
}

func newSession(t *testing.T, cfg config.ViewerConfig) (*SessionContext, *renderer.HeadlessDevice) {
	t.Helper()
	dev := renderer.NewHeadlessDevice()
	s, err := NewSessionContext(cfg, dev, renderer.Size{W: 800, H: 600}, 1)
	require.NoError(t, err)
	dev.Reset()
	return s, dev
}

func countKind(dev *renderer.HeadlessDevice, kind string) int {
	n := 0
	for _, k := range dev.Kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

func TestTickPhaseOrder(t *testing.T) {
	cfg := testConfig()
	cfg.Toggles.EnvironmentCapture = true
	s, _ := newSession(t, cfg)
	require.Error(t, s.Complete(loader.Outcome{Root: assetGraph()}))
	sched := NewScheduler(s)

	require.NoError(t, sched.Tick(0.016))
	assert.Equal(t, []Phase{
		PhaseBeginFrame, PhaseUpdateControls, PhaseCaptureEnvironment,
		PhaseSelectStrategy, PhaseRender, PhasePresent, PhasePresented,
	}, sched.Trace())
	assert.True(t, sched.Stats().Captured)
	assert.Equal(t, renderer.DirectMirror, sched.Stats().Strategy)
}

func TestTickWithoutCaptureSkipsPhase(t *testing.T) {
	s, dev := newSession(t, testConfig())
	sched := NewScheduler(s)

	require.NoError(t, sched.Tick(0.016))
	assert.NotContains(t, sched.Trace(), PhaseCaptureEnvironment)
	for _, op := range dev.Ops {
		assert.NotEqual(t, "capture", op.Label)
	}
}

func TestCaptureRunsBeforeRender(t *testing.T) {
	cfg := testConfig()
	cfg.Toggles.EnvironmentCapture = true
	s, dev := newSession(t, cfg)
	_ = s.Complete(loader.Outcome{Root: assetGraph()})
	sched := NewScheduler(s)

	require.NoError(t, sched.Tick(0.016))
	var labels []string
	for _, op := range dev.Ops {
		if op.Kind == "scene" {
			labels = append(labels, op.Label)
		}
	}
	require.Len(t, labels, 8)
	assert.Equal(t, "capture", labels[0])
	assert.Equal(t, "scene", labels[7])

	last := dev.Ops[len(dev.Ops)-2].Pass
	require.NotNil(t, last)
	assert.Equal(t, s.Targets.Cube, last.CubeSource, "the fresh capture is sampled")
}

func TestExactlyOnePresentPerTick(t *testing.T) {
	cfg := testConfig()
	cfg.Toggles.EnvironmentCapture = true
	cfg.Toggles.ReflectionPass = true
	s, dev := newSession(t, cfg)
	sched := NewScheduler(s)

	for i := 0; i < 5; i++ {
		require.NoError(t, sched.Tick(0.016))
		if i == 2 {
			_ = s.Complete(loader.Outcome{Root: assetGraph()})
		}
	}
	assert.Equal(t, 5, countKind(dev, "present"))
	assert.Equal(t, uint64(5), sched.Stats().Frame)
}

func TestTickAfterTeardown(t *testing.T) {
	s, dev := newSession(t, testConfig())
	sched := NewScheduler(s)
	s.Teardown()
	assert.True(t, dev.Released())
	dev.Reset()

	assert.ErrorIs(t, sched.Tick(0.016), ErrTornDown)
	assert.Empty(t, dev.Ops)
	assert.Empty(t, sched.Trace())
}

func TestWaitPresentationClearsUntilReady(t *testing.T) {
	cfg := testConfig()
	cfg.Presentation = config.PresentWait
	s, dev := newSession(t, cfg)
	sched := NewScheduler(s)

	require.NoError(t, sched.Tick(0.016))
	assert.Equal(t, []string{"clear", "present"}, dev.Kinds())
	assert.True(t, sched.Stats().Waiting)
	assert.NotContains(t, sched.Trace(), PhaseRender)

	s.Adopt(loader.Resolved(loader.Outcome{Root: assetGraph()}))
	dev.Reset()
	require.NoError(t, sched.Tick(0.016))
	assert.Contains(t, sched.Trace(), PhaseRender)
	assert.False(t, sched.Stats().Waiting)
	assert.Equal(t, 1, countKind(dev, "present"))
}

func TestEagerPresentationRendersEmptyScene(t *testing.T) {
	s, dev := newSession(t, testConfig())
	sched := NewScheduler(s)

	require.NoError(t, sched.Tick(0.016))
	assert.Contains(t, sched.Trace(), PhaseRender)
	assert.Equal(t, []string{"clear", "scene", "present"}, dev.Kinds())
	assert.Empty(t, dev.Ops[1].Items)
}

func TestCompleteSkipsMissingGroup(t *testing.T) {
	s, _ := newSession(t, testConfig())

	err := s.Complete(loader.Outcome{Root: assetGraph()})
	var integrity *scene.AssetIntegrityError
	require.ErrorAs(t, err, &integrity)
	assert.Equal(t, "dark_material", integrity.Name)

	light, ok := s.Group("light_material")
	require.True(t, ok)
	for _, name := range []string{"Dragon", "Teapot"} {
		n, ok := s.Graph.Lookup(name)
		require.True(t, ok)
		assert.Same(t, light, n.Material, name)
	}
	cloth, _ := s.Graph.Lookup("Cloth_Backdrop001")
	assert.Nil(t, cloth.Material, "excluded meshes are not rebound")

	assert.True(t, s.Ready())
	assert.True(t, s.Capture.Placed())
	assert.True(t, s.Compositor.MirrorReady())
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, s.Capture.Camera().Position)
}

func TestCompleteWithLoadError(t *testing.T) {
	s, _ := newSession(t, testConfig())
	env := texture.NewImage("sky", 2, 1)
	loadErr := &loader.AssetLoadError{Op: "mesh", Path: "missing.glb", Err: errors.New("no such file")}

	err := s.Complete(loader.Outcome{Env: env, Err: loadErr})
	assert.ErrorIs(t, err, loadErr)
	assert.True(t, s.Ready())
	assert.Same(t, env, s.Graph.Environment().Lighting)
	assert.Equal(t, 0, s.Graph.Len())

	sched := NewScheduler(s)
	assert.NoError(t, sched.Tick(0.016), "the session keeps running")
}

func TestStaleCompletionAfterTeardown(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	defer logger.SetLogger(zap.New(core))()

	s, dev := newSession(t, testConfig())
	light, _ := s.Group("light_material")
	before := *light

	// Posted before teardown, delivered after it.
	s.Adopt(loader.Resolved(loader.Outcome{Root: assetGraph()}))
	require.Equal(t, 1, s.Queue.Len())
	s.Teardown()
	dev.Reset()

	assert.Equal(t, 0, s.Queue.Drain())
	assert.ErrorIs(t, s.Complete(loader.Outcome{Root: assetGraph()}), ErrStaleCallback)

	// Resolved after teardown.
	s.Adopt(loader.Resolved(loader.Outcome{Root: assetGraph()}))
	assert.Equal(t, 0, s.Queue.Len())
	assert.Equal(t, 1, logs.FilterMessage("Discarding asset load completion").Len())

	assert.Equal(t, 0, s.Graph.Len())
	assert.False(t, s.Ready())
	assert.Empty(t, dev.Ops)
	assert.Equal(t, before, *light)
}

func TestReflectionToggleLeavesMaterialsAlone(t *testing.T) {
	s, _ := newSession(t, testConfig())
	_ = s.Complete(loader.Outcome{Root: assetGraph()})
	sched := NewScheduler(s)
	light, _ := s.Group("light_material")
	before := *light

	for i := 0; i < 4; i++ {
		require.NoError(t, s.Panel.Submit(panel.Edit{Key: panel.ToggleReflectionPass, Value: i%2 == 0}))
		require.NoError(t, sched.Tick(0.016))
		assert.Equal(t, before, *light)
	}
}

func TestControlsApplyBeforeRender(t *testing.T) {
	s, dev := newSession(t, testConfig())
	_ = s.Complete(loader.Outcome{Root: assetGraph()})
	sched := NewScheduler(s)

	require.NoError(t, s.Panel.Submit(
		panel.Edit{Key: panel.ToggleReflectionPass, Value: true},
		panel.Edit{Key: "light_material.roughness", Value: 0.05},
	))
	require.NoError(t, sched.Tick(0.016))

	assert.Equal(t, renderer.ReflectionPassMirror, sched.Stats().Strategy)
	assert.Equal(t, 1, countKind(dev, "ssr"))

	dragon, _ := s.Graph.Lookup("Dragon")
	assert.InDelta(t, 0.05, dragon.Material.Roughness, 1e-6)
}

func TestCaptureRestoresEnvironmentEachFrame(t *testing.T) {
	cfg := testConfig()
	cfg.Toggles.EnvironmentCapture = true
	s, _ := newSession(t, cfg)
	env := texture.NewImage("sky", 2, 1)
	_ = s.Complete(loader.Outcome{Root: assetGraph(), Env: env})
	sched := NewScheduler(s)

	before := s.Graph.Environment()
	require.NoError(t, sched.Tick(0.016))
	assert.Equal(t, before, s.Graph.Environment())
	assert.Same(t, env, s.Graph.Environment().Background)
}

func TestResizeCoordinator(t *testing.T) {
	cfg := testConfig()
	cfg.Window.DevicePixelRatio = 2
	s, dev := newSession(t, cfg)

	require.NoError(t, s.Resize.OnResize(400, 300))
	for _, id := range s.Targets.ViewportDerived() {
		size, ok := dev.TargetSize(id)
		require.True(t, ok)
		assert.Equal(t, renderer.Size{W: 800, H: 600}, size)
	}
	cube, _ := dev.TargetSize(s.Targets.Cube)
	assert.Equal(t, renderer.Size{W: 64, H: 64}, cube)
	assert.Equal(t, renderer.Size{W: 800, H: 600}, dev.Viewport())
	assert.InDelta(t, 400.0/300.0, s.Camera.AspectRatio, 1e-6)

	err := s.Resize.OnResize(0, -5)
	var degenerate *DegenerateViewportError
	require.ErrorAs(t, err, &degenerate)
	assert.Equal(t, [2]int{1, 1}, degenerate.Clamped)
	assert.InDelta(t, 1, s.Camera.AspectRatio, 1e-6)
	for _, id := range s.Targets.ViewportDerived() {
		size, _ := dev.TargetSize(id)
		assert.Equal(t, renderer.Size{W: 2, H: 2}, size)
	}
	assert.False(t, mgl32.Mat4{}.ApproxEqual(s.Camera.Projection))
}

func TestResizeFailureKeepsPreviousState(t *testing.T) {
	s, dev := newSession(t, testConfig())
	aspect := s.Camera.AspectRatio
	projection := s.Camera.Projection
	boom := errors.New("out of memory")
	resized := 0
	dev.Fail = func(op renderer.Op) error {
		if op.Kind == "resize" && op.Size == (renderer.Size{W: 400, H: 300}) {
			resized++
			if resized == 2 {
				return boom
			}
		}
		return nil
	}

	err := s.Resize.OnResize(400, 300)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, aspect, s.Camera.AspectRatio)
	assert.Equal(t, projection, s.Camera.Projection)
	assert.Equal(t, renderer.Size{W: 800, H: 600}, dev.Viewport())
	assert.Equal(t, renderer.Size{W: 800, H: 600}, s.Targets.Viewport())
	for _, id := range s.Targets.ViewportDerived() {
		size, _ := dev.TargetSize(id)
		assert.Equal(t, renderer.Size{W: 800, H: 600}, size)
	}
}

func TestResizeThroughQueue(t *testing.T) {
	s, dev := newSession(t, testConfig())
	sched := NewScheduler(s)

	s.Queue.Post(func() { _ = s.Resize.OnResize(1024, 512) })
	require.NoError(t, sched.Tick(0.016))
	size, _ := dev.TargetSize(s.Targets.Mirror)
	assert.Equal(t, renderer.Size{W: 1024, H: 512}, size)
	assert.Equal(t, renderer.Size{W: 1024, H: 512}, s.Targets.Viewport())
}

func TestQueueOrder(t *testing.T) {
	var q Queue
	var got []int
	q.Post(func() { got = append(got, 1) })
	q.Post(func() {
		got = append(got, 2)
		q.Post(func() { got = append(got, 3) })
	})

	assert.Equal(t, 2, q.Drain())
	assert.Equal(t, []int{1, 2}, got)
	assert.Equal(t, 1, q.Drain())
	assert.Equal(t, []int{1, 2, 3}, got)
}

type countingHook struct{ starts, updates int }

func (h *countingHook) Start(*SessionContext)           { h.starts++ }
func (h *countingHook) Update(*SessionContext, float64) { h.updates++ }

func TestHooksRunAtBeginFrame(t *testing.T) {
	s, _ := newSession(t, testConfig())
	sched := NewScheduler(s)
	h := &countingHook{}
	s.Hooks.Add(h)

	for i := 0; i < 3; i++ {
		require.NoError(t, sched.Tick(0.016))
	}
	assert.Equal(t, 1, h.starts)
	assert.Equal(t, 3, h.updates)

	s.Hooks.Remove(h)
	require.NoError(t, sched.Tick(0.016))
	assert.Equal(t, 3, h.updates)
}

func TestOrbitHookKeepsDistance(t *testing.T) {
	s, _ := newSession(t, testConfig())
	sched := NewScheduler(s)
	orbit := NewOrbitHook(mgl32.Vec3{})
	s.Hooks.Add(orbit)

	start := s.Camera.Position
	orbit.Drag(200, 50)
	require.NoError(t, sched.Tick(0.016))

	assert.NotEqual(t, start, s.Camera.Position)
	assert.InDelta(t, start.Len(), s.Camera.Position.Len(), 1e-4)
}

func TestOrbitHookFreeLookTurnsInPlace(t *testing.T) {
	s, _ := newSession(t, testConfig())
	sched := NewScheduler(s)
	orbit := NewOrbitHook(mgl32.Vec3{})
	s.Hooks.Add(orbit)
	require.NoError(t, sched.Tick(0.016))

	require.True(t, orbit.ToggleFreeLook())
	start, yaw := s.Camera.Position, s.Camera.Yaw
	orbit.Drag(100, 10000)
	require.NoError(t, sched.Tick(0.016))

	assert.Equal(t, start, s.Camera.Position)
	assert.InDelta(t, yaw+100*s.Camera.Sensitivity, s.Camera.Yaw, 1e-4)
	assert.LessOrEqual(t, s.Camera.Pitch, float32(89))

	assert.False(t, orbit.ToggleFreeLook())
	orbit.Drag(50, 0)
	require.NoError(t, sched.Tick(0.016))
	assert.NotEqual(t, start, s.Camera.Position)
}

func TestCameraFovThroughPanel(t *testing.T) {
	s, _ := newSession(t, testConfig())
	sched := NewScheduler(s)
	before := s.Camera.Projection

	require.NoError(t, s.Panel.Submit(panel.Edit{Key: CameraFovKey, Value: 200}))
	require.NoError(t, sched.Tick(0.016))

	assert.Equal(t, float32(120), s.Camera.Fov)
	assert.NotEqual(t, before, s.Camera.Projection)
	v, err := s.Panel.Get(CameraFovKey)
	require.NoError(t, err)
	assert.Equal(t, float32(120), v)
}

func TestSessionRejectsUnknownPreset(t *testing.T) {
	cfg := testConfig()
	cfg.Groups = []config.GroupConfig{{Name: "light_material", Preset: "crystal"}}
	dev := renderer.NewHeadlessDevice()

	_, err := NewSessionContext(cfg, dev, renderer.Size{W: 10, H: 10}, 1)
	assert.Error(t, err)
	assert.True(t, dev.Released())
}

func TestSessionReleasesDeviceWhenTargetsFail(t *testing.T) {
	dev := renderer.NewHeadlessDevice()
	boom := errors.New("out of memory")
	dev.Fail = func(op renderer.Op) error {
		if op.Kind == "create" && op.Label == renderer.TargetNormalDepth.String() {
			return boom
		}
		return nil
	}

	_, err := NewSessionContext(testConfig(), dev, renderer.Size{W: 10, H: 10}, 1)
	require.ErrorIs(t, err, boom)
	assert.True(t, dev.Released())
}

func TestGroupOverridesAreCloned(t *testing.T) {
	cfg := testConfig()
	cfg.Groups = []config.GroupConfig{{
		Name:      "light_material",
		Preset:    "light_glass",
		Overrides: map[string][]string{"Teapot": {"opaque"}},
	}}
	s, _ := newSession(t, cfg)
	require.NoError(t, s.Complete(loader.Outcome{Root: assetGraph()}))

	light, _ := s.Group("light_material")
	teapot, _ := s.Graph.Lookup("Teapot")
	assert.NotSame(t, light, teapot.Material)
	assert.Zero(t, teapot.Material.Transmission)

	_, err := s.Panel.Set("light_material.ior", 1.2)
	require.NoError(t, err)
	assert.InDelta(t, material.LightGlass().IOR, teapot.Material.IOR, 1e-6)
}
