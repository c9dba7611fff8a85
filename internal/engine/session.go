package engine

import (
	"errors"
	"fmt"
	"sync/atomic"

	"GlassView/internal/binder"
	"GlassView/internal/config"
	"GlassView/internal/loader"
	"GlassView/internal/logger"
	"GlassView/internal/material"
	"GlassView/internal/panel"
	"GlassView/internal/renderer"
	"GlassView/internal/scene"
	"GlassView/internal/texture"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// CameraFovKey is the control panel binding of the camera field of view.
const CameraFovKey = "camera.fov"

// SessionContext is the state of one viewer session. It is handed to every
// component explicitly; nothing here lives in package globals. Apart from Queue,
// Panel submissions and the torn-down flag, it is only touched on the frame thread.
type SessionContext struct {
	Config     config.ViewerConfig
	Device     renderer.Device
	Graph      *scene.Graph
	Camera     *renderer.Camera
	Targets    *renderer.Targets
	Capture    *renderer.CaptureUnit
	Reflector  *renderer.Reflector
	Compositor *renderer.Compositor
	Resize     *ResizeCoordinator
	Panel      *panel.ControlPanel
	Queue      *Queue
	Hooks      *HookManager

	Ambient renderer.Ambient

	binder   *binder.Binder
	groups   []binder.Group
	resolved bool
	loadErr  error
	reports  []binder.Report
	tornDown atomic.Bool
}

// NewSessionContext creates the render targets and the material specs of every
// configured group. viewport is the logical window size and dpr the device pixel
// ratio of the display surface. On failure dev has been released.
func NewSessionContext(cfg config.ViewerConfig, dev renderer.Device, viewport renderer.Size, dpr float32) (*SessionContext, error) {
	if cfg.Window.DevicePixelRatio > 0 {
		dpr = cfg.Window.DevicePixelRatio
	}
	viewport.W = max(viewport.W, MinViewport)
	viewport.H = max(viewport.H, MinViewport)

	targets, err := renderer.NewTargets(dev, cfg.Capture.Resolution, viewport, dpr)
	if err != nil {
		dev.Release()
		return nil, fmt.Errorf("session targets: %w", err)
	}
	pipeline, err := renderer.NewPipelineConfig(cfg.Reflection)
	if err != nil {
		targets.Release()
		dev.Release()
		return nil, fmt.Errorf("session pipeline: %w", err)
	}

	s := &SessionContext{
		Config:  cfg,
		Device:  dev,
		Graph:   scene.NewGraph(),
		Camera:  cameraFor(cfg.Camera.Fov, cfg.Camera.Near, cfg.Camera.Far, cfg.Camera.Position, cfg.Camera.Target, viewport),
		Targets: targets,
		Capture: renderer.NewCaptureUnit(cfg.Capture.Near, cfg.Capture.Far),
		Panel: panel.New(panel.NewToggles(
			cfg.Toggles.ReflectionPass,
			cfg.Toggles.EnvironmentCapture,
			cfg.Toggles.ThicknessMap,
		)),
		Queue: &Queue{},
		Hooks: NewHookManager(),
		Ambient: renderer.Ambient{
			Color:     mgl32.Vec3(cfg.Ambient.Color),
			Intensity: cfg.Ambient.Intensity,
		},
		binder: binder.New(cfg.Exclude, cfg.RenderOrderStart),
	}
	if cfg.Mirror.Enabled {
		s.Reflector = renderer.NewReflector(cfg.Mirror.ClipBias)
	}
	s.Compositor = renderer.NewCompositor(dev, targets, pipeline, s.Reflector)
	s.Resize = NewResizeCoordinator(s.Camera, targets, dev)
	dev.SetViewport(renderer.Size{
		W: renderer.ScaleDimension(viewport.W, targets.DevicePixelRatio()),
		H: renderer.ScaleDimension(viewport.H, targets.DevicePixelRatio()),
	})

	cam := s.Camera
	if err := s.Panel.BindFloat(CameraFovKey, 10, 120,
		func() float32 { return cam.Fov },
		cam.SetFov); err != nil {
		s.release()
		return nil, err
	}

	for _, gc := range cfg.Groups {
		group, err := groupFor(gc)
		if err != nil {
			s.release()
			return nil, err
		}
		s.groups = append(s.groups, group)
		if err := s.Panel.BindMaterial(gc.Name, group.Spec); err != nil {
			s.release()
			return nil, err
		}
	}

	logger.Log.Info("Session created",
		zap.Int("groups", len(s.groups)),
		zap.String("presentation", string(cfg.Presentation)),
		zap.Bool("mirror", cfg.Mirror.Enabled))
	return s, nil
}

// groupFor builds the canonical spec of a configured group.
func groupFor(gc config.GroupConfig) (binder.Group, error) {
	spec, ok := material.Preset(gc.Preset)
	if !ok {
		return binder.Group{}, fmt.Errorf("group %q: unknown preset %q", gc.Name, gc.Preset)
	}
	spec.Name = gc.Name
	overrides, err := material.ResolveOverrides(gc.Overrides)
	if err != nil {
		return binder.Group{}, fmt.Errorf("group %q: %w", gc.Name, err)
	}
	if gc.ThicknessMap != "" {
		img, err := texture.Load(gc.ThicknessMap)
		if err != nil {
			logger.Log.Warn("Thickness map unavailable",
				zap.String("group", gc.Name), zap.String("path", gc.ThicknessMap), zap.Error(err))
		} else {
			spec.ThicknessMap = img
		}
	}
	return binder.Group{Name: gc.Name, Spec: spec, Overrides: overrides}, nil
}

// Group returns the canonical spec of a configured group.
func (s *SessionContext) Group(name string) (*material.Spec, bool) {
	for _, g := range s.groups {
		if g.Name == name {
			return g.Spec, true
		}
	}
	return nil, false
}

// Adopt hands the session an asset load. The completion is posted onto the frame
// queue, so the scene is only mutated at BeginFrame.
func (s *SessionContext) Adopt(f *loader.Future) {
	f.OnResolve(func(o loader.Outcome) {
		if s.TornDown() {
			logger.Log.Debug("Discarding asset load completion", zap.Error(ErrStaleCallback))
			return
		}
		s.Queue.Post(func() {
			if err := s.Complete(o); err != nil && !errors.Is(err, ErrStaleCallback) {
				logger.Log.Error("Asset load completion failed", zap.Error(err))
			}
		})
	})
}

// Complete merges a load outcome into the scene, binds materials and places the
// capture camera and mirror. After teardown it touches nothing and returns
// ErrStaleCallback. Integrity errors are logged and returned joined; the parts that
// could be set up stay set up.
func (s *SessionContext) Complete(o loader.Outcome) error {
	if s.TornDown() {
		return ErrStaleCallback
	}
	if s.resolved {
		return fmt.Errorf("asset load completed twice")
	}
	s.resolved = true

	var errs []error
	if o.Err != nil {
		s.loadErr = o.Err
		logger.Log.Error("Asset load failed, rendering what is available", zap.Error(o.Err))
		errs = append(errs, o.Err)
	}
	if o.Env != nil {
		s.Graph.SetEnvironment(scene.Environment{Background: o.Env, Lighting: o.Env})
	}
	if o.Root == nil {
		return errors.Join(errs...)
	}

	s.Graph.Attach(scene.InvalidNode, o.Root)
	reports, err := s.binder.BindAll(s.Graph, s.groups)
	s.reports = reports
	if err != nil {
		errs = append(errs, err)
	}
	if err := s.Capture.Place(s.Graph, s.Config.Capture.AnchorNode); err != nil {
		errs = append(errs, err)
	}
	if s.Reflector != nil {
		if err := s.Reflector.Attach(s.Graph, s.Config.Mirror.PlaneNode); err != nil {
			errs = append(errs, err)
		}
	}

	logger.Log.Info("Scene bound",
		zap.Int("nodes", s.Graph.Len()),
		zap.Int("groups", len(reports)),
		zap.Bool("capture", s.Capture.Placed()),
		zap.Bool("mirror", s.Reflector.Ready()))
	return errors.Join(errs...)
}

// Ready reports whether the asset load has been merged, successfully or not.
func (s *SessionContext) Ready() bool { return s.resolved }

// LoadErr is the error the asset load resolved with, if any.
func (s *SessionContext) LoadErr() error { return s.loadErr }

// Reports are the binding results of the completed load.
func (s *SessionContext) Reports() []binder.Report { return s.reports }

// TornDown reports whether Teardown ran. Safe from any goroutine.
func (s *SessionContext) TornDown() bool { return s.tornDown.Load() }

// Teardown stops the panel, frees every render target and the device, and makes
// every later callback a no-op. It runs once.
func (s *SessionContext) Teardown() {
	if s.tornDown.Swap(true) {
		return
	}
	s.Queue.Clear()
	if err := s.Panel.Teardown(); err != nil {
		logger.Log.Warn("Panel teardown", zap.Error(err))
	}
	s.Hooks.Clear()
	s.release()
	logger.Log.Info("Session torn down")
}

func (s *SessionContext) release() {
	s.Targets.Release()
	s.Device.Release()
}
