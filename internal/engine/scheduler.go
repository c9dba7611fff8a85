package engine

import (
	"time"

	"GlassView/internal/config"
	"GlassView/internal/logger"
	"GlassView/internal/renderer"

	"go.uber.org/zap"
)

// Phase is one step of a frame.
type Phase string

const (
	PhaseBeginFrame         Phase = "begin_frame"
	PhaseUpdateControls     Phase = "update_controls"
	PhaseCaptureEnvironment Phase = "capture_environment"
	PhaseSelectStrategy     Phase = "select_strategy"
	PhaseRender             Phase = "render"
	PhasePresent            Phase = "present"
	PhasePresented          Phase = "presented"
)

// FrameStats describes the last completed tick.
type FrameStats struct {
	Frame    uint64
	Strategy renderer.Strategy
	Captured bool
	Waiting  bool // wait presentation, scene not ready
	Duration time.Duration
}

// Scheduler drives one session a tick at a time. Every tick presents exactly one
// frame until the session is torn down.
type Scheduler struct {
	s     *SessionContext
	trace []Phase
	stats FrameStats
	frame uint64
	now   func() time.Time
}

func NewScheduler(s *SessionContext) *Scheduler {
	return &Scheduler{s: s, now: time.Now}
}

// Trace is the phase sequence of the last tick.
func (sc *Scheduler) Trace() []Phase {
	return append([]Phase(nil), sc.trace...)
}

// Stats describes the last tick.
func (sc *Scheduler) Stats() FrameStats { return sc.stats }

func (sc *Scheduler) enter(p Phase) {
	sc.trace = append(sc.trace, p)
}

// Tick runs one frame: BeginFrame, UpdateControls, an optional
// CaptureEnvironment, SelectStrategy, Render, Present. Render and capture
// failures are logged and the frame is still presented. After teardown Tick does
// nothing and returns ErrTornDown.
func (sc *Scheduler) Tick(dt float64) error {
	s := sc.s
	sc.trace = sc.trace[:0]
	if s.TornDown() {
		return ErrTornDown
	}
	start := sc.now()
	sc.frame++
	stats := FrameStats{Frame: sc.frame}

	sc.enter(PhaseBeginFrame)
	s.Queue.Drain()
	s.Hooks.UpdateAll(s, dt)
	if s.TornDown() {
		// A queued func or hook ended the session.
		return ErrTornDown
	}

	sc.enter(PhaseUpdateControls)
	s.Panel.ApplyPending()
	toggles := s.Panel.Toggles()

	if s.Config.Presentation == config.PresentWait && !s.Ready() {
		stats.Waiting = true
		s.Device.Clear(renderer.Screen)
		sc.present(stats, start)
		return nil
	}

	cubeReady := false
	if toggles.EnvironmentCapture() {
		sc.enter(PhaseCaptureEnvironment)
		ok, err := s.Capture.Capture(s.Device, s.Graph, s.Targets, s.Ambient)
		if err != nil {
			logger.Log.Warn("Environment capture failed", zap.Error(err))
		}
		cubeReady = ok && err == nil
		stats.Captured = cubeReady
	}

	sc.enter(PhaseSelectStrategy)
	mirror := s.Config.Mirror.Enabled && s.Compositor.MirrorReady()
	stats.Strategy = renderer.SelectStrategy(toggles.ReflectionPass(), mirror)

	sc.enter(PhaseRender)
	err := s.Compositor.Render(stats.Strategy, s.Graph, s.Camera, renderer.FrameOptions{
		Ambient:       s.Ambient,
		CubeReady:     cubeReady,
		ThicknessMaps: toggles.ThicknessMap(),
	})
	if err != nil {
		logger.Log.Error("Frame render failed", zap.Uint64("frame", sc.frame), zap.Error(err))
	}

	sc.present(stats, start)
	return nil
}

func (sc *Scheduler) present(stats FrameStats, start time.Time) {
	sc.enter(PhasePresent)
	sc.s.Device.Present()
	sc.enter(PhasePresented)

	stats.Duration = sc.now().Sub(start)
	sc.stats = stats
	logger.Log.Debug("Frame presented",
		zap.Uint64("frame", stats.Frame),
		zap.Stringer("strategy", stats.Strategy),
		zap.Bool("captured", stats.Captured),
		zap.Bool("waiting", stats.Waiting),
		zap.Duration("duration", stats.Duration))
}
