package host

import (
	"errors"
	"fmt"

	"GlassView/internal/config"
	"GlassView/internal/engine"
	"GlassView/internal/logger"
	"GlassView/internal/panel"
	"GlassView/internal/renderer"

	"github.com/go-gl/glfw/v3.3/glfw"
	"go.uber.org/zap"
)

// keyToggles maps keyboard shortcuts to toggle bindings. F switches the orbit hook
// to free look.
var keyToggles = map[glfw.Key]string{
	glfw.KeyR: panel.ToggleReflectionPass,
	glfw.KeyC: panel.ToggleEnvironmentCapture,
	glfw.KeyT: panel.ToggleThicknessMap,
}

// Window is the GLFW display surface. It must be created and run on the main
// thread with the OS thread locked.
type Window struct {
	win          *glfw.Window
	lastX, lastY float64
	firstMouse   bool
	closed       bool
}

// OpenWindow creates a window with an OpenGL 4.1 core context made current.
func OpenWindow(cfg config.WindowConfig) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("glfw init: %w", err)
	}
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.DepthBits, 24)

	win, err := glfw.CreateWindow(int(cfg.Width), int(cfg.Height), cfg.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create window: %w", err)
	}
	win.MakeContextCurrent()
	if cfg.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}
	return &Window{win: win, firstMouse: true}, nil
}

// Size is the logical window size.
func (w *Window) Size() renderer.Size {
	width, height := w.win.GetSize()
	return renderer.Size{W: width, H: height}
}

// DevicePixelRatio is framebuffer pixels per logical pixel.
func (w *Window) DevicePixelRatio() float32 {
	width, _ := w.win.GetSize()
	fbWidth, _ := w.win.GetFramebufferSize()
	if width <= 0 || fbWidth <= 0 {
		return 1
	}
	return float32(fbWidth) / float32(width)
}

// SwapBuffers presents the back buffer.
func (w *Window) SwapBuffers() { w.win.SwapBuffers() }

// Close destroys the window and terminates GLFW. The GL device must be released
// first. Safe to call more than once.
func (w *Window) Close() {
	if w.closed {
		return
	}
	w.closed = true
	w.win.Destroy()
	glfw.Terminate()
}

// Run ticks the scheduler until the window closes, then tears the session down.
// Resizes and key presses are posted onto the session queue so they are applied
// at BeginFrame. The window stays open; call Close afterwards.
func (w *Window) Run(s *engine.SessionContext, sched *engine.Scheduler, orbit *engine.OrbitHook) {
	w.win.SetSizeCallback(func(_ *glfw.Window, width, height int) {
		s.Queue.Post(func() {
			var degenerate *engine.DegenerateViewportError
			if err := s.Resize.OnResize(width, height); err != nil && !errors.As(err, &degenerate) {
				logger.Log.Error("Resize failed", zap.Error(err))
			}
		})
	})
	w.win.SetKeyCallback(func(win *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		if key == glfw.KeyEscape {
			win.SetShouldClose(true)
			return
		}
		if key == glfw.KeyF && orbit != nil {
			logger.Log.Info("Camera mode changed", zap.Bool("free_look", orbit.ToggleFreeLook()))
			return
		}
		binding, ok := keyToggles[key]
		if !ok {
			return
		}
		s.Queue.Post(func() {
			on, err := s.Panel.Flip(binding)
			if err != nil {
				logger.Log.Warn("Toggle rejected", zap.String("key", binding), zap.Error(err))
				return
			}
			logger.Log.Info("Toggle changed", zap.String("key", binding), zap.Bool("on", on))
		})
	})
	if orbit != nil {
		w.win.SetCursorPosCallback(func(win *glfw.Window, xpos, ypos float64) {
			w.mouseMoved(win, orbit, xpos, ypos)
		})
	}

	lastTime := glfw.GetTime()
	for !w.win.ShouldClose() {
		now := glfw.GetTime()
		dt := now - lastTime
		lastTime = now

		if err := sched.Tick(dt); err != nil {
			break
		}
		glfw.PollEvents()
	}
	s.Teardown()
}

// mouseMoved drags the orbit hook while the left button is held.
func (w *Window) mouseMoved(win *glfw.Window, orbit *engine.OrbitHook, xpos, ypos float64) {
	if win.GetMouseButton(glfw.MouseButtonLeft) != glfw.Press {
		w.firstMouse = true
		return
	}
	if w.firstMouse {
		w.lastX, w.lastY = xpos, ypos
		w.firstMouse = false
		return
	}
	// Reversed since y-coordinates go from bottom to top
	orbit.Drag(float32(xpos-w.lastX), float32(w.lastY-ypos))
	w.lastX, w.lastY = xpos, ypos
}
