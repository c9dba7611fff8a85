package engine

import (
	"sync"

	"GlassView/internal/renderer"

	"github.com/go-gl/mathgl/mgl32"
)

// FrameHook runs at BeginFrame. Start is called once before the first Update.
type FrameHook interface {
	Start(s *SessionContext)
	Update(s *SessionContext, dt float64)
}

type hookWrapper struct {
	hook    FrameHook
	started bool
}

// HookManager runs frame hooks in registration order.
type HookManager struct {
	hooks []hookWrapper
}

func NewHookManager() *HookManager {
	return &HookManager{}
}

func (m *HookManager) Add(hook FrameHook) {
	m.hooks = append(m.hooks, hookWrapper{hook: hook})
}

func (m *HookManager) Remove(hook FrameHook) {
	for i := range m.hooks {
		if m.hooks[i].hook == hook {
			m.hooks = append(m.hooks[:i], m.hooks[i+1:]...)
			return
		}
	}
}

// Clear removes all hooks
func (m *HookManager) Clear() {
	m.hooks = m.hooks[:0]
}

func (m *HookManager) Len() int { return len(m.hooks) }

func (m *HookManager) UpdateAll(s *SessionContext, dt float64) {
	for i := range m.hooks {
		if !m.hooks[i].started {
			m.hooks[i].hook.Start(s)
			m.hooks[i].started = true
		}
		m.hooks[i].hook.Update(s, dt)
	}
}

// OrbitHook turns pointer drags into camera orbits around a target, or into
// in-place yaw and pitch while free look is on. Drag may be called from input
// callbacks; the camera moves only in Update.
type OrbitHook struct {
	Target mgl32.Vec3
	// AutoRotate spins the camera, in degrees per second. Ignored in free look.
	AutoRotate float32

	mu       sync.Mutex
	dx, dy   float32
	freeLook bool
}

func NewOrbitHook(target mgl32.Vec3) *OrbitHook {
	return &OrbitHook{Target: target}
}

// Drag accumulates pointer movement in pixels.
func (o *OrbitHook) Drag(dx, dy float32) {
	o.mu.Lock()
	o.dx += dx
	o.dy += dy
	o.mu.Unlock()
}

// ToggleFreeLook switches between orbiting and free look and returns the new mode.
func (o *OrbitHook) ToggleFreeLook() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.freeLook = !o.freeLook
	return o.freeLook
}

func (o *OrbitHook) FreeLook() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.freeLook
}

func (o *OrbitHook) Start(s *SessionContext) {
	if s.Camera != nil {
		s.Camera.LookAt(o.Target)
	}
}

func (o *OrbitHook) Update(s *SessionContext, dt float64) {
	o.mu.Lock()
	dx, dy := o.dx, o.dy
	o.dx, o.dy = 0, 0
	freeLook := o.freeLook
	o.mu.Unlock()

	cam := s.Camera
	if cam == nil {
		return
	}
	if freeLook {
		if dx != 0 || dy != 0 {
			cam.Rotate(dx, dy)
		}
		return
	}
	if o.AutoRotate != 0 && cam.Sensitivity > 0 {
		dx += o.AutoRotate * float32(dt) / cam.Sensitivity
	}
	if dx == 0 && dy == 0 {
		return
	}
	cam.Orbit(o.Target, dx, dy)
}

var _ FrameHook = (*OrbitHook)(nil)

// cameraFor builds the session camera from config values.
func cameraFor(fov, near, far float32, position, target [3]float32, viewport renderer.Size) *renderer.Camera {
	return renderer.NewCamera(fov, near, far, mgl32.Vec3(position), mgl32.Vec3(target), viewport.W, viewport.H)
}
