package panel

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"GlassView/internal/logger"
	"GlassView/internal/material"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

var (
	ErrPanelClosed    = errors.New("control panel closed")
	ErrUnknownBinding = errors.New("unknown binding")
	ErrValueKind      = errors.New("value kind mismatch")
)

// Kind is the value type of a binding.
type Kind int

const (
	KindFloat Kind = iota // float32
	KindColor             // mgl32.Vec3, each channel clamped
	KindBool              // bool
)

func (k Kind) String() string {
	switch k {
	case KindColor:
		return "color"
	case KindBool:
		return "bool"
	default:
		return "float"
	}
}

// Binding is one editable value.
type Binding struct {
	Key      string
	Kind     Kind
	Min, Max float32

	get func() any
	set func(any)
}

// Edit is a request to set Key to Value.
type Edit struct {
	Key   string
	Value any
}

// ControlPanel owns every live-editable value of the viewer: material fields of the
// bound groups and the strategy toggles.
type ControlPanel struct {
	mu       sync.Mutex
	bindings map[string]*Binding
	toggles  Toggles
	pending  []Edit
	closers  []func() error
	closed   bool
}

// New returns a panel with the toggle bindings registered.
func New(initial Toggles) *ControlPanel {
	p := &ControlPanel{bindings: make(map[string]*Binding), toggles: initial}
	p.addBool(ToggleReflectionPass, &p.toggles.reflectionPass)
	p.addBool(ToggleEnvironmentCapture, &p.toggles.environmentCapture)
	p.addBool(ToggleThicknessMap, &p.toggles.thicknessMap)
	return p
}

func (p *ControlPanel) addBool(key string, v *bool) {
	p.bindings[key] = &Binding{
		Key:  key,
		Kind: KindBool,
		Max:  1,
		get:  func() any { return *v },
		set:  func(x any) { *v = x.(bool) },
	}
}

func (p *ControlPanel) addFloat(key string, v *float32, lo, hi float32) {
	p.bindings[key] = &Binding{
		Key:  key,
		Kind: KindFloat,
		Min:  lo,
		Max:  hi,
		get:  func() any { return *v },
		set:  func(x any) { *v = x.(float32) },
	}
}

func (p *ControlPanel) addColor(key string, v *mgl32.Vec3) {
	p.bindings[key] = &Binding{
		Key:  key,
		Kind: KindColor,
		Max:  1,
		get:  func() any { return *v },
		set:  func(x any) { *v = x.(mgl32.Vec3) },
	}
}

// BindMaterial exposes the fields of spec under "<group>.<field>". Edits write the
// canonical spec of the group, so every mesh sharing it sees them; overridden clones
// do not.
func (p *ControlPanel) BindMaterial(group string, spec *material.Spec) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPanelClosed
	}
	key := func(field string) string { return group + "." + field }

	p.addColor(key("color"), &spec.Color)
	p.addFloat(key("transmission"), &spec.Transmission, 0, 1)
	p.addFloat(key("opacity"), &spec.Opacity, 0, 1)
	p.addFloat(key("metalness"), &spec.Metalness, 0, 1)
	p.addFloat(key("roughness"), &spec.Roughness, 0, 1)
	p.addFloat(key("ior"), &spec.IOR, 1, 2.333)
	p.addFloat(key("thickness"), &spec.Thickness, 0, 10)
	p.addColor(key("attenuation_color"), &spec.AttenuationColor)
	p.addFloat(key("attenuation_distance"), &spec.AttenuationDistance, 0.001, 1e9)
	p.addFloat(key("specular_intensity"), &spec.SpecularIntensity, 0, 1)
	p.addColor(key("specular_color"), &spec.SpecularColor)
	p.addFloat(key("env_map_intensity"), &spec.EnvMapIntensity, 0, 10)

	logger.Log.Debug("Material bound to control panel", zap.String("group", group))
	return nil
}

// BindFloat exposes a value owned elsewhere, such as the camera field of view. set
// only ever sees values already clamped to [lo, hi].
func (p *ControlPanel) BindFloat(key string, lo, hi float32, get func() float32, set func(float32)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPanelClosed
	}
	p.bindings[key] = &Binding{
		Key:  key,
		Kind: KindFloat,
		Min:  lo,
		Max:  hi,
		get:  func() any { return get() },
		set:  func(x any) { set(x.(float32)) },
	}
	return nil
}

// Toggles returns the current toggle state.
func (p *ControlPanel) Toggles() Toggles {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.toggles
}

// Keys lists every binding, sorted.
func (p *ControlPanel) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]string, 0, len(p.bindings))
	for k := range p.bindings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Binding describes one key for widget rendering.
func (p *ControlPanel) Binding(key string) (Binding, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.bindings[key]
	if !ok {
		return Binding{}, false
	}
	return *b, true
}

// Get returns the current value of key.
func (p *ControlPanel) Get(key string) (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPanelClosed
	}
	b, ok := p.bindings[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBinding, key)
	}
	return b.get(), nil
}

// Set validates and clamps value, then writes it in one step. Setting the value a
// binding already holds reports changed == false and writes nothing. On error
// nothing is written.
func (p *ControlPanel) Set(key string, value any) (changed bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.setLocked(key, value)
}

func (p *ControlPanel) setLocked(key string, value any) (bool, error) {
	if p.closed {
		return false, ErrPanelClosed
	}
	b, ok := p.bindings[key]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownBinding, key)
	}
	v, err := normalize(b, value)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	if b.get() == v {
		return false, nil
	}
	b.set(v)
	logger.Log.Debug("Panel edit applied", zap.String("key", key), zap.Any("value", v))
	return true, nil
}

// Submit queues an edit from any goroutine. It is applied by the next ApplyPending.
func (p *ControlPanel) Submit(edits ...Edit) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPanelClosed
	}
	p.pending = append(p.pending, edits...)
	return nil
}

// ApplyPending applies queued edits in submission order and returns the keys that
// changed. A rejected edit is logged and does not stop the rest.
func (p *ControlPanel) ApplyPending() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || len(p.pending) == 0 {
		return nil
	}
	var changed []string
	for _, e := range p.pending {
		ok, err := p.setLocked(e.Key, e.Value)
		if err != nil {
			logger.Log.Warn("Panel edit rejected", zap.String("key", e.Key), zap.Error(err))
			continue
		}
		if ok {
			changed = append(changed, e.Key)
		}
	}
	p.pending = p.pending[:0]
	return changed
}

// AddCloser registers a resource released by Teardown.
func (p *ControlPanel) AddCloser(fn func() error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closers = append(p.closers, fn)
}

// Closed reports whether Teardown ran.
func (p *ControlPanel) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Teardown drops every binding and pending edit and releases registered
// resources. Later edits fail with ErrPanelClosed.
func (p *ControlPanel) Teardown() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.bindings = make(map[string]*Binding)
	p.pending = nil
	closers := p.closers
	p.closers = nil
	p.mu.Unlock()

	var errs []error
	for _, fn := range closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	logger.Log.Info("Control panel torn down")
	return errors.Join(errs...)
}
