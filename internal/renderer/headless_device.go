package renderer

import (
	"fmt"

	"GlassView/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
)

// Op is one call recorded by HeadlessDevice.
type Op struct {
	Kind   string // create, resize, delete, viewport, clear, scene, ssr, output, present
	Label  string
	Target TargetID
	Face   int
	Size   Size
	Items  []string
	Env    scene.Environment
	Pass   *ScenePass

	// Weights is the screen space reflection weight of each mesh an ssr op reads.
	Weights map[string]float32
	// White is unit white through an output op's exposure and tone curve.
	White mgl32.Vec3
}

type headlessTarget struct {
	kind TargetKind
	size Size
}

// HeadlessDevice records GPU work instead of doing it. It backs tests and runs
// without a window.
type HeadlessDevice struct {
	Ops []Op
	// Fail, when set, can reject an operation before it is recorded.
	Fail func(op Op) error

	targets  map[TargetID]headlessTarget
	drawn    map[TargetID][]scene.DrawItem
	next     TargetID
	viewport Size
	released bool
}

// NewHeadlessDevice returns an empty recorder.
func NewHeadlessDevice() *HeadlessDevice {
	return &HeadlessDevice{
		targets: make(map[TargetID]headlessTarget),
		drawn:   make(map[TargetID][]scene.DrawItem),
		next:    1,
	}
}

func (d *HeadlessDevice) record(op Op) error {
	if d.Fail != nil {
		if err := d.Fail(op); err != nil {
			return err
		}
	}
	d.Ops = append(d.Ops, op)
	return nil
}

func (d *HeadlessDevice) CreateTarget(kind TargetKind, size Size) (TargetID, error) {
	if size.W < 1 || size.H < 1 {
		return NoTarget, fmt.Errorf("create %s target: invalid size %s", kind, size)
	}
	id := d.next
	if err := d.record(Op{Kind: "create", Label: kind.String(), Target: id, Size: size}); err != nil {
		return NoTarget, err
	}
	d.next++
	d.targets[id] = headlessTarget{kind: kind, size: size}
	return id, nil
}

func (d *HeadlessDevice) ResizeTarget(id TargetID, size Size) error {
	t, ok := d.targets[id]
	if !ok {
		return fmt.Errorf("resize target %d: unknown target", id)
	}
	if err := d.record(Op{Kind: "resize", Label: t.kind.String(), Target: id, Size: size}); err != nil {
		return err
	}
	t.size = size
	d.targets[id] = t
	return nil
}

func (d *HeadlessDevice) DeleteTarget(id TargetID) {
	if _, ok := d.targets[id]; !ok {
		return
	}
	_ = d.record(Op{Kind: "delete", Target: id})
	delete(d.targets, id)
}

func (d *HeadlessDevice) SetViewport(size Size) {
	d.viewport = size
	_ = d.record(Op{Kind: "viewport", Target: Screen, Size: size})
}

func (d *HeadlessDevice) Clear(target TargetID) {
	_ = d.record(Op{Kind: "clear", Target: target})
}

func (d *HeadlessDevice) DrawScene(p ScenePass) error {
	names := make([]string, 0, len(p.Items))
	for _, it := range p.Items {
		names = append(names, it.Node.Name)
	}
	pass := p
	if err := d.record(Op{Kind: "scene", Label: p.Label, Target: p.Target, Face: p.Face, Items: names, Env: p.Env, Pass: &pass}); err != nil {
		return err
	}
	d.drawn[p.Target] = p.Items
	return nil
}

// DrawSSR weighs every mesh last drawn into p.Color the way the ssr shader does.
func (d *HeadlessDevice) DrawSSR(p SSRPass) error {
	weights := make(map[string]float32)
	for _, it := range d.drawn[p.Color] {
		if it.Node.Material == nil {
			continue
		}
		weights[it.Node.Name] = ReflectionWeight(it.Node.Material.Roughness, p.Params.RoughnessFalloff) * p.Params.Intensity
	}
	return d.record(Op{Kind: "ssr", Target: p.Dst, Face: -1, Weights: weights})
}

func (d *HeadlessDevice) DrawOutput(p OutputPass) error {
	white := ToneMap(mgl32.Vec3{1, 1, 1}, p.Params)
	return d.record(Op{Kind: "output", Target: p.Dst, Face: -1, White: white})
}

func (d *HeadlessDevice) Present() {
	_ = d.record(Op{Kind: "present", Target: Screen, Face: -1})
}

func (d *HeadlessDevice) Release() {
	d.released = true
	d.targets = make(map[TargetID]headlessTarget)
	d.drawn = make(map[TargetID][]scene.DrawItem)
}

// TargetSize reports the current size of a live target.
func (d *HeadlessDevice) TargetSize(id TargetID) (Size, bool) {
	t, ok := d.targets[id]
	return t.size, ok
}

// Viewport is the last size passed to SetViewport.
func (d *HeadlessDevice) Viewport() Size { return d.viewport }

// Released reports whether Release was called.
func (d *HeadlessDevice) Released() bool { return d.released }

// Kinds lists the recorded op kinds in order, for compact assertions.
func (d *HeadlessDevice) Kinds() []string {
	out := make([]string, len(d.Ops))
	for i, op := range d.Ops {
		out[i] = op.Kind
	}
	return out
}

// Reset forgets recorded ops but keeps targets.
func (d *HeadlessDevice) Reset() { d.Ops = nil }
