package renderer

import (
	"fmt"
	"math"

	"GlassView/internal/logger"

	"go.uber.org/zap"
)

// Targets owns every offscreen buffer of the pipeline. The cube resolution is fixed
// at creation; the reflection and mirror buffers follow the viewport scaled by the
// device pixel ratio.
type Targets struct {
	dev Device

	Cube                  TargetID
	ReflectionColor       TargetID
	ReflectionNormalDepth TargetID
	ReflectionResolve     TargetID
	Mirror                TargetID

	cubeSize int
	viewport Size
	dpr      float32
	sizes    map[TargetID]Size
}

// NewTargets creates all targets on dev. On failure nothing stays allocated.
func NewTargets(dev Device, cubeSize int, viewport Size, dpr float32) (*Targets, error) {
	if dpr <= 0 {
		dpr = 1
	}
	t := &Targets{
		dev:      dev,
		cubeSize: cubeSize,
		viewport: viewport,
		dpr:      dpr,
		sizes:    make(map[TargetID]Size),
	}

	var cleanup Unwind
	defer cleanup.Unwind()

	create := func(dst *TargetID, kind TargetKind, size Size) error {
		id, err := dev.CreateTarget(kind, size)
		if err != nil {
			return fmt.Errorf("create %s target: %w", kind, err)
		}
		*dst = id
		t.sizes[id] = size
		cleanup.Add(func() { dev.DeleteTarget(id) })
		return nil
	}

	scaled := t.scaled()
	if err := create(&t.Cube, TargetCube, Size{cubeSize, cubeSize}); err != nil {
		return nil, err
	}
	if err := create(&t.ReflectionColor, TargetColor, scaled); err != nil {
		return nil, err
	}
	if err := create(&t.ReflectionNormalDepth, TargetNormalDepth, scaled); err != nil {
		return nil, err
	}
	if err := create(&t.ReflectionResolve, TargetColor, scaled); err != nil {
		return nil, err
	}
	if err := create(&t.Mirror, TargetColor, scaled); err != nil {
		return nil, err
	}
	cleanup.Discard()

	logger.Log.Info("Render targets created",
		zap.Int("cube", cubeSize),
		zap.Stringer("viewport", viewport),
		zap.Stringer("scaled", scaled),
		zap.Float32("dpr", dpr))
	return t, nil
}

// ScaleDimension converts a viewport dimension to buffer pixels, never below one.
func ScaleDimension(v int, dpr float32) int {
	return max(1, int(math.Round(float64(v)*float64(dpr))))
}

func (t *Targets) scaled() Size {
	return Size{ScaleDimension(t.viewport.W, t.dpr), ScaleDimension(t.viewport.H, t.dpr)}
}

// Resize resizes every viewport-derived target to match viewport. The cube target
// is left alone. If any resize fails, the targets already resized go back to their
// previous size and the previous viewport is kept.
func (t *Targets) Resize(viewport Size) error {
	prev := t.viewport
	t.viewport = viewport
	scaled := t.scaled()

	var rollback Unwind
	defer rollback.Unwind()
	rollback.Add(func() { t.viewport = prev })

	for _, id := range t.ViewportDerived() {
		id := id // per-iteration copy for the rollback closure (go directive < 1.22)
		old := t.sizes[id]
		if old == scaled {
			continue
		}
		if err := t.dev.ResizeTarget(id, scaled); err != nil {
			return fmt.Errorf("resize target %d: %w", id, err)
		}
		t.sizes[id] = scaled
		rollback.Add(func() {
			if err := t.dev.ResizeTarget(id, old); err != nil {
				logger.Log.Error("Render target rollback failed", zap.Int32("target", int32(id)), zap.Error(err))
				return
			}
			t.sizes[id] = old
		})
	}
	rollback.Discard()
	return nil
}

// ViewportDerived lists the targets whose size follows the viewport.
func (t *Targets) ViewportDerived() []TargetID {
	return []TargetID{t.ReflectionColor, t.ReflectionNormalDepth, t.ReflectionResolve, t.Mirror}
}

// Size returns the last size given to id.
func (t *Targets) Size(id TargetID) Size {
	return t.sizes[id]
}

// Viewport is the viewport the targets were last sized for.
func (t *Targets) Viewport() Size { return t.viewport }

// DevicePixelRatio is the scale between viewport and buffer pixels.
func (t *Targets) DevicePixelRatio() float32 { return t.dpr }

// Release deletes every target.
func (t *Targets) Release() {
	for id := range t.sizes {
		t.dev.DeleteTarget(id)
	}
	t.sizes = make(map[TargetID]Size)
}
