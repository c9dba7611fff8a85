package panel

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"GlassView/internal/texture"

	"github.com/go-gl/mathgl/mgl32"
)

// normalize converts value to the canonical Go type of b and clamps it to range.
// Numbers may arrive as any numeric type, colours as a Vec3, a 3 element slice or
// array, or a "#rrggbb" string.
func normalize(b *Binding, value any) (any, error) {
	switch b.Kind {
	case KindBool:
		v, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: want bool, got %T", ErrValueKind, value)
		}
		return v, nil
	case KindFloat:
		f, ok := toFloat(value)
		if !ok {
			return nil, fmt.Errorf("%w: want number, got %T", ErrValueKind, value)
		}
		if !finite(f) {
			return nil, fmt.Errorf("%w: %v is not finite", ErrValueKind, f)
		}
		return mgl32.Clamp(f, b.Min, b.Max), nil
	case KindColor:
		c, err := toColor(value)
		if err != nil {
			return nil, err
		}
		for i := range c {
			if !finite(c[i]) {
				return nil, fmt.Errorf("%w: colour channel %d is %v", ErrValueKind, i, c[i])
			}
			c[i] = mgl32.Clamp(c[i], b.Min, b.Max)
		}
		return c, nil
	}
	return nil, fmt.Errorf("%w: binding kind %v", ErrValueKind, b.Kind)
}

func finite(f float32) bool {
	return !math.IsNaN(float64(f)) && !math.IsInf(float64(f), 0)
}

func toFloat(value any) (float32, bool) {
	switch v := value.(type) {
	case float32:
		return v, true
	case float64:
		return float32(v), true
	case int:
		return float32(v), true
	case int32:
		return float32(v), true
	case int64:
		return float32(v), true
	}
	return 0, false
}

func toColor(value any) (mgl32.Vec3, error) {
	switch v := value.(type) {
	case mgl32.Vec3:
		return v, nil
	case [3]float32:
		return mgl32.Vec3(v), nil
	case string:
		return parseHex(v)
	case []float32:
		if len(v) == 3 {
			return mgl32.Vec3{v[0], v[1], v[2]}, nil
		}
	case []float64:
		if len(v) == 3 {
			return mgl32.Vec3{float32(v[0]), float32(v[1]), float32(v[2])}, nil
		}
	case []any:
		if len(v) == 3 {
			var c mgl32.Vec3
			for i, x := range v {
				f, ok := toFloat(x)
				if !ok {
					return c, fmt.Errorf("%w: colour channel %d is %T", ErrValueKind, i, x)
				}
				c[i] = f
			}
			return c, nil
		}
	}
	return mgl32.Vec3{}, fmt.Errorf("%w: want colour, got %T", ErrValueKind, value)
}

// parseHex reads "#rrggbb" as an sRGB colour and returns it in linear space.
func parseHex(s string) (mgl32.Vec3, error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return mgl32.Vec3{}, fmt.Errorf("%w: colour %q is not #rrggbb", ErrValueKind, s)
	}
	n, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return mgl32.Vec3{}, fmt.Errorf("%w: colour %q: %v", ErrValueKind, s, err)
	}
	srgb := mgl32.Vec3{
		float32(n>>16&0xff) / 255,
		float32(n>>8&0xff) / 255,
		float32(n&0xff) / 255,
	}
	for i, c := range srgb {
		srgb[i] = texture.SRGBToLinear(c)
	}
	return srgb, nil
}

// Flip negates a bool binding and returns the new value.
func (p *ControlPanel) Flip(key string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false, ErrPanelClosed
	}
	b, ok := p.bindings[key]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownBinding, key)
	}
	if b.Kind != KindBool {
		return false, fmt.Errorf("%s: %w: not a toggle", key, ErrValueKind)
	}
	next := !b.get().(bool)
	if _, err := p.setLocked(key, next); err != nil {
		return false, err
	}
	return next, nil
}
