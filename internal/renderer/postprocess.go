package renderer

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// ToneMapping selects the output curve.
type ToneMapping int

const (
	ToneACES ToneMapping = iota
	ToneReinhard
	ToneLinear
)

func (t ToneMapping) String() string {
	switch t {
	case ToneReinhard:
		return "reinhard"
	case ToneLinear:
		return "linear"
	default:
		return "aces"
	}
}

// ParseToneMapping accepts aces, reinhard or linear.
func ParseToneMapping(s string) (ToneMapping, error) {
	switch s {
	case "aces", "":
		return ToneACES, nil
	case "reinhard":
		return ToneReinhard, nil
	case "linear":
		return ToneLinear, nil
	}
	return ToneACES, fmt.Errorf("unknown tone mapping %q", s)
}

// OutputParams configures the final tone map and sRGB encode.
type OutputParams struct {
	ToneMapping ToneMapping
	Exposure    float32
}

// SSRParams configures the screen space reflection march.
type SSRParams struct {
	// RoughnessFalloff is the exponent of ReflectionWeight: higher values fade
	// reflections out faster on rough surfaces.
	RoughnessFalloff float32
	Thickness        float32 // depth tolerance of a hit, view units
	MaxDistance      float32 // ray length, view units
	Steps            int
	Intensity        float32
}

// ReflectionWeight is how much screen space reflection a surface of the given
// roughness receives: (1-roughness)^falloff. The ssr shader uses the same curve.
func ReflectionWeight(roughness, falloff float32) float32 {
	r := mgl32.Clamp(roughness, 0, 1)
	if falloff <= 0 {
		return 1
	}
	return float32(math.Pow(float64(1-r), float64(falloff)))
}

// ToneMap applies exposure and the curve to a linear colour. The output shader
// carries the same formulas; HeadlessDevice runs this one.
func ToneMap(c mgl32.Vec3, p OutputParams) mgl32.Vec3 {
	c = c.Mul(p.Exposure)
	switch p.ToneMapping {
	case ToneReinhard:
		for i := range c {
			c[i] = c[i] / (1 + c[i])
		}
	case ToneACES:
		// Narkowicz fit of the ACES filmic curve.
		const a, b, cc, d, e = 2.51, 0.03, 2.43, 0.59, 0.14
		for i := range c {
			x := c[i]
			c[i] = mgl32.Clamp((x*(a*x+b))/(x*(cc*x+d)+e), 0, 1)
		}
	}
	for i := range c {
		c[i] = mgl32.Clamp(c[i], 0, 1)
	}
	return c
}
