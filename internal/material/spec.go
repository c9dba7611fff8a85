package material

import (
	"GlassView/internal/logger"
	"GlassView/internal/texture"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/jinzhu/copier"
	"go.uber.org/zap"
)

// Side selects which faces of a mesh are shaded.
type Side int

const (
	FrontSide Side = iota
	BackSide
	DoubleSide
)

func (s Side) String() string {
	switch s {
	case BackSide:
		return "back"
	case DoubleSide:
		return "double"
	default:
		return "front"
	}
}

// EnvSource selects where a material takes its specular environment from.
type EnvSource int

const (
	EnvNone    EnvSource = iota // no image based reflections
	EnvScene                    // the scene's global environment map
	EnvCapture                  // the local cube capture, when one is available
)

// Spec is a physically based transmissive material. A Spec is shared by pointer between
// every mesh of a group; per-node variations are made with Clone.
type Spec struct {
	// HOT DATA - read every draw
	Color               mgl32.Vec3 // base colour, linear
	Transmission        float32    // 0 = opaque dielectric, 1 = fully transmissive
	Opacity             float32
	Metalness           float32
	Roughness           float32
	IOR                 float32 // index of refraction, 1.0 - 2.333
	Thickness           float32 // volume thickness in object units
	AttenuationColor    mgl32.Vec3
	AttenuationDistance float32 // distance at which transmitted light reaches AttenuationColor
	SpecularIntensity   float32
	SpecularColor       mgl32.Vec3
	EnvMapIntensity     float32

	// COLD DATA
	Name         string
	ThicknessMap *texture.Image `copier:"-"` // shared, never deep copied
	EnvMap       EnvSource
	Side         Side
	Transparent  bool
	DepthWrite   bool
}

// Defaults returns the neutral physical material the presets start from.
func Defaults() *Spec {
	return &Spec{
		Name:                "default",
		Color:               mgl32.Vec3{1, 1, 1},
		Opacity:             1,
		Roughness:           1,
		IOR:                 1.5,
		AttenuationColor:    mgl32.Vec3{1, 1, 1},
		AttenuationDistance: float32(1e9),
		SpecularIntensity:   1,
		SpecularColor:       mgl32.Vec3{1, 1, 1},
		EnvMapIntensity:     1,
		EnvMap:              EnvScene,
		Side:                FrontSide,
		DepthWrite:          true,
	}
}

// Clone returns an independent copy. Texture references stay shared.
func (s *Spec) Clone() *Spec {
	c := &Spec{}
	if err := copier.CopyWithOption(c, s, copier.Option{DeepCopy: true}); err != nil {
		logger.Log.Warn("Material deep copy failed, falling back to shallow copy",
			zap.String("material", s.Name), zap.Error(err))
		*c = *s
	}
	c.ThicknessMap = s.ThicknessMap
	return c
}

// IsTransparent reports whether the material needs blending.
func (s *Spec) IsTransparent() bool {
	return s.Transparent || s.Opacity < 1 || s.Transmission > 0
}
