package material

import "github.com/go-gl/mathgl/mgl32"

// LightGlass is the blue tinted glass the viewer ships with for the "light_material" group.
func LightGlass() *Spec {
	s := Defaults()
	s.Name = "light_material"
	s.Color = mgl32.Vec3{0.192, 0.592, 1}
	s.Transmission = 1
	s.Opacity = 0
	s.Metalness = 0.2
	s.Roughness = 0.3
	s.IOR = 1.75
	s.Thickness = 5
	s.AttenuationDistance = 0.155
	s.SpecularIntensity = 0.2
	s.Side = DoubleSide
	s.Transparent = true
	s.DepthWrite = false
	s.EnvMap = EnvCapture
	return s
}

// DarkGlass is the smoked variant used for the "dark_material" group.
func DarkGlass() *Spec {
	s := LightGlass()
	s.Name = "dark_material"
	s.Color = mgl32.Vec3{0.05, 0.05, 0.06}
	s.Roughness = 0.15
	s.IOR = 1.5
	s.Thickness = 2.27
	s.AttenuationColor = mgl32.Vec3{0.1, 0.1, 0.12}
	s.AttenuationDistance = 0.5
	s.SpecularIntensity = 1
	return s
}

// Preset returns a fresh copy of a named preset.
func Preset(name string) (*Spec, bool) {
	switch name {
	case "light_glass", "light_material":
		return LightGlass(), true
	case "dark_glass", "dark_material":
		return DarkGlass(), true
	case "default":
		return Defaults(), true
	}
	return nil, false
}
