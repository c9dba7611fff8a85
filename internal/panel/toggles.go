package panel

// Toggles are the strategy switches of the viewer. The zero value has everything
// off. Fields change only through ControlPanel.
type Toggles struct {
	reflectionPass     bool
	environmentCapture bool
	thicknessMap       bool
}

// NewToggles returns the initial toggle state.
func NewToggles(reflectionPass, environmentCapture, thicknessMap bool) Toggles {
	return Toggles{
		reflectionPass:     reflectionPass,
		environmentCapture: environmentCapture,
		thicknessMap:       thicknessMap,
	}
}

// ReflectionPass selects the screen space reflection pipeline.
func (t Toggles) ReflectionPass() bool { return t.reflectionPass }

// EnvironmentCapture re-renders the local cube map every frame.
func (t Toggles) EnvironmentCapture() bool { return t.environmentCapture }

// ThicknessMap lets materials sample their thickness texture.
func (t Toggles) ThicknessMap() bool { return t.thicknessMap }

// Toggle keys.
const (
	ToggleReflectionPass     = "toggles.reflection_pass"
	ToggleEnvironmentCapture = "toggles.environment_capture"
	ToggleThicknessMap       = "toggles.thickness_map"
)
