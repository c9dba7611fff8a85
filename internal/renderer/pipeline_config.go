package renderer

import (
	"fmt"

	"GlassView/internal/config"
)

// PipelineConfig holds the tunables of the reflection and output passes.
type PipelineConfig struct {
	SSR    SSRParams    `json:"ssr"`
	Output OutputParams `json:"output"`

	// FrustumCulling drops meshes whose bounding sphere is outside the view.
	FrustumCulling bool `json:"frustumCulling"`
}

// DefaultPipelineConfig returns balanced settings.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		SSR: SSRParams{
			RoughnessFalloff: 1.0,
			Thickness:        0.018,
			MaxDistance:      1.8,
			Steps:            40,
			Intensity:        1.0,
		},
		Output: OutputParams{
			ToneMapping: ToneACES,
			Exposure:    1.0,
		},
		FrustumCulling: true,
	}
}

// HighQualityPipelineConfig returns settings optimized for visual quality
func HighQualityPipelineConfig() PipelineConfig {
	config := DefaultPipelineConfig()

	// Longer, finer rays
	config.SSR.Steps = 96
	config.SSR.MaxDistance = 4.0
	config.SSR.Thickness = 0.01
	config.SSR.RoughnessFalloff = 0.6

	return config
}

// PerformancePipelineConfig returns settings optimized for performance
func PerformancePipelineConfig() PipelineConfig {
	config := DefaultPipelineConfig()

	// Short coarse rays, reflections gone quickly on rough glass
	config.SSR.Steps = 16
	config.SSR.MaxDistance = 1.0
	config.SSR.Thickness = 0.04
	config.SSR.RoughnessFalloff = 2.0

	return config
}

// PipelineConfigFor resolves a preset name.
func PipelineConfigFor(preset string) (PipelineConfig, bool) {
	switch preset {
	case "", "default":
		return DefaultPipelineConfig(), true
	case "high_quality":
		return HighQualityPipelineConfig(), true
	case "performance":
		return PerformancePipelineConfig(), true
	}
	return DefaultPipelineConfig(), false
}

// NewPipelineConfig starts from the named preset and applies every non-zero field
// of rc on top.
func NewPipelineConfig(rc config.ReflectionConfig) (PipelineConfig, error) {
	cfg, ok := PipelineConfigFor(rc.Preset)
	if !ok {
		return cfg, fmt.Errorf("unknown reflection preset %q", rc.Preset)
	}
	if rc.RoughnessFalloff > 0 {
		cfg.SSR.RoughnessFalloff = rc.RoughnessFalloff
	}
	if rc.Thickness > 0 {
		cfg.SSR.Thickness = rc.Thickness
	}
	if rc.MaxDistance > 0 {
		cfg.SSR.MaxDistance = rc.MaxDistance
	}
	if rc.Steps > 0 {
		cfg.SSR.Steps = rc.Steps
	}
	if rc.Intensity > 0 {
		cfg.SSR.Intensity = rc.Intensity
	}
	if rc.Exposure > 0 {
		cfg.Output.Exposure = rc.Exposure
	}
	tm, err := ParseToneMapping(rc.ToneMapping)
	if err != nil {
		return cfg, err
	}
	cfg.Output.ToneMapping = tm
	return cfg, nil
}
