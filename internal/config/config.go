package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"GlassView/internal/logger"
	"GlassView/internal/material"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Presentation decides what the viewer shows before assets are bound.
type Presentation string

const (
	// PresentEager renders whatever part of the scene exists (progressive reveal).
	PresentEager Presentation = "eager"
	// PresentWait presents cleared frames until the scene is loaded and bound.
	PresentWait Presentation = "wait"
)

type WindowConfig struct {
	Width            int32   `yaml:"width" json:"width"`
	Height           int32   `yaml:"height" json:"height"`
	Title            string  `yaml:"title" json:"title"`
	DevicePixelRatio float32 `yaml:"device_pixel_ratio" json:"device_pixel_ratio"` // 0 = ask the host
	VSync            bool    `yaml:"vsync" json:"vsync"`
}

type AssetsConfig struct {
	EnvPath        string  `yaml:"env_path" json:"env_path"`
	MeshPath       string  `yaml:"mesh_path" json:"mesh_path"`
	LoadTimeoutSec float32 `yaml:"load_timeout_sec" json:"load_timeout_sec"`
	Workers        int     `yaml:"workers" json:"workers"`
}

// LoadTimeout converts LoadTimeoutSec; zero means no timeout.
func (a AssetsConfig) LoadTimeout() time.Duration {
	return time.Duration(float64(a.LoadTimeoutSec) * float64(time.Second))
}

type CameraConfig struct {
	Fov      float32    `yaml:"fov" json:"fov"`
	Near     float32    `yaml:"near" json:"near"`
	Far      float32    `yaml:"far" json:"far"`
	Position [3]float32 `yaml:"position" json:"position"`
	Target   [3]float32 `yaml:"target" json:"target"`
}

type AmbientConfig struct {
	Color     [3]float32 `yaml:"color" json:"color"`
	Intensity float32    `yaml:"intensity" json:"intensity"`
}

type CaptureConfig struct {
	Resolution int     `yaml:"resolution" json:"resolution"`
	AnchorNode string  `yaml:"anchor_node" json:"anchor_node"`
	Near       float32 `yaml:"near" json:"near"`
	Far        float32 `yaml:"far" json:"far"`
}

type ReflectionConfig struct {
	Preset           string  `yaml:"preset" json:"preset"` // default, high_quality, performance
	RoughnessFalloff float32 `yaml:"roughness_falloff" json:"roughness_falloff"`
	Thickness        float32 `yaml:"thickness" json:"thickness"`
	MaxDistance      float32 `yaml:"max_distance" json:"max_distance"`
	Steps            int     `yaml:"steps" json:"steps"`
	Intensity        float32 `yaml:"intensity" json:"intensity"`
	ToneMapping      string  `yaml:"tone_mapping" json:"tone_mapping"` // aces, reinhard, linear
	Exposure         float32 `yaml:"exposure" json:"exposure"`
}

type MirrorConfig struct {
	Enabled   bool    `yaml:"enabled" json:"enabled"`
	PlaneNode string  `yaml:"plane_node" json:"plane_node"`
	ClipBias  float32 `yaml:"clip_bias" json:"clip_bias"`
}

type ToggleConfig struct {
	ReflectionPass     bool `yaml:"reflection_pass" json:"reflection_pass"`
	EnvironmentCapture bool `yaml:"environment_capture" json:"environment_capture"`
	ThicknessMap       bool `yaml:"thickness_map" json:"thickness_map"`
}

// GroupConfig binds one named submesh group to a material preset.
type GroupConfig struct {
	Name         string              `yaml:"name" json:"name"`
	Preset       string              `yaml:"preset" json:"preset"`
	ThicknessMap string              `yaml:"thickness_map,omitempty" json:"thickness_map,omitempty"`
	Overrides    map[string][]string `yaml:"overrides,omitempty" json:"overrides,omitempty"`
}

// ViewerConfig is everything a session needs to start.
type ViewerConfig struct {
	Debug            bool             `yaml:"debug" json:"debug"`
	Presentation     Presentation     `yaml:"presentation" json:"presentation"`
	Window           WindowConfig     `yaml:"window" json:"window"`
	Assets           AssetsConfig     `yaml:"assets" json:"assets"`
	Camera           CameraConfig     `yaml:"camera" json:"camera"`
	Ambient          AmbientConfig    `yaml:"ambient" json:"ambient"`
	Capture          CaptureConfig    `yaml:"capture" json:"capture"`
	Reflection       ReflectionConfig `yaml:"reflection" json:"reflection"`
	Mirror           MirrorConfig     `yaml:"mirror" json:"mirror"`
	Toggles          ToggleConfig     `yaml:"toggles" json:"toggles"`
	Groups           []GroupConfig    `yaml:"groups" json:"groups"`
	Exclude          []string         `yaml:"exclude" json:"exclude"`
	RenderOrderStart int              `yaml:"render_order_start" json:"render_order_start"`
	TuningFile       string           `yaml:"tuning_file,omitempty" json:"tuning_file,omitempty"`
}

// Default returns the configuration the viewer ships with.
func Default() ViewerConfig {
	return ViewerConfig{
		Presentation: PresentEager,
		Window: WindowConfig{
			Width:  1280,
			Height: 720,
			Title:  "GlassView",
			VSync:  true,
		},
		Assets: AssetsConfig{
			EnvPath:        "models/hdri/royal_esplanade_1k.hdr",
			MeshPath:       "models/saperated_copy.glb",
			LoadTimeoutSec: 30,
			Workers:        2,
		},
		Camera: CameraConfig{
			Fov:      75,
			Near:     0.1,
			Far:      1000,
			Position: [3]float32{0, 0, 5},
		},
		Ambient: AmbientConfig{
			Color:     [3]float32{1, 1, 1},
			Intensity: 5,
		},
		Capture: CaptureConfig{
			Resolution: 256,
			AnchorNode: "reflection_anchor",
			Near:       0.1,
			Far:        1000,
		},
		Reflection: ReflectionConfig{
			Preset:      "default",
			ToneMapping: "aces",
			Exposure:    1,
		},
		Mirror: MirrorConfig{
			Enabled:   true,
			PlaneNode: "ground_plane",
			ClipBias:  0.003,
		},
		Groups: []GroupConfig{
			{Name: "light_material", Preset: "light_glass"},
			{Name: "dark_material", Preset: "dark_glass"},
		},
		Exclude:          []string{"Cloth_Backdrop001", "box"},
		RenderOrderStart: 100,
	}
}

// Load reads a YAML (.yaml/.yml) or JSON (.json) config on top of Default.
// A missing file is not an error: the defaults are returned.
func Load(path string) (ViewerConfig, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Log.Info("No config file found, using defaults", zap.String("path", path))
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	case ".json":
		err = json.Unmarshal(data, &cfg)
	default:
		return Default(), fmt.Errorf("config %s: unsupported extension", path)
	}
	if err != nil {
		return Default(), fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Default(), fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that cannot be clamped sensibly later on.
func (c *ViewerConfig) Validate() error {
	var errs []error
	switch c.Presentation {
	case PresentEager, PresentWait:
	case "":
		c.Presentation = PresentEager
	default:
		errs = append(errs, fmt.Errorf("presentation %q: want %q or %q", c.Presentation, PresentEager, PresentWait))
	}
	if r := c.Capture.Resolution; r <= 0 || r&(r-1) != 0 {
		errs = append(errs, fmt.Errorf("capture.resolution %d: want a positive power of two", r))
	}
	if c.Camera.Fov <= 0 || c.Camera.Fov >= 180 {
		errs = append(errs, fmt.Errorf("camera.fov %v: want (0, 180)", c.Camera.Fov))
	}
	if c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		errs = append(errs, fmt.Errorf("camera near/far %v/%v: want 0 < near < far", c.Camera.Near, c.Camera.Far))
	}
	if c.Window.DevicePixelRatio < 0 {
		errs = append(errs, fmt.Errorf("window.device_pixel_ratio %v: must not be negative", c.Window.DevicePixelRatio))
	}
	seen := make(map[string]bool, len(c.Groups))
	for i, g := range c.Groups {
		if g.Name == "" {
			errs = append(errs, fmt.Errorf("groups[%d]: empty name", i))
			continue
		}
		if seen[g.Name] {
			errs = append(errs, fmt.Errorf("groups[%d]: duplicate group %q", i, g.Name))
		}
		seen[g.Name] = true
		if _, ok := material.Preset(g.Preset); !ok {
			errs = append(errs, fmt.Errorf("groups[%d]: unknown preset %q", i, g.Preset))
		}
		if _, err := material.ResolveOverrides(g.Overrides); err != nil {
			errs = append(errs, fmt.Errorf("groups[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
