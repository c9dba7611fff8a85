package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, PresentEager, cfg.Presentation)
	assert.Equal(t, float32(75), cfg.Camera.Fov)
	assert.Equal(t, 30*time.Second, cfg.Assets.LoadTimeout())
	assert.Equal(t, []string{"Cloth_Backdrop001", "box"}, cfg.Exclude)
	assert.Len(t, cfg.Groups, 2)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadYAMLKeepsUnsetDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "viewer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
presentation: wait
window:
  width: 640
toggles:
  reflection_pass: true
groups:
  - name: light_material
    preset: light_glass
    overrides:
      Dragon: [front_side]
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, PresentWait, cfg.Presentation)
	assert.Equal(t, int32(640), cfg.Window.Width)
	assert.Equal(t, int32(720), cfg.Window.Height)
	assert.True(t, cfg.Toggles.ReflectionPass)
	require.Len(t, cfg.Groups, 1)
	assert.Equal(t, []string{"front_side"}, cfg.Groups[0].Overrides["Dragon"])
	assert.Equal(t, 256, cfg.Capture.Resolution)
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "viewer.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"capture": {"resolution": 512}, "mirror": {"enabled": false}}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 512, cfg.Capture.Resolution)
	assert.False(t, cfg.Mirror.Enabled)
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"bad_presentation.yaml": "presentation: sometimes\n",
		"bad_capture.yaml":      "capture:\n  resolution: 300\n",
		"bad_preset.yaml":       "groups:\n  - name: g\n    preset: chrome\n",
		"bad_override.yaml":     "groups:\n  - name: g\n    preset: light_glass\n    overrides:\n      n: [sparkly]\n",
		"dup_group.yaml":        "groups:\n  - {name: g, preset: light_glass}\n  - {name: g, preset: dark_glass}\n",
		"viewer.toml":           "x = 1\n",
	}
	for name, body := range cases {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		cfg, err := Load(path)
		assert.Error(t, err, name)
		assert.Equal(t, Default(), cfg, name)
	}
}
