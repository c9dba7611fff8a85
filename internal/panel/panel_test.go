package panel

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"GlassView/internal/material"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boundPanel(t *testing.T) (*ControlPanel, *material.Spec) {
	t.Helper()
	spec := material.LightGlass()
	p := New(NewToggles(false, true, false))
	require.NoError(t, p.BindMaterial("light_material", spec))
	return p, spec
}

func TestSetIsIdempotent(t *testing.T) {
	p, spec := boundPanel(t)

	changed, err := p.Set("light_material.roughness", 0.35)
	require.NoError(t, err)
	assert.True(t, changed)
	first := *spec

	changed, err = p.Set("light_material.roughness", float32(0.35))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, first, *spec)
}

func TestSetClampsToRange(t *testing.T) {
	p, spec := boundPanel(t)

	_, err := p.Set("light_material.ior", 5)
	require.NoError(t, err)
	assert.InDelta(t, 2.333, spec.IOR, 1e-6)

	_, err = p.Set("light_material.color", []any{2.0, -1, 0.5})
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec3{1, 0, 0.5}, spec.Color)
}

func TestSetRejectsWithoutWriting(t *testing.T) {
	p, spec := boundPanel(t)
	before := *spec

	_, err := p.Set("light_material.roughness", "rough")
	assert.ErrorIs(t, err, ErrValueKind)

	_, err = p.Set("light_material.color", []any{1.0, "x", 0.0})
	assert.ErrorIs(t, err, ErrValueKind)

	_, err = p.Set("dark_material.roughness", 0.1)
	assert.ErrorIs(t, err, ErrUnknownBinding)

	assert.Equal(t, before, *spec)
}

func TestSetRejectsNonFinite(t *testing.T) {
	p, spec := boundPanel(t)
	before := *spec

	for _, v := range []any{math.NaN(), math.Inf(1), float32(math.Inf(-1))} {
		changed, err := p.Set("light_material.roughness", v)
		assert.ErrorIs(t, err, ErrValueKind)
		assert.False(t, changed)
	}
	changed, err := p.Set("light_material.color", []any{math.NaN(), 0.5, 0.5})
	assert.ErrorIs(t, err, ErrValueKind)
	assert.False(t, changed)
	_, err = p.Set("light_material.attenuation_color", mgl32.Vec3{0.5, float32(math.Inf(1)), 0.5})
	assert.ErrorIs(t, err, ErrValueKind)

	assert.Equal(t, before, *spec)

	changed, err = p.Set("light_material.roughness", 0.4)
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = p.Set("light_material.roughness", 0.4)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestHexColourIsLinearised(t *testing.T) {
	p, spec := boundPanel(t)

	_, err := p.Set("light_material.attenuation_color", "#ffffff")
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, spec.AttenuationColor)

	_, err = p.Set("light_material.attenuation_color", "#808080")
	require.NoError(t, err)
	assert.InDelta(t, 0.2159, spec.AttenuationColor.X(), 1e-3)
}

func TestTogglesOnlyChangeThroughPanel(t *testing.T) {
	p, _ := boundPanel(t)

	snapshot := p.Toggles()
	changed, err := p.Set(ToggleReflectionPass, true)
	require.NoError(t, err)
	assert.True(t, changed)

	assert.False(t, snapshot.ReflectionPass(), "snapshots are values")
	assert.True(t, p.Toggles().ReflectionPass())
	assert.True(t, p.Toggles().EnvironmentCapture())

	on, err := p.Flip(ToggleThicknessMap)
	require.NoError(t, err)
	assert.True(t, on)
	assert.True(t, p.Toggles().ThicknessMap())

	_, err = p.Flip("light_material.roughness")
	assert.ErrorIs(t, err, ErrValueKind)
}

func TestToggleDoesNotTouchMaterial(t *testing.T) {
	p, spec := boundPanel(t)
	before := *spec

	for i := 0; i < 4; i++ {
		_, err := p.Flip(ToggleReflectionPass)
		require.NoError(t, err)
		assert.Equal(t, before, *spec)
	}
}

func TestSubmitAndApplyPending(t *testing.T) {
	p, spec := boundPanel(t)

	require.NoError(t, p.Submit(
		Edit{Key: "light_material.metalness", Value: 0.5},
		Edit{Key: "missing.key", Value: 1},
		Edit{Key: "light_material.metalness", Value: 0.5},
		Edit{Key: ToggleReflectionPass, Value: true},
	))
	assert.InDelta(t, 0.2, spec.Metalness, 1e-6, "nothing applies before ApplyPending")

	changed := p.ApplyPending()
	assert.Equal(t, []string{"light_material.metalness", ToggleReflectionPass}, changed)
	assert.InDelta(t, 0.5, spec.Metalness, 1e-6)
	assert.Empty(t, p.ApplyPending())
}

func TestTeardownStopsEdits(t *testing.T) {
	p, spec := boundPanel(t)
	closed := 0
	p.AddCloser(func() error { closed++; return nil })

	require.NoError(t, p.Submit(Edit{Key: "light_material.roughness", Value: 0.9}))
	require.NoError(t, p.Teardown())
	require.NoError(t, p.Teardown())
	assert.Equal(t, 1, closed)
	assert.True(t, p.Closed())

	before := *spec
	_, err := p.Set("light_material.roughness", 0.1)
	assert.ErrorIs(t, err, ErrPanelClosed)
	assert.ErrorIs(t, p.Submit(Edit{Key: "x"}), ErrPanelClosed)
	assert.Nil(t, p.ApplyPending())
	assert.ErrorIs(t, p.BindMaterial("dark_material", material.DarkGlass()), ErrPanelClosed)
	assert.Empty(t, p.Keys())
	assert.Equal(t, before, *spec)
}

func TestKeysAndBindingInfo(t *testing.T) {
	p, _ := boundPanel(t)

	keys := p.Keys()
	assert.Contains(t, keys, "light_material.transmission")
	assert.Contains(t, keys, ToggleEnvironmentCapture)
	assert.IsIncreasing(t, keys)

	b, ok := p.Binding("light_material.ior")
	require.True(t, ok)
	assert.Equal(t, KindFloat, b.Kind)
	assert.InDelta(t, 1, b.Min, 1e-6)
}

func TestReadTuningFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
edits:
  toggles.reflection_pass: true
  light_material.roughness: 0.2
  light_material.color: [1, 0.5, 0.25]
`), 0o644))

	edits, err := ReadTuningFile(path)
	require.NoError(t, err)
	require.Len(t, edits, 3)
	assert.Equal(t, "light_material.color", edits[0].Key)

	p, spec := boundPanel(t)
	require.NoError(t, p.Submit(edits...))
	assert.Len(t, p.ApplyPending(), 3)
	assert.Equal(t, mgl32.Vec3{1, 0.5, 0.25}, spec.Color)
	assert.InDelta(t, 0.2, spec.Roughness, 1e-6)
}

func TestWatcherSubmitsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte("edits:\n  light_material.thickness: 2\n"), 0o644))

	p, spec := boundPanel(t)
	_, err := p.Watch(path)
	require.NoError(t, err)
	defer p.Teardown()

	p.ApplyPending()
	assert.InDelta(t, 2, spec.Thickness, 1e-6, "initial content is submitted")

	require.NoError(t, os.WriteFile(path, []byte("edits:\n  light_material.thickness: 4\n"), 0o644))
	assert.Eventually(t, func() bool {
		p.ApplyPending()
		return spec.Thickness == 4
	}, 2*time.Second, 10*time.Millisecond)
}
