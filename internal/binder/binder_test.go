package binder

import (
	"errors"
	"testing"

	"GlassView/internal/logger"
	"GlassView/internal/material"
	"GlassView/internal/scene"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func geo() *scene.Geometry {
	return scene.NewGeometry("g", [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, nil, nil, nil)
}

// buildScene mirrors the exported asset: two named groups of meshes plus a backdrop.
func buildScene(withDark bool) *scene.Graph {
	g := scene.NewGraph()
	root := g.Add(scene.InvalidNode, scene.Node{Name: "Scene"})
	light := g.Add(root, scene.Node{Name: "light_material"})
	g.Add(light, scene.Node{Name: "Dragon", Kind: scene.KindMesh, Geometry: geo()})
	g.Add(light, scene.Node{Name: "Bunny", Kind: scene.KindMesh, Geometry: geo()})
	nested := g.Add(light, scene.Node{Name: "Teapot"})
	g.Add(nested, scene.Node{Name: "Teapot_prim0", Kind: scene.KindMesh, Geometry: geo()})
	g.Add(light, scene.Node{Name: "box", Kind: scene.KindMesh, Geometry: geo()})
	if withDark {
		dark := g.Add(root, scene.Node{Name: "dark_material"})
		g.Add(dark, scene.Node{Name: "Knot", Kind: scene.KindMesh, Geometry: geo()})
	}
	g.Add(root, scene.Node{Name: "Cloth_Backdrop001", Kind: scene.KindMesh, Geometry: geo()})
	return g
}

func meshesUnder(g *scene.Graph, group string) []*scene.Node {
	n, _ := g.Lookup(group)
	var out []*scene.Node
	g.Walk(n.ID, func(n *scene.Node) bool {
		if n.IsMesh() {
			out = append(out, n)
		}
		return true
	})
	return out
}

func TestBindSharesCanonicalSpec(t *testing.T) {
	g := buildScene(true)
	spec := material.LightGlass()
	b := New([]string{"box", "Cloth_Backdrop001"}, 100)

	report, err := b.Bind(g, "light_material", spec, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Shared)
	assert.Equal(t, 1, report.Skipped)

	for _, m := range meshesUnder(g, "light_material") {
		if m.Name == "box" {
			assert.Nil(t, m.Material)
			continue
		}
		assert.Same(t, spec, m.Material, m.Name)
	}
	backdrop, _ := g.Lookup("Cloth_Backdrop001")
	assert.Nil(t, backdrop.Material)
}

func TestBindOverrideClonesSpec(t *testing.T) {
	g := buildScene(true)
	spec := material.LightGlass()
	overrides := map[string]material.Override{
		"Bunny": func(s *material.Spec) { s.Side = material.FrontSide },
	}

	report, err := New(nil, 100).Bind(g, "light_material", spec, overrides)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Cloned)

	bunny, _ := g.Lookup("Bunny")
	require.NotSame(t, spec, bunny.Material)
	assert.Equal(t, material.FrontSide, bunny.Material.Side)
	assert.Equal(t, material.DoubleSide, spec.Side)

	// Editing the canonical spec reaches shared meshes but not the clone.
	spec.Roughness = 0.8
	dragon, _ := g.Lookup("Dragon")
	assert.Equal(t, float32(0.8), dragon.Material.Roughness)
	assert.Equal(t, float32(0.3), bunny.Material.Roughness)
}

func TestBindAssignsDescendingRenderOrder(t *testing.T) {
	g := buildScene(true)
	b := New([]string{"box"}, 100)
	_, err := b.BindAll(g, []Group{
		{Name: "light_material", Spec: material.LightGlass()},
		{Name: "dark_material", Spec: material.DarkGlass()},
	})
	require.NoError(t, err)

	var orders []int
	for _, name := range []string{"Dragon", "Bunny", "Teapot_prim0", "Knot"} {
		n, _ := g.Lookup(name)
		orders = append(orders, n.RenderOrder)
	}
	assert.Equal(t, []int{100, 99, 98, 97}, orders)
}

func TestBindMissingGroupIsSkipped(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	defer logger.SetLogger(zap.New(core))()

	g := buildScene(false)
	light := material.LightGlass()

	var reports []Report
	var err error
	require.NotPanics(t, func() {
		reports, err = New(nil, 100).BindAll(g, []Group{
			{Name: "light_material", Spec: light},
			{Name: "dark_material", Spec: material.DarkGlass()},
		})
	})

	var integrity *scene.AssetIntegrityError
	require.True(t, errors.As(err, &integrity))
	assert.Equal(t, "dark_material", integrity.Name)
	assert.Equal(t, "group", integrity.Kind)

	require.Len(t, reports, 1)
	assert.Equal(t, "light_material", reports[0].Group)
	dragon, _ := g.Lookup("Dragon")
	assert.Same(t, light, dragon.Material)

	assert.Equal(t, 1, logs.FilterField(zap.String("group", "dark_material")).Len())
}

func TestBindGroupThatIsItselfAMesh(t *testing.T) {
	g := scene.NewGraph()
	g.Add(scene.InvalidNode, scene.Node{Name: "light_material", Kind: scene.KindMesh, Geometry: geo()})
	spec := material.LightGlass()

	report, err := New(nil, 1).Bind(g, "light_material", spec, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Shared)
}
