package scene

import (
	"GlassView/internal/material"

	"github.com/go-gl/mathgl/mgl32"
)

// NodeID addresses a node inside its Graph.
type NodeID int32

// InvalidNode is the parent of root nodes and the result of failed lookups.
const InvalidNode NodeID = -1

// Kind tags what a node is. It is resolved once when the hierarchy is loaded.
type Kind int

const (
	KindGroup Kind = iota
	KindMesh
	KindLight
	KindCamera
)

func (k Kind) String() string {
	switch k {
	case KindMesh:
		return "mesh"
	case KindLight:
		return "light"
	case KindCamera:
		return "camera"
	default:
		return "group"
	}
}

// Transform is a local translation, rotation, scale.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

// IdentityTransform returns a transform that leaves points where they are.
func IdentityTransform() Transform {
	return Transform{Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{1, 1, 1}}
}

// Matrix composes the transform in TRS order.
func (t Transform) Matrix() mgl32.Mat4 {
	rot := t.Rotation
	if rot == (mgl32.Quat{}) {
		rot = mgl32.QuatIdent()
	}
	scale := mgl32.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2])
	translate := mgl32.Translate3D(t.Position[0], t.Position[1], t.Position[2])
	return translate.Mul4(rot.Mat4()).Mul4(scale)
}

// Geometry is the vertex data of one mesh primitive.
type Geometry struct {
	Name      string
	Positions [][3]float32
	Normals   [][3]float32
	UVs       [][2]float32
	Indices   []uint32
	BoundsMin mgl32.Vec3
	BoundsMax mgl32.Vec3
}

// NewGeometry wraps vertex data and computes its bounds.
func NewGeometry(name string, positions, normals [][3]float32, uvs [][2]float32, indices []uint32) *Geometry {
	g := &Geometry{Name: name, Positions: positions, Normals: normals, UVs: uvs, Indices: indices}
	for i, p := range positions {
		v := mgl32.Vec3{p[0], p[1], p[2]}
		if i == 0 {
			g.BoundsMin, g.BoundsMax = v, v
			continue
		}
		for a := 0; a < 3; a++ {
			g.BoundsMin[a] = min(g.BoundsMin[a], v[a])
			g.BoundsMax[a] = max(g.BoundsMax[a], v[a])
		}
	}
	return g
}

// RecalculateNormals replaces Normals with area weighted vertex normals built from
// the triangles. Unindexed geometry is treated as a plain triangle list.
func (g *Geometry) RecalculateNormals() {
	normals := make([][3]float32, len(g.Positions))
	corner := func(i int) int {
		if g.Indices == nil {
			return i
		}
		return int(g.Indices[i])
	}
	count := len(g.Indices)
	if g.Indices == nil {
		count = len(g.Positions)
	}
	for i := 0; i+2 < count; i += 3 {
		a, b, c := corner(i), corner(i+1), corner(i+2)
		if a >= len(normals) || b >= len(normals) || c >= len(normals) {
			continue
		}
		v0, v1, v2 := mgl32.Vec3(g.Positions[a]), mgl32.Vec3(g.Positions[b]), mgl32.Vec3(g.Positions[c])
		n := v1.Sub(v0).Cross(v2.Sub(v0))
		for _, idx := range [3]int{a, b, c} {
			normals[idx] = mgl32.Vec3(normals[idx]).Add(n)
		}
	}
	for i, n := range normals {
		v := mgl32.Vec3(n)
		if v.Len() > 0 {
			normals[i] = v.Normalize()
		} else {
			normals[i] = [3]float32{0, 1, 0}
		}
	}
	g.Normals = normals
}

// LightInfo describes a light node.
type LightInfo struct {
	Type      string // "ambient", "directional", "point", "spot"
	Color     mgl32.Vec3
	Intensity float32
	Range     float32
}

// CameraInfo describes a camera node authored in the asset.
type CameraInfo struct {
	Fov  float32 // vertical, degrees
	Near float32
	Far  float32
}

// Node is one entry of the scene graph. Only the fields matching Kind are set.
type Node struct {
	ID        NodeID
	Name      string
	Kind      Kind
	Parent    NodeID
	Children  []NodeID
	Transform Transform
	Hidden    bool

	// KindMesh
	Geometry    *Geometry
	Material    *material.Spec
	RenderOrder int

	// KindLight
	Light *LightInfo

	// KindCamera
	Camera *CameraInfo
}

// IsMesh reports whether the node draws geometry.
func (n *Node) IsMesh() bool {
	return n != nil && n.Kind == KindMesh
}
