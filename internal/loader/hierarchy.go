package loader

import (
	"encoding/json"
	"fmt"

	"GlassView/internal/logger"
	"GlassView/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"
)

const lightsPunctual = "KHR_lights_punctual"

// LoadHierarchy opens a .gltf or .glb file and converts its default scene into a
// typed scene graph.
func LoadHierarchy(path string) (*scene.Graph, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gltf open %q: %w", path, err)
	}
	return BuildHierarchy(doc)
}

// BuildHierarchy resolves every node of doc into a Group, Mesh, Light or Camera
// node once. Meshes with several primitives become a group with one mesh child per
// primitive, named <node>_prim<i>.
func BuildHierarchy(doc *gltf.Document) (*scene.Graph, error) {
	prims := make([][]*scene.Geometry, len(doc.Meshes))
	for mi, gm := range doc.Meshes {
		for pi, p := range gm.Primitives {
			geo, err := readPrimitive(doc, gm.Name, pi, p)
			if err != nil {
				logger.Log.Warn("Skipping glTF primitive",
					zap.Int("mesh", mi), zap.Int("primitive", pi), zap.Error(err))
				continue
			}
			prims[mi] = append(prims[mi], geo)
		}
	}
	lights := punctualLights(doc)

	g := scene.NewGraph()
	visiting := make([]bool, len(doc.Nodes))
	var add func(idx int, parent scene.NodeID) error
	add = func(idx int, parent scene.NodeID) error {
		if idx < 0 || idx >= len(doc.Nodes) {
			return fmt.Errorf("node index %d out of range", idx)
		}
		if visiting[idx] {
			return fmt.Errorf("node %d appears twice in the hierarchy", idx)
		}
		visiting[idx] = true

		gn := doc.Nodes[idx]
		n := scene.Node{Name: gn.Name, Transform: nodeTransform(gn)}
		if n.Name == "" {
			n.Name = fmt.Sprintf("node_%d", idx)
		}

		var meshPrims []*scene.Geometry
		switch {
		case gn.Camera != nil:
			n.Kind = scene.KindCamera
			n.Camera = cameraInfo(doc, *gn.Camera)
		case gn.Extensions[lightsPunctual] != nil:
			n.Kind = scene.KindLight
			n.Light = nodeLight(gn, lights)
		case gn.Mesh != nil && *gn.Mesh < len(prims):
			meshPrims = prims[*gn.Mesh]
			if len(meshPrims) == 1 {
				n.Kind = scene.KindMesh
				n.Geometry = meshPrims[0]
			}
		}

		id := g.Add(parent, n)
		if len(meshPrims) > 1 {
			for pi, geo := range meshPrims {
				g.Add(id, scene.Node{
					Name:     fmt.Sprintf("%s_prim%d", n.Name, pi),
					Kind:     scene.KindMesh,
					Geometry: geo,
				})
			}
		}
		for _, c := range gn.Children {
			if err := add(c, id); err != nil {
				return err
			}
		}
		return nil
	}

	for _, r := range rootNodes(doc) {
		if err := add(r, scene.InvalidNode); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// rootNodes returns the default scene's nodes, or every parentless node when the
// document names no scene.
func rootNodes(doc *gltf.Document) []int {
	if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
		return doc.Scenes[*doc.Scene].Nodes
	}
	hasParent := make([]bool, len(doc.Nodes))
	for _, gn := range doc.Nodes {
		for _, c := range gn.Children {
			if c >= 0 && c < len(hasParent) {
				hasParent[c] = true
			}
		}
	}
	var roots []int
	for i := range doc.Nodes {
		if !hasParent[i] {
			roots = append(roots, i)
		}
	}
	return roots
}

func nodeTransform(gn *gltf.Node) scene.Transform {
	t := gn.TranslationOrDefault()
	r := gn.RotationOrDefault() // x, y, z, w
	s := gn.ScaleOrDefault()
	return scene.Transform{
		Position: mgl32.Vec3{float32(t[0]), float32(t[1]), float32(t[2])},
		Rotation: mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}},
		Scale:    mgl32.Vec3{float32(s[0]), float32(s[1]), float32(s[2])},
	}
}

func readPrimitive(doc *gltf.Document, meshName string, idx int, p *gltf.Primitive) (*scene.Geometry, error) {
	posIdx, ok := p.Attributes[gltf.POSITION]
	if !ok {
		return nil, fmt.Errorf("no POSITION attribute")
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}

	var normals [][3]float32
	if i, ok := p.Attributes[gltf.NORMAL]; ok {
		if normals, err = modeler.ReadNormal(doc, doc.Accessors[i], nil); err != nil {
			return nil, fmt.Errorf("normals: %w", err)
		}
	}
	var uvs [][2]float32
	if i, ok := p.Attributes[gltf.TEXCOORD_0]; ok {
		if uvs, err = modeler.ReadTextureCoord(doc, doc.Accessors[i], nil); err != nil {
			return nil, fmt.Errorf("uvs: %w", err)
		}
	}
	var indices []uint32
	if p.Indices != nil {
		if indices, err = modeler.ReadIndices(doc, doc.Accessors[*p.Indices], nil); err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
	}
	geo := scene.NewGeometry(fmt.Sprintf("%s_p%d", meshName, idx), positions, normals, uvs, indices)
	if len(normals) != len(positions) {
		geo.RecalculateNormals()
	}
	return geo, nil
}

func cameraInfo(doc *gltf.Document, idx int) *scene.CameraInfo {
	info := &scene.CameraInfo{Fov: 75, Near: 0.1, Far: 1000}
	if idx < 0 || idx >= len(doc.Cameras) {
		return info
	}
	if p := doc.Cameras[idx].Perspective; p != nil {
		info.Fov = mgl32.RadToDeg(float32(p.Yfov))
		info.Near = float32(p.Znear)
		if p.Zfar != nil {
			info.Far = float32(*p.Zfar)
		}
	}
	return info
}

type punctualLight struct {
	Type      string     `json:"type"`
	Color     [3]float32 `json:"color"`
	Intensity *float32   `json:"intensity"`
	Range     float32    `json:"range"`
}

// punctualLights reads the document level light list. The extension is kept as raw
// JSON because its package is not registered with the decoder.
func punctualLights(doc *gltf.Document) []punctualLight {
	raw, ok := doc.Extensions[lightsPunctual].(json.RawMessage)
	if !ok {
		return nil
	}
	var ext struct {
		Lights []punctualLight `json:"lights"`
	}
	if err := json.Unmarshal(raw, &ext); err != nil {
		logger.Log.Warn("Ignoring malformed "+lightsPunctual, zap.Error(err))
		return nil
	}
	return ext.Lights
}

func nodeLight(gn *gltf.Node, lights []punctualLight) *scene.LightInfo {
	info := &scene.LightInfo{Type: "point", Color: mgl32.Vec3{1, 1, 1}, Intensity: 1}
	raw, ok := gn.Extensions[lightsPunctual].(json.RawMessage)
	if !ok {
		return info
	}
	var ref struct {
		Light int `json:"light"`
	}
	if json.Unmarshal(raw, &ref) != nil || ref.Light < 0 || ref.Light >= len(lights) {
		return info
	}
	l := lights[ref.Light]
	info.Type = l.Type
	if l.Color != ([3]float32{}) {
		info.Color = mgl32.Vec3(l.Color)
	}
	if l.Intensity != nil {
		info.Intensity = *l.Intensity
	}
	info.Range = l.Range
	return info
}
