package scene

import (
	"sort"

	"GlassView/internal/logger"
	"GlassView/internal/texture"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// Environment is the scene-wide image based lighting and background.
type Environment struct {
	Background *texture.Image
	Lighting   *texture.Image
}

// IsZero reports whether no environment is set.
func (e Environment) IsZero() bool {
	return e.Background == nil && e.Lighting == nil
}

// Graph is a scene graph stored as an arena of nodes with a name index.
// It is only ever touched from the frame thread.
type Graph struct {
	nodes  []*Node
	byName map[string]NodeID
	roots  []NodeID
	env    Environment
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{byName: make(map[string]NodeID)}
}

// Add inserts n under parent (InvalidNode for a root) and returns its id.
// When a name is already taken the first node keeps it in the index.
func (g *Graph) Add(parent NodeID, n Node) NodeID {
	id := NodeID(len(g.nodes))
	n.ID = id
	n.Parent = parent
	n.Children = nil
	if n.Transform.Scale == (mgl32.Vec3{}) {
		n.Transform.Scale = mgl32.Vec3{1, 1, 1}
	}
	if n.Transform.Rotation == (mgl32.Quat{}) {
		n.Transform.Rotation = mgl32.QuatIdent()
	}
	node := &n
	g.nodes = append(g.nodes, node)

	if p, ok := g.Node(parent); ok {
		p.Children = append(p.Children, id)
	} else {
		node.Parent = InvalidNode
		g.roots = append(g.roots, id)
	}

	if n.Name != "" {
		if prev, taken := g.byName[n.Name]; taken {
			logger.Log.Warn("Duplicate node name, keeping first",
				zap.String("name", n.Name),
				zap.Int32("kept", int32(prev)),
				zap.Int32("ignored", int32(id)))
		} else {
			g.byName[n.Name] = id
		}
	}
	return id
}

// Node returns the node with the given id.
func (g *Graph) Node(id NodeID) (*Node, bool) {
	if g == nil || id < 0 || int(id) >= len(g.nodes) {
		return nil, false
	}
	return g.nodes[id], true
}

// Lookup finds a node by name through the index.
func (g *Graph) Lookup(name string) (*Node, bool) {
	if g == nil {
		return nil, false
	}
	id, ok := g.byName[name]
	if !ok {
		return nil, false
	}
	return g.nodes[id], true
}

// Len is the number of nodes.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.nodes)
}

// Roots returns the ids of parentless nodes.
func (g *Graph) Roots() []NodeID {
	return g.roots
}

// Walk visits id and its descendants depth first. Returning false from fn skips
// the node's subtree.
func (g *Graph) Walk(id NodeID, fn func(*Node) bool) {
	n, ok := g.Node(id)
	if !ok {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		g.Walk(c, fn)
	}
}

// WalkAll walks every root.
func (g *Graph) WalkAll(fn func(*Node) bool) {
	if g == nil {
		return
	}
	for _, r := range g.roots {
		g.Walk(r, fn)
	}
}

// Attach copies every node of sub under parent (InvalidNode for roots) and returns
// the ids the sub roots received. sub is left untouched.
func (g *Graph) Attach(parent NodeID, sub *Graph) []NodeID {
	if sub == nil {
		return nil
	}
	var attached []NodeID
	var copyTree func(src NodeID, dst NodeID) NodeID
	copyTree = func(src NodeID, dst NodeID) NodeID {
		n, _ := sub.Node(src)
		id := g.Add(dst, *n)
		for _, c := range n.Children {
			copyTree(c, id)
		}
		return id
	}
	for _, r := range sub.roots {
		attached = append(attached, copyTree(r, parent))
	}
	return attached
}

// Environment returns the global environment.
func (g *Graph) Environment() Environment {
	return g.env
}

// SetEnvironment replaces the global environment.
func (g *Graph) SetEnvironment(env Environment) {
	g.env = env
}

// WorldMatrix composes the transforms from the root down to id.
func (g *Graph) WorldMatrix(id NodeID) mgl32.Mat4 {
	n, ok := g.Node(id)
	if !ok {
		return mgl32.Ident4()
	}
	local := n.Transform.Matrix()
	if n.Parent == InvalidNode {
		return local
	}
	return g.WorldMatrix(n.Parent).Mul4(local)
}

// WorldPosition is the translation part of WorldMatrix.
func (g *Graph) WorldPosition(id NodeID) mgl32.Vec3 {
	return g.WorldMatrix(id).Col(3).Vec3()
}

// DrawItem is one mesh ready to draw.
type DrawItem struct {
	Node  *Node
	World mgl32.Mat4
}

// DrawList collects visible meshes: opaque ones first, then transparent ones ordered
// by RenderOrder (ties keep graph order). Nodes listed in skip are left out with
// their subtrees.
func (g *Graph) DrawList(skip ...NodeID) []DrawItem {
	if g == nil {
		return nil
	}
	var opaque, transparent []DrawItem
	var visit func(id NodeID, parent mgl32.Mat4)
	visit = func(id NodeID, parent mgl32.Mat4) {
		n, _ := g.Node(id)
		for _, s := range skip {
			if s == id {
				return
			}
		}
		if n.Hidden {
			return
		}
		world := parent.Mul4(n.Transform.Matrix())
		if n.IsMesh() && n.Geometry != nil {
			item := DrawItem{Node: n, World: world}
			if n.Material != nil && n.Material.IsTransparent() {
				transparent = append(transparent, item)
			} else {
				opaque = append(opaque, item)
			}
		}
		for _, c := range n.Children {
			visit(c, world)
		}
	}
	for _, r := range g.roots {
		visit(r, mgl32.Ident4())
	}
	sort.SliceStable(transparent, func(i, j int) bool {
		return transparent[i].Node.RenderOrder < transparent[j].Node.RenderOrder
	})
	return append(opaque, transparent...)
}
