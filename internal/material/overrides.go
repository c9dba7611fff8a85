package material

import (
	"fmt"
	"sort"
)

// Override transforms a cloned Spec for one node.
type Override func(*Spec)

var overrides = map[string]Override{
	"double_sided":    func(s *Spec) { s.Side = DoubleSide },
	"front_side":      func(s *Spec) { s.Side = FrontSide },
	"back_side":       func(s *Spec) { s.Side = BackSide },
	"depth_write":     func(s *Spec) { s.DepthWrite = true },
	"no_transmission": func(s *Spec) { s.Transmission = 0 },
	"opaque": func(s *Spec) {
		s.Transmission = 0
		s.Opacity = 1
		s.Transparent = false
		s.DepthWrite = true
	},
}

// LookupOverride returns a registered override by name.
func LookupOverride(name string) (Override, bool) {
	o, ok := overrides[name]
	return o, ok
}

// OverrideNames lists the registered overrides, sorted.
func OverrideNames() []string {
	names := make([]string, 0, len(overrides))
	for n := range overrides {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Chain applies overrides in order.
func Chain(steps ...Override) Override {
	return func(s *Spec) {
		for _, o := range steps {
			o(s)
		}
	}
}

// ResolveOverrides turns a node name -> override names mapping (as written in config)
// into a node name -> Override mapping.
func ResolveOverrides(byNode map[string][]string) (map[string]Override, error) {
	out := make(map[string]Override, len(byNode))
	for node, names := range byNode {
		chain := make([]Override, 0, len(names))
		for _, n := range names {
			o, ok := LookupOverride(n)
			if !ok {
				return nil, fmt.Errorf("unknown material override %q for node %q", n, node)
			}
			chain = append(chain, o)
		}
		out[node] = Chain(chain...)
	}
	return out, nil
}
