package scene

import "fmt"

// AssetIntegrityError reports a designated node (material group, capture anchor,
// mirror plane) missing from the loaded hierarchy.
type AssetIntegrityError struct {
	Kind string // "group", "anchor", "plane"
	Name string
}

func (e *AssetIntegrityError) Error() string {
	return fmt.Sprintf("asset integrity: %s %q not found in loaded hierarchy", e.Kind, e.Name)
}
