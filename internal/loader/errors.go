package loader

import "fmt"

// AssetLoadError reports a failed or timed out asset load. Op is "env", "mesh" or
// "timeout".
type AssetLoadError struct {
	Op   string
	Path string
	Err  error
}

func (e *AssetLoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("asset load %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("asset load %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *AssetLoadError) Unwrap() error { return e.Err }
