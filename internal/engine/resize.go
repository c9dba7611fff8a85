package engine

import (
	"fmt"

	"GlassView/internal/logger"
	"GlassView/internal/renderer"

	"go.uber.org/zap"
)

// MinViewport is the smallest dimension a viewport is clamped to.
const MinViewport = 1

// ResizeCoordinator keeps the camera projection and every viewport-derived render
// target in step with the window.
type ResizeCoordinator struct {
	camera  *renderer.Camera
	targets *renderer.Targets
	dev     renderer.Device
}

func NewResizeCoordinator(camera *renderer.Camera, targets *renderer.Targets, dev renderer.Device) *ResizeCoordinator {
	return &ResizeCoordinator{camera: camera, targets: targets, dev: dev}
}

// OnResize applies a new logical viewport size. Dimensions below MinViewport are
// clamped and reported with a *DegenerateViewportError after the clamped size has
// been applied, so callers may log it and carry on. When the targets cannot be
// resized, the camera, targets and device viewport all keep the previous size.
func (rc *ResizeCoordinator) OnResize(width, height int) error {
	size := renderer.Size{W: max(width, MinViewport), H: max(height, MinViewport)}
	var degenerate error
	if size.W != width || size.H != height {
		degenerate = &DegenerateViewportError{Width: width, Height: height, Clamped: [2]int{size.W, size.H}}
		logger.Log.Warn("Viewport clamped", zap.Error(degenerate))
	}

	if err := rc.targets.Resize(size); err != nil {
		return fmt.Errorf("resize targets: %w", err)
	}
	rc.camera.SetAspectRatio(size.Aspect())
	dpr := rc.targets.DevicePixelRatio()
	rc.dev.SetViewport(renderer.Size{
		W: renderer.ScaleDimension(size.W, dpr),
		H: renderer.ScaleDimension(size.H, dpr),
	})

	logger.Log.Debug("Viewport resized",
		zap.Stringer("viewport", size),
		zap.Float32("aspect", rc.camera.AspectRatio))
	return degenerate
}
