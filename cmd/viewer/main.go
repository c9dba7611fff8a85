package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"GlassView/internal/config"
	"GlassView/internal/engine"
	"GlassView/internal/host"
	"GlassView/internal/loader"
	"GlassView/internal/logger"
	"GlassView/internal/renderer"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

func init() {
	// GLFW and GL calls must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "glassview:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := findAsset("glassview.yaml")
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger.Debug = cfg.Debug
	logger.Init()
	defer logger.Sync()

	cfg.Assets.EnvPath = resolveAssetPath(cfg.Assets.EnvPath)
	cfg.Assets.MeshPath = resolveAssetPath(cfg.Assets.MeshPath)

	win, err := host.OpenWindow(cfg.Window)
	if err != nil {
		return err
	}
	defer win.Close()

	viewport := win.Size()
	dpr := win.DevicePixelRatio()
	dev, err := renderer.NewOpenGLRenderer(renderer.Size{
		W: renderer.ScaleDimension(viewport.W, dpr),
		H: renderer.ScaleDimension(viewport.H, dpr),
	}, win.SwapBuffers)
	if err != nil {
		return err
	}

	// On failure the session has already released dev.
	session, err := engine.NewSessionContext(cfg, dev, viewport, dpr)
	if err != nil {
		return err
	}
	defer session.Teardown()

	assets := loader.New(cfg.Assets.Workers, cfg.Assets.LoadTimeout())
	defer assets.Close()
	session.Adopt(assets.Load(context.Background(), cfg.Assets.EnvPath, cfg.Assets.MeshPath))

	if cfg.TuningFile != "" {
		if _, err := session.Panel.Watch(resolveAssetPath(cfg.TuningFile)); err != nil {
			logger.Log.Warn("Tuning file disabled", zap.Error(err))
		}
	}

	orbit := engine.NewOrbitHook(mgl32.Vec3(cfg.Camera.Target))
	session.Hooks.Add(orbit)

	logger.Log.Info("GlassView running",
		zap.String("env", cfg.Assets.EnvPath),
		zap.String("mesh", cfg.Assets.MeshPath))
	win.Run(session, engine.NewScheduler(session), orbit)
	return nil
}

// findAsset looks for name next to the executable, then in the working directory.
// It returns name unchanged when nothing is found so config.Load falls back to
// the defaults.
func findAsset(name string) string {
	exePath, _ := os.Executable()
	exeDir := filepath.Dir(exePath)

	paths := []string{
		filepath.Join(exeDir, name),
		filepath.Join("assets", name),
		name,
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return name
}

// resolveAssetPath tries path as given, then relative to the executable.
func resolveAssetPath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}
	exePath, _ := os.Executable()
	candidate := filepath.Join(filepath.Dir(exePath), path)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return path
}
