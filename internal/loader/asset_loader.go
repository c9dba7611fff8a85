package loader

import (
	"context"
	"errors"
	"time"

	"GlassView/internal/logger"
	"GlassView/internal/scene"
	"GlassView/internal/texture"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"
)

// AssetLoader decodes the environment map and the mesh hierarchy on a worker pool.
type AssetLoader struct {
	pool    pond.Pool
	timeout time.Duration

	// Swappable for tests.
	loadEnv  func(path string) (*texture.Image, error)
	loadMesh func(path string) (*scene.Graph, error)
}

// New returns a loader running at most workers decodes at once. A zero timeout
// disables the deadline.
func New(workers int, timeout time.Duration) *AssetLoader {
	if workers < 1 {
		workers = 1
	}
	return &AssetLoader{
		pool:     pond.NewPool(workers),
		timeout:  timeout,
		loadEnv:  texture.Load,
		loadMesh: LoadHierarchy,
	}
}

// Load starts decoding envPath and meshPath concurrently and returns at once.
// The future never resolves to a panic: every failure is an *AssetLoadError in
// Outcome.Err, next to whatever did load.
func (l *AssetLoader) Load(ctx context.Context, envPath, meshPath string) *Future {
	f := newFuture()
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		go func() {
			<-f.Done()
			cancel()
		}()
	}

	start := time.Now()
	var out Outcome
	envTask := l.pool.SubmitErr(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		img, err := l.loadEnv(envPath)
		if err != nil {
			return &AssetLoadError{Op: "env", Path: envPath, Err: err}
		}
		out.Env = img
		return nil
	})
	meshTask := l.pool.SubmitErr(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		root, err := l.loadMesh(meshPath)
		if err != nil {
			return &AssetLoadError{Op: "mesh", Path: meshPath, Err: err}
		}
		out.Root = root
		return nil
	})

	go func() {
		finished := make(chan error, 1)
		go func() {
			finished <- errors.Join(envTask.Wait(), meshTask.Wait())
		}()

		select {
		case err := <-finished:
			if ctxErr := ctx.Err(); err != nil && errors.Is(err, ctxErr) {
				err = &AssetLoadError{Op: "timeout", Err: ctxErr}
			}
			out.Err = err
			if err != nil {
				logger.Log.Error("Asset load failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
			} else {
				logger.Log.Info("Assets loaded",
					zap.String("env", envPath),
					zap.String("mesh", meshPath),
					zap.Int("nodes", out.Root.Len()),
					zap.Duration("elapsed", time.Since(start)))
			}
			f.resolve(out)
		case <-ctx.Done():
			err := &AssetLoadError{Op: "timeout", Err: ctx.Err()}
			logger.Log.Error("Asset load timed out", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
			// The decodes keep running on the pool; their results are dropped.
			f.resolve(Outcome{Err: err})
		}
	}()
	return f
}

// Close waits for running decodes and stops the pool.
func (l *AssetLoader) Close() {
	l.pool.StopAndWait()
}
