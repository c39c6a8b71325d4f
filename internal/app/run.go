package app

import (
	"context"
	"fmt"

	"github.com/cira-io/cira-runtime/internal/catalog"
	"github.com/cira-io/cira-runtime/internal/ctxlog"
	"github.com/cira-io/cira-runtime/internal/locate"
	"github.com/cira-io/cira-runtime/internal/manifest"
	"github.com/cira-io/cira-runtime/internal/pipeline"
)

// Run executes the runtime end to end: parse the manifest, build the
// catalog from the block library path, validate, locate, build the graph
// and drive the iteration loop until the context is cancelled or the
// iteration budget is spent. Every fatal error surfaces as a value; the
// pipeline is always shut down on the way out.
func (a *App) Run(ctx context.Context) error {
	man, err := manifest.Parse(a.config.ManifestPath)
	if err != nil {
		return err
	}

	// The manifest may carry a log level; an explicit CLI flag wins.
	if a.config.LogLevel == "" && man.Runtime.LogLevel != "" {
		a.logger = newLogger(man.Runtime.LogLevel, a.config.LogFormat, a.outW)
	}
	ctx = ctxlog.WithLogger(ctx, a.logger)
	logger := a.logger

	blockPath := a.config.BlockPath
	if blockPath == "" {
		blockPath = man.Runtime.BlockLibraryPath
	}
	if blockPath == "" {
		blockPath = "blocks"
	}
	logger.Debug("Runtime starting.", "manifest", a.config.ManifestPath, "block_path", blockPath)

	if a.registry.Len() == 0 {
		if err := catalog.LoadDir(ctx, a.registry, blockPath); err != nil {
			return err
		}
	}

	if err := man.Validate(a.registry); err != nil {
		return err
	}
	logger.Debug("Manifest validated against catalog.", "blocks", len(man.Blocks))

	resolved, err := locate.Locate(ctx, man, []string{blockPath})
	if err != nil {
		return err
	}

	pl, err := pipeline.Build(ctx, man, a.registry, a.loader, resolved)
	if err != nil {
		return fmt.Errorf("building pipeline: %w", err)
	}
	defer pl.Shutdown(ctx)

	if a.config.HealthPort > 0 {
		stop := a.startHealthServer(pl.Stats())
		defer stop()
	}

	iterations := a.config.Iterations
	if iterations == 0 && man.Runtime.ExecutionMode == manifest.ModeSingleShot {
		iterations = 1
	}

	return pl.Run(ctx, pipeline.Options{
		RateHz:     a.config.RateHz,
		Iterations: iterations,
	})
}
