// Package app wires the runtime together: logger, block catalog,
// manifest, locator, loader and executor, plus signal handling and the
// optional health endpoint.
package app

import (
	"io"
	"log/slog"

	"github.com/cira-io/cira-runtime/internal/blockload"
	"github.com/cira-io/cira-runtime/internal/catalog"
)

// App is one configured runtime instance.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	registry *catalog.Registry
	loader   blockload.Loader
}

// New builds an App around the given output writer and configuration.
// The loader is injectable so tests can run the full stack against the
// static block set; passing nil selects the dynamic OS loader.
func New(outW io.Writer, cfg *Config, loader blockload.Loader) *App {
	if loader == nil {
		loader = blockload.NewDynamicLoader()
	}
	return &App{
		outW:     outW,
		logger:   newLogger(cfg.LogLevel, cfg.LogFormat, outW),
		config:   cfg,
		registry: catalog.New(),
		loader:   loader,
	}
}

// Registry exposes the block catalog, primarily for tests.
func (a *App) Registry() *catalog.Registry { return a.registry }
