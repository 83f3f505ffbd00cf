package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/specialistvlad/promptgridgo/internal/config"
	"github.com/specialistvlad/promptgridgo/internal/ctxlog"
	"github.com/specialistvlad/promptgridgo/internal/graph"
	"github.com/specialistvlad/promptgridgo/internal/hclloader"
	"github.com/specialistvlad/promptgridgo/internal/metrics"
	"github.com/specialistvlad/promptgridgo/internal/registry"
)

// ErrProjectLoad wraps every failure to read or decode the project files.
var ErrProjectLoad = errors.New("failed to load project")

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   config.Config
	registry *registry.Registry
	metrics  *metrics.Collector
	env      map[string]string

	healthServer  *http.Server
	metricsServer *http.Server
}

// NewApp is the constructor for the main application. Results go to outW and
// logs to logW. With no modules the CoreModules are registered.
func NewApp(outW, logW io.Writer, cfg config.Config, modules ...registry.Module) *App {
	logger := NewLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	if len(modules) == 0 {
		modules = CoreModules
	}
	reg := registry.New(modules...)
	logger.Debug("All Go modules registered.", "count", len(modules), "kinds", len(reg.Kinds()))

	a := &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		registry: reg,
	}
	if cfg.MetricsPort > 0 {
		a.metrics = metrics.NewCollector()
	}
	return a
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// SetEnv replaces the environment handed to nodes. Without it the process
// environment is used.
func (a *App) SetEnv(env map[string]string) {
	a.env = env
}

// LoadProject loads every configured project path and checks the node kinds
// against the registry.
func (a *App) LoadProject(ctx context.Context) (*graph.Project, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("Loading project...", "paths", a.config.ProjectPaths)

	if len(a.config.ProjectPaths) == 0 {
		return nil, fmt.Errorf("%w: no project paths given", ErrProjectLoad)
	}
	project, err := hclloader.Load(ctx, a.config.ProjectPaths...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProjectLoad, err)
	}
	if err := a.registry.ValidateProject(ctx, project); err != nil {
		return nil, err
	}
	a.logger.Info("Project loaded successfully.", "project", project.ID, "graphs", len(project.Graphs))
	return project, nil
}
