package main

import (
	"context"
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/modhost/config"
	"github.com/wippyai/modhost/engine"
	"github.com/wippyai/modhost/host"
	"github.com/wippyai/modhost/lifecycle"
	"github.com/wippyai/modhost/metrics"
	"github.com/wippyai/modhost/reload"
	"github.com/wippyai/modhost/telemetry"
)

// loadConfig layers CLI flags over the file and environment.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if c.IsSet("config") {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if c.IsSet("module") {
		cfg.Module.Name = c.String("module")
	}
	if c.IsSet("dir") {
		cfg.Module.Dir = c.String("dir")
	}
	if c.IsSet("backend") {
		cfg.Module.Backend = c.String("backend")
	}
	if c.IsSet("wasi") {
		cfg.Module.WASI = c.Bool("wasi")
	}
	if c.IsSet("fps") {
		cfg.Host.FPS = c.Int("fps")
	}
	if c.IsSet("auto-reload") {
		cfg.Host.AutoReload = c.Bool("auto-reload")
	}
	if c.Bool("debug") {
		cfg.Log.Level = "debug"
		cfg.Log.Development = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger. With toFile set, output goes to
// cfg.Log.File so it does not corrupt the terminal UI.
func newLogger(cfg config.LogConfig, toFile bool) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	if toFile && cfg.File != "" {
		zc.OutputPaths = []string{cfg.File}
		zc.ErrorOutputPaths = []string{cfg.File}
	}
	return zc.Build()
}

func newBackend(ctx context.Context, cfg config.ModuleConfig) (engine.Backend, error) {
	switch cfg.Backend {
	case config.BackendWasm:
		return engine.NewWazero(ctx, &engine.WazeroConfig{EnableWASI: cfg.WASI})
	default:
		return engine.NewNative(), nil
	}
}

// session holds everything a run command wires together.
type session struct {
	cfg     *config.Config
	logger  *zap.Logger
	backend engine.Backend
	mgr     *lifecycle.Manager
	loop    *host.Loop
	metrics *metrics.Server

	shutdownTracing func(context.Context) error
}

func setup(ctx context.Context, cfg *config.Config, interactive bool) (*session, error) {
	logger, err := newLogger(cfg.Log, interactive)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	engine.SetLogger(logger.Named("engine"))
	if logger.Core().Enabled(zapcore.DebugLevel) {
		logger.Debug("effective config", zap.String("config", spew.Sdump(cfg)))
	}

	rt := &session{cfg: cfg, logger: logger}

	var tp trace.TracerProvider
	tp, rt.shutdownTracing, err = telemetry.Setup(ctx, telemetry.Config{
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	rt.backend, err = newBackend(ctx, cfg.Module)
	if err != nil {
		_ = rt.shutdownTracing(ctx)
		return nil, fmt.Errorf("backend: %w", err)
	}

	mgrOpts := []lifecycle.Option{
		lifecycle.WithDir(cfg.Module.Dir),
		lifecycle.WithLogger(logger.Named("lifecycle")),
		lifecycle.WithTracerProvider(tp),
	}
	coordOpts := []reload.Option{
		reload.WithLogger(logger.Named("reload")),
		reload.WithTracerProvider(tp),
	}
	if cfg.Metrics.Addr != "" {
		reg := metrics.NewRegistry()
		collectors := metrics.New(reg)
		mgrOpts = append(mgrOpts, lifecycle.WithObserver(collectors))
		coordOpts = append(coordOpts, reload.WithObserver(collectors))
		rt.metrics = metrics.NewServer(cfg.Metrics.Addr, reg, collectors, logger.Named("metrics"))
		if err := rt.metrics.Start(); err != nil {
			rt.close(ctx)
			return nil, fmt.Errorf("metrics: %w", err)
		}
	}

	rt.mgr = lifecycle.NewManager(rt.backend, mgrOpts...)
	coord := reload.NewCoordinator(rt.mgr, coordOpts...)
	rt.loop = host.NewLoop(rt.mgr, coord, host.Config{
		Name:                cfg.Module.Name,
		FPS:                 cfg.Host.FPS,
		OnUpdateError:       host.Policy(cfg.Host.OnUpdateError),
		ReloadRetries:       cfg.Host.ReloadRetries,
		ReloadRetryInterval: cfg.Host.ReloadRetryInterval,
		AutoReload:          cfg.Host.AutoReload,
	}, host.WithLogger(logger.Named("host")))
	return rt, nil
}

// close stops the module and releases everything setup created.
func (rt *session) close(ctx context.Context) {
	if rt.loop != nil {
		if err := rt.loop.Stop(ctx); err != nil {
			rt.logger.Warn("module shutdown", zap.Error(err))
		}
	}
	if rt.metrics != nil {
		_ = rt.metrics.Shutdown(ctx)
	}
	if rt.backend != nil {
		_ = rt.backend.Close(ctx)
	}
	if rt.shutdownTracing != nil {
		_ = rt.shutdownTracing(ctx)
	}
	_ = rt.logger.Sync()
}
