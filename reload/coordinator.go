package reload

import (
	"context"
	stderrors "errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/wippyai/modhost/errors"
	"github.com/wippyai/modhost/lifecycle"
)

const tracerName = "github.com/wippyai/modhost/reload"

// Observer is told about every reload attempt.
type Observer interface {
	Reloaded(name string, installed bool, elapsed time.Duration, err error)
}

// Coordinator rebuilds modules through a lifecycle.Manager.
type Coordinator struct {
	mgr       *lifecycle.Manager
	logger    *zap.Logger
	tracer    trace.Tracer
	observers []Observer
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger. Default is the manager's logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTracerProvider enables a span per reload.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Coordinator) {
		if tp != nil {
			c.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithObserver adds an observer.
func WithObserver(o Observer) Option {
	return func(c *Coordinator) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// NewCoordinator creates a coordinator driving mgr.
func NewCoordinator(mgr *lifecycle.Manager, opts ...Option) *Coordinator {
	c := &Coordinator{
		mgr:    mgr,
		logger: mgr.Logger(),
		tracer: noop.NewTracerProvider().Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Reload shuts mod down, installs a staged artifact if one exists and
// starts the module again under the same name.
//
// A nonzero on_unload status is logged and does not stop the reload. On any
// later failure the returned module is nil: the caller has no active module
// and may call Recover.
func (c *Coordinator) Reload(ctx context.Context, mod *lifecycle.Module) (*lifecycle.Module, error) {
	if !mod.Running() {
		name := ""
		if mod != nil {
			name = mod.Name()
		}
		return nil, errors.Misuse(errors.PhaseReload, name, "reload requires a running module, module is "+mod.State().String())
	}
	name, path := mod.Name(), mod.Path()

	ctx, span := c.tracer.Start(ctx, "reload", trace.WithAttributes(
		attribute.String("module.name", name),
		attribute.String("module.path", path),
	))
	defer span.End()
	start := time.Now()

	if err := c.mgr.Shutdown(ctx, mod); err != nil {
		if mod.State() != lifecycle.StateUnloaded {
			return nil, c.finish(span, name, false, start, err)
		}
		c.logger.Warn("unload before reload reported an error",
			zap.String("module", name), zap.Error(err))
	}

	return c.rebuild(ctx, span, name, path, start)
}

// Recover starts name when no module is active, installing a staged
// artifact first if there is one.
func (c *Coordinator) Recover(ctx context.Context, name string) (*lifecycle.Module, error) {
	path := c.mgr.PathFor(name)
	ctx, span := c.tracer.Start(ctx, "reload.recover", trace.WithAttributes(
		attribute.String("module.name", name),
		attribute.String("module.path", path),
	))
	defer span.End()

	return c.rebuild(ctx, span, name, path, time.Now())
}

func (c *Coordinator) rebuild(ctx context.Context, span trace.Span, name, path string, start time.Time) (*lifecycle.Module, error) {
	installed, err := Install(path)
	if err != nil && !installed {
		return nil, c.finish(span, name, false, start, err)
	}
	if err != nil {
		// artifact already in place; a leftover .new only triggers another reload
		c.logger.Warn("staged artifact not removed", zap.String("path", path), zap.Error(err))
	}
	if installed {
		c.logger.Info("installed staged build", zap.String("module", name), zap.String("path", path))
	}
	span.SetAttributes(attribute.Bool("reload.installed", installed))

	next, err := c.mgr.Start(ctx, name)
	if err != nil {
		return nil, c.finish(span, name, installed, start, err)
	}
	c.finish(span, name, installed, start, nil)
	return next, nil
}

func (c *Coordinator) finish(span trace.Span, name string, installed bool, start time.Time, err error) error {
	elapsed := time.Since(start)
	for _, o := range c.observers {
		o.Reloaded(name, installed, elapsed, err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Error("reload failed",
			zap.String("module", name),
			zap.Duration("duration", elapsed),
			zap.Error(err))
		return err
	}
	c.logger.Info("reloaded module",
		zap.String("module", name),
		zap.Bool("installed", installed),
		zap.Duration("duration", elapsed))
	return nil
}

// IsMisuse reports whether err is a host-side lifecycle misuse rather than
// a module failure.
func IsMisuse(err error) bool {
	return stderrors.Is(err, errors.ErrMisuse)
}
