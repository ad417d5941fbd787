// Package lifecycle drives a module through load, initialize, tick and
// shutdown, converting status codes into typed errors.
package lifecycle

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/wippyai/modhost/engine"
	"github.com/wippyai/modhost/errors"
)

const tracerName = "github.com/wippyai/modhost/lifecycle"

// Manager owns the lifecycle of modules opened through one backend.
// It is not safe for concurrent use.
type Manager struct {
	backend     engine.Backend
	dir         string
	logger      *zap.Logger
	tracer      trace.Tracer
	observer    Observer
	generations map[string]uint64
}

// Option configures a Manager.
type Option func(*Manager)

// WithDir sets the directory module files are looked up in. Default ".".
func WithDir(dir string) Option {
	return func(m *Manager) { m.dir = dir }
}

// WithLogger sets the logger. Default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithTracerProvider enables spans around load, initialize and shutdown.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(m *Manager) {
		if tp != nil {
			m.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithObserver adds an observer. It may be given more than once.
func WithObserver(o Observer) Option {
	return func(m *Manager) {
		if o == nil {
			return
		}
		if multi, ok := m.observer.(multiObserver); ok {
			m.observer = append(multi, o)
			return
		}
		m.observer = multiObserver{o}
	}
}

// NewManager creates a manager for backend.
func NewManager(backend engine.Backend, opts ...Option) *Manager {
	m := &Manager{
		backend:     backend,
		dir:         ".",
		logger:      zap.NewNop(),
		tracer:      noop.NewTracerProvider().Tracer(tracerName),
		observer:    NopObserver{},
		generations: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Backend returns the backend modules are opened with.
func (m *Manager) Backend() engine.Backend { return m.backend }

// Logger returns the manager's logger.
func (m *Manager) Logger() *zap.Logger { return m.logger }

// PathFor derives the library path for a logical name.
func (m *Manager) PathFor(name string) string {
	return filepath.Join(m.dir, m.backend.Filename(name))
}

// Load maps the library for name and resolves its entry points. On failure
// nothing stays mapped.
func (m *Manager) Load(ctx context.Context, name string) (*Module, error) {
	path := m.PathFor(name)
	ctx, span := m.tracer.Start(ctx, "lifecycle.load", trace.WithAttributes(
		attribute.String("module.name", name),
		attribute.String("module.path", path),
		attribute.String("module.backend", m.backend.Name()),
	))
	defer span.End()

	m.logger.Info("loading module", zap.String("module", name), zap.String("path", path))

	lib, err := m.backend.Open(ctx, path)
	if err != nil {
		return nil, m.fail(span, "load", name, err)
	}

	table, err := lib.Resolve(ctx)
	if err != nil {
		if cerr := lib.Close(ctx); cerr != nil {
			m.logger.Warn("close after failed resolve", zap.String("module", name), zap.Error(cerr))
		}
		return nil, m.fail(span, "load", name, err)
	}

	m.generations[name]++
	mod := &Module{
		name:       name,
		path:       lib.Path(),
		lib:        lib,
		table:      table,
		loadedAt:   time.Now(),
		generation: m.generations[name],
	}
	m.transition(mod, StateLoaded)
	span.SetAttributes(attribute.Int64("module.generation", int64(mod.generation)))
	return mod, nil
}

// Initialize calls on_load. A nonzero status unmaps the module without
// calling on_unload and returns an OnLoad error.
func (m *Manager) Initialize(ctx context.Context, mod *Module) error {
	if err := m.expect(mod, errors.PhaseInitialize, "initialize", StateLoaded); err != nil {
		return err
	}
	ctx, span := m.tracer.Start(ctx, "lifecycle.initialize", trace.WithAttributes(
		attribute.String("module.name", mod.name),
	))
	defer span.End()

	status, callErr := mod.table.OnLoad()
	if callErr == nil && status.OK() {
		m.transition(mod, StateRunning)
		m.logger.Info("module running",
			zap.String("module", mod.name),
			zap.Uint64("generation", mod.generation))
		return nil
	}

	err := errors.OnLoad(mod.name, status, callErr)
	if cerr := m.unmap(ctx, mod); cerr != nil {
		m.logger.Warn("close after failed on_load", zap.String("module", mod.name), zap.Error(cerr))
	}
	return m.fail(span, "initialize", mod.name, err)
}

// Start loads and initializes name.
func (m *Manager) Start(ctx context.Context, name string) (*Module, error) {
	mod, err := m.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := m.Initialize(ctx, mod); err != nil {
		return nil, err
	}
	return mod, nil
}

// Tick calls update with dt seconds. A nonzero status is returned as an
// Update error and the module stays Running.
func (m *Manager) Tick(_ context.Context, mod *Module, dt float64) error {
	if err := m.expect(mod, errors.PhaseUpdate, "tick", StateRunning); err != nil {
		return err
	}
	if dt < 0 {
		dt = 0
	}

	status, callErr := mod.table.Update(dt)
	mod.frames++

	var err error
	if callErr != nil || !status.OK() {
		err = errors.Update(mod.name, status, callErr)
	}
	m.observer.Ticked(mod, err)
	return err
}

// Shutdown calls on_unload and then unmaps the library whatever the status
// was. The module ends Unloaded; a nonzero status is returned as an
// OnUnload error.
func (m *Manager) Shutdown(ctx context.Context, mod *Module) error {
	if err := m.expect(mod, errors.PhaseShutdown, "shutdown", StateRunning); err != nil {
		return err
	}
	ctx, span := m.tracer.Start(ctx, "lifecycle.shutdown", trace.WithAttributes(
		attribute.String("module.name", mod.name),
	))
	defer span.End()

	m.transition(mod, StateUnloading)

	var err error
	status, callErr := mod.table.OnUnload()
	if callErr != nil || !status.OK() {
		err = errors.OnUnload(mod.name, status, callErr)
	}
	if cerr := m.unmap(ctx, mod); cerr != nil {
		err = stderrors.Join(err, cerr)
	}

	m.logger.Info("module unloaded",
		zap.String("module", mod.name),
		zap.Uint64("frames", mod.frames))
	if err != nil {
		return m.fail(span, "shutdown", mod.name, err)
	}
	return nil
}

// Discard unmaps a module that was loaded but never initialized. No entry
// point is called.
func (m *Manager) Discard(ctx context.Context, mod *Module) error {
	if err := m.expect(mod, errors.PhaseShutdown, "discard", StateLoaded); err != nil {
		return err
	}
	return m.unmap(ctx, mod)
}

// unmap releases the symbol table before closing the library, so no entry
// point can be reached once the mapping is gone.
func (m *Manager) unmap(ctx context.Context, mod *Module) error {
	mod.table.Release()
	err := mod.lib.Close(ctx)
	m.transition(mod, StateUnloaded)
	if err != nil {
		var e *errors.Error
		if stderrors.As(err, &e) && e.Module == "" {
			e.Module = mod.name
		}
	}
	return err
}

func (m *Manager) transition(mod *Module, to State) {
	from := mod.state
	mod.state = to
	m.logger.Debug("state changed",
		zap.String("module", mod.name),
		zap.Stringer("from", from),
		zap.Stringer("to", to))
	m.observer.StateChanged(mod, from, to)
}

func (m *Manager) expect(mod *Module, phase errors.Phase, op string, want State) error {
	if mod != nil && mod.state == want {
		return nil
	}
	name := ""
	if mod != nil {
		name = mod.name
	}
	err := errors.Misuse(phase, name, op+" requires state "+want.String()+", module is "+mod.State().String())
	m.logger.Error("lifecycle misuse", zap.String("op", op), zap.Error(err))
	return err
}

func (m *Manager) fail(span trace.Span, op, name string, err error) error {
	var e *errors.Error
	if stderrors.As(err, &e) && e.Module == "" {
		e.Module = name
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	m.logger.Error(op+" failed", zap.String("module", name), zap.Error(err))
	m.observer.Failed(op, name, err)
	return err
}
