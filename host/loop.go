// Package host holds the single module slot and drives it once per frame.
package host

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/wippyai/modhost/lifecycle"
	"github.com/wippyai/modhost/reload"
)

// Policy decides what a failed update does to the loop.
type Policy string

const (
	// PolicyContinue reports the failure and keeps ticking.
	PolicyContinue Policy = "continue"
	// PolicyStop shuts the module down and stops the loop.
	PolicyStop Policy = "stop"
)

// Config controls a Loop.
type Config struct {
	// Name is the logical module name.
	Name string
	// FPS caps the headless frame rate.
	FPS int
	// OnUpdateError is the update failure policy. Default PolicyContinue.
	OnUpdateError Policy
	// ReloadRetries is how many times Recover is retried after a failed
	// reload before the slot is left empty.
	ReloadRetries int
	// ReloadRetryInterval is the wait between retries.
	ReloadRetryInterval time.Duration
	// AutoReload treats the arrival of a staged artifact as a trigger.
	AutoReload bool
}

// Status is a snapshot of the loop for display.
type Status struct {
	Name        string
	State       lifecycle.State
	Generation  uint64
	Frames      uint64
	FailStreak  int
	LastError   error
	Stopped     bool
	LibraryPath string
}

// Loop owns the active module slot. Every method must be called from the
// same goroutine.
type Loop struct {
	cfg    Config
	mgr    *lifecycle.Manager
	coord  *reload.Coordinator
	logger *zap.Logger

	mod     *lifecycle.Module
	trigger reload.Edge
	watch   reload.Watch

	streak  int
	lastErr error
	stopped bool
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the logger. Default is the manager's logger.
func WithLogger(l *zap.Logger) Option {
	return func(lp *Loop) {
		if l != nil {
			lp.logger = l
		}
	}
}

// NewLoop creates a loop with an empty slot.
func NewLoop(mgr *lifecycle.Manager, coord *reload.Coordinator, cfg Config, opts ...Option) *Loop {
	if cfg.OnUpdateError == "" {
		cfg.OnUpdateError = PolicyContinue
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 60
	}
	l := &Loop{
		cfg:    cfg,
		mgr:    mgr,
		coord:  coord,
		logger: mgr.Logger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start loads and initializes the configured module. The loop must not run
// frames if it fails.
func (l *Loop) Start(ctx context.Context) error {
	if l.mod != nil {
		return fmt.Errorf("module %q already started", l.cfg.Name)
	}
	mod, err := l.mgr.Start(ctx, l.cfg.Name)
	if err != nil {
		l.lastErr = err
		return err
	}
	l.mod = mod
	// a stale artifact present at startup is not an arrival
	l.watch.Appeared(l.mgr.PathFor(l.cfg.Name))
	return nil
}

// Module returns the active module, or nil when the slot is empty.
func (l *Loop) Module() *lifecycle.Module { return l.mod }

// Stopped reports whether the loop has shut down.
func (l *Loop) Stopped() bool { return l.stopped }

// Frame runs one frame: a reload on the rising edge of trigger (or on a new
// staged artifact with AutoReload), then one update of dt seconds. It
// returns the update error, or the reload error of this frame.
func (l *Loop) Frame(ctx context.Context, dt float64, trigger bool) error {
	if l.stopped {
		return nil
	}

	requested := l.trigger.Rising(trigger)
	if l.cfg.AutoReload && l.watch.Appeared(l.mgr.PathFor(l.cfg.Name)) {
		l.logger.Info("staged build detected", zap.String("module", l.cfg.Name))
		requested = true
	}
	if requested {
		if err := l.reload(ctx); err != nil {
			return err
		}
	}

	if l.mod == nil {
		return nil
	}

	err := l.mgr.Tick(ctx, l.mod, dt)
	if err == nil {
		if l.streak > 0 {
			l.logger.Info("update recovered",
				zap.String("module", l.mod.Name()),
				zap.Int("failed_frames", l.streak))
		}
		l.streak = 0
		return nil
	}

	l.streak++
	l.lastErr = err
	if l.streak == 1 {
		l.logger.Warn("update failed", zap.String("module", l.mod.Name()), zap.Error(err))
	}
	if l.cfg.OnUpdateError == PolicyStop {
		l.logger.Info("stopping on update failure", zap.String("module", l.mod.Name()))
		if serr := l.Stop(ctx); serr != nil {
			l.logger.Warn("shutdown after update failure", zap.Error(serr))
		}
	}
	return err
}

// Reload requests a reload outside the edge trigger.
func (l *Loop) Reload(ctx context.Context) error {
	if l.stopped {
		return nil
	}
	return l.reload(ctx)
}

func (l *Loop) reload(ctx context.Context) error {
	var (
		next *lifecycle.Module
		err  error
	)
	if l.mod != nil {
		next, err = l.coord.Reload(ctx, l.mod)
	} else {
		next, err = l.coord.Recover(ctx, l.cfg.Name)
	}
	if err != nil && !reload.IsMisuse(err) && l.cfg.ReloadRetries > 0 {
		next, err = l.retry(ctx)
	}

	l.mod = next
	l.streak = 0
	l.lastErr = err
	if err != nil {
		l.logger.Warn("no active module", zap.String("module", l.cfg.Name), zap.Error(err))
	}
	return err
}

func (l *Loop) retry(ctx context.Context) (*lifecycle.Module, error) {
	var mod *lifecycle.Module
	// the failed reload was the first attempt; Retry calls once plus
	// max retries, and the first call waits one interval
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(l.cfg.ReloadRetryInterval), uint64(l.cfg.ReloadRetries-1)),
		ctx,
	)
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		if attempt == 1 {
			if err := sleep(ctx, l.cfg.ReloadRetryInterval); err != nil {
				return backoff.Permanent(err)
			}
		}
		l.logger.Debug("retrying module start",
			zap.String("module", l.cfg.Name),
			zap.Int("attempt", attempt))
		m, err := l.coord.Recover(ctx, l.cfg.Name)
		if err != nil {
			return err
		}
		mod = m
		return nil
	}, policy)
	return mod, err
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Stop shuts the active module down and stops the loop. It is idempotent.
func (l *Loop) Stop(ctx context.Context) error {
	if l.stopped {
		return nil
	}
	l.stopped = true
	mod := l.mod
	l.mod = nil
	if mod == nil || !mod.Running() {
		return nil
	}
	return l.mgr.Shutdown(ctx, mod)
}

// Status returns a snapshot of the slot.
func (l *Loop) Status() Status {
	s := Status{
		Name:        l.cfg.Name,
		State:       l.mod.State(),
		FailStreak:  l.streak,
		LastError:   l.lastErr,
		Stopped:     l.stopped,
		LibraryPath: l.mgr.PathFor(l.cfg.Name),
	}
	if l.mod != nil {
		s.Generation = l.mod.Generation()
		s.Frames = l.mod.Frames()
	}
	return s
}

// Run drives frames at the configured rate until ctx is done or the loop
// stops. A value on triggers requests a reload. The module is shut down on
// return.
func (l *Loop) Run(ctx context.Context, triggers <-chan struct{}) error {
	ticker := time.NewTicker(time.Second / time.Duration(l.cfg.FPS))
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return l.Stop(context.WithoutCancel(ctx))
		case <-triggers:
			_ = l.Frame(ctx, l.elapsed(&last), true)
			// release the trigger so the next request is a new edge
			l.trigger.Rising(false)
		case <-ticker.C:
			_ = l.Frame(ctx, l.elapsed(&last), false)
		}
		if l.stopped {
			return l.lastErr
		}
	}
}

func (l *Loop) elapsed(last *time.Time) float64 {
	now := time.Now()
	dt := now.Sub(*last).Seconds()
	*last = now
	if dt < 0 {
		return 0
	}
	return dt
}
