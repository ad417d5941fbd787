// Package metrics exports lifecycle and reload events as Prometheus metrics
// and serves health endpoints.
package metrics

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wippyai/modhost/errors"
	"github.com/wippyai/modhost/lifecycle"
)

const namespace = "modhost"

// Collectors implements lifecycle.Observer and reload.Observer.
type Collectors struct {
	frames          *prometheus.CounterVec
	updateErrors    *prometheus.CounterVec
	lifecycleErrors *prometheus.CounterVec
	reloads         *prometheus.CounterVec
	reloadDuration  prometheus.Histogram
	state           *prometheus.GaugeVec
	generation      *prometheus.GaugeVec

	running atomic.Int32
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Update calls made into the module.",
		}, []string{"module"}),
		updateErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "update_errors_total",
			Help:      "Update calls that returned a nonzero status or trapped.",
		}, []string{"module"}),
		lifecycleErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_errors_total",
			Help:      "Failed lifecycle operations by operation and error kind.",
		}, []string{"op", "kind"}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reloads_total",
			Help:      "Reload attempts by result.",
		}, []string{"result"}),
		reloadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reload_duration_seconds",
			Help:      "Time from unload of the old module to a running new one.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "module_state",
			Help:      "Current lifecycle state (0 unloaded, 1 loaded, 2 running, 3 unloading).",
		}, []string{"module"}),
		generation: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "module_generation",
			Help:      "Number of times the module has been loaded.",
		}, []string{"module"}),
	}
	reg.MustRegister(
		c.frames,
		c.updateErrors,
		c.lifecycleErrors,
		c.reloads,
		c.reloadDuration,
		c.state,
		c.generation,
	)
	return c
}

// StateChanged implements lifecycle.Observer.
func (c *Collectors) StateChanged(mod *lifecycle.Module, from, to lifecycle.State) {
	c.state.WithLabelValues(mod.Name()).Set(float64(to))
	if to == lifecycle.StateLoaded {
		c.generation.WithLabelValues(mod.Name()).Set(float64(mod.Generation()))
	}
	switch {
	case to == lifecycle.StateRunning:
		c.running.Add(1)
	case from == lifecycle.StateRunning:
		c.running.Add(-1)
	}
}

// Ticked implements lifecycle.Observer.
func (c *Collectors) Ticked(mod *lifecycle.Module, err error) {
	c.frames.WithLabelValues(mod.Name()).Inc()
	if err != nil {
		c.updateErrors.WithLabelValues(mod.Name()).Inc()
	}
}

// Failed implements lifecycle.Observer.
func (c *Collectors) Failed(op, _ string, err error) {
	kind := string(errors.KindOf(err))
	if kind == "" {
		kind = "unknown"
	}
	c.lifecycleErrors.WithLabelValues(op, kind).Inc()
}

// Reloaded implements reload.Observer.
func (c *Collectors) Reloaded(_ string, _ bool, elapsed time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	c.reloads.WithLabelValues(result).Inc()
	c.reloadDuration.Observe(elapsed.Seconds())
}

// Ready fails unless a module is running. It is safe to call from any
// goroutine.
func (c *Collectors) Ready() error {
	if c.running.Load() <= 0 {
		return fmt.Errorf("no module running")
	}
	return nil
}
