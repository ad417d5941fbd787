package lifecycle

import (
	"time"

	"github.com/wippyai/modhost/engine"
	"github.com/wippyai/modhost/symbols"
)

// Module is one loaded module. Only the Manager that created it may drive
// it; once Unloaded it is never called into again.
type Module struct {
	name       string
	path       string
	lib        engine.Library
	table      *symbols.Table
	state      State
	loadedAt   time.Time
	generation uint64
	frames     uint64
}

// Name returns the logical module name.
func (m *Module) Name() string { return m.name }

// Path returns the resolved library path.
func (m *Module) Path() string { return m.path }

// State returns the current lifecycle state. A nil Module is Unloaded.
func (m *Module) State() State {
	if m == nil {
		return StateUnloaded
	}
	return m.state
}

// LoadedAt returns when the library was mapped.
func (m *Module) LoadedAt() time.Time { return m.loadedAt }

// Generation counts successful loads of this logical name by the Manager,
// starting at 1.
func (m *Module) Generation() uint64 { return m.generation }

// Frames returns the number of update calls made.
func (m *Module) Frames() uint64 { return m.frames }

// Running reports whether the module accepts Tick.
func (m *Module) Running() bool { return m.State() == StateRunning }
