package symbols

import (
	"github.com/wippyai/modhost"
	"github.com/wippyai/modhost/errors"
)

// Funcs are the raw entry points a backend binds. A non-nil error means the
// call did not complete (a trap); the status is then ignored.
type Funcs struct {
	OnLoad   func() (uint32, error)
	OnUnload func() (uint32, error)
	Update   func(dt float64) (uint32, error)
}

// Table holds the bound entry points of one loaded module. It is a view
// into the owning library: Release must be called before the library is
// closed, after which every call fails with ErrMisuse.
type Table struct {
	path     string
	funcs    Funcs
	released bool
}

// NewTable validates that every entry point is bound. The first missing one,
// in contract order, is reported as a symbol resolution error.
func NewTable(path string, f Funcs) (*Table, error) {
	missing := ""
	switch {
	case f.OnLoad == nil:
		missing = OnLoad
	case f.OnUnload == nil:
		missing = OnUnload
	case f.Update == nil:
		missing = Update
	}
	if missing != "" {
		return nil, errors.SymbolResolution(path, missing, nil)
	}
	return &Table{path: path, funcs: f}, nil
}

// Path returns the path of the library the table was resolved from.
func (t *Table) Path() string { return t.path }

// OnLoad invokes on_load.
func (t *Table) OnLoad() (modhost.Status, error) {
	if err := t.check(OnLoad, errors.PhaseInitialize); err != nil {
		return 0, err
	}
	return call(t.funcs.OnLoad)
}

// OnUnload invokes on_unload.
func (t *Table) OnUnload() (modhost.Status, error) {
	if err := t.check(OnUnload, errors.PhaseShutdown); err != nil {
		return 0, err
	}
	return call(t.funcs.OnUnload)
}

// Update invokes update with the elapsed seconds since the previous frame.
func (t *Table) Update(dt float64) (modhost.Status, error) {
	if err := t.check(Update, errors.PhaseUpdate); err != nil {
		return 0, err
	}
	s, err := t.funcs.Update(dt)
	if err != nil {
		return modhost.StatusTrap, err
	}
	return modhost.Status(s), nil
}

// Release detaches the table from its library. It is idempotent.
func (t *Table) Release() {
	if t == nil {
		return
	}
	t.released = true
	t.funcs = Funcs{}
}

// Released reports whether Release has been called.
func (t *Table) Released() bool { return t == nil || t.released }

func (t *Table) check(symbol string, phase errors.Phase) error {
	if t == nil || t.released {
		path := ""
		if t != nil {
			path = t.path
		}
		return errors.New(phase, errors.KindMisuse).
			Path(path).
			Symbol(symbol).
			Detail("entry point called after its library was released").
			Build()
	}
	return nil
}

func call(fn func() (uint32, error)) (modhost.Status, error) {
	s, err := fn()
	if err != nil {
		return modhost.StatusTrap, err
	}
	return modhost.Status(s), nil
}
