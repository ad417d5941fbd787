//go:build darwin || freebsd || linux || windows

package symbols

import (
	"fmt"

	"github.com/ebitengine/purego"

	"github.com/wippyai/modhost/errors"
)

// Resolve binds the contract entry points exported by a mapped native
// library. Addresses are resolved in contract order and the first failure
// is returned, naming the symbol.
func Resolve(lib Lookuper) (*Table, error) {
	var (
		onLoad   func() uint32
		onUnload func() uint32
		update   func(float64) uint32
	)
	targets := map[string]any{
		OnLoad:   &onLoad,
		OnUnload: &onUnload,
		Update:   &update,
	}
	for _, name := range Names() {
		addr, err := lib.Lookup(name)
		if err != nil {
			return nil, err
		}
		if err := register(targets[name], addr); err != nil {
			return nil, errors.SymbolResolution(lib.Path(), name, err)
		}
	}

	return NewTable(lib.Path(), Funcs{
		OnLoad:   func() (uint32, error) { return onLoad(), nil },
		OnUnload: func() (uint32, error) { return onUnload(), nil },
		Update:   func(dt float64) (uint32, error) { return update(dt), nil },
	})
}

// register wraps purego.RegisterFunc, which panics on signatures the
// platform cannot call.
func register(fptr any, addr uintptr) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("bind: %v", r)
		}
	}()
	purego.RegisterFunc(fptr, addr)
	return nil
}
