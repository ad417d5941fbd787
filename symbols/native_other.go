//go:build !(darwin || freebsd || linux || windows)

package symbols

import (
	"fmt"
	"runtime"

	"github.com/wippyai/modhost/errors"
)

// Resolve is unavailable on this platform.
func Resolve(lib Lookuper) (*Table, error) {
	return nil, errors.SymbolResolution(lib.Path(), OnLoad,
		fmt.Errorf("native entry points are not supported on %s", runtime.GOOS))
}
