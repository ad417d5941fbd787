//go:build !darwin && !freebsd && !linux && !windows

package dylib

import (
	"fmt"
	"runtime"
)

var errUnsupported = fmt.Errorf("dynamic libraries are not supported on %s", runtime.GOOS)

func open(string) (uintptr, error) {
	return 0, errUnsupported
}

func lookup(uintptr, string) (uintptr, error) {
	return 0, errUnsupported
}

func closeHandle(uintptr) error {
	return errUnsupported
}
