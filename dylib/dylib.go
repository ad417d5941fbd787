package dylib

import (
	"os"
	"path/filepath"

	"github.com/wippyai/modhost/errors"
)

// Library is one OS-level shared-library mapping.
type Library struct {
	path   string
	handle uintptr
}

// Open maps the library at path into the process.
// A relative path is resolved against the working directory so the
// platform loader never falls back to its search path.
func Open(path string) (*Library, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Load(path, err)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return nil, errors.Load(abs, err)
	}
	if fi.IsDir() {
		return nil, errors.New(errors.PhaseOpen, errors.KindLoad).
			Path(abs).
			Detail("path is a directory").
			Build()
	}

	h, err := open(abs)
	if err != nil {
		return nil, errors.Load(abs, err)
	}
	return &Library{path: abs, handle: h}, nil
}

// Path returns the absolute path the library was opened from.
func (l *Library) Path() string {
	return l.path
}

// Mapped reports whether the mapping is still live.
func (l *Library) Mapped() bool {
	return l != nil && l.handle != 0
}

// Lookup returns the address of the exported symbol name.
func (l *Library) Lookup(name string) (uintptr, error) {
	if !l.Mapped() {
		return 0, misuse(errors.PhaseResolve, l, "lookup on closed library")
	}
	addr, err := lookup(l.handle, name)
	if err != nil {
		return 0, errors.SymbolResolution(l.path, name, err)
	}
	if addr == 0 {
		return 0, errors.SymbolResolution(l.path, name, nil)
	}
	return addr, nil
}

// Close unmaps the library. The handle is cleared before the platform call
// so a failed unmap still leaves the Library unusable.
func (l *Library) Close() error {
	if !l.Mapped() {
		return misuse(errors.PhaseShutdown, l, "library already closed")
	}
	h := l.handle
	l.handle = 0
	if err := closeHandle(h); err != nil {
		return errors.Close(l.path, err)
	}
	return nil
}

func misuse(phase errors.Phase, l *Library, detail string) *errors.Error {
	b := errors.New(phase, errors.KindMisuse).Detail(detail)
	if l != nil {
		b.Path(l.path)
	}
	return b.Build()
}
