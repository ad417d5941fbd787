package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/modhost/dylib"
	"github.com/wippyai/modhost/symbols"
)

// Native loads platform shared libraries.
type Native struct{}

// NewNative creates the native backend.
func NewNative() *Native {
	return &Native{}
}

// Name implements Backend.
func (n *Native) Name() string { return "native" }

// Filename implements Backend.
func (n *Native) Filename(name string) string { return dylib.Filename(name) }

// Open implements Backend.
func (n *Native) Open(_ context.Context, path string) (Library, error) {
	lib, err := dylib.Open(path)
	if err != nil {
		return nil, err
	}
	Logger().Debug("library mapped", zap.String("path", lib.Path()))
	return &nativeLibrary{lib: lib}, nil
}

// Close implements Backend. The native backend holds no shared state.
func (n *Native) Close(context.Context) error { return nil }

type nativeLibrary struct {
	lib *dylib.Library
}

func (l *nativeLibrary) Path() string { return l.lib.Path() }

func (l *nativeLibrary) Resolve(context.Context) (*symbols.Table, error) {
	return symbols.Resolve(l.lib)
}

func (l *nativeLibrary) Close(context.Context) error {
	path := l.lib.Path()
	if err := l.lib.Close(); err != nil {
		return err
	}
	Logger().Debug("library unmapped", zap.String("path", path))
	return nil
}
