package engine

import (
	"context"

	"github.com/wippyai/modhost/symbols"
)

// Backend opens module files of one kind.
type Backend interface {
	// Name identifies the backend in logs and config ("native", "wasm").
	Name() string
	// Filename derives the platform file name for a logical module name.
	Filename(name string) string
	// Open maps the file at path. No entry point is called.
	Open(ctx context.Context, path string) (Library, error)
	// Close releases backend-wide resources.
	Close(ctx context.Context) error
}

// Library is one mapped module file.
type Library interface {
	// Path returns the absolute path the library was opened from.
	Path() string
	// Resolve binds the contract entry points.
	Resolve(ctx context.Context) (*symbols.Table, error)
	// Close unmaps the library. Any table resolved from it must already
	// be released. A second Close fails with ErrMisuse.
	Close(ctx context.Context) error
}
