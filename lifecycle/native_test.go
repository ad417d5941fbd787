//go:build darwin || freebsd || linux

package lifecycle

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/wippyai/modhost/engine"
	"github.com/wippyai/modhost/errors"
	"github.com/wippyai/modhost/internal/ctest"
	"github.com/wippyai/modhost/symbols"
)

func TestManager_Native(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	backend := engine.NewNative()
	ctest.Build(t, dir, backend.Filename("game"), "UPDATE_STATUS=2", "ON_UNLOAD_STATUS=1")
	m := NewManager(backend, WithDir(dir))

	mod, err := m.Start(ctx, "game")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < 10; i++ {
		if err := m.Tick(ctx, mod, 0.016); !stderrors.Is(err, errors.ErrUpdate) {
			t.Fatalf("expected update error, got %v", err)
		}
	}
	if !mod.Running() {
		t.Fatal("module must stay running")
	}
	if err := m.Shutdown(ctx, mod); !stderrors.Is(err, errors.ErrOnUnload) {
		t.Fatalf("expected on_unload error, got %v", err)
	}
	if mod.State() != StateUnloaded {
		t.Errorf("state = %v", mod.State())
	}
}

func TestManager_NativeOnLoadFailure(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	backend := engine.NewNative()
	ctest.Build(t, dir, backend.Filename("game"), "ON_LOAD_STATUS=4")
	m := NewManager(backend, WithDir(dir))

	_, err := m.Start(ctx, "game")
	if s, ok := errors.StatusOf(err); !stderrors.Is(err, errors.ErrOnLoad) || !ok || s != 4 {
		t.Fatalf("expected on_load status 4, got %v", err)
	}
}

func TestManager_NativeMissingSymbol(t *testing.T) {
	ctx := context.Background()
	backend := engine.NewNative()
	for _, name := range symbols.Names() {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			ctest.Build(t, dir, backend.Filename("game"), "OMIT_"+strings.ToUpper(name))
			m := NewManager(backend, WithDir(dir))

			_, err := m.Start(ctx, "game")
			if !stderrors.Is(err, errors.ErrSymbolResolution) {
				t.Fatalf("expected symbol resolution error, got %v", err)
			}
			if got := errors.SymbolOf(err); got != name {
				t.Errorf("SymbolOf = %q, want %q", got, name)
			}

			// nothing stays mapped: the same file opens again
			lib, err := backend.Open(ctx, m.PathFor("game"))
			if err != nil {
				t.Fatalf("reopen: %v", err)
			}
			if err := lib.Close(ctx); err != nil {
				t.Errorf("close reopened: %v", err)
			}
		})
	}
}
