package lifecycle

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/wippyai/modhost/engine"
	"github.com/wippyai/modhost/errors"
	"github.com/wippyai/modhost/symbols"
)

type fakeBackend struct {
	resolveErr error
	closeErr   error
	libs       []*fakeLibrary
}

func (b *fakeBackend) Name() string                { return "fake" }
func (b *fakeBackend) Filename(name string) string { return name + ".fake" }
func (b *fakeBackend) Close(context.Context) error { return nil }

func (b *fakeBackend) Open(_ context.Context, path string) (engine.Library, error) {
	lib := &fakeLibrary{path: path, backend: b}
	b.libs = append(b.libs, lib)
	return lib, nil
}

type fakeLibrary struct {
	path    string
	backend *fakeBackend
	closed  int
}

func (l *fakeLibrary) Path() string { return l.path }

func (l *fakeLibrary) Resolve(context.Context) (*symbols.Table, error) {
	if l.backend.resolveErr != nil {
		return nil, l.backend.resolveErr
	}
	ok := func() (uint32, error) { return 0, nil }
	return symbols.NewTable(l.path, symbols.Funcs{
		OnLoad:   ok,
		OnUnload: ok,
		Update:   func(float64) (uint32, error) { return 0, nil },
	})
}

func (l *fakeLibrary) Close(context.Context) error {
	l.closed++
	if l.backend.closeErr != nil {
		return errors.Close(l.path, l.backend.closeErr)
	}
	return nil
}

func TestManager_ResolveFailureClosesLibrary(t *testing.T) {
	b := &fakeBackend{resolveErr: errors.SymbolResolution("x.fake", symbols.Update, nil)}
	m := NewManager(b)

	if _, err := m.Load(context.Background(), "x"); !stderrors.Is(err, errors.ErrSymbolResolution) {
		t.Fatalf("expected symbol resolution error, got %v", err)
	}
	if len(b.libs) != 1 || b.libs[0].closed != 1 {
		t.Fatalf("library must be closed exactly once after failed resolve")
	}
}

func TestManager_ShutdownCloseFailure(t *testing.T) {
	ctx := context.Background()
	b := &fakeBackend{}
	m := NewManager(b)

	mod, err := m.Start(ctx, "x")
	if err != nil {
		t.Fatal(err)
	}
	b.closeErr = stderrors.New("unmap refused")

	err = m.Shutdown(ctx, mod)
	if !stderrors.Is(err, errors.ErrClose) {
		t.Fatalf("expected close error, got %v", err)
	}
	if mod.State() != StateUnloaded {
		t.Errorf("state = %v, want unloaded", mod.State())
	}
	if b.libs[0].closed != 1 {
		t.Errorf("closed %d times", b.libs[0].closed)
	}
}

func TestManager_NilOptionsIgnored(t *testing.T) {
	m := NewManager(&fakeBackend{}, WithLogger(nil), WithTracerProvider(nil), WithObserver(nil))
	if m.Logger() == nil {
		t.Fatal("logger must default to no-op")
	}
	if _, err := m.Start(context.Background(), "x"); err != nil {
		t.Fatal(err)
	}
}

func TestManager_MultipleObservers(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	m := NewManager(&fakeBackend{}, WithObserver(a), WithObserver(b))
	if _, err := m.Start(context.Background(), "x"); err != nil {
		t.Fatal(err)
	}
	if len(a.transitions) != 2 || len(b.transitions) != 2 {
		t.Errorf("both observers must see transitions: %d, %d", len(a.transitions), len(b.transitions))
	}
}
