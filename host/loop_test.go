package host

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/wippyai/modhost/engine"
	"github.com/wippyai/modhost/errors"
	"github.com/wippyai/modhost/internal/wasmtest"
	"github.com/wippyai/modhost/lifecycle"
	"github.com/wippyai/modhost/reload"
)

type fixture struct {
	dir  string
	path string
	loop *Loop
	mgr  *lifecycle.Manager
}

func newFixture(t *testing.T, initial wasmtest.Module, cfg Config, opts ...lifecycle.Option) *fixture {
	t.Helper()
	ctx := context.Background()
	backend, err := engine.NewWazero(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = backend.Close(ctx) })

	dir := t.TempDir()
	if cfg.Name == "" {
		cfg.Name = "game"
	}
	path := initial.Write(t, dir, cfg.Name+".wasm")
	mgr := lifecycle.NewManager(backend, append([]lifecycle.Option{lifecycle.WithDir(dir)}, opts...)...)
	return &fixture{
		dir:  dir,
		path: path,
		mgr:  mgr,
		loop: NewLoop(mgr, reload.NewCoordinator(mgr), cfg),
	}
}

func (f *fixture) stage(t *testing.T, mod wasmtest.Module) {
	t.Helper()
	if err := os.WriteFile(reload.ArtifactPath(f.path), mod.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoop_StartAndFrames(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, wasmtest.Module{}, Config{})

	if err := f.loop.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := f.loop.Start(ctx); err == nil {
		t.Error("second start must fail")
	}
	for i := 0; i < 5; i++ {
		if err := f.loop.Frame(ctx, 0.016, false); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}
	st := f.loop.Status()
	if st.Frames != 5 || st.State != lifecycle.StateRunning || st.Generation != 1 {
		t.Errorf("unexpected status %+v", st)
	}
	if err := f.loop.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	if err := f.loop.Stop(ctx); err != nil {
		t.Errorf("second stop: %v", err)
	}
	if f.loop.Module() != nil || !f.loop.Stopped() {
		t.Error("stop must empty the slot")
	}
}

func TestLoop_StartFailure(t *testing.T) {
	f := newFixture(t, wasmtest.Module{OnLoadStatus: 1}, Config{})
	err := f.loop.Start(context.Background())
	if !stderrors.Is(err, errors.ErrOnLoad) {
		t.Fatalf("expected on_load error, got %v", err)
	}
	if f.loop.Module() != nil {
		t.Error("slot must stay empty")
	}
}

func TestLoop_ContinuePolicy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, wasmtest.Module{UpdateStatus: 2}, Config{})
	if err := f.loop.Start(ctx); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 100; i++ {
		if err := f.loop.Frame(ctx, 0.016, false); !stderrors.Is(err, errors.ErrUpdate) {
			t.Fatalf("frame %d: expected update error, got %v", i, err)
		}
	}
	st := f.loop.Status()
	if st.State != lifecycle.StateRunning || st.FailStreak != 100 || st.Stopped {
		t.Errorf("unexpected status %+v", st)
	}
}

func TestLoop_StopPolicy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, wasmtest.Module{UpdateStatus: 2}, Config{OnUpdateError: PolicyStop})
	if err := f.loop.Start(ctx); err != nil {
		t.Fatal(err)
	}
	mod := f.loop.Module()

	if err := f.loop.Frame(ctx, 0.016, false); !stderrors.Is(err, errors.ErrUpdate) {
		t.Fatalf("expected update error, got %v", err)
	}
	if !f.loop.Stopped() || mod.State() != lifecycle.StateUnloaded {
		t.Fatalf("stop policy must unload the module, state %v", mod.State())
	}
	if err := f.loop.Frame(ctx, 0.016, false); err != nil {
		t.Errorf("frames after stop are ignored, got %v", err)
	}
}

func TestLoop_TriggerIsEdge(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, wasmtest.Module{}, Config{})
	if err := f.loop.Start(ctx); err != nil {
		t.Fatal(err)
	}

	held := []bool{true, true, true, false, true}
	for _, h := range held {
		if err := f.loop.Frame(ctx, 0.016, h); err != nil {
			t.Fatal(err)
		}
	}
	// two rising edges: generation 1 -> 3
	if got := f.loop.Module().Generation(); got != 3 {
		t.Errorf("Generation() = %d, want 3", got)
	}
}

func TestLoop_ReloadInstallsArtifact(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, wasmtest.Module{UpdateStatus: 4}, Config{})
	if err := f.loop.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := f.loop.Frame(ctx, 0.016, false); err == nil {
		t.Fatal("old build must fail update")
	}

	f.stage(t, wasmtest.Module{})
	if err := f.loop.Frame(ctx, 0.016, true); err != nil {
		t.Fatalf("frame after reload: %v", err)
	}
	if f.loop.Status().FailStreak != 0 {
		t.Error("reload resets the failure streak")
	}
}

func TestLoop_FailedReloadEmptiesSlot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, wasmtest.Module{}, Config{})
	if err := f.loop.Start(ctx); err != nil {
		t.Fatal(err)
	}

	f.stage(t, wasmtest.Module{OnLoadStatus: 9})
	if err := f.loop.Frame(ctx, 0.016, true); !stderrors.Is(err, errors.ErrOnLoad) {
		t.Fatalf("expected on_load error, got %v", err)
	}
	if f.loop.Module() != nil {
		t.Fatal("slot must be empty after failed reload")
	}
	if err := f.loop.Frame(ctx, 0.016, false); err != nil {
		t.Errorf("empty frames are no-ops, got %v", err)
	}

	// the next trigger recovers from a fixed build
	f.stage(t, wasmtest.Module{})
	if err := f.loop.Frame(ctx, 0.016, true); err != nil {
		t.Fatalf("recover: %v", err)
	}
	if f.loop.Module() == nil || !f.loop.Module().Running() {
		t.Fatal("expected a running module after recovery")
	}
}

type failureCounter struct {
	lifecycle.NopObserver
	failed map[string]int
}

func (c *failureCounter) Failed(op, _ string, _ error) {
	c.failed[op]++
}

func TestLoop_ReloadRetries(t *testing.T) {
	tests := []struct {
		retries  int
		attempts int
	}{
		{0, 1},
		{1, 2},
		{3, 4},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("retries=%d", tt.retries), func(t *testing.T) {
			ctx := context.Background()
			counter := &failureCounter{failed: map[string]int{}}
			f := newFixture(t, wasmtest.Module{},
				Config{ReloadRetries: tt.retries, ReloadRetryInterval: time.Millisecond},
				lifecycle.WithObserver(counter))
			if err := f.loop.Start(ctx); err != nil {
				t.Fatal(err)
			}

			f.stage(t, wasmtest.Module{OnLoadStatus: 9})
			err := f.loop.Frame(ctx, 0.016, true)
			if !stderrors.Is(err, errors.ErrOnLoad) {
				t.Fatalf("expected on_load error after retries, got %v", err)
			}
			if got := counter.failed["initialize"]; got != tt.attempts {
				t.Errorf("on_load failures = %d, want %d", got, tt.attempts)
			}
			if f.loop.Module() != nil {
				t.Error("slot must be empty")
			}
		})
	}
}

func TestLoop_ReloadRetrySucceeds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, wasmtest.Module{}, Config{ReloadRetries: 5, ReloadRetryInterval: 20 * time.Millisecond})
	if err := f.loop.Start(ctx); err != nil {
		t.Fatal(err)
	}

	f.stage(t, wasmtest.Module{OnLoadStatus: 9})
	// the fixed build lands while the loop is between retries
	fixed := wasmtest.Module{}.Bytes()
	go func() {
		time.Sleep(5 * time.Millisecond)
		_ = os.WriteFile(reload.ArtifactPath(f.path), fixed, 0o644)
	}()
	if err := f.loop.Frame(ctx, 0.016, true); err != nil {
		t.Fatalf("expected a retry to recover, got %v", err)
	}
	if f.loop.Module() == nil || !f.loop.Module().Running() {
		t.Fatal("expected a running module")
	}
}

func TestLoop_AutoReload(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, wasmtest.Module{UpdateStatus: 1}, Config{AutoReload: true})
	if err := f.loop.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := f.loop.Frame(ctx, 0.016, false); err == nil {
		t.Fatal("old build must fail update")
	}

	f.stage(t, wasmtest.Module{})
	if err := f.loop.Frame(ctx, 0.016, false); err != nil {
		t.Fatalf("auto reload frame: %v", err)
	}
	if got := f.loop.Module().Generation(); got != 2 {
		t.Errorf("Generation() = %d, want 2", got)
	}
}

func TestLoop_RunUntilCancel(t *testing.T) {
	f := newFixture(t, wasmtest.Module{}, Config{FPS: 200})
	if err := f.loop.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	mod := f.loop.Module()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	triggers := make(chan struct{}, 1)
	triggers <- struct{}{}

	if err := f.loop.Run(ctx, triggers); err != nil {
		t.Fatalf("run: %v", err)
	}
	if mod.State() != lifecycle.StateUnloaded {
		t.Error("first module must be replaced by the trigger")
	}
	if !f.loop.Stopped() {
		t.Error("loop must stop on cancel")
	}
}

func TestLoop_RunStopPolicy(t *testing.T) {
	f := newFixture(t, wasmtest.Module{UpdateStatus: 5}, Config{FPS: 200, OnUpdateError: PolicyStop})
	if err := f.loop.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := f.loop.Run(ctx, nil)
	if s, _ := errors.StatusOf(err); !stderrors.Is(err, errors.ErrUpdate) || s != 5 {
		t.Fatalf("expected update status 5, got %v", err)
	}
}
