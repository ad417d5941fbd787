package reload

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEdge_Rising(t *testing.T) {
	var e Edge
	levels := []bool{false, true, true, true, false, true, false, false}
	want := []bool{false, true, false, false, false, true, false, false}
	for i, level := range levels {
		if got := e.Rising(level); got != want[i] {
			t.Errorf("step %d: Rising(%v) = %v, want %v", i, level, got, want[i])
		}
	}
}

func TestEdge_Reset(t *testing.T) {
	var e Edge
	e.Rising(true)
	e.Reset()
	if !e.Rising(true) {
		t.Error("expected trigger after reset")
	}
}

func TestWatch_Appeared(t *testing.T) {
	lib := filepath.Join(t.TempDir(), "game.wasm")
	var w Watch

	if w.Appeared(lib) {
		t.Fatal("no artifact yet")
	}
	write(t, ArtifactPath(lib), []byte("v2"))
	if !w.Appeared(lib) {
		t.Fatal("expected arrival")
	}
	if w.Appeared(lib) {
		t.Error("arrival fires once")
	}
	if err := os.Remove(ArtifactPath(lib)); err != nil {
		t.Fatal(err)
	}
	w.Appeared(lib)
	write(t, ArtifactPath(lib), []byte("v3"))
	if !w.Appeared(lib) {
		t.Error("expected second arrival")
	}
}
