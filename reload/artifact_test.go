package reload

import (
	"bytes"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/wippyai/modhost/errors"
)

func write(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestArtifactPath(t *testing.T) {
	if got := ArtifactPath("/tmp/libgame.so"); got != "/tmp/libgame.so.new" {
		t.Errorf("ArtifactPath = %q", got)
	}
}

func TestInstall_NoArtifact(t *testing.T) {
	lib := filepath.Join(t.TempDir(), "libgame.so")
	write(t, lib, []byte("old"))

	installed, err := Install(lib)
	if err != nil || installed {
		t.Fatalf("Install = %v, %v; want false, nil", installed, err)
	}
	if data, _ := os.ReadFile(lib); string(data) != "old" {
		t.Error("library must be untouched")
	}
}

func TestInstall_Rename(t *testing.T) {
	lib := filepath.Join(t.TempDir(), "libgame.so")
	write(t, lib, []byte("old"))
	write(t, ArtifactPath(lib), []byte("new build"))

	installed, err := Install(lib)
	if err != nil || !installed {
		t.Fatalf("Install = %v, %v", installed, err)
	}
	if data, _ := os.ReadFile(lib); string(data) != "new build" {
		t.Errorf("library = %q", data)
	}
	if Pending(lib) {
		t.Error("artifact must be consumed")
	}
}

func TestInstall_MissingLibrary(t *testing.T) {
	lib := filepath.Join(t.TempDir(), "libgame.so")
	write(t, ArtifactPath(lib), []byte("first build"))

	installed, err := Install(lib)
	if err != nil || !installed {
		t.Fatalf("Install = %v, %v", installed, err)
	}
}

func TestInstall_CopyFallback(t *testing.T) {
	orig := rename
	calls := 0
	rename = func(oldpath, newpath string) error {
		calls++
		if calls == 1 {
			return os.ErrPermission
		}
		return orig(oldpath, newpath)
	}
	defer func() { rename = orig }()

	dir := t.TempDir()
	lib := filepath.Join(dir, "libgame.so")
	write(t, lib, []byte("old"))
	payload := bytes.Repeat([]byte("x"), 64*1024)
	write(t, ArtifactPath(lib), payload)

	installed, err := Install(lib)
	if err != nil || !installed {
		t.Fatalf("Install = %v, %v", installed, err)
	}
	if data, _ := os.ReadFile(lib); !bytes.Equal(data, payload) {
		t.Error("library must hold the artifact bytes")
	}
	if Pending(lib) {
		t.Error("artifact must be removed after copy")
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %d entries", len(entries))
	}
}

func TestInstall_NotRegular(t *testing.T) {
	lib := filepath.Join(t.TempDir(), "libgame.so")
	if err := os.Mkdir(ArtifactPath(lib), 0o755); err != nil {
		t.Fatal(err)
	}
	_, err := Install(lib)
	if !stderrors.Is(err, errors.ErrReload) {
		t.Fatalf("expected reload error, got %v", err)
	}
	if Pending(lib) {
		t.Error("a directory is not a pending artifact")
	}
}
