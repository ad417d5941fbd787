package reload

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ZenLiuCN/fn"

	"github.com/wippyai/modhost/errors"
)

// ArtifactSuffix is appended to a library path to name its staged build.
const ArtifactSuffix = ".new"

// ArtifactPath returns where the staged build for libraryPath is expected.
func ArtifactPath(libraryPath string) string {
	return libraryPath + ArtifactSuffix
}

// rename is swapped in tests to exercise the copy fallback.
var rename = os.Rename

// Install moves the staged artifact over libraryPath. It reports false and
// no error when there is no artifact. The library file is never left
// partially written: the fallback copy goes to a temporary file in the same
// directory that is renamed into place.
func Install(libraryPath string) (bool, error) {
	artifact := ArtifactPath(libraryPath)
	info, err := os.Stat(artifact)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Reload(libraryPath, "stat artifact", err)
	}
	if !info.Mode().IsRegular() {
		return false, errors.Reload(libraryPath, "artifact is not a regular file", nil)
	}

	if err := rename(artifact, libraryPath); err == nil {
		return true, nil
	}

	if err := copyInto(artifact, libraryPath, info.Mode().Perm()); err != nil {
		return false, errors.Reload(libraryPath, "copy artifact", err)
	}
	if err := os.Remove(artifact); err != nil {
		return true, errors.Reload(libraryPath, "remove artifact", err)
	}
	return true, nil
}

// Pending reports whether a staged artifact exists for libraryPath.
func Pending(libraryPath string) bool {
	info, err := os.Stat(ArtifactPath(libraryPath))
	return err == nil && info.Mode().IsRegular()
}

func copyInto(src, dest string, perm os.FileMode) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer fn.IgnoreClose(sf)

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".tmp*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, sf); err != nil {
		fn.IgnoreClose(tmp)
		return fmt.Errorf("copy: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		fn.IgnoreClose(tmp)
		return fmt.Errorf("sync: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err = os.Chmod(tmp.Name(), perm); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
