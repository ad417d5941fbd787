package dylib

import (
	"path/filepath"
	"runtime"
)

// Filename returns the platform shared-library filename for a logical
// module name on the running OS.
func Filename(name string) string {
	return FilenameFor(runtime.GOOS, name)
}

// FilenameFor derives the shared-library filename for a logical module name
// on goos: lib<name>.so on ELF systems, lib<name>.dylib on Darwin and
// <name>.dll on Windows.
func FilenameFor(goos, name string) string {
	prefix, suffix := affixes(goos)
	return prefix + name + suffix
}

// PathFor joins dir with the derived filename.
func PathFor(dir, name string) string {
	return filepath.Join(dir, Filename(name))
}

func affixes(goos string) (prefix, suffix string) {
	switch goos {
	case "windows":
		return "", ".dll"
	case "darwin", "ios":
		return "lib", ".dylib"
	default:
		return "lib", ".so"
	}
}
