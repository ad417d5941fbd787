//go:build windows

package dylib

import "golang.org/x/sys/windows"

// LOAD_WITH_ALTERED_SEARCH_PATH resolves the module's own dependencies
// relative to its directory rather than the host executable's.
const loadFlags = windows.LOAD_WITH_ALTERED_SEARCH_PATH

func open(path string) (uintptr, error) {
	h, err := windows.LoadLibraryEx(path, 0, loadFlags)
	if err != nil {
		return 0, err
	}
	return uintptr(h), nil
}

func lookup(handle uintptr, name string) (uintptr, error) {
	return windows.GetProcAddress(windows.Handle(handle), name)
}

func closeHandle(handle uintptr) error {
	return windows.FreeLibrary(windows.Handle(handle))
}
