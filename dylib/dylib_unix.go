//go:build darwin || freebsd || linux

package dylib

import "github.com/ebitengine/purego"

// RTLD_NOW surfaces unresolved native dependencies at open time instead of
// at the first call into the module.
const openFlags = purego.RTLD_NOW | purego.RTLD_LOCAL

func open(path string) (uintptr, error) {
	return purego.Dlopen(path, openFlags)
}

func lookup(handle uintptr, name string) (uintptr, error) {
	return purego.Dlsym(handle, name)
}

func closeHandle(handle uintptr) error {
	return purego.Dlclose(handle)
}
