// Package ctest compiles small C modules for tests of the native backend.
package ctest

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
)

// Source is a module implementing the three-export contract. Status codes
// and omitted exports are selected with preprocessor defines so one source
// covers every test scenario.
const Source = `
#include <stdint.h>

#ifndef ON_LOAD_STATUS
#define ON_LOAD_STATUS 0
#endif
#ifndef ON_UNLOAD_STATUS
#define ON_UNLOAD_STATUS 0
#endif
#ifndef UPDATE_STATUS
#define UPDATE_STATUS 0
#endif

static uint32_t update_calls = 0;
static double last_delta = 0;

#ifndef OMIT_ON_LOAD
uint32_t on_load(void) { update_calls = 0; return ON_LOAD_STATUS; }
#endif

#ifndef OMIT_ON_UNLOAD
uint32_t on_unload(void) { return ON_UNLOAD_STATUS; }
#endif

#ifndef OMIT_UPDATE
uint32_t update(double delta_time) {
	update_calls++;
	last_delta = delta_time;
	return UPDATE_STATUS;
}
#endif

uint32_t count_update_calls(void) { return update_calls; }
double last_update_delta(void) { return last_delta; }
`

// Compiler returns the C compiler path or skips the test.
func Compiler(t testing.TB) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("native module tests need a unix toolchain")
	}
	cc := os.Getenv("CC")
	if cc == "" {
		cc = "cc"
	}
	path, err := exec.LookPath(cc)
	if err != nil {
		t.Skipf("C compiler not available: %v", err)
	}
	return path
}

// Build compiles Source into dir/filename with the given defines
// (e.g. "UPDATE_STATUS=3", "OMIT_UPDATE") and returns the output path.
func Build(t testing.TB, dir, filename string, defines ...string) string {
	t.Helper()
	cc := Compiler(t)

	src := filepath.Join(dir, "module_src.c")
	if err := os.WriteFile(src, []byte(Source), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	out := filepath.Join(dir, filename)
	args := []string{"-shared", "-fPIC", "-O1", "-o", out}
	for _, d := range defines {
		args = append(args, "-D"+d)
	}
	args = append(args, src)

	cmd := exec.Command(cc, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("compile module: %v\n%s", err, output)
	}
	return out
}
