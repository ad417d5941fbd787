// Package engine provides the module backends.
//
// A backend turns a file on disk into a Library and a Library into a bound
// symbols.Table. Two backends exist:
//
//	Native  - shared libraries mapped with the platform loader (dlopen,
//	          LoadLibraryEx). Entry points are called through purego.
//	Wazero  - WebAssembly core modules compiled and instantiated with
//	          wazero. Each Open creates a fresh anonymous instance.
//
// # Contract Checking
//
// Both backends resolve on_load, on_unload and update in that order and
// report the first missing export. The native loader cannot see C
// signatures, so a native export with the right name and the wrong
// signature is undefined behavior. The wazero backend compares every
// export against the contract's core types and rejects mismatches:
//
//	WIT Type        Core Type
//	─────────────────────────
//	u32             i32
//	f64             f64
//
// # Traps
//
// A trap inside a WebAssembly entry point surfaces as an error from the
// call; the symbols.Table reports it as modhost.StatusTrap. The module
// instance is still closed normally on unload.
//
// # WASI
//
// WazeroConfig.EnableWASI instantiates wasi_snapshot_preview1 once per
// runtime so modules built with a libc can link. Modules that need no
// imports run without it.
//
// # Thread Safety
//
// Backends are safe to share. A Library and its Table are owned by a single
// lifecycle.Manager and are not safe for concurrent use.
package engine
