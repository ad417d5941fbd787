// Package modhost provides a host for hot-reloadable native modules.
//
// A module is a shared library (or a WebAssembly binary) that exports three
// entry points with a flat C calling convention:
//
//	on_load()              -> u32   one-time initialization
//	on_unload()            -> u32   one-time teardown
//	update(delta_time f64) -> u32   one call per host frame
//
// A zero status means success; any other value is a module-defined failure
// code. The host drives exactly one module through its lifecycle and can
// replace it with a newer build while the process keeps running.
//
// # Architecture Overview
//
//	modhost/            Root package with the Status type
//	├── dylib/          Native shared-library handle (dlopen / LoadLibrary)
//	├── symbols/        Module contract and the table of resolved entry points
//	├── engine/         Backends that map a binary and bind its entry points
//	├── lifecycle/      Manager and Module state machine
//	├── reload/         Reload coordinator and trigger edge detection
//	├── host/           Single-slot frame loop
//	├── config/         YAML + environment configuration
//	├── metrics/        Prometheus collectors and health endpoints
//	├── telemetry/      OpenTelemetry tracing setup
//	└── errors/         Structured error taxonomy
//
// # Quick Start
//
//	mgr := lifecycle.NewManager(engine.NewNative(), lifecycle.WithDir("."))
//
//	mod, err := mgr.Start(ctx, "module_default")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for frame := range frames {
//	    if err := mgr.Tick(ctx, mod, frame.Delta); err != nil {
//	        log.Print(err) // per-frame failures are not fatal
//	    }
//	}
//
//	_ = mgr.Shutdown(ctx, mod)
//
// # Hot Reload
//
// A build tool stages a replacement next to the active library as
// <library_path>.new. On a reload trigger the coordinator shuts the active
// module down, renames the artifact over the library file and loads the new
// build under the same logical name:
//
//	coord := reload.NewCoordinator(mgr)
//	mod, err = coord.Reload(ctx, mod)
//	if err != nil {
//	    // no module is active; retry with coord.Recover or exit
//	}
//
// # Trust Boundary
//
// Module code runs in-process with full host privileges. The host cannot
// detect an export whose name matches but whose native signature differs,
// and a module that blocks inside update stalls the frame loop. The
// WebAssembly backend checks export signatures and turns traps into errors.
package modhost
