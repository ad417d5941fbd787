// Package errors provides structured error types for the module host.
//
// Errors are categorized by Phase (which lifecycle step failed) and Kind
// (what failed). Every fallible lifecycle step returns a distinct Kind:
//
//	KindLoad              library missing, invalid or unmappable
//	KindSymbolResolution  required export missing or mismatched
//	KindOnLoad            on_load returned a nonzero status
//	KindOnUnload          on_unload returned a nonzero status
//	KindUpdate            update returned a nonzero status
//	KindReload            staged artifact could not be installed
//	KindMisuse            host called the lifecycle API out of order
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseInitialize, errors.KindOnLoad).
//		Module("module_default").
//		Status(3).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.SymbolResolution(path, "update", cause)
//	err := errors.Update("module_default", status, nil)
//
// Sentinels such as ErrUpdate match any error of that Kind:
//
//	if errors.Is(err, mherrors.ErrUpdate) { ... }
package errors
