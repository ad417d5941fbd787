// Package dylib owns native shared-library mappings.
//
// A Library is acquired with Open and released with Close. Close consumes
// the handle: after it returns, Lookup and a second Close fail with a
// misuse error instead of touching unmapped memory. Addresses returned by
// Lookup are only valid while the Library is open; callers must not keep
// them past Close.
//
// On Windows the loader keeps the file locked while it is mapped, so a
// library must be closed before its file can be replaced.
package dylib
