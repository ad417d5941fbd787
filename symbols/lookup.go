package symbols

// Lookuper resolves exported symbol addresses in a mapped library.
// *dylib.Library satisfies it.
type Lookuper interface {
	Path() string
	Lookup(name string) (uintptr, error)
}
