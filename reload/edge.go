package reload

// Edge turns a level signal (a key held, a file present) into a one-shot
// trigger on the not-held to held transition.
type Edge struct {
	prev bool
}

// Rising reports true only when level is true and was false last call.
func (e *Edge) Rising(level bool) bool {
	fired := level && !e.prev
	e.prev = level
	return fired
}

// Reset forgets the previous level.
func (e *Edge) Reset() { e.prev = false }

// Watch fires once each time a staged artifact appears for a library.
type Watch struct {
	edge Edge
}

// Appeared checks libraryPath's artifact and reports a new arrival.
func (w *Watch) Appeared(libraryPath string) bool {
	return w.edge.Rising(Pending(libraryPath))
}
