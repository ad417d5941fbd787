package lifecycle

// Observer receives lifecycle events. Calls happen on the goroutine driving
// the Manager and must not call back into it.
type Observer interface {
	// StateChanged fires after every transition.
	StateChanged(mod *Module, from, to State)
	// Ticked fires after every update call; err is nil on status 0.
	Ticked(mod *Module, err error)
	// Failed fires when load, initialize or shutdown returns an error.
	Failed(op, name string, err error)
}

// NopObserver ignores all events. Embed it to implement part of Observer.
type NopObserver struct{}

func (NopObserver) StateChanged(*Module, State, State) {}
func (NopObserver) Ticked(*Module, error)              {}
func (NopObserver) Failed(string, string, error)       {}

type multiObserver []Observer

func (m multiObserver) StateChanged(mod *Module, from, to State) {
	for _, o := range m {
		o.StateChanged(mod, from, to)
	}
}

func (m multiObserver) Ticked(mod *Module, err error) {
	for _, o := range m {
		o.Ticked(mod, err)
	}
}

func (m multiObserver) Failed(op, name string, err error) {
	for _, o := range m {
		o.Failed(op, name, err)
	}
}
