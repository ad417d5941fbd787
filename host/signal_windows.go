package host

import "context"

// ReloadSignals returns a channel that never fires: Windows has no SIGHUP.
func ReloadSignals(context.Context) <-chan struct{} {
	return nil
}
