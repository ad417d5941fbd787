//go:build !windows

package host

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// ReloadSignals delivers a reload request each time the process receives
// SIGHUP, until ctx is done. Requests arriving faster than they are
// consumed collapse into one.
func ReloadSignals(ctx context.Context) <-chan struct{} {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP)

	out := make(chan struct{}, 1)
	go func() {
		defer signal.Stop(sig)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sig:
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out
}
