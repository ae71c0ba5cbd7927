// Package database provides MySQL connection management for isaload.
package database

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// SetupSignalHandler returns a context that is canceled on SIGINT or SIGTERM.
// Blocking sink calls should run under this context so an operator interrupt
// stops the session at the next statement boundary. The handler is removed
// after the first signal, so a second interrupt terminates the process.
func SetupSignalHandler() context.Context {
	return SetupSignalHandlerWithCallback(nil)
}

// SetupSignalHandlerWithCallback is SetupSignalHandler with a hook invoked
// before the context is canceled, for commands that announce their shutdown.
func SetupSignalHandlerWithCallback(callback func(os.Signal)) context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		sig := <-sigChan
		if callback != nil {
			callback(sig)
		}
		cancel()
	}()

	return ctx
}
