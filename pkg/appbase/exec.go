package appbase

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
)

// Exec runs the event loop until Quit is called, ctx is cancelled or the
// process receives SIGINT or SIGTERM, then shuts every plugin down.
func (a *Application) Exec(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.Logger().Info("event loop running")
	runErr := a.loop.Run(ctx)
	a.Logger().Info("event loop stopped, shutting down")

	shutdownErr := a.Shutdown(context.WithoutCancel(ctx))
	return errors.Join(runErr, shutdownErr)
}

// Quit asks Exec to return. It is safe to call from any goroutine, including
// event loop tasks.
func (a *Application) Quit() {
	a.loop.Stop()
}
