package appbase

import (
	"github.com/alexisbeaulieu97/appbase/internal/registry"
	"github.com/alexisbeaulieu97/appbase/pkg/channel"
	"github.com/alexisbeaulieu97/appbase/pkg/method"
)

// GetMethod returns the method for decl, creating it on first use. Every
// caller passing the same declaration receives the same method.
func GetMethod[Req, Resp any](app *Application, decl *method.Decl[Req, Resp]) *method.Method[Req, Resp] {
	return registry.Resolve(app.methods, decl.Key(), func() *method.Method[Req, Resp] {
		return method.New(decl)
	})
}

// GetChannel returns the channel for decl, creating it on first use.
// Asynchronous publishes are delivered on the application's event loop.
func GetChannel[T any](app *Application, decl *channel.Decl[T]) *channel.Channel[T] {
	return registry.Resolve(app.channels, decl.Key(), func() *channel.Channel[T] {
		return channel.New(decl, app.loop)
	})
}
