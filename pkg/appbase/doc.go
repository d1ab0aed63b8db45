// Package appbase hosts independently written plugins inside one process.
//
// Plugins are described by a Type and registered with the Application, which
// constructs each of them exactly once, initializes and starts them so that
// every dependency goes first, and shuts them down in the exact reverse of
// startup order. Plugins talk to each other through methods and channels
// looked up by declaration rather than by plugin name:
//
//	var Ticks = channel.NewDecl[Tick]("clock.ticks")
//
//	func (p *Plugin) Startup(ctx context.Context) error {
//		appbase.GetChannel(p.app, Ticks).Subscribe(p.onTick)
//		return nil
//	}
//
// Only one Application may be live in a process at a time.
package appbase
