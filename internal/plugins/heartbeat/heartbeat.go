// Package heartbeat counts clock ticks and logs a beat every N of them.
package heartbeat

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/alexisbeaulieu97/appbase/internal/plugins/clock"
	"github.com/alexisbeaulieu97/appbase/pkg/appbase"
	"github.com/alexisbeaulieu97/appbase/pkg/channel"
	"github.com/alexisbeaulieu97/appbase/pkg/logger"
	"github.com/alexisbeaulieu97/appbase/pkg/method"
	"github.com/alexisbeaulieu97/appbase/pkg/options"
)

// OptEvery sets how many ticks make one logged beat.
const OptEvery = "heartbeat-every"

// DefaultEvery is used when OptEvery is not set.
const DefaultEvery = 10

// Count returns the number of ticks observed so far.
var Count = method.NewDecl[struct{}, uint64]("heartbeat.count")

// Type registers the heartbeat plugin.
var Type = &appbase.Type{
	Name:        "heartbeat",
	Version:     "1.0.0",
	Description: "Counts clock ticks",
	New:         New,
}

// Plugin subscribes to clock ticks.
type Plugin struct {
	appbase.Base

	app   *appbase.Application
	log   *logger.Logger
	every uint64
	beats atomic.Uint64
	sub   *channel.Subscription
}

// New constructs the plugin.
func New(app *appbase.Application) appbase.Plugin {
	return &Plugin{app: app}
}

func (p *Plugin) Requires() []appbase.Dependency {
	return []appbase.Dependency{appbase.NeedsVersion(clock.Type, "^1.0")}
}

func (p *Plugin) DeclareOptions(schema *options.Schema) {
	schema.File.Int(OptEvery, DefaultEvery, "Log a heartbeat every this many clock ticks")
}

func (p *Plugin) Initialize(_ context.Context, opts *options.Values) error {
	p.log = p.app.Logger().With("plugin", Type.Name)

	every := DefaultEvery
	if opts.IsSet(OptEvery) {
		every = opts.GetInt(OptEvery)
	}
	if every < 1 {
		return fmt.Errorf("%s must be at least 1, got %d", OptEvery, every)
	}
	p.every = uint64(every)

	appbase.GetMethod(p.app, Count).Register(func(context.Context, struct{}) (uint64, error) {
		return p.beats.Load(), nil
	})
	return nil
}

func (p *Plugin) Startup(context.Context) error {
	p.sub = appbase.GetChannel(p.app, clock.Ticks).Subscribe(p.onTick)
	return nil
}

func (p *Plugin) Shutdown(context.Context) error {
	if p.sub != nil {
		p.sub.Unsubscribe()
	}
	return nil
}

func (p *Plugin) onTick(tick clock.Tick) {
	n := p.beats.Add(1)
	if n%p.every == 0 {
		p.log.WithFields(map[string]any{"beats": n, "tick": tick.Seq}).Info("heartbeat")
	}
}
