// Package clock publishes periodic ticks on a channel and answers the
// current tick through a method.
package clock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alexisbeaulieu97/appbase/pkg/appbase"
	"github.com/alexisbeaulieu97/appbase/pkg/channel"
	apperrors "github.com/alexisbeaulieu97/appbase/pkg/errors"
	"github.com/alexisbeaulieu97/appbase/pkg/logger"
	"github.com/alexisbeaulieu97/appbase/pkg/method"
	"github.com/alexisbeaulieu97/appbase/pkg/options"
)

// OptInterval is the tick interval option.
const OptInterval = "clock-interval"

// DefaultInterval is used when OptInterval is not set.
const DefaultInterval = time.Second

// Tick is one clock beat.
type Tick struct {
	Seq uint64
	At  time.Time
}

var (
	// Ticks carries every tick, delivered on the event loop.
	Ticks = channel.NewDecl[Tick]("clock.ticks")
	// Now returns the most recent tick.
	Now = method.NewDecl[struct{}, Tick]("clock.now")
)

// Type registers the clock plugin.
var Type = &appbase.Type{
	Name:        "clock",
	Version:     "1.0.0",
	Description: "Publishes periodic ticks",
	New:         New,
}

// Plugin drives the ticker.
type Plugin struct {
	appbase.Base

	app      *appbase.Application
	log      *logger.Logger
	interval time.Duration
	ticks    *channel.Channel[Tick]

	mu   sync.Mutex
	last Tick
	seq  atomic.Uint64

	stop chan struct{}
	done chan struct{}
}

// New constructs the plugin.
func New(app *appbase.Application) appbase.Plugin {
	return &Plugin{app: app}
}

func (p *Plugin) DeclareOptions(schema *options.Schema) {
	schema.File.Duration(OptInterval, DefaultInterval, "Interval between clock ticks")
}

func (p *Plugin) Initialize(_ context.Context, opts *options.Values) error {
	p.log = p.app.Logger().With("plugin", Type.Name)

	p.interval = DefaultInterval
	if opts.IsSet(OptInterval) {
		p.interval = opts.GetDuration(OptInterval)
	}
	if p.interval <= 0 {
		return fmt.Errorf("%s must be positive, got %s", OptInterval, p.interval)
	}

	p.ticks = appbase.GetChannel(p.app, Ticks)
	appbase.GetMethod(p.app, Now).Register(p.now)
	return nil
}

func (p *Plugin) Startup(context.Context) error {
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	stop, done := p.stop, p.done

	if err := p.app.Loop().Go(func() { p.run(stop, done) }); err != nil {
		return err
	}
	p.log.WithFields(map[string]any{"interval": p.interval.String()}).Info("clock started")
	return nil
}

func (p *Plugin) Shutdown(context.Context) error {
	appbase.GetMethod(p.app, Now).Unregister()
	if p.stop == nil {
		return nil
	}
	close(p.stop)
	<-p.done
	return nil
}

func (p *Plugin) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case at := <-ticker.C:
			if err := p.Fire(at); err != nil {
				if errors.Is(err, apperrors.ErrLoopStopped) {
					return
				}
				p.log.Error(err, "publish tick")
			}
		}
	}
}

// Fire records a tick at the given time and publishes it asynchronously.
func (p *Plugin) Fire(at time.Time) error {
	tick := Tick{Seq: p.seq.Add(1), At: at}
	p.mu.Lock()
	p.last = tick
	p.mu.Unlock()
	return p.ticks.PublishAsync(tick)
}

func (p *Plugin) now(context.Context, struct{}) (Tick, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last, nil
}
