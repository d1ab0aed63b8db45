package appbase

import (
	"context"
	"sync/atomic"

	"github.com/Masterminds/semver/v3"

	apperrors "github.com/alexisbeaulieu97/appbase/pkg/errors"
	"github.com/alexisbeaulieu97/appbase/pkg/logger"
	"github.com/alexisbeaulieu97/appbase/pkg/options"
)

// Handle is the framework's record of one registered plugin.
type Handle struct {
	app  *Application
	typ  *Type
	impl Plugin
	deps []Dependency

	state      atomic.Int32
	inProgress atomic.Bool
}

func newHandle(app *Application, t *Type, impl Plugin) *Handle {
	return &Handle{app: app, typ: t, impl: impl, deps: impl.Requires()}
}

// Name returns the plugin name.
func (h *Handle) Name() string { return h.typ.Name }

// Type returns the plugin's type descriptor.
func (h *Handle) Type() *Type { return h.typ }

// Plugin returns the plugin implementation.
func (h *Handle) Plugin() Plugin { return h.impl }

// State returns the current lifecycle state. It is safe to call from any goroutine.
func (h *Handle) State() State { return State(h.state.Load()) }

// Dependencies returns the plugin's declared dependencies.
func (h *Handle) Dependencies() []Dependency {
	return append([]Dependency(nil), h.deps...)
}

func (h *Handle) logger() *logger.Logger {
	return h.app.Logger().With("plugin", h.Name())
}

// phase describes one forward transition driven through the dependency graph.
type phase struct {
	hook   string
	target State
	run    func(ctx context.Context, p Plugin) error
}

// Initialize initializes every dependency, then runs the plugin's Initialize
// hook and moves it to StateInitialized. It is a no-op once initialized.
func (h *Handle) Initialize(ctx context.Context, opts *options.Values) error {
	if opts == nil {
		opts = options.FromMap(nil)
	}
	return h.app.advance(ctx, h, phase{
		hook:   "initialize",
		target: StateInitialized,
		run: func(ctx context.Context, p Plugin) error {
			return p.Initialize(ctx, opts)
		},
	})
}

// Startup starts every dependency, then runs the plugin's Startup hook and
// moves it to StateStarted. The plugin must already be initialized.
func (h *Handle) Startup(ctx context.Context) error {
	return h.app.advance(ctx, h, phase{
		hook:   "startup",
		target: StateStarted,
		run: func(ctx context.Context, p Plugin) error {
			return p.Startup(ctx)
		},
	})
}

// Shutdown moves a started plugin to StateStopped and runs its Shutdown hook.
// Dependencies are left alone. It is a no-op in any other state.
func (h *Handle) Shutdown(ctx context.Context) error {
	if !h.state.CompareAndSwap(int32(StateStarted), int32(StateStopped)) {
		return nil
	}
	a := h.app
	a.observer.Transition(h.Name(), StateStarted.String(), StateStopped.String())

	err := a.observer.ObserveHook(ctx, h.Name(), "shutdown", h.impl.Shutdown)
	a.record(StateStopped, h)
	if err != nil {
		return apperrors.NewPluginError(h.Name(), "shutdown", err)
	}
	h.logger().Debug("plugin stopped")
	return nil
}

func (a *Application) advance(ctx context.Context, h *Handle, p phase) error {
	prev := p.target - 1
	current := h.State()
	if current >= p.target {
		return nil
	}
	if current < prev {
		return &apperrors.LifecycleError{Plugin: h.Name(), From: current.String(), To: p.target.String()}
	}

	if !h.inProgress.CompareAndSwap(false, true) {
		return a.cycleError(h.Name())
	}
	a.pushTrail(h.Name())
	defer func() {
		a.popTrail()
		h.inProgress.Store(false)
	}()

	err := a.forEachDependency(h, func(dep *Handle) error {
		return a.advance(ctx, dep, p)
	})
	if err != nil {
		return err
	}

	if err := a.observer.ObserveHook(ctx, h.Name(), p.hook, func(ctx context.Context) error {
		return p.run(ctx, h.impl)
	}); err != nil {
		return apperrors.NewPluginError(h.Name(), p.hook, err)
	}

	if !h.state.CompareAndSwap(int32(prev), int32(p.target)) {
		return &apperrors.LifecycleError{Plugin: h.Name(), From: h.State().String(), To: p.target.String()}
	}
	a.observer.Transition(h.Name(), prev.String(), p.target.String())
	a.record(p.target, h)
	h.logger().Debug("plugin " + p.target.String())
	return nil
}

// forEachDependency resolves each declared dependency, registering it when
// needed and checking its version constraint, and applies visit in
// declaration order.
func (a *Application) forEachDependency(h *Handle, visit func(dep *Handle) error) error {
	for _, dep := range h.deps {
		dh, err := a.Register(dep.Type)
		if err != nil {
			return err
		}
		if err := checkConstraint(h.Name(), dh, dep.Constraint); err != nil {
			return err
		}
		if err := visit(dh); err != nil {
			return err
		}
	}
	return nil
}

func checkConstraint(plugin string, dep *Handle, constraint string) error {
	if constraint == "" {
		return nil
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return apperrors.NewValidationError(plugin+".Requires", "invalid version constraint "+constraint, err)
	}

	conflict := &apperrors.VersionConflictError{
		Plugin:     plugin,
		Dependency: dep.Name(),
		Constraint: constraint,
		Actual:     dep.typ.Version,
	}
	if dep.typ.Version == "" {
		return conflict
	}
	v, err := semver.NewVersion(dep.typ.Version)
	if err != nil || !c.Check(v) {
		return conflict
	}
	return nil
}

func (a *Application) pushTrail(name string) {
	a.trailMu.Lock()
	a.trail = append(a.trail, name)
	a.trailMu.Unlock()
}

func (a *Application) popTrail() {
	a.trailMu.Lock()
	if n := len(a.trail); n > 0 {
		a.trail = a.trail[:n-1]
	}
	a.trailMu.Unlock()
}

// cycleError reports the trail from the first visit of name to the current plugin.
func (a *Application) cycleError(name string) error {
	a.trailMu.Lock()
	defer a.trailMu.Unlock()

	for i, visited := range a.trail {
		if visited == name {
			return &apperrors.CycleError{Cycle: append([]string(nil), a.trail[i:]...)}
		}
	}
	return &apperrors.CycleError{Cycle: []string{name}}
}
