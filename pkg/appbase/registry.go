package appbase

import (
	"sort"

	"github.com/alexisbeaulieu97/appbase/internal/validation"
	apperrors "github.com/alexisbeaulieu97/appbase/pkg/errors"
)

// Register returns the handle for t, constructing the plugin and registering
// its dependencies on first use. Registering the same Type again returns the
// existing handle. Registration is all or nothing: when any plugin in the
// dependency closure fails to register, none of the closure is kept.
//
// Type.New runs while registration is locked and must not call Register.
func (a *Application) Register(t *Type) (*Handle, error) {
	if t == nil {
		return nil, apperrors.NewValidationError("Type", "plugin type is nil", nil)
	}
	if h, ok := a.Find(t.Name); ok {
		return existingHandle(h, t)
	}

	a.regMu.Lock()
	defer a.regMu.Unlock()

	pending := &registration{handles: map[string]*Handle{}}
	h, err := a.register(t, pending)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	for _, p := range pending.order {
		a.plugins[p.Name()] = p
	}
	a.mu.Unlock()

	for _, p := range pending.order {
		a.observer.Transition(p.Name(), "", StateRegistered.String())
		p.logger().Debug("plugin registered")
	}
	return h, nil
}

// registration collects the handles constructed by one Register call until
// the whole dependency closure is known to be valid.
type registration struct {
	handles map[string]*Handle
	order   []*Handle
}

func (a *Application) register(t *Type, pending *registration) (*Handle, error) {
	if t == nil {
		return nil, apperrors.NewValidationError("Type", "plugin type is nil", nil)
	}
	if h, ok := a.Find(t.Name); ok {
		return existingHandle(h, t)
	}
	if h, ok := pending.handles[t.Name]; ok {
		return existingHandle(h, t)
	}
	if err := validation.Struct(t); err != nil {
		return nil, err
	}

	impl := t.New(a)
	if impl == nil {
		return nil, apperrors.NewValidationError("Type.New", "constructor returned a nil plugin", nil)
	}
	h := newHandle(a, t, impl)
	if err := validateDependencies(t.Name, h.deps); err != nil {
		return nil, err
	}
	pending.handles[t.Name] = h
	pending.order = append(pending.order, h)

	for _, dep := range h.deps {
		if _, err := a.register(dep.Type, pending); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func existingHandle(h *Handle, t *Type) (*Handle, error) {
	if h.typ != t {
		return nil, &apperrors.DuplicatePluginError{Name: t.Name}
	}
	return h, nil
}

func validateDependencies(plugin string, deps []Dependency) error {
	for _, dep := range deps {
		if dep.Type == nil {
			return apperrors.NewValidationError(plugin+".Requires", "dependency type is nil", nil)
		}
		if err := validation.Struct(dep); err != nil {
			return err
		}
	}
	return nil
}

// Find returns the handle registered under name without constructing anything.
func (a *Application) Find(name string) (*Handle, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	h, ok := a.plugins[name]
	return h, ok
}

// FindType returns the handle for t if t itself is registered.
func (a *Application) FindType(t *Type) (*Handle, bool) {
	if t == nil {
		return nil, false
	}
	h, ok := a.Find(t.Name)
	if !ok || h.typ != t {
		return nil, false
	}
	return h, true
}

// Get is like Find but reports a missing plugin as *errors.NotFoundError.
func (a *Application) Get(name string) (*Handle, error) {
	h, ok := a.Find(name)
	if !ok {
		return nil, &apperrors.NotFoundError{Name: name}
	}
	return h, nil
}

// Plugins returns every registered plugin sorted by name.
func (a *Application) Plugins() []*Handle {
	a.mu.RLock()
	handles := make([]*Handle, 0, len(a.plugins))
	for _, h := range a.plugins {
		handles = append(handles, h)
	}
	a.mu.RUnlock()

	sort.Slice(handles, func(i, j int) bool { return handles[i].Name() < handles[j].Name() })
	return handles
}

// Lookup returns the concrete plugin registered for t.
func Lookup[P Plugin](app *Application, t *Type) (P, bool) {
	var zero P
	h, ok := app.FindType(t)
	if !ok {
		return zero, false
	}
	p, ok := h.impl.(P)
	if !ok {
		return zero, false
	}
	return p, true
}
