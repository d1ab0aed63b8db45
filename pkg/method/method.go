// Package method provides single-handler request/response slots that plugins
// look up by declaration rather than by plugin name.
package method

import (
	"context"
	"sync"

	"github.com/alexisbeaulieu97/appbase/internal/registry"
	apperrors "github.com/alexisbeaulieu97/appbase/pkg/errors"
)

// Decl is a declaration token identifying one method slot. Every call to
// NewDecl yields a distinct slot, regardless of name or payload types.
type Decl[Req, Resp any] struct {
	name string
	key  string
}

// NewDecl declares a method slot. It is typically assigned to a package-level variable.
func NewDecl[Req, Resp any](name string) *Decl[Req, Resp] {
	return &Decl[Req, Resp]{name: name, key: registry.NewKey(name)}
}

// Name returns the human readable declaration name.
func (d *Decl[Req, Resp]) Name() string { return d.name }

// Key returns the registry key of the declaration.
func (d *Decl[Req, Resp]) Key() string { return d.key }

// Handler serves a method call.
type Handler[Req, Resp any] func(ctx context.Context, req Req) (Resp, error)

// Method is a request/response slot bound to at most one handler.
type Method[Req, Resp any] struct {
	decl    *Decl[Req, Resp]
	mu      sync.RWMutex
	handler Handler[Req, Resp]
}

// New creates an unbound method for decl.
func New[Req, Resp any](decl *Decl[Req, Resp]) *Method[Req, Resp] {
	return &Method[Req, Resp]{decl: decl}
}

// Decl returns the declaration this method was created for.
func (m *Method[Req, Resp]) Decl() *Decl[Req, Resp] { return m.decl }

// Register binds handler to the method, replacing any previous handler.
// It reports whether a previous handler was replaced.
func (m *Method[Req, Resp]) Register(handler Handler[Req, Resp]) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	replaced := m.handler != nil
	m.handler = handler
	return replaced
}

// Unregister removes the bound handler.
func (m *Method[Req, Resp]) Unregister() {
	m.mu.Lock()
	m.handler = nil
	m.mu.Unlock()
}

// HasHandler reports whether a handler is bound.
func (m *Method[Req, Resp]) HasHandler() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.handler != nil
}

// Call invokes the bound handler. It returns *errors.NoHandlerError when
// nothing is bound.
func (m *Method[Req, Resp]) Call(ctx context.Context, req Req) (Resp, error) {
	m.mu.RLock()
	handler := m.handler
	m.mu.RUnlock()

	if handler == nil {
		var zero Resp
		return zero, &apperrors.NoHandlerError{Method: m.decl.name}
	}
	return handler(ctx, req)
}
