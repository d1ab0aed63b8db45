package appbase

import (
	"context"

	"github.com/alexisbeaulieu97/appbase/pkg/options"
)

// Type describes a plugin implementation. Declare one package-level Type per
// plugin; its address is the plugin's identity.
type Type struct {
	// Name is the registry key and the value accepted by --plugin.
	Name string `validate:"required,plugin_name"`
	// Version is an optional semantic version checked against dependency constraints.
	Version     string `validate:"omitempty,semver"`
	Description string
	// New constructs the plugin. It is called at most once per Application.
	New func(app *Application) Plugin `validate:"required"`
}

// Plugin is implemented by every plugin. Embed Base to inherit no-op hooks.
type Plugin interface {
	// Requires lists the plugins that must reach each lifecycle state first.
	Requires() []Dependency
	// DeclareOptions adds the plugin's options to the schema before parsing.
	DeclareOptions(schema *options.Schema)
	Initialize(ctx context.Context, opts *options.Values) error
	Startup(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Base provides no-op implementations of every Plugin method.
type Base struct{}

func (Base) Requires() []Dependency { return nil }
func (Base) DeclareOptions(*options.Schema) {}
func (Base) Initialize(context.Context, *options.Values) error { return nil }
func (Base) Startup(context.Context) error { return nil }
func (Base) Shutdown(context.Context) error { return nil }

// Dependency names a required plugin type and an optional semantic version
// constraint (for example "^1.2") its Version must satisfy.
type Dependency struct {
	Type       *Type
	Constraint string `validate:"omitempty,semver_constraint"`
}

// Needs declares an unconstrained dependency on t.
func Needs(t *Type) Dependency {
	return Dependency{Type: t}
}

// NeedsVersion declares a dependency on t whose version must satisfy constraint.
func NeedsVersion(t *Type, constraint string) Dependency {
	return Dependency{Type: t, Constraint: constraint}
}
