package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrApplicationExists is returned when a second Application is created while one is live.
	ErrApplicationExists = errors.New("an application is already live in this process")
	// ErrLoopStopped is returned when work is submitted to a stopped event loop.
	ErrLoopStopped = errors.New("event loop stopped")
)

// ParseError represents a YAML parsing failure with optional line metadata.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

// NewParseError constructs a ParseError.
func NewParseError(path string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Line: line, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}

	if e.Line > 0 {
		return fmt.Sprintf("parse error: %s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Path, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError captures configuration and plugin metadata validation issues.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// OptionsError wraps a command-line parsing failure.
type OptionsError struct {
	Err error
}

// NewOptionsError constructs an OptionsError.
func NewOptionsError(err error) error {
	return &OptionsError{Err: err}
}

func (e *OptionsError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("invalid options: %v\nHint: run with --help to list the accepted options", e.Err)
}

// Unwrap exposes the underlying error.
func (e *OptionsError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// PluginError indicates a plugin hook failed.
type PluginError struct {
	Plugin string
	Hook   string
	Err    error
}

// NewPluginError constructs a PluginError for the given plugin and hook.
func NewPluginError(plugin, hook string, err error) error {
	return &PluginError{Plugin: plugin, Hook: hook, Err: err}
}

func (e *PluginError) Error() string {
	if e == nil {
		return ""
	}
	if e.Hook != "" {
		return fmt.Sprintf("plugin error [%s] during %s: %v", e.Plugin, e.Hook, e.Err)
	}
	return fmt.Sprintf("plugin error [%s]: %v", e.Plugin, e.Err)
}

// Unwrap exposes the underlying error.
func (e *PluginError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// LifecycleError reports a transition requested from a state that is not its
// predecessor. It is a contract violation and callers must abort.
type LifecycleError struct {
	Plugin string
	From   string
	To     string
}

func (e *LifecycleError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf(
		"plugin '%s' cannot move to %s while %s\nHint: plugins must be initialized before they are started",
		e.Plugin,
		e.To,
		e.From,
	)
}

// NotFoundError is returned when the requested plugin is not registered.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("plugin '%s' not found in registry\nHint: ensure the plugin is registered before usage", e.Name)
}

// DuplicatePluginError is returned when two distinct plugin types claim the same name.
type DuplicatePluginError struct {
	Name string
}

func (e *DuplicatePluginError) Error() string {
	return fmt.Sprintf("plugin name '%s' is already used by another plugin type\nHint: plugin names must be unique per implementation", e.Name)
}

// CycleError is returned when a dependency cycle is detected during traversal.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	if len(e.Cycle) == 0 {
		return "circular dependency detected\nHint: review plugin dependencies to remove cycles"
	}

	sequence := append(append([]string{}, e.Cycle...), e.Cycle[0])
	return fmt.Sprintf(
		"circular dependency detected: %s\nHint: break the cycle by removing or refactoring one of the dependencies",
		strings.Join(sequence, " -> "),
	)
}

// VersionConflictError captures a dependency whose version does not satisfy the declared constraint.
type VersionConflictError struct {
	Plugin     string
	Dependency string
	Constraint string
	Actual     string
}

func (e *VersionConflictError) Error() string {
	actual := e.Actual
	if actual == "" {
		actual = "unversioned"
	}
	return fmt.Sprintf(
		"plugin '%s' requires '%s' %s but found %s\nHint: align plugin versions or relax constraints",
		e.Plugin,
		e.Dependency,
		e.Constraint,
		actual,
	)
}

// DeclarationMismatchError is the panic value raised when a registry slot holds
// a value of a different type than its declaration expects.
type DeclarationMismatchError struct {
	Kind string
	Key  string
	Want string
	Got  string
}

func (e *DeclarationMismatchError) Error() string {
	return fmt.Sprintf("%s declaration %q expects %s but the registry holds %s", e.Kind, e.Key, e.Want, e.Got)
}

// NoHandlerError is returned when a method is called before any handler is registered.
type NoHandlerError struct {
	Method string
}

func (e *NoHandlerError) Error() string {
	return fmt.Sprintf("method '%s' has no registered handler", e.Method)
}
