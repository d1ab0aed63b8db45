package registry

import (
	"fmt"
	"sort"
	"sync/atomic"

	cmap "github.com/orcaman/concurrent-map/v2"

	apperrors "github.com/alexisbeaulieu97/appbase/pkg/errors"
)

var keySeq atomic.Uint64

// NewKey mints a process-unique registry key for a declaration named name.
// Two calls never return the same key, even for identical names.
func NewKey(name string) string {
	return fmt.Sprintf("%s#%d", name, keySeq.Add(1))
}

// Registry maps declaration keys to lazily constructed, type-erased values.
type Registry struct {
	kind  string
	slots cmap.ConcurrentMap[string, any]
}

// New creates an empty registry. kind names the stored values in diagnostics.
func New(kind string) *Registry {
	return &Registry{
		kind:  kind,
		slots: cmap.New[any](),
	}
}

// Resolve returns the value stored under key, constructing it with create on
// first access. create runs under the slot's shard lock, so concurrent callers
// observe a single instance. A stored value of a different type panics with
// *errors.DeclarationMismatchError.
func Resolve[T any](r *Registry, key string, create func() T) T {
	value := r.slots.Upsert(key, nil, func(exists bool, current any, _ any) any {
		if exists {
			return current
		}
		return create()
	})

	typed, ok := value.(T)
	if !ok {
		var want T
		panic(&apperrors.DeclarationMismatchError{
			Kind: r.kind,
			Key:  key,
			Want: fmt.Sprintf("%T", want),
			Got:  fmt.Sprintf("%T", value),
		})
	}
	return typed
}

// Has reports whether key has been constructed.
func (r *Registry) Has(key string) bool {
	return r.slots.Has(key)
}

// Len returns the number of constructed slots.
func (r *Registry) Len() int {
	return r.slots.Count()
}

// Keys returns the constructed keys in sorted order.
func (r *Registry) Keys() []string {
	keys := r.slots.Keys()
	sort.Strings(keys)
	return keys
}
