// Package channel provides broadcast slots that plugins look up by
// declaration. Subscribers receive every published value in publish order
// and are invoked in subscription order.
package channel

import (
	"sync"

	"github.com/alexisbeaulieu97/appbase/internal/registry"
)

// Decl is a declaration token identifying one channel slot.
type Decl[T any] struct {
	name string
	key  string
}

// NewDecl declares a channel slot. Every call yields a distinct slot.
func NewDecl[T any](name string) *Decl[T] {
	return &Decl[T]{name: name, key: registry.NewKey(name)}
}

// Name returns the human readable declaration name.
func (d *Decl[T]) Name() string { return d.name }

// Key returns the registry key of the declaration.
func (d *Decl[T]) Key() string { return d.key }

// Executor runs posted tasks serially in FIFO order.
type Executor interface {
	Post(task func()) error
}

// Channel broadcasts values to its subscribers.
type Channel[T any] struct {
	decl   *Decl[T]
	exec   Executor
	mu     sync.RWMutex
	subs   []subscriber[T]
	nextID uint64
}

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

// New creates a channel for decl. exec is used by PublishAsync and may be nil
// when only synchronous publishing is needed.
func New[T any](decl *Decl[T], exec Executor) *Channel[T] {
	return &Channel[T]{decl: decl, exec: exec}
}

// Decl returns the declaration this channel was created for.
func (c *Channel[T]) Decl() *Decl[T] { return c.decl }

// Subscribe registers fn to receive every subsequently published value.
func (c *Channel[T]) Subscribe(fn func(T)) *Subscription {
	if fn == nil {
		return &Subscription{}
	}

	c.mu.Lock()
	c.nextID++
	id := c.nextID
	next := make([]subscriber[T], len(c.subs), len(c.subs)+1)
	copy(next, c.subs)
	c.subs = append(next, subscriber[T]{id: id, fn: fn})
	c.mu.Unlock()

	return &Subscription{cancel: func() { c.remove(id) }}
}

// HasSubscribers reports whether at least one subscriber is registered.
func (c *Channel[T]) HasSubscribers() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs) > 0
}

// Publish delivers value to every current subscriber on the caller's goroutine.
// Publishing with no subscribers is a no-op.
func (c *Channel[T]) Publish(value T) {
	c.mu.RLock()
	subs := c.subs
	c.mu.RUnlock()

	for _, sub := range subs {
		sub.fn(value)
	}
}

// PublishAsync queues delivery of value on the channel's executor. Values
// published asynchronously from one goroutine are delivered in order.
func (c *Channel[T]) PublishAsync(value T) error {
	if c.exec == nil {
		c.Publish(value)
		return nil
	}
	return c.exec.Post(func() { c.Publish(value) })
}

func (c *Channel[T]) remove(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, sub := range c.subs {
		if sub.id == id {
			next := make([]subscriber[T], 0, len(c.subs)-1)
			next = append(next, c.subs[:i]...)
			c.subs = append(next, c.subs[i+1:]...)
			return
		}
	}
}

// Subscription represents a registered subscriber.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Unsubscribe stops delivery to the subscriber. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.cancel == nil {
		return
	}
	s.once.Do(s.cancel)
}
