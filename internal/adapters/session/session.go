// Package session keeps per-visitor dashboard state in memory.
package session

import (
	"container/list"
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/malcong/controle/pkg/metrics"
)

const defaultMaxSize = 1000

// CookieName is the cookie carrying the session id.
const CookieName = "controle_session"

type entry[T any] struct {
	id    string
	value T
}

// Registry maps session ids to values. When full, the least recently used
// session is evicted. Safe for concurrent use.
type Registry[T any] struct {
	mu       sync.Mutex
	entries  map[string]*list.Element
	order    *list.List // front = most recently used
	maxSize  int
	newValue func() T
	onEvict  func(id string, v T)
}

// Option configures a Registry.
type Option func(*options)

type options struct {
	maxSize int
	onEvict func(id string, v any)
}

// WithMaxSize caps the number of live sessions. Non-positive values keep the default.
func WithMaxSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxSize = n
		}
	}
}

// WithOnEvict registers a callback run for each evicted or removed session,
// outside the registry lock.
func WithOnEvict(fn func(id string, v any)) Option {
	return func(o *options) {
		o.onEvict = fn
	}
}

// New creates a Registry that builds fresh values with newValue.
func New[T any](newValue func() T, opts ...Option) *Registry[T] {
	o := options{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(&o)
	}
	r := &Registry[T]{
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		maxSize:  o.maxSize,
		newValue: newValue,
	}
	if o.onEvict != nil {
		r.onEvict = func(id string, v T) { o.onEvict(id, v) }
	}
	return r
}

// Acquire returns the session for id, creating one under a new id when id is
// unknown. created reports whether a new session was made.
func (r *Registry[T]) Acquire(_ context.Context, id string) (sid string, v T, created bool) {
	r.mu.Lock()
	if el, ok := r.entries[id]; ok {
		r.order.MoveToFront(el)
		e := el.Value.(*entry[T])
		r.mu.Unlock()
		return e.id, e.value, false
	}

	var evicted []*entry[T]
	for r.order.Len() >= r.maxSize {
		evicted = append(evicted, r.removeElement(r.order.Back()))
	}
	e := &entry[T]{id: uuid.NewString(), value: r.newValue()}
	r.entries[e.id] = r.order.PushFront(e)
	n := r.order.Len()
	r.mu.Unlock()

	metrics.UpdateSessionsActive(n)
	for _, ev := range evicted {
		metrics.RecordSessionEvicted()
		r.notify(ev)
	}
	return e.id, e.value, true
}

// Get returns the session for id without creating one.
func (r *Registry[T]) Get(id string) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if el, ok := r.entries[id]; ok {
		r.order.MoveToFront(el)
		return el.Value.(*entry[T]).value, true
	}
	var zero T
	return zero, false
}

// Remove drops the session for id if present.
func (r *Registry[T]) Remove(_ context.Context, id string) {
	r.mu.Lock()
	el, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	e := r.removeElement(el)
	n := r.order.Len()
	r.mu.Unlock()

	metrics.UpdateSessionsActive(n)
	r.notify(e)
}

// Len returns the number of live sessions.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.order.Len()
}

// removeElement must be called with r.mu held.
func (r *Registry[T]) removeElement(el *list.Element) *entry[T] {
	e := r.order.Remove(el).(*entry[T])
	delete(r.entries, e.id)
	return e
}

func (r *Registry[T]) notify(e *entry[T]) {
	if r.onEvict != nil {
		r.onEvict(e.id, e.value)
	}
}

// Close removes every session, running the evict callback for each.
func (r *Registry[T]) Close() {
	r.mu.Lock()
	var all []*entry[T]
	for r.order.Len() > 0 {
		all = append(all, r.removeElement(r.order.Back()))
	}
	r.mu.Unlock()

	metrics.UpdateSessionsActive(0)
	for _, e := range all {
		r.notify(e)
	}
}
