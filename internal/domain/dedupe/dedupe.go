// Package dedupe tracks ids that were already handled: purchase idempotency
// keys and auth event ids.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
)

const defaultMaxSize = 50_000

// Deduper records seen ids to ensure at-most-once handling.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so a failed attempt can be retried.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// Memo is a Deduper that also keeps the outcome recorded for each id, so
// a retried request can be answered with the original result.
type Memo interface {
	Deduper

	// Remember attaches v to an id previously recorded. Unknown ids are ignored.
	Remember(ctx context.Context, id string, v any)

	// Recall returns the value attached to id. ok is false while the id is
	// recorded but still in flight, or when it is unknown.
	Recall(ctx context.Context, id string) (v any, ok bool)

	// Claim records id if it is new. Otherwise it reports seen and, once the
	// first holder remembered a value, returns it with done set.
	Claim(ctx context.Context, id string) (v any, done, seen bool)
}

type entry struct {
	id    string
	value any
	done  bool
}

// inMemoryDeduper keeps ids in insertion order; when bounded, the oldest id
// is evicted first. maxSize <= 0 means unbounded.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	return newInMemory(opts...)
}

// NewMemo creates a deduper that also remembers outcomes.
func NewMemo(opts ...Option) Memo {
	return newInMemory(opts...)
}

func newInMemory(opts ...Option) *inMemoryDeduper {
	d := &inMemoryDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(ctx context.Context, id string) bool {
	_, _, seen := d.Claim(ctx, id)
	return seen
}

func (d *inMemoryDeduper) Claim(_ context.Context, id string) (any, bool, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[id]; ok {
		e := el.Value.(*entry) //nolint:forcetypeassert // only *entry is stored
		return e.value, e.done, true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		d.evictOldest()
	}
	d.seen[id] = d.order.PushFront(&entry{id: id})
	d.size.Add(1)
	return nil, false, false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[id]; ok {
		d.order.Remove(el)
		delete(d.seen, id)
		d.size.Add(-1)
	}
}

func (d *inMemoryDeduper) Remember(_ context.Context, id string, v any) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[id]; ok {
		e := el.Value.(*entry) //nolint:forcetypeassert // only *entry is stored
		e.value = v
		e.done = true
	}
}

func (d *inMemoryDeduper) Recall(_ context.Context, id string) (any, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	el, ok := d.seen[id]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry) //nolint:forcetypeassert // only *entry is stored
	return e.value, e.done
}

// evictOldest drops the tail. Must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	el := d.order.Back()
	if el == nil {
		return
	}
	d.order.Remove(el)
	delete(d.seen, el.Value.(*entry).id) //nolint:forcetypeassert // only *entry is stored
	d.size.Add(-1)
}

func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
