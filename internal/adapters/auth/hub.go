package auth

import (
	"context"
	"sync"

	"github.com/okian/guessr/pkg/metrics"
)

const subscriberBuffer = 64

type subscriber struct {
	events chan Event
	done   chan struct{}
}

// Hub fans auth events out to listeners. Each listener runs on its own
// goroutine and sees events in publish order.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]*subscriber
	next   uint64
	closed bool
	wg     sync.WaitGroup
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]*subscriber)}
}

// Subscribe registers l and returns a function that removes it. Calling the
// returned function more than once is safe.
func (h *Hub) Subscribe(l Listener) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return func() {}
	}

	id := h.next
	h.next++
	s := &subscriber{events: make(chan Event, subscriberBuffer), done: make(chan struct{})}
	h.subs[id] = s

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		for {
			select {
			case <-s.done:
				return
			case e := <-s.events:
				l(context.Background(), e)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			if _, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(s.done)
			}
			h.mu.Unlock()
		})
	}
}

// Publish queues e for every listener. It blocks only while a listener's
// buffer is full, and gives up when ctx ends.
func (h *Hub) Publish(ctx context.Context, e Event) {
	metrics.RecordAuthEvent(string(e.Type))

	h.mu.RLock()
	subs := make([]*subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	for _, s := range subs {
		select {
		case s.events <- e:
		case <-s.done:
		case <-ctx.Done():
			return
		}
	}
}

// Close removes every listener and waits for their goroutines to exit.
// Events still buffered are dropped.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	for id, s := range h.subs {
		delete(h.subs, id)
		close(s.done)
	}
	h.mu.Unlock()
	h.wg.Wait()
}
