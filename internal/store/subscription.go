package store

import (
	"context"
	"sync"
)

// hub fans full snapshots out to local subscribers. Each subscriber keeps
// only the latest undelivered snapshot.
type hub[T any] struct {
	mu     sync.Mutex
	subs   map[*localSub[T]]struct{}
	closed bool
}

func newHub[T any]() *hub[T] {
	return &hub[T]{subs: make(map[*localSub[T]]struct{})}
}

func (h *hub[T]) subscribe(initial T) (*localSub[T], error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrClosed
	}
	s := &localSub[T]{
		ch:   make(chan T, 1),
		done: make(chan struct{}),
		hub:  h,
	}
	s.ch <- initial
	h.subs[s] = struct{}{}
	return s, nil
}

// publish must be called with snapshots the caller no longer mutates.
func (h *hub[T]) publish(v T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for s := range h.subs {
		select {
		case <-s.ch:
		default:
		}
		s.ch <- v
	}
}

func (h *hub[T]) close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[*localSub[T]]struct{})
	h.closed = true
	h.mu.Unlock()

	for s := range subs {
		s.finish()
	}
}

func (h *hub[T]) remove(s *localSub[T]) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
}

type localSub[T any] struct {
	ch   chan T
	done chan struct{}
	once sync.Once
	hub  *hub[T]
}

// Next returns the latest snapshot, blocking until one is published.
func (s *localSub[T]) Next(ctx context.Context) (T, error) {
	var zero T
	select {
	case v := <-s.ch:
		return v, nil
	case <-s.done:
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Stop releases the subscription. It is safe to call more than once.
func (s *localSub[T]) Stop() {
	s.hub.remove(s)
	s.finish()
}

func (s *localSub[T]) finish() {
	s.once.Do(func() { close(s.done) })
}
