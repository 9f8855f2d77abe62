package hub

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Subscribe after the hub has been torn down.
var ErrClosed = errors.New("hub closed")

// Snapshot holds one utilization percentage per logical core, indexed by
// core number. A published snapshot must not be modified.
type Snapshot []float64

// Clone returns an independent copy of s.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	copy(out, s)
	return out
}

// Subscription is one consumer's receive handle. Its mailbox holds at most
// one snapshot; a newer publish replaces an undelivered one.
type Subscription struct {
	hub     *Hub
	ch      chan Snapshot
	done    chan struct{}
	once    sync.Once
	dropped atomic.Uint64
}

// C returns the channel snapshots are delivered on.
func (s *Subscription) C() <-chan Snapshot {
	return s.ch
}

// Done is closed once the subscription has been released, either by Close or
// by the hub shutting down.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Dropped reports how many snapshots were replaced before this subscriber
// received them.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Close removes the subscription from its hub. Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.remove(s)
}

func (s *Subscription) release() {
	s.once.Do(func() { close(s.done) })
}

// deliver places snap in the mailbox, evicting a stale one if the receiver
// has not picked it up yet. Caller must hold the hub lock, which makes it the
// only sender and so the loop terminates.
func (s *Subscription) deliver(snap Snapshot) {
	for {
		select {
		case s.ch <- snap:
			return
		default:
		}
		select {
		case <-s.ch:
			s.dropped.Add(1)
		default:
		}
	}
}

// Hub fans snapshots out from a single publisher to any number of
// subscribers without ever blocking the publisher.
type Hub struct {
	mu        sync.Mutex
	subs      map[*Subscription]struct{}
	closed    bool
	published atomic.Uint64
}

func New() *Hub {
	return &Hub{
		subs: make(map[*Subscription]struct{}),
	}
}

// Subscribe registers a new subscriber. It only receives snapshots published
// after this call returns.
func (h *Hub) Subscribe() (*Subscription, error) {
	s := &Subscription{
		hub:  h,
		ch:   make(chan Snapshot, 1),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}
	h.subs[s] = struct{}{}
	return s, nil
}

// Publish hands snap to every current subscriber. With no subscribers the
// snapshot is discarded.
func (h *Hub) Publish(snap Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.published.Add(1)
	for s := range h.subs {
		s.deliver(snap)
	}
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
	s.release()
}

// SubscriberCount returns the number of live subscriptions.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Published returns the number of snapshots accepted by Publish.
func (h *Hub) Published() uint64 {
	return h.published.Load()
}

// Close releases every subscription and rejects further subscribers.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := h.subs
	h.subs = make(map[*Subscription]struct{})
	h.mu.Unlock()

	for s := range subs {
		s.release()
	}
}
