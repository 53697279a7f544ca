// Package broadcast fans booking events out to everyone watching a shop.
package broadcast

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"salonq/models"
)

// Forwarder receives every locally published event, e.g. to relay it to other instances.
type Forwarder interface {
	Forward(ev models.Event)
}

// Hub keeps one topic per shop. Publish never blocks on subscribers: events are queued
// on the topic and a per-topic goroutine hands them to subscriber buffers.
//
// Events of one booking are released in version order. An event whose predecessor has
// not been published yet is held until the predecessor arrives or holdFor elapses.
type Hub struct {
	mu        sync.Mutex
	topics    map[string]*topic
	versions  map[string]versionMark
	held      map[string][]models.Event
	buffer    int
	holdFor   time.Duration
	retention time.Duration
	started   time.Time
	fwd       Forwarder
	stopped   bool
}

// versionMark is the last released version of a booking. The mark is dropped once
// the booking's day is further back than the retention window.
type versionMark struct {
	version int64
	expires time.Time
}

type topic struct {
	shopID string
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	queue  []models.Event
	wake   chan struct{}
	done   chan struct{}
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		topics:    make(map[string]*topic),
		versions:  make(map[string]versionMark),
		held:      make(map[string][]models.Event),
		buffer:    buffer,
		holdFor:   2 * time.Second,
		retention: 48 * time.Hour,
		started:   time.Now(),
	}
}

// SetRetention sets how long after a booking's day its version mark is kept.
func (h *Hub) SetRetention(d time.Duration) {
	h.mu.Lock()
	h.retention = d
	h.mu.Unlock()
}

// PruneVersions forgets the version marks that expired before now and reports how
// many went. A late event for a pruned booking is held for holdFor, then delivered.
func (h *Hub) PruneVersions(now time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for id, m := range h.versions {
		if now.After(m.expires) {
			delete(h.versions, id)
			n++
		}
	}
	return n
}

// RunPruner calls PruneVersions every interval until ctx is done.
func (h *Hub) RunPruner(ctx context.Context, interval time.Duration) error {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-tick.C:
			if n := h.PruneVersions(now); n > 0 {
				log.Printf("broadcast: pruned %d version marks", n)
			}
		}
	}
}

func (h *Hub) markExpiry(b *models.Booking) time.Time {
	if day, err := time.Parse(models.DateLayout, b.Date); err == nil {
		return day.Add(24*time.Hour + h.retention)
	}
	return time.Now().Add(h.retention)
}

// SetForwarder installs f. Call before the hub is in use.
func (h *Hub) SetForwarder(f Forwarder) {
	h.mu.Lock()
	h.fwd = f
	h.mu.Unlock()
}

// Publish queues ev for every current subscriber of ev.ShopID.
func (h *Hub) Publish(ev models.Event) {
	h.mu.Lock()
	fwd := h.fwd
	h.accept(ev)
	h.mu.Unlock()
	if fwd != nil {
		fwd.Forward(ev)
	}
}

// Inject delivers an event that was published elsewhere. It is not forwarded again.
func (h *Hub) Inject(ev models.Event) {
	h.mu.Lock()
	h.accept(ev)
	h.mu.Unlock()
}

// accept runs the per-booking version gate. h.mu must be held.
func (h *Hub) accept(ev models.Event) {
	if h.stopped {
		return
	}
	b := ev.Booking
	if b == nil || b.Version == 0 {
		h.enqueue(ev)
		return
	}
	last := h.versions[b.ID].version
	switch {
	case b.Version <= last:
		// already delivered
	case b.Version == last+1, last == 0 && b.CreatedAt.Before(h.started):
		h.release(ev)
	default:
		h.hold(ev)
	}
}

func (h *Hub) release(ev models.Event) {
	h.enqueue(ev)
	b := ev.Booking
	h.versions[b.ID] = versionMark{version: b.Version, expires: h.markExpiry(b)}
	if b.Status.Terminal() {
		delete(h.versions, b.ID)
	}

	pending := h.held[b.ID]
	if len(pending) > 0 && pending[0].Booking.Version == b.Version+1 {
		next := pending[0]
		h.dropHeld(b.ID, 1)
		h.release(next)
	}
}

func (h *Hub) hold(ev models.Event) {
	id := ev.Booking.ID
	pending := append(h.held[id], ev)
	sort.Slice(pending, func(i, j int) bool { return pending[i].Booking.Version < pending[j].Booking.Version })
	h.held[id] = pending

	version := ev.Booking.Version
	time.AfterFunc(h.holdFor, func() { h.expire(id, version) })
}

// expire gives up waiting for the predecessors of (id, version).
func (h *Hub) expire(id string, version int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	pending := h.held[id]
	n := 0
	for n < len(pending) && pending[n].Booking.Version <= version {
		n++
	}
	if n == 0 {
		return
	}
	late := append([]models.Event(nil), pending[:n]...)
	h.dropHeld(id, n)
	log.Printf("broadcast: booking %s released %d event(s) without predecessor", id, n)
	for _, ev := range late {
		if ev.Booking.Version > h.versions[id].version {
			h.release(ev)
		}
	}
}

func (h *Hub) dropHeld(id string, n int) {
	rest := h.held[id][n:]
	if len(rest) == 0 {
		delete(h.held, id)
		return
	}
	h.held[id] = rest
}

func (h *Hub) enqueue(ev models.Event) {
	t := h.topics[ev.ShopID]
	if t == nil {
		return
	}
	t.mu.Lock()
	t.queue = append(t.queue, ev)
	t.mu.Unlock()
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// Subscribe joins shopID's topic. The subscription ends when ctx is done or Close is
// called. Only events published after Subscribe returns are delivered; callers pull a
// snapshot separately.
func (h *Hub) Subscribe(ctx context.Context, shopID string) *Subscription {
	s := &Subscription{
		ShopID: shopID,
		ch:     make(chan models.Event, h.buffer),
		closed: make(chan struct{}),
		hub:    h,
	}

	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		close(s.ch)
		return s
	}
	t := h.topics[shopID]
	if t == nil {
		t = &topic{
			shopID: shopID,
			subs:   make(map[*Subscription]struct{}),
			wake:   make(chan struct{}, 1),
			done:   make(chan struct{}),
		}
		h.topics[shopID] = t
		go h.run(t)
	}
	t.mu.Lock()
	t.subs[s] = struct{}{}
	t.mu.Unlock()
	h.mu.Unlock()

	if ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				s.Close()
			case <-s.closed:
			}
		}()
	}
	return s
}

// Unsubscribe removes s from its topic. Removing an absent subscription is a no-op.
func (h *Hub) Unsubscribe(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t := h.topics[s.ShopID]
	if t == nil {
		return
	}
	t.mu.Lock()
	if _, ok := t.subs[s]; ok {
		delete(t.subs, s)
		close(s.ch)
	}
	empty := len(t.subs) == 0
	t.mu.Unlock()
	if empty {
		h.closeTopic(t)
	}
}

func (h *Hub) closeTopic(t *topic) {
	if h.topics[t.shopID] == t {
		delete(h.topics, t.shopID)
		close(t.done)
	}
}

func (h *Hub) run(t *topic) {
	for {
		select {
		case <-t.done:
			return
		case <-t.wake:
		}

		t.mu.Lock()
		events := t.queue
		t.queue = nil
		for _, ev := range events {
			for s := range t.subs {
				select {
				case s.ch <- ev:
				default:
					log.Printf("broadcast: dropping slow subscriber of shop %s", t.shopID)
					delete(t.subs, s)
					close(s.ch)
				}
			}
		}
		empty := len(t.subs) == 0
		t.mu.Unlock()

		if empty {
			h.mu.Lock()
			t.mu.Lock()
			stillEmpty := len(t.subs) == 0
			t.mu.Unlock()
			if stillEmpty {
				h.closeTopic(t)
			}
			h.mu.Unlock()
		}
	}
}

// SubscriberCount reports how many subscriptions shopID currently has.
func (h *Hub) SubscriberCount(shopID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	t := h.topics[shopID]
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// Stop closes every subscription and rejects further subscribers.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopped = true
	for _, t := range h.topics {
		t.mu.Lock()
		for s := range t.subs {
			delete(t.subs, s)
			close(s.ch)
		}
		t.mu.Unlock()
		h.closeTopic(t)
	}
}

type Subscription struct {
	ShopID string
	ch     chan models.Event
	closed chan struct{}
	once   sync.Once
	hub    *Hub
}

// Events yields the topic's events. The channel is closed when the subscription
// ends, including when the hub drops it for falling behind.
func (s *Subscription) Events() <-chan models.Event {
	return s.ch
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.Unsubscribe(s)
		close(s.closed)
	})
}
