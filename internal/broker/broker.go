// Package broker is the in-process event-distribution layer: a per-auction
// publish/subscribe room plus one global channel for catalog-wide events.
// Delivery is best-effort with no queuing or replay; a single dispatch
// goroutine fans events out, so events published for the same auction reach
// a given subscriber in publish order.
package broker

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/kfish-market/auction-service/internal/models"
)

// subscriber send buffer. A subscriber whose buffer is full is evicted so
// one slow consumer cannot block the others.
const sendBuffer = 256

// Envelope wraps an event with the room it was published to. Room is empty
// for catalog-wide events.
type Envelope struct {
	Room  string
	Event models.Event
}

// Subscription is one subscriber's membership in a room, the global
// channel, or the firehose tap.
type Subscription struct {
	ID     string
	room   string
	global bool
	tap    bool
	ch     chan Envelope
	closed bool // guarded by the broker's mutex
}

// Events returns the subscriber's delivery channel. The channel is closed
// when the subscription leaves or is evicted.
func (s *Subscription) Events() <-chan Envelope {
	return s.ch
}

type queued struct {
	room   string
	global bool
	event  models.Event
}

// Broker owns all room membership and the fan-out loop.
type Broker struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Subscription]struct{}
	globals map[*Subscription]struct{}
	taps    map[*Subscription]struct{}

	queue chan queued
}

// New creates a broker. Run must be started before publishing.
func New() *Broker {
	return &Broker{
		rooms:   make(map[string]map[*Subscription]struct{}),
		globals: make(map[*Subscription]struct{}),
		taps:    make(map[*Subscription]struct{}),
		queue:   make(chan queued, sendBuffer),
	}
}

// Run starts the dispatch loop. It returns when ctx is cancelled.
// This should run in a goroutine.
func (b *Broker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case q := <-b.queue:
			b.dispatch(q)
		}
	}
}

// Join subscribes to one auction's room.
func (b *Broker) Join(auctionID string) *Subscription {
	sub := &Subscription{
		ID:   uuid.New().String(),
		room: auctionID,
		ch:   make(chan Envelope, sendBuffer),
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.rooms[auctionID]
	if !ok {
		set = make(map[*Subscription]struct{})
		b.rooms[auctionID] = set
	}
	set[sub] = struct{}{}
	return sub
}

// JoinGlobal subscribes to the catalog-wide channel.
func (b *Broker) JoinGlobal() *Subscription {
	sub := &Subscription{
		ID:     uuid.New().String(),
		global: true,
		ch:     make(chan Envelope, sendBuffer),
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.globals[sub] = struct{}{}
	return sub
}

// Tap subscribes to the firehose: every event from every room plus the
// global channel, with the room recorded in the envelope. Used by the
// Redis relay and the archival publisher.
func (b *Broker) Tap() *Subscription {
	sub := &Subscription{
		ID:  uuid.New().String(),
		tap: true,
		ch:  make(chan Envelope, sendBuffer),
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.taps[sub] = struct{}{}
	return sub
}

// Leave removes the subscription and closes its channel. Safe to call after
// an eviction.
func (b *Broker) Leave(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(sub)
}

// Publish queues an event for every subscriber currently joined to the
// auction's room. Queuing preserves publish order per room.
func (b *Broker) Publish(auctionID string, ev models.Event) {
	b.queue <- queued{room: auctionID, event: ev}
}

// PublishGlobal queues a catalog-wide event for the global channel.
func (b *Broker) PublishGlobal(ev models.Event) {
	b.queue <- queued{global: true, event: ev}
}

// SubscriberCount returns the number of subscribers joined to a room.
func (b *Broker) SubscriberCount(auctionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.rooms[auctionID])
}

func (b *Broker) dispatch(q queued) {
	env := Envelope{Room: q.room, Event: q.event}
	if q.global {
		env.Room = ""
	}

	var evicted []*Subscription
	b.mu.RLock()
	targets := b.taps
	if !q.global {
		for sub := range b.rooms[q.room] {
			if !send(sub, env) {
				evicted = append(evicted, sub)
			}
		}
	} else {
		for sub := range b.globals {
			if !send(sub, env) {
				evicted = append(evicted, sub)
			}
		}
	}
	for sub := range targets {
		if !send(sub, env) {
			evicted = append(evicted, sub)
		}
	}
	b.mu.RUnlock()

	if len(evicted) > 0 {
		b.mu.Lock()
		for _, sub := range evicted {
			log.Printf("[BROKER] evicting slow subscriber %s", sub.ID)
			b.removeLocked(sub)
		}
		b.mu.Unlock()
	}
}

func send(sub *Subscription, env Envelope) bool {
	select {
	case sub.ch <- env:
		return true
	default:
		return false
	}
}

// removeLocked detaches the subscription from its set and closes its
// channel exactly once. Callers must hold the write lock.
func (b *Broker) removeLocked(sub *Subscription) {
	if sub.closed {
		return
	}
	switch {
	case sub.tap:
		delete(b.taps, sub)
	case sub.global:
		delete(b.globals, sub)
	default:
		if set, ok := b.rooms[sub.room]; ok {
			delete(set, sub)
			if len(set) == 0 {
				delete(b.rooms, sub.room)
			}
		}
	}
	sub.closed = true
	close(sub.ch)
}
