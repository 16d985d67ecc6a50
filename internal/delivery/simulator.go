// Package delivery advances won-auction shipments through their cold-chain
// stages on a timer and reports each transition through the event broker.
package delivery

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/kfish-market/auction-service/internal/broker"
	"github.com/kfish-market/auction-service/internal/models"
	"github.com/kfish-market/auction-service/internal/registry"
)

// stages a delivery moves through after preparing, strictly forward,
// no skipping, one transition per tick.
var stages = []models.DeliveryStatus{
	models.DeliveryInTransit,
	models.DeliveryDelivering,
	models.DeliveryDelivered,
}

// Simulator drives one goroutine per tracked delivery. It runs on an
// injected clock so tests advance virtual time instead of sleeping.
type Simulator struct {
	deliveries *registry.DeliveryStore
	broker     *broker.Broker
	clock      clockwork.Clock

	// PrepDelay is the pause between auction end and the first transition;
	// Interval is the fixed tick between transitions.
	prepDelay time.Duration
	interval  time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulator creates a simulator publishing through b.
func NewSimulator(deliveries *registry.DeliveryStore, b *broker.Broker, clock clockwork.Clock, prepDelay, interval time.Duration) *Simulator {
	return &Simulator{
		deliveries: deliveries,
		broker:     b,
		clock:      clock,
		prepDelay:  prepDelay,
		interval:   interval,
		rng:        rand.New(rand.NewSource(clock.Now().UnixNano())),
	}
}

// Track starts advancing the delivery in a new goroutine. The goroutine
// exits when the delivery reaches delivered, when the record disappears
// from the store, or when ctx is cancelled.
func (s *Simulator) Track(ctx context.Context, deliveryID, auctionID string) {
	go s.run(ctx, deliveryID, auctionID)
}

func (s *Simulator) run(ctx context.Context, deliveryID, auctionID string) {
	prep := s.clock.NewTimer(s.prepDelay)
	defer prep.Stop()
	select {
	case <-ctx.Done():
		return
	case <-prep.Chan():
	}

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for _, status := range stages {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		}
		if !s.advance(deliveryID, auctionID, status) {
			return
		}
	}
}

// advance applies one transition and publishes delivery_update. It returns
// false when the delivery record is gone, in which case the simulator stops
// silently rather than erroring.
func (s *Simulator) advance(deliveryID, auctionID string, status models.DeliveryStatus) bool {
	now := s.clock.Now()
	latJitter, lngJitter, temp := s.perturb()

	updated, ok := s.deliveries.Update(deliveryID, func(d *models.Delivery) {
		d.Status = status
		d.CurrentLocation.Lat += latJitter
		d.CurrentLocation.Lng += lngJitter
		d.Temperature = temp
		d.Timeline = append(d.Timeline, models.TimelineEntry{Status: status, Timestamp: now})
	})
	if !ok {
		log.Printf("[DELIVERY] %s vanished from registry, stopping simulation", deliveryID)
		return false
	}

	s.broker.Publish(auctionID, models.Event{Type: models.EventDeliveryUpdate, Payload: updated})
	return true
}

// perturb returns a bounded random location offset and a temperature inside
// the cold-chain band [-2, 0).
func (s *Simulator) perturb() (lat, lng, temp float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lat = (s.rng.Float64() - 0.5) * 0.1
	lng = (s.rng.Float64() - 0.5) * 0.1
	temp = -2 + s.rng.Float64()*2
	return lat, lng, temp
}
