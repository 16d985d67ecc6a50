package auction

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/kfish-market/auction-service/internal/broker"
	"github.com/kfish-market/auction-service/internal/delivery"
	"github.com/kfish-market/auction-service/internal/models"
	"github.com/kfish-market/auction-service/internal/registry"
)

// Origin of every shipment: the Busan fish market.
var busanOrigin = models.GeoPoint{Lat: 35.1796, Lng: 129.0756}

const (
	defaultLocation = "Busan"
	initialTemp     = -1
	arrivalEstimate = 3 * time.Hour
)

// Directory owns the mapping from auction id to its state machine and is
// the sole creator of auctions. Two auctions for the same product are
// permitted; no uniqueness constraint is enforced.
type Directory struct {
	mu       sync.RWMutex
	machines map[string]*Machine
	order    []string

	bids       *registry.BidLog
	deliveries *registry.DeliveryStore
	broker     *broker.Broker
	sim        *delivery.Simulator
	clock      clockwork.Clock

	// ctx bounds the countdown timers and delivery simulations the
	// directory spawns. It is the process lifecycle, never a request
	// context: a delivery must keep advancing long after the end call
	// that created it has returned.
	ctx context.Context

	// countdown is the wall-clock auction duration after start; zero
	// disables the automatic end path.
	countdown time.Duration
}

// DirectoryConfig wires the directory's collaborators.
type DirectoryConfig struct {
	Bids       *registry.BidLog
	Deliveries *registry.DeliveryStore
	Broker     *broker.Broker
	Simulator  *delivery.Simulator
	Clock      clockwork.Clock
	Countdown  time.Duration

	// Ctx is the process-lifecycle context for spawned timers and
	// delivery simulations. Defaults to context.Background().
	Ctx context.Context
}

// NewDirectory creates an empty auction directory.
func NewDirectory(cfg DirectoryConfig) *Directory {
	ctx := cfg.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return &Directory{
		machines:   make(map[string]*Machine),
		bids:       cfg.Bids,
		deliveries: cfg.Deliveries,
		broker:     cfg.Broker,
		sim:        cfg.Simulator,
		clock:      cfg.Clock,
		countdown:  cfg.Countdown,
		ctx:        ctx,
	}
}

// Create registers a new pending auction for a product.
func (d *Directory) Create(productID string, startPrice float64, location string) *models.Auction {
	if location == "" {
		location = defaultLocation
	}
	a := models.Auction{
		ID:           uuid.New().String(),
		ProductID:    productID,
		StartPrice:   startPrice,
		CurrentPrice: startPrice,
		Status:       models.AuctionPending,
		Location:     location,
		StartTime:    d.clock.Now(),
	}
	m := NewMachine(a)

	d.mu.Lock()
	d.machines[a.ID] = m
	d.order = append(d.order, a.ID)
	d.mu.Unlock()

	log.Printf("[AUCTION] created %s for product %s at %.0f", a.ID, productID, startPrice)
	return m.Snapshot()
}

// Get returns the auction's current state.
func (d *Directory) Get(id string) (*models.Auction, error) {
	m, err := d.machine(id)
	if err != nil {
		return nil, err
	}
	return m.Snapshot(), nil
}

// List returns every auction in creation order.
func (d *Directory) List() []*models.Auction {
	d.mu.RLock()
	ids := make([]string, len(d.order))
	copy(ids, d.order)
	machines := make([]*Machine, 0, len(ids))
	for _, id := range ids {
		machines = append(machines, d.machines[id])
	}
	d.mu.RUnlock()

	out := make([]*models.Auction, 0, len(machines))
	for _, m := range machines {
		out = append(out, m.Snapshot())
	}
	return out
}

// ListLive returns the auctions currently in the live phase.
func (d *Directory) ListLive() []*models.Auction {
	all := d.List()
	live := make([]*models.Auction, 0, len(all))
	for _, a := range all {
		if a.Status == models.AuctionLive {
			live = append(live, a)
		}
	}
	return live
}

// Bids returns the accepted-bid history for one auction.
func (d *Directory) Bids(id string) ([]*models.Bid, error) {
	if _, err := d.machine(id); err != nil {
		return nil, err
	}
	return d.bids.ForAuction(id), nil
}

// Start moves an auction to live, publishes auction_started, and arms the
// countdown timer when a duration is configured.
func (d *Directory) Start(id string) (*models.Auction, error) {
	m, err := d.machine(id)
	if err != nil {
		return nil, err
	}
	a, err := m.Start(d.clock.Now())
	if err != nil {
		return nil, err
	}

	d.broker.Publish(id, models.Event{Type: models.EventAuctionStarted, Payload: a})
	log.Printf("[AUCTION] %s is live", id)

	if d.countdown > 0 {
		d.clock.AfterFunc(d.countdown, func() {
			d.endFromTimer(id)
		})
	}
	return a, nil
}

// End moves an auction to ended, publishes auction_ended, and, when the
// auction has a highest bidder, creates the delivery record and starts its
// simulation.
func (d *Directory) End(id string) (*models.Auction, error) {
	m, err := d.machine(id)
	if err != nil {
		return nil, err
	}
	a, hasWinner, err := m.End(d.clock.Now())
	if err != nil {
		return nil, err
	}

	d.broker.Publish(id, models.Event{Type: models.EventAuctionEnded, Payload: a})
	log.Printf("[AUCTION] %s ended at %.0f", id, a.CurrentPrice)

	if hasWinner {
		d.createDelivery(a)
	}
	return a, nil
}

// PlaceBid arbitrates one bid submission against the auction's machine. On
// acceptance the bid is appended to the audit log and bid_placed is
// published with the post-commit auction and bid.
func (d *Directory) PlaceBid(id, bidderID string, amount float64) (*models.Bid, error) {
	m, err := d.machine(id)
	if err != nil {
		return nil, err
	}
	a, bid, err := m.PlaceBid(bidderID, amount, d.clock.Now())
	if err != nil {
		return nil, err
	}

	d.bids.Append(bid)
	d.broker.Publish(id, models.Event{
		Type:    models.EventBidPlaced,
		Payload: models.BidPlacedPayload{Auction: a, Bid: bid},
	})
	log.Printf("[ARBITER] %s accepted %.0f from %s", id, amount, bidderID)
	return bid, nil
}

// endFromTimer is the countdown path. Losing the race against an
// administrative end surfaces as InvalidPhaseError and is a benign no-op,
// not a failure.
func (d *Directory) endFromTimer(id string) {
	if _, err := d.End(id); err != nil {
		var phaseErr *InvalidPhaseError
		if errors.As(err, &phaseErr) {
			log.Printf("[AUCTION] countdown for %s found auction already ended", id)
			return
		}
		log.Printf("[AUCTION] countdown end for %s failed: %v", id, err)
	}
}

func (d *Directory) createDelivery(a *models.Auction) {
	now := d.clock.Now()
	dl := &models.Delivery{
		ID:               uuid.New().String(),
		ProductID:        a.ProductID,
		AuctionID:        a.ID,
		Status:           models.DeliveryPreparing,
		CurrentLocation:  busanOrigin,
		Temperature:      initialTemp,
		EstimatedArrival: now.Add(arrivalEstimate),
		Timeline: []models.TimelineEntry{
			{Status: models.DeliveryPreparing, Timestamp: now},
		},
	}
	d.deliveries.Add(dl)
	d.sim.Track(d.ctx, dl.ID, a.ID)
	log.Printf("[DELIVERY] %s created for auction %s", dl.ID, a.ID)
}

func (d *Directory) machine(id string) (*Machine, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m, ok := d.machines[id]
	if !ok {
		return nil, ErrAuctionNotFound
	}
	return m, nil
}
