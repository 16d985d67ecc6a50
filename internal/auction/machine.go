package auction

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kfish-market/auction-service/internal/models"
)

// Machine owns one auction's lifecycle and its current price/highest-bidder.
// All mutation goes through the machine's mutex, so start, end and every bid
// evaluation against the same auction are linearized. Different auctions hold
// independent locks and are arbitrated fully in parallel.
//
// Methods return snapshot copies taken inside the critical section; callers
// publish events from the snapshots after the lock is released, so a slow
// subscriber can never stall a concurrent bidder.
type Machine struct {
	mu sync.Mutex
	a  models.Auction
}

// NewMachine creates the state machine for a freshly created pending auction.
func NewMachine(a models.Auction) *Machine {
	return &Machine{a: a}
}

// Snapshot returns a copy of the auction's current state.
func (m *Machine) Snapshot() *models.Auction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Start moves the auction from pending to live and stamps the start time.
func (m *Machine) Start(now time.Time) (*models.Auction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.a.Status != models.AuctionPending {
		return nil, &InvalidPhaseError{Op: "start", Status: m.a.Status}
	}
	m.a.Status = models.AuctionLive
	m.a.StartTime = now
	return m.snapshotLocked(), nil
}

// End moves the auction from live to ended and stamps the end time. The
// second boolean reports whether the auction ended with a highest bidder.
// Only the first caller observes live->ended; a concurrent duplicate gets
// InvalidPhaseError.
func (m *Machine) End(now time.Time) (*models.Auction, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.a.Status != models.AuctionLive {
		return nil, false, &InvalidPhaseError{Op: "end", Status: m.a.Status}
	}
	m.a.Status = models.AuctionEnded
	m.a.EndTime = &now
	return m.snapshotLocked(), m.a.HighestBidder != nil, nil
}

// PlaceBid evaluates one bid submission. The compare against the current
// price and the commit of the new price/bidder happen as one atomic unit
// under the machine's lock, so two simultaneous bids for the same amount can
// never both win: whichever is serialized first raises the price and the
// other is rejected as no longer strictly higher.
func (m *Machine) PlaceBid(bidderID string, amount float64, now time.Time) (*models.Auction, *models.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.a.Status != models.AuctionLive {
		return nil, nil, ErrAuctionNotLive
	}
	if amount <= m.a.CurrentPrice {
		return nil, nil, &BidTooLowError{Amount: amount, CurrentPrice: m.a.CurrentPrice}
	}

	bid := &models.Bid{
		ID:        uuid.New().String(),
		AuctionID: m.a.ID,
		BidderID:  bidderID,
		Amount:    amount,
		Timestamp: now,
	}
	m.a.CurrentPrice = amount
	m.a.HighestBidder = &bid.BidderID

	return m.snapshotLocked(), bid, nil
}

// snapshotLocked copies the auction, including the nullable fields, so the
// returned value never aliases machine-owned memory. Callers must hold mu.
func (m *Machine) snapshotLocked() *models.Auction {
	a := m.a
	if m.a.HighestBidder != nil {
		bidder := *m.a.HighestBidder
		a.HighestBidder = &bidder
	}
	if m.a.EndTime != nil {
		ended := *m.a.EndTime
		a.EndTime = &ended
	}
	return &a
}
