package registry

import (
	"sync"

	"github.com/kfish-market/auction-service/internal/models"
)

// BidLog is the append-only audit trail of accepted bids, kept per auction
// in acceptance order. Arbitration never reads the log; it exists for
// history queries and the archival path.
type BidLog struct {
	mu   sync.RWMutex
	bids map[string][]*models.Bid
}

// NewBidLog creates an empty bid log.
func NewBidLog() *BidLog {
	return &BidLog{bids: make(map[string][]*models.Bid)}
}

// Append records an accepted bid.
func (l *BidLog) Append(b *models.Bid) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := *b
	l.bids[b.AuctionID] = append(l.bids[b.AuctionID], &cp)
}

// ForAuction returns the accepted bids for one auction in acceptance order.
func (l *BidLog) ForAuction(auctionID string) []*models.Bid {
	l.mu.RLock()
	defer l.mu.RUnlock()
	src := l.bids[auctionID]
	out := make([]*models.Bid, 0, len(src))
	for _, b := range src {
		cp := *b
		out = append(out, &cp)
	}
	return out
}
