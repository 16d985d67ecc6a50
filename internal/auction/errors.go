package auction

import (
	"errors"
	"fmt"

	"github.com/kfish-market/auction-service/internal/models"
)

// Caller-facing rejection errors. All of them are local and recoverable:
// they are reported back as a rejection reason and never corrupt state.
var (
	// ErrAuctionNotFound is returned for unknown auction ids.
	ErrAuctionNotFound = errors.New("auction not found")

	// ErrAuctionNotLive rejects bids against pending or ended auctions.
	ErrAuctionNotLive = errors.New("auction is not live")
)

// InvalidPhaseError rejects a lifecycle operation attempted in the wrong
// phase. The double-end race (countdown timer vs admin call) surfaces as
// this error on the losing side and is swallowed as a benign no-op there.
type InvalidPhaseError struct {
	Op     string
	Status models.AuctionStatus
}

func (e *InvalidPhaseError) Error() string {
	return fmt.Sprintf("cannot %s auction in %q phase", e.Op, e.Status)
}

// BidTooLowError rejects a bid whose amount is not strictly greater than
// the auction's current price at the instant of evaluation.
type BidTooLowError struct {
	Amount       float64
	CurrentPrice float64
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("bid %.0f must be higher than current price %.0f", e.Amount, e.CurrentPrice)
}
