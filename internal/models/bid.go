package models

import "time"

// Bid is an accepted price offer against a live auction.
// Bids are immutable once accepted; rejected submissions are never stored.
type Bid struct {
	ID        string    `json:"id"`
	AuctionID string    `json:"auctionId"`
	BidderID  string    `json:"bidderId"`
	Amount    float64   `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// BidRequest is the incoming bid submission from the API.
type BidRequest struct {
	BidderID string  `json:"bidderId"`
	Amount   float64 `json:"amount"`
}
