package models

import "time"

// AuctionStatus is the lifecycle phase of an auction.
// Transitions are one-directional: pending -> live -> ended.
type AuctionStatus string

const (
	AuctionPending AuctionStatus = "pending"
	AuctionLive    AuctionStatus = "live"
	AuctionEnded   AuctionStatus = "ended"
)

// Auction represents a timed competitive-bidding process for one product.
// JSON field names are part of the wire contract consumed by the dashboards.
type Auction struct {
	ID            string        `json:"id"`
	ProductID     string        `json:"productId"`
	StartPrice    float64       `json:"startPrice"`
	CurrentPrice  float64       `json:"currentPrice"`
	HighestBidder *string       `json:"highestBidder"`
	Status        AuctionStatus `json:"status"`
	Location      string        `json:"location"`
	StartTime     time.Time     `json:"startTime"`
	EndTime       *time.Time    `json:"endTime"`
}

// CreateAuctionRequest is the incoming request for creating an auction.
type CreateAuctionRequest struct {
	ProductID  string  `json:"productId"`
	StartPrice float64 `json:"startPrice"`
	Location   string  `json:"location"`
}
