package models

// Event names published through the broker. Auction-scoped events go to the
// auction's room; catalog-wide events go to the global channel.
const (
	EventAuctionStarted    = "auction_started"
	EventBidPlaced         = "bid_placed"
	EventAuctionEnded      = "auction_ended"
	EventDeliveryUpdate    = "delivery_update"
	EventProductRegistered = "product_registered"
	EventQualityVerified   = "quality_verified"
)

// Event is the envelope delivered to every subscriber.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// BidPlacedPayload carries the post-commit auction snapshot together with
// the accepted bid, so observers never see a partially updated auction.
type BidPlacedPayload struct {
	Auction *Auction `json:"auction"`
	Bid     *Bid     `json:"bid"`
}
