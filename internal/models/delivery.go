package models

import "time"

// DeliveryStatus is the shipment stage of a won auction's delivery.
// The sequence is strictly forward-only and terminal at delivered.
type DeliveryStatus string

const (
	DeliveryPreparing  DeliveryStatus = "preparing"
	DeliveryInTransit  DeliveryStatus = "in_transit"
	DeliveryDelivering DeliveryStatus = "delivering"
	DeliveryDelivered  DeliveryStatus = "delivered"
)

// Delivery is the post-sale shipment tracking record for a won auction.
type Delivery struct {
	ID               string          `json:"id"`
	ProductID        string          `json:"productId"`
	AuctionID        string          `json:"auctionId"`
	Status           DeliveryStatus  `json:"status"`
	CurrentLocation  GeoPoint        `json:"currentLocation"`
	Temperature      float64         `json:"temperature"`
	EstimatedArrival time.Time       `json:"estimatedArrival"`
	Timeline         []TimelineEntry `json:"timeline"`
}

// TimelineEntry records one status transition, one entry per transition.
type TimelineEntry struct {
	Status    DeliveryStatus `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
}
