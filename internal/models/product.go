package models

import (
	"encoding/json"
	"time"
)

// Product quality display statuses. These are catalog-side fields used only
// for UI filtering; the auction core treats quality as an opaque input.
const (
	QualityNotAssessed         = "not_assessed"
	QualityPendingVerification = "pending_verification"
)

// GeoPoint is a latitude/longitude pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Product represents a registered lot of catch eligible for auction.
// A product is immutable once created, except for the quality-verification
// display fields which are maintained by the catalog flow.
type Product struct {
	ID                string               `json:"id"`
	RFIDTag           string               `json:"rfidTag"`
	BoxNumber         string               `json:"boxNumber"`
	Species           string               `json:"species"`
	Weight            float64              `json:"weight"`
	Quantity          int                  `json:"quantity"`
	CatchDateTime     time.Time            `json:"catchDateTime"`
	CatchLocation     GeoPoint             `json:"catchLocation"`
	FishermanID       string               `json:"fishermanId"`
	Photos            []string             `json:"photos"`
	CreatedAt         time.Time            `json:"createdAt"`
	Status            string               `json:"status"`
	QualityAssessment json.RawMessage      `json:"qualityAssessment,omitempty"`
	QualityStatus     string               `json:"qualityStatus"`
	QualityVerify     *QualityVerification `json:"qualityVerification,omitempty"`
}

// QualityVerification records the outcome of a manual quality check.
type QualityVerification struct {
	VerifiedBy string    `json:"verifiedBy"`
	VerifiedAt time.Time `json:"verifiedAt"`
	Comments   string    `json:"comments"`
	Status     string    `json:"status"`
}

// VerifyQualityRequest is the incoming quality-verification request.
type VerifyQualityRequest struct {
	Status     string `json:"status"`
	VerifiedBy string `json:"verifiedBy"`
	Comments   string `json:"comments"`
}
