// Package httpapi exposes the auction service's REST surface.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/kfish-market/auction-service/internal/auction"
	"github.com/kfish-market/auction-service/internal/broker"
	"github.com/kfish-market/auction-service/internal/models"
	"github.com/kfish-market/auction-service/internal/registry"
	"github.com/kfish-market/auction-service/internal/ws"
)

// Handler contains the HTTP request handlers.
type Handler struct {
	products   *registry.ProductStore
	directory  *auction.Directory
	deliveries *registry.DeliveryStore
	broker     *broker.Broker
	users      []models.User
}

// NewHandler creates the REST handler set.
func NewHandler(products *registry.ProductStore, directory *auction.Directory, deliveries *registry.DeliveryStore, b *broker.Broker, users []models.User) *Handler {
	return &Handler{
		products:   products,
		directory:  directory,
		deliveries: deliveries,
		broker:     b,
		users:      users,
	}
}

// Routes configures all HTTP routes, including the WebSocket endpoints.
func (h *Handler) Routes(wsHandler *ws.Handler) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/stats/auctions/{id}", h.GetStats).Methods("GET")

	// OPTIONS is registered alongside each method so CORS preflights
	// reach the middleware instead of mux's method-not-allowed handler.
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/users", h.GetUsers).Methods("GET", "OPTIONS")

	api.HandleFunc("/products", h.ListProducts).Methods("GET")
	api.HandleFunc("/products", h.CreateProduct).Methods("POST", "OPTIONS")
	api.HandleFunc("/products/{id}/verify-quality", h.VerifyQuality).Methods("POST", "OPTIONS")

	api.HandleFunc("/auctions", h.ListAuctions).Methods("GET")
	api.HandleFunc("/auctions", h.CreateAuction).Methods("POST", "OPTIONS")
	api.HandleFunc("/auctions/live", h.ListLiveAuctions).Methods("GET", "OPTIONS")
	api.HandleFunc("/auctions/{id}", h.GetAuction).Methods("GET", "OPTIONS")
	api.HandleFunc("/auctions/{id}/start", h.StartAuction).Methods("POST", "OPTIONS")
	api.HandleFunc("/auctions/{id}/bid", h.PlaceBid).Methods("POST", "OPTIONS")
	api.HandleFunc("/auctions/{id}/end", h.EndAuction).Methods("POST", "OPTIONS")
	api.HandleFunc("/auctions/{id}/bids", h.ListAuctionBids).Methods("GET", "OPTIONS")

	api.HandleFunc("/deliveries", h.ListDeliveries).Methods("GET", "OPTIONS")
	api.HandleFunc("/deliveries/{id}", h.GetDelivery).Methods("GET", "OPTIONS")

	wsHandler.Register(r)

	r.Use(loggingMiddleware)
	r.Use(corsMiddleware)

	return r
}

// HealthCheck returns service health status.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "auction-server",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// GetStats returns the subscriber count for an auction's room.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	auctionID := mux.Vars(r)["id"]
	respondJSON(w, http.StatusOK, map[string]any{
		"auctionId":   auctionID,
		"subscribers": h.broker.SubscriberCount(auctionID),
	})
}

// GetUsers returns the demo participant roster.
func (h *Handler) GetUsers(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.users)
}

// ListProducts returns all registered products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.products.List())
}

// CreateProduct registers a new product and announces it on the global
// channel.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var p models.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if p.Species == "" {
		respondError(w, http.StatusBadRequest, "species is required")
		return
	}

	now := time.Now().UTC()
	p.ID = uuid.New().String()
	p.RFIDTag = fmt.Sprintf("RFID-%d", now.UnixMilli())
	p.BoxNumber = fmt.Sprintf("BOX-%d", rand.Intn(10000))
	p.CreatedAt = now
	p.Status = "registered"
	if p.QualityAssessment != nil {
		p.QualityStatus = models.QualityPendingVerification
	} else {
		p.QualityStatus = models.QualityNotAssessed
	}
	p.QualityVerify = nil

	h.products.Add(&p)
	h.broker.PublishGlobal(models.Event{Type: models.EventProductRegistered, Payload: &p})

	respondJSON(w, http.StatusOK, &p)
}

// VerifyQuality records a manual quality check on a product and announces
// it on the global channel.
func (h *Handler) VerifyQuality(w http.ResponseWriter, r *http.Request) {
	productID := mux.Vars(r)["id"]

	var req models.VerifyQualityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	verification := &models.QualityVerification{
		VerifiedBy: req.VerifiedBy,
		VerifiedAt: time.Now().UTC(),
		Comments:   req.Comments,
		Status:     req.Status,
	}
	p, ok := h.products.SetQuality(productID, req.Status, verification)
	if !ok {
		respondError(w, http.StatusNotFound, "product not found")
		return
	}

	h.broker.PublishGlobal(models.Event{Type: models.EventQualityVerified, Payload: p})
	respondJSON(w, http.StatusOK, p)
}

// ListAuctions returns every auction.
func (h *Handler) ListAuctions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.directory.List())
}

// ListLiveAuctions returns auctions currently in the live phase.
func (h *Handler) ListLiveAuctions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.directory.ListLive())
}

// CreateAuction registers a new pending auction.
func (h *Handler) CreateAuction(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAuctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "productId is required")
		return
	}
	if req.StartPrice <= 0 {
		respondError(w, http.StatusBadRequest, "startPrice must be positive")
		return
	}

	a := h.directory.Create(req.ProductID, req.StartPrice, req.Location)
	respondJSON(w, http.StatusOK, a)
}

// GetAuction returns one auction by id.
func (h *Handler) GetAuction(w http.ResponseWriter, r *http.Request) {
	a, err := h.directory.Get(mux.Vars(r)["id"])
	if err != nil {
		respondAuctionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

// StartAuction moves an auction to the live phase.
func (h *Handler) StartAuction(w http.ResponseWriter, r *http.Request) {
	a, err := h.directory.Start(mux.Vars(r)["id"])
	if err != nil {
		respondAuctionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

// EndAuction moves an auction to the ended phase.
func (h *Handler) EndAuction(w http.ResponseWriter, r *http.Request) {
	a, err := h.directory.End(mux.Vars(r)["id"])
	if err != nil {
		respondAuctionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

// PlaceBid submits a bid against a live auction.
func (h *Handler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	auctionID := mux.Vars(r)["id"]

	var req models.BidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BidderID == "" {
		respondError(w, http.StatusBadRequest, "bidderId is required")
		return
	}
	if req.Amount <= 0 {
		respondError(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	bid, err := h.directory.PlaceBid(auctionID, req.BidderID, req.Amount)
	if err != nil {
		respondAuctionError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, bid)
}

// ListAuctionBids returns the accepted-bid history for an auction.
func (h *Handler) ListAuctionBids(w http.ResponseWriter, r *http.Request) {
	bids, err := h.directory.Bids(mux.Vars(r)["id"])
	if err != nil {
		respondAuctionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, bids)
}

// ListDeliveries returns every delivery.
func (h *Handler) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.deliveries.List())
}

// GetDelivery returns one delivery by id.
func (h *Handler) GetDelivery(w http.ResponseWriter, r *http.Request) {
	d, ok := h.deliveries.Get(mux.Vars(r)["id"])
	if !ok {
		respondError(w, http.StatusNotFound, "delivery not found")
		return
	}
	respondJSON(w, http.StatusOK, d)
}

// respondAuctionError maps the arbitration/lifecycle rejection taxonomy to
// HTTP statuses: unknown id is 404, wrong phase is 409, a rejected bid is
// 400 with the reason.
func respondAuctionError(w http.ResponseWriter, err error) {
	var phaseErr *auction.InvalidPhaseError
	var lowErr *auction.BidTooLowError
	switch {
	case errors.Is(err, auction.ErrAuctionNotFound):
		respondError(w, http.StatusNotFound, "auction not found")
	case errors.As(err, &phaseErr):
		respondError(w, http.StatusConflict, phaseErr.Error())
	case errors.Is(err, auction.ErrAuctionNotLive):
		respondError(w, http.StatusBadRequest, "auction is not live")
	case errors.As(err, &lowErr):
		respondError(w, http.StatusBadRequest, lowErr.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, map[string]string{"error": message})
}
