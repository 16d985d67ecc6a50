// Package ws streams broker events to browser clients over WebSocket.
// Clients join one auction's room or the global catalog channel; fan-out
// ordering and membership live in the broker, this package is transport.
package ws

import (
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/kfish-market/auction-service/internal/broker"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for development (use proper CORS in production)
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler upgrades HTTP connections and bridges them to broker rooms.
type Handler struct {
	broker *broker.Broker
}

// NewHandler creates a WebSocket handler on top of the broker.
func NewHandler(b *broker.Broker) *Handler {
	return &Handler{broker: b}
}

// Register mounts the WebSocket endpoints on the router.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/ws/auctions/{id}", h.handleAuction)
	r.HandleFunc("/ws/events", h.handleGlobal)
}

// handleAuction joins the client to one auction's room.
func (h *Handler) handleAuction(w http.ResponseWriter, r *http.Request) {
	auctionID := mux.Vars(r)["id"]
	if auctionID == "" {
		http.Error(w, "auction id is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] failed to upgrade connection: %v", err)
		return
	}

	sub := h.broker.Join(auctionID)
	id := uuid.New().String()
	welcome := []byte(fmt.Sprintf(`{"type":"connected","auctionId":%q,"clientId":%q}`, auctionID, id))
	h.attach(conn, sub, id, welcome)
}

// handleGlobal joins the client to the catalog-wide channel.
func (h *Handler) handleGlobal(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] failed to upgrade connection: %v", err)
		return
	}

	sub := h.broker.JoinGlobal()
	id := uuid.New().String()
	welcome := []byte(fmt.Sprintf(`{"type":"connected","clientId":%q}`, id))
	h.attach(conn, sub, id, welcome)
}

// attach queues the welcome frame before the pump goroutines start, so the
// forward goroutine is the only writer to send once the client is running.
func (h *Handler) attach(conn *websocket.Conn, sub *broker.Subscription, id string, welcome []byte) {
	c := &client{
		id:   id,
		conn: conn,
		send: make(chan []byte, 256),
		leave: func() {
			h.broker.Leave(sub)
		},
	}
	c.send <- welcome
	go c.writePump()
	go c.readPump()
	go c.forward(sub)
}
