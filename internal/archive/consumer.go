package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/kfish-market/auction-service/internal/models"
)

// Consumer drains the archival stream and persists bids to PostgreSQL.
type Consumer struct {
	conn *nats.Conn
	js   jetstream.JetStream
	db   *PostgresClient
}

// NewConsumer connects to NATS for the archival worker.
func NewConsumer(natsURL string, db *PostgresClient) (*Consumer, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &Consumer{conn: conn, js: js, db: db}, nil
}

// Start consumes bid events until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	cons, err := c.js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		Durable:       "archival-worker",
		AckPolicy:     jetstream.AckExplicitPolicy,
		FilterSubject: subjectPattern,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := cons.Consume(func(msg jetstream.Msg) {
		c.handleMessage(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	defer cc.Stop()

	log.Printf("[ARCHIVE] consuming from stream %s", streamName)
	<-ctx.Done()
	return nil
}

// handleMessage persists one accepted-bid event. The message payload is the
// bid_placed wire payload: the post-commit auction snapshot plus the bid.
func (c *Consumer) handleMessage(ctx context.Context, msg jetstream.Msg) {
	var payload struct {
		Auction *models.Auction `json:"auction"`
		Bid     *models.Bid     `json:"bid"`
	}
	if err := json.Unmarshal(msg.Data(), &payload); err != nil {
		log.Printf("[ARCHIVE] failed to unmarshal bid event: %v", err)
		msg.Term()
		return
	}
	if payload.Auction == nil || payload.Bid == nil {
		log.Printf("[ARCHIVE] bid event missing auction or bid, discarding")
		msg.Term()
		return
	}

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := c.db.InsertBid(dbCtx, payload.Bid); err != nil {
		log.Printf("[ARCHIVE] failed to persist bid %s: %v", payload.Bid.ID, err)
		msg.Nak()
		return
	}
	if err := c.db.UpsertAuction(dbCtx, payload.Auction); err != nil {
		log.Printf("[ARCHIVE] failed to persist auction %s: %v", payload.Auction.ID, err)
		msg.Nak()
		return
	}

	log.Printf("[ARCHIVE] persisted bid %s (auction: %s, bidder: %s, amount: %.0f)",
		payload.Bid.ID, payload.Bid.AuctionID, payload.Bid.BidderID, payload.Bid.Amount)
	msg.Ack()
}

// Close closes the NATS connection.
func (c *Consumer) Close() {
	c.conn.Close()
}
