// Package archive ships accepted bids to NATS JetStream and, on the worker
// side, persists them to PostgreSQL. It is an external read-side collaborator
// of the auction core, not durability for the in-memory registry.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/kfish-market/auction-service/internal/broker"
	"github.com/kfish-market/auction-service/internal/models"
)

const (
	streamName     = "AUCTION_BIDS"
	subjectPrefix  = "auction.bids."
	subjectPattern = "auction.bids.*"
)

// Publisher forwards accepted-bid events to JetStream for archival.
// Publishing is fire-and-forget from the arbiter's point of view; a NATS
// outage loses archive entries, never bids.
type Publisher struct {
	conn *nats.Conn
	js   jetstream.JetStream
}

// NewPublisher connects to NATS and ensures the archival stream exists.
func NewPublisher(natsURL string) (*Publisher, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        streamName,
		Description: "Accepted auction bids for archival",
		Subjects:    []string{subjectPattern},
		Storage:     jetstream.FileStorage,
		Retention:   jetstream.WorkQueuePolicy,
		MaxAge:      24 * time.Hour,
		Replicas:    1,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create/update stream: %w", err)
	}

	return &Publisher{conn: conn, js: js}, nil
}

// Run consumes the firehose subscription, publishing every accepted bid
// until ctx is cancelled. This should run in a goroutine.
func (p *Publisher) Run(ctx context.Context, sub *broker.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-sub.Events():
			if !ok {
				return
			}
			if env.Event.Type != models.EventBidPlaced {
				continue
			}
			p.publish(env)
		}
	}
}

func (p *Publisher) publish(env broker.Envelope) {
	data, err := json.Marshal(env.Event.Payload)
	if err != nil {
		log.Printf("[ARCHIVE] failed to marshal bid event: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ack, err := p.js.Publish(ctx, subjectPrefix+env.Room, data)
	if err != nil {
		log.Printf("[ARCHIVE] failed to publish bid for auction %s: %v", env.Room, err)
		return
	}
	log.Printf("[ARCHIVE] published bid for auction %s, seq=%d", env.Room, ack.Sequence)
}

// Close closes the NATS connection.
func (p *Publisher) Close() {
	p.conn.Close()
}
