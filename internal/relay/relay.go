// Package relay republishes broker events to Redis Pub/Sub so dashboard
// processes outside the auction server can follow along. The relay sits off
// the commit path: a Redis outage never fails a bid.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kfish-market/auction-service/internal/broker"
)

// catalogChannel carries events that are not scoped to one auction.
const catalogChannel = "catalog_events"

// Relay forwards broker envelopes to Redis channels. Auction-scoped events
// go to "auction_events:{auctionID}", catalog-wide events to
// "catalog_events".
type Relay struct {
	client *redis.Client
}

// New connects to Redis and verifies the connection.
func New(addr, password string, db int) (*Relay, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Relay{client: rdb}, nil
}

// Run consumes the firehose subscription until ctx is cancelled.
// This should run in a goroutine.
func (r *Relay) Run(ctx context.Context, sub *broker.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-sub.Events():
			if !ok {
				return
			}
			r.forward(ctx, env)
		}
	}
}

func (r *Relay) forward(ctx context.Context, env broker.Envelope) {
	payload, err := json.Marshal(env.Event)
	if err != nil {
		log.Printf("[RELAY] failed to marshal event: %v", err)
		return
	}

	channel := catalogChannel
	if env.Room != "" {
		channel = fmt.Sprintf("auction_events:%s", env.Room)
	}
	if err := r.client.Publish(ctx, channel, payload).Err(); err != nil {
		log.Printf("[RELAY] failed to publish to %s: %v", channel, err)
	}
}

// Close closes the Redis connection.
func (r *Relay) Close() error {
	return r.client.Close()
}
