package archive

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/kfish-market/auction-service/internal/models"
)

// PostgresClient wraps the archival database connection.
type PostgresClient struct {
	db *sql.DB
}

// NewPostgresClient opens and verifies the database connection.
func NewPostgresClient(connStr string) (*PostgresClient, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgresClient{db: db}, nil
}

// InitSchema creates the archival tables.
func (c *PostgresClient) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS auctions (
		id VARCHAR(255) PRIMARY KEY,
		product_id VARCHAR(255) NOT NULL,
		start_price DECIMAL(12, 2) NOT NULL,
		current_price DECIMAL(12, 2) NOT NULL,
		highest_bidder VARCHAR(255),
		status VARCHAR(50) NOT NULL,
		location VARCHAR(255),
		start_time TIMESTAMP,
		end_time TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS bids (
		id VARCHAR(255) PRIMARY KEY,
		auction_id VARCHAR(255) NOT NULL,
		bidder_id VARCHAR(255) NOT NULL,
		amount DECIMAL(12, 2) NOT NULL,
		timestamp TIMESTAMP NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_bids_auction_id ON bids(auction_id);
	CREATE INDEX IF NOT EXISTS idx_bids_bidder_id ON bids(bidder_id);
	CREATE INDEX IF NOT EXISTS idx_bids_timestamp ON bids(timestamp);
	`

	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// InsertBid writes one accepted bid. Replays of the same bid id are ignored.
func (c *PostgresClient) InsertBid(ctx context.Context, b *models.Bid) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO bids (id, auction_id, bidder_id, amount, timestamp)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`,
		b.ID, b.AuctionID, b.BidderID, b.Amount, b.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert bid: %w", err)
	}
	return nil
}

// UpsertAuction mirrors the auction snapshot carried by the event.
func (c *PostgresClient) UpsertAuction(ctx context.Context, a *models.Auction) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO auctions (id, product_id, start_price, current_price, highest_bidder, status, location, start_time, end_time, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET
			current_price = EXCLUDED.current_price,
			highest_bidder = EXCLUDED.highest_bidder,
			status = EXCLUDED.status,
			end_time = EXCLUDED.end_time,
			updated_at = CURRENT_TIMESTAMP`,
		a.ID, a.ProductID, a.StartPrice, a.CurrentPrice, a.HighestBidder, a.Status, a.Location, a.StartTime, a.EndTime)
	if err != nil {
		return fmt.Errorf("failed to upsert auction: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (c *PostgresClient) Close() error {
	return c.db.Close()
}
