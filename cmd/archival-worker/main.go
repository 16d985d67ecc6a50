package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/kfish-market/auction-service/internal/archive"
	"github.com/kfish-market/auction-service/internal/config"
)

func main() {
	log.Println("Starting Archival Worker...")

	cfg := config.LoadWorker()

	log.Println("Connecting to PostgreSQL...")
	db, err := archive.NewPostgresClient(cfg.PostgresURL)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Println("Initializing database schema...")
	if err := db.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	log.Println("Connecting to NATS...")
	consumer, err := archive.NewConsumer(cfg.NatsURL, db)
	if err != nil {
		log.Fatalf("Failed to create NATS consumer: %v", err)
	}
	defer consumer.Close()

	go func() {
		if err := consumer.Start(ctx); err != nil {
			log.Printf("Consumer error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down worker...")
	cancel()
	log.Println("Worker stopped gracefully")
}
