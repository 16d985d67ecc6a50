package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/kfish-market/auction-service/internal/archive"
	"github.com/kfish-market/auction-service/internal/auction"
	"github.com/kfish-market/auction-service/internal/broker"
	"github.com/kfish-market/auction-service/internal/config"
	"github.com/kfish-market/auction-service/internal/delivery"
	"github.com/kfish-market/auction-service/internal/httpapi"
	"github.com/kfish-market/auction-service/internal/registry"
	"github.com/kfish-market/auction-service/internal/relay"
	"github.com/kfish-market/auction-service/internal/seed"
	"github.com/kfish-market/auction-service/internal/ws"
)

func main() {
	log.Println("Starting Auction Server...")

	cfg := config.Load()
	clock := clockwork.NewRealClock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := broker.New()
	go b.Run(ctx)

	products := registry.NewProductStore()
	bids := registry.NewBidLog()
	deliveries := registry.NewDeliveryStore()

	sim := delivery.NewSimulator(deliveries, b, clock, cfg.DeliveryPrepDelay, cfg.DeliveryTick)
	directory := auction.NewDirectory(auction.DirectoryConfig{
		Bids:       bids,
		Deliveries: deliveries,
		Broker:     b,
		Simulator:  sim,
		Clock:      clock,
		Countdown:  cfg.AuctionDuration,
		Ctx:        ctx,
	})

	if cfg.RedisAddr != "" {
		log.Println("Connecting to Redis...")
		rl, err := relay.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rl.Close()
		go rl.Run(ctx, b.Tap())
		log.Println("Redis relay started")
	}

	if cfg.NatsURL != "" {
		log.Println("Connecting to NATS...")
		pub, err := archive.NewPublisher(cfg.NatsURL)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer pub.Close()
		go pub.Run(ctx, b.Tap())
		log.Println("Archival publisher started")
	}

	if cfg.SeedDemoData {
		seed.Demo(products, directory)
	}

	handler := httpapi.NewHandler(products, directory, deliveries, b, seed.Users())
	router := handler.Routes(ws.NewHandler(b))

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Auction Server listening on %s", cfg.ServerAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped gracefully")
}
