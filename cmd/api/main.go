// server/cmd/api/main.go
package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"freight-bid-api-server/config"
	"freight-bid-api-server/internal/api/routes"
	"freight-bid-api-server/internal/auth"
	"freight-bid-api-server/internal/bidding"
	"freight-bid-api-server/internal/database"
	"freight-bid-api-server/internal/socket"
	"freight-bid-api-server/internal/storage"
)

func main() {
	// .env is optional; real deployments set env vars directly.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading configuration from environment")
	}

	cfg, err := config.LoadConfig("./config")
	if err != nil {
		log.Fatalf("Could not load config: %v", err)
	}
	if cfg.JWT.Secret == "" {
		log.Fatal("JWT_SECRET must be set")
	}
	auth.SetSecret(cfg.JWT.Secret)

	ctx := context.Background()
	client, db, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)
	log.Println("Successfully connected to MongoDB!")

	if err := database.EnsureIndexes(ctx, db); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}
	if err := database.SeedAdmin(db); err != nil {
		log.Fatalf("Failed to seed admin account: %v", err)
	}

	wsHub := socket.NewHub()

	bidService := bidding.NewService(
		storage.NewLoadStore(db),
		storage.NewBidStore(db),
		storage.NewTruckerStore(db),
		storage.NewShipperStore(db),
		storage.NewSessions(client),
		socket.NewBidNotifier(wsHub),
	)

	router := routes.SetupRouter(cfg, db, bidService, wsHub)

	log.Printf("Starting server on port %s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
