package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/gurkanbulca/teamportal/internal/config"
	"github.com/gurkanbulca/teamportal/internal/database"
	"github.com/gurkanbulca/teamportal/internal/docstore"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Database.Driver == config.DriverMemory {
		log.Println("Memory store selected, nothing to migrate")
		return
	}

	// Connect to database
	db, dialect, err := database.Open(cfg.ToDatabaseConfig())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	store, err := docstore.NewSQLStore(db, dialect)
	if err != nil {
		db.Close()
		log.Fatalf("Failed to create document store: %v", err)
	}
	defer store.Close()

	// Run migrations
	log.Printf("Running document schema migrations (%s)...", dialect)
	if err := store.EnsureSchema(context.Background()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("✅ Migrations completed successfully!")
}
