package main

import (
	"log"

	"github.com/careref/backend/internal/infrastructure/clients/postgres"
	"github.com/careref/backend/migrations"
	"github.com/careref/backend/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer pgClient.Close()

	version, dirty, err := migrations.Run(pgClient.DB())
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	if dirty {
		log.Fatalf("Database is dirty at version %d; manual intervention required", version)
	}

	log.Printf("Database migrated to version %d", version)
}
