package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/careref/backend/internal/adapters/database"
	"github.com/careref/backend/internal/adapters/search"
	"github.com/careref/backend/internal/infrastructure/clients/postgres"
	"github.com/careref/backend/internal/infrastructure/clients/typesense"
	"github.com/careref/backend/pkg/config"
)

const indexBatchSize = 200

func main() {
	var intervalFlag string
	flag.StringVar(&intervalFlag, "interval", "", "repeat interval for reindexing (e.g. 6h, 30m)")
	flag.Parse()

	intervalValue := strings.TrimSpace(intervalFlag)
	if intervalValue == "" {
		intervalValue = strings.TrimSpace(os.Getenv("REINDEX_INTERVAL"))
	}

	var interval time.Duration
	var err error
	if intervalValue != "" {
		interval, err = time.ParseDuration(intervalValue)
		if err != nil {
			log.Fatalf("Invalid interval %q: %v", intervalValue, err)
		}
		if interval <= 0 {
			log.Fatalf("Interval must be greater than zero")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		if err := indexOnce(ctx); err != nil {
			log.Printf("Reindex failed: %v", err)
		}

		if interval <= 0 {
			break
		}

		log.Printf("Reindex complete. Next run in %s.", interval)

		select {
		case <-ctx.Done():
			log.Println("Indexer shutting down")
			return
		case <-time.After(interval):
		}
	}
}

func indexOnce(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		return err
	}
	defer pgClient.Close()

	typesenseClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		return err
	}

	adapter := search.NewTypesenseAdapter(typesenseClient)
	if err := adapter.InitSchema(ctx); err != nil {
		return err
	}

	references := database.NewReferenceConditionAdapter(pgClient)

	indexed := 0
	offset := 0
	for {
		batch, err := references.List(ctx, indexBatchSize, offset)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			break
		}

		for _, condition := range batch {
			if err := adapter.Index(ctx, condition); err != nil {
				log.Printf("Warning: failed to index %s: %v", condition.ReferenceID, err)
				continue
			}
			indexed++
		}

		offset += len(batch)
	}

	log.Printf("Indexed %d reference conditions", indexed)
	return nil
}
