package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/finestafrica/agencyedge/internal/store/postgres"
)

// Usage: migrate [up|down|version], with the database taken from DATABASE_URL.
func main() {
	ctx := context.Background()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}

	action := "up"
	if len(os.Args) > 1 {
		action = os.Args[1]
	}

	switch action {
	case "up":
		if err := postgres.RunMigrations(ctx, dsn); err != nil {
			log.Fatalf("Failed to migrate: %v", err)
		}
	case "down":
		if err := postgres.RollbackMigrations(ctx, dsn, 1); err != nil {
			log.Fatalf("Failed to roll back: %v", err)
		}
	case "version":
	default:
		log.Fatalf("Unknown action %q (expected up, down or version)", action)
	}

	version, err := postgres.MigrationVersion(ctx, dsn)
	if err != nil {
		log.Fatalf("Failed to read version: %v", err)
	}
	fmt.Printf("Schema version: %d\n", version)
}
