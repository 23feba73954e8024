package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/finestafrica/agencyedge/internal/store/postgres"
)

// Deletes expired sessions and reset tokens once, for cron-style deployments
// that do not run the server's hourly sweep.
func main() {
	ctx := context.Background()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	db, err := postgres.New(ctx, postgres.Config{DSN: dsn, MaxConns: 2})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	now := time.Now().UTC()

	sessions, err := postgres.NewSessionRepository(db).DeleteExpired(ctx, now)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Session cleanup failed: %v\n", err)
		os.Exit(1)
	}

	tokens, err := postgres.NewResetTokenRepository(db).DeleteExpired(ctx, now)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Reset token cleanup failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Removed %d expired sessions and %d expired reset tokens.\n", sessions, tokens)
}
