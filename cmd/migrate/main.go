package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"strings"

	_ "github.com/lib/pq"

	"github.com/authgreet/authgreet/migrations"
	"github.com/joho/godotenv"
)

func main() {
	mode := flag.String("mode", "up", "migration mode: up, down or status")
	flag.Parse()

	_ = godotenv.Load()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}

	switch strings.ToLower(*mode) {
	case "up":
		err = migrations.Up(ctx, db)
	case "down":
		err = migrations.Down(ctx, db)
	case "status":
		err = migrations.Status(ctx, db)
	default:
		log.Fatalf("unknown mode: %s", *mode)
	}
	if err != nil {
		log.Fatalf("migration %s failed: %v", *mode, err)
	}
	log.Printf("Migration %s completed successfully", *mode)
}
