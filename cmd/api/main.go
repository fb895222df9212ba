package main

import (
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"seqtriage/adapters/api"
	"seqtriage/adapters/postgres"
	"seqtriage/internal/config"
	"seqtriage/internal/testkit"
	"seqtriage/ports"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var reader ports.LedgerReaderPort
	if cfg.Database.URL != "" {
		db, err := sqlx.Connect("postgres", cfg.Database.URL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		reader = postgres.NewLedgerAdapter(db)
		log.Println("Serving the postgres artifact ledger")
	} else {
		// Without a database the API serves an empty in-memory ledger.
		// Useful for health checks and local wiring, nothing else.
		kit, err := testkit.NewTestKit()
		if err != nil {
			log.Fatalf("Failed to initialize in-memory ledger: %v", err)
		}
		reader = kit.LedgerReaderAdapter()
		log.Println("DATABASE_URL not set, serving an empty in-memory ledger")
	}

	app := api.NewApp(reader)
	if err := app.Start(":" + cfg.Server.Port); err != nil {
		log.Fatalf("API server failed: %v", err)
	}
}
