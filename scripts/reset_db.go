package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"garage-backend/internal/config"
	"garage-backend/migrations"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	withAccounts := flag.Bool("accounts", false, "also delete users, profiles and app settings")
	flag.Parse()

	fmt.Println("========================================")
	fmt.Println("   Reset Database for Testing")
	fmt.Println("========================================")
	fmt.Println()
	fmt.Println("WARNING: This will DELETE all clients, services and appointments.")
	if *withAccounts {
		fmt.Println("WARNING: All accounts and the signup code will be deleted too.")
	}
	fmt.Println()
	fmt.Print("Type 'yes' to confirm: ")

	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" {
		fmt.Println("Reset cancelled.")
		return
	}

	cfg, err := config.LoadFrom(*configPath)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	resetSQL, err := migrations.FS.ReadFile("900_reset_data.sql")
	if err != nil {
		log.Fatalf("Failed to read reset script: %v", err)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, string(resetSQL)); err != nil {
		log.Fatalf("Failed to clear booking data: %v", err)
	}
	fmt.Println("  ✓ Cleared events, clients and services")

	if *withAccounts {
		// Profiles cascade from users.
		if _, err := tx.Exec(ctx, "TRUNCATE users, app_settings CASCADE"); err != nil {
			log.Fatalf("Failed to clear accounts: %v", err)
		}
		fmt.Println("  ✓ Cleared users, profiles and app settings")
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit transaction: %v", err)
	}

	fmt.Println()
	fmt.Println("Database reset successful!")
	if *withAccounts {
		fmt.Println("The signup code is re-seeded from config on the next server start.")
	}
}
