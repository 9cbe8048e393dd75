package repository

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/virtustage/creditcore/internal/config"
	"github.com/virtustage/creditcore/internal/db"
)

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	logger := cfg.Logger.NewLogger()

	database, err := db.Connect(context.Background(), &cfg.Database, logger)
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}

	runMigrations(t, database)

	return database
}

func runMigrations(t *testing.T, database *db.DB) {
	t.Helper()

	migrationPath := filepath.Join("..", "..", "internal", "db", "migrations", "000001_init.up.sql")
	sqlBytes, err := os.ReadFile(migrationPath) // #nosec G304
	if err != nil {
		t.Fatalf("failed to read migration file: %v", err)
	}

	if _, err := database.ExecContext(context.Background(), string(sqlBytes)); err != nil {
		t.Logf("migration execution completed (tables may already exist): %v", err)
	}
}

func cleanupTestDB(t *testing.T, database *db.DB) {
	t.Helper()
	if err := database.Close(); err != nil {
		log.Printf("failed to close test database: %v", err)
	}
}

func truncateTables(t *testing.T, database *db.DB) {
	t.Helper()

	tables := []string{"webhook_events", "idempotency_keys", "generation_tasks", "ledger_transactions"}
	for _, table := range tables {
		if _, err := database.ExecContext(context.Background(), "TRUNCATE TABLE "+table+" CASCADE"); err != nil {
			t.Fatalf("failed to truncate table %s: %v", table, err)
		}
	}

	if _, err := database.ExecContext(context.Background(), "DELETE FROM accounts"); err != nil {
		t.Fatalf("failed to reset accounts: %v", err)
	}
}

func createTestAccount(t *testing.T, database *db.DB, balance int64) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := database.ExecContext(context.Background(),
		"INSERT INTO accounts (id, balance_credits) VALUES ($1, $2)", id, balance)
	if err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return id
}
