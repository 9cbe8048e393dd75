package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtustage/creditcore/internal/config"
	"github.com/virtustage/creditcore/internal/db"
	"github.com/virtustage/creditcore/internal/repository"
)

func setupServiceDB(t *testing.T) *db.DB {
	t.Helper()

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	database, err := db.Connect(context.Background(), &cfg.Database, cfg.Logger.NewLogger())
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	migrationPath := filepath.Join("..", "..", "internal", "db", "migrations", "000001_init.up.sql")
	sqlBytes, err := os.ReadFile(migrationPath) // #nosec G304
	if err != nil {
		t.Fatalf("failed to read migration file: %v", err)
	}
	if _, err := database.ExecContext(context.Background(), string(sqlBytes)); err != nil {
		t.Logf("migration execution completed (tables may already exist): %v", err)
	}

	return database
}

func seedAccount(t *testing.T, database *db.DB, balance int64) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := database.ExecContext(context.Background(),
		"INSERT INTO accounts (id, balance_credits) VALUES ($1, $2)", id, balance)
	require.NoError(t, err)
	return id
}

// The account row lock is the only thing standing between concurrent
// reserves and a negative balance, so this hammers one account from many
// goroutines and checks that exactly the reserves that fit succeeded.
func TestReservationService_Reserve_Concurrent(t *testing.T) {
	database := setupServiceDB(t)
	svc := NewReservationService(database, nil, testLogger())
	ctx := context.Background()

	const (
		startingBalance = 10
		callers         = 25
		amountEach      = 1
	)

	accountID := seedAccount(t, database, startingBalance)

	var wg sync.WaitGroup
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Reserve(ctx, accountID, amountEach, "image generation", nil)
		}(i)
	}
	wg.Wait()

	succeeded, insufficient := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		default:
			var svcErr *ServiceError
			require.True(t, errors.As(err, &svcErr), "unexpected error: %v", err)
			require.Equal(t, ErrCodeInsufficientBalance, svcErr.Code)
			insufficient++
		}
	}

	assert.Equal(t, startingBalance, succeeded)
	assert.Equal(t, callers-startingBalance, insufficient)

	account, err := repository.NewAccountRepository(database).FindByID(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), account.BalanceCredits)

	var pending int
	err = database.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM ledger_transactions WHERE account_id = $1 AND kind = 'RESERVATION' AND status = 'PENDING'",
		accountID).Scan(&pending)
	require.NoError(t, err)
	assert.Equal(t, startingBalance, pending)
}
