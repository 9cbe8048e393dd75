package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtustage/creditcore/internal/models"
)

func TestTransactionRepository_CreateAndFind(t *testing.T) {
	database := setupTestDB(t)
	defer cleanupTestDB(t, database)
	truncateTables(t, database)

	repo := NewTransactionRepository(database)
	accountID := createTestAccount(t, database, 100)

	reference := "pi_123"
	txn := &models.Transaction{
		AccountID:         accountID,
		AmountCredits:     50,
		Kind:              models.TransactionKindPurchase,
		Status:            models.TransactionStatusConfirmed,
		Description:       "purchase of Standard pack",
		ExternalReference: &reference,
		Metadata:          map[string]any{"pack_id": "pack_standard"},
	}

	require.NoError(t, repo.Create(context.Background(), txn))
	assert.NotEqual(t, uuid.Nil, txn.ID, "Create must assign an ID")

	found, err := repo.FindByID(context.Background(), txn.ID)
	require.NoError(t, err)
	assert.Equal(t, txn.AccountID, found.AccountID)
	assert.Equal(t, int64(50), found.AmountCredits)
	assert.Equal(t, models.TransactionKindPurchase, found.Kind)
	require.NotNil(t, found.ExternalReference)
	assert.Equal(t, "pi_123", *found.ExternalReference)
	assert.Equal(t, "pack_standard", found.Metadata["pack_id"])

	t.Run("unknown id", func(t *testing.T) {
		found, err := repo.FindByID(context.Background(), uuid.New())
		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.Nil(t, found)
	})
}

func TestTransactionRepository_DuplicateExternalReference(t *testing.T) {
	database := setupTestDB(t)
	defer cleanupTestDB(t, database)
	truncateTables(t, database)

	repo := NewTransactionRepository(database)
	accountID := createTestAccount(t, database, 100)

	reference := "pi_123"
	first := &models.Transaction{
		AccountID:         accountID,
		AmountCredits:     50,
		Kind:              models.TransactionKindPurchase,
		Status:            models.TransactionStatusConfirmed,
		ExternalReference: &reference,
	}
	require.NoError(t, repo.Create(context.Background(), first))

	duplicate := &models.Transaction{
		AccountID:         accountID,
		AmountCredits:     50,
		Kind:              models.TransactionKindPurchase,
		Status:            models.TransactionStatusConfirmed,
		ExternalReference: &reference,
	}
	assert.ErrorIs(t, repo.Create(context.Background(), duplicate), models.ErrDuplicateTransaction)

	// Same reference under a different kind is a distinct ledger event.
	refund := &models.Transaction{
		AccountID:         accountID,
		AmountCredits:     -50,
		Kind:              models.TransactionKindRefund,
		Status:            models.TransactionStatusConfirmed,
		ExternalReference: &reference,
	}
	assert.NoError(t, repo.Create(context.Background(), refund))

	found, err := repo.FindByExternalReference(context.Background(), reference, models.TransactionKindPurchase)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
}

func TestTransactionRepository_UpdateStatus(t *testing.T) {
	database := setupTestDB(t)
	defer cleanupTestDB(t, database)
	truncateTables(t, database)

	repo := NewTransactionRepository(database)
	accountID := createTestAccount(t, database, 100)

	reservation := &models.Transaction{
		AccountID:     accountID,
		AmountCredits: -2,
		Kind:          models.TransactionKindReservation,
		Status:        models.TransactionStatusPending,
		Metadata:      map[string]any{"image_id": "img-1"},
	}
	require.NoError(t, repo.Create(context.Background(), reservation))

	t.Run("metadata merge preserves existing keys", func(t *testing.T) {
		err := repo.UpdateStatus(context.Background(), reservation.ID,
			models.TransactionStatusConfirmed, map[string]any{"quality_tier": "premium"})
		require.NoError(t, err)

		found, err := repo.FindByID(context.Background(), reservation.ID)
		require.NoError(t, err)
		assert.Equal(t, models.TransactionStatusConfirmed, found.Status)
		assert.Equal(t, "img-1", found.Metadata["image_id"])
		assert.Equal(t, "premium", found.Metadata["quality_tier"])
	})

	t.Run("nil metadata leaves existing metadata alone", func(t *testing.T) {
		err := repo.UpdateStatus(context.Background(), reservation.ID, models.TransactionStatusCancelled, nil)
		require.NoError(t, err)

		found, err := repo.FindByID(context.Background(), reservation.ID)
		require.NoError(t, err)
		assert.Equal(t, models.TransactionStatusCancelled, found.Status)
		assert.Equal(t, "img-1", found.Metadata["image_id"])
	})

	t.Run("unknown transaction", func(t *testing.T) {
		err := repo.UpdateStatus(context.Background(), uuid.New(), models.TransactionStatusConfirmed, nil)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestTransactionRepository_Stats(t *testing.T) {
	database := setupTestDB(t)
	defer cleanupTestDB(t, database)
	truncateTables(t, database)

	repo := NewTransactionRepository(database)
	accountID := createTestAccount(t, database, 100)
	ctx := context.Background()

	seed := []*models.Transaction{
		{AccountID: accountID, AmountCredits: 50, Kind: models.TransactionKindPurchase, Status: models.TransactionStatusConfirmed},
		{AccountID: accountID, AmountCredits: 5, Kind: models.TransactionKindBonus, Status: models.TransactionStatusConfirmed},
		{AccountID: accountID, AmountCredits: -2, Kind: models.TransactionKindReservation, Status: models.TransactionStatusConfirmed},
		{AccountID: accountID, AmountCredits: -2, Kind: models.TransactionKindReservation, Status: models.TransactionStatusPending},
		{AccountID: accountID, AmountCredits: -2, Kind: models.TransactionKindReservation, Status: models.TransactionStatusCancelled},
		{AccountID: accountID, AmountCredits: 2, Kind: models.TransactionKindRefund, Status: models.TransactionStatusConfirmed},
	}
	for _, txn := range seed {
		require.NoError(t, repo.Create(ctx, txn))
	}

	stats, err := repo.Stats(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), stats.TotalPurchased)
	assert.Equal(t, int64(5), stats.TotalBonus)
	assert.Equal(t, int64(2), stats.TotalConsumed, "only confirmed reservations count as consumption")
	assert.Equal(t, int64(2), stats.PendingReserved)
	assert.Equal(t, int64(2), stats.TotalRefunded)
	assert.Equal(t, int64(6), stats.TransactionCount)

	t.Run("empty account", func(t *testing.T) {
		other := createTestAccount(t, database, 0)
		stats, err := repo.Stats(ctx, other)
		require.NoError(t, err)
		assert.Equal(t, int64(0), stats.TotalPurchased)
		assert.Equal(t, int64(0), stats.TransactionCount)
	})
}

func TestTransactionRepository_FindStalePending(t *testing.T) {
	database := setupTestDB(t)
	defer cleanupTestDB(t, database)
	truncateTables(t, database)

	repo := NewTransactionRepository(database)
	accountID := createTestAccount(t, database, 100)
	ctx := context.Background()

	stale := &models.Transaction{
		AccountID:     accountID,
		AmountCredits: -2,
		Kind:          models.TransactionKindReservation,
		Status:        models.TransactionStatusPending,
		CreatedAt:     time.Now().Add(-3 * time.Hour),
	}
	fresh := &models.Transaction{
		AccountID:     accountID,
		AmountCredits: -2,
		Kind:          models.TransactionKindReservation,
		Status:        models.TransactionStatusPending,
	}
	confirmed := &models.Transaction{
		AccountID:     accountID,
		AmountCredits: -2,
		Kind:          models.TransactionKindReservation,
		Status:        models.TransactionStatusConfirmed,
		CreatedAt:     time.Now().Add(-3 * time.Hour),
	}
	for _, txn := range []*models.Transaction{stale, fresh, confirmed} {
		require.NoError(t, repo.Create(ctx, txn))
	}

	found, err := repo.FindStalePending(ctx, time.Now().Add(-2*time.Hour), 100)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, stale.ID, found[0].ID)
}
