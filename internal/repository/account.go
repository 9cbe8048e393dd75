package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/virtustage/creditcore/internal/models"
)

// AccountRepository defines the interface for account data access
type AccountRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Account, error)
	AdjustBalance(ctx context.Context, accountID uuid.UUID, delta int64) error
}

// accountRepository implements AccountRepository
type accountRepository struct {
	db DBTX
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(db DBTX) AccountRepository {
	return &accountRepository{db: db}
}

// FindByID retrieves an account by its UUID
func (r *accountRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return r.findByID(ctx, id, false)
}

// FindByIDForUpdate retrieves an account by its UUID and takes a row lock.
// Must be called inside a transaction; the lock is what serializes
// concurrent reservations against the same account.
func (r *accountRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return r.findByID(ctx, id, true)
}

func (r *accountRepository) findByID(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.Account, error) {
	query := `
		SELECT id, balance_credits, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var account models.Account
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&account.ID,
		&account.BalanceCredits,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("account %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account by id: %w", err)
	}

	return &account, nil
}

// AdjustBalance atomically adjusts the cached balance by the given delta.
// The CHECK constraint on balance_credits rejects any adjustment that would
// drive the balance negative.
func (r *accountRepository) AdjustBalance(ctx context.Context, accountID uuid.UUID, delta int64) error {
	query := `
		UPDATE accounts
		SET balance_credits = balance_credits + $2,
		    updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, accountID, delta)
	if err != nil {
		return fmt.Errorf("failed to adjust account balance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("account %s: %w", accountID, models.ErrNotFound)
	}

	return nil
}
