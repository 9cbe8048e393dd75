package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/virtustage/creditcore/internal/models"
)

// TransactionRepository defines the interface for ledger transaction data access
type TransactionRepository interface {
	Create(ctx context.Context, txn *models.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	FindByExternalReference(ctx context.Context, reference string, kind models.TransactionKind) (*models.Transaction, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.TransactionStatus, metadata map[string]any) error
	Stats(ctx context.Context, accountID uuid.UUID) (*models.AccountStats, error)
	WeeklyStats(ctx context.Context, accountID uuid.UUID) ([]models.DailyUsage, error)
	FindStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*models.Transaction, error)
}

// transactionRepository implements TransactionRepository
type transactionRepository struct {
	db DBTX
}

// NewTransactionRepository creates a new TransactionRepository
func NewTransactionRepository(db DBTX) TransactionRepository {
	return &transactionRepository{db: db}
}

const transactionColumns = `
	id, account_id, amount_credits, kind, status, description,
	related_task_id, external_reference, metadata, created_at
`

// Create inserts a new ledger transaction. A zero ID is assigned a fresh
// UUID; a zero CreatedAt is assigned the current time.
func (r *transactionRepository) Create(ctx context.Context, txn *models.Transaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now()
	}

	var metadata []byte
	if txn.Metadata != nil {
		var err error
		metadata, err = json.Marshal(txn.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal transaction metadata: %w", err)
		}
	}

	query := `
		INSERT INTO ledger_transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		txn.ID,
		txn.AccountID,
		txn.AmountCredits,
		txn.Kind,
		txn.Status,
		txn.Description,
		txn.RelatedTaskID,
		txn.ExternalReference,
		metadata,
		txn.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return models.ErrDuplicateTransaction
		}
		return fmt.Errorf("failed to create ledger transaction: %w", err)
	}

	return nil
}

// FindByID retrieves a transaction by its UUID
func (r *transactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM ledger_transactions WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// FindByIDForUpdate retrieves a transaction by its UUID with a row lock.
// Must be called inside a transaction.
func (r *transactionRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM ledger_transactions WHERE id = $1 FOR UPDATE`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// FindByExternalReference retrieves a transaction by its payment-processor
// reference and kind. Used by the webhook ingestor to locate the purchase a
// refund compensates.
func (r *transactionRepository) FindByExternalReference(
	ctx context.Context,
	reference string,
	kind models.TransactionKind,
) (*models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM ledger_transactions
		WHERE external_reference = $1 AND kind = $2
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, reference, kind))
}

// UpdateStatus transitions a transaction's status and, when metadata is
// non-nil, merges it over any existing metadata.
func (r *transactionRepository) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status models.TransactionStatus,
	metadata map[string]any,
) error {
	var (
		result sql.Result
		err    error
	)

	if metadata != nil {
		encoded, merr := json.Marshal(metadata)
		if merr != nil {
			return fmt.Errorf("failed to marshal transaction metadata: %w", merr)
		}
		query := `
			UPDATE ledger_transactions
			SET status = $2,
			    metadata = COALESCE(metadata, '{}'::jsonb) || $3::jsonb
			WHERE id = $1
		`
		result, err = r.db.ExecContext(ctx, query, id, status, encoded)
	} else {
		query := `UPDATE ledger_transactions SET status = $2 WHERE id = $1`
		result, err = r.db.ExecContext(ctx, query, id, status)
	}

	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("transaction %s: %w", id, models.ErrNotFound)
	}

	return nil
}

// Stats aggregates the ledger by kind for one account. Pending reservations
// are reported separately; cancelled reservations count toward nothing.
func (r *transactionRepository) Stats(ctx context.Context, accountID uuid.UUID) (*models.AccountStats, error) {
	query := `
		SELECT
			COALESCE(SUM(amount_credits) FILTER (WHERE kind = 'PURCHASE'), 0),
			COALESCE(SUM(-amount_credits) FILTER (WHERE kind IN ('RESERVATION', 'CONSUMPTION') AND status = 'CONFIRMED'), 0),
			COALESCE(SUM(amount_credits) FILTER (WHERE kind = 'REFUND'), 0),
			COALESCE(SUM(amount_credits) FILTER (WHERE kind = 'BONUS'), 0),
			COALESCE(SUM(-amount_credits) FILTER (WHERE kind = 'RESERVATION' AND status = 'PENDING'), 0),
			COUNT(*)
		FROM ledger_transactions
		WHERE account_id = $1
	`

	var stats models.AccountStats
	err := r.db.QueryRowContext(ctx, query, accountID).Scan(
		&stats.TotalPurchased,
		&stats.TotalConsumed,
		&stats.TotalRefunded,
		&stats.TotalBonus,
		&stats.PendingReserved,
		&stats.TransactionCount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate account stats: %w", err)
	}

	return &stats, nil
}

// WeeklyStats returns per-day confirmed consumption over the trailing seven days.
func (r *transactionRepository) WeeklyStats(ctx context.Context, accountID uuid.UUID) ([]models.DailyUsage, error) {
	query := `
		SELECT date_trunc('day', created_at) AS day,
		       COALESCE(SUM(-amount_credits), 0) AS consumed
		FROM ledger_transactions
		WHERE account_id = $1
		  AND kind IN ('RESERVATION', 'CONSUMPTION')
		  AND status = 'CONFIRMED'
		  AND created_at >= NOW() - INTERVAL '7 days'
		GROUP BY day
		ORDER BY day
	`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query weekly stats: %w", err)
	}
	defer rows.Close()

	var usage []models.DailyUsage
	for rows.Next() {
		var day models.DailyUsage
		if err := rows.Scan(&day.Day, &day.Consumed); err != nil {
			return nil, fmt.Errorf("failed to scan weekly stats row: %w", err)
		}
		usage = append(usage, day)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate weekly stats rows: %w", err)
	}

	return usage, nil
}

// FindStalePending returns pending reservations created before the cutoff,
// oldest first. Used by the reconciliation sweeper.
func (r *transactionRepository) FindStalePending(
	ctx context.Context,
	olderThan time.Time,
	limit int,
) ([]*models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM ledger_transactions
		WHERE kind = 'RESERVATION' AND status = 'PENDING' AND created_at < $1
		ORDER BY created_at
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale pending reservations: %w", err)
	}
	defer rows.Close()

	var txns []*models.Transaction
	for rows.Next() {
		txn, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stale pending reservations: %w", err)
	}

	return txns, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *transactionRepository) scanOne(row *sql.Row) (*models.Transaction, error) {
	txn, err := r.scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return txn, err
}

func (r *transactionRepository) scanRow(row rowScanner) (*models.Transaction, error) {
	var (
		txn      models.Transaction
		metadata []byte
	)

	err := row.Scan(
		&txn.ID,
		&txn.AccountID,
		&txn.AmountCredits,
		&txn.Kind,
		&txn.Status,
		&txn.Description,
		&txn.RelatedTaskID,
		&txn.ExternalReference,
		&metadata,
		&txn.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan ledger transaction: %w", err)
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &txn.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transaction metadata: %w", err)
		}
	}

	return &txn, nil
}
