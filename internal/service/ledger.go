package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/virtustage/creditcore/internal/db"
	"github.com/virtustage/creditcore/internal/models"
	"github.com/virtustage/creditcore/internal/repository"
)

// LedgerService handles positive ledger movements and read-only aggregates.
// Credits are applied by the webhook ingestor; balance and stats feed the
// billing surfaces.
type LedgerService struct {
	db     *db.DB
	cache  repository.BalanceCache
	logger *slog.Logger
}

// NewLedgerService creates a new LedgerService. cache may be nil.
func NewLedgerService(database *db.DB, cache repository.BalanceCache, logger *slog.Logger) *LedgerService {
	return &LedgerService{
		db:     database,
		cache:  cache,
		logger: logger,
	}
}

// Credit inserts a positive transaction and increments the cached balance in
// one database transaction. externalReference carries the payment-processor
// reference for purchases and refund compensations; it may be empty for
// bonuses.
func (s *LedgerService) Credit(
	ctx context.Context,
	accountID uuid.UUID,
	amount int64,
	kind models.TransactionKind,
	description string,
	externalReference string,
) (*models.Transaction, error) {
	if err := ValidateAmount(amount); err != nil {
		return nil, &ServiceError{Code: ErrCodeInvalidAmount, Message: err.Error()}
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, &ServiceError{
			Code:    ErrCodeInternalError,
			Message: fmt.Sprintf("failed to start transaction: %v", err),
		}
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // rollback error is not critical in defer
	}()

	txAccountRepo := repository.NewAccountRepository(tx)
	txTransactionRepo := repository.NewTransactionRepository(tx)

	creditTxn, err := ApplyCredit(ctx, txAccountRepo, txTransactionRepo, accountID, amount, kind, description, externalReference)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, &ServiceError{
			Code:    ErrCodeInternalError,
			Message: fmt.Sprintf("failed to commit transaction: %v", err),
		}
	}

	s.invalidateCache(ctx, accountID)

	return creditTxn, nil
}

// ApplyCredit inserts a confirmed positive transaction and adjusts the
// balance through the given repositories. Callers may pass repositories
// bound to their own database transaction; the webhook ingestor does, so
// the ledger effect and the event's processed flag land in one commit.
// Duplicate external references surface models.ErrDuplicateTransaction
// through the returned error's chain.
func ApplyCredit(
	ctx context.Context,
	accountRepo repository.AccountRepository,
	transactionRepo repository.TransactionRepository,
	accountID uuid.UUID,
	amount int64,
	kind models.TransactionKind,
	description string,
	externalReference string,
) (*models.Transaction, error) {
	if _, err := accountRepo.FindByIDForUpdate(ctx, accountID); err != nil {
		return nil, &ServiceError{
			Code:    ErrCodeAccountNotFound,
			Message: "account not found",
			Err:     err,
		}
	}

	creditTxn := &models.Transaction{
		ID:            uuid.New(),
		AccountID:     accountID,
		AmountCredits: amount,
		Kind:          kind,
		Status:        models.TransactionStatusConfirmed,
		Description:   description,
	}
	if externalReference != "" {
		creditTxn.ExternalReference = &externalReference
	}

	if err := transactionRepo.Create(ctx, creditTxn); err != nil {
		if errors.Is(err, models.ErrDuplicateTransaction) {
			return nil, &ServiceError{
				Code:    ErrCodeInternalError,
				Message: "credit with this external reference already exists",
				Err:     err,
			}
		}
		return nil, &ServiceError{
			Code:    ErrCodeInternalError,
			Message: fmt.Sprintf("failed to create credit: %v", err),
		}
	}

	if err := accountRepo.AdjustBalance(ctx, accountID, amount); err != nil {
		return nil, &ServiceError{
			Code:    ErrCodeInternalError,
			Message: fmt.Sprintf("failed to adjust balance: %v", err),
		}
	}

	return creditTxn, nil
}

// GetBalance returns the cached balance for an account, consulting the
// redis cache first and falling back to the ledger's account row.
func (s *LedgerService) GetBalance(ctx context.Context, accountID uuid.UUID) (int64, error) {
	if s.cache != nil {
		balance, err := s.cache.Get(ctx, accountID)
		if err == nil {
			return balance, nil
		}
		if !errors.Is(err, repository.ErrBalanceNotCached) {
			s.logger.Warn("balance cache read failed", "account_id", accountID, "error", err)
		}
	}

	repo := repository.NewAccountRepository(s.db)
	account, err := repo.FindByID(ctx, accountID)
	if err != nil {
		return 0, &ServiceError{
			Code:    ErrCodeAccountNotFound,
			Message: "account not found",
			Err:     err,
		}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, accountID, account.BalanceCredits); err != nil {
			s.logger.Warn("balance cache write failed", "account_id", accountID, "error", err)
		}
	}

	return account.BalanceCredits, nil
}

// GetStats returns aggregate ledger activity for an account.
func (s *LedgerService) GetStats(ctx context.Context, accountID uuid.UUID) (*models.AccountStats, error) {
	repo := repository.NewTransactionRepository(s.db)
	stats, err := repo.Stats(ctx, accountID)
	if err != nil {
		return nil, &ServiceError{
			Code:    ErrCodeInternalError,
			Message: fmt.Sprintf("failed to compute account stats: %v", err),
		}
	}
	return stats, nil
}

// GetWeeklyStats returns per-day consumption over the trailing seven days.
func (s *LedgerService) GetWeeklyStats(ctx context.Context, accountID uuid.UUID) ([]models.DailyUsage, error) {
	repo := repository.NewTransactionRepository(s.db)
	usage, err := repo.WeeklyStats(ctx, accountID)
	if err != nil {
		return nil, &ServiceError{
			Code:    ErrCodeInternalError,
			Message: fmt.Sprintf("failed to compute weekly stats: %v", err),
		}
	}
	return usage, nil
}

func (s *LedgerService) invalidateCache(ctx context.Context, accountID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, accountID); err != nil {
		s.logger.Warn("failed to invalidate balance cache", "account_id", accountID, "error", err)
	}
}
