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

// ReservationService implements the two-phase credit reservation engine.
// Reserve debits the balance immediately; Confirm finalizes the debit with
// no further balance change; Cancel restores the balance through a
// compensating refund entry. Confirm and Cancel are idempotent.
type ReservationService struct {
	db     *db.DB
	cache  repository.BalanceCache
	logger *slog.Logger
}

// NewReservationService creates a new ReservationService. cache may be nil.
func NewReservationService(database *db.DB, cache repository.BalanceCache, logger *slog.Logger) *ReservationService {
	return &ReservationService{
		db:     database,
		cache:  cache,
		logger: logger,
	}
}

// Reserve atomically checks the balance and inserts a pending reservation
// debiting the amount. The account row lock taken inside the transaction is
// the only thing that prevents overspend under concurrent callers.
func (s *ReservationService) Reserve(
	ctx context.Context,
	accountID uuid.UUID,
	amount int64,
	description string,
	relatedTaskID *uuid.UUID,
) (*models.Transaction, error) {
	if err := ValidateAmount(amount); err != nil {
		return nil, &ServiceError{Code: ErrCodeInvalidAmount, Message: err.Error()}
	}
	if err := ValidateDescription(description); err != nil {
		return nil, &ServiceError{Code: ErrCodeInvalidDescription, Message: err.Error()}
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

	reservation, err := s.performReserve(ctx, txAccountRepo, txTransactionRepo, accountID, amount, description, relatedTaskID)
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

	return reservation, nil
}

// performReserve contains the core reservation business logic
func (s *ReservationService) performReserve(
	ctx context.Context,
	accountRepo repository.AccountRepository,
	transactionRepo repository.TransactionRepository,
	accountID uuid.UUID,
	amount int64,
	description string,
	relatedTaskID *uuid.UUID,
) (*models.Transaction, error) {
	account, err := accountRepo.FindByIDForUpdate(ctx, accountID)
	if err != nil {
		return nil, &ServiceError{
			Code:    ErrCodeAccountNotFound,
			Message: "account not found",
			Err:     err,
		}
	}

	if account.BalanceCredits < amount {
		return nil, &ServiceError{
			Code:    ErrCodeInsufficientBalance,
			Message: fmt.Sprintf("insufficient balance: have %d, need %d", account.BalanceCredits, amount),
		}
	}

	reservation := &models.Transaction{
		ID:            uuid.New(),
		AccountID:     accountID,
		AmountCredits: -amount,
		Kind:          models.TransactionKindReservation,
		Status:        models.TransactionStatusPending,
		Description:   description,
		RelatedTaskID: relatedTaskID,
	}

	if err := transactionRepo.Create(ctx, reservation); err != nil {
		return nil, &ServiceError{
			Code:    ErrCodeInternalError,
			Message: fmt.Sprintf("failed to create reservation: %v", err),
		}
	}

	if err := accountRepo.AdjustBalance(ctx, accountID, -amount); err != nil {
		return nil, &ServiceError{
			Code:    ErrCodeInternalError,
			Message: fmt.Sprintf("failed to adjust balance: %v", err),
		}
	}

	return reservation, nil
}

// Confirm finalizes a pending reservation. The debit already happened at
// reserve time, so no balance change occurs. Calling Confirm on an unknown
// or already-finalized reservation is a no-op.
func (s *ReservationService) Confirm(ctx context.Context, reservationID uuid.UUID, metadata map[string]any) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return &ServiceError{
			Code:    ErrCodeInternalError,
			Message: fmt.Sprintf("failed to start transaction: %v", err),
		}
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // rollback error is not critical in defer
	}()

	txTransactionRepo := repository.NewTransactionRepository(tx)

	if err := s.performConfirm(ctx, txTransactionRepo, reservationID, metadata); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return &ServiceError{
			Code:    ErrCodeInternalError,
			Message: fmt.Sprintf("failed to commit transaction: %v", err),
		}
	}

	return nil
}

// performConfirm contains the core confirmation business logic. Only a
// genuinely missing reservation is an idempotent no-op; a lookup that fails
// for any other reason is surfaced so the caller retries instead of
// believing the confirm took effect.
func (s *ReservationService) performConfirm(
	ctx context.Context,
	transactionRepo repository.TransactionRepository,
	reservationID uuid.UUID,
	metadata map[string]any,
) error {
	reservation, err := transactionRepo.FindByIDForUpdate(ctx, reservationID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Warn("confirm called for unknown reservation", "reservation_id", reservationID)
			return nil
		}
		return &ServiceError{
			Code:    ErrCodeInternalError,
			Message: fmt.Sprintf("failed to load reservation: %v", err),
			Err:     err,
		}
	}

	if reservation.Kind != models.TransactionKindReservation ||
		reservation.Status != models.TransactionStatusPending {
		return nil
	}

	if err := transactionRepo.UpdateStatus(ctx, reservationID, models.TransactionStatusConfirmed, metadata); err != nil {
		return &ServiceError{
			Code:    ErrCodeInternalError,
			Message: fmt.Sprintf("failed to confirm reservation: %v", err),
		}
	}

	return nil
}

// Cancel voids a pending reservation and restores its credits through a
// compensating refund entry. The reservation row is kept, keeping the ledger
// a complete audit trail. Calling Cancel on an unknown or already-finalized
// reservation is a no-op.
func (s *ReservationService) Cancel(ctx context.Context, reservationID uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return &ServiceError{
			Code:    ErrCodeInternalError,
			Message: fmt.Sprintf("failed to start transaction: %v", err),
		}
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // rollback error is not critical in defer
	}()

	txTransactionRepo := repository.NewTransactionRepository(tx)
	txAccountRepo := repository.NewAccountRepository(tx)

	cancelled, accountID, err := s.performCancel(ctx, txTransactionRepo, txAccountRepo, reservationID)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return &ServiceError{
			Code:    ErrCodeInternalError,
			Message: fmt.Sprintf("failed to commit transaction: %v", err),
		}
	}

	if cancelled {
		s.invalidateCache(ctx, accountID)
	}

	return nil
}

// performCancel contains the core cancellation business logic. The bool
// result reports whether a pending reservation was actually voided.
func (s *ReservationService) performCancel(
	ctx context.Context,
	transactionRepo repository.TransactionRepository,
	accountRepo repository.AccountRepository,
	reservationID uuid.UUID,
) (bool, uuid.UUID, error) {
	reservation, err := transactionRepo.FindByIDForUpdate(ctx, reservationID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Idempotent: cancelling an unknown reservation is a no-op
			s.logger.Warn("cancel called for unknown reservation", "reservation_id", reservationID)
			return false, uuid.Nil, nil
		}
		return false, uuid.Nil, &ServiceError{
			Code:    ErrCodeInternalError,
			Message: fmt.Sprintf("failed to load reservation: %v", err),
			Err:     err,
		}
	}

	if reservation.Kind != models.TransactionKindReservation ||
		reservation.Status != models.TransactionStatusPending {
		return false, uuid.Nil, nil
	}

	if err := transactionRepo.UpdateStatus(ctx, reservationID, models.TransactionStatusCancelled, nil); err != nil {
		return false, uuid.Nil, &ServiceError{
			Code:    ErrCodeInternalError,
			Message: fmt.Sprintf("failed to cancel reservation: %v", err),
		}
	}

	refund := &models.Transaction{
		ID:            uuid.New(),
		AccountID:     reservation.AccountID,
		AmountCredits: -reservation.AmountCredits,
		Kind:          models.TransactionKindRefund,
		Status:        models.TransactionStatusConfirmed,
		Description:   "reservation cancelled: " + reservation.Description,
		RelatedTaskID: reservation.RelatedTaskID,
		Metadata:      map[string]any{"reservation_id": reservationID.String()},
	}

	if err := transactionRepo.Create(ctx, refund); err != nil {
		return false, uuid.Nil, &ServiceError{
			Code:    ErrCodeInternalError,
			Message: fmt.Sprintf("failed to create compensating refund: %v", err),
		}
	}

	if err := accountRepo.AdjustBalance(ctx, reservation.AccountID, -reservation.AmountCredits); err != nil {
		return false, uuid.Nil, &ServiceError{
			Code:    ErrCodeInternalError,
			Message: fmt.Sprintf("failed to restore balance: %v", err),
		}
	}

	return true, reservation.AccountID, nil
}

// GetReservation retrieves a reservation by ID
func (s *ReservationService) GetReservation(ctx context.Context, reservationID uuid.UUID) (*models.Transaction, error) {
	repo := repository.NewTransactionRepository(s.db)
	txn, err := repo.FindByID(ctx, reservationID)
	if err != nil || txn.Kind != models.TransactionKindReservation {
		return nil, &ServiceError{
			Code:    ErrCodeReservationNotFound,
			Message: "reservation not found",
		}
	}

	return txn, nil
}

func (s *ReservationService) invalidateCache(ctx context.Context, accountID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, accountID); err != nil {
		s.logger.Warn("failed to invalidate balance cache", "account_id", accountID, "error", err)
	}
}
