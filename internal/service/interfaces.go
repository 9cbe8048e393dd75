package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/virtustage/creditcore/internal/models"
)

// HealthChecker validates system health.
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// Reserver is the two-phase reservation engine consumed by the generation
// orchestrator and the reconciliation sweeper.
type Reserver interface {
	Reserve(ctx context.Context, accountID uuid.UUID, amount int64, description string, relatedTaskID *uuid.UUID) (*models.Transaction, error)
	Confirm(ctx context.Context, reservationID uuid.UUID, metadata map[string]any) error
	Cancel(ctx context.Context, reservationID uuid.UUID) error
	GetReservation(ctx context.Context, reservationID uuid.UUID) (*models.Transaction, error)
}

// Ledger handles positive credit movements and read-only aggregates.
type Ledger interface {
	Credit(ctx context.Context, accountID uuid.UUID, amount int64, kind models.TransactionKind, description, externalReference string) (*models.Transaction, error)
	GetBalance(ctx context.Context, accountID uuid.UUID) (int64, error)
	GetStats(ctx context.Context, accountID uuid.UUID) (*models.AccountStats, error)
	GetWeeklyStats(ctx context.Context, accountID uuid.UUID) ([]models.DailyUsage, error)
}

// Ensure concrete types implement interfaces
var (
	_ Reserver = (*ReservationService)(nil)
	_ Ledger   = (*LedgerService)(nil)
)
