package models

import (
	"time"

	"github.com/google/uuid"
)

// TransactionKind classifies a ledger movement
type TransactionKind string

const (
	TransactionKindPurchase    TransactionKind = "PURCHASE"
	TransactionKindConsumption TransactionKind = "CONSUMPTION"
	TransactionKindReservation TransactionKind = "RESERVATION"
	TransactionKindRefund      TransactionKind = "REFUND"
	TransactionKindBonus       TransactionKind = "BONUS"
)

// TransactionStatus represents the lifecycle of a transaction. Only
// reservations move through the pending state; every other kind is written
// as confirmed.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusConfirmed TransactionStatus = "CONFIRMED"
	TransactionStatusCancelled TransactionStatus = "CANCELLED"
)

// Transaction is one immutable ledger entry. Amount is signed: positive
// credits the account, negative debits it. Rows are never deleted; a
// cancelled reservation keeps its row and gains a compensating refund entry.
type Transaction struct {
	CreatedAt         time.Time         `db:"created_at"`
	Metadata          map[string]any    `db:"metadata"`
	RelatedTaskID     *uuid.UUID        `db:"related_task_id"`
	ExternalReference *string           `db:"external_reference"`
	Description       string            `db:"description"`
	Kind              TransactionKind   `db:"kind"`
	Status            TransactionStatus `db:"status"`
	AmountCredits     int64             `db:"amount_credits"`
	ID                uuid.UUID         `db:"id"`
	AccountID         uuid.UUID         `db:"account_id"`
}

// AccountStats aggregates ledger activity for one account.
type AccountStats struct {
	TotalPurchased   int64 `db:"total_purchased"`
	TotalConsumed    int64 `db:"total_consumed"`
	TotalRefunded    int64 `db:"total_refunded"`
	TotalBonus       int64 `db:"total_bonus"`
	PendingReserved  int64 `db:"pending_reserved"`
	TransactionCount int64 `db:"transaction_count"`
}

// DailyUsage is one day's consumption within a weekly stats window.
type DailyUsage struct {
	Day      time.Time `db:"day"`
	Consumed int64     `db:"consumed"`
}

// IdempotencyKey tracks processed requests to prevent duplicate generation
// submissions from client retries.
type IdempotencyKey struct {
	CreatedAt      time.Time `db:"created_at"`
	Key            string    `db:"key"`
	RequestPath    string    `db:"request_path"`
	ResponseBody   string    `db:"response_body"`
	ResponseStatus int       `db:"response_status"`
}
