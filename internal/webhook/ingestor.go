package webhook

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/virtustage/creditcore/internal/db"
	"github.com/virtustage/creditcore/internal/models"
	"github.com/virtustage/creditcore/internal/repository"
	"github.com/virtustage/creditcore/internal/service"
)

var eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "creditcore_webhook_events_total",
	Help: "Webhook events by type and outcome.",
}, []string{"event_type", "outcome"})

// Envelope is the payment processor's event wrapper.
type Envelope struct {
	EventID   string                  `json:"event_id"`
	EventType models.WebhookEventType `json:"event_type"`
	Data      EventData               `json:"data"`
}

// EventData carries event-specific metadata.
type EventData struct {
	AccountID        uuid.UUID `json:"account_id"`
	PackID           string    `json:"pack_id"`
	PaymentReference string    `json:"payment_reference"`
	RefundedCents    int64     `json:"refunded_cents"`
}

// Ingestor applies verified payment-processor events to the ledger, with
// duplicates short-circuited. The ledger effect and the processed flag commit in one
// database transaction, so an event is either fully applied and marked
// processed, or neither. Redelivery of failed events is the processor's
// job; the ingestor never self-schedules retries.
type Ingestor struct {
	db            *db.DB
	events        repository.WebhookEventRepository
	packs         repository.PackRepository
	cache         repository.BalanceCache
	signingSecret string
	logger        *slog.Logger
}

// NewIngestor creates a new Ingestor.
func NewIngestor(
	database *db.DB,
	events repository.WebhookEventRepository,
	packs repository.PackRepository,
	cache repository.BalanceCache,
	signingSecret string,
	logger *slog.Logger,
) *Ingestor {
	return &Ingestor{
		db:            database,
		events:        events,
		packs:         packs,
		cache:         cache,
		signingSecret: signingSecret,
		logger:        logger,
	}
}

// Ingest processes one raw webhook delivery. Replays of processed events
// acknowledge without effect; invalid signatures are rejected before any
// record is written.
func (i *Ingestor) Ingest(ctx context.Context, rawPayload []byte, signature string) error {
	if !VerifySignature(i.signingSecret, rawPayload, signature) {
		eventsTotal.WithLabelValues("unknown", "rejected").Inc()
		return &service.ServiceError{
			Code:    service.ErrCodeSignatureInvalid,
			Message: "webhook signature verification failed",
		}
	}

	var envelope Envelope
	if err := json.Unmarshal(rawPayload, &envelope); err != nil {
		eventsTotal.WithLabelValues("unknown", "rejected").Inc()
		return &service.ServiceError{
			Code:    service.ErrCodePayloadMalformed,
			Message: "webhook payload is not valid JSON",
			Err:     err,
		}
	}
	if envelope.EventID == "" {
		eventsTotal.WithLabelValues(string(envelope.EventType), "rejected").Inc()
		return &service.ServiceError{
			Code:    service.ErrCodePayloadMalformed,
			Message: "webhook payload is missing event_id",
		}
	}

	// Record the first sighting. A duplicate insert means a concurrent or
	// earlier delivery owns the event; whether we ack or retry depends on
	// whether it already processed.
	err := i.events.Insert(ctx, &models.WebhookEvent{
		ExternalEventID: envelope.EventID,
		EventType:       envelope.EventType,
		Payload:         rawPayload,
	})
	if err != nil {
		if !errors.Is(err, models.ErrDuplicateEvent) {
			return &service.ServiceError{
				Code:    service.ErrCodeInternalError,
				Message: fmt.Sprintf("failed to record webhook event: %v", err),
			}
		}

		existing, findErr := i.events.FindByEventID(ctx, envelope.EventID)
		if findErr != nil {
			return &service.ServiceError{
				Code:    service.ErrCodeInternalError,
				Message: fmt.Sprintf("failed to look up webhook event: %v", findErr),
			}
		}
		if existing.Processed {
			i.logger.Info("webhook replay acknowledged",
				"event_id", envelope.EventID, "event_type", envelope.EventType)
			eventsTotal.WithLabelValues(string(envelope.EventType), "replay").Inc()
			return nil
		}
		// Seen before but never applied: fall through and retry the effect.
	}

	if err := i.applyEffect(ctx, &envelope); err != nil {
		if recErr := i.events.RecordFailure(ctx, envelope.EventID, err.Error()); recErr != nil {
			i.logger.Error("failed to record webhook failure",
				"event_id", envelope.EventID, "error", recErr)
		}
		eventsTotal.WithLabelValues(string(envelope.EventType), "failed").Inc()
		return err
	}

	i.invalidateCache(ctx, envelope.Data.AccountID)

	eventsTotal.WithLabelValues(string(envelope.EventType), "applied").Inc()
	return nil
}

func (i *Ingestor) invalidateCache(ctx context.Context, accountID uuid.UUID) {
	if i.cache == nil || accountID == uuid.Nil {
		return
	}
	if err := i.cache.Invalidate(ctx, accountID); err != nil {
		i.logger.Warn("failed to invalidate balance cache", "account_id", accountID, "error", err)
	}
}

// applyEffect runs the event's ledger effect and the processed flip inside
// one database transaction.
func (i *Ingestor) applyEffect(ctx context.Context, envelope *Envelope) error {
	tx, err := i.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return &service.ServiceError{
			Code:    service.ErrCodeInternalError,
			Message: fmt.Sprintf("failed to start transaction: %v", err),
		}
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // rollback error is not critical in defer
	}()

	txAccountRepo := repository.NewAccountRepository(tx)
	txTransactionRepo := repository.NewTransactionRepository(tx)
	txEventRepo := repository.NewWebhookEventRepository(tx)

	switch envelope.EventType {
	case models.WebhookEventCheckoutCompleted:
		err = i.applyCheckoutCompleted(ctx, txAccountRepo, txTransactionRepo, envelope)
	case models.WebhookEventChargeRefunded:
		err = i.applyChargeRefunded(ctx, txAccountRepo, txTransactionRepo, envelope)
	case models.WebhookEventPaymentFailed:
		// No ledger effect; acknowledged and recorded for audit.
		i.logger.Info("payment failed event received",
			"event_id", envelope.EventID,
			"payment_reference", envelope.Data.PaymentReference)
	default:
		i.logger.Warn("ignoring unknown webhook event type",
			"event_id", envelope.EventID, "event_type", envelope.EventType)
	}
	if err != nil {
		return err
	}

	if err := txEventRepo.MarkProcessed(ctx, envelope.EventID); err != nil {
		return &service.ServiceError{
			Code:    service.ErrCodeInternalError,
			Message: fmt.Sprintf("failed to mark webhook event processed: %v", err),
		}
	}

	if err := tx.Commit(); err != nil {
		return &service.ServiceError{
			Code:    service.ErrCodeWebhookEffectFailed,
			Message: fmt.Sprintf("failed to commit webhook effect: %v", err),
		}
	}

	return nil
}

// applyCheckoutCompleted resolves the purchased pack and credits the buyer
// through the shared ledger credit path.
func (i *Ingestor) applyCheckoutCompleted(
	ctx context.Context,
	accountRepo repository.AccountRepository,
	transactionRepo repository.TransactionRepository,
	envelope *Envelope,
) error {
	pack, err := i.packs.FindByID(ctx, envelope.Data.PackID)
	if err != nil {
		return &service.ServiceError{
			Code:    service.ErrCodePackNotFound,
			Message: fmt.Sprintf("unknown credit pack %q", envelope.Data.PackID),
			Err:     err,
		}
	}

	_, err = service.ApplyCredit(ctx, accountRepo, transactionRepo,
		envelope.Data.AccountID, pack.Credits, models.TransactionKindPurchase,
		fmt.Sprintf("purchase of %s pack", pack.Name), envelope.Data.PaymentReference)
	if err != nil {
		if errors.Is(err, models.ErrDuplicateTransaction) {
			// The payment reference was already credited under a different
			// event id; treat as applied.
			i.logger.Warn("purchase already credited",
				"event_id", envelope.EventID,
				"payment_reference", envelope.Data.PaymentReference)
			return nil
		}
		return &service.ServiceError{
			Code:    service.ErrCodeWebhookEffectFailed,
			Message: "failed to credit purchase",
			Err:     err,
		}
	}

	return nil
}

// applyChargeRefunded debits back the credits of the original purchase. A
// refund arriving before its purchase is locally known is a retryable
// failure, never a guess at the compensating amount.
func (i *Ingestor) applyChargeRefunded(
	ctx context.Context,
	accountRepo repository.AccountRepository,
	transactionRepo repository.TransactionRepository,
	envelope *Envelope,
) error {
	purchase, err := transactionRepo.FindByExternalReference(
		ctx, envelope.Data.PaymentReference, models.TransactionKindPurchase)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return &service.ServiceError{
				Code:    service.ErrCodeWebhookEffectFailed,
				Message: "refund received before its purchase is known; retry later",
			}
		}
		return &service.ServiceError{
			Code:    service.ErrCodeInternalError,
			Message: fmt.Sprintf("failed to look up purchase: %v", err),
		}
	}

	if _, err := accountRepo.FindByIDForUpdate(ctx, purchase.AccountID); err != nil {
		return &service.ServiceError{
			Code:    service.ErrCodeWebhookEffectFailed,
			Message: "refunded account not found",
			Err:     err,
		}
	}

	reference := envelope.Data.PaymentReference
	compensation := &models.Transaction{
		ID:                uuid.New(),
		AccountID:         purchase.AccountID,
		AmountCredits:     -purchase.AmountCredits,
		Kind:              models.TransactionKindRefund,
		Status:            models.TransactionStatusConfirmed,
		Description:       "payment refunded: " + purchase.Description,
		ExternalReference: &reference,
		Metadata:          map[string]any{"refunded_cents": envelope.Data.RefundedCents},
	}

	if err := transactionRepo.Create(ctx, compensation); err != nil {
		if errors.Is(err, models.ErrDuplicateTransaction) {
			i.logger.Warn("refund already applied",
				"event_id", envelope.EventID, "payment_reference", reference)
			return nil
		}
		return &service.ServiceError{
			Code:    service.ErrCodeWebhookEffectFailed,
			Message: fmt.Sprintf("failed to create refund transaction: %v", err),
		}
	}

	// The balance check constraint rejects the debit when the credits were
	// already spent; the processor will redeliver once support resolves it.
	if err := accountRepo.AdjustBalance(ctx, purchase.AccountID, -purchase.AmountCredits); err != nil {
		return &service.ServiceError{
			Code:    service.ErrCodeWebhookEffectFailed,
			Message: fmt.Sprintf("failed to debit refunded credits: %v", err),
		}
	}

	return nil
}
