package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/virtustage/creditcore/internal/models"
)

// WebhookEventRepository defines the interface for webhook dedup records
type WebhookEventRepository interface {
	Insert(ctx context.Context, event *models.WebhookEvent) error
	FindByEventID(ctx context.Context, externalEventID string) (*models.WebhookEvent, error)
	MarkProcessed(ctx context.Context, externalEventID string) error
	RecordFailure(ctx context.Context, externalEventID, errorMessage string) error
}

// webhookEventRepository implements WebhookEventRepository
type webhookEventRepository struct {
	db DBTX
}

// NewWebhookEventRepository creates a new WebhookEventRepository
func NewWebhookEventRepository(db DBTX) WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

// Insert records the first sighting of an event. Returns ErrDuplicateEvent
// when the event id has been seen before; the uniqueness constraint is what
// serializes concurrent deliveries of the same event.
func (r *webhookEventRepository) Insert(ctx context.Context, event *models.WebhookEvent) error {
	query := `
		INSERT INTO webhook_events (external_event_id, event_type, payload, processed, retry_count, received_at)
		VALUES ($1, $2, $3, FALSE, 0, NOW())
	`

	_, err := r.db.ExecContext(ctx, query, event.ExternalEventID, event.EventType, event.Payload)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return models.ErrDuplicateEvent
		}
		return fmt.Errorf("failed to insert webhook event: %w", err)
	}

	return nil
}

// FindByEventID retrieves a dedup record by its external event id
func (r *webhookEventRepository) FindByEventID(ctx context.Context, externalEventID string) (*models.WebhookEvent, error) {
	query := `
		SELECT external_event_id, event_type, payload, processed, error_message, retry_count, received_at
		FROM webhook_events
		WHERE external_event_id = $1
	`

	var event models.WebhookEvent
	err := r.db.QueryRowContext(ctx, query, externalEventID).Scan(
		&event.ExternalEventID,
		&event.EventType,
		&event.Payload,
		&event.Processed,
		&event.ErrorMessage,
		&event.RetryCount,
		&event.ReceivedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find webhook event: %w", err)
	}

	return &event, nil
}

// MarkProcessed flips the processed flag after the ledger effect committed.
func (r *webhookEventRepository) MarkProcessed(ctx context.Context, externalEventID string) error {
	query := `
		UPDATE webhook_events
		SET processed = TRUE, error_message = NULL
		WHERE external_event_id = $1
	`
	return r.exec(ctx, query, externalEventID)
}

// RecordFailure stores the failure reason and bumps the retry counter,
// leaving the event unprocessed so the processor's redelivery can retry it.
func (r *webhookEventRepository) RecordFailure(ctx context.Context, externalEventID, errorMessage string) error {
	query := `
		UPDATE webhook_events
		SET error_message = $2, retry_count = retry_count + 1
		WHERE external_event_id = $1
	`
	return r.exec(ctx, query, externalEventID, errorMessage)
}

func (r *webhookEventRepository) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update webhook event: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("webhook event: %w", models.ErrNotFound)
	}

	return nil
}
