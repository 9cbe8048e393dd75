package models

import "time"

// WebhookEventType enumerates the payment-processor notifications this
// subsystem reacts to.
type WebhookEventType string

const (
	WebhookEventCheckoutCompleted WebhookEventType = "checkout_completed"
	WebhookEventPaymentFailed     WebhookEventType = "payment_failed"
	WebhookEventChargeRefunded    WebhookEventType = "charge_refunded"
)

// WebhookEvent is the dedup record for one payment-processor event.
// Processed flips to true only after the ledger effect has committed; a
// processed event is never re-applied.
type WebhookEvent struct {
	ReceivedAt      time.Time        `db:"received_at"`
	ExternalEventID string           `db:"external_event_id"`
	EventType       WebhookEventType `db:"event_type"`
	Payload         []byte           `db:"payload"`
	ErrorMessage    *string          `db:"error_message"`
	RetryCount      int              `db:"retry_count"`
	Processed       bool             `db:"processed"`
}
