package service

import "fmt"

// ServiceError represents a business logic error with a code
type ServiceError struct {
	Err     error
	Message string
	Code    string
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeInvalidAmount       = "invalid_amount"
	ErrCodeInvalidDescription  = "invalid_description"
	ErrCodeAccountNotFound     = "account_not_found"
	ErrCodeInsufficientBalance = "insufficient_balance"
	ErrCodeReservationNotFound = "reservation_not_found"
	ErrCodePackNotFound        = "pack_not_found"
	ErrCodeTaskNotFound        = "task_not_found"
	ErrCodeDispatchFailed      = "dispatch_failed"
	ErrCodeTaskFailed          = "task_failed"
	ErrCodePersistenceFailed   = "persistence_failed"
	ErrCodePollingAbandoned    = "polling_abandoned"
	ErrCodeSignatureInvalid    = "webhook_signature_invalid"
	ErrCodePayloadMalformed    = "webhook_payload_malformed"
	ErrCodeWebhookEffectFailed = "webhook_effect_failed"
	ErrCodeInternalError       = "internal_error"
)

// Retryable reports whether the caller (or the payment processor's
// redelivery) should retry the operation that produced this error.
func (e *ServiceError) Retryable() bool {
	return e.Code == ErrCodeWebhookEffectFailed || e.Code == ErrCodeInternalError
}
