package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServiceError_Error(t *testing.T) {
	t.Run("message only", func(t *testing.T) {
		err := &ServiceError{Code: ErrCodeInvalidAmount, Message: "amount must be positive"}
		assert.Equal(t, "amount must be positive", err.Error())
	})

	t.Run("wrapped error included", func(t *testing.T) {
		inner := errors.New("connection refused")
		err := &ServiceError{Code: ErrCodeInternalError, Message: "failed to commit", Err: inner}
		assert.Equal(t, "failed to commit: connection refused", err.Error())
	})
}

func TestServiceError_Unwrap(t *testing.T) {
	inner := errors.New("row not found")
	err := &ServiceError{Code: ErrCodeAccountNotFound, Message: "account not found", Err: inner}

	assert.ErrorIs(t, err, inner)

	wrapped := fmt.Errorf("ingest failed: %w", err)
	var svcErr *ServiceError
	if assert.ErrorAs(t, wrapped, &svcErr) {
		assert.Equal(t, ErrCodeAccountNotFound, svcErr.Code)
	}
}

func TestServiceError_Retryable(t *testing.T) {
	tests := []struct {
		code      string
		retryable bool
	}{
		{ErrCodeWebhookEffectFailed, true},
		{ErrCodeInternalError, true},
		{ErrCodeInsufficientBalance, false},
		{ErrCodeSignatureInvalid, false},
		{ErrCodeAccountNotFound, false},
		{ErrCodeTaskFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := &ServiceError{Code: tt.code, Message: "x"}
			assert.Equal(t, tt.retryable, err.Retryable())
		})
	}
}
