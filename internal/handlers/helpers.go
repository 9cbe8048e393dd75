package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/virtustage/creditcore/internal/service"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body) //nolint:errcheck // nothing useful to do if write fails
}

func writeServiceError(w http.ResponseWriter, err error) {
	svcErr := extractServiceError(err)
	if svcErr == nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   service.ErrCodeInternalError,
			Message: "internal error",
		})
		return
	}

	writeJSON(w, statusForCode(svcErr.Code), errorResponse{
		Error:   svcErr.Code,
		Message: svcErr.Message,
	})
}

func statusForCode(code string) int {
	switch code {
	case service.ErrCodeInvalidAmount, service.ErrCodeInvalidDescription:
		return http.StatusBadRequest
	case service.ErrCodeInsufficientBalance:
		return http.StatusPaymentRequired
	case service.ErrCodeAccountNotFound,
		service.ErrCodeReservationNotFound,
		service.ErrCodeTaskNotFound,
		service.ErrCodePackNotFound:
		return http.StatusNotFound
	case service.ErrCodeDispatchFailed:
		return http.StatusBadGateway
	case service.ErrCodeTaskFailed:
		return http.StatusUnprocessableEntity
	case service.ErrCodeSignatureInvalid, service.ErrCodePayloadMalformed:
		return http.StatusBadRequest
	case service.ErrCodeWebhookEffectFailed:
		// Non-2xx so the payment processor redelivers.
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func extractServiceError(err error) *service.ServiceError {
	var svcErr *service.ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return nil
}
