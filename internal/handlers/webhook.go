package handlers

import (
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
)

const signatureHeader = "X-Webhook-Signature"

const maxWebhookPayloadBytes = 1 << 20 // 1MB

// HandlePaymentWebhook handles POST /webhooks/payments
func (h *Handler) HandlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(generationLatency.WithLabelValues("POST", "/webhooks/payments"))
	defer timer.ObserveDuration()

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookPayloadBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "invalid_request",
			Message: "failed to read payload",
		})
		return
	}

	if err := h.ingestor.Ingest(r.Context(), payload, r.Header.Get(signatureHeader)); err != nil {
		h.logger.Warn("webhook ingestion failed", "error", err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
