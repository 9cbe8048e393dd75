package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/virtustage/creditcore/internal/middleware"
	"github.com/virtustage/creditcore/internal/repository"
)

// NewRouter creates and configures the HTTP router with all routes and
// middleware. idempotencyRepo may be nil to disable response caching.
func NewRouter(h *Handler, idempotencyRepo repository.IdempotencyRepository) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/generations", h.CreateGeneration).Methods(http.MethodPost)
	api.HandleFunc("/generations/{taskId}", h.GetGeneration).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{accountId}/balance", h.GetBalance).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{accountId}/stats", h.GetStats).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{accountId}/stats/weekly", h.GetWeeklyStats).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{accountId}/bonus", h.GrantBonus).Methods(http.MethodPost)

	r.HandleFunc("/webhooks/payments", h.HandlePaymentWebhook).Methods(http.MethodPost)

	var finalHandler http.Handler = r
	if idempotencyRepo != nil {
		finalHandler = middleware.Idempotency(idempotencyRepo, h.logger)(finalHandler)
	}

	return finalHandler
}
