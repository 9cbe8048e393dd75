// Package handlers implements the HTTP surface of the credit subsystem.
package handlers

import (
	"log/slog"

	"github.com/virtustage/creditcore/internal/generation"
	"github.com/virtustage/creditcore/internal/service"
	"github.com/virtustage/creditcore/internal/webhook"
)

// Handler bundles the services behind the HTTP endpoints.
type Handler struct {
	orchestrator  *generation.Orchestrator
	poller        *generation.Poller
	ledger        service.Ledger
	ingestor      *webhook.Ingestor
	healthChecker service.HealthChecker
	logger        *slog.Logger
}

// NewHandler creates a new Handler with injected service dependencies.
func NewHandler(
	orchestrator *generation.Orchestrator,
	poller *generation.Poller,
	ledger service.Ledger,
	ingestor *webhook.Ingestor,
	healthChecker service.HealthChecker,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		orchestrator:  orchestrator,
		poller:        poller,
		ledger:        ledger,
		ingestor:      ingestor,
		healthChecker: healthChecker,
		logger:        logger,
	}
}
