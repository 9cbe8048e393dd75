// Package sweeper reconciles reservations that were left pending by
// abandoned polling: without it, a task that never reaches a terminal state
// locks its credits forever.
package sweeper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/virtustage/creditcore/internal/models"
	"github.com/virtustage/creditcore/internal/repository"
	"github.com/virtustage/creditcore/internal/service"
)

var sweptReservations = promauto.NewCounter(prometheus.CounterOpts{
	Name: "creditcore_swept_reservations_total",
	Help: "Stale pending reservations cancelled by the reconciliation sweep.",
})

const sweepBatchSize = 100

// Sweeper periodically cancels reservations that are still pending past a
// configured age and whose task is not completed. A completed task with a
// pending reservation means a confirm was lost; that reservation is
// confirmed instead of cancelled.
type Sweeper struct {
	transactions repository.TransactionRepository
	tasks        repository.TaskRepository
	reserver     service.Reserver
	interval     time.Duration
	maxAge       time.Duration
	logger       *slog.Logger
}

// New creates a new Sweeper.
func New(
	transactions repository.TransactionRepository,
	tasks repository.TaskRepository,
	reserver service.Reserver,
	interval, maxAge time.Duration,
	logger *slog.Logger,
) *Sweeper {
	return &Sweeper{
		transactions: transactions,
		tasks:        tasks,
		reserver:     reserver,
		interval:     interval,
		maxAge:       maxAge,
		logger:       logger,
	}
}

// Run sweeps on the configured interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.SweepOnce(ctx); err != nil {
				s.logger.Error("reconciliation sweep failed", "error", err)
			}
		}
	}
}

// SweepOnce resolves one batch of stale pending reservations.
func (s *Sweeper) SweepOnce(ctx context.Context) error {
	cutoff := time.Now().Add(-s.maxAge)

	stale, err := s.transactions.FindStalePending(ctx, cutoff, sweepBatchSize)
	if err != nil {
		return err
	}

	for _, reservation := range stale {
		if err := s.resolve(ctx, reservation); err != nil {
			s.logger.Error("failed to resolve stale reservation",
				"reservation_id", reservation.ID, "error", err)
		}
	}

	if len(stale) > 0 {
		s.logger.Info("reconciliation sweep finished", "resolved", len(stale))
	}

	return nil
}

func (s *Sweeper) resolve(ctx context.Context, reservation *models.Transaction) error {
	task, err := s.tasks.FindByReservationID(ctx, reservation.ID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return err
	}

	if task != nil && task.State == models.TaskStateCompleted {
		// The work succeeded but the confirm was lost; the credits were
		// legitimately consumed.
		s.logger.Warn("confirming stale reservation with completed task",
			"reservation_id", reservation.ID, "task_id", task.ID)
		return s.reserver.Confirm(ctx, reservation.ID, map[string]any{"reconciled": true})
	}

	s.logger.Info("cancelling stale reservation",
		"reservation_id", reservation.ID,
		"age", time.Since(reservation.CreatedAt).String())

	if err := s.reserver.Cancel(ctx, reservation.ID); err != nil {
		return err
	}

	if task != nil && !task.State.Terminal() {
		if err := s.tasks.MarkFailed(ctx, task.ID, "abandoned: no terminal state before reconciliation"); err != nil {
			s.logger.Error("failed to mark abandoned task failed", "task_id", task.ID, "error", err)
		}
	}

	sweptReservations.Inc()
	return nil
}
