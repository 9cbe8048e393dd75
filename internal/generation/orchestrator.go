package generation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/virtustage/creditcore/internal/models"
	"github.com/virtustage/creditcore/internal/repository"
	"github.com/virtustage/creditcore/internal/service"
)

var (
	tasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "creditcore_generation_tasks_total",
		Help: "Generation tasks by terminal outcome.",
	}, []string{"outcome"})

	dispatchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "creditcore_generation_dispatch_failures_total",
		Help: "Dispatch calls rejected by the external generation service.",
	})
)

// Request describes one generation attempt submitted by a caller.
type Request struct {
	AccountID uuid.UUID
	ImageID   uuid.UUID
	Quality   string
	Input     DispatchInput
}

// Orchestrator drives a generation task through its state machine. It is the
// only component that touches the reservation funding a task: it cancels on
// dispatch or generation failure and confirms on success.
type Orchestrator struct {
	tasks    repository.TaskRepository
	reserver service.Reserver
	client   Client
	blobs    BlobStore
	cost     int64
	logger   *slog.Logger
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(
	tasks repository.TaskRepository,
	reserver service.Reserver,
	client Client,
	blobs BlobStore,
	costPerImage int64,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		tasks:    tasks,
		reserver: reserver,
		client:   client,
		blobs:    blobs,
		cost:     costPerImage,
		logger:   logger,
	}
}

// Start reserves credits for a generation, records the task, and dispatches
// it to the external service. A dispatch failure cancels the reservation and
// fails the task before the error is returned, so no credits are left
// locked by a task that never ran.
func (o *Orchestrator) Start(ctx context.Context, req Request) (*models.GenerationTask, error) {
	taskID := uuid.New()

	reservation, err := o.reserver.Reserve(
		ctx,
		req.AccountID,
		o.cost,
		fmt.Sprintf("image generation %s", req.ImageID),
		&taskID,
	)
	if err != nil {
		return nil, err
	}

	task := &models.GenerationTask{
		ID:            taskID,
		ImageID:       req.ImageID,
		AccountID:     req.AccountID,
		ReservationID: reservation.ID,
		State:         models.TaskStateCreated,
		TargetWidth:   req.Input.TargetWidth,
		TargetHeight:  req.Input.TargetHeight,
	}
	if err := o.tasks.Create(ctx, task); err != nil {
		o.cancelReservation(ctx, reservation.ID)
		return nil, &service.ServiceError{
			Code:    service.ErrCodeInternalError,
			Message: fmt.Sprintf("failed to record generation task: %v", err),
		}
	}

	result, err := o.client.Dispatch(ctx, req.Input)
	if err != nil {
		dispatchFailures.Inc()
		o.failTask(ctx, task, fmt.Sprintf("dispatch failed: %v", err))
		return nil, &service.ServiceError{
			Code:    service.ErrCodeDispatchFailed,
			Message: "generation service rejected the task",
			Err:     err,
		}
	}

	if result.ResultURL != "" {
		// Direct-complete: no polling phase.
		return o.finalize(ctx, task, result.ResultURL, req.Quality)
	}

	if err := o.tasks.SetDispatched(ctx, task.ID, result.TaskID); err != nil {
		// The external task is running; leave the reservation pending and
		// let polling or the sweeper resolve it.
		o.logger.Error("failed to record dispatched task",
			"task_id", task.ID, "external_task_id", result.TaskID, "error", err)
		return nil, &service.ServiceError{
			Code:    service.ErrCodeInternalError,
			Message: fmt.Sprintf("failed to record dispatch: %v", err),
		}
	}

	task.State = models.TaskStateProcessing
	task.ExternalTaskID = &result.TaskID
	return task, nil
}

// CheckTask performs one status check against the external service and
// advances the task's state machine accordingly. Unknown flags leave the
// task processing; transient upstream weirdness must not fail a funded task.
func (o *Orchestrator) CheckTask(ctx context.Context, taskID uuid.UUID) (*models.GenerationTask, error) {
	task, err := o.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, &service.ServiceError{
			Code:    service.ErrCodeTaskNotFound,
			Message: "generation task not found",
			Err:     err,
		}
	}

	if task.State.Terminal() {
		return task, nil
	}
	if task.ExternalTaskID == nil {
		return task, nil
	}

	status, err := o.client.CheckStatus(ctx, *task.ExternalTaskID)
	if err != nil {
		// Network or upstream failure: remain processing, the poller retries.
		return task, &service.ServiceError{
			Code:    service.ErrCodeInternalError,
			Message: "status check failed",
			Err:     err,
		}
	}

	switch status.Flag {
	case FlagSucceeded:
		if status.ResultURL == "" {
			// Success without a result URL is treated as still running; the
			// next poll usually carries it.
			return task, nil
		}
		return o.finalize(ctx, task, status.ResultURL, "")

	case FlagCreateFailed, FlagGenerationFailed:
		o.failTask(ctx, task, fmt.Sprintf("generation failed with flag %d", status.Flag))
		task.State = models.TaskStateFailed
		return task, &service.ServiceError{
			Code:    service.ErrCodeTaskFailed,
			Message: "generation failed, credits were refunded",
		}

	default:
		// Flag 0 and anything unknown: still running.
		return task, nil
	}
}

// finalize fetches the result, resamples it to the task's exact target
// dimensions, persists it, and confirms the funding reservation. The
// external cost is incurred once the service reports success, so a failure
// anywhere in the persistence path still confirms the reservation; the
// error is surfaced as persistence_failed, a different class from a
// generation failure.
func (o *Orchestrator) finalize(
	ctx context.Context,
	task *models.GenerationTask,
	resultURL string,
	quality string,
) (*models.GenerationTask, error) {
	finalURL, persistErr := o.persistResult(ctx, task, resultURL)
	if persistErr != nil {
		o.logger.Error("failed to persist generation result",
			"task_id", task.ID, "result_url", resultURL, "error", persistErr)
		// Fall back to the upstream URL so the result is not lost entirely.
		finalURL = resultURL
	}

	if err := o.tasks.MarkCompleted(ctx, task.ID, finalURL); err != nil {
		o.logger.Error("failed to mark task completed", "task_id", task.ID, "error", err)
		if persistErr == nil {
			persistErr = err
		}
	}

	metadata := map[string]any{"image_id": task.ImageID.String()}
	if quality != "" {
		metadata["quality_tier"] = quality
	}
	if err := o.reserver.Confirm(ctx, task.ReservationID, metadata); err != nil {
		o.logger.Error("failed to confirm reservation after successful generation",
			"task_id", task.ID, "reservation_id", task.ReservationID, "error", err)
		if persistErr == nil {
			persistErr = err
		}
	}

	task.State = models.TaskStateCompleted
	task.ResultURL = &finalURL

	if persistErr != nil {
		tasksTotal.WithLabelValues("persist_failed").Inc()
		return task, &service.ServiceError{
			Code:    service.ErrCodePersistenceFailed,
			Message: "generation succeeded but the result could not be fully persisted",
			Err:     persistErr,
		}
	}

	tasksTotal.WithLabelValues("completed").Inc()
	return task, nil
}

// persistResult downloads the upstream asset, resamples it to the target
// dimensions when the original input had known dimensions, and uploads it
// to the blob store.
func (o *Orchestrator) persistResult(ctx context.Context, task *models.GenerationTask, resultURL string) (string, error) {
	data, err := o.blobs.Fetch(ctx, resultURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch result asset: %w", err)
	}

	contentType := "image/png"
	if task.TargetWidth > 0 && task.TargetHeight > 0 {
		data, contentType, err = resampleToExact(data, task.TargetWidth, task.TargetHeight)
		if err != nil {
			return "", err
		}
	}

	key := fmt.Sprintf("generations/%s/%s", task.AccountID, task.ID)
	url, err := o.blobs.Put(ctx, key, data, contentType)
	if err != nil {
		return "", fmt.Errorf("failed to store result asset: %w", err)
	}

	return url, nil
}

// failTask marks the task failed and cancels its funding reservation.
// Cancel is idempotent, so a retried orchestrator step is harmless.
func (o *Orchestrator) failTask(ctx context.Context, task *models.GenerationTask, reason string) {
	if err := o.tasks.MarkFailed(ctx, task.ID, reason); err != nil {
		o.logger.Error("failed to mark task failed", "task_id", task.ID, "error", err)
	}
	o.cancelReservation(ctx, task.ReservationID)
	tasksTotal.WithLabelValues("failed").Inc()
}

func (o *Orchestrator) cancelReservation(ctx context.Context, reservationID uuid.UUID) {
	if err := o.reserver.Cancel(ctx, reservationID); err != nil {
		o.logger.Error("failed to cancel reservation", "reservation_id", reservationID, "error", err)
	}
}

// GetTask retrieves a generation task by ID.
func (o *Orchestrator) GetTask(ctx context.Context, taskID uuid.UUID) (*models.GenerationTask, error) {
	task, err := o.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, &service.ServiceError{
			Code:    service.ErrCodeTaskNotFound,
			Message: "generation task not found",
			Err:     err,
		}
	}
	return task, nil
}
