package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/virtustage/creditcore/internal/models"
)

// TaskRepository defines the interface for generation task data access
type TaskRepository interface {
	Create(ctx context.Context, task *models.GenerationTask) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.GenerationTask, error)
	FindByReservationID(ctx context.Context, reservationID uuid.UUID) (*models.GenerationTask, error)
	SetDispatched(ctx context.Context, id uuid.UUID, externalTaskID string) error
	MarkCompleted(ctx context.Context, id uuid.UUID, resultURL string) error
	MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error
}

// taskRepository implements TaskRepository
type taskRepository struct {
	db DBTX
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db DBTX) TaskRepository {
	return &taskRepository{db: db}
}

const taskColumns = `
	id, image_id, account_id, reservation_id, external_task_id, state,
	result_url, error_message, target_width, target_height, created_at, completed_at
`

// Create inserts a new generation task in the created state.
func (r *taskRepository) Create(ctx context.Context, task *models.GenerationTask) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.State == "" {
		task.State = models.TaskStateCreated
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO generation_tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(ctx, query,
		task.ID,
		task.ImageID,
		task.AccountID,
		task.ReservationID,
		task.ExternalTaskID,
		task.State,
		task.ResultURL,
		task.ErrorMessage,
		task.TargetWidth,
		task.TargetHeight,
		task.CreatedAt,
		task.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create generation task: %w", err)
	}

	return nil
}

// FindByID retrieves a generation task by its UUID
func (r *taskRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.GenerationTask, error) {
	query := `SELECT ` + taskColumns + ` FROM generation_tasks WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// FindByReservationID retrieves the task funded by a given reservation.
// Used by the reconciliation sweeper to decide whether a stale reservation
// still has live work behind it.
func (r *taskRepository) FindByReservationID(ctx context.Context, reservationID uuid.UUID) (*models.GenerationTask, error) {
	query := `SELECT ` + taskColumns + ` FROM generation_tasks WHERE reservation_id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, reservationID))
}

// SetDispatched records the external task id and moves the task to processing.
func (r *taskRepository) SetDispatched(ctx context.Context, id uuid.UUID, externalTaskID string) error {
	query := `
		UPDATE generation_tasks
		SET external_task_id = $2, state = $3
		WHERE id = $1
	`
	return r.exec(ctx, query, id, externalTaskID, models.TaskStateProcessing)
}

// MarkCompleted records the result URL and moves the task to its terminal
// completed state.
func (r *taskRepository) MarkCompleted(ctx context.Context, id uuid.UUID, resultURL string) error {
	query := `
		UPDATE generation_tasks
		SET state = $2, result_url = $3, completed_at = NOW()
		WHERE id = $1
	`
	return r.exec(ctx, query, id, models.TaskStateCompleted, resultURL)
}

// MarkFailed records the failure reason and moves the task to its terminal
// failed state.
func (r *taskRepository) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error {
	query := `
		UPDATE generation_tasks
		SET state = $2, error_message = $3, completed_at = NOW()
		WHERE id = $1
	`
	return r.exec(ctx, query, id, models.TaskStateFailed, errorMessage)
}

func (r *taskRepository) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update generation task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("generation task: %w", models.ErrNotFound)
	}

	return nil
}

func (r *taskRepository) scanOne(row *sql.Row) (*models.GenerationTask, error) {
	var task models.GenerationTask
	err := row.Scan(
		&task.ID,
		&task.ImageID,
		&task.AccountID,
		&task.ReservationID,
		&task.ExternalTaskID,
		&task.State,
		&task.ResultURL,
		&task.ErrorMessage,
		&task.TargetWidth,
		&task.TargetHeight,
		&task.CreatedAt,
		&task.CompletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan generation task: %w", err)
	}

	return &task, nil
}
