package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskState represents the lifecycle of a generation task
type TaskState string

const (
	TaskStateCreated    TaskState = "CREATED"
	TaskStateProcessing TaskState = "PROCESSING"
	TaskStateCompleted  TaskState = "COMPLETED"
	TaskStateFailed     TaskState = "FAILED"
)

// Terminal reports whether the state admits no further transitions.
func (s TaskState) Terminal() bool {
	return s == TaskStateCompleted || s == TaskStateFailed
}

// GenerationTask tracks one attempt to produce a restyled image through the
// external generation service. ExternalTaskID stays nil until dispatch
// succeeds; ResultURL and CompletedAt are set only on completion.
type GenerationTask struct {
	CreatedAt      time.Time  `db:"created_at"`
	CompletedAt    *time.Time `db:"completed_at"`
	ExternalTaskID *string    `db:"external_task_id"`
	ResultURL      *string    `db:"result_url"`
	ErrorMessage   *string    `db:"error_message"`
	State          TaskState  `db:"state"`
	TargetWidth    int        `db:"target_width"`
	TargetHeight   int        `db:"target_height"`
	ID             uuid.UUID  `db:"id"`
	ImageID        uuid.UUID  `db:"image_id"`
	AccountID      uuid.UUID  `db:"account_id"`
	ReservationID  uuid.UUID  `db:"reservation_id"`
}
