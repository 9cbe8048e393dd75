package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/virtustage/creditcore/internal/generation"
	"github.com/virtustage/creditcore/internal/models"
	"github.com/virtustage/creditcore/internal/service"
)

var generationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "creditcore_http_request_duration_seconds",
	Help:    "HTTP request latency.",
	Buckets: prometheus.DefBuckets,
}, []string{"method", "route"})

type createGenerationRequest struct {
	AccountID      uuid.UUID `json:"account_id"`
	ImageID        uuid.UUID `json:"image_id"`
	Prompt         string    `json:"prompt"`
	SourceImageURL string    `json:"source_image_url"`
	AspectHint     string    `json:"aspect_hint"`
	Quality        string    `json:"quality"`
	TargetWidth    int       `json:"target_width"`
	TargetHeight   int       `json:"target_height"`
}

type generationResponse struct {
	TaskID        uuid.UUID  `json:"task_id"`
	ImageID       uuid.UUID  `json:"image_id"`
	State         string     `json:"state"`
	ResultURL     *string    `json:"result_url,omitempty"`
	ErrorMessage  *string    `json:"error_message,omitempty"`
	ReservationID uuid.UUID  `json:"reservation_id"`
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// CreateGeneration handles POST /api/v1/generations
func (h *Handler) CreateGeneration(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(generationLatency.WithLabelValues("POST", "/api/v1/generations"))
	defer timer.ObserveDuration()

	var req createGenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "invalid_request",
			Message: "request body is not valid JSON",
		})
		return
	}
	if req.AccountID == uuid.Nil || req.ImageID == uuid.Nil || req.Prompt == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "invalid_request",
			Message: "account_id, image_id and prompt are required",
		})
		return
	}

	task, err := h.orchestrator.Start(r.Context(), generation.Request{
		AccountID: req.AccountID,
		ImageID:   req.ImageID,
		Quality:   req.Quality,
		Input: generation.DispatchInput{
			Prompt:         req.Prompt,
			SourceImageURL: req.SourceImageURL,
			AspectHint:     req.AspectHint,
			TargetWidth:    req.TargetWidth,
			TargetHeight:   req.TargetHeight,
		},
	})
	if err != nil {
		svcErr := extractServiceError(err)
		if svcErr != nil && svcErr.Code == service.ErrCodePersistenceFailed {
			// The image was generated and the credits consumed; the
			// persistence gap is operational, not the caller's failure.
			h.logger.Error("generation persisted partially", "task_id", task.ID, "error", err)
			writeJSON(w, http.StatusCreated, toGenerationResponse(task))
			return
		}
		if svcErr == nil {
			h.logger.Error("unexpected error during generation", "error", err)
		}
		writeServiceError(w, err)
		return
	}

	if task.State == models.TaskStateProcessing {
		h.watchTask(task.ID)
	}

	writeJSON(w, http.StatusCreated, toGenerationResponse(task))
}

// GetGeneration handles GET /api/v1/generations/{taskId}
func (h *Handler) GetGeneration(w http.ResponseWriter, r *http.Request) {
	taskID, err := uuid.Parse(mux.Vars(r)["taskId"])
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{
			Error:   service.ErrCodeTaskNotFound,
			Message: "generation task not found",
		})
		return
	}

	task, err := h.orchestrator.GetTask(r.Context(), taskID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toGenerationResponse(task))
}

// watchTask runs the polling loop for a dispatched task in the background.
// The loop owns its own context: the HTTP request ending must not stop the
// reservation from being resolved.
func (h *Handler) watchTask(taskID uuid.UUID) {
	results := h.poller.Watch(context.Background(), taskID)
	go func() {
		result := <-results
		switch {
		case result.Abandoned:
			h.logger.Error("generation polling abandoned, reservation left for reconciliation",
				"task_id", taskID)
		case result.Err != nil:
			h.logger.Warn("generation polling finished with error",
				"task_id", taskID, "error", result.Err)
		default:
			h.logger.Info("generation task resolved",
				"task_id", taskID, "state", result.Task.State)
		}
	}()
}

func toGenerationResponse(task *models.GenerationTask) generationResponse {
	return generationResponse{
		TaskID:        task.ID,
		ImageID:       task.ImageID,
		State:         string(task.State),
		ResultURL:     task.ResultURL,
		ErrorMessage:  task.ErrorMessage,
		ReservationID: task.ReservationID,
		CreatedAt:     task.CreatedAt,
		CompletedAt:   task.CompletedAt,
	}
}
