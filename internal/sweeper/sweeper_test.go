package sweeper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/virtustage/creditcore/internal/models"
	"github.com/virtustage/creditcore/internal/repository/mocks"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeReserver records confirm and cancel calls.
type fakeReserver struct {
	confirmed []uuid.UUID
	cancelled []uuid.UUID
	cancelErr error
}

func (f *fakeReserver) Reserve(_ context.Context, _ uuid.UUID, _ int64, _ string, _ *uuid.UUID) (*models.Transaction, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeReserver) Confirm(_ context.Context, reservationID uuid.UUID, _ map[string]any) error {
	f.confirmed = append(f.confirmed, reservationID)
	return nil
}

func (f *fakeReserver) Cancel(_ context.Context, reservationID uuid.UUID) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = append(f.cancelled, reservationID)
	return nil
}

func (f *fakeReserver) GetReservation(_ context.Context, _ uuid.UUID) (*models.Transaction, error) {
	return nil, errors.New("not implemented")
}

func staleReservation() *models.Transaction {
	return &models.Transaction{
		ID:            uuid.New(),
		AccountID:     uuid.New(),
		AmountCredits: -2,
		Kind:          models.TransactionKindReservation,
		Status:        models.TransactionStatusPending,
		CreatedAt:     time.Now().Add(-3 * time.Hour),
	}
}

func TestSweeper_SweepOnce(t *testing.T) {
	t.Run("nothing stale", func(t *testing.T) {
		mockTxRepo := mocks.NewMockTransactionRepository(t)
		mockTasks := mocks.NewMockTaskRepository(t)
		reserver := &fakeReserver{}
		s := New(mockTxRepo, mockTasks, reserver, 10*time.Minute, 2*time.Hour, testLogger())
		ctx := context.Background()

		mockTxRepo.On("FindStalePending", ctx, mock.AnythingOfType("time.Time"), sweepBatchSize).
			Return(nil, nil)

		assert.NoError(t, s.SweepOnce(ctx))
		assert.Empty(t, reserver.cancelled)
		assert.Empty(t, reserver.confirmed)
	})

	t.Run("orphan reservation without a task is cancelled", func(t *testing.T) {
		mockTxRepo := mocks.NewMockTransactionRepository(t)
		mockTasks := mocks.NewMockTaskRepository(t)
		reserver := &fakeReserver{}
		s := New(mockTxRepo, mockTasks, reserver, 10*time.Minute, 2*time.Hour, testLogger())
		ctx := context.Background()

		stale := staleReservation()
		mockTxRepo.On("FindStalePending", ctx, mock.AnythingOfType("time.Time"), sweepBatchSize).
			Return([]*models.Transaction{stale}, nil)
		mockTasks.On("FindByReservationID", ctx, stale.ID).Return(nil, models.ErrNotFound)

		assert.NoError(t, s.SweepOnce(ctx))
		assert.Equal(t, []uuid.UUID{stale.ID}, reserver.cancelled)
		mockTasks.AssertNotCalled(t, "MarkFailed")
	})

	t.Run("completed task confirms the lost reservation", func(t *testing.T) {
		mockTxRepo := mocks.NewMockTransactionRepository(t)
		mockTasks := mocks.NewMockTaskRepository(t)
		reserver := &fakeReserver{}
		s := New(mockTxRepo, mockTasks, reserver, 10*time.Minute, 2*time.Hour, testLogger())
		ctx := context.Background()

		stale := staleReservation()
		task := &models.GenerationTask{
			ID:            uuid.New(),
			ReservationID: stale.ID,
			State:         models.TaskStateCompleted,
		}
		mockTxRepo.On("FindStalePending", ctx, mock.AnythingOfType("time.Time"), sweepBatchSize).
			Return([]*models.Transaction{stale}, nil)
		mockTasks.On("FindByReservationID", ctx, stale.ID).Return(task, nil)

		assert.NoError(t, s.SweepOnce(ctx))
		assert.Equal(t, []uuid.UUID{stale.ID}, reserver.confirmed)
		assert.Empty(t, reserver.cancelled)
	})

	t.Run("stuck processing task is failed and refunded", func(t *testing.T) {
		mockTxRepo := mocks.NewMockTransactionRepository(t)
		mockTasks := mocks.NewMockTaskRepository(t)
		reserver := &fakeReserver{}
		s := New(mockTxRepo, mockTasks, reserver, 10*time.Minute, 2*time.Hour, testLogger())
		ctx := context.Background()

		stale := staleReservation()
		task := &models.GenerationTask{
			ID:            uuid.New(),
			ReservationID: stale.ID,
			State:         models.TaskStateProcessing,
		}
		mockTxRepo.On("FindStalePending", ctx, mock.AnythingOfType("time.Time"), sweepBatchSize).
			Return([]*models.Transaction{stale}, nil)
		mockTasks.On("FindByReservationID", ctx, stale.ID).Return(task, nil)
		mockTasks.On("MarkFailed", ctx, task.ID, mock.AnythingOfType("string")).Return(nil)

		assert.NoError(t, s.SweepOnce(ctx))
		assert.Equal(t, []uuid.UUID{stale.ID}, reserver.cancelled)
	})

	t.Run("already failed task is not re-marked", func(t *testing.T) {
		mockTxRepo := mocks.NewMockTransactionRepository(t)
		mockTasks := mocks.NewMockTaskRepository(t)
		reserver := &fakeReserver{}
		s := New(mockTxRepo, mockTasks, reserver, 10*time.Minute, 2*time.Hour, testLogger())
		ctx := context.Background()

		stale := staleReservation()
		task := &models.GenerationTask{
			ID:            uuid.New(),
			ReservationID: stale.ID,
			State:         models.TaskStateFailed,
		}
		mockTxRepo.On("FindStalePending", ctx, mock.AnythingOfType("time.Time"), sweepBatchSize).
			Return([]*models.Transaction{stale}, nil)
		mockTasks.On("FindByReservationID", ctx, stale.ID).Return(task, nil)

		assert.NoError(t, s.SweepOnce(ctx))
		assert.Equal(t, []uuid.UUID{stale.ID}, reserver.cancelled)
		mockTasks.AssertNotCalled(t, "MarkFailed")
	})

	t.Run("one failed resolution does not stop the batch", func(t *testing.T) {
		mockTxRepo := mocks.NewMockTransactionRepository(t)
		mockTasks := mocks.NewMockTaskRepository(t)
		reserver := &fakeReserver{}
		s := New(mockTxRepo, mockTasks, reserver, 10*time.Minute, 2*time.Hour, testLogger())
		ctx := context.Background()

		first := staleReservation()
		second := staleReservation()
		mockTxRepo.On("FindStalePending", ctx, mock.AnythingOfType("time.Time"), sweepBatchSize).
			Return([]*models.Transaction{first, second}, nil)
		mockTasks.On("FindByReservationID", ctx, first.ID).Return(nil, errors.New("connection reset"))
		mockTasks.On("FindByReservationID", ctx, second.ID).Return(nil, models.ErrNotFound)

		assert.NoError(t, s.SweepOnce(ctx))
		assert.Equal(t, []uuid.UUID{second.ID}, reserver.cancelled)
	})
}

func TestSweeper_RunStopsOnContextCancel(t *testing.T) {
	mockTxRepo := mocks.NewMockTransactionRepository(t)
	mockTasks := mocks.NewMockTaskRepository(t)
	s := New(mockTxRepo, mockTasks, &fakeReserver{}, time.Hour, 2*time.Hour, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}
