package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/virtustage/creditcore/internal/models"
	"github.com/virtustage/creditcore/internal/service"
)

var (
	pollAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "creditcore_poll_attempts_total",
		Help: "Status checks issued against the external generation service.",
	})

	pollsAbandoned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "creditcore_polls_abandoned_total",
		Help: "Polling loops that hit the attempt cap without a terminal state.",
	})
)

// ErrPollingAbandoned is reported when the attempt cap is reached while the
// task is still processing. The reservation is left pending; the
// reconciliation sweeper is responsible for eventually releasing it.
var ErrPollingAbandoned = errors.New("polling abandoned: attempt cap reached")

// Result is the terminal outcome of one polling loop.
type Result struct {
	Task      *models.GenerationTask
	Err       error
	Abandoned bool
}

type pollSub struct {
	cancel context.CancelFunc
}

// Poller runs one lightweight timer-driven polling loop per in-flight task.
// Loops are independent and share no mutable state beyond the subscription
// map used for cancellation.
type Poller struct {
	orch        *Orchestrator
	maxAttempts int
	logger      *slog.Logger

	mu   sync.Mutex
	subs map[uuid.UUID]*pollSub
	wg   sync.WaitGroup
}

// NewPoller creates a new Poller.
func NewPoller(orch *Orchestrator, maxAttempts int, logger *slog.Logger) *Poller {
	return &Poller{
		orch:        orch,
		maxAttempts: maxAttempts,
		logger:      logger,
		subs:        make(map[uuid.UUID]*pollSub),
	}
}

// pollDelay returns the wait before the given attempt: a fixed-then-growing
// schedule that backs off as the task ages.
func pollDelay(attempt int) time.Duration {
	switch {
	case attempt <= 1:
		return 5 * time.Second
	case attempt <= 3:
		return 10 * time.Second
	case attempt <= 5:
		return 15 * time.Second
	case attempt <= 9:
		return 20 * time.Second
	default:
		return 30 * time.Second
	}
}

// Watch starts a polling loop for the task and returns a channel that
// receives exactly one Result when the loop ends: terminal state, attempt
// cap, or cancellation. Watching an already-watched task cancels the
// previous loop.
func (p *Poller) Watch(ctx context.Context, taskID uuid.UUID) <-chan Result {
	loopCtx, cancel := context.WithCancel(ctx)
	sub := &pollSub{cancel: cancel}

	p.mu.Lock()
	if prev, ok := p.subs[taskID]; ok {
		prev.cancel()
	}
	p.subs[taskID] = sub
	p.mu.Unlock()

	results := make(chan Result, 1)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.unsubscribe(taskID, sub)
		results <- p.run(loopCtx, taskID)
	}()

	return results
}

// Cancel stops the polling loop for the task, if any. No status check is
// issued once the loop observes the cancellation.
func (p *Poller) Cancel(taskID uuid.UUID) {
	p.mu.Lock()
	sub, ok := p.subs[taskID]
	if ok {
		delete(p.subs, taskID)
	}
	p.mu.Unlock()

	if ok {
		sub.cancel()
	}
}

// Shutdown cancels every active loop and waits for them to drain.
func (p *Poller) Shutdown() {
	p.mu.Lock()
	for id, sub := range p.subs {
		sub.cancel()
		delete(p.subs, id)
	}
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Poller) run(ctx context.Context, taskID uuid.UUID) Result {
	timer := time.NewTimer(pollDelay(0))
	defer timer.Stop()

	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return Result{Err: ctx.Err()}
		case <-timer.C:
		}

		pollAttempts.Inc()

		task, err := p.orch.CheckTask(ctx, taskID)
		if err != nil {
			var svcErr *service.ServiceError
			if errors.As(err, &svcErr) && svcErr.Code == service.ErrCodeTaskNotFound {
				return Result{Err: err}
			}
			// Transient check failures and terminal task errors both come
			// back with the task attached; terminal states end the loop
			// below, everything else keeps polling.
			p.logger.Debug("status check error", "task_id", taskID, "attempt", attempt, "error", err)
		}

		if task != nil && task.State.Terminal() {
			return Result{Task: task, Err: err}
		}

		timer.Reset(pollDelay(attempt + 1))
	}

	pollsAbandoned.Inc()
	p.logger.Warn("polling abandoned", "task_id", taskID, "max_attempts", p.maxAttempts)
	return Result{Abandoned: true, Err: &service.ServiceError{
		Code:    service.ErrCodePollingAbandoned,
		Message: fmt.Sprintf("no terminal state after %d status checks", p.maxAttempts),
		Err:     ErrPollingAbandoned,
	}}
}

func (p *Poller) unsubscribe(taskID uuid.UUID, sub *pollSub) {
	sub.cancel()
	p.mu.Lock()
	// Only remove our own registration; Watch may have replaced it.
	if current, ok := p.subs[taskID]; ok && current == sub {
		delete(p.subs, taskID)
	}
	p.mu.Unlock()
}
