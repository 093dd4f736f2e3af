package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/archivum-labs/talkvault-cli/internal/core/domain"
	"github.com/archivum-labs/talkvault-cli/internal/core/ports/driving"
	"github.com/archivum-labs/talkvault-cli/internal/logger"
)

// Ensure Worker implements the interface.
var _ driving.Worker = (*Worker)(nil)

// shortErrorLen caps the compact form of an error postback.
const shortErrorLen = 120

// Worker runs one job on a dedicated goroutine and streams postbacks
// to its consumer through an unbounded queue. A worker accepts exactly
// one job over its lifetime; terminal states require a new instance.
type Worker struct {
	id    string
	queue *postbackQueue
	state atomic.Int32

	mu     sync.Mutex
	cancel context.CancelFunc

	done      chan struct{}
	submitted atomic.Bool
}

// NewWorker creates an idle worker.
func NewWorker() *Worker {
	return &Worker{
		id:    uuid.NewString(),
		queue: newPostbackQueue(),
		done:  make(chan struct{}),
	}
}

// ID returns the worker's unique identifier.
func (w *Worker) ID() string {
	return w.id
}

// Submit starts the job on the worker's background goroutine.
func (w *Worker) Submit(job driving.Job) error {
	if !w.state.CompareAndSwap(int32(driving.WorkerIdle), int32(driving.WorkerRunning)) {
		if driving.WorkerState(w.state.Load()) == driving.WorkerRunning {
			return fmt.Errorf("submit %s: %w", job.Name(), domain.ErrWorkerBusy)
		}
		return fmt.Errorf("submit %s: %w", job.Name(), domain.ErrWorkerDone)
	}
	w.submitted.Store(true)

	ctx, cancel := context.WithCancel(context.Background())
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	logger.Debug("worker %s: starting job %s", w.id, job.Name())
	go w.run(ctx, job)
	return nil
}

// Cancel requests cooperative cancellation. Idempotent.
func (w *Worker) Cancel() {
	w.mu.Lock()
	cancel := w.cancel
	w.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the job reaches a terminal state. A worker that
// never received a job has nothing to wait for.
func (w *Worker) Wait() {
	if !w.submitted.Load() {
		return
	}
	<-w.done
}

// Postbacks returns the delivery channel, closed after the terminal
// postback.
func (w *Worker) Postbacks() <-chan domain.Postback {
	return w.queue.Channel()
}

// State returns the worker's lifecycle state.
func (w *Worker) State() driving.WorkerState {
	return driving.WorkerState(w.state.Load())
}

// run executes the job and emits exactly one terminal postback.
func (w *Worker) run(ctx context.Context, job driving.Job) {
	defer close(w.done)

	err := w.runJob(ctx, job)

	switch {
	case ctx.Err() != nil:
		// Cancellation wins even when the job surfaced the context
		// error wrapped in its own.
		w.state.Store(int32(driving.WorkerStopped))
		logger.Debug("worker %s: job %s stopped", w.id, job.Name())
		w.queue.Push(domain.Stopped{})
	case err != nil:
		w.state.Store(int32(driving.WorkerFailed))
		logger.Debug("worker %s: job %s failed: %v", w.id, job.Name(), err)
		w.queue.Push(domain.JobError{Err: err, Short: shortError(err)})
	default:
		w.state.Store(int32(driving.WorkerCompleted))
		logger.Debug("worker %s: job %s completed", w.id, job.Name())
		w.queue.Push(domain.Done{})
	}
	w.queue.Close()
}

// runJob isolates the job execution so a panic inside an engine
// surfaces as a job failure instead of killing the process.
func (w *Worker) runJob(ctx context.Context, job driving.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name(), r)
		}
	}()
	return job.Run(ctx, w.queue.Push)
}

// shortError renders the compact form carried by error postbacks.
func shortError(err error) string {
	msg := err.Error()
	if len(msg) > shortErrorLen {
		return msg[:shortErrorLen] + "..."
	}
	return msg
}
