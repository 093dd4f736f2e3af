package driving

import (
	"context"

	"github.com/archivum-labs/talkvault-cli/internal/core/domain"
)

// Job is a unit of asynchronous work bound to one or more archives and
// a set of parameters. A job is consumed exactly once by a worker and
// discarded after the terminal postback.
type Job interface {
	// Name identifies the job in logs.
	Name() string

	// Run executes the job, emitting postbacks through emit. Run must
	// return promptly once ctx is cancelled, checking at chat or
	// message-batch boundaries; a chat already being processed is
	// allowed to finish. Run never emits terminal postbacks itself;
	// the worker owns done, stopped and error.
	Run(ctx context.Context, emit func(domain.Postback)) error
}

// WorkerState is the lifecycle state of a worker.
type WorkerState int32

// Worker states. Terminal states require a new worker instance; a
// worker is never reused.
const (
	WorkerIdle WorkerState = iota
	WorkerRunning
	WorkerCompleted
	WorkerFailed
	WorkerStopped
)

// String returns the state name for logs.
func (s WorkerState) String() string {
	switch s {
	case WorkerIdle:
		return "idle"
	case WorkerRunning:
		return "running"
	case WorkerCompleted:
		return "completed"
	case WorkerFailed:
		return "failed"
	case WorkerStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Worker owns one background execution context for one job. Postbacks
// are delivered in emission order over an unbounded channel; delivery
// never blocks the worker.
type Worker interface {
	// Submit starts the job. Returns domain.ErrWorkerBusy while a job
	// is active and domain.ErrWorkerDone after a terminal state.
	Submit(job Job) error

	// Cancel requests cooperative cancellation. Idempotent; safe to
	// call in any state. The worker still emits exactly one terminal
	// stopped postback, within one unit of processing granularity.
	Cancel()

	// Wait blocks until the worker reaches a terminal state. Returns
	// immediately when no job was ever submitted.
	Wait()

	// Postbacks returns the delivery channel. It is closed after the
	// terminal postback has been delivered.
	Postbacks() <-chan domain.Postback

	// State returns the current lifecycle state.
	State() WorkerState
}
