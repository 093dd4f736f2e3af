package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archivum-labs/talkvault-cli/internal/core/domain"
	"github.com/archivum-labs/talkvault-cli/internal/core/ports/driving"
)

// stubJob runs a caller-provided function.
type stubJob struct {
	name string
	run  func(ctx context.Context, emit func(domain.Postback)) error
}

func (j *stubJob) Name() string { return j.name }

func (j *stubJob) Run(ctx context.Context, emit func(domain.Postback)) error {
	return j.run(ctx, emit)
}

func collectPostbacks(w driving.Worker) []domain.Postback {
	var got []domain.Postback
	for p := range w.Postbacks() {
		got = append(got, p)
	}
	return got
}

func TestWorkerCompletesNormally(t *testing.T) {
	w := NewWorker()
	assert.Equal(t, driving.WorkerIdle, w.State())

	job := &stubJob{name: "ok", run: func(_ context.Context, emit func(domain.Postback)) error {
		emit(domain.Output{Text: "working"})
		return nil
	}}
	require.NoError(t, w.Submit(job))

	got := collectPostbacks(w)
	w.Wait()

	require.Len(t, got, 2)
	assert.Equal(t, domain.Output{Text: "working"}, got[0])
	assert.IsType(t, domain.Done{}, got[1])
	assert.Equal(t, driving.WorkerCompleted, w.State())
}

func TestWorkerRejectsSecondSubmit(t *testing.T) {
	w := NewWorker()
	started := make(chan struct{})
	release := make(chan struct{})

	job := &stubJob{name: "slow", run: func(_ context.Context, _ func(domain.Postback)) error {
		close(started)
		<-release
		return nil
	}}
	require.NoError(t, w.Submit(job))
	<-started

	err := w.Submit(&stubJob{name: "second", run: nil})
	assert.ErrorIs(t, err, domain.ErrWorkerBusy)

	close(release)
	w.Wait()

	// Terminal workers are not reused either.
	err = w.Submit(&stubJob{name: "third", run: nil})
	assert.ErrorIs(t, err, domain.ErrWorkerDone)
}

func TestWorkerFailureEmitsErrorPostback(t *testing.T) {
	w := NewWorker()
	cause := errors.New("database went away")

	job := &stubJob{name: "fail", run: func(_ context.Context, _ func(domain.Postback)) error {
		return cause
	}}
	require.NoError(t, w.Submit(job))

	got := collectPostbacks(w)
	w.Wait()

	require.Len(t, got, 1)
	jobErr, ok := got[0].(domain.JobError)
	require.True(t, ok)
	assert.ErrorIs(t, jobErr.Err, cause)
	assert.NotEmpty(t, jobErr.Short)
	assert.Equal(t, driving.WorkerFailed, w.State())
}

func TestWorkerErrorShortFormIsTruncated(t *testing.T) {
	w := NewWorker()
	long := strings.Repeat("x", 500)

	job := &stubJob{name: "fail", run: func(_ context.Context, _ func(domain.Postback)) error {
		return errors.New(long)
	}}
	require.NoError(t, w.Submit(job))

	got := collectPostbacks(w)
	jobErr := got[0].(domain.JobError)
	assert.Less(t, len(jobErr.Short), len(long))
	assert.True(t, strings.HasSuffix(jobErr.Short, "..."))
}

func TestWorkerCancelStopsAtChatBoundary(t *testing.T) {
	w := NewWorker()
	firstChat := make(chan struct{})

	// The job processes "chats", checking the context between them the
	// way the real engines do.
	job := &stubJob{name: "cancellable", run: func(ctx context.Context, emit func(domain.Postback)) error {
		for i := 0; i < 100; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			emit(domain.Progress{Index: i, Count: 100})
			if i == 0 {
				close(firstChat)
				// Hold until cancellation lands so the test is not racy.
				<-ctx.Done()
			}
		}
		return nil
	}}
	require.NoError(t, w.Submit(job))

	<-firstChat
	w.Cancel()
	w.Cancel() // idempotent

	got := collectPostbacks(w)
	w.Wait()

	// Exactly one terminal postback, and it is stopped, not an error.
	require.NotEmpty(t, got)
	assert.IsType(t, domain.Stopped{}, got[len(got)-1])
	for _, p := range got[:len(got)-1] {
		assert.IsType(t, domain.Progress{}, p)
	}
	// At most one chat boundary passed after the cancel request.
	assert.LessOrEqual(t, len(got), 3)
	assert.Equal(t, driving.WorkerStopped, w.State())
}

func TestWorkerRecoversPanics(t *testing.T) {
	w := NewWorker()

	job := &stubJob{name: "panics", run: func(_ context.Context, _ func(domain.Postback)) error {
		panic("boom")
	}}
	require.NoError(t, w.Submit(job))

	got := collectPostbacks(w)
	require.Len(t, got, 1)
	jobErr, ok := got[0].(domain.JobError)
	require.True(t, ok)
	assert.Contains(t, jobErr.Err.Error(), "boom")
	assert.Equal(t, driving.WorkerFailed, w.State())
}

func TestWorkerWaitWithoutSubmitReturns(t *testing.T) {
	w := NewWorker()
	done := make(chan struct{})
	go func() {
		w.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait blocked on a worker that never received a job")
	}
}

func TestWorkerCancelBeforeSubmitIsSafe(t *testing.T) {
	w := NewWorker()
	w.Cancel()

	job := &stubJob{name: "ok", run: func(_ context.Context, _ func(domain.Postback)) error {
		return nil
	}}
	require.NoError(t, w.Submit(job))
	got := collectPostbacks(w)
	assert.IsType(t, domain.Done{}, got[len(got)-1])
}
