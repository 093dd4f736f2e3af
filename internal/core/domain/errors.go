package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrWorkerBusy indicates a job was submitted to a worker that is
	// already running one. This is a programming error in the caller.
	ErrWorkerBusy = errors.New("worker busy")

	// ErrWorkerDone indicates a job was submitted to a worker that has
	// already reached a terminal state. Workers are not reused.
	ErrWorkerDone = errors.New("worker already terminated")

	// ErrSourceUnavailable indicates an archive file cannot be opened
	// or read. Fatal to that source only; the batch continues.
	ErrSourceUnavailable = errors.New("source database unavailable")

	// ErrMergeWrite indicates an I/O failure against the merge output.
	// Aborts the current source's remaining chats, preserves prior writes.
	ErrMergeWrite = errors.New("merge write failure")

	// ErrSelfCompare indicates both sides of a diff resolve to the
	// same file.
	ErrSelfCompare = errors.New("cannot compare a database with itself")

	// ErrReadOnly indicates a write was attempted on a read-only archive.
	ErrReadOnly = errors.New("archive is read-only")
)
