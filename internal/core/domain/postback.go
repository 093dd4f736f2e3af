package domain

// Postback is one asynchronous message emitted by a worker to its
// consumer. It is a sealed union: consumers type-switch over the
// concrete kinds below and the compiler keeps the switch exhaustive
// when a kind is added.
type Postback interface {
	postback()
}

// Progress reports the worker's position within the job. Count may
// change mid-stream once the true total is known.
type Progress struct {
	Index int
	Count int
}

// ChatDiffResult carries one chat's computed difference.
type ChatDiffResult struct {
	Diff ChatDiff
}

// Match carries one search hit, rendered ready for display, together
// with the running total of matches for the job.
type Match struct {
	Text  string
	Chat  Chat
	Total int
}

// Output is a human-readable line for the consumer's log.
type Output struct {
	Text string
}

// JobError reports that the job failed for the current source. Short
// is a truncated form for compact display; Err carries the cause.
type JobError struct {
	Err   error
	Short string
}

// Done is the terminal postback of a normally completed job.
type Done struct{}

// Stopped is the terminal postback of a cancelled job.
type Stopped struct{}

func (Progress) postback()       {}
func (ChatDiffResult) postback() {}
func (Match) postback()          {}
func (Output) postback()         {}
func (JobError) postback()       {}
func (Done) postback()           {}
func (Stopped) postback()        {}
