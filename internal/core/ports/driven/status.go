package driven

// StatusSink receives log lines and status text from orchestrators and
// engines. Front-ends inject their own implementation instead of the
// engine reaching for ambient global state; a buffering decorator in
// services covers the startup window before a consumer is attached.
type StatusSink interface {
	// Log appends a line to the consumer's log.
	Log(line string)

	// SetStatus replaces the consumer's transient status line.
	SetStatus(line string)
}
