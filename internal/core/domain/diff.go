package domain

// ChatDiff is the computed difference for one source chat against its
// counterpart in the comparison archive: the messages and participants
// present in the source but absent from the target. It is a pure
// function of its two input snapshots; recomputing from identical
// snapshots yields an identical value.
type ChatDiff struct {
	// Chat is the source conversation the diff was computed for.
	Chat Chat

	// Target is the matched conversation in the comparison archive,
	// nil when the chat exists only in the source.
	Target *Chat

	// Messages are present in the source but not in the target,
	// ordered by timestamp with the durable ID breaking ties.
	Messages []Message

	// Participants are present in the source but not in the target.
	Participants []Participant
}

// Empty reports whether the diff contributes nothing new.
func (d ChatDiff) Empty() bool {
	return len(d.Messages) == 0 && len(d.Participants) == 0
}

// NewChat reports whether the source chat has no counterpart in the
// comparison archive at all.
func (d ChatDiff) NewChat() bool {
	return d.Target == nil
}

// SourceCounts accumulates what one source archive contributed to a
// diff or merge run.
type SourceCounts struct {
	Chats        int
	Messages     int
	Participants int
}

// Counts aggregates per-source contributions, keyed by source label.
// It is owned by the orchestrator and updated only from the single
// goroutine consuming that source's postbacks.
type Counts map[string]*SourceCounts

// Add records one non-empty chat diff for a source.
func (c Counts) Add(source string, diff ChatDiff) {
	sc, ok := c[source]
	if !ok {
		sc = &SourceCounts{}
		c[source] = sc
	}
	sc.Chats++
	sc.Messages += len(diff.Messages)
	sc.Participants += len(diff.Participants)
}

// Empty reports whether no source contributed anything.
func (c Counts) Empty() bool {
	for _, sc := range c {
		if sc.Chats > 0 || sc.Messages > 0 || sc.Participants > 0 {
			return false
		}
	}
	return true
}
