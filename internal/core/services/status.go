package services

import (
	"sync"

	"github.com/archivum-labs/talkvault-cli/internal/core/ports/driven"
)

// Ensure BufferedStatus implements the interface.
var _ driven.StatusSink = (*BufferedStatus)(nil)

// BufferedStatus is a StatusSink decorator for the startup window
// before a real consumer is attached: log lines and the latest status
// are held back and replayed on Attach. After attachment it forwards
// directly.
type BufferedStatus struct {
	mu     sync.Mutex
	target driven.StatusSink
	lines  []string
	status string
	has    bool
}

// NewBufferedStatus creates an unattached buffering sink.
func NewBufferedStatus() *BufferedStatus {
	return &BufferedStatus{}
}

// Attach connects the real sink and replays everything buffered, in
// original order, the last status line last.
func (b *BufferedStatus) Attach(target driven.StatusSink) {
	b.mu.Lock()
	lines := b.lines
	status := b.status
	has := b.has
	b.lines = nil
	b.has = false
	b.target = target
	b.mu.Unlock()

	for _, line := range lines {
		target.Log(line)
	}
	if has {
		target.SetStatus(status)
	}
}

// Log buffers or forwards a log line.
func (b *BufferedStatus) Log(line string) {
	b.mu.Lock()
	target := b.target
	if target == nil {
		b.lines = append(b.lines, line)
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()
	target.Log(line)
}

// SetStatus buffers or forwards the status line. Only the most recent
// buffered status survives until attachment.
func (b *BufferedStatus) SetStatus(line string) {
	b.mu.Lock()
	target := b.target
	if target == nil {
		b.status = line
		b.has = true
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()
	target.SetStatus(line)
}
