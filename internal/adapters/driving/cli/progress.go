package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/archivum-labs/talkvault-cli/internal/core/services"
)

// progressBarWidth is the bar's width when the terminal size is
// unknown.
const progressBarWidth = 30

// progressBar renders an in-place ASCII progress bar on a terminal.
// When the writer is not a terminal it stays silent, so piped output
// carries results only.
type progressBar struct {
	w       io.Writer
	tracker services.ProgressTracker
	enabled bool
	width   int
	drawn   bool
}

// newProgressBar creates a bar writing to w, typically stderr.
func newProgressBar(w io.Writer) *progressBar {
	bar := &progressBar{w: w, width: progressBarWidth}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bar.enabled = true
		if cols, _, err := term.GetSize(int(f.Fd())); err == nil && cols > 40 {
			bar.width = cols / 3
		}
	}
	return bar
}

// Update records progress and redraws.
func (b *progressBar) Update(index, count int) {
	b.tracker.Update(index, count)
	b.draw()
}

// Println clears the bar, prints the line, then redraws, so result
// lines and the bar share the terminal cleanly.
func (b *progressBar) Println(text string) {
	b.clear()
	fmt.Fprintln(b.w, text)
	b.draw()
}

// Finish clears the bar from the screen.
func (b *progressBar) Finish() {
	b.clear()
}

func (b *progressBar) draw() {
	if !b.enabled {
		return
	}
	index, count, percent := b.tracker.Snapshot()
	filled := b.width * percent / 100
	fmt.Fprintf(b.w, "\r[%s%s] %d/%d (%d%%)",
		strings.Repeat("#", filled), strings.Repeat("-", b.width-filled),
		index, count, percent)
	b.drawn = true
}

func (b *progressBar) clear() {
	if !b.enabled || !b.drawn {
		return
	}
	// Overwrite the widest line the bar can produce.
	fmt.Fprintf(b.w, "\r%s\r", strings.Repeat(" ", b.width+30))
	b.drawn = false
}
