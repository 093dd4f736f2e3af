// Package text renders chats as plain text files, one file per chat.
package text

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/archivum-labs/talkvault-cli/internal/core/domain"
	"github.com/archivum-labs/talkvault-cli/internal/core/ports/driven"
)

// Ensure Exporter implements the interface.
var _ driven.ChatExporter = (*Exporter)(nil)

const timestampLayout = "2006-01-02 15:04:05"

// Exporter writes each chat to <dir>/<title>.txt. Titles that collide
// after filename sanitising get a numeric suffix.
type Exporter struct {
	dir   string
	used  map[string]int
	chats int

	file *os.File
	w    *bufio.Writer
}

// NewExporter creates the output directory and an exporter into it.
func NewExporter(dir string) (*Exporter, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating export directory: %w", err)
	}
	return &Exporter{dir: dir, used: make(map[string]int)}, nil
}

// Dir returns the output directory.
func (e *Exporter) Dir() string {
	return e.dir
}

// StartChat opens the chat's file and writes its header.
func (e *Exporter) StartChat(_ context.Context, chat domain.Chat) error {
	name := e.fileName(chat)
	file, err := os.Create(filepath.Join(e.dir, name))
	if err != nil {
		return fmt.Errorf("creating %s: %w", name, err)
	}
	e.file = file
	e.w = bufio.NewWriter(file)

	fmt.Fprintf(e.w, "Chat: %s\n", chat.Title)
	if chat.Identity != "" && chat.Identity != chat.Title {
		fmt.Fprintf(e.w, "Identity: %s\n", chat.Identity)
	}
	if len(chat.Participants) > 0 {
		names := make([]string, len(chat.Participants))
		for i, p := range chat.Participants {
			names[i] = p.Identity
			if p.DisplayName != "" {
				names[i] = p.DisplayName
			}
		}
		fmt.Fprintf(e.w, "Participants: %s\n", strings.Join(names, ", "))
	}
	fmt.Fprintln(e.w)
	return nil
}

// Message writes one message line.
func (e *Exporter) Message(_ context.Context, msg domain.Message) error {
	author := msg.Author
	if msg.AuthorName != "" {
		author = msg.AuthorName
	}

	body := msg.Body
	switch {
	case msg.Removed:
		body = "<message removed>"
	case msg.EditedAt != nil:
		body += " (edited)"
	}

	_, err := fmt.Fprintf(e.w, "[%s] %s: %s\n",
		msg.Timestamp.Format(timestampLayout), author, body)
	return err
}

// FinishChat flushes and closes the chat's file.
func (e *Exporter) FinishChat(_ context.Context, chat domain.Chat) error {
	if err := e.w.Flush(); err != nil {
		e.file.Close()
		return fmt.Errorf("flushing %q: %w", chat.Title, err)
	}
	if err := e.file.Close(); err != nil {
		return fmt.Errorf("closing %q: %w", chat.Title, err)
	}
	e.file, e.w = nil, nil
	e.chats++
	return nil
}

// Close finalises the export and returns the number of chats written.
func (e *Exporter) Close() (int, error) {
	if e.file != nil {
		// An interrupted chat leaves a partial file behind; close it so
		// the caller can clean the directory up.
		e.w.Flush()
		e.file.Close()
		e.file, e.w = nil, nil
	}
	return e.chats, nil
}

// fileName sanitises the chat title into a unique file name.
func (e *Exporter) fileName(chat domain.Chat) string {
	title := chat.Title
	if title == "" {
		title = chat.Identity
	}

	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == ' ':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	name := strings.TrimSpace(b.String())
	if name == "" {
		name = "chat"
	}

	e.used[name]++
	if n := e.used[name]; n > 1 {
		return fmt.Sprintf("%s (%d).txt", name, n)
	}
	return name + ".txt"
}
