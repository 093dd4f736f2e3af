package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/archivum-labs/talkvault-cli/internal/core/domain"
	"github.com/archivum-labs/talkvault-cli/internal/core/ports/driven"
	"github.com/archivum-labs/talkvault-cli/internal/core/ports/driving"
	"github.com/archivum-labs/talkvault-cli/internal/logger"
)

// Ensure SearchJob implements the interface.
var _ driving.Job = (*SearchJob)(nil)

// searchBatchSize is the cancellation granularity for message and raw
// table scans: the context is checked once per batch of rows.
const searchBatchSize = 200

// snippetLen caps the surrounding text carried with a match.
const snippetLen = 160

// SearchJob scans one archive against a parsed query, streaming Match
// postbacks with a running total. A query matching nothing terminates
// normally with a zero count.
type SearchJob struct {
	// Archive is the database being searched.
	Archive driven.Archive

	// Kind selects the searched space: message bodies, contacts, chat
	// titles and participants, or raw table rows.
	Kind domain.SearchKind

	// Query is the parsed search query.
	Query domain.Query
}

// Name identifies the job in logs.
func (j *SearchJob) Name() string {
	return fmt.Sprintf("search %s in %s", j.Kind, j.Archive.Label())
}

// Run executes the scan. Cancellation is honoured at chat and
// row-batch boundaries.
func (j *SearchJob) Run(ctx context.Context, emit func(domain.Postback)) error {
	logger.Debug("search %s: query %q in %s", j.Kind, j.Query.Raw, j.Archive.Label())

	switch j.Kind {
	case domain.SearchContacts:
		return j.searchContacts(ctx, emit)
	case domain.SearchChats:
		return j.searchChats(ctx, emit)
	case domain.SearchTables:
		return j.searchTables(ctx, emit)
	default:
		return j.searchMessages(ctx, emit)
	}
}

// searchMessages scans message bodies chat by chat.
func (j *SearchJob) searchMessages(ctx context.Context, emit func(domain.Postback)) error {
	chats, err := j.Archive.Conversations(ctx, driven.ChatFilter{})
	if err != nil {
		return fmt.Errorf("list chats: %w", err)
	}

	total := 0
	for _, chat := range chats {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !j.Query.MatchChat(chat) {
			continue
		}

		cursor, err := j.Archive.Messages(ctx, chat)
		if err != nil {
			return fmt.Errorf("open messages of %q: %w", chat.Title, err)
		}

		scanned := 0
		for cursor.Next() {
			scanned++
			if scanned%searchBatchSize == 0 {
				if err := ctx.Err(); err != nil {
					cursor.Close()
					return err
				}
			}

			msg := cursor.Message()
			if msg.Removed {
				continue
			}
			if !j.Query.MatchAuthor(msg.Author, msg.AuthorName) {
				continue
			}
			if !j.Query.MatchText(msg.Body) {
				continue
			}

			total++
			emit(domain.Match{
				Chat:  chat,
				Total: total,
				Text: fmt.Sprintf("[%s] %s in %q: %s",
					msg.Timestamp.Format("2006-01-02 15:04"),
					authorLabel(msg), chat.Title, snippet(msg.Body)),
			})
		}
		if err := cursor.Err(); err != nil {
			cursor.Close()
			return fmt.Errorf("scan messages of %q: %w", chat.Title, err)
		}
		if err := cursor.Close(); err != nil {
			return fmt.Errorf("close messages of %q: %w", chat.Title, err)
		}
	}

	logger.Debug("search messages: %d matches in %s", total, j.Archive.Label())
	return nil
}

// searchChats matches chat titles and participant names.
func (j *SearchJob) searchChats(ctx context.Context, emit func(domain.Postback)) error {
	chats, err := j.Archive.Conversations(ctx, driven.ChatFilter{})
	if err != nil {
		return fmt.Errorf("list chats: %w", err)
	}

	total := 0
	for _, chat := range chats {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !j.Query.MatchChat(chat) {
			continue
		}

		haystack := chat.Title
		for _, p := range chat.Participants {
			haystack += "\n" + p.Identity + "\n" + p.DisplayName
		}
		if !j.Query.MatchText(haystack) {
			continue
		}

		total++
		emit(domain.Match{
			Chat:  chat,
			Total: total,
			Text: fmt.Sprintf("Chat %q, %d participants",
				chat.Title, len(chat.Participants)),
		})
	}
	return nil
}

// searchContacts matches address book entries across all their fields.
func (j *SearchJob) searchContacts(ctx context.Context, emit func(domain.Postback)) error {
	contacts, err := j.Archive.Contacts(ctx)
	if err != nil {
		return fmt.Errorf("list contacts: %w", err)
	}

	total := 0
	for i, contact := range contacts {
		if i%searchBatchSize == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if !j.Query.MatchText(strings.Join(contact.Fields(), "\n")) {
			continue
		}

		total++
		label := contact.DisplayName
		if label == "" {
			label = contact.Identity
		}
		emit(domain.Match{
			Total: total,
			Text:  fmt.Sprintf("Contact %s (%s)", label, contact.Identity),
		})
	}
	return nil
}

// searchTables matches raw rows of every table, one row at a time, so
// arbitrary archive contents stay reachable without schema knowledge.
func (j *SearchJob) searchTables(ctx context.Context, emit func(domain.Postback)) error {
	tables, err := j.Archive.Tables(ctx)
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}

	total := 0
	for _, table := range tables {
		if err := ctx.Err(); err != nil {
			return err
		}

		cursor, err := j.Archive.TableRows(ctx, table)
		if err != nil {
			return fmt.Errorf("open table %s: %w", table, err)
		}

		scanned := 0
		for cursor.Next() {
			scanned++
			if scanned%searchBatchSize == 0 {
				if err := ctx.Err(); err != nil {
					cursor.Close()
					return err
				}
			}

			values := cursor.Values()
			if !j.Query.MatchText(strings.Join(values, "\n")) {
				continue
			}

			total++
			emit(domain.Match{
				Total: total,
				Text: fmt.Sprintf("%s: %s", table,
					snippet(rowSummary(cursor.Columns(), values))),
			})
		}
		if err := cursor.Err(); err != nil {
			cursor.Close()
			return fmt.Errorf("scan table %s: %w", table, err)
		}
		if err := cursor.Close(); err != nil {
			return fmt.Errorf("close table %s: %w", table, err)
		}
	}
	return nil
}

// authorLabel prefers the display name, falling back to the handle.
func authorLabel(msg domain.Message) string {
	if msg.AuthorName != "" {
		return msg.AuthorName
	}
	return msg.Author
}

// snippet truncates body text to a displayable length.
func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > snippetLen {
		return text[:snippetLen] + "..."
	}
	return text
}

// rowSummary renders a row as column=value pairs, skipping empties.
func rowSummary(columns, values []string) string {
	parts := make([]string, 0, len(values))
	for i, v := range values {
		if v == "" {
			continue
		}
		name := ""
		if i < len(columns) {
			name = columns[i] + "="
		}
		parts = append(parts, name+v)
	}
	return strings.Join(parts, " ")
}
