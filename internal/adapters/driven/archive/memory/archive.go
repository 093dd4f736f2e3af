// Package memory provides an in-memory Archive implementation used by
// service tests and the merge idempotence checks. It mirrors the
// SQLite adapter's visible behaviour: stable listing order, lazy
// message cursors ordered by timestamp then ID, and append-only
// writes.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/archivum-labs/talkvault-cli/internal/core/domain"
	"github.com/archivum-labs/talkvault-cli/internal/core/ports/driven"
)

// Ensure Archive implements the interfaces.
var (
	_ driven.Archive         = (*Archive)(nil)
	_ driven.WritableArchive = (*Archive)(nil)
)

// Archive is an in-memory chat archive.
type Archive struct {
	mu    sync.RWMutex
	label string

	chats        []domain.Chat // listing order
	messages     map[int64][]domain.Message
	participants map[int64][]domain.Participant
	contacts     []domain.Contact
	nextChatID   int64

	// FailWrites makes every write return an error, for exercising the
	// merge failure policy.
	FailWrites bool
}

// NewArchive creates an empty archive with the given display label.
func NewArchive(label string) *Archive {
	return &Archive{
		label:        label,
		messages:     make(map[int64][]domain.Message),
		participants: make(map[int64][]domain.Participant),
		nextChatID:   1,
	}
}

// Path returns an empty path: memory archives have no file.
func (a *Archive) Path() string { return "" }

// Label returns the archive's display name.
func (a *Archive) Label() string { return a.label }

// Close is a no-op.
func (a *Archive) Close() error { return nil }

// AddChat seeds a chat with messages, for test setup. Returns the
// assigned chat ID.
func (a *Archive) AddChat(chat domain.Chat, msgs ...domain.Message) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	chat.ID = a.nextChatID
	a.nextChatID++
	a.chats = append(a.chats, chat)
	a.participants[chat.ID] = append([]domain.Participant(nil), chat.Participants...)
	for _, m := range msgs {
		m.ChatID = chat.ID
		a.messages[chat.ID] = append(a.messages[chat.ID], m)
	}
	a.sortMessages(chat.ID)
	return chat.ID
}

// AddContact seeds an address book entry.
func (a *Archive) AddContact(c domain.Contact) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.contacts = append(a.contacts, c)
}

// Conversations lists chats in insertion order.
func (a *Archive) Conversations(_ context.Context, filter driven.ChatFilter) ([]domain.Chat, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var chats []domain.Chat
	for _, c := range a.chats {
		if !matchFilter(c, a.participants[c.ID], filter) {
			continue
		}
		c.Participants = append([]domain.Participant(nil), a.participants[c.ID]...)
		chats = append(chats, c)
	}
	return chats, nil
}

// LoadStats fills message counts and last activity in place.
func (a *Archive) LoadStats(_ context.Context, chats []domain.Chat) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for i := range chats {
		msgs := a.messages[chats[i].ID]
		chats[i].MessageCount = len(msgs)
		if len(msgs) > 0 {
			chats[i].LastActivity = msgs[len(msgs)-1].Timestamp
		}
	}
	return nil
}

// Messages opens a cursor over the chat's messages.
func (a *Archive) Messages(_ context.Context, chat domain.Chat) (driven.MessageCursor, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	msgs := append([]domain.Message(nil), a.messages[chat.ID]...)
	return &messageCursor{msgs: msgs, pos: -1}, nil
}

// Participants lists the chat's participants.
func (a *Archive) Participants(_ context.Context, chat domain.Chat) ([]domain.Participant, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]domain.Participant(nil), a.participants[chat.ID]...), nil
}

// Contacts lists the address book.
func (a *Archive) Contacts(_ context.Context) ([]domain.Contact, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]domain.Contact(nil), a.contacts...), nil
}

// Tables exposes the archive's row spaces for raw table search.
func (a *Archive) Tables(_ context.Context) ([]string, error) {
	return []string{"conversations", "messages", "contacts"}, nil
}

// TableRows renders a table's rows as text.
func (a *Archive) TableRows(_ context.Context, table string) (driven.RowCursor, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	switch table {
	case "conversations":
		rows := make([][]string, len(a.chats))
		for i, c := range a.chats {
			rows[i] = []string{fmt.Sprint(c.ID), c.Identity, c.Title}
		}
		return &rowCursor{columns: []string{"id", "identity", "title"}, rows: rows, pos: -1}, nil
	case "messages":
		var rows [][]string
		for _, c := range a.chats {
			for _, m := range a.messages[c.ID] {
				rows = append(rows, []string{fmt.Sprint(m.ID), m.Author, m.Body})
			}
		}
		return &rowCursor{columns: []string{"id", "author", "body"}, rows: rows, pos: -1}, nil
	case "contacts":
		rows := make([][]string, len(a.contacts))
		for i, c := range a.contacts {
			rows[i] = []string{c.Identity, c.DisplayName, c.Email}
		}
		return &rowCursor{columns: []string{"identity", "display_name", "email"}, rows: rows, pos: -1}, nil
	default:
		return nil, fmt.Errorf("table %s: %w", table, domain.ErrNotFound)
	}
}

// InsertChat creates a conversation and assigns its ID.
func (a *Archive) InsertChat(_ context.Context, chat *domain.Chat) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.FailWrites {
		return fmt.Errorf("insert chat: simulated write failure")
	}

	chat.ID = a.nextChatID
	a.nextChatID++
	a.chats = append(a.chats, *chat)
	return nil
}

// InsertMessage appends a message, preserving its durable ID.
func (a *Archive) InsertMessage(_ context.Context, chat domain.Chat, msg domain.Message) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.FailWrites {
		return fmt.Errorf("insert message: simulated write failure")
	}

	for _, existing := range a.messages[chat.ID] {
		if existing.ID == msg.ID {
			return fmt.Errorf("message %d already present in chat %d", msg.ID, chat.ID)
		}
	}
	msg.ChatID = chat.ID
	a.messages[chat.ID] = append(a.messages[chat.ID], msg)
	a.sortMessages(chat.ID)
	return nil
}

// InsertParticipant adds a participant to the chat.
func (a *Archive) InsertParticipant(_ context.Context, chat domain.Chat, p domain.Participant) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.FailWrites {
		return fmt.Errorf("insert participant: simulated write failure")
	}

	a.participants[chat.ID] = append(a.participants[chat.ID], p)
	return nil
}

// UpdateStats refreshes the stored statistics on the chat row.
func (a *Archive) UpdateStats(_ context.Context, chat domain.Chat) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.FailWrites {
		return fmt.Errorf("update stats: simulated write failure")
	}

	for i := range a.chats {
		if a.chats[i].ID == chat.ID {
			msgs := a.messages[chat.ID]
			a.chats[i].MessageCount = len(msgs)
			if len(msgs) > 0 {
				a.chats[i].LastActivity = msgs[len(msgs)-1].Timestamp
			}
		}
	}
	return nil
}

func (a *Archive) sortMessages(chatID int64) {
	msgs := a.messages[chatID]
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].Before(msgs[j]) })
}

func matchFilter(c domain.Chat, participants []domain.Participant, filter driven.ChatFilter) bool {
	if len(filter.Chats) > 0 {
		matched := false
		for _, want := range filter.Chats {
			if strings.Contains(strings.ToLower(c.Title), strings.ToLower(want)) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if len(filter.Authors) > 0 {
		for _, want := range filter.Authors {
			for _, p := range participants {
				if strings.Contains(strings.ToLower(p.Identity), strings.ToLower(want)) ||
					strings.Contains(strings.ToLower(p.DisplayName), strings.ToLower(want)) {
					return true
				}
			}
		}
		return false
	}
	return true
}

type messageCursor struct {
	msgs []domain.Message
	pos  int
}

func (c *messageCursor) Next() bool {
	c.pos++
	return c.pos < len(c.msgs)
}

func (c *messageCursor) Message() domain.Message { return c.msgs[c.pos] }
func (c *messageCursor) Err() error              { return nil }
func (c *messageCursor) Close() error            { return nil }

type rowCursor struct {
	columns []string
	rows    [][]string
	pos     int
}

func (c *rowCursor) Next() bool {
	c.pos++
	return c.pos < len(c.rows)
}

func (c *rowCursor) Columns() []string { return c.columns }
func (c *rowCursor) Values() []string  { return c.rows[c.pos] }
func (c *rowCursor) Err() error        { return nil }
func (c *rowCursor) Close() error      { return nil }
