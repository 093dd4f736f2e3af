package driven

import (
	"context"

	"github.com/archivum-labs/talkvault-cli/internal/core/domain"
)

// ChatFilter restricts a conversation listing. Empty slices mean no
// restriction. Names match case-insensitively as substrings.
type ChatFilter struct {
	// Chats restricts by chat title.
	Chats []string

	// Authors restricts to chats having one of these participants.
	Authors []string
}

// Archive is a read-only accessor for one chat archive file. The
// engine treats it as an opaque capability: the orchestrator opens it
// before any job referencing it is created, keeps it open for the
// job's entire duration, and closes it afterwards.
type Archive interface {
	// Path returns the archive's file path, empty for non-file archives.
	Path() string

	// Label returns a short display name for log lines.
	Label() string

	// Conversations lists the archive's chats with participants loaded,
	// in the archive's stable listing order.
	Conversations(ctx context.Context, filter ChatFilter) ([]domain.Chat, error)

	// LoadStats fills message counts and last-activity timestamps into
	// the given chats, in place.
	LoadStats(ctx context.Context, chats []domain.Chat) error

	// Messages opens a lazy cursor over one chat's messages, ordered by
	// timestamp with the durable ID breaking ties.
	Messages(ctx context.Context, chat domain.Chat) (MessageCursor, error)

	// Participants lists one chat's participants.
	Participants(ctx context.Context, chat domain.Chat) ([]domain.Participant, error)

	// Contacts lists the archive's address book.
	Contacts(ctx context.Context) ([]domain.Contact, error)

	// Tables lists the archive's table names, for raw table search.
	Tables(ctx context.Context) ([]string, error)

	// TableRows opens a lazy cursor over one table's rows.
	TableRows(ctx context.Context, table string) (RowCursor, error)

	// Close releases the archive.
	Close() error
}

// WritableArchive additionally accepts merge writes. A writable
// archive is exclusively owned by one merge invocation at a time.
type WritableArchive interface {
	Archive

	// InsertChat creates a conversation and assigns its row ID.
	InsertChat(ctx context.Context, chat *domain.Chat) error

	// InsertMessage inserts one message into the chat, preserving the
	// message's durable ID and timestamp.
	InsertMessage(ctx context.Context, chat domain.Chat, msg domain.Message) error

	// InsertParticipant adds one participant to the chat.
	InsertParticipant(ctx context.Context, chat domain.Chat, p domain.Participant) error

	// UpdateStats refreshes the chat's stored statistics after inserts.
	UpdateStats(ctx context.Context, chat domain.Chat) error
}

// MessageCursor iterates messages lazily so a chat's full history is
// never held in memory at once.
type MessageCursor interface {
	// Next advances the cursor, reporting whether a message is available.
	Next() bool

	// Message returns the current message.
	Message() domain.Message

	// Err returns the first error hit during iteration.
	Err() error

	// Close releases the cursor.
	Close() error
}

// RowCursor iterates raw table rows for table search.
type RowCursor interface {
	// Next advances the cursor, reporting whether a row is available.
	Next() bool

	// Columns returns the table's column names.
	Columns() []string

	// Values returns the current row rendered as text, one value per
	// column.
	Values() []string

	// Err returns the first error hit during iteration.
	Err() error

	// Close releases the cursor.
	Close() error
}
