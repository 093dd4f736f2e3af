package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/archivum-labs/talkvault-cli/internal/core/domain"
)

// InsertChat creates a conversation and assigns its row ID.
func (a *Archive) InsertChat(ctx context.Context, chat *domain.Chat) error {
	if !a.writable {
		return domain.ErrReadOnly
	}

	result, err := a.db.ExecContext(ctx, `
		INSERT INTO conversations (identity, title) VALUES (?, ?)
	`, chat.Identity, chat.Title)
	if err != nil {
		return fmt.Errorf("inserting conversation: %w", err)
	}

	chat.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading conversation id: %w", err)
	}
	return nil
}

// InsertMessage appends a message under its original durable
// identifier and timestamp.
func (a *Archive) InsertMessage(ctx context.Context, chat domain.Chat, msg domain.Message) error {
	if !a.writable {
		return domain.ErrReadOnly
	}

	var editedAt sql.NullTime
	if msg.EditedAt != nil {
		editedAt = sql.NullTime{Time: msg.EditedAt.UTC(), Valid: true}
	}

	_, err := a.db.ExecContext(ctx, `
		INSERT INTO messages (id, convo_id, author, author_name, timestamp, body, type, edited_at, removed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, msg.ID, chat.ID, msg.Author, msg.AuthorName, msg.Timestamp.UTC(),
		msg.Body, string(msg.Type), editedAt, msg.Removed)
	if err != nil {
		return fmt.Errorf("inserting message %d: %w", msg.ID, err)
	}
	return nil
}

// InsertParticipant adds a participant to the chat. Re-adding an
// existing handle is a no-op.
func (a *Archive) InsertParticipant(ctx context.Context, chat domain.Chat, p domain.Participant) error {
	if !a.writable {
		return domain.ErrReadOnly
	}

	_, err := a.db.ExecContext(ctx, `
		INSERT INTO participants (convo_id, identity, display_name, role)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(convo_id, identity) DO NOTHING
	`, chat.ID, p.Identity, p.DisplayName, string(p.Role))
	if err != nil {
		return fmt.Errorf("inserting participant %s: %w", p.Identity, err)
	}
	return nil
}

// UpdateStats refreshes the stored statistics on the conversation row
// from its message rows.
func (a *Archive) UpdateStats(ctx context.Context, chat domain.Chat) error {
	if !a.writable {
		return domain.ErrReadOnly
	}

	_, err := a.db.ExecContext(ctx, `
		UPDATE conversations SET
			message_count = (SELECT COUNT(*) FROM messages WHERE convo_id = conversations.id),
			last_activity = (SELECT MAX(timestamp) FROM messages WHERE convo_id = conversations.id)
		WHERE id = ?
	`, chat.ID)
	if err != nil {
		return fmt.Errorf("updating stats for %q: %w", chat.Title, err)
	}
	return nil
}

// Clone copies an archive file byte for byte, the starting point of a
// merge output. The destination must not already exist.
func Clone(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrSourceUnavailable, src)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("copying %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return fmt.Errorf("closing %s: %w", dst, err)
	}
	return nil
}
