package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/archivum-labs/talkvault-cli/internal/core/domain"
	"github.com/archivum-labs/talkvault-cli/internal/core/ports/driven"
)

// Ensure Archive implements the interfaces.
var (
	_ driven.Archive         = (*Archive)(nil)
	_ driven.WritableArchive = (*Archive)(nil)
)

// Archive is a chat archive stored in a single SQLite file.
type Archive struct {
	db       *sql.DB
	path     string
	writable bool
}

// Open opens an existing archive file read-only. A path that does not
// point to a regular file yields domain.ErrSourceUnavailable.
func Open(path string) (*Archive, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: %s", domain.ErrSourceUnavailable, path)
	}

	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrSourceUnavailable, path, err)
	}

	return &Archive{db: db, path: path}, nil
}

// OpenWritable opens an archive file for merging, creating the file
// and its schema when missing.
func OpenWritable(path string) (*Archive, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Archive{db: db, path: path, writable: true}, nil
}

// Close closes the database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}

// Path returns the archive file path.
func (a *Archive) Path() string {
	return a.path
}

// Label returns the archive's display name, the file's base name.
func (a *Archive) Label() string {
	return filepath.Base(a.path)
}

// Conversations lists chats matching the filter, participants loaded,
// in a stable creation order.
func (a *Archive) Conversations(ctx context.Context, filter driven.ChatFilter) ([]domain.Chat, error) {
	query := `
		SELECT id, identity, title, message_count, last_activity
		FROM conversations
	`
	var clauses []string
	var args []any
	if len(filter.Chats) > 0 {
		// Any of the given titles admits the chat.
		sub := make([]string, len(filter.Chats))
		for i, want := range filter.Chats {
			sub[i] = "instr(lower(title), ?) > 0"
			args = append(args, strings.ToLower(want))
		}
		clauses = append(clauses, "("+strings.Join(sub, " OR ")+")")
	}
	if len(filter.Authors) > 0 {
		sub := make([]string, len(filter.Authors))
		for i, want := range filter.Authors {
			sub[i] = "instr(lower(p.identity), ?) > 0 OR instr(lower(p.display_name), ?) > 0"
			args = append(args, strings.ToLower(want), strings.ToLower(want))
		}
		clauses = append(clauses, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM participants p WHERE p.convo_id = conversations.id AND (%s))",
			strings.Join(sub, " OR ")))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id"

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	var chats []domain.Chat //nolint:prealloc // size unknown from query
	for rows.Next() {
		var chat domain.Chat
		var lastActivity sql.NullTime
		if err := rows.Scan(&chat.ID, &chat.Identity, &chat.Title,
			&chat.MessageCount, &lastActivity); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		if lastActivity.Valid {
			chat.LastActivity = lastActivity.Time
		}
		chats = append(chats, chat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversations: %w", err)
	}

	for i := range chats {
		chats[i].Participants, err = a.Participants(ctx, chats[i])
		if err != nil {
			return nil, err
		}
	}
	return chats, nil
}

// LoadStats recomputes message counts and last activity from the
// message rows, in place. Stored statistics can be stale in archives
// written by other tools.
func (a *Archive) LoadStats(ctx context.Context, chats []domain.Chat) error {
	stmt, err := a.db.PrepareContext(ctx, `
		SELECT COUNT(*), MAX(timestamp) FROM messages WHERE convo_id = ?
	`)
	if err != nil {
		return fmt.Errorf("preparing stats query: %w", err)
	}
	defer stmt.Close()

	for i := range chats {
		var lastActivity sql.NullTime
		if err := stmt.QueryRowContext(ctx, chats[i].ID).
			Scan(&chats[i].MessageCount, &lastActivity); err != nil {
			return fmt.Errorf("loading stats for %q: %w", chats[i].Title, err)
		}
		if lastActivity.Valid {
			chats[i].LastActivity = lastActivity.Time
		}
	}
	return nil
}

// Messages opens a cursor over the chat's messages ordered by
// timestamp, ties broken by the durable identifier.
func (a *Archive) Messages(ctx context.Context, chat domain.Chat) (driven.MessageCursor, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, author, author_name, timestamp, body, type, edited_at, removed
		FROM messages WHERE convo_id = ?
		ORDER BY timestamp, id
	`, chat.ID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	return &messageCursor{rows: rows, chatID: chat.ID}, nil
}

// Participants lists the chat's participants.
func (a *Archive) Participants(ctx context.Context, chat domain.Chat) ([]domain.Participant, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT identity, display_name, role
		FROM participants WHERE convo_id = ?
		ORDER BY identity
	`, chat.ID)
	if err != nil {
		return nil, fmt.Errorf("querying participants: %w", err)
	}
	defer rows.Close()

	var participants []domain.Participant //nolint:prealloc // size unknown from query
	for rows.Next() {
		var p domain.Participant
		var role string
		if err := rows.Scan(&p.Identity, &p.DisplayName, &role); err != nil {
			return nil, fmt.Errorf("scanning participant: %w", err)
		}
		p.Role = domain.ParticipantRole(role)
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating participants: %w", err)
	}
	return participants, nil
}

// Contacts lists the archive's address book.
func (a *Archive) Contacts(ctx context.Context) ([]domain.Contact, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT identity, display_name, phone, email, city, country
		FROM contacts ORDER BY identity
	`)
	if err != nil {
		return nil, fmt.Errorf("querying contacts: %w", err)
	}
	defer rows.Close()

	var contacts []domain.Contact //nolint:prealloc // size unknown from query
	for rows.Next() {
		var c domain.Contact
		if err := rows.Scan(&c.Identity, &c.DisplayName, &c.Phone,
			&c.Email, &c.City, &c.Country); err != nil {
			return nil, fmt.Errorf("scanning contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating contacts: %w", err)
	}
	return contacts, nil
}

// Tables lists the archive's tables for raw row search.
func (a *Archive) Tables(ctx context.Context) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("querying tables: %w", err)
	}
	defer rows.Close()

	var tables []string //nolint:prealloc // size unknown from query
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tables: %w", err)
	}
	return tables, nil
}

// TableRows opens a cursor over every row of the named table, values
// rendered as text. Unknown tables yield domain.ErrNotFound.
func (a *Archive) TableRows(ctx context.Context, table string) (driven.RowCursor, error) {
	// The table name cannot be a placeholder; accept only names the
	// archive actually reports.
	known, err := a.Tables(ctx)
	if err != nil {
		return nil, err
	}
	found := false
	for _, name := range known {
		if name == table {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("table %s: %w", table, domain.ErrNotFound)
	}

	rows, err := a.db.QueryContext(ctx, fmt.Sprintf(`SELECT * FROM "%s"`, table))
	if err != nil {
		return nil, fmt.Errorf("querying table %s: %w", table, err)
	}
	columns, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("reading columns of %s: %w", table, err)
	}
	return &rowCursor{rows: rows, columns: columns}, nil
}

// messageCursor streams rows from an open message query.
type messageCursor struct {
	rows    *sql.Rows
	chatID  int64
	current domain.Message
	err     error
}

func (c *messageCursor) Next() bool {
	if c.err != nil || !c.rows.Next() {
		return false
	}

	var msg domain.Message
	var msgType string
	var editedAt sql.NullTime
	if err := c.rows.Scan(&msg.ID, &msg.Author, &msg.AuthorName,
		&msg.Timestamp, &msg.Body, &msgType, &editedAt, &msg.Removed); err != nil {
		c.err = fmt.Errorf("scanning message: %w", err)
		return false
	}
	msg.ChatID = c.chatID
	msg.Type = domain.MessageType(msgType)
	if editedAt.Valid {
		t := editedAt.Time
		msg.EditedAt = &t
	}
	c.current = msg
	return true
}

func (c *messageCursor) Message() domain.Message { return c.current }

func (c *messageCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Err()
}

func (c *messageCursor) Close() error { return c.rows.Close() }

// rowCursor streams rows of an arbitrary table as text values.
type rowCursor struct {
	rows    *sql.Rows
	columns []string
	current []string
	err     error
}

func (c *rowCursor) Next() bool {
	if c.err != nil || !c.rows.Next() {
		return false
	}

	raw := make([]sql.NullString, len(c.columns))
	dest := make([]any, len(c.columns))
	for i := range raw {
		dest[i] = &raw[i]
	}
	if err := c.rows.Scan(dest...); err != nil {
		c.err = fmt.Errorf("scanning row: %w", err)
		return false
	}

	values := make([]string, len(raw))
	for i, v := range raw {
		values[i] = v.String
	}
	c.current = values
	return true
}

func (c *rowCursor) Columns() []string { return c.columns }
func (c *rowCursor) Values() []string  { return c.current }

func (c *rowCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Err()
}

func (c *rowCursor) Close() error { return c.rows.Close() }
