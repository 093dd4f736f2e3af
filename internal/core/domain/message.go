package domain

import "time"

// MessageType classifies a message row.
type MessageType string

// Message types found in chat archives.
const (
	MessageText   MessageType = "text"
	MessageCall   MessageType = "call"
	MessageFile   MessageType = "file"
	MessageSystem MessageType = "system"
)

// Message is one message row within a chat. ID is durable within its
// source archive but not globally; ordering within a chat is by
// timestamp with the ID breaking ties, which keeps enumeration
// deterministic across runs.
type Message struct {
	// ID is the durable identifier, unique within the source archive.
	ID int64

	// ChatID is the owning conversation's row ID.
	ChatID int64

	// Author is the account handle of the sender.
	Author string

	// AuthorName is the sender's display name at send time.
	AuthorName string

	// Timestamp is when the message was sent.
	Timestamp time.Time

	// Body is the message text.
	Body string

	// Type classifies the message (text, call, file transfer, system).
	Type MessageType

	// EditedAt is set when the message was edited after sending.
	EditedAt *time.Time

	// Removed marks a message deleted by its author.
	Removed bool
}

// Before reports whether m orders before other within a chat:
// by timestamp, ties broken by the durable ID.
func (m Message) Before(other Message) bool {
	if !m.Timestamp.Equal(other.Timestamp) {
		return m.Timestamp.Before(other.Timestamp)
	}
	return m.ID < other.ID
}

// Contact is one address-book entry in an archive, searched by the
// contact search kind.
type Contact struct {
	Identity    string
	DisplayName string
	Phone       string
	Email       string
	City        string
	Country     string
}

// Fields returns the searchable text fields of the contact.
func (c Contact) Fields() []string {
	return []string{c.Identity, c.DisplayName, c.Phone, c.Email, c.City, c.Country}
}
