package domain

import (
	"sort"
	"strings"
	"time"
)

// Chat is a named, participant-scoped message thread inside one archive.
// Once loaded for a diff or merge pass it is treated as an immutable
// snapshot; consumers must not mutate it while a job is running.
type Chat struct {
	// ID is the conversation row ID within its archive.
	ID int64

	// Identity is the stored remote identifier, empty when the archive
	// predates remote identities.
	Identity string

	// Title is the human-readable chat title.
	Title string

	// Participants is the participant list, loaded with the chat.
	Participants []Participant

	// MessageCount is filled in by Archive.LoadStats.
	MessageCount int

	// LastActivity is the timestamp of the newest message, filled in
	// by Archive.LoadStats.
	LastActivity time.Time
}

// Participant is one account taking part in a chat.
type Participant struct {
	// Identity is the account handle, the participant's identity key.
	Identity string

	// DisplayName is the name shown for the account.
	DisplayName string

	// Role is the participant's role within the chat.
	Role ParticipantRole
}

// ParticipantRole marks the participant's standing in a chat.
type ParticipantRole string

// Participant roles.
const (
	RoleMember  ParticipantRole = "member"
	RoleAdmin   ParticipantRole = "admin"
	RoleCreator ParticipantRole = "creator"
)

// ChatKeyFunc derives the stable key used to pair a conversation with
// its counterpart in another archive. The pairing rule is pluggable:
// archives from different exporters disagree on which attribute is
// stable, so diff and merge jobs carry the strategy explicitly.
type ChatKeyFunc func(Chat) string

// ChatKeyDefault keys on the stored remote identity when present,
// falling back to the sorted participant set, then the title.
func ChatKeyDefault(c Chat) string {
	if c.Identity != "" {
		return "id:" + c.Identity
	}
	if key := participantKey(c); key != "" {
		return key
	}
	return ChatKeyByTitle(c)
}

// ChatKeyByTitle pairs chats by case-folded title alone.
func ChatKeyByTitle(c Chat) string {
	return "title:" + strings.ToLower(c.Title)
}

// ChatKeyByParticipants pairs chats by their participant set,
// falling back to the title for chats without participants.
func ChatKeyByParticipants(c Chat) string {
	if key := participantKey(c); key != "" {
		return key
	}
	return ChatKeyByTitle(c)
}

func participantKey(c Chat) string {
	if len(c.Participants) == 0 {
		return ""
	}
	handles := make([]string, len(c.Participants))
	for i, p := range c.Participants {
		handles[i] = strings.ToLower(p.Identity)
	}
	sort.Strings(handles)
	return "parts:" + strings.Join(handles, ",")
}
