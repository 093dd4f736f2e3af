package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChatKeyDefault(t *testing.T) {
	withIdentity := Chat{Identity: "19:room", Title: "Room"}
	assert.Equal(t, "id:19:room", ChatKeyDefault(withIdentity))

	withParticipants := Chat{
		Title: "Room",
		Participants: []Participant{
			{Identity: "Bob"},
			{Identity: "alice"},
		},
	}
	assert.Equal(t, "parts:alice,bob", ChatKeyDefault(withParticipants))

	titleOnly := Chat{Title: "Just A Title"}
	assert.Equal(t, "title:just a title", ChatKeyDefault(titleOnly))
}

func TestChatKeyDefaultOrderInsensitive(t *testing.T) {
	a := Chat{Participants: []Participant{{Identity: "x"}, {Identity: "y"}}}
	b := Chat{Participants: []Participant{{Identity: "y"}, {Identity: "x"}}}
	assert.Equal(t, ChatKeyDefault(a), ChatKeyDefault(b))
}

func TestChatKeyByTitle(t *testing.T) {
	a := Chat{Identity: "one", Title: "Same"}
	b := Chat{Identity: "two", Title: "same"}
	assert.Equal(t, ChatKeyByTitle(a), ChatKeyByTitle(b))
	assert.NotEqual(t, ChatKeyDefault(a), ChatKeyDefault(b))
}

func TestMessageBefore(t *testing.T) {
	base := time.Date(2014, 5, 1, 12, 0, 0, 0, time.UTC)
	earlier := Message{ID: 9, Timestamp: base}
	later := Message{ID: 1, Timestamp: base.Add(time.Second)}
	assert.True(t, earlier.Before(later))
	assert.False(t, later.Before(earlier))

	// Equal timestamps fall back to the durable ID.
	tied := Message{ID: 10, Timestamp: base}
	assert.True(t, earlier.Before(tied))
	assert.False(t, tied.Before(earlier))
}

func TestCounts(t *testing.T) {
	counts := make(Counts)
	assert.True(t, counts.Empty())

	counts.Add("a.db", ChatDiff{Messages: make([]Message, 3)})
	counts.Add("a.db", ChatDiff{Participants: make([]Participant, 1)})
	counts.Add("b.db", ChatDiff{})

	assert.False(t, counts.Empty())
	assert.Equal(t, 2, counts["a.db"].Chats)
	assert.Equal(t, 3, counts["a.db"].Messages)
	assert.Equal(t, 1, counts["a.db"].Participants)
	assert.Equal(t, 1, counts["b.db"].Chats)
}
