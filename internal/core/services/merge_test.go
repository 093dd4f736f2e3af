package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archivum-labs/talkvault-cli/internal/adapters/driven/archive/memory"
	"github.com/archivum-labs/talkvault-cli/internal/core/domain"
	"github.com/archivum-labs/talkvault-cli/internal/core/ports/driven"
)

func chatMessages(t *testing.T, a driven.Archive, chat domain.Chat) []domain.Message {
	t.Helper()
	cursor, err := a.Messages(context.Background(), chat)
	require.NoError(t, err)
	defer cursor.Close()
	var msgs []domain.Message
	for cursor.Next() {
		msgs = append(msgs, cursor.Message())
	}
	require.NoError(t, cursor.Err())
	return msgs
}

func outputChat(t *testing.T, a driven.Archive, identity string) domain.Chat {
	t.Helper()
	chats, err := a.Conversations(context.Background(), driven.ChatFilter{})
	require.NoError(t, err)
	for _, c := range chats {
		if c.Identity == identity {
			return c
		}
	}
	t.Fatalf("chat %q not found in %s", identity, a.Label())
	return domain.Chat{}
}

func TestMergeJobAppendsMissingMessages(t *testing.T) {
	source := memory.NewArchive("extra.db")
	output := memory.NewArchive("base.db")
	teamChat(source, 1, 2, 3, 4, 5, 6, 7)
	teamChat(output, 1, 2, 3, 4, 5)

	postbacks := runJob(t, &MergeJob{Source: source, Output: output})

	diffs := diffsOf(postbacks)
	require.Len(t, diffs, 1)
	assert.Len(t, diffs[0].Messages, 2)

	merged := chatMessages(t, output, outputChat(t, output, "19:team"))
	require.Len(t, merged, 7)
	for i, msg := range merged {
		// Original identifiers and timestamps survive the merge.
		assert.Equal(t, int64(i+1), msg.ID)
		assert.Equal(t, diffBase.Add(time.Duration(i+1)*time.Minute), msg.Timestamp)
	}

	var outputs []string
	for _, p := range postbacks {
		if o, ok := p.(domain.Output); ok {
			outputs = append(outputs, o.Text)
		}
	}
	require.Len(t, outputs, 1)
	assert.Equal(t, `Merged 2 new messages to chat "Team".`, outputs[0])
}

func TestMergeJobIsAppendOnly(t *testing.T) {
	source := memory.NewArchive("extra.db")
	output := memory.NewArchive("base.db")
	teamChat(source, 2)
	// The output holds a message the source never saw; it must survive.
	output.AddChat(domain.Chat{Identity: "19:team", Title: "Team"},
		domain.Message{ID: 9, Timestamp: diffBase.Add(9 * time.Minute), Body: "only here"})

	runJob(t, &MergeJob{Source: source, Output: output})

	merged := chatMessages(t, output, outputChat(t, output, "19:team"))
	require.Len(t, merged, 2)
	assert.Equal(t, int64(2), merged[0].ID)
	assert.Equal(t, int64(9), merged[1].ID)
	assert.Equal(t, "only here", merged[1].Body)
}

func TestMergeJobIdempotent(t *testing.T) {
	source := memory.NewArchive("extra.db")
	output := memory.NewArchive("base.db")
	teamChat(source, 1, 2, 3)

	first := runJob(t, &MergeJob{Source: source, Output: output})
	require.Len(t, diffsOf(first), 1)

	// A second pass finds nothing left to contribute.
	second := runJob(t, &MergeJob{Source: source, Output: output})
	assert.Empty(t, diffsOf(second))
	require.Len(t, chatMessages(t, output, outputChat(t, output, "19:team")), 3)
}

func TestMergeJobCreatesNewChat(t *testing.T) {
	source := memory.NewArchive("extra.db")
	output := memory.NewArchive("base.db")
	teamChat(source, 1, 2)

	runJob(t, &MergeJob{Source: source, Output: output})

	chat := outputChat(t, output, "19:team")
	assert.Equal(t, "Team", chat.Title)
	assert.Len(t, chatMessages(t, output, chat), 2)

	parts, err := output.Participants(context.Background(), chat)
	require.NoError(t, err)
	assert.Len(t, parts, 2)
}

func TestMergeJobWriteFailurePreservesEarlierWrites(t *testing.T) {
	source := memory.NewArchive("extra.db")
	output := memory.NewArchive("base.db")
	teamChat(source, 1, 2)
	source.AddChat(domain.Chat{Identity: "19:second", Title: "Second"},
		domain.Message{ID: 1, Timestamp: diffBase})

	// Fail after the first chat has landed.
	job := &MergeJob{Source: source, Output: output}
	var seen int
	err := job.Run(context.Background(), func(p domain.Postback) {
		if _, ok := p.(domain.ChatDiffResult); ok {
			seen++
			output.FailWrites = true
		}
	})
	require.ErrorIs(t, err, domain.ErrMergeWrite)
	require.Equal(t, 1, seen)

	// The chat merged before the failure stays merged.
	assert.Len(t, chatMessages(t, output, outputChat(t, output, "19:team")), 2)
}

func TestMergeJobCancelledBetweenChats(t *testing.T) {
	source := memory.NewArchive("extra.db")
	output := memory.NewArchive("base.db")
	teamChat(source, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := (&MergeJob{Source: source, Output: output}).Run(ctx, func(domain.Postback) {})
	assert.ErrorIs(t, err, context.Canceled)
}
