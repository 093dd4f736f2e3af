package services

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize/english"

	"github.com/archivum-labs/talkvault-cli/internal/core/domain"
	"github.com/archivum-labs/talkvault-cli/internal/core/ports/driven"
	"github.com/archivum-labs/talkvault-cli/internal/core/ports/driving"
	"github.com/archivum-labs/talkvault-cli/internal/logger"
)

// Ensure MergeJob implements the interface.
var _ driving.Job = (*MergeJob)(nil)

// MergeJob copies everything the source archive has that the output
// does not, chat by chat, in the source's listing order. The merge is
// append-only: nothing already in the output is deleted or edited, and
// original message identifiers and timestamps are preserved. A failure
// aborts this source's remaining chats but earlier writes stand; the
// orchestrator decides whether to continue with the next source.
type MergeJob struct {
	// Source is the read-only archive being merged in.
	Source driven.Archive

	// Output is the writable archive opened on a copy of the base.
	// Exclusively owned by this job while it runs.
	Output driven.WritableArchive

	// Chats are the source conversations to merge, stats loaded. When
	// nil the job lists them itself.
	Chats []domain.Chat

	// Key pairs conversations across the archives.
	// domain.ChatKeyDefault when nil.
	Key domain.ChatKeyFunc
}

// Name identifies the job in logs.
func (j *MergeJob) Name() string {
	return fmt.Sprintf("merge %s into %s", j.Source.Label(), j.Output.Label())
}

// Run executes the merge. Cancellation is honoured between chats; a
// chat already being written is allowed to finish.
func (j *MergeJob) Run(ctx context.Context, emit func(domain.Postback)) error {
	key := j.Key
	if key == nil {
		key = domain.ChatKeyDefault
	}

	chats := j.Chats
	if chats == nil {
		var err error
		chats, err = j.Source.Conversations(ctx, driven.ChatFilter{})
		if err != nil {
			return fmt.Errorf("list source chats: %w", err)
		}
		if err := j.Source.LoadStats(ctx, chats); err != nil {
			return fmt.Errorf("load source stats: %w", err)
		}
	}

	differ := &DiffJob{Source: j.Source, Target: j.Output, Key: key}

	outputChats, err := j.Output.Conversations(ctx, driven.ChatFilter{})
	if err != nil {
		return fmt.Errorf("list output chats: %w", err)
	}
	byKey := make(map[string]*domain.Chat, len(outputChats))
	for i := range outputChats {
		byKey[key(outputChats[i])] = &outputChats[i]
	}

	emit(domain.Progress{Index: 0, Count: len(chats)})

	for i, chat := range chats {
		if err := ctx.Err(); err != nil {
			return err
		}

		diff, err := differ.diffChat(ctx, chat, byKey[key(chat)])
		if err != nil {
			return fmt.Errorf("diff chat %q: %w", chat.Title, err)
		}

		if !diff.Empty() {
			if err := j.mergeChat(ctx, diff); err != nil {
				return err
			}
			emit(domain.ChatDiffResult{Diff: diff})
			emit(domain.Output{Text: fmt.Sprintf("Merged %s to chat %q.",
				english.Plural(len(diff.Messages), "new message", ""), chat.Title)})
		}
		emit(domain.Progress{Index: i + 1, Count: len(chats)})
	}

	return nil
}

// mergeChat writes one chat's difference into the output.
func (j *MergeJob) mergeChat(ctx context.Context, diff domain.ChatDiff) error {
	target := diff.Target
	if target == nil {
		// Entirely new chat: create it, then everything flows in.
		created := domain.Chat{
			Identity: diff.Chat.Identity,
			Title:    diff.Chat.Title,
		}
		if err := j.Output.InsertChat(ctx, &created); err != nil {
			return fmt.Errorf("%w: create chat %q: %w", domain.ErrMergeWrite, diff.Chat.Title, err)
		}
		target = &created
		logger.Debug("merge: created chat %q as #%d", created.Title, created.ID)
	}

	for _, p := range diff.Participants {
		if err := j.Output.InsertParticipant(ctx, *target, p); err != nil {
			return fmt.Errorf("%w: insert participant %s into %q: %w",
				domain.ErrMergeWrite, p.Identity, target.Title, err)
		}
	}

	for _, msg := range diff.Messages {
		if err := j.Output.InsertMessage(ctx, *target, msg); err != nil {
			return fmt.Errorf("%w: insert message %d into %q: %w",
				domain.ErrMergeWrite, msg.ID, target.Title, err)
		}
	}

	if err := j.Output.UpdateStats(ctx, *target); err != nil {
		return fmt.Errorf("%w: update stats for %q: %w",
			domain.ErrMergeWrite, target.Title, err)
	}
	return nil
}
