package services

import (
	"context"
	"fmt"

	"github.com/archivum-labs/talkvault-cli/internal/core/domain"
	"github.com/archivum-labs/talkvault-cli/internal/core/ports/driven"
	"github.com/archivum-labs/talkvault-cli/internal/core/ports/driving"
	"github.com/archivum-labs/talkvault-cli/internal/logger"
)

// Ensure DiffJob implements the interface.
var _ driving.Job = (*DiffJob)(nil)

// DiffJob scans the source archive's chats against the target archive
// and emits one ChatDiffResult per chat that differs, in the source's
// listing order so identical inputs produce identical postback
// sequences. Chats present only in the target are reported as output
// lines but never altered.
type DiffJob struct {
	// Source is the archive whose additions are being computed.
	Source driven.Archive

	// Target is the comparison archive.
	Target driven.Archive

	// Chats are the source conversations to scan, stats loaded, in the
	// caller's chosen order. When nil the job lists them itself.
	Chats []domain.Chat

	// Key pairs conversations across the two archives.
	// domain.ChatKeyDefault when nil.
	Key domain.ChatKeyFunc

	// EmitEmpty also emits diffs that contribute nothing, for callers
	// that want one result per scanned chat.
	EmitEmpty bool
}

// Name identifies the job in logs.
func (j *DiffJob) Name() string {
	return fmt.Sprintf("diff %s vs %s", j.Source.Label(), j.Target.Label())
}

// Run executes the scan. Cancellation is honoured between chats.
func (j *DiffJob) Run(ctx context.Context, emit func(domain.Postback)) error {
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

	targetChats, err := j.Target.Conversations(ctx, driven.ChatFilter{})
	if err != nil {
		return fmt.Errorf("list target chats: %w", err)
	}
	byKey := make(map[string]*domain.Chat, len(targetChats))
	for i := range targetChats {
		byKey[key(targetChats[i])] = &targetChats[i]
	}

	emit(domain.Progress{Index: 0, Count: len(chats)})

	matched := make(map[string]bool, len(chats))
	for i := range chats {
		if err := ctx.Err(); err != nil {
			return err
		}

		chat := chats[i]
		target := byKey[key(chat)]
		if target != nil {
			matched[key(chat)] = true
		}

		diff, err := j.diffChat(ctx, chat, target)
		if err != nil {
			return fmt.Errorf("diff chat %q: %w", chat.Title, err)
		}

		if !diff.Empty() || j.EmitEmpty {
			emit(domain.ChatDiffResult{Diff: diff})
		}
		emit(domain.Progress{Index: i + 1, Count: len(chats)})
	}

	// Chats present only in the target are reported, not altered.
	for i := range targetChats {
		if !matched[key(targetChats[i])] {
			emit(domain.Output{Text: fmt.Sprintf("Chat %q exists only in %s.",
				targetChats[i].Title, j.Target.Label())})
		}
	}

	return nil
}

// diffChat computes one chat's difference. A chat without a
// counterpart contributes all of its messages and participants.
func (j *DiffJob) diffChat(ctx context.Context, chat domain.Chat, target *domain.Chat) (domain.ChatDiff, error) {
	diff := domain.ChatDiff{Chat: chat, Target: target}

	// Index the target's durable message IDs so the partition is a map
	// lookup per message, not a scan.
	known := make(map[int64]struct{})
	if target != nil {
		cursor, err := j.Target.Messages(ctx, *target)
		if err != nil {
			return diff, fmt.Errorf("open target messages: %w", err)
		}
		for cursor.Next() {
			known[cursor.Message().ID] = struct{}{}
		}
		if err := cursor.Err(); err != nil {
			cursor.Close()
			return diff, fmt.Errorf("scan target messages: %w", err)
		}
		if err := cursor.Close(); err != nil {
			return diff, fmt.Errorf("close target messages: %w", err)
		}
	}

	cursor, err := j.Source.Messages(ctx, chat)
	if err != nil {
		return diff, fmt.Errorf("open source messages: %w", err)
	}
	defer cursor.Close()
	for cursor.Next() {
		msg := cursor.Message()
		if _, ok := known[msg.ID]; ok {
			continue
		}
		diff.Messages = append(diff.Messages, msg)
	}
	if err := cursor.Err(); err != nil {
		return diff, fmt.Errorf("scan source messages: %w", err)
	}

	diff.Participants, err = j.diffParticipants(ctx, chat, target)
	if err != nil {
		return diff, err
	}

	logger.Debug("diff %q: %d new messages, %d new participants",
		chat.Title, len(diff.Messages), len(diff.Participants))
	return diff, nil
}

// diffParticipants is a set difference by account handle.
func (j *DiffJob) diffParticipants(ctx context.Context, chat domain.Chat, target *domain.Chat) ([]domain.Participant, error) {
	source, err := j.Source.Participants(ctx, chat)
	if err != nil {
		return nil, fmt.Errorf("load source participants: %w", err)
	}
	if target == nil {
		return source, nil
	}

	existing, err := j.Target.Participants(ctx, *target)
	if err != nil {
		return nil, fmt.Errorf("load target participants: %w", err)
	}
	known := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		known[p.Identity] = struct{}{}
	}

	var missing []domain.Participant
	for _, p := range source {
		if _, ok := known[p.Identity]; !ok {
			missing = append(missing, p)
		}
	}
	return missing, nil
}
