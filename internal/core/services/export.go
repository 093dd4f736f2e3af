package services

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize/english"

	"github.com/archivum-labs/talkvault-cli/internal/core/domain"
	"github.com/archivum-labs/talkvault-cli/internal/core/ports/driven"
	"github.com/archivum-labs/talkvault-cli/internal/core/ports/driving"
)

// Ensure ExportJob implements the interface.
var _ driving.Job = (*ExportJob)(nil)

// exportProgressStep is how many messages pass between progress
// postbacks during an export.
const exportProgressStep = 100

// ExportJob walks the archive's chats in the caller's order and feeds
// every message through the renderer. Progress counts messages across
// the whole archive; the true total is known up front from the loaded
// stats.
type ExportJob struct {
	// Archive is the database being exported.
	Archive driven.Archive

	// Exporter renders the chats. The job never sees the output format.
	Exporter driven.ChatExporter

	// Chats are the conversations to export, stats loaded, in the
	// caller's chosen order.
	Chats []domain.Chat
}

// Name identifies the job in logs.
func (j *ExportJob) Name() string {
	return fmt.Sprintf("export %s", j.Archive.Label())
}

// Run executes the export. Cancellation is honoured between chats.
func (j *ExportJob) Run(ctx context.Context, emit func(domain.Postback)) error {
	total := 0
	for _, chat := range j.Chats {
		total += chat.MessageCount
	}
	emit(domain.Progress{Index: 0, Count: total})

	written := 0
	for _, chat := range j.Chats {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := j.exportChat(ctx, chat, &written, total, emit); err != nil {
			return fmt.Errorf("export chat %q: %w", chat.Title, err)
		}
		emit(domain.Progress{Index: written, Count: total})
	}

	chats, err := j.Exporter.Close()
	if err != nil {
		return fmt.Errorf("finalise export: %w", err)
	}

	emit(domain.Output{Text: fmt.Sprintf("Exported %s with %s from %s.",
		english.Plural(chats, "chat", ""),
		english.Plural(written, "message", ""),
		j.Archive.Label())})
	return nil
}

// exportChat renders one chat through the exporter port.
func (j *ExportJob) exportChat(
	ctx context.Context,
	chat domain.Chat,
	written *int,
	total int,
	emit func(domain.Postback),
) error {
	if err := j.Exporter.StartChat(ctx, chat); err != nil {
		return fmt.Errorf("start chat: %w", err)
	}

	cursor, err := j.Archive.Messages(ctx, chat)
	if err != nil {
		return fmt.Errorf("open messages: %w", err)
	}
	defer cursor.Close()

	for cursor.Next() {
		if err := j.Exporter.Message(ctx, cursor.Message()); err != nil {
			return fmt.Errorf("render message: %w", err)
		}
		*written++
		if *written%exportProgressStep == 0 {
			emit(domain.Progress{Index: *written, Count: total})
		}
	}
	if err := cursor.Err(); err != nil {
		return fmt.Errorf("scan messages: %w", err)
	}

	if err := j.Exporter.FinishChat(ctx, chat); err != nil {
		return fmt.Errorf("finish chat: %w", err)
	}
	return nil
}
