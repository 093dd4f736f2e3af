package driven

import (
	"context"

	"github.com/archivum-labs/talkvault-cli/internal/core/domain"
)

// ChatExporter renders chats to an external format. Rendering is an
// external collaborator: the export job feeds it chats and messages in
// order and never sees the output format.
type ChatExporter interface {
	// StartChat opens the output for one chat.
	StartChat(ctx context.Context, chat domain.Chat) error

	// Message renders one message. Called in chat order.
	Message(ctx context.Context, msg domain.Message) error

	// FinishChat closes the output for the current chat.
	FinishChat(ctx context.Context, chat domain.Chat) error

	// Close finalises the export and returns the number of chats
	// written.
	Close() (int, error)
}
