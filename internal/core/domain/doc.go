// Package domain holds the core types of talkvault: chats, messages,
// participants, computed chat differences, the postback union workers
// emit, and the parsed search query. It has no dependencies on
// adapters or services.
package domain
