// Package sqlite reads and writes chat archive files.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation
// that requires no CGO, enabling easy cross-compilation. Source archives
// are opened read-only; only merge outputs are ever opened for writing,
// and writes are strictly additive.
//
// # Schema
//
// An archive holds four tables: conversations, messages, participants
// and contacts. Message identifiers come from whatever recorded the
// conversation and are unique per conversation, not per table; they are
// what diff and merge use to recognise a message across archive copies.
package sqlite
