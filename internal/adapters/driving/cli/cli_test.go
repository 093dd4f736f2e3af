package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archivum-labs/talkvault-cli/internal/adapters/driven/archive/sqlite"
	"github.com/archivum-labs/talkvault-cli/internal/core/domain"
	"github.com/archivum-labs/talkvault-cli/internal/core/ports/driven"
)

var cliBase = time.Date(2014, 8, 1, 10, 0, 0, 0, time.UTC)

// execCLI runs the root command with the given arguments, capturing
// output. Flag state is reset so tests stay independent.
func execCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("TALKVAULT_CONFIG_DIR", t.TempDir())
	config = nil
	mergeOutput = ""
	searchType = ""
	exportDir = ""
	exportChats = nil
	exportAuthors = nil
	verbose = false

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

// writeArchive builds an archive file holding one "Team" chat with the
// given message IDs.
func writeArchive(t *testing.T, path string, ids ...int64) {
	t.Helper()
	a, err := sqlite.OpenWritable(path)
	require.NoError(t, err)
	defer a.Close()
	ctx := context.Background()

	chat := domain.Chat{Identity: "19:team", Title: "Team"}
	require.NoError(t, a.InsertChat(ctx, &chat))
	require.NoError(t, a.InsertParticipant(ctx, chat,
		domain.Participant{Identity: "alice", DisplayName: "Alice Archer", Role: domain.RoleAdmin}))
	for _, id := range ids {
		require.NoError(t, a.InsertMessage(ctx, chat, domain.Message{
			ID:        id,
			Author:    "alice",
			Timestamp: cliBase.Add(time.Duration(id) * time.Minute),
			Body:      "release update",
			Type:      domain.MessageText,
		}))
	}
	require.NoError(t, a.UpdateStats(ctx, chat))
}

func countMessages(t *testing.T, path string) int {
	t.Helper()
	a, err := sqlite.Open(path)
	require.NoError(t, err)
	defer a.Close()

	chats, err := a.Conversations(context.Background(), driven.ChatFilter{})
	require.NoError(t, err)
	require.NoError(t, a.LoadStats(context.Background(), chats))
	total := 0
	for _, c := range chats {
		total += c.MessageCount
	}
	return total
}

func TestVersionCmd(t *testing.T) {
	originalVersion := version
	version = "test-version-1.0.0"
	defer func() { version = originalVersion }()

	out, err := execCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "talkvault version test-version-1.0.0")
}

func TestDiffCmd_RejectsSelfCompare(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.db")
	writeArchive(t, path, 1)

	_, err := execCLI(t, "diff", path, path)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSelfCompare)
	assert.Contains(t, err.Error(), "cannot compare")
}

func TestDiffCmd_MissingFile(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.db")
	writeArchive(t, a, 1)

	_, err := execCLI(t, "diff", a, filepath.Join(dir, "nosuch.db"))
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestDiffCmd_ReportsDifferences(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.db")
	b := filepath.Join(dir, "b.db")
	writeArchive(t, a, 1, 2, 3)
	writeArchive(t, b, 1, 2)

	out, err := execCLI(t, "diff", a, b)
	require.NoError(t, err)
	assert.Contains(t, out, `Chat "Team": 1 new message.`)
	assert.Contains(t, out, "Scanned a.db and b.db: 1 message in 1 chat")
}

func TestDiffCmd_NoDifferences(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.db")
	b := filepath.Join(dir, "b.db")
	writeArchive(t, a, 1, 2)
	writeArchive(t, b, 1, 2)

	out, err := execCLI(t, "diff", a, b)
	require.NoError(t, err)
	assert.Contains(t, out, "no differences")
}

func TestMergeCmd_MergesIntoNewFile(t *testing.T) {
	dir := t.TempDir()
	extra := filepath.Join(dir, "extra.db")
	base := filepath.Join(dir, "base.db")
	output := filepath.Join(dir, "merged.db")
	writeArchive(t, extra, 1, 2, 3, 4, 5, 6, 7)
	writeArchive(t, base, 1, 2, 3, 4, 5)

	out, err := execCLI(t, "merge", "-o", output, extra, base)
	require.NoError(t, err)
	assert.Contains(t, out, "Merged 2 new messages in 1 chat from extra.db.")
	assert.Contains(t, out, "Saved merged archive to "+output)

	assert.Equal(t, 7, countMessages(t, output))
	// The inputs stay untouched.
	assert.Equal(t, 7, countMessages(t, extra))
	assert.Equal(t, 5, countMessages(t, base))
}

func TestMergeCmd_VerboseReplaysChatLines(t *testing.T) {
	dir := t.TempDir()
	extra := filepath.Join(dir, "extra.db")
	base := filepath.Join(dir, "base.db")
	output := filepath.Join(dir, "merged.db")
	writeArchive(t, extra, 1, 2, 3)
	writeArchive(t, base, 1)

	out, err := execCLI(t, "merge", "-v", "-o", output, extra, base)
	require.NoError(t, err)
	assert.Contains(t, out, `Merged 2 new messages to chat "Team".`)
}

func TestMergeCmd_NothingNew(t *testing.T) {
	dir := t.TempDir()
	extra := filepath.Join(dir, "extra.db")
	base := filepath.Join(dir, "base.db")
	output := filepath.Join(dir, "merged.db")
	writeArchive(t, extra, 1, 2)
	writeArchive(t, base, 1, 2)

	out, err := execCLI(t, "merge", "-o", output, extra, base)
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing new to merge.")

	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr), "empty merge output should be removed")
}

func TestMergeCmd_SkipsUnreadableSource(t *testing.T) {
	dir := t.TempDir()
	extra := filepath.Join(dir, "extra.db")
	base := filepath.Join(dir, "base.db")
	output := filepath.Join(dir, "merged.db")
	writeArchive(t, extra, 1, 2, 3)
	writeArchive(t, base, 1)

	out, err := execCLI(t, "merge", "-o", output,
		filepath.Join(dir, "nosuch.db"), extra, base)
	require.Error(t, err)
	assert.Contains(t, out, "Skipped")
	assert.Contains(t, out, "Merged 2 new messages in 1 chat from extra.db.")
	assert.Equal(t, 3, countMessages(t, output))
}

func TestMergeCmd_RejectsSelfMerge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.db")
	writeArchive(t, path, 1)

	_, err := execCLI(t, "merge", path, path)
	assert.ErrorIs(t, err, domain.ErrSelfCompare)
}

func TestSearchCmd_FindsMatches(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.db")
	writeArchive(t, path, 1, 2)

	out, err := execCLI(t, "search", "release", path)
	require.NoError(t, err)
	assert.Contains(t, out, "release update")
	assert.Contains(t, out, "2 matches in 1 archive.")
}

func TestSearchCmd_NoMatches(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.db")
	writeArchive(t, path, 1)

	out, err := execCLI(t, "search", "zebra OR giraffe chat:nosuchchat", path)
	require.NoError(t, err)
	assert.Contains(t, out, "No matches.")
}

func TestSearchCmd_MultipleArchivesPrefixed(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.db")
	b := filepath.Join(dir, "b.db")
	writeArchive(t, a, 1)
	writeArchive(t, b, 1)

	out, err := execCLI(t, "search", "release", a, b)
	require.NoError(t, err)
	assert.Contains(t, out, "a.db: ")
	assert.Contains(t, out, "b.db: ")
}

func TestSearchCmd_UnknownType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.db")
	writeArchive(t, path, 1)

	_, err := execCLI(t, "search", "-t", "emails", "release", path)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSearchCmd_ChatKind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.db")
	writeArchive(t, path, 1)

	out, err := execCLI(t, "search", "-t", "chats", "archer", path)
	require.NoError(t, err)
	assert.Contains(t, out, `Chat "Team"`)
}

func TestExportCmd_WritesFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.db")
	outDir := filepath.Join(dir, "out")
	writeArchive(t, path, 1, 2)

	out, err := execCLI(t, "export", "-o", outDir, path)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 1 chat with 2 messages from a.db.")

	content, err := os.ReadFile(filepath.Join(outDir, "Team.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "release update")
}

func TestExportCmd_NoMessages(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.db")
	outDir := filepath.Join(dir, "out")
	writeArchive(t, path)

	out, err := execCLI(t, "export", "-o", outDir, path)
	require.NoError(t, err)
	assert.Contains(t, out, "No messages to export.")

	_, statErr := os.Stat(outDir)
	assert.True(t, os.IsNotExist(statErr), "no output directory for an empty export")
}

func TestExportCmd_ChatFilter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.db")
	outDir := filepath.Join(dir, "out")
	writeArchive(t, path, 1)

	out, err := execCLI(t, "export", "-o", outDir, "-c", "nosuchchat", path)
	require.NoError(t, err)
	assert.Contains(t, out, "No messages to export.")
}

func TestExportCmd_MultipleArchives(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.db")
	second := filepath.Join(dir, "b.db")
	outDir := filepath.Join(dir, "out")
	writeArchive(t, first, 1)
	writeArchive(t, second, 1, 2)

	out, err := execCLI(t, "export", "-o", outDir, first, second)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 1 chat with 1 message from a.db.")
	assert.Contains(t, out, "Exported 1 chat with 2 messages from b.db.")

	_, statErr := os.Stat(filepath.Join(outDir, "a", "Team.txt"))
	assert.NoError(t, statErr)
	_, statErr = os.Stat(filepath.Join(outDir, "b", "Team.txt"))
	assert.NoError(t, statErr)
}

func TestExportCmd_SkipsUnreadableArchive(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "a.db")
	outDir := filepath.Join(dir, "out")
	writeArchive(t, good, 1)

	out, err := execCLI(t, "export", "-o", outDir, filepath.Join(dir, "missing.db"), good)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 archive could not be exported")
	assert.Contains(t, out, "Exported 1 chat with 1 message from a.db.")
}

func TestParseSearchKind(t *testing.T) {
	tests := []struct {
		flag string
		want domain.SearchKind
	}{
		{"", domain.SearchMessages},
		{"messages", domain.SearchMessages},
		{"message", domain.SearchMessages},
		{"contacts", domain.SearchContacts},
		{"chats", domain.SearchChats},
		{"tables", domain.SearchTables},
	}
	for _, tc := range tests {
		kind, err := parseSearchKind(tc.flag)
		require.NoError(t, err)
		assert.Equal(t, tc.want, kind)
	}

	_, err := parseSearchKind("emails")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUniqueOutputPath(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "chats.db")
	require.NoError(t, os.WriteFile(base, []byte("x"), 0600))

	stamp := time.Now().Format("20060102")
	first := uniqueOutputPath(base)
	assert.Equal(t, filepath.Join(dir, "chats.merged."+stamp+".db"), first)

	require.NoError(t, os.WriteFile(first, []byte("x"), 0600))
	second := uniqueOutputPath(base)
	assert.Equal(t, filepath.Join(dir, "chats.merged."+stamp+" (2).db"), second)
}
