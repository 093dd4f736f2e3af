package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"github.com/archivum-labs/talkvault-cli/internal/adapters/driven/archive/sqlite"
	"github.com/archivum-labs/talkvault-cli/internal/core/domain"
	"github.com/archivum-labs/talkvault-cli/internal/core/services"
)

var diffCmd = &cobra.Command{
	Use:   "diff SOURCE TARGET",
	Short: "Compare two archive files",
	Long: `Compares the first archive against the second and reports, chat by
chat, what the first one has that the second one lacks. Neither file
is modified.`,
	Args: cobra.ExactArgs(2),
	RunE: runDiff,
}

func init() {
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	sourcePath, targetPath := args[0], args[1]
	if samePath(sourcePath, targetPath) {
		return fmt.Errorf("%w: cannot compare %s with itself", domain.ErrSelfCompare, sourcePath)
	}

	source, err := sqlite.Open(sourcePath)
	if err != nil {
		return err
	}
	defer source.Close()

	target, err := sqlite.Open(targetPath)
	if err != nil {
		return err
	}
	defer target.Close()

	cmd.Printf("Scanning %s vs %s..\n", source.Label(), target.Label())
	bar := newProgressBar(cmd.ErrOrStderr())

	counts := domain.SourceCounts{}
	err = runWorker(cmd.Context(), &services.DiffJob{Source: source, Target: target},
		func(postback domain.Postback) {
			switch p := postback.(type) {
			case domain.Progress:
				bar.Update(p.Index, p.Count)
			case domain.ChatDiffResult:
				counts.Chats++
				counts.Messages += len(p.Diff.Messages)
				counts.Participants += len(p.Diff.Participants)
				bar.Println(diffLine(p.Diff))
			case domain.Output:
				bar.Println(p.Text)
			}
		})
	bar.Finish()

	if errors.Is(err, errInterrupted) {
		cmd.Println("Interrupted.")
		return nil
	}
	if err != nil {
		return err
	}

	if counts.Chats == 0 {
		cmd.Printf("Scanned %s and %s: no differences.\n", source.Label(), target.Label())
		return nil
	}
	cmd.Printf("Scanned %s and %s: %s in %s not present in the latter.\n",
		source.Label(), target.Label(),
		english.Plural(counts.Messages, "message", ""),
		english.Plural(counts.Chats, "chat", ""))
	return nil
}

// diffLine renders one chat's difference as a result line.
func diffLine(diff domain.ChatDiff) string {
	var parts []string
	if len(diff.Messages) > 0 {
		parts = append(parts, english.Plural(len(diff.Messages), "new message", ""))
	}
	if len(diff.Participants) > 0 {
		parts = append(parts, english.Plural(len(diff.Participants), "new participant", ""))
	}
	line := fmt.Sprintf("Chat %q: %s.", diff.Chat.Title, strings.Join(parts, ", "))
	if diff.NewChat() {
		line += " Chat not present in target."
	}
	return line
}

// samePath reports whether two paths name the same file.
func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return absA == absB
}
