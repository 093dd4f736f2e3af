package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"github.com/archivum-labs/talkvault-cli/internal/adapters/driven/archive/sqlite"
	"github.com/archivum-labs/talkvault-cli/internal/core/domain"
	"github.com/archivum-labs/talkvault-cli/internal/core/services"
	"github.com/archivum-labs/talkvault-cli/internal/logger"
)

var mergeOutput string

var mergeCmd = &cobra.Command{
	Use:   "merge FILE FILE...",
	Short: "Merge archives into a new file",
	Long: `Merges two or more archives into a new file. The last file is the
base: the output starts as a copy of it, and everything the other
files have that the base lacks is appended to the copy. None of the
input files are modified, and nothing is ever deleted or edited in
the output.

A source that cannot be read or merged is reported and skipped; the
remaining sources still go in.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().StringVarP(&mergeOutput, "output", "o", "",
		"merged output file (default: derived from the base file name)")
	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	base := args[len(args)-1]
	sources := args[:len(args)-1]
	for _, src := range sources {
		if samePath(src, base) {
			return fmt.Errorf("%w: cannot merge %s with itself", domain.ErrSelfCompare, src)
		}
	}

	outputPath := mergeOutput
	if outputPath == "" {
		outputPath = configString("merge.output")
	}
	if outputPath == "" {
		outputPath = uniqueOutputPath(base)
	}

	if err := sqlite.Clone(base, outputPath); err != nil {
		return err
	}
	output, err := sqlite.OpenWritable(outputPath)
	if err != nil {
		os.Remove(outputPath)
		return err
	}
	defer output.Close()

	if info, err := os.Stat(base); err == nil {
		cmd.Printf("Creating %s, using %s (%s) as base.\n",
			filepath.Base(outputPath), filepath.Base(base), humanize.Bytes(uint64(info.Size())))
	}
	cmd.Printf("Merging %s..\n", english.WordSeries(labels(sources), "and"))

	counts := make(domain.Counts)
	interrupted := false
	failures := 0
	for _, path := range sources {
		if interrupted {
			break
		}

		source, err := sqlite.Open(path)
		if err != nil {
			failures++
			cmd.Printf("Skipped %s: %v\n", path, err)
			continue
		}

		// Per-chat result lines buffer while the bar owns the terminal
		// and replay below it once the source is done.
		bar := newProgressBar(cmd.ErrOrStderr())
		status := services.NewBufferedStatus()
		label := source.Label()
		err = runWorker(cmd.Context(), &services.MergeJob{Source: source, Output: output},
			func(postback domain.Postback) {
				switch p := postback.(type) {
				case domain.Progress:
					bar.Update(p.Index, p.Count)
				case domain.ChatDiffResult:
					counts.Add(label, p.Diff)
					status.SetStatus(fmt.Sprintf("Merging chat %q..", p.Diff.Chat.Title))
				case domain.Output:
					status.Log(p.Text)
				}
			})
		bar.Finish()
		source.Close()
		if logger.IsVerbose() {
			status.Attach(cliSink{cmd: cmd})
		}

		switch {
		case errors.Is(err, errInterrupted):
			// Earlier writes are complete chats; the copy stays valid.
			interrupted = true
		case err != nil:
			failures++
			cmd.Printf("Failed to merge %s: %v\n", label, err)
		default:
			cmd.Println(sourceSummary(label, counts[label]))
		}
	}

	if interrupted {
		cmd.Printf("Interrupted. Partial merge saved to %s.\n", outputPath)
		return nil
	}

	if counts.Empty() {
		// Nothing went in: drop the pointless copy.
		output.Close()
		os.Remove(outputPath)
		cmd.Println("Nothing new to merge.")
		if failures > 0 {
			return fmt.Errorf("%s could not be merged", english.Plural(failures, "source", ""))
		}
		return nil
	}

	cmd.Printf("Saved merged archive to %s.\n", outputPath)
	if failures > 0 {
		return fmt.Errorf("%s could not be merged", english.Plural(failures, "source", ""))
	}
	return nil
}

// sourceSummary renders one source's contribution.
func sourceSummary(label string, counts *domain.SourceCounts) string {
	if counts == nil || (counts.Messages == 0 && counts.Participants == 0) {
		return fmt.Sprintf("Nothing new in %s.", label)
	}

	parts := []string{english.Plural(counts.Messages, "new message", "")}
	if counts.Participants > 0 {
		parts = append(parts, english.Plural(counts.Participants, "new participant", ""))
	}
	return fmt.Sprintf("Merged %s in %s from %s.",
		strings.Join(parts, " and "),
		english.Plural(counts.Chats, "chat", ""), label)
}

// uniqueOutputPath derives an unused output name next to the base
// file, <name>.merged.<yyyymmdd><ext>.
func uniqueOutputPath(base string) string {
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	stamp := time.Now().Format("20060102")

	path := fmt.Sprintf("%s.merged.%s%s", stem, stamp, ext)
	for n := 2; ; n++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
		path = fmt.Sprintf("%s.merged.%s (%d)%s", stem, stamp, n, ext)
	}
}

// labels renders file paths as their base names.
func labels(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Base(p)
	}
	return out
}
