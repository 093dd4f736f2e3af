package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"github.com/archivum-labs/talkvault-cli/internal/adapters/driven/archive/sqlite"
	"github.com/archivum-labs/talkvault-cli/internal/adapters/driven/export/text"
	"github.com/archivum-labs/talkvault-cli/internal/core/domain"
	"github.com/archivum-labs/talkvault-cli/internal/core/ports/driven"
	"github.com/archivum-labs/talkvault-cli/internal/core/services"
)

var (
	exportDir     string
	exportChats   []string
	exportAuthors []string
)

var exportCmd = &cobra.Command{
	Use:   "export FILE...",
	Short: "Export chats as text files",
	Long: `Exports conversations as plain text, one file per chat, into a
directory named after each archive. Chats can be narrowed by title
or author. An archive that cannot be read is reported and skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportDir, "output", "o", "",
		"output directory (default: derived from the archive name)")
	exportCmd.Flags().StringArrayVarP(&exportChats, "chat", "c", nil,
		"export only chats whose title contains this (repeatable)")
	exportCmd.Flags().StringArrayVarP(&exportAuthors, "author", "a", nil,
		"export only chats involving this author (repeatable)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	baseDir := exportDir
	if baseDir == "" {
		baseDir = configString("export.dir")
	}

	failures := 0
	for _, path := range args {
		dir := baseDir
		switch {
		case dir == "":
			dir = exportDirName(path)
		case len(args) > 1:
			// Each archive gets its own subdirectory under -o.
			dir = filepath.Join(baseDir, archiveStem(path))
		}

		err := exportOne(cmd, path, dir)
		switch {
		case errors.Is(err, errInterrupted):
			cmd.Println("Interrupted.")
			return nil
		case err != nil:
			failures++
			cmd.Printf("Failed to export %s: %v\n", path, err)
		}
	}

	if failures > 0 {
		return fmt.Errorf("%s could not be exported", english.Plural(failures, "archive", ""))
	}
	return nil
}

// exportOne exports a single archive's chats into dir. The directory
// is only created once there is at least one message to export.
func exportOne(cmd *cobra.Command, path, dir string) error {
	archive, err := sqlite.Open(path)
	if err != nil {
		return err
	}
	defer archive.Close()

	ctx := cmd.Context()
	filter := driven.ChatFilter{Chats: exportChats, Authors: exportAuthors}
	chats, err := archive.Conversations(ctx, filter)
	if err != nil {
		return err
	}
	if err := archive.LoadStats(ctx, chats); err != nil {
		return err
	}
	// Files come out in case-insensitive title order.
	sort.SliceStable(chats, func(i, j int) bool {
		return strings.ToLower(chats[i].Title) < strings.ToLower(chats[j].Title)
	})

	total := 0
	for _, chat := range chats {
		total += chat.MessageCount
	}
	if len(chats) == 0 || total == 0 {
		cmd.Println("No messages to export.")
		return nil
	}

	exporter, err := text.NewExporter(dir)
	if err != nil {
		return err
	}

	cmd.Printf("Exporting %d chats from %s to %s..\n", len(chats), archive.Label(), dir)
	bar := newProgressBar(cmd.ErrOrStderr())

	job := &services.ExportJob{Archive: archive, Exporter: exporter, Chats: chats}
	err = runWorker(ctx, job, func(postback domain.Postback) {
		switch p := postback.(type) {
		case domain.Progress:
			bar.Update(p.Index, p.Count)
		case domain.Output:
			bar.Println(p.Text)
		}
	})
	bar.Finish()
	return err
}

// archiveStem is the archive file name without its extension.
func archiveStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// exportDirName derives the output directory from the archive path,
// <name> export/ next to the file.
func exportDirName(path string) string {
	dir := fmt.Sprintf("%s export", archiveStem(path))
	for n := 2; ; n++ {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return dir
		}
		dir = fmt.Sprintf("%s export (%d)", archiveStem(path), n)
	}
}
