package cli

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/archivum-labs/talkvault-cli/internal/adapters/driven/archive/sqlite"
	"github.com/archivum-labs/talkvault-cli/internal/core/domain"
	"github.com/archivum-labs/talkvault-cli/internal/core/services"
)

var searchType string

var searchCmd = &cobra.Command{
	Use:   "search QUERY FILE...",
	Short: "Search archive contents",
	Long: `Searches one or more archives. All words must occur; OR between
words admits either side, "quoted phrases" match verbatim, and
chat:name or from:author narrow the scope. The searched space is
chosen with --type: message bodies, contact entries, chat titles and
participants, or raw table rows.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchType, "type", "t", "",
		"what to search: messages, contacts, chats or tables (default messages)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	kind, err := parseSearchKind(searchType)
	if err != nil {
		return err
	}
	query := domain.ParseQuery(args[0])
	paths := args[1:]

	archives := make([]*sqlite.Archive, 0, len(paths))
	defer func() {
		for _, a := range archives {
			a.Close()
		}
	}()
	for _, path := range paths {
		a, err := sqlite.Open(path)
		if err != nil {
			return err
		}
		archives = append(archives, a)
	}

	// One worker per archive; result lines interleave as they arrive,
	// prefixed with the archive name when there are several.
	var out sync.Mutex
	var total atomic.Int64
	interrupted := atomic.Bool{}
	group := errgroup.Group{}
	for _, archive := range archives {
		archive := archive
		group.Go(func() error {
			job := &services.SearchJob{Archive: archive, Kind: kind, Query: query}
			err := runWorker(cmd.Context(), job, func(postback domain.Postback) {
				m, ok := postback.(domain.Match)
				if !ok {
					return
				}
				total.Add(1)
				out.Lock()
				defer out.Unlock()
				if len(archives) > 1 {
					cmd.Printf("%s: %s\n", archive.Label(), m.Text)
				} else {
					cmd.Println(m.Text)
				}
			})
			if errors.Is(err, errInterrupted) {
				interrupted.Store(true)
				return nil
			}
			return err
		})
	}
	if err := group.Wait(); err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if interrupted.Load() {
		cmd.Println("Interrupted.")
		return nil
	}
	if total.Load() == 0 {
		cmd.Println("No matches.")
		return nil
	}
	cmd.Printf("%s in %s.\n",
		english.Plural(int(total.Load()), "match", ""),
		english.Plural(len(archives), "archive", ""))
	return nil
}

// parseSearchKind maps the --type flag onto a search kind. An empty
// flag falls back to the configured default, then to messages.
func parseSearchKind(flag string) (domain.SearchKind, error) {
	if flag == "" {
		flag = configString("search.type")
	}
	switch flag {
	case "", "message", "messages":
		return domain.SearchMessages, nil
	case "contact", "contacts":
		return domain.SearchContacts, nil
	case "chat", "chats":
		return domain.SearchChats, nil
	case "table", "tables":
		return domain.SearchTables, nil
	default:
		return "", fmt.Errorf("%w: unknown search type %q", domain.ErrInvalidInput, flag)
	}
}
