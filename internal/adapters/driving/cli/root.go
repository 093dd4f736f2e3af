// Package cli provides the command-line interface for talkvault.
package cli

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/archivum-labs/talkvault-cli/internal/adapters/driven/config/file"
	"github.com/archivum-labs/talkvault-cli/internal/core/domain"
	"github.com/archivum-labs/talkvault-cli/internal/core/ports/driven"
	"github.com/archivum-labs/talkvault-cli/internal/core/ports/driving"
	"github.com/archivum-labs/talkvault-cli/internal/core/services"
	"github.com/archivum-labs/talkvault-cli/internal/logger"
)

// version is set from main at startup.
var version = "dev"

// verbose enables debug logging.
var verbose bool

// config is the loaded configuration store, nil when loading failed.
var config driven.ConfigStore

// errInterrupted marks a run cut short by the user. Commands report it
// as a clean stop, not a failure.
var errInterrupted = errors.New("interrupted")

var rootCmd = &cobra.Command{
	Use:   "talkvault",
	Short: "Compare, merge, search and export chat archives",
	Long: `Talkvault works on chat archive files: SQLite databases holding
conversations, messages, participants and contacts.

It can compare two archives, merge any number of them into a new file
without touching the originals, search their contents, and export
conversations as text.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		loadConfig()
		logger.SetVerbose(verbose || configBool("general.verbose"))
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command. The context carries signal-driven
// cancellation from main.
func Execute(ctx context.Context, ver string) error {
	version = ver
	return rootCmd.ExecuteContext(ctx)
}

// loadConfig opens the configuration store. A broken config file is
// reported but never blocks the command.
func loadConfig() {
	if config != nil {
		return
	}
	store, err := file.NewConfigStore(os.Getenv("TALKVAULT_CONFIG_DIR"))
	if err != nil {
		logger.Warn("could not load configuration: %v", err)
		return
	}
	config = store
}

// configString reads a config value, empty when the store is absent.
func configString(key string) string {
	if config == nil {
		return ""
	}
	return config.GetString(key)
}

// configBool reads a config flag, false when the store is absent.
func configBool(key string) bool {
	if config == nil {
		return false
	}
	return config.GetBool(key)
}

// Ensure cliSink implements the interface.
var _ driven.StatusSink = cliSink{}

// cliSink prints replayed engine output lines. The CLI has no
// transient status line, so SetStatus is dropped.
type cliSink struct {
	cmd *cobra.Command
}

func (s cliSink) Log(line string)  { s.cmd.Println(line) }
func (s cliSink) SetStatus(string) {}

// runWorker runs one job on a fresh worker, relaying its postbacks to
// handle. Terminal postbacks are consumed here: a failure comes back as
// the job's error, a user stop as errInterrupted.
func runWorker(ctx context.Context, job driving.Job, handle func(domain.Postback)) error {
	worker := services.NewWorker()
	if err := worker.Submit(job); err != nil {
		return err
	}

	// Relay context cancellation into the worker.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			worker.Cancel()
		case <-watchDone:
		}
	}()

	var jobErr error
	for postback := range worker.Postbacks() {
		switch p := postback.(type) {
		case domain.JobError:
			jobErr = p.Err
		case domain.Stopped:
			jobErr = errInterrupted
		case domain.Done:
		default:
			handle(postback)
		}
	}
	return jobErr
}
