package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/archivum-labs/talkvault-cli/internal/adapters/driven/archive/sqlite"
	"github.com/archivum-labs/talkvault-cli/internal/adapters/driving/tui"
)

var guiCmd = &cobra.Command{
	Use:   "gui FILE",
	Short: "Launch the interactive search interface",
	Long: `Launch the interactive terminal interface over one archive.

Controls:
  Enter - Run the query
  Tab   - Switch searched space (messages, chats, contacts, tables)
  ↑/↓   - Scroll results
  Esc   - Stop a running search / clear
  q     - Quit`,
	Args: cobra.ExactArgs(1),
	RunE: runGUI,
}

func init() {
	rootCmd.AddCommand(guiCmd)
}

func runGUI(cmd *cobra.Command, args []string) error {
	archive, err := sqlite.Open(args[0])
	if err != nil {
		return err
	}
	defer archive.Close()

	program := tea.NewProgram(tui.NewApp(archive), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running interface: %w", err)
	}
	return nil
}
