// Package tui provides the interactive search interface.
//
// It follows the Elm architecture via Bubbletea: the app owns a query
// input and a scrolling result pane, runs each search on a background
// worker, and streams matches into the view as they arrive. Esc cancels
// a running search without leaving the interface.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/archivum-labs/talkvault-cli/internal/core/domain"
	"github.com/archivum-labs/talkvault-cli/internal/core/ports/driven"
	"github.com/archivum-labs/talkvault-cli/internal/core/ports/driving"
	"github.com/archivum-labs/talkvault-cli/internal/core/services"
)

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// searchKinds is the --tab-- rotation order of searched spaces.
var searchKinds = []domain.SearchKind{
	domain.SearchMessages,
	domain.SearchChats,
	domain.SearchContacts,
	domain.SearchTables,
}

// matchMsg carries one search match into the update loop.
type matchMsg domain.Match

// searchDoneMsg marks the end of a search, err set on failure.
type searchDoneMsg struct {
	err error
}

// App is the interactive search application over one archive.
type App struct {
	archive driven.Archive
	styles  *Styles
	input   textinput.Model

	kind      domain.SearchKind
	results   []string
	total     int
	searching bool
	stopped   bool
	err       error

	worker    driving.Worker
	postbacks <-chan domain.Postback

	width  int
	height int
	offset int
}

// NewApp creates the search interface for an open archive.
func NewApp(archive driven.Archive) *App {
	input := textinput.New()
	input.Placeholder = "search query"
	input.Focus()

	return &App{
		archive: archive,
		styles:  DefaultStyles(),
		input:   input,
		kind:    domain.SearchMessages,
		width:   80,
		height:  24,
	}
}

// Init starts the input cursor blink.
func (a *App) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case matchMsg:
		a.results = append(a.results, msg.Text)
		a.total = msg.Total
		a.scrollToEnd()
		return a, a.listen()

	case searchDoneMsg:
		a.searching = false
		a.err = msg.err
		a.worker = nil
		a.postbacks = nil
		return a, nil
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// handleKey processes keyboard input.
func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		a.cancelSearch()
		return a, tea.Quit

	case tea.KeyEsc:
		if a.searching {
			a.cancelSearch()
			a.stopped = true
			return a, nil
		}
		a.input.SetValue("")
		a.results = nil
		a.total = 0
		a.err = nil
		a.stopped = false
		return a, nil

	case tea.KeyEnter:
		return a, a.startSearch()

	case tea.KeyTab:
		a.kind = nextKind(a.kind)
		return a, nil

	case tea.KeyUp:
		if a.offset > 0 {
			a.offset--
		}
		return a, nil

	case tea.KeyDown:
		if a.offset < a.maxOffset() {
			a.offset++
		}
		return a, nil
	}

	if msg.String() == "q" && a.input.Value() == "" {
		a.cancelSearch()
		return a, tea.Quit
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// startSearch launches a worker for the current query.
func (a *App) startSearch() tea.Cmd {
	query := strings.TrimSpace(a.input.Value())
	if query == "" || a.searching {
		return nil
	}

	a.results = nil
	a.total = 0
	a.offset = 0
	a.err = nil
	a.stopped = false
	a.searching = true

	worker := services.NewWorker()
	job := &services.SearchJob{
		Archive: a.archive,
		Kind:    a.kind,
		Query:   domain.ParseQuery(query),
	}
	if err := worker.Submit(job); err != nil {
		a.searching = false
		a.err = err
		return nil
	}
	a.worker = worker
	a.postbacks = worker.Postbacks()
	return a.listen()
}

// listen waits for the next postback of the running search.
func (a *App) listen() tea.Cmd {
	ch := a.postbacks
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		for postback := range ch {
			switch p := postback.(type) {
			case domain.Match:
				return matchMsg(p)
			case domain.JobError:
				return searchDoneMsg{err: p.Err}
			case domain.Stopped, domain.Done:
				return searchDoneMsg{}
			}
		}
		return searchDoneMsg{}
	}
}

// cancelSearch stops the running worker, if any.
func (a *App) cancelSearch() {
	if a.worker != nil {
		a.worker.Cancel()
	}
}

// View renders the interface.
func (a *App) View() string {
	var b strings.Builder

	title := fmt.Sprintf("talkvault %s · searching %s", a.archive.Label(), a.kind)
	b.WriteString(a.styles.Title.Render(title))
	b.WriteString("\n")
	b.WriteString(a.styles.InputBox.Width(a.width - 4).Render(a.input.View()))
	b.WriteString("\n")

	visible := a.visibleResults()
	b.WriteString(strings.Join(visible, "\n"))
	if len(visible) > 0 {
		b.WriteString("\n")
	}

	b.WriteString(a.statusLine())
	return b.String()
}

// statusLine renders the bottom hint/status line.
func (a *App) statusLine() string {
	switch {
	case a.err != nil:
		return a.styles.Error.Render(fmt.Sprintf("Search failed: %v", a.err))
	case a.searching:
		return a.styles.Muted.Render(fmt.Sprintf("Searching... %d so far (esc to stop)", a.total))
	case a.stopped:
		return a.styles.Muted.Render(fmt.Sprintf("Stopped with %d matches.", a.total))
	case a.total > 0:
		return a.styles.Muted.Render(fmt.Sprintf("%d matches. enter: search again, tab: search space, q: quit", a.total))
	default:
		return a.styles.Muted.Render("enter: search, tab: search space, esc: clear, q: quit")
	}
}

// visibleResults returns the slice of results that fits the pane.
func (a *App) visibleResults() []string {
	pane := a.paneHeight()
	if len(a.results) <= pane {
		return a.results
	}
	return a.results[a.offset : a.offset+pane]
}

// scrollToEnd keeps the newest results in view while they stream in.
func (a *App) scrollToEnd() {
	a.offset = a.maxOffset()
}

func (a *App) maxOffset() int {
	if extra := len(a.results) - a.paneHeight(); extra > 0 {
		return extra
	}
	return 0
}

// paneHeight is the number of result lines the terminal fits, after
// the title, the input box and the status line.
func (a *App) paneHeight() int {
	h := a.height - 6
	if h < 1 {
		return 1
	}
	return h
}

// nextKind rotates through the searched spaces.
func nextKind(kind domain.SearchKind) domain.SearchKind {
	for i, k := range searchKinds {
		if k == kind {
			return searchKinds[(i+1)%len(searchKinds)]
		}
	}
	return searchKinds[0]
}
