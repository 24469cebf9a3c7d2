package ui

import (
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gubarz/pagemd/internal/blocks"
	"github.com/gubarz/pagemd/internal/marks"
	"github.com/gubarz/pagemd/internal/session"
	"github.com/gubarz/pagemd/internal/store"
)

// Options configures the editor
type Options struct {
	Backend       store.Backend
	Page          string // route of the page opened first
	DefaultPage   string // route for "/" links
	Policy        blocks.Policy
	Split         session.SplitPolicy
	Palette       marks.Palette
	AutosaveDelay time.Duration
	CommitMessage string // %s is replaced by the page path
	ContentDir    string // root for local downloads, empty for database storage
	Opener        Opener
	Logger        *slog.Logger
}

// Run launches the Bubble Tea editor on opts.Page and blocks until it exits.
// An error is returned when the last save before quitting failed.
func Run(opts Options) error {
	if opts.Backend == nil {
		return fmt.Errorf("no page storage configured")
	}

	m := newEditorModel(opts)

	ttyIn, ttyOut, cleanup := getTTY()
	RefreshStyles() // Refresh after getTTY sets up the renderer
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithOutput(ttyOut), tea.WithInput(ttyIn))
	finalModel, err := p.Run()
	cleanup()

	if err != nil {
		return err
	}

	result := finalModel.(editorModel)
	if result.page.save.Pending() {
		if err := result.page.save.Err(); err != nil {
			return fmt.Errorf("unsaved changes to %s: %w", result.page.path, err)
		}
		return fmt.Errorf("unsaved changes to %s", result.page.path)
	}
	return nil
}
