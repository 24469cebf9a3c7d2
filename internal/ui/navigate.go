package ui

import (
	"fmt"
	"path"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gubarz/pagemd/internal/links"
	"github.com/gubarz/pagemd/internal/marks"
	"github.com/gubarz/pagemd/internal/store"
)

// Opener hands a URL or local file to a program outside the editor
type Opener func(target string) error

// SystemOpener opens targets with browser, or the platform default handler
// when browser is empty
func SystemOpener(browser string) Opener {
	return func(target string) error {
		return openCommand(browser, target).Start()
	}
}

// navigateMsg asks the editor to switch to another page
type navigateMsg struct {
	path string
}

// statusMsg is a one-line message for the status bar
type statusMsg struct {
	text string
	err  error
}

// navigator decides what following a link means
type navigator struct {
	open        Opener
	contentDir  string // root for local downloads, empty when pages live in a database
	defaultPage string
}

// follow resolves an encoded href (download sigil included) and returns the
// command that carries it out, nil for links that go nowhere
func (n navigator) follow(href string) tea.Cmd {
	t := links.Resolve(href)
	switch {
	case t.Variant == links.Invalid:
		return nil
	case t.Kind == links.Internal && t.Variant != links.Download:
		p, err := store.CleanPath(t.URL, n.defaultPage)
		if err != nil {
			return statusCmd("", err)
		}
		return func() tea.Msg { return navigateMsg{path: p} }
	}

	target := t.URL
	if t.Kind == links.Internal {
		if n.contentDir == "" {
			return statusCmd("", fmt.Errorf("no local file for %s", t.URL))
		}
		target = filepath.Join(n.contentDir, filepath.FromSlash(path.Clean("/"+t.URL)))
	}
	open := n.open
	return func() tea.Msg {
		if err := open(target); err != nil {
			return statusMsg{err: fmt.Errorf("open %s: %w", target, err)}
		}
		return statusMsg{text: "opened " + target}
	}
}

// followLink is follow for a parsed link
func (n navigator) followLink(href string, download bool) tea.Cmd {
	return n.follow(marks.EncodeHref(href, download))
}

func statusCmd(text string, err error) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text, err: err} }
}
