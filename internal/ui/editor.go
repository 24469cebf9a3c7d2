package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/gubarz/pagemd/internal/document"
	"github.com/gubarz/pagemd/internal/inline"
	"github.com/gubarz/pagemd/internal/links"
	"github.com/gubarz/pagemd/internal/session"
	"github.com/gubarz/pagemd/internal/store"
)

const ioTimeout = 10 * time.Second

// ============================================================================
// Messages
// ============================================================================

// pageLoadedMsg carries the stored markdown of a page
type pageLoadedMsg struct {
	path     string
	markdown string
	err      error
}

// autosaveMsg fires once the edit debounce expires
type autosaveMsg struct {
	seq int
}

// savedMsg reports a finished save of revision rev
type savedMsg struct {
	path string
	rev  uint64
	err  error
}

// pagesMsg carries the page list for the picker
type pagesMsg struct {
	pages []store.Page
	err   error
}

// filterMsg triggers filtering after debounce
type filterMsg struct{}

// debounceAutosave waits delay before asking for a save. Only the tick
// carrying the latest seq saves.
func debounceAutosave(seq int, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return autosaveMsg{seq: seq}
	})
}

// debounceFilter returns a command that triggers filtering after a delay
func debounceFilter() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(t time.Time) tea.Msg {
		return filterMsg{}
	})
}

// prefetched is a page already read by a command, replayed into the
// document on the event loop
type prefetched struct {
	markdown string
	err      error
}

func (p prefetched) Load(context.Context, string) (string, error) {
	return p.markdown, p.err
}

// ============================================================================
// Model
// ============================================================================

// uiPhase represents which phase the TUI is in
type uiPhase int

const (
	phaseView   uiPhase = iota // Moving between blocks
	phaseEdit                  // Typing into the active block
	phasePrompt                // Reading a line of input
	phasePages                 // Picking a page
)

// promptKind is what the prompt input is asking for
type promptKind int

const (
	promptOpen promptKind = iota
	promptNewPage
	promptLinkText
	promptLinkHref
)

// pageState is shared by every copy of the model
type pageState struct {
	doc     *document.Controller
	path    string
	save    document.SaveState
	changed bool
	seq     int
	history []string

	// a save for the current page is waiting for the one in flight
	resave bool
}

// editorModel is the Bubble Tea model for browsing and editing pages
type editorModel struct {
	// Common state
	width    int
	height   int
	quitting bool
	phase    uiPhase
	status   string
	errored  bool

	// Dependencies
	page          *pageState
	backend       store.Backend
	nav           navigator
	parser        *inline.Parser
	autosaveDelay time.Duration
	commitMessage string
	log           *slog.Logger

	// Block selection
	cursor int
	offset int

	// Prompt state
	input      textinput.Model
	prompt     promptKind
	returnTo   uiPhase
	linkText   string
	lastFilter string

	// Page picker state
	pages      []store.Page
	filtered   []store.Page
	pageCursor int
	pageOffset int
}

// newEditorModel creates the model for opts, editing opts.Page once loaded
func newEditorModel(opts Options) editorModel {
	ti := textinput.New()
	ti.CharLimit = 512
	ti.Width = 50

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	doc := document.New(document.Options{Policy: opts.Policy, Split: opts.Split, Logger: log})
	ps := &pageState{doc: doc, path: opts.Page}
	doc.OnChange(func(string) { ps.changed = true })

	delay := opts.AutosaveDelay
	if delay <= 0 {
		delay = 1500 * time.Millisecond
	}
	open := opts.Opener
	if open == nil {
		open = SystemOpener("")
	}

	return editorModel{
		input:         ti,
		phase:         phaseView,
		page:          ps,
		backend:       opts.Backend,
		nav:           navigator{open: open, contentDir: opts.ContentDir, defaultPage: opts.DefaultPage},
		parser:        &inline.Parser{Palette: opts.Palette},
		autosaveDelay: delay,
		commitMessage: opts.CommitMessage,
		log:           log,
	}
}

// Init implements tea.Model
func (m editorModel) Init() tea.Cmd {
	return m.loadCmd(m.page.path)
}

// Update implements tea.Model
func (m editorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = msg.Width - 4
		return m, nil
	case pageLoadedMsg:
		m.handleLoaded(msg)
		return m, nil
	case autosaveMsg:
		if msg.seq != m.page.seq {
			return m, nil
		}
		return m, m.saveCmd()
	case savedMsg:
		return m, m.handleSaved(msg)
	case navigateMsg:
		return m, m.navigate(msg.path)
	case statusMsg:
		m.setStatus(msg.text, msg.err)
		return m, nil
	case pagesMsg:
		return m.handlePages(msg)
	case filterMsg:
		m.filterPages()
		return m, nil
	}

	// Status messages last until the next key
	if _, ok := msg.(tea.KeyMsg); ok {
		m.status, m.errored = "", false
	}

	// Dispatch based on phase
	switch m.phase {
	case phaseEdit:
		return m.updateEdit(msg)
	case phasePrompt:
		return m.updatePrompt(msg)
	case phasePages:
		return m.updatePages(msg)
	default:
		return m.updateView(msg)
	}
}

func (m *editorModel) setStatus(text string, err error) {
	m.errored = err != nil
	if err != nil {
		m.status = err.Error()
		m.log.Warn("ui error", "error", err)
		return
	}
	m.status = text
}

// ============================================================================
// Viewing
// ============================================================================

func (m editorModel) updateView(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	var cmd tea.Cmd
	doc := m.page.doc

	switch key.String() {
	case "ctrl+c", "q":
		return m, m.quit()
	case "up", "k":
		m.moveCursor(-1)
	case "down", "j":
		m.moveCursor(1)
	case "pgup":
		m.moveCursor(-10)
	case "pgdown":
		m.moveCursor(10)
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		m.cursor = max(0, doc.Len()-1)
	case "enter", "e", "i":
		if doc.Len() == 0 {
			m.openBlock(0)
		} else {
			m.activate(m.cursor)
		}
	case "o":
		m.openBlock(min(m.cursor+1, doc.Len()))
	case "O":
		m.openBlock(m.cursor)
	case "f", "ctrl+o":
		cmd = m.followSelected()
	case "b", "alt+left":
		cmd = m.back()
	case "ctrl+s":
		cmd = m.saveNow()
	case "/", "ctrl+p":
		cmd = m.openPicker()
	case ":", "ctrl+g":
		cmd = m.openPrompt(promptOpen, "page: ", "")
	case "ctrl+n":
		cmd = m.openPrompt(promptNewPage, "title: ", "")
	}
	return m, tea.Batch(cmd, m.afterEdit())
}

// moveCursor moves the cursor by delta, clamping to valid range
func (m *editorModel) moveCursor(delta int) {
	m.cursor = clamp(m.cursor+delta, 0, max(0, m.page.doc.Len()-1))
}

func (m *editorModel) activate(i int) {
	if err := m.page.doc.Apply(i, session.Activate{}); err != nil {
		m.setStatus("", err)
		return
	}
	m.syncPhase()
}

func (m *editorModel) openBlock(i int) {
	if err := m.page.doc.Open(i); err != nil {
		m.setStatus("", err)
		return
	}
	m.syncPhase()
}

// syncPhase follows the session: editing while a block is active,
// viewing otherwise, with the cursor on the block last touched
func (m *editorModel) syncPhase() {
	if i, _, ok := m.page.doc.Editing(); ok {
		m.phase = phaseEdit
		m.cursor = i
		return
	}
	m.phase = phaseView
	m.moveCursor(0)
}

func (m *editorModel) followSelected() tea.Cmd {
	bs := m.page.doc.Blocks()
	if m.cursor >= len(bs) {
		return nil
	}
	l, ok := blockLink(bs[m.cursor], m.parser)
	if !ok {
		m.setStatus("no link in this block", nil)
		return nil
	}
	return m.nav.followLink(l.Href, l.Download())
}

func (m *editorModel) back() tea.Cmd {
	ps := m.page
	if len(ps.history) == 0 {
		return nil
	}
	prev := ps.history[len(ps.history)-1]
	ps.history = ps.history[:len(ps.history)-1]
	return m.switchPage(prev)
}

// ============================================================================
// Editing
// ============================================================================

func (m editorModel) updateEdit(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	doc := m.page.doc
	i, d, ok := doc.Editing()
	if !ok {
		m.syncPhase()
		return m.updateView(msg)
	}

	var cmd tea.Cmd
	switch key.String() {
	case "ctrl+c":
		return m, m.quit()
	case "ctrl+s":
		doc.Commit()
		m.syncPhase()
		cmd = m.saveNow()
	case "ctrl+k":
		cmd = m.openPrompt(promptLinkText, "link text: ", "")
	case "ctrl+o":
		if run, ok := linkAtCaret(d); ok {
			cmd = m.nav.followLink(run.Href, run.Download)
		}
	case "up":
		if !d.MoveLine(-1) && i > 0 {
			m.activate(i - 1)
		}
	case "down":
		if !d.MoveLine(1) && i+1 < doc.Len() {
			m.activate(i + 1)
			if _, next, ok := doc.Editing(); ok {
				next.SetCaret(0)
			}
		}
	default:
		if op, ok := keyOp(key); ok {
			if err := doc.Apply(i, op); err != nil {
				m.setStatus("", err)
			}
			m.syncPhase()
		}
	}
	return m, tea.Batch(cmd, m.afterEdit())
}

// keyOp maps a key press while editing to a session operation
func keyOp(msg tea.KeyMsg) (session.Op, bool) {
	switch msg.String() {
	case "esc":
		return session.Escape{}, true
	case "ctrl+d", "tab":
		return session.Stop{}, true
	case "enter":
		return session.Enter{}, true
	case "alt+enter", "ctrl+j":
		return session.Enter{Modified: true}, true
	case "backspace", "ctrl+h":
		return session.Backspace{}, true
	case "delete":
		return session.Delete{}, true
	case "left":
		return session.Move{Delta: -1}, true
	case "right":
		return session.Move{Delta: 1}, true
	case "home", "ctrl+a":
		return session.Home{}, true
	case "end", "ctrl+e":
		return session.End{}, true
	}

	switch msg.Type {
	case tea.KeyRunes:
		if msg.Alt {
			return nil, false
		}
		return session.Insert{Text: string(msg.Runes)}, true
	case tea.KeySpace:
		return session.Insert{Text: " "}, true
	}
	return nil, false
}

// ============================================================================
// Prompt
// ============================================================================

func (m *editorModel) openPrompt(kind promptKind, label, value string) tea.Cmd {
	if m.phase != phasePrompt {
		m.returnTo = m.phase
	}
	m.phase = phasePrompt
	m.prompt = kind
	m.input.Prompt = label
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *editorModel) closePrompt() {
	m.input.Blur()
	m.input.SetValue("")
	m.phase = m.returnTo
	if m.phase == phaseEdit {
		m.syncPhase()
	}
}

func (m editorModel) updatePrompt(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c":
			m.closePrompt()
			return m, m.quit()
		case "esc":
			m.closePrompt()
			return m, nil
		case "enter":
			cmd := m.acceptPrompt(strings.TrimSpace(m.input.Value()))
			return m, tea.Batch(cmd, m.afterEdit())
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *editorModel) acceptPrompt(value string) tea.Cmd {
	switch m.prompt {
	case promptLinkText:
		m.linkText = value
		return m.openPrompt(promptLinkHref, "link to: ", "")
	case promptLinkHref:
		text := m.linkText
		m.linkText = ""
		m.closePrompt()
		if value == "" {
			return nil
		}
		download := strings.HasPrefix(value, links.Sigil)
		href := strings.TrimPrefix(value, links.Sigil)
		if text == "" {
			text = href
		}
		before := ""
		if _, d, ok := m.page.doc.Editing(); ok {
			before = d.Markdown()
		}
		op := session.InsertLink{Text: text, Href: href, Download: download}
		if err := m.page.doc.Apply(-1, op); err != nil {
			m.setStatus("", err)
			return nil
		}
		if _, d, ok := m.page.doc.Editing(); ok && d.Markdown() == before {
			m.setStatus("link does not fit here, no link inserted", nil)
		}
		return nil
	case promptNewPage:
		m.closePrompt()
		if value == "" {
			return nil
		}
		return m.createCmd(value)
	default:
		m.closePrompt()
		if value == "" {
			return nil
		}
		p, err := store.CleanPath(value, m.nav.defaultPage)
		if err != nil {
			m.setStatus("", err)
			return nil
		}
		return m.navigate(p)
	}
}

// ============================================================================
// Page Picker
// ============================================================================

func (m *editorModel) openPicker() tea.Cmd {
	m.phase = phasePages
	m.input.Prompt = "> "
	m.input.Placeholder = "Type to search..."
	m.input.SetValue("")
	m.pageCursor, m.pageOffset = 0, 0
	return tea.Batch(m.input.Focus(), m.listCmd())
}

func (m editorModel) handlePages(msg pagesMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.setStatus("", msg.err)
	}
	m.pages = msg.pages
	m.filterPages()
	return m, nil
}

// filterPages filters the page list based on the search query
func (m *editorModel) filterPages() {
	m.lastFilter = m.input.Value()
	m.filtered = store.Search(m.pages, m.lastFilter)
	m.pageCursor = clamp(m.pageCursor, 0, max(0, len(m.filtered)-1))
}

func (m editorModel) updatePages(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c":
			return m, m.quit()
		case "esc":
			m.closePicker()
			return m, nil
		case "enter":
			if m.pageCursor < len(m.filtered) {
				p := m.filtered[m.pageCursor].Path
				m.closePicker()
				return m, m.navigate(p)
			}
			return m, nil
		case "up", "ctrl+p":
			m.pageCursor = clamp(m.pageCursor-1, 0, max(0, len(m.filtered)-1))
			return m, nil
		case "down", "ctrl+n":
			m.pageCursor = clamp(m.pageCursor+1, 0, max(0, len(m.filtered)-1))
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)

	// Only trigger debounced filter if query changed
	if m.input.Value() != m.lastFilter {
		return m, tea.Batch(cmd, debounceFilter())
	}
	return m, cmd
}

func (m *editorModel) closePicker() {
	m.input.Blur()
	m.input.SetValue("")
	m.input.Placeholder = ""
	m.phase = phaseView
	m.syncPhase()
}

// ============================================================================
// Pages and Persistence
// ============================================================================

// afterEdit schedules an autosave when the last operation changed the
// committed document
func (m *editorModel) afterEdit() tea.Cmd {
	ps := m.page
	if !ps.changed {
		return nil
	}
	ps.changed = false
	ps.save.Changed()
	ps.seq++
	return debounceAutosave(ps.seq, m.autosaveDelay)
}

// saveCmd writes the committed markdown in the background. One save per
// page runs at a time; a request during it is replayed when it settles.
func (m *editorModel) saveCmd() tea.Cmd {
	ps := m.page
	if !ps.save.Pending() {
		return nil
	}
	if ps.save.Status() == document.Saving {
		ps.resave = true
		return nil
	}
	rev := ps.save.Started()
	return m.writeCmd(ps.path, ps.doc.Markdown(), rev)
}

func (m *editorModel) writeCmd(path, markdown string, rev uint64) tea.Cmd {
	backend := m.backend
	message := commitMessage(m.commitMessage, path)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
		defer cancel()
		err := backend.Save(ctx, path, markdown, message)
		return savedMsg{path: path, rev: rev, err: err}
	}
}

// saveNow skips the debounce
func (m *editorModel) saveNow() tea.Cmd {
	m.page.seq++
	if !m.page.save.Pending() {
		m.setStatus("nothing to save", nil)
		return nil
	}
	return m.saveCmd()
}

func (m *editorModel) handleSaved(msg savedMsg) tea.Cmd {
	ps := m.page
	if msg.path != ps.path {
		// a page we navigated away from
		if msg.err != nil {
			m.setStatus("", fmt.Errorf("save %s: %w", msg.path, msg.err))
		}
		return m.quitIfDone()
	}

	ps.save.Settled(msg.rev, msg.err)
	if msg.err != nil {
		m.setStatus("", fmt.Errorf("save %s: %w", msg.path, msg.err))
		if m.quitting {
			return tea.Quit
		}
		return nil
	}
	m.log.Debug("page saved", "path", msg.path, "rev", msg.rev)
	if ps.resave || m.quitting {
		ps.resave = false
		if cmd := m.saveCmd(); cmd != nil {
			return cmd
		}
	}
	return m.quitIfDone()
}

func (m *editorModel) quitIfDone() tea.Cmd {
	if m.quitting && !m.page.save.Pending() {
		return tea.Quit
	}
	return nil
}

// quit commits the active block and exits once pending edits are saved
func (m *editorModel) quit() tea.Cmd {
	m.page.doc.Commit()
	m.syncPhase()
	m.afterEdit()
	m.quitting = true
	if !m.page.save.Pending() {
		return tea.Quit
	}
	if m.page.save.Status() == document.Saving {
		return nil
	}
	return m.saveCmd()
}

// navigate leaves the current page for path, remembering it for back
func (m *editorModel) navigate(path string) tea.Cmd {
	ps := m.page
	if path == ps.path {
		return nil
	}
	ps.history = append(ps.history, ps.path)
	return m.switchPage(path)
}

// switchPage saves what is pending on the current page, then loads path
func (m *editorModel) switchPage(path string) tea.Cmd {
	ps := m.page
	ps.doc.Commit()
	m.afterEdit()

	var flush tea.Cmd
	if ps.save.Pending() {
		flush = m.writeCmd(ps.path, ps.doc.Markdown(), ps.save.Started())
	}

	ps.path = path
	ps.save.Reset()
	ps.resave = false
	ps.seq++
	m.cursor, m.offset = 0, 0
	m.phase = phaseView
	if flush == nil {
		return m.loadCmd(path)
	}
	return tea.Sequence(flush, m.loadCmd(path))
}

func (m editorModel) loadCmd(path string) tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
		defer cancel()
		md, err := backend.Load(ctx, path)
		return pageLoadedMsg{path: path, markdown: md, err: err}
	}
}

func (m *editorModel) handleLoaded(msg pageLoadedMsg) {
	ps := m.page
	if msg.path != ps.path {
		return
	}
	res := ps.doc.LoadFrom(context.Background(), prefetched{msg.markdown, msg.err}, msg.path)
	ps.save.Reset()
	ps.changed = false
	m.cursor, m.offset = 0, 0
	m.syncPhase()

	switch res.Status {
	case document.NotFound:
		m.setStatus("new page, press enter to start writing", nil)
	case document.Failed:
		m.setStatus("", res.Err)
	default:
		m.setStatus("", nil)
	}
}

func (m editorModel) listCmd() tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
		defer cancel()
		pages, err := backend.List(ctx)
		return pagesMsg{pages: pages, err: err}
	}
}

// createCmd stores a new page titled title unless its path already exists,
// then opens it
func (m editorModel) createCmd(title string) tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		draft, err := store.NewPage(title, "")
		if err != nil {
			return statusMsg{err: err}
		}
		ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
		defer cancel()
		if _, err := backend.Load(ctx, draft.Path); err == nil {
			return navigateMsg{path: draft.Path}
		} else if !errors.Is(err, store.ErrNotFound) {
			return statusMsg{err: err}
		}
		if err := backend.Save(ctx, draft.Path, draft.Content, draft.Message); err != nil {
			return statusMsg{err: fmt.Errorf("create %s: %w", draft.Path, err)}
		}
		return navigateMsg{path: draft.Path}
	}
}

// commitMessage fills format with path when it has a verb for it
func commitMessage(format, path string) string {
	if format == "" {
		return "Update " + path
	}
	if strings.Contains(format, "%s") {
		return fmt.Sprintf(format, path)
	}
	return format
}
