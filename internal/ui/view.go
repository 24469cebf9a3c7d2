package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View implements tea.Model
func (m editorModel) View() string {
	if m.quitting {
		return ""
	}
	if m.phase == phasePages {
		return m.renderPages()
	}
	return m.renderPage()
}

func (m editorModel) size() (int, int) {
	return max(m.width, 40), max(m.height, 10)
}

// renderPage builds the block view of the current page
func (m editorModel) renderPage() string {
	width, height := m.size()

	header := m.renderHeader(width)
	footer := m.renderFooter(width)
	bodyHeight := max(height-lipgloss.Height(header)-lipgloss.Height(footer), 3)

	lines, top, bottom := m.bodyLines(width)
	start, end := followWindow(top, bottom, len(lines), bodyHeight, &m.offset)

	b := getBuilder()
	defer putBuilder(b)
	b.WriteString(header)
	b.WriteString("\n")
	shown := 0
	for i := start; i < end; i++ {
		b.WriteString(lines[i])
		b.WriteString("\n")
		shown++
	}
	b.WriteString(strings.Repeat("\n", max(bodyHeight-shown, 0)))
	b.WriteString(footer)
	return b.String()
}

// bodyLines renders every block and reports the line span of the selected one
func (m editorModel) bodyLines(width int) (lines []string, top, bottom int) {
	doc := m.page.doc
	bs := doc.Blocks()
	if len(bs) == 0 {
		return []string{styles.Dim.Render("  empty page, press enter to write")}, 0, 1
	}

	editing, draft, isEditing := doc.Editing()
	for i, blk := range bs {
		if i > 0 {
			lines = append(lines, "")
		}
		selected := i == m.cursor
		gutter, rest := "  ", "  "
		if selected {
			gutter = styles.Gutter.Render("▌ ")
			rest = gutter
		}

		var body string
		if isEditing && i == editing {
			body = renderDraft(draft, m.parser)
		} else {
			body = renderBlock(blk, m.parser)
		}

		if selected {
			top = len(lines)
		}
		lines = append(lines, wrap(body, width, gutter, rest)...)
		if selected {
			bottom = len(lines)
		}
	}
	return lines, top, bottom
}

// renderHeader renders the page path and save status
func (m editorModel) renderHeader(width int) string {
	status := m.page.save.Status().String()
	statusStyle := styles.Status
	if m.page.save.Err() != nil {
		status = "save failed"
		statusStyle = styles.Error
	}
	mode := m.page.doc.State().String()
	right := mode + " • " + status

	title := truncateString(m.page.path, max(width-lipgloss.Width(right)-3, 4))
	gap := max(width-lipgloss.Width(title)-lipgloss.Width(right)-1, 1)

	b := getBuilder()
	defer putBuilder(b)
	b.WriteString(styles.Title.Render(" " + title))
	b.WriteString(strings.Repeat(" ", gap))
	b.WriteString(statusStyle.Render(right))
	b.WriteString("\n")
	b.WriteString(styles.Divider.Render(strings.Repeat("─", width)))
	return b.String()
}

// renderFooter renders the status line and, in the prompt phase, the input
func (m editorModel) renderFooter(width int) string {
	b := getBuilder()
	defer putBuilder(b)
	b.WriteString(styles.Divider.Render(strings.Repeat("─", width)))
	b.WriteString("\n")

	switch {
	case m.phase == phasePrompt:
		b.WriteString(m.input.View())
		return b.String()
	case m.status != "" && m.errored:
		b.WriteString(styles.Error.Render("  " + truncateString(m.status, width-2)))
	case m.status != "":
		b.WriteString(styles.Status.Render("  " + truncateString(m.status, width-2)))
	default:
		b.WriteString(styles.Dim.Render("  " + truncateString(m.hints(), width-2)))
	}
	return b.String()
}

func (m editorModel) hints() string {
	if m.phase == phaseEdit {
		return "Esc discard • Tab done • Enter split • Alt+Enter newline • Ctrl+K link • Ctrl+S save"
	}
	return "Enter edit • o new block • f follow • / pages • Ctrl+N new page • b back • q quit"
}

// renderPages renders the page picker
func (m editorModel) renderPages() string {
	width, height := m.size()
	listHeight := max(height-4, 3)

	b := getBuilder()
	defer putBuilder(b)
	b.WriteString(styles.Title.Render(" Pages"))
	b.WriteString("\n")
	b.WriteString(styles.Divider.Render(strings.Repeat("─", width)))
	b.WriteString("\n")

	start, end := followWindow(m.pageCursor, m.pageCursor+1, len(m.filtered), listHeight, &m.pageOffset)
	sectionWidth, titleWidth := pageColumns(m, start, end)
	for i := start; i < end; i++ {
		p := m.filtered[i]
		line := padRight(truncateString(p.Section, sectionWidth), sectionWidth) + "  " +
			padRight(truncateString(p.Title, titleWidth), titleWidth) + "  " + p.Path
		line = truncateString(line, width-2)
		if i == m.pageCursor {
			b.WriteString(styles.Gutter.Render("▶ ") + styles.Selected.Render(line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	b.WriteString(strings.Repeat("\n", max(listHeight-(end-start), 0)))

	b.WriteString(styles.Dim.Render(fmt.Sprintf("  %d/%d", len(m.filtered), len(m.pages))))
	b.WriteString(" • ")
	b.WriteString(styles.Dim.Render("Enter open • ESC back"))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	return b.String()
}

// pageColumns sizes the section and title columns to the visible rows
func pageColumns(m editorModel, start, end int) (section, title int) {
	for _, p := range m.filtered[start:end] {
		section = max(section, lipgloss.Width(p.Section))
		title = max(title, lipgloss.Width(p.Title))
	}
	return min(section, 20), min(title, 40)
}
