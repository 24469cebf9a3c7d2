package ui

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/gubarz/pagemd/internal/blocks"
	"github.com/gubarz/pagemd/internal/inline"
	"github.com/gubarz/pagemd/internal/marks"
	"github.com/gubarz/pagemd/internal/session"
)

// ============================================================================
// Committed blocks
// ============================================================================

// renderBlock draws a committed block, one terminal line per block line.
// Each line is styled by its own marker.
func renderBlock(b blocks.Block, p *inline.Parser) string {
	lines := b.Lines()
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = renderSpans(p.Parse(blocks.StripMarker(line)), styles.ForKind(blocks.LineKind(line)))
	}
	return strings.Join(out, "\n")
}

// renderSpans draws inline spans on top of base
func renderSpans(spans []inline.Span, base lipgloss.Style) string {
	b := getBuilder()
	defer putBuilder(b)
	writeSpans(b, spans, base)
	return b.String()
}

func writeSpans(b *strings.Builder, spans []inline.Span, st lipgloss.Style) {
	for _, sp := range spans {
		switch s := sp.(type) {
		case inline.Text:
			if s.Value != "" {
				b.WriteString(st.Render(s.Value))
			}
		case inline.Emphasis:
			if s.Style == inline.Bold {
				writeSpans(b, s.Children, st.Bold(true))
			} else {
				writeSpans(b, s.Children, st.Italic(true))
			}
		case inline.Link:
			writeSpans(b, s.Children, linkStyle(s.Download()).Inherit(st))
			if s.Download() {
				b.WriteString(styles.Dim.Render(" ⤓"))
			}
		case inline.ColoredText:
			writeSpans(b, s.Children, st.Foreground(lipgloss.Color(s.Color)))
		case inline.Image:
			label := "[image]"
			if caption, ok := marks.Caption(s.Alt); ok {
				label = "[image: " + caption + "]"
			}
			b.WriteString(styles.Image.Inherit(st).Render(label))
		}
	}
}

func linkStyle(download bool) lipgloss.Style {
	if download {
		return styles.Download
	}
	return styles.Link
}

// firstLink returns the first link of a block, searching nested spans
func firstLink(spans []inline.Span) (inline.Link, bool) {
	for _, sp := range spans {
		switch s := sp.(type) {
		case inline.Link:
			return s, true
		case inline.Emphasis:
			if l, ok := firstLink(s.Children); ok {
				return l, true
			}
		case inline.ColoredText:
			if l, ok := firstLink(s.Children); ok {
				return l, true
			}
		}
	}
	return inline.Link{}, false
}

// blockLink returns the first link anywhere in b
func blockLink(b blocks.Block, p *inline.Parser) (inline.Link, bool) {
	for _, line := range b.Lines() {
		if l, ok := firstLink(p.Parse(blocks.StripMarker(line))); ok {
			return l, true
		}
	}
	return inline.Link{}, false
}

// ============================================================================
// Draft
// ============================================================================

// cellLook is how one draft rune is drawn apart from link highlighting
type cellLook struct {
	kind  blocks.Kind
	color string
}

// renderDraft draws the draft as typed, collapsed links highlighted and the
// caret shown as a reversed cell. Colored text shows its color as soon as
// its closing tag and a boundary have been typed.
func renderDraft(d *session.Draft, p *inline.Parser) string {
	looks := draftLooks(d, p)
	caret := d.Caret()

	b := getBuilder()
	defer putBuilder(b)
	placed := false
	for _, run := range d.Runs() {
		rs := []rune(run.Text)
		for i := 0; i < len(rs); {
			pos := run.Start + i
			st := lookStyle(looks[pos], run)
			if pos == caret {
				writeCaret(b, rs[i], st)
				placed = true
				i++
				continue
			}
			j := i + 1
			for j < len(rs) && looks[run.Start+j] == looks[pos] && run.Start+j != caret {
				j++
			}
			writeDraftText(b, string(rs[i:j]), st)
			i = j
		}
	}
	if !placed {
		b.WriteString(styles.Caret.Render(" "))
	}
	return b.String()
}

func lookStyle(l cellLook, run session.Run) lipgloss.Style {
	st := styles.ForKind(l.kind)
	if run.Link {
		st = linkStyle(run.Download).Inherit(st)
	}
	if l.color != "" {
		st = st.Foreground(lipgloss.Color(l.color))
	}
	return st
}

// draftLooks gives every draft rune the kind of its line and the color of
// any live colored text around it
func draftLooks(d *session.Draft, p *inline.Parser) []cellLook {
	looks := make([]cellLook, d.Len())
	rs := []rune(d.Text())
	for start := 0; start <= len(rs); {
		end := start
		for end < len(rs) && rs[end] != '\n' {
			end++
		}
		k := blocks.LineKind(string(rs[start:end]))
		for i := start; i < end; i++ {
			looks[i].kind = k
		}
		if end < len(rs) {
			looks[end].kind = k
		}
		start = end + 1
	}

	for _, run := range d.Runs() {
		if !run.Link {
			markColors(looks, run.Start, p.ParseLive(run.Text))
		}
	}
	return looks
}

// markColors records the color of colored text spans, tags included, at
// rune offset start
func markColors(looks []cellLook, start int, spans []inline.Span) {
	for _, sp := range spans {
		n := utf8.RuneCountInString(inline.Serialize([]inline.Span{sp}))
		switch s := sp.(type) {
		case inline.ColoredText:
			for i := start; i < start+n; i++ {
				looks[i].color = s.Color
			}
		case inline.Emphasis:
			marker := 1
			if s.Style == inline.Bold {
				marker = 2
			}
			markColors(looks, start+marker, s.Children)
		case inline.Link:
			markColors(looks, start+1, s.Children)
		}
		start += n
	}
}

func writeDraftText(b *strings.Builder, s string, st lipgloss.Style) {
	for i, line := range strings.Split(s, "\n") {
		if i > 0 {
			b.WriteByte('\n')
		}
		if line != "" {
			b.WriteString(st.Render(line))
		}
	}
}

func writeCaret(b *strings.Builder, r rune, st lipgloss.Style) {
	if r == '\n' {
		b.WriteString(styles.Caret.Render(" "))
		b.WriteByte('\n')
		return
	}
	b.WriteString(styles.Caret.Inherit(st).Render(string(r)))
}

// linkAtCaret returns the collapsed link touching the caret
func linkAtCaret(d *session.Draft) (session.Run, bool) {
	caret := d.Caret()
	for _, run := range d.Runs() {
		if !run.Link {
			continue
		}
		end := run.Start + len([]rune(run.Text))
		if caret >= run.Start && caret <= end {
			return run, true
		}
	}
	return session.Run{}, false
}

// ============================================================================
// Layout
// ============================================================================

// wrap soft-wraps rendered text to width and prefixes every line with
// gutter; rest is used for continuation lines
func wrap(s string, width int, gutter, rest string) []string {
	inner := max(width-lipgloss.Width(gutter), 10)
	wrapped := lipgloss.NewStyle().Width(inner).Render(s)
	lines := strings.Split(wrapped, "\n")
	for i, line := range lines {
		if i == 0 {
			lines[i] = gutter + line
		} else {
			lines[i] = rest + line
		}
	}
	return lines
}

// followWindow moves offset so lines [top, bottom) stay visible in height
// rows, preferring the top when the range does not fit
func followWindow(top, bottom, total, height int, offset *int) (start, end int) {
	if bottom > *offset+height {
		*offset = bottom - height
	}
	if top < *offset {
		*offset = top
	}
	*offset = clamp(*offset, 0, max(0, total-height))
	start = *offset
	end = min(start+height, total)
	return
}
