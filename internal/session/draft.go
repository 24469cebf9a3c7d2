package session

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gubarz/pagemd/internal/inline"
	"github.com/gubarz/pagemd/internal/marks"
)

// linkMark is the mark carried by every rune of a collapsed link.
// Runes belong to the same link when they share the same *linkMark.
type linkMark struct {
	href     string
	download bool
}

type cell struct {
	r    rune
	link *linkMark
}

// Draft is the in-progress text of the block being edited. Links are shown
// collapsed (only their text is visible) and expand back into markdown on
// serialization.
type Draft struct {
	cells []cell
	caret int
}

// NewDraft builds a draft from committed block text with the caret at the
// end. Top-level links are collapsed; everything else stays literal.
func NewDraft(raw string) *Draft {
	d := &Draft{}
	for _, sp := range inline.Parse(raw) {
		l, ok := sp.(inline.Link)
		text := inline.Serialize(l.Children)
		if !ok || text == "" {
			d.appendLiteral(inline.Serialize([]inline.Span{sp}))
			continue
		}
		m := &linkMark{href: l.Href, download: l.Download()}
		for _, r := range text {
			d.cells = append(d.cells, cell{r: r, link: m})
		}
	}
	d.caret = len(d.cells)
	return d
}

func (d *Draft) appendLiteral(s string) {
	for _, r := range s {
		d.cells = append(d.cells, cell{r: r})
	}
}

func literalCells(s string) []cell {
	out := make([]cell, 0, utf8.RuneCountInString(s))
	for _, r := range s {
		out = append(out, cell{r: r})
	}
	return out
}

// Len is the number of visible runes
func (d *Draft) Len() int { return len(d.cells) }

// Caret is the caret position in visible runes
func (d *Draft) Caret() int { return d.caret }

// SetCaret moves the caret, clamped to the draft
func (d *Draft) SetCaret(pos int) {
	d.caret = max(0, min(pos, len(d.cells)))
}

// Move shifts the caret by delta runes
func (d *Draft) Move(delta int) { d.SetCaret(d.caret + delta) }

// Home moves the caret to the start of its line
func (d *Draft) Home() {
	for d.caret > 0 && d.cells[d.caret-1].r != '\n' {
		d.caret--
	}
}

// End moves the caret to the end of its line
func (d *Draft) End() {
	for d.caret < len(d.cells) && d.cells[d.caret].r != '\n' {
		d.caret++
	}
}

// MoveLine moves the caret to the same column of another line. It reports
// false when there is no line in that direction.
func (d *Draft) MoveLine(delta int) bool {
	starts := []int{0}
	for i, c := range d.cells {
		if c.r == '\n' {
			starts = append(starts, i+1)
		}
	}
	line := 0
	for line+1 < len(starts) && starts[line+1] <= d.caret {
		line++
	}
	target := line + delta
	if target < 0 || target >= len(starts) {
		return false
	}
	col := d.caret - starts[line]
	end := len(d.cells)
	if target+1 < len(starts) {
		end = starts[target+1] - 1
	}
	d.caret = min(starts[target]+col, end)
	return true
}

// Text is the visible text, links collapsed to their text
func (d *Draft) Text() string {
	var b strings.Builder
	for _, c := range d.cells {
		b.WriteRune(c.r)
	}
	return b.String()
}

// Markdown serializes the draft, expanding collapsed links
func (d *Draft) Markdown() string {
	return serializeCells(d.cells)
}

func serializeCells(cells []cell) string {
	var b strings.Builder
	for i := 0; i < len(cells); {
		m := cells[i].link
		if m == nil {
			b.WriteRune(cells[i].r)
			i++
			continue
		}
		var text strings.Builder
		for i < len(cells) && cells[i].link == m {
			text.WriteRune(cells[i].r)
			i++
		}
		b.WriteString(marks.EncodeLink(text.String(), m.href, m.download))
	}
	return b.String()
}

// Empty reports whether the serialized draft is blank
func (d *Draft) Empty() bool {
	return strings.TrimSpace(d.Markdown()) == ""
}

// OnlySpaceAfterCaret reports whether nothing but whitespace follows the caret
func (d *Draft) OnlySpaceAfterCaret() bool {
	for _, c := range d.cells[d.caret:] {
		if !unicode.IsSpace(c.r) {
			return false
		}
	}
	return true
}

// insideLink returns the link mark shared by both sides of pos, if any
func (d *Draft) insideLink(pos int) *linkMark {
	if pos <= 0 || pos >= len(d.cells) {
		return nil
	}
	if m := d.cells[pos-1].link; m != nil && m == d.cells[pos].link {
		return m
	}
	return nil
}

// Insert types s at the caret. Text typed strictly inside a link joins the
// link. Typing whitespace right after a literal [text](href) collapses it.
func (d *Draft) Insert(s string) {
	if s == "" {
		return
	}
	m := d.insideLink(d.caret)
	ins := make([]cell, 0, len(s))
	for _, r := range s {
		c := cell{r: r, link: m}
		if r == '[' || r == ']' || r == '\n' {
			c.link = nil // would break the link's markdown form
		}
		ins = append(ins, c)
	}
	d.splice(d.caret, d.caret, ins)
	d.caret += len(ins)

	last, _ := utf8.DecodeLastRuneInString(s)
	if m == nil && unicode.IsSpace(last) {
		d.collapseLinkBefore(d.caret - 1)
	}
	d.separateLinks()
}

// splice replaces cells[from:to] with repl
func (d *Draft) splice(from, to int, repl []cell) {
	out := make([]cell, 0, len(d.cells)-(to-from)+len(repl))
	out = append(out, d.cells[:from]...)
	out = append(out, repl...)
	out = append(out, d.cells[to:]...)
	d.cells = out
}

var trailingLinkRe = regexp.MustCompile(`\[[^\]\[]+\]\([^)\s]+\)$`)

// collapseLinkBefore turns a literal link ending right before pos into a
// collapsed link, moving the caret accordingly.
func (d *Draft) collapseLinkBefore(pos int) {
	start := pos
	for start > 0 && d.cells[start-1].link == nil {
		start--
	}
	run := serializeCells(d.cells[start:pos])
	loc := trailingLinkRe.FindStringIndex(run)
	if loc == nil {
		return
	}
	if loc[0] > 0 && run[loc[0]-1] == '!' {
		return // image syntax
	}
	lm, ok := marks.MatchLink(run[loc[0]:])
	if !ok {
		return
	}
	from := start + utf8.RuneCountInString(run[:loc[0]])
	m := &linkMark{href: lm.Href, download: lm.Download}
	repl := make([]cell, 0, len(lm.Text))
	for _, r := range lm.Text {
		repl = append(repl, cell{r: r, link: m})
	}
	d.splice(from, pos, repl)
	d.caret -= (pos - from) - len(repl)
}

// InsertLink inserts a collapsed link at the caret. A caret inside an
// existing link is first moved to that link's end. It reports false, leaving
// the draft unchanged, when the link would not read back as a link in its
// surrounding text.
func (d *Draft) InsertLink(text, href string, download bool) bool {
	l, ok := inline.NewLink(text, href, download)
	if !ok {
		return false
	}
	label := inline.Serialize(l.Children)
	if label == "" {
		label = l.Href
	}
	d.snapOutOfLink()
	prevCells, prevCaret := d.cells, d.caret
	kept := survivingLinks(d.cells)

	m := &linkMark{href: l.Href, download: l.Download()}
	ins := make([]cell, 0, len(label))
	for _, r := range label {
		ins = append(ins, cell{r: r, link: m})
	}
	d.splice(d.caret, d.caret, ins)
	d.caret += len(ins)
	d.separateLinks()

	if survivingLinks(d.cells) != kept+1 {
		d.cells, d.caret = prevCells, prevCaret
		return false
	}
	return true
}

// separateLinks puts a space between a literal '!' and a collapsed link
// starting right after it, which would otherwise serialize as an image.
func (d *Draft) separateLinks() {
	for i := 1; i < len(d.cells); i++ {
		prev := d.cells[i-1]
		if d.cells[i].link == nil || prev.link != nil || prev.r != '!' {
			continue
		}
		d.splice(i, i, []cell{{r: ' '}})
		if d.caret > i {
			d.caret++
		}
	}
}

// survivingLinks counts the collapsed links that parse back, in order, as
// top-level links with the same text and target.
func survivingLinks(cells []cell) int {
	type want struct {
		text, href string
		download   bool
	}
	var wanted []want
	for i := 0; i < len(cells); {
		m := cells[i].link
		if m == nil {
			i++
			continue
		}
		var text strings.Builder
		for i < len(cells) && cells[i].link == m {
			text.WriteRune(cells[i].r)
			i++
		}
		wanted = append(wanted, want{text.String(), m.href, m.download})
	}

	n := 0
	for _, sp := range inline.Parse(serializeCells(cells)) {
		l, ok := sp.(inline.Link)
		if !ok || n >= len(wanted) {
			continue
		}
		w := wanted[n]
		if inline.Serialize(l.Children) == w.text && l.Href == w.href && l.Download() == w.download {
			n++
		}
	}
	return n
}

// Backspace deletes backwards. When the caret sits right after a collapsed
// link, or after a link and one space, the link is expanded back into its
// markdown source instead and the caret is placed at the end of it.
func (d *Draft) Backspace() bool {
	if start, end, ok := d.linkBeforeCaret(); ok {
		d.rehydrate(start, end)
		return true
	}
	if d.caret == 0 {
		return false
	}
	d.splice(d.caret-1, d.caret, nil)
	d.caret--
	d.separateLinks()
	return true
}

// DeleteForward deletes the rune after the caret
func (d *Draft) DeleteForward() bool {
	if d.caret >= len(d.cells) {
		return false
	}
	d.splice(d.caret, d.caret+1, nil)
	d.separateLinks()
	return true
}

// linkBeforeCaret finds the range of a collapsed link ending at the caret
// (optionally followed by a single space) while the caret is outside it.
func (d *Draft) linkBeforeCaret() (start, end int, ok bool) {
	end = d.caret
	if end >= 2 && d.cells[end-1].link == nil && d.cells[end-1].r == ' ' && d.cells[end-2].link != nil {
		end--
	}
	if end == 0 || d.cells[end-1].link == nil {
		return 0, 0, false
	}
	m := d.cells[end-1].link
	if d.caret < len(d.cells) && d.cells[d.caret].link == m {
		return 0, 0, false
	}
	start = end - 1
	for start > 0 && d.cells[start-1].link == m {
		start--
	}
	return start, end, true
}

func (d *Draft) rehydrate(start, end int) {
	src := serializeCells(d.cells[start:end])
	repl := literalCells(src)
	d.splice(start, end, repl)
	d.caret = start + len(repl)
}

// snapOutOfLink moves a caret inside a collapsed link to the link's end
func (d *Draft) snapOutOfLink() {
	m := d.insideLink(d.caret)
	if m == nil {
		return
	}
	for d.caret < len(d.cells) && d.cells[d.caret].link == m {
		d.caret++
	}
}

// Split cuts the draft at the caret. before+after always equals Markdown().
func (d *Draft) Split() (before, after string) {
	d.snapOutOfLink()
	return serializeCells(d.cells[:d.caret]), serializeCells(d.cells[d.caret:])
}

// Append adds the content of other after this draft, keeping its marks.
// The caret does not move.
func (d *Draft) Append(other *Draft) {
	d.cells = append(d.cells, other.cells...)
	d.separateLinks()
}

// Run is a piece of visible draft text with uniform link state
type Run struct {
	Text     string
	Start    int // offset of the first rune
	Link     bool
	Href     string
	Download bool
}

// Runs groups the draft into runs for rendering
func (d *Draft) Runs() []Run {
	var out []Run
	for i := 0; i < len(d.cells); {
		m := d.cells[i].link
		start := i
		var b strings.Builder
		for i < len(d.cells) && d.cells[i].link == m {
			b.WriteRune(d.cells[i].r)
			i++
		}
		r := Run{Text: b.String(), Start: start}
		if m != nil {
			r.Link, r.Href, r.Download = true, m.href, m.download
		}
		out = append(out, r)
	}
	return out
}
