package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gubarz/pagemd/internal/inline"
)

func TestNewDraftCollapsesLinks(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		text string
	}{
		{"plain", "hello", "hello"},
		{"link", "a [x](/y) b", "a x b"},
		{"download", "get [file](!/a.pdf)", "get file"},
		{"image stays literal", "![alt](/i.png)", "![alt](/i.png)"},
		{"empty text stays literal", "[](/y)", "[](/y)"},
		{"bold kept literal", "**b** [l](/x)", "**b** l"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDraft(tt.raw)
			assert.Equal(t, tt.text, d.Text())
			assert.Equal(t, tt.raw, d.Markdown())
			assert.Equal(t, d.Len(), d.Caret())
		})
	}
}

func TestInsertInsideLinkExtendsIt(t *testing.T) {
	d := NewDraft("[docs](/d)")
	d.SetCaret(2)
	d.Insert("X")
	assert.Equal(t, "[doXcs](/d)", d.Markdown())

	// brackets would break the markdown form, so they stay outside
	d.Insert("]")
	assert.Equal(t, "[doX](/d)][cs](/d)", d.Markdown())
}

func TestInsertAtLinkEdgeStaysPlain(t *testing.T) {
	d := NewDraft("[docs](/d)")
	d.Insert("!")
	assert.Equal(t, "[docs](/d)!", d.Markdown())

	d.SetCaret(0)
	d.Insert("<")
	assert.Equal(t, "<[docs](/d)!", d.Markdown())
}

func TestImageSyntaxDoesNotCollapse(t *testing.T) {
	d := NewDraft("")
	d.Insert("![alt](/i.png)")
	d.Insert(" ")
	assert.Equal(t, "![alt](/i.png) ", d.Text())
}

func TestInsertLink(t *testing.T) {
	d := NewDraft("see ")
	require.True(t, d.InsertLink("the docs", "/docs", false))
	assert.Equal(t, "see the docs", d.Text())
	assert.Equal(t, "see [the docs](/docs)", d.Markdown())

	// brackets are removed from the text, whitespace from the href
	d = NewDraft("")
	require.True(t, d.InsertLink("a]b", "/x y", true))
	assert.Equal(t, "[ab](!/xy)", d.Markdown())

	// empty text falls back to the href
	d = NewDraft("")
	require.True(t, d.InsertLink("", "https://example.com", false))
	assert.Equal(t, "https://example.com", d.Text())

	assert.False(t, NewDraft("").InsertLink("x", "!", true))
}

func hasLink(spans []inline.Span) bool {
	for _, sp := range spans {
		if _, ok := sp.(inline.Link); ok {
			return true
		}
	}
	return false
}

func TestInsertLinkAfterBang(t *testing.T) {
	d := NewDraft("Wow!")
	require.True(t, d.InsertLink("docs", "docs/file.pdf", false))
	assert.Equal(t, "Wow! [docs](docs/file.pdf)", d.Markdown())
	assert.Equal(t, d.Len(), d.Caret())
	assert.True(t, hasLink(inline.Parse(d.Markdown())))
}

func TestBangBeforeLinkKeepsLink(t *testing.T) {
	d := NewDraft("[docs](/d)")
	d.SetCaret(0)
	d.Insert("!")
	assert.Equal(t, "! [docs](/d)", d.Markdown())
	assert.Equal(t, 1, d.Caret())
	assert.True(t, hasLink(inline.Parse(d.Markdown())))

	// deleting the separator puts it back
	d.SetCaret(2)
	d.Backspace()
	assert.Equal(t, "! [docs](/d)", d.Markdown())
	assert.True(t, hasLink(inline.Parse(d.Markdown())))

	merged := NewDraft("Wow!")
	merged.Append(NewDraft("[docs](/d)"))
	assert.Equal(t, "Wow! [docs](/d)", merged.Markdown())
}

func TestInsertLinkRefusedWhenSwallowed(t *testing.T) {
	// the link text would close the italic run opened before it
	d := NewDraft("*x")
	assert.False(t, d.InsertLink("y*", "/h", false))
	assert.Equal(t, "*x", d.Markdown())
	assert.Equal(t, 2, d.Caret())

	d = NewDraft("*x* and ")
	require.True(t, d.InsertLink("y", "/h", false))
	assert.Equal(t, "*x* and [y](/h)", d.Markdown())
}

func TestInsertLinkInsideLinkSnapsOut(t *testing.T) {
	d := NewDraft("[ab](/a)")
	d.SetCaret(1)
	require.True(t, d.InsertLink("c", "/c", false))
	assert.Equal(t, "[ab](/a)[c](/c)", d.Markdown())
}

func TestBackspaceRehydratesLink(t *testing.T) {
	d := NewDraft("go [home](/landing)")
	require.True(t, d.Backspace())
	assert.Equal(t, "go [home](/landing)", d.Text())
	assert.Equal(t, d.Len(), d.Caret())

	// the literal is now ordinary text
	d.Backspace()
	assert.Equal(t, "go [home](/landing", d.Text())
}

func TestBackspaceInsideLinkDeletesRune(t *testing.T) {
	d := NewDraft("[home](/landing)")
	d.SetCaret(2)
	d.Backspace()
	assert.Equal(t, "[hme](/landing)", d.Markdown())
	assert.Equal(t, 1, d.Caret())
}

func TestBackspaceAtStart(t *testing.T) {
	d := NewDraft("abc")
	d.SetCaret(0)
	assert.False(t, d.Backspace())
	assert.Equal(t, "abc", d.Text())
}

func TestDeleteForward(t *testing.T) {
	d := NewDraft("abc")
	d.SetCaret(1)
	assert.True(t, d.DeleteForward())
	assert.Equal(t, "ac", d.Text())
	d.End()
	assert.False(t, d.DeleteForward())
}

func TestCaretNavigation(t *testing.T) {
	d := NewDraft("first line\nsecond\nthird line")
	d.SetCaret(3)

	require.True(t, d.MoveLine(1))
	assert.Equal(t, 14, d.Caret()) // "sec|ond"

	require.True(t, d.MoveLine(1))
	assert.Equal(t, 21, d.Caret()) // "thi|rd line"

	assert.False(t, d.MoveLine(1))

	d.SetCaret(9)
	require.True(t, d.MoveLine(1))
	assert.Equal(t, 17, d.Caret(), "column clamps to the shorter line")

	d.Home()
	assert.Equal(t, 11, d.Caret())
	d.End()
	assert.Equal(t, 17, d.Caret())

	d.Move(-100)
	assert.Equal(t, 0, d.Caret())
	d.Move(100)
	assert.Equal(t, d.Len(), d.Caret())
}

func TestSplitAndAppend(t *testing.T) {
	d := NewDraft("ab [cd](/x) ef")
	d.SetCaret(4)
	before, after := d.Split()
	assert.Equal(t, "ab [cd](/x)", before)
	assert.Equal(t, " ef", after)
	assert.Equal(t, d.Markdown(), before+after)

	joined := NewDraft(before)
	joined.Append(NewDraft(after))
	assert.Equal(t, d.Markdown(), joined.Markdown())
}

func TestOnlySpaceAfterCaret(t *testing.T) {
	d := NewDraft("abc  \n ")
	d.SetCaret(3)
	assert.True(t, d.OnlySpaceAfterCaret())
	d.SetCaret(2)
	assert.False(t, d.OnlySpaceAfterCaret())
}

func TestRuns(t *testing.T) {
	d := NewDraft("a [b](!/f.zip) c")
	runs := d.Runs()
	require.Len(t, runs, 3)
	assert.Equal(t, Run{Text: "a ", Start: 0}, runs[0])
	assert.Equal(t, Run{Text: "b", Start: 2, Link: true, Href: "/f.zip", Download: true}, runs[1])
	assert.Equal(t, Run{Text: " c", Start: 3}, runs[2])
}
