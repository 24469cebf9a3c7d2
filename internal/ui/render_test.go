package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gubarz/pagemd/internal/blocks"
	"github.com/gubarz/pagemd/internal/inline"
	"github.com/gubarz/pagemd/internal/marks"
	"github.com/gubarz/pagemd/internal/session"
)

// Tests run without a terminal, so lipgloss renders plain text and only
// the visible characters are compared.

func TestRenderBlock(t *testing.T) {
	p := &inline.Parser{Palette: marks.DefaultPalette}
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"title marker stripped", "# Hello **world**", "Hello world"},
		{"caption", "> a caption", "a caption"},
		{"link text only", "see [docs](/docs) now", "see docs now"},
		{"download marker", "[Spec](!files/spec.pdf)", "Spec ⤓"},
		{"image label", "![a cat](cat.png)", "[image: a cat]"},
		{"image without alt", "![](cat.png)", "[image]"},
		{"colored text", "<red>warn</red> x", "warn x"},
		{"lines kept", "one\ntwo", "one\ntwo"},
		{"marker per line", "# Title\n## Sub\nplain", "Title\nSub\nplain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, renderBlock(blocks.Block{Raw: tt.raw}, p))
		})
	}
}

func TestRenderDraftCaret(t *testing.T) {
	p := &inline.Parser{Palette: marks.DefaultPalette}
	d := session.NewDraft("ab")
	assert.Equal(t, "ab ", renderDraft(d, p))

	d.SetCaret(1)
	assert.Equal(t, "ab", renderDraft(d, p))

	d = session.NewDraft("a\nb")
	d.SetCaret(1)
	assert.Equal(t, "a \nb", renderDraft(d, p))

	d = session.NewDraft("go [docs](/docs)")
	assert.Equal(t, "go docs ", renderDraft(d, p))

	// tags stay visible while typing
	d = session.NewDraft("<red>hi</red> x")
	assert.Equal(t, "<red>hi</red> x ", renderDraft(d, p))
}

func TestDraftLooks(t *testing.T) {
	p := &inline.Parser{Palette: marks.DefaultPalette}
	red := marks.DefaultPalette.Resolve("red")

	colors := func(d *session.Draft) []string {
		var out []string
		for _, l := range draftLooks(d, p) {
			out = append(out, l.color)
		}
		return out
	}

	// no boundary typed yet
	d := session.NewDraft("say <red>hi</red>")
	for _, c := range colors(d) {
		assert.Empty(t, c)
	}

	d.Insert(" ")
	got := colors(d)
	require.Len(t, got, 18)
	assert.Empty(t, got[3])
	for i := 4; i < 17; i++ {
		assert.Equal(t, red, got[i], "rune %d", i)
	}
	assert.Empty(t, got[17])

	// nested in emphasis
	got = colors(session.NewDraft("**<blue>b</blue> **"))
	assert.Empty(t, got[1])
	assert.Equal(t, marks.DefaultPalette.Resolve("blue"), got[2])

	custom := &inline.Parser{Palette: marks.Palette{"brand": "#010203"}}
	looks := draftLooks(session.NewDraft("<brand>x</brand> "), custom)
	assert.Equal(t, "#010203", looks[0].color)
}

func TestDraftLooksLineKinds(t *testing.T) {
	p := &inline.Parser{Palette: marks.DefaultPalette}
	looks := draftLooks(session.NewDraft("# T\nbody\n## S"), p)
	require.Len(t, looks, 13)
	assert.Equal(t, blocks.Title, looks[0].kind)
	assert.Equal(t, blocks.Title, looks[3].kind)
	assert.Equal(t, blocks.Body, looks[4].kind)
	assert.Equal(t, blocks.Heading2, looks[12].kind)
}

func TestLinkAtCaret(t *testing.T) {
	d := session.NewDraft("see [docs](/docs) here")
	d.SetCaret(0)
	_, ok := linkAtCaret(d)
	assert.False(t, ok)

	d.SetCaret(6)
	run, ok := linkAtCaret(d)
	assert.True(t, ok)
	assert.Equal(t, "/docs", run.Href)
	assert.Equal(t, "docs", run.Text)
}

func TestBlockLink(t *testing.T) {
	p := &inline.Parser{Palette: marks.DefaultPalette}

	l, ok := blockLink(blocks.Block{Raw: "plain\n**bold [x](!a.zip)**"}, p)
	assert.True(t, ok)
	assert.Equal(t, "a.zip", l.Href)
	assert.True(t, l.Download())

	_, ok = blockLink(blocks.Block{Raw: "no links"}, p)
	assert.False(t, ok)
}

func TestWrap(t *testing.T) {
	lines := wrap("aaaa bbbb cccc", 12, "> ", "  ")
	assert.Greater(t, len(lines), 1)
	assert.True(t, strings.HasPrefix(lines[0], "> "))
	for _, l := range lines[1:] {
		assert.True(t, strings.HasPrefix(l, "  "))
	}
}

func TestFollowWindow(t *testing.T) {
	tests := []struct {
		name       string
		top        int
		bottom     int
		total      int
		height     int
		offset     int
		wantStart  int
		wantEnd    int
		wantOffset int
	}{
		{"fits", 2, 4, 10, 5, 0, 0, 5, 0},
		{"scroll down", 8, 10, 10, 5, 0, 5, 10, 5},
		{"scroll up", 1, 2, 10, 5, 5, 1, 6, 1},
		{"taller than window keeps top", 2, 9, 10, 3, 0, 2, 5, 2},
		{"short document", 0, 1, 2, 5, 3, 0, 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			off := tt.offset
			start, end := followWindow(tt.top, tt.bottom, tt.total, tt.height, &off)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
			assert.Equal(t, tt.wantOffset, off)
		})
	}
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abcdefg...", truncateString("abcdefghijklmnop", 10))
	assert.Equal(t, "日本...", truncateString("日本語のテキスト", 7))
	assert.Equal(t, "abc", truncateString("abc", 2))
}

func TestParseANSIColor(t *testing.T) {
	tests := []struct {
		code     string
		expected string
	}{
		{"31", "1"},
		{"90", "8"},
		{"212", "212"},
		{"#ff0000", "#ff0000"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(parseANSIColor(tt.code)))
		})
	}
}
