package blocks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind(t *testing.T) {
	tests := []struct {
		raw      string
		expected Kind
		content  string
	}{
		{"# Title", Title, "Title"},
		{"## Sub", Heading2, "Sub"},
		{"### Small", Heading3, "Small"},
		{"> caption text", Caption, "caption text"},
		{"plain", Body, "plain"},
		{"#no space", Body, "#no space"},
		{"#### four", Body, "#### four"},
		{"  # indented", Title, "indented"},
		{"  indented body", Body, "  indented body"},
		{"# Title\nbody line", Title, "Title\nbody line"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			b := New(tt.raw)
			assert.Equal(t, tt.expected, b.Kind())
			assert.Equal(t, tt.content, b.Content())
		})
	}
}

func TestKindFollowsRaw(t *testing.T) {
	b := New("# Title")
	b.Raw = "plain now"
	assert.Equal(t, Body, b.Kind())
}

func TestSegmentSections(t *testing.T) {
	s := Segmenter{Policy: Sections}
	md := "# Title\r\n\r\nfirst line\nsecond line\n\n\n\n\nlast  \n"
	assert.Equal(t, []string{"# Title", "first line\nsecond line", "last"}, Texts(s.Segment(md)))

	// whitespace-only lines stay inside a section
	assert.Equal(t, []string{"a\n   \nb"}, Texts(s.Segment("a\n   \nb")))
}

func TestSegmentLines(t *testing.T) {
	s := Segmenter{Policy: Lines}
	md := "# Title\n\n  \nfirst\nsecond   \r\nthird"
	assert.Equal(t, []string{"# Title", "first", "second", "third"}, Texts(s.Segment(md)))
}

func TestSegmentEmpty(t *testing.T) {
	for _, p := range []Policy{Sections, Lines} {
		s := Segmenter{Policy: p}
		assert.Empty(t, s.Segment(""))
		assert.Empty(t, s.Segment("\n\n   \n"))
		assert.Equal(t, "", s.Join(nil))
	}
}

func TestJoinRoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"one",
		"# Title\n\nBody **bold**\n\n> caption",
		"a\n\n\nb\n\n\n\n\n\nc",
		"  indented\n\n\tTabbed\n",
		"x\r\ny\r\n\r\nz",
		"lines\n  \nwith blanks",
	}

	for _, p := range []Policy{Sections, Lines} {
		s := Segmenter{Policy: p}
		for _, md := range inputs {
			t.Run(p.String()+"/"+md, func(t *testing.T) {
				first := s.Segment(md)
				joined := s.Join(first)
				second := s.Segment(joined)
				assert.True(t, Equal(first, second), "first=%q second=%q", Texts(first), Texts(second))
				assert.Equal(t, joined, s.Join(second))
			})
		}
	}
}

func TestJoinSkipsEmptyBlocks(t *testing.T) {
	s := Segmenter{Policy: Sections}
	out := s.Join([]Block{New("a"), New(""), New("  "), New("b")})
	assert.Equal(t, "a\n\nb\n", out)
}

func TestSegmentAssignsIDs(t *testing.T) {
	s := Segmenter{Policy: Lines}
	bs := s.Segment("a\nb")
	require.Len(t, bs, 2)
	assert.NotEmpty(t, bs[0].ID)
	assert.NotEqual(t, bs[0].ID, bs[1].ID)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("Lines")
	require.NoError(t, err)
	assert.Equal(t, Lines, p)

	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, Sections, p)

	_, err = ParsePolicy("paragraphs")
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}

func TestJoinNormalizesBlocks(t *testing.T) {
	s := Segmenter{Policy: Sections}
	out := s.Join([]Block{New("hello   "), New("\nworld"), New("two\n\nparts")})
	assert.Equal(t, "hello\n\nworld\n\ntwo\n\nparts\n", out)
	assert.Equal(t, out, s.Join(s.Segment(out)))
}
