package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/gubarz/pagemd/internal/blocks"
)

func segment(md string) []blocks.Block {
	return blocks.Segmenter{Policy: blocks.Sections}.Segment(md)
}

func TestFragment(t *testing.T) {
	tests := []struct {
		name     string
		md       string
		expected string
	}{
		{
			"headings",
			"# Title\n\n## Sub\n\n### Small",
			"<h1>Title</h1>\n<h2>Sub</h2>\n<h3>Small</h3>\n",
		},
		{
			"emphasis and internal link",
			"Some **bold**, *it* and [docs](/docs)",
			`<p>Some <strong>bold</strong>, <em>it</em> and <a href="/docs" data-link="internal">docs</a></p>` + "\n",
		},
		{
			"external link opens a new tab",
			"[go](https://go.dev)",
			`<p><a href="https://go.dev" data-link="external" target="_blank" rel="noopener noreferrer nofollow">go</a></p>` + "\n",
		},
		{
			"bare domain gets a scheme",
			"[ex](example.com/a)",
			`<p><a href="https://example.com/a" data-link="external" target="_blank" rel="noopener noreferrer nofollow">ex</a></p>` + "\n",
		},
		{
			"download",
			"[cv](!/files/cv.pdf)",
			`<p><a href="/files/cv.pdf" data-link="download" download="">cv</a></p>` + "\n",
		},
		{
			"mail",
			"[me](mailto:me@example.com)",
			`<p><a href="mailto:me@example.com" data-link="special">me</a></p>` + "\n",
		},
		{
			"colors",
			"<red>hot</red> and <color=#123456>custom</color>",
			`<p><span style="color: #E5484D" data-color="red">hot</span> and <span style="color: #123456">custom</span></p>` + "\n",
		},
		{
			"image with caption",
			`![A cat](/cat.png "Cat")`,
			`<p><span class="image"><img src="/cat.png" alt="A cat" title="Cat"/><span class="caption">A cat</span></span></p>` + "\n",
		},
		{
			"caption block",
			"> under the image",
			`<p class="caption">under the image</p>` + "\n",
		},
		{
			"multi-line body",
			"one\ntwo",
			"<p>one<br/>two</p>\n",
		},
		{
			"each line by its own marker",
			"# Title\n## Sub\n## More\nplain",
			"<h1>Title</h1>\n<h2>Sub<br/>More</h2>\n<p>plain</p>\n",
		},
		{
			"escaping",
			"a < b & c",
			"<p>a &lt; b &amp; c</p>\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Fragment(segment(tt.md), Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestDocumentParses(t *testing.T) {
	var b strings.Builder
	require.NoError(t, Document(&b, segment("# Hello\n\nworld [x](https://x.org)"), Options{Title: "Hello"}))

	doc, err := html.Parse(strings.NewReader(b.String()))
	require.NoError(t, err)

	var tags []string
	var titles []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			tags = append(tags, n.Data)
			if n.Data == "title" && n.FirstChild != nil {
				titles = append(titles, n.FirstChild.Data)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	assert.Equal(t, []string{"html", "head", "meta", "title", "body", "h1", "p", "a"}, tags)
	assert.Equal(t, []string{"Hello"}, titles)
}

func TestCustomPalette(t *testing.T) {
	got, err := Fragment(segment("<brand>x</brand>"), Options{Palette: map[string]string{"brand": "#010203"}})
	require.NoError(t, err)
	assert.Contains(t, got, `style="color: #010203"`)
}
