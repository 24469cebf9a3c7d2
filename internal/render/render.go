// Package render exports documents as HTML
package render

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/gubarz/pagemd/internal/blocks"
	"github.com/gubarz/pagemd/internal/inline"
	"github.com/gubarz/pagemd/internal/links"
	"github.com/gubarz/pagemd/internal/marks"
)

// Options controls HTML export
type Options struct {
	Title   string
	Palette marks.Palette
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func attr(key, val string) html.Attribute {
	return html.Attribute{Key: key, Val: val}
}

// Document writes a complete HTML page for bs
func Document(w io.Writer, bs []blocks.Block, opts Options) error {
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	root := element(atom.Html)
	head := element(atom.Head)
	head.AppendChild(element(atom.Meta, attr("charset", "utf-8")))
	title := element(atom.Title)
	title.AppendChild(text(opts.Title))
	head.AppendChild(title)
	root.AppendChild(head)

	body := element(atom.Body)
	for _, n := range Blocks(bs, opts) {
		body.AppendChild(n)
	}
	root.AppendChild(body)
	doc.AppendChild(root)

	if err := html.Render(w, doc); err != nil {
		return fmt.Errorf("failed to render html: %w", err)
	}
	return nil
}

// Fragment renders only the block elements
func Fragment(bs []blocks.Block, opts Options) (string, error) {
	var b strings.Builder
	for _, n := range Blocks(bs, opts) {
		if err := html.Render(&b, n); err != nil {
			return "", fmt.Errorf("failed to render html: %w", err)
		}
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// Blocks builds the elements of every non-empty block
func Blocks(bs []blocks.Block, opts Options) []*html.Node {
	pal := opts.Palette
	if pal == nil {
		pal = marks.DefaultPalette
	}
	p := &inline.Parser{Palette: pal}
	var out []*html.Node
	for _, b := range bs {
		if b.Empty() {
			continue
		}
		out = append(out, Block(b, p)...)
	}
	return out
}

// Block renders a single block. Each line is rendered by its own marker;
// consecutive lines of the same kind share an element, separated by <br>.
func Block(b blocks.Block, p *inline.Parser) []*html.Node {
	var out []*html.Node
	var n *html.Node
	kind := blocks.Body
	for _, line := range b.Lines() {
		k := blocks.LineKind(line)
		if n == nil || k != kind {
			n = blockElement(k)
			kind = k
			out = append(out, n)
		} else {
			n.AppendChild(element(atom.Br))
		}
		Spans(n, p.Parse(blocks.StripMarker(line)))
	}
	return out
}

func blockElement(k blocks.Kind) *html.Node {
	switch k {
	case blocks.Title:
		return element(atom.H1)
	case blocks.Heading2:
		return element(atom.H2)
	case blocks.Heading3:
		return element(atom.H3)
	case blocks.Caption:
		return element(atom.P, attr("class", "caption"))
	}
	return element(atom.P)
}

// Spans appends the HTML form of spans to parent
func Spans(parent *html.Node, spans []inline.Span) {
	for _, sp := range spans {
		parent.AppendChild(span(sp))
	}
}

func span(sp inline.Span) *html.Node {
	switch s := sp.(type) {
	case inline.Text:
		return text(s.Value)
	case inline.Emphasis:
		n := element(atom.Em)
		if s.Style == inline.Bold {
			n = element(atom.Strong)
		}
		Spans(n, s.Children)
		return n
	case inline.Link:
		n := link(s)
		Spans(n, s.Children)
		if n.FirstChild == nil {
			n.AppendChild(text(s.Href))
		}
		return n
	case inline.ColoredText:
		n := element(atom.Span, attr("style", "color: "+s.Color))
		if s.Name != "" {
			n.Attr = append(n.Attr, attr("data-color", s.Name))
		}
		Spans(n, s.Children)
		return n
	case inline.Image:
		return image(s)
	}
	return text("")
}

func link(l inline.Link) *html.Node {
	t := links.Resolve(marks.EncodeHref(l.Href, l.Download()))
	href := t.URL
	if t.Kind == links.Internal {
		href = "/" + links.Route(t.URL)
	}

	n := element(atom.A, attr("href", href), attr("data-link", t.Variant.String()))
	ra := links.Attrs(t)
	if ra.Target != "" {
		n.Attr = append(n.Attr, attr("target", ra.Target))
	}
	if ra.Rel != "" {
		n.Attr = append(n.Attr, attr("rel", ra.Rel))
	}
	if l.Download() {
		n.Attr = append(n.Attr, attr("download", ""))
	}
	return n
}

func image(img inline.Image) *html.Node {
	wrap := element(atom.Span, attr("class", "image"))
	tag := element(atom.Img, attr("src", img.Src), attr("alt", img.Alt))
	if img.Title != "" {
		tag.Attr = append(tag.Attr, attr("title", img.Title))
	}
	wrap.AppendChild(tag)
	if caption, ok := marks.Caption(img.Alt); ok {
		c := element(atom.Span, attr("class", "caption"))
		c.AppendChild(text(caption))
		wrap.AppendChild(c)
	}
	return wrap
}
