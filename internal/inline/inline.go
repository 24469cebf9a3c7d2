package inline

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gubarz/pagemd/internal/links"
	"github.com/gubarz/pagemd/internal/marks"
)

// Span is one typed piece of a block's inline content.
// The set of spans is closed: Text, Emphasis, Link, ColoredText and Image.
type Span interface {
	span()
}

// Text is literal text
type Text struct {
	Value string
}

// EmphasisStyle selects bold or italic
type EmphasisStyle int

const (
	Bold EmphasisStyle = iota
	Italic
)

// Emphasis is **bold** or *italic* text
type Emphasis struct {
	Style    EmphasisStyle
	Children []Span
}

// Link is [text](href). Href never carries the download sigil; Variant is
// Download for flagged links and the classifier's verdict otherwise.
type Link struct {
	Children []Span
	Href     string
	Variant  links.Variant
}

// ColoredText is <name>text</name> or <color=#hex>text</color>
type ColoredText struct {
	Children []Span
	Name     string // empty for the hex form
	Color    string
}

// Image is ![alt](src "title")
type Image struct {
	Alt   string
	Src   string
	Title string
}

func (Text) span()        {}
func (Emphasis) span()    {}
func (Link) span()        {}
func (ColoredText) span() {}
func (Image) span()       {}

// Download reports whether the link is download-flagged
func (l Link) Download() bool {
	return l.Variant == links.Download
}

// ============================================================================
// Parser
// ============================================================================

type feature uint8

const (
	allowImage feature = 1 << iota
	allowLink
	allowColor
	allowEmphasis

	allowAll = allowImage | allowLink | allowColor | allowEmphasis
)

var (
	boldRe   = regexp.MustCompile(`^\*\*([^*]+)\*\*`)
	italicRe = regexp.MustCompile(`^\*([^*]+)\*`)
)

// Parser converts raw block text into spans
type Parser struct {
	Palette marks.Palette
	// Live requires whitespace after a closing color tag, for text that is
	// still being typed.
	Live bool
}

var defaultParser = &Parser{Palette: marks.DefaultPalette}

// Parse parses committed text with the default palette
func Parse(raw string) []Span {
	return defaultParser.Parse(raw)
}

// Parse never fails: anything that does not match a construct is text.
func (p *Parser) Parse(raw string) []Span {
	return p.parse(raw, allowAll)
}

// ParseLive parses text that is still being typed, with p's palette
func (p *Parser) ParseLive(raw string) []Span {
	live := *p
	live.Live = true
	return live.parse(raw, allowAll)
}

func (p *Parser) parse(s string, allow feature) []Span {
	var out []Span
	var text strings.Builder

	flush := func() {
		if text.Len() > 0 {
			out = append(out, Text{Value: text.String()})
			text.Reset()
		}
	}

	for i := 0; i < len(s); {
		rest := s[i:]
		if sp, n, ok := p.match(rest, allow); ok {
			flush()
			out = append(out, sp)
			i += n
			continue
		}
		_, size := utf8.DecodeRuneInString(rest)
		text.WriteString(rest[:size])
		i += size
	}
	flush()
	return out
}

// match tries each construct at the start of s in priority order
func (p *Parser) match(s string, allow feature) (Span, int, bool) {
	switch s[0] {
	case '!':
		if allow&allowImage != 0 {
			if m, ok := marks.MatchImage(s); ok {
				return Image{Alt: m.Alt, Src: m.Src, Title: m.Title}, m.Len, true
			}
		}
	case '[':
		if allow&allowLink != 0 {
			if m, ok := marks.MatchLink(s); ok {
				return p.link(m, allow), m.Len, true
			}
		}
	case '<':
		if allow&allowColor != 0 {
			palette := p.Palette
			if palette == nil {
				palette = marks.DefaultPalette
			}
			if m, ok := marks.MatchColor(s, p.Live, palette); ok {
				return ColoredText{
					Children: p.parse(m.Inner, allow&^allowColor),
					Name:     m.Name,
					Color:    m.Color,
				}, m.Len, true
			}
		}
	case '*':
		if allow&allowEmphasis == 0 {
			break
		}
		if sub := boldRe.FindStringSubmatch(s); sub != nil {
			return Emphasis{Style: Bold, Children: p.parse(sub[1], allow&^allowEmphasis)}, len(sub[0]), true
		}
		if sub := italicRe.FindStringSubmatch(s); sub != nil {
			return Emphasis{Style: Italic, Children: p.parse(sub[1], allow&^allowEmphasis)}, len(sub[0]), true
		}
	}
	return nil, 0, false
}

func (p *Parser) link(m marks.LinkMatch, allow feature) Link {
	variant := links.Download
	if !m.Download {
		variant = links.ClassifyTarget(m.Href)
	}
	return Link{
		Children: p.parse(m.Text, allow&^(allowLink|allowImage)),
		Href:     m.Href,
		Variant:  variant,
	}
}

// ============================================================================
// Serializer
// ============================================================================

// Serialize is the exact inverse of Parse for every span sequence Parse
// produces.
func Serialize(spans []Span) string {
	var b strings.Builder
	writeSpans(&b, spans)
	return b.String()
}

func writeSpans(b *strings.Builder, spans []Span) {
	for _, sp := range spans {
		switch s := sp.(type) {
		case Text:
			b.WriteString(s.Value)
		case Emphasis:
			marker := "*"
			if s.Style == Bold {
				marker = "**"
			}
			b.WriteString(marker)
			writeSpans(b, s.Children)
			b.WriteString(marker)
		case Link:
			b.WriteString(marks.EncodeLink(Serialize(s.Children), s.Href, s.Download()))
		case ColoredText:
			b.WriteString(marks.EncodeColor(s.Name, s.Color, Serialize(s.Children)))
		case Image:
			b.WriteString(marks.EncodeImage(s.Alt, s.Src, s.Title))
		}
	}
}

// PlainText returns the visible text of spans, without markup
func PlainText(spans []Span) string {
	var b strings.Builder
	writePlain(&b, spans)
	return b.String()
}

func writePlain(b *strings.Builder, spans []Span) {
	for _, sp := range spans {
		switch s := sp.(type) {
		case Text:
			b.WriteString(s.Value)
		case Emphasis:
			writePlain(b, s.Children)
		case Link:
			writePlain(b, s.Children)
		case ColoredText:
			writePlain(b, s.Children)
		case Image:
			b.WriteString(s.Alt)
		}
	}
}

// NewLink builds a link for insertion by an edit operation. Text and href
// are cleaned so the serialized form parses back to the returned span.
// ok is false when no usable href remains.
func NewLink(text, href string, download bool) (Link, bool) {
	text = strings.Map(func(r rune) rune {
		if r == ']' || r == '[' || r == '\n' {
			return -1
		}
		return r
	}, text)
	href = strings.Map(func(r rune) rune {
		if r == ')' || r == '(' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, href)
	href = strings.TrimLeft(href, links.Sigil)
	if href == "" {
		return Link{}, false
	}

	parsed := Parse(marks.EncodeLink(text, href, download))
	if len(parsed) == 1 {
		if l, ok := parsed[0].(Link); ok {
			return l, true
		}
	}
	return Link{}, false
}
