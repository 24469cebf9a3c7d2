// Package marks encodes and decodes the inline syntax that pagemd layers on
// top of markdown: download-flagged hrefs, colored text tags and images with
// captions.
package marks

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gubarz/pagemd/internal/links"
)

// ============================================================================
// Download links
// ============================================================================

// DecodeHref strips the download sigil from a stored href.
// ok is false when nothing remains once the sigil is removed.
func DecodeHref(raw string) (href string, download bool, ok bool) {
	if strings.HasPrefix(raw, links.Sigil) {
		href = raw[len(links.Sigil):]
		return href, true, href != ""
	}
	return raw, false, raw != ""
}

// EncodeHref returns the storage form of an href
func EncodeHref(href string, download bool) string {
	if download {
		return links.Sigil + href
	}
	return href
}

// EncodeLink emits [text](href), re-prepending the sigil for downloads
func EncodeLink(text, href string, download bool) string {
	return "[" + text + "](" + EncodeHref(href, download) + ")"
}

// ============================================================================
// Colored text
// ============================================================================

// Palette resolves color names to hex values
type Palette map[string]string

// DefaultPalette holds the built-in color names
var DefaultPalette = Palette{
	"orange": "#F38020",
	"red":    "#E5484D",
	"green":  "#30A46C",
	"blue":   "#0090FF",
	"purple": "#8E4EC6",
	"gray":   "#8B8D98",
}

// Resolve returns the hex value for name, or name itself for unknown names
// so it can be used as a literal CSS color.
func (p Palette) Resolve(name string) string {
	if hex, ok := p[strings.ToLower(name)]; ok {
		return hex
	}
	return name
}

// Merge returns a copy of p with extra entries added or overridden
func (p Palette) Merge(extra map[string]string) Palette {
	out := make(Palette, len(p)+len(extra))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range extra {
		out[strings.ToLower(k)] = v
	}
	return out
}

var (
	namedColorRe = regexp.MustCompile(`^<([A-Za-z]+)>([^<>]+)</([A-Za-z]+)>`)
	hexColorRe   = regexp.MustCompile(`^<color=(#(?:[0-9a-fA-F]{6}|[0-9a-fA-F]{3}))>([^<>]+)</color>`)
)

// ColorMatch is a decoded colored text tag
type ColorMatch struct {
	Name  string // tag name, empty for the <color=#hex> form
	Color string // resolved color
	Inner string // raw content between the tags
	Len   int    // bytes consumed from the input
}

// MatchColor decodes a colored text tag at the start of s.
//
// In live mode the closing tag must be followed by whitespace, so a tag only
// commits once its boundary has been typed. Otherwise end of text or any
// non-word rune is an acceptable boundary.
func MatchColor(s string, live bool, p Palette) (ColorMatch, bool) {
	var m ColorMatch
	if sub := hexColorRe.FindStringSubmatch(s); sub != nil {
		m = ColorMatch{Color: sub[1], Inner: sub[2], Len: len(sub[0])}
	} else if sub := namedColorRe.FindStringSubmatch(s); sub != nil {
		if sub[1] != sub[3] || strings.EqualFold(sub[1], "color") {
			return ColorMatch{}, false
		}
		m = ColorMatch{Name: sub[1], Color: p.Resolve(sub[1]), Inner: sub[2], Len: len(sub[0])}
	} else {
		return ColorMatch{}, false
	}

	if !boundaryAt(s[m.Len:], live) {
		return ColorMatch{}, false
	}
	return m, true
}

func boundaryAt(rest string, live bool) bool {
	if rest == "" {
		return !live
	}
	r, _ := utf8.DecodeRuneInString(rest)
	if live {
		return unicode.IsSpace(r)
	}
	return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
}

// EncodeColor emits the named form when name is set, otherwise <color=...>
func EncodeColor(name, color, inner string) string {
	if name != "" {
		return "<" + name + ">" + inner + "</" + name + ">"
	}
	return "<color=" + color + ">" + inner + "</color>"
}

// ============================================================================
// Images
// ============================================================================

var imageRe = regexp.MustCompile(`^!\[([^\]]*)\]\(([^)\s]+)(?: "([^"]+)")?\)`)

// ImageMatch is a decoded image
type ImageMatch struct {
	Alt   string
	Src   string
	Title string
	Len   int
}

// MatchImage decodes ![alt](src "title") at the start of s
func MatchImage(s string) (ImageMatch, bool) {
	sub := imageRe.FindStringSubmatch(s)
	if sub == nil {
		return ImageMatch{}, false
	}
	return ImageMatch{Alt: sub[1], Src: sub[2], Title: sub[3], Len: len(sub[0])}, true
}

// EncodeImage emits the markdown for an image, omitting an empty title
func EncodeImage(alt, src, title string) string {
	if title == "" {
		return "![" + alt + "](" + src + ")"
	}
	return "![" + alt + "](" + src + " \"" + title + "\")"
}

// Caption returns the caption shown under an image
func Caption(alt string) (string, bool) {
	alt = strings.TrimSpace(alt)
	return alt, alt != ""
}

// ============================================================================
// Links
// ============================================================================

var linkRe = regexp.MustCompile(`^\[([^\]]*)\]\(([^)\s]+)\)`)

// LinkMatch is a decoded [text](href)
type LinkMatch struct {
	Text     string
	Href     string // sigil stripped
	Download bool
	Len      int
}

// MatchLink decodes [text](href) at the start of s
func MatchLink(s string) (LinkMatch, bool) {
	sub := linkRe.FindStringSubmatch(s)
	if sub == nil {
		return LinkMatch{}, false
	}
	href, download, ok := DecodeHref(sub[2])
	if !ok {
		return LinkMatch{}, false
	}
	return LinkMatch{Text: sub[1], Href: href, Download: download, Len: len(sub[0])}, true
}
