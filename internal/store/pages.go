package store

import (
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RootSection is the section of pages stored at the top level
const RootSection = "root"

// Page describes a stored page
type Page struct {
	Path     string // route form, no extension
	Slug     string // last path element
	Title    string
	Section  string
	Modified time.Time
}

// NewPageInfo derives slug, title and section from a route path
func NewPageInfo(p string, modified time.Time) Page {
	slug := path.Base(p)
	return Page{
		Path:     p,
		Slug:     slug,
		Title:    FormatTitle(slug),
		Section:  SectionOf(p),
		Modified: modified,
	}
}

// FormatTitle turns a file name into a readable title:
// "my-page.md" becomes "My Page".
func FormatTitle(name string) string {
	name = strings.TrimSuffix(path.Base(name), ".md")
	name = strings.ReplaceAll(name, "-", " ")

	out := []rune(name)
	for i, r := range out {
		if i == 0 || !isWordRune(out[i-1]) {
			out[i] = unicode.ToUpper(r)
		}
	}
	return string(out)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// SectionOf is the first directory of a page path, or RootSection
func SectionOf(p string) string {
	if i := strings.IndexByte(p, '/'); i > 0 {
		return p[:i]
	}
	return RootSection
}

// Search filters pages whose title, slug or path contains query,
// ignoring case. An empty query matches everything.
func Search(pages []Page, query string) []Page {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return pages
	}
	var out []Page
	for _, p := range pages {
		if strings.Contains(strings.ToLower(p.Title), q) ||
			strings.Contains(strings.ToLower(p.Slug), q) ||
			strings.Contains(strings.ToLower(p.Path), q) {
			out = append(out, p)
		}
	}
	return out
}

// Slugify lowercases title, turns whitespace runs into hyphens and drops
// everything but ASCII letters, digits and hyphens. Accents are folded
// first so "Café Notes" becomes "cafe-notes".
func Slugify(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, title)
	if err != nil {
		folded = title
	}

	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case unicode.IsSpace(r):
			space = true
			continue
		case r == '-' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
		default:
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte('-')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// Draft is a page ready to be saved for the first time
type Draft struct {
	Path    string
	Content string
	Message string
}

// NewPage prepares a page titled title in section. The root section (or an
// empty one) stores the page at the top level.
func NewPage(title, section string) (Draft, error) {
	title = strings.TrimSpace(title)
	slug := Slugify(title)
	if slug == "" {
		return Draft{}, fmt.Errorf("%w: title %q has no usable characters", ErrInvalidPath, title)
	}
	p := slug
	if section = Slugify(section); section != "" && section != RootSection {
		p = section + "/" + slug
	}
	return Draft{
		Path:    p,
		Content: "# " + title + "\n\nStart writing here...",
		Message: "Create new page: " + title,
	}, nil
}
