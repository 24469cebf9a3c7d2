package blocks

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Kind is derived from the leading marker of a block's text
type Kind int

const (
	Body Kind = iota
	Title
	Heading2
	Heading3
	Caption
)

func (k Kind) String() string {
	switch k {
	case Title:
		return "title"
	case Heading2:
		return "h2"
	case Heading3:
		return "h3"
	case Caption:
		return "caption"
	default:
		return "body"
	}
}

var markers = []struct {
	prefix string
	kind   Kind
}{
	{"### ", Heading3},
	{"## ", Heading2},
	{"# ", Title},
	{"> ", Caption},
}

// LineKind classifies a single line by its marker
func LineKind(line string) Kind {
	k, _ := splitMarker(strings.TrimLeft(line, " \t"))
	return k
}

// StripMarker returns the line without its kind marker. Body lines are
// returned unchanged.
func StripMarker(line string) string {
	k, rest := splitMarker(strings.TrimLeft(line, " \t"))
	if k == Body {
		return line
	}
	return rest
}

func splitMarker(line string) (Kind, string) {
	for _, m := range markers {
		if strings.HasPrefix(line, m.prefix) {
			return m.kind, line[len(m.prefix):]
		}
	}
	return Body, line
}

// Block is one independently editable unit of a document
type Block struct {
	ID  string
	Raw string
}

// New creates a block with a fresh ID
func New(raw string) Block {
	return Block{ID: uuid.NewString(), Raw: raw}
}

// Kind is computed from Raw every time; it is never stored
func (b Block) Kind() Kind {
	return LineKind(firstLine(b.Raw))
}

// Content is the block text without its leading marker
func (b Block) Content() string {
	return StripMarker(b.Raw)
}

// Empty reports whether the block has no content after trimming
func (b Block) Empty() bool {
	return strings.TrimSpace(b.Raw) == ""
}

// Lines splits the block into its lines
func (b Block) Lines() []string {
	return strings.Split(b.Raw, "\n")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// ============================================================================
// Segmentation
// ============================================================================

// Policy selects how a buffer is cut into blocks
type Policy int

const (
	// Sections are blank-line separated and may span several lines
	Sections Policy = iota
	// Lines yields one block per non-blank line
	Lines
)

// ErrUnknownPolicy is returned for unrecognised policy names
var ErrUnknownPolicy = errors.New("unknown segmentation policy")

func (p Policy) String() string {
	if p == Lines {
		return "lines"
	}
	return "sections"
}

// ParsePolicy parses "sections" or "lines"
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sections":
		return Sections, nil
	case "lines":
		return Lines, nil
	}
	return Sections, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

// Separator is the text placed between blocks by Join
func (p Policy) Separator() string {
	if p == Lines {
		return "\n"
	}
	return "\n\n"
}

// Segmenter splits and joins markdown buffers with a fixed policy.
// A document must use the same Segmenter for its whole lifetime.
type Segmenter struct {
	Policy Policy
}

// NormalizeNewlines converts CRLF and CR line endings to LF
func NormalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// Split returns the raw text of each block in markdown
func (s Segmenter) Split(markdown string) []string {
	markdown = NormalizeNewlines(markdown)
	var out []string
	for _, piece := range strings.Split(markdown, s.Policy.Separator()) {
		piece = strings.TrimRight(strings.TrimLeft(piece, "\n"), " \t\n")
		if strings.TrimSpace(piece) == "" {
			continue
		}
		out = append(out, piece)
	}
	return out
}

// Segment splits markdown into blocks. Empty input yields no blocks.
func (s Segmenter) Segment(markdown string) []Block {
	pieces := s.Split(markdown)
	if len(pieces) == 0 {
		return nil
	}
	out := make([]Block, len(pieces))
	for i, p := range pieces {
		out[i] = New(p)
	}
	return out
}

// Join concatenates blocks with the policy separator and terminates the
// buffer with a single newline. Each block is normalized the way Segment
// normalizes pieces (surrounding blank lines and trailing whitespace go,
// empty blocks are skipped), so Segment(Join(b)) is always stable.
func (s Segmenter) Join(blocks []Block) string {
	var b strings.Builder
	sep := s.Policy.Separator()
	for _, blk := range blocks {
		for _, piece := range s.Split(blk.Raw) {
			if b.Len() > 0 {
				b.WriteString(sep)
			}
			b.WriteString(piece)
		}
	}
	if b.Len() > 0 {
		b.WriteByte('\n')
	}
	return b.String()
}

// Equal compares two block sequences by text, ignoring IDs
func Equal(a, b []Block) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Raw != b[i].Raw {
			return false
		}
	}
	return true
}

// Texts returns the raw text of each block
func Texts(blocks []Block) []string {
	out := make([]string, len(blocks))
	for i, b := range blocks {
		out[i] = b.Raw
	}
	return out
}
