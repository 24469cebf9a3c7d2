package session

import (
	"errors"
	"fmt"
	"strings"
)

// Blocks is the block list an edit session works on. Indices are positions
// in document order; IDs stay stable while other blocks move around.
type Blocks interface {
	Len() int
	ID(i int) string
	IndexOf(id string) int
	Raw(i int) string
	// Update commits raw as the text of block i. The text may be split into
	// several blocks; the number of blocks now occupying position i is
	// returned (0 means the block was removed).
	Update(i int, raw string) int
	Delete(i int)
	// Insert adds a block with raw text at position i without normalizing it
	Insert(i int, raw string)
}

// SplitPolicy decides what a bare Enter does
type SplitPolicy int

const (
	// SplitAlways splits the block at the caret
	SplitAlways SplitPolicy = iota
	// SplitAtEnd splits only when nothing but whitespace follows the caret,
	// otherwise a newline is inserted
	SplitAtEnd
)

// ErrUnknownSplitPolicy is returned for unrecognised split policy names
var ErrUnknownSplitPolicy = errors.New("unknown split policy")

func (p SplitPolicy) String() string {
	if p == SplitAtEnd {
		return "end"
	}
	return "always"
}

// ParseSplitPolicy parses "always" or "end"
func ParseSplitPolicy(s string) (SplitPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "always":
		return SplitAlways, nil
	case "end":
		return SplitAtEnd, nil
	}
	return SplitAlways, fmt.Errorf("%w: %q", ErrUnknownSplitPolicy, s)
}

// ============================================================================
// Operations
// ============================================================================

// Op is an editing event. The set is closed.
type Op interface {
	op()
}

type (
	// Activate starts editing a block (click, Enter on a selected block)
	Activate struct{}
	// Blur commits the draft on loss of focus
	Blur struct{}
	// Stop commits the draft explicitly
	Stop struct{}
	// Escape discards the draft
	Escape struct{}
	// Enter splits the block; Modified inserts a newline instead
	Enter struct{ Modified bool }
	// Backspace deletes backwards, merges with the previous block at the
	// start, removes an empty block
	Backspace struct{}
	// Delete deletes forwards, merges the next block in at the end, removes
	// an empty block
	Delete struct{}
	// Insert types text at the caret
	Insert struct{ Text string }
	// Move shifts the caret by Delta runes
	Move struct{ Delta int }
	// MoveLine moves the caret up or down by lines
	MoveLine struct{ Delta int }
	// Home moves to the start of the line
	Home struct{}
	// End moves to the end of the line
	End struct{}
	// InsertLink inserts a link at the caret
	InsertLink struct {
		Text     string
		Href     string
		Download bool
	}
)

func (Activate) op()   {}
func (Blur) op()       {}
func (Stop) op()       {}
func (Escape) op()     {}
func (Enter) op()      {}
func (Backspace) op()  {}
func (Delete) op()     {}
func (Insert) op()     {}
func (Move) op()       {}
func (MoveLine) op()   {}
func (Home) op()       {}
func (End) op()        {}
func (InsertLink) op() {}

// ============================================================================
// Session
// ============================================================================

// State is the mode of the session
type State int

const (
	Viewing State = iota
	Editing
)

func (s State) String() string {
	if s == Editing {
		return "editing"
	}
	return "viewing"
}

// Session is the edit state machine of one document. At most one block is
// being edited at a time.
type Session struct {
	blocks Blocks
	split  SplitPolicy

	editingID string
	draft     *Draft
}

// New returns a session in the Viewing state
func New(b Blocks, split SplitPolicy) *Session {
	return &Session{blocks: b, split: split}
}

// State reports Viewing or Editing
func (s *Session) State() State {
	if s.draft != nil {
		return Editing
	}
	return Viewing
}

// Editing returns the index of the block being edited
func (s *Session) Editing() (int, bool) {
	if s.draft == nil {
		return -1, false
	}
	i := s.blocks.IndexOf(s.editingID)
	return i, i >= 0
}

// Draft returns the current draft, nil while viewing
func (s *Session) Draft() *Draft {
	return s.draft
}

// Reset drops the session without committing
func (s *Session) Reset() {
	s.editingID = ""
	s.draft = nil
}

// Activate starts editing block i, committing any other block first
func (s *Session) Activate(i int) {
	targetID := s.blocks.ID(i)
	if s.draft != nil {
		if s.editingID == targetID {
			return
		}
		s.Commit()
	}
	j := s.blocks.IndexOf(targetID)
	if j < 0 {
		return
	}
	s.begin(j, NewDraft(s.blocks.Raw(j)))
}

func (s *Session) begin(i int, d *Draft) {
	s.editingID = s.blocks.ID(i)
	s.draft = d
}

// Commit writes the draft back, deleting the block when the draft is blank
func (s *Session) Commit() {
	i, ok := s.Editing()
	if !ok {
		s.Reset()
		return
	}
	if s.draft.Empty() {
		s.blocks.Delete(i)
	} else {
		s.blocks.Update(i, s.draft.Markdown())
	}
	s.Reset()
}

// Discard drops the draft. A block that never had content is removed.
func (s *Session) Discard() {
	if i, ok := s.Editing(); ok && strings.TrimSpace(s.blocks.Raw(i)) == "" {
		s.blocks.Delete(i)
	}
	s.Reset()
}

// Apply runs an edit operation against the block being edited.
// Activate is handled by Activate since it needs a target index.
func (s *Session) Apply(op Op) {
	i, ok := s.Editing()
	if !ok {
		s.Reset()
		return
	}
	d := s.draft

	switch o := op.(type) {
	case Blur, Stop:
		s.Commit()
	case Escape:
		s.Discard()
	case Enter:
		if o.Modified || (s.split == SplitAtEnd && !d.OnlySpaceAfterCaret()) {
			d.Insert("\n")
			return
		}
		s.splitAt(i)
	case Backspace:
		switch {
		case d.Empty():
			s.blocks.Delete(i)
			s.Reset()
		case d.Caret() == 0:
			s.mergePrevious(i)
		default:
			d.Backspace()
		}
	case Delete:
		switch {
		case d.Empty():
			s.blocks.Delete(i)
			s.Reset()
		case d.Caret() == d.Len():
			s.mergeNext(i)
		default:
			d.DeleteForward()
		}
	case Insert:
		d.Insert(o.Text)
	case Move:
		d.Move(o.Delta)
	case MoveLine:
		d.MoveLine(o.Delta)
	case Home:
		d.Home()
	case End:
		d.End()
	case InsertLink:
		d.InsertLink(o.Text, o.Href, o.Download)
	}
}

// splitAt cuts block i at the caret. The text after the caret becomes a new
// block right after it, which is then edited with the caret at its start.
func (s *Session) splitAt(i int) {
	before, after := s.draft.Split()
	next := i
	if strings.TrimSpace(before) == "" {
		s.blocks.Delete(i)
	} else {
		next = i + s.blocks.Update(i, before)
	}
	s.blocks.Insert(next, after)

	d := NewDraft(after)
	d.SetCaret(0)
	s.begin(next, d)
}

// mergePrevious appends the draft to the previous block and keeps editing
// there with the caret at the join point.
func (s *Session) mergePrevious(i int) {
	if i == 0 {
		return
	}
	merged := NewDraft(s.blocks.Raw(i - 1))
	join := merged.Len()
	merged.Append(s.draft)
	merged.SetCaret(join)

	prevID := s.blocks.ID(i - 1)
	s.blocks.Delete(i)
	s.commitMerged(prevID, merged)
}

// mergeNext pulls the next block into the draft, caret unchanged
func (s *Session) mergeNext(i int) {
	if i+1 >= s.blocks.Len() {
		return
	}
	merged := s.draft
	merged.Append(NewDraft(s.blocks.Raw(i + 1)))

	s.blocks.Delete(i + 1)
	s.commitMerged(s.editingID, merged)
}

// commitMerged stores a merge result and keeps editing it when it is still
// a single block
func (s *Session) commitMerged(id string, merged *Draft) {
	j := s.blocks.IndexOf(id)
	if j < 0 {
		s.Reset()
		return
	}
	if n := s.blocks.Update(j, merged.Markdown()); n != 1 {
		s.Reset()
		return
	}
	s.begin(j, merged)
}
