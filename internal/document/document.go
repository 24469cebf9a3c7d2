// Package document owns a page's canonical block list and exposes it to
// callers through load, markdown export and edit operations.
package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/gubarz/pagemd/internal/blocks"
	"github.com/gubarz/pagemd/internal/session"
	"github.com/gubarz/pagemd/internal/store"
)

var (
	// ErrIndexOutOfRange is returned for block indices outside the document
	ErrIndexOutOfRange = errors.New("block index out of range")
	// ErrNoSession is returned for edit operations while no block is edited
	ErrNoSession = errors.New("no block is being edited")
)

// Options configures a Controller
type Options struct {
	Policy blocks.Policy
	Split  session.SplitPolicy
	Logger *slog.Logger
}

// Controller is the facade over one document. It is not safe for
// concurrent use; all calls are expected from a single event loop.
type Controller struct {
	seg      blocks.Segmenter
	blocks   []blocks.Block
	session  *session.Session
	onChange []func(markdown string)
	log      *slog.Logger

	mutated  bool
	lastSent string
}

// New creates an empty document
func New(opts Options) *Controller {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c := &Controller{
		seg: blocks.Segmenter{Policy: opts.Policy},
		log: log,
	}
	c.session = session.New(docBlocks{c}, opts.Split)
	return c
}

// Policy returns the segmentation policy fixed for this document
func (c *Controller) Policy() blocks.Policy {
	return c.seg.Policy
}

// OnChange registers fn to be called with the new markdown after every
// edit that changes the committed document.
func (c *Controller) OnChange(fn func(markdown string)) {
	c.onChange = append(c.onChange, fn)
}

// Load replaces the whole document. Any edit session is dropped.
func (c *Controller) Load(markdown string) {
	c.session.Reset()
	c.blocks = c.seg.Segment(markdown)
	c.mutated = false
	c.lastSent = c.Markdown()
	c.log.Debug("document loaded", "blocks", len(c.blocks), "policy", c.seg.Policy.String())
}

// Markdown joins the committed blocks. Drafts are not included.
func (c *Controller) Markdown() string {
	return c.seg.Join(c.blocks)
}

// Blocks returns a copy of the committed blocks
func (c *Controller) Blocks() []blocks.Block {
	out := make([]blocks.Block, len(c.blocks))
	copy(out, c.blocks)
	return out
}

// Len is the number of blocks
func (c *Controller) Len() int {
	return len(c.blocks)
}

// State reports whether a block is being edited
func (c *Controller) State() session.State {
	return c.session.State()
}

// Editing returns the index and draft of the block being edited
func (c *Controller) Editing() (int, *session.Draft, bool) {
	i, ok := c.session.Editing()
	if !ok {
		return -1, nil, false
	}
	return i, c.session.Draft(), true
}

// Apply runs op against block index. Activate starts editing index; every
// other operation targets the block being edited, and index must either be
// that block or negative.
func (c *Controller) Apply(index int, op session.Op) error {
	switch op.(type) {
	case session.Activate:
		if index < 0 || index >= len(c.blocks) {
			return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
		}
		c.session.Activate(index)
	default:
		cur, ok := c.session.Editing()
		if !ok {
			return ErrNoSession
		}
		if index >= 0 && index != cur {
			return fmt.Errorf("%w: block %d (editing %d)", ErrNoSession, index, cur)
		}
		c.session.Apply(op)
	}
	c.notify()
	return nil
}

// Open inserts an empty block at index and starts editing it. The block
// disappears again if it is committed without content.
func (c *Controller) Open(index int) error {
	if index < 0 || index > len(c.blocks) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	if _, ok := c.session.Editing(); ok {
		c.session.Commit()
		index = min(index, len(c.blocks))
	}
	docBlocks{c}.Insert(index, "")
	c.session.Activate(index)
	c.notify()
	return nil
}

// Commit ends the current edit session, keeping the draft
func (c *Controller) Commit() {
	c.session.Commit()
	c.notify()
}

func (c *Controller) notify() {
	if !c.mutated {
		return
	}
	c.mutated = false
	md := c.Markdown()
	if md == c.lastSent {
		return
	}
	c.lastSent = md
	c.log.Debug("document changed", "blocks", len(c.blocks), "bytes", len(md))
	for _, fn := range c.onChange {
		fn(md)
	}
}

// ============================================================================
// Persistence
// ============================================================================

// LoadStatus is the outcome of LoadFrom
type LoadStatus int

const (
	Loaded LoadStatus = iota
	NotFound
	Failed
)

func (s LoadStatus) String() string {
	switch s {
	case NotFound:
		return "not found"
	case Failed:
		return "failed"
	default:
		return "loaded"
	}
}

// LoadResult reports how a load went. On NotFound and Failed the document
// is empty.
type LoadResult struct {
	Status LoadStatus
	Err    error
}

// LoadFrom replaces the document with the page stored at path
func (c *Controller) LoadFrom(ctx context.Context, st store.Loader, path string) LoadResult {
	md, err := st.Load(ctx, path)
	switch {
	case err == nil:
		c.Load(md)
		return LoadResult{Status: Loaded}
	case errors.Is(err, store.ErrNotFound):
		c.Load("")
		c.log.Info("page not found, starting empty", "path", path)
		return LoadResult{Status: NotFound, Err: err}
	default:
		c.Load("")
		c.log.Error("page load failed", "path", path, "error", err)
		return LoadResult{Status: Failed, Err: err}
	}
}

// SaveTo writes the committed markdown to path. The in-memory document is
// authoritative whatever the outcome.
func (c *Controller) SaveTo(ctx context.Context, st store.Saver, path, message string) error {
	if err := st.Save(ctx, path, c.Markdown(), message); err != nil {
		c.log.Warn("page save failed", "path", path, "error", err)
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// ============================================================================
// Block list seen by the edit session
// ============================================================================

// docBlocks applies session mutations copy-on-write
type docBlocks struct {
	c *Controller
}

func (d docBlocks) Len() int             { return len(d.c.blocks) }
func (d docBlocks) ID(i int) string      { return d.c.blocks[i].ID }
func (d docBlocks) Raw(i int) string     { return d.c.blocks[i].Raw }
func (d docBlocks) IndexOf(id string) int {
	for i, b := range d.c.blocks {
		if b.ID == id {
			return i
		}
	}
	return -1
}

func (d docBlocks) Update(i int, raw string) int {
	pieces := d.c.seg.Split(raw)
	cur := d.c.blocks[i]

	var repl []blocks.Block
	switch len(pieces) {
	case 0:
	case 1:
		// a single block keeps its text untrimmed and its ID
		if cur.Raw == raw {
			return 1
		}
		repl = []blocks.Block{{ID: cur.ID, Raw: raw}}
	default:
		repl = make([]blocks.Block, len(pieces))
		repl[0] = blocks.Block{ID: cur.ID, Raw: pieces[0]}
		for k, p := range pieces[1:] {
			repl[k+1] = blocks.New(p)
		}
	}
	d.replace(i, i+1, repl)
	d.c.log.Debug("block updated", "index", i, "blocks", len(repl))
	return len(repl)
}

func (d docBlocks) Delete(i int) {
	d.replace(i, i+1, nil)
	d.c.log.Debug("block deleted", "index", i)
}

func (d docBlocks) Insert(i int, raw string) {
	d.replace(i, i, []blocks.Block{blocks.New(raw)})
	d.c.log.Debug("block inserted", "index", i)
}

func (d docBlocks) replace(from, to int, repl []blocks.Block) {
	old := d.c.blocks
	next := make([]blocks.Block, 0, len(old)-(to-from)+len(repl))
	next = append(next, old[:from]...)
	next = append(next, repl...)
	next = append(next, old[to:]...)
	d.c.blocks = next
	d.c.mutated = true
}
