package document

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gubarz/pagemd/internal/blocks"
	"github.com/gubarz/pagemd/internal/session"
	"github.com/gubarz/pagemd/internal/store"
)

func newDoc(md string) *Controller {
	c := New(Options{Policy: blocks.Sections, Split: session.SplitAlways})
	c.Load(md)
	return c
}

func TestLoadAndMarkdown(t *testing.T) {
	c := newDoc("# Title\n\nSome **bold** text\n\n> caption\n")
	require.Equal(t, 3, c.Len())
	assert.Equal(t, blocks.Title, c.Blocks()[0].Kind())
	assert.Equal(t, blocks.Caption, c.Blocks()[2].Kind())
	assert.Equal(t, "# Title\n\nSome **bold** text\n\n> caption\n", c.Markdown())
}

func TestLoadEmpty(t *testing.T) {
	c := newDoc("")
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, "", c.Markdown())
}

func TestReloadIsIdempotent(t *testing.T) {
	inputs := []string{
		"a\n\n\n\nb",
		"  lead\n\ntrail   \n\n",
		"# t\r\n\r\nbody",
	}
	for _, p := range []blocks.Policy{blocks.Sections, blocks.Lines} {
		for _, md := range inputs {
			c := New(Options{Policy: p})
			c.Load(md)
			once := c.Markdown()
			c.Load(once)
			assert.Equal(t, once, c.Markdown(), "policy %s input %q", p, md)
		}
	}
}

func TestLoadEndsSession(t *testing.T) {
	c := newDoc("a")
	require.NoError(t, c.Apply(0, session.Activate{}))
	require.NoError(t, c.Apply(-1, session.Insert{Text: "b"}))
	c.Load("x\n\ny")

	_, _, ok := c.Editing()
	assert.False(t, ok)
	assert.Equal(t, "x\n\ny\n", c.Markdown())
}

func TestMarkdownExcludesDraft(t *testing.T) {
	c := newDoc("hello")
	require.NoError(t, c.Apply(0, session.Activate{}))
	require.NoError(t, c.Apply(0, session.Insert{Text: " world"}))

	i, d, ok := c.Editing()
	require.True(t, ok)
	assert.Equal(t, 0, i)
	assert.Equal(t, "hello world", d.Text())
	assert.Equal(t, "hello\n", c.Markdown())

	require.NoError(t, c.Apply(0, session.Stop{}))
	assert.Equal(t, "hello world\n", c.Markdown())
}

func TestOnChangeFiresOncePerCommittedEdit(t *testing.T) {
	c := newDoc("a\n\nb")
	var got []string
	c.OnChange(func(md string) { got = append(got, md) })

	require.NoError(t, c.Apply(0, session.Activate{}))
	require.NoError(t, c.Apply(-1, session.Insert{Text: "1"}))
	assert.Empty(t, got, "typing does not commit")

	// activating another block commits the first
	require.NoError(t, c.Apply(1, session.Activate{}))
	require.Equal(t, []string{"a1\n\nb\n"}, got)

	// split commits the head and inserts the tail in one operation
	require.NoError(t, c.Apply(-1, session.Move{Delta: -1}))
	require.NoError(t, c.Apply(-1, session.Enter{}))
	assert.Equal(t, "a1\n\nb\n", c.Markdown(), "splitting at the start leaves the text as is")
	assert.Len(t, got, 1)

	require.NoError(t, c.Apply(-1, session.Stop{}))
	assert.Len(t, got, 1, "committing unchanged text is silent")
}

func TestApplyErrors(t *testing.T) {
	c := newDoc("a\n\nb")
	assert.ErrorIs(t, c.Apply(5, session.Activate{}), ErrIndexOutOfRange)
	assert.ErrorIs(t, c.Apply(-1, session.Activate{}), ErrIndexOutOfRange)
	assert.ErrorIs(t, c.Apply(0, session.Insert{Text: "x"}), ErrNoSession)

	require.NoError(t, c.Apply(0, session.Activate{}))
	assert.ErrorIs(t, c.Apply(1, session.Insert{Text: "x"}), ErrNoSession)
}

func TestBlurEmptyBlockDeletesIt(t *testing.T) {
	c := newDoc("Hello\n\nWorld")
	var got []string
	c.OnChange(func(md string) { got = append(got, md) })

	require.NoError(t, c.Apply(0, session.Activate{}))
	for i := 0; i < 5; i++ {
		require.NoError(t, c.Apply(0, session.Backspace{}))
	}
	require.NoError(t, c.Apply(0, session.Blur{}))

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, "World\n", c.Markdown())
	assert.Equal(t, []string{"World\n"}, got)
}

func TestSplitMergeThroughController(t *testing.T) {
	c := newDoc("hello world")
	require.NoError(t, c.Apply(0, session.Activate{}))
	_, d, _ := c.Editing()
	d.SetCaret(5)

	require.NoError(t, c.Apply(-1, session.Enter{}))
	assert.Equal(t, []string{"hello", " world"}, blocks.Texts(c.Blocks()))

	require.NoError(t, c.Apply(-1, session.Backspace{}))
	assert.Equal(t, []string{"hello world"}, blocks.Texts(c.Blocks()))
	assert.Equal(t, "hello world\n", c.Markdown())
}

func TestCommitKeepsBlockIDs(t *testing.T) {
	c := newDoc("a\n\nb")
	ids := []string{c.Blocks()[0].ID, c.Blocks()[1].ID}

	require.NoError(t, c.Apply(0, session.Activate{}))
	require.NoError(t, c.Apply(-1, session.Insert{Text: "\n\nc"}))
	c.Commit()

	bs := c.Blocks()
	require.Len(t, bs, 3)
	assert.Equal(t, []string{"a", "c", "b"}, blocks.Texts(bs))
	assert.Equal(t, ids[0], bs[0].ID)
	assert.Equal(t, ids[1], bs[2].ID)
}

func TestBlocksReturnsACopy(t *testing.T) {
	c := newDoc("a")
	bs := c.Blocks()
	bs[0].Raw = "changed"
	assert.Equal(t, "a\n", c.Markdown())
}

func TestOpen(t *testing.T) {
	c := newDoc("a")
	require.NoError(t, c.Open(1))
	i, _, ok := c.Editing()
	require.True(t, ok)
	assert.Equal(t, 1, i)

	// an opened block left empty disappears
	c.Commit()
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Open(0))
	require.NoError(t, c.Apply(-1, session.Insert{Text: "# New"}))
	c.Commit()
	assert.Equal(t, "# New\n\na\n", c.Markdown())

	assert.ErrorIs(t, c.Open(9), ErrIndexOutOfRange)
}

func TestLoadFromAndSaveTo(t *testing.T) {
	ctx := context.Background()
	st := store.NewFileStore(afero.NewMemMapFs(), "/pages", nil)
	require.NoError(t, st.Save(ctx, "landing", "# Landing\n\nhi\n", "seed"))

	c := New(Options{})
	res := c.LoadFrom(ctx, st, "landing")
	assert.Equal(t, Loaded, res.Status)
	assert.NoError(t, res.Err)
	assert.Equal(t, 2, c.Len())

	require.NoError(t, c.Apply(1, session.Activate{}))
	require.NoError(t, c.Apply(-1, session.Insert{Text: " there"}))
	c.Commit()
	require.NoError(t, c.SaveTo(ctx, st, "landing", "Update landing"))

	md, err := st.Load(ctx, "landing")
	require.NoError(t, err)
	assert.Equal(t, "# Landing\n\nhi there\n", md)

	res = c.LoadFrom(ctx, st, "missing")
	assert.Equal(t, NotFound, res.Status)
	assert.ErrorIs(t, res.Err, store.ErrNotFound)
	assert.Equal(t, 0, c.Len())
}

type failingStore struct{ err error }

func (f failingStore) Load(context.Context, string) (string, error)       { return "", f.err }
func (f failingStore) Save(context.Context, string, string, string) error { return f.err }

func TestLoadFromFailureFallsBackToEmpty(t *testing.T) {
	boom := errors.New("boom")
	c := newDoc("something")
	res := c.LoadFrom(context.Background(), failingStore{boom}, "x")
	assert.Equal(t, Failed, res.Status)
	assert.ErrorIs(t, res.Err, boom)
	assert.Equal(t, 0, c.Len())
}

func TestSaveToFailureKeepsDocument(t *testing.T) {
	boom := errors.New("disk full")
	c := newDoc("keep me")
	err := c.SaveTo(context.Background(), failingStore{boom}, "x", "msg")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "keep me\n", c.Markdown())
}
