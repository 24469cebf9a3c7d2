package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/gubarz/pagemd/internal/blocks"
	"github.com/gubarz/pagemd/internal/config"
	"github.com/gubarz/pagemd/internal/document"
	"github.com/gubarz/pagemd/internal/links"
	"github.com/gubarz/pagemd/internal/logging"
	"github.com/gubarz/pagemd/internal/render"
	"github.com/gubarz/pagemd/internal/store"
)

// revisioner is implemented by backends that keep page history
type revisioner interface {
	Revisions(ctx context.Context, path string) ([]store.Revision, error)
}

// loadPage opens the backend and loads the page named by arg
func loadPage(ctx context.Context, arg string) (*document.Controller, store.Backend, string, error) {
	page, err := store.CleanPath(arg, config.GetDefaultPage())
	if err != nil {
		return nil, nil, "", err
	}
	doc, err := newDocument()
	if err != nil {
		return nil, nil, "", err
	}
	backend, err := openBackend(ctx)
	if err != nil {
		return nil, nil, "", err
	}
	if res := doc.LoadFrom(ctx, backend, page); res.Status != document.Loaded {
		backend.Close()
		return nil, nil, "", fmt.Errorf("load %s: %w", page, res.Err)
	}
	return doc, backend, page, nil
}

// ============================================================================
// export
// ============================================================================

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <page>",
		Short: "Write a page as Markdown or HTML",
		Args:  cobra.ExactArgs(1),
		RunE:  runExport,
	}
	cmd.Flags().Bool("html", false, "Render the page as a standalone HTML document")
	cmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")
	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	doc, backend, page, err := loadPage(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer backend.Close()

	out := cmd.OutOrStdout()
	if file, _ := cmd.Flags().GetString("output"); file != "" {
		f, err := os.Create(file)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", file, err)
		}
		defer f.Close()
		out = f
	}

	if asHTML, _ := cmd.Flags().GetBool("html"); asHTML {
		return render.Document(out, doc.Blocks(), render.Options{
			Title:   pageTitle(doc.Blocks(), page),
			Palette: palette(),
		})
	}
	_, err = io.WriteString(out, doc.Markdown())
	return err
}

// pageTitle is the text of the first title block, or a title made from
// the page path
func pageTitle(bs []blocks.Block, page string) string {
	for _, b := range bs {
		if b.Kind() == blocks.Title {
			return strings.TrimSpace(strings.SplitN(b.Content(), "\n", 2)[0])
		}
	}
	return store.FormatTitle(page)
}

// ============================================================================
// pages
// ============================================================================

func newPagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pages [query]",
		Short: "List stored pages",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPages,
	}
}

func runPages(cmd *cobra.Command, args []string) error {
	backend, err := openBackend(cmd.Context())
	if err != nil {
		return err
	}
	defer backend.Close()

	pages, err := backend.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(args) > 0 {
		pages = store.Search(pages, args[0])
	}

	sectionWidth, titleWidth := len("SECTION"), len("TITLE")
	for _, p := range pages {
		sectionWidth = max(sectionWidth, runewidth.StringWidth(p.Section))
		titleWidth = max(titleWidth, runewidth.StringWidth(p.Title))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s  %s  %s\n", runewidth.FillRight("SECTION", sectionWidth),
		runewidth.FillRight("TITLE", titleWidth), "PATH")
	for _, p := range pages {
		fmt.Fprintf(out, "%s  %s  %s\n", runewidth.FillRight(p.Section, sectionWidth),
			runewidth.FillRight(p.Title, titleWidth), p.Path)
	}
	return nil
}

// ============================================================================
// new
// ============================================================================

func newNewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new <title>",
		Short: "Create a page from a title",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runNew,
	}
	cmd.Flags().String("section", "", "Section (directory) for the page")
	return cmd
}

func runNew(cmd *cobra.Command, args []string) error {
	section, _ := cmd.Flags().GetString("section")
	draft, err := store.NewPage(strings.Join(args, " "), section)
	if err != nil {
		return err
	}

	backend, err := openBackend(cmd.Context())
	if err != nil {
		return err
	}
	defer backend.Close()

	if _, err := backend.Load(cmd.Context(), draft.Path); err == nil {
		return fmt.Errorf("page %s already exists", draft.Path)
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	doc, err := newDocument()
	if err != nil {
		return err
	}
	doc.Load(draft.Content)
	if err := doc.SaveTo(cmd.Context(), backend, draft.Path, draft.Message); err != nil {
		return err
	}
	logging.PageEvent("create", draft.Path)
	fmt.Fprintln(cmd.OutOrStdout(), draft.Path)
	return nil
}

// ============================================================================
// blocks
// ============================================================================

func newBlocksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "blocks <page>",
		Short: "Show how a page is cut into blocks",
		Args:  cobra.ExactArgs(1),
		RunE:  runBlocks,
	}
}

func runBlocks(cmd *cobra.Command, args []string) error {
	doc, backend, _, err := loadPage(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer backend.Close()

	out := cmd.OutOrStdout()
	for i, b := range doc.Blocks() {
		first := strings.SplitN(b.Raw, "\n", 2)[0]
		lines := strings.Count(b.Raw, "\n") + 1
		fmt.Fprintf(out, "%3d  %-7s  %2d  %s\n", i, b.Kind(), lines, runewidth.Truncate(first, 60, "..."))
	}
	return nil
}

// ============================================================================
// classify
// ============================================================================

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <href>...",
		Short: "Show how link targets are classified and resolved",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runClassify,
	}
}

func runClassify(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	for _, href := range args {
		t := links.Resolve(href)
		attrs := links.Attrs(t)
		line := fmt.Sprintf("%s\t%s\t%s\t%s", href, t.Variant, t.Kind, t.URL)
		if attrs.Target != "" {
			line += "\ttarget=" + attrs.Target + " rel=" + attrs.Rel
		}
		if t.Kind == links.Internal && t.Variant != links.Download {
			if route, err := store.CleanPath(t.URL, config.GetDefaultPage()); err == nil {
				line += "\troute=" + route
			}
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

// ============================================================================
// history
// ============================================================================

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <page>",
		Short: "List saved revisions of a page (sqlite storage)",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistory,
	}
}

func runHistory(cmd *cobra.Command, args []string) error {
	page, err := store.CleanPath(args[0], config.GetDefaultPage())
	if err != nil {
		return err
	}
	backend, err := openBackend(cmd.Context())
	if err != nil {
		return err
	}
	defer backend.Close()

	rv, ok := backend.(revisioner)
	if !ok {
		return fmt.Errorf("storage %q keeps no history, use sqlite", config.GetStorage())
	}
	revs, err := rv.Revisions(cmd.Context(), page)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, r := range revs {
		fmt.Fprintf(out, "%s  %s  %s\n", r.Created.Format(time.DateTime), r.Digest[:12], r.Message)
	}
	return nil
}

// ============================================================================
// rm
// ============================================================================

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <page>",
		Short: "Delete a page",
		Args:  cobra.ExactArgs(1),
		RunE:  runRm,
	}
}

func runRm(cmd *cobra.Command, args []string) error {
	page, err := store.CleanPath(args[0], config.GetDefaultPage())
	if err != nil {
		return err
	}
	backend, err := openBackend(cmd.Context())
	if err != nil {
		return err
	}
	defer backend.Close()

	if err := backend.Delete(cmd.Context(), page); err != nil {
		return fmt.Errorf("delete %s: %w", page, err)
	}
	logging.PageEvent("delete", page)
	return nil
}
