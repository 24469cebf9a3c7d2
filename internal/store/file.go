package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// FileStore keeps each page as <root>/<path>.md
type FileStore struct {
	fs  afero.Fs
	log *slog.Logger
}

// NewFileStore roots a store at dir inside base. An empty dir uses base as is.
func NewFileStore(base afero.Fs, dir string, log *slog.Logger) *FileStore {
	fsys := base
	if dir != "" {
		fsys = afero.NewBasePathFs(base, dir)
	}
	return &FileStore{fs: fsys, log: orDiscard(log)}
}

func fileFor(p string) string {
	return "/" + p + ".md"
}

// Load reads the page at p
func (s *FileStore) Load(ctx context.Context, p string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := afero.ReadFile(s.fs, fileFor(p))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return "", fmt.Errorf("failed to read %s: %w", p, err)
	}
	return string(data), nil
}

// Save writes markdown to p through a temp file and rename. Unchanged
// content is not rewritten.
func (s *FileStore) Save(ctx context.Context, p, markdown, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := fileFor(p)
	if old, err := afero.ReadFile(s.fs, name); err == nil && Digest(string(old)) == Digest(markdown) {
		s.log.Debug("save skipped, content unchanged", "path", p)
		return nil
	}

	if err := s.fs.MkdirAll(path.Dir(name), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", p, err)
	}
	tmp := name + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, []byte(markdown), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", p, err)
	}
	if err := s.fs.Rename(tmp, name); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", p, err)
	}
	s.log.Info("page saved", "path", p, "bytes", len(markdown), "message", message)
	return nil
}

// Delete removes the page at p
func (s *FileStore) Delete(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.fs.Remove(fileFor(p)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return fmt.Errorf("failed to delete %s: %w", p, err)
	}
	s.log.Info("page deleted", "path", p)
	return nil
}

// List walks the root for markdown files. Hidden files and directories are
// skipped.
func (s *FileStore) List(ctx context.Context) ([]Page, error) {
	var pages []Page
	err := afero.Walk(s.fs, "/", func(name string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		base := info.Name()
		if strings.HasPrefix(base, ".") && name != "/" {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() || !strings.HasSuffix(base, ".md") {
			return nil
		}
		rel := strings.TrimPrefix(filepath.ToSlash(name), "/")
		pages = append(pages, NewPageInfo(strings.TrimSuffix(rel, ".md"), info.ModTime()))
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Path < pages[j].Path })
	return pages, nil
}

// Close is a no-op
func (s *FileStore) Close() error {
	return nil
}
