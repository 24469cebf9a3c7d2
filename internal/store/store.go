// Package store persists page markdown. A page is addressed by its route
// path ("projects/roadmap"); backends map that to files or rows.
package store

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/spf13/afero"
	"github.com/zeebo/blake3"

	"github.com/gubarz/pagemd/internal/links"
)

var (
	// ErrNotFound is returned when a page does not exist
	ErrNotFound = errors.New("page not found")
	// ErrInvalidPath is returned for paths that escape the content root
	ErrInvalidPath = errors.New("invalid page path")
	// ErrUnknownBackend is returned by Open for unsupported storage names
	ErrUnknownBackend = errors.New("unknown storage backend")
)

// Loader reads page markdown
type Loader interface {
	Load(ctx context.Context, path string) (string, error)
}

// Saver writes page markdown. message describes the change for backends
// that keep history.
type Saver interface {
	Save(ctx context.Context, path, markdown, message string) error
}

// Store is a readable and writable page backend
type Store interface {
	Loader
	Saver
}

// Lister enumerates stored pages
type Lister interface {
	List(ctx context.Context) ([]Page, error)
}

// Deleter removes pages
type Deleter interface {
	Delete(ctx context.Context, path string) error
}

// Backend is everything the CLI needs from a store
type Backend interface {
	Store
	Lister
	Deleter
	io.Closer
}

// Digest is the hex BLAKE3 hash of markdown
func Digest(markdown string) string {
	sum := blake3.Sum256([]byte(markdown))
	return hex.EncodeToString(sum[:])
}

// CleanPath normalizes a page path to its route form. The empty route and
// "/" map to def.
func CleanPath(p, def string) (string, error) {
	p = links.Route(strings.ReplaceAll(strings.TrimSpace(p), "\\", "/"))
	if p == "" {
		p = def
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
		}
	}
	p = path.Clean("/" + p)[1:]
	if p == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	return p, nil
}

// Options selects and configures a backend for Open
type Options struct {
	Backend    string // "fs" or "sqlite"
	ContentDir string
	SQLitePath string
	Logger     *slog.Logger
}

// Open creates the configured backend
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch strings.ToLower(opts.Backend) {
	case "", "fs", "file", "files":
		return NewFileStore(afero.NewOsFs(), opts.ContentDir, opts.Logger), nil
	case "sqlite":
		return OpenSQLite(ctx, opts.SQLitePath, opts.Logger)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
}

func orDiscard(log *slog.Logger) *slog.Logger {
	if log == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return log
}
