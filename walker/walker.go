// Package walker enumerates the tracked files of a work tree that are
// candidates for a notice.
//
// Only files git tracks are considered, so anything git ignores never
// reaches the pipeline. Excluded, special and binary files are reported as
// [Skip] values rather than errors. So are files that cannot be inspected,
// with the cause in [Skip.Err], so one unreadable file never stops a walk.
package walker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"go.jacobcolvin.com/gitcopyright/history"
)

// ErrInvalidPattern indicates a malformed exclude pattern.
var ErrInvalidPattern = errors.New("invalid exclude pattern")

// sniffLen matches the prefix git inspects when deciding a file is binary.
const sniffLen = 8000

// Reason explains why a tracked file was skipped.
type Reason string

// Skip reasons.
const (
	ReasonExcluded   Reason = "excluded"
	ReasonSymlink    Reason = "symlink"
	ReasonSubmodule  Reason = "submodule"
	ReasonDeleted    Reason = "deleted"
	ReasonBinary     Reason = "binary"
	ReasonTooLarge   Reason = "too large"
	ReasonIrregular  Reason = "not a regular file"
	ReasonUnreadable Reason = "unreadable"
)

// File is a tracked file to process.
type File struct {
	// Path is slash-separated and relative to the work tree root.
	Path string
	// Abs is the absolute path on disk.
	Abs string
	// Ext is the lower-case extension without the dot.
	Ext  string
	Size int64
}

// Skip is a tracked file left alone.
type Skip struct {
	// Err is set for [ReasonUnreadable].
	Err    error
	Path   string
	Reason Reason
}

// Lister lists the tracked files of a work tree. [*history.Session]
// implements it.
type Lister interface {
	Root() string
	Files(ctx context.Context, pathspecs ...string) ([]history.Entry, error)
}

// Walker enumerates candidate files.
type Walker struct {
	lister   Lister
	excludes []exclude
	maxSize  int64
}

type exclude struct {
	glob string
	// base also matches the glob against every base name, like a
	// .gitignore pattern without a slash.
	base bool
}

// Option configures a [Walker].
type Option func(*Walker)

// WithExclude skips paths matching any of the doublestar patterns. A
// pattern matching a directory excludes everything below it. A pattern
// without a slash matches a base name at any depth; a leading slash anchors
// it to the root instead.
func WithExclude(patterns ...string) Option {
	return func(w *Walker) {
		for _, p := range patterns {
			p = strings.TrimSuffix(filepath.ToSlash(strings.TrimSpace(p)), "/")

			anchored := strings.HasPrefix(p, "/")
			p = strings.TrimLeft(p, "/")

			if p != "" {
				w.excludes = append(w.excludes, exclude{
					glob: p,
					base: !anchored && !strings.Contains(p, "/"),
				})
			}
		}
	}
}

// WithMaxSize skips files larger than n bytes. Zero disables the limit.
func WithMaxSize(n int64) Option {
	return func(w *Walker) {
		w.maxSize = n
	}
}

// New creates a [Walker] over the files listed by l.
func New(l Lister, opts ...Option) (*Walker, error) {
	w := &Walker{lister: l}
	for _, opt := range opts {
		opt(w)
	}

	for _, ex := range w.excludes {
		if !doublestar.ValidatePattern(ex.glob) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, ex.glob)
		}
	}

	return w, nil
}

// Walk returns the tracked files matching pathspecs (all when empty) that
// should be processed, and the ones skipped, both sorted by path. It only
// fails when the files cannot be listed or ctx ends.
func (w *Walker) Walk(ctx context.Context, pathspecs ...string) ([]File, []Skip, error) {
	entries, err := w.lister.Files(ctx, pathspecs...)
	if err != nil {
		return nil, nil, fmt.Errorf("list files: %w", err)
	}

	var (
		files []File
		skips []Skip
	)

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		f, reason, err := w.classify(e)
		if reason != "" {
			skips = append(skips, Skip{Path: e.Path, Reason: reason, Err: err})

			continue
		}

		files = append(files, f)
	}

	slices.SortFunc(files, func(a, b File) int { return strings.Compare(a.Path, b.Path) })
	slices.SortFunc(skips, func(a, b Skip) int { return strings.Compare(a.Path, b.Path) })

	return files, skips, nil
}

func (w *Walker) classify(e history.Entry) (File, Reason, error) {
	switch {
	case w.Excluded(e.Path):
		return File{}, ReasonExcluded, nil
	case e.Symlink():
		return File{}, ReasonSymlink, nil
	case e.Submodule():
		return File{}, ReasonSubmodule, nil
	}

	f := File{
		Path: e.Path,
		Abs:  filepath.Join(w.lister.Root(), filepath.FromSlash(e.Path)),
		Ext:  strings.ToLower(strings.TrimPrefix(path.Ext(e.Path), ".")),
	}

	info, err := os.Lstat(f.Abs)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return File{}, ReasonDeleted, nil
	case err != nil:
		return File{}, ReasonUnreadable, err
	case !info.Mode().IsRegular():
		return File{}, ReasonIrregular, nil
	}

	f.Size = info.Size()
	if w.maxSize > 0 && f.Size > w.maxSize {
		return File{}, ReasonTooLarge, nil
	}

	binary, err := IsBinary(f.Abs, f.Ext)
	if err != nil {
		return File{}, ReasonUnreadable, err
	}

	if binary {
		return File{}, ReasonBinary, nil
	}

	return f, "", nil
}

// Excluded reports whether the slash-separated path matches an exclude
// pattern.
func (w *Walker) Excluded(p string) bool {
	for _, ex := range w.excludes {
		// Try the path and every parent directory.
		for dir := p; dir != "." && dir != "/"; dir = path.Dir(dir) {
			name := dir
			if ex.base {
				name = path.Base(dir)
			}

			if ok, _ := doublestar.Match(ex.glob, name); ok {
				return true
			}
		}
	}

	return false
}

// binaryExts lists extensions that are binary regardless of content.
var binaryExts = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "gif": true, "bmp": true,
	"ico": true, "icns": true, "webp": true, "tif": true, "tiff": true,
	"psd": true, "pdf": true, "zip": true, "gz": true, "tgz": true,
	"bz2": true, "xz": true, "zst": true, "7z": true, "rar": true,
	"tar": true, "jar": true, "war": true, "class": true, "so": true,
	"dylib": true, "dll": true, "exe": true, "o": true, "a": true,
	"lib": true, "bin": true, "woff": true, "woff2": true, "ttf": true,
	"otf": true, "eot": true, "mp3": true, "mp4": true, "mov": true,
	"avi": true, "wav": true, "flac": true, "ogg": true, "webm": true,
	"pyc": true, "pyo": true, "wasm": true, "sqlite": true, "db": true,
}

// IsBinary reports whether the file at name is binary, judged by its
// extension or by a NUL byte in its first 8000 bytes.
func IsBinary(name, ext string) (bool, error) {
	if binaryExts[ext] {
		return true, nil
	}

	f, err := os.Open(name)
	if err != nil {
		return false, err
	}

	//nolint:errcheck // Read-only file.
	defer f.Close()

	head := make([]byte, sniffLen)

	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, err
	}

	return bytes.IndexByte(head[:n], 0) >= 0, nil
}
