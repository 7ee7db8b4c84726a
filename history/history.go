// Package history reads per-file commit history from a git work tree.
//
// A [Session] resolves the git binary and the work tree root once, then
// answers per-file queries by running git as a subprocess. Every query is
// bounded by a timeout so one pathological file cannot stall a run.
package history

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds each git query unless [WithTimeout] says otherwise.
const DefaultTimeout = 30 * time.Second

var (
	// ErrGitUnavailable indicates that no git binary could be found.
	ErrGitUnavailable = errors.New("git is not available")
	// ErrNotRepository indicates a directory outside any git work tree.
	ErrNotRepository = errors.New("not a git repository")
	// ErrNoHistory indicates a path without any commits, usually because it
	// was never committed.
	ErrNoHistory = errors.New("no commit history")
	// ErrTimeout indicates a git query that exceeded its timeout.
	ErrTimeout = errors.New("git query timed out")
	// ErrGitFailed indicates a git invocation that exited unsuccessfully.
	ErrGitFailed = errors.New("git command failed")
)

// Commit is one commit that touched a file.
type Commit struct {
	// Time is the committer date in the committer's own offset, so Year
	// matches the year git prints for the commit.
	Time time.Time
	Hash string
	// Path is the file's path at this commit, which differs from the
	// current path across renames.
	Path string
}

// Session is an open handle to one git work tree. It is safe for concurrent
// use.
type Session struct {
	runner  Runner
	root    string
	timeout time.Duration
}

// Option configures a [Session].
type Option func(*Session)

// WithRunner replaces the subprocess runner, which is mostly useful in
// tests. The git binary is not looked up when a runner is given.
func WithRunner(r Runner) Option {
	return func(s *Session) {
		s.runner = r
	}
}

// WithTimeout bounds each git query. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.timeout = d
	}
}

// Open resolves the work tree containing dir.
func Open(ctx context.Context, dir string, opts ...Option) (*Session, error) {
	s := &Session{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(s)
	}

	if s.runner == nil {
		path, err := exec.LookPath("git")
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrGitUnavailable, err)
		}

		s.runner = ExecRunner{Path: path}
	}

	out, err := s.run(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		if errors.Is(err, ErrGitFailed) {
			return nil, fmt.Errorf("%w: %s: %w", ErrNotRepository, dir, err)
		}

		return nil, err
	}

	s.root = strings.TrimSpace(string(out))
	if s.root == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotRepository, dir)
	}

	slog.Debug("opened repository", slog.String("root", s.root))

	return s, nil
}

// Root returns the absolute path of the work tree root.
func (s *Session) Root() string {
	return s.root
}

// logFieldSep starts each commit record in [Session.Log] output; git prints
// it for the "%x1e" placeholder.
const logFieldSep = "\x1e"

// Log returns the commits that touched path, newest first, following the
// file across renames. path is relative to the work tree root.
//
// Merge commits are included so a change that landed on the main line in a
// later year counts for that year.
func (s *Session) Log(ctx context.Context, path string) ([]Commit, error) {
	out, err := s.run(ctx, s.root,
		"-c", "core.quotePath=false", "--literal-pathspecs",
		"log", "--follow", "-m", "--name-only", "--no-color",
		"--format=%x1e%H%x09%cI",
		"--", path,
	)
	if err != nil {
		return nil, err
	}

	commits, err := parseLog(out, path)
	if err != nil {
		return nil, err
	}

	if len(commits) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoHistory, path)
	}

	return commits, nil
}

func parseLog(out []byte, path string) ([]Commit, error) {
	var commits []Commit

	seen := make(map[string]bool)

	for record := range strings.SplitSeq(string(out), logFieldSep) {
		lines := strings.Split(strings.TrimSpace(record), "\n")
		if lines[0] == "" {
			continue
		}

		hash, date, ok := strings.Cut(lines[0], "\t")
		if !ok {
			return nil, fmt.Errorf("%w: unexpected log line %q", ErrGitFailed, lines[0])
		}

		// "-m" repeats a merge once per parent.
		if seen[hash] {
			continue
		}

		seen[hash] = true

		when, err := time.Parse(time.RFC3339, date)
		if err != nil {
			return nil, fmt.Errorf("%w: parse commit date: %w", ErrGitFailed, err)
		}

		c := Commit{Hash: hash, Time: when, Path: path}
		for _, line := range lines[1:] {
			if line = strings.TrimSpace(line); line != "" {
				c.Path = line
			}
		}

		commits = append(commits, c)
	}

	return commits, nil
}

// Years returns the committer year of every commit that touched path.
func (s *Session) Years(ctx context.Context, path string) ([]int, error) {
	commits, err := s.Log(ctx, path)
	if err != nil {
		return nil, err
	}

	yrs := make([]int, len(commits))
	for i, c := range commits {
		yrs[i] = c.Time.Year()
	}

	return yrs, nil
}

// File modes reported by git for special index entries.
const (
	ModeSymlink   = "120000"
	ModeSubmodule = "160000"
)

// Entry is one path in the index.
type Entry struct {
	Path string
	Mode string
}

// Symlink reports whether the entry is a symbolic link.
func (e Entry) Symlink() bool { return e.Mode == ModeSymlink }

// Submodule reports whether the entry is a submodule (gitlink).
func (e Entry) Submodule() bool { return e.Mode == ModeSubmodule }

// Files lists the tracked files matching pathspecs, or every tracked file
// when none are given. Ignored and untracked files are never listed.
func (s *Session) Files(ctx context.Context, pathspecs ...string) ([]Entry, error) {
	args := append([]string{"ls-files", "-z", "-s", "--"}, pathspecs...)

	out, err := s.run(ctx, s.root, args...)
	if err != nil {
		return nil, err
	}

	var entries []Entry

	seen := make(map[string]bool)

	for field := range bytes.SplitSeq(out, []byte{0}) {
		if len(field) == 0 {
			continue
		}

		// "<mode> <object> <stage>\t<path>"
		meta, path, ok := strings.Cut(string(field), "\t")
		if !ok {
			return nil, fmt.Errorf("%w: unexpected ls-files entry %q", ErrGitFailed, field)
		}

		mode, _, _ := strings.Cut(meta, " ")

		// Unmerged paths appear once per stage.
		if seen[path] {
			continue
		}

		seen[path] = true

		entries = append(entries, Entry{Path: path, Mode: mode})
	}

	return entries, nil
}

// Modified returns the tracked paths with staged or unstaged changes.
func (s *Session) Modified(ctx context.Context) (map[string]bool, error) {
	out, err := s.run(ctx, s.root, "status", "--porcelain=v1", "-z", "--untracked-files=no")
	if err != nil {
		return nil, err
	}

	modified := make(map[string]bool)

	fields := bytes.Split(out, []byte{0})
	for i := 0; i < len(fields); i++ {
		entry := string(fields[i])
		if len(entry) < 4 {
			continue
		}

		modified[entry[3:]] = true

		// Renames and copies carry the original path as a second field.
		if entry[0] == 'R' || entry[0] == 'C' {
			i++
		}
	}

	return modified, nil
}

// Show returns the contents of path at rev.
func (s *Session) Show(ctx context.Context, rev, path string) ([]byte, error) {
	return s.run(ctx, s.root, "show", "--no-textconv", rev+":"+path)
}

func (s *Session) run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	slog.Debug("running git", slog.String("dir", dir), slog.Any("args", args))

	out, err := s.runner.Run(ctx, dir, args...)
	if err != nil {
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return nil, fmt.Errorf("%w: git %s after %s", ErrTimeout, strings.Join(args, " "), s.timeout)
		case ctx.Err() != nil:
			return nil, ctx.Err()
		}

		return nil, err
	}

	return out, nil
}
