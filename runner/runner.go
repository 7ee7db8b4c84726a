// Package runner drives a notice update across a work tree.
//
// A [Runner] lists the candidate files once, then processes them on a
// bounded pool of workers. Each file goes through the same steps: resolve
// its comment style, find an existing notice, compute the years from git
// history, render the notice and apply it. Per-file problems are recorded
// in the [Summary] and never stop the run; only problems that prevent the
// run from starting are returned as errors.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"go.jacobcolvin.com/gitcopyright/commentstyle"
	"go.jacobcolvin.com/gitcopyright/history"
	"go.jacobcolvin.com/gitcopyright/notice"
	"go.jacobcolvin.com/gitcopyright/update"
	"go.jacobcolvin.com/gitcopyright/walker"
	"go.jacobcolvin.com/gitcopyright/years"
)

// ErrNoStyle indicates a file whose comment syntax is unknown.
var ErrNoStyle = errors.New("no comment style")

// Status is the outcome for one file.
type Status string

// Statuses.
const (
	StatusInserted  Status = "inserted"
	StatusUpdated   Status = "updated"
	StatusUnchanged Status = "unchanged"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Changed reports whether the status stands for a modified file.
func (s Status) Changed() bool {
	return s == StatusInserted || s == StatusUpdated
}

// Result is the outcome for one file.
type Result struct {
	// Err is set for failed files and for files skipped because of a
	// problem worth reporting.
	Err    error
	Path   string
	Status Status
	Reason string
	// Years is the range written, or that would be written in dry-run and
	// check mode.
	Years years.Range
	diff  []byte
}

// Summary collects the results of a run, sorted by path.
type Summary struct {
	Results []Result
}

// Count returns the number of results with status s.
func (s *Summary) Count(st Status) int {
	n := 0

	for _, r := range s.Results {
		if r.Status == st {
			n++
		}
	}

	return n
}

// Changed returns the results of files that were or would be modified.
func (s *Summary) Changed() []Result {
	var out []Result

	for _, r := range s.Results {
		if r.Status.Changed() {
			out = append(out, r)
		}
	}

	return out
}

// Failed returns the results of files that could not be processed.
func (s *Summary) Failed() []Result {
	var out []Result

	for _, r := range s.Results {
		if r.Status == StatusFailed {
			out = append(out, r)
		}
	}

	return out
}

// LogValue implements [slog.LogValuer].
func (s *Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int(string(StatusInserted), s.Count(StatusInserted)),
		slog.Int(string(StatusUpdated), s.Count(StatusUpdated)),
		slog.Int(string(StatusUnchanged), s.Count(StatusUnchanged)),
		slog.Int(string(StatusSkipped), s.Count(StatusSkipped)),
		slog.Int(string(StatusFailed), s.Count(StatusFailed)),
	)
}

// Runner applies notices to the files of one work tree. Create instances
// with [Config.NewRunner].
type Runner struct {
	session    *history.Session
	walker     *walker.Walker
	registry   *commentstyle.Registry
	template   *notice.Template
	detector   *notice.Detector
	out        io.Writer
	now        func() time.Time
	workers    int
	dryRun     bool
	check      bool
	dirtyBumps bool
}

// Root returns the work tree root.
func (r *Runner) Root() string {
	return r.session.Root()
}

// Run processes the tracked files matching pathspecs, or every tracked file
// when none are given. Pathspecs are relative to the current directory.
//
// When ctx is canceled no further files are started, files in flight
// finish, and the partial summary is returned together with the context's
// error.
func (r *Runner) Run(ctx context.Context, pathspecs ...string) (*Summary, error) {
	specs, err := r.rootRelative(pathspecs)
	if err != nil {
		return nil, err
	}

	files, skips, err := r.walker.Walk(ctx, specs...)
	if err != nil {
		return nil, err
	}

	var modified map[string]bool
	if r.dirtyBumps {
		modified, err = r.session.Modified(ctx)
		if err != nil {
			return nil, err
		}
	}

	slog.Debug("processing files",
		slog.Int("files", len(files)),
		slog.Int("skipped", len(skips)),
		slog.Int("workers", r.workers),
	)

	results := make([]Result, len(files))
	for i, f := range files {
		results[i] = Result{Path: f.Path, Status: StatusSkipped, Reason: "canceled"}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, f := range files {
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			results[i] = r.process(gctx, f, modified[f.Path])

			return nil
		})
	}

	// Workers record their problems in results and never fail the group.
	err = g.Wait()
	if err != nil {
		return nil, err
	}

	for _, s := range skips {
		res := Result{Path: s.Path}
		results = append(results, r.skip(slog.With(slog.String("path", s.Path)), res, string(s.Reason), s.Err))
	}

	slices.SortFunc(results, func(a, b Result) int {
		return strings.Compare(a.Path, b.Path)
	})

	sum := &Summary{Results: results}

	if r.dryRun {
		for _, res := range results {
			if len(res.diff) == 0 {
				continue
			}

			_, err := r.out.Write(res.diff)
			if err != nil {
				return sum, fmt.Errorf("writing diff: %w", err)
			}
		}
	}

	return sum, ctx.Err()
}

// rootRelative rewrites pathspecs relative to the current directory into
// pathspecs relative to the work tree root.
func (r *Runner) rootRelative(pathspecs []string) ([]string, error) {
	if len(pathspecs) == 0 {
		return nil, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	// Work tree roots are reported with symlinks resolved.
	if resolved, err := filepath.EvalSymlinks(cwd); err == nil {
		cwd = resolved
	}

	out := make([]string, 0, len(pathspecs))

	for _, spec := range pathspecs {
		abs := spec
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(cwd, spec)
		}

		rel, err := filepath.Rel(r.session.Root(), abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil, fmt.Errorf("%w: %s is outside the repository %s", ErrInvalidOption, spec, r.session.Root())
		}

		out = append(out, filepath.ToSlash(rel))
	}

	return out, nil
}

// process runs the pipeline for one file. dirty is true when git reports
// uncommitted changes to it.
func (r *Runner) process(ctx context.Context, f walker.File, dirty bool) Result {
	res := Result{Path: f.Path}
	logger := slog.With(slog.String("path", f.Path))

	if ctx.Err() != nil {
		return r.skip(logger, res, "canceled", nil)
	}

	content, err := os.ReadFile(f.Abs)
	if err != nil {
		return r.fail(logger, res, fmt.Errorf("read file: %w", err))
	}

	style, ok := r.registry.Lookup(f.Path, content)
	if !ok {
		return r.skip(logger, res, "unknown comment style", fmt.Errorf("%w for %s", ErrNoStyle, f.Path))
	}

	existing, err := r.detector.Detect(content, style)
	if errors.Is(err, notice.ErrMultipleNotices) {
		return r.skip(logger, res, "multiple notices", err)
	}

	if err != nil {
		return r.fail(logger, res, err)
	}

	if existing != nil && existing.Others > 0 {
		logger.Warn("found several notices, updating the first",
			slog.Int("line", existing.Line),
			slog.Int("others", existing.Others),
		)
	}

	yrs, err := r.session.Years(ctx, f.Path)
	switch {
	case errors.Is(err, history.ErrNoHistory):
		return r.skip(logger, res, "no history", nil)
	case errors.Is(err, history.ErrTimeout):
		return r.skip(logger, res, "history timeout", err)
	case errors.Is(err, context.Canceled):
		return r.skip(logger, res, "canceled", nil)
	case err != nil:
		return r.fail(logger, res, err)
	}

	if dirty {
		dirty = r.dirtyOutsideNotice(ctx, f.Path, content, style)
	}

	rng, err := years.Resolve(yrs, years.WithDirty(dirty), years.WithNow(r.now))
	if err != nil {
		return r.fail(logger, res, err)
	}

	res.Years = rng

	rendered := notice.Render(r.template, notice.Values{Path: f.Path, Years: rng}, style, update.EOL(content))
	out := update.Apply(content, existing, rendered, style)

	if bytes.Equal(out, content) {
		res.Status = StatusUnchanged
		logger.Debug("notice up to date", slog.String("years", rng.String()))

		return res
	}

	res.Status = StatusInserted
	if existing != nil {
		res.Status = StatusUpdated
	}

	if r.dryRun {
		var buf bytes.Buffer

		err = update.Diff(&buf, f.Path, content, out)
		if err != nil {
			return r.fail(logger, res, err)
		}

		res.diff = buf.Bytes()
	}

	if r.dryRun || r.check {
		logger.Info("notice needs "+actionVerb(res.Status), slog.String("years", rng.String()))

		return res
	}

	// The write runs to completion even if ctx is canceled meanwhile.
	err = update.Write(f.Abs, out)
	if err != nil {
		return r.fail(logger, res, err)
	}

	logger.Info("notice "+string(res.Status), slog.String("years", rng.String()))

	return res
}

func actionVerb(s Status) string {
	if s == StatusInserted {
		return "insertion"
	}

	return "update"
}

func (r *Runner) skip(logger *slog.Logger, res Result, reason string, err error) Result {
	res.Status = StatusSkipped
	res.Reason = reason
	res.Err = err

	if err != nil {
		logger.Warn("skipping file", slog.String("reason", reason), slog.Any("err", err))
	} else {
		logger.Debug("skipping file", slog.String("reason", reason))
	}

	return res
}

func (r *Runner) fail(logger *slog.Logger, res Result, err error) Result {
	res.Status = StatusFailed
	res.Err = err

	logger.Error("processing file", slog.Any("err", err))

	return res
}

// dirtyOutsideNotice reports whether the work tree copy of path differs
// from HEAD in anything but its notice. Changes made by a previous run do
// not count, so a second run before committing changes nothing.
func (r *Runner) dirtyOutsideNotice(ctx context.Context, path string, content []byte, style commentstyle.Style) bool {
	committed, err := r.session.Show(ctx, "HEAD", path)
	if err != nil {
		slog.Debug("reading committed file", slog.String("path", path), slog.Any("err", err))

		return true
	}

	return !bytes.Equal(r.withoutNotice(content, style), r.withoutNotice(committed, style))
}

// withoutNotice returns content with its notice and the blank lines after
// it removed. Without a notice the blank lines after the preamble are
// removed instead, so both forms compare equal.
func (r *Runner) withoutNotice(content []byte, style commentstyle.Style) []byte {
	start := commentstyle.SkipPreamble(content, style)
	end := start

	existing, err := r.detector.Detect(content, style)
	if err == nil && existing != nil {
		start, end = existing.Start, existing.End
	}

	pre := bytes.TrimRight(content[:start], "\r\n")
	rest := trimBlankLines(content[end:])

	out := make([]byte, 0, len(pre)+1+len(rest))
	out = append(out, pre...)
	out = append(out, 0)
	out = append(out, rest...)

	return out
}

func trimBlankLines(b []byte) []byte {
	for len(b) > 0 {
		i := bytes.IndexByte(b, '\n')
		if i < 0 || len(bytes.TrimSpace(b[:i])) > 0 {
			return b
		}

		b = b[i+1:]
	}

	return b
}
