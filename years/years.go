// Package years reduces commit years to the range recorded in a copyright
// notice and parses the ranges that existing notices carry.
package years

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrNoYears indicates an empty year set.
	ErrNoYears = errors.New("no years")
	// ErrInvalidYears indicates text that holds no recognizable years.
	ErrInvalidYears = errors.New("invalid years")
)

// Range is an inclusive span of calendar years. Start never exceeds End.
type Range struct {
	Start int
	End   int
}

// Single returns the range holding only year y.
func Single(y int) Range {
	return Range{Start: y, End: y}
}

// String returns "2019" for a single year and "2019-2024" otherwise.
func (r Range) String() string {
	if r.Start == r.End {
		return strconv.Itoa(r.Start)
	}

	return strconv.Itoa(r.Start) + "-" + strconv.Itoa(r.End)
}

// Contains reports whether y falls within r.
func (r Range) Contains(y int) bool {
	return y >= r.Start && y <= r.End
}

// Option configures [Resolve].
type Option func(*resolver)

type resolver struct {
	now   func() time.Time
	dirty bool
}

// WithDirty extends the range to the current year when the file has
// uncommitted changes.
func WithDirty(dirty bool) Option {
	return func(r *resolver) {
		r.dirty = dirty
	}
}

// WithNow sets the clock used for the current year. Defaults to [time.Now].
func WithNow(now func() time.Time) Option {
	return func(r *resolver) {
		r.now = now
	}
}

// Resolve returns the range from the earliest to the latest of yrs.
//
// Years after the current year are clamped to it, since they can only come
// from a skewed committer clock.
func Resolve(yrs []int, opts ...Option) (Range, error) {
	if len(yrs) == 0 {
		return Range{}, ErrNoYears
	}

	r := &resolver{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}

	current := r.now().Year()

	rng := Range{Start: slices.Min(yrs), End: slices.Max(yrs)}
	rng.Start = min(rng.Start, current)
	rng.End = min(rng.End, current)

	if r.dirty {
		rng.End = current
	}

	return rng, nil
}

var (
	yearRe      = regexp.MustCompile(`\b\d{4}\b`)
	separatorRe = regexp.MustCompile(`^\s*(?:-|–|—|,|and|to)?\s*$`)
)

// Parse extracts a range from years as recorded in a notice. It accepts a
// single year, a range joined by a hyphen or en dash with optional spaces,
// and comma separated lists. Lists collapse to their earliest and latest
// year.
func Parse(s string) (Range, error) {
	locs := yearRe.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidYears, s)
	}

	yrs := make([]int, 0, len(locs))

	for i, loc := range locs {
		if i > 0 && !separatorRe.MatchString(s[locs[i-1][1]:loc[0]]) {
			return Range{}, fmt.Errorf("%w: %q", ErrInvalidYears, s)
		}

		y, err := strconv.Atoi(s[loc[0]:loc[1]])
		if err != nil {
			return Range{}, fmt.Errorf("%w: %w", ErrInvalidYears, err)
		}

		yrs = append(yrs, y)
	}

	rest := strings.TrimSpace(s[:locs[0][0]] + s[locs[len(locs)-1][1]:])
	if rest != "" {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidYears, s)
	}

	return Range{Start: slices.Min(yrs), End: slices.Max(yrs)}, nil
}
