package notice

import (
	"errors"
	"fmt"
	"path"
	"slices"
	"strconv"
	"strings"

	"go.jacobcolvin.com/gitcopyright/years"
)

var (
	// ErrInvalidTemplate indicates a template with unbalanced braces or no
	// text at all.
	ErrInvalidTemplate = errors.New("invalid template")
	// ErrUnknownPlaceholder indicates a placeholder outside the supported
	// set. The error message names it.
	ErrUnknownPlaceholder = errors.New("unknown placeholder")
	// ErrNoYearPlaceholder indicates a template that never mentions a year,
	// so a notice could never be kept current.
	ErrNoYearPlaceholder = errors.New("template has no year placeholder")
)

// Placeholder names a value substituted into a [Template].
type Placeholder string

// Supported placeholders.
const (
	// PlaceholderYears expands to "2019" or "2019-2024".
	PlaceholderYears Placeholder = "years"
	// PlaceholderFirstYear expands to the first year.
	PlaceholderFirstYear Placeholder = "first_year"
	// PlaceholderLastYear expands to the last year.
	PlaceholderLastYear Placeholder = "last_year"
	// PlaceholderFile expands to the base name of the file.
	PlaceholderFile Placeholder = "file"
	// PlaceholderPath expands to the slash-separated path relative to the
	// repository root.
	PlaceholderPath Placeholder = "path"
)

// Placeholders lists every supported placeholder.
var Placeholders = []Placeholder{
	PlaceholderYears,
	PlaceholderFirstYear,
	PlaceholderLastYear,
	PlaceholderFile,
	PlaceholderPath,
}

func (p Placeholder) yearly() bool {
	return p == PlaceholderYears || p == PlaceholderFirstYear || p == PlaceholderLastYear
}

// Values are the per-file inputs of [Template.Expand].
type Values struct {
	// Path is the slash-separated path relative to the repository root.
	Path  string
	Years years.Range
}

// value returns the expansion of p.
func (v Values) value(p Placeholder) string {
	switch p {
	case PlaceholderYears:
		return v.Years.String()
	case PlaceholderFirstYear:
		return strconv.Itoa(v.Years.Start)
	case PlaceholderLastYear:
		return strconv.Itoa(v.Years.End)
	case PlaceholderFile:
		return path.Base(v.Path)
	case PlaceholderPath:
		return v.Path
	}

	return ""
}

// segment is literal text or a placeholder.
type segment struct {
	text        string
	placeholder Placeholder
}

// Template is a parsed notice template. It is immutable and safe to share.
type Template struct {
	raw   string
	lines [][]segment
}

// ParseTemplate parses s. Placeholders are written as {name}; "{{" and "}}"
// produce literal braces. A template may span several lines; trailing line
// breaks are dropped.
func ParseTemplate(s string) (*Template, error) {
	s = strings.TrimRight(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("%w: empty template", ErrInvalidTemplate)
	}

	t := &Template{raw: s}

	hasYear := false

	for i, line := range strings.Split(s, "\n") {
		segs, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}

		for _, seg := range segs {
			hasYear = hasYear || seg.placeholder.yearly()
		}

		t.lines = append(t.lines, segs)
	}

	if !hasYear {
		return nil, fmt.Errorf("%w: %q needs one of {%s}, {%s} or {%s}", ErrNoYearPlaceholder, s,
			PlaceholderYears, PlaceholderFirstYear, PlaceholderLastYear)
	}

	return t, nil
}

func parseLine(line string) ([]segment, error) {
	var (
		segs []segment
		lit  strings.Builder
	)

	flush := func() {
		if lit.Len() > 0 {
			segs = append(segs, segment{text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(line); i++ {
		c := line[i]

		switch {
		case c == '{' && strings.HasPrefix(line[i:], "{{"):
			lit.WriteByte('{')
			i++

		case c == '}' && strings.HasPrefix(line[i:], "}}"):
			lit.WriteByte('}')
			i++

		case c == '{':
			end := strings.IndexByte(line[i:], '}')
			if end < 0 {
				return nil, fmt.Errorf("%w: unterminated placeholder at column %d", ErrInvalidTemplate, i+1)
			}

			name := Placeholder(line[i+1 : i+end])
			if !slices.Contains(Placeholders, name) {
				return nil, fmt.Errorf("%w: {%s}", ErrUnknownPlaceholder, name)
			}

			flush()
			segs = append(segs, segment{placeholder: name})
			i += end

		case c == '}':
			return nil, fmt.Errorf("%w: unmatched '}' at column %d", ErrInvalidTemplate, i+1)

		default:
			lit.WriteByte(c)
		}
	}

	flush()

	return segs, nil
}

// String returns the template source.
func (t *Template) String() string {
	return t.raw
}

// Expand substitutes v into the template. Lines are joined with "\n".
func (t *Template) Expand(v Values) string {
	return strings.Join(t.expandLines(v), "\n")
}

func (t *Template) expandLines(v Values) []string {
	out := make([]string, len(t.lines))

	for i, segs := range t.lines {
		var b strings.Builder

		for _, seg := range segs {
			if seg.placeholder == "" {
				b.WriteString(seg.text)
			} else {
				b.WriteString(v.value(seg.placeholder))
			}
		}

		out[i] = b.String()
	}

	return out
}
