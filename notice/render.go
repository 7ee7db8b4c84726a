package notice

import (
	"strings"

	"go.jacobcolvin.com/gitcopyright/commentstyle"
)

// Rendered is an expanded notice wrapped in a comment style.
type Rendered struct {
	eol   string
	lines []string
	text  []string
}

// Render expands t with v and wraps the result in style. eol is the line
// ending of the target file, "\n" or "\r\n".
//
// Line styles prefix every line ("# text", or a bare "#" for blank lines).
// Block styles wrap a single line as "/* text */" and several lines as an
// opening delimiter, continuation-prefixed lines and a closing delimiter.
func Render(t *Template, v Values, style commentstyle.Style, eol string) Rendered {
	text := t.expandLines(v)

	r := Rendered{eol: eol, text: text}

	switch {
	case style.Kind == commentstyle.Line:
		for _, line := range text {
			if line == "" {
				r.lines = append(r.lines, style.Prefix)
			} else {
				r.lines = append(r.lines, style.Prefix+" "+line)
			}
		}

	case len(text) == 1:
		r.lines = []string{style.Open + " " + text[0] + " " + style.Close}

	default:
		r.lines = append(r.lines, style.Open)
		for _, line := range text {
			r.lines = append(r.lines, continuationLine(style, line))
		}

		r.lines = append(r.lines, closeLine(style))
	}

	return r
}

// continuationLine formats one line inside a multi-line block comment.
func continuationLine(style commentstyle.Style, line string) string {
	switch {
	case style.Continuation == "":
		return line

	case line == "":
		return style.Continuation
	}

	return style.Continuation + " " + line
}

// closeLine indents the closing delimiter to line up with the continuation
// prefix, so " *" closes with " */".
func closeLine(style commentstyle.Style) string {
	indent := style.Continuation[:len(style.Continuation)-len(strings.TrimLeft(style.Continuation, " \t"))]

	return indent + style.Close
}

// String returns the wrapped notice, every line terminated by the line
// ending.
func (r Rendered) String() string {
	return joinLines(r.lines, r.eol)
}

// Inner returns the notice as it appears inside an existing block comment,
// every line starting with lead (see [Existing.Lead]) and no delimiters.
// Blank lines get lead without its trailing blanks.
func (r Rendered) Inner(lead string) string {
	lines := make([]string, len(r.text))

	for i, line := range r.text {
		if line == "" {
			lines[i] = strings.TrimRight(lead, " \t")
		} else {
			lines[i] = lead + line
		}
	}

	return joinLines(lines, r.eol)
}

// Lines returns the wrapped lines without line endings.
func (r Rendered) Lines() []string {
	return append([]string(nil), r.lines...)
}

// EOL returns the line ending used by the notice.
func (r Rendered) EOL() string {
	return r.eol
}

func joinLines(lines []string, eol string) string {
	var b strings.Builder

	for _, line := range lines {
		b.WriteString(line)
		b.WriteString(eol)
	}

	return b.String()
}
