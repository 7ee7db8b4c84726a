package commentstyle

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrInvalidStyle indicates a [Style] that cannot wrap text safely.
var ErrInvalidStyle = errors.New("invalid comment style")

// Kind distinguishes line comments from block comments.
type Kind int

const (
	// Line styles prefix every line independently, like "//" or "#".
	Line Kind = iota
	// Block styles enclose text between an opening and closing delimiter,
	// like "/*" and "*/".
	Block
)

// String returns "line" or "block".
func (k Kind) String() string {
	if k == Block {
		return "block"
	}

	return "line"
}

// Style describes the comment syntax of one file type.
//
// Styles are plain values; copies are independent and never mutated by the
// [Registry] after construction.
type Style struct {
	// Name identifies the style in diagnostics, e.g. "hash" or "c-block".
	Name string
	// Prefix starts every line of a [Line] style.
	Prefix string
	// Open and Close delimit a [Block] style.
	Open  string
	Close string
	// Continuation optionally prefixes the inner lines of a multi-line
	// [Block] comment, e.g. " *".
	Continuation string
	// AltOpen, AltClose and AltContinuation describe a block syntax a
	// [Line] style also accepts, like "/*" in Go. Notices are never
	// rendered with it, but an existing notice inside such a block is
	// found and updated in place.
	AltOpen         string
	AltClose        string
	AltContinuation string
	// Preamble names the leading constructs (see [Matchers]) that must stay
	// ahead of an inserted notice. The byte-order mark is always honored.
	Preamble []string
	Kind     Kind
}

// LineStyle returns a [Line] style.
func LineStyle(name, prefix string, preamble ...string) Style {
	return Style{
		Name:     name,
		Kind:     Line,
		Prefix:   prefix,
		Preamble: preamble,
	}
}

// BlockStyle returns a [Block] style. cont may be empty.
func BlockStyle(name, open, closing, cont string, preamble ...string) Style {
	return Style{
		Name:         name,
		Kind:         Block,
		Open:         open,
		Close:        closing,
		Continuation: cont,
		Preamble:     preamble,
	}
}

// WithAltBlock returns a copy of s that also recognizes block comments
// between open and closing. cont may be empty.
func (s Style) WithAltBlock(open, closing, cont string) Style {
	s.AltOpen = open
	s.AltClose = closing
	s.AltContinuation = cont

	return s
}

// String renders the style as it would wrap a single line, e.g. "# ..." or
// "/* ... */".
func (s Style) String() string {
	if s.Kind == Block {
		return s.Open + " ... " + s.Close
	}

	return s.Prefix + " ..."
}

// Validate reports whether s has the delimiters its kind requires and only
// names known preamble constructs.
func (s Style) Validate() error {
	switch s.Kind {
	case Line:
		if strings.TrimSpace(s.Prefix) == "" {
			return fmt.Errorf("%w: %s: line style needs a prefix", ErrInvalidStyle, s.Name)
		}

	case Block:
		if strings.TrimSpace(s.Open) == "" || strings.TrimSpace(s.Close) == "" {
			return fmt.Errorf("%w: %s: block style needs open and close delimiters", ErrInvalidStyle, s.Name)
		}

	default:
		return fmt.Errorf("%w: %s: unknown kind %d", ErrInvalidStyle, s.Name, s.Kind)
	}

	if (strings.TrimSpace(s.AltOpen) == "") != (strings.TrimSpace(s.AltClose) == "") {
		return fmt.Errorf("%w: %s: alternate block needs open and close delimiters", ErrInvalidStyle, s.Name)
	}

	if s.AltOpen == "" && s.AltContinuation != "" {
		return fmt.Errorf("%w: %s: alternate continuation without a block", ErrInvalidStyle, s.Name)
	}

	for _, name := range s.Preamble {
		if !slices.ContainsFunc(Matchers, func(m Matcher) bool { return m.Name == name }) {
			return fmt.Errorf("%w: %s: unknown preamble construct %q", ErrInvalidStyle, s.Name, name)
		}
	}

	return nil
}

// Allows reports whether the named leading construct applies to s.
func (s Style) Allows(construct string) bool {
	return construct == ConstructBOM || slices.Contains(s.Preamble, construct)
}
