package commentstyle

import (
	"bytes"
	"regexp"
)

// Names of the leading constructs known to [Matchers].
const (
	ConstructBOM      = "bom"
	ConstructShebang  = "shebang"
	ConstructXML      = "xml"
	ConstructDoctype  = "doctype"
	ConstructPHP      = "php"
	ConstructEncoding = "encoding"
)

// Position locates a candidate construct in the file head.
type Position struct {
	// Offset is the byte offset of the candidate from the start of the file.
	Offset int
	// Line is the zero-based line number of the candidate.
	Line int
}

// Matcher recognizes one kind of construct that must remain first in a file.
type Matcher struct {
	// Match returns the number of bytes the construct occupies at the start
	// of rest, or zero when rest does not start with it. Constructs that
	// occupy a line consume its line break too.
	Match func(rest []byte, pos Position) int
	Name  string
	// Inline is true for constructs that do not end a line, like a
	// byte-order mark.
	Inline bool
}

var (
	xmlDeclRe  = regexp.MustCompile(`^<\?xml\s[^>]*\?>`)
	doctypeRe  = regexp.MustCompile(`(?i)^<!doctype\s`)
	phpOpenRe  = regexp.MustCompile(`^<\?php\b`)
	encodingRe = regexp.MustCompile(`^[ \t\f]*#.*?coding[:=][ \t]*[-_.a-zA-Z0-9]+`)
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Matchers is the ordered table of leading constructs. [SkipPreamble] tries
// them in order against the head of a file, so adding a construct kind only
// needs a new entry here and a name in the styles that allow it.
var Matchers = []Matcher{
	{
		Name:   ConstructBOM,
		Inline: true,
		Match: func(rest []byte, pos Position) int {
			if pos.Offset == 0 && bytes.HasPrefix(rest, utf8BOM) {
				return len(utf8BOM)
			}

			return 0
		},
	},
	{
		Name: ConstructShebang,
		Match: func(rest []byte, pos Position) int {
			// "#![" opens a Rust inner attribute, not an interpreter line.
			if pos.Line == 0 && bytes.HasPrefix(rest, []byte("#!")) && !bytes.HasPrefix(rest, []byte("#![")) {
				return lineLen(rest)
			}

			return 0
		},
	},
	{
		Name:  ConstructXML,
		Match: lineRegexp(xmlDeclRe, 0),
	},
	{
		Name:  ConstructDoctype,
		Match: lineRegexp(doctypeRe, -1),
	},
	{
		Name:  ConstructPHP,
		Match: lineRegexp(phpOpenRe, -1),
	},
	{
		// PEP 263 and Ruby magic encoding comments only count on the first
		// two lines.
		Name:  ConstructEncoding,
		Match: lineRegexp(encodingRe, 1),
	},
}

// lineRegexp matches re against the first line of rest. When maxLine is not
// negative the construct only counts up to that zero-based line number.
func lineRegexp(re *regexp.Regexp, maxLine int) func([]byte, Position) int {
	return func(rest []byte, pos Position) int {
		if maxLine >= 0 && pos.Line > maxLine {
			return 0
		}

		n := lineLen(rest)
		if re.Match(bytes.TrimRight(rest[:n], "\r\n")) {
			return n
		}

		return 0
	}
}

// lineLen returns the length of the first line of b including its line
// break, if any.
func lineLen(b []byte) int {
	i := bytes.IndexByte(b, '\n')
	if i < 0 {
		return len(b)
	}

	return i + 1
}

// SkipPreamble returns the byte offset just past every leading construct
// that style requires to stay first in content. A notice is inserted at
// this offset. Each construct kind is consumed at most once.
func SkipPreamble(content []byte, style Style) int {
	pos := Position{}
	used := make(map[string]bool, len(Matchers))

	for {
		matched := false

		for _, m := range Matchers {
			if used[m.Name] || !style.Allows(m.Name) {
				continue
			}

			n := m.Match(content[pos.Offset:], pos)
			if n == 0 {
				continue
			}

			used[m.Name] = true
			pos.Offset += n

			if !m.Inline {
				pos.Line++
			}

			matched = true

			break
		}

		if !matched || pos.Offset >= len(content) {
			return pos.Offset
		}
	}
}
