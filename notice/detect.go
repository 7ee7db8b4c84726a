package notice

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go4org/hashtriemap"

	"go.jacobcolvin.com/gitcopyright/commentstyle"
	"go.jacobcolvin.com/gitcopyright/years"
)

// DefaultHeadLines is the number of lines after the preamble searched for
// an existing notice.
const DefaultHeadLines = 25

var (
	// ErrMultipleNotices indicates a file head with more than one notice
	// under [MultiSkip].
	ErrMultipleNotices = errors.New("multiple notices")
	// ErrUnknownMode indicates an unrecognized [MatchMode] or
	// [MultiPolicy] name.
	ErrUnknownMode = errors.New("unknown mode")
)

// MatchMode selects what counts as an existing notice.
type MatchMode int

const (
	// MatchMarker recognizes notices that match the template and any
	// comment line holding a copyright marker ("Copyright", "©" or "(c)")
	// and a year. A differently worded notice is rewritten rather than
	// getting a second notice stacked above it.
	MatchMarker MatchMode = iota
	// MatchTemplate only recognizes notices that match the template, with
	// any years. Other notices are left alone and the template's notice is
	// added next to them.
	MatchTemplate
)

// String returns "marker" or "template".
func (m MatchMode) String() string {
	if m == MatchTemplate {
		return "template"
	}

	return "marker"
}

// ParseMatchMode parses the output of [MatchMode.String].
func ParseMatchMode(s string) (MatchMode, error) {
	switch s {
	case "template":
		return MatchTemplate, nil
	case "marker":
		return MatchMarker, nil
	}

	return MatchMarker, fmt.Errorf("%w: match %q", ErrUnknownMode, s)
}

// MultiPolicy decides what happens when a head holds several notices.
type MultiPolicy int

const (
	// MultiFirst treats the first notice as canonical and leaves the rest.
	MultiFirst MultiPolicy = iota
	// MultiSkip refuses to pick one and reports [ErrMultipleNotices].
	MultiSkip
)

// String returns "first" or "skip".
func (p MultiPolicy) String() string {
	if p == MultiSkip {
		return "skip"
	}

	return "first"
}

// ParseMultiPolicy parses the output of [MultiPolicy.String].
func ParseMultiPolicy(s string) (MultiPolicy, error) {
	switch s {
	case "first":
		return MultiFirst, nil
	case "skip":
		return MultiSkip, nil
	}

	return MultiFirst, fmt.Errorf("%w: multiple notices %q", ErrUnknownMode, s)
}

// Existing is a notice found in a file.
type Existing struct {
	// Years holds the years recorded in the notice when Valid is true.
	Years years.Range
	// Start and End are byte offsets of the notice. The span covers whole
	// lines, including the line break of the last one when present.
	Start int
	End   int
	// Line is the 1-based line number of the first notice line.
	Line int
	// Others counts further notices in the head that were ignored.
	Others int
	Valid  bool
	// Inner is true when the notice sits inside a larger block comment and
	// must be replaced without comment delimiters.
	Inner bool
	// Lead is the decoration before the text of the first line of an Inner
	// notice, e.g. " * ".
	Lead string
}

// Detector finds existing notices. It is safe for concurrent use; compiled
// patterns are cached per comment style.
type Detector struct {
	tmpl      *Template
	cache     hashtriemap.HashTrieMap[string, *matcher]
	headLines int
	mode      MatchMode
	multi     MultiPolicy
}

// DetectorOption configures a [Detector].
type DetectorOption func(*Detector)

// WithHeadLines limits the search to the first n lines after the preamble.
func WithHeadLines(n int) DetectorOption {
	return func(d *Detector) {
		d.headLines = n
	}
}

// WithMatch sets the [MatchMode]. Defaults to [MatchMarker].
func WithMatch(m MatchMode) DetectorOption {
	return func(d *Detector) {
		d.mode = m
	}
}

// WithMultiple sets the [MultiPolicy]. Defaults to [MultiFirst].
func WithMultiple(p MultiPolicy) DetectorOption {
	return func(d *Detector) {
		d.multi = p
	}
}

// NewDetector creates a [Detector] for notices rendered from tmpl.
func NewDetector(tmpl *Template, opts ...DetectorOption) *Detector {
	d := &Detector{
		tmpl:      tmpl,
		headLines: DefaultHeadLines,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Detect returns the notice at the head of content, or nil when there is
// none. Only the lines after the preamble of style are searched.
func (d *Detector) Detect(content []byte, style commentstyle.Style) (*Existing, error) {
	m := d.matcher(style)

	off := commentstyle.SkipPreamble(content, style)
	// Allow a notice that starts on the last head line to be matched whole.
	lines, offs := splitHead(content[off:], d.headLines+len(m.full))

	var inside []bool

	switch {
	case style.Kind == commentstyle.Block:
		inside = blockInterior(lines, style.Open, style.Close)
	case style.AltOpen != "":
		inside = blockInterior(lines, style.AltOpen, style.AltClose)
	}

	var found []*Existing

	for i := 0; i < len(lines) && i < d.headLines; {
		ex, next := d.matchAt(m, lines, inside, i)
		if ex == nil {
			i++

			continue
		}

		ex.Start = off + offs[i]
		ex.End = off + offs[next]
		ex.Line = bytes.Count(content[:ex.Start], []byte("\n")) + 1
		found = append(found, ex)
		i = next
	}

	switch {
	case len(found) == 0:
		return nil, nil
	case len(found) > 1 && d.multi == MultiSkip:
		return nil, fmt.Errorf("%w: lines %d and %d", ErrMultipleNotices, found[0].Line, found[1].Line)
	}

	found[0].Others = len(found) - 1

	return found[0], nil
}

// matchAt tries every notice form at line i. It returns the notice and the
// index of the line after it.
func (d *Detector) matchAt(m *matcher, lines []string, inside []bool, i int) (*Existing, int) {
	if ex, ok := matchSeq(m.full, lines[i:]); ok {
		return ex, i + len(m.full)
	}

	if m.body != nil && allInside(inside, i, len(m.body)) {
		if ex, ok := matchSeq(m.body, lines[i:]); ok {
			ex.Inner = true
			ex.Lead = m.lead.FindString(lines[i])

			return ex, i + len(m.body)
		}
	}

	if d.mode != MatchMarker {
		return nil, 0
	}

	line := lines[i]
	if !markerRe.MatchString(line) {
		return nil, 0
	}

	ex := &Existing{}

	switch {
	case inside != nil && inside[i]:
		ex.Inner = true
		ex.Lead = m.lead.FindString(line)
	case m.isComment(line):
	default:
		return nil, 0
	}

	rng := yearsRe.FindString(line)
	if rng == "" {
		return nil, 0
	}

	ex.Years, ex.Valid = parseYears(rng)

	return ex, i + 1
}

var (
	markerRe = regexp.MustCompile(`(?i)copyright|©|\(c\)`)
	yearsRe  = regexp.MustCompile(`\d{4}(?:[ \t]*[-–,][ \t]*\d{4})*`)
)

const (
	yearsPattern = `(\d{4}(?:[ \t]*[-–,][ \t]*\d{4})*)`
	yearPattern  = `(\d{4})`
)

func parseYears(s string) (years.Range, bool) {
	r, err := years.Parse(s)

	return r, err == nil
}

// lineRe matches one line of a notice. The group indices locate the years
// and are zero when the line has no such placeholder.
type lineRe struct {
	re    *regexp.Regexp
	years int
	first int
	last  int
}

// matcher holds the compiled forms of a template in one style.
type matcher struct {
	isComment func(line string) bool
	// full is the notice as rendered.
	full []lineRe
	// body is the notice as it appears inside an existing block comment,
	// nil for line styles without an alternate block syntax.
	body []lineRe
	// lead matches the decoration before the text of a line in body.
	lead *regexp.Regexp
}

func (d *Detector) matcher(style commentstyle.Style) *matcher {
	key := styleKey(style)
	if m, ok := d.cache.Load(key); ok {
		return m
	}

	m, _ := d.cache.LoadOrStore(key, d.compile(style))

	return m
}

func styleKey(s commentstyle.Style) string {
	return strings.Join([]string{
		s.Kind.String(), s.Prefix, s.Open, s.Close, s.Continuation,
		s.AltOpen, s.AltClose, s.AltContinuation,
	}, "\x00")
}

func (d *Detector) compile(style commentstyle.Style) *matcher {
	var texts []string

	groups := make([][3]int, len(d.tmpl.lines))

	for i, segs := range d.tmpl.lines {
		text, g := linePattern(segs)
		texts = append(texts, text)
		groups[i] = g
	}

	m := &matcher{}

	mk := func(pattern string, g [3]int) lineRe {
		return lineRe{
			re:    regexp.MustCompile(`^[ \t]*` + pattern + `[ \t]*\r?$`),
			years: g[0],
			first: g[1],
			last:  g[2],
		}
	}

	body := func(continuation string) {
		cont := contPattern(continuation)
		for i, text := range texts {
			m.body = append(m.body, mk(cont+text, groups[i]))
		}

		m.lead = regexp.MustCompile(`^[ \t]*` + cont)
	}

	if style.Kind == commentstyle.Line {
		prefix := regexp.QuoteMeta(style.Prefix)

		for i, text := range texts {
			if text == "" {
				m.full = append(m.full, mk(prefix, groups[i]))
			} else {
				m.full = append(m.full, mk(prefix+`[ \t]*`+text, groups[i]))
			}
		}

		if style.AltOpen != "" {
			body(style.AltContinuation)
		}

		m.isComment = func(line string) bool {
			t := strings.TrimSpace(line)
			if strings.HasPrefix(t, style.Prefix) {
				return true
			}

			return style.AltOpen != "" && strings.HasPrefix(t, style.AltOpen) && strings.HasSuffix(t, style.AltClose)
		}

		return m
	}

	open := regexp.QuoteMeta(style.Open)
	closing := regexp.QuoteMeta(style.Close)

	body(style.Continuation)

	if len(texts) == 1 {
		m.full = []lineRe{mk(open+`[ \t]*`+texts[0]+`[ \t]*`+closing, groups[0])}
	} else {
		m.full = append(m.full, mk(open, [3]int{}))
		m.full = append(m.full, m.body...)
		m.full = append(m.full, mk(closing, [3]int{}))
	}

	m.isComment = func(line string) bool {
		t := strings.TrimSpace(line)

		return strings.HasPrefix(t, style.Open) && strings.HasSuffix(t, style.Close)
	}

	return m
}

// contPattern matches an optional continuation prefix and the blanks after
// it.
func contPattern(continuation string) string {
	c := strings.TrimSpace(continuation)
	if c == "" {
		return ""
	}

	return `(?:` + regexp.QuoteMeta(c) + `)?[ \t]*`
}

// linePattern converts one template line to a regular expression. Runs of
// literal whitespace match any run of blanks. It returns the group indices
// of the first {years}, {first_year} and {last_year} placeholders.
func linePattern(segs []segment) (string, [3]int) {
	var (
		b      strings.Builder
		groups [3]int
		n      int
	)

	for _, seg := range segs {
		switch seg.placeholder {
		case "":
			words := strings.Fields(seg.text)
			if len(words) == 0 {
				b.WriteString(`[ \t]+`)

				continue
			}

			if seg.text[0] == ' ' || seg.text[0] == '\t' {
				b.WriteString(`[ \t]+`)
			}

			for j, w := range words {
				if j > 0 {
					b.WriteString(`[ \t]+`)
				}

				b.WriteString(regexp.QuoteMeta(w))
			}

			if last := seg.text[len(seg.text)-1]; last == ' ' || last == '\t' {
				b.WriteString(`[ \t]+`)
			}

		case PlaceholderYears:
			n++
			b.WriteString(yearsPattern)

			if groups[0] == 0 {
				groups[0] = n
			}

		case PlaceholderFirstYear, PlaceholderLastYear:
			n++
			b.WriteString(yearPattern)

			idx := 1
			if seg.placeholder == PlaceholderLastYear {
				idx = 2
			}

			if groups[idx] == 0 {
				groups[idx] = n
			}

		case PlaceholderFile, PlaceholderPath:
			b.WriteString(`[^\r\n]*?`)
		}
	}

	return strings.TrimSuffix(b.String(), `[ \t]+`), groups
}

// matchSeq matches res against consecutive lines and collects the recorded
// years.
func matchSeq(res []lineRe, lines []string) (*Existing, bool) {
	if len(lines) < len(res) {
		return nil, false
	}

	var (
		rng                 string
		first, last         string
		haveFirst, haveLast bool
	)

	for j, lr := range res {
		sub := lr.re.FindStringSubmatch(lines[j])
		if sub == nil {
			return nil, false
		}

		if lr.years > 0 && rng == "" {
			rng = sub[lr.years]
		}

		if lr.first > 0 && !haveFirst {
			first, haveFirst = sub[lr.first], true
		}

		if lr.last > 0 && !haveLast {
			last, haveLast = sub[lr.last], true
		}
	}

	ex := &Existing{}

	switch {
	case rng != "":
		ex.Years, ex.Valid = parseYears(rng)
	case haveFirst || haveLast:
		if !haveFirst {
			first = last
		}

		if !haveLast {
			last = first
		}

		ex.Years, ex.Valid = parseYears(first + "-" + last)
	}

	return ex, true
}

func allInside(inside []bool, i, n int) bool {
	if inside == nil || i+n > len(inside) {
		return false
	}

	for _, in := range inside[i : i+n] {
		if !in {
			return false
		}
	}

	return true
}

// blockInterior marks the lines strictly between the opening and closing
// lines of multi-line block comments.
func blockInterior(lines []string, open, closing string) []bool {
	inside := make([]bool, len(lines))
	in := false

	for i, line := range lines {
		if in {
			if strings.Contains(line, closing) {
				in = false
			} else {
				inside[i] = true
			}

			continue
		}

		rest, ok := strings.CutPrefix(strings.TrimLeft(line, " \t"), open)
		if ok && !strings.Contains(rest, closing) {
			in = true
		}
	}

	return inside
}

// splitHead splits up to n lines off b. offs has one more entry than lines:
// the offset just past the last line.
func splitHead(b []byte, n int) ([]string, []int) {
	var (
		lines []string
		offs  []int
		pos   int
	)

	for pos < len(b) && len(lines) < n {
		end := len(b)
		next := len(b)

		if i := bytes.IndexByte(b[pos:], '\n'); i >= 0 {
			end = pos + i
			next = end + 1
		}

		lines = append(lines, string(b[pos:end]))
		offs = append(offs, pos)
		pos = next
	}

	return lines, append(offs, pos)
}
