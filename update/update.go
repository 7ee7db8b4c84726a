// Package update applies rendered notices to file contents and writes the
// result back safely.
//
// [Apply] is pure, so a dry run computes exactly what a real run would
// write. [Write] replaces files through a temporary file and a rename, so
// an interrupted run never leaves a partially written file behind.
package update

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/pmezard/go-difflib/difflib"

	"go.jacobcolvin.com/gitcopyright/commentstyle"
	"go.jacobcolvin.com/gitcopyright/notice"
)

// ErrWrite indicates a file that could not be replaced.
var ErrWrite = errors.New("write file")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// EOL returns the line ending of content: "\r\n" when its first line break
// is CRLF, "\n" otherwise.
func EOL(content []byte) string {
	i := bytes.IndexByte(content, '\n')
	if i > 0 && content[i-1] == '\r' {
		return "\r\n"
	}

	return "\n"
}

// Apply returns content with rendered in place of existing, or with
// rendered inserted after the preamble of style when existing is nil.
//
// Bytes outside the existing span are never changed. An inserted notice is
// followed by one blank line unless the following line is already blank or
// nothing follows.
func Apply(content []byte, existing *notice.Existing, rendered notice.Rendered, style commentstyle.Style) []byte {
	if existing != nil {
		return replace(content, existing, rendered)
	}

	eol := rendered.EOL()
	off := commentstyle.SkipPreamble(content, style)
	pre, rest := content[:off], content[off:]

	out := bytes.NewBuffer(make([]byte, 0, len(content)+len(rendered.String())+2*len(eol)))
	out.Write(pre)

	// A preamble line without a line break ends the file, e.g. a lone
	// shebang.
	if len(pre) > 0 && pre[len(pre)-1] != '\n' && !bytes.Equal(pre, utf8BOM) {
		out.WriteString(eol)
	}

	out.WriteString(rendered.String())

	if len(rest) > 0 && !startsBlank(rest) {
		out.WriteString(eol)
	}

	out.Write(rest)

	return out.Bytes()
}

func replace(content []byte, existing *notice.Existing, rendered notice.Rendered) []byte {
	repl := rendered.String()
	if existing.Inner {
		repl = rendered.Inner(existing.Lead)
	}

	span := content[existing.Start:existing.End]
	if !bytes.HasSuffix(span, []byte("\n")) {
		repl = strings.TrimSuffix(repl, rendered.EOL())
	}

	out := make([]byte, 0, len(content)-len(span)+len(repl))
	out = append(out, content[:existing.Start]...)
	out = append(out, repl...)
	out = append(out, content[existing.End:]...)

	return out
}

// startsBlank reports whether the first line of b holds only whitespace.
func startsBlank(b []byte) bool {
	line := b
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		line = b[:i]
	}

	return len(bytes.TrimSpace(line)) == 0
}

// Write replaces the existing file at path with data through a temporary
// file in the same directory and a rename. The file keeps its permission
// bits.
//
// Write takes no context: once started it runs to completion.
func Write(path string, data []byte) error {
	_, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	// atomic.WriteFile copies the mode of the file it replaces.
	err = atomic.WriteFile(path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	return nil
}

// Diff writes a unified diff between before and after to w, labeled with
// the slash-separated path.
func Diff(w io.Writer, path string, before, after []byte) error {
	err := difflib.WriteUnifiedDiff(w, difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  3,
	})
	if err != nil {
		return fmt.Errorf("diff %s: %w", path, err)
	}

	return nil
}
