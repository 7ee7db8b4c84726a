package commentstyle

import (
	"bytes"
	"fmt"
	"maps"
	"path"
	"slices"
	"strings"
)

// Registry maps file names to comment styles.
//
// A Registry is immutable once built, so a single instance is shared by
// every worker. Create instances with [New] or [Default].
type Registry struct {
	styles       map[string]Style
	interpreters map[string]string
}

// Option configures a [Registry] under construction.
type Option func(*Registry)

// WithStyle maps key to s. A key is either an extension without the dot
// ("go", "py"), matched case-insensitively, or an exact base name
// ("Makefile", "CMakeLists.txt"). Later options override earlier ones and
// the built-in table.
func WithStyle(key string, s Style) Option {
	return func(r *Registry) {
		r.styles[normalizeKey(key)] = s
	}
}

// WithInterpreter maps a shebang interpreter name ("python3") to a style
// key, used for files without a usable extension.
func WithInterpreter(name, key string) Option {
	return func(r *Registry) {
		r.interpreters[name] = normalizeKey(key)
	}
}

// New creates an empty [Registry] configured by opts.
func New(opts ...Option) *Registry {
	r := &Registry{
		styles:       make(map[string]Style),
		interpreters: make(map[string]string),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Default creates a [Registry] holding the built-in styles, then applies
// opts on top.
func Default(opts ...Option) *Registry {
	r := New()
	maps.Copy(r.styles, builtinStyles())
	maps.Copy(r.interpreters, builtinInterpreters)

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Validate checks every registered style.
func (r *Registry) Validate() error {
	for _, key := range r.Keys() {
		err := r.styles[key].Validate()
		if err != nil {
			return fmt.Errorf("style %q: %w", key, err)
		}
	}

	for name, key := range r.interpreters {
		if _, ok := r.styles[key]; !ok {
			return fmt.Errorf("%w: interpreter %q maps to unknown style %q", ErrInvalidStyle, name, key)
		}
	}

	return nil
}

// Keys returns the registered keys in sorted order.
func (r *Registry) Keys() []string {
	return slices.Sorted(maps.Keys(r.styles))
}

// Get returns the style registered under key.
func (r *Registry) Get(key string) (Style, bool) {
	s, ok := r.styles[normalizeKey(key)]

	return s, ok
}

// Lookup returns the style for the file at name, a slash-separated path.
// head is the beginning of the file contents and is only consulted for the
// shebang of files whose name matched nothing.
//
// The extension is tried first, then the exact base name, then the shebang
// interpreter. It reports false when nothing matches; callers must skip the
// file rather than guess.
func (r *Registry) Lookup(name string, head []byte) (Style, bool) {
	base := path.Base(name)

	if ext := strings.TrimPrefix(path.Ext(base), "."); ext != "" {
		if s, ok := r.styles[strings.ToLower(ext)]; ok {
			return s, true
		}
	}

	if s, ok := r.styles[base]; ok {
		return s, true
	}

	interp := Interpreter(head)
	if interp == "" {
		return Style{}, false
	}

	for _, candidate := range interpreterCandidates(interp) {
		if key, ok := r.interpreters[candidate]; ok {
			s, ok := r.styles[key]

			return s, ok
		}
	}

	return Style{}, false
}

// Interpreter extracts the interpreter name from a shebang on the first line
// of head, following "/usr/bin/env" and skipping its flags. It returns an
// empty string when head has no shebang.
func Interpreter(head []byte) string {
	head = bytes.TrimPrefix(head, utf8BOM)
	if !bytes.HasPrefix(head, []byte("#!")) || bytes.HasPrefix(head, []byte("#![")) {
		return ""
	}

	line := string(bytes.TrimRight(head[2:lineLen(head)], "\r\n"))

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}

	interp := path.Base(fields[0])
	if interp != "env" {
		return interp
	}

	for _, f := range fields[1:] {
		if strings.HasPrefix(f, "-") || strings.Contains(f, "=") {
			continue
		}

		return path.Base(f)
	}

	return ""
}

// interpreterCandidates yields the interpreter name followed by the name
// stripped of a trailing version, so "python3.12" also tries "python".
func interpreterCandidates(interp string) []string {
	out := []string{interp}

	trimmed := strings.TrimRight(interp, "0123456789.")
	if trimmed != interp && trimmed != "" {
		out = append(out, trimmed)
	}

	return out
}

// normalizeKey strips the dot from ".ext" keys. Extension keys are
// lower case; exact names keep their case.
func normalizeKey(key string) string {
	if ext, ok := strings.CutPrefix(key, "."); ok && !strings.Contains(ext, ".") {
		return strings.ToLower(ext)
	}

	return key
}
