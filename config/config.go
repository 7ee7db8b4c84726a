// Package config loads the optional per-repository configuration file.
//
// The file lives at the work tree root as .gitcopyright.toml,
// .gitcopyright.yaml or .gitcopyright.yml. Every field is optional;
// command-line flags override what the file sets.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-yaml"
	"github.com/google/jsonschema-go/jsonschema"

	"go.jacobcolvin.com/gitcopyright/commentstyle"
)

// ErrInvalidConfig indicates a configuration file that cannot be used.
var ErrInvalidConfig = errors.New("invalid config")

// Names lists the file names searched at the work tree root, in order.
var Names = []string{".gitcopyright.toml", ".gitcopyright.yaml", ".gitcopyright.yml"}

// File is the configuration file format.
type File struct {
	// Styles adds or overrides comment styles, keyed by extension ("go" or
	// ".go") or exact file name ("Makefile").
	Styles map[string]Style `json:"styles,omitempty" jsonschema:"comment styles keyed by extension or exact file name" toml:"styles" yaml:"styles"`
	// Interpreters maps shebang interpreter names to style keys.
	Interpreters map[string]string `json:"interpreters,omitempty" jsonschema:"shebang interpreter names mapped to style keys" toml:"interpreters" yaml:"interpreters"`
	// DirtyBumpsYear is nil when unset.
	DirtyBumpsYear  *bool    `json:"dirty_bumps_year,omitempty" jsonschema:"extend the end year to the current year for files with uncommitted changes" toml:"dirty_bumps_year" yaml:"dirty_bumps_year"`
	Template        string   `json:"template,omitempty" jsonschema:"notice template; placeholders: {years} {first_year} {last_year} {file} {path}" toml:"template" yaml:"template"`
	Timeout         string   `json:"timeout,omitempty" jsonschema:"per-file git history timeout as a Go duration, e.g. 30s" toml:"timeout" yaml:"timeout"`
	MultipleNotices string   `json:"multiple_notices,omitempty" jsonschema:"what to do when a file has several notices: first or skip" toml:"multiple_notices" yaml:"multiple_notices"`
	Match           string   `json:"match,omitempty" jsonschema:"which notices to replace: marker (default) or template" toml:"match" yaml:"match"`
	Exclude         []string `json:"exclude,omitempty" jsonschema:"doublestar patterns of paths to leave alone" toml:"exclude" yaml:"exclude"`
	Workers         int      `json:"workers,omitempty" jsonschema:"number of files processed in parallel" toml:"workers" yaml:"workers"`
	HeadLines       int      `json:"head_lines,omitempty" jsonschema:"number of leading lines searched for an existing notice" toml:"head_lines" yaml:"head_lines"`
	MaxSize         int64    `json:"max_size,omitempty" jsonschema:"skip files larger than this many bytes" toml:"max_size" yaml:"max_size"`
}

// Style is a comment style in the configuration file. Set Line for a line
// comment style, or Open and Close for a block comment style.
type Style struct {
	Line         string   `json:"line,omitempty" jsonschema:"line comment prefix, e.g. #" toml:"line" yaml:"line"`
	Open         string   `json:"open,omitempty" jsonschema:"block comment opening delimiter, e.g. /*" toml:"open" yaml:"open"`
	Close        string   `json:"close,omitempty" jsonschema:"block comment closing delimiter, e.g. */" toml:"close" yaml:"close"`
	Continuation string   `json:"continuation,omitempty" jsonschema:"prefix of inner lines of a block comment, e.g. ' *'" toml:"continuation" yaml:"continuation"`
	Preamble     []string `json:"preamble,omitempty" jsonschema:"leading constructs that stay above the notice: bom shebang xml doctype php encoding" toml:"preamble" yaml:"preamble"`
}

// Find returns the path of the configuration file in root, or an empty
// string when there is none.
func Find(root string) (string, error) {
	for _, name := range Names {
		path := filepath.Join(root, name)

		_, err := os.Stat(path)
		if err == nil {
			return path, nil
		}

		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}

	return "", nil
}

// Load reads and validates the file at path. The format follows the
// extension. Unknown keys are rejected.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	f, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return f, nil
}

// Parse decodes data in the format named by ext (".toml", ".yaml" or
// ".yml") and validates the result.
func Parse(data []byte, ext string) (*File, error) {
	f := &File{}

	switch strings.ToLower(ext) {
	case ".toml":
		md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}

		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("%w: unknown key %q", ErrInvalidConfig, undecoded[0].String())
		}

	case ".yaml", ".yml":
		err := yaml.UnmarshalWithOptions(data, f, yaml.Strict())
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}

	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrInvalidConfig, ext)
	}

	err := f.Validate()
	if err != nil {
		return nil, err
	}

	return f, nil
}

// Validate checks values that decoding alone cannot.
func (f *File) Validate() error {
	if f.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative", ErrInvalidConfig)
	}

	if f.HeadLines < 0 {
		return fmt.Errorf("%w: head_lines must not be negative", ErrInvalidConfig)
	}

	if f.MaxSize < 0 {
		return fmt.Errorf("%w: max_size must not be negative", ErrInvalidConfig)
	}

	if _, err := f.TimeoutDuration(); err != nil {
		return err
	}

	if _, err := f.RegistryOptions(); err != nil {
		return err
	}

	return nil
}

// TimeoutDuration parses Timeout. It returns zero when Timeout is unset.
func (f *File) TimeoutDuration() (time.Duration, error) {
	if f.Timeout == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(f.Timeout)
	if err != nil {
		return 0, fmt.Errorf("%w: timeout: %w", ErrInvalidConfig, err)
	}

	if d <= 0 {
		return 0, fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}

	return d, nil
}

// RegistryOptions converts Styles and Interpreters to registry options.
func (f *File) RegistryOptions() ([]commentstyle.Option, error) {
	var opts []commentstyle.Option

	for key, s := range f.Styles {
		style, err := s.commentStyle(key)
		if err != nil {
			return nil, err
		}

		opts = append(opts, commentstyle.WithStyle(key, style))
	}

	for name, key := range f.Interpreters {
		opts = append(opts, commentstyle.WithInterpreter(name, key))
	}

	return opts, nil
}

func (s Style) commentStyle(key string) (commentstyle.Style, error) {
	name := "config:" + key

	var style commentstyle.Style

	switch {
	case s.Line != "" && (s.Open != "" || s.Close != ""):
		return style, fmt.Errorf("%w: style %q: set either line or open and close", ErrInvalidConfig, key)
	case s.Line != "":
		style = commentstyle.LineStyle(name, s.Line, s.Preamble...)
	default:
		style = commentstyle.BlockStyle(name, s.Open, s.Close, s.Continuation, s.Preamble...)
	}

	err := style.Validate()
	if err != nil {
		return style, fmt.Errorf("%w: style %q: %w", ErrInvalidConfig, key, err)
	}

	return style, nil
}

// Schema returns the JSON schema of [File].
func Schema() (*jsonschema.Schema, error) {
	s, err := jsonschema.For[File](nil)
	if err != nil {
		return nil, fmt.Errorf("generating schema: %w", err)
	}

	s.Schema = "https://json-schema.org/draft/2020-12/schema"
	s.Title = "gitcopyright configuration"

	return s, nil
}
