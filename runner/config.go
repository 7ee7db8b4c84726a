package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"go.jacobcolvin.com/gitcopyright/commentstyle"
	"go.jacobcolvin.com/gitcopyright/config"
	"go.jacobcolvin.com/gitcopyright/history"
	"go.jacobcolvin.com/gitcopyright/notice"
	"go.jacobcolvin.com/gitcopyright/walker"
)

// ErrInvalidOption indicates a setting that prevents a run from starting.
var ErrInvalidOption = errors.New("invalid option")

// DefaultMaxSize is the default size above which files are skipped.
const DefaultMaxSize = 10 << 20

// Flags holds CLI flag names for run configuration, allowing callers to
// customize flag names while keeping sensible defaults via [NewConfig].
type Flags struct {
	Template        string
	Config          string
	Exclude         string
	DryRun          string
	Check           string
	Workers         string
	Timeout         string
	HeadLines       string
	DirtyBumpsYear  string
	MultipleNotices string
	Match           string
	Repo            string
	MaxSize         string
}

// NewConfig creates a new [Config] embedding these flag names.
func (f Flags) NewConfig() *Config {
	return &Config{
		Flags:           f,
		Repo:            ".",
		Workers:         runtime.GOMAXPROCS(0),
		Timeout:         history.DefaultTimeout,
		HeadLines:       notice.DefaultHeadLines,
		DirtyBumpsYear:  true,
		MultipleNotices: notice.MultiFirst.String(),
		Match:           notice.MatchMarker.String(),
		MaxSize:         DefaultMaxSize,
		Output:          os.Stdout,
		Now:             time.Now,
	}
}

// Config holds the settings of a run.
//
// Create instances with [NewConfig] and register CLI flags with
// [Config.RegisterFlags]. Use [Config.NewRunner] to create a [Runner].
//
// Values from the repository's configuration file apply to every setting
// whose flag was not given explicitly. Without registered flags, the file
// overrides every setting it names.
type Config struct {
	// Output receives dry-run diffs.
	Output io.Writer
	// Now is the clock used for the current year.
	Now func() time.Time
	// GitRunner replaces the git subprocess when set.
	GitRunner       history.Runner
	flagSet         *pflag.FlagSet
	Flags           Flags
	Template        string
	ConfigFile      string
	Repo            string
	MultipleNotices string
	Match           string
	Exclude         []string
	Workers         int
	Timeout         time.Duration
	HeadLines       int
	MaxSize         int64
	DryRun          bool
	Check           bool
	DirtyBumpsYear  bool
}

// NewConfig returns a new [Config] with default flag names.
func NewConfig() *Config {
	f := Flags{
		Template:        "template",
		Config:          "config",
		Exclude:         "exclude",
		DryRun:          "dry-run",
		Check:           "check",
		Workers:         "workers",
		Timeout:         "timeout",
		HeadLines:       "head-lines",
		DirtyBumpsYear:  "dirty-bumps-year",
		MultipleNotices: "multiple-notices",
		Match:           "match",
		Repo:            "repo",
		MaxSize:         "max-size",
	}

	return f.NewConfig()
}

// RegisterFlags adds run flags to the given [*pflag.FlagSet].
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	c.flagSet = flags

	flags.StringVarP(&c.Template, c.Flags.Template, "t", c.Template,
		"notice template; placeholders: {years} {first_year} {last_year} {file} {path}")
	flags.StringVarP(&c.ConfigFile, c.Flags.Config, "c", c.ConfigFile,
		"configuration file (default: .gitcopyright.{toml,yaml,yml} at the repository root)")
	flags.StringSliceVarP(&c.Exclude, c.Flags.Exclude, "e", c.Exclude,
		"doublestar pattern of paths to leave alone (repeatable)")
	flags.BoolVarP(&c.DryRun, c.Flags.DryRun, "n", c.DryRun,
		"print a diff of every change instead of writing files")
	flags.BoolVar(&c.Check, c.Flags.Check, c.Check,
		"write nothing and exit with status 3 when any file needs a change")
	flags.IntVarP(&c.Workers, c.Flags.Workers, "j", c.Workers,
		"number of files processed in parallel")
	flags.DurationVar(&c.Timeout, c.Flags.Timeout, c.Timeout,
		"timeout of each git history query")
	flags.IntVar(&c.HeadLines, c.Flags.HeadLines, c.HeadLines,
		"number of leading lines searched for an existing notice")
	flags.BoolVar(&c.DirtyBumpsYear, c.Flags.DirtyBumpsYear, c.DirtyBumpsYear,
		"extend the end year to the current year for files with uncommitted changes")
	flags.StringVar(&c.MultipleNotices, c.Flags.MultipleNotices, c.MultipleNotices,
		"what to do when a file has several notices, one of: first, skip")
	flags.StringVar(&c.Match, c.Flags.Match, c.Match,
		"which notices to replace: any copyright line (marker) or only the template's (template)")
	flags.StringVarP(&c.Repo, c.Flags.Repo, "C", c.Repo,
		"directory inside the git work tree to process")
	flags.Int64Var(&c.MaxSize, c.Flags.MaxSize, c.MaxSize,
		"skip files larger than this many bytes (0 for no limit)")
}

// RegisterCompletions registers shell completions for run flags on cmd.
func (c *Config) RegisterCompletions(cmd *cobra.Command) error {
	err := cmd.RegisterFlagCompletionFunc(c.Flags.MultipleNotices,
		cobra.FixedCompletions([]string{"first", "skip"}, cobra.ShellCompDirectiveNoFileComp))
	if err != nil {
		return fmt.Errorf("registering %s completion: %w", c.Flags.MultipleNotices, err)
	}

	err = cmd.RegisterFlagCompletionFunc(c.Flags.Match,
		cobra.FixedCompletions([]string{"marker", "template"}, cobra.ShellCompDirectiveNoFileComp))
	if err != nil {
		return fmt.Errorf("registering %s completion: %w", c.Flags.Match, err)
	}

	err = cmd.RegisterFlagCompletionFunc(c.Flags.Config, func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"toml", "yaml", "yml"}, cobra.ShellCompDirectiveFilterFileExt
	})
	if err != nil {
		return fmt.Errorf("registering %s completion: %w", c.Flags.Config, err)
	}

	err = cmd.RegisterFlagCompletionFunc(c.Flags.Repo, func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return nil, cobra.ShellCompDirectiveFilterDirs
	})
	if err != nil {
		return fmt.Errorf("registering %s completion: %w", c.Flags.Repo, err)
	}

	noFileComp := func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	for _, flag := range []string{c.Flags.Template, c.Flags.Exclude, c.Flags.Workers, c.Flags.Timeout, c.Flags.HeadLines, c.Flags.MaxSize} {
		regErr := cmd.RegisterFlagCompletionFunc(flag, noFileComp)
		if regErr != nil {
			return fmt.Errorf("registering %s completion: %w", flag, regErr)
		}
	}

	return nil
}

// fromFile reports whether the setting behind flag should take its value
// from the configuration file.
func (c *Config) fromFile(flag string) bool {
	return c.flagSet == nil || !c.flagSet.Changed(flag)
}

// merge applies the configuration file f to c.
func (c *Config) merge(f *config.File) error {
	if f.Template != "" && c.fromFile(c.Flags.Template) {
		c.Template = f.Template
	}

	// Exclusions add up rather than replace each other.
	for _, pattern := range f.Exclude {
		if !slices.Contains(c.Exclude, pattern) {
			c.Exclude = append(c.Exclude, pattern)
		}
	}

	if f.Workers > 0 && c.fromFile(c.Flags.Workers) {
		c.Workers = f.Workers
	}

	timeout, err := f.TimeoutDuration()
	if err != nil {
		return err
	}

	if timeout > 0 && c.fromFile(c.Flags.Timeout) {
		c.Timeout = timeout
	}

	if f.HeadLines > 0 && c.fromFile(c.Flags.HeadLines) {
		c.HeadLines = f.HeadLines
	}

	if f.MaxSize > 0 && c.fromFile(c.Flags.MaxSize) {
		c.MaxSize = f.MaxSize
	}

	if f.DirtyBumpsYear != nil && c.fromFile(c.Flags.DirtyBumpsYear) {
		c.DirtyBumpsYear = *f.DirtyBumpsYear
	}

	if f.MultipleNotices != "" && c.fromFile(c.Flags.MultipleNotices) {
		c.MultipleNotices = f.MultipleNotices
	}

	if f.Match != "" && c.fromFile(c.Flags.Match) {
		c.Match = f.Match
	}

	return nil
}

// NewRunner opens the repository, loads its configuration file and
// prepares a [Runner]. Any error here means the run cannot start.
func (c *Config) NewRunner(ctx context.Context) (*Runner, error) {
	session, err := history.Open(ctx, c.Repo, c.historyOptions()...)
	if err != nil {
		return nil, err
	}

	var registryOpts []commentstyle.Option

	timeout := c.Timeout

	path := c.ConfigFile
	if path == "" {
		path, err = config.Find(session.Root())
		if err != nil {
			return nil, err
		}
	}

	if path != "" {
		file, err := config.Load(path)
		if err != nil {
			return nil, err
		}

		err = c.merge(file)
		if err != nil {
			return nil, err
		}

		registryOpts, err = file.RegistryOptions()
		if err != nil {
			return nil, err
		}

		slog.Debug("loaded configuration", slog.String("path", path))
	}

	// The configuration file may set the history timeout.
	if c.Timeout != timeout {
		session, err = history.Open(ctx, session.Root(), c.historyOptions()...)
		if err != nil {
			return nil, err
		}
	}

	return c.newRunner(session, registryOpts)
}

func (c *Config) historyOptions() []history.Option {
	opts := []history.Option{history.WithTimeout(c.Timeout)}
	if c.GitRunner != nil {
		opts = append(opts, history.WithRunner(c.GitRunner))
	}

	return opts
}

func (c *Config) newRunner(session *history.Session, registryOpts []commentstyle.Option) (*Runner, error) {
	if c.Template == "" {
		return nil, fmt.Errorf("%w: a template is required (--%s or the configuration file)", ErrInvalidOption, c.Flags.Template)
	}

	if c.Workers < 1 {
		return nil, fmt.Errorf("%w: --%s must be at least 1", ErrInvalidOption, c.Flags.Workers)
	}

	if c.HeadLines < 1 {
		return nil, fmt.Errorf("%w: --%s must be at least 1", ErrInvalidOption, c.Flags.HeadLines)
	}

	tmpl, err := notice.ParseTemplate(c.Template)
	if err != nil {
		return nil, err
	}

	match, err := notice.ParseMatchMode(c.Match)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOption, err)
	}

	multi, err := notice.ParseMultiPolicy(c.MultipleNotices)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOption, err)
	}

	registry := commentstyle.Default(registryOpts...)

	err = registry.Validate()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOption, err)
	}

	w, err := walker.New(session, walker.WithExclude(c.Exclude...), walker.WithMaxSize(c.MaxSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOption, err)
	}

	now := c.Now
	if now == nil {
		now = time.Now
	}

	out := c.Output
	if out == nil {
		out = io.Discard
	}

	return &Runner{
		session:  session,
		walker:   w,
		registry: registry,
		template: tmpl,
		detector: notice.NewDetector(tmpl,
			notice.WithHeadLines(c.HeadLines),
			notice.WithMatch(match),
			notice.WithMultiple(multi),
		),
		out:        out,
		now:        now,
		workers:    c.Workers,
		dryRun:     c.DryRun,
		check:      c.Check,
		dirtyBumps: c.DirtyBumpsYear,
	}, nil
}
