package log

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Flags names the logging flags. The zero value is not useful; start from
// [NewConfig] or fill in every field.
type Flags struct {
	Level   string
	Format  string
	Verbose string
}

// NewConfig creates a [Config] that registers flags under these names.
func (f Flags) NewConfig() *Config {
	return &Config{
		Flags:  f,
		Level:  string(LevelInfo),
		Format: string(FormatAuto),
	}
}

// Config holds the logging settings collected from the command line.
type Config struct {
	Flags Flags

	// Level and Format are parsed by [ParseLevel] and [ParseFormat].
	Level  string
	Format string

	// Verbose lowers the effective level by one step per occurrence,
	// stopping at [LevelDebug].
	Verbose int
}

// NewConfig returns a [Config] using the "log-level", "log-format" and
// "verbose" flag names.
func NewConfig() *Config {
	return Flags{
		Level:   "log-level",
		Format:  "log-format",
		Verbose: "verbose",
	}.NewConfig()
}

// RegisterFlags adds the logging flags to flags. The verbose flag gets the
// -v shorthand.
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.Level, c.Flags.Level, c.Level,
		fmt.Sprintf("log level, one of: %s", GetAllLevelStrings()))
	flags.StringVar(&c.Format, c.Flags.Format, c.Format,
		fmt.Sprintf("log format, one of: %s", GetAllFormatStrings()))
	flags.CountVarP(&c.Verbose, c.Flags.Verbose, "v",
		"increase log verbosity; repeatable")
}

// RegisterCompletions registers shell completions for the level and format
// flags on cmd.
func (c *Config) RegisterCompletions(cmd *cobra.Command) error {
	fixed := map[string][]string{
		c.Flags.Level:  GetAllLevelStrings(),
		c.Flags.Format: GetAllFormatStrings(),
	}

	for _, name := range []string{c.Flags.Level, c.Flags.Format} {
		err := cmd.RegisterFlagCompletionFunc(name,
			cobra.FixedCompletions(fixed[name], cobra.ShellCompDirectiveNoFileComp))
		if err != nil {
			return fmt.Errorf("registering %s completion: %w", name, err)
		}
	}

	return nil
}

// EffectiveLevel parses the configured level and applies the verbose count.
func (c *Config) EffectiveLevel() (Level, error) {
	lvl, err := ParseLevel(c.Level)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	if c.Verbose <= 0 {
		return lvl, nil
	}

	i := slices.Index(allLevels, lvl) + c.Verbose

	return allLevels[min(i, len(allLevels)-1)], nil
}

// NewHandler creates a [Handler] writing to w with the configured settings.
func (c *Config) NewHandler(w io.Writer) (Handler, error) {
	lvl, err := c.EffectiveLevel()
	if err != nil {
		return nil, err
	}

	logFmt, err := ParseFormat(c.Format)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	return NewHandler(w, lvl, logFmt), nil
}
