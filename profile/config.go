package profile

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Flags holds CLI flag names for profiling configuration, allowing callers to
// customize flag names while keeping sensible defaults via [NewConfig].
type Flags struct {
	CPUProfile   string
	Trace        string
	HeapProfile  string
	BlockProfile string
	MutexProfile string
}

// NewConfig creates a new [Config] embedding these flag names.
func (f Flags) NewConfig() *Config {
	return &Config{
		Flags: f,
	}
}

// Config holds the output paths of the profiles to record. An empty path
// disables that profile; the zero value records nothing.
//
// Create instances with [NewConfig] and register CLI flags with
// [Config.RegisterFlags]. Use [Config.NewProfiler] to create a [Profiler].
type Config struct {
	Flags        Flags
	CPUProfile   string
	Trace        string
	HeapProfile  string
	BlockProfile string
	MutexProfile string
}

// NewConfig returns a new [Config] with default flag names.
func NewConfig() *Config {
	f := Flags{
		CPUProfile:   "cpu-profile",
		Trace:        "trace",
		HeapProfile:  "heap-profile",
		BlockProfile: "block-profile",
		MutexProfile: "mutex-profile",
	}

	return f.NewConfig()
}

// RegisterFlags adds profiling flags to the given [*pflag.FlagSet]. The
// flags are hidden from help output.
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.CPUProfile, c.Flags.CPUProfile, "", "write a CPU profile to file")
	flags.StringVar(&c.Trace, c.Flags.Trace, "", "write an execution trace to file")
	flags.StringVar(&c.HeapProfile, c.Flags.HeapProfile, "", "write a heap profile to file")
	flags.StringVar(&c.BlockProfile, c.Flags.BlockProfile, "", "write a block profile to file")
	flags.StringVar(&c.MutexProfile, c.Flags.MutexProfile, "", "write a mutex profile to file")

	for _, name := range []string{c.Flags.CPUProfile, c.Flags.Trace, c.Flags.HeapProfile, c.Flags.BlockProfile, c.Flags.MutexProfile} {
		_ = flags.MarkHidden(name) //nolint:errcheck // Registered above.
	}
}

// RegisterCompletions registers shell completions for profile flags on cmd.
// Every flag names an output file.
func (c *Config) RegisterCompletions(cmd *cobra.Command) error {
	fileComp := func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return nil, cobra.ShellCompDirectiveDefault
	}

	for _, name := range []string{c.Flags.CPUProfile, c.Flags.Trace, c.Flags.HeapProfile, c.Flags.BlockProfile, c.Flags.MutexProfile} {
		err := cmd.RegisterFlagCompletionFunc(name, fileComp)
		if err != nil {
			return fmt.Errorf("registering %s completion: %w", name, err)
		}
	}

	return nil
}

// Enabled reports whether any profile is requested.
func (c *Config) Enabled() bool {
	return c.CPUProfile != "" || c.Trace != "" || c.HeapProfile != "" ||
		c.BlockProfile != "" || c.MutexProfile != ""
}

// NewProfiler creates a new [Profiler] using this [Config].
func (c *Config) NewProfiler() *Profiler {
	return &Profiler{
		Config: c,
	}
}
