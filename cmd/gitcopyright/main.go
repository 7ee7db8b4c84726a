// Command gitcopyright inserts and updates copyright notices using the
// years recorded in git history.
//
// # Usage
//
//	gitcopyright [flags] [pathspec...]
//	gitcopyright schema
//	gitcopyright styles
//
// Every tracked file matching the pathspecs (all tracked files by default)
// gets a notice rendered from the template in its native comment syntax.
// The years span the first to the last commit touching the file, following
// renames.
//
// # Exit Status
//
// 0 on success, including runs that skipped files. 1 when the run could not
// start. 2 when the run finished but some files could not be processed; the
// other files were still updated. 3 when --check found files needing a
// change.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"go.jacobcolvin.com/gitcopyright/commentstyle"
	"go.jacobcolvin.com/gitcopyright/config"
	"go.jacobcolvin.com/gitcopyright/log"
	"go.jacobcolvin.com/gitcopyright/profile"
	"go.jacobcolvin.com/gitcopyright/runner"
	"go.jacobcolvin.com/gitcopyright/version"
)

// Exit codes.
const (
	exitOK       = 0
	exitError    = 1
	exitFailures = 2
	exitChanges  = 3
)

var (
	errChangesNeeded = errors.New("files need a notice change")
	errFilesFailed   = errors.New("files failed")
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)

	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd, prof := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)

	stopErr := prof.Stop()
	if stopErr != nil {
		fmt.Fprintf(stderr, "stop profiling: %v\n", stopErr)
	}

	if err == nil {
		return exitOK
	}

	fmt.Fprintf(stderr, "%v\n", err)

	switch {
	case errors.Is(err, errFilesFailed):
		return exitFailures
	case errors.Is(err, errChangesNeeded):
		return exitChanges
	}

	return exitError
}

func newRootCmd(stdout, stderr io.Writer) (*cobra.Command, *profile.Profiler) {
	logCfg := log.NewConfig()
	profCfg := profile.NewConfig()
	prof := profCfg.NewProfiler()
	runCfg := runner.NewConfig()
	runCfg.Output = stdout

	rootCmd := &cobra.Command{
		Use:   "gitcopyright [flags] [pathspec...]",
		Short: "Insert and update copyright notices from git history",
		Long: `gitcopyright inserts or updates a copyright notice at the top of every
tracked file, in the file's own comment syntax. The years in the notice
span the first to the last commit that touched the file.

Pathspecs are relative to the current directory. Settings may also be given
in .gitcopyright.toml or .gitcopyright.yaml at the repository root; flags
take precedence.`,
		Version:       version.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			handler, err := logCfg.NewHandler(stderr)
			if err != nil {
				return err
			}

			slog.SetDefault(slog.New(handler))

			return prof.Start()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNotices(cmd.Context(), runCfg, stdout, args)
		},
	}

	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	logCfg.RegisterFlags(rootCmd.PersistentFlags())
	profCfg.RegisterFlags(rootCmd.PersistentFlags())
	runCfg.RegisterFlags(rootCmd.Flags())

	completionErr := errors.Join(
		logCfg.RegisterCompletions(rootCmd),
		profCfg.RegisterCompletions(rootCmd),
		runCfg.RegisterCompletions(rootCmd),
	)
	if completionErr != nil {
		fmt.Fprintf(stderr, "register completions: %v\n", completionErr)
	}

	rootCmd.AddCommand(newSchemaCmd(stdout), newStylesCmd(stdout))

	return rootCmd, prof
}

func runNotices(ctx context.Context, cfg *runner.Config, stdout io.Writer, args []string) error {
	r, err := cfg.NewRunner(ctx)
	if err != nil {
		return err
	}

	sum, err := r.Run(ctx, args...)
	if sum != nil {
		slog.Info("finished", slog.String("root", r.Root()), slog.Any("files", sum))
	}

	if err != nil {
		return err
	}

	if failed := sum.Failed(); len(failed) > 0 {
		return fmt.Errorf("%w: %d", errFilesFailed, len(failed))
	}

	changed := sum.Changed()
	if cfg.Check && len(changed) > 0 {
		if !cfg.DryRun {
			for _, res := range changed {
				fmt.Fprintln(stdout, res.Path)
			}
		}

		return fmt.Errorf("%w: %d", errChangesNeeded, len(changed))
	}

	return nil
}

func newSchemaCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			schema, err := config.Schema()
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(schema, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal schema: %w", err)
			}

			_, err = stdout.Write(append(out, '\n'))
			if err != nil {
				return fmt.Errorf("write schema: %w", err)
			}

			return nil
		},
	}
}

func newStylesCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "styles",
		Short: "List the built-in comment styles",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			reg := commentstyle.Default()
			tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)

			fmt.Fprintln(tw, "KEY\tSTYLE\tSYNTAX")

			for _, key := range reg.Keys() {
				s, _ := reg.Get(key)
				fmt.Fprintf(tw, "%s\t%s\t%s\n", key, s.Name, s)
			}

			err := tw.Flush()
			if err != nil {
				return fmt.Errorf("write styles: %w", err)
			}

			return nil
		},
	}
}
