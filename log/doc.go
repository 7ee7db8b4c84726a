// Package log provides structured logging handler construction for use with
// [log/slog].
//
// It supports several output formats ([FormatText], [FormatLogfmt],
// [FormatJSON], and [FormatAuto]) and severity levels ([LevelError],
// [LevelWarn], [LevelInfo], and [LevelDebug]). Use [NewHandler] to create a
// handler directly, or use [Config] with CLI flag integration via
// [github.com/spf13/pflag] and shell completion support via
// [github.com/spf13/cobra].
//
// [FormatText] is rendered by charm.land/log. [FormatAuto] resolves to
// [FormatText] when the destination is a terminal and to [FormatLogfmt]
// otherwise, so piping gitcopyright output into a file or CI log produces
// machine-readable lines.
//
// Typical usage creates a [Config], registers flags, then installs the
// handler at startup:
//
//	cfg := log.NewConfig()
//	cfg.RegisterFlags(rootCmd.PersistentFlags())
//
//	handler, err := cfg.NewHandler(os.Stderr)
//	slog.SetDefault(slog.New(handler))
package log
