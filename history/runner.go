package history

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes git with args in dir and returns its standard output.
//
// Implementations must honor ctx cancellation. Failed invocations should
// return a [*GitError].
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) ([]byte, error)
}

// ExecRunner runs the git binary at Path as a subprocess.
type ExecRunner struct {
	Path string
}

// Run implements [Runner].
func (r ExecRunner) Run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, r.Path, args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Keep output stable regardless of the user's locale and pager settings.
	cmd.Env = append(cmd.Environ(), "LC_ALL=C", "GIT_PAGER=cat", "GIT_TERMINAL_PROMPT=0")

	err := cmd.Run()
	if err != nil {
		return nil, &GitError{
			Args:   args,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    fmt.Errorf("%w: %w", ErrGitFailed, err),
		}
	}

	return stdout.Bytes(), nil
}

// GitError describes a failed git invocation.
type GitError struct {
	Err    error
	Stderr string
	Args   []string
}

// Error implements error.
func (e *GitError) Error() string {
	op := "git"
	if len(e.Args) > 0 {
		op += " " + e.Args[0]
	}

	msg := op + " failed"
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Unwrap returns the underlying error.
func (e *GitError) Unwrap() error {
	return e.Err
}
