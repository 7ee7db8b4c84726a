// Package gittest builds throwaway git repositories for tests.
//
// Commits are made with fixed author and committer dates, so tests can
// assert on the years that history queries report. Tests are skipped when
// no git binary is installed.
package gittest

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Repo is a git work tree in a temporary directory.
type Repo struct {
	t   testing.TB
	Dir string
}

// New initializes an empty repository. It skips t when git is missing.
func New(t testing.TB) *Repo {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	// Resolve symlinked temp roots so paths match what git reports.
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	r := &Repo{t: t, Dir: dir}
	r.Git("init", "-q")

	return r
}

// Git runs git in the repository and returns its trimmed standard output.
// Any failure fails the test.
func (r *Repo) Git(args ...string) string {
	r.t.Helper()

	return r.gitEnv(nil, args...)
}

func (r *Repo) gitEnv(env []string, args ...string) string {
	r.t.Helper()

	var stdout, stderr bytes.Buffer

	base := []string{
		"-c", "user.name=Test",
		"-c", "user.email=test@example.com",
		"-c", "commit.gpgsign=false",
		"-c", "init.defaultBranch=main",
	}

	cmd := exec.Command("git", append(base, args...)...)
	cmd.Dir = r.Dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = append(os.Environ(),
		"GIT_CONFIG_GLOBAL="+os.DevNull,
		"GIT_CONFIG_NOSYSTEM=1",
		"LC_ALL=C",
	)
	cmd.Env = append(cmd.Env, env...)

	err := cmd.Run()
	require.NoError(r.t, err, "git %s: %s", strings.Join(args, " "), stderr.String())

	return strings.TrimSpace(stdout.String())
}

// Path returns the absolute path of name, a slash-separated path relative
// to the repository root.
func (r *Repo) Path(name string) string {
	return filepath.Join(r.Dir, filepath.FromSlash(name))
}

// WriteFile writes content to name, creating parent directories.
func (r *Repo) WriteFile(name, content string) {
	r.t.Helper()

	path := r.Path(name)
	require.NoError(r.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(r.t, os.WriteFile(path, []byte(content), 0o644))
}

// ReadFile returns the contents of name.
func (r *Repo) ReadFile(name string) string {
	r.t.Helper()

	data, err := os.ReadFile(r.Path(name))
	require.NoError(r.t, err)

	return string(data)
}

// Commit writes files, stages everything and commits at when.
func (r *Repo) Commit(when time.Time, msg string, files map[string]string) string {
	r.t.Helper()

	for name, content := range files {
		r.WriteFile(name, content)
	}

	r.Git("add", "-A")

	return r.commit(when, msg)
}

// Move renames a tracked file with "git mv" and commits at when.
func (r *Repo) Move(when time.Time, from, to string) string {
	r.t.Helper()

	require.NoError(r.t, os.MkdirAll(filepath.Dir(r.Path(to)), 0o755))
	r.Git("mv", from, to)

	return r.commit(when, "move "+from)
}

// Remove deletes a file from the work tree without staging the deletion.
func (r *Repo) Remove(name string) {
	r.t.Helper()

	require.NoError(r.t, os.Remove(r.Path(name)))
}

func (r *Repo) commit(when time.Time, msg string) string {
	r.t.Helper()

	// Git's internal date format keeps the offset exactly as given.
	date := strconv.FormatInt(when.Unix(), 10) + " " + when.Format("-0700")
	r.gitEnv([]string{
		"GIT_AUTHOR_DATE=" + date,
		"GIT_COMMITTER_DATE=" + date,
	}, "commit", "-q", "--allow-empty", "-m", msg)

	return r.Git("rev-parse", "HEAD")
}

// Date returns noon UTC on the given day, a convenient commit time.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}
