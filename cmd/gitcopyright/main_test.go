package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/gitcopyright/gittest"
)

func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	code := run(t.Context(), append([]string{"--log-level", "error"}, args...), &stdout, &stderr)

	return code, stdout.String(), stderr.String()
}

func TestRunCheckThenWrite(t *testing.T) {
	t.Parallel()

	repo := gittest.New(t)
	repo.Commit(gittest.Date(2020, time.March, 3), "add", map[string]string{
		"main.go": "package main\n",
	})

	args := []string{"--repo", repo.Dir, "--template", "Copyright {years} Acme", "--dirty-bumps-year=false"}

	code, stdout, _ := execute(t, append(args, "--check")...)
	assert.Equal(t, exitChanges, code)
	assert.Equal(t, "main.go\n", stdout)
	assert.Equal(t, "package main\n", repo.ReadFile("main.go"))

	code, _, stderr := execute(t, args...)
	require.Equal(t, exitOK, code, stderr)
	assert.Equal(t, "// Copyright 2020 Acme\n\npackage main\n", repo.ReadFile("main.go"))

	code, stdout, _ = execute(t, append(args, "--check")...)
	assert.Equal(t, exitOK, code)
	assert.Empty(t, stdout)
}

func TestRunDryRunPrintsDiff(t *testing.T) {
	t.Parallel()

	repo := gittest.New(t)
	repo.Commit(gittest.Date(2021, time.March, 3), "add", map[string]string{
		"app.py": "print(1)\n",
	})

	code, stdout, stderr := execute(t, "-C", repo.Dir, "-t", "Copyright {years} Acme", "--dry-run")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "+# Copyright 2021 Acme")
	assert.Equal(t, "print(1)\n", repo.ReadFile("app.py"))
}

func TestRunFatalErrors(t *testing.T) {
	t.Parallel()

	repo := gittest.New(t)
	outside := t.TempDir()

	tcs := map[string]struct {
		wantErr string
		args    []string
	}{
		"not a repository": {
			args:    []string{"--repo", outside, "--template", "Copyright {years} Acme"},
			wantErr: "not a git repository",
		},
		"missing template": {
			args:    []string{"--repo", repo.Dir},
			wantErr: "template is required",
		},
		"unknown placeholder": {
			args:    []string{"--repo", repo.Dir, "--template", "Copyright {years} {owner}"},
			wantErr: "owner",
		},
		"bad log level": {
			args:    []string{"--repo", repo.Dir, "--log-level", "loud"},
			wantErr: "loud",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			code, _, stderr := execute(t, tc.args...)
			assert.Equal(t, exitError, code)
			assert.Contains(t, stderr, tc.wantErr)
		})
	}
}

func TestRunFileFailures(t *testing.T) {
	t.Parallel()

	if os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced for root")
	}

	repo := gittest.New(t)
	repo.Commit(gittest.Date(2020, time.March, 3), "add", map[string]string{
		"main.go":          "package main\n",
		"readonly/util.go": "package readonly\n",
	})

	dir := filepath.Dir(repo.Path("readonly/util.go"))
	require.NoError(t, os.Chmod(dir, 0o555))
	t.Cleanup(func() {
		//nolint:errcheck // Best effort so TempDir can clean up.
		os.Chmod(dir, 0o755)
	})

	code, _, stderr := execute(t, "--repo", repo.Dir, "--template", "Copyright {years} Acme")
	assert.Equal(t, exitFailures, code)
	assert.Contains(t, stderr, "files failed: 1")

	assert.Equal(t, "// Copyright 2020 Acme\n\npackage main\n", repo.ReadFile("main.go"))
	assert.Equal(t, "package readonly\n", repo.ReadFile("readonly/util.go"))
}

func TestSchemaCommand(t *testing.T) {
	t.Parallel()

	code, stdout, stderr := execute(t, "schema")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, `"$schema"`)
	assert.Contains(t, stdout, `"template"`)
}

func TestStylesCommand(t *testing.T) {
	t.Parallel()

	code, stdout, stderr := execute(t, "styles")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "KEY")
	assert.Regexp(t, `(?m)^go\s+slash\s+// \.\.\.$`, stdout)
	assert.Regexp(t, `(?m)^css\s+c-block\s+/\* \.\.\. \*/$`, stdout)
}
