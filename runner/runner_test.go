package runner_test

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/gitcopyright/gittest"
	"go.jacobcolvin.com/gitcopyright/history"
	"go.jacobcolvin.com/gitcopyright/runner"
	"go.jacobcolvin.com/gitcopyright/update"
)

func fixedNow() time.Time {
	return time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
}

func newConfig(repo *gittest.Repo) *runner.Config {
	cfg := runner.NewConfig()
	cfg.Repo = repo.Dir
	cfg.Template = "Copyright {years} Acme"
	cfg.Workers = 2
	cfg.Now = fixedNow
	cfg.Output = &bytes.Buffer{}

	return cfg
}

func run(t *testing.T, cfg *runner.Config, pathspecs ...string) *runner.Summary {
	t.Helper()

	r, err := cfg.NewRunner(t.Context())
	require.NoError(t, err)

	sum, err := r.Run(t.Context(), pathspecs...)
	require.NoError(t, err)
	require.Empty(t, sum.Failed())

	return sum
}

func result(t *testing.T, sum *runner.Summary, path string) runner.Result {
	t.Helper()

	for _, r := range sum.Results {
		if r.Path == path {
			return r
		}
	}

	require.Failf(t, "missing result", "no result for %s", path)

	return runner.Result{}
}

func TestRunInsertsAndUpdates(t *testing.T) {
	t.Parallel()

	repo := gittest.New(t)
	repo.Commit(gittest.Date(2019, time.March, 1), "add tool", map[string]string{
		"tool.py":   "import os\n",
		"single.py": "print(1)\n",
	})
	repo.Commit(gittest.Date(2022, time.March, 1), "edit tool", map[string]string{
		"tool.py": "import os\nimport sys\n",
	})

	cfg := newConfig(repo)

	// Commits in 2019 and 2022 only: the range spans both.
	sum := run(t, cfg)
	assert.Equal(t, "# Copyright 2019-2022 Acme\n\nimport os\nimport sys\n", repo.ReadFile("tool.py"))
	assert.Equal(t, "# Copyright 2019 Acme\n\nprint(1)\n", repo.ReadFile("single.py"))
	assert.Equal(t, 2, sum.Count(runner.StatusInserted))
	assert.Equal(t, runner.StatusInserted, result(t, sum, "tool.py").Status)

	// The notice is the only uncommitted change, so a second run leaves
	// everything alone.
	sum = run(t, cfg)
	assert.Equal(t, 2, sum.Count(runner.StatusUnchanged))
	assert.Empty(t, sum.Changed())
	assert.Equal(t, "# Copyright 2019-2022 Acme\n\nimport os\nimport sys\n", repo.ReadFile("tool.py"))

	// A new commit extends the range in place.
	repo.Commit(gittest.Date(2023, time.March, 1), "edit tool again", map[string]string{
		"tool.py": repo.ReadFile("tool.py") + "print(os.sep)\n",
	})

	sum = run(t, cfg, repo.Path("tool.py"))
	require.Len(t, sum.Results, 1)
	assert.Equal(t, runner.StatusUpdated, sum.Results[0].Status)
	assert.Equal(t, "2019-2023", sum.Results[0].Years.String())

	got := repo.ReadFile("tool.py")
	assert.Equal(t, "# Copyright 2019-2023 Acme\n\nimport os\nimport sys\nprint(os.sep)\n", got)
	assert.Equal(t, 1, strings.Count(got, "Copyright"))
}

func TestRunSingleYear(t *testing.T) {
	t.Parallel()

	repo := gittest.New(t)
	repo.Commit(gittest.Date(2021, time.July, 4), "add", map[string]string{
		"run.sh": "#!/bin/sh\necho hi\n",
	})

	run(t, newConfig(repo))

	assert.Equal(t, "#!/bin/sh\n# Copyright 2021 Acme\n\necho hi\n", repo.ReadFile("run.sh"))
}

func TestRunSkipsUnsupportedFiles(t *testing.T) {
	t.Parallel()

	binary := "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"

	repo := gittest.New(t)
	repo.Commit(gittest.Date(2020, time.January, 2), "add", map[string]string{
		"logo.png":   binary,
		"data.xyz":   "opaque\n",
		"blob.bin2":  "a\x00b",
		"src/lib.go": "package lib\n",
	})

	sum := run(t, newConfig(repo))

	assert.Equal(t, binary, repo.ReadFile("logo.png"))
	assert.Equal(t, "opaque\n", repo.ReadFile("data.xyz"))
	assert.Equal(t, "a\x00b", repo.ReadFile("blob.bin2"))

	assert.Equal(t, runner.StatusSkipped, result(t, sum, "logo.png").Status)
	assert.Equal(t, runner.StatusSkipped, result(t, sum, "blob.bin2").Status)

	unmapped := result(t, sum, "data.xyz")
	assert.Equal(t, runner.StatusSkipped, unmapped.Status)
	require.ErrorIs(t, unmapped.Err, runner.ErrNoStyle)

	assert.Equal(t, runner.StatusInserted, result(t, sum, "src/lib.go").Status)
	assert.Equal(t, "// Copyright 2020 Acme\n\npackage lib\n", repo.ReadFile("src/lib.go"))
}

func TestRunUpdatesStaleNotice(t *testing.T) {
	t.Parallel()

	repo := gittest.New(t)
	repo.Commit(gittest.Date(2018, time.May, 1), "add", map[string]string{
		"style.css": "/* Copyright 2018 Acme */\n\nbody {}\n",
	})
	repo.Commit(gittest.Date(2020, time.May, 1), "edit", map[string]string{
		"style.css": "/* Copyright 2018 Acme */\n\nbody { margin: 0 }\n",
	})

	sum := run(t, newConfig(repo))

	assert.Equal(t, runner.StatusUpdated, result(t, sum, "style.css").Status)
	assert.Equal(t, "/* Copyright 2018-2020 Acme */\n\nbody { margin: 0 }\n", repo.ReadFile("style.css"))
}

func TestRunReplacesForeignNotice(t *testing.T) {
	t.Parallel()

	repo := gittest.New(t)
	repo.Commit(gittest.Date(2019, time.March, 1), "add", map[string]string{
		"a.go": "// Copyright (c) 2019 Acme Inc.\n\npackage a\n",
	})
	repo.Commit(gittest.Date(2022, time.March, 1), "edit", map[string]string{
		"a.go": "// Copyright (c) 2019 Acme Inc.\n\npackage a\n\nvar x = 1\n",
	})

	sum := run(t, newConfig(repo))

	got := repo.ReadFile("a.go")
	assert.Equal(t, "// Copyright 2019-2022 Acme\n\npackage a\n\nvar x = 1\n", got)
	assert.Equal(t, 1, strings.Count(got, "Copyright"))
	assert.Equal(t, runner.StatusUpdated, result(t, sum, "a.go").Status)
}

func TestRunUpdatesNoticeInBlockComment(t *testing.T) {
	t.Parallel()

	header := "/*\n * Copyright 2019 Acme\n * Licensed MIT\n */\n\npackage a\n"

	repo := gittest.New(t)
	repo.Commit(gittest.Date(2019, time.March, 1), "add", map[string]string{"a.go": header})
	repo.Commit(gittest.Date(2022, time.March, 1), "edit", map[string]string{"a.go": header + "\nvar x = 1\n"})

	sum := run(t, newConfig(repo))

	want := "/*\n * Copyright 2019-2022 Acme\n * Licensed MIT\n */\n\npackage a\n\nvar x = 1\n"
	assert.Equal(t, want, repo.ReadFile("a.go"))
	assert.Equal(t, runner.StatusUpdated, result(t, sum, "a.go").Status)

	sum = run(t, newConfig(repo))
	assert.Empty(t, sum.Changed())
	assert.Equal(t, want, repo.ReadFile("a.go"))
}

// stallingGit runs git, except that the history query for one path blocks
// until its context ends.
type stallingGit struct {
	history.ExecRunner
	path string
}

func (g stallingGit) Run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	if slices.Contains(args, "log") && args[len(args)-1] == g.path {
		<-ctx.Done()

		return nil, ctx.Err()
	}

	return g.ExecRunner.Run(ctx, dir, args...)
}

func TestRunHistoryTimeout(t *testing.T) {
	t.Parallel()

	repo := gittest.New(t)
	repo.Commit(gittest.Date(2020, time.January, 2), "add", map[string]string{
		"fast.go": "package fast\n",
		"slow.go": "package slow\n",
	})

	git, err := exec.LookPath("git")
	require.NoError(t, err)

	cfg := newConfig(repo)
	cfg.Timeout = time.Second
	cfg.GitRunner = stallingGit{ExecRunner: history.ExecRunner{Path: git}, path: "slow.go"}

	sum := run(t, cfg)

	slow := result(t, sum, "slow.go")
	assert.Equal(t, runner.StatusSkipped, slow.Status)
	assert.Equal(t, "history timeout", slow.Reason)
	require.ErrorIs(t, slow.Err, history.ErrTimeout)
	assert.Equal(t, "package slow\n", repo.ReadFile("slow.go"))

	assert.Equal(t, runner.StatusInserted, result(t, sum, "fast.go").Status)
	assert.Equal(t, "// Copyright 2020 Acme\n\npackage fast\n", repo.ReadFile("fast.go"))
}

func TestRunWriteFailure(t *testing.T) {
	t.Parallel()

	if os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced for root")
	}

	repo := gittest.New(t)
	repo.Commit(gittest.Date(2020, time.January, 2), "add", map[string]string{
		"a.go":        "package a\n",
		"locked/b.go": "package b\n",
	})

	locked := filepath.Dir(repo.Path("locked/b.go"))
	require.NoError(t, os.Chmod(locked, 0o555))
	t.Cleanup(func() {
		//nolint:errcheck // Best effort so TempDir can clean up.
		os.Chmod(locked, 0o755)
	})

	r, err := newConfig(repo).NewRunner(t.Context())
	require.NoError(t, err)

	sum, err := r.Run(t.Context())
	require.NoError(t, err)

	failed := sum.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "locked/b.go", failed[0].Path)
	require.ErrorIs(t, failed[0].Err, update.ErrWrite)
	assert.Equal(t, "package b\n", repo.ReadFile("locked/b.go"))

	assert.Equal(t, runner.StatusInserted, result(t, sum, "a.go").Status)
	assert.Equal(t, "// Copyright 2020 Acme\n\npackage a\n", repo.ReadFile("a.go"))
}

func TestRunUnreadableFile(t *testing.T) {
	t.Parallel()

	if os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced for root")
	}

	repo := gittest.New(t)
	repo.Commit(gittest.Date(2020, time.January, 2), "add", map[string]string{
		"a.go": "package a\n",
		"b.go": "package b\n",
	})

	locked := repo.Path("b.go")
	require.NoError(t, os.Chmod(locked, 0))
	t.Cleanup(func() {
		//nolint:errcheck // Best effort so TempDir can clean up.
		os.Chmod(locked, 0o644)
	})

	cfg := newConfig(repo)
	// git status would try to read the locked file.
	cfg.DirtyBumpsYear = false

	sum := run(t, cfg)

	unreadable := result(t, sum, "b.go")
	assert.Equal(t, runner.StatusSkipped, unreadable.Status)
	assert.Equal(t, "unreadable", unreadable.Reason)
	require.ErrorIs(t, unreadable.Err, os.ErrPermission)

	assert.Equal(t, runner.StatusInserted, result(t, sum, "a.go").Status)
}

func TestRunDirtyBumpsYear(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		want  string
		bumps bool
	}{
		"enabled": {
			bumps: true,
			want:  "# Copyright 2020-2025 Acme\n\nx = 1\ny = 2\n",
		},
		"disabled": {
			bumps: false,
			want:  "# Copyright 2020 Acme\n\nx = 1\ny = 2\n",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			repo := gittest.New(t)
			repo.Commit(gittest.Date(2020, time.February, 1), "add", map[string]string{
				"a.py": "x = 1\n",
			})
			repo.WriteFile("a.py", "x = 1\ny = 2\n")

			cfg := newConfig(repo)
			cfg.DirtyBumpsYear = tc.bumps

			run(t, cfg)
			assert.Equal(t, tc.want, repo.ReadFile("a.py"))

			// Stable on the next run too.
			sum := run(t, cfg)
			assert.Empty(t, sum.Changed())
		})
	}
}

func TestRunDryRun(t *testing.T) {
	t.Parallel()

	repo := gittest.New(t)
	repo.Commit(gittest.Date(2020, time.January, 2), "add", map[string]string{
		"main.go": "package main\n",
	})

	var out bytes.Buffer

	cfg := newConfig(repo)
	cfg.DryRun = true
	cfg.Output = &out

	sum := run(t, cfg)

	assert.Equal(t, "package main\n", repo.ReadFile("main.go"))
	assert.Len(t, sum.Changed(), 1)
	assert.Contains(t, out.String(), "--- a/main.go")
	assert.Contains(t, out.String(), "+++ b/main.go")
	assert.Contains(t, out.String(), "+// Copyright 2020 Acme")
}

func TestRunCheck(t *testing.T) {
	t.Parallel()

	repo := gittest.New(t)
	repo.Commit(gittest.Date(2020, time.January, 2), "add", map[string]string{
		"main.go": "package main\n",
		"ok.go":   "// Copyright 2020 Acme\n\npackage main\n",
	})

	var out bytes.Buffer

	cfg := newConfig(repo)
	cfg.Check = true
	cfg.Output = &out

	sum := run(t, cfg)

	assert.Equal(t, "package main\n", repo.ReadFile("main.go"))
	require.Len(t, sum.Changed(), 1)
	assert.Equal(t, "main.go", sum.Changed()[0].Path)
	assert.Equal(t, runner.StatusUnchanged, result(t, sum, "ok.go").Status)
	assert.Empty(t, out.String())
}

func TestRunConfigFile(t *testing.T) {
	t.Parallel()

	repo := gittest.New(t)
	repo.Commit(gittest.Date(2022, time.August, 8), "add", map[string]string{
		".gitcopyright.toml": "template = \"(c) {years} Example Corp\"\nexclude = [\"vendor/\", \".gitcopyright.toml\"]\n",
		"app.rb":             "puts 1\n",
		"vendor/dep.rb":      "puts 2\n",
	})

	cfg := newConfig(repo)
	cfg.Template = ""

	sum := run(t, cfg)

	assert.Equal(t, "# (c) 2022 Example Corp\n\nputs 1\n", repo.ReadFile("app.rb"))
	assert.Equal(t, "puts 2\n", repo.ReadFile("vendor/dep.rb"))
	assert.Equal(t, "excluded", result(t, sum, "vendor/dep.rb").Reason)
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	t.Parallel()

	repo := gittest.New(t)
	repo.Commit(gittest.Date(2022, time.August, 8), "add", map[string]string{
		".gitcopyright.yaml": "template: From file {years}\nworkers: 8\nhead_lines: 40\n",
	})

	cfg := newConfig(repo)
	cfg.Template = ""

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg.RegisterFlags(flags)
	require.NoError(t, flags.Parse([]string{"--workers", "3", "--template", "From flag {years}"}))

	_, err := cfg.NewRunner(t.Context())
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "From flag {years}", cfg.Template)
	assert.Equal(t, 40, cfg.HeadLines)
}

func TestNewRunnerErrors(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		modify func(*runner.Config)
		err    error
	}{
		"missing template": {
			modify: func(c *runner.Config) { c.Template = "" },
			err:    runner.ErrInvalidOption,
		},
		"template without years": {
			modify: func(c *runner.Config) { c.Template = "Acme" },
		},
		"unknown match mode": {
			modify: func(c *runner.Config) { c.Match = "fuzzy" },
			err:    runner.ErrInvalidOption,
		},
		"unknown multiple notices policy": {
			modify: func(c *runner.Config) { c.MultipleNotices = "largest" },
			err:    runner.ErrInvalidOption,
		},
		"no workers": {
			modify: func(c *runner.Config) { c.Workers = 0 },
			err:    runner.ErrInvalidOption,
		},
		"bad exclude": {
			modify: func(c *runner.Config) { c.Exclude = []string{"src/[a-"} },
			err:    runner.ErrInvalidOption,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			repo := gittest.New(t)
			cfg := newConfig(repo)
			tc.modify(cfg)

			_, err := cfg.NewRunner(t.Context())
			require.Error(t, err)

			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
			}
		})
	}
}

func TestNewRunnerOutsideRepository(t *testing.T) {
	t.Parallel()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	cfg := runner.NewConfig()
	cfg.Repo = t.TempDir()
	cfg.Template = "Copyright {years}"

	_, err := cfg.NewRunner(t.Context())
	require.ErrorIs(t, err, history.ErrNotRepository)
}

func TestRunPathspecOutsideRepository(t *testing.T) {
	t.Parallel()

	repo := gittest.New(t)
	repo.Commit(gittest.Date(2020, time.January, 2), "add", map[string]string{"a.go": "package a\n"})

	r, err := newConfig(repo).NewRunner(t.Context())
	require.NoError(t, err)

	_, err = r.Run(t.Context(), t.TempDir())
	require.ErrorIs(t, err, runner.ErrInvalidOption)
}

func TestRunCanceled(t *testing.T) {
	t.Parallel()

	repo := gittest.New(t)
	repo.Commit(gittest.Date(2020, time.January, 2), "add", map[string]string{"a.go": "package a\n"})

	r, err := newConfig(repo).NewRunner(t.Context())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err = r.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "package a\n", repo.ReadFile("a.go"))
}

func TestRegisterCompletions(t *testing.T) {
	t.Parallel()

	cmd := &cobra.Command{Use: "test"}
	cfg := runner.NewConfig()
	cfg.RegisterFlags(cmd.Flags())

	require.NoError(t, cfg.RegisterCompletions(cmd))
}
