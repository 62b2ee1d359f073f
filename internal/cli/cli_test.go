package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/arthur-debert/dotup/pkg/report"
	"github.com/arthur-debert/dotup/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const homeConfig = `
[[link]]
id = "home"
source_root = "~/dotfiles"
conflict = "skip"

[[link.files]]
source = "vimrc"
target = "~/.vimrc"

[[command]]
id = "hello"
needs = ["home"]
run = "echo hello > marker"
dir = "~"
`

func setup(t *testing.T) *testutil.Tree {
	t.Helper()
	tree := testutil.NewTree(t)
	tree.Mkdir("home")
	t.Setenv("HOME", tree.Path("home"))
	t.Setenv("XDG_STATE_HOME", tree.Path("state"))
	t.Setenv("XDG_CONFIG_HOME", tree.Path("config"))
	t.Setenv("DOTUP_CONFIG", "")
	t.Setenv("DOTUP_JOBS", "")
	t.Setenv("DOTUP_FAIL_FAST", "")
	t.Setenv("NO_COLOR", "1")
	return tree
}

func execute(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_AppliesConfiguration(t *testing.T) {
	tree := setup(t)
	tree.WriteFile("home/dotfiles/vimrc", "set number\n")
	cfg := tree.WriteFile("dotup.toml", homeConfig)

	code, out, _ := execute("run", "--config", cfg, "--format", "json")
	require.Equal(t, report.ExitOK, code, out)

	var doc struct {
		Tasks []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Tasks, 2)
	assert.Equal(t, "home", doc.Tasks[0].ID)
	assert.Equal(t, "succeeded", doc.Tasks[0].Status)
	assert.Equal(t, "hello", doc.Tasks[1].ID)
	assert.Equal(t, "succeeded", doc.Tasks[1].Status)

	assert.Equal(t, tree.Path("home", "dotfiles", "vimrc"), tree.Readlink("home/.vimrc"))
	assert.Equal(t, "hello\n", tree.ReadFile("home/marker"))
}

func TestRun_UsesDefaultConfigPath(t *testing.T) {
	tree := setup(t)
	tree.WriteFile("home/dotfiles/vimrc", "x")
	tree.WriteFile("config/dotup/dotup.toml", homeConfig)

	code, out, _ := execute("run", "--format", "text")
	assert.Equal(t, report.ExitOK, code, out)
	assert.Contains(t, out, "2 tasks: 2 succeeded, 0 failed, 0 skipped")
}

func TestRun_FailedTaskExitCode(t *testing.T) {
	tree := setup(t)
	cfg := tree.WriteFile("dotup.toml", `
[[command]]
id = "broken"
run = "exit 3"

[[command]]
id = "after"
needs = ["broken"]
run = "true"
`)

	code, out, _ := execute("run", "-c", cfg, "--format", "text")
	assert.Equal(t, report.ExitFailed, code)
	assert.Contains(t, out, "exit status 3")
	assert.Contains(t, out, "prerequisite broken failed")
}

func TestRun_ConfigErrors(t *testing.T) {
	tree := setup(t)

	code, out, _ := execute("run", "--config", tree.Path("missing.toml"), "--format", "text")
	assert.Equal(t, report.ExitConfig, code)
	assert.Contains(t, out, "Error:")

	cyclic := tree.WriteFile("cycle.toml", `
[[command]]
id = "a"
needs = ["b"]
run = "true"

[[command]]
id = "b"
needs = ["a"]
run = "true"
`)
	code, out, _ = execute("run", "--config", cyclic, "--format", "json")
	assert.Equal(t, report.ExitConfig, code)
	var doc map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "CONFIG_CYCLE", doc["code"])
}

func TestRun_UsageErrors(t *testing.T) {
	setup(t)

	code, _, errOut := execute("run", "--format", "xml")
	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, errOut, "unknown format")

	code, _, _ = execute("run", "--no-such-flag")
	assert.Equal(t, ExitUsage, code)
}

func TestPlan(t *testing.T) {
	tree := setup(t)
	tree.WriteFile("home/dotfiles/vimrc", "x")
	cfg := tree.WriteFile("dotup.toml", homeConfig)

	code, out, _ := execute("plan", "--config", cfg, "--format", "text")
	require.Equal(t, report.ExitOK, code, out)
	assert.Contains(t, out, "home")
	assert.Contains(t, out, "create")
	assert.Contains(t, out, tree.Path("home", ".vimrc"))

	_, err := os.Lstat(tree.Path("home", ".vimrc"))
	assert.True(t, os.IsNotExist(err))
}

func TestGenerateGit(t *testing.T) {
	tree := setup(t)
	testutil.RequireGit(t)
	repo := tree.Mkdir("home/code/dotfiles")
	testutil.Git(t, repo, "init", "--quiet")
	testutil.Git(t, repo, "remote", "add", "origin", "git@example.com:me/dotfiles.git")

	code, out, errOut := execute("generate", "git", "--search", tree.Path("home", "code"))
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "[[repo]]")
	assert.Contains(t, out, "git@example.com:me/dotfiles.git")
	assert.Contains(t, out, "~/code/dotfiles")

	target := tree.Path("repos.toml")
	code, _, errOut = execute("generate", "git", "-s", tree.Path("home", "code"), "--out", target)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, tree.ReadFile("repos.toml"), "[[repo]]")

	code, _, _ = execute("generate", "git", "--search", tree.Path("nowhere"))
	assert.Equal(t, 1, code)
}

func TestVersionAndCompletion(t *testing.T) {
	setup(t)

	code, out, _ := execute("version")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "dotup version dev")

	code, out, _ = execute("completion", "bash")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "dotup")
}
