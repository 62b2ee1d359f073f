package testutil

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// RequireGit skips the test when git is not installed
func RequireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

// Git runs git in dir with a fixed identity and returns trimmed stdout
func Git(t *testing.T, dir string, args ...string) string {
	t.Helper()

	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=dotup",
		"GIT_AUTHOR_EMAIL=dotup@example.com",
		"GIT_COMMITTER_NAME=dotup",
		"GIT_COMMITTER_EMAIL=dotup@example.com",
		"GIT_CONFIG_NOSYSTEM=1",
		"GIT_TERMINAL_PROMPT=0",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	require.NoError(t, err, "git %s: %s", strings.Join(args, " "), stderr.String())
	return strings.TrimSpace(stdout.String())
}

// GitRemote is a bare repository plus the seed working copy that feeds it
type GitRemote struct {
	t *testing.T
	// URL is the bare repository path, usable as a clone URL
	URL string
	// Seed is a working copy with URL as its origin
	Seed string
}

// NewGitRemote creates a bare repository on branch main holding one commit
func NewGitRemote(t *testing.T) *GitRemote {
	t.Helper()
	RequireGit(t)

	tree := NewTree(t)
	seed := tree.Mkdir("seed")
	Git(t, seed, "init", "--quiet")
	Git(t, seed, "symbolic-ref", "HEAD", "refs/heads/main")
	tree.WriteFile("seed/README", "dotfiles\n")
	Git(t, seed, "add", "README")
	Git(t, seed, "commit", "--quiet", "-m", "initial")

	url := tree.Path("remote.git")
	Git(t, tree.Root, "clone", "--quiet", "--bare", seed, url)
	Git(t, seed, "remote", "add", "origin", url)
	Git(t, seed, "fetch", "--quiet", "origin")

	return &GitRemote{t: t, URL: url, Seed: seed}
}

// Push commits content at rel in the seed and pushes it to the remote.
// It returns the new commit id.
func (g *GitRemote) Push(rel, content string) string {
	g.t.Helper()
	p := filepath.Join(g.Seed, rel)
	require.NoError(g.t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(g.t, os.WriteFile(p, []byte(content), 0644))
	Git(g.t, g.Seed, "add", rel)
	Git(g.t, g.Seed, "commit", "--quiet", "-m", "update "+rel)
	Git(g.t, g.Seed, "push", "--quiet", "origin", "main")
	return Git(g.t, g.Seed, "rev-parse", "HEAD")
}

// Head returns the commit id at the tip of main in the remote
func (g *GitRemote) Head() string {
	g.t.Helper()
	return Git(g.t, g.URL, "rev-parse", "refs/heads/main")
}
