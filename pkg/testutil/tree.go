package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Tree is a scratch directory with helpers for laying out files
type Tree struct {
	t    *testing.T
	Root string
}

// NewTree creates a Tree rooted in a fresh temp dir. The root is resolved
// through symlinks so paths compare equal to what the OS reports back.
func NewTree(t *testing.T) *Tree {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return &Tree{t: t, Root: root}
}

// Path joins elems onto the tree root
func (tr *Tree) Path(elems ...string) string {
	return filepath.Join(append([]string{tr.Root}, elems...)...)
}

// WriteFile writes content at rel, creating parents
func (tr *Tree) WriteFile(rel, content string) string {
	tr.t.Helper()
	p := tr.Path(rel)
	require.NoError(tr.t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(tr.t, os.WriteFile(p, []byte(content), 0644))
	return p
}

// Mkdir creates the directory rel
func (tr *Tree) Mkdir(rel string) string {
	tr.t.Helper()
	p := tr.Path(rel)
	require.NoError(tr.t, os.MkdirAll(p, 0755))
	return p
}

// Symlink creates rel pointing at dest
func (tr *Tree) Symlink(dest, rel string) string {
	tr.t.Helper()
	p := tr.Path(rel)
	require.NoError(tr.t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(tr.t, os.Symlink(dest, p))
	return p
}

// ReadFile returns the content at rel
func (tr *Tree) ReadFile(rel string) string {
	tr.t.Helper()
	data, err := os.ReadFile(tr.Path(rel))
	require.NoError(tr.t, err)
	return string(data)
}

// Readlink returns the destination of the link at rel
func (tr *Tree) Readlink(rel string) string {
	tr.t.Helper()
	dest, err := os.Readlink(tr.Path(rel))
	require.NoError(tr.t, err)
	return dest
}
