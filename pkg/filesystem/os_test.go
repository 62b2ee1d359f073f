package filesystem_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/dotup/pkg/filesystem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSSymlinkRoundTrip(t *testing.T) {
	dir := t.TempDir()
	fsys := filesystem.NewOS()

	source := filepath.Join(dir, "source")
	require.NoError(t, os.WriteFile(source, []byte("x"), 0644))

	link := filepath.Join(dir, "nested", "link")
	require.NoError(t, fsys.MkdirAll(filepath.Dir(link), 0755))
	require.NoError(t, fsys.Symlink(source, link))

	dest, err := fsys.Readlink(link)
	require.NoError(t, err)
	assert.Equal(t, source, dest)

	info, err := fsys.Lstat(link)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&os.ModeSymlink)

	moved := filepath.Join(dir, "moved")
	require.NoError(t, fsys.Rename(link, moved))
	_, err = fsys.Lstat(link)
	assert.True(t, os.IsNotExist(err))

	entries, err := fsys.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	require.NoError(t, fsys.Remove(moved))
}
