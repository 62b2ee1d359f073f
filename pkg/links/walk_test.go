package links

import (
	"testing"

	"github.com/arthur-debert/dotup/pkg/errors"
	"github.com/arthur-debert/dotup/pkg/testutil"
	"github.com/arthur-debert/dotup/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand_WalksSourceRoot(t *testing.T) {
	m := testutil.NewMemoryFS()
	for _, p := range []string{
		"/dotfiles/bashrc",
		"/dotfiles/config/nvim/init.lua",
		"/dotfiles/config/git/config",
		"/dotfiles/notes.swp",
		"/dotfiles/.git/HEAD",
		"/dotfiles/private/.dotupignore",
		"/dotfiles/private/token",
	} {
		require.NoError(t, m.WriteFile(p, []byte("x"), 0644))
	}
	group := types.LinkGroupSpec{
		SourceRoot: "/dotfiles",
		TargetDir:  "/home",
		Ignore:     []string{"*.swp"},
	}

	pairs, err := Expand(m, group)
	require.NoError(t, err)

	assert.Equal(t, []types.LinkPair{
		{Source: "/dotfiles/bashrc", Target: "/home/bashrc"},
		{Source: "/dotfiles/config/git/config", Target: "/home/config/git/config"},
		{Source: "/dotfiles/config/nvim/init.lua", Target: "/home/config/nvim/init.lua"},
	}, pairs)
}

func TestExpand_ExplicitPairsOverrideWalked(t *testing.T) {
	m := testutil.NewMemoryFS()
	require.NoError(t, m.WriteFile("/dotfiles/bashrc", []byte("x"), 0644))
	require.NoError(t, m.WriteFile("/dotfiles/bashrc.linux", []byte("x"), 0644))
	group := types.LinkGroupSpec{
		SourceRoot: "/dotfiles",
		TargetDir:  "/home",
		Ignore:     []string{"bashrc.linux"},
		Files: []types.LinkPair{
			{Source: "/dotfiles/bashrc.linux", Target: "/home/bashrc"},
			{Source: "/dotfiles/bashrc", Target: "/home/.profile"},
		},
	}

	pairs, err := Expand(m, group)
	require.NoError(t, err)

	assert.Equal(t, []types.LinkPair{
		{Source: "/dotfiles/bashrc.linux", Target: "/home/bashrc"},
		{Source: "/dotfiles/bashrc", Target: "/home/.profile"},
	}, pairs)
}

func TestExpand_ExplicitOnly(t *testing.T) {
	group := types.LinkGroupSpec{Files: []types.LinkPair{{Source: "/a", Target: "/b"}}}

	pairs, err := Expand(testutil.NewMemoryFS(), group)
	require.NoError(t, err)
	assert.Equal(t, group.Files, pairs)
}

func TestExpand_MissingSourceRoot(t *testing.T) {
	group := types.LinkGroupSpec{SourceRoot: "/nowhere", TargetDir: "/home"}

	_, err := Expand(testutil.NewMemoryFS(), group)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrLinkSourceMissing))
}
