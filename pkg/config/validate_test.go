package config

import (
	"testing"

	"github.com/arthur-debert/dotup/pkg/errors"
	"github.com/arthur-debert/dotup/pkg/types"
	"github.com/stretchr/testify/assert"
)

func repoTask(id, path string, needs ...string) types.TaskSpec {
	return types.TaskSpec{ID: id, Kind: types.KindGitRepo, Needs: needs, Repo: &types.RepoSpec{URL: "u", Path: path}}
}

func linkTask(id string, policy types.ConflictPolicy, pairs ...types.LinkPair) types.TaskSpec {
	return types.TaskSpec{ID: id, Kind: types.KindLinkGroup, Links: &types.LinkGroupSpec{Conflict: policy, Files: pairs}}
}

func cmdTask(id string, needs ...string) types.TaskSpec {
	return types.TaskSpec{ID: id, Kind: types.KindCommand, Needs: needs, Command: &types.CommandSpec{Run: "true"}}
}

func TestValidate(t *testing.T) {
	vimrc := types.LinkPair{Source: "/src/vimrc", Target: "/home/.vimrc"}

	tests := []struct {
		name  string
		tasks []types.TaskSpec
		code  errors.ErrorCode
	}{
		{
			name:  "valid",
			tasks: []types.TaskSpec{repoTask("r", "/src"), linkTask("l", types.ConflictSkip, vimrc), cmdTask("c", "r", "l")},
		},
		{
			name:  "duplicate id",
			tasks: []types.TaskSpec{cmdTask("a"), cmdTask("a")},
			code:  errors.ErrConfigDuplicateID,
		},
		{
			name:  "empty id",
			tasks: []types.TaskSpec{cmdTask("")},
			code:  errors.ErrConfigInvalid,
		},
		{
			name:  "unknown dependency",
			tasks: []types.TaskSpec{cmdTask("a", "ghost")},
			code:  errors.ErrConfigUnknownDependency,
		},
		{
			name:  "cycle",
			tasks: []types.TaskSpec{cmdTask("a", "b"), cmdTask("b", "a")},
			code:  errors.ErrConfigCycle,
		},
		{
			name:  "self dependency",
			tasks: []types.TaskSpec{cmdTask("a", "a")},
			code:  errors.ErrConfigCycle,
		},
		{
			name:  "duplicate target",
			tasks: []types.TaskSpec{linkTask("a", types.ConflictSkip, vimrc), linkTask("b", types.ConflictSkip, vimrc)},
			code:  errors.ErrConfigDuplicateTarget,
		},
		{
			name:  "duplicate target within group",
			tasks: []types.TaskSpec{linkTask("a", types.ConflictSkip, vimrc, vimrc)},
			code:  errors.ErrConfigDuplicateTarget,
		},
		{
			name:  "duplicate repo path",
			tasks: []types.TaskSpec{repoTask("a", "/src"), repoTask("b", "/src/")},
			code:  errors.ErrConfigDuplicateRepoPath,
		},
		{
			name:  "missing policy",
			tasks: []types.TaskSpec{linkTask("a", "", vimrc)},
			code:  errors.ErrConfigInvalid,
		},
		{
			name:  "unknown policy",
			tasks: []types.TaskSpec{linkTask("a", "overwrite", vimrc)},
			code:  errors.ErrConfigInvalid,
		},
		{
			name:  "empty link group",
			tasks: []types.TaskSpec{linkTask("a", types.ConflictSkip)},
			code:  errors.ErrConfigInvalid,
		},
		{
			name:  "relative target",
			tasks: []types.TaskSpec{linkTask("a", types.ConflictSkip, types.LinkPair{Source: "/s", Target: "t"})},
			code:  errors.ErrConfigInvalid,
		},
		{
			name:  "repo without url",
			tasks: []types.TaskSpec{{ID: "r", Kind: types.KindGitRepo, Repo: &types.RepoSpec{Path: "/src"}}},
			code:  errors.ErrConfigInvalid,
		},
		{
			name:  "command without run",
			tasks: []types.TaskSpec{{ID: "c", Kind: types.KindCommand, Command: &types.CommandSpec{}}},
			code:  errors.ErrConfigInvalid,
		},
		{
			name:  "kind without payload",
			tasks: []types.TaskSpec{{ID: "c", Kind: types.KindLinkGroup}},
			code:  errors.ErrConfigInvalid,
		},
		{
			name:  "unknown kind",
			tasks: []types.TaskSpec{{ID: "c", Kind: "docker"}},
			code:  errors.ErrConfigInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(types.Config{Tasks: tt.tasks})
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.code, errors.GetErrorCode(err), "%v", err)
		})
	}
}

func TestValidate_CycleNamesPath(t *testing.T) {
	err := Validate(types.Config{Tasks: []types.TaskSpec{cmdTask("a", "b"), cmdTask("b", "a")}})

	assert.Contains(t, err.Error(), "a -> b -> a")
}

func TestValidate_NegativeJobs(t *testing.T) {
	err := Validate(types.Config{Jobs: -1})

	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigInvalid))
}
