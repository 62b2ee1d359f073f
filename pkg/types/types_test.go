package types_test

import (
	"testing"

	"github.com/arthur-debert/dotup/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestConflictPolicyValid(t *testing.T) {
	assert.True(t, types.ConflictSkip.Valid())
	assert.True(t, types.ConflictBackup.Valid())
	assert.True(t, types.ConflictFail.Valid())
	assert.False(t, types.ConflictPolicy("").Valid())
	assert.False(t, types.ConflictPolicy("overwrite").Valid())
}

func TestTaskStatusIsTerminal(t *testing.T) {
	assert.False(t, types.StatusPending.IsTerminal())
	assert.False(t, types.StatusRunning.IsTerminal())
	assert.True(t, types.StatusSucceeded.IsTerminal())
	assert.True(t, types.StatusFailed.IsTerminal())
	assert.True(t, types.StatusSkipped.IsTerminal())
}

func TestRunReportQueries(t *testing.T) {
	report := types.RunReport{Tasks: []types.TaskResult{
		{ID: "repo", Status: types.StatusSucceeded},
		{ID: "links", Status: types.StatusFailed, Reason: "1 of 2 links failed"},
		{ID: "cmd", Status: types.StatusSkipped},
	}}

	got, ok := report.Find("links")
	assert.True(t, ok)
	assert.Equal(t, "1 of 2 links failed", got.Reason)

	_, ok = report.Find("missing")
	assert.False(t, ok)

	counts := report.Counts()
	assert.Equal(t, 1, counts[types.StatusSucceeded])
	assert.Equal(t, 1, counts[types.StatusFailed])
	assert.Equal(t, 1, counts[types.StatusSkipped])
	assert.True(t, report.HasFailures())
}
