package executor

import (
	"context"
	"fmt"

	"github.com/arthur-debert/dotup/pkg/links"
	"github.com/arthur-debert/dotup/pkg/types"
)

// dispatch runs the handler for spec's kind and maps its outcome to a task
// status. Handlers report failure through their outcome values, never by
// returning early.
func (r *run) dispatch(ctx context.Context, spec types.TaskSpec) types.TaskResult {
	result := types.TaskResult{ID: spec.ID, Kind: spec.Kind, Status: types.StatusSucceeded}

	switch spec.Kind {
	case types.KindGitRepo:
		outcome := r.repos.Sync(ctx, *spec.Repo)
		result.Repo = &outcome
		switch outcome.Result {
		case types.RepoFailed:
			result.Status = types.StatusFailed
			result.Reason = outcome.Reason
		case types.RepoConflictSkipped:
			result.Reason = "conflict skipped: " + outcome.Reason
		}

	case types.KindLinkGroup:
		outcomes, err := r.links.Run(spec.ID, *spec.Links)
		result.Links = outcomes
		if err != nil {
			result.Status = types.StatusFailed
			result.Reason = err.Error()
			break
		}
		if failed := links.CountFailed(outcomes); failed > 0 {
			result.Status = types.StatusFailed
			result.Reason = fmt.Sprintf("%d of %d links failed", failed, len(outcomes))
		} else if skipped := countSkipped(outcomes); skipped > 0 {
			result.Reason = fmt.Sprintf("%d of %d links skipped on conflict", skipped, len(outcomes))
		}

	case types.KindCommand:
		outcome := r.commands.Run(ctx, *spec.Command)
		result.Command = &outcome
		if outcome.Failed {
			result.Status = types.StatusFailed
			result.Reason = outcome.Reason
		}

	default:
		result.Status = types.StatusFailed
		result.Reason = fmt.Sprintf("unknown task kind %q", spec.Kind)
	}

	return result
}

func countSkipped(outcomes []types.LinkOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Result == types.LinkConflictSkipped {
			n++
		}
	}
	return n
}
