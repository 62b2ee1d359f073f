package links

import (
	"fmt"
	"time"

	"github.com/arthur-debert/dotup/pkg/filesystem"
	"github.com/arthur-debert/dotup/pkg/logging"
	"github.com/arthur-debert/dotup/pkg/types"
	"github.com/rs/zerolog"
)

// GroupOptions contains configuration for a Group
type GroupOptions struct {
	FS     types.FS
	Claims *Claims
	Now    func() time.Time
	Logger *zerolog.Logger
}

// Group converges link_group tasks
type Group struct {
	fs      types.FS
	claims  *Claims
	planner *Planner
	now     func() time.Time
	logger  zerolog.Logger
}

// NewGroup creates a Group. A nil FS means the OS filesystem and a nil
// Claims a fresh registry.
func NewGroup(opts GroupOptions) *Group {
	fsys := opts.FS
	if fsys == nil {
		fsys = filesystem.NewOS()
	}
	claims := opts.Claims
	if claims == nil {
		claims = NewClaims()
	}
	logger := logging.GetLogger("links")
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Group{
		fs:      fsys,
		claims:  claims,
		planner: NewPlanner(fsys),
		now:     opts.Now,
		logger:  logger,
	}
}

// Preview expands and plans spec without touching the filesystem
func (g *Group) Preview(spec types.LinkGroupSpec) ([]types.PlannedAction, error) {
	pairs, err := Expand(g.fs, spec)
	if err != nil {
		return nil, err
	}
	return g.planner.Plan(spec, pairs), nil
}

// Run converges every link of spec on behalf of taskID. The error is
// reserved for failures that prevent resolving the group at all; per-link
// failures are reported in the outcomes.
func (g *Group) Run(taskID string, spec types.LinkGroupSpec) ([]types.LinkOutcome, error) {
	logger := g.logger.With().Str("task", taskID).Logger()
	defer logging.LogOperationStart(logger, "link group")()

	pairs, err := Expand(g.fs, spec)
	if err != nil {
		return nil, err
	}

	outcomes := make([]types.LinkOutcome, len(pairs))
	var claimed []types.LinkPair
	var slots []int
	for i, pair := range pairs {
		if owner, ok := g.claims.Claim(taskID, pair.Target); !ok {
			outcomes[i] = types.LinkOutcome{
				Source: pair.Source,
				Target: pair.Target,
				Result: types.LinkFailed,
				Reason: fmt.Sprintf("target claimed by task %s", owner),
			}
			continue
		}
		claimed = append(claimed, pair)
		slots = append(slots, i)
	}

	applier := NewApplier(g.fs, ApplierOptions{
		BackupDir: spec.BackupDir,
		TargetDir: spec.TargetDir,
		Now:       g.now,
		Logger:    &logger,
	})
	applied := applier.Apply(g.planner.Plan(spec, claimed))
	for j, outcome := range applied {
		outcomes[slots[j]] = outcome
	}

	logger.Info().Int("links", len(outcomes)).Int("failed", CountFailed(outcomes)).Msg("Link group converged")
	return outcomes, nil
}

// CountFailed returns how many outcomes are LinkFailed
func CountFailed(outcomes []types.LinkOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Result == types.LinkFailed {
			n++
		}
	}
	return n
}
