package links

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/arthur-debert/dotup/pkg/paths"
	"github.com/arthur-debert/dotup/pkg/types"
)

// Planner decides what to do for each target. It only reads from its FS.
type Planner struct {
	fs types.FS
}

// NewPlanner creates a planner reading through fs
func NewPlanner(fs types.FS) *Planner {
	return &Planner{fs: fs}
}

// Plan returns one action per pair, in pair order. Pairs are planned
// independently of each other.
func (p *Planner) Plan(group types.LinkGroupSpec, pairs []types.LinkPair) []types.PlannedAction {
	actions := make([]types.PlannedAction, 0, len(pairs))
	for _, pair := range pairs {
		actions = append(actions, p.PlanPair(group, pair))
	}
	return actions
}

// PlanPair decides the action for a single pair
func (p *Planner) PlanPair(group types.LinkGroupSpec, pair types.LinkPair) types.PlannedAction {
	action := types.PlannedAction{
		Source: pair.Source,
		Target: pair.Target,
		Policy: group.Conflict,
	}

	if _, err := p.fs.Stat(pair.Source); err != nil {
		action.Action = types.ActionInvalid
		if os.IsNotExist(err) {
			action.Reason = "source does not exist"
		} else {
			action.Reason = fmt.Sprintf("cannot read source: %v", err)
		}
		return action
	}

	if blocker, kind := p.blockingParent(pair.Target); blocker != "" {
		action.Action = types.ActionConflict
		action.Blocker = blocker
		action.Existing = kind
		action.Reason = fmt.Sprintf("parent %s is a %s", blocker, kind)
		return action
	}

	info, err := p.fs.Lstat(pair.Target)
	if os.IsNotExist(err) {
		action.Action = types.ActionCreate
		return action
	}
	if err != nil {
		action.Action = types.ActionInvalid
		action.Reason = fmt.Sprintf("cannot inspect target: %v", err)
		return action
	}

	switch {
	case info.Mode()&os.ModeSymlink != 0:
		return p.planExistingLink(group, pair, action)
	case info.IsDir():
		action.Action = types.ActionConflict
		action.Existing = "directory"
	default:
		action.Action = types.ActionConflict
		action.Existing = "file"
	}
	action.Reason = fmt.Sprintf("target is an unmanaged %s", action.Existing)
	return action
}

func (p *Planner) planExistingLink(group types.LinkGroupSpec, pair types.LinkPair, action types.PlannedAction) types.PlannedAction {
	dest, err := p.fs.Readlink(pair.Target)
	if err != nil {
		action.Action = types.ActionInvalid
		action.Reason = fmt.Sprintf("cannot read link: %v", err)
		return action
	}

	resolved := dest
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(filepath.Dir(pair.Target), resolved)
	}
	resolved = filepath.Clean(resolved)

	if resolved == filepath.Clean(pair.Source) || p.sameFile(pair.Target, pair.Source) {
		action.Action = types.ActionNoOp
		return action
	}

	_, statErr := p.fs.Stat(pair.Target)
	if os.IsNotExist(statErr) && isManagedSource(group, pair, resolved) {
		action.Action = types.ActionReplace
		action.Existing = "broken link to " + dest
		return action
	}

	action.Action = types.ActionConflict
	action.Existing = "link to " + dest
	action.Reason = fmt.Sprintf("target links to %s", dest)
	return action
}

// sameFile reports whether the link at target resolves to source. Only an
// FS returning OS file info can answer this; others fall back to comparing
// link text.
func (p *Planner) sameFile(target, source string) bool {
	ti, err := p.fs.Stat(target)
	if err != nil {
		return false
	}
	si, err := p.fs.Stat(source)
	if err != nil {
		return false
	}
	return os.SameFile(ti, si)
}

// blockingParent finds the nearest existing ancestor of target and reports
// it when it is not a directory.
func (p *Planner) blockingParent(target string) (string, string) {
	dir := filepath.Dir(target)
	for {
		info, err := p.fs.Lstat(dir)
		if err == nil {
			if info.IsDir() {
				return "", ""
			}
			if info.Mode()&os.ModeSymlink != 0 {
				if st, err := p.fs.Stat(dir); err == nil && st.IsDir() {
					return "", ""
				}
				return dir, "link"
			}
			return dir, "file"
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ""
		}
		dir = parent
	}
}

// isManagedSource reports whether a link destination lies in the tree this
// group links from: SourceRoot when set, otherwise the directory holding the
// pair's source.
func isManagedSource(group types.LinkGroupSpec, pair types.LinkPair, dest string) bool {
	root := group.SourceRoot
	if root == "" {
		root = filepath.Dir(pair.Source)
	}
	return paths.IsWithin(filepath.Clean(root), dest)
}
