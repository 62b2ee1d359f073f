package links

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/arthur-debert/dotup/pkg/errors"
	"github.com/arthur-debert/dotup/pkg/logging"
	"github.com/arthur-debert/dotup/pkg/paths"
	"github.com/arthur-debert/dotup/pkg/types"
	"github.com/rs/zerolog"
)

const tempLinkSuffix = ".dotup-tmp"

// ApplierOptions contains configuration for the applier
type ApplierOptions struct {
	// BackupDir receives backups instead of the target's own directory
	BackupDir string
	// TargetDir is the root that backup paths are made relative to
	TargetDir string
	// Now stamps backup names; defaults to time.Now
	Now    func() time.Time
	Logger *zerolog.Logger
}

// Applier executes planned actions
type Applier struct {
	fs        types.FS
	backupDir string
	targetDir string
	now       func() time.Time
	logger    zerolog.Logger
}

// NewApplier creates an applier writing through fs
func NewApplier(fs types.FS, opts ApplierOptions) *Applier {
	logger := logging.GetLogger("links.applier")
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Applier{
		fs:        fs,
		backupDir: opts.BackupDir,
		targetDir: opts.TargetDir,
		now:       now,
		logger:    logger,
	}
}

// Apply executes every action and returns one outcome per action, in order.
// A failing action never prevents the rest from running.
func (a *Applier) Apply(actions []types.PlannedAction) []types.LinkOutcome {
	outcomes := make([]types.LinkOutcome, 0, len(actions))
	for _, action := range actions {
		outcome := a.applyOne(action)
		a.logger.Debug().
			Str("source", outcome.Source).
			Str("target", outcome.Target).
			Str("result", string(outcome.Result)).
			Str("reason", outcome.Reason).
			Msg("Link applied")
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

func (a *Applier) applyOne(action types.PlannedAction) types.LinkOutcome {
	outcome := types.LinkOutcome{Source: action.Source, Target: action.Target}

	switch action.Action {
	case types.ActionNoOp:
		outcome.Result = types.LinkAlreadyCorrect
		return outcome

	case types.ActionCreate, types.ActionReplace:
		if err := a.install(action.Source, action.Target); err != nil {
			return failedLink(outcome, err)
		}
		outcome.Result = types.LinkCreated
		if action.Action == types.ActionReplace {
			outcome.Result = types.LinkReplaced
		}
		return outcome

	case types.ActionConflict:
		return a.resolveConflict(action, outcome)

	case types.ActionInvalid:
		outcome.Result = types.LinkFailed
		outcome.Reason = action.Reason
		return outcome
	}

	outcome.Result = types.LinkFailed
	outcome.Reason = fmt.Sprintf("unknown action %q", action.Action)
	return outcome
}

func (a *Applier) resolveConflict(action types.PlannedAction, outcome types.LinkOutcome) types.LinkOutcome {
	switch action.Policy {
	case types.ConflictSkip:
		outcome.Result = types.LinkConflictSkipped
		outcome.Reason = action.Reason
		return outcome

	case types.ConflictFail:
		outcome.Result = types.LinkFailed
		outcome.Reason = "conflict: " + action.Reason
		return outcome

	case types.ConflictBackup:
		victim := action.Target
		if action.Blocker != "" {
			victim = action.Blocker
			if blocker, _ := NewPlanner(a.fs).blockingParent(action.Target); blocker == "" {
				// An earlier action in this batch already backed up the
				// blocker and put a directory in its place.
				return a.applyCleared(action, outcome)
			}
		}
		backup, err := a.backup(victim)
		if err != nil {
			return failedLink(outcome, err)
		}
		outcome.Backup = backup
		if err := a.install(action.Source, action.Target); err != nil {
			return failedLink(outcome, err)
		}
		outcome.Result = types.LinkReplaced
		return outcome
	}

	outcome.Result = types.LinkFailed
	outcome.Reason = fmt.Sprintf("conflict with no usable policy %q: %s", action.Policy, action.Reason)
	return outcome
}

// applyCleared finishes a backup conflict whose blocking parent is gone. The
// target is checked again since the parent now holds whatever was linked
// into it.
func (a *Applier) applyCleared(action types.PlannedAction, outcome types.LinkOutcome) types.LinkOutcome {
	if _, err := a.fs.Lstat(action.Target); err == nil {
		if dest, err := a.fs.Readlink(action.Target); err == nil && filepath.Clean(dest) == filepath.Clean(action.Source) {
			outcome.Result = types.LinkAlreadyCorrect
			return outcome
		}
		backup, err := a.backup(action.Target)
		if err != nil {
			return failedLink(outcome, err)
		}
		outcome.Backup = backup
		if err := a.install(action.Source, action.Target); err != nil {
			return failedLink(outcome, err)
		}
		outcome.Result = types.LinkReplaced
		return outcome
	} else if !os.IsNotExist(err) {
		return failedLink(outcome, err)
	}

	if err := a.install(action.Source, action.Target); err != nil {
		return failedLink(outcome, err)
	}
	outcome.Result = types.LinkCreated
	return outcome
}

// install makes target a symlink to source. The link is created under a
// temporary name in the target's directory and renamed into place.
func (a *Applier) install(source, target string) error {
	dir := filepath.Dir(target)
	if err := a.fs.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "cannot create %s", dir)
	}

	tmp := filepath.Join(dir, "."+filepath.Base(target)+tempLinkSuffix)
	if info, err := a.fs.Lstat(tmp); err == nil && info.Mode()&os.ModeSymlink != 0 {
		_ = a.fs.Remove(tmp)
	}

	if err := a.fs.Symlink(source, tmp); err != nil {
		return errors.Wrapf(err, errors.ErrLinkApply, "cannot create link %s", tmp)
	}
	if err := a.fs.Rename(tmp, target); err != nil {
		_ = a.fs.Remove(tmp)
		return errors.Wrapf(err, errors.ErrLinkApply, "cannot move link into %s", target)
	}
	return nil
}

// backup moves path aside and returns where it went
func (a *Applier) backup(path string) (string, error) {
	dest := a.backupPath(path)
	if err := a.fs.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", errors.Wrapf(err, errors.ErrDirCreate, "cannot create backup directory %s", filepath.Dir(dest))
	}
	if err := a.fs.Rename(path, dest); err != nil {
		return "", errors.Wrapf(err, errors.ErrLinkApply, "cannot back up %s", path)
	}
	a.logger.Info().Str("path", path).Str("backup", dest).Msg("Moved existing content aside")
	return dest, nil
}

func (a *Applier) backupPath(path string) string {
	dir := filepath.Dir(path)
	if a.backupDir != "" {
		dir = a.backupDir
		if a.targetDir != "" && paths.IsWithin(a.targetDir, path) {
			if rel, err := filepath.Rel(a.targetDir, filepath.Dir(path)); err == nil {
				dir = filepath.Join(a.backupDir, rel)
			}
		}
	}

	base := filepath.Join(dir, paths.BackupName(path, a.now()))
	candidate := base
	for i := 1; ; i++ {
		if _, err := a.fs.Lstat(candidate); err != nil {
			return candidate
		}
		candidate = fmt.Sprintf("%s.%d", base, i)
	}
}

func failedLink(outcome types.LinkOutcome, err error) types.LinkOutcome {
	outcome.Result = types.LinkFailed
	outcome.Reason = err.Error()
	return outcome
}
