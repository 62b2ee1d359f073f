package gitsync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/dotup/pkg/errors"
	"github.com/arthur-debert/dotup/pkg/logging"
	"github.com/arthur-debert/dotup/pkg/types"
	"github.com/rs/zerolog"
)

// DefaultRemote is used when a RepoSpec names no remote
const DefaultRemote = "origin"

// ReasonPathOccupied is the failure reason for a path holding unrelated content
const ReasonPathOccupied = "path occupied by unrelated content"

// Options contains configuration for the syncer
type Options struct {
	Runner Runner
	Logger *zerolog.Logger
}

// Syncer synchronizes one working copy per call
type Syncer struct {
	runner Runner
	logger zerolog.Logger
}

// New creates a new syncer instance
func New(opts Options) *Syncer {
	logger := logging.GetLogger("gitsync")
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	runner := opts.Runner
	if runner == nil {
		runner = NewExecRunner()
	}

	return &Syncer{runner: runner, logger: logger}
}

// Sync brings spec.Path in line with spec.URL. Every failure mode is
// reported in the returned outcome.
func (s *Syncer) Sync(ctx context.Context, spec types.RepoSpec) types.RepoOutcome {
	logger := s.logger.With().Str("path", spec.Path).Str("url", spec.URL).Logger()
	defer logging.LogOperationStart(logger, "git sync")()

	if spec.Remote == "" {
		spec.Remote = DefaultRemote
	}

	state, err := inspectPath(spec.Path)
	if err != nil {
		return failed(spec, errors.Wrapf(err, errors.ErrGitInspect, "cannot inspect %s", spec.Path))
	}

	switch state {
	case pathAbsent, pathEmptyDir:
		return s.clone(ctx, spec, state == pathAbsent, logger)
	case pathNotDir:
		return failed(spec, errors.New(errors.ErrGitPathOccupied, ReasonPathOccupied))
	}

	if err := s.verifyWorkingCopy(ctx, spec); err != nil {
		logger.Warn().Err(err).Msg("Refusing to touch unrelated content")
		return failed(spec, err)
	}

	return s.update(ctx, spec, logger)
}

type pathState int

const (
	pathAbsent pathState = iota
	pathEmptyDir
	pathNotDir
	pathNonEmptyDir
)

// inspectPath follows symlinks so a link to a working copy is treated as the
// working copy itself.
func inspectPath(path string) (pathState, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return pathAbsent, nil
	}
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return pathNotDir, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return pathEmptyDir, nil
	}
	return pathNonEmptyDir, nil
}

func (s *Syncer) clone(ctx context.Context, spec types.RepoSpec, created bool, logger zerolog.Logger) types.RepoOutcome {
	if err := os.MkdirAll(filepath.Dir(spec.Path), 0755); err != nil {
		return failed(spec, errors.Wrapf(err, errors.ErrDirCreate, "cannot create parent of %s", spec.Path))
	}

	args := []string{"clone", "--quiet", "--origin", spec.Remote}
	if spec.Branch != "" {
		args = append(args, "--branch", spec.Branch)
	}
	args = append(args, "--", spec.URL, spec.Path)

	logger.Info().Str("branch", spec.Branch).Msg("Cloning repository")
	if _, err := s.runner.Run(ctx, filepath.Dir(spec.Path), args...); err != nil {
		if created {
			// git removes its own partial clone on most failures; this
			// covers the cases where it is killed first.
			_ = os.RemoveAll(spec.Path)
		}
		return failed(spec, errors.Wrapf(err, errors.ErrGitClone, "clone of %s failed", spec.URL))
	}

	head, err := s.runner.Run(ctx, spec.Path, "rev-parse", "HEAD")
	if err != nil {
		logger.Warn().Err(err).Msg("Cannot resolve HEAD of fresh clone")
	}
	logger.Info().Str("head", head).Msg("Repository cloned")
	return types.RepoOutcome{Result: types.RepoCloned, Path: spec.Path, After: head}
}

// verifyWorkingCopy checks that path is the top level of a working copy
// whose remote points at spec.URL.
func (s *Syncer) verifyWorkingCopy(ctx context.Context, spec types.RepoSpec) error {
	top, err := s.runner.Run(ctx, spec.Path, "rev-parse", "--show-toplevel")
	if err != nil || !samePath(top, spec.Path) {
		return errors.New(errors.ErrGitPathOccupied, ReasonPathOccupied).
			WithDetail("reason", "not the top level of a git working copy")
	}

	url, err := s.runner.Run(ctx, spec.Path, "config", "--get", "remote."+spec.Remote+".url")
	if err != nil {
		return errors.New(errors.ErrGitPathOccupied, ReasonPathOccupied).
			WithDetail("reason", fmt.Sprintf("working copy has no remote %q", spec.Remote))
	}
	if NormalizeURL(url) != NormalizeURL(spec.URL) {
		return errors.New(errors.ErrGitPathOccupied, ReasonPathOccupied).
			WithDetail("reason", fmt.Sprintf("remote %q points at %s", spec.Remote, url))
	}
	return nil
}

func (s *Syncer) update(ctx context.Context, spec types.RepoSpec, logger zerolog.Logger) types.RepoOutcome {
	logger.Debug().Str("remote", spec.Remote).Msg("Fetching")
	if _, err := s.runner.Run(ctx, spec.Path, "fetch", "--quiet", "--prune", spec.Remote); err != nil {
		return failed(spec, errors.Wrapf(err, errors.ErrGitFetch, "fetch from %s failed", spec.Remote))
	}

	dirty, err := s.runner.Run(ctx, spec.Path, "status", "--porcelain", "--untracked-files=no")
	if err != nil {
		return failed(spec, errors.Wrap(err, errors.ErrGitInspect, "cannot read working tree status"))
	}
	if dirty != "" {
		return conflict(spec, "working tree has local modifications")
	}

	current, err := s.runner.Run(ctx, spec.Path, "symbolic-ref", "--quiet", "--short", "HEAD")
	if err != nil {
		current = ""
	}

	branch := spec.Branch
	if branch == "" {
		if current == "" {
			return conflict(spec, "HEAD is detached and no branch is configured")
		}
		branch = current
	}

	upstreamRef := "refs/remotes/" + spec.Remote + "/" + branch
	upstream, err := s.runner.Run(ctx, spec.Path, "rev-parse", "--verify", "--quiet", upstreamRef+"^{commit}")
	if err != nil {
		return failed(spec, errors.Wrapf(err, errors.ErrGitUpdate, "remote branch %s/%s not found", spec.Remote, branch))
	}

	switching := current != branch
	var head string
	if switching {
		head, err = s.localBranch(ctx, spec.Path, branch)
	} else {
		head, err = s.runner.Run(ctx, spec.Path, "rev-parse", "HEAD")
	}
	if err != nil {
		return failed(spec, errors.Wrap(err, errors.ErrGitInspect, "cannot resolve HEAD"))
	}

	if head == "" {
		// No local branch yet: create it at the remote tip.
		logger.Info().Str("from", current).Str("to", branch).Msg("Creating configured branch")
		if _, err := s.runner.Run(ctx, spec.Path, "checkout", "--quiet", "--track", "-b", branch, spec.Remote+"/"+branch); err != nil {
			return conflict(spec, fmt.Sprintf("cannot switch to branch %s: %v", branch, err))
		}
		return types.RepoOutcome{Result: types.RepoUpdated, Path: spec.Path, After: upstream, Reason: "created local branch " + branch}
	}

	if head == upstream {
		if outcome, ok := s.switchTo(ctx, spec, current, branch, switching, logger); !ok {
			return outcome
		}
		logger.Debug().Str("head", head).Msg("Already up to date")
		return types.RepoOutcome{Result: types.RepoAlreadyUpToDate, Path: spec.Path, Before: head, After: head}
	}

	canFastForward, err := s.isAncestor(ctx, spec.Path, head, upstream)
	if err != nil {
		return failed(spec, errors.Wrap(err, errors.ErrGitInspect, "cannot compare local and remote history"))
	}
	if !canFastForward {
		ahead, err := s.isAncestor(ctx, spec.Path, upstream, head)
		if err != nil {
			return failed(spec, errors.Wrap(err, errors.ErrGitInspect, "cannot compare local and remote history"))
		}
		if !ahead {
			// HEAD stays where it is, even when another branch is configured.
			return conflict(spec, fmt.Sprintf("local branch %s has diverged from %s/%s", branch, spec.Remote, branch))
		}
		if outcome, ok := s.switchTo(ctx, spec, current, branch, switching, logger); !ok {
			return outcome
		}
		return types.RepoOutcome{
			Result: types.RepoAlreadyUpToDate,
			Path:   spec.Path,
			Before: head,
			After:  head,
			Reason: "local branch has unpushed commits",
		}
	}

	if outcome, ok := s.switchTo(ctx, spec, current, branch, switching, logger); !ok {
		return outcome
	}
	if _, err := s.runner.Run(ctx, spec.Path, "merge", "--ff-only", "--quiet", upstream); err != nil {
		return conflict(spec, fmt.Sprintf("fast-forward refused: %v", err))
	}

	logger.Info().Str("before", head).Str("after", upstream).Msg("Fast-forwarded")
	return types.RepoOutcome{Result: types.RepoUpdated, Path: spec.Path, Before: head, After: upstream}
}

// localBranch resolves refs/heads/<branch>. A missing branch yields an empty
// hash and no error.
func (s *Syncer) localBranch(ctx context.Context, dir, branch string) (string, error) {
	head, err := s.runner.Run(ctx, dir, "rev-parse", "--verify", "--quiet", "refs/heads/"+branch+"^{commit}")
	if err != nil {
		if ExitCode(err) == 1 {
			return "", nil
		}
		return "", err
	}
	return head, nil
}

// switchTo checks out branch when the working copy is on another one. It is
// only called once the outcome is known not to be a conflict.
func (s *Syncer) switchTo(ctx context.Context, spec types.RepoSpec, current, branch string, switching bool, logger zerolog.Logger) (types.RepoOutcome, bool) {
	if !switching {
		return types.RepoOutcome{}, true
	}
	logger.Info().Str("from", current).Str("to", branch).Msg("Switching to configured branch")
	if _, err := s.runner.Run(ctx, spec.Path, "checkout", "--quiet", branch); err != nil {
		return conflict(spec, fmt.Sprintf("cannot switch to branch %s: %v", branch, err)), false
	}
	return types.RepoOutcome{}, true
}

// isAncestor reports whether a is an ancestor of b. Exit status 1 is git's
// "no" answer; anything else is an error.
func (s *Syncer) isAncestor(ctx context.Context, dir, a, b string) (bool, error) {
	_, err := s.runner.Run(ctx, dir, "merge-base", "--is-ancestor", a, b)
	if err == nil {
		return true, nil
	}
	if ExitCode(err) == 1 {
		return false, nil
	}
	return false, err
}

// NormalizeURL strips the decorations that do not change which repository a
// URL names: surrounding space, trailing slashes and a `.git` suffix.
func NormalizeURL(url string) string {
	url = strings.TrimSpace(url)
	url = strings.TrimRight(url, "/")
	return strings.TrimSuffix(url, ".git")
}

func samePath(a, b string) bool {
	if ra, err := filepath.EvalSymlinks(a); err == nil {
		a = ra
	}
	if rb, err := filepath.EvalSymlinks(b); err == nil {
		b = rb
	}
	return filepath.Clean(a) == filepath.Clean(b)
}

func failed(spec types.RepoSpec, err error) types.RepoOutcome {
	return types.RepoOutcome{Result: types.RepoFailed, Path: spec.Path, Reason: reasonOf(err)}
}

func conflict(spec types.RepoSpec, reason string) types.RepoOutcome {
	return types.RepoOutcome{Result: types.RepoConflictSkipped, Path: spec.Path, Reason: reason}
}

// reasonOf renders err for the report, appending the detail that explains
// an occupied path.
func reasonOf(err error) string {
	if errors.IsErrorCode(err, errors.ErrGitPathOccupied) {
		if detail, ok := errors.GetErrorDetails(err)["reason"].(string); ok {
			return fmt.Sprintf("%s (%s)", ReasonPathOccupied, detail)
		}
		return ReasonPathOccupied
	}
	return err.Error()
}
