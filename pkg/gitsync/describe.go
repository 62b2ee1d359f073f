package gitsync

import (
	"context"

	"github.com/arthur-debert/dotup/pkg/errors"
)

// Description is what a working copy reports about itself
type Description struct {
	URL    string
	Branch string
}

// Describe reads the remote URL and current branch of the working copy at
// path. A detached HEAD yields an empty Branch.
func (s *Syncer) Describe(ctx context.Context, path, remote string) (Description, error) {
	if remote == "" {
		remote = DefaultRemote
	}

	url, err := s.runner.Run(ctx, path, "config", "--get", "remote."+remote+".url")
	if err != nil {
		return Description{}, errors.Wrapf(err, errors.ErrGitInspect, "no remote %q in %s", remote, path)
	}

	branch, err := s.runner.Run(ctx, path, "symbolic-ref", "--quiet", "--short", "HEAD")
	if err != nil {
		branch = ""
	}

	return Description{URL: url, Branch: branch}, nil
}
