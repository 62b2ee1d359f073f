package config

import (
	"path/filepath"

	"github.com/arthur-debert/dotup/pkg/errors"
	"github.com/arthur-debert/dotup/pkg/graph"
	"github.com/arthur-debert/dotup/pkg/types"
)

// Validate reports the first ConfigError in cfg, or nil. It performs no I/O
// so it can run before anything touches the filesystem or the network.
func Validate(cfg types.Config) error {
	if cfg.Jobs < 0 {
		return errors.Newf(errors.ErrConfigInvalid, "jobs must not be negative (got %d)", cfg.Jobs)
	}

	seen := make(map[string]bool, len(cfg.Tasks))
	for _, task := range cfg.Tasks {
		if task.ID == "" {
			return errors.Newf(errors.ErrConfigInvalid, "%s task without an id", task.Kind)
		}
		if seen[task.ID] {
			return errors.Newf(errors.ErrConfigDuplicateID, "duplicate task id %q", task.ID).
				WithDetail("task", task.ID)
		}
		seen[task.ID] = true
	}

	repoPaths := make(map[string]string)
	targets := make(map[string]string)

	for _, task := range cfg.Tasks {
		for _, need := range task.Needs {
			if !seen[need] {
				return errors.Newf(errors.ErrConfigUnknownDependency, "task %q needs unknown task %q", task.ID, need).
					WithDetail("task", task.ID).
					WithDetail("dependency", need)
			}
		}

		var err error
		switch task.Kind {
		case types.KindGitRepo:
			err = validateRepo(task, repoPaths)
		case types.KindLinkGroup:
			err = validateLinks(task, targets)
		case types.KindCommand:
			err = validateCommand(task)
		default:
			err = errors.Newf(errors.ErrConfigInvalid, "task %q has unknown kind %q", task.ID, task.Kind)
		}
		if err != nil {
			return err
		}
	}

	_, err := graph.Build(cfg.Tasks)
	return err
}

func validateRepo(task types.TaskSpec, repoPaths map[string]string) error {
	r := task.Repo
	if r == nil {
		return errors.Newf(errors.ErrConfigInvalid, "repo task %q has no repository", task.ID)
	}
	if r.URL == "" {
		return errors.Newf(errors.ErrConfigInvalid, "repo %q has no url", task.ID)
	}
	if r.Path == "" {
		return errors.Newf(errors.ErrConfigInvalid, "repo %q has no path", task.ID)
	}
	if !filepath.IsAbs(r.Path) {
		return errors.Newf(errors.ErrConfigInvalid, "repo %q path %q is not absolute", task.ID, r.Path)
	}

	p := filepath.Clean(r.Path)
	if owner, ok := repoPaths[p]; ok {
		return errors.Newf(errors.ErrConfigDuplicateRepoPath, "repos %q and %q both use %s", owner, task.ID, p).
			WithDetail("path", p)
	}
	repoPaths[p] = task.ID
	return nil
}

func validateLinks(task types.TaskSpec, targets map[string]string) error {
	l := task.Links
	if l == nil {
		return errors.Newf(errors.ErrConfigInvalid, "link task %q has no link group", task.ID)
	}
	if l.Conflict == "" {
		return errors.Newf(errors.ErrConfigInvalid, "link %q has no conflict policy (want skip, backup or fail)", task.ID)
	}
	if !l.Conflict.Valid() {
		return errors.Newf(errors.ErrConfigInvalid, "link %q has unknown conflict policy %q (want skip, backup or fail)", task.ID, l.Conflict)
	}
	if l.TargetDir == "" && len(l.Files) == 0 {
		return errors.Newf(errors.ErrConfigInvalid, "link %q declares neither target_dir nor files", task.ID)
	}
	if l.TargetDir != "" && l.SourceRoot == "" {
		return errors.Newf(errors.ErrConfigInvalid, "link %q sets target_dir without source_root", task.ID)
	}
	for _, field := range []struct{ name, value string }{
		{"source_root", l.SourceRoot},
		{"target_dir", l.TargetDir},
		{"backup_dir", l.BackupDir},
	} {
		if field.value != "" && !filepath.IsAbs(field.value) {
			return errors.Newf(errors.ErrConfigInvalid, "link %q %s %q is not absolute", task.ID, field.name, field.value)
		}
	}

	for _, pair := range l.Files {
		if pair.Source == "" || pair.Target == "" {
			return errors.Newf(errors.ErrConfigInvalid, "link %q has an entry without source or target", task.ID)
		}
		if !filepath.IsAbs(pair.Source) || !filepath.IsAbs(pair.Target) {
			return errors.Newf(errors.ErrConfigInvalid, "link %q entry %s -> %s is not absolute", task.ID, pair.Source, pair.Target)
		}
		target := filepath.Clean(pair.Target)
		if owner, ok := targets[target]; ok {
			return errors.Newf(errors.ErrConfigDuplicateTarget, "target %s is declared by both %q and %q", target, owner, task.ID).
				WithDetail("target", target)
		}
		targets[target] = task.ID
	}
	return nil
}

func validateCommand(task types.TaskSpec) error {
	c := task.Command
	if c == nil {
		return errors.Newf(errors.ErrConfigInvalid, "command task %q has no command", task.ID)
	}
	if c.Run == "" {
		return errors.Newf(errors.ErrConfigInvalid, "command %q has nothing to run", task.ID)
	}
	if c.Timeout < 0 {
		return errors.Newf(errors.ErrConfigInvalid, "command %q has a negative timeout", task.ID)
	}
	return nil
}
