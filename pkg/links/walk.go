package links

import (
	"os"
	"path/filepath"

	"github.com/arthur-debert/dotup/pkg/errors"
	"github.com/arthur-debert/dotup/pkg/types"
)

// IgnoreFileName marks a directory whose whole subtree is never linked
const IgnoreFileName = ".dotupignore"

// Expand resolves a group into concrete pairs. When TargetDir is set every
// non-directory under SourceRoot is mapped to the same relative path under
// TargetDir. Explicit Files follow and win over walked pairs with the same
// target.
func Expand(fsys types.FS, group types.LinkGroupSpec) ([]types.LinkPair, error) {
	var pairs []types.LinkPair
	byTarget := make(map[string]int)

	if group.TargetDir != "" {
		if group.SourceRoot == "" {
			return nil, errors.New(errors.ErrConfigInvalid, "target_dir requires source_root")
		}
		info, err := fsys.Stat(group.SourceRoot)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrLinkSourceMissing, "cannot read source root %s", group.SourceRoot)
		}
		if !info.IsDir() {
			return nil, errors.Newf(errors.ErrLinkSourceMissing, "source root %s is not a directory", group.SourceRoot)
		}

		var rels []string
		if err := walk(fsys, group.SourceRoot, "", group.Ignore, &rels); err != nil {
			return nil, err
		}
		for _, rel := range rels {
			pair := types.LinkPair{
				Source: filepath.Join(group.SourceRoot, rel),
				Target: filepath.Join(group.TargetDir, rel),
			}
			byTarget[pair.Target] = len(pairs)
			pairs = append(pairs, pair)
		}
	}

	for _, pair := range group.Files {
		if i, ok := byTarget[pair.Target]; ok {
			pairs[i] = pair
			continue
		}
		byTarget[pair.Target] = len(pairs)
		pairs = append(pairs, pair)
	}

	return pairs, nil
}

func walk(fsys types.FS, root, rel string, ignore []string, out *[]string) error {
	dir := filepath.Join(root, rel)
	if _, err := fsys.Lstat(filepath.Join(dir, IgnoreFileName)); err == nil {
		return nil
	}

	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "cannot list %s", dir)
	}

	for _, entry := range entries {
		name := entry.Name()
		if name == ".git" || ignored(name, ignore) {
			continue
		}
		child := filepath.Join(rel, name)
		if entry.IsDir() {
			if err := walk(fsys, root, child, ignore, out); err != nil {
				return err
			}
			continue
		}
		if entry.Type()&os.ModeType&^os.ModeSymlink != 0 {
			// sockets, pipes and devices
			continue
		}
		*out = append(*out, child)
	}
	return nil
}

func ignored(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := filepath.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}
