// Package generate builds a [[repo]] configuration from the git working
// copies already present on disk.
package generate

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/arthur-debert/dotup/pkg/errors"
	"github.com/arthur-debert/dotup/pkg/gitsync"
	"github.com/arthur-debert/dotup/pkg/logging"
	"github.com/arthur-debert/dotup/pkg/paths"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
)

// Prelude heads every generated document
const Prelude = `# Generated by "dotup generate git".
# Review ids, branches and needs before using this file.
`

// Describer reads the remote and branch of a working copy
type Describer interface {
	Describe(ctx context.Context, path, remote string) (gitsync.Description, error)
}

// Options controls a discovery pass
type Options struct {
	// Search lists the roots to walk
	Search []string
	// Exclude lists directory names that are never entered
	Exclude []string
	// Home, when set, is written as ~ in generated paths
	Home      string
	Describer Describer
	Logger    *zerolog.Logger
}

// Repo is one generated [[repo]] entry
type Repo struct {
	ID     string `toml:"id"`
	URL    string `toml:"url"`
	Path   string `toml:"path"`
	Branch string `toml:"branch,omitempty"`
}

// Document is the generated configuration file
type Document struct {
	Repos []Repo `toml:"repo"`
}

// Discover walks opts.Search for git working copies and describes each one.
// Working copies without an origin remote are logged and left out. Nested
// repositories are not searched.
func Discover(ctx context.Context, opts Options) (*Document, error) {
	logger := logging.GetLogger("generate")
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	describer := opts.Describer
	if describer == nil {
		describer = gitsync.New(gitsync.Options{Logger: &logger})
	}
	if len(opts.Search) == 0 {
		return nil, errors.New(errors.ErrInvalidInput, "no search paths given")
	}

	excluded := make(map[string]bool, len(opts.Exclude))
	for _, name := range opts.Exclude {
		excluded[name] = true
	}

	var found []string
	for _, root := range opts.Search {
		abs, err := paths.Expand(root)
		if err != nil {
			return nil, err
		}
		dirs, err := findWorkingCopies(abs, excluded)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot search %s", abs)
		}
		found = append(found, dirs...)
	}
	sort.Strings(found)

	doc := &Document{}
	seen := make(map[string]bool)
	ids := make(map[string]bool)
	for _, dir := range found {
		if seen[dir] {
			continue
		}
		seen[dir] = true

		desc, err := describer.Describe(ctx, dir, gitsync.DefaultRemote)
		if err != nil {
			logger.Warn().Err(err).Str("path", dir).Msg("Skipping working copy without remote")
			continue
		}
		doc.Repos = append(doc.Repos, Repo{
			ID:     uniqueID(filepath.Base(dir), ids),
			URL:    desc.URL,
			Path:   shorten(dir, opts.Home),
			Branch: desc.Branch,
		})
	}

	logger.Info().Int("repos", len(doc.Repos)).Msg("Discovered working copies")
	return doc, nil
}

// findWorkingCopies returns every directory under root holding a .git entry
func findWorkingCopies(root string, excluded map[string]bool) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path != root && os.IsPermission(err) {
				return fs.SkipDir
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && excluded[d.Name()] {
			return fs.SkipDir
		}
		if d.Name() == ".git" {
			return fs.SkipDir
		}
		if _, err := os.Lstat(filepath.Join(path, ".git")); err == nil {
			dirs = append(dirs, path)
			return fs.SkipDir
		}
		return nil
	})
	return dirs, err
}

func uniqueID(base string, taken map[string]bool) string {
	id := strings.TrimSuffix(strings.TrimPrefix(base, "."), ".git")
	if id == "" {
		id = "repo"
	}
	candidate := id
	for n := 2; taken[candidate]; n++ {
		candidate = fmt.Sprintf("%s-%d", id, n)
	}
	taken[candidate] = true
	return candidate
}

func shorten(path, home string) string {
	if home == "" || !paths.IsWithin(home, path) {
		return path
	}
	rel, err := filepath.Rel(home, path)
	if err != nil || rel == "." {
		return path
	}
	return "~/" + filepath.ToSlash(rel)
}

// Write encodes doc as TOML after the generated-file prelude
func Write(w io.Writer, doc *Document) error {
	data, err := toml.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to encode repositories")
	}
	if _, err := io.WriteString(w, Prelude+"\n"); err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
