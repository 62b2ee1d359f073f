package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/dotup/pkg/errors"
	"github.com/arthur-debert/dotup/pkg/logging"
	"github.com/arthur-debert/dotup/pkg/paths"
	"github.com/arthur-debert/dotup/pkg/types"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks environment variables that override top-level options
const EnvPrefix = "DOTUP_"

var envKeys = map[string]bool{
	"fail_fast": true,
	"jobs":      true,
}

// Load reads the configuration file at path, applies environment overrides,
// expands every path and validates the result. Every error it returns is a
// ConfigError.
func Load(path string) (*types.Config, error) {
	logger := logging.GetLogger("config")

	parser, err := parserFor(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "cannot read configuration %s", path)
	}

	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load defaults")
	}

	// 2. File
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigParse, "failed to parse %s", path)
	}

	// 3. Env vars
	err = k.Load(env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		if !envKeys[key] || value == "" {
			return "", nil
		}
		return key, value
	}), nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load env vars")
	}

	// 4. Unmarshal
	var raw File
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &raw,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &raw, unmarshalConf); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigParse, "failed to decode %s", path)
	}

	// 5. Resolve
	cfg, err := raw.Resolve()
	if err != nil {
		return nil, err
	}
	if err := Validate(*cfg); err != nil {
		return nil, err
	}

	logger.Debug().
		Str("path", path).
		Int("tasks", len(cfg.Tasks)).
		Int("jobs", cfg.Jobs).
		Bool("fail_fast", cfg.FailFast).
		Msg("Configuration loaded")
	return cfg, nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Parser(), nil
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	}
	return nil, errors.Newf(errors.ErrConfigLoad, "unsupported configuration format %q (want .toml, .yaml or .yml)", filepath.Ext(path))
}

// Resolve turns the file shape into tasks, expanding every path. Repos come
// first, then links, then commands, each in file order.
func (f File) Resolve() (*types.Config, error) {
	cfg := &types.Config{FailFast: f.FailFast, Jobs: f.Jobs}

	for _, r := range f.Repos {
		spec := &types.RepoSpec{URL: strings.TrimSpace(r.URL), Branch: r.Branch, Remote: r.Remote}
		if r.Path != "" {
			p, err := expand(r.ID, "path", r.Path)
			if err != nil {
				return nil, err
			}
			spec.Path = p
		}
		cfg.Tasks = append(cfg.Tasks, types.TaskSpec{ID: r.ID, Kind: types.KindGitRepo, Needs: r.Needs, Repo: spec})
	}

	for _, l := range f.Links {
		spec, err := l.resolve()
		if err != nil {
			return nil, err
		}
		cfg.Tasks = append(cfg.Tasks, types.TaskSpec{ID: l.ID, Kind: types.KindLinkGroup, Needs: l.Needs, Links: spec})
	}

	for _, c := range f.Commands {
		spec := &types.CommandSpec{Run: c.Run, Shell: c.Shell, Env: c.Env, Timeout: c.Timeout}
		if c.Dir != "" {
			dir, err := expand(c.ID, "dir", c.Dir)
			if err != nil {
				return nil, err
			}
			spec.Dir = dir
		}
		cfg.Tasks = append(cfg.Tasks, types.TaskSpec{ID: c.ID, Kind: types.KindCommand, Needs: c.Needs, Command: spec})
	}

	return cfg, nil
}

func (l Link) resolve() (*types.LinkGroupSpec, error) {
	spec := &types.LinkGroupSpec{
		Conflict: types.ConflictPolicy(l.Conflict),
		Ignore:   l.Ignore,
	}

	var err error
	if l.SourceRoot != "" {
		if spec.SourceRoot, err = expand(l.ID, "source_root", l.SourceRoot); err != nil {
			return nil, err
		}
	}
	if l.TargetDir != "" {
		if spec.TargetDir, err = expandRooted(l.ID, "target_dir", l.TargetDir); err != nil {
			return nil, err
		}
	}
	if l.BackupDir != "" {
		if spec.BackupDir, err = expandRooted(l.ID, "backup_dir", l.BackupDir); err != nil {
			return nil, err
		}
	}

	for _, f := range l.Files {
		pair := types.LinkPair{}
		switch {
		case f.Source == "":
			return nil, errors.Newf(errors.ErrConfigInvalid, "link %q: file entry has no source", l.ID)
		case isRooted(f.Source):
			if pair.Source, err = expand(l.ID, "source", f.Source); err != nil {
				return nil, err
			}
		case spec.SourceRoot == "":
			return nil, errors.Newf(errors.ErrConfigInvalid, "link %q: relative source %q needs source_root", l.ID, f.Source)
		default:
			pair.Source = filepath.Join(spec.SourceRoot, f.Source)
		}

		if f.Target == "" {
			return nil, errors.Newf(errors.ErrConfigInvalid, "link %q: file entry %q has no target", l.ID, f.Source)
		}
		if pair.Target, err = expandRooted(l.ID, "target", f.Target); err != nil {
			return nil, err
		}
		spec.Files = append(spec.Files, pair)
	}

	return spec, nil
}

// isRooted reports whether raw names an absolute location once `~` and
// environment references are expanded
func isRooted(raw string) bool {
	if raw == "~" || strings.HasPrefix(raw, "~/") {
		return true
	}
	return filepath.IsAbs(os.ExpandEnv(raw))
}

func expand(id, field, raw string) (string, error) {
	p, err := paths.Expand(raw)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrConfigInvalid, "task %q: cannot expand %s %q", id, field, raw)
	}
	return p, nil
}

// expandRooted expands a path that must not depend on the working directory
func expandRooted(id, field, raw string) (string, error) {
	if !isRooted(raw) {
		return "", errors.Newf(errors.ErrConfigInvalid, "task %q: %s %q must be absolute or start with ~", id, field, raw)
	}
	return expand(id, field, raw)
}
