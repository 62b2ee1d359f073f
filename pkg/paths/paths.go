package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/arthur-debert/dotup/pkg/errors"
)

// Environment variable names
const (
	// EnvConfig points at the configuration file to load
	EnvConfig = "DOTUP_CONFIG"

	// EnvHome is the standard home directory variable
	EnvHome = "HOME"

	// EnvStateHome is the XDG state directory variable
	EnvStateHome = "XDG_STATE_HOME"

	// EnvConfigHome is the XDG config directory variable
	EnvConfigHome = "XDG_CONFIG_HOME"
)

const (
	// AppDirName is the directory name for dotup-specific files
	AppDirName = "dotup"

	// ConfigFileName is the default configuration file name
	ConfigFileName = "dotup.toml"

	// BackupInfix separates the original name from the timestamp in backups
	BackupInfix = ".bak."

	// BackupTimeFormat is the timestamp layout used in backup names
	BackupTimeFormat = "20060102-150405"
)

// HomeDir returns the user's home directory.
// It first tries os.UserHomeDir(), then falls back to the HOME environment variable.
func HomeDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err == nil && homeDir != "" {
		return homeDir, nil
	}

	homeDir = os.Getenv(EnvHome)
	if homeDir != "" {
		return homeDir, nil
	}

	return "", errors.New(errors.ErrFileAccess, "unable to determine home directory: neither os.UserHomeDir() nor HOME environment variable are available")
}

// Expand resolves a leading `~`, `$VAR` and `${VAR}` references and returns
// an absolute, cleaned path. Referencing an unset variable is an error rather
// than silently expanding to the empty string.
func Expand(path string) (string, error) {
	if path == "" {
		return "", errors.New(errors.ErrInvalidInput, "cannot expand empty path")
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := HomeDir()
		if err != nil {
			return "", errors.Wrapf(err, errors.ErrFileAccess, "cannot expand ~ in %q", path)
		}
		path = home + path[1:]
	}

	var missing []string
	path = os.Expand(path, func(name string) string {
		value, ok := os.LookupEnv(name)
		if !ok {
			missing = append(missing, name)
		}
		return value
	})
	if len(missing) > 0 {
		return "", errors.Newf(errors.ErrInvalidInput, "environment variable %s is not set", strings.Join(missing, ", ")).
			WithDetail("path", path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrFileAccess, "failed to get absolute path for %s", path)
	}
	return abs, nil
}

// StateDir returns the dotup state directory, honoring XDG_STATE_HOME when
// it is set at call time.
func StateDir() string {
	if stateHome := os.Getenv(EnvStateHome); stateHome != "" {
		return filepath.Join(stateHome, AppDirName)
	}
	return filepath.Join(xdg.StateHome, AppDirName)
}

// ConfigDir returns the dotup configuration directory
func ConfigDir() string {
	if configHome := os.Getenv(EnvConfigHome); configHome != "" {
		return filepath.Join(configHome, AppDirName)
	}
	return filepath.Join(xdg.ConfigHome, AppDirName)
}

// DefaultConfigPath returns $DOTUP_CONFIG or the default file in ConfigDir
func DefaultConfigPath() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	return filepath.Join(ConfigDir(), ConfigFileName)
}

// BackupName returns `<original-name>.bak.<timestamp>` for path.
func BackupName(path string, at time.Time) string {
	return fmt.Sprintf("%s%s%s", filepath.Base(path), BackupInfix, at.Format(BackupTimeFormat))
}

// IsWithin reports whether path is root itself or lies beneath it. Both
// arguments are expected to be absolute and clean.
func IsWithin(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
