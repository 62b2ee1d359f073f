// Package paths provides path handling for dotup.
//
// It resolves the XDG directories dotup reads and writes (configuration,
// state/log), performs shell-style expansion of `~` and environment
// references in configured paths, and owns the naming convention for
// backups of displaced files.
package paths
