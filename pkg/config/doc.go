// Package config loads dotup configuration files and validates the
// resulting task set.
//
// Files are TOML or YAML, chosen by extension. Top-level options can be
// overridden from the environment (DOTUP_FAIL_FAST, DOTUP_JOBS). Every path
// is expanded at load time so the rest of the program only sees absolute
// paths.
package config
