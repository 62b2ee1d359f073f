package cli

// Short messages (one-liners)
const (
	MsgRootShort = "Keep a machine's dotfiles, repositories and setup commands in sync"
	MsgRootLong  = `dotup reads a declarative configuration of git repositories, symlink groups
and setup commands, orders them by their declared dependencies and brings the
machine in line with it. Independent tasks run concurrently; a failed task
skips its dependents and leaves unrelated work alone.`

	MsgRunShort   = "Apply the configuration"
	MsgRunExample = `  dotup run                          # default config, styled report
  dotup run --config ./dotup.toml -j 8
  dotup run --fail-fast --format json`

	MsgPlanShort = "Show what run would do to symlinks without changing anything"

	MsgGenerateShort    = "Generate configuration from existing state"
	MsgGenerateGitShort = "Write a [[repo]] entry for every git working copy found"
	MsgGenerateGitExample = `  dotup generate git --search ~/code --exclude node_modules
  dotup generate git --search ~/code --search ~/src --out repos.toml`

	MsgVersionShort = "Print version information"
	MsgVersionLong  = "Print detailed version information including commit hash and build date"

	MsgCompletionShort = "Generate shell completion script"

	// Version output
	MsgVersionFormat = "dotup version %s\n"
	MsgCommitFormat  = "  commit: %s\n"
	MsgBuiltFormat   = "  built:  %s\n"

	// Flag descriptions
	MsgFlagVerbose  = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagConfig   = "Configuration file (default $DOTUP_CONFIG or ~/.config/dotup/dotup.toml)"
	MsgFlagFormat   = "Output format: auto, term, text, json or yaml"
	MsgFlagJobs     = "Maximum number of tasks running at once (overrides the configuration)"
	MsgFlagFailFast = "Stop dispatching new tasks after the first failure"
	MsgFlagSearch   = "Directory to search for working copies (repeatable)"
	MsgFlagExclude  = "Directory name never searched (repeatable)"
	MsgFlagOut      = "Write to this file instead of stdout"

	// Error messages
	MsgErrUnknownShell = "unknown shell %q (supported: bash, zsh, fish, powershell)"
)
