package types

import "time"

// TaskKind is the closed set of task kinds a configuration can declare
type TaskKind string

const (
	KindGitRepo   TaskKind = "git_repo"
	KindLinkGroup TaskKind = "link_group"
	KindCommand   TaskKind = "command"
)

// ConflictPolicy decides what happens when a link target is occupied by
// content this run does not manage.
type ConflictPolicy string

const (
	// ConflictSkip leaves the existing content untouched
	ConflictSkip ConflictPolicy = "skip"
	// ConflictBackup moves the existing content aside before linking
	ConflictBackup ConflictPolicy = "backup"
	// ConflictFail records the link as failed
	ConflictFail ConflictPolicy = "fail"
)

// Valid reports whether p is one of the known policies
func (p ConflictPolicy) Valid() bool {
	switch p {
	case ConflictSkip, ConflictBackup, ConflictFail:
		return true
	}
	return false
}

// TaskSpec is one node of the task graph. Exactly one of Repo, Links or
// Command is set, matching Kind.
type TaskSpec struct {
	ID      string
	Kind    TaskKind
	Needs   []string
	Repo    *RepoSpec
	Links   *LinkGroupSpec
	Command *CommandSpec
}

// RepoSpec describes one git working copy to converge
type RepoSpec struct {
	URL    string
	Path   string
	Branch string
	Remote string
}

// LinkPair maps one source path to one absolute target path
type LinkPair struct {
	Source string
	Target string
}

// LinkGroupSpec is a LinkMapping plus the policy used to resolve conflicts.
// When TargetDir is set the mapping is extended, at dispatch time, with every
// file found under SourceRoot.
type LinkGroupSpec struct {
	SourceRoot string
	TargetDir  string
	Ignore     []string
	Files      []LinkPair
	Conflict   ConflictPolicy
	BackupDir  string
}

// CommandSpec is an arbitrary setup step run through a shell
type CommandSpec struct {
	Run     string
	Shell   string
	Dir     string
	Env     map[string]string
	Timeout time.Duration
}

// Config is the fully parsed configuration handed to the executor
type Config struct {
	Tasks    []TaskSpec
	FailFast bool
	Jobs     int
}
