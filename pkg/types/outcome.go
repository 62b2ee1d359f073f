package types

// LinkAction is the kind of change the planner decided for a target
type LinkAction string

const (
	ActionCreate   LinkAction = "create"
	ActionNoOp     LinkAction = "noop"
	ActionReplace  LinkAction = "replace"
	ActionConflict LinkAction = "conflict"
	// ActionInvalid marks a pair that can never be applied (missing source)
	ActionInvalid LinkAction = "invalid"
)

// PlannedAction is the planner's decision for a single target path
type PlannedAction struct {
	Action LinkAction `json:"action" yaml:"action"`
	Source string     `json:"source" yaml:"source"`
	Target string     `json:"target" yaml:"target"`
	// Existing describes what currently occupies Target
	Existing string `json:"existing,omitempty" yaml:"existing,omitempty"`
	// Blocker is set when a parent of Target, not Target itself, is in the way
	Blocker string         `json:"blocker,omitempty" yaml:"blocker,omitempty"`
	Policy  ConflictPolicy `json:"policy,omitempty" yaml:"policy,omitempty"`
	Reason  string         `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// LinkResult is the closed set of per-target outcomes
type LinkResult string

const (
	LinkCreated         LinkResult = "created"
	LinkAlreadyCorrect  LinkResult = "already_correct"
	LinkReplaced        LinkResult = "replaced"
	LinkConflictSkipped LinkResult = "conflict_skipped"
	LinkFailed          LinkResult = "failed"
)

// LinkOutcome is produced once per mapping per run and never mutated
type LinkOutcome struct {
	Source string     `json:"source" yaml:"source"`
	Target string     `json:"target" yaml:"target"`
	Result LinkResult `json:"result" yaml:"result"`
	Reason string     `json:"reason,omitempty" yaml:"reason,omitempty"`
	Backup string     `json:"backup,omitempty" yaml:"backup,omitempty"`
}

// RepoResult is the closed set of git synchronization outcomes
type RepoResult string

const (
	RepoCloned          RepoResult = "cloned"
	RepoUpdated         RepoResult = "updated"
	RepoAlreadyUpToDate RepoResult = "already_up_to_date"
	RepoConflictSkipped RepoResult = "conflict_skipped"
	RepoFailed          RepoResult = "failed"
)

// RepoOutcome is the result of one GitSyncer.Sync call
type RepoOutcome struct {
	Result RepoResult `json:"result" yaml:"result"`
	Path   string     `json:"path" yaml:"path"`
	Before string     `json:"before,omitempty" yaml:"before,omitempty"`
	After  string     `json:"after,omitempty" yaml:"after,omitempty"`
	Reason string     `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// CommandOutcome is the result of running one command task
type CommandOutcome struct {
	ExitCode int    `json:"exit_code" yaml:"exit_code"`
	Output   string `json:"output,omitempty" yaml:"output,omitempty"`
	Reason   string `json:"reason,omitempty" yaml:"reason,omitempty"`
	Failed   bool   `json:"failed" yaml:"failed"`
}
