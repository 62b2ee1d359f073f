package types

import "time"

// TaskStatus is the executor state of a task
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusRunning   TaskStatus = "running"
	StatusSucceeded TaskStatus = "succeeded"
	StatusFailed    TaskStatus = "failed"
	StatusSkipped   TaskStatus = "skipped"
)

// IsTerminal reports whether the status is final
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusSkipped:
		return true
	}
	return false
}

// TaskResult is one RunReport entry. Exactly one of Repo, Links or Command
// is populated for dispatched tasks; none for skipped ones.
type TaskResult struct {
	ID       string          `json:"id" yaml:"id"`
	Kind     TaskKind        `json:"kind" yaml:"kind"`
	Status   TaskStatus      `json:"status" yaml:"status"`
	Reason   string          `json:"reason,omitempty" yaml:"reason,omitempty"`
	Duration time.Duration   `json:"duration_ns" yaml:"duration"`
	Repo     *RepoOutcome    `json:"repo,omitempty" yaml:"repo,omitempty"`
	Links    []LinkOutcome   `json:"links,omitempty" yaml:"links,omitempty"`
	Command  *CommandOutcome `json:"command,omitempty" yaml:"command,omitempty"`
}

// RunReport lists every task in completion order
type RunReport struct {
	StartedAt  time.Time    `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time    `json:"finished_at" yaml:"finished_at"`
	Aborted    bool         `json:"aborted" yaml:"aborted"`
	Tasks      []TaskResult `json:"tasks" yaml:"tasks"`
}

// Find returns the entry for id
func (r *RunReport) Find(id string) (TaskResult, bool) {
	for _, t := range r.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return TaskResult{}, false
}

// Counts tallies entries by status
func (r *RunReport) Counts() map[TaskStatus]int {
	counts := make(map[TaskStatus]int)
	for _, t := range r.Tasks {
		counts[t.Status]++
	}
	return counts
}

// HasFailures reports whether any task ended Failed
func (r *RunReport) HasFailures() bool {
	return r.Counts()[StatusFailed] > 0
}

// Event is emitted for every task state transition
type Event struct {
	Time   time.Time
	TaskID string
	Kind   TaskKind
	From   TaskStatus
	To     TaskStatus
	Reason string
}
