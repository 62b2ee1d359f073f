// Package links converges symlinks from a managed source tree into target
// locations.
//
// Work is split in two phases. The Planner inspects the filesystem and
// decides one PlannedAction per target without mutating anything. The
// Applier executes those actions, installing every link through a temporary
// name followed by a rename so a target is never observed half-written.
// Group ties both together for one link_group task, including directory
// walking and run-wide target claims.
package links
