// Package types defines the core types and interfaces shared by the dotup
// convergence engine: task specifications (a tagged variant over git repo,
// link group and command kinds), per-item outcomes, the run report and the
// filesystem interface the link engine mutates disk through.
package types
