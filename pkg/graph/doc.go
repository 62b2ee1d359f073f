// Package graph builds the dependency graph of setup tasks.
//
// Nodes live in an arena indexed by int in declaration order; edges are
// stored as index slices in both directions. A Graph is immutable after
// Build and safe for concurrent reads.
package graph
