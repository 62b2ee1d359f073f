// Package testutil provides fixtures shared by dotup's package tests.
//
// Key components:
//   - MemoryFS: in-memory types.FS with real symlink resolution, used to
//     prove the link planner never writes
//   - Tree helpers: build file trees under t.TempDir()
//   - Git fixtures: a bare "remote" plus a seed working copy that pushes to it
//
// Git fixtures skip the test when no git binary is on PATH.
package testutil
