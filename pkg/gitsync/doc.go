// Package gitsync converges local git working copies onto their remotes.
//
// A Syncer clones missing repositories and fast-forwards existing ones. It
// never merges, rebases or resets: a working copy with local modifications
// or diverged history is reported as a conflict and left exactly as found.
// All git access goes through a Runner so tests can script git's answers.
package gitsync
