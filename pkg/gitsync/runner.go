package gitsync

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/arthur-debert/dotup/pkg/logging"
	"github.com/rs/zerolog"
)

// Runner executes git with args inside dir and returns trimmed stdout
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// RunError describes a git invocation that exited unsuccessfully
type RunError struct {
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *RunError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("git %s: exit %d: %s", strings.Join(e.Args, " "), e.ExitCode, msg)
}

func (e *RunError) Unwrap() error { return e.Err }

// ExitCode returns the exit status carried by err, or -1 when err does not
// describe a finished git process.
func ExitCode(err error) int {
	var runErr *RunError
	if stderrors.As(err, &runErr) {
		return runErr.ExitCode
	}
	return -1
}

// ExecRunner runs the git binary found on PATH
type ExecRunner struct {
	Binary string
	logger zerolog.Logger
}

// NewExecRunner creates a runner for the system git
func NewExecRunner() *ExecRunner {
	return &ExecRunner{
		Binary: "git",
		logger: logging.GetLogger("gitsync.runner"),
	}
}

// Run executes git. Prompts are disabled so a missing credential fails the
// command instead of blocking the run.
func (r *ExecRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	logging.LogCommand(r.logger, r.Binary, args)

	cmd := exec.CommandContext(ctx, r.Binary, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		code := -1
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return "", &RunError{Args: args, ExitCode: code, Stderr: stderr.String(), Err: err}
	}

	return strings.TrimSpace(stdout.String()), nil
}
