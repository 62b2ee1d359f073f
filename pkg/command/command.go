// Package command runs command tasks through a shell.
package command

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/arthur-debert/dotup/pkg/errors"
	"github.com/arthur-debert/dotup/pkg/logging"
	"github.com/arthur-debert/dotup/pkg/types"
	"github.com/rs/zerolog"
)

const (
	// DefaultShell runs commands when a task names no shell
	DefaultShell = "sh"
	// MaxOutput is how many trailing bytes of output a report keeps
	MaxOutput = 4096

	waitDelay = 2 * time.Second
)

// Options contains configuration for the runner
type Options struct {
	Logger *zerolog.Logger
	// Environ is the base environment; defaults to os.Environ
	Environ func() []string
}

// Runner executes CommandSpecs
type Runner struct {
	logger  zerolog.Logger
	environ func() []string
}

// New creates a new command runner
func New(opts Options) *Runner {
	logger := logging.GetLogger("command")
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	environ := opts.Environ
	if environ == nil {
		environ = os.Environ
	}
	return &Runner{logger: logger, environ: environ}
}

// Run executes spec and reports how it ended. A non-zero exit, a start
// failure or a timeout all produce a failed outcome.
func (r *Runner) Run(ctx context.Context, spec types.CommandSpec) types.CommandOutcome {
	shell := spec.Shell
	if shell == "" {
		shell = DefaultShell
	}

	runCtx := ctx
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	args := []string{"-c", spec.Run}
	logging.LogCommand(r.logger, shell, args)

	cmd := exec.CommandContext(runCtx, shell, args...)
	cmd.Dir = spec.Dir
	cmd.Env = r.env(spec.Env)
	cmd.WaitDelay = waitDelay

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	outcome := types.CommandOutcome{Output: tail(output.String(), MaxOutput)}

	if spec.Timeout > 0 && stderrors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		outcome.ExitCode = -1
		outcome.Failed = true
		outcome.Reason = fmt.Sprintf("timed out after %s", spec.Timeout)
		r.logger.Warn().Dur("timeout", spec.Timeout).Msg("Command timed out")
		return outcome
	}

	if err != nil {
		outcome.Failed = true
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			outcome.ExitCode = exitErr.ExitCode()
			outcome.Reason = fmt.Sprintf("exit status %d", outcome.ExitCode)
		} else {
			outcome.ExitCode = -1
			outcome.Reason = errors.Wrap(err, errors.ErrCommandFailed, "cannot run command").Error()
		}
		r.logger.Warn().Int("exit_code", outcome.ExitCode).Str("reason", outcome.Reason).Msg("Command failed")
		return outcome
	}

	r.logger.Debug().Msg("Command succeeded")
	return outcome
}

// env returns the base environment with extra applied in key order
func (r *Runner) env(extra map[string]string) []string {
	env := r.environ()
	if len(extra) == 0 {
		return env
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}
	return env
}

func tail(s string, n int) string {
	s = strings.TrimRight(s, "\n")
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
