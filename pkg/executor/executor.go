package executor

import (
	"context"
	"time"

	"github.com/arthur-debert/dotup/pkg/command"
	"github.com/arthur-debert/dotup/pkg/config"
	"github.com/arthur-debert/dotup/pkg/filesystem"
	"github.com/arthur-debert/dotup/pkg/gitsync"
	"github.com/arthur-debert/dotup/pkg/graph"
	"github.com/arthur-debert/dotup/pkg/links"
	"github.com/arthur-debert/dotup/pkg/logging"
	"github.com/arthur-debert/dotup/pkg/types"
	"github.com/rs/zerolog"
)

// DefaultJobs bounds the worker pool when a Config leaves Jobs at zero
const DefaultJobs = 4

// RepoSyncer converges git_repo tasks
type RepoSyncer interface {
	Sync(ctx context.Context, spec types.RepoSpec) types.RepoOutcome
}

// LinkRunner converges link_group tasks
type LinkRunner interface {
	Run(taskID string, spec types.LinkGroupSpec) ([]types.LinkOutcome, error)
}

// CommandRunner runs command tasks
type CommandRunner interface {
	Run(ctx context.Context, spec types.CommandSpec) types.CommandOutcome
}

// Options contains configuration for the executor
type Options struct {
	Repos    RepoSyncer
	Commands CommandRunner
	// Links is used for every run when set. Otherwise each run gets its own
	// links.Group, with a fresh target claim registry, over FS.
	Links LinkRunner
	// Filesystem operations interface for testing
	FS     types.FS
	Sink   EventSink
	Logger *zerolog.Logger
	Now    func() time.Time
}

// Executor runs configurations
type Executor struct {
	repos    RepoSyncer
	commands CommandRunner
	links    LinkRunner
	fs       types.FS
	sink     EventSink
	logger   zerolog.Logger
	now      func() time.Time
}

// New creates a new executor instance
func New(opts Options) *Executor {
	logger := logging.GetLogger("executor")
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	fs := opts.FS
	if fs == nil {
		fs = filesystem.NewOS()
	}

	repos := opts.Repos
	if repos == nil {
		repos = gitsync.New(gitsync.Options{})
	}

	commands := opts.Commands
	if commands == nil {
		commands = command.New(command.Options{})
	}

	sink := opts.Sink
	if sink == nil {
		sink = NewLogSink(logger)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Executor{
		repos:    repos,
		commands: commands,
		links:    opts.Links,
		fs:       fs,
		sink:     sink,
		logger:   logger,
		now:      now,
	}
}

// Run validates cfg and executes every task. A ConfigError is returned
// before anything runs; otherwise the error is nil and every task appears
// in the report with a terminal status. Cancelling ctx stops dispatch, lets
// in-flight tasks finish, and marks the report Aborted.
func (e *Executor) Run(ctx context.Context, cfg types.Config) (*types.RunReport, error) {
	if err := config.Validate(cfg); err != nil {
		e.logger.Error().Err(err).Msg("Configuration rejected")
		return nil, err
	}
	g, err := graph.Build(cfg.Tasks)
	if err != nil {
		return nil, err
	}

	jobs := cfg.Jobs
	if jobs <= 0 {
		jobs = DefaultJobs
	}

	linkRunner := e.links
	if linkRunner == nil {
		linkRunner = links.NewGroup(links.GroupOptions{FS: e.fs, Now: e.now})
	}

	e.logger.Info().Int("tasks", g.Len()).Int("jobs", jobs).Bool("fail_fast", cfg.FailFast).Msg("Run starting")

	r := newRun(e, g, linkRunner, jobs, cfg.FailFast)
	report := r.execute(ctx)

	counts := report.Counts()
	e.logger.Info().
		Int("succeeded", counts[types.StatusSucceeded]).
		Int("failed", counts[types.StatusFailed]).
		Int("skipped", counts[types.StatusSkipped]).
		Bool("aborted", report.Aborted).
		Dur("duration", report.FinishedAt.Sub(report.StartedAt)).
		Msg("Run finished")
	return report, nil
}
