// pkg/executor/executor_test.go
// TEST TYPE: Business Logic
// DEPENDENCIES: fake handlers, MemoryFS
// PURPOSE: Test scheduling, failure propagation, fail-fast and abort

package executor

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arthur-debert/dotup/pkg/errors"
	"github.com/arthur-debert/dotup/pkg/testutil"
	"github.com/arthur-debert/dotup/pkg/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type repoFunc func(ctx context.Context, spec types.RepoSpec) types.RepoOutcome

func (f repoFunc) Sync(ctx context.Context, spec types.RepoSpec) types.RepoOutcome { return f(ctx, spec) }

type commandFunc func(ctx context.Context, spec types.CommandSpec) types.CommandOutcome

func (f commandFunc) Run(ctx context.Context, spec types.CommandSpec) types.CommandOutcome {
	return f(ctx, spec)
}

type mockRepos struct {
	mock.Mock
}

func (m *mockRepos) Sync(ctx context.Context, spec types.RepoSpec) types.RepoOutcome {
	args := m.Called(ctx, spec)
	return args.Get(0).(types.RepoOutcome)
}

type mockCommands struct {
	mock.Mock
}

func (m *mockCommands) Run(ctx context.Context, spec types.CommandSpec) types.CommandOutcome {
	args := m.Called(ctx, spec)
	return args.Get(0).(types.CommandOutcome)
}

type eventLog struct {
	mu     sync.Mutex
	events []types.Event
}

func (l *eventLog) Emit(e types.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) forTask(id string) []types.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []types.Event
	for _, e := range l.events {
		if e.TaskID == id {
			out = append(out, e)
		}
	}
	return out
}

// position returns the index of the first event for id reaching to
func (l *eventLog) position(id string, to types.TaskStatus) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, e := range l.events {
		if e.TaskID == id && e.To == to {
			return i
		}
	}
	return -1
}

func quiet() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func repo(id string, needs ...string) types.TaskSpec {
	return types.TaskSpec{ID: id, Kind: types.KindGitRepo, Needs: needs, Repo: &types.RepoSpec{URL: "u-" + id, Path: "/src/" + id}}
}

func cmd(id string, needs ...string) types.TaskSpec {
	return types.TaskSpec{ID: id, Kind: types.KindCommand, Needs: needs, Command: &types.CommandSpec{Run: id}}
}

func okCommands() commandFunc {
	return func(context.Context, types.CommandSpec) types.CommandOutcome { return types.CommandOutcome{} }
}

func failing(ids ...string) commandFunc {
	set := make(map[string]bool)
	for _, id := range ids {
		set[id] = true
	}
	return func(_ context.Context, spec types.CommandSpec) types.CommandOutcome {
		if set[spec.Run] {
			return types.CommandOutcome{Failed: true, ExitCode: 1, Reason: "exit status 1"}
		}
		return types.CommandOutcome{}
	}
}

func status(t *testing.T, report *types.RunReport, id string) types.TaskResult {
	t.Helper()
	res, ok := report.Find(id)
	require.True(t, ok, "task %s missing from report", id)
	return res
}

func TestRun_CycleRejectedBeforeAnyWork(t *testing.T) {
	repos := &mockRepos{}
	commands := &mockCommands{}
	events := &eventLog{}
	e := New(Options{Repos: repos, Commands: commands, Sink: events, Logger: quiet()})

	report, err := e.Run(context.Background(), types.Config{Tasks: []types.TaskSpec{repo("a", "b"), repo("b", "a"), cmd("c")}})

	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigCycle))
	assert.Empty(t, events.events)
	repos.AssertNotCalled(t, "Sync", mock.Anything, mock.Anything)
	commands.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestRun_FailurePropagation(t *testing.T) {
	repos := repoFunc(func(_ context.Context, spec types.RepoSpec) types.RepoOutcome {
		return types.RepoOutcome{Result: types.RepoFailed, Path: spec.Path, Reason: "network unreachable"}
	})
	commands := &mockCommands{}
	commands.On("Run", mock.Anything, types.CommandSpec{Run: "independent"}).Return(types.CommandOutcome{}).Once()
	e := New(Options{Repos: repos, Commands: commands, Logger: quiet()})

	report, err := e.Run(context.Background(), types.Config{Tasks: []types.TaskSpec{
		repo("dotfiles"),
		cmd("install", "dotfiles"),
		cmd("after-install", "install"),
		cmd("independent"),
	}})
	require.NoError(t, err)

	assert.Equal(t, types.StatusFailed, status(t, report, "dotfiles").Status)
	assert.Equal(t, "network unreachable", status(t, report, "dotfiles").Reason)
	assert.Equal(t, types.StatusSkipped, status(t, report, "install").Status)
	assert.Equal(t, "prerequisite dotfiles failed", status(t, report, "install").Reason)
	assert.Equal(t, types.StatusSkipped, status(t, report, "after-install").Status)
	assert.Equal(t, "prerequisite install skipped", status(t, report, "after-install").Reason)
	assert.Equal(t, types.StatusSucceeded, status(t, report, "independent").Status)
	assert.Len(t, report.Tasks, 4)
	assert.True(t, report.HasFailures())
	assert.False(t, report.Aborted)
	commands.AssertExpectations(t)
}

func TestRun_ConflictSkippedRepoDoesNotBlockDependents(t *testing.T) {
	repos := repoFunc(func(_ context.Context, spec types.RepoSpec) types.RepoOutcome {
		return types.RepoOutcome{Result: types.RepoConflictSkipped, Path: spec.Path, Reason: "working tree has local modifications"}
	})
	e := New(Options{Repos: repos, Commands: okCommands(), Logger: quiet()})

	report, err := e.Run(context.Background(), types.Config{Tasks: []types.TaskSpec{repo("dotfiles"), cmd("install", "dotfiles")}})
	require.NoError(t, err)

	res := status(t, report, "dotfiles")
	assert.Equal(t, types.StatusSucceeded, res.Status)
	assert.Equal(t, types.RepoConflictSkipped, res.Repo.Result)
	assert.Contains(t, res.Reason, "local modifications")
	assert.Equal(t, types.StatusSucceeded, status(t, report, "install").Status)
	assert.False(t, report.HasFailures())
}

func TestRun_FailFastStopsDispatch(t *testing.T) {
	e := New(Options{Commands: failing("first"), Logger: quiet()})

	report, err := e.Run(context.Background(), types.Config{
		FailFast: true,
		Jobs:     1,
		Tasks:    []types.TaskSpec{cmd("first"), cmd("second"), cmd("third", "second")},
	})
	require.NoError(t, err)

	assert.Equal(t, types.StatusFailed, status(t, report, "first").Status)
	assert.Equal(t, types.StatusSkipped, status(t, report, "second").Status)
	assert.Equal(t, reasonFailFast, status(t, report, "second").Reason)
	assert.Equal(t, types.StatusSkipped, status(t, report, "third").Status)
	assert.False(t, report.Aborted)
}

func TestRun_WithoutFailFastSiblingsContinue(t *testing.T) {
	e := New(Options{Commands: failing("first"), Logger: quiet()})

	report, err := e.Run(context.Background(), types.Config{
		Jobs:  1,
		Tasks: []types.TaskSpec{cmd("first"), cmd("second"), cmd("third", "second")},
	})
	require.NoError(t, err)

	assert.Equal(t, types.StatusFailed, status(t, report, "first").Status)
	assert.Equal(t, types.StatusSucceeded, status(t, report, "second").Status)
	assert.Equal(t, types.StatusSucceeded, status(t, report, "third").Status)
}

func TestRun_AbortLetsInFlightTasksFinish(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var handlerCtxErr atomic.Value
	commands := commandFunc(func(ctx context.Context, spec types.CommandSpec) types.CommandOutcome {
		if spec.Run == "slow" {
			close(started)
			<-release
			handlerCtxErr.Store(ctx.Err() == nil)
		}
		return types.CommandOutcome{}
	})
	e := New(Options{Commands: commands, Logger: quiet()})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var report *types.RunReport
	var runErr error
	finished := make(chan struct{})
	go func() {
		report, runErr = e.Run(ctx, types.Config{
			Jobs:  1,
			Tasks: []types.TaskSpec{cmd("slow"), cmd("queued"), cmd("dependent", "slow")},
		})
		close(finished)
	}()

	<-started
	cancel()
	close(release)
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish after abort")
	}

	require.NoError(t, runErr)
	assert.True(t, report.Aborted)
	assert.Equal(t, types.StatusSucceeded, status(t, report, "slow").Status)
	assert.Equal(t, true, handlerCtxErr.Load())
	assert.Equal(t, types.StatusSkipped, status(t, report, "queued").Status)
	assert.Equal(t, reasonAborted, status(t, report, "queued").Reason)
	assert.Equal(t, types.StatusSkipped, status(t, report, "dependent").Status)
	assert.Len(t, report.Tasks, 3)
}

func TestRun_AlreadyCancelled(t *testing.T) {
	commands := &mockCommands{}
	e := New(Options{Commands: commands, Logger: quiet()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := e.Run(ctx, types.Config{Tasks: []types.TaskSpec{cmd("a"), cmd("b", "a")}})
	require.NoError(t, err)

	assert.True(t, report.Aborted)
	assert.Equal(t, 2, report.Counts()[types.StatusSkipped])
	commands.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestRun_BoundedConcurrency(t *testing.T) {
	var running, peak int32
	commands := commandFunc(func(context.Context, types.CommandSpec) types.CommandOutcome {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return types.CommandOutcome{}
	})
	e := New(Options{Commands: commands, Logger: quiet()})

	var tasks []types.TaskSpec
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		tasks = append(tasks, cmd(id))
	}
	report, err := e.Run(context.Background(), types.Config{Jobs: 2, Tasks: tasks})
	require.NoError(t, err)

	assert.Equal(t, 6, report.Counts()[types.StatusSucceeded])
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&peak), int32(1))
}

func TestRun_PrerequisitesFinishBeforeDependentsStart(t *testing.T) {
	events := &eventLog{}
	e := New(Options{Commands: okCommands(), Sink: events, Logger: quiet()})
	tasks := []types.TaskSpec{
		cmd("a"),
		cmd("b", "a"),
		cmd("c", "a"),
		cmd("d", "b", "c"),
	}

	report, err := e.Run(context.Background(), types.Config{Jobs: 4, Tasks: tasks})
	require.NoError(t, err)
	assert.Equal(t, 4, report.Counts()[types.StatusSucceeded])

	for _, task := range tasks {
		start := events.position(task.ID, types.StatusRunning)
		require.NotEqual(t, -1, start)
		for _, need := range task.Needs {
			assert.Less(t, events.position(need, types.StatusSucceeded), start, "%s started before %s finished", task.ID, need)
		}
	}
}

func TestRun_EventsPerTransition(t *testing.T) {
	events := &eventLog{}
	e := New(Options{Commands: failing("bad"), Sink: events, Logger: quiet()})

	_, err := e.Run(context.Background(), types.Config{Tasks: []types.TaskSpec{cmd("good"), cmd("bad"), cmd("later", "bad")}})
	require.NoError(t, err)

	good := events.forTask("good")
	require.Len(t, good, 2)
	assert.Equal(t, types.StatusPending, good[0].From)
	assert.Equal(t, types.StatusRunning, good[0].To)
	assert.Equal(t, types.StatusRunning, good[1].From)
	assert.Equal(t, types.StatusSucceeded, good[1].To)
	assert.Equal(t, types.KindCommand, good[1].Kind)

	bad := events.forTask("bad")
	require.Len(t, bad, 2)
	assert.Equal(t, types.StatusFailed, bad[1].To)
	assert.Equal(t, "exit status 1", bad[1].Reason)

	later := events.forTask("later")
	require.Len(t, later, 1)
	assert.Equal(t, types.StatusPending, later[0].From)
	assert.Equal(t, types.StatusSkipped, later[0].To)
}

func TestRun_PanicBecomesFailure(t *testing.T) {
	commands := commandFunc(func(context.Context, types.CommandSpec) types.CommandOutcome {
		panic("boom")
	})
	e := New(Options{Commands: commands, Logger: quiet()})

	report, err := e.Run(context.Background(), types.Config{Tasks: []types.TaskSpec{cmd("a"), cmd("b", "a")}})
	require.NoError(t, err)

	assert.Equal(t, types.StatusFailed, status(t, report, "a").Status)
	assert.Equal(t, "panic: boom", status(t, report, "a").Reason)
	assert.Equal(t, types.StatusSkipped, status(t, report, "b").Status)
}

func TestRun_LinkGroups(t *testing.T) {
	m := testutil.NewMemoryFS()
	require.NoError(t, m.WriteFile("/src/vimrc", []byte("x"), 0644))
	require.NoError(t, m.WriteFile("/home/.bashrc", []byte("mine"), 0644))
	require.NoError(t, m.WriteFile("/src/bashrc", []byte("x"), 0644))
	e := New(Options{FS: m, Logger: quiet()})

	report, err := e.Run(context.Background(), types.Config{Tasks: []types.TaskSpec{
		{ID: "ok", Kind: types.KindLinkGroup, Links: &types.LinkGroupSpec{
			Conflict: types.ConflictSkip,
			Files: []types.LinkPair{
				{Source: "/src/vimrc", Target: "/home/.vimrc"},
				{Source: "/src/bashrc", Target: "/home/.bashrc"},
			},
		}},
		{ID: "broken", Kind: types.KindLinkGroup, Links: &types.LinkGroupSpec{
			Conflict: types.ConflictSkip,
			Files:    []types.LinkPair{{Source: "/src/missing", Target: "/home/.missing"}},
		}},
	}})
	require.NoError(t, err)

	ok := status(t, report, "ok")
	assert.Equal(t, types.StatusSucceeded, ok.Status)
	assert.Equal(t, "1 of 2 links skipped on conflict", ok.Reason)
	require.Len(t, ok.Links, 2)
	assert.Equal(t, types.LinkCreated, ok.Links[0].Result)
	assert.Equal(t, types.LinkConflictSkipped, ok.Links[1].Result)

	broken := status(t, report, "broken")
	assert.Equal(t, types.StatusFailed, broken.Status)
	assert.Equal(t, "1 of 1 links failed", broken.Reason)
}

func TestRun_WalkedGroupsClaimTargets(t *testing.T) {
	m := testutil.NewMemoryFS()
	require.NoError(t, m.WriteFile("/a/vimrc", []byte("a"), 0644))
	require.NoError(t, m.WriteFile("/b/vimrc", []byte("b"), 0644))
	e := New(Options{FS: m, Logger: quiet()})

	report, err := e.Run(context.Background(), types.Config{Jobs: 1, Tasks: []types.TaskSpec{
		{ID: "first", Kind: types.KindLinkGroup, Links: &types.LinkGroupSpec{SourceRoot: "/a", TargetDir: "/home", Conflict: types.ConflictSkip}},
		{ID: "second", Kind: types.KindLinkGroup, Needs: []string{"first"}, Links: &types.LinkGroupSpec{SourceRoot: "/b", TargetDir: "/home", Conflict: types.ConflictSkip}},
	}})
	require.NoError(t, err)

	assert.Equal(t, types.StatusSucceeded, status(t, report, "first").Status)
	second := status(t, report, "second")
	assert.Equal(t, types.StatusFailed, second.Status)
	assert.Equal(t, "target claimed by task first", second.Links[0].Reason)
}

func TestPreview(t *testing.T) {
	m := testutil.NewMemoryFS()
	require.NoError(t, m.WriteFile("/src/vimrc", []byte("x"), 0644))
	writes := m.Writes()
	e := New(Options{FS: m, Logger: quiet()})

	plans, err := e.Preview(types.Config{Tasks: []types.TaskSpec{
		cmd("c"),
		{ID: "links", Kind: types.KindLinkGroup, Links: &types.LinkGroupSpec{
			Conflict: types.ConflictSkip,
			Files:    []types.LinkPair{{Source: "/src/vimrc", Target: "/home/.vimrc"}},
		}},
	}})
	require.NoError(t, err)

	require.Len(t, plans, 1)
	assert.Equal(t, "links", plans[0].TaskID)
	require.Len(t, plans[0].Actions, 1)
	assert.Equal(t, types.ActionCreate, plans[0].Actions[0].Action)
	assert.Equal(t, writes, m.Writes())
}
