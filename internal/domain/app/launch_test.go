package app

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/shell/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/shell/internal/shared/types"
)

func envValue(env []string, key string) (string, bool) {
	for _, kv := range env {
		if k, v, ok := strings.Cut(kv, "="); ok && k == key {
			return v, true
		}
	}
	return "", false
}

func TestLaunchThenWindowAppears(t *testing.T) {
	ctx := context.Background()
	wm := &mockWM{}
	sp := &mockSpawner{}
	rec := &recorder{}
	a := newTestApp(editorDescriptor(), wm, sp, rec)

	sp.On("Spawn", ctx, mock.MatchedBy(func(r SpawnRequest) bool {
		return r.Command == "editor" && slices.Equal(r.Args, []string{"--gui"}) && r.Workspace == 0
	})).Return(42, nil).Once()

	require.NoError(t, a.Launch(ctx, 100, 0, types.GPUDefault))
	assert.Equal(t, types.StateStarting, a.State())
	assert.True(t, a.Busy())
	pending, ok := a.PendingLaunch()
	require.True(t, ok)
	assert.Equal(t, uint32(100), pending.Timestamp)
	assert.Equal(t, 0, pending.Workspace)
	assert.Equal(t, 42, pending.PID)
	assertInvariants(t, a)

	w1 := newWindow("W1", 42)
	require.NoError(t, a.AddWindow(w1))
	assert.Equal(t, types.StateRunning, a.State())
	assert.Equal(t, []Window{w1}, a.Windows())
	assert.Equal(t, []int{42}, a.PIDs())
	assert.False(t, a.Busy())
	_, ok = a.PendingLaunch()
	assert.False(t, ok)
	assertInvariants(t, a)

	assert.Equal(t, [][2]types.State{
		{types.StateStopped, types.StateStarting},
		{types.StateStarting, types.StateRunning},
	}, rec.transitions())
	require.Len(t, rec.kinds(types.NotifyLaunchResolved), 1)
	assert.Equal(t, "W1", rec.kinds(types.NotifyLaunchResolved)[0].WindowID)

	sp.AssertExpectations(t)
	wm.AssertNotCalled(t, "MoveToWorkspace", mock.Anything, mock.Anything)
}

func TestLaunchEnvironment(t *testing.T) {
	ctx := context.Background()
	sp := &mockSpawner{}
	a := newTestApp(editorDescriptor(), &mockWM{}, sp, nil)

	var got SpawnRequest
	sp.On("Spawn", ctx, mock.Anything).Run(func(args mock.Arguments) {
		got = args.Get(1).(SpawnRequest)
	}).Return(10, nil)

	require.NoError(t, a.Launch(ctx, 1, types.AllWorkspaces, types.GPUDiscrete))

	token, ok := envValue(got.Env, EnvStartupID)
	require.True(t, ok)
	assert.Equal(t, got.Token.String(), token)
	assert.True(t, id.IsValid(token))

	prime, ok := envValue(got.Env, EnvDRIPrime)
	require.True(t, ok)
	assert.Equal(t, "1", prime)

	mode, _ := envValue(got.Env, "EDITOR_MODE")
	assert.Equal(t, "gui", mode)
	assert.True(t, slices.IsSorted(got.Env))
	assert.Equal(t, types.GPUDiscrete, got.GPU)

	pending, _ := a.PendingLaunch()
	assert.Equal(t, got.Token, pending.Token)
}

func TestLaunchDefaultGPUHasNoPrime(t *testing.T) {
	ctx := context.Background()
	sp := &mockSpawner{}
	a := newTestApp(editorDescriptor(), &mockWM{}, sp, nil)

	var got SpawnRequest
	sp.On("Spawn", ctx, mock.Anything).Run(func(args mock.Arguments) {
		got = args.Get(1).(SpawnRequest)
	}).Return(10, nil)

	require.NoError(t, a.Launch(ctx, 1, 0, ""))
	_, ok := envValue(got.Env, EnvDRIPrime)
	assert.False(t, ok)
	assert.Equal(t, types.GPUDefault, got.GPU)
}

func TestLaunchWindowBackedNotLaunchable(t *testing.T) {
	sp := &mockSpawner{}
	rec := &recorder{}
	a := newApp("window:abc", WindowSource("w1"), env{spawner: sp, notify: rec.record})
	require.NoError(t, a.AddWindow(newWindow("w1", 3)))
	before := len(rec.notes)

	ctx := context.Background()
	assert.ErrorIs(t, a.Launch(ctx, 1, 0, types.GPUDefault), ErrNotLaunchable)
	assert.ErrorIs(t, a.OpenNewWindow(ctx, 0), ErrNotLaunchable)
	assert.ErrorIs(t, a.LaunchAction(ctx, "new-window", 1, 0), ErrNotLaunchable)

	assert.Equal(t, types.StateRunning, a.State())
	assert.Len(t, rec.notes, before, "no state change")
	sp.AssertNotCalled(t, "Spawn", mock.Anything, mock.Anything)
}

func TestLaunchAlreadyStarting(t *testing.T) {
	ctx := context.Background()
	sp := &mockSpawner{}
	a := newTestApp(editorDescriptor(), &mockWM{}, sp, nil)
	sp.On("Spawn", ctx, mock.Anything).Return(10, nil).Once()

	require.NoError(t, a.Launch(ctx, 1, 0, types.GPUDefault))
	err := a.Launch(ctx, 2, 0, types.GPUDefault)
	assert.ErrorIs(t, err, ErrAlreadyStarting)
	assert.Len(t, a.Launches(), 1)
	sp.AssertNumberOfCalls(t, "Spawn", 1)
}

func TestLaunchSpawnFailed(t *testing.T) {
	ctx := context.Background()
	sp := &mockSpawner{}
	rec := &recorder{}
	a := newTestApp(editorDescriptor(), &mockWM{}, sp, rec)

	backendErr := errors.New(`exec: "editor": executable file not found in $PATH`)
	sp.On("Spawn", ctx, mock.Anything).Return(0, backendErr)

	err := a.Launch(ctx, 1, 0, types.GPUDefault)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSpawnFailed)
	assert.ErrorIs(t, err, backendErr)
	assert.Contains(t, err.Error(), "executable file not found")

	var appErr *Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "launch", appErr.Op)
	assert.Equal(t, "org.example.Editor", appErr.AppID)

	assert.Equal(t, types.StateStopped, a.State())
	assert.False(t, a.Busy())
	assert.Empty(t, rec.transitions())
	assert.Len(t, rec.kinds(types.NotifyLaunchFailed), 1)
}

func TestLaunchPlacesWindowOnRequestedWorkspace(t *testing.T) {
	ctx := context.Background()
	wm := &mockWM{}
	sp := &mockSpawner{}
	a := newTestApp(editorDescriptor(), wm, sp, nil)
	sp.On("Spawn", ctx, mock.Anything).Return(42, nil)

	require.NoError(t, a.Launch(ctx, 1, 2, types.GPUDefault))

	w := newWindow("w1", 42)
	w.workspace = 0
	wm.On("MoveToWorkspace", w, 2).Return(nil).Once()

	require.NoError(t, a.AddWindow(w))
	wm.AssertExpectations(t)
}

func TestLaunchOntoActiveWorkspace(t *testing.T) {
	ctx := context.Background()
	wm := &mockWM{active: 2}
	sp := &mockSpawner{}
	a := newTestApp(editorDescriptor(), wm, sp, nil)
	sp.On("Spawn", ctx, mock.MatchedBy(func(r SpawnRequest) bool { return r.Workspace == 2 })).Return(42, nil).Once()

	require.NoError(t, a.Launch(ctx, 1, types.AllWorkspaces, types.GPUDefault))
	pending, ok := a.PendingLaunch()
	require.True(t, ok)
	assert.Equal(t, 2, pending.Workspace)

	// The user switched away before the window mapped
	wm.active = 3
	w := newWindow("w1", 42)
	w.workspace = 3
	wm.On("MoveToWorkspace", w, 2).Return(nil).Once()

	require.NoError(t, a.AddWindow(w))
	wm.AssertExpectations(t)
	sp.AssertExpectations(t)
}

func TestLaunchLeavesStickyWindow(t *testing.T) {
	ctx := context.Background()
	wm := &mockWM{active: 1}
	sp := &mockSpawner{}
	a := newTestApp(editorDescriptor(), wm, sp, nil)
	sp.On("Spawn", ctx, mock.Anything).Return(42, nil)

	require.NoError(t, a.Launch(ctx, 1, types.AllWorkspaces, types.GPUDefault))
	w := newWindow("w1", 42)
	w.workspace = types.AllWorkspaces
	require.NoError(t, a.AddWindow(w))
	wm.AssertNotCalled(t, "MoveToWorkspace", mock.Anything, mock.Anything)
}

func TestActivate(t *testing.T) {
	ctx := context.Background()

	t.Run("running focuses most recent window", func(t *testing.T) {
		wm := &mockWM{}
		a := newTestApp(editorDescriptor(), wm, &mockSpawner{}, nil)
		w1, w2 := newWindow("w1", 1), newWindow("w2", 1)
		require.NoError(t, a.AddWindow(w1))
		require.NoError(t, a.AddWindow(w2))

		wm.On("Activate", w2, uint32(50)).Return(nil).Once()
		require.NoError(t, a.Activate(ctx, types.AllWorkspaces, 50))
		assert.Equal(t, uint32(50), a.LastUserTime())
		wm.AssertExpectations(t)
	})

	t.Run("running moves window to workspace first", func(t *testing.T) {
		wm := &mockWM{}
		a := newTestApp(editorDescriptor(), wm, &mockSpawner{}, nil)
		w := newWindow("w1", 1)
		w.workspace = 0
		require.NoError(t, a.AddWindow(w))

		wm.On("MoveToWorkspace", w, 3).Return(nil).Once()
		wm.On("Activate", w, uint32(9)).Return(nil).Once()
		require.NoError(t, a.Activate(ctx, 3, 9))
		wm.AssertExpectations(t)
	})

	t.Run("stopped launches", func(t *testing.T) {
		sp := &mockSpawner{}
		a := newTestApp(editorDescriptor(), &mockWM{}, sp, nil)
		sp.On("Spawn", ctx, mock.Anything).Return(5, nil).Once()

		require.NoError(t, a.Activate(ctx, 1, 7))
		assert.Equal(t, types.StateStarting, a.State())
		pending, _ := a.PendingLaunch()
		assert.Equal(t, 1, pending.Workspace)
		assert.Equal(t, types.GPUDefault, pending.GPU)
	})

	t.Run("starting rejects", func(t *testing.T) {
		sp := &mockSpawner{}
		a := newTestApp(editorDescriptor(), &mockWM{}, sp, nil)
		sp.On("Spawn", ctx, mock.Anything).Return(5, nil).Once()
		require.NoError(t, a.Launch(ctx, 1, 0, types.GPUDefault))

		assert.ErrorIs(t, a.Activate(ctx, 0, 2), ErrAlreadyStarting)
	})

	t.Run("running without windows is reported", func(t *testing.T) {
		a := newTestApp(editorDescriptor(), &mockWM{}, &mockSpawner{}, nil)
		a.state = types.StateRunning
		assert.ErrorIs(t, a.Activate(ctx, 0, 2), ErrNoWindowToActivate)
	})

	t.Run("window manager error is wrapped", func(t *testing.T) {
		wm := &mockWM{}
		a := newTestApp(editorDescriptor(), wm, &mockSpawner{}, nil)
		w := newWindow("w1", 1)
		require.NoError(t, a.AddWindow(w))

		wmErr := errors.New("compositor gone")
		wm.On("Activate", w, uint32(3)).Return(wmErr)
		err := a.Activate(ctx, types.AllWorkspaces, 3)
		assert.ErrorIs(t, err, wmErr)
		assert.ErrorIs(t, err, ErrWindowManager)
	})

	t.Run("failed move carries a kind", func(t *testing.T) {
		wm := &mockWM{}
		a := newTestApp(editorDescriptor(), wm, &mockSpawner{}, nil)
		w := newWindow("w1", 1)
		require.NoError(t, a.AddWindow(w))

		wm.On("MoveToWorkspace", w, 2).Return(errors.New("no compositor"))
		err := a.Activate(ctx, 2, 3)
		assert.ErrorIs(t, err, ErrWindowManager)
		wm.AssertNotCalled(t, "Activate", mock.Anything, mock.Anything)
	})
}

func TestActivateWindow(t *testing.T) {
	wm := &mockWM{}
	a := newTestApp(editorDescriptor(), wm, &mockSpawner{}, nil)
	w1, w2 := newWindow("w1", 1), newWindow("w2", 2)
	require.NoError(t, a.AddWindow(w1))
	require.NoError(t, a.AddWindow(w2))

	wm.On("Activate", w1, uint32(20)).Return(nil).Once()
	require.NoError(t, a.ActivateWindow(w1, 20))
	assert.Equal(t, []Window{w1, w2}, a.Windows(), "activated window moves to front")
	assert.Equal(t, uint32(20), a.LastUserTime())

	err := a.ActivateWindow(newWindow("stranger", 9), 21)
	assert.ErrorIs(t, err, ErrNotOwned)
	wm.AssertExpectations(t)
}

func TestOpenNewWindowWhileRunning(t *testing.T) {
	ctx := context.Background()
	sp := &mockSpawner{}
	rec := &recorder{}
	a := newTestApp(editorDescriptor(), &mockWM{}, sp, rec)
	require.NoError(t, a.AddWindow(newWindow("w1", 1)))

	sp.On("Spawn", ctx, mock.MatchedBy(func(r SpawnRequest) bool { return r.Workspace == 4 })).Return(77, nil).Once()
	require.NoError(t, a.OpenNewWindow(ctx, 4))

	assert.Equal(t, types.StateRunning, a.State(), "state unchanged")
	assert.True(t, a.Busy(), "launch in flight")
	assert.Len(t, rec.transitions(), 1)

	require.NoError(t, a.AddWindow(newWindow("w2", 77)))
	assert.False(t, a.Busy())
	assert.Empty(t, a.Launches())
}

func TestLaunchAction(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown action", func(t *testing.T) {
		sp := &mockSpawner{}
		rec := &recorder{}
		a := newTestApp(editorDescriptor(), &mockWM{}, sp, rec)

		err := a.LaunchAction(ctx, "open-new-window", 1, 0)
		assert.ErrorIs(t, err, ErrUnknownAction)
		assert.Contains(t, err.Error(), "open-new-window")
		assert.Equal(t, types.StateStopped, a.State())
		assert.Empty(t, rec.notes)
		sp.AssertNotCalled(t, "Spawn", mock.Anything, mock.Anything)
	})

	t.Run("action args extend primary command", func(t *testing.T) {
		sp := &mockSpawner{}
		a := newTestApp(editorDescriptor(), &mockWM{}, sp, nil)
		sp.On("Spawn", ctx, mock.MatchedBy(func(r SpawnRequest) bool {
			return r.Command == "editor" && slices.Equal(r.Args, []string{"--gui", "--new-window"})
		})).Return(3, nil).Once()

		require.NoError(t, a.LaunchAction(ctx, "new-window", 1, 0))
		pending, _ := a.PendingLaunch()
		assert.Equal(t, "new-window", pending.Action)
		sp.AssertExpectations(t)
	})

	t.Run("action exec replaces command", func(t *testing.T) {
		sp := &mockSpawner{}
		a := newTestApp(editorDescriptor(), &mockWM{}, sp, nil)
		sp.On("Spawn", ctx, mock.MatchedBy(func(r SpawnRequest) bool {
			return r.Command == "editor-prefs" && len(r.Args) == 0
		})).Return(3, nil).Once()

		require.NoError(t, a.LaunchAction(ctx, "preferences", 1, 0))
		sp.AssertExpectations(t)
	})
}

func TestRequestQuit(t *testing.T) {
	wm := &mockWM{}
	rec := &recorder{}
	a := newTestApp(editorDescriptor(), wm, &mockSpawner{}, rec)
	w1, w2 := newWindow("w1", 42), newWindow("w2", 42)
	require.NoError(t, a.AddWindow(w1))
	require.NoError(t, a.AddWindow(w2))

	windows := a.Windows()
	answers := make([]bool, len(windows))
	for i, w := range windows {
		answers[i] = w.ID() == "w1"
	}
	wm.On("RequestClose", windows, uint32(5)).Return(answers).Once()

	assert.False(t, a.RequestQuit(5))
	assert.Equal(t, types.StateRunning, a.State(), "nothing closed yet")

	// The accepting window goes away
	require.NoError(t, a.RemoveWindow(w1))
	assert.Equal(t, types.StateRunning, a.State())
	assert.Equal(t, []Window{w2}, a.Windows())

	require.NoError(t, a.RemoveWindow(w2))
	assert.Equal(t, types.StateStopped, a.State())
	wm.AssertExpectations(t)
}

func TestRequestQuitAllAccept(t *testing.T) {
	wm := &mockWM{}
	a := newTestApp(editorDescriptor(), wm, &mockSpawner{}, nil)
	require.NoError(t, a.AddWindow(newWindow("w1", 1)))
	wm.On("RequestClose", mock.Anything, uint32(1)).Return([]bool{true})

	assert.True(t, a.RequestQuit(1))
	assert.True(t, a.RequestQuit(1))
	wm.AssertNumberOfCalls(t, "RequestClose", 2)
}

func TestRequestQuitWithoutWindows(t *testing.T) {
	wm := &mockWM{}
	a := newTestApp(editorDescriptor(), wm, &mockSpawner{}, nil)

	assert.True(t, a.RequestQuit(1))
	wm.AssertNotCalled(t, "RequestClose", mock.Anything, mock.Anything)
}

func TestRequestQuitShortAnswer(t *testing.T) {
	wm := &mockWM{}
	a := newTestApp(editorDescriptor(), wm, &mockSpawner{}, nil)
	require.NoError(t, a.AddWindow(newWindow("w1", 1)))
	require.NoError(t, a.AddWindow(newWindow("w2", 1)))
	wm.On("RequestClose", mock.Anything, uint32(1)).Return([]bool{true})

	assert.False(t, a.RequestQuit(1), "missing answers count as refused")
}

func TestCancelAndFailLaunchIdempotent(t *testing.T) {
	ctx := context.Background()
	sp := &mockSpawner{}
	rec := &recorder{}
	a := newTestApp(editorDescriptor(), &mockWM{}, sp, rec)
	sp.On("Spawn", ctx, mock.Anything).Return(5, nil)

	require.NoError(t, a.Launch(ctx, 1, 0, types.GPUDefault))
	pending, _ := a.PendingLaunch()

	assert.True(t, a.CancelLaunch(pending.Token))
	assert.Equal(t, types.StateStopped, a.State())
	assert.False(t, a.Busy())

	assert.False(t, a.CancelLaunch(pending.Token))
	assert.False(t, a.FailLaunch(pending.Token, ErrLaunchTimeout))
	assert.False(t, a.CancelLaunch(id.NewLaunchToken()))

	assert.Equal(t, [][2]types.State{
		{types.StateStopped, types.StateStarting},
		{types.StateStarting, types.StateStopped},
	}, rec.transitions())
}

func TestFailLaunchReportsError(t *testing.T) {
	ctx := context.Background()
	sp := &mockSpawner{}
	rec := &recorder{}
	a := newTestApp(editorDescriptor(), &mockWM{}, sp, rec)
	sp.On("Spawn", ctx, mock.Anything).Return(5, nil)

	require.NoError(t, a.Launch(ctx, 1, 0, types.GPUDefault))
	pending, _ := a.PendingLaunch()

	assert.True(t, a.FailLaunch(pending.Token, ErrLaunchTimeout))
	assert.Equal(t, types.StateStopped, a.State())

	failed := rec.kinds(types.NotifyLaunchFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, pending.Token.String(), failed[0].Token)
	assert.Contains(t, failed[0].Error, ErrLaunchTimeout.Error())
}

func TestEarliestLaunchWinsWithoutCorrelation(t *testing.T) {
	ctx := context.Background()
	sp := &mockSpawner{}
	a := newTestApp(editorDescriptor(), &mockWM{}, sp, nil)
	sp.On("Spawn", ctx, mock.Anything).Return(100, nil).Once()
	sp.On("Spawn", ctx, mock.Anything).Return(200, nil).Once()

	require.NoError(t, a.Launch(ctx, 1, types.AllWorkspaces, types.GPUDefault))
	require.NoError(t, a.OpenNewWindow(ctx, types.AllWorkspaces))
	launches := a.Launches()
	require.Len(t, launches, 2)

	// Forked child with an unrelated pid
	require.NoError(t, a.AddWindow(newWindow("w1", 999)))
	remaining := a.Launches()
	require.Len(t, remaining, 1)
	assert.Equal(t, launches[1].Token, remaining[0].Token)
	assert.True(t, a.Busy())
}

func TestLaunchAttributionByPID(t *testing.T) {
	ctx := context.Background()
	sp := &mockSpawner{}
	a := newTestApp(editorDescriptor(), &mockWM{}, sp, nil)
	sp.On("Spawn", ctx, mock.Anything).Return(100, nil).Once()
	sp.On("Spawn", ctx, mock.Anything).Return(200, nil).Once()

	require.NoError(t, a.Launch(ctx, 1, types.AllWorkspaces, types.GPUDefault))
	require.NoError(t, a.OpenNewWindow(ctx, types.AllWorkspaces))
	launches := a.Launches()

	require.NoError(t, a.AddWindow(newWindow("w1", 200)))
	remaining := a.Launches()
	require.Len(t, remaining, 1)
	assert.Equal(t, launches[0].Token, remaining[0].Token)
}

func TestLaunchAttributionByToken(t *testing.T) {
	ctx := context.Background()
	sp := &mockSpawner{}
	a := newTestApp(editorDescriptor(), &mockWM{}, sp, nil)
	sp.On("Spawn", ctx, mock.Anything).Return(100, nil).Once()
	sp.On("Spawn", ctx, mock.Anything).Return(200, nil).Once()

	require.NoError(t, a.Launch(ctx, 1, types.AllWorkspaces, types.GPUDefault))
	require.NoError(t, a.OpenNewWindow(ctx, types.AllWorkspaces))
	launches := a.Launches()

	// Token beats the pid match
	require.NoError(t, a.addWindow(newWindow("w1", 100), launches[1].Token.String()))
	remaining := a.Launches()
	require.Len(t, remaining, 1)
	assert.Equal(t, launches[0].Token, remaining[0].Token)
}
