package app

import (
	"context"
	"errors"
	"slices"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/shell/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/shell/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/shell/internal/shared/types"
)

// Environment variables set on spawned processes
const (
	EnvStartupID = "DESKTOP_STARTUP_ID"
	EnvDRIPrime  = "DRI_PRIME"
)

// discreteGPUEnv selects the discrete GPU under Mesa and NVIDIA PRIME offload
var discreteGPUEnv = map[string]string{
	EnvDRIPrime:                 "1",
	"__NV_PRIME_RENDER_OFFLOAD": "1",
	"__GLX_VENDOR_LIBRARY_NAME": "nvidia",
	"__VK_LAYER_NV_optimus":     "NVIDIA_only",
}

// Launch is an in-flight launch, alive from spawn until a window is
// attributed to it or it fails, times out or is cancelled.
type Launch struct {
	Token     id.LaunchToken
	Timestamp uint32
	Workspace int
	GPU       types.GPUPreference
	Action    string
	PID       int
	StartedAt time.Time
}

// Info returns a snapshot of the launch
func (l *Launch) Info() types.LaunchInfo {
	return types.LaunchInfo{
		Token:     l.Token.String(),
		Timestamp: l.Timestamp,
		Workspace: l.Workspace,
		GPU:       l.GPU,
		Action:    l.Action,
		PID:       l.PID,
		StartedAt: l.StartedAt,
	}
}

// PendingLaunch returns the earliest in-flight launch
func (a *App) PendingLaunch() (*Launch, bool) {
	if len(a.launches) == 0 {
		return nil, false
	}
	l := *a.launches[0]
	return &l, true
}

// Launches returns copies of all in-flight launches, oldest first
func (a *App) Launches() []Launch {
	out := make([]Launch, len(a.launches))
	for i, l := range a.launches {
		out[i] = *l
	}
	return out
}

// HasLaunch reports whether token belongs to an in-flight launch of this app
func (a *App) HasLaunch(token id.LaunchToken) bool {
	return a.launchIndex(token) >= 0
}

func (a *App) launchIndex(token id.LaunchToken) int {
	return slices.IndexFunc(a.launches, func(l *Launch) bool { return l.Token == token })
}

// launchByPID finds the in-flight launch that spawned pid
func (a *App) launchByPID(pid int) *Launch {
	if pid <= 0 {
		return nil
	}
	for _, l := range a.launches {
		if l.PID == pid {
			return l
		}
	}
	return nil
}

// attribute picks the launch a new window resolves: the one named by the
// window's launch token, else the one that spawned the window's process,
// else the earliest in-flight launch.
func (a *App) attribute(w Window, token string) *Launch {
	if len(a.launches) == 0 {
		return nil
	}
	if token != "" {
		if i := a.launchIndex(id.LaunchToken(token)); i >= 0 {
			return a.launches[i]
		}
	}
	if l := a.launchByPID(w.PID()); l != nil {
		return l
	}
	return a.launches[0]
}

func (a *App) resolveLaunch(l *Launch, w Window) {
	a.dropLaunch(l.Token)

	if l.Workspace >= 0 && w.Workspace() != l.Workspace && w.Workspace() != types.AllWorkspaces {
		if err := a.wm.MoveToWorkspace(w, l.Workspace); err != nil {
			a.logger.Warn("Failed to place launched window",
				zap.String("window_id", w.ID()),
				zap.Int("workspace", l.Workspace),
				zap.Error(err))
		}
	}

	a.logger.Info("Launch resolved",
		zap.String("token", l.Token.String()),
		zap.String("window_id", w.ID()),
		zap.Duration("elapsed", a.now().Sub(l.StartedAt)))
	if a.metrics != nil {
		a.metrics.RecordLaunch(monitoring.OutcomeResolved)
		a.metrics.ObserveLaunchDuration(a.now().Sub(l.StartedAt))
	}
	a.emit(types.Notification{Kind: types.NotifyLaunchResolved, Token: l.Token.String(), WindowID: w.ID()})
}

func (a *App) dropLaunch(token id.LaunchToken) bool {
	i := a.launchIndex(token)
	if i < 0 {
		return false
	}
	a.launches = slices.Delete(a.launches, i, i+1)
	return true
}

type launchParams struct {
	op          string
	timestamp   uint32
	workspace   int
	gpu         types.GPUPreference
	action      *types.Action
	whileActive bool // permitted while STARTING
}

func (a *App) spawn(ctx context.Context, p launchParams) error {
	d := a.source.Descriptor
	if a.source.Kind != SourceInstalled || d == nil {
		return newError(p.op, a.id, ErrNotLaunchable)
	}
	if !p.whileActive && a.state == types.StateStarting {
		return newError(p.op, a.id, ErrAlreadyStarting)
	}

	// A negative workspace means the one shown when the launch was made;
	// the window is placed there even if the user switches meanwhile.
	if p.workspace < 0 {
		p.workspace = a.wm.ActiveWorkspace()
	}

	token := id.NewLaunchToken()
	req := SpawnRequest{
		AppID:      a.id,
		Token:      token,
		Command:    d.Exec,
		Args:       slices.Clone(d.Args),
		Env:        spawnEnv(d.Env, token, p.gpu),
		WorkingDir: d.WorkingDir,
		Terminal:   d.Terminal,
		Workspace:  p.workspace,
		GPU:        p.gpu,
	}
	actionID := ""
	if p.action != nil {
		actionID = p.action.ID
		if p.action.Exec != "" {
			req.Command = p.action.Exec
			req.Args = slices.Clone(p.action.Args)
		} else {
			req.Args = append(req.Args, p.action.Args...)
		}
	}

	pid, err := a.spawner.Spawn(ctx, req)
	if err != nil {
		a.logger.Warn("Spawn failed",
			zap.String("token", token.String()),
			zap.String("command", req.Command),
			zap.Error(err))
		if a.metrics != nil {
			a.metrics.RecordLaunch(monitoring.OutcomeFailed)
		}
		spawnErr := wrapError(p.op, a.id, ErrSpawnFailed, err)
		a.emit(types.Notification{Kind: types.NotifyLaunchFailed, Token: token.String(), Error: spawnErr.Error()})
		return spawnErr
	}

	l := &Launch{
		Token:     token,
		Timestamp: p.timestamp,
		Workspace: p.workspace,
		GPU:       p.gpu,
		Action:    actionID,
		PID:       pid,
		StartedAt: a.now(),
	}
	a.launches = append(a.launches, l)
	if p.timestamp > a.lastUserTime {
		a.lastUserTime = p.timestamp
	}

	a.logger.Info("Launch started",
		zap.String("token", token.String()),
		zap.Int("pid", pid),
		zap.String("action", actionID))
	if a.metrics != nil {
		a.metrics.RecordLaunch(monitoring.OutcomeStarted)
	}
	a.emit(types.Notification{Kind: types.NotifyLaunchStarted, Token: token.String()})
	a.sync()
	return nil
}

// spawnEnv builds the KEY=VALUE environment for a launch, sorted by key
func spawnEnv(base map[string]string, token id.LaunchToken, gpu types.GPUPreference) []string {
	merged := make(map[string]string, len(base)+len(discreteGPUEnv)+1)
	for k, v := range base {
		merged[k] = v
	}
	if gpu == types.GPUDiscrete {
		for k, v := range discreteGPUEnv {
			merged[k] = v
		}
	}
	merged[EnvStartupID] = token.String()

	env := make([]string, 0, len(merged))
	for k, v := range merged {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}

// Launch starts a new instance. It returns once the process is spawned;
// the app stays STARTING until a window is attributed to the launch. A
// negative workspace launches onto the active one.
func (a *App) Launch(ctx context.Context, timestamp uint32, workspace int, gpu types.GPUPreference) error {
	if gpu == "" {
		gpu = types.GPUDefault
	}
	return a.spawn(ctx, launchParams{op: "launch", timestamp: timestamp, workspace: workspace, gpu: gpu})
}

// Activate focuses the most recent window, moving it to workspace first when
// workspace is not negative. A stopped app is launched instead.
func (a *App) Activate(ctx context.Context, workspace int, timestamp uint32) error {
	switch a.state {
	case types.StateStarting:
		return newError("activate", a.id, ErrAlreadyStarting)
	case types.StateStopped:
		return a.spawn(ctx, launchParams{op: "activate", timestamp: timestamp, workspace: workspace, gpu: types.GPUDefault})
	}

	if len(a.windows) == 0 {
		return newError("activate", a.id, ErrNoWindowToActivate)
	}
	w := a.windows[0]
	if workspace >= 0 && w.Workspace() != workspace && w.Workspace() != types.AllWorkspaces {
		if err := a.wm.MoveToWorkspace(w, workspace); err != nil {
			return wrapError("activate", a.id, ErrWindowManager, err)
		}
	}
	return a.activateWindow("activate", w, timestamp)
}

// ActivateWindow raises and focuses one of this app's windows
func (a *App) ActivateWindow(w Window, timestamp uint32) error {
	i := a.windowIndex(w.ID())
	if i < 0 {
		return newError("activate_window", a.id, ErrNotOwned)
	}
	return a.activateWindow("activate_window", a.windows[i], timestamp)
}

func (a *App) activateWindow(op string, w Window, timestamp uint32) error {
	if err := a.wm.Activate(w, timestamp); err != nil {
		return wrapError(op, a.id, ErrWindowManager, err)
	}
	a.focus(w.ID(), timestamp)
	return nil
}

// OpenNewWindow spawns the primary command whatever the current state
func (a *App) OpenNewWindow(ctx context.Context, workspace int) error {
	return a.spawn(ctx, launchParams{op: "open_new_window", workspace: workspace, gpu: types.GPUDefault, whileActive: true})
}

// LaunchAction runs a declared action
func (a *App) LaunchAction(ctx context.Context, actionID string, timestamp uint32, workspace int) error {
	d := a.source.Descriptor
	if a.source.Kind != SourceInstalled || d == nil {
		return newError("launch_action", a.id, ErrNotLaunchable)
	}
	action, ok := d.Action(actionID)
	if !ok {
		return wrapError("launch_action", a.id, ErrUnknownAction, errors.New(actionID))
	}
	return a.spawn(ctx, launchParams{
		op:          "launch_action",
		timestamp:   timestamp,
		workspace:   workspace,
		gpu:         types.GPUDefault,
		action:      &action,
		whileActive: true,
	})
}

// RequestQuit asks every window to close. It reports whether all of them
// accepted; the app stops only once the windows are actually gone.
func (a *App) RequestQuit(timestamp uint32) bool {
	if len(a.windows) == 0 {
		return true
	}

	windows := slices.Clone(a.windows)
	accepted := a.wm.RequestClose(windows, timestamp)
	all := true
	for i, w := range windows {
		if i >= len(accepted) || !accepted[i] {
			a.logger.Debug("Window refused close", zap.String("window_id", w.ID()))
			all = false
		}
	}
	return all
}

// CancelLaunch abandons an in-flight launch. Unknown or already resolved
// tokens are ignored and reported as false.
func (a *App) CancelLaunch(token id.LaunchToken) bool {
	if !a.dropLaunch(token) {
		return false
	}
	a.logger.Info("Launch cancelled", zap.String("token", token.String()))
	if a.metrics != nil {
		a.metrics.RecordLaunch(monitoring.OutcomeCancelled)
	}
	a.emit(types.Notification{Kind: types.NotifyLaunchResolved, Token: token.String()})
	a.sync()
	return true
}

// FailLaunch ends an in-flight launch with err. Like CancelLaunch it is a
// no-op for unknown tokens.
func (a *App) FailLaunch(token id.LaunchToken, err error) bool {
	if !a.dropLaunch(token) {
		return false
	}

	outcome := monitoring.OutcomeFailed
	failure := wrapError("launch", a.id, ErrSpawnFailed, err)
	if errors.Is(err, ErrLaunchTimeout) {
		outcome = monitoring.OutcomeTimedOut
		failure = newError("launch", a.id, ErrLaunchTimeout)
	}

	a.logger.Warn("Launch failed", zap.String("token", token.String()), zap.Error(err))
	if a.metrics != nil {
		a.metrics.RecordLaunch(outcome)
	}
	a.emit(types.Notification{Kind: types.NotifyLaunchFailed, Token: token.String(), Error: failure.Error()})
	a.sync()
	return true
}
