package app

import (
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/shell/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/shell/internal/shared/types"
)

// ownership maps window ids to the app holding them. One index is shared by
// every app of a Manager so a window can only ever have one owner.
type ownership struct {
	owners map[string]*App
}

func newOwnership() *ownership {
	return &ownership{owners: make(map[string]*App)}
}

// env is what an App needs from its surroundings
type env struct {
	wm      WindowManager
	spawner Spawner
	owners  *ownership
	notify  func(types.Notification)
	logger  *zap.Logger
	metrics *monitoring.Metrics
	now     func() time.Time
}

// App is one desktop application and the windows and processes realizing
// it. Apps are not safe for concurrent use; a single owner goroutine drives
// them together with the window manager events.
type App struct {
	id     string
	source Source

	windows     []Window // most recently used first
	busyWindows map[string]struct{}
	launches    []*Launch // in flight, oldest first

	state        types.State
	busy         bool
	lastUserTime uint32

	env
}

func newApp(appID string, source Source, e env) *App {
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.owners == nil {
		e.owners = newOwnership()
	}
	if e.notify == nil {
		e.notify = func(types.Notification) {}
	}
	e.logger = e.logger.With(zap.String("app_id", appID))

	return &App{
		id:          appID,
		source:      source,
		busyWindows: make(map[string]struct{}),
		state:       types.StateStopped,
		env:         e,
	}
}

// ID returns the stable application id
func (a *App) ID() string { return a.id }

// Source returns the identity source
func (a *App) Source() Source { return a.source }

// Descriptor returns the installed descriptor, or nil for window-backed apps
func (a *App) Descriptor() *types.Descriptor { return a.source.Descriptor }

// IsWindowBacked reports whether the app has no descriptor
func (a *App) IsWindowBacked() bool { return a.source.Kind == SourceWindow }

// State returns the current lifecycle state
func (a *App) State() types.State { return a.state }

// Busy reports whether a launch is in flight or any window is busy
func (a *App) Busy() bool { return a.busy }

// LastUserTime returns the timestamp of the latest user activation
func (a *App) LastUserTime() uint32 { return a.lastUserTime }

// Name returns the descriptor name
func (a *App) Name() (string, error) { return a.source.Name(a.id) }

// GenericName returns the descriptor generic name
func (a *App) GenericName() (string, error) { return a.source.GenericName(a.id) }

// Description returns the descriptor description
func (a *App) Description() (string, error) { return a.source.Description(a.id) }

// Icon returns the icon source best matching size
func (a *App) Icon(size int) (types.IconSource, bool, error) { return a.source.Icon(a.id, size) }

// Actions returns the declared actions
func (a *App) Actions() ([]types.Action, error) { return a.source.Actions(a.id) }

// DisplayName is the name to show: the descriptor name, or the title of the
// most recent window for window-backed apps.
func (a *App) DisplayName() string {
	if name, err := a.Name(); err == nil {
		return name
	}
	if len(a.windows) > 0 {
		return a.windows[0].Title()
	}
	return a.id
}

// CanOpenNewWindow reports whether the descriptor supports multiple instances
func (a *App) CanOpenNewWindow() bool {
	d := a.source.Descriptor
	return d != nil && d.MultiInstance
}

// Windows returns the owned windows, most recently used first
func (a *App) Windows() []Window {
	return slices.Clone(a.windows)
}

// InterestingWindows returns the windows a window list should show
func (a *App) InterestingWindows() []Window {
	out := make([]Window, 0, len(a.windows))
	for _, w := range a.windows {
		if !w.SkipTaskbar() {
			out = append(out, w)
		}
	}
	return out
}

// NWindows returns the number of owned windows
func (a *App) NWindows() int { return len(a.windows) }

// PIDs returns the distinct process ids of the owned windows in ascending
// order. Computed on every call.
func (a *App) PIDs() []int {
	pids := make([]int, 0, len(a.windows))
	for _, w := range a.windows {
		if w.PID() > 0 {
			pids = append(pids, w.PID())
		}
	}
	slices.Sort(pids)
	return slices.Compact(pids)
}

// IsOnWorkspace reports whether any window is on workspace. Windows shown on
// all workspaces match every workspace.
func (a *App) IsOnWorkspace(workspace int) bool {
	for _, w := range a.windows {
		if w.Workspace() == workspace || w.Workspace() == types.AllWorkspaces {
			return true
		}
	}
	return false
}

// HasWindow reports whether the window with windowID is owned by this app
func (a *App) HasWindow(windowID string) bool {
	return a.windowIndex(windowID) >= 0
}

// Window returns the owned window with windowID
func (a *App) Window(windowID string) (Window, bool) {
	if i := a.windowIndex(windowID); i >= 0 {
		return a.windows[i], true
	}
	return nil, false
}

func (a *App) windowIndex(windowID string) int {
	return slices.IndexFunc(a.windows, func(w Window) bool { return w.ID() == windowID })
}

// AddWindow attributes w to this app
func (a *App) AddWindow(w Window) error {
	return a.addWindow(w, "")
}

func (a *App) addWindow(w Window, token string) error {
	if owner, ok := a.owners.owners[w.ID()]; ok {
		if owner == a {
			return nil
		}
		return newError("add_window", a.id, ErrAlreadyOwned)
	}

	a.owners.owners[w.ID()] = a
	a.windows = slices.Insert(a.windows, 0, w)
	a.logger.Debug("Window added",
		zap.String("window_id", w.ID()),
		zap.Int("pid", w.PID()))

	if l := a.attribute(w, token); l != nil {
		a.resolveLaunch(l, w)
	}

	a.emit(types.Notification{Kind: types.NotifyWindowsChanged, WindowID: w.ID()})
	a.sync()
	return nil
}

// RemoveWindow drops w from this app. The window itself is left alone.
func (a *App) RemoveWindow(w Window) error {
	return a.removeWindow(w.ID())
}

func (a *App) removeWindow(windowID string) error {
	i := a.windowIndex(windowID)
	if i < 0 {
		return newError("remove_window", a.id, ErrNotOwned)
	}

	a.windows = slices.Delete(a.windows, i, i+1)
	delete(a.owners.owners, windowID)
	delete(a.busyWindows, windowID)
	a.logger.Debug("Window removed", zap.String("window_id", windowID))

	a.emit(types.Notification{Kind: types.NotifyWindowsChanged, WindowID: windowID})
	a.sync()
	return nil
}

// setWindowBusy records a busy flag reported by the window manager
func (a *App) setWindowBusy(windowID string, busy bool) error {
	if !a.HasWindow(windowID) {
		return newError("set_busy", a.id, ErrNotOwned)
	}
	if busy {
		a.busyWindows[windowID] = struct{}{}
	} else {
		delete(a.busyWindows, windowID)
	}
	a.sync()
	return nil
}

// focus moves the window to the front of the recency order
func (a *App) focus(windowID string, timestamp uint32) bool {
	i := a.windowIndex(windowID)
	if i < 0 {
		return false
	}
	if i > 0 {
		w := a.windows[i]
		a.windows = slices.Delete(a.windows, i, i+1)
		a.windows = slices.Insert(a.windows, 0, w)
	}
	if timestamp > a.lastUserTime {
		a.lastUserTime = timestamp
	}
	return true
}

func (a *App) emit(n types.Notification) {
	n.AppID = a.id
	if n.Kind != types.NotifyStateChanged {
		n.NewState = a.state
	}
	n.Busy = a.busy
	a.notify(n)
}

// Info returns a snapshot for API consumers
func (a *App) Info() types.AppInfo {
	info := types.AppInfo{
		ID:               a.id,
		Name:             a.DisplayName(),
		WindowBacked:     a.IsWindowBacked(),
		State:            a.state,
		Busy:             a.busy,
		Windows:          make([]types.WindowInfo, 0, len(a.windows)),
		PIDs:             a.PIDs(),
		LastUserTime:     a.lastUserTime,
		CanOpenNewWindow: a.CanOpenNewWindow(),
	}
	if d := a.source.Descriptor; d != nil {
		info.GenericName = d.GenericName
		info.Description = d.Description
		info.Actions = slices.Clone(d.Actions)
	}
	for _, w := range a.windows {
		_, busy := a.busyWindows[w.ID()]
		info.Windows = append(info.Windows, windowInfo(w, busy))
	}
	for _, l := range a.launches {
		info.Launches = append(info.Launches, l.Info())
	}
	return info
}
