package app

import (
	"context"

	"github.com/GriffinCanCode/AgentOS/shell/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/shell/internal/shared/types"
)

// Window is a handle to a window owned by the window manager. Two handles
// with the same ID refer to the same window.
type Window interface {
	ID() string
	PID() int
	Title() string
	WMClass() string
	// Workspace returns the workspace index, or types.AllWorkspaces for
	// windows shown on every workspace.
	Workspace() int
	SkipTaskbar() bool
}

// WindowManager exposes the window manager primitives the core drives
type WindowManager interface {
	Activate(w Window, timestamp uint32) error
	MoveToWorkspace(w Window, workspace int) error
	// RequestClose asks each window to close and reports, per window,
	// whether it accepted. The windows are asked together and answers are
	// awaited under one deadline. Acceptance does not mean the window is gone.
	RequestClose(windows []Window, timestamp uint32) []bool
	// ActiveWorkspace returns the workspace currently shown
	ActiveWorkspace() int
}

// SpawnRequest describes a process to start for a launch
type SpawnRequest struct {
	AppID      string
	Token      id.LaunchToken
	Command    string
	Args       []string
	Env        []string // KEY=VALUE, merged over the daemon environment
	WorkingDir string
	Terminal   bool
	Workspace  int
	GPU        types.GPUPreference
}

// Spawner starts processes. Spawn returns once the process has been
// started; it never waits for the program to map a window.
type Spawner interface {
	Spawn(ctx context.Context, req SpawnRequest) (pid int, err error)
}

func windowInfo(w Window, busy bool) types.WindowInfo {
	return types.WindowInfo{
		ID:          w.ID(),
		PID:         w.PID(),
		Title:       w.Title(),
		WMClass:     w.WMClass(),
		Workspace:   w.Workspace(),
		SkipTaskbar: w.SkipTaskbar(),
		Busy:        busy,
	}
}
