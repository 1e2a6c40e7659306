package types

import "time"

// State represents app lifecycle states
type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
)

// Active reports whether the state counts as running for presentation
func (s State) Active() bool {
	return s == StateStarting || s == StateRunning
}

// GPUPreference selects the GPU a launched process renders on
type GPUPreference string

const (
	GPUDefault  GPUPreference = "default"
	GPUDiscrete GPUPreference = "discrete"
)

// AllWorkspaces marks a window that is visible on every workspace, and
// doubles as "no workspace preference" when passed to launch operations.
const AllWorkspaces = -1

// WindowInfo is a read-only view of a tracked window
type WindowInfo struct {
	ID          string `json:"id"`
	PID         int    `json:"pid"`
	Title       string `json:"title"`
	WMClass     string `json:"wm_class,omitempty"`
	Workspace   int    `json:"workspace"`
	SkipTaskbar bool   `json:"skip_taskbar,omitempty"`
	Busy        bool   `json:"busy,omitempty"`
}

// LaunchInfo describes an in-flight launch
type LaunchInfo struct {
	Token     string        `json:"token"`
	Timestamp uint32        `json:"timestamp"`
	Workspace int           `json:"workspace"`
	GPU       GPUPreference `json:"gpu"`
	Action    string        `json:"action,omitempty"`
	PID       int           `json:"pid,omitempty"`
	StartedAt time.Time     `json:"started_at"`
}

// AppInfo is a snapshot of one application for API consumers
type AppInfo struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	GenericName      string       `json:"generic_name,omitempty"`
	Description      string       `json:"description,omitempty"`
	WindowBacked     bool         `json:"window_backed"`
	State            State        `json:"state"`
	Busy             bool         `json:"busy"`
	Windows          []WindowInfo `json:"windows"`
	PIDs             []int        `json:"pids"`
	Launches         []LaunchInfo `json:"launches,omitempty"`
	LastUserTime     uint32       `json:"last_user_time"`
	CanOpenNewWindow bool         `json:"can_open_new_window"`
	Actions          []Action     `json:"actions,omitempty"`
}

// Stats contains app manager statistics
type Stats struct {
	TotalApps        int     `json:"total_apps"`
	RunningApps      int     `json:"running_apps"`
	StartingApps     int     `json:"starting_apps"`
	WindowBackedApps int     `json:"window_backed_apps"`
	TrackedWindows   int     `json:"tracked_windows"`
	FocusedAppID     *string `json:"focused_app_id,omitempty"`
}
