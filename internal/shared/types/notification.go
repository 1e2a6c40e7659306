package types

// NotificationKind identifies what changed on an application
type NotificationKind string

const (
	NotifyStateChanged   NotificationKind = "state_changed"
	NotifyBusyChanged    NotificationKind = "busy_changed"
	NotifyWindowsChanged NotificationKind = "windows_changed"
	NotifyLaunchStarted  NotificationKind = "launch_started"
	NotifyLaunchResolved NotificationKind = "launch_resolved"
	NotifyLaunchFailed   NotificationKind = "launch_failed"
	NotifyAppRemoved     NotificationKind = "app_removed"
)

// Notification is emitted by the app manager after every observable change
type Notification struct {
	Kind     NotificationKind `json:"kind"`
	AppID    string           `json:"app_id"`
	OldState State            `json:"old_state,omitempty"`
	NewState State            `json:"new_state,omitempty"`
	Busy     bool             `json:"busy"`
	Token    string           `json:"token,omitempty"`
	WindowID string           `json:"window_id,omitempty"`
	Error    string           `json:"error,omitempty"`
}
