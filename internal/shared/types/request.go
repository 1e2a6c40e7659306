package types

// LaunchRequest is the body of a launch call
type LaunchRequest struct {
	Timestamp   uint32 `json:"timestamp"`
	Workspace   *int   `json:"workspace,omitempty"`
	DiscreteGPU bool   `json:"discrete_gpu"`
}

// ActivateRequest is the body of activate, new-window and action calls
type ActivateRequest struct {
	Timestamp uint32 `json:"timestamp"`
	Workspace *int   `json:"workspace,omitempty"`
}

// WorkspaceOrDefault returns the requested workspace or AllWorkspaces
func WorkspaceOrDefault(ws *int) int {
	if ws == nil {
		return AllWorkspaces
	}
	return *ws
}

// WindowPayload describes a window reported by the window manager
type WindowPayload struct {
	ID          string `json:"id"`
	PID         int    `json:"pid"`
	Title       string `json:"title"`
	WMClass     string `json:"wm_class"`
	Workspace   int    `json:"workspace"`
	SkipTaskbar bool   `json:"skip_taskbar"`
	Busy        bool   `json:"busy"`
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type        string         `json:"type"`
	RequestID   string         `json:"request_id,omitempty"`
	Window      *WindowPayload `json:"window,omitempty"`
	WindowID    string         `json:"window_id,omitempty"`
	LaunchToken string         `json:"launch_token,omitempty"`
	Busy        bool           `json:"busy,omitempty"`
	Timestamp   uint32         `json:"timestamp,omitempty"`
	Workspace   int            `json:"workspace"`
	Accepted    bool           `json:"accepted,omitempty"`
	Message     string         `json:"message,omitempty"`
}

// StreamMessage is sent to UI clients on the notification stream
type StreamMessage struct {
	Type         string        `json:"type"` // "snapshot", "notification", "pong", "error"
	Apps         []AppInfo     `json:"apps,omitempty"`
	Notification *Notification `json:"notification,omitempty"`
	Message      string        `json:"message,omitempty"`
}
