package app

// Event is an inbound signal from the window manager or the launch
// machinery. Manager.Handle is the transition function over events.
type Event interface {
	eventName() string
}

// WindowCreated reports a newly mapped window. LaunchToken is the startup
// id the window echoed back, if any.
type WindowCreated struct {
	Window      Window
	LaunchToken string
}

// WindowDestroyed reports that a window is gone
type WindowDestroyed struct {
	WindowID string
}

// WindowBusyChanged reports a window entering or leaving a loading state
type WindowBusyChanged struct {
	WindowID string
	Busy     bool
}

// WindowFocused reports that the user focused a window
type WindowFocused struct {
	WindowID  string
	Timestamp uint32
}

// WindowUpdated reports a change to a window's title or workspace
type WindowUpdated struct {
	WindowID string
}

// LaunchFailed reports a backend failure for an in-flight launch
type LaunchFailed struct {
	Token string
	Err   error
}

// LaunchTimedOut reports that no window appeared in time
type LaunchTimedOut struct {
	Token string
}

// LaunchCancelled abandons an in-flight launch
type LaunchCancelled struct {
	Token string
}

// LaunchExited reports that a launched process exited. A nil Err means a
// clean exit, which resolves the launch without a window.
type LaunchExited struct {
	Token string
	PID   int
	Err   error
}

func (WindowCreated) eventName() string     { return "window_created" }
func (WindowDestroyed) eventName() string   { return "window_destroyed" }
func (WindowBusyChanged) eventName() string { return "window_busy_changed" }
func (WindowFocused) eventName() string     { return "window_focused" }
func (WindowUpdated) eventName() string     { return "window_updated" }
func (LaunchFailed) eventName() string      { return "launch_failed" }
func (LaunchTimedOut) eventName() string    { return "launch_timed_out" }
func (LaunchCancelled) eventName() string   { return "launch_cancelled" }
func (LaunchExited) eventName() string      { return "launch_exited" }

// EventName returns the wire name of an event
func EventName(ev Event) string { return ev.eventName() }
