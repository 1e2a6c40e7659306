// Package app models desktop applications as long-lived entities distinct
// from the windows and processes that realize them.
//
// An App is either installed (backed by a descriptor, launchable) or
// window-backed (synthesized from a window no descriptor claims). Its state
// is derived, never set:
//
//	STOPPED   no windows, no launch in flight
//	STARTING  a launch is in flight, no window yet
//	RUNNING   at least one window
//
// Busy is orthogonal: true while a launch is in flight or a window reports
// itself busy.
//
// The Manager owns every App and is the transition function over inbound
// window manager events (WindowCreated, WindowDestroyed, ...). It routes a
// new window by launch token, then by the PID a launch spawned, then by
// window class, then by an already known PID, and otherwise synthesizes a
// window-backed app. When an app has several launches in flight a window
// resolves the launch named by its token, else the one that spawned its
// process, else the earliest.
//
// Nothing here locks. One goroutine (see service.Dispatcher) must own the
// Manager and deliver events and commands in order.
//
// Example Usage:
//
//	m := app.NewManager(wm, spawner, app.WithLogger(logger))
//	_ = m.Init(descriptors)
//	editor, _ := m.Lookup("org.example.Editor")
//	_ = editor.Activate(ctx, types.AllWorkspaces, ts)
//	_ = m.Handle(app.WindowCreated{Window: w, LaunchToken: token})
package app
