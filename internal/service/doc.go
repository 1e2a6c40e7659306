// Package service runs the app manager on a single goroutine.
//
// The Dispatcher is the only code that touches the app.Manager once Run has
// started. Window manager events are queued with Post; HTTP and CLI
// commands run on the loop through Do and Query and get their result back.
//
// Launch timeouts are armed when a launch starts and disarmed when it
// resolves or fails. An expired timer posts app.LaunchTimedOut, which the
// manager ignores if the launch already finished.
//
// Example Usage:
//
//	d := service.NewDispatcher(manager, service.WithLaunchTimeout(15*time.Second))
//	go d.Run(ctx)
//	d.Post(app.WindowCreated{Window: w})
//	info, err := service.Query(ctx, d, func(m *app.Manager) []types.AppInfo { ... })
package service
