// Package ws provides the two WebSocket endpoints of shelld.
//
// /stream (Hub): UI clients such as a dock or panel receive a snapshot of
// every app on connect, then each app manager notification as it happens.
//
// /wm (Bridge): a compositor connects and reports windows. The bridge turns
// its messages into app events and implements app.WindowManager by sending
// requests back over the same connection.
//
// Message Types (compositor → shelld):
//   - window_created: window payload plus optional launch_token
//   - window_destroyed, window_busy, window_focused
//   - window_updated: new title or workspace for a known window
//   - active_workspace: the workspace now shown
//   - close_reply: answer to a close request
//   - ping
//
// Message Types (shelld → compositor):
//   - activate, move, close
//   - pong, error
//
// Example Usage:
//
//	bridge := ws.NewBridge(logger, metrics, origins)
//	manager := app.NewManager(bridge, spawner)
//	dispatcher := service.NewDispatcher(manager)
//	bridge.SetPoster(dispatcher)
//
//	hub := ws.NewHub(dispatcher, logger, metrics, origins)
//	manager.Subscribe(hub.Publish)
//	router.GET("/stream", hub.HandleConnection)
//	router.GET("/wm", bridge.HandleConnection)
package ws
