// Package types provides shared data structures for the shell daemon.
//
// This package defines the value types exchanged between the app core,
// the descriptor catalog and the API layer.
//
// Core Types:
//   - Descriptor: Installed application record (name, icons, exec, actions)
//   - AppInfo: Snapshot of an application and its windows
//   - Notification: Change event emitted by the app manager
//
// State Management:
//   - State: App state enum (stopped, starting, running)
//   - GPUPreference: Launch GPU placement
//   - Stats: Manager statistics
//
// Wire Types:
//   - LaunchRequest, ActivateRequest: HTTP bodies
//   - WSMessage, WindowPayload: WebSocket messages
//
// Example Usage:
//
//	desc := &types.Descriptor{
//	    ID:   "org.example.Editor",
//	    Name: "Editor",
//	    Exec: "editor",
//	}
package types
