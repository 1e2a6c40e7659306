// Package main is the entry point for shelld, the desktop app tracking
// daemon.
//
// shelld loads installed app descriptors, tracks which application owns
// every window a compositor reports, and launches apps on request.
//
// Architecture:
//
//	Compositor ──/wm──▶ shelld ◀──HTTP── dock / panel
//	                      │
//	                      └──/stream──▶ UI clients
//
// Configuration:
//   - Environment variables (12-factor), see internal/infrastructure/config
//   - CLI flags override the listen address and log level
//
// Usage:
//
//	shelld serve --port 8077
//	shelld descriptors --dir ./apps
//	shelld version
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
