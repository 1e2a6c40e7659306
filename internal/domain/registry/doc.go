// Package registry provides the descriptor catalog the app manager is
// initialized from.
//
// Descriptors are read from manifest files in the configured directories.
// Each manifest describes one installed application:
//
//	id = "org.example.Editor"
//	name = "Editor"
//	exec = "editor"
//	multi_instance = true
//
//	[[icons]]
//	path = "icons/editor-48.png"
//	size = 48
//
//	[[actions]]
//	id = "new-window"
//	name = "New Window"
//	args = ["--new-window"]
//
// Components:
//   - Manager: in-memory catalog keyed by id
//   - Seeder: loads .toml, .yaml and .json manifests on startup
//
// The first directory wins when two manifests declare the same id, so user
// manifests shadow system ones. Loading happens once; the catalog does not
// watch directories.
//
// Example Usage:
//
//	catalog := registry.NewManager()
//	seeder := registry.NewSeeder(catalog, dirs, logger)
//	loaded, failed, err := seeder.Seed(ctx)
//	descriptors := catalog.Descriptors()
package registry
