// Package paths provides the standard filesystem locations the shell
// daemon reads descriptor manifests from.
//
// # Directory Structure
//
//	$XDG_DATA_HOME/shelld/apps/   (user manifests, default ~/.local/share)
//	/usr/share/shelld/apps/       (system manifests)
//
// # Usage
//
//	dirs := paths.ManifestDirs()
//	for _, dir := range dirs {
//	    // load *.toml, *.yaml, *.json manifests
//	}
package paths
