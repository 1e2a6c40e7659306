package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Install roots
const (
	SystemApps = "/usr/share/shelld/apps"
	appSubdir  = "shelld/apps"
)

// ManifestPatterns are the doublestar globs a manifest directory is scanned with
var ManifestPatterns = []string{
	"**/*.toml",
	"**/*.yaml",
	"**/*.yml",
	"**/*.json",
}

// UserApps returns the per-user manifest directory
func UserApps() string {
	if data := os.Getenv("XDG_DATA_HOME"); data != "" {
		return filepath.Join(data, appSubdir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appSubdir)
	}
	return filepath.Join(home, ".local", "share", appSubdir)
}

// ManifestDirs returns the default manifest directories, user first
func ManifestDirs() []string {
	return []string{UserApps(), SystemApps}
}

// ResolveIconPath resolves an icon path relative to the manifest that declared it
func ResolveIconPath(manifestPath, iconPath string) string {
	if iconPath == "" || filepath.IsAbs(iconPath) {
		return iconPath
	}
	return filepath.Join(filepath.Dir(manifestPath), iconPath)
}

// ValidateAppID checks that an app ID is safe to use as a file stem
func ValidateAppID(appID string) error {
	if appID == "" {
		return fmt.Errorf("app ID cannot be empty")
	}
	if filepath.IsAbs(appID) {
		return fmt.Errorf("app ID cannot be an absolute path")
	}
	if strings.ContainsRune(appID, filepath.Separator) || filepath.Clean(appID) != appID {
		return fmt.Errorf("app ID contains invalid path components")
	}
	return nil
}
