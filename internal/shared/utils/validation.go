package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/GriffinCanCode/AgentOS/shell/internal/shared/types"
)

// Size limits (in bytes)
const (
	MaxManifestSize = 256 * 1024 // a single descriptor manifest
)

// String length limits
const (
	MaxIDLength          = 255
	MaxNameLength        = 256
	MaxDescriptionLength = 2048
	MaxActionCount       = 32
	MaxArgCount          = 128
)

// Regular expressions for validation
var (
	// AppIDPattern allows reverse-DNS style ids: alphanumeric, dots, hyphens, underscores
	AppIDPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)
	// ActionIDPattern allows alphanumeric, hyphens, underscores
	ActionIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	// EnvKeyPattern matches portable environment variable names
	EnvKeyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// ValidateSize checks if a manifest is within the size limit
func ValidateSize(data []byte) error {
	if len(data) > MaxManifestSize {
		return fmt.Errorf("manifest size %d bytes exceeds maximum %d bytes", len(data), MaxManifestSize)
	}
	return nil
}

// ValidateString validates a string field with length and content checks
func ValidateString(value, fieldName string, minLen, maxLen int, required bool) error {
	if required && value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	if value == "" {
		return nil
	}

	length := utf8.RuneCountInString(value)
	if length < minLen {
		return fmt.Errorf("%s must be at least %d characters", fieldName, minLen)
	}
	if length > maxLen {
		return fmt.Errorf("%s must not exceed %d characters", fieldName, maxLen)
	}

	if strings.Contains(value, "\x00") {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}
	return nil
}

// ValidateAppID validates an application id
func ValidateAppID(id string) error {
	if err := ValidateString(id, "id", 1, MaxIDLength, true); err != nil {
		return err
	}
	if IsWindowAppID(id) {
		return fmt.Errorf("id %q uses the reserved %q prefix", id, WindowAppPrefix)
	}
	if !AppIDPattern.MatchString(id) {
		return fmt.Errorf("id %q contains invalid characters (only alphanumeric, dots, hyphens, and underscores allowed)", id)
	}
	return nil
}

// ValidateDescriptor checks a descriptor before it enters the catalog
func ValidateDescriptor(d *types.Descriptor) error {
	if d == nil {
		return fmt.Errorf("descriptor is nil")
	}
	if err := ValidateAppID(d.ID); err != nil {
		return err
	}
	if err := ValidateString(d.Name, "name", 1, MaxNameLength, true); err != nil {
		return err
	}
	if err := ValidateString(d.GenericName, "generic_name", 0, MaxNameLength, false); err != nil {
		return err
	}
	if err := ValidateString(d.Description, "description", 0, MaxDescriptionLength, false); err != nil {
		return err
	}
	if strings.TrimSpace(d.Exec) == "" {
		return fmt.Errorf("exec is required")
	}
	if len(d.Args) > MaxArgCount {
		return fmt.Errorf("too many args (maximum %d)", MaxArgCount)
	}
	for key := range d.Env {
		if !EnvKeyPattern.MatchString(key) {
			return fmt.Errorf("invalid environment variable name %q", key)
		}
	}

	if len(d.Actions) > MaxActionCount {
		return fmt.Errorf("too many actions (maximum %d)", MaxActionCount)
	}
	seen := make(map[string]struct{}, len(d.Actions))
	for i, a := range d.Actions {
		if !ActionIDPattern.MatchString(a.ID) {
			return fmt.Errorf("action[%d] has invalid id %q", i, a.ID)
		}
		if _, dup := seen[a.ID]; dup {
			return fmt.Errorf("duplicate action %q", a.ID)
		}
		seen[a.ID] = struct{}{}
		if err := ValidateString(a.Name, fmt.Sprintf("action[%d].name", i), 1, MaxNameLength, true); err != nil {
			return err
		}
	}

	for i, icon := range d.Icons {
		if icon.Path == "" {
			return fmt.Errorf("icon[%d] has no path", i)
		}
		if icon.Size < 0 {
			return fmt.Errorf("icon[%d] has negative size", i)
		}
	}
	return nil
}
