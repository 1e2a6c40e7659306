package app

import "github.com/GriffinCanCode/AgentOS/shell/internal/shared/types"

// SourceKind tells installed apps from window-backed ones
type SourceKind int

const (
	// SourceInstalled apps come from a descriptor and can be launched
	SourceInstalled SourceKind = iota
	// SourceWindow apps were synthesized from a window with no descriptor
	SourceWindow
)

func (k SourceKind) String() string {
	switch k {
	case SourceInstalled:
		return "installed"
	case SourceWindow:
		return "window"
	default:
		return "unknown"
	}
}

// Source is where an app's identity comes from. Exactly one of Descriptor
// (SourceInstalled) or WindowID (SourceWindow) is set.
type Source struct {
	Kind       SourceKind
	Descriptor *types.Descriptor
	WindowID   string
}

// InstalledSource wraps a descriptor
func InstalledSource(d *types.Descriptor) Source {
	return Source{Kind: SourceInstalled, Descriptor: d}
}

// WindowSource records the window a window-backed app was revealed by
func WindowSource(windowID string) Source {
	return Source{Kind: SourceWindow, WindowID: windowID}
}

func (s Source) descriptor(op, appID string) (*types.Descriptor, error) {
	if s.Kind != SourceInstalled || s.Descriptor == nil {
		return nil, newError(op, appID, ErrNotSupported)
	}
	return s.Descriptor, nil
}

// Name returns the descriptor name
func (s Source) Name(appID string) (string, error) {
	d, err := s.descriptor("name", appID)
	if err != nil {
		return "", err
	}
	return d.Name, nil
}

// GenericName returns the descriptor generic name
func (s Source) GenericName(appID string) (string, error) {
	d, err := s.descriptor("generic_name", appID)
	if err != nil {
		return "", err
	}
	return d.GenericName, nil
}

// Description returns the descriptor description
func (s Source) Description(appID string) (string, error) {
	d, err := s.descriptor("description", appID)
	if err != nil {
		return "", err
	}
	return d.Description, nil
}

// Icon looks up the icon source closest to size
func (s Source) Icon(appID string, size int) (types.IconSource, bool, error) {
	d, err := s.descriptor("icon", appID)
	if err != nil {
		return types.IconSource{}, false, err
	}
	icon, ok := d.Icons.Lookup(size)
	return icon, ok, nil
}

// Actions lists the declared actions
func (s Source) Actions(appID string) ([]types.Action, error) {
	d, err := s.descriptor("actions", appID)
	if err != nil {
		return nil, err
	}
	out := make([]types.Action, len(d.Actions))
	copy(out, d.Actions)
	return out, nil
}
