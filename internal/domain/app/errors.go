package app

import (
	"errors"
	"strings"
)

// Error kinds. Match with errors.Is.
var (
	ErrNotLaunchable      = errors.New("app has no descriptor to launch")
	ErrAlreadyStarting    = errors.New("app is already starting")
	ErrSpawnFailed        = errors.New("failed to spawn process")
	ErrNoWindowToActivate = errors.New("running app has no window to activate")
	ErrNotOwned           = errors.New("window does not belong to app")
	ErrUnknownAction      = errors.New("unknown action")
	ErrNotSupported       = errors.New("not supported for window-backed app")
	ErrAlreadyOwned       = errors.New("window already belongs to another app")
	ErrUnknownWindow      = errors.New("unknown window")
	ErrUnknownApp         = errors.New("unknown app")
	ErrLaunchTimeout      = errors.New("launch timed out")
	ErrWindowManager      = errors.New("window manager request failed")
)

// Error carries the failed operation, the app it ran on, the error kind and
// the collaborator error behind it, if any.
type Error struct {
	Op    string
	AppID string
	Err   error
	Cause error
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.AppID != "" {
		sb.WriteString("app ")
		sb.WriteString(e.AppID)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Op)
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

func newError(op, appID string, kind error) *Error {
	return &Error{Op: op, AppID: appID, Err: kind}
}

func wrapError(op, appID string, kind, cause error) *Error {
	return &Error{Op: op, AppID: appID, Err: kind, Cause: cause}
}
