package app

import (
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/shell/internal/shared/types"
)

// deriveState computes the state from the windows and in-flight launches:
//
//	windows present          -> RUNNING
//	no windows, launch       -> STARTING
//	no windows, no launch    -> STOPPED
func (a *App) deriveState() types.State {
	switch {
	case len(a.windows) > 0:
		return types.StateRunning
	case len(a.launches) > 0:
		return types.StateStarting
	default:
		return types.StateStopped
	}
}

func (a *App) deriveBusy() bool {
	return len(a.launches) > 0 || len(a.busyWindows) > 0
}

// sync re-evaluates state and busy after a mutation and emits one
// notification per value that actually changed. Several windows closing in
// one batch therefore produce a single RUNNING -> STOPPED transition.
func (a *App) sync() {
	if next := a.deriveState(); next != a.state {
		prev := a.state
		a.state = next
		a.logger.Info("State changed",
			zap.String("from", string(prev)),
			zap.String("state", string(next)))
		a.emit(types.Notification{
			Kind:     types.NotifyStateChanged,
			OldState: prev,
			NewState: next,
		})
	}

	if busy := a.deriveBusy(); busy != a.busy {
		a.busy = busy
		a.emit(types.Notification{Kind: types.NotifyBusyChanged})
	}
}
