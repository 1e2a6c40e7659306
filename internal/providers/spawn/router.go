package spawn

import (
	"context"

	"github.com/GriffinCanCode/AgentOS/shell/internal/domain/app"
)

// Backend names used in metrics and logs
const (
	BackendExec = "exec"
	BackendPTY  = "pty"
)

// Router sends terminal requests to the pty backend and the rest to exec
type Router struct {
	Exec     app.Spawner
	Terminal app.Spawner
}

// NewRouter builds a router over fresh exec and pty backends sharing opts
func NewRouter(opts ...Option) *Router {
	return &Router{
		Exec:     NewExec(opts...),
		Terminal: NewPTY(opts...),
	}
}

// Spawn implements app.Spawner
func (r *Router) Spawn(ctx context.Context, req app.SpawnRequest) (int, error) {
	if req.Terminal {
		return r.Terminal.Spawn(ctx, req)
	}
	return r.Exec.Spawn(ctx, req)
}

// BackendFor names the backend a request is routed to
func BackendFor(req app.SpawnRequest) string {
	if req.Terminal {
		return BackendPTY
	}
	return BackendExec
}
