package spawn

import (
	"context"
	"errors"
	"os"
	"os/exec"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/shell/internal/domain/app"
	"github.com/GriffinCanCode/AgentOS/shell/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/shell/internal/infrastructure/resilience"
)

// Spawn outcome labels
const (
	StatusOK       = "ok"
	StatusError    = "error"
	StatusRejected = "rejected"
)

// Guarded wraps a spawner with a circuit breaker and spawn metrics
type Guarded struct {
	next    app.Spawner
	breaker *resilience.Breaker
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewGuarded creates a guarded spawner. Errors caused by the request
// itself, like a missing binary, do not count against the breaker.
func NewGuarded(next app.Spawner, settings resilience.Settings, metrics *monitoring.Metrics, logger *zap.Logger) *Guarded {
	if logger == nil {
		logger = zap.NewNop()
	}
	if settings.IsFailure == nil {
		settings.IsFailure = isBackendFailure
	}
	userHook := settings.OnStateChange
	settings.OnStateChange = func(name string, from, to resilience.State) {
		logger.Warn("Spawn breaker state changed",
			zap.String("breaker", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()))
		if userHook != nil {
			userHook(name, from, to)
		}
	}

	return &Guarded{
		next:    next,
		breaker: resilience.New("spawn", settings),
		metrics: metrics,
		logger:  logger,
	}
}

// Spawn implements app.Spawner
func (g *Guarded) Spawn(ctx context.Context, req app.SpawnRequest) (int, error) {
	timer := monitoring.NewTimer(g.metrics, BackendFor(req))

	pid, err := resilience.Execute(g.breaker, func() (int, error) {
		return g.next.Spawn(ctx, req)
	})

	switch {
	case resilience.IsRejected(err):
		timer.Stop(StatusRejected)
		g.logger.Warn("Spawn rejected by breaker",
			zap.String("app_id", req.AppID),
			zap.String("token", req.Token.String()))
	case err != nil:
		timer.Stop(StatusError)
	default:
		timer.Stop(StatusOK)
	}
	return pid, err
}

// State returns the breaker state
func (g *Guarded) State() resilience.State {
	return g.breaker.State()
}

func isBackendFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrPermission) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}
