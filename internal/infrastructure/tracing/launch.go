package tracing

import (
	"sync"

	"github.com/GriffinCanCode/AgentOS/shell/internal/shared/types"
)

// LaunchTracer turns launch notifications into spans. The launch token is
// the trace id, so a launch can be followed from spawn to first window.
type LaunchTracer struct {
	tracer *Tracer

	mu    sync.Mutex
	spans map[string]*Span
}

// NewLaunchTracer creates a launch tracer
func NewLaunchTracer(tracer *Tracer) *LaunchTracer {
	return &LaunchTracer{
		tracer: tracer,
		spans:  make(map[string]*Span),
	}
}

// Observe consumes an app manager notification
func (l *LaunchTracer) Observe(n types.Notification) {
	if n.Token == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	switch n.Kind {
	case types.NotifyLaunchStarted:
		span := l.tracer.newSpan(TraceID(n.Token), "", "launch")
		span.SetTag("app_id", n.AppID)
		l.spans[n.Token] = span

	case types.NotifyLaunchResolved, types.NotifyLaunchFailed:
		span, ok := l.spans[n.Token]
		if !ok {
			return
		}
		delete(l.spans, n.Token)
		switch {
		case n.Error != "":
			span.SetError(n.Error)
		case n.WindowID != "":
			span.SetTag("window_id", n.WindowID)
		default:
			span.SetTag("outcome", "cancelled")
		}
		l.tracer.Finish(span)
	}
}

// Pending returns the number of open launch spans
func (l *LaunchTracer) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.spans)
}
