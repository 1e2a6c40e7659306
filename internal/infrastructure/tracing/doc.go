/*
Package tracing provides lightweight spans for launches and HTTP requests.

Spans are collected on a buffered channel and written to the zap logger by
a single collector goroutine. There is no exporter.

# Launch spans

LaunchTracer subscribes to app manager notifications. A span opens on
launch_started and closes on launch_resolved or launch_failed; the launch
token doubles as the trace id.

	launches := tracing.NewLaunchTracer(tracer)
	manager.Subscribe(launches.Observe)

# HTTP spans

	router.Use(tracing.HTTPMiddleware(tracer))

Trace context propagates through the X-Trace-ID and X-Span-ID headers.
*/
package tracing
