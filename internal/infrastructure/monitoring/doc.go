/*
Package monitoring provides metrics collection for the shell daemon.

# Overview

Metrics live on a private Prometheus registry so several collectors can
coexist in one process (tests create one per case).

# Features

- HTTP request metrics (latency, throughput, size)
- Application state gauges and window counts
- Launch lifecycle counters and launch-to-window latency
- Spawn backend call metrics
- WebSocket connection metrics

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics, "exec")
	// ... spawn ...
	timer.Stop("success")
*/
package monitoring
