/*
Package resilience provides a circuit breaker for the process spawner.

# Overview

When spawning keeps failing (missing binaries, exhausted process table) the
breaker opens and launches fail fast with ErrCircuitOpen until the timeout
passes. One trial call is then let through; its outcome closes or reopens
the breaker.

# Usage

	breaker := resilience.New("spawn", resilience.Settings{
		Timeout: 30 * time.Second,
		ReadyToTrip: func(c resilience.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
	})

	pid, err := resilience.Execute(breaker, func() (int, error) {
		return spawner.Spawn(ctx, req)
	})

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                       [failure]
	                                           v
	                                         Open
*/
package resilience
