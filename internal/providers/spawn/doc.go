/*
Package spawn starts application processes for the launch coordinator.

Backends:
  - Exec: plain fork/exec in a new process group
  - PTY: terminal applications, attached to a pseudo-terminal
  - Router: picks PTY or Exec from the request
  - Guarded: wraps a backend with a circuit breaker and spawn metrics

Every backend returns as soon as the process is running and reports its
exit later through an ExitFunc, so the caller can resolve or fail the
launch without blocking on the child.
*/
package spawn
