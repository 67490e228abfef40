// Package daemon coordinates the long-running manimgen HTTP process.
//
// It wires configuration, the generation pipeline and the metrics registry
// into a single lifecycle with flock-based locking to prevent multiple
// instances sharing a state directory. The chi router serves the health,
// generation and metrics endpoints behind request-id, logging, CORS and
// optional bearer-token middleware.
//
// Keep orchestration logic here: generation and rendering live in their
// respective packages while the daemon focuses on startup, shutdown and the
// HTTP surface.
package daemon
