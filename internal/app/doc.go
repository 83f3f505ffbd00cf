// Package app wires the engine to its surroundings: project loading, the
// health and metrics servers, run recording, tracing and the remote debugger.
// It is decoupled from any specific entrypoint like a CLI or server.
package app
