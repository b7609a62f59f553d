// Package app contains the core application logic. It wires configuration,
// logging, metrics and build events around the graph builder and renders the
// result, decoupled from any specific entrypoint like a CLI or server.
package app
