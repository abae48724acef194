// Package application provides application initialization and dependency wiring.
// It builds the configuration layers, resolves them once, publishes the result
// and creates the HTTP server, keeping the main package focused on CLI parsing
// and orchestration.
package application
