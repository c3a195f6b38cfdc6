// Package driving declares what callers (the CLI, and an HTTP layer in
// front of the server) may ask of the control plane: key management and
// authorization, update registration and task queries, and the execution
// worker's claim and write-back contract.
//
// Implementations live in internal/core/services.
package driving
