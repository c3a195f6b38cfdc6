// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// KeyService manages API keys, Orchestrator turns updates into queued
// tasks and Dispatcher feeds queued tasks to an executor. Every service
// records prometheus metrics in package-level collectors; see Collectors.
package services
