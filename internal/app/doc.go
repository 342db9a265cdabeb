// Package app provides the application service layer.
//
// Orchestrates use cases: recording an interaction through the rate limiter,
// permission checks and aggregator; ranking and profile queries with display
// names; privacy toggles; member name updates. Depends on domain interfaces
// and the core packages, not on concrete adapters.
package app
