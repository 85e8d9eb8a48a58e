// Package internal documents the LocalBeat server internals.
//
// The internal tree is organized by responsibility:
// - api: HTTP handlers, middleware, problem rendering, and routing
// - events: the query pipeline (validate, fetch, normalize, dedup, sort)
// - ticketmaster: the Discovery API provider client
// - geocoding: postal-code to map-center resolution via Nominatim
// - config, metrics, telemetry: shared infrastructure
//
// Code in internal/ is not meant for external import.
package internal
