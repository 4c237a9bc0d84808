// Package server ties together the registry, selector, health monitor, and
// proxy engine into the gateway's single HTTP listener, and owns its
// lifecycle from bind to graceful shutdown.
//
// # Routes
//
//   - POST /v1/chat/completions, POST /v1/completions - proxied inference requests
//   - GET /v1/models - active models grouped across registered backends
//   - GET /health - liveness, backed by the registry's reachability
//   - GET /metrics - Prometheus exposition
//   - /admin/register, /admin/servers, /admin/stats - admin CRUD, behind X-API-Key
//
// # Middleware chain
//
// Requests pass through, innermost to outermost:
//  1. BodyLimit: rejects oversized request bodies
//  2. Logging: structured per-request log lines
//  3. Recovery: turns a panic into a 500 instead of a dropped connection
//  4. RequestID: assigns or forwards X-Request-ID, so every layer inside it
//     (including Logging and Recovery) can read the ID from the context
//
// # Shutdown
//
// Start blocks until its context is cancelled. On shutdown it stops
// accepting new connections, waits out the configured grace period for
// in-flight requests, stops the health monitor, and closes the registry
// store, in that order.
package server
