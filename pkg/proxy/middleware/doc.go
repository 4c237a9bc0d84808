// Package middleware provides HTTP middleware for cross-cutting concerns.
//
// This package implements middleware functions that handle common
// functionality across all HTTP requests: request ID propagation,
// structured request/response logging, panic recovery, and request body
// size limiting.
//
// # Middleware Chain
//
// Middleware functions are chained in a specific order:
//
//	handler = RequestIDMiddleware(RecoveryMiddleware(LoggingMiddleware(BodyLimitMiddleware(handler))))
//
// Order (innermost to outermost):
//  1. BodyLimitMiddleware: Reject oversized request bodies
//  2. LoggingMiddleware: Log request/response details
//  3. RecoveryMiddleware: Recover from panics
//  4. RequestIDMiddleware: Generate and propagate request ID
//
// # Request ID
//
// RequestIDMiddleware generates a unique ID for each request from
// crypto/rand if the client did not supply one:
//
//	X-Request-ID: 3f2a9c1e7b4d8a05c6e1f9b2d7a4c830
//
// The request ID is added to context for handler access, included in the
// response headers, and logged with every request/response pair.
//
// # Logging
//
// LoggingMiddleware uses structured logging (log/slog) to record request
// details:
//
//	{
//	  "time": "2026-08-06T10:30:00Z",
//	  "level": "INFO",
//	  "msg": "request completed",
//	  "method": "POST",
//	  "path": "/v1/chat/completions",
//	  "status": 200,
//	  "latency_ms": 1250,
//	  "request_id": "3f2a9c1e7b4d8a05c6e1f9b2d7a4c830"
//	}
//
// # Recovery
//
// RecoveryMiddleware catches panics in handlers and converts them to HTTP
// 500 responses using the gateway's error body shape. The panic stack
// trace is logged but never exposed to clients.
//
// # Body Limit
//
// BodyLimitMiddleware rejects a request whose declared Content-Length is
// larger than the configured maximum with a 413 Payload Too Large response
// before the handler runs. A body without a declared length is wrapped in
// http.MaxBytesReader instead, so a read past the limit fails inside the
// handler and the handler's own error response is sent.
//
// # Context Values
//
// Middleware stores values in context for handler access:
//
//	type contextKey string
//
//	const (
//	    RequestIDKey contextKey = "request_id"
//	    StartTimeKey contextKey = "start_time"
//	)
//
// # Thread Safety
//
// All middleware functions are thread-safe and can be called concurrently
// from multiple goroutines.
package middleware
