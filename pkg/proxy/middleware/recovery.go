package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/multiverse-hub/inference-gateway/pkg/apierrors"
)

// RecoveryMiddleware recovers from panics in HTTP handlers and returns a 500
// Internal Server Error response in the gateway's error format. It logs the
// panic with stack trace for debugging but does not expose internal details
// to clients.
//
// Example usage:
//
//	handler = RecoveryMiddleware(handler)
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				requestID := GetRequestID(r.Context())
				stack := debug.Stack()

				slog.ErrorContext(r.Context(), "panic in handler",
					"error", err,
					"request_id", requestID,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(stack),
				)

				apierrors.Write(w, apierrors.New(apierrors.KindInternal,
					"an internal error occurred, please try again later"))
			}
		}()

		next.ServeHTTP(w, r)
	})
}
