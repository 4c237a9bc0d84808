package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/multiverse-hub/inference-gateway/pkg/apierrors"
)

// HeaderName is the header carrying the admin API key on protected requests.
const HeaderName = "X-API-Key"

// Middleware is HTTP middleware enforcing admin API key authentication.
type Middleware struct {
	validator *Validator
}

// NewMiddleware creates admin API key authentication middleware.
func NewMiddleware(validator *Validator) *Middleware {
	return &Middleware{validator: validator}
}

// Handle wraps an HTTP handler, rejecting requests that do not present a
// valid X-API-Key header. The key itself is never logged.
func (m *Middleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(HeaderName)
		if key == "" {
			slog.Warn("admin request missing API key",
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path,
			)
			apierrors.Write(w, apierrors.New(apierrors.KindUnauthorized, "missing "+HeaderName+" header"))
			return
		}

		if !m.validator.Validate(key) {
			slog.Warn("admin request rejected: invalid API key",
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path,
			)
			apierrors.Write(w, apierrors.New(apierrors.KindUnauthorized, "invalid API key"))
			return
		}

		ctx := context.WithValue(r.Context(), authenticatedKey, true)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Authenticated reports whether the request context was marked authenticated
// by this middleware.
func Authenticated(ctx context.Context) bool {
	ok, _ := ctx.Value(authenticatedKey).(bool)
	return ok
}
